// Package common defines the domain alphabet shared by every device
// interpreter: the commands a caller can issue, the responses/errors an
// interpreter can produce, and the Interpreter contract itself. Nothing in
// this package performs I/O.
package common

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
)

// Network is the Bitcoin network a command should target. It is treated as
// an opaque domain type: this library only needs to know whether a network
// is mainnet or not, not its full chain parameters.
type Network int

const (
	Bitcoin Network = iota
	Testnet
	Signet
	Regtest
)

func (n Network) String() string {
	switch n {
	case Bitcoin:
		return "bitcoin"
	case Testnet:
		return "testnet"
	case Signet:
		return "signet"
	case Regtest:
		return "regtest"
	default:
		return "unknown"
	}
}

// DerivationPath is a BIP-32 derivation path, stored as already-hardened or
// unhardened 32-bit indices. It is an opaque domain type: this library
// never interprets what a path "means" beyond encoding it on the wire.
type DerivationPath []uint32

const hardenedBit = 0x80000000

// ParseDerivationPath parses strings like "m/84'/0'/0'" or "m/84h/0h/0h"
// into a DerivationPath. It is grounded in the same shape as BIP-32 path
// parsers elsewhere in the ecosystem, minus any chain-specific behavior.
func ParseDerivationPath(s string) (DerivationPath, error) {
	if s == "m" || s == "M" {
		return DerivationPath{}, nil
	}
	s = strings.TrimPrefix(s, "m/")
	s = strings.TrimPrefix(s, "M/")
	if s == "" {
		return DerivationPath{}, nil
	}
	parts := strings.Split(s, "/")
	path := make(DerivationPath, 0, len(parts))
	for _, p := range parts {
		hardened := false
		if strings.HasSuffix(p, "'") || strings.HasSuffix(p, "h") || strings.HasSuffix(p, "H") {
			hardened = true
			p = p[:len(p)-1]
		}
		idx, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("derivation path: invalid index %q: %w", p, err)
		}
		if hardened {
			idx |= hardenedBit
		}
		path = append(path, uint32(idx))
	}
	return path, nil
}

// String renders the path in "m/84'/0'/0'" form.
func (p DerivationPath) String() string {
	var b strings.Builder
	b.WriteString("m")
	for _, idx := range p {
		b.WriteString("/")
		if idx&hardenedBit != 0 {
			fmt.Fprintf(&b, "%d'", idx&^hardenedBit)
		} else {
			fmt.Fprintf(&b, "%d", idx)
		}
	}
	return b.String()
}

// Command is the closed set of high-level operations a caller can issue to
// a device, regardless of which device it ends up talking to.
type Command interface {
	isCommand()
}

// Unlock asks the device to become ready for Bitcoin operations on Network.
type Unlock struct {
	Network Network
}

func (Unlock) isCommand() {}

// GetMasterFingerprint asks for the 4-byte fingerprint of the wallet's
// master key.
type GetMasterFingerprint struct{}

func (GetMasterFingerprint) isCommand() {}

// GetXpub asks for the extended public key at Path. Display asks the
// device to prompt the user for on-screen confirmation before answering.
type GetXpub struct {
	Path    DerivationPath
	Display bool
}

func (GetXpub) isCommand() {}

// Response is the closed set of successful outcomes a command can produce.
type Response interface {
	isResponse()
}

// TaskDone signals that a command completed with no payload to return
// (e.g. Unlock).
type TaskDone struct{}

func (TaskDone) isResponse() {}

// Fingerprint is the 4-byte fingerprint of a master or extended public key.
type Fingerprint [4]byte

func (f Fingerprint) String() string {
	return fmt.Sprintf("%x", [4]byte(f))
}

// MasterFingerprint carries the result of GetMasterFingerprint.
type MasterFingerprint struct {
	Fingerprint Fingerprint
}

func (MasterFingerprint) isResponse() {}

// Xpub carries the result of GetXpub: the serialized extended public key
// string, exactly as returned by the device (parsing into a structured key
// is the caller's concern; this library treats it as an opaque string and
// does not parse or validate it).
type Xpub struct {
	Xpub string
}

func (Xpub) isResponse() {}

// FingerprintFromXpub derives the 4-byte Hash160-based key fingerprint of
// the extended public key encoded in xpub. Both Coldcard and Jade report
// a master fingerprint by fetching the master xpub and deriving its
// fingerprint this way, rather than the device reporting it directly.
func FingerprintFromXpub(xpub string) (Fingerprint, error) {
	key, err := hdkeychain.NewKeyFromString(xpub)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("parse xpub: %w", err)
	}
	pub, err := key.ECPubKey()
	if err != nil {
		return Fingerprint{}, fmt.Errorf("xpub public key: %w", err)
	}
	hash := btcutil.Hash160(pub.SerializeCompressed())
	var fp Fingerprint
	copy(fp[:], hash[:4])
	return fp, nil
}

// EncryptionKey carries the Coldcard-only handshake response: the device's
// 64-byte uncompressed-minus-prefix ECDH public key, plus the fingerprint
// and (if the device sent one) xpub it reported for itself in the same
// reply. A device façade's OnUnlock hook consumes Key to promote its
// crypto engine to Ready.
type EncryptionKey struct {
	Key         [64]byte
	Fingerprint Fingerprint
	Xpub        string
	HasXpub     bool
}

func (EncryptionKey) isResponse() {}

// Recipient says who a Transmit's payload should be delivered to.
type Recipient interface {
	isRecipient()
}

// Device means "send this to the hardware signer".
type Device struct{}

func (Device) isRecipient() {}

// PinServer means "POST this to the given external PIN-server URL".
type PinServer struct {
	URL string
}

func (PinServer) isRecipient() {}

// Transmit is a frame an interpreter wants sent. Encrypted is advisory: it
// lets transports that must flag encrypted frames in their own framing
// (Coldcard HID) know whether to do so; transports that don't need it
// (Ledger, Jade) ignore it.
type Transmit struct {
	Recipient Recipient
	Payload   []byte
	Encrypted bool
}

// ErrorKind is the domain-level error taxonomy from the specification.
type ErrorKind int

const (
	// ErrNoErrorOrResult means the protocol ended without a result: either
	// a logic bug, or the device disconnected mid-flight.
	ErrNoErrorOrResult ErrorKind = iota
	// ErrMissingCommandInfo means the caller issued a command missing data
	// required by the chosen device (e.g. Unlock without a network on a
	// device that needs one to pick an app).
	ErrMissingCommandInfo
	// ErrEncryption means a Coldcard crypto operation failed.
	ErrEncryption
	// ErrSerialization means a wire decode failed (CBOR, string, or framed
	// blob).
	ErrSerialization
	// ErrUnexpectedResult means the device returned a well-formed frame
	// whose semantic content this library doesn't recognize.
	ErrUnexpectedResult
	// ErrRpc means Jade returned an RPC error object.
	ErrRpc
	// ErrRequest means an HTTP/transport request could not be constructed,
	// or the request itself failed.
	ErrRequest
	// ErrAuthenticationRefused means Jade's PIN-server handshake returned
	// false.
	ErrAuthenticationRefused
)

func (k ErrorKind) String() string {
	switch k {
	case ErrNoErrorOrResult:
		return "no error or result"
	case ErrMissingCommandInfo:
		return "missing command info"
	case ErrEncryption:
		return "encryption"
	case ErrSerialization:
		return "serialization"
	case ErrUnexpectedResult:
		return "unexpected result"
	case ErrRpc:
		return "rpc"
	case ErrRequest:
		return "request"
	case ErrAuthenticationRefused:
		return "authentication refused"
	default:
		return "unknown"
	}
}

// Error is the one typed error the domain layer produces. Callers pattern
// match on Kind; Detail/Bytes/Code carry kind-specific payload.
type Error struct {
	Kind    ErrorKind
	Detail  string
	Bytes   []byte
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrMissingCommandInfo:
		return fmt.Sprintf("missing command info: %s", e.Detail)
	case ErrUnexpectedResult:
		return fmt.Sprintf("unexpected result: %x", e.Bytes)
	case ErrRpc:
		return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
	case ErrRequest:
		if e.Err != nil {
			return fmt.Sprintf("request failed: %s: %v", e.Detail, e.Err)
		}
		return fmt.Sprintf("request failed: %s", e.Detail)
	default:
		if e.Detail != "" {
			return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
		}
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds an Error of the given kind with a free-form detail
// string.
func NewError(kind ErrorKind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// WrapError builds an ErrRequest Error wrapping an underlying transport or
// HTTP error.
func WrapError(detail string, err error) *Error {
	return &Error{Kind: ErrRequest, Detail: detail, Err: err}
}

// Interpreter is the transport-agnostic per-command protocol state
// machine every device implements. It never performs I/O: Start/Exchange
// return the bytes the caller should send, the caller drives replies back
// in with Exchange, and End extracts the typed result.
//
// Contract (see spec.md §4.1):
//   - After Start succeeds, either Exchange will be called at least once
//     more, or End will succeed.
//   - If Exchange returns a non-nil Transmit, another Exchange call must
//     follow with the reply before End.
//   - Calling End before the interpreter reaches its terminal state
//     reports ErrNoErrorOrResult.
type Interpreter interface {
	// Start produces the first outbound frame for command.
	Start(command Command) (Transmit, error)
	// Exchange consumes one reply and optionally produces the next
	// outbound frame. A nil Transmit with a nil error means "no more I/O
	// expected; call End".
	Exchange(reply []byte) (*Transmit, error)
	// End extracts the terminal response, consuming the interpreter.
	End() (Response, error)
}
