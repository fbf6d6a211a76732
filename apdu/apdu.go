// Package apdu implements the Ledger APDU wire codec: command encoding and
// status-word decoding. It performs no I/O of its own.
package apdu

import (
	"encoding/binary"
	"fmt"
)

// CurrentProtocolVersion is placed in p2 on every command's default
// envelope to record which framework protocol revision this client speaks.
const CurrentProtocolVersion = 1

// Cla is the APDU class byte.
type Cla byte

const (
	ClaDefault   Cla = 0xB0
	ClaBitcoin   Cla = 0xE1
	ClaFramework Cla = 0xF8
)

// BitcoinCommandCode is the instruction byte for Bitcoin-app APDUs.
type BitcoinCommandCode byte

const (
	InsGetExtendedPubkey   BitcoinCommandCode = 0x00
	InsGetVersion          BitcoinCommandCode = 0x01
	InsRegisterWallet      BitcoinCommandCode = 0x02
	InsGetWalletAddress    BitcoinCommandCode = 0x03
	InsSignPSBT            BitcoinCommandCode = 0x04
	InsGetMasterFingerprint BitcoinCommandCode = 0x05
	InsSignMessage         BitcoinCommandCode = 0x10
)

// FrameworkCommandCode is the instruction byte for framework-level APDUs
// (outside of any particular app).
type FrameworkCommandCode byte

const (
	InsContinueInterrupted FrameworkCommandCode = 0x01
)

// ClientCommandCode identifies a request the device embeds in an
// InterruptedExecution response, asking the host to look something up in
// its client command store and continue.
type ClientCommandCode byte

const (
	ClientYield              ClientCommandCode = 0x10
	ClientGetPreimage        ClientCommandCode = 0x40
	ClientGetMerkleLeafProof ClientCommandCode = 0x41
	ClientGetMerkleLeafIndex ClientCommandCode = 0x42
	ClientGetMoreElements    ClientCommandCode = 0xA0
)

// ParseClientCommandCode recognizes the known client command codes.
func ParseClientCommandCode(b byte) (ClientCommandCode, bool) {
	switch ClientCommandCode(b) {
	case ClientYield, ClientGetPreimage, ClientGetMerkleLeafProof, ClientGetMerkleLeafIndex, ClientGetMoreElements:
		return ClientCommandCode(b), true
	default:
		return 0, false
	}
}

// StatusWord is the 2-byte trailer on every APDU response.
type StatusWord uint16

const (
	Deny                 StatusWord = 0x6985
	IncorrectData        StatusWord = 0x6A80
	NotSupported         StatusWord = 0x6A82
	WrongP1P2            StatusWord = 0x6A86
	WrongDataLength      StatusWord = 0x6A87
	InsNotSupported      StatusWord = 0x6D00
	ClaNotSupported      StatusWord = 0x6E00
	BadState             StatusWord = 0xB007
	SignatureFail        StatusWord = 0xB008
	OK                   StatusWord = 0x9000
	InterruptedExecution StatusWord = 0xE000
)

func (sw StatusWord) String() string {
	switch sw {
	case Deny:
		return "denied by user"
	case IncorrectData:
		return "incorrect data"
	case NotSupported:
		return "not supported"
	case WrongP1P2:
		return "wrong p1/p2"
	case WrongDataLength:
		return "wrong data length"
	case InsNotSupported:
		return "ins not supported"
	case ClaNotSupported:
		return "cla not supported"
	case BadState:
		return "bad state"
	case SignatureFail:
		return "signature fail"
	case OK:
		return "ok"
	case InterruptedExecution:
		return "interrupted execution"
	default:
		return fmt.Sprintf("unknown status word %04x", uint16(sw))
	}
}

// knownStatusWord reports whether sw is one this client recognizes.
func knownStatusWord(sw uint16) bool {
	switch StatusWord(sw) {
	case Deny, IncorrectData, NotSupported, WrongP1P2, WrongDataLength,
		InsNotSupported, ClaNotSupported, BadState, SignatureFail, OK, InterruptedExecution:
		return true
	default:
		return false
	}
}

// Command is a single APDU request. Data must fit in a byte (Lc is a
// single byte in this framework), so callers chunk larger payloads ahead
// of time (e.g. via continuation APDUs).
type Command struct {
	Cla  Cla
	Ins  byte
	P1   byte
	P2   byte
	Data []byte
}

// NewCommand builds a Command with the given class and the
// protocol-version p2 (CurrentProtocolVersion).
func NewCommand(cla Cla, ins, p1 byte, data []byte) Command {
	return Command{Cla: cla, Ins: ins, P1: p1, P2: CurrentProtocolVersion, Data: data}
}

// Encode serializes the command to wire bytes: cla ins p1 p2 len data.
func (c Command) Encode() []byte {
	out := make([]byte, 5+len(c.Data))
	out[0] = byte(c.Cla)
	out[1] = c.Ins
	out[2] = c.P1
	out[3] = c.P2
	out[4] = byte(len(c.Data))
	copy(out[5:], c.Data)
	return out
}

// Response is a decoded APDU response: payload plus status word.
type Response struct {
	Data       []byte
	StatusWord StatusWord
}

// ErrResponseTooShort is returned when fewer than 2 bytes are available
// for the mandatory status-word trailer.
var ErrResponseTooShort = fmt.Errorf("apdu: response too short")

// ErrUnknownStatusWord is returned when the trailer doesn't match any
// status word this client recognizes.
var ErrUnknownStatusWord = fmt.Errorf("apdu: unknown status word")

// DecodeResponse splits raw into payload and status word, validating the
// status word is one this client knows about.
func DecodeResponse(raw []byte) (Response, error) {
	if len(raw) < 2 {
		return Response{}, ErrResponseTooShort
	}
	sw := binary.BigEndian.Uint16(raw[len(raw)-2:])
	if !knownStatusWord(sw) {
		return Response{}, fmt.Errorf("%w: %04x", ErrUnknownStatusWord, sw)
	}
	return Response{
		Data:       raw[:len(raw)-2],
		StatusWord: StatusWord(sw),
	}, nil
}
