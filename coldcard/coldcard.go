// Package coldcard implements the Interpreter for Coldcard hardware
// wallets: the ephemeral-ECDH encryption handshake, the text-based
// request/response wire codec, and the HID chunker with Coldcard's
// length-and-flag framing.
package coldcard

import (
	"fmt"

	"github.com/wizardsardine/bhwi/common"
)

type stateKind int

const (
	stateNew stateKind = iota
	stateRunning
	stateFinished
)

type pendingCommand int

const (
	cmdNone pendingCommand = iota
	cmdStartEncryption
	cmdGetMasterFingerprint
	cmdGetXpub
)

// Interpreter is the Coldcard Interpreter. Engine may be nil, in which
// case requests are sent in the clear — this is only valid before the
// encryption handshake (Unlock) has completed. A device façade is
// expected to hold the Engine across commands and hand the same one to
// every Interpreter it creates, promoting it to Ready from the Unlock
// response.
type Interpreter struct {
	engine *Engine

	kind     stateKind
	pending  pendingCommand
	response common.Response
}

// New returns a fresh Coldcard Interpreter bound to engine (which may be
// nil for devices that haven't started their encryption handshake yet).
func New(engine *Engine) *Interpreter {
	return &Interpreter{engine: engine, kind: stateNew}
}

// Start begins a command, producing the first outbound request.
func (i *Interpreter) Start(command common.Command) (common.Transmit, error) {
	if i.kind != stateNew {
		return common.Transmit{}, common.NewError(common.ErrUnexpectedResult, "interpreter already started")
	}

	var payload []byte
	switch c := command.(type) {
	case common.Unlock:
		if i.engine == nil {
			return common.Transmit{}, common.NewError(common.ErrMissingCommandInfo, "no encryption engine configured")
		}
		i.pending = cmdStartEncryption
		pub := i.engine.PubKey()
		payload = buildStartEncryption(1, pub)
	case common.GetMasterFingerprint:
		i.pending = cmdGetMasterFingerprint
		payload = buildGetXpub(nil)
	case common.GetXpub:
		i.pending = cmdGetXpub
		payload = buildGetXpub(c.Path)
	default:
		return common.Transmit{}, common.NewError(common.ErrMissingCommandInfo, fmt.Sprintf("unsupported command %T", command))
	}

	transmit, err := i.wrap(payload)
	if err != nil {
		return common.Transmit{}, err
	}
	i.kind = stateRunning
	return transmit, nil
}

// wrap encrypts payload if the engine is ready, and marks the transmit
// accordingly. The handshake request itself is never encrypted, matching
// Exchange, which never decrypts the handshake reply.
func (i *Interpreter) wrap(payload []byte) (common.Transmit, error) {
	if i.pending != cmdStartEncryption && i.engine != nil && i.engine.IsReady() {
		encrypted, err := i.engine.Encrypt(payload)
		if err != nil {
			return common.Transmit{}, common.NewError(common.ErrEncryption, err.Error())
		}
		return common.Transmit{Recipient: common.Device{}, Payload: encrypted, Encrypted: true}, nil
	}
	return common.Transmit{Recipient: common.Device{}, Payload: payload, Encrypted: false}, nil
}

// Exchange consumes one reply.
func (i *Interpreter) Exchange(reply []byte) (*common.Transmit, error) {
	if i.kind != stateRunning {
		return nil, nil
	}

	data := reply
	if i.pending != cmdStartEncryption && i.engine != nil && i.engine.IsReady() {
		decrypted, err := i.engine.Decrypt(reply)
		if err != nil {
			return nil, common.NewError(common.ErrEncryption, err.Error())
		}
		data = decrypted
	}

	switch i.pending {
	case cmdStartEncryption:
		mypub, err := parseMyPubResponse(data)
		if err != nil {
			return nil, common.NewError(common.ErrSerialization, err.Error())
		}
		i.response = common.EncryptionKey{
			Key:         mypub.encryptionKey,
			Fingerprint: mypub.xpubFingerprint,
			Xpub:        mypub.xpub,
			HasXpub:     mypub.hasXpub,
		}
	case cmdGetMasterFingerprint:
		xpub, err := parseXpubResponse(data)
		if err != nil {
			return nil, common.NewError(common.ErrSerialization, err.Error())
		}
		fp, err := common.FingerprintFromXpub(xpub)
		if err != nil {
			return nil, common.NewError(common.ErrSerialization, err.Error())
		}
		i.response = common.MasterFingerprint{Fingerprint: fp}
	case cmdGetXpub:
		xpub, err := parseXpubResponse(data)
		if err != nil {
			return nil, common.NewError(common.ErrSerialization, err.Error())
		}
		i.response = common.Xpub{Xpub: xpub}
	default:
		return nil, common.NewError(common.ErrUnexpectedResult, "no pending command")
	}

	i.kind = stateFinished
	return nil, nil
}

// End extracts the terminal response.
func (i *Interpreter) End() (common.Response, error) {
	if i.kind != stateFinished {
		return nil, common.NewError(common.ErrNoErrorOrResult, "")
	}
	return i.response, nil
}
