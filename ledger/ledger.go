// Package ledger implements the Interpreter for Ledger hardware wallets:
// APDU command construction over the Bitcoin app, the client-command-store
// hook for interrupted-execution continuations, and the state machine that
// drives a command from Start through Exchange to End.
package ledger

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/wizardsardine/bhwi/apdu"
	"github.com/wizardsardine/bhwi/common"
)

// ClientCommandStore answers the device's client-command requests that
// arrive embedded in an InterruptedExecution response (e.g. Merkle proof
// lookups during SignPSBT). bhwi ships no store implementation: building
// the wallet/PSBT-side Merkle tree is the caller's concern.
type ClientCommandStore interface {
	Execute(request []byte) ([]byte, error)
}

// ErrNoClientCommandStore is returned when a device interrupts execution
// to request client data but the interpreter was not given a store.
var ErrNoClientCommandStore = errors.New("ledger: device requested client command but no store was configured")

type noopStore struct{}

func (noopStore) Execute([]byte) ([]byte, error) { return nil, ErrNoClientCommandStore }

// stateKind is the three-state machine from the original bhwi crate:
// new -> running -> finished.
type stateKind int

const (
	stateNew stateKind = iota
	stateRunning
	stateFinished
)

type pendingCommand int

const (
	cmdNone pendingCommand = iota
	cmdUnlock
	cmdGetMasterFingerprint
	cmdGetXpub
)

// Interpreter is the Ledger Interpreter. The zero value is not usable;
// construct with New.
type Interpreter struct {
	store ClientCommandStore

	kind    stateKind
	pending pendingCommand
	path    common.DerivationPath

	response common.Response
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithClientCommandStore installs the store used to answer interrupted
// execution requests (Merkle proofs, preimages). Without one, any command
// that interrupts fails with ErrNoClientCommandStore.
func WithClientCommandStore(store ClientCommandStore) Option {
	return func(i *Interpreter) { i.store = store }
}

// New returns a fresh Ledger Interpreter.
func New(opts ...Option) *Interpreter {
	i := &Interpreter{store: noopStore{}, kind: stateNew}
	for _, o := range opts {
		o(i)
	}
	return i
}

// Start begins a command, producing the first outbound APDU.
func (i *Interpreter) Start(command common.Command) (common.Transmit, error) {
	if i.kind != stateNew {
		return common.Transmit{}, ledgerError(ErrBadState, "interpreter already started")
	}

	var cmd apdu.Command
	switch c := command.(type) {
	case common.Unlock:
		i.pending = cmdUnlock
		cmd = openApp(c.Network)
	case common.GetMasterFingerprint:
		i.pending = cmdGetMasterFingerprint
		cmd = getMasterFingerprint()
	case common.GetXpub:
		i.pending = cmdGetXpub
		i.path = c.Path
		cmd = getExtendedPubkey(c.Path, c.Display)
	default:
		return common.Transmit{}, ledgerError(ErrMissingCommandInfo, fmt.Sprintf("unsupported command %T", command))
	}

	i.kind = stateRunning
	return common.Transmit{Recipient: common.Device{}, Payload: cmd.Encode()}, nil
}

// Exchange consumes one APDU reply.
func (i *Interpreter) Exchange(reply []byte) (*common.Transmit, error) {
	if i.kind != stateRunning {
		return nil, nil
	}

	res, err := apdu.DecodeResponse(reply)
	if err != nil {
		return nil, ledgerError(ErrSerialization, err.Error())
	}

	if res.StatusWord == apdu.InterruptedExecution {
		answer, err := i.store.Execute(res.Data)
		if err != nil {
			return nil, common.WrapError("client command store", err)
		}
		next := continueInterrupted(answer)
		return &common.Transmit{Recipient: common.Device{}, Payload: next.Encode()}, nil
	}

	// Opening the Bitcoin app when it is already the running app answers
	// ClaNotSupported rather than OK; Unlock treats that as success too.
	if i.pending == cmdUnlock && res.StatusWord == apdu.ClaNotSupported {
		i.response = common.TaskDone{}
		i.kind = stateFinished
		return nil, nil
	}

	if res.StatusWord != apdu.OK {
		return nil, ledgerError(ErrUnexpectedResult, res.StatusWord.String())
	}

	switch i.pending {
	case cmdUnlock:
		i.response = common.TaskDone{}
	case cmdGetMasterFingerprint:
		if len(res.Data) < 4 {
			return nil, ledgerError(ErrUnexpectedResult, "master fingerprint response too short")
		}
		var fp common.Fingerprint
		copy(fp[:], res.Data[:4])
		i.response = common.MasterFingerprint{Fingerprint: fp}
	case cmdGetXpub:
		i.response = common.Xpub{Xpub: string(res.Data)}
	default:
		return nil, ledgerError(ErrUnexpectedResult, "no pending command")
	}

	i.kind = stateFinished
	return nil, nil
}

// End extracts the terminal response.
func (i *Interpreter) End() (common.Response, error) {
	if i.kind != stateFinished {
		return nil, ledgerError(ErrNoErrorOrResult, "")
	}
	return i.response, nil
}

// Error kinds specific to the Ledger domain error mapping. These translate
// 1:1 onto common.ErrorKind; they exist only to give ledgerError call
// sites a readable name.
const (
	ErrNoErrorOrResult    = common.ErrNoErrorOrResult
	ErrMissingCommandInfo = common.ErrMissingCommandInfo
	ErrEncryption         = common.ErrEncryption
	ErrSerialization      = common.ErrSerialization
	ErrUnexpectedResult   = common.ErrUnexpectedResult
	ErrBadState           = common.ErrUnexpectedResult
)

func ledgerError(kind common.ErrorKind, detail string) *common.Error {
	return common.NewError(kind, detail)
}

// --- APDU command builders, ported from the Bitcoin app command set. ---

func openApp(network common.Network) apdu.Command {
	name := "Bitcoin"
	if network != common.Bitcoin {
		name = "Bitcoin Test"
	}
	return apdu.Command{Cla: 0xe0, Ins: 0xd8, P1: 0x00, P2: 0x00, Data: []byte(name)}
}

func getMasterFingerprint() apdu.Command {
	return apdu.NewCommand(apdu.ClaBitcoin, byte(apdu.InsGetMasterFingerprint), 0x00, nil)
}

func getExtendedPubkey(path common.DerivationPath, display bool) apdu.Command {
	data := make([]byte, 0, 2+4*len(path))
	if display {
		data = append(data, 1)
	} else {
		data = append(data, 0)
	}
	data = append(data, byte(len(path)))
	for _, child := range path {
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], child)
		data = append(data, b[:]...)
	}
	return apdu.NewCommand(apdu.ClaBitcoin, byte(apdu.InsGetExtendedPubkey), 0x00, data)
}

func continueInterrupted(data []byte) apdu.Command {
	return apdu.NewCommand(apdu.ClaFramework, byte(apdu.InsContinueInterrupted), 0x00, data)
}
