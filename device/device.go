// Package device binds a transport (and, for Jade, an HTTP client; for
// Coldcard, a crypto engine) to the matching interpreter, and exposes the façade
// contract the runner drives: an Interpreter factory plus an OnUnlock hook
// called after Unlock completes so a device gets a chance to mutate its
// own state (only Coldcard's does).
package device

import (
	"github.com/wizardsardine/bhwi/coldcard"
	"github.com/wizardsardine/bhwi/common"
	"github.com/wizardsardine/bhwi/jade"
	"github.com/wizardsardine/bhwi/ledger"
	"github.com/wizardsardine/bhwi/transport"
)

// Facade is what the runner needs from a device: its transport
// capabilities and a freshly constructed Interpreter for the next command,
// plus a hook to react to a completed Unlock.
type Facade interface {
	Components() (transport.Device, transport.HTTPClient, common.Interpreter)
	OnUnlock(response common.Response) error
}

// Ledger binds a transport.Device to a fresh ledger.Interpreter per
// command. It has no unlock-time state to mutate.
type Ledger struct {
	Transport transport.Device
	Store     ledger.ClientCommandStore
}

// NewLedger returns a Ledger façade. store may be nil.
func NewLedger(t transport.Device, store ledger.ClientCommandStore) *Ledger {
	return &Ledger{Transport: t, Store: store}
}

func (l *Ledger) Components() (transport.Device, transport.HTTPClient, common.Interpreter) {
	var opts []ledger.Option
	if l.Store != nil {
		opts = append(opts, ledger.WithClientCommandStore(l.Store))
	}
	return l.Transport, nil, ledger.New(opts...)
}

func (l *Ledger) OnUnlock(common.Response) error { return nil }

// Coldcard binds a transport.Device and an encryption engine that persists
// across commands within a session. OnUnlock is the only place allowed to
// promote the engine from New to Ready.
type Coldcard struct {
	Transport transport.Device
	Engine    *coldcard.Engine
}

// NewColdcard returns a Coldcard façade with a freshly generated ephemeral
// keypair.
func NewColdcard(t transport.Device) (*Coldcard, error) {
	engine, err := coldcard.NewEngine()
	if err != nil {
		return nil, err
	}
	return &Coldcard{Transport: t, Engine: engine}, nil
}

func (c *Coldcard) Components() (transport.Device, transport.HTTPClient, common.Interpreter) {
	return c.Transport, nil, coldcard.New(c.Engine)
}

func (c *Coldcard) OnUnlock(response common.Response) error {
	key, ok := response.(common.EncryptionKey)
	if !ok {
		return nil
	}
	return c.Engine.Ready(key.Key)
}

// Jade binds a transport.Device and the HTTP client used for the
// PIN-server leg. network is not derived from Unlock — Jade's Unlock
// response (common.TaskDone) carries no network — so callers must set it
// explicitly via SetNetwork before driving any command whose interpreter
// needs it (get_xpub needs network on every call, not only during auth).
type Jade struct {
	Transport  transport.Device
	HTTPClient transport.HTTPClient
	Counter    jade.Counter

	network common.Network
}

// NewJade returns a Jade façade defaulting to common.Bitcoin until
// SetNetwork is called.
func NewJade(t transport.Device, http transport.HTTPClient, counter jade.Counter) *Jade {
	return &Jade{Transport: t, HTTPClient: http, Counter: counter, network: common.Bitcoin}
}

func (j *Jade) Components() (transport.Device, transport.HTTPClient, common.Interpreter) {
	return j.Transport, j.HTTPClient, jade.New(j.network, j.Counter)
}

// OnUnlock is a no-op for Jade: Unlock's response carries no network, so
// there is nothing to extract here. Call SetNetwork before Unlock instead.
func (j *Jade) OnUnlock(response common.Response) error {
	return nil
}

// SetNetwork sets the network used to construct the next Interpreter
// Components returns. Callers (the CLI's facade.go included) call this
// once, from their own configured network, before driving any command
// through this façade.
func (j *Jade) SetNetwork(network common.Network) {
	j.network = network
}
