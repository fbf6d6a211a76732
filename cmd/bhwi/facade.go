package bhwi

import (
	"fmt"

	"github.com/wizardsardine/bhwi/device"
	"github.com/wizardsardine/bhwi/jade"
	"github.com/wizardsardine/bhwi/transport"
)

// ErrNoTransport is returned by newDeviceTransport: this repository
// implements the interpreter core only (spec's non-goals explicitly
// exclude USB/serial transports and device enumeration). An embedding
// application wires a real transport.Device in and constructs the device
// façade directly; the CLI subcommands exist to exercise and document
// that wiring, not to replace it.
var ErrNoTransport = fmt.Errorf("bhwi: no physical transport is built into this CLI; embed transport.Device yourself")

func newDeviceTransport(string) (transport.Device, error) {
	return nil, ErrNoTransport
}

func newFacade(name string) (device.Facade, error) {
	t, err := newDeviceTransport(name)
	if err != nil {
		return nil, err
	}

	switch name {
	case "ledger":
		return device.NewLedger(t, nil), nil
	case "coldcard":
		return device.NewColdcard(t)
	case "jade":
		facade := device.NewJade(t, &pinServerHTTPClient{}, jade.DefaultCounter)
		if network, err := parseNetwork(cfg.Network); err == nil {
			facade.SetNetwork(network)
		}
		return facade, nil
	default:
		return nil, fmt.Errorf("bhwi: unknown device %q", name)
	}
}
