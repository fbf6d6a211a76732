// Package transport defines the abstract I/O capabilities the runner needs
// to drive an interpreter: a physical device link, and an HTTP client for
// Jade's out-of-band PIN-server leg. Neither capability is implemented
// here — concrete USB/network transports are external collaborators,
// supplied by whatever embeds this library.
package transport

import "context"

// Device exchanges one request/reply pair with the hardware signer.
// Ledger and Jade ignore encrypted; Coldcard's HID transport uses it to
// set the last-frame report's encrypted flag bit.
type Device interface {
	Exchange(ctx context.Context, payload []byte, encrypted bool) ([]byte, error)
}

// HTTPClient performs the single POST Jade's PIN-server leg needs.
type HTTPClient interface {
	Request(ctx context.Context, url string, payload []byte) ([]byte, error)
}
