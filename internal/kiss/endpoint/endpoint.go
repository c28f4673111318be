// Package endpoint provides the byte-stream transports the KISS codec
// runs over: a pseudo-terminal for local client programs, a serial port
// for external TNCs/radios, and a TCP listener for network KISS clients
// (§4.9/§6).
package endpoint

import "io"

// Endpoint is a duplex byte stream carrying a raw KISS-framed octet
// stream, the common shape every transport in this package exposes.
type Endpoint interface {
	io.ReadWriteCloser
}
