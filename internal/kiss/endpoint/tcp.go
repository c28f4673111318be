package endpoint

import (
	"fmt"
	"net"

	"github.com/charmbracelet/log"
)

// TCPListener accepts network KISS client connections, matching the
// teacher's kissnet.go TCP server (the common way applications like
// Xastir or APRS clients attach to a software TNC over the network).
type TCPListener struct {
	ln  net.Listener
	log *log.Logger
}

// ListenTCP starts listening on addr (e.g. ":8001", the conventional KISS
// network port).
func ListenTCP(addr string, logger *log.Logger) (*TCPListener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("endpoint: listen %s: %w", addr, err)
	}
	if logger != nil {
		logger.Info("KISS network TNC listening", "addr", addr)
	}
	return &TCPListener{ln: ln, log: logger}, nil
}

// Accept blocks for the next client connection, returning it as an
// Endpoint.
func (t *TCPListener) Accept() (Endpoint, error) {
	conn, err := t.ln.Accept()
	if err != nil {
		return nil, err
	}
	if t.log != nil {
		t.log.Info("KISS network client connected", "remote", conn.RemoteAddr())
	}
	return conn, nil
}

func (t *TCPListener) Close() error { return t.ln.Close() }
func (t *TCPListener) Addr() net.Addr { return t.ln.Addr() }
