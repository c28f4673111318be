package endpoint

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/pkg/term"
)

// Serial is a serial-port KISS endpoint, for TNCs wired to an actual
// RS-232/USB-serial device rather than a software client.
type Serial struct {
	t *term.Term
}

// OpenSerial opens device at baud bps in raw mode, matching the teacher's
// kissserial.go configuration.
func OpenSerial(device string, baud int) (*Serial, error) {
	t, err := term.Open(device, term.Speed(baud), term.RawMode)
	if err != nil {
		return nil, fmt.Errorf("endpoint: open serial %s: %w", device, err)
	}
	return &Serial{t: t}, nil
}

func (s *Serial) Read(b []byte) (int, error)  { return s.t.Read(b) }
func (s *Serial) Write(b []byte) (int, error) { return s.t.Write(b) }
func (s *Serial) Close() error                { return s.t.Close() }

// Logged wraps a Serial's open with a log line, split out so callers that
// don't want a dependency on the logger in this path still compile.
func OpenSerialLogged(device string, baud int, logger *log.Logger) (*Serial, error) {
	s, err := OpenSerial(device, baud)
	if err != nil {
		return nil, err
	}
	if logger != nil {
		logger.Info("KISS serial port opened", "device", device, "baud", baud)
	}
	return s, nil
}
