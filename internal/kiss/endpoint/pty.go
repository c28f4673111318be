//go:build linux || darwin

package endpoint

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/creack/pty"
)

// PTY is a Linux/macOS pseudo-terminal KISS endpoint: client applications
// (e.g. APRS clients) open the slave side as if it were a serial TNC,
// matching the teacher's kiss.go pseudo-terminal mode.
type PTY struct {
	master *os.File
	slave  *os.File
	log    *log.Logger
}

// OpenPTY allocates a new pty pair and, if symlinkPath is non-empty,
// creates (replacing any stale) symlink to the slave device name at that
// path so client configuration can use a fixed path.
func OpenPTY(symlinkPath string, logger *log.Logger) (*PTY, error) {
	master, slave, err := pty.Open()
	if err != nil {
		return nil, fmt.Errorf("endpoint: open pty: %w", err)
	}

	if symlinkPath != "" {
		_ = os.Remove(symlinkPath)
		if err := os.Symlink(slave.Name(), symlinkPath); err != nil {
			master.Close()
			slave.Close()
			return nil, fmt.Errorf("endpoint: symlink pty: %w", err)
		}
	}

	if logger != nil {
		logger.Info("KISS pseudo-terminal ready", "device", slave.Name(), "symlink", symlinkPath)
	}
	return &PTY{master: master, slave: slave, log: logger}, nil
}

// Name returns the slave device path client applications should open.
func (p *PTY) Name() string { return p.slave.Name() }

func (p *PTY) Read(b []byte) (int, error)  { return p.master.Read(b) }
func (p *PTY) Write(b []byte) (int, error) { return p.master.Write(b) }

func (p *PTY) Close() error {
	err1 := p.master.Close()
	err2 := p.slave.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
