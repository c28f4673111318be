// Package pktlog implements the received-frame CSV log (§3's "received-
// frame logging" supplement, grounded on the teacher's log.go): one row
// per decoded frame, written to a daily-rotating file named by a
// strftime-style pattern.
package pktlog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/lestrrat-go/strftime"

	"github.com/k4tnc/gotnc/internal/ax25"
)

// DefaultPattern names one log file per UTC day, matching the teacher's
// "2006-01-02.log" daily rotation.
const DefaultPattern = "%Y-%m-%d.log"

// Logger writes received frames as CSV rows into dir, rotating to a new
// file whenever the rendered pattern's name changes.
type Logger struct {
	dir      string
	pattern  *strftime.Strftime
	now      func() time.Time

	openName string
	file     *os.File
	writer   *csv.Writer
}

var header = []string{"chan", "utime", "isotime", "source", "destination", "digipeaters", "level", "info"}

// New builds a Logger writing into dir using the given strftime pattern
// (DefaultPattern if empty).
func New(dir, pattern string) (*Logger, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	f, err := strftime.New(pattern)
	if err != nil {
		return nil, fmt.Errorf("pktlog: parse pattern %q: %w", pattern, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("pktlog: create log dir: %w", err)
	}
	return &Logger{dir: dir, pattern: f, now: time.Now}, nil
}

// Record appends one row for a frame received on channel at level.
func (l *Logger) Record(channel int, f *ax25.Frame, level int) error {
	now := l.now()
	if err := l.rotateIfNeeded(now); err != nil {
		return err
	}

	digis := ""
	for i, d := range f.Digipeaters {
		if i > 0 {
			digis += ","
		}
		digis += d.String()
	}

	row := []string{
		strconv.Itoa(channel),
		strconv.FormatInt(now.Unix(), 10),
		now.UTC().Format("2006-01-02T15:04:05Z"),
		f.Source.String(),
		f.Destination.String(),
		digis,
		strconv.Itoa(level),
		string(f.Info),
	}
	if err := l.writer.Write(row); err != nil {
		return fmt.Errorf("pktlog: write row: %w", err)
	}
	l.writer.Flush()
	return l.writer.Error()
}

func (l *Logger) rotateIfNeeded(now time.Time) error {
	name := l.pattern.FormatString(now.UTC())
	if name == l.openName && l.file != nil {
		return nil
	}
	if l.file != nil {
		l.writer.Flush()
		l.file.Close()
	}

	full := filepath.Join(l.dir, name)
	exists := false
	if _, err := os.Stat(full); err == nil {
		exists = true
	}
	f, err := os.OpenFile(full, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("pktlog: open %s: %w", full, err)
	}
	l.file = f
	l.writer = csv.NewWriter(f)
	l.openName = name
	if !exists {
		if err := l.writer.Write(header); err != nil {
			return fmt.Errorf("pktlog: write header: %w", err)
		}
		l.writer.Flush()
	}
	return nil
}

// Close flushes and closes the currently open log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	l.writer.Flush()
	return l.file.Close()
}
