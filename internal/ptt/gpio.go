//go:build linux

package ptt

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// GPIO drives a PTT line through a Linux GPIO character device, the
// modern (libgpiod-based) equivalent of the teacher's
// PTT_METHOD_GPIOD backend.
type GPIO struct {
	line    *gpiocdev.Line
	inverted bool
}

// OpenGPIO requests chip/line as an output, initially deasserted.
// inverted swaps the asserted/deasserted signal levels for hardware that
// keys on a logic-low PTT line.
func OpenGPIO(chip string, line int, inverted bool) (*GPIO, error) {
	initial := 0
	if inverted {
		initial = 1
	}
	l, err := gpiocdev.RequestLine(chip, line, gpiocdev.AsOutput(initial))
	if err != nil {
		return nil, fmt.Errorf("ptt: request gpio %s:%d: %w", chip, line, err)
	}
	return &GPIO{line: l, inverted: inverted}, nil
}

func (g *GPIO) level(asserted bool) int {
	if asserted != g.inverted {
		return 1
	}
	return 0
}

func (g *GPIO) Assert(int) error   { return g.line.SetValue(g.level(true)) }
func (g *GPIO) Deassert(int) error { return g.line.SetValue(g.level(false)) }
func (g *GPIO) Close() error       { return g.line.Close() }
