// Package ptt implements the push-to-talk key/unkey abstraction: one
// Driver per channel, selected by configuration, matching the teacher's
// ptt.go per-channel ptt_method dispatch (PTT_METHOD_GPIO,
// PTT_METHOD_HAMLIB, etc.) but reduced to the backends this module
// actually wires: GPIO (warthog618/go-gpiocdev) and rig-control hamlib
// (xylo04/goHamlib). Serial-line (RTS/DTR) and parallel-port methods are
// out of scope for this rework; VOX (no PTT control at all) is the
// default no-op driver.
package ptt

// Driver keys and unkeys a single PTT line.
type Driver interface {
	Assert(channel int) error
	Deassert(channel int) error
	Close() error
}

// None is the VOX/no-PTT-hardware driver: the radio keys off detected
// audio, so these calls are no-ops.
type None struct{}

func (None) Assert(int) error   { return nil }
func (None) Deassert(int) error { return nil }
func (None) Close() error       { return nil }

// Multi dispatches to a per-channel Driver, falling back to None for any
// channel without one configured, matching the teacher's per-channel PTT
// configuration.
type Multi struct {
	byChannel map[int]Driver
}

// NewMulti builds a Multi with no channels configured.
func NewMulti() *Multi {
	return &Multi{byChannel: make(map[int]Driver)}
}

// Set assigns driver as the PTT backend for channel.
func (m *Multi) Set(channel int, driver Driver) {
	m.byChannel[channel] = driver
}

func (m *Multi) driverFor(channel int) Driver {
	if d, ok := m.byChannel[channel]; ok {
		return d
	}
	return None{}
}

func (m *Multi) Assert(channel int) error   { return m.driverFor(channel).Assert(channel) }
func (m *Multi) Deassert(channel int) error { return m.driverFor(channel).Deassert(channel) }

// Close closes every configured driver, returning the first error
// encountered (after attempting to close the rest).
func (m *Multi) Close() error {
	var first error
	for _, d := range m.byChannel {
		if err := d.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
