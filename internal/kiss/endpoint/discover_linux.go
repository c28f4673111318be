//go:build linux

package endpoint

import (
	"fmt"

	"github.com/jochenvg/go-udev"
)

// DiscoverSerialDevices lists /dev/tty* device nodes currently enumerated
// under udev's "tty" subsystem, the Linux-specific counterpart to the
// teacher's cm108.go libudev device enumeration (there applied to sound
// cards for CM108 GPIO PTT, here to serial ports for KISS TNCs).
func DiscoverSerialDevices() ([]string, error) {
	u := udev.Udev{}
	enumerate := u.NewEnumerate()
	if err := enumerate.AddMatchSubsystem("tty"); err != nil {
		return nil, fmt.Errorf("endpoint: match subsystem: %w", err)
	}
	devices, err := enumerate.Devices()
	if err != nil {
		return nil, fmt.Errorf("endpoint: enumerate tty devices: %w", err)
	}

	var out []string
	for _, d := range devices {
		if node := d.Devnode(); node != "" {
			out = append(out, node)
		}
	}
	return out, nil
}
