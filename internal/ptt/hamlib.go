package ptt

import (
	"fmt"

	"github.com/xylo04/goHamlib"
)

// Hamlib drives PTT through a rig-control backend, matching the
// teacher's PTT_METHOD_HAMLIB. This module only ever asserts/deasserts
// PTT through it; frequency and mode control belong to the station's
// separate radio-configuration tooling, not this TNC.
type Hamlib struct {
	rig *goHamlib.Rig
}

// OpenHamlib opens rig model modelID on the given device path (e.g. a
// serial or network rigctld endpoint) at baud bps.
func OpenHamlib(modelID int, device string, baud int) (*Hamlib, error) {
	rig := goHamlib.NewRig(modelID)
	rig.SetConf("rig_pathname", device)
	if baud > 0 {
		rig.SetConf("serial_speed", fmt.Sprintf("%d", baud))
	}
	if err := rig.Open(); err != nil {
		return nil, fmt.Errorf("ptt: open hamlib rig %d on %s: %w", modelID, device, err)
	}
	return &Hamlib{rig: rig}, nil
}

func (h *Hamlib) Assert(int) error {
	if err := h.rig.SetPTT(goHamlib.VFOCurrent, goHamlib.PTTOn); err != nil {
		return fmt.Errorf("ptt: hamlib assert: %w", err)
	}
	return nil
}

func (h *Hamlib) Deassert(int) error {
	if err := h.rig.SetPTT(goHamlib.VFOCurrent, goHamlib.PTTOff); err != nil {
		return fmt.Errorf("ptt: hamlib deassert: %w", err)
	}
	return nil
}

func (h *Hamlib) Close() error { return h.rig.Close() }
