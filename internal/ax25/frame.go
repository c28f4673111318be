package ax25

import "fmt"

// Control field values this package builds and recognizes directly. AX.25
// connected-mode I/S-frame sequence numbering is out of scope (spec.md
// Non-goals); other control octets round-trip through Frame.Control
// unexamined.
const (
	ControlUI = 0x03 // Unnumbered Information
	PIDNone3  = 0xF0 // "no layer 3"
)

// Frame is the parsed, CRC-less on-air representation of one AX.25 packet:
// destination, source, zero-or-more digipeater addresses, a control octet,
// an optional PID, and an information field. It is a plain value type;
// once handed to the transmit queue it is treated as immutable, and any
// mutation (e.g. marking a digipeater used) produces a new Frame rather
// than mutating a shared one.
type Frame struct {
	Destination Address
	Source      Address
	Digipeaters []Address
	Control     byte
	HasPID      bool
	PID         byte
	Info        []byte

	// Level is the decoded signal quality/level reported by the
	// demodulator that produced this frame; zero for locally built frames.
	Level int
}

// hasPID reports whether control indicates an I or UI frame, which carry a
// PID octet before the information field.
func hasPID(control byte) bool {
	if control&0x01 == 0 {
		return true // I frame
	}
	return control&0xEF == ControlUI // UI, ignoring the poll/final bit
}

// NewUI builds a UI frame (APRS-style) with the given path and info.
func NewUI(source, destination Address, digis []Address, info []byte) *Frame {
	return &Frame{
		Destination: destination,
		Source:      source,
		Digipeaters: append([]Address(nil), digis...),
		Control:     ControlUI,
		HasPID:      true,
		PID:         PIDNone3,
		Info:        append([]byte(nil), info...),
	}
}

// NumAddrs returns the number of addresses (2 + len(Digipeaters)) in the
// path, as used for frame-length bookkeeping.
func (f *Frame) NumAddrs() int { return 2 + len(f.Digipeaters) }

// DecodeBytes parses the unescaped, CRC-less on-air byte layout of a
// frame: a run of 7-octet addresses terminated by the last-address bit,
// a control octet, an optional PID, and the information field running to
// the end of buf.
func DecodeBytes(buf []byte) (*Frame, error) {
	if len(buf) < 2*addrLen+1 {
		return nil, fmt.Errorf("ax25: frame too short (%d bytes)", len(buf))
	}

	var addrs []Address
	pos := 0
	for {
		if pos+addrLen > len(buf) {
			return nil, fmt.Errorf("ax25: truncated address field")
		}
		if len(addrs) >= maxAddrs {
			return nil, fmt.Errorf("ax25: too many addresses (no last-address bit found)")
		}
		a, last := decodeAddress(buf[pos : pos+addrLen])
		addrs = append(addrs, a)
		pos += addrLen
		if last {
			break
		}
	}
	if len(addrs) < 2 {
		return nil, fmt.Errorf("ax25: fewer than 2 addresses")
	}

	if pos >= len(buf) {
		return nil, fmt.Errorf("ax25: missing control octet")
	}
	control := buf[pos]
	pos++

	var digis []Address // nil when there are none, as NewUI and ParseText build it
	if len(addrs) > 2 {
		digis = addrs[2:]
	}
	f := &Frame{
		Destination: addrs[0],
		Source:      addrs[1],
		Digipeaters: digis,
		Control:     control,
	}

	if hasPID(control) {
		if pos >= len(buf) {
			return nil, fmt.Errorf("ax25: missing PID octet")
		}
		f.HasPID = true
		f.PID = buf[pos]
		pos++
	}

	f.Info = append([]byte(nil), buf[pos:]...)
	return f, nil
}

// EncodeBytes serializes the frame to its unescaped, CRC-less on-air byte
// layout. DecodeBytes(EncodeBytes(f)) reproduces f exactly for any frame
// this package can build or decode.
func (f *Frame) EncodeBytes() []byte {
	n := f.NumAddrs()
	size := n*addrLen + 1 + len(f.Info)
	if f.HasPID {
		size++
	}
	out := make([]byte, size)

	f.Destination.encode(out[0:addrLen], false) // the source address always follows
	pos := addrLen
	f.Source.encode(out[pos:pos+addrLen], len(f.Digipeaters) == 0)
	pos += addrLen
	for i, d := range f.Digipeaters {
		d.encode(out[pos:pos+addrLen], i == len(f.Digipeaters)-1)
		pos += addrLen
	}

	out[pos] = f.Control
	pos++
	if f.HasPID {
		out[pos] = f.PID
		pos++
	}
	copy(out[pos:], f.Info)
	return out
}

// FirstUnusedDigipeater returns the index into Digipeaters of the lowest
// indexed address whose has-been-repeated bit is clear, or -1 if there is
// none (all repeaters used, or no repeaters at all).
func (f *Frame) FirstUnusedDigipeater() int {
	for i, d := range f.Digipeaters {
		if !d.Used {
			return i
		}
	}
	return -1
}

// WithDigipeaterUsed returns a copy of f with Digipeaters[i] marked used
// (has-been-repeated). The frame is treated as immutable once enqueued, so
// digipeating produces a new Frame rather than mutating the original.
func (f *Frame) WithDigipeaterUsed(i int) *Frame {
	cp := *f
	cp.Digipeaters = append([]Address(nil), f.Digipeaters...)
	cp.Digipeaters[i].Used = true
	cp.Info = append([]byte(nil), f.Info...)
	return &cp
}

// WithDigipeater returns a copy of f with Digipeaters[i] replaced
// entirely (used for rewriting a WIDEn-N alias's hop count).
func (f *Frame) WithDigipeater(i int, a Address) *Frame {
	cp := *f
	cp.Digipeaters = append([]Address(nil), f.Digipeaters...)
	cp.Digipeaters[i] = a
	cp.Info = append([]byte(nil), f.Info...)
	return &cp
}
