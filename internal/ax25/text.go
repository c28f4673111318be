package ax25

import (
	"fmt"
	"strings"
)

// Format renders the frame in TNC-2 monitor format:
// SRC>DEST[,DIGI1[*],DIGI2,...]:INFO
// The '*' marks the digipeater address just before the first unused one —
// the station we are hearing this copy of the packet from, if any
// digipeater has relayed it.
func (f *Frame) Format() string {
	var b strings.Builder
	b.WriteString(f.Source.String())
	b.WriteByte('>')
	b.WriteString(f.Destination.String())

	markIdx := -1
	if unused := f.FirstUnusedDigipeater(); unused > 0 {
		markIdx = unused - 1
	} else if unused == -1 && len(f.Digipeaters) > 0 {
		markIdx = len(f.Digipeaters) - 1
	}

	for i, d := range f.Digipeaters {
		b.WriteByte(',')
		b.WriteString(d.String())
		if i == markIdx {
			b.WriteByte('*')
		}
	}
	b.WriteByte(':')
	b.Write(f.Info)
	return b.String()
}

// ParseText parses TNC-2 monitor format into a Frame. Only UI frames are
// representable in this text form, matching APRS usage; the resulting
// frame always carries Control=ControlUI and PID=PIDNone3.
func ParseText(text string) (*Frame, error) {
	head, info, ok := strings.Cut(text, ":")
	if !ok {
		return nil, fmt.Errorf("ax25: no ':' separating path from info in %q", text)
	}

	srcText, rest, ok := strings.Cut(head, ">")
	if !ok {
		return nil, fmt.Errorf("ax25: no source address in %q", text)
	}
	source, err := parseAddress(srcText)
	if err != nil {
		return nil, err
	}

	parts := strings.Split(rest, ",")
	if len(parts) == 0 || parts[0] == "" {
		return nil, fmt.Errorf("ax25: no destination address in %q", text)
	}
	destination, err := parseAddress(parts[0])
	if err != nil {
		return nil, err
	}

	var digis []Address
	for _, p := range parts[1:] {
		used := strings.HasSuffix(p, "*")
		p = strings.TrimSuffix(p, "*")
		d, err := parseAddress(p)
		if err != nil {
			return nil, err
		}
		d.Used = used
		digis = append(digis, d)
		if len(digis) > maxDigis {
			return nil, fmt.Errorf("ax25: too many digipeaters in %q", text)
		}
	}
	// Every digipeater at or before the marked one is implicitly used.
	markIdx := -1
	for i, d := range digis {
		if d.Used {
			markIdx = i
		}
	}
	for i := 0; i <= markIdx; i++ {
		digis[i].Used = true
	}

	return &Frame{
		Destination: destination,
		Source:      source,
		Digipeaters: digis,
		Control:     ControlUI,
		HasPID:      true,
		PID:         PIDNone3,
		Info:        []byte(info),
	}, nil
}
