package tncserver

import (
	"fmt"

	"github.com/k4tnc/gotnc/internal/ax25"
)

// parseUIRequest builds a UI frame from an AGW 'V' (explicit digipeater
// path) or 'M' (no digipeaters) transmit request. A 'V' body begins with
// a one-byte digipeater count followed by that many fixed 10-byte
// callsign fields; an 'M' body has none. In both cases the remainder of
// the body is the information field.
func parseUIRequest(h Header, body []byte) (*ax25.Frame, error) {
	source, err := parseAGWCall(h.CallFrom)
	if err != nil {
		return nil, fmt.Errorf("tncserver: from callsign: %w", err)
	}
	dest, err := parseAGWCall(h.CallTo)
	if err != nil {
		return nil, fmt.Errorf("tncserver: to callsign: %w", err)
	}

	var digis []ax25.Address
	info := body
	if h.DataKind == 'V' {
		if len(body) < 1 {
			return nil, fmt.Errorf("tncserver: V request missing digipeater count")
		}
		n := int(body[0])
		pos := 1
		for i := 0; i < n; i++ {
			if pos+10 > len(body) {
				return nil, fmt.Errorf("tncserver: V request truncated digipeater list")
			}
			call := decodeCall(body[pos : pos+10])
			a, err := parseAGWCall(call)
			if err != nil {
				return nil, fmt.Errorf("tncserver: digipeater %d: %w", i, err)
			}
			digis = append(digis, a)
			pos += 10
		}
		info = body[pos:]
	}

	return ax25.NewUI(source, dest, digis, info), nil
}

// parseAGWCall splits an AGW-style "CALL-SSID" string into an ax25.Address.
func parseAGWCall(s string) (ax25.Address, error) {
	call := s
	ssid := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '-' {
			call = s[:i]
			var n int
			if _, err := fmt.Sscanf(s[i+1:], "%d", &n); err != nil {
				return ax25.Address{}, fmt.Errorf("bad SSID in %q", s)
			}
			ssid = n
			break
		}
	}
	if call == "" {
		return ax25.Address{}, fmt.Errorf("empty callsign")
	}
	return ax25.Address{Call: call, SSID: ssid}, nil
}
