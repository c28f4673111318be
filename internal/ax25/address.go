// Package ax25 implements the AX.25 frame object: a path of addresses, a
// control/PID octet pair, and an information payload, with serializers to
// and from the on-air byte layout and the SRC>DEST,DIGI... text format.
package ax25

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	addrLen     = 7  // on-air octets per address
	maxAddrs    = 10 // destination + source + up to 8 digipeaters
	maxDigis    = maxAddrs - 2
	maxCallLen  = 6
	ssidLastBit = 0x01 // set on the final address octet of the path
	ssidHBit    = 0x80 // has-been-repeated (digi) / command bit (src/dst)
	ssidRRBits  = 0x60 // reserved bits, conventionally both 1
)

// Address is one callsign-SSID pair in an AX.25 path.
type Address struct {
	Call string // up to 6 upper-case letters/digits, no padding
	SSID int    // 0-15
	// Used marks "has-been-repeated" for a digipeater address, or the C/R
	// command bit for the destination/source address. Callers that only
	// care about the path text shouldn't need to touch this directly;
	// Frame.WithDigipeaterUsed() and Frame.WithDigipeater() manage it for
	// digipeating.
	Used bool
}

// String renders CALL-SSID, omitting the SSID when it is zero.
func (a Address) String() string {
	if a.SSID == 0 {
		return a.Call
	}
	return fmt.Sprintf("%s-%d", a.Call, a.SSID)
}

func parseAddress(text string) (Address, error) {
	call, ssidStr, hasSSID := strings.Cut(text, "-")
	call = strings.ToUpper(strings.TrimSpace(call))
	if call == "" || len(call) > maxCallLen {
		return Address{}, fmt.Errorf("ax25: invalid callsign %q", text)
	}
	for _, r := range call {
		if !(r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return Address{}, fmt.Errorf("ax25: invalid callsign character in %q", text)
		}
	}
	ssid := 0
	if hasSSID {
		n, err := strconv.Atoi(ssidStr)
		if err != nil || n < 0 || n > 15 {
			return Address{}, fmt.Errorf("ax25: invalid SSID in %q", text)
		}
		ssid = n
	}
	return Address{Call: call, SSID: ssid}, nil
}

// encode writes the 7-octet on-air representation of a into out, setting
// the last-address bit when last is true. The H/C bit (Used) is applied
// as-is; callers set it before encoding.
func (a Address) encode(out []byte, last bool) {
	var call [maxCallLen]byte
	for i := range call {
		call[i] = ' '
	}
	copy(call[:], a.Call)
	for i := 0; i < maxCallLen; i++ {
		out[i] = call[i] << 1
	}
	b := byte(a.SSID<<1) | ssidRRBits
	if a.Used {
		b |= ssidHBit
	}
	if last {
		b |= ssidLastBit
	}
	out[6] = b
}

func decodeAddress(in []byte) (a Address, last bool) {
	var call [maxCallLen]byte
	for i := 0; i < maxCallLen; i++ {
		call[i] = in[i] >> 1
	}
	a.Call = strings.TrimRight(string(call[:]), " ")
	b := in[6]
	a.SSID = int((b >> 1) & 0x0F)
	a.Used = b&ssidHBit != 0
	last = b&ssidLastBit != 0
	return a, last
}
