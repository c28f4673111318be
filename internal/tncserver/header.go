package tncserver

import (
	"encoding/binary"
	"fmt"
)

// HeaderLen is the fixed AGW-style header size preceding every message,
// per §4.10.
const HeaderLen = 36

// Header is the decoded form of the 36-octet message header: port
// (channel), a one-letter "datakind" selecting the request/response
// shape, an optional PID, the from/to callsigns (fixed 10-byte fields),
// and the length of the payload that follows.
type Header struct {
	Port         byte
	DataKind     byte
	PID          byte
	CallFrom     string
	CallTo       string
	DataLen      int32
	UserReserved int32
}

// DecodeHeader parses a 36-byte wire header. Integer fields are
// little-endian on the wire regardless of host byte order.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) != HeaderLen {
		return Header{}, fmt.Errorf("tncserver: header must be %d bytes, got %d", HeaderLen, len(b))
	}
	return Header{
		Port:         b[0],
		DataKind:     b[4],
		PID:          b[6],
		CallFrom:     decodeCall(b[8:18]),
		CallTo:       decodeCall(b[18:28]),
		DataLen:      int32(binary.LittleEndian.Uint32(b[28:32])),
		UserReserved: int32(binary.LittleEndian.Uint32(b[32:36])),
	}, nil
}

// Encode serializes h back to its 36-byte wire form.
func (h Header) Encode() []byte {
	out := make([]byte, HeaderLen)
	out[0] = h.Port
	out[4] = h.DataKind
	out[6] = h.PID
	encodeCall(out[8:18], h.CallFrom)
	encodeCall(out[18:28], h.CallTo)
	binary.LittleEndian.PutUint32(out[28:32], uint32(h.DataLen))
	binary.LittleEndian.PutUint32(out[32:36], uint32(h.UserReserved))
	return out
}

func decodeCall(b []byte) string {
	n := 0
	for n < len(b) && b[n] != 0 {
		n++
	}
	return string(b[:n])
}

func encodeCall(dst []byte, call string) {
	for i := range dst {
		dst[i] = 0
	}
	copy(dst, call)
}
