package hdlc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func decodeOne(t interface {
	Helper()
	require.TestingT
}, payload []byte) []byte {
	t.Helper()
	bits := EncodeFrame(payload)

	var got [][]byte
	rx := NewReceiver(func(buf []byte) {
		got = append(got, append([]byte(nil), buf...))
	})
	for _, b := range bits {
		rx.PushBit(b)
	}
	// A trailing flag alone, with nothing collected since, shouldn't emit.
	require.Len(t, got, 1, "expected exactly one decoded frame")
	return got[0]
}

func TestHDLCRoundTrip(t *testing.T) {
	for _, payload := range [][]byte{
		[]byte("hi"),
		[]byte{0x7E, 0x7E, 0x7E}, // flag byte values inside the payload, must survive stuffing
		[]byte{0xFF, 0xFF, 0xFF, 0xFF},
		make([]byte, 256),
	} {
		got := decodeOne(t, payload)
		assert.Equal(t, payload, got)
	}
}

func TestHDLCNoUnstuffedOnesRunInEncoding(t *testing.T) {
	bits := EncodeFrame([]byte{0xFF, 0xFF, 0xFF})
	// Interior bits (excluding the two flag octets at each end) must never
	// contain 6 consecutive 1 bits.
	interior := bits[8 : len(bits)-8]
	run := 0
	for _, b := range interior {
		if b == 1 {
			run++
			assert.Less(t, run, 6)
		} else {
			run = 0
		}
	}
	assert.Equal(t, byte(flagByte), byte(0x7E))
}

func TestHDLCBadCRCDropped(t *testing.T) {
	bits := EncodeFrame([]byte("hello"))
	bits[20] ^= 1 // corrupt a data bit inside the frame

	var got int
	rx := NewReceiver(func(buf []byte) { got++ })
	for _, b := range bits {
		rx.PushBit(b)
	}
	assert.Equal(t, 0, got)
	assert.Equal(t, 1, rx.BadFrames)
}

func TestNRZIRoundTrip(t *testing.T) {
	data := []bit{1, 1, 0, 0, 1, 0, 1, 1, 0, 0, 0, 1}
	enc := NRZIEncode(&NRZIState{}, data)
	dec := NRZIDecode(&NRZIDecodeState{}, enc)
	// The very first decoded bit is unobservable (no prior level to compare
	// against) so we only compare from index 1 on, matching how a receiver
	// synced mid-stream behaves.
	require.Equal(t, len(data), len(dec))
	assert.Equal(t, data[1:], dec[1:])
}

func TestRapidHDLCRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 64).Draw(t, "len")
		payload := make([]byte, n)
		for i := range payload {
			payload[i] = byte(rapid.IntRange(0, 255).Draw(t, "b"))
		}
		got := decodeOne(t, payload)
		assert.Equal(t, payload, got)
	})
}
