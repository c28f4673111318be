package demod

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/k4tnc/gotnc/internal/hdlc"
	"github.com/k4tnc/gotnc/internal/tone"
)

// TestAFSKRoundTrip feeds a tone-generated AFSK signal for a known HDLC
// frame back through the demodulator and checks the frame is recovered,
// grounding the PLL-convergence and HDLC-round-trip invariants of §8
// against a real (if idealized, noiseless) signal path rather than just
// the bit-level codec.
func TestAFSKRoundTrip(t *testing.T) {
	const sampleRate = 44100
	payload := []byte("the quick brown fox")

	// A long run of HDLC flag octets, matching the TX-delay preamble
	// §4.6 describes, gives the AGC and PLL time to lock before the
	// frame's own flags and content arrive; the whole preamble+frame
	// bitstream is NRZI-encoded continuously so there's no discontinuity
	// at the boundary.
	var lineBits []int
	for i := 0; i < 60; i++ {
		for b := 0; b < 8; b++ {
			lineBits = append(lineBits, (0x7E>>uint(b))&1)
		}
	}
	lineBits = append(lineBits, hdlc.EncodeFrame(payload)...)
	nrzi := hdlc.NRZIEncode(&hdlc.NRZIState{}, lineBits)

	gen := tone.New(tone.Params{
		SampleRate: sampleRate,
		BaudRate:   1200,
		MarkHz:     1200,
		SpaceHz:    2200,
		Amplitude:  1.0,
	})
	var samples []float32
	for _, b := range nrzi {
		samples = gen.PutBit(samples, b)
	}

	var got [][]byte
	cfg := DefaultAFSK1200(sampleRate)
	sub := New(cfg, func(slicer, score int, frame []byte) {
		got = append(got, append([]byte(nil), frame...))
	})
	for _, s := range samples {
		sub.ProcessSample(float64(s))
	}

	require.NotEmpty(t, got, "expected at least one recovered frame")
	found := false
	for _, f := range got {
		if string(f) == string(payload) {
			found = true
		}
	}
	assert.True(t, found, "expected payload among decoded frames: %v", got)
}

func TestPLLLocksWithinOneBitTime(t *testing.T) {
	p := newPLL(8000, 1200)
	emits := 0
	samplesPerBit := 8000.0 / 1200.0
	bit := 1
	for i := 0; i < int(samplesPerBit)*4; i++ {
		if i%int(samplesPerBit) == 0 {
			bit ^= 1
		}
		if p.Advance(bit, true, 0.74, 0.3) {
			emits++
		}
	}
	assert.GreaterOrEqual(t, emits, 3)
}
