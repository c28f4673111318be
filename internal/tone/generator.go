// Package tone generates PCM samples from a bit stream: Mark/Space AFSK
// tones for low-speed channels, or a scrambled baseband signal for 9600
// bps G3RUH-style channels (§4.7).
package tone

import "math"

// Params describes one channel's tone generation parameters.
type Params struct {
	SampleRate int
	BaudRate   int
	MarkHz     float64 // ignored when Baseband is true
	SpaceHz    float64 // ignored when Baseband is true
	Amplitude  float64 // 0..1, peak output amplitude
	Baseband   bool    // true selects 9600 bps scrambled-baseband mode
}

// Generator holds the phase accumulators and per-bit sample counters for
// one channel's tone output.
type Generator struct {
	p Params

	markPhase  float64
	spacePhase float64
	scramble   g3ruhScrambler

	samplesPerBit   float64
	samplesRemainder float64
}

// New constructs a Generator for the given parameters.
func New(p Params) *Generator {
	return &Generator{
		p:             p,
		samplesPerBit: float64(p.SampleRate) / float64(p.BaudRate),
		scramble:      newG3RUHScrambler(),
	}
}

// PutBit appends the PCM samples for one line bit to out, returning the
// extended slice. The caller passes bits that are already NRZI-encoded;
// at 9600 bps the Generator applies the G3RUH scrambler itself. Samples are in the range [-1, 1];
// conversion to integer PCM happens at the audio device boundary.
func (g *Generator) PutBit(out []float32, bit int) []float32 {
	if g.p.Baseband {
		return g.putBitBaseband(out, bit)
	}
	return g.putBitAFSK(out, bit)
}

func (g *Generator) putBitAFSK(out []float32, bit int) []float32 {
	n := g.nextSampleCount()
	freq := g.p.SpaceHz
	phase := &g.spacePhase
	if bit == 1 {
		freq = g.p.MarkHz
		phase = &g.markPhase
	}
	step := 2 * math.Pi * freq / float64(g.p.SampleRate)
	for i := 0; i < n; i++ {
		out = append(out, float32(g.p.Amplitude*math.Sin(*phase)))
		*phase += step
		if *phase > 2*math.Pi {
			*phase -= 2 * math.Pi
		}
	}
	return out
}

// putBitBaseband scrambles bit through the transmit-side G3RUH LFSR and
// emits a two-level baseband waveform: the spec's "transmit shaping
// filter" is approximated here by the NRZ hold-and-settle the demod side
// already expects from a baseband channel; shaping beyond that is out of
// scope (non-goal: general DSP library).
func (g *Generator) putBitBaseband(out []float32, bit int) []float32 {
	n := g.nextSampleCount()
	scrambled := g.scramble.next(bit)
	level := -g.p.Amplitude
	if scrambled == 1 {
		level = g.p.Amplitude
	}
	for i := 0; i < n; i++ {
		out = append(out, float32(level))
	}
	return out
}

// nextSampleCount returns how many samples to emit for the next bit,
// carrying fractional remainder across calls so that non-integer
// samples-per-bit ratios (e.g. 44100/1200) don't accumulate drift.
func (g *Generator) nextSampleCount() int {
	g.samplesRemainder += g.samplesPerBit
	n := int(g.samplesRemainder)
	g.samplesRemainder -= float64(n)
	return n
}

// Quiet appends ms milliseconds of silence.
func (g *Generator) Quiet(out []float32, ms int) []float32 {
	n := ms * g.p.SampleRate / 1000
	for i := 0; i < n; i++ {
		out = append(out, 0)
	}
	return out
}
