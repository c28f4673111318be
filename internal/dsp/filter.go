package dsp

import "math"

// MaxFilterSize bounds the tap counts accepted below.
const MaxFilterSize = 4096

// LowPass generates a low-pass sinc kernel of the given length for cutoff
// fc (as a fraction of the sample rate, 0 < fc < 0.5), windowed by w,
// normalized to unity gain at DC. It returns the signal delay through the
// filter, in samples: the smallest tap index at which the cumulative sum
// of taps exceeds delayFraction of the total (default 0.5), used to align
// parallel signal paths (e.g. the prefiltered vs. raw sample streams).
func LowPass(fc float64, taps int, w Window, delayFraction float64) (kernel []float64, delay int) {
	if taps < 3 || taps > MaxFilterSize {
		panic("dsp: LowPass: taps out of range")
	}
	kernel = make([]float64, taps)
	center := 0.5 * float64(taps-1)

	for j := 0; j < taps; j++ {
		var sinc float64
		d := float64(j) - center
		if d == 0 {
			sinc = 2 * fc
		} else {
			sinc = math.Sin(2*math.Pi*fc*d) / (math.Pi * d)
		}
		kernel[j] = sinc * shape(w, taps, j)
	}

	var gain float64
	for _, v := range kernel {
		gain += v
	}
	for j := range kernel {
		kernel[j] /= gain
	}

	if delayFraction <= 0 {
		delayFraction = 0.5
	}
	target := delayFraction * 1.0 // taps already normalized to unity sum
	var cum float64
	for j, v := range kernel {
		cum += v
		if cum > target {
			return kernel, j
		}
	}
	return kernel, taps - 1
}

// BandPass generates a band-pass kernel passing [f1, f2] (as fractions of
// the sample rate), windowed by w, normalized to unity gain at the
// passband midpoint.
func BandPass(f1, f2 float64, taps int, w Window) []float64 {
	if taps < 3 || taps > MaxFilterSize {
		panic("dsp: BandPass: taps out of range")
	}
	kernel := make([]float64, taps)
	center := 0.5 * float64(taps-1)

	for j := 0; j < taps; j++ {
		var sinc float64
		d := float64(j) - center
		if d == 0 {
			sinc = 2 * (f2 - f1)
		} else {
			sinc = math.Sin(2*math.Pi*f2*d)/(math.Pi*d) - math.Sin(2*math.Pi*f1*d)/(math.Pi*d)
		}
		kernel[j] = sinc * shape(w, taps, j)
	}

	// In-band gain at the midpoint frequency, computed analytically rather
	// than via an FFT: https://dsp.stackexchange.com/questions/4693
	wMid := 2 * math.Pi * (f1 + f2) / 2
	var gain float64
	for j, v := range kernel {
		gain += v * math.Cos((float64(j)-center)*wMid)
	}
	for j := range kernel {
		kernel[j] /= gain
	}
	return kernel
}

// Correlators generates the Mark/Space sine and cosine correlator tables
// for tone frequency fc (Hz) at sample rate sps, windowed by w, and
// normalized so a unit-amplitude input tone at fc yields a correlator
// magnitude of 1.
func Correlators(fc, sps float64, taps int, w Window) (sin, cos []float64) {
	if taps < 3 || taps > MaxFilterSize {
		panic("dsp: Correlators: taps out of range")
	}
	sin = make([]float64, taps)
	cos = make([]float64, taps)
	center := 0.5 * float64(taps-1)

	var gs, gc float64
	for j := 0; j < taps; j++ {
		angle := (float64(j) - center) / sps * fc * 2 * math.Pi
		s := shape(w, taps, j)
		sinv := math.Sin(angle)
		cosv := math.Cos(angle)
		sin[j] = sinv * s
		cos[j] = cosv * s
		gs += sin[j] * sinv
		gc += cos[j] * cosv
	}
	for j := 0; j < taps; j++ {
		sin[j] /= gs
		cos[j] /= gc
	}
	return sin, cos
}

// Magnitude approximates sqrt(i*i+q*q) with the alpha-max-plus-beta-min
// formula, cheaper than an exact square root on the hot per-sample path.
func Magnitude(i, q float64) float64 {
	ai, aq := math.Abs(i), math.Abs(q)
	if ai < aq {
		ai, aq = aq, ai
	}
	return ai*0.96043387 + aq*0.39782473
}
