// Package audio provides the sample-stream sources and sinks the
// demodulator and tone generator run on top of: a live soundcard device
// (PortAudio) or a WAV file, for offline decoding and testing (§5's "one
// audio-receive thread per audio device" model; §6 names WAV capture
// files as a supported input for bench-testing the demodulator).
package audio

// Device is a duplex mono float32 PCM sample stream at a fixed sample
// rate, the common shape every backend in this package exposes.
type Device interface {
	SampleRate() int
	ReadSamples(buf []float32) (int, error)
	WriteSamples(buf []float32) error
	Close() error
}
