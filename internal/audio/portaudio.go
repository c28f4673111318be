package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// PortAudioDevice is a live soundcard input/output device, the
// cross-platform replacement for the teacher's direct ALSA/WinMM/
// CoreAudio cgo bindings in audio.go.
type PortAudioDevice struct {
	stream     *portaudio.Stream
	sampleRate int
	in         []float32
	out        []float32
}

// OpenPortAudioDevice opens the default input and output devices in
// full-duplex mono at sampleRate, buffering framesPerBuffer samples per
// callback.
func OpenPortAudioDevice(sampleRate, framesPerBuffer int) (*PortAudioDevice, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("audio: initialize portaudio: %w", err)
	}
	d := &PortAudioDevice{
		sampleRate: sampleRate,
		in:         make([]float32, framesPerBuffer),
		out:        make([]float32, framesPerBuffer),
	}
	stream, err := portaudio.OpenDefaultStream(1, 1, float64(sampleRate), framesPerBuffer, d.in, d.out)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("audio: open default stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("audio: start stream: %w", err)
	}
	d.stream = stream
	return d, nil
}

func (d *PortAudioDevice) SampleRate() int { return d.sampleRate }

// ReadSamples reads one buffer's worth of captured audio into buf,
// returning the number of samples copied.
func (d *PortAudioDevice) ReadSamples(buf []float32) (int, error) {
	if err := d.stream.Read(); err != nil {
		return 0, fmt.Errorf("audio: read stream: %w", err)
	}
	n := copy(buf, d.in)
	return n, nil
}

// WriteSamples queues buf for playback, writing it out in
// framesPerBuffer-sized chunks.
func (d *PortAudioDevice) WriteSamples(buf []float32) error {
	for len(buf) > 0 {
		n := copy(d.out, buf)
		for i := n; i < len(d.out); i++ {
			d.out[i] = 0
		}
		if err := d.stream.Write(); err != nil {
			return fmt.Errorf("audio: write stream: %w", err)
		}
		buf = buf[n:]
	}
	return nil
}

func (d *PortAudioDevice) Close() error {
	err1 := d.stream.Stop()
	err2 := d.stream.Close()
	portaudio.Terminate()
	if err1 != nil {
		return err1
	}
	return err2
}
