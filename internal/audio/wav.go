package audio

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVFile is an offline Device backed by a WAV file: read-only playback
// of a captured signal for bench-testing the demodulator without a live
// soundcard, the approach used to validate decoders against recorded
// off-air samples.
type WAVFile struct {
	f          *os.File
	dec        *wav.Decoder
	buf        *audio.IntBuffer
	sampleRate int
	pos        int
}

// OpenWAVFile opens path for mono or stereo PCM playback; if stereo, only
// the left channel is returned (matching the teacher's single-channel
// demodulator input).
func OpenWAVFile(path string) (*WAVFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audio: open wav %s: %w", path, err)
	}
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		f.Close()
		return nil, fmt.Errorf("audio: %s is not a valid WAV file", path)
	}
	dec.ReadInfo()
	buf := &audio.IntBuffer{Format: &audio.Format{SampleRate: int(dec.SampleRate), NumChannels: int(dec.NumChans)}}
	return &WAVFile{f: f, dec: dec, buf: buf, sampleRate: int(dec.SampleRate)}, nil
}

func (w *WAVFile) SampleRate() int { return w.sampleRate }

// ReadSamples decodes the next len(buf) mono samples, scaled to
// [-1, 1), returning io.EOF-wrapped behavior as 0, nil at end of file
// (the demodulator treats a short read as "no more audio").
func (w *WAVFile) ReadSamples(buf []float32) (int, error) {
	channels := w.buf.Format.NumChannels
	if channels < 1 {
		channels = 1
	}
	// PCMBuffer decodes as many samples as the buffer's Data slice holds.
	if len(w.buf.Data) != len(buf)*channels {
		w.buf.Data = make([]int, len(buf)*channels)
	}
	n, err := w.dec.PCMBuffer(w.buf)
	if err != nil {
		return 0, fmt.Errorf("audio: read wav samples: %w", err)
	}
	if n == 0 {
		return 0, nil
	}
	frames := n / channels
	if frames > len(buf) {
		frames = len(buf)
	}
	maxVal := float32(int32(1) << (uint(w.buf.SourceBitDepth) - 1))
	if maxVal == 0 {
		maxVal = 32768
	}
	for i := 0; i < frames; i++ {
		buf[i] = float32(w.buf.Data[i*channels]) / maxVal
	}
	return frames, nil
}

// WriteSamples is unsupported; WAVFile is a read-only source.
func (w *WAVFile) WriteSamples([]float32) error {
	return fmt.Errorf("audio: WAVFile is read-only")
}

func (w *WAVFile) Close() error { return w.f.Close() }
