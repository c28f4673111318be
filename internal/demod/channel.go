package demod

import "sync"

// FrameEvent is one HDLC-valid frame recovered from a channel, tagged
// with which sub-channel/slicer produced it and a decoded signal-level
// estimate, matching the metadata §4.3 says accompanies a frame handed to
// the receive queue.
type FrameEvent struct {
	Channel   int
	SubChan   int
	Slicer    int
	Level     int
	FrameData []byte
}

// arbitrationWindow is how many ProcessSample calls the channel waits,
// once any slicer has decoded a frame, before picking the best-scoring
// candidate and discarding the rest — the "best-scoring valid frame wins"
// rule of §3 applied to frames that complete within a few bit-times of
// each other across parallel demodulators.
const arbitrationWindow = 64

type pendingFrame struct {
	FrameEvent
	score   int
	arrival int64
}

// Channel wraps every sub-channel demodulator configured for one radio
// channel and arbitrates among the frames their slicers independently
// recover, since the same over-the-air packet is usually decoded more
// than once in parallel.
type Channel struct {
	Number      int
	subChannels []*SubChannel

	mu      sync.Mutex
	sample  int64
	pending []pendingFrame

	OnFrame func(FrameEvent)
}

// NewChannel builds a Channel numbered n with one SubChannel per cfg.
func NewChannel(n int, configs []Config, onFrame func(FrameEvent)) *Channel {
	c := &Channel{Number: n, OnFrame: onFrame}
	for i, cfg := range configs {
		sub := i
		c.subChannels = append(c.subChannels, New(cfg, func(slicer, score int, frame []byte) {
			c.receive(sub, slicer, score, frame)
		}))
	}
	return c
}

// ProcessSample feeds one audio sample to every sub-channel demodulator
// and flushes any arbitration window that has expired.
func (c *Channel) ProcessSample(sample float64) {
	for _, sub := range c.subChannels {
		sub.ProcessSample(sample)
	}
	c.mu.Lock()
	c.sample++
	c.flushExpiredLocked()
	c.mu.Unlock()
}

func (c *Channel) receive(sub, slicer, score int, frame []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, pendingFrame{
		FrameEvent: FrameEvent{Channel: c.Number, SubChan: sub, Slicer: slicer, Level: c.subChannels[sub].Level(), FrameData: frame},
		score:      score,
		arrival:    c.sample,
	})
}

func (c *Channel) flushExpiredLocked() {
	if len(c.pending) == 0 {
		return
	}
	if c.sample-c.pending[0].arrival < arbitrationWindow {
		return
	}
	best := c.pending[0]
	for _, p := range c.pending[1:] {
		if p.score > best.score {
			best = p
		}
	}
	c.pending = nil
	if c.OnFrame != nil {
		c.OnFrame(best.FrameEvent)
	}
}

// DataCarrierDetect reports whether any sub-channel currently has a
// locked slicer, used by CSMA to gate transmission.
func (c *Channel) DataCarrierDetect() bool {
	for _, s := range c.subChannels {
		if s.DataCarrierDetect() {
			return true
		}
	}
	return false
}

// BadFrameCount sums CRC failures across every sub-channel.
func (c *Channel) BadFrameCount() int {
	n := 0
	for _, s := range c.subChannels {
		n += s.BadFrameCount()
	}
	return n
}
