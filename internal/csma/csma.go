// Package csma implements the channel-access scheduler §4.6/§4.7
// describe: for each channel, wait for the channel to go clear (unless
// full duplex), apply a persistence/slot-time random backoff, key PTT,
// transmit the TX-delay preamble followed by the queued frame, hold PTT
// through a TX-tail, then release it.
package csma

import (
	"context"
	"math/rand"
	"time"

	"github.com/charmbracelet/log"

	"github.com/k4tnc/gotnc/internal/ax25"
	"github.com/k4tnc/gotnc/internal/txqueue"
)

// Config holds one channel's CSMA timing parameters, named and scaled
// the way the teacher's channel config does (10 ms units for slot time,
// TX-delay, TX-tail, and D-wait; persist is a 0-255 probability threshold
// tested against a random byte, matching §4.7's wait-for-clear-channel
// algorithm and its documented delay/probability table).
type Config struct {
	SlotTime10ms int
	Persist      int
	TxDelay10ms  int
	TxTail10ms   int
	DWait10ms    int
	FullDuplex   bool
}

// DefaultConfig matches the teacher's defaults (slottime=10, persist=63,
// txdelay=30, txtail=10).
func DefaultConfig() Config {
	return Config{SlotTime10ms: 10, Persist: 63, TxDelay10ms: 30, TxTail10ms: 10}
}

// DCDSource reports whether a channel currently has a locked demodulator,
// i.e. the radio channel is busy.
type DCDSource interface {
	DataCarrierDetect(channel int) bool
}

// PTT keys and unkeys the transmitter for a channel.
type PTT interface {
	Assert(channel int) error
	Deassert(channel int) error
}

// Transmitter sends the TX-delay preamble, the HDLC+tone-encoded frame,
// and the TX-tail for one channel; the scheduler sends the TX-tail flags
// through TransmitPreamble as well. It blocks until the audio has been
// queued/played, so the scheduler can release PTT only once transmission
// is actually complete.
type Transmitter interface {
	TransmitPreamble(channel int, flagOctets int)
	TransmitFrame(channel int, frame *ax25.Frame)
}

// Scheduler runs one CSMA loop per channel, dequeuing from a shared
// txqueue.Queue in priority order and keying PTT around each transmission.
type Scheduler struct {
	queue *txqueue.Queue
	dcd   DCDSource
	ptt   PTT
	tx    Transmitter
	log   *log.Logger

	configs map[int]Config

	sleep  func(time.Duration)
	random func() int
}

// New builds a Scheduler. logger may be nil.
func New(queue *txqueue.Queue, dcd DCDSource, ptt PTT, tx Transmitter, logger *log.Logger) *Scheduler {
	return &Scheduler{
		queue:   queue,
		dcd:     dcd,
		ptt:     ptt,
		tx:      tx,
		log:     logger,
		configs: make(map[int]Config),
		sleep:   time.Sleep,
		random: func() int { return rand.Intn(256) },
	}
}

// Configure sets channel n's CSMA parameters, defaulting to
// DefaultConfig if never called.
func (s *Scheduler) Configure(n int, cfg Config) { s.configs[n] = cfg }

// ConfigFor returns channel n's current CSMA configuration (DefaultConfig
// if never explicitly set), so callers like the KISS TXDELAY/PERSIST/
// SLOTTIME/TXTAIL commands can read-modify-write a single field.
func (s *Scheduler) ConfigFor(n int) Config { return s.configFor(n) }

func (s *Scheduler) configFor(n int) Config {
	if cfg, ok := s.configs[n]; ok {
		return cfg
	}
	return DefaultConfig()
}

// Run drives channel n's transmit loop until ctx is cancelled or the
// queue is closed. It is meant to be launched in its own goroutine, one
// per channel.
func (s *Scheduler) Run(ctx context.Context, channel int) {
	for {
		if ctx.Err() != nil {
			return
		}
		if !s.queue.WaitWhileEmpty() {
			return // queue closed, nothing left to deliver
		}
		if ctx.Err() != nil {
			return
		}

		cfg := s.configFor(channel)
		if !s.waitForClearChannel(ctx, channel, cfg) {
			continue // timed out or cancelled; re-check the queue/context
		}

		frame, prio, ok := s.queue.RemoveNextForTransmit(channel)
		if !ok {
			continue // WaitWhileEmpty woke for a frame queued on another channel
		}

		if err := s.ptt.Assert(channel); err != nil {
			if s.log != nil {
				s.log.Error("PTT assert failed", "channel", channel, "err", err)
			}
			continue
		}
		flagOctets := cfg.TxDelay10ms * 10 * 1200 / (8 * 1000) // bytes of flag for the baud rate the preamble is framed at
		if flagOctets < 1 {
			flagOctets = 1
		}
		s.tx.TransmitPreamble(channel, flagOctets)
		s.tx.TransmitFrame(channel, frame)
		if cfg.TxTail10ms > 0 {
			tailOctets := cfg.TxTail10ms * 10 * 1200 / (8 * 1000) // trailing flags, framed like the preamble
			if tailOctets < 1 {
				tailOctets = 1
			}
			s.tx.TransmitPreamble(channel, tailOctets)
		}
		if err := s.ptt.Deassert(channel); err != nil && s.log != nil {
			s.log.Error("PTT deassert failed", "channel", channel, "err", err)
		}
		if s.log != nil {
			s.log.Debug("transmitted frame", "channel", channel, "priority", prio)
		}
	}
}

// waitForClearChannel implements §4.7's algorithm: wait for DCD to clear,
// wait D-wait for slow-turnaround radios, then re-check DCD once; if
// still clear, loop waiting slot-time and rolling a random byte against
// the persist threshold, breaking immediately if a high-priority frame
// appears. Full-duplex channels skip all of this and return immediately.
func (s *Scheduler) waitForClearChannel(ctx context.Context, channel int, cfg Config) bool {
	if cfg.FullDuplex {
		return true
	}

	const checkEvery = 10 * time.Millisecond
	const timeout = 60 * time.Second

startOver:
	deadline := time.Now().Add(timeout)
	for s.dcd.DataCarrierDetect(channel) {
		if ctx.Err() != nil {
			return false
		}
		if time.Now().After(deadline) {
			return false
		}
		s.sleep(checkEvery)
	}

	if cfg.DWait10ms > 0 {
		s.sleep(time.Duration(cfg.DWait10ms) * 10 * time.Millisecond)
	}
	if s.dcd.DataCarrierDetect(channel) {
		goto startOver
	}

	for s.queue.Count(channel, txqueue.High) == 0 {
		if ctx.Err() != nil {
			return false
		}
		s.sleep(time.Duration(cfg.SlotTime10ms) * 10 * time.Millisecond)
		if s.dcd.DataCarrierDetect(channel) {
			goto startOver
		}
		if s.random() <= cfg.Persist {
			break
		}
	}
	return true
}
