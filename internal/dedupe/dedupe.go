// Package dedupe implements the recent-frame suppression table §3/§4.8/§8
// describe: a bounded, per-channel record of recently seen (source,
// destination, info-hash) tuples, used to avoid digipeating the same
// packet twice when it loops between digipeaters or arrives by more than
// one path.
package dedupe

import (
	"sync"
	"time"

	"github.com/k4tnc/gotnc/internal/ax25"
)

// MaxHistory bounds the ring of remembered entries; once full, the oldest
// entry is overwritten even if its window hasn't expired yet.
const MaxHistory = 25

// DefaultWindow is the suppression window §4.8/§8 use in their examples.
const DefaultWindow = 30 * time.Second

type entry struct {
	valid   bool
	key     uint64
	channel int
	seen    time.Time
}

// Table is the dedupe history for every channel, one shared ring buffer
// keyed additionally by channel so that the same packet digipeated to two
// different outgoing channels is tracked independently.
type Table struct {
	mu      sync.Mutex
	window  time.Duration
	history [MaxHistory]entry
	next    int
	now     func() time.Time
}

// New builds a Table with the given suppression window (DefaultWindow if
// zero or negative).
func New(window time.Duration) *Table {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Table{window: window, now: time.Now}
}

// key computes source+destination+16-bit info hash, the composite
// dedupe key of §4.8 step 4.
func key(f *ax25.Frame) uint64 {
	h := fnv16(f.Info)
	var srcHash, dstHash uint32
	for _, c := range f.Source.Call {
		srcHash = srcHash*131 + uint32(c)
	}
	for _, c := range f.Destination.Call {
		dstHash = dstHash*131 + uint32(c)
	}
	return uint64(srcHash&0xFFF)<<28 | uint64(dstHash&0xFFF)<<16 | uint64(h)
}

// fnv16 is a small, fast 16-bit hash of the information field; any
// reasonable distribution works here since collisions only cost an
// occasional unnecessary suppression, not correctness.
func fnv16(data []byte) uint16 {
	var h uint16 = 0x811C
	for _, b := range data {
		h ^= uint16(b)
		h *= 0x0101
	}
	return h
}

// CheckAndRemember reports whether an identical (source, destination,
// info-hash) frame was already seen on this channel within the window. If
// not, it records this one and returns false; if so, it returns true
// without re-recording (the existing timestamp is left alone, so the
// window doesn't reset on every duplicate — only the first occurrence
// starts it, per the §8 "exactly once per window reset" property).
func (t *Table) CheckAndRemember(f *ax25.Frame, channel int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	k := key(f)
	now := t.now()
	for i := range t.history {
		h := &t.history[i]
		if !h.valid || h.key != k || h.channel != channel {
			continue
		}
		if now.Sub(h.seen) > t.window {
			continue
		}
		return true
	}

	t.history[t.next] = entry{valid: true, key: k, channel: channel, seen: now}
	t.next = (t.next + 1) % MaxHistory
	return false
}
