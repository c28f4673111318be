// Package txqueue implements the per-channel, per-priority transmit
// queues (§4.5): producers append frames, the CSMA scheduler blocks until
// one is ready and then dequeues in priority order.
package txqueue

import (
	"sync"

	"github.com/charmbracelet/log"

	"github.com/k4tnc/gotnc/internal/ax25"
)

// Priority selects which of a channel's two FIFOs a frame goes on.
type Priority int

const (
	// Low is originated traffic from this station.
	Low Priority = iota
	// High is digipeated traffic, transmitted ahead of anything queued Low.
	High
)

// DefaultMaxPerChannel bounds the total frames (both priorities) held for
// one channel before further appends are discarded with a warning (§7).
const DefaultMaxPerChannel = 20

type queueEntry struct {
	frame *ax25.Frame
}

type channelQueues struct {
	high []queueEntry
	low  []queueEntry
}

func (c *channelQueues) count() int { return len(c.high) + len(c.low) }

// Queue holds the transmit queues for every channel, guarded by a single
// mutex, matching §4.5/§5's "one mutex guards all queues" model. A
// condition variable wakes CSMA schedulers blocked in WaitWhileEmpty
// whenever an append transitions a channel from empty to non-empty.
type Queue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	byChan  map[int]*channelQueues
	maxSize int
	logger  *log.Logger
	closed  bool
}

// New builds a Queue holding at most maxPerChannel frames per channel
// (DefaultMaxPerChannel if zero or negative). Channels are created on
// first use.
func New(logger *log.Logger, maxPerChannel int) *Queue {
	if maxPerChannel <= 0 {
		maxPerChannel = DefaultMaxPerChannel
	}
	q := &Queue{
		byChan:  make(map[int]*channelQueues),
		maxSize: maxPerChannel,
		logger:  logger,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *Queue) channel(n int) *channelQueues {
	c, ok := q.byChan[n]
	if !ok {
		c = &channelQueues{}
		q.byChan[n] = c
	}
	return c
}

// Append adds frame to the tail of channel n's prio FIFO. If the channel's
// total count already reached the configured bound, the frame is
// discarded and logged (§7 "full queue"). Ownership of frame transfers to
// the queue; the caller must not mutate it afterward (frames are treated
// as immutable once enqueued, per §3).
func (q *Queue) Append(n int, prio Priority, frame *ax25.Frame) {
	q.mu.Lock()
	defer q.mu.Unlock()

	c := q.channel(n)
	if c.count() >= q.maxSize {
		if q.logger != nil {
			q.logger.Warn("transmit queue full, discarding frame", "channel", n, "priority", prio)
		}
		return
	}

	wasEmpty := c.count() == 0
	entry := queueEntry{frame: frame}
	if prio == High {
		c.high = append(c.high, entry)
	} else {
		c.low = append(c.low, entry)
	}
	if wasEmpty {
		q.cond.Broadcast()
	}
}

// Remove pops the head of channel n's prio FIFO, or reports ok=false if
// empty.
func (q *Queue) Remove(n int, prio Priority) (frame *ax25.Frame, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.removeLocked(n, prio)
}

func (q *Queue) removeLocked(n int, prio Priority) (*ax25.Frame, bool) {
	c := q.channel(n)
	list := &c.low
	if prio == High {
		list = &c.high
	}
	if len(*list) == 0 {
		return nil, false
	}
	entry := (*list)[0]
	*list = (*list)[1:]
	return entry.frame, true
}

// RemoveNextForTransmit pops the next frame for channel n, high priority
// first, or reports ok=false if both FIFOs are empty.
func (q *Queue) RemoveNextForTransmit(n int) (frame *ax25.Frame, prio Priority, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if f, ok := q.removeLocked(n, High); ok {
		return f, High, true
	}
	if f, ok := q.removeLocked(n, Low); ok {
		return f, Low, true
	}
	return nil, Low, false
}

// Count returns the number of frames queued for (n, prio). It takes the
// lock.
func (q *Queue) Count(n int, prio Priority) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	c := q.channel(n)
	if prio == High {
		return len(c.high)
	}
	return len(c.low)
}

// AnyNonEmpty reports whether any channel has a non-empty queue of either
// priority.
func (q *Queue) AnyNonEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, c := range q.byChan {
		if c.count() > 0 {
			return true
		}
	}
	return false
}

// NonEmptyChannels returns the set of channels with at least one queued
// frame, for the CSMA scheduler's round-robin tie-break across channels.
func (q *Queue) NonEmptyChannels() []int {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []int
	for n, c := range q.byChan {
		if c.count() > 0 {
			out = append(out, n)
		}
	}
	return out
}

// WaitWhileEmpty blocks the calling goroutine until some channel has a
// non-empty queue, or Close is called. It returns false if woken by
// Close with nothing to deliver, so callers can exit cleanly at shutdown.
func (q *Queue) WaitWhileEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for !q.anyNonEmptyLocked() && !q.closed {
		q.cond.Wait()
	}
	return !q.closed || q.anyNonEmptyLocked()
}

func (q *Queue) anyNonEmptyLocked() bool {
	for _, c := range q.byChan {
		if c.count() > 0 {
			return true
		}
	}
	return false
}

// Close wakes every goroutine blocked in WaitWhileEmpty so shutdown can
// proceed; it does not discard already-queued frames.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}
