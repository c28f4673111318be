package txqueue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/k4tnc/gotnc/internal/ax25"
)

func mkFrame(info string) *ax25.Frame {
	return ax25.NewUI(ax25.Address{Call: "N0CALL"}, ax25.Address{Call: "APRS"}, nil, []byte(info))
}

func TestFIFOOrderPerPriority(t *testing.T) {
	q := New(nil, 20)
	q.Append(0, Low, mkFrame("a"))
	q.Append(0, Low, mkFrame("b"))
	q.Append(0, Low, mkFrame("c"))

	for _, want := range []string{"a", "b", "c"} {
		f, ok := q.Remove(0, Low)
		require.True(t, ok)
		assert.Equal(t, want, string(f.Info))
	}
	_, ok := q.Remove(0, Low)
	assert.False(t, ok)
}

func TestHighPriorityDrainsFirst(t *testing.T) {
	q := New(nil, 20)
	q.Append(0, Low, mkFrame("low1"))
	q.Append(0, High, mkFrame("high1"))
	q.Append(0, Low, mkFrame("low2"))
	q.Append(0, High, mkFrame("high2"))

	var order []string
	for i := 0; i < 4; i++ {
		f, _, ok := q.RemoveNextForTransmit(0)
		require.True(t, ok)
		order = append(order, string(f.Info))
	}
	assert.Equal(t, []string{"high1", "high2", "low1", "low2"}, order)
}

func TestQueueFullDiscards(t *testing.T) {
	q := New(nil, 2)
	q.Append(0, Low, mkFrame("a"))
	q.Append(0, Low, mkFrame("b"))
	q.Append(0, Low, mkFrame("c")) // discarded
	assert.Equal(t, 2, q.Count(0, Low))
}

func TestWaitWhileEmptyWakesOnAppend(t *testing.T) {
	q := New(nil, 20)
	var wg sync.WaitGroup
	wg.Add(1)
	woke := make(chan bool, 1)
	go func() {
		defer wg.Done()
		woke <- q.WaitWhileEmpty()
	}()

	time.Sleep(10 * time.Millisecond)
	q.Append(1, Low, mkFrame("x"))
	wg.Wait()
	assert.True(t, <-woke)
}

func TestWaitWhileEmptyWakesOnClose(t *testing.T) {
	q := New(nil, 20)
	done := make(chan bool, 1)
	go func() { done <- q.WaitWhileEmpty() }()
	time.Sleep(10 * time.Millisecond)
	q.Close()
	assert.False(t, <-done)
}

func TestChannelsIndependent(t *testing.T) {
	q := New(nil, 20)
	q.Append(0, Low, mkFrame("ch0"))
	q.Append(1, Low, mkFrame("ch1"))
	assert.Equal(t, 1, q.Count(0, Low))
	assert.Equal(t, 1, q.Count(1, Low))
	assert.ElementsMatch(t, []int{0, 1}, q.NonEmptyChannels())
}
