package csma

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/k4tnc/gotnc/internal/ax25"
	"github.com/k4tnc/gotnc/internal/txqueue"
)

type fakeDCD struct {
	mu   sync.Mutex
	busy bool
}

func (f *fakeDCD) DataCarrierDetect(int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.busy
}

func (f *fakeDCD) setBusy(b bool) {
	f.mu.Lock()
	f.busy = b
	f.mu.Unlock()
}

type fakePTT struct {
	mu      sync.Mutex
	asserts int
}

func (f *fakePTT) Assert(int) error   { f.mu.Lock(); f.asserts++; f.mu.Unlock(); return nil }
func (f *fakePTT) Deassert(int) error { return nil }

type fakeTX struct {
	mu     sync.Mutex
	frames []*ax25.Frame
	done   chan struct{}
}

func (f *fakeTX) TransmitPreamble(int, int) {}
func (f *fakeTX) TransmitFrame(_ int, frame *ax25.Frame) {
	f.mu.Lock()
	f.frames = append(f.frames, frame)
	n := len(f.frames)
	f.mu.Unlock()
	if n == 1 && f.done != nil {
		close(f.done)
	}
}

func mkFrame() *ax25.Frame {
	return ax25.NewUI(ax25.Address{Call: "N0CALL"}, ax25.Address{Call: "APRS"}, nil, []byte("hi"))
}

func TestTransmitsWhenChannelClear(t *testing.T) {
	q := txqueue.New(nil, txqueue.DefaultMaxPerChannel)
	dcd := &fakeDCD{}
	ptt := &fakePTT{}
	tx := &fakeTX{done: make(chan struct{})}

	s := New(q, dcd, ptt, tx, nil)
	s.sleep = func(time.Duration) {}
	s.random = func() int { return 0 }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx, 0)

	q.Append(0, txqueue.Low, mkFrame())

	select {
	case <-tx.done:
	case <-time.After(2 * time.Second):
		t.Fatal("frame was never transmitted")
	}
	assert.Equal(t, 1, ptt.asserts)
}

func TestWaitsForChannelClear(t *testing.T) {
	q := txqueue.New(nil, txqueue.DefaultMaxPerChannel)
	dcd := &fakeDCD{busy: true}
	ptt := &fakePTT{}
	tx := &fakeTX{done: make(chan struct{})}

	s := New(q, dcd, ptt, tx, nil)
	s.sleep = func(time.Duration) {}
	s.random = func() int { return 0 }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx, 0)

	q.Append(0, txqueue.Low, mkFrame())

	select {
	case <-tx.done:
		t.Fatal("should not transmit while channel is busy")
	case <-time.After(100 * time.Millisecond):
	}

	dcd.setBusy(false)

	select {
	case <-tx.done:
	case <-time.After(2 * time.Second):
		t.Fatal("frame was never transmitted after channel cleared")
	}
}

func TestHighPriorityBypassesPersistWait(t *testing.T) {
	q := txqueue.New(nil, txqueue.DefaultMaxPerChannel)
	dcd := &fakeDCD{}
	ptt := &fakePTT{}
	tx := &fakeTX{done: make(chan struct{})}

	s := New(q, dcd, ptt, tx, nil)
	s.sleep = func(time.Duration) {}
	s.random = func() int { return 255 } // would never pass persist=63 if rolled

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx, 0)

	q.Append(0, txqueue.High, mkFrame())

	select {
	case <-tx.done:
	case <-time.After(2 * time.Second):
		t.Fatal("high priority frame should bypass the persist roll")
	}
}

func TestFullDuplexSkipsClearChannelWait(t *testing.T) {
	q := txqueue.New(nil, txqueue.DefaultMaxPerChannel)
	dcd := &fakeDCD{busy: true}
	ptt := &fakePTT{}
	tx := &fakeTX{done: make(chan struct{})}

	s := New(q, dcd, ptt, tx, nil)
	s.sleep = func(time.Duration) {}
	s.Configure(0, Config{FullDuplex: true})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx, 0)

	q.Append(0, txqueue.Low, mkFrame())

	select {
	case <-tx.done:
	case <-time.After(2 * time.Second):
		t.Fatal("full duplex channel should transmit immediately despite busy DCD")
	}
	require.Len(t, tx.frames, 1)
}
