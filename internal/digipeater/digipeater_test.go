package digipeater

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/k4tnc/gotnc/internal/ax25"
	"github.com/k4tnc/gotnc/internal/dedupe"
	"github.com/k4tnc/gotnc/internal/txqueue"
)

func mkFrame(digis ...ax25.Address) *ax25.Frame {
	return ax25.NewUI(
		ax25.Address{Call: "N0CALL", SSID: 1},
		ax25.Address{Call: "APRS"},
		digis,
		[]byte("!4012.34N/07400.56W-test"),
	)
}

func TestWideNDecrement(t *testing.T) {
	q := txqueue.New(nil, txqueue.DefaultMaxPerChannel)
	e := New([]Route{{FromChan: 0, ToChan: 0, MyCall: "MYCALL-5"}}, dedupe.New(0), q)

	f := mkFrame(ax25.Address{Call: "WIDE2", SSID: 2})
	e.Digipeat(0, f)

	got, _, ok := q.RemoveNextForTransmit(0)
	require.True(t, ok)
	require.Len(t, got.Digipeaters, 1)
	assert.Equal(t, "WIDE2", got.Digipeaters[0].Call)
	assert.Equal(t, 1, got.Digipeaters[0].SSID)
	assert.False(t, got.Digipeaters[0].Used)
}

func TestWideNExhaustedMarksUsed(t *testing.T) {
	q := txqueue.New(nil, txqueue.DefaultMaxPerChannel)
	e := New([]Route{{FromChan: 0, ToChan: 0, MyCall: "MYCALL-5"}}, dedupe.New(0), q)

	f := mkFrame(ax25.Address{Call: "WIDE1", SSID: 1})
	e.Digipeat(0, f)

	got, _, ok := q.RemoveNextForTransmit(0)
	require.True(t, ok)
	assert.Equal(t, "WIDE1", got.Digipeaters[0].Call)
	assert.Equal(t, 0, got.Digipeaters[0].SSID)
	assert.True(t, got.Digipeaters[0].Used)
}

func TestOwnCallDigipeated(t *testing.T) {
	q := txqueue.New(nil, txqueue.DefaultMaxPerChannel)
	e := New([]Route{{FromChan: 0, ToChan: 1, MyCall: "MYCALL-5"}}, dedupe.New(0), q)

	f := mkFrame(ax25.Address{Call: "MYCALL", SSID: 5})
	e.Digipeat(0, f)

	got, prio, ok := q.RemoveNextForTransmit(1)
	require.True(t, ok)
	assert.Equal(t, txqueue.High, prio)
	assert.True(t, got.Digipeaters[0].Used)
}

func TestNoMatchDoesNotEnqueue(t *testing.T) {
	q := txqueue.New(nil, txqueue.DefaultMaxPerChannel)
	e := New([]Route{{FromChan: 0, ToChan: 0, MyCall: "MYCALL-5"}}, dedupe.New(0), q)

	f := mkFrame(ax25.Address{Call: "OTHER"})
	e.Digipeat(0, f)

	_, _, ok := q.RemoveNextForTransmit(0)
	assert.False(t, ok)
}

func TestAllUsedDigipeatersNotRetransmitted(t *testing.T) {
	q := txqueue.New(nil, txqueue.DefaultMaxPerChannel)
	e := New([]Route{{FromChan: 0, ToChan: 0, MyCall: "MYCALL-5"}}, dedupe.New(0), q)

	f := mkFrame(ax25.Address{Call: "WIDE1", SSID: 1, Used: true})
	e.Digipeat(0, f)

	_, _, ok := q.RemoveNextForTransmit(0)
	assert.False(t, ok)
}

func TestDuplicateSuppressedOnSameOutgoingChannel(t *testing.T) {
	q := txqueue.New(nil, txqueue.DefaultMaxPerChannel)
	e := New([]Route{{FromChan: 0, ToChan: 0, MyCall: "MYCALL-5"}}, dedupe.New(0), q)

	f1 := mkFrame(ax25.Address{Call: "WIDE1", SSID: 1})
	f2 := mkFrame(ax25.Address{Call: "WIDE1", SSID: 1})
	e.Digipeat(0, f1)
	_, _, ok := q.RemoveNextForTransmit(0)
	require.True(t, ok)

	e.Digipeat(0, f2)
	_, _, ok = q.RemoveNextForTransmit(0)
	assert.False(t, ok, "second identical frame to the same outgoing channel should be suppressed as a duplicate")
}
