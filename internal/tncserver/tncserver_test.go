package tncserver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/k4tnc/gotnc/internal/txqueue"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{Port: 2, DataKind: 'K', PID: 0xF0, CallFrom: "N0CALL-1", CallTo: "APRS", DataLen: 7, UserReserved: 0}
	got, err := DecodeHeader(h.Encode())
	require.NoError(t, err)
	assert.Equal(t, h.Port, got.Port)
	assert.Equal(t, h.DataKind, got.DataKind)
	assert.Equal(t, h.PID, got.PID)
	assert.Equal(t, h.CallFrom, got.CallFrom)
	assert.Equal(t, h.CallTo, got.CallTo)
	assert.Equal(t, h.DataLen, got.DataLen)
}

func TestParseUIRequestNoDigipeaters(t *testing.T) {
	h := Header{DataKind: 'M', CallFrom: "N0CALL-1", CallTo: "APRS"}
	f, err := parseUIRequest(h, []byte("!4012.34N/07400.56W-test"))
	require.NoError(t, err)
	assert.Equal(t, "N0CALL", f.Source.Call)
	assert.Equal(t, 1, f.Source.SSID)
	assert.Empty(t, f.Digipeaters)
	assert.Equal(t, "!4012.34N/07400.56W-test", string(f.Info))
}

func TestParseUIRequestWithDigipeaters(t *testing.T) {
	h := Header{DataKind: 'V', CallFrom: "N0CALL", CallTo: "APRS"}
	body := append([]byte{1}, append(make([]byte, 0, 10), []byte("WIDE1-1\x00\x00\x00")...)...)
	body = append(body, []byte("hello")...)
	f, err := parseUIRequest(h, body)
	require.NoError(t, err)
	require.Len(t, f.Digipeaters, 1)
	assert.Equal(t, "WIDE1", f.Digipeaters[0].Call)
	assert.Equal(t, 1, f.Digipeaters[0].SSID)
	assert.Equal(t, "hello", string(f.Info))
}

func TestRegisterCallRejectsDuplicateAndFull(t *testing.T) {
	s := New(nil, txqueue.New(nil, txqueue.DefaultMaxPerChannel), nil)
	assert.Equal(t, byte(1), s.registerCall("N0CALL"))
	assert.Equal(t, byte(0), s.registerCall("N0CALL"), "duplicate registration should fail")

	for i := 0; i < MaxRegisteredCalls; i++ {
		s.registerCall(string(rune('A' + i)))
	}
	assert.Equal(t, byte(0), s.registerCall("OVERFLOW"), "table full should fail registration")
}
