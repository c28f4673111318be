package ax25

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestParseTextScenario(t *testing.T) {
	// Scenario 2 from spec.md §8.
	f, err := ParseText("N0CALL-1>APRS,WIDE1-1:!4012.34N/07400.56W-test")
	require.NoError(t, err)
	assert.Equal(t, "N0CALL", f.Source.Call)
	assert.Equal(t, 1, f.Source.SSID)
	assert.Equal(t, "APRS", f.Destination.Call)
	require.Len(t, f.Digipeaters, 1)
	assert.Equal(t, "WIDE1", f.Digipeaters[0].Call)
	assert.Equal(t, 1, f.Digipeaters[0].SSID)
	assert.False(t, f.Digipeaters[0].Used)
	assert.Equal(t, byte(ControlUI), f.Control)
	assert.Equal(t, byte(PIDNone3), f.PID)
	assert.Equal(t, "!4012.34N/07400.56W-test", string(f.Info))
}

func TestTextRoundTrip(t *testing.T) {
	for _, text := range []string{
		"N0CALL>APRS:hello",
		"N0CALL-1>APRS,WIDE1-1:info",
		"N0CALL>APRS,RPT1*,RPT2,RPT3:info",
		"N0CALL>APRS,RPT1,RPT2*,RPT3:info",
	} {
		f, err := ParseText(text)
		require.NoError(t, err)
		assert.Equal(t, text, f.Format())
	}
}

func TestByteRoundTrip(t *testing.T) {
	f := NewUI(Address{Call: "N0CALL", SSID: 1}, Address{Call: "APRS"},
		[]Address{{Call: "WIDE1", SSID: 1}}, []byte("hello"))
	encoded := f.EncodeBytes()
	decoded, err := DecodeBytes(encoded)
	require.NoError(t, err)
	assert.Equal(t, f.Source, decoded.Source)
	assert.Equal(t, f.Destination, decoded.Destination)
	assert.Equal(t, f.Digipeaters, decoded.Digipeaters)
	assert.Equal(t, f.Control, decoded.Control)
	assert.Equal(t, f.PID, decoded.PID)
	assert.Equal(t, f.Info, decoded.Info)
}

func TestDigipeatMark(t *testing.T) {
	f, err := ParseText("SRC>DST,RPT1,RPT2,RPT3:info")
	require.NoError(t, err)
	assert.Equal(t, "SRC>DST,RPT1,RPT2,RPT3:info", f.Format())

	f2 := f.WithDigipeaterUsed(0)
	assert.Equal(t, "SRC>DST,RPT1*,RPT2,RPT3:info", f2.Format())

	f3 := f2.WithDigipeaterUsed(1)
	assert.Equal(t, "SRC>DST,RPT1,RPT2*,RPT3:info", f3.Format())
}

func genCallsign(t *rapid.T) Address {
	letters := "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	n := rapid.IntRange(1, 6).Draw(t, "len")
	b := make([]byte, n)
	for i := range b {
		b[i] = letters[rapid.IntRange(0, len(letters)-1).Draw(t, "ch")]
	}
	return Address{Call: string(b), SSID: rapid.IntRange(0, 15).Draw(t, "ssid")}
}

func TestRapidByteRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		src := genCallsign(t)
		dst := genCallsign(t)
		nDigi := rapid.IntRange(0, 8).Draw(t, "ndigi")
		digis := make([]Address, nDigi)
		for i := range digis {
			digis[i] = genCallsign(t)
			digis[i].Used = rapid.Bool().Draw(t, "used")
		}
		infoLen := rapid.IntRange(0, 64).Draw(t, "infolen")
		info := make([]byte, infoLen)
		for i := range info {
			info[i] = byte(rapid.IntRange(0, 255).Draw(t, "b"))
		}

		f := NewUI(src, dst, digis, info)
		decoded, err := DecodeBytes(f.EncodeBytes())
		require.NoError(t, err)
		assert.Equal(t, f.Source, decoded.Source)
		assert.Equal(t, f.Destination, decoded.Destination)
		assert.Equal(t, f.Digipeaters, decoded.Digipeaters)
		assert.Equal(t, f.Info, decoded.Info)
	})
}
