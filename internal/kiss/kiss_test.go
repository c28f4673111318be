package kiss

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestEncodeEscapesSpecialBytes(t *testing.T) {
	out := Encode(3, CmdDataFrame, []byte{0xC0, 0xDB, 0x41})
	assert.Equal(t, []byte{FEND, 0x30, FESC, TFEND, FESC, TFESC, 0x41, FEND}, out)
}

func TestDecodeRoundTrip(t *testing.T) {
	var gotChan int
	var gotCmd Command
	var gotBody []byte
	d := NewDecoder(func(channel int, cmd Command, body []byte) {
		gotChan, gotCmd, gotBody = channel, cmd, body
	})

	body := []byte{0x82, 0xA0, 0x88, 0xC0, 0x03, 0xF0, 0xDB, 0xDB}
	frame := Encode(2, CmdDataFrame, body)
	d.Push(frame)

	assert.Equal(t, 2, gotChan)
	assert.Equal(t, CmdDataFrame, gotCmd)
	assert.Equal(t, body, gotBody)
}

func TestDecodeIgnoresEmptyFENDRuns(t *testing.T) {
	calls := 0
	d := NewDecoder(func(int, Command, []byte) { calls++ })
	d.Push([]byte{FEND, FEND, FEND})
	assert.Equal(t, 0, calls)
}

func TestDecodeMultipleFramesBackToBack(t *testing.T) {
	var bodies [][]byte
	d := NewDecoder(func(_ int, _ Command, body []byte) {
		bodies = append(bodies, body)
	})
	d.Push(Encode(0, CmdDataFrame, []byte("one")))
	d.Push(Encode(0, CmdDataFrame, []byte("two")))
	require.Len(t, bodies, 2)
	assert.Equal(t, "one", string(bodies[0]))
	assert.Equal(t, "two", string(bodies[1]))
}

func TestRapidKISSRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		channel := rapid.IntRange(0, 15).Draw(rt, "channel")
		body := rapid.SliceOfN(rapid.Byte(), 0, 64).Draw(rt, "body")

		var got []byte
		d := NewDecoder(func(_ int, _ Command, b []byte) { got = b })
		d.Push(Encode(channel, CmdDataFrame, body))

		if len(body) == 0 {
			return // a zero-length body plus the header byte still decodes; nothing else to assert
		}
		assert.Equal(t, body, got)
	})
}
