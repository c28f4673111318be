package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadParsesChannelsAndDigipeatRoutes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gotnc.yaml")
	content := `
channels:
  - number: 0
    mycall: N0CALL-1
    sample_rate: 44100
    baud_rate: 1200
    persist: 63
digipeat:
  - from_chan: 0
    to_chan: 0
    mycall: N0CALL-1
kiss:
  tcp_addr: ":8001"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	require.Len(t, c.Channels, 1)
	assert.Equal(t, "N0CALL-1", c.Channels[0].MyCall)
	assert.Equal(t, 63, c.Channels[0].Persist)
	require.Len(t, c.Digipeat, 1)
	assert.Equal(t, 0, c.Digipeat[0].FromChan)
	assert.Equal(t, ":8001", c.KISS.TCPAddr)
}

func TestDefaultIsUsable(t *testing.T) {
	c := Default()
	require.Len(t, c.Channels, 1)
	assert.Equal(t, 30, c.DedupeWindowSeconds)
}
