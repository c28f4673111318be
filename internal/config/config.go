// Package config defines the typed runtime configuration this TNC loads
// from a YAML file (grounded on the teacher's deviceid.go use of
// gopkg.in/yaml.v3 for its own data file) and overrides from the
// command line via spf13/pflag in cmd/gotnc.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Channel describes one radio channel's demodulator, CSMA, and PTT
// configuration.
type Channel struct {
	Number     int    `yaml:"number"`
	MyCall     string `yaml:"mycall"`
	AudioDevice string `yaml:"audio_device"`
	SampleRate int    `yaml:"sample_rate"`
	BaudRate   int    `yaml:"baud_rate"`

	SlotTime10ms int  `yaml:"slot_time_10ms"`
	Persist      int  `yaml:"persist"`
	TxDelay10ms  int  `yaml:"tx_delay_10ms"`
	TxTail10ms   int  `yaml:"tx_tail_10ms"`
	DWait10ms    int  `yaml:"dwait_10ms"`
	FullDuplex   bool `yaml:"full_duplex"`

	PTT PTTConfig `yaml:"ptt"`
}

// PTTConfig selects and parameterizes one channel's PTT backend.
type PTTConfig struct {
	Method string `yaml:"method"` // "none", "gpio", "hamlib"

	GPIOChip string `yaml:"gpio_chip"`
	GPIOLine int    `yaml:"gpio_line"`
	Inverted bool   `yaml:"inverted"`

	HamlibModel  int    `yaml:"hamlib_model"`
	HamlibDevice string `yaml:"hamlib_device"`
	HamlibBaud   int    `yaml:"hamlib_baud"`
}

// DigipeatRoute mirrors digipeater.Route in serializable form.
type DigipeatRoute struct {
	FromChan int    `yaml:"from_chan"`
	ToChan   int    `yaml:"to_chan"`
	MyCall   string `yaml:"mycall"`
	Alias    string `yaml:"alias"` // additional regexp, beyond the built-in WIDEn-N family
}

// Config is the complete runtime configuration.
type Config struct {
	Channels []Channel `yaml:"channels"`
	Digipeat []DigipeatRoute `yaml:"digipeat"`

	DedupeWindowSeconds int `yaml:"dedupe_window_seconds"`

	KISS struct {
		PTYSymlink string `yaml:"pty_symlink"`
		SerialDevice string `yaml:"serial_device"`
		SerialBaud int `yaml:"serial_baud"`
		TCPAddr string `yaml:"tcp_addr"`
	} `yaml:"kiss"`

	AGW struct {
		TCPAddr string `yaml:"tcp_addr"`
		AdvertiseBonjour bool `yaml:"advertise_bonjour"`
	} `yaml:"agw"`

	LogDir   string `yaml:"log_dir"`
	LogLevel string `yaml:"log_level"`
}

// Load reads and parses a YAML configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &c, nil
}

// Default returns a single-channel configuration with the same timing
// defaults csma.DefaultConfig uses, suitable when no file is given.
func Default() *Config {
	c := &Config{
		DedupeWindowSeconds: 30,
		LogDir:              "./logs",
		LogLevel:            "info",
	}
	c.KISS.TCPAddr = ":8001"
	c.AGW.TCPAddr = ":8000"
	c.Channels = []Channel{{
		Number:       0,
		SampleRate:   44100,
		BaudRate:     1200,
		SlotTime10ms: 10,
		Persist:      63,
		TxDelay10ms:  30,
		TxTail10ms:   10,
	}}
	return c
}
