// Package runtime wires every component package into one running TNC:
// it builds the demodulator channels, transmit queues, digipeater and
// dedupe engines, CSMA schedulers, KISS and AGW-protocol front ends, and
// drives them from the audio and network I/O threads §5 describes.
package runtime

import (
	"context"
	"fmt"
	"net"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/k4tnc/gotnc/internal/audio"
	"github.com/k4tnc/gotnc/internal/ax25"
	"github.com/k4tnc/gotnc/internal/config"
	"github.com/k4tnc/gotnc/internal/csma"
	"github.com/k4tnc/gotnc/internal/dedupe"
	"github.com/k4tnc/gotnc/internal/demod"
	"github.com/k4tnc/gotnc/internal/digipeater"
	"github.com/k4tnc/gotnc/internal/hdlc"
	"github.com/k4tnc/gotnc/internal/kiss"
	"github.com/k4tnc/gotnc/internal/kiss/endpoint"
	"github.com/k4tnc/gotnc/internal/mheard"
	"github.com/k4tnc/gotnc/internal/pktlog"
	"github.com/k4tnc/gotnc/internal/ptt"
	"github.com/k4tnc/gotnc/internal/tncserver"
	"github.com/k4tnc/gotnc/internal/tone"
	"github.com/k4tnc/gotnc/internal/txqueue"
)

// System is one fully wired TNC instance: one demodulator Channel, one
// transmit queue, and one CSMA scheduler per configured radio channel,
// sharing a single dedupe table, digipeater engine, and optional AGW
// server across all of them.
type System struct {
	log *log.Logger
	cfg *config.Config

	queue     *txqueue.Queue
	dedup     *dedupe.Table
	digi      *digipeater.Engine
	mheard    *mheard.Table
	ptt       *ptt.Multi
	scheduler *csma.Scheduler
	channels  map[int]*demod.Channel
	devices   map[int]audio.Device
	pktlogger *pktlog.Logger
	agwServer *tncserver.Server
	kissTCP   *endpoint.TCPListener

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a System from cfg, opening each channel's audio device and
// PTT backend, but does not yet start any goroutines; call Run for that.
func New(cfg *config.Config, logger *log.Logger) (*System, error) {
	s := &System{
		log:      logger,
		cfg:      cfg,
		queue:    txqueue.New(logger, txqueue.DefaultMaxPerChannel),
		mheard:   mheard.New(),
		ptt:      ptt.NewMulti(),
		channels: make(map[int]*demod.Channel),
		devices:  make(map[int]audio.Device),
	}

	window := time.Duration(cfg.DedupeWindowSeconds) * time.Second
	s.dedup = dedupe.New(window)

	routes, err := buildRoutes(cfg.Digipeat)
	if err != nil {
		return nil, err
	}
	s.digi = digipeater.New(routes, s.dedup, s.queue)

	if cfg.LogDir != "" {
		lg, err := pktlog.New(cfg.LogDir, "")
		if err != nil {
			return nil, fmt.Errorf("runtime: pktlog: %w", err)
		}
		s.pktlogger = lg
	}

	tx := &audioTransmitter{devices: s.devices, params: make(map[int]tone.Params)}
	for _, ch := range cfg.Channels {
		ch := ch
		s.channels[ch.Number] = demod.NewChannel(ch.Number, demodConfigs(ch), func(ev demod.FrameEvent) {
			s.onFrame(ch.Number, ev)
		})
		if err := s.configurePTT(ch); err != nil {
			return nil, err
		}
		dev, err := openChannelAudio(ch)
		if err != nil {
			return nil, fmt.Errorf("runtime: channel %d audio: %w", ch.Number, err)
		}
		s.devices[ch.Number] = dev
		tx.params[ch.Number] = toneParamsFor(ch)
	}

	s.scheduler = csma.New(s.queue, channelDCD{s.channels}, s.ptt, tx, logger)
	for _, ch := range cfg.Channels {
		s.scheduler.Configure(ch.Number, csma.Config{
			SlotTime10ms: orDefault(ch.SlotTime10ms, 10),
			Persist:      orDefault(ch.Persist, 63),
			TxDelay10ms:  orDefault(ch.TxDelay10ms, 30),
			TxTail10ms:   orDefault(ch.TxTail10ms, 10),
			DWait10ms:    ch.DWait10ms,
			FullDuplex:   ch.FullDuplex,
		})
	}

	if cfg.AGW.TCPAddr != "" {
		ports := make(map[int]tncserver.PortInfo)
		for _, ch := range cfg.Channels {
			ports[ch.Number] = tncserver.PortInfo{Description: fmt.Sprintf("chan %d %s", ch.Number, ch.MyCall)}
		}
		s.agwServer = tncserver.New(ports, s.queue, logger)
	}

	return s, nil
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func demodConfigs(ch config.Channel) []demod.Config {
	rate := ch.SampleRate
	if rate == 0 {
		rate = 44100
	}
	if ch.BaudRate == 9600 {
		return []demod.Config{demod.DefaultG3RUH9600(rate)}
	}
	return []demod.Config{demod.DefaultAFSK1200(rate)}
}

func toneParamsFor(ch config.Channel) tone.Params {
	rate := ch.SampleRate
	if rate == 0 {
		rate = 44100
	}
	baud := ch.BaudRate
	if baud == 0 {
		baud = 1200
	}
	if baud == 9600 {
		return tone.Params{SampleRate: rate, BaudRate: baud, Baseband: true, Amplitude: 1.0}
	}
	return tone.Params{SampleRate: rate, BaudRate: baud, MarkHz: 1200, SpaceHz: 2200, Amplitude: 1.0}
}

// openChannelAudio opens the device named by ch.AudioDevice: a live
// soundcard by default, or an offline WAV file when the name carries a
// "wav:" prefix (used for bench-testing against recorded off-air audio).
func openChannelAudio(ch config.Channel) (audio.Device, error) {
	if strings.HasPrefix(ch.AudioDevice, "wav:") {
		return audio.OpenWAVFile(strings.TrimPrefix(ch.AudioDevice, "wav:"))
	}
	rate := ch.SampleRate
	if rate == 0 {
		rate = 44100
	}
	return audio.OpenPortAudioDevice(rate, 1024)
}

func buildRoutes(cfgRoutes []config.DigipeatRoute) ([]digipeater.Route, error) {
	out := make([]digipeater.Route, 0, len(cfgRoutes))
	for _, r := range cfgRoutes {
		var alias *regexp.Regexp
		if r.Alias != "" {
			re, err := regexp.Compile(r.Alias)
			if err != nil {
				return nil, fmt.Errorf("runtime: digipeat alias regexp %q: %w", r.Alias, err)
			}
			alias = re
		}
		out = append(out, digipeater.Route{FromChan: r.FromChan, ToChan: r.ToChan, MyCall: r.MyCall, Alias: alias})
	}
	return out, nil
}

func (s *System) configurePTT(ch config.Channel) error {
	switch ch.PTT.Method {
	case "", "none":
		s.ptt.Set(ch.Number, ptt.None{})
	case "gpio":
		d, err := ptt.OpenGPIO(ch.PTT.GPIOChip, ch.PTT.GPIOLine, ch.PTT.Inverted)
		if err != nil {
			return fmt.Errorf("runtime: channel %d PTT: %w", ch.Number, err)
		}
		s.ptt.Set(ch.Number, d)
	case "hamlib":
		d, err := ptt.OpenHamlib(ch.PTT.HamlibModel, ch.PTT.HamlibDevice, ch.PTT.HamlibBaud)
		if err != nil {
			return fmt.Errorf("runtime: channel %d PTT: %w", ch.Number, err)
		}
		s.ptt.Set(ch.Number, d)
	default:
		return fmt.Errorf("runtime: unknown PTT method %q for channel %d", ch.PTT.Method, ch.Number)
	}
	return nil
}

// onFrame is the demodulator's receive callback: it records the heard
// station, logs the frame, runs digipeat/dedupe, and fans it to any AGW
// clients listening.
func (s *System) onFrame(channel int, ev demod.FrameEvent) {
	f, err := ax25.DecodeBytes(ev.FrameData)
	if err != nil {
		if s.log != nil {
			s.log.Warn("dropped frame with unparseable AX.25 content", "channel", channel, "err", err)
		}
		return
	}
	s.mheard.Record(f.Source.String(), channel, countUsedDigis(f))
	if s.pktlogger != nil {
		if err := s.pktlogger.Record(channel, f, ev.Level); err != nil && s.log != nil {
			s.log.Error("pktlog write failed", "err", err)
		}
	}
	if s.agwServer != nil {
		s.agwServer.BroadcastFrame(channel, f)
	}
	s.digi.Digipeat(channel, f)
}

func countUsedDigis(f *ax25.Frame) int {
	n := 0
	for _, d := range f.Digipeaters {
		if d.Used {
			n++
		}
	}
	return n
}

// channelDCD adapts the per-channel demod.Channel map to csma.DCDSource.
type channelDCD struct {
	channels map[int]*demod.Channel
}

func (c channelDCD) DataCarrierDetect(channel int) bool {
	ch, ok := c.channels[channel]
	return ok && ch.DataCarrierDetect()
}

// audioTransmitter adapts the tone generator and audio device to
// csma.Transmitter: it HDLC-encodes and NRZI-encodes a frame, drives a
// tone.Generator over it, and writes the resulting samples to the
// channel's audio device.
type audioTransmitter struct {
	devices map[int]audio.Device
	params  map[int]tone.Params
}

func (t *audioTransmitter) TransmitPreamble(channel int, flagOctets int) {
	dev, ok := t.devices[channel]
	if !ok {
		return
	}
	gen := tone.New(t.params[channel])
	var bits []int
	for i := 0; i < flagOctets; i++ {
		for b := 0; b < 8; b++ {
			bits = append(bits, (0x7E>>uint(b))&1)
		}
	}
	nrzi := hdlc.NRZIEncode(&hdlc.NRZIState{}, bits)
	var samples []float32
	for _, b := range nrzi {
		samples = gen.PutBit(samples, b)
	}
	dev.WriteSamples(samples)
}

func (t *audioTransmitter) TransmitFrame(channel int, frame *ax25.Frame) {
	dev, ok := t.devices[channel]
	if !ok {
		return
	}
	gen := tone.New(t.params[channel])
	bits := hdlc.EncodeFrame(frame.EncodeBytes())
	nrzi := hdlc.NRZIEncode(&hdlc.NRZIState{}, bits)
	var samples []float32
	for _, b := range nrzi {
		samples = gen.PutBit(samples, b)
	}
	dev.WriteSamples(samples)
}

// Run starts the audio-receive loop for every channel, the CSMA
// scheduler for every channel, and the AGW/KISS network front ends, and
// blocks until ctx is cancelled.
func (s *System) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	for n := range s.devices {
		n := n
		ch := s.channels[n]
		device := s.devices[n]
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runAudioLoop(ctx, device, ch)
		}()
	}

	for n := range s.channels {
		n := n
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.scheduler.Run(ctx, n)
		}()
	}

	if s.agwServer != nil {
		ln, err := listenTCP(s.cfg.AGW.TCPAddr)
		if err != nil {
			return fmt.Errorf("runtime: agw listen: %w", err)
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.agwServer.Serve(ln)
		}()
		go func() {
			<-ctx.Done()
			ln.Close()
		}()
	}

	if s.cfg.KISS.TCPAddr != "" {
		ln, err := endpoint.ListenTCP(s.cfg.KISS.TCPAddr, s.log)
		if err != nil {
			return fmt.Errorf("runtime: kiss tcp listen: %w", err)
		}
		s.kissTCP = ln
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveKISSClients(ctx, ln)
		}()
	}

	<-ctx.Done()
	return nil
}

func listenTCP(addr string) (net.Listener, error) {
	return net.Listen("tcp", addr)
}

func (s *System) runAudioLoop(ctx context.Context, dev audio.Device, ch *demod.Channel) {
	buf := make([]float32, 256)
	for ctx.Err() == nil {
		n, err := dev.ReadSamples(buf)
		if err != nil {
			if s.log != nil {
				s.log.Error("audio read failed", "channel", ch.Number, "err", err)
			}
			return
		}
		if n == 0 {
			return // offline source (e.g. WAV file) exhausted
		}
		for _, sample := range buf[:n] {
			ch.ProcessSample(float64(sample))
		}
	}
}

func (s *System) serveKISSClients(ctx context.Context, ln *endpoint.TCPListener) {
	for {
		ep, err := ln.Accept()
		if err != nil {
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleKISSEndpoint(ctx, ep)
		}()
	}
}

func (s *System) handleKISSEndpoint(ctx context.Context, ep endpoint.Endpoint) {
	defer ep.Close()
	dec := kiss.NewDecoder(func(channel int, cmd kiss.Command, body []byte) {
		s.handleKISSFrame(channel, cmd, body)
	})
	buf := make([]byte, 1024)
	for ctx.Err() == nil {
		n, err := ep.Read(buf)
		if err != nil {
			return
		}
		dec.Push(buf[:n])
	}
}

func (s *System) handleKISSFrame(channel int, cmd kiss.Command, body []byte) {
	switch cmd {
	case kiss.CmdDataFrame:
		f, err := ax25.DecodeBytes(body)
		if err != nil {
			if s.log != nil {
				s.log.Warn("KISS client sent unparseable frame", "err", err)
			}
			return
		}
		prio := txqueue.Low
		for _, d := range f.Digipeaters {
			if d.Used {
				prio = txqueue.High
				break
			}
		}
		s.queue.Append(channel, prio, f)
	case kiss.CmdTXDelay:
		s.setCSMAParam(channel, body, func(cfg *csma.Config, b byte) { cfg.TxDelay10ms = int(b) })
	case kiss.CmdPersistence:
		s.setCSMAParam(channel, body, func(cfg *csma.Config, b byte) { cfg.Persist = int(b) })
	case kiss.CmdSlotTime:
		s.setCSMAParam(channel, body, func(cfg *csma.Config, b byte) { cfg.SlotTime10ms = int(b) })
	case kiss.CmdTXTail:
		s.setCSMAParam(channel, body, func(cfg *csma.Config, b byte) { cfg.TxTail10ms = int(b) })
	case kiss.CmdFullDuplex:
		s.setCSMAParam(channel, body, func(cfg *csma.Config, b byte) { cfg.FullDuplex = b != 0 })
	case kiss.CmdSetHardware:
		// No hardware-specific parameters are defined for this TNC.
	}
}

// setCSMAParam reads body's single parameter octet and applies it to
// channel's current CSMA config, the read-modify-write path every
// KISS parameter command (TXDELAY, PERSISTENCE, SLOTTIME, TXTAIL,
// FULLDUP) shares.
func (s *System) setCSMAParam(channel int, body []byte, apply func(*csma.Config, byte)) {
	b, err := kiss.ParamByte(body)
	if err != nil {
		return
	}
	cfg := s.scheduler.ConfigFor(channel)
	apply(&cfg, b)
	s.scheduler.Configure(channel, cfg)
}

// Shutdown cancels every running goroutine and closes owned resources.
// The CSMA scheduler finishes its in-flight frame and TX-tail before its
// Run loop returns, per §5's shutdown ordering guarantee.
func (s *System) Shutdown() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.queue.Close()
	if s.kissTCP != nil {
		s.kissTCP.Close()
	}
	s.wg.Wait()
	if s.pktlogger != nil {
		s.pktlogger.Close()
	}
	s.ptt.Close()
	for _, d := range s.devices {
		d.Close()
	}
}
