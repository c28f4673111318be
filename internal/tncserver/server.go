// Package tncserver implements the AGW-style TCP TNC protocol §4.10
// describes: a fixed 36-octet header per message, a small set of
// request "datakinds," and reply/notification messages of the same
// shape sent back to connected clients.
package tncserver

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/brutella/dnssd"
	"github.com/charmbracelet/log"

	"github.com/k4tnc/gotnc/internal/ax25"
	"github.com/k4tnc/gotnc/internal/txqueue"
)

// PortInfo describes one channel's capabilities, reported in response
// to a 'g' request.
type PortInfo struct {
	Description string
	BaudCode    byte
	Traffic     byte
	TXDelay     byte
	TXTail      byte
	Persist     byte
	SlotTime    byte
	MaxFrame    byte
}

// MaxRegisteredCalls bounds how many callsigns one server instance can
// have registered at once, matching the teacher's fixed-size callsign
// table.
const MaxRegisteredCalls = 32

// Server accepts AGW-protocol clients, dispatches their requests against
// the shared transmit queues, and fans received frames back out to
// clients that asked for raw ('k') or monitor ('m') delivery.
type Server struct {
	ports  map[int]PortInfo
	queue  *txqueue.Queue
	log    *log.Logger

	mu       sync.Mutex
	clients  map[*client]struct{}
	regCalls map[string]bool
}

// New builds a Server over the given per-channel port descriptions and
// shared transmit queue.
func New(ports map[int]PortInfo, queue *txqueue.Queue, logger *log.Logger) *Server {
	return &Server{
		ports:    ports,
		queue:    queue,
		log:      logger,
		clients:  make(map[*client]struct{}),
		regCalls: make(map[string]bool),
	}
}

// AdvertiseBonjour registers the server under _agwpe._tcp via DNS-SD so
// local clients can discover it without a configured host:port. Blocks
// responding to mDNS queries until ctx is cancelled; run it in its own
// goroutine.
func AdvertiseBonjour(ctx context.Context, name string, port int) error {
	responder, err := dnssd.NewResponder()
	if err != nil {
		return fmt.Errorf("tncserver: new dnssd responder: %w", err)
	}
	cfg := dnssd.Config{
		Name: name,
		Type: "_agwpe._tcp",
		Port: port,
	}
	service, err := dnssd.NewService(cfg)
	if err != nil {
		return fmt.Errorf("tncserver: new dnssd service: %w", err)
	}
	if _, err := responder.Add(service); err != nil {
		return fmt.Errorf("tncserver: register dnssd service: %w", err)
	}
	return responder.Respond(ctx)
}

// Serve accepts connections on ln until it returns an error (e.g. from
// Close), handling each client on its own goroutine.
func (s *Server) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		c := &client{conn: conn, server: s}
		s.mu.Lock()
		s.clients[c] = struct{}{}
		s.mu.Unlock()
		go s.handle(c)
	}
}

func (s *Server) handle(c *client) {
	defer func() {
		s.mu.Lock()
		delete(s.clients, c)
		s.mu.Unlock()
		c.conn.Close()
	}()

	for {
		c.conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		var hdr [HeaderLen]byte
		if _, err := io.ReadFull(c.conn, hdr[:]); err != nil {
			return
		}
		h, err := DecodeHeader(hdr[:])
		if err != nil {
			if s.log != nil {
				s.log.Error("bad AGW header", "err", err)
			}
			return
		}
		body := make([]byte, h.DataLen)
		if h.DataLen > 0 {
			if _, err := io.ReadFull(c.conn, body); err != nil {
				return
			}
		}
		if err := s.dispatch(c, h, body); err != nil {
			if s.log != nil {
				s.log.Warn("AGW request failed", "kind", string(h.DataKind), "err", err)
			}
		}
	}
}

type client struct {
	conn    net.Conn
	server  *Server
	mu      sync.Mutex
	raw     bool
	monitor bool
}

func (c *client) send(h Header, body []byte) error {
	h.DataLen = int32(len(body))
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.conn.Write(h.Encode()); err != nil {
		return err
	}
	if len(body) > 0 {
		if _, err := c.conn.Write(body); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) dispatch(c *client, h Header, body []byte) error {
	switch h.DataKind {
	case 'R':
		return c.send(Header{DataKind: 'R'}, versionBody())
	case 'G':
		return c.send(Header{DataKind: 'G'}, s.portListBody())
	case 'g':
		return c.send(Header{DataKind: 'g', Port: h.Port}, s.portCapsBody(int(h.Port)))
	case 'k':
		c.mu.Lock()
		c.raw = true
		c.mu.Unlock()
		return nil
	case 'm':
		c.mu.Lock()
		c.monitor = true
		c.mu.Unlock()
		return nil
	case 'V', 'M':
		return s.transmitUI(h, body)
	case 'K':
		return s.transmitRaw(h, body)
	case 'X':
		return c.send(Header{DataKind: 'X'}, []byte{s.registerCall(h.CallFrom)})
	case 'x':
		s.unregisterCall(h.CallFrom)
		return nil
	case 'y':
		count := s.queue.Count(int(h.Port), txqueue.High) + s.queue.Count(int(h.Port), txqueue.Low)
		out := make([]byte, 4)
		binary.LittleEndian.PutUint32(out, uint32(count))
		return c.send(Header{DataKind: 'y', Port: h.Port}, out)
	case 'C', 'v', 'c', 'D', 'd':
		return fmt.Errorf("tncserver: connected-mode request %q not implemented", string(h.DataKind))
	default:
		return fmt.Errorf("tncserver: unrecognized datakind %q", string(h.DataKind))
	}
}

func versionBody() []byte {
	out := make([]byte, 8)
	binary.LittleEndian.PutUint32(out[0:4], 2005) // major
	binary.LittleEndian.PutUint32(out[4:8], 127)  // minor
	return out
}

func (s *Server) portListBody() []byte {
	out := fmt.Sprintf("%d;", len(s.ports))
	for i := 0; i < len(s.ports); i++ {
		if p, ok := s.ports[i]; ok {
			out += fmt.Sprintf("Port%d %s;", i+1, p.Description)
		}
	}
	return []byte(out)
}

func (s *Server) portCapsBody(channel int) []byte {
	p := s.ports[channel]
	out := make([]byte, 12)
	out[0] = p.BaudCode
	out[1] = p.Traffic
	out[2] = p.TXDelay
	out[3] = p.TXTail
	out[4] = p.Persist
	out[5] = p.SlotTime
	out[6] = p.MaxFrame
	out[7] = byte(len(s.clients))
	binary.LittleEndian.PutUint32(out[8:12], 0)
	return out
}

func (s *Server) registerCall(call string) byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.regCalls[call] {
		return 0
	}
	if len(s.regCalls) >= MaxRegisteredCalls {
		return 0
	}
	s.regCalls[call] = true
	return 1
}

func (s *Server) unregisterCall(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.regCalls, call)
}

// transmitUI builds a UI frame from an AGW 'V'/'M' request body and
// enqueues it low-priority, per §4.10.
func (s *Server) transmitUI(h Header, body []byte) error {
	f, err := parseUIRequest(h, body)
	if err != nil {
		return err
	}
	s.queue.Append(int(h.Port), txqueue.Low, f)
	return nil
}

// transmitRaw decodes an AGW 'K' request body as an on-air AX.25 frame
// (minus CRC) and enqueues it, high priority if any digipeater's used
// bit is already set (it's mid-relay), low priority otherwise.
func (s *Server) transmitRaw(h Header, body []byte) error {
	f, err := ax25.DecodeBytes(body)
	if err != nil {
		return fmt.Errorf("tncserver: decode raw K frame: %w", err)
	}
	prio := txqueue.Low
	for _, d := range f.Digipeaters {
		if d.Used {
			prio = txqueue.High
			break
		}
	}
	s.queue.Append(int(h.Port), prio, f)
	return nil
}

// BroadcastFrame delivers a received frame to every client that enabled
// raw ('k') reception as an outbound 'K' message, and to monitor ('m')
// clients as a formatted 'U' message.
func (s *Server) BroadcastFrame(channel int, f *ax25.Frame) {
	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		c.mu.Lock()
		raw, mon := c.raw, c.monitor
		c.mu.Unlock()
		if raw {
			body := append([]byte{0}, f.EncodeBytes()...)
			c.send(Header{DataKind: 'K', Port: byte(channel), CallFrom: f.Source.String(), CallTo: f.Destination.String()}, body)
		}
		if mon {
			c.send(Header{DataKind: 'U', Port: byte(channel)}, monitorBody(channel, f))
		}
	}
}

func monitorBody(channel int, f *ax25.Frame) []byte {
	now := time.Now().Format("15:04:05")
	text := fmt.Sprintf(" %d:Fm %s To %s <UI pid=%02X Len=%d >[%s]\r%s\r\r",
		channel, f.Source.String(), f.Destination.String(), f.PID, len(f.Info), now, f.Info)
	return append([]byte(text), 0)
}
