// Package digipeater implements the AX.25/APRS digipeat rules §4.8
// describes: extracting the first unused digipeater address, applying
// alias (own-call or WIDEn-N) matching to decide whether to consume a
// hop, and suppressing recent duplicates before handing the rewritten
// frame to the outgoing channel's transmit queue.
package digipeater

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/k4tnc/gotnc/internal/ax25"
	"github.com/k4tnc/gotnc/internal/dedupe"
	"github.com/k4tnc/gotnc/internal/txqueue"
)

// wideAlias matches the generic WIDEn-N / TRACEn-N / SSn-N digipeater
// alias family, per §8 glossary's WIDEn-N definition. On the air the
// "-N" hop count lives in the address SSID, not the callsign text
// (ax25.decodeAddress splits it out), so this only matches the fixed
// "WIDEn" callsign; the remaining hop count is read from Address.SSID.
var wideAlias = regexp.MustCompile(`^(WIDE|TRACE|RELAY|SS)[0-9]$`)

// Route describes one configured from-channel -> to-channel digipeat
// path, matching the teacher's per from/to channel enable+alias+mycall
// configuration in digipeater.go.
type Route struct {
	FromChan int
	ToChan   int

	MyCall string // this station's callsign on ToChan, with optional SSID
	Alias  *regexp.Regexp // additional "digipeat once" aliases, nil for none
}

// Engine holds the configured routes, the shared dedupe table, and the
// outgoing transmit queue, and applies the §4.8 algorithm to every
// received frame.
type Engine struct {
	routes []Route
	dedup  *dedupe.Table
	queue  *txqueue.Queue
}

// New builds an Engine. dedup and queue are shared with the rest of the
// runtime (one dedupe table, one queue per channel set).
func New(routes []Route, dedup *dedupe.Table, queue *txqueue.Queue) *Engine {
	return &Engine{routes: routes, dedup: dedup, queue: queue}
}

// Digipeat applies every configured route whose FromChan matches
// fromChan to f, enqueuing a rewritten copy on each route's ToChan when
// the route's match+dedupe checks pass. Routes are applied in the order
// they were configured. Same-channel routes (used for APRS "fratricide"
// same-frequency digipeating) are enqueued high-priority exactly like
// cross-channel routes; the queue
// and CSMA scheduler, not this package, are responsible for any timing
// difference between them.
func (e *Engine) Digipeat(fromChan int, f *ax25.Frame) {
	for _, r := range e.routes {
		if r.FromChan != fromChan {
			continue
		}
		result := e.match(r, f)
		if result == nil {
			continue
		}
		if e.dedup.CheckAndRemember(result, r.ToChan) {
			continue
		}
		e.queue.Append(r.ToChan, txqueue.High, result)
	}
}

// match implements §4.8 steps 1-2: find the first unused digipeater,
// decide whether it matches this station's call or a WIDEn-N-style
// alias, and return a rewritten frame with that address marked used (and,
// for WIDEn-N, the hop count decremented) or nil if this route doesn't
// apply.
func (e *Engine) match(r Route, f *ax25.Frame) *ax25.Frame {
	idx := f.FirstUnusedDigipeater()
	if idx < 0 {
		return nil
	}
	addr := f.Digipeaters[idx]

	if matchesCall(addr, r.MyCall) {
		return f.WithDigipeater(idx, ax25.Address{Call: callOf(r.MyCall), SSID: ssidOf(r.MyCall), Used: true})
	}

	if r.Alias != nil && r.Alias.MatchString(addr.Call) {
		return f.WithDigipeater(idx, ax25.Address{Call: callOf(r.MyCall), SSID: ssidOf(r.MyCall), Used: true})
	}

	if wideAlias.MatchString(addr.Call) {
		if addr.SSID <= 0 {
			return nil
		}
		n := addr.SSID - 1
		return f.WithDigipeater(idx, ax25.Address{Call: addr.Call, SSID: n, Used: n == 0})
	}

	return nil
}

func matchesCall(addr ax25.Address, mycall string) bool {
	return strings.EqualFold(addr.Call, callOf(mycall)) && addr.SSID == ssidOf(mycall)
}

func callOf(s string) string {
	if i := strings.IndexByte(s, '-'); i >= 0 {
		return s[:i]
	}
	return s
}

func ssidOf(s string) int {
	i := strings.IndexByte(s, '-')
	if i < 0 {
		return 0
	}
	n, err := strconv.Atoi(s[i+1:])
	if err != nil {
		return 0
	}
	return n
}
