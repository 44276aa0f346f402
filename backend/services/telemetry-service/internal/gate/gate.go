// Package gate enforces a minimum interval between persisted samples of an
// ingestion stream.
package gate

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Scope decides how samples are grouped into streams.
type Scope string

const (
	// ScopeDevice keeps one stream per device id.
	ScopeDevice Scope = "device"
	// ScopeGlobal funnels every device through a single stream.
	ScopeGlobal Scope = "global"
)

const globalKey = "*"

type stream struct {
	limiter   *rate.Limiter
	lastAdmit time.Time
}

// Gate admits at most one sample per interval and stream. A denied sample is
// dropped by the caller; nothing is queued.
type Gate struct {
	mu        sync.Mutex
	interval  time.Duration
	scope     Scope
	streams   map[string]*stream
	lastPrune time.Time
}

// New returns a gate. An interval <= 0 admits everything.
func New(interval time.Duration, scope Scope) *Gate {
	if scope != ScopeGlobal {
		scope = ScopeDevice
	}
	return &Gate{
		interval: interval,
		scope:    scope,
		streams:  make(map[string]*stream),
	}
}

// Interval returns the configured minimum spacing.
func (g *Gate) Interval() time.Duration { return g.interval }

// Scope returns the stream grouping in effect.
func (g *Gate) Scope() Scope { return g.scope }

// Admit reports whether a sample for deviceID observed at now may be written.
// The sample is denied when the stream's previous admit is less than one
// interval before now; on admit now becomes the stream's last write time.
func (g *Gate) Admit(deviceID string, now time.Time) bool {
	if g.interval <= 0 {
		return true
	}
	key := deviceID
	if g.scope == ScopeGlobal {
		key = globalKey
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.prune(now)

	s, ok := g.streams[key]
	if !ok {
		s = &stream{limiter: rate.NewLimiter(rate.Every(g.interval), 1)}
		g.streams[key] = s
	}
	if !s.limiter.AllowN(now, 1) {
		return false
	}
	s.lastAdmit = now
	return true
}

// Streams reports how many streams are currently tracked.
func (g *Gate) Streams() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.streams)
}

// prune forgets streams idle for two intervals. A limiter idle that long is
// full again, so a fresh one behaves identically.
func (g *Gate) prune(now time.Time) {
	if now.Sub(g.lastPrune) < g.interval {
		return
	}
	g.lastPrune = now
	for key, s := range g.streams {
		if now.Sub(s.lastAdmit) >= 2*g.interval {
			delete(g.streams, key)
		}
	}
}
