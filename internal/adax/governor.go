package adax

import (
	"sync"
	"time"
)

// MinInterval is the spacing the Adax API requires between requests of one account.
const MinInterval = 10 * time.Second

// Governor enforces a minimum spacing between outbound requests. Its only
// state is the time of the last request, which the executor records both
// before dispatch and after completion so a slow call does not shrink the gap
// before the next one.
type Governor struct {
	mu       sync.Mutex
	last     time.Time
	interval time.Duration
	now      func() time.Time
}

// NewGovernor creates a governor with the given spacing. A zero interval uses MinInterval.
func NewGovernor(interval time.Duration) *Governor {
	if interval <= 0 {
		interval = MinInterval
	}
	return &Governor{interval: interval, now: time.Now}
}

// Interval returns the enforced spacing
func (g *Governor) Interval() time.Duration {
	return g.interval
}

// Delay returns how long the next request has to wait, never negative.
func (g *Governor) Delay() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.delayLocked()
}

func (g *Governor) delayLocked() time.Duration {
	if g.last.IsZero() {
		return 0
	}
	d := g.last.Add(g.interval).Sub(g.now())
	if d < 0 {
		return 0
	}
	return d
}

// Mark records an outbound request at the current time.
func (g *Governor) Mark() {
	g.mu.Lock()
	g.last = g.now()
	g.mu.Unlock()
}

// TryAcquire marks a request and returns true if the spacing has elapsed.
// Check and mark happen under one lock so two concurrent readers cannot both pass.
func (g *Governor) TryAcquire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.delayLocked() > 0 {
		return false
	}
	g.last = g.now()
	return true
}

// LastRequest returns the time of the last recorded request
func (g *Governor) LastRequest() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}
