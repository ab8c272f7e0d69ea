package leaderboard

import (
	"sync"
	"time"
)

// DefaultGateInterval spaces profile batch lookups.
const DefaultGateInterval = 30 * time.Second

// RateGate opens at most once per interval of wall-clock time.
type RateGate struct {
	mu       sync.Mutex
	interval time.Duration
	now      func() time.Time
	last     time.Time
}

func NewRateGate(interval time.Duration, now func() time.Time) *RateGate {
	if interval <= 0 {
		interval = DefaultGateInterval
	}
	if now == nil {
		now = time.Now
	}
	return &RateGate{interval: interval, now: now}
}

// Allow consumes the gate if it is open.
func (g *RateGate) Allow() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	t := g.now()
	if !g.last.IsZero() && t.Sub(g.last) < g.interval {
		return false
	}
	g.last = t
	return true
}

// NextOpen is the earliest time Allow can succeed again.
func (g *RateGate) NextOpen() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.last.IsZero() {
		return g.now()
	}
	return g.last.Add(g.interval)
}
