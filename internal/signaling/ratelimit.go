package signaling

import (
	"sync"
	"time"
)

// Rate limit defaults: a source address may open at most DefaultRateLimit
// connections within DefaultRateWindow.
const (
	DefaultRateLimit  = 10
	DefaultRateWindow = 60 * time.Second

	// How often fully elapsed windows are swept from memory.
	sweepInterval = 5 * time.Minute
)

// RateLimiter is a sliding-window counter per source address guarding
// connection attempts. Unlike the room registry it is touched directly
// from concurrent HTTP handlers, so it carries its own lock.
type RateLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	hits   map[string][]time.Time
}

// NewRateLimiter creates a limiter allowing limit hits per window for
// each distinct address.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:  limit,
		window: window,
		hits:   map[string][]time.Time{},
	}
}

// Allow records an attempt from addr and reports whether it is within
// the window budget.
func (l *RateLimiter) Allow(addr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	recent := prune(l.hits[addr], now.Add(-l.window))
	if len(recent) >= l.limit {
		l.hits[addr] = recent
		return false
	}
	l.hits[addr] = append(recent, now)
	return true
}

// Sweep drops addresses whose entire window has elapsed. Without this
// the map grows with every address ever seen.
func (l *RateLimiter) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-l.window)
	for addr, times := range l.hits {
		if len(prune(times, cutoff)) == 0 {
			delete(l.hits, addr)
		}
	}
}

// Run sweeps periodically until done is closed.
func (l *RateLimiter) Run(done <-chan struct{}) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.Sweep()
		case <-done:
			return
		}
	}
}

// prune returns the suffix of times newer than cutoff. Times are
// appended in order, so a single scan finds the boundary.
func prune(times []time.Time, cutoff time.Time) []time.Time {
	for i, t := range times {
		if t.After(cutoff) {
			return times[i:]
		}
	}
	return nil
}
