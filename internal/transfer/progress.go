package transfer

import "time"

// Stats is a snapshot of one file transfer's derived metrics.
type Stats struct {
	Transferred uint64
	Total       uint64
	Percent     int

	// Speed is the instantaneous throughput in bytes per second,
	// sampled over a one second window. Zero until the first sample
	// completes.
	Speed float64

	// ETA is remaining bytes over Speed. Zero while Speed is unknown.
	ETA time.Duration
}

// RateTracker measures instantaneous throughput over a rolling one
// second window. It is owned by a single sending or receiving task and
// needs no locking.
type RateTracker struct {
	windowStart time.Time
	windowBytes int64
	speed       float64
}

// NewRateTracker starts an empty measurement window.
func NewRateTracker() *RateTracker {
	return &RateTracker{windowStart: time.Now()}
}

// Reset discards the current window, used when a new file begins.
func (t *RateTracker) Reset() {
	t.windowStart = time.Now()
	t.windowBytes = 0
	t.speed = 0
}

// Add records n transferred bytes and rolls the window once a full
// sampling period has elapsed. It reports whether a new speed sample
// was produced.
func (t *RateTracker) Add(n int) bool {
	t.windowBytes += int64(n)

	elapsed := time.Since(t.windowStart)
	if elapsed < speedSampleWindow {
		return false
	}
	t.speed = float64(t.windowBytes) / elapsed.Seconds()
	t.windowStart = time.Now()
	t.windowBytes = 0
	return true
}

// Speed returns the last sampled throughput in bytes per second.
func (t *RateTracker) Speed() float64 {
	return t.speed
}

// Snapshot derives the full metric set for a file at the given point.
func (t *RateTracker) Snapshot(transferred, total uint64) Stats {
	s := Stats{
		Transferred: transferred,
		Total:       total,
		Speed:       t.speed,
	}
	if total > 0 {
		s.Percent = int(float64(transferred) / float64(total) * 100)
	} else {
		s.Percent = 100
	}
	if t.speed > 0 && total >= transferred {
		remaining := float64(total - transferred)
		s.ETA = time.Duration(remaining / t.speed * float64(time.Second))
	}
	return s
}
