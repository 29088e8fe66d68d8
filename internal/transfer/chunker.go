package transfer

import (
	"sync"
	"time"
)

// ChunkSizeController picks the slice size for outgoing chunks based on
// measured throughput. It re-evaluates every AdaptInterval chunks
// rather than per chunk, which gives enough hysteresis to ignore noisy
// single-sample measurements.
type ChunkSizeController struct {
	mu           sync.Mutex
	size         int
	chunkCount   int
	measureStart time.Time
	measureBytes int64
}

// NewChunkSizeController starts at InitialChunkSize.
func NewChunkSizeController() *ChunkSizeController {
	return &ChunkSizeController{
		size:         InitialChunkSize,
		measureStart: time.Now(),
	}
}

// Size returns the current chunk size in bytes.
func (c *ChunkSizeController) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Record notes a sent chunk of n bytes and adapts the size once enough
// chunks have accumulated since the last measurement.
func (c *ChunkSizeController) Record(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.measureBytes += int64(n)
	c.chunkCount++
	if c.chunkCount%AdaptInterval != 0 {
		return
	}

	elapsed := time.Since(c.measureStart).Seconds()
	if elapsed > 0 {
		c.size = targetChunkSize(float64(c.measureBytes) / elapsed)
	}
	c.measureStart = time.Now()
	c.measureBytes = 0
}

func targetChunkSize(bytesPerSec float64) int {
	switch {
	case bytesPerSec > FastThreshold:
		return MaxChunkSize
	case bytesPerSec > MediumThreshold:
		return MidChunkSize
	default:
		return MinChunkSize
	}
}
