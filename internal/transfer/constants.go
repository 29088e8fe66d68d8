package transfer

import "time"

// Chunk sizing. The sender starts at InitialChunkSize and re-evaluates
// every AdaptInterval chunks against the measured throughput; the
// three-tier ladder avoids oscillating on noisy single samples.
const (
	MinChunkSize     = 64 * 1024
	MidChunkSize     = 128 * 1024
	MaxChunkSize     = 256 * 1024
	InitialChunkSize = 160 * 1024

	AdaptInterval = 20

	// Throughput thresholds: above FastThreshold grow to MaxChunkSize,
	// above MediumThreshold hold MidChunkSize, otherwise shrink.
	FastThreshold   = 2 * 1024 * 1024
	MediumThreshold = 500 * 1024
)

// Flow control. The sender never queues past BufferLimit; once over,
// it waits for the buffered amount to drain below the current chunk
// size before sending more.
const (
	BufferLimit = 1024 * 1024

	// Fallback poll cadence when the channel's level-triggered drain
	// notification doesn't fire.
	drainPollInterval = 50 * time.Millisecond
)

const (
	// Pause before retrying a chunk whose send failed while the
	// channel was still open.
	retryDelay = 100 * time.Millisecond

	// Progress is recomputed every ProgressInterval chunks, bounding
	// update frequency without affecting protocol correctness.
	ProgressInterval = 10

	// Throughput and ETA are sampled over this window.
	speedSampleWindow = time.Second
)
