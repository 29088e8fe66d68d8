package transfer

// Channel is the byte-stream contract the engine runs on: an ordered,
// bidirectional, already-established link to the remote peer with
// backpressure visibility. The WebRTC data channel adapter implements
// it in production; tests use an in-memory pair.
type Channel interface {
	// Send queues data for transmission.
	Send(data []byte) error

	// BufferedAmount returns the bytes queued but not yet handed to
	// the network.
	BufferedAmount() uint64

	// SetBufferedAmountLowThreshold arms OnBufferedAmountLow to fire
	// once BufferedAmount drops below n.
	SetBufferedAmountLowThreshold(n uint64)

	// OnBufferedAmountLow registers the level-triggered drain callback.
	OnBufferedAmountLow(f func())

	// Open reports whether the channel is still usable. A destroyed
	// channel is the engine's cancellation signal.
	Open() bool
}
