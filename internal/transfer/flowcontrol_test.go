package transfer

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// throttled simulates a channel with a stuck outgoing buffer that
// drains when poked.
type throttled struct {
	mu        sync.Mutex
	buffered  uint64
	threshold uint64
	onLow     func()
	open      bool
}

func (c *throttled) Send([]byte) error { return nil }

func (c *throttled) BufferedAmount() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buffered
}

func (c *throttled) SetBufferedAmountLowThreshold(n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.threshold = n
}

func (c *throttled) OnBufferedAmountLow(f func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onLow = f
}

func (c *throttled) Open() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *throttled) drain() {
	c.mu.Lock()
	c.buffered = 0
	f := c.onLow
	c.mu.Unlock()
	if f != nil {
		f()
	}
}

func TestWaitForWindowPassesUnderLimit(t *testing.T) {
	ch := &throttled{buffered: BufferLimit, open: true}
	s := NewSender(ch, SenderEvents{})

	done := make(chan error, 1)
	go func() { done <- s.waitForWindow(MinChunkSize) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("waitForWindow blocked below the buffer limit")
	}
}

func TestWaitForWindowBlocksUntilDrain(t *testing.T) {
	ch := &throttled{buffered: BufferLimit + 1, open: true}
	s := NewSender(ch, SenderEvents{})

	done := make(chan error, 1)
	go func() { done <- s.waitForWindow(MinChunkSize) }()

	select {
	case <-done:
		t.Fatal("waitForWindow returned while the buffer was full")
	case <-time.After(20 * time.Millisecond):
	}

	ch.drain()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("waitForWindow did not observe the drain")
	}

	// The drain threshold tracks the chunk size about to be sent.
	assert.Equal(t, uint64(MinChunkSize), ch.threshold)
}

func TestWaitForWindowFailsWhenChannelDies(t *testing.T) {
	ch := &throttled{buffered: BufferLimit + 1, open: true}
	s := NewSender(ch, SenderEvents{})

	done := make(chan error, 1)
	go func() { done <- s.waitForWindow(MinChunkSize) }()

	time.Sleep(20 * time.Millisecond)
	ch.mu.Lock()
	ch.open = false
	ch.mu.Unlock()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrChannelClosed)
	case <-time.After(time.Second):
		t.Fatal("waitForWindow did not notice the dead channel")
	}
}
