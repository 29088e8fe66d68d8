package signalclient

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jannskiee/floe/internal/signaling"
)

func newTestHandler() (*Handler, chan *signaling.Message) {
	incoming := make(chan *signaling.Message, 16)
	client := &Client{
		incoming: incoming,
		outgoing: make(chan *signaling.Message, 16),
	}
	h := NewHandler(client)
	go h.Start()
	return h, incoming
}

func TestHandlerRoutesTypedEvents(t *testing.T) {
	h, incoming := newTestHandler()
	defer close(incoming)

	incoming <- &signaling.Message{
		Type:   signaling.MessageTypeRoomJoined,
		RoomID: "room-1",
		Role:   signaling.RoleSender,
	}
	joined := <-h.RoomJoined
	assert.Equal(t, "room-1", joined.RoomID)
	assert.Equal(t, signaling.RoleSender, joined.Role)

	incoming <- &signaling.Message{
		Type:         signaling.MessageTypeUserConnected,
		ConnectionID: "conn-b",
	}
	assert.Equal(t, "conn-b", <-h.UserConnected)

	incoming <- &signaling.Message{
		Type:   signaling.MessageTypeSignal,
		Sender: "conn-b",
		Signal: json.RawMessage(`{"type":"offer"}`),
	}
	sig := <-h.Signal
	assert.Equal(t, "conn-b", sig.Sender)
	assert.JSONEq(t, `{"type":"offer"}`, string(sig.Payload))

	incoming <- &signaling.Message{Type: signaling.MessageTypeRoomFull}
	select {
	case <-h.RoomFull:
	case <-time.After(time.Second):
		t.Fatal("room-full never routed")
	}

	incoming <- &signaling.Message{Type: signaling.MessageTypePeerDisconnected}
	select {
	case <-h.PeerDisconnected:
	case <-time.After(time.Second):
		t.Fatal("peer-disconnected never routed")
	}
}

func TestHandlerRoutesErrorPayload(t *testing.T) {
	h, incoming := newTestHandler()
	defer close(incoming)

	payload, err := json.Marshal(signaling.ErrorPayload{Error: "Invalid room ID"})
	require.NoError(t, err)
	incoming <- &signaling.Message{Type: signaling.MessageTypeError, Payload: payload}

	assert.Equal(t, "Invalid room ID", <-h.Error)

	incoming <- &signaling.Message{Type: signaling.MessageTypeError, Payload: json.RawMessage(`garbage`)}
	assert.Equal(t, "unknown error from server", <-h.Error)
}

func TestHandlerPingMeasuresLatency(t *testing.T) {
	h, incoming := newTestHandler()
	defer close(incoming)

	go func() {
		// Answer the ping the way the server would.
		time.Sleep(10 * time.Millisecond)
		incoming <- &signaling.Message{Type: signaling.MessageTypePong}
	}()

	latency, err := h.Ping(time.Second)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, latency, 10*time.Millisecond)
}

func TestHandlerCloseWhileRouting(t *testing.T) {
	incoming := make(chan *signaling.Message, 64)
	client := &Client{
		incoming: incoming,
		outgoing: make(chan *signaling.Message, 16),
	}
	h := NewHandler(client)

	started := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		close(started)
		h.Start()
		close(stopped)
	}()
	<-started

	// Flood the router with deliveries nobody is consuming, then close
	// mid-stream. Routing must stop without touching a closed channel.
	go func() {
		for i := 0; i < 64; i++ {
			incoming <- &signaling.Message{
				Type:   signaling.MessageTypeSignal,
				Sender: "conn-a",
				Signal: json.RawMessage(`{"type":"offer"}`),
			}
		}
	}()

	time.Sleep(5 * time.Millisecond)
	h.Close()
	h.Close() // idempotent

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("routing loop never stopped after Close")
	}
}

func TestHandlerPingTimesOut(t *testing.T) {
	h, incoming := newTestHandler()
	defer close(incoming)

	_, err := h.Ping(20 * time.Millisecond)
	assert.ErrorIs(t, err, ErrPingTimeout)
}
