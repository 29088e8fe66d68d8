package signalclient

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/jannskiee/floe/internal/signaling"
)

// RoomJoined reports the role the server assigned on join.
type RoomJoined struct {
	RoomID string
	Role   string
}

// Signal is a delivered signaling payload with its sender's
// connection id.
type Signal struct {
	Sender  string
	Payload json.RawMessage
}

// Handler routes incoming signaling messages to typed channels, so the
// session logic can select on exactly the events it is waiting for.
type Handler struct {
	client *Client

	RoomJoined       chan RoomJoined
	UserConnected    chan string
	RoomFull         chan struct{}
	PeerDisconnected chan struct{}
	Signal           chan Signal
	Error            chan string

	pong      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewHandler creates a new message handler.
func NewHandler(client *Client) *Handler {
	return &Handler{
		client:           client,
		RoomJoined:       make(chan RoomJoined, 1),
		UserConnected:    make(chan string, 1),
		RoomFull:         make(chan struct{}, 1),
		PeerDisconnected: make(chan struct{}, 1),
		Signal:           make(chan Signal, 32),
		Error:            make(chan string, 1),
		pong:             make(chan struct{}, 1),
		done:             make(chan struct{}),
	}
}

// Start listens to incoming messages and routes them until the
// connection goes away or the handler is closed.
func (h *Handler) Start() {
	for {
		select {
		case msg, ok := <-h.client.Incoming():
			if !ok {
				return
			}
			h.route(msg)
		case <-h.done:
			return
		}
	}
}

func (h *Handler) route(msg *signaling.Message) {
	switch msg.Type {

	case signaling.MessageTypeRoomJoined:
		select {
		case h.RoomJoined <- RoomJoined{RoomID: msg.RoomID, Role: msg.Role}:
		case <-h.done:
		}

	case signaling.MessageTypeUserConnected:
		select {
		case h.UserConnected <- msg.ConnectionID:
		case <-h.done:
		}

	case signaling.MessageTypeRoomFull:
		select {
		case h.RoomFull <- struct{}{}:
		default:
		}

	case signaling.MessageTypePeerDisconnected:
		select {
		case h.PeerDisconnected <- struct{}{}:
		default:
		}

	case signaling.MessageTypeSignal:
		select {
		case h.Signal <- Signal{Sender: msg.Sender, Payload: msg.Signal}:
		case <-h.done:
		}

	case signaling.MessageTypePong:
		select {
		case h.pong <- struct{}{}:
		default:
		}

	case signaling.MessageTypeError:
		h.handleError(msg)
	}
}

// Ping measures the signaling round-trip time.
func (h *Handler) Ping(timeout time.Duration) (time.Duration, error) {
	start := time.Now()
	h.client.SendMessage(&signaling.Message{Type: signaling.MessageTypePing})

	select {
	case <-h.pong:
		return time.Since(start), nil
	case <-time.After(timeout):
		return 0, ErrPingTimeout
	}
}

func (h *Handler) handleError(msg *signaling.Message) {
	text := "unknown error from server"
	var payload signaling.ErrorPayload
	if err := json.Unmarshal(msg.Payload, &payload); err == nil && payload.Error != "" {
		text = payload.Error
	}
	select {
	case h.Error <- text:
	case <-h.done:
	}
}

// Close stops the routing loop. The typed channels stay open so a
// racing delivery from the read pump can never hit a closed channel.
func (h *Handler) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
	})
}
