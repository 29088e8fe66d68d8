package signaling

import "encoding/json"

// Message defines the structure for all C2S (Client to Server)
// and S2C (Server to Client) websocket messages.
type Message struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id,omitempty"`

	// Target optionally routes a signal point-to-point to a single
	// connection id instead of broadcasting to the room.
	Target string `json:"target,omitempty"`

	// Sender carries the originating connection id on relayed signals.
	Sender string `json:"sender,omitempty"`

	// Role is set on room-joined responses: "sender" or "receiver".
	Role string `json:"role,omitempty"`

	// ConnectionID identifies the newly arrived peer on user-connected.
	ConnectionID string `json:"connection_id,omitempty"`

	// Signal is the opaque payload produced and consumed by the peers'
	// WebRTC stacks. The server only routes it.
	Signal json.RawMessage `json:"signal,omitempty"`

	Payload json.RawMessage `json:"payload,omitempty"`

	// client is the client that sent the message.
	// It's used internally by the Hub and not sent over JSON.
	client *Client `json:"-"`
}

// Message type constants.
const (
	MessageTypeJoinRoom = "join-room"
	MessageTypeSignal   = "signal"
	MessageTypePing     = "ping"

	MessageTypeRoomJoined       = "room-joined"
	MessageTypeUserConnected    = "user-connected"
	MessageTypeRoomFull         = "room-full"
	MessageTypePeerDisconnected = "peer-disconnected"
	MessageTypePong             = "pong"
	MessageTypeError            = "error"
)

// Role constants assigned on join order: the first occupant of a room
// is the sending side, the second the receiving side.
const (
	RoleSender   = "sender"
	RoleReceiver = "receiver"
)

// ErrorPayload carries human-readable error messages from the server.
type ErrorPayload struct {
	Error string `json:"error"`
}

func errorMessage(text string) *Message {
	payload, _ := json.Marshal(ErrorPayload{Error: text})
	return &Message{Type: MessageTypeError, Payload: payload}
}
