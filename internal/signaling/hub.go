package signaling

import (
	"github.com/sirupsen/logrus"
)

// Hub is the central brain of the signaling server. It pairs exactly
// two anonymous participants per room, relays their connection-setup
// payloads, and propagates disconnects. All room and client state is
// owned by the single goroutine running Run, so handlers never race.
type Hub struct {
	// registry maps room ids to rooms.
	registry *Registry

	// clients maps connection ids to clients, for targeted signals.
	clients map[string]*Client

	// Register is a channel for registering new clients.
	Register chan *Client

	// Unregister is a channel for unregistering clients.
	Unregister chan *Client

	// Inbound carries client messages into the hub loop.
	Inbound chan *Message

	// done stops the run loop.
	done chan struct{}
}

// NewHub creates a new Hub instance with an empty registry.
func NewHub() *Hub {
	return &Hub{
		registry:   NewRegistry(),
		clients:    make(map[string]*Client),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Inbound:    make(chan *Message),
		done:       make(chan struct{}),
	}
}

// Registry exposes the room registry for inspection in tests and the
// health surface.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Run starts the hub's main processing loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.clients[client.ID] = client
			logrus.WithFields(logrus.Fields{
				"conn": client.ID,
				"addr": client.Addr,
			}).Info("client registered")

		case client := <-h.Unregister:
			h.handleDisconnect(client)

		case message := <-h.Inbound:
			h.handleMessage(message)

		case <-h.done:
			return
		}
	}
}

// Stop terminates the run loop.
func (h *Hub) Stop() {
	close(h.done)
}

func (h *Hub) handleMessage(message *Message) {
	switch message.Type {
	case MessageTypeJoinRoom:
		h.handleJoin(message.client, message.RoomID)

	case MessageTypeSignal:
		h.handleSignal(message)

	case MessageTypePing:
		// Immediate acknowledgement, used by peers for latency
		// measurement.
		message.client.deliver(&Message{Type: MessageTypePong})

	default:
		logrus.WithField("type", message.Type).Debug("unknown message type")
	}
}

// handleJoin validates the room id, departs any previous room, and
// assigns the caller a role by arrival order. A third joiner is
// rejected without mutating the room.
func (h *Hub) handleJoin(client *Client, roomID string) {
	if !ValidRoomID(roomID) {
		logrus.WithFields(logrus.Fields{
			"conn": client.ID,
			"room": roomID,
		}).Warn("join rejected: malformed room id")
		client.deliver(errorMessage("Invalid room ID"))
		return
	}

	// A connection occupies at most one room; joining a new room
	// departs the old one first.
	if client.RoomID != "" && client.RoomID != roomID {
		h.leaveRoom(client)
	}

	room := h.registry.GetOrCreate(roomID)

	switch {
	case room.Sender == nil && room.Receiver == nil:
		room.Sender = client
		client.RoomID = roomID
		logrus.WithFields(logrus.Fields{
			"conn": client.ID,
			"room": roomID,
		}).Info("room created")
		client.deliver(&Message{
			Type:   MessageTypeRoomJoined,
			RoomID: roomID,
			Role:   RoleSender,
		})

	case room.Receiver == nil && room.Sender != client:
		room.Receiver = client
		client.RoomID = roomID
		logrus.WithFields(logrus.Fields{
			"conn": client.ID,
			"room": roomID,
		}).Info("peer joined room")
		client.deliver(&Message{
			Type:   MessageTypeRoomJoined,
			RoomID: roomID,
			Role:   RoleReceiver,
		})
		room.Sender.deliver(&Message{
			Type:         MessageTypeUserConnected,
			ConnectionID: client.ID,
		})

	case room.Sender == client || room.Receiver == client:
		// Re-join of a current occupant keeps the membership as is.

	default:
		logrus.WithFields(logrus.Fields{
			"conn": client.ID,
			"room": roomID,
		}).Info("join rejected: room full")
		client.deliver(&Message{Type: MessageTypeRoomFull})
	}
}

// handleSignal routes an opaque signaling payload either point-to-point
// by target connection id or to every other occupant of the room.
// Malformed envelopes are dropped without an error back to the sender.
func (h *Hub) handleSignal(message *Message) {
	if len(message.Signal) == 0 {
		return
	}

	relay := &Message{
		Type:   MessageTypeSignal,
		Signal: message.Signal,
		Sender: message.client.ID,
	}

	if message.Target != "" {
		if target, ok := h.clients[message.Target]; ok {
			target.deliver(relay)
		}
		return
	}

	if !ValidRoomID(message.RoomID) {
		return
	}
	room := h.registry.Get(message.RoomID)
	if room == nil {
		return
	}
	if other := room.Other(message.client); other != nil {
		other.deliver(relay)
	}
}

// handleDisconnect tears down a departed connection: remaining room
// occupants get peer-disconnected, and an emptied room is evicted.
func (h *Hub) handleDisconnect(client *Client) {
	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	delete(h.clients, client.ID)
	h.leaveRoom(client)
	close(client.Send)

	logrus.WithFields(logrus.Fields{
		"conn": client.ID,
		"addr": client.Addr,
	}).Info("client unregistered")
}

func (h *Hub) leaveRoom(client *Client) {
	if client.RoomID == "" {
		return
	}
	room := h.registry.Get(client.RoomID)
	client.RoomID = ""
	if room == nil {
		return
	}

	other := room.Other(client)
	if room.remove(client) {
		h.registry.Evict(room.ID)
		logrus.WithField("room", room.ID).Info("room evicted")
		return
	}
	if other != nil {
		other.deliver(&Message{Type: MessageTypePeerDisconnected})
	}
}
