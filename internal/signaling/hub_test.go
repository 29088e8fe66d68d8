package signaling

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(id string) *Client {
	return &Client{
		ID:   id,
		Addr: "127.0.0.1",
		Send: make(chan *Message, 16),
	}
}

// newTestHub wires clients into a hub without sockets. Handlers are
// invoked directly, the same single-goroutine discipline Run enforces.
func newTestHub(clients ...*Client) *Hub {
	h := NewHub()
	for _, c := range clients {
		h.clients[c.ID] = c
	}
	return h
}

func recvMessage(t *testing.T, c *Client) *Message {
	t.Helper()
	select {
	case msg := <-c.Send:
		return msg
	default:
		t.Fatalf("expected a message for %s, got none", c.ID)
		return nil
	}
}

func assertNoMessage(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.Send:
		t.Fatalf("expected no message for %s, got %q", c.ID, msg.Type)
	default:
	}
}

func TestJoinAssignsRolesByArrival(t *testing.T) {
	sender := newTestClient("conn-a")
	receiver := newTestClient("conn-b")
	h := newTestHub(sender, receiver)
	roomID := uuid.NewString()

	h.handleJoin(sender, roomID)

	joined := recvMessage(t, sender)
	assert.Equal(t, MessageTypeRoomJoined, joined.Type)
	assert.Equal(t, roomID, joined.RoomID)
	assert.Equal(t, RoleSender, joined.Role)

	h.handleJoin(receiver, roomID)

	joined = recvMessage(t, receiver)
	assert.Equal(t, MessageTypeRoomJoined, joined.Type)
	assert.Equal(t, RoleReceiver, joined.Role)

	connected := recvMessage(t, sender)
	assert.Equal(t, MessageTypeUserConnected, connected.Type)
	assert.Equal(t, receiver.ID, connected.ConnectionID)

	room := h.registry.Get(roomID)
	require.NotNil(t, room)
	assert.Equal(t, 2, room.Occupancy())
}

func TestThirdJoinerRejectedWithoutMutation(t *testing.T) {
	sender := newTestClient("conn-a")
	receiver := newTestClient("conn-b")
	third := newTestClient("conn-c")
	h := newTestHub(sender, receiver, third)
	roomID := uuid.NewString()

	h.handleJoin(sender, roomID)
	h.handleJoin(receiver, roomID)
	recvMessage(t, sender)
	recvMessage(t, sender)
	recvMessage(t, receiver)

	h.handleJoin(third, roomID)

	rejected := recvMessage(t, third)
	assert.Equal(t, MessageTypeRoomFull, rejected.Type)
	assert.Empty(t, third.RoomID)

	room := h.registry.Get(roomID)
	require.NotNil(t, room)
	assert.Same(t, sender, room.Sender)
	assert.Same(t, receiver, room.Receiver)
	assertNoMessage(t, sender)
	assertNoMessage(t, receiver)
}

func TestJoinRejectsMalformedRoomID(t *testing.T) {
	for _, bad := range []string{
		"",
		"not-a-uuid",
		"../../etc/passwd",
		"00000000-0000-1000-8000-000000000000", // v1, not v4
	} {
		client := newTestClient("conn-a")
		h := newTestHub(client)

		h.handleJoin(client, bad)

		msg := recvMessage(t, client)
		assert.Equal(t, MessageTypeError, msg.Type)

		var payload ErrorPayload
		require.NoError(t, json.Unmarshal(msg.Payload, &payload))
		assert.Equal(t, "Invalid room ID", payload.Error)
		assert.Zero(t, h.registry.Len())
	}
}

func TestRejoinOfOccupantIsNoOp(t *testing.T) {
	sender := newTestClient("conn-a")
	h := newTestHub(sender)
	roomID := uuid.NewString()

	h.handleJoin(sender, roomID)
	recvMessage(t, sender)

	h.handleJoin(sender, roomID)

	assertNoMessage(t, sender)
	room := h.registry.Get(roomID)
	require.NotNil(t, room)
	assert.Same(t, sender, room.Sender)
	assert.Nil(t, room.Receiver)
}

func TestJoinNewRoomDepartsOld(t *testing.T) {
	sender := newTestClient("conn-a")
	receiver := newTestClient("conn-b")
	h := newTestHub(sender, receiver)
	first := uuid.NewString()
	second := uuid.NewString()

	h.handleJoin(sender, first)
	h.handleJoin(receiver, first)
	recvMessage(t, sender)
	recvMessage(t, sender)
	recvMessage(t, receiver)

	h.handleJoin(receiver, second)

	// The departed peer learns about it; the old room survives with
	// one occupant, the new room holds the mover as its sender.
	notice := recvMessage(t, sender)
	assert.Equal(t, MessageTypePeerDisconnected, notice.Type)

	joined := recvMessage(t, receiver)
	assert.Equal(t, RoleSender, joined.Role)
	assert.Equal(t, second, receiver.RoomID)

	require.NotNil(t, h.registry.Get(first))
	assert.Nil(t, h.registry.Get(first).Receiver)
	assert.Same(t, receiver, h.registry.Get(second).Sender)
}

func TestSignalTargetedRouting(t *testing.T) {
	sender := newTestClient("conn-a")
	receiver := newTestClient("conn-b")
	h := newTestHub(sender, receiver)

	payload := json.RawMessage(`{"type":"offer","sdp":"v=0"}`)
	h.handleSignal(&Message{
		Type:   MessageTypeSignal,
		Target: receiver.ID,
		Signal: payload,
		client: sender,
	})

	relay := recvMessage(t, receiver)
	assert.Equal(t, MessageTypeSignal, relay.Type)
	assert.Equal(t, sender.ID, relay.Sender)
	assert.JSONEq(t, string(payload), string(relay.Signal))
	assertNoMessage(t, sender)
}

func TestSignalRoomBroadcastSkipsOrigin(t *testing.T) {
	sender := newTestClient("conn-a")
	receiver := newTestClient("conn-b")
	h := newTestHub(sender, receiver)
	roomID := uuid.NewString()

	h.handleJoin(sender, roomID)
	h.handleJoin(receiver, roomID)
	recvMessage(t, sender)
	recvMessage(t, sender)
	recvMessage(t, receiver)

	payload := json.RawMessage(`{"type":"answer","sdp":"v=0"}`)
	h.handleSignal(&Message{
		Type:   MessageTypeSignal,
		RoomID: roomID,
		Signal: payload,
		client: receiver,
	})

	relay := recvMessage(t, sender)
	assert.Equal(t, receiver.ID, relay.Sender)
	assert.JSONEq(t, string(payload), string(relay.Signal))
	assertNoMessage(t, receiver)
}

func TestSignalMalformedEnvelopesDroppedSilently(t *testing.T) {
	sender := newTestClient("conn-a")
	receiver := newTestClient("conn-b")
	h := newTestHub(sender, receiver)
	roomID := uuid.NewString()

	h.handleJoin(sender, roomID)
	recvMessage(t, sender)

	t.Run("empty_signal", func(t *testing.T) {
		h.handleSignal(&Message{Type: MessageTypeSignal, RoomID: roomID, client: sender})
		assertNoMessage(t, sender)
		assertNoMessage(t, receiver)
	})

	t.Run("invalid_room_id", func(t *testing.T) {
		h.handleSignal(&Message{
			Type:   MessageTypeSignal,
			RoomID: "garbage",
			Signal: json.RawMessage(`{}`),
			client: sender,
		})
		assertNoMessage(t, receiver)
	})

	t.Run("unknown_room", func(t *testing.T) {
		h.handleSignal(&Message{
			Type:   MessageTypeSignal,
			RoomID: uuid.NewString(),
			Signal: json.RawMessage(`{}`),
			client: sender,
		})
		assertNoMessage(t, receiver)
	})

	t.Run("unknown_target", func(t *testing.T) {
		h.handleSignal(&Message{
			Type:   MessageTypeSignal,
			Target: "conn-z",
			Signal: json.RawMessage(`{}`),
			client: sender,
		})
		assertNoMessage(t, receiver)
	})
}

func TestPingAnsweredWithPong(t *testing.T) {
	client := newTestClient("conn-a")
	h := newTestHub(client)

	h.handleMessage(&Message{Type: MessageTypePing, client: client})

	msg := recvMessage(t, client)
	assert.Equal(t, MessageTypePong, msg.Type)
}

func TestDisconnectNotifiesPeerAndEvictsEmptyRoom(t *testing.T) {
	sender := newTestClient("conn-a")
	receiver := newTestClient("conn-b")
	h := newTestHub(sender, receiver)
	roomID := uuid.NewString()

	h.handleJoin(sender, roomID)
	h.handleJoin(receiver, roomID)
	recvMessage(t, sender)
	recvMessage(t, sender)
	recvMessage(t, receiver)

	h.handleDisconnect(sender)

	notice := recvMessage(t, receiver)
	assert.Equal(t, MessageTypePeerDisconnected, notice.Type)
	require.NotNil(t, h.registry.Get(roomID))

	h.handleDisconnect(receiver)

	assert.Nil(t, h.registry.Get(roomID))
	assert.Zero(t, h.registry.Len())
}

func TestDisconnectUnknownClientIsNoOp(t *testing.T) {
	h := newTestHub()
	stranger := newTestClient("conn-x")

	h.handleDisconnect(stranger)

	// Send stays open: close only happens for registered clients.
	stranger.Send <- &Message{Type: MessageTypePong}
}

func TestValidRoomID(t *testing.T) {
	assert.True(t, ValidRoomID(uuid.NewString()))
	assert.True(t, ValidRoomID("6dfa36a7-3d34-4d39-b945-170f58f994e0"))

	assert.False(t, ValidRoomID(""))
	assert.False(t, ValidRoomID("abc123"))
	assert.False(t, ValidRoomID("6dfa36a7-3d34-1d39-b945-170f58f994e0")) // v1
	assert.False(t, ValidRoomID("6dfa36a7-3d34-4d39-g945-170f58f994e0")) // bad hex
}
