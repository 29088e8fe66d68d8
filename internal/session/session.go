package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/jannskiee/floe/internal/config"
	"github.com/jannskiee/floe/internal/signalclient"
	"github.com/jannskiee/floe/internal/signaling"
	"github.com/jannskiee/floe/internal/transfer"
)

const (
	// signalTimeout bounds every handshake step that waits on the
	// remote peer or the server.
	signalTimeout = 30 * time.Second

	// pingTimeout bounds the optional latency probe.
	pingTimeout = 5 * time.Second

	// closeGrace lets in-flight outgoing frames drain before the
	// transports are torn down.
	closeGrace = 100 * time.Millisecond
)

// Context bundles the signaling connection shared by both session
// kinds.
type Context struct {
	Client  *signalclient.Client
	Handler *signalclient.Handler
	Config  *config.Config

	// PeerID is the remote connection id, known on the sending side
	// once the receiver joins.
	PeerID string

	// RoomID is set once a room has been created or joined.
	RoomID string
}

// Connect dials the signaling server and starts the message router.
func Connect(cfg *config.Config) (*Context, error) {
	client := signalclient.NewClient(cfg.WebSocketURL)
	if err := client.Connect(); err != nil {
		return nil, transfer.NewError("connect to server", err)
	}

	handler := signalclient.NewHandler(client)
	go handler.Start()

	return &Context{
		Client:  client,
		Handler: handler,
		Config:  cfg,
	}, nil
}

// Close tears down the signaling connection.
func (c *Context) Close() {
	if c.Handler != nil {
		c.Handler.Close()
	}
	if c.Client != nil {
		c.Client.Close()
	}
}

// CreateRoom generates a fresh room id and joins it as the first
// occupant. The server answers with the sending role.
func (c *Context) CreateRoom() (string, error) {
	roomID := uuid.NewString()

	c.Client.SendMessage(&signaling.Message{
		Type:   signaling.MessageTypeJoinRoom,
		RoomID: roomID,
	})

	select {
	case joined := <-c.Handler.RoomJoined:
		if joined.Role != signaling.RoleSender {
			return "", transfer.WrapError("create room", transfer.ErrSignalingError, "unexpected role "+joined.Role)
		}
		c.RoomID = joined.RoomID
		return joined.RoomID, nil

	case errMsg := <-c.Handler.Error:
		return "", transfer.WrapError("create room", transfer.ErrSignalingError, errMsg)

	case <-time.After(signalTimeout):
		return "", transfer.NewError("create room", transfer.ErrTimeout)
	}
}

// JoinRoom joins an existing room as the receiving side. A full room
// or a rejected id both mean the share link no longer works.
func (c *Context) JoinRoom(roomID string) error {
	c.Client.SendMessage(&signaling.Message{
		Type:   signaling.MessageTypeJoinRoom,
		RoomID: roomID,
	})

	select {
	case joined := <-c.Handler.RoomJoined:
		if joined.Role != signaling.RoleReceiver {
			return transfer.WrapError("join room", transfer.ErrSignalingError, "unexpected role "+joined.Role)
		}
		c.RoomID = joined.RoomID
		return nil

	case <-c.Handler.RoomFull:
		return transfer.NewError("join room", transfer.ErrLinkUnavailable)

	case errMsg := <-c.Handler.Error:
		return transfer.WrapError("join room", transfer.ErrLinkUnavailable, errMsg)

	case <-time.After(signalTimeout):
		return transfer.NewError("join room", transfer.ErrTimeout)
	}
}

// WaitForPeer blocks until the receiver joins the room and returns its
// connection id. There is no timeout: the share link stays valid until
// the sender gives up.
func (c *Context) WaitForPeer() (string, error) {
	select {
	case peerID := <-c.Handler.UserConnected:
		c.PeerID = peerID
		return peerID, nil

	case errMsg := <-c.Handler.Error:
		return "", transfer.WrapError("wait for peer", transfer.ErrSignalingError, errMsg)
	}
}

// Latency measures the signaling round-trip time.
func (c *Context) Latency() (time.Duration, error) {
	return c.Handler.Ping(pingTimeout)
}
