package signaling

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Signaling payloads are
	// SDP descriptions and ICE candidates; 64 KB covers them.
	maxMessageSize = 64 * 1024
)

// Client is a wrapper for a single websocket connection (a participant).
type Client struct {
	// Hub is the hub that manages this client.
	Hub *Hub

	// Conn is the websocket connection.
	Conn *websocket.Conn

	// ID is the connection id used for point-to-point signal routing.
	ID string

	// Addr is the remote address, kept for logging and rate limiting.
	Addr string

	// RoomID is the room the client currently occupies, if any.
	RoomID string

	// Send is a buffered channel for all outbound messages. The hub
	// writes to this channel and WritePump drains it to the socket.
	Send chan *Message
}

// ReadPump pumps messages from the websocket connection to the hub.
//
// The application runs ReadPump in a per-connection goroutine, ensuring
// that there is at most one reader on a connection.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Message
		err := c.Conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithField("conn", c.ID).WithError(err).Debug("read error")
			}
			break
		}

		msg.client = c
		c.Hub.Inbound <- &msg
	}
}

// WritePump pumps messages from the hub to the websocket connection.
//
// A goroutine running WritePump is started for each connection,
// ensuring that there is at most one writer to a connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteJSON(message); err != nil {
				logrus.WithField("conn", c.ID).WithError(err).Debug("write error")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// deliver queues a message for the client, dropping it if the client's
// send buffer is full rather than stalling the hub loop.
func (c *Client) deliver(msg *Message) {
	select {
	case c.Send <- msg:
	default:
		logrus.WithField("conn", c.ID).Warn("send buffer full, dropping message")
	}
}
