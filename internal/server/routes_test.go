package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jannskiee/floe/internal/signaling"
)

func newTestServer(t *testing.T, limit int) (*httptest.Server, *signaling.Hub) {
	t.Helper()

	hub := signaling.NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	limiter := signaling.NewRateLimiter(limit, time.Minute)
	srv := httptest.NewServer(Routes(hub, limiter, Config{}))
	t.Cleanup(srv.Close)

	return srv, hub
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) *signaling.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg signaling.Message
	require.NoError(t, conn.ReadJSON(&msg))
	return &msg
}

func TestStatusEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, 10)

	t.Run("root", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "ok", body["status"])
		assert.NotEmpty(t, body["timestamp"])
	})

	t.Run("health", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "ok", body["status"])
		assert.NotEmpty(t, body["uptime"])
	})

	t.Run("unknown_path", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/nope")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestWebSocketPairing(t *testing.T) {
	srv, _ := newTestServer(t, 10)
	roomID := uuid.NewString()

	sender := dial(t, srv)
	require.NoError(t, sender.WriteJSON(&signaling.Message{
		Type:   signaling.MessageTypeJoinRoom,
		RoomID: roomID,
	}))

	joined := readMessage(t, sender)
	assert.Equal(t, signaling.MessageTypeRoomJoined, joined.Type)
	assert.Equal(t, signaling.RoleSender, joined.Role)

	receiver := dial(t, srv)
	require.NoError(t, receiver.WriteJSON(&signaling.Message{
		Type:   signaling.MessageTypeJoinRoom,
		RoomID: roomID,
	}))

	joined = readMessage(t, receiver)
	assert.Equal(t, signaling.RoleReceiver, joined.Role)

	connected := readMessage(t, sender)
	assert.Equal(t, signaling.MessageTypeUserConnected, connected.Type)
	peerID := connected.ConnectionID
	require.NotEmpty(t, peerID)

	// Point-to-point signal relay from sender to the joined peer.
	require.NoError(t, sender.WriteJSON(&signaling.Message{
		Type:   signaling.MessageTypeSignal,
		Target: peerID,
		Signal: json.RawMessage(`{"type":"offer","sdp":"v=0"}`),
	}))

	relay := readMessage(t, receiver)
	assert.Equal(t, signaling.MessageTypeSignal, relay.Type)
	assert.NotEmpty(t, relay.Sender)
	assert.JSONEq(t, `{"type":"offer","sdp":"v=0"}`, string(relay.Signal))

	// Broadcast reply lands back at the sender.
	require.NoError(t, receiver.WriteJSON(&signaling.Message{
		Type:   signaling.MessageTypeSignal,
		RoomID: roomID,
		Signal: json.RawMessage(`{"type":"answer","sdp":"v=0"}`),
	}))

	relay = readMessage(t, sender)
	assert.Equal(t, peerID, relay.Sender)

	// Closing the receiver notifies the sender.
	receiver.Close()
	notice := readMessage(t, sender)
	assert.Equal(t, signaling.MessageTypePeerDisconnected, notice.Type)
}

func TestWebSocketPingPong(t *testing.T) {
	srv, _ := newTestServer(t, 10)

	conn := dial(t, srv)
	require.NoError(t, conn.WriteJSON(&signaling.Message{Type: signaling.MessageTypePing}))

	msg := readMessage(t, conn)
	assert.Equal(t, signaling.MessageTypePong, msg.Type)
}

func TestConnectionRateLimit(t *testing.T) {
	srv, _ := newTestServer(t, 2)

	dial(t, srv)
	dial(t, srv)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "9191")
	t.Setenv("ALLOWED_ORIGINS", "https://floe.app, https://staging.floe.app")
	t.Setenv("TRUST_PROXY", "true")

	cfg := ConfigFromEnv()
	assert.Equal(t, "9191", cfg.Port)
	assert.Equal(t, []string{"https://floe.app", "https://staging.floe.app"}, cfg.AllowedOrigins)
	assert.True(t, cfg.TrustProxy)

	t.Setenv("TRUST_PROXY", "")
	assert.False(t, ConfigFromEnv().TrustProxy)
}

func TestCheckOrigin(t *testing.T) {
	cfg := Config{AllowedOrigins: []string{"https://floe.app"}}

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Origin", "https://floe.app")
	assert.True(t, cfg.checkOrigin(req))

	req.Header.Set("Origin", "https://evil.example")
	assert.False(t, cfg.checkOrigin(req))

	open := Config{}
	assert.True(t, open.checkOrigin(req))
}

func TestSourceAddr(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.RemoteAddr = "192.0.2.7:51234"

	t.Run("remote_addr", func(t *testing.T) {
		assert.Equal(t, "192.0.2.7", Config{}.sourceAddr(req))
	})

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 192.0.2.7")

	t.Run("forwarded_header_behind_trusted_proxy", func(t *testing.T) {
		assert.Equal(t, "203.0.113.9", Config{TrustProxy: true}.sourceAddr(req))
	})

	t.Run("forwarded_header_spoof_ignored_by_default", func(t *testing.T) {
		assert.Equal(t, "192.0.2.7", Config{}.sourceAddr(req))
	})
}
