package server

import (
	"encoding/json"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/jannskiee/floe/internal/signaling"
)

// Config holds the environment-driven settings of the signaling host.
type Config struct {
	// Port is the listen port, without colon.
	Port string

	// AllowedOrigins is the set of origins allowed to open websocket
	// connections. Empty means any origin (development).
	AllowedOrigins []string

	// TrustProxy enables reading the client address from
	// X-Forwarded-For. Only safe when a trusted reverse proxy sets the
	// header; otherwise any client can spoof its rate-limit key.
	TrustProxy bool
}

// ConfigFromEnv reads PORT, ALLOWED_ORIGINS (comma separated), and
// TRUST_PROXY.
func ConfigFromEnv() Config {
	cfg := Config{Port: os.Getenv("PORT")}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}
	switch strings.ToLower(os.Getenv("TRUST_PROXY")) {
	case "1", "true", "yes":
		cfg.TrustProxy = true
	}
	return cfg
}

func (c Config) checkOrigin(r *http.Request) bool {
	if len(c.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range c.AllowedOrigins {
		if strings.EqualFold(origin, allowed) {
			return true
		}
	}
	return false
}

// ServeWs returns an http.HandlerFunc that upgrades websocket requests
// and hands the connection to the hub. Rate limiting happens here,
// before the upgrade, so abusive sources never reach room logic.
func ServeWs(hub *signaling.Hub, limiter *signaling.RateLimiter, cfg Config) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  64 * 1024,
		WriteBufferSize: 64 * 1024,
		CheckOrigin:     cfg.checkOrigin,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		addr := cfg.sourceAddr(r)
		if !limiter.Allow(addr) {
			logrus.WithField("addr", addr).Warn("connection rate limited")
			http.Error(w, "too many connection attempts", http.StatusTooManyRequests)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logrus.WithError(err).Warn("failed to upgrade connection")
			return
		}

		client := &signaling.Client{
			Hub:  hub,
			Conn: conn,
			ID:   uuid.NewString(),
			Addr: addr,
			Send: make(chan *signaling.Message, 256),
		}

		client.Hub.Register <- client

		go client.WritePump()
		go client.ReadPump()
	}
}

// sourceAddr extracts the client address used for rate limiting. The
// forwarded header is only honored behind a trusted proxy.
func (c Config) sourceAddr(r *http.Request) string {
	fwd := r.Header.Get("X-Forwarded-For")
	if c.TrustProxy && fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Routes assembles the full HTTP surface of the coordination host:
// the websocket endpoint plus liveness and health probes.
func Routes(hub *signaling.Hub, limiter *signaling.RateLimiter, cfg Config) *http.ServeMux {
	started := time.Now()
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", ServeWs(hub, limiter, cfg))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"status": "ok",
			"uptime": time.Since(started).String(),
		})
	})

	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}
