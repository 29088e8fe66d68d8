package config

import (
	"fmt"
	"os"
)

// Default configuration values (production).
const (
	DefaultDomain = "floe.app"
	DefaultSTUN   = "stun:stun.l.google.com:19302"
)

// Config holds the client-side application configuration.
type Config struct {
	// Domain is the signaling server domain.
	Domain string

	// WebSocketURL is constructed from domain.
	WebSocketURL string

	// ICE servers for the peer connection.
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string

	// ForceRelay restricts ICE to TURN relay candidates.
	ForceRelay bool
}

// Options carries CLI flag overrides into Load.
type Options struct {
	Domain     string
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	ForceRelay bool
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	domain := firstOf(opts.Domain, os.Getenv("DOMAIN"), DefaultDomain)
	stun := firstOf(opts.STUNServer, os.Getenv("STUN_SERVER"), DefaultSTUN)
	turn := firstOf(opts.TURNServer, os.Getenv("TURN_SERVER"))
	turnUser := firstOf(opts.TURNUser, os.Getenv("TURN_USERNAME"))
	turnPass := firstOf(opts.TURNPass, os.Getenv("TURN_PASSWORD"))

	cfg := &Config{
		Domain:       domain,
		WebSocketURL: fmt.Sprintf("wss://%s/ws", domain),
		STUNServer:   stun,
		TURNServer:   turn,
		TURNUser:     turnUser,
		TURNPass:     turnPass,
		ForceRelay:   opts.ForceRelay,
	}

	if cfg.ForceRelay && cfg.TURNServer == "" {
		return nil, fmt.Errorf("cannot force relay mode without TURN server configured")
	}

	return cfg, nil
}

// GetRoomLink returns the webapp URL for a room id.
func (c *Config) GetRoomLink(roomID string) string {
	return fmt.Sprintf("https://%s/?room=%s", c.Domain, roomID)
}

// GetSTUNServers returns STUN server URLs as strings.
func (c *Config) GetSTUNServers() []string {
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured.
func (c *Config) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	return []string{
		fmt.Sprintf("%s:3478?transport=udp", c.TURNServer),
		fmt.Sprintf("%s:3478?transport=tcp", c.TURNServer),
		fmt.Sprintf("turns:%s:5349?transport=tcp", c.TURNServer),
	}
}

// GetTURNCredentials returns the TURN username and password.
func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
