package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(Options{})
	require.NoError(t, err)

	assert.Equal(t, DefaultDomain, cfg.Domain)
	assert.Equal(t, "wss://"+DefaultDomain+"/ws", cfg.WebSocketURL)
	assert.Equal(t, DefaultSTUN, cfg.STUNServer)
	assert.Empty(t, cfg.TURNServer)
	assert.False(t, cfg.ForceRelay)
}

func TestLoadFlagOverridesEnv(t *testing.T) {
	t.Setenv("DOMAIN", "env.example.com")
	t.Setenv("STUN_SERVER", "stun:env.example.com:3478")

	cfg, err := Load(Options{Domain: "flag.example.com"})
	require.NoError(t, err)

	assert.Equal(t, "flag.example.com", cfg.Domain)
	assert.Equal(t, "wss://flag.example.com/ws", cfg.WebSocketURL)
	// Flags left empty still fall through to the environment.
	assert.Equal(t, "stun:env.example.com:3478", cfg.STUNServer)
}

func TestLoadRejectsRelayWithoutTURN(t *testing.T) {
	_, err := Load(Options{ForceRelay: true})
	assert.Error(t, err)

	cfg, err := Load(Options{ForceRelay: true, TURNServer: "turn:relay.example.com"})
	require.NoError(t, err)
	assert.True(t, cfg.ForceRelay)
}

func TestGetRoomLink(t *testing.T) {
	cfg, err := Load(Options{Domain: "floe.app"})
	require.NoError(t, err)

	assert.Equal(t,
		"https://floe.app/?room=6dfa36a7-3d34-4d39-b945-170f58f994e0",
		cfg.GetRoomLink("6dfa36a7-3d34-4d39-b945-170f58f994e0"))
}

func TestGetTURNServers(t *testing.T) {
	cfg, err := Load(Options{})
	require.NoError(t, err)
	assert.Nil(t, cfg.GetTURNServers())

	cfg, err = Load(Options{TURNServer: "turn:relay.example.com", TURNUser: "u", TURNPass: "p"})
	require.NoError(t, err)

	servers := cfg.GetTURNServers()
	require.Len(t, servers, 3)
	assert.Contains(t, servers[0], "transport=udp")
	assert.Contains(t, servers[2], "turns:")

	user, pass := cfg.GetTURNCredentials()
	assert.Equal(t, "u", user)
	assert.Equal(t, "p", pass)
}
