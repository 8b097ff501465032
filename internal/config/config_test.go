package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BioHazard786/Shroud/internal/connection"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		// When
		cfg, err := Load(Options{})

		// Then
		require.NoError(t, err)
		assert.Equal(t, DefaultServer, cfg.Server)
		assert.Equal(t, DefaultSTUN, cfg.STUNServer)
		assert.Equal(t, 5, cfg.Game.BoardSize)
		assert.InDelta(t, 0.3, cfg.Game.CoverProbability, 1e-9)
		assert.InDelta(t, 0.6, cfg.Game.MaxCoverProbability, 1e-9)
		assert.Equal(t, 30*time.Second, cfg.ConnectTimeout)
		assert.Equal(t, connection.Replace, cfg.ChannelPolicy())
		assert.Nil(t, cfg.GetTURNServers())
	})

	t.Run("environment", func(t *testing.T) {
		t.Setenv("SHROUD_SERVER", "ws://localhost:8080/ws")
		t.Setenv("SHROUD_BOARD_SIZE", "7")
		t.Setenv("SHROUD_POLICY", "reject")

		cfg, err := Load(Options{})

		require.NoError(t, err)
		assert.Equal(t, "ws://localhost:8080/ws", cfg.Server)
		assert.Equal(t, 7, cfg.Game.BoardSize)
		assert.Equal(t, connection.Reject, cfg.ChannelPolicy())
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "shroud.yml")
		require.NoError(t, os.WriteFile(path, []byte(`
server: ws://broker.lan/ws
turn: turn.lan
turn-user: u
turn-pass: p
game:
  board-size: 4
  cover-ramp: 0.05
  seed: 9
`), 0o600))

		cfg, err := Load(Options{Path: path})

		require.NoError(t, err)
		assert.Equal(t, "ws://broker.lan/ws", cfg.Server)
		assert.Equal(t, 4, cfg.Game.BoardSize)
		assert.InDelta(t, 0.05, cfg.Game.CoverRamp, 1e-9)
		assert.Equal(t, uint64(9), cfg.Game.Seed)
		assert.Equal(t, []string{
			"turn:turn.lan:3478?transport=udp",
			"turn:turn.lan:3478?transport=tcp",
			"turns:turn.lan:5349?transport=tcp",
		}, cfg.GetTURNServers())
		user, pass := cfg.GetTURNCredentials()
		assert.Equal(t, "u", user)
		assert.Equal(t, "p", pass)
	})

	t.Run("flags win", func(t *testing.T) {
		t.Setenv("SHROUD_BOARD_SIZE", "7")

		cfg, err := Load(Options{BoardSize: 3, Server: "wss://other.example/ws", ConnectTimeout: time.Second})

		require.NoError(t, err)
		assert.Equal(t, 3, cfg.Game.BoardSize)
		assert.Equal(t, "wss://other.example/ws", cfg.Server)
		assert.Equal(t, time.Second, cfg.ConnectTimeout)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(Options{Path: filepath.Join(t.TempDir(), "nope.yml")})

		require.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{name: "http server", opts: Options{Server: "http://example.com/ws"}},
		{name: "unknown policy", opts: Options{Policy: "share"}},
		{name: "relay without turn", opts: Options{ForceRelay: true}},
		{name: "tiny board", opts: Options{BoardSize: 2}},
		{name: "cover above one", opts: Options{CoverProbability: 1.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.opts)

			require.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestGameOptions(t *testing.T) {
	cfg, err := Load(Options{Seed: 11})
	require.NoError(t, err)

	a, err := cfg.GameOptions()
	require.NoError(t, err)
	b, err := cfg.GameOptions()
	require.NoError(t, err)

	assert.Equal(t, 5, a.BoardSize)
	assert.Equal(t, a.Rand.Uint64(), b.Rand.Uint64())
}

func TestBrokerConfig_Validate(t *testing.T) {
	valid := BrokerConfig{Bind: "0.0.0.0", Port: 8080, LogFormat: "json"}
	require.NoError(t, valid.Validate())

	badPort := valid
	badPort.Port = 70000
	assert.ErrorIs(t, badPort.Validate(), ErrInvalid)

	shortTTL := valid
	shortTTL.RedisAddr = "localhost:6379"
	shortTTL.PeerTTL = time.Second
	assert.ErrorIs(t, shortTTL.Validate(), ErrInvalid)

	badFormat := valid
	badFormat.LogFormat = "xml"
	assert.ErrorIs(t, badFormat.Validate(), ErrInvalid)
}
