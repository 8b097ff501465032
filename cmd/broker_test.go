package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BioHazard786/Shroud/internal/config"
)

func TestBrokerCmd_Flags(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := &config.BrokerConfig{}
		cmd := newBrokerCmd(cfg)

		require.NoError(t, cmd.ParseFlags(nil))

		assert.Equal(t, "0.0.0.0", cfg.Bind)
		assert.Equal(t, 8080, cfg.Port)
		assert.Equal(t, 5*time.Minute, cfg.PeerTTL)
		assert.Equal(t, "json", cfg.LogFormat)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("environment", func(t *testing.T) {
		// Given
		t.Setenv("SHROUD_BROKER_PORT", "9090")
		t.Setenv("SHROUD_BROKER_REDIS", "localhost:6379")
		t.Setenv("SHROUD_BROKER_PEER_TTL", "2m")

		// When
		cfg := &config.BrokerConfig{}
		cmd := newBrokerCmd(cfg)
		require.NoError(t, cmd.ParseFlags(nil))

		// Then
		assert.Equal(t, 9090, cfg.Port)
		assert.Equal(t, "localhost:6379", cfg.RedisAddr)
		assert.Equal(t, 2*time.Minute, cfg.PeerTTL)
	})

	t.Run("flags win over environment", func(t *testing.T) {
		t.Setenv("SHROUD_BROKER_PORT", "9090")

		cfg := &config.BrokerConfig{}
		cmd := newBrokerCmd(cfg)
		require.NoError(t, cmd.ParseFlags([]string{"--port", "7070", "--log_format", "text"}))

		assert.Equal(t, 7070, cfg.Port)
		assert.Equal(t, "text", cfg.LogFormat)
	})

	t.Run("invalid settings", func(t *testing.T) {
		cfg := &config.BrokerConfig{}
		cmd := newBrokerCmd(cfg)
		require.NoError(t, cmd.ParseFlags([]string{"--redis", "localhost:6379", "--peer-ttl", "10s"}))

		assert.ErrorIs(t, cfg.Validate(), config.ErrInvalid)
	})
}
