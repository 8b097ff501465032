package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"dev":        slog.LevelDebug,
		"DEBUG":      slog.LevelDebug,
		"info":       slog.LevelInfo,
		"warning":    slog.LevelWarn,
		"production": slog.LevelError,
		" error ":    slog.LevelError,
	}
	for name, want := range tests {
		assert.Equal(t, want, ParseLevel(name, slog.LevelInfo), name)
	}
	assert.Equal(t, slog.LevelInfo, ParseLevel("loud", slog.LevelInfo))
}

func TestNew(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		log := New(&buf, "info", "json")

		log.Debug("hidden")
		log.Info("match started", "board", 5)

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "match started", entry["msg"])
		assert.EqualValues(t, 5, entry["board"])
	})

	t.Run("text falls back to LOG_LEVEL", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "warn")
		var buf bytes.Buffer
		log := New(&buf, "", "text")

		log.Info("hidden")
		log.Warn("peer left")

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "msg=\"peer left\"")
	})
}
