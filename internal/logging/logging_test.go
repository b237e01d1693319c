package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConsole(t *testing.T) {
	t.Run("prefix and level", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := NewConsole(&buf, ConsoleOptions{Level: "warn", Prefix: "tutorial1"})
		require.NoError(t, err)

		logger.Info("hidden")
		logger.Warn("shown", "key", "db.driver")

		out := buf.String()
		assert.NotContains(t, out, "hidden")
		assert.Contains(t, out, "tutorial1")
		assert.Contains(t, out, "shown")
		assert.Contains(t, out, "db.driver")
	})

	t.Run("default level is info", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := NewConsole(&buf, ConsoleOptions{})
		require.NoError(t, err)
		logger.Debug("quiet")
		logger.Info("loud")
		assert.NotContains(t, buf.String(), "quiet")
		assert.Contains(t, buf.String(), "loud")
	})

	t.Run("invalid level", func(t *testing.T) {
		_, err := NewConsole(&bytes.Buffer{}, ConsoleOptions{Level: "chatty"})
		require.Error(t, err)
	})
}

func TestNewRunLogger(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewRunLogger(dir, "tutorial1", "abc-123")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "tutorial1.log"), logger.LogPath)
	logger.Info().Str("config", "config").Msg("composed")
	logger.Error().Msg("boom")
	require.NoError(t, logger.Close())
	require.NoError(t, logger.Close(), "second close is a no-op")

	f, err := os.Open(logger.LogPath)
	require.NoError(t, err)
	defer f.Close()

	var entries []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		entries = append(entries, entry)
	}
	require.Len(t, entries, 2)
	assert.Equal(t, "abc-123", entries[0]["run_id"])
	assert.Equal(t, "tutorial1", entries[0]["app"])
	assert.Equal(t, "composed", entries[0]["message"])
	assert.Equal(t, "info", entries[0]["level"])
	assert.Contains(t, entries[0], "time")
	assert.Equal(t, "error", entries[1]["level"])
}

func TestNewRunLoggerErrors(t *testing.T) {
	_, err := NewRunLogger("", "app", "id")
	require.Error(t, err)

	_, err = NewRunLogger(filepath.Join(t.TempDir(), "missing"), "app", "id")
	require.Error(t, err)
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Info().Msg("nothing")
	assert.NoError(t, l.Close())
}

func TestSanitizeLabel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"tutorial1", "tutorial1"},
		{"my app", "my_app"},
		{"../escape", "escape"},
		{"", "run"},
		{"///", "run"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeLabel(tt.in), tt.in)
	}
}
