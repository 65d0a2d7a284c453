package logging

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"DEBUG", slog.LevelDebug},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLevel(tt.input))
		})
	}
}

func TestSetup_WritesJSONToFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "ragpipe.log")

	logger, cleanup, err := Setup(Config{
		Level:         "debug",
		FilePath:      logPath,
		WriteToStderr: false,
	})
	require.NoError(t, err)

	logger.Info("index built", "chunks", 42)
	cleanup()

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(data, &entry))
	assert.Equal(t, "index built", entry["msg"])
	assert.Equal(t, float64(42), entry["chunks"])
}

func TestSetup_LevelFiltering(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "ragpipe.log")

	logger, cleanup, err := Setup(Config{
		Level:         "warn",
		FilePath:      logPath,
		WriteToStderr: false,
	})
	require.NoError(t, err)

	logger.Debug("should be dropped")
	logger.Info("should be dropped too")
	cleanup()

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestDebugConfig(t *testing.T) {
	cfg := DebugConfig()
	assert.Equal(t, "debug", cfg.Level)
	assert.True(t, cfg.WriteToStderr)
}
