package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/phrazzld/scry-fsrs/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// restoreDefault puts back the slog default replaced by Setup.
func restoreDefault(t *testing.T) {
	t.Helper()
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry), "log line must be JSON: %s", line)
		entries = append(entries, entry)
	}
	return entries
}

func TestSetup_LevelFiltering(t *testing.T) {
	restoreDefault(t)

	testCases := []struct {
		level        string
		debugVisible bool
		infoVisible  bool
		warnVisible  bool
	}{
		{"debug", true, true, true},
		{"INFO", false, true, true},
		{"warn", false, false, true},
		{"error", false, false, false},
	}

	for _, tc := range testCases {
		t.Run(tc.level, func(t *testing.T) {
			var buf bytes.Buffer
			l, err := logger.Setup(logger.LoggerConfig{Level: tc.level, Output: &buf})
			require.NoError(t, err)
			require.NotNil(t, l)

			l.Debug("debug message")
			l.Info("info message")
			l.Warn("warn message")

			out := buf.String()
			assert.Equal(t, tc.debugVisible, strings.Contains(out, "debug message"))
			assert.Equal(t, tc.infoVisible, strings.Contains(out, "info message"))
			assert.Equal(t, tc.warnVisible, strings.Contains(out, "warn message"))
			assert.Same(t, l, slog.Default())
		})
	}
}

func TestSetup_InvalidLevelFallsBackToInfo(t *testing.T) {
	restoreDefault(t)

	var buf bytes.Buffer
	l, err := logger.Setup(logger.LoggerConfig{Level: "verbose", Output: &buf})
	require.NoError(t, err)

	l.Debug("hidden")
	l.Info("shown", slog.String("component", "test"))

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "WARN", entries[0]["level"])
	assert.Equal(t, "verbose", entries[0]["configured_level"])
	assert.Equal(t, "shown", entries[1]["msg"])
	assert.Equal(t, "test", entries[1]["component"])
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		expected slog.Level
		known    bool
	}{
		{"debug", slog.LevelDebug, true},
		{" Warn ", slog.LevelWarn, true},
		{"warning", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"", slog.LevelInfo, false},
		{"fatal", slog.LevelInfo, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			level, known := logger.ParseLevel(tc.name)
			assert.Equal(t, tc.expected, level)
			assert.Equal(t, tc.known, known)
		})
	}
}

func TestContextLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	custom := slog.New(slog.NewJSONHandler(&buf, nil))
	fallback := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	ctx := logger.WithLogger(context.Background(), custom)
	assert.Same(t, custom, logger.FromContext(ctx))
	assert.Same(t, custom, logger.FromContextOrDefault(ctx, fallback))

	assert.Same(t, fallback, logger.FromContextOrDefault(context.Background(), fallback))
	assert.NotNil(t, logger.FromContext(context.Background()))
	assert.NotNil(t, logger.FromContextOrDefault(context.Background(), nil))

	//nolint:staticcheck // a nil context must not panic
	assert.Same(t, fallback, logger.FromContextOrDefault(nil, fallback))
}
