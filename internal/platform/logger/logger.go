package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LoggerConfig holds the settings Setup needs.
type LoggerConfig struct {
	// Level is one of debug, info, warn or error (case-insensitive).
	Level string

	// Output receives the JSON log lines. Defaults to os.Stdout.
	Output io.Writer
}

// contextKey is unexported so no other package can collide with it.
type contextKey struct{}

// Setup creates a structured JSON logger at the configured level and installs it
// as the slog default. An unrecognized level falls back to info and is reported
// through the new logger.
func Setup(cfg LoggerConfig) (*slog.Logger, error) {
	level, known := ParseLevel(cfg.Level)

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	if !known {
		logger.Warn("invalid log level configured, using default level",
			slog.String("configured_level", cfg.Level),
			slog.String("default_level", "info"))
	}

	return logger, nil
}

// ParseLevel maps a level name to a slog.Level. The boolean is false when the
// name is not recognized, in which case slog.LevelInfo is returned.
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext returns the logger stored in ctx, or slog.Default() if there is none.
func FromContext(ctx context.Context) *slog.Logger {
	return FromContextOrDefault(ctx, slog.Default())
}

// FromContextOrDefault returns the logger stored in ctx, or fallback if there is none.
func FromContextOrDefault(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(contextKey{}).(*slog.Logger); ok && l != nil {
			return l
		}
	}
	if fallback == nil {
		return slog.Default()
	}
	return fallback
}
