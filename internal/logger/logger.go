package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New builds the structured logger used across the service.
// Production and staging get JSON output; everything else gets text.
func New(environment, level, appName, version string) *slog.Logger {
	return newWithWriter(os.Stdout, environment, level, appName, version)
}

func newWithWriter(w io.Writer, environment, level, appName, version string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if environment == "production" || environment == "staging" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler).With(
		slog.String("app", appName),
		slog.String("version", version),
		slog.String("environment", environment),
	)
}

// ParseLevel maps a LOG_LEVEL value to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
