// Package logger builds the process-wide slog logger. Output is JSON so
// collectors can index fields directly; handlers and services attach
// request_id, user_id and session_id pairs at the call site.
package logger

import (
	"log/slog"
	"os"
	"strings"
)

// New returns a JSON logger at the given level. Unknown level strings fall
// back to info.
func New(level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
	}))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
