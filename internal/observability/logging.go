package observability

import (
	"log/slog"
	"os"
)

// LogFormat selects the slog handler NewLogger builds.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

// NewLogger builds the process-wide structured logger: JSON to stderr in
// production, text to stderr for local/interactive use. debug raises the
// level to include Debug-level turn/provider/tool tracing.
func NewLogger(format LogFormat, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if format == LogFormatText {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// SessionLogger returns a logger scoped to sessionID, attached to every
// turn/tool/provider log line the session emits.
func SessionLogger(base *slog.Logger, sessionID string) *slog.Logger {
	if base == nil {
		base = slog.Default()
	}
	return base.With("session_id", sessionID)
}

// TurnLogger further scopes a session logger to a single turn.
func TurnLogger(base *slog.Logger, sessionID, turnID string) *slog.Logger {
	return SessionLogger(base, sessionID).With("turn_id", turnID)
}
