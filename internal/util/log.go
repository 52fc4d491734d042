// Package util provides shared helpers for logging and for polling a
// condition with exponential backoff.
package util

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// ParseLevel maps "debug", "info", "warn" and "error" to a slog level.
// Unrecognised strings map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// NewLogger creates a structured logger writing to w at the specified
// level. format selects the handler: "json" or anything else for text.
func NewLogger(level, format string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// OpenLogFile opens (appending) the log file for a terminal program. pattern
// may contain one %s which is replaced by today's date; an empty pattern
// falls back to /tmp/<prog>-<date>.log.
func OpenLogFile(prog, pattern string) (*os.File, error) {
	date := time.Now().Format("2006-01-02")
	path := fmt.Sprintf("/tmp/%s-%s.log", prog, date)
	if pattern != "" {
		path = pattern
		if strings.Contains(pattern, "%s") {
			path = fmt.Sprintf(pattern, date)
		}
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}

// SetDefault configures the provided logger as the default slog logger.
func SetDefault(logger *slog.Logger) {
	slog.SetDefault(logger)
}
