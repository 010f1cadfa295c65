package logging

import (
	"io"
	"log/slog"
)

// NewNopLogger returns a logger that drops every record.
func NewNopLogger() Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: LevelError + 1}))
}
