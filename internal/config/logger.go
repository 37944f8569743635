package config

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger writes to stdout: JSON in production, text with source
// locations in development.
func NewLogger(env string) *slog.Logger {
	return NewLoggerTo(env, os.Stdout)
}

// NewLoggerTo is NewLogger with an explicit destination. The CLI logs to
// stderr so stdout only carries its JSON report.
func NewLoggerTo(env string, w io.Writer) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		AddSource: env == "development",
	}

	if env == "production" {
		opts.Level = slog.LevelInfo
		handler = slog.NewJSONHandler(w, opts)
	} else {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}
