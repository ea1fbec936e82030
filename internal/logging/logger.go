package logging

import (
	"io"
	"log/slog"
	"os"
)

// New creates a structured logger for the given environment. Production
// emits JSON at Info level; anything else emits human-readable text at
// Debug level. Output goes to stdout.
func New(env string) *slog.Logger {
	return NewWithWriter(env, os.Stdout)
}

// NewWithWriter is New with an explicit output writer, for tests that
// need to capture log lines.
func NewWithWriter(env string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	var handler slog.Handler

	if env == "production" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// ForComponent returns a child logger tagged with a component name, so
// lines from the ingest service, inbox watcher, and resync task can be
// told apart in aggregated output.
func ForComponent(logger *slog.Logger, name string) *slog.Logger {
	return logger.With(slog.String("component", name))
}
