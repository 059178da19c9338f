// Package logging builds the process logger and carries per-turn loggers
// through contexts.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Options selects the handler of the process logger.
type Options struct {
	Verbose bool      // debug level
	Quiet   bool      // warnings and errors only; wins over Verbose
	JSON    bool      // JSON records instead of text
	Writer  io.Writer // defaults to stderr so stdout stays with the REPL
}

// Level returns the minimum level selected by opts.
func (o Options) Level() slog.Level {
	switch {
	case o.Quiet:
		return slog.LevelWarn
	case o.Verbose:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// New creates a logger for opts.
func New(opts Options) *slog.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	handlerOpts := &slog.HandlerOptions{Level: opts.Level()}
	if opts.JSON {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

type loggerKey struct{}

// FromContext extracts the logger from context, falling back to slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// ToContext adds the logger to context.
func ToContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}
