// Package log configures the process-wide slog logger.
//
// Console output goes to stderr as text. When a file is configured, records
// are also written as JSON to a rotating file.
//
// Environment:
//   - MEKURI_LOG_LEVEL=debug|info|warn|error
//   - MEKURI_LOG_FILE=<path>
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logger initialization
type Options struct {
	Level string
	File  string // optional rotating log file
}

var (
	mu      sync.RWMutex
	current *slog.Logger
	closer  io.Closer
)

// FromEnv builds Options from environment variables
func FromEnv() Options {
	return Options{
		Level: getenv("MEKURI_LOG_LEVEL", "info"),
		File:  os.Getenv("MEKURI_LOG_FILE"),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Init installs a logger built from opts as the default slog logger
func Init(opts Options) *slog.Logger {
	return InitWriter(opts, os.Stderr)
}

// InitWriter is Init with an explicit console writer
func InitWriter(opts Options, console io.Writer) *slog.Logger {
	lvl := ParseLevel(opts.Level)

	handlers := []slog.Handler{
		slog.NewTextHandler(console, &slog.HandlerOptions{Level: lvl}),
	}

	var fileCloser io.Closer
	if strings.TrimSpace(opts.File) != "" {
		w := &lj.Logger{Filename: opts.File, MaxSize: 10, MaxBackups: 3, MaxAge: 28, Compress: true}
		handlers = append(handlers, slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
		fileCloser = w
	}

	var h slog.Handler = handlers[0]
	if len(handlers) > 1 {
		h = fanout(handlers)
	}

	logger := slog.New(h).With(slog.String("app", "mekuri"))

	mu.Lock()
	if closer != nil {
		closer.Close()
	}
	current = logger
	closer = fileCloser
	mu.Unlock()

	slog.SetDefault(logger)
	return logger
}

// L returns the configured logger, initializing from the environment on
// first use.
func L() *slog.Logger {
	mu.RLock()
	l := current
	mu.RUnlock()
	if l != nil {
		return l
	}
	return Init(FromEnv())
}

// WithComponent returns a logger tagged with a component name
func WithComponent(name string) *slog.Logger {
	return L().With(slog.String("component", name))
}

// Close flushes and closes the log file, if any
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if closer == nil {
		return nil
	}
	err := closer.Close()
	closer = nil
	return err
}

// ParseLevel converts a level name to a slog level. Unknown names map to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// fanout sends each record to every handler that accepts its level
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, l slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, l) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
