// Package logging provides structured logging for the digest packages.
//
// This package wraps the standard library's log/slog package so every
// component logs the same way. It supports text and JSON output,
// configurable levels, and component-based loggers.
//
// Usage:
//
//	// Initialize at startup
//	logging.Init(slog.LevelInfo, false) // Text format
//	logging.Init(slog.LevelDebug, true) // JSON format
//
//	// Tag log lines with a series
//	logging.WithContext(logging.ContextWithSeries(ctx, "latency")).Debug("exported")
//
//	// Get a component logger
//	log := logging.Component("workerpool")
//	log.Info("pool started", "workers", 8)
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is the global logger instance.
var Logger *slog.Logger

// Init initializes the global logger with the specified level and format.
// If jsonFormat is true, logs are output as JSON; otherwise, human-readable text.
func Init(level slog.Level, jsonFormat bool) {
	InitWriter(os.Stderr, level, jsonFormat)
}

// InitWriter is Init with an explicit destination.
func InitWriter(w io.Writer, level slog.Level, jsonFormat bool) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	if jsonFormat {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	InitWithHandler(handler)
}

// InitWithHandler initializes the global logger with a custom handler.
// This is useful for testing or custom output destinations.
func InitWithHandler(handler slog.Handler) {
	Logger = slog.New(handler)
	slog.SetDefault(Logger)
}

// ParseLevel converts a config level name ("debug", "info", "warn", "error").
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Component returns a logger for a specific component.
// The component name is added as an attribute to all log entries.
//
// The returned logger resolves the global logger lazily, so package-level
// `var log = logging.Component("x")` picks up a later Init.
func Component(name string) *slog.Logger {
	return slog.New(componentHandler{name: name})
}

// WithContext returns a logger that includes the series name carried by ctx.
func WithContext(ctx context.Context) *slog.Logger {
	if Logger == nil {
		Init(slog.LevelInfo, false)
	}

	logger := Logger
	if series, ok := ctx.Value(contextKeySeries).(string); ok {
		logger = logger.With("series", series)
	}
	return logger
}

type contextKey int

const (
	contextKeySeries contextKey = iota
)

// ContextWithSeries adds a series key to the context for logging.
func ContextWithSeries(ctx context.Context, series string) context.Context {
	return context.WithValue(ctx, contextKeySeries, series)
}

// componentHandler forwards to the current global handler with a component attribute.
type componentHandler struct {
	name string
}

func (h componentHandler) base() slog.Handler {
	l := Logger
	if l == nil {
		l = slog.Default()
	}
	return l.Handler()
}

func (h componentHandler) target() slog.Handler {
	return h.base().WithAttrs([]slog.Attr{slog.String("component", h.name)})
}

func (h componentHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base().Enabled(ctx, level)
}

func (h componentHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.target().Handle(ctx, r)
}

func (h componentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.target().WithAttrs(attrs)
}

func (h componentHandler) WithGroup(name string) slog.Handler {
	return h.target().WithGroup(name)
}

// =============================================================================
// Convenience Functions
// =============================================================================

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	if Logger == nil {
		Init(slog.LevelInfo, false)
	}
	Logger.Debug(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	if Logger == nil {
		Init(slog.LevelInfo, false)
	}
	Logger.Info(msg, args...)
}

// Warn logs at warning level.
func Warn(msg string, args ...any) {
	if Logger == nil {
		Init(slog.LevelInfo, false)
	}
	Logger.Warn(msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	if Logger == nil {
		Init(slog.LevelInfo, false)
	}
	Logger.Error(msg, args...)
}
