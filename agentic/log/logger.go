// Package log defines the leveled, structured logger used across the module.
// It mirrors the slog calling convention so any slog-compatible backend can
// be adapted.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// Level represents the minimum log level.
type Level slog.Level

// Available log levels.
const (
	LevelDebug Level = Level(slog.LevelDebug)
	LevelInfo  Level = Level(slog.LevelInfo)
	LevelWarn  Level = Level(slog.LevelWarn)
	LevelError Level = Level(slog.LevelError)
)

// Logger logs a message with optional key-value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	// With returns a Logger that includes the given attributes in each
	// output operation.
	With(args ...any) Logger
}

// StructuredLogger implements Logger on top of slog.
type StructuredLogger struct {
	logger *slog.Logger
}

// New returns a logger writing colourised output to stdout. Colour is
// disabled when stdout is not a terminal.
func New(level Level) *StructuredLogger {
	return newTint(os.Stdout, level, !isatty.IsTerminal(os.Stdout.Fd()))
}

// NewWriter returns a logger writing uncoloured output to w.
func NewWriter(w io.Writer, level Level) *StructuredLogger {
	return newTint(w, level, true)
}

// FromSlog wraps an existing slog logger.
func FromSlog(logger *slog.Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

func newTint(w io.Writer, level Level, noColor bool) *StructuredLogger {
	handler := tint.NewHandler(w, &tint.Options{
		NoColor:    noColor,
		TimeFormat: time.Kitchen,
		Level:      slog.Level(level),
	})
	return &StructuredLogger{logger: slog.New(handler)}
}

func (l *StructuredLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *StructuredLogger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *StructuredLogger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *StructuredLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

func (l *StructuredLogger) With(args ...any) Logger {
	return &StructuredLogger{logger: l.logger.With(args...)}
}

// LevelFromString converts a string to a Level, falling back to LevelInfo.
func LevelFromString(value string) Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// NullLogger discards everything.
type NullLogger struct{}

// Null returns a logger that does nothing.
func Null() Logger {
	return NullLogger{}
}

func (NullLogger) Debug(msg string, args ...any) {}
func (NullLogger) Info(msg string, args ...any)  {}
func (NullLogger) Warn(msg string, args ...any)  {}
func (NullLogger) Error(msg string, args ...any) {}
func (l NullLogger) With(args ...any) Logger     { return l }
