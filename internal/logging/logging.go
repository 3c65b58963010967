package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
)

// Level controls which messages a Logger emits
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Option attaches structured fields to a single log call
type Option func(*[]slog.Attr)

// WithField adds one key/value pair to a log entry
func WithField(key string, value interface{}) Option {
	return func(attrs *[]slog.Attr) {
		*attrs = append(*attrs, slog.Any(key, value))
	}
}

// WithFields adds every entry of fields to a log entry. Keys are emitted in
// sorted order so output is stable.
func WithFields(fields map[string]interface{}) Option {
	return func(attrs *[]slog.Attr) {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			*attrs = append(*attrs, slog.Any(k, fields[k]))
		}
	}
}

// Logger is a leveled JSON logger
type Logger struct {
	level Level
	base  *slog.Logger
}

// New creates a logger writing JSON lines to stderr
func New(level Level) *Logger {
	return NewWithWriter(level, os.Stderr)
}

// NewWithWriter creates a logger writing JSON lines to w
func NewWithWriter(level Level, w io.Writer) *Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level.slogLevel()})
	return &Logger{level: level, base: slog.New(handler)}
}

// ParseLevel maps a config string to a Level, defaulting to info
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Level returns the minimum level this logger emits
func (l *Logger) Level() Level {
	return l.level
}

func (l *Logger) Debug(msg string, opts ...Option) { l.log(LevelDebug, msg, opts) }
func (l *Logger) Info(msg string, opts ...Option)  { l.log(LevelInfo, msg, opts) }
func (l *Logger) Warn(msg string, opts ...Option)  { l.log(LevelWarn, msg, opts) }
func (l *Logger) Error(msg string, opts ...Option) { l.log(LevelError, msg, opts) }

func (l *Logger) log(level Level, msg string, opts []Option) {
	if l == nil || level < l.level {
		return
	}
	attrs := make([]slog.Attr, 0, len(opts))
	for _, opt := range opts {
		opt(&attrs)
	}
	l.base.LogAttrs(context.Background(), level.slogLevel(), msg, attrs...)
}
