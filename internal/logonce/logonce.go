// Package logonce wraps a slog.Logger so repeated configuration problems are
// reported a single time per key instead of on every resolution pass.
package logonce

import (
	"context"
	"io"
	"log/slog"
	"sync"
)

// Logger emits each keyed message at most once.
type Logger struct {
	mu     sync.Mutex
	logger *slog.Logger
	seen   map[string]struct{}
}

// New wraps logger. A nil logger discards output.
func New(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = Discard()
	}
	return &Logger{logger: logger, seen: make(map[string]struct{})}
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Warn logs msg at warn level unless key has been logged before. It reports
// whether the message was emitted.
func (l *Logger) Warn(key, msg string, args ...any) bool {
	return l.log(slog.LevelWarn, key, msg, args...)
}

// Error logs msg at error level unless key has been logged before.
func (l *Logger) Error(key, msg string, args ...any) bool {
	return l.log(slog.LevelError, key, msg, args...)
}

// Seen reports whether key has already been logged.
func (l *Logger) Seen(key string) bool {
	if l == nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.seen[key]
	return ok
}

// Reset forgets every logged key.
func (l *Logger) Reset() {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.seen = make(map[string]struct{})
	l.mu.Unlock()
}

// Underlying returns the wrapped logger.
func (l *Logger) Underlying() *slog.Logger {
	if l == nil {
		return Discard()
	}
	return l.logger
}

func (l *Logger) log(level slog.Level, key, msg string, args ...any) bool {
	if l == nil {
		return false
	}
	l.mu.Lock()
	if _, ok := l.seen[key]; ok {
		l.mu.Unlock()
		return false
	}
	l.seen[key] = struct{}{}
	l.mu.Unlock()

	l.logger.Log(context.Background(), level, msg, args...)
	return true
}
