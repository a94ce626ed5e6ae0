// Package critlog provides the two loggers the critical-path listener uses:
// a terse *log.Logger for the hot receiver-loop path ("E!"/"I!"-prefixed
// one-liners), and a structured *zap.Logger for the slower-moving Scope
// driver and backend finalization.
package critlog

import (
	"io"
	"log"

	"go.uber.org/zap"
)

// Logger bundles both loggers behind one small type so callers don't need
// to wire two dependencies through every constructor.
type Logger struct {
	hot        *log.Logger
	structured *zap.Logger
}

// New wraps a structured logger for control-plane use and creates a
// hot-path logger that writes to hotSink. A nil structured logger is
// replaced by a no-op zap logger; a nil hotSink discards hot-path output.
func New(structured *zap.Logger, hotSink io.Writer) *Logger {
	if structured == nil {
		structured = zap.NewNop()
	}
	if hotSink == nil {
		hotSink = io.Discard
	}
	return &Logger{
		hot:        log.New(hotSink, "[critpath] ", log.LstdFlags),
		structured: structured,
	}
}

// Info logs a terse informational line on the hot path.
func (l *Logger) Info(msg string) {
	l.hot.Println("I!", msg)
}

// Warn logs a terse warning line on the hot path, e.g. an unparseable
// environment toggle that falls back to a default rather than failing the
// build.
func (l *Logger) Warn(msg string) {
	l.hot.Println("W!", msg)
}

// Error logs a terse error line on the hot path.
func (l *Logger) Error(msg string, err error) {
	l.hot.Println("E!", msg, err)
}

// Structured returns the zap logger for control-plane code (Scope,
// Finish) that wants structured fields rather than terse lines.
func (l *Logger) Structured() *zap.Logger {
	return l.structured
}
