package utils

import (
	"log"
	"os"
	"sync/atomic"
)

// Logger is the process-wide logger handed to services and handlers.
// It wraps the standard logger so tests can construct one without
// global state.
type Logger struct {
	std   *log.Logger
	err   *log.Logger
	debug atomic.Bool
}

func NewLogger() *Logger {
	return &Logger{
		std: log.New(os.Stdout, "", log.LstdFlags),
		err: log.New(os.Stderr, "", log.LstdFlags),
	}
}

func (l *Logger) SetDebug(enabled bool) {
	if l == nil {
		return
	}
	l.debug.Store(enabled)
}

func (l *Logger) Printf(format string, args ...any) {
	if l == nil || l.std == nil {
		return
	}
	l.std.Printf(format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	if l == nil || l.err == nil {
		return
	}
	l.err.Printf("ERROR "+format, args...)
}

func (l *Logger) Debugf(format string, args ...any) {
	if l == nil || l.std == nil || !l.debug.Load() {
		return
	}
	l.std.Printf("DEBUG "+format, args...)
}
