// Package logging provides the engine's diagnostic logging. It wraps the
// standard library's log.Logger rather than a structured logging
// library: UCI requires that stdout carry only protocol lines, which
// rules out any logger that defaults to writing there, and every
// message this engine logs is a flat human-readable line anyway, so a
// generic structured logger buys nothing a thin stdlib wrapper doesn't
// already give.
package logging

import (
	"io"
	"log"
	"os"
)

// Level controls how much diagnostic detail is logged.
type Level int

const (
	// Silent logs nothing.
	Silent Level = iota
	// Info logs lifecycle events (engine start, book/config load, search start/stop).
	Info
	// Debug additionally logs per-search diagnostics (move validation, TT stats).
	Debug
)

// Logger is the engine's diagnostic logger. Output never goes to
// stdout: UCI owns that stream. New writes to stderr; NewFile writes
// to a file instead.
type Logger struct {
	level Level
	std   *log.Logger
}

// New creates a Logger at the given level, writing to stderr.
func New(level Level) *Logger {
	return &Logger{
		level: level,
		std:   log.New(os.Stderr, "", log.LstdFlags),
	}
}

// NewFile creates a Logger at the given level, writing to the file at
// path (truncated if it exists). The file stays open for the life of
// the Logger; Logger has no Close method.
func NewFile(level Level, path string) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}
	return &Logger{
		level: level,
		std:   log.New(f, "", log.LstdFlags),
	}, nil
}

// SetOutput redirects log output, e.g. to io.Discard to silence it
// without changing the configured level.
func (l *Logger) SetOutput(w io.Writer) {
	l.std.SetOutput(w)
}

// SetLevel adjusts the logger's verbosity at runtime.
func (l *Logger) SetLevel(level Level) {
	l.level = level
}

// Level returns the logger's current verbosity.
func (l *Logger) Level() Level {
	return l.level
}

// Info logs a lifecycle-level message.
func (l *Logger) Info(format string, args ...any) {
	if l.level < Info {
		return
	}
	l.std.Printf(format, args...)
}

// Debug logs a verbose diagnostic message.
func (l *Logger) Debug(format string, args ...any) {
	if l.level < Debug {
		return
	}
	l.std.Printf(format, args...)
}
