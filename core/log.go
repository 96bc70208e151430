// Package core holds process-wide ambient state that every other package is
// constructed against: the logger singleton. (A real scheduler/clock is
// injected per-component from sched, not held here as a global, per spec §9's
// design note on avoiding globals for anything mutable.)
package core

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// Level mirrors the teacher's six-level logging scheme (std/log/level.go),
// extending slog's four levels with a Trace level below Debug.
type Level int

const (
	LevelTrace Level = -8
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
	LevelFatal Level = 12
)

// ParseLevel parses a level name (TRACE, DEBUG, INFO, WARN, ERROR, FATAL).
func ParseLevel(s string) (Level, error) {
	switch s {
	case "TRACE":
		return LevelTrace, nil
	case "DEBUG":
		return LevelDebug, nil
	case "INFO":
		return LevelInfo, nil
	case "WARN":
		return LevelWarn, nil
	case "ERROR":
		return LevelError, nil
	case "FATAL":
		return LevelFatal, nil
	}
	return LevelInfo, fmt.Errorf("invalid log level: %s", s)
}

// Logger is a structured logger keyed by the calling component, matching the
// call-site contract `core.Log.Warn(self, "msg", "key", val, ...)` found
// throughout the teacher's fw/face and fw/mgmt packages.
type Logger struct {
	slog *slog.Logger
}

// Log is the process-wide logger singleton every component logs through.
var Log = NewLogger(os.Stderr, LevelInfo)

// NewLogger builds a Logger writing structured text to w at the given
// minimum level.
func NewLogger(w *os.File, level Level) *Logger {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: slog.Level(level),
	})
	return &Logger{slog: slog.New(h)}
}

// SetLevel adjusts the minimum level of the process-wide logger.
func SetLevel(level Level) {
	Log = NewLogger(os.Stderr, level)
}

func (l *Logger) log(level Level, self fmt.Stringer, msg string, kv []any) {
	args := make([]any, 0, len(kv)+2)
	args = append(args, "module", self.String())
	args = append(args, kv...)
	l.slog.Log(context.Background(), slog.Level(level), msg, args...)
}

// Trace logs at LevelTrace.
func (l *Logger) Trace(self fmt.Stringer, msg string, kv ...any) { l.log(LevelTrace, self, msg, kv) }

// Debug logs at LevelDebug.
func (l *Logger) Debug(self fmt.Stringer, msg string, kv ...any) { l.log(LevelDebug, self, msg, kv) }

// Info logs at LevelInfo.
func (l *Logger) Info(self fmt.Stringer, msg string, kv ...any) { l.log(LevelInfo, self, msg, kv) }

// Warn logs at LevelWarn.
func (l *Logger) Warn(self fmt.Stringer, msg string, kv ...any) { l.log(LevelWarn, self, msg, kv) }

// Error logs at LevelError.
func (l *Logger) Error(self fmt.Stringer, msg string, kv ...any) { l.log(LevelError, self, msg, kv) }

// Fatal logs at LevelFatal and terminates the process, matching spec §7's
// rule that only truly fatal conditions (scheduler death, OOM) end the
// process; everything else is caught and counted.
func (l *Logger) Fatal(self fmt.Stringer, msg string, kv ...any) {
	l.log(LevelFatal, self, msg, kv)
	os.Exit(1)
}
