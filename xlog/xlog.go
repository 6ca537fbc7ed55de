// Package xlog is a small leveled logger, scoped per component, used
// sparingly at lifecycle milestones (region open/create, eviction,
// compaction, world open) rather than on hot per-chunk paths.
package xlog

import (
	"fmt"
	"os"
	"strings"
)

// Level is the severity level of a log message.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// minLevel is the minimum level to include in logging output, shared by
// every Logger since there is exactly one process-wide log stream.
var minLevel Level = InfoLevel

// SetMinLevel sets the minimum level to include in the logging output.
func SetMinLevel(level Level) {
	minLevel = level
}

// Logger writes leveled, component-scoped messages to stderr.
type Logger struct {
	component string
	fields    []string
}

// New returns a Logger scoped to the given component name, e.g. "region"
// or "world".
func New(component string) *Logger {
	return &Logger{component: component}
}

// With returns a derived Logger that prefixes every message with the
// given key/value pair, in addition to any inherited from the parent.
func (l *Logger) With(key string, value interface{}) *Logger {
	fields := make([]string, len(l.fields), len(l.fields)+1)
	copy(fields, l.fields)
	fields = append(fields, fmt.Sprintf("%s=%v", key, value))
	return &Logger{component: l.component, fields: fields}
}

func (l *Logger) write(level Level, msg string, args ...interface{}) {
	if minLevel > level {
		return
	}
	prefix := l.component
	if len(l.fields) > 0 {
		prefix = prefix + " " + strings.Join(l.fields, " ")
	}
	fmt.Fprintf(os.Stderr, "[%s] ", prefix)
	fmt.Fprintf(os.Stderr, msg, args...)
	fmt.Fprintln(os.Stderr)
}

// Debugf logs a debugging message.
func (l *Logger) Debugf(msg string, args ...interface{}) { l.write(DebugLevel, msg, args...) }

// Infof logs an informational message.
func (l *Logger) Infof(msg string, args ...interface{}) { l.write(InfoLevel, msg, args...) }

// Warnf logs a warning message.
func (l *Logger) Warnf(msg string, args ...interface{}) { l.write(WarnLevel, msg, args...) }

// Errorf logs an error message.
func (l *Logger) Errorf(msg string, args ...interface{}) { l.write(ErrorLevel, msg, args...) }
