package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Logger provides component-scoped logging with verbose gating.
// Debug and Info are emitted only when the verbose check returns true;
// Warn and Error are always emitted.
type Logger struct {
	component string
	verbose   func() bool
	writer    io.Writer
}

// Field represents a key-value pair for structured log output
type Field struct {
	Key   string
	Value interface{}
}

// New creates a logger for the given component. verbose may be nil,
// in which case Debug and Info are suppressed.
func New(component string, verbose func() bool) *Logger {
	return &Logger{
		component: component,
		verbose:   verbose,
		writer:    os.Stderr,
	}
}

// WithComponent returns a logger that shares settings but reports a
// different component name.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		component: component,
		verbose:   l.verbose,
		writer:    l.writer,
	}
}

// SetWriter redirects log output, primarily for tests
func (l *Logger) SetWriter(w io.Writer) {
	l.writer = w
}

func (l *Logger) isVerbose() bool {
	return l.verbose != nil && l.verbose()
}

// Debug logs debug messages (only when verbose)
func (l *Logger) Debug(msg string, args ...interface{}) {
	if l.isVerbose() {
		l.log("DEBUG", msg, nil, args...)
	}
}

// Info logs informational messages (only when verbose)
func (l *Logger) Info(msg string, args ...interface{}) {
	if l.isVerbose() {
		l.log("INFO", msg, nil, args...)
	}
}

// Warn logs warning messages (always shown)
func (l *Logger) Warn(msg string, args ...interface{}) {
	l.log("WARN", msg, nil, args...)
}

// Error logs error messages (always shown)
func (l *Logger) Error(msg string, args ...interface{}) {
	l.log("ERROR", msg, nil, args...)
}

// InfoWithFields logs an info message with structured fields (only when verbose)
func (l *Logger) InfoWithFields(msg string, fields []Field, args ...interface{}) {
	if l.isVerbose() {
		l.log("INFO", msg, fields, args...)
	}
}

// WarnWithFields logs a warning with structured fields
func (l *Logger) WarnWithFields(msg string, fields []Field, args ...interface{}) {
	l.log("WARN", msg, fields, args...)
}

func (l *Logger) log(level, msg string, fields []Field, args ...interface{}) {
	timestamp := time.Now().Format("15:04:05.000")
	component := l.component
	if component == "" {
		component = "main"
	}

	formatted := fmt.Sprintf(msg, args...)

	var fieldsStr string
	if len(fields) > 0 {
		parts := make([]string, 0, len(fields))
		for _, f := range fields {
			parts = append(parts, fmt.Sprintf("%s=%v", f.Key, f.Value))
		}
		fieldsStr = fmt.Sprintf(" [%s]", strings.Join(parts, " "))
	}

	line := fmt.Sprintf("[%s] %s [%s] %s%s\n", timestamp, level, component, formatted, fieldsStr)
	if _, err := fmt.Fprint(l.writer, line); err != nil {
		// nothing sensible to do when the logger itself cannot write
		_ = err
	}
}

// F builds an arbitrary field
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Count builds a count field
func Count(value int) Field {
	return Field{Key: "count", Value: value}
}

// Duration builds a duration field
func Duration(d time.Duration) Field {
	return Field{Key: "duration", Value: d}
}

// Err builds an error field
func Err(err error) Field {
	return Field{Key: "error", Value: err}
}
