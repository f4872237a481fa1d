package core

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// Logger interface for structured logging
// Implementations can provide custom logging behavior; ZerologLogger adapts github.com/rs/zerolog.
type Logger interface {
	// Debug logs a debug message with optional fields
	Debug(msg string, fields ...Field)

	// Info logs an info message with optional fields
	Info(msg string, fields ...Field)

	// Warn logs a warning message with optional fields
	Warn(msg string, fields ...Field)

	// Error logs an error message with optional fields
	Error(msg string, fields ...Field)
}

// Field represents a key-value pair for structured logging
type Field struct {
	Key   string
	Value any
}

// F creates a new Field with the given key and value
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// StdLogger writes leveled lines through the standard log package.
type StdLogger struct {
	out *log.Logger
}

// NewStdLogger creates a StdLogger writing to w (stderr if nil).
func NewStdLogger(w io.Writer) *StdLogger {
	if w == nil {
		w = os.Stderr
	}
	return &StdLogger{out: log.New(w, "", log.LstdFlags|log.Lmicroseconds)}
}

func (l *StdLogger) Debug(msg string, fields ...Field) { l.log("DEBUG", msg, fields) }
func (l *StdLogger) Info(msg string, fields ...Field)  { l.log("INFO", msg, fields) }
func (l *StdLogger) Warn(msg string, fields ...Field)  { l.log("WARN", msg, fields) }
func (l *StdLogger) Error(msg string, fields ...Field) { l.log("ERROR", msg, fields) }

func (l *StdLogger) log(level, msg string, fields []Field) {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", level, msg)
	if len(fields) > 0 {
		b.WriteString(" {")
		for i, f := range fields {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s: %v", f.Key, f.Value)
		}
		b.WriteString("}")
	}
	l.out.Println(b.String())
}

// NoOpLogger is a logger that discards all log messages
// Useful for tests or when logging is not desired
type NoOpLogger struct{}

// NewNoOpLogger creates a new NoOpLogger
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (l *NoOpLogger) Debug(msg string, fields ...Field) {}
func (l *NoOpLogger) Info(msg string, fields ...Field)  {}
func (l *NoOpLogger) Warn(msg string, fields ...Field)  {}
func (l *NoOpLogger) Error(msg string, fields ...Field) {}
