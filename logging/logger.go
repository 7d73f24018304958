// Package logging provides the structured-logging interface every
// package in this module logs through, and a dependency-free default
// implementation. The interface shape (four leveled methods taking
// variadic Fields) is grounded on core/logger.go, since every caller in
// this module needs exactly that contract; logging/zapadapter supplies
// a production-grade implementation over the same interface.
package logging

import (
	"fmt"
	"log"
	"strconv"
	"strings"
)

// Logger is the structured-logging interface the pool, scheduler and
// runnable packages log through. Implementations can wrap any backend
// (zap, logrus, a test recorder) without those packages depending on it
// directly.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Field is a key-value pair attached to a log line.
type Field struct {
	Key   string
	Value any
}

// F constructs a Field. Short name matches the rest of this module's
// call sites: logging.F("fiber_id", id).
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// DefaultLogger logs logfmt-style lines (level=... msg="..." key=val
// ...) through the standard library's log package. It is the
// zero-configuration Logger PoolConfig falls back to when the caller
// supplies none.
type DefaultLogger struct{}

// NewDefaultLogger creates a DefaultLogger.
func NewDefaultLogger() *DefaultLogger { return &DefaultLogger{} }

func (l *DefaultLogger) Debug(msg string, fields ...Field) { l.log("debug", msg, fields...) }
func (l *DefaultLogger) Info(msg string, fields ...Field)  { l.log("info", msg, fields...) }
func (l *DefaultLogger) Warn(msg string, fields ...Field)  { l.log("warn", msg, fields...) }
func (l *DefaultLogger) Error(msg string, fields ...Field) { l.log("error", msg, fields...) }

// log renders a single logfmt line: space-separated key=value pairs,
// with msg double-quoted whenever it contains spaces or quotes.
func (l *DefaultLogger) log(level, msg string, fields ...Field) {
	var b strings.Builder
	b.WriteString("level=")
	b.WriteString(level)
	b.WriteString(" msg=")
	b.WriteString(quoteLogfmt(msg))
	for _, f := range fields {
		b.WriteByte(' ')
		b.WriteString(f.Key)
		b.WriteByte('=')
		b.WriteString(quoteLogfmt(formatValue(f.Value)))
	}
	log.Println(b.String())
}

func formatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case error:
		return t.Error()
	default:
		return fmt.Sprintf("%v", v)
	}
}

func quoteLogfmt(s string) string {
	if s == "" {
		return `""`
	}
	needsQuote := false
	for _, r := range s {
		if r == ' ' || r == '"' || r == '=' || r < 0x20 {
			needsQuote = true
			break
		}
	}
	if !needsQuote {
		return s
	}
	return strconv.Quote(s)
}

// NoOpLogger discards every log line. Useful in tests that want silence
// rather than stdout noise.
type NoOpLogger struct{}

// NewNoOpLogger creates a NoOpLogger.
func NewNoOpLogger() *NoOpLogger { return &NoOpLogger{} }

func (l *NoOpLogger) Debug(msg string, fields ...Field) {}
func (l *NoOpLogger) Info(msg string, fields ...Field)  {}
func (l *NoOpLogger) Warn(msg string, fields ...Field)  {}
func (l *NoOpLogger) Error(msg string, fields ...Field) {}
