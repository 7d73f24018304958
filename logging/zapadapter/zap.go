// Package zapadapter bridges logging.Logger onto go.uber.org/zap, the
// structured logger the wider example pack reaches for (grounded on
// ava-labs-Simplex's zap usage) wherever a teacher's stdlib-only logger
// needs a production-grade backend.
package zapadapter

import (
	"go.uber.org/zap"

	"github.com/Swind/go-fiberpool/logging"
)

// Logger adapts a *zap.Logger to logging.Logger.
type Logger struct {
	z *zap.Logger
}

// New wraps an existing *zap.Logger.
func New(z *zap.Logger) *Logger {
	return &Logger{z: z}
}

// NewProduction builds a Logger over zap's production configuration,
// falling back to a no-op zap logger if construction fails (matching
// the rest of this module's stance that a logging failure must never
// abort the pool).
func NewProduction() *Logger {
	z, err := zap.NewProduction()
	if err != nil {
		z = zap.NewNop()
	}
	return &Logger{z: z}
}

func toZapFields(fields []logging.Field) []zap.Field {
	zf := make([]zap.Field, len(fields))
	for i, f := range fields {
		zf[i] = zap.Any(f.Key, f.Value)
	}
	return zf
}

func (l *Logger) Debug(msg string, fields ...logging.Field) { l.z.Debug(msg, toZapFields(fields)...) }
func (l *Logger) Info(msg string, fields ...logging.Field)  { l.z.Info(msg, toZapFields(fields)...) }
func (l *Logger) Warn(msg string, fields ...logging.Field)  { l.z.Warn(msg, toZapFields(fields)...) }
func (l *Logger) Error(msg string, fields ...logging.Field) { l.z.Error(msg, toZapFields(fields)...) }
