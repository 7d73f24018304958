// Package runnable implements the closure boundary every posted fiber
// body runs inside: the pool-wide live-fiber count, the
// interrupted-before-start skip, and turning a panicking body into a
// logged error instead of taking the worker down with it.
package runnable

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/Swind/go-fiberpool/internal/fiberctx"
	"github.com/Swind/go-fiberpool/logging"
)

// liveCount is the process-wide count backing Pool.FiberCount: every
// Closure increments it on construction and decrements it on Invoke
// returning.
var liveCount atomic.Int64

// LiveCount returns the number of closures currently constructed but not
// yet finished running.
func LiveCount() int64 { return liveCount.Load() }

// MetricsRecorder receives panic/error events from Invoke. Satisfied
// structurally by observability/prometheus.MetricsExporter through a
// pool-supplied adapter; nil is fine when no metrics backend is wired.
type MetricsRecorder interface {
	RecordFiberPanic()
	RecordFiberError()
}

// Closure wraps one posted fiber body together with the ambient
// context.Context it runs under and the fiberctx.Context tracking its
// scheduling state.
type Closure struct {
	fc      *fiberctx.Context
	fn      func(ctx context.Context) error
	ctx     context.Context
	logger  logging.Logger
	metrics MetricsRecorder
}

// New constructs a Closure and accounts for it in LiveCount. fn's error
// return (if any) is swallowed into a logged error rather than
// propagated, so one fiber's failure never takes its worker down.
// metrics may be nil.
func New(fc *fiberctx.Context, ctx context.Context, fn func(ctx context.Context) error, logger logging.Logger, metrics MetricsRecorder) *Closure {
	liveCount.Add(1)
	return &Closure{fc: fc, fn: fn, ctx: ctx, logger: logger, metrics: metrics}
}

// Invoke runs the wrapped body unless the fiber was interrupted before
// ever getting a turn, in which case the body never runs at all. Either
// way LiveCount is decremented exactly once, and a panic inside the
// body is recovered and logged rather than propagated.
func (c *Closure) Invoke() {
	defer liveCount.Add(-1)

	if c.fc.Props().Interrupted() {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("fiber panicked", logging.F("fiber_id", c.fc.ID()), logging.F("panic", fmt.Sprintf("%v", r)))
			if c.metrics != nil {
				c.metrics.RecordFiberPanic()
			}
		}
	}()

	if err := c.fn(c.ctx); err != nil {
		c.logger.Error("fiber returned error", logging.F("fiber_id", c.fc.ID()), logging.F("error", err.Error()))
		if c.metrics != nil {
			c.metrics.RecordFiberError()
		}
	}
}
