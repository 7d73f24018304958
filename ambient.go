package fiberpool

import (
	"context"

	"github.com/Swind/go-fiberpool/internal/fiberctx"
)

type fiberCtxKey struct{}

// ambientFiber is the value stored under fiberCtxKey: the fiber itself
// plus the pool driving it, so IsInterrupted can observe process-wide
// shutdown as well as a per-fiber Interrupt() call. pool is nil for a
// fiber constructed without an owning Pool in scope (none in practice,
// but fiberFrom/IsInterrupted must not assume it's set).
type ambientFiber struct {
	fc   *fiberctx.Context
	pool *Pool
}

// withFiber returns a context carrying fc (owned by pool) as the
// ambient fiber. It is the Go substitute for the thread-local fiber
// properties a stackful coroutine runtime exposes implicitly.
func withFiber(parent context.Context, fc *fiberctx.Context, pool *Pool) context.Context {
	return context.WithValue(parent, fiberCtxKey{}, &ambientFiber{fc: fc, pool: pool})
}

func fiberFrom(ctx context.Context) (*fiberctx.Context, bool) {
	af, ok := ctx.Value(fiberCtxKey{}).(*ambientFiber)
	if !ok {
		return nil, false
	}
	return af.fc, true
}

func poolFrom(ctx context.Context) (*Pool, bool) {
	af, ok := ctx.Value(fiberCtxKey{}).(*ambientFiber)
	if !ok || af.pool == nil {
		return nil, false
	}
	return af.pool, true
}

// IsInterrupted reports whether the fiber running under ctx has been
// asked to cancel cooperatively. That happens two ways: the fiber's own
// handle was interrupted, or the owning pool has moved past Waiting
// into Cleaning/Stopped, which interrupts every fiber at once
// regardless of whether it was individually targeted. Called with a
// context carrying no ambient fiber, it always reports false.
func IsInterrupted(ctx context.Context) bool {
	fc, ok := fiberFrom(ctx)
	if !ok {
		return false
	}
	if fc.Props().Interrupted() {
		return true
	}
	if pool, ok := poolFrom(ctx); ok && pool.State() > StateWaiting {
		return true
	}
	return false
}

// BindToThisThread pins the fiber running under ctx to the worker
// currently driving it: from this point on the fiber only ever resumes
// on that worker. Returns ErrPin if ctx carries no ambient fiber — the
// realization of "pinning the main thread is an error" (see DESIGN.md,
// open-question decision 4).
func BindToThisThread(ctx context.Context) error {
	fc, ok := fiberFrom(ctx)
	if !ok {
		return ErrPin
	}
	fc.Props().Pin()
	return nil
}

// Yield hands control back to the scheduler at a cooperative suspension
// point. A fiber calling Yield may resume on a different worker unless
// it has been pinned. Called with no ambient fiber, it's a no-op.
func Yield(ctx context.Context) {
	fc, ok := fiberFrom(ctx)
	if !ok {
		return
	}
	fc.Yield()
}

// LocalSlot is a mutable per-fiber cell, reachable only through the
// ambient context, that survives across suspension points.
type LocalSlot struct {
	fc *fiberctx.Context
}

// Get returns the last value Set, or nil if none was ever stored.
func (s *LocalSlot) Get() any { return s.fc.LocalData.Get() }

// Set stores v in the slot, overwriting any previous value.
func (s *LocalSlot) Set(v any) { s.fc.LocalData.Set(v) }

// FiberLocalData returns the calling fiber's local-data slot, or nil if
// ctx carries no ambient fiber.
func FiberLocalData(ctx context.Context) *LocalSlot {
	fc, ok := fiberFrom(ctx)
	if !ok {
		return nil
	}
	return &LocalSlot{fc: fc}
}
