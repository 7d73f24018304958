package fiberpool

import (
	"context"
	"sync/atomic"

	"github.com/Swind/go-fiberpool/internal/fiberctx"
)

// handleRecord is the shared state behind every copy of a FiberHandle.
// A stackful-coroutine runtime can rely on a handle's destructor
// running exactly once when its last copy goes out of scope; Go has no
// destructors, so refs/released make that bookkeeping explicit instead
// — Release must be called by whoever holds the last copy.
type handleRecord struct {
	fc       *fiberctx.Context
	refs     atomic.Int64
	released atomic.Bool

	interruptOnDrop atomic.Bool

	// done is closed exactly once, by the fiber's onFinish callback (see
	// Pool.newFiber), when fc finishes.
	done chan struct{}
}

// FiberHandle is a cheap, copyable reference to a posted fiber. The
// zero value is not joinable; handles are only produced by Pool.Post and
// Pool.PostAfter.
type FiberHandle struct {
	rec *handleRecord
}

func newHandleRecord(fc *fiberctx.Context) *handleRecord {
	rec := &handleRecord{fc: fc, done: make(chan struct{})}
	rec.refs.Store(1)
	return rec
}

// ID returns the fiber's identity. The zero ID denotes a handle with no
// backing fiber.
func (h FiberHandle) ID() fiberctx.ID {
	if h.rec == nil {
		return 0
	}
	return h.rec.fc.ID()
}

// Joinable reports whether Join can still meaningfully be called: the
// handle must have a live backing record that hasn't been released yet.
func (h FiberHandle) Joinable() bool {
	return h.rec != nil && !h.rec.released.Load()
}

// Finished reports whether the fiber's body has returned.
func (h FiberHandle) Finished() bool {
	if h.rec == nil {
		return true
	}
	return h.rec.fc.Props().Finished()
}

// Join blocks until the fiber finishes or ctx is done, whichever comes
// first.
func (h FiberHandle) Join(ctx context.Context) error {
	if !h.Joinable() {
		return ErrNotJoinable
	}
	select {
	case <-h.rec.done:
		return nil
	case <-ctx.Done():
		return ErrJoinTimeout
	}
}

// Interrupt requests cooperative cancellation of the fiber. Safe to
// call any number of times, including after the fiber has finished.
func (h FiberHandle) Interrupt() {
	if h.rec == nil {
		return
	}
	h.rec.fc.Props().Interrupt()
}

// InterruptOnDestruct arranges for Interrupt to be called automatically
// once the last copy of this handle is Released, the Go rendering of a
// detached handle that still wants its fiber cancelled when it goes out
// of scope.
func (h FiberHandle) InterruptOnDestruct() {
	if h.rec == nil {
		return
	}
	h.rec.interruptOnDrop.Store(true)
}

// Share returns a new copy of this handle that counts toward the same
// reference count as h — the explicit stand-in for copying a handle
// value in a language with destructors. Both copies must eventually be
// Released.
func (h FiberHandle) Share() FiberHandle {
	if h.rec != nil {
		h.rec.refs.Add(1)
	}
	return h
}

// Release drops this copy of the handle. Once the last copy has been
// released, if InterruptOnDestruct was requested, the fiber is
// interrupted.
func (h FiberHandle) Release() {
	if h.rec == nil {
		return
	}
	if h.rec.refs.Add(-1) == 0 {
		h.rec.released.Store(true)
		if h.rec.interruptOnDrop.Load() {
			h.rec.fc.Props().Interrupt()
		}
	}
}
