package sched

import (
	"time"

	"github.com/Swind/go-fiberpool/internal/fiberctx"
)

// Scheduler is one worker's (or the one synthetic main thread's)
// instance of the scheduling algorithm: three ready queues (shared,
// pinned, local) and wake/suspend machinery. Tie-break order is
// pinned > shared > local, FIFO within each — see PickNext.
type Scheduler struct {
	registry *Registry
	isMain   bool

	pinned fifo
	local  fifo

	// suspendEnabled mirrors boost::fibers::algorithm's "suspend_" flag:
	// when false, SuspendUntil returns immediately (busy-spin) instead of
	// blocking.
	suspendEnabled bool
	wake           chan struct{}
}

// New creates a scheduler registered with r. isMain marks the single
// synthetic scheduler representing the pool's creating goroutine; every
// real worker goroutine gets its own non-main Scheduler.
func New(r *Registry, isMain bool) *Scheduler {
	s := &Scheduler{
		registry:       r,
		isMain:         isMain,
		suspendEnabled: true,
		wake:           make(chan struct{}, 1),
	}
	r.Register(s)
	if isMain {
		r.SetMain(s)
	}
	return s
}

// IsMain reports whether this is the registry's main scheduler.
func (s *Scheduler) IsMain() bool { return s.isMain }

// Awakened classifies a fiber that has just become ready to run:
//  1. library-internal contexts go on this scheduler's local queue and
//     never migrate;
//  2. a pinned fiber goes on this scheduler's pinned queue (pinning to
//     the main scheduler is a programmer error caught here defensively —
//     BindToThisThread is supposed to have already refused it);
//  3. everything else goes on the shared ready queue and every other
//     live scheduler is woken so a parked worker can pick it up.
func (s *Scheduler) Awakened(ctx *fiberctx.Context) {
	switch {
	case ctx.Kind() == fiberctx.KindInternal:
		s.local.push(ctx)
	case ctx.Props().Pinned():
		if s.isMain {
			panic("fiberpool: fiber pinned to the main scheduler")
		}
		s.pinned.push(ctx)
	default:
		s.registry.shared.push(ctx)
		s.registry.NotifyAllExcept(s)
	}
}

// PropertyChange reclassifies ctx after one of its properties changed
// (typically: it was just pinned). If ctx isn't presently linked into
// any ready queue — the common case, since the fiber calling
// BindToThisThread on itself is always running, not queued — this is a
// no-op; it will be classified correctly the next time Awakened sees
// it.
func (s *Scheduler) PropertyChange(ctx *fiberctx.Context) {
	if s.pinned.remove(ctx) || s.local.remove(ctx) || s.registry.shared.remove(ctx) {
		s.Awakened(ctx)
	}
}

// PickNext selects the next fiber context to run on this worker, or nil
// if there is none ready (the caller should then block in SuspendUntil).
//
// On the main scheduler, pick_next never runs user fibers: it wakes
// every other scheduler so real workers drain the shared queue, then
// falls through to its own local queue only.
func (s *Scheduler) PickNext() *fiberctx.Context {
	if s.isMain {
		s.registry.NotifyAllExcept(s)
		ctx, _ := s.local.pop()
		return ctx
	}

	if ctx, ok := s.pinned.pop(); ok {
		return ctx
	}
	if ctx, ok := s.registry.shared.pop(); ok {
		return ctx
	}
	if ctx, ok := s.local.pop(); ok {
		return ctx
	}
	return nil
}

// HasReadyFibers reports whether PickNext would currently return
// something. On the main scheduler only the local queue counts.
func (s *Scheduler) HasReadyFibers() bool {
	if s.isMain {
		return s.local.len() > 0
	}
	return s.pinned.len() > 0 || s.registry.shared.len() > 0 || s.local.len() > 0
}

// SuspendUntil parks the calling worker until Notify fires or timeout
// elapses, unless suspension is disabled (busy-spin mode), in which
// case it returns immediately. A buffered wake channel is idiomatic Go
// for a single-writer/single-waiter wake signal, the same shape as
// internal/delayqueue.Manager's wakeup channel.
func (s *Scheduler) SuspendUntil(timeout time.Duration) {
	if !s.suspendEnabled {
		return
	}
	if timeout <= 0 {
		<-s.wake
		return
	}
	select {
	case <-s.wake:
	case <-time.After(timeout):
	}
}

// Notify wakes a worker blocked in SuspendUntil. Non-blocking: if a
// wake is already pending, this is a no-op (coalesced into a single
// pending flag rather than queued).
func (s *Scheduler) Notify() {
	if !s.suspendEnabled {
		return
	}
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// SetSuspendEnabled toggles busy-spin vs. blocking park mode. Exposed
// for tests that want deterministic, immediate PickNext retries.
func (s *Scheduler) SetSuspendEnabled(enabled bool) {
	s.suspendEnabled = enabled
}
