// Package fiberctx implements the fiber primitive this module schedules:
// a goroutine paired with a rendezvous channel, plus the small set of
// cooperative-cancel/pin/finish flags the scheduler and the public API
// read and write.
//
// Go has no stackful-coroutine primitive of its own, so a fiber here is a
// goroutine that blocks on resumeCh until a worker hands it a turn, and
// reports back on pauseCh at every suspension point. Exactly one fiber
// goroutine is ever unblocked per worker at a time, which is what gives
// the scheduler package its single-active-fiber-per-worker, non-preemptive
// behavior. The handoff mirrors a classic wakeCh rendezvous between a
// driver and a parked task.
package fiberctx

import (
	"sync"
	"sync/atomic"
)

// ID identifies a fiber for the lifetime of the pool. The zero ID never
// denotes a real fiber (mirrors a "null" fiber::id for empty handles).
type ID uint64

var idSeq atomic.Uint64

func nextID() ID {
	return ID(idSeq.Add(1))
}

// Kind distinguishes user-spawned fibers from the library-internal
// contexts (a scheduler's own main/dispatcher presence) that must never
// migrate off their owning scheduler's local queue.
type Kind int

const (
	KindUser Kind = iota
	KindInternal
)

// Properties are the per-fiber flags attached to every fiber context:
// interrupted/finished are monotonic false->true, pinned is monotonic
// false->true, priority is reserved and never read by the scheduler
// (kept as a forward-compatible, unused field rather than removed).
type Properties struct {
	interrupted atomic.Bool
	finished    atomic.Bool
	pinned      atomic.Bool
	priority    atomic.Int32
}

func (p *Properties) Interrupted() bool { return p.interrupted.Load() }

// Interrupt requests cooperative cancellation. Safe to call after the
// fiber has already finished; it simply has no further effect.
func (p *Properties) Interrupt() { p.interrupted.Store(true) }

func (p *Properties) Finished() bool { return p.finished.Load() }

// Finish marks the fiber done. Called exactly once, by the fiber
// goroutine New starts, right after the body returns (whether the
// runnable ran its body or skipped it), never by the scheduler.
func (p *Properties) Finish() { p.finished.Store(true) }

func (p *Properties) Pinned() bool { return p.pinned.Load() }

// Pin marks the fiber pinned. Idempotent; never unset once true.
func (p *Properties) Pin() { p.pinned.Store(true) }

// Priority and SetPriority exist only so the reserved field has a public
// shape; no scheduling decision in internal/sched ever reads it.
func (p *Properties) Priority() int     { return int(p.priority.Load()) }
func (p *Properties) SetPriority(v int) { p.priority.Store(int32(v)) }

// PauseReason tells the worker why a fiber handed control back.
type PauseReason int

const (
	// PauseYielded: the fiber hit a cooperative suspension point and
	// wants to be reclassified and re-awakened.
	PauseYielded PauseReason = iota
	// PauseFinished: the fiber's body returned; it must never be
	// re-enqueued (Properties.Finished() invariant).
	PauseFinished
)

// Context is one scheduled unit: either a real spawned fiber (KindUser)
// or a scheduler's own internal placeholder (KindInternal, which
// internal/sched keeps on the local queue; only tests create one).
type Context struct {
	id    ID
	kind  Kind
	props Properties

	resumeCh chan struct{}
	pauseCh  chan PauseReason

	// LocalData is the Go substitute for boost::this_fiber::data(): a
	// mutable slot a fiber body can stash arbitrary state in across
	// suspension points, reachable only through the ambient context.
	LocalData localSlot

	ownerMu sync.Mutex
	owner   any
}

// Owner returns the scheduler this fiber is bound to once pinned, or
// nil if it has never been pinned. Stored as `any` so this package
// doesn't need to import the scheduler package that would otherwise
// import it back.
func (fc *Context) Owner() any {
	fc.ownerMu.Lock()
	defer fc.ownerMu.Unlock()
	return fc.owner
}

// BindOwner records owner as this fiber's owning scheduler the first
// time it's called, and is a no-op afterwards — a pinned fiber keeps
// the same owner for its whole lifetime. Returns the (possibly
// pre-existing) owner.
func (fc *Context) BindOwner(owner any) any {
	fc.ownerMu.Lock()
	defer fc.ownerMu.Unlock()
	if fc.owner == nil {
		fc.owner = owner
	}
	return fc.owner
}

// New spawns a fiber running body. body receives fc so user-facing
// helpers (IsInterrupted, Yield, BindToThisThread) can reach this
// Context through the ambient context.Context the caller builds around
// it; fiberctx itself has no notion of context.Context to stay
// decoupled from the public API package. onFinish, if non-nil, runs
// right after the fiber is marked finished but before the driving
// worker is told PauseFinished — callers use it to signal their own
// completion channel (e.g. a join handle) without this package needing
// to know that type exists.
func New(kind Kind, body func(fc *Context), onFinish func()) *Context {
	fc := &Context{
		id:       nextID(),
		kind:     kind,
		resumeCh: make(chan struct{}),
		pauseCh:  make(chan PauseReason, 1),
	}
	go func() {
		<-fc.resumeCh
		body(fc)
		fc.props.Finish()
		if onFinish != nil {
			onFinish()
		}
		fc.pauseCh <- PauseFinished
	}()
	return fc
}

func (fc *Context) ID() ID           { return fc.id }
func (fc *Context) Kind() Kind       { return fc.kind }
func (fc *Context) Props() *Properties { return &fc.props }

// Resume hands the fiber's goroutine a turn and blocks until it either
// yields (cooperative suspension point) or finishes. It is only ever
// called by the worker goroutine currently driving this Context.
func (fc *Context) Resume() PauseReason {
	fc.resumeCh <- struct{}{}
	return <-fc.pauseCh
}

// Yield is the fiber body's cooperative suspension point: it reports
// PauseYielded to the driving worker and blocks until resumed again.
// Suspension points are the only places a fiber may be rescheduled onto
// a different worker.
func (fc *Context) Yield() {
	fc.pauseCh <- PauseYielded
	<-fc.resumeCh
}

// localSlot is a tiny mutable-any cell; see ambient FiberLocalData.
type localSlot struct {
	v atomic.Value
}

func (s *localSlot) Get() any {
	h, _ := s.v.Load().(holder)
	return h.v
}

func (s *localSlot) Set(v any) {
	// atomic.Value requires a concrete, consistently-typed value; box
	// everything in a holder so callers can Set(nil) or switch types
	// across a fiber's lifetime without panicking.
	s.v.Store(holder{v})
}

type holder struct{ v any }
