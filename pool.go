// Package fiberpool implements a pooled, user-space fiber runtime: a
// fixed set of worker goroutines cooperatively scheduling an unbounded
// population of lightweight, independently-executing fibers, with
// work-sharing (shared/pinned/local ready queues) and cooperative
// interruption.
//
// A "fiber" here is a goroutine paired with a rendezvous channel rather
// than a true stackful coroutine — see internal/fiberctx — since Go has
// no stackful-coroutine primitive of its own. Ambient per-fiber state
// (interruption flag, pinning, local data) is threaded through an
// explicit context.Context rather than thread-local storage.
package fiberpool

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/creasty/defaults"
	"github.com/fupengl/promise"

	"github.com/Swind/go-fiberpool/internal/delayqueue"
	"github.com/Swind/go-fiberpool/internal/fiberctx"
	"github.com/Swind/go-fiberpool/internal/runnable"
	"github.com/Swind/go-fiberpool/internal/sched"
	"github.com/Swind/go-fiberpool/logging"
)

// State is the pool's lifecycle state.
type State int32

const (
	StateRunning State = iota
	StateWaiting
	StateCleaning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateWaiting:
		return "waiting"
	case StateCleaning:
		return "cleaning"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// PoolConfig configures a Pool. Zero values are filled in by NewPool
// via creasty/defaults, matching the rest of this module's config
// structs.
type PoolConfig struct {
	// Name labels this pool's metrics and log lines when more than one
	// pool runs in the same process.
	Name string `default:"default"`

	// Threads is the fixed worker count. Zero means
	// max(runtime.GOMAXPROCS(0), 2)*2.
	Threads int `default:"0"`

	// Logger receives swallowed panics/errors and lifecycle events.
	// Defaults to logging.NewDefaultLogger().
	Logger logging.Logger

	// Metrics, if set, receives fiber panic/error counts — satisfied by
	// observability/prometheus.MetricsExporter.
	Metrics MetricsRecorder

	// ShutdownPollInterval is how often an idle worker wakes up to
	// recheck the pool's shutdown state while parked.
	ShutdownPollInterval time.Duration `default:"10ms"`

	// ShutdownBoundedJoin is the bounded-join window Shutdown(true)
	// waits, in total, for the live fiber count to reach zero before
	// forcing the state machine into Cleaning.
	ShutdownBoundedJoin time.Duration `default:"100ms"`
}

// MetricsRecorder is the ambient metrics sink a Pool forwards fiber
// panic/error events to. observability/prometheus.MetricsExporter
// satisfies this structurally.
type MetricsRecorder interface {
	RecordFiberPanic(pool string)
	RecordFiberError(pool string)
}

// metricsAdapter binds a MetricsRecorder to this pool's name so
// internal/runnable, which knows nothing about pool identity, can call
// a zero-argument MetricsRecorder.
type metricsAdapter struct {
	rec  MetricsRecorder
	name string
}

func (a metricsAdapter) RecordFiberPanic() {
	if a.rec != nil {
		a.rec.RecordFiberPanic(a.name)
	}
}

func (a metricsAdapter) RecordFiberError() {
	if a.rec != nil {
		a.rec.RecordFiberError(a.name)
	}
}

// PoolStats is a point-in-time snapshot of pool health, consumed by
// observability/prometheus.SnapshotPoller.
type PoolStats struct {
	Name       string
	State      State
	Workers    int
	FiberCount int64
}

// Pool is a fixed-size set of worker goroutines driving an unbounded
// population of fibers. Construct one with GetPool (the process-wide
// singleton) or NewPool (an independent instance, mainly for tests).
type Pool struct {
	cfg    PoolConfig
	logger logging.Logger

	state atomic.Int32

	registry  *sched.Registry
	mainSched *sched.Scheduler
	workers   []*sched.Scheduler
	delay     *delayqueue.Manager

	wg        sync.WaitGroup
	stopCh    chan struct{}
	closeOnce sync.Once
}

var (
	globalMu   sync.Mutex
	globalPool *Pool
)

// GetPool returns the process-wide singleton pool, creating it on first
// call with the given worker count (threads[0], if provided). Later
// calls ignore the argument and return the existing singleton, matching
// a lazily-initialized global scheduler registry.
func GetPool(threads ...int) *Pool {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalPool != nil {
		return globalPool
	}
	n := 0
	if len(threads) > 0 {
		n = threads[0]
	}
	globalPool = newPool(PoolConfig{Threads: n})
	return globalPool
}

// NewPool constructs an independent Pool from cfg, applying defaults to
// any zero-valued field.
func NewPool(cfg PoolConfig) *Pool {
	_ = defaults.Set(&cfg)
	return newPool(cfg)
}

func newPool(cfg PoolConfig) *Pool {
	if cfg.Name == "" {
		cfg.Name = "default"
	}
	if cfg.Threads <= 0 {
		procs := runtime.GOMAXPROCS(0)
		if procs < 2 {
			procs = 2
		}
		cfg.Threads = procs * 2
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewDefaultLogger()
	}
	if cfg.ShutdownPollInterval <= 0 {
		cfg.ShutdownPollInterval = 10 * time.Millisecond
	}
	if cfg.ShutdownBoundedJoin <= 0 {
		cfg.ShutdownBoundedJoin = 100 * time.Millisecond
	}

	p := &Pool{
		cfg:      cfg,
		logger:   cfg.Logger,
		registry: sched.NewRegistry(),
		delay:    delayqueue.New(),
		stopCh:   make(chan struct{}),
	}
	p.state.Store(int32(StateRunning))
	p.mainSched = sched.New(p.registry, true)

	p.workers = make([]*sched.Scheduler, cfg.Threads)
	for i := range p.workers {
		s := sched.New(p.registry, false)
		p.workers[i] = s
		p.wg.Add(1)
		go p.workerLoop(s)
	}

	p.logger.Info("pool started", logging.F("workers", cfg.Threads))
	return p
}

// State returns the pool's current lifecycle state.
func (p *Pool) State() State {
	return State(p.state.Load())
}

// FiberCount returns the number of fibers currently constructed but not
// yet finished, across the whole process (internal/runnable's live
// counter is process-wide, mirroring a static fiber-count counter).
func (p *Pool) FiberCount() int {
	return int(runnable.LiveCount())
}

// Stats returns a point-in-time snapshot of pool health.
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		Name:       p.cfg.Name,
		State:      p.State(),
		Workers:    len(p.workers),
		FiberCount: runnable.LiveCount(),
	}
}

// Post schedules fn to run as a new fiber and returns a handle to it.
// fn receives a context.Context carrying the ambient fiber — IsInterrupted,
// BindToThisThread, Yield and FiberLocalData all read it from there.
// Returns ErrSubmitAfterShutdown once the pool has left Running.
func (p *Pool) Post(fn func(ctx context.Context)) (FiberHandle, error) {
	if p.State() != StateRunning {
		return FiberHandle{}, ErrSubmitAfterShutdown
	}

	fc, rec := p.newFiber(fn)

	// Classify and enqueue through the main scheduler, the registry
	// member standing in for "whatever goroutine is posting" — see
	// SPEC_FULL.md §0.4 on posting threads not needing their own
	// persistent Scheduler. A freshly posted fiber is never pinned yet, so this
	// always lands on the shared ready queue and wakes a worker.
	p.mainSched.Awakened(fc)

	return FiberHandle{rec: rec}, nil
}

// PostAfter schedules fn to run as a new fiber once delay has elapsed,
// returning a handle immediately. The fiber does not exist on any ready
// queue until the delay fires; Joinable/Join/Interrupt all work on the
// returned handle in the meantime exactly as they would on a handle from
// Post. Returns ErrSubmitAfterShutdown if the pool has already left
// Running.
func (p *Pool) PostAfter(delay time.Duration, fn func(ctx context.Context)) (FiberHandle, error) {
	if p.State() != StateRunning {
		return FiberHandle{}, ErrSubmitAfterShutdown
	}

	fc, rec := p.newFiber(fn)
	p.delay.Schedule(delay, func() {
		if p.State() != StateRunning {
			return
		}
		p.mainSched.Awakened(fc)
	})

	return FiberHandle{rec: rec}, nil
}

// newFiber builds a fiber body around fn along with the handle record
// backing it, without enqueuing it anywhere yet. The runnable closure is
// constructed here, so the fiber counts toward FiberCount from the
// moment it is submitted, not only once a worker first resumes it.
func (p *Pool) newFiber(fn func(ctx context.Context)) (*fiberctx.Context, *handleRecord) {
	rec := newHandleRecord(nil)

	// cl is assigned below, before the fiber can be enqueued; the fiber
	// goroutine only reads it after its first Resume.
	var cl *runnable.Closure
	fc := fiberctx.New(fiberctx.KindUser, func(fc *fiberctx.Context) {
		cl.Invoke()
	}, func() {
		close(rec.done)
	})
	cl = runnable.New(fc, withFiber(context.Background(), fc, p), func(ctx context.Context) error {
		fn(ctx)
		return nil
	}, p.logger, metricsAdapter{rec: p.cfg.Metrics, name: p.cfg.Name})
	rec.fc = fc

	return fc, rec
}

// Async schedules fn to run as a new fiber and returns a promise
// resolved with its return value, or rejected with its returned error
// (or a recovered panic). Go has no variadic-arity template the way a
// C++ async<Fn, Arg...> would; callers capture their own arguments in
// fn's closure instead, exactly like Post.
func Async[T any](p *Pool, fn func(ctx context.Context) (T, error)) (*promise.Promise[T], error) {
	prom, resolve, reject := promise.WithResolvers[T]()

	_, err := p.Post(func(ctx context.Context) {
		defer func() {
			if r := recover(); r != nil {
				reject(fmt.Errorf("fiberpool: fiber panicked: %v", r))
			}
		}()
		v, err := fn(ctx)
		if err != nil {
			reject(err)
			return
		}
		resolve(v)
	})
	if err != nil {
		return nil, err
	}
	return prom, nil
}

// workerLoop is the scheduling loop a real worker goroutine runs for
// its entire lifetime: pick a ready fiber, resume it, reclassify it
// based on where it yielded from (or drop it if it finished), repeat.
// Exactly one fiber body ever runs on a given worker at a time — the
// non-preemptive, cooperative model this whole package implements.
func (p *Pool) workerLoop(s *sched.Scheduler) {
	defer p.wg.Done()
	defer p.registry.Deregister(s)
	for {
		fc := s.PickNext()
		if fc == nil {
			select {
			case <-p.stopCh:
				if !s.HasReadyFibers() {
					return
				}
			default:
			}
			s.SuspendUntil(p.cfg.ShutdownPollInterval)
			continue
		}

		reason := fc.Resume()
		if reason == fiberctx.PauseYielded {
			if fc.Props().Pinned() {
				owner := fc.BindOwner(s)
				if ownerSched, ok := owner.(*sched.Scheduler); ok {
					ownerSched.Awakened(fc)
				} else {
					s.Awakened(fc)
				}
			} else {
				s.Awakened(fc)
			}
		}
	}
}

// Shutdown transitions the pool out of Running. If wait is true it
// bounded-joins outstanding fibers for up to one ShutdownBoundedJoin
// window, forcing the state machine into Cleaning once the live fiber
// count reaches zero (or the bounded-join window expires, whichever
// comes first), then on to Stopped. If wait is false it moves straight
// to Cleaning — every fiber observes IsInterrupted become true on its
// next check; fibers already on a ready queue are still resumed before
// the workers exit, while PostAfter work whose delay has not yet fired
// is discarded — and returns once that transition is visible, leaving
// the final drain to Stopped running in the background.
func (p *Pool) Shutdown(wait bool) {
	if !wait {
		if !p.state.CompareAndSwap(int32(StateRunning), int32(StateCleaning)) {
			return
		}
		p.logger.Info("pool shutting down", logging.F("wait", false))
		p.delay.Stop()
		close(p.stopCh)
		go func() {
			p.wg.Wait()
			p.state.Store(int32(StateStopped))
			p.logger.Info("pool stopped")
		}()
		return
	}

	if !p.state.CompareAndSwap(int32(StateRunning), int32(StateWaiting)) {
		return
	}
	p.logger.Info("pool shutting down", logging.F("wait", true))
	p.delay.Stop()

	deadline := time.Now().Add(p.cfg.ShutdownBoundedJoin)
	for runnable.LiveCount() > 0 && time.Now().Before(deadline) {
		time.Sleep(p.cfg.ShutdownPollInterval)
	}
	if runnable.LiveCount() > 0 {
		p.logger.Warn("forcing shutdown past bounded join window", logging.F("remaining", runnable.LiveCount()))
	}
	p.state.Store(int32(StateCleaning))
	close(p.stopCh)
	p.wg.Wait()
	p.state.Store(int32(StateStopped))
	p.logger.Info("pool stopped")
}

// Close releases the pool's resources. It returns ErrPoolNotStopped if
// the pool has not yet reached Stopped — logging loudly and performing
// a best-effort, non-blocking shutdown rather than aborting the
// process: a library must never call os.Exit or panic on its host
// program's behalf.
func (p *Pool) Close() error {
	if p.State() == StateStopped {
		return nil
	}
	p.logger.Error("pool closed before reaching Stopped", logging.F("state", p.State().String()))
	p.closeOnce.Do(func() {
		p.Shutdown(false)
	})
	return ErrPoolNotStopped
}
