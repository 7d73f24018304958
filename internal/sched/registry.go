// Package sched implements the per-worker scheduling algorithm (three
// ready queues, pick-next tie-breaks) and the process-wide registry of
// live schedulers, specialized to this module's fiberctx-based fibers.
package sched

import "sync"

// Registry is the process-wide scheduler directory: it owns the one
// shared ready queue (kept here, rather than a bare package global, so
// tests can construct independent registries without cross-test
// interference), the set of live schedulers, and the main-scheduler
// marker. There is no destructor-ordering hazard to manage here: Go's
// GC reclaims a deregistered Scheduler whenever nothing else references
// it, so Register/Deregister are plain, explicit, testable operations
// instead of a construction/destruction race.
type Registry struct {
	mu      sync.Mutex
	members map[*Scheduler]struct{}
	main    *Scheduler

	shared fifo
}

// NewRegistry creates an empty registry. Each Pool constructs its own;
// tests construct independent registries to avoid cross-test
// interference on the shared ready queue.
func NewRegistry() *Registry {
	return &Registry{members: make(map[*Scheduler]struct{})}
}

// Register adds s to the live-scheduler set so NotifyAll/NotifyOne can
// reach it.
func (r *Registry) Register(s *Scheduler) {
	r.mu.Lock()
	r.members[s] = struct{}{}
	r.mu.Unlock()
}

// Deregister removes s; called when a worker's scheduler is retired
// (pool shutdown reaching Stopped).
func (r *Registry) Deregister(s *Scheduler) {
	r.mu.Lock()
	delete(r.members, s)
	r.mu.Unlock()
}

// SetMain records s as the main scheduler. Irrevocable: once set, later
// calls are no-ops.
func (r *Registry) SetMain(s *Scheduler) {
	r.mu.Lock()
	if r.main == nil {
		r.main = s
	}
	r.mu.Unlock()
}

// IsMain reports whether s is the registered main scheduler.
func (r *Registry) IsMain(s *Scheduler) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.main != nil && r.main == s
}

// NotifyAllExcept wakes every live scheduler except self — skipping the
// caller avoids a scheduler uselessly waking itself.
func (r *Registry) NotifyAllExcept(self *Scheduler) {
	r.mu.Lock()
	targets := make([]*Scheduler, 0, len(r.members))
	for s := range r.members {
		if s != self {
			targets = append(targets, s)
		}
	}
	r.mu.Unlock()

	for _, s := range targets {
		s.Notify()
	}
}

// NotifyOne wakes a single live scheduler, if any are registered.
func (r *Registry) NotifyOne() {
	r.mu.Lock()
	var target *Scheduler
	for s := range r.members {
		target = s
		break
	}
	r.mu.Unlock()

	if target != nil {
		target.Notify()
	}
}
