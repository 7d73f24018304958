package sched

import (
	"sync"

	"github.com/Swind/go-fiberpool/internal/fiberctx"
)

// fifo is a small mutex-protected FIFO of ready fiber contexts. A
// thread-based scheduler can leave per-worker pinned/local queues
// unlocked, since only their owning OS thread ever touches them; this
// Go rendering protects every queue uniformly instead, since goroutines
// don't give the same thread-confinement guarantee. Contention is
// expected to be negligible: in steady state only the owning worker
// ever pushes or pops its own pinned/local queue.
type fifo struct {
	mu    sync.Mutex
	items []*fiberctx.Context
}

func (q *fifo) push(ctx *fiberctx.Context) {
	q.mu.Lock()
	q.items = append(q.items, ctx)
	q.mu.Unlock()
}

func (q *fifo) pop() (*fiberctx.Context, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	ctx := q.items[0]
	q.items = q.items[1:]
	return ctx, true
}

// remove unlinks ctx if present, reporting whether it was found. Used by
// PropertyChange, which must be able to cope with ctx not being in the
// queue at all (it may be running or blocked elsewhere).
func (q *fifo) remove(ctx *fiberctx.Context) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, c := range q.items {
		if c == ctx {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return true
		}
	}
	return false
}

func (q *fifo) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
