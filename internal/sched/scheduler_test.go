package sched

import (
	"testing"
	"time"

	"github.com/Swind/go-fiberpool/internal/fiberctx"
)

func newTestFiber() *fiberctx.Context {
	return fiberctx.New(fiberctx.KindUser, func(fc *fiberctx.Context) {
		fc.Yield()
	}, nil)
}

func TestPickNextTieBreakOrder(t *testing.T) {
	r := NewRegistry()
	s := New(r, false)

	pinned := newTestFiber()
	shared := newTestFiber()
	local := newTestFiber()

	s.pinned.push(pinned)
	r.shared.push(shared)
	s.local.push(local)

	if got := s.PickNext(); got != pinned {
		t.Fatalf("expected pinned fiber first, got %v", got)
	}
	if got := s.PickNext(); got != shared {
		t.Fatalf("expected shared fiber second, got %v", got)
	}
	if got := s.PickNext(); got != local {
		t.Fatalf("expected local fiber third, got %v", got)
	}
	if got := s.PickNext(); got != nil {
		t.Fatalf("expected nil once drained, got %v", got)
	}

	pinned.Resume()
	shared.Resume()
	local.Resume()
}

func TestAwakenedClassification(t *testing.T) {
	r := NewRegistry()
	s := New(r, false)

	internalFc := fiberctx.New(fiberctx.KindInternal, func(fc *fiberctx.Context) { fc.Yield() }, nil)
	s.Awakened(internalFc)
	if s.local.len() != 1 {
		t.Fatal("internal context should land on the local queue")
	}

	pinnedFc := newTestFiber()
	pinnedFc.Props().Pin()
	s.Awakened(pinnedFc)
	if s.pinned.len() != 1 {
		t.Fatal("pinned context should land on the pinned queue")
	}

	plainFc := newTestFiber()
	s.Awakened(plainFc)
	if r.shared.len() != 1 {
		t.Fatal("unpinned user context should land on the shared queue")
	}

	internalFc.Resume()
	pinnedFc.Resume()
	plainFc.Resume()
}

func TestAwakenedPanicsOnMainPinned(t *testing.T) {
	r := NewRegistry()
	main := New(r, true)

	fc := newTestFiber()
	fc.Props().Pin()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic pinning a fiber to the main scheduler")
		}
		fc.Resume()
	}()
	main.Awakened(fc)
}

func TestPropertyChangeNoOpWhenUnlinked(t *testing.T) {
	r := NewRegistry()
	s := New(r, false)

	fc := newTestFiber()
	// fc isn't linked into any queue; PropertyChange must be a no-op.
	s.PropertyChange(fc)

	if s.pinned.len() != 0 || s.local.len() != 0 || r.shared.len() != 0 {
		t.Fatal("PropertyChange should not have enqueued an unlinked context")
	}
	fc.Resume()
}

func TestPropertyChangeReclassifiesLinkedContext(t *testing.T) {
	r := NewRegistry()
	s := New(r, false)

	fc := newTestFiber()
	s.registry.shared.push(fc)

	fc.Props().Pin()
	s.PropertyChange(fc)

	if r.shared.len() != 0 {
		t.Fatal("context should have been unlinked from the shared queue")
	}
	if s.pinned.len() != 1 {
		t.Fatal("context should have been reclassified onto the pinned queue")
	}
	fc.Resume()
}

func TestHasReadyFibersMainOnlyCountsLocal(t *testing.T) {
	r := NewRegistry()
	main := New(r, true)

	if main.HasReadyFibers() {
		t.Fatal("empty main scheduler should report no ready fibers")
	}

	fc := newTestFiber()
	r.shared.push(fc)
	if main.HasReadyFibers() {
		t.Fatal("main scheduler must not count the shared queue")
	}
	r.shared.pop()

	fc2 := newTestFiber()
	main.local.push(fc2)
	if !main.HasReadyFibers() {
		t.Fatal("main scheduler should count its own local queue")
	}

	fc.Resume()
	fc2.Resume()
}

func TestSuspendUntilWakesOnNotify(t *testing.T) {
	r := NewRegistry()
	s := New(r, false)

	woke := make(chan struct{})
	go func() {
		s.SuspendUntil(time.Second)
		close(woke)
	}()

	time.Sleep(10 * time.Millisecond)
	s.Notify()

	select {
	case <-woke:
	case <-time.After(time.Second):
		t.Fatal("SuspendUntil did not wake on Notify")
	}
}

func TestSuspendUntilTimesOut(t *testing.T) {
	r := NewRegistry()
	s := New(r, false)

	start := time.Now()
	s.SuspendUntil(20 * time.Millisecond)
	if time.Since(start) < 20*time.Millisecond {
		t.Fatal("SuspendUntil returned before its timeout elapsed")
	}
}
