package fiberctx

import "testing"

func TestPropertiesMonotonic(t *testing.T) {
	var p Properties

	if p.Interrupted() || p.Finished() || p.Pinned() {
		t.Fatal("fresh Properties must start false")
	}

	p.Interrupt()
	p.Finish()
	p.Pin()

	if !p.Interrupted() || !p.Finished() || !p.Pinned() {
		t.Fatal("flags did not flip true")
	}

	// Nothing in this package ever calls Store(false) again; there is no
	// reset method to call here, so the invariant is that the API
	// surface offers no way back to false.
}

func TestResumeYieldHandoff(t *testing.T) {
	order := make(chan string, 4)

	fc := New(KindUser, func(fc *Context) {
		order <- "started"
		fc.Yield()
		order <- "resumed"
	}, nil)

	reason := fc.Resume()
	if reason != PauseYielded {
		t.Fatalf("reason = %v, want PauseYielded", reason)
	}
	if got := <-order; got != "started" {
		t.Fatalf("got %q, want started", got)
	}

	reason = fc.Resume()
	if reason != PauseFinished {
		t.Fatalf("reason = %v, want PauseFinished", reason)
	}
	if got := <-order; got != "resumed" {
		t.Fatalf("got %q, want resumed", got)
	}
	if !fc.Props().Finished() {
		t.Fatal("fiber should be marked finished")
	}
}

func TestOnFinishCallback(t *testing.T) {
	done := make(chan struct{})
	fc := New(KindUser, func(fc *Context) {}, func() {
		close(done)
	})

	if fc.Resume() != PauseFinished {
		t.Fatal("expected immediate finish")
	}
	select {
	case <-done:
	default:
		t.Fatal("onFinish should have run before Resume returned")
	}
}

func TestLocalSlot(t *testing.T) {
	var s localSlot
	if s.Get() != nil {
		t.Fatal("empty slot should read nil")
	}
	s.Set(42)
	if got := s.Get(); got != 42 {
		t.Fatalf("got %v, want 42", got)
	}
	s.Set("hello")
	if got := s.Get(); got != "hello" {
		t.Fatalf("got %v, want hello", got)
	}
}

func TestBindOwnerIsStickyOnFirstCall(t *testing.T) {
	fc := New(KindUser, func(fc *Context) {}, nil)

	first := fc.BindOwner("worker-a")
	second := fc.BindOwner("worker-b")

	if first != "worker-a" || second != "worker-a" {
		t.Fatalf("owner changed after first bind: first=%v second=%v", first, second)
	}
	fc.Resume()
}

func TestIDsAreUnique(t *testing.T) {
	a := New(KindInternal, func(fc *Context) {}, nil)
	b := New(KindInternal, func(fc *Context) {}, nil)
	if a.ID() == b.ID() {
		t.Fatal("two fibers got the same ID")
	}
	a.Resume()
	b.Resume()
}
