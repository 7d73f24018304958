package sched

import (
	"testing"
	"time"
)

func TestSetMainIsIrrevocable(t *testing.T) {
	r := NewRegistry()
	a := New(r, true)
	b := New(r, true)

	if !r.IsMain(a) {
		t.Fatal("first scheduler should be recorded as main")
	}
	if r.IsMain(b) {
		t.Fatal("second SetMain call should be a no-op")
	}
}

func TestDeregisterRemovesFromNotifySet(t *testing.T) {
	r := NewRegistry()
	a := New(r, false)
	b := New(r, false)

	r.Deregister(a)
	r.Deregister(b)
	if len(r.members) != 0 {
		t.Fatalf("members = %d after deregistering both, want 0", len(r.members))
	}

	// Notify on an empty registry must not block or panic.
	r.NotifyOne()
	r.NotifyAllExcept(nil)
}

func TestNotifyAllExceptSkipsCaller(t *testing.T) {
	r := NewRegistry()
	self := New(r, false)
	other := New(r, false)

	selfWoke := make(chan struct{}, 1)
	otherWoke := make(chan struct{}, 1)

	go func() {
		self.SuspendUntil(300 * time.Millisecond)
		selfWoke <- struct{}{}
	}()
	go func() {
		other.SuspendUntil(300 * time.Millisecond)
		otherWoke <- struct{}{}
	}()

	time.Sleep(20 * time.Millisecond)
	r.NotifyAllExcept(self)

	select {
	case <-otherWoke:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("other scheduler should have been woken")
	}
	select {
	case <-selfWoke:
		t.Fatal("self scheduler should not have been woken by its own NotifyAllExcept call")
	case <-time.After(100 * time.Millisecond):
	}
}
