package fiberpool

import (
	"context"
	"testing"
	"time"
)

func TestYieldOutsideFiberIsNoOp(t *testing.T) {
	// Must not panic or block.
	Yield(context.Background())
}

func TestLocalSlotRoundTrip(t *testing.T) {
	p := newTestPool(t)

	type payload struct{ n int }
	var got any
	handle, err := p.Post(func(ctx context.Context) {
		slot := FiberLocalData(ctx)
		slot.Set(payload{n: 7})
		Yield(ctx)
		Yield(ctx)
		got = slot.Get()
	})
	if err != nil {
		t.Fatalf("Post failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := handle.Join(ctx); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	p1, ok := got.(payload)
	if !ok || p1.n != 7 {
		t.Fatalf("got %#v, want payload{n: 7}", got)
	}
}

func TestLocalSlotIsolatedPerFiber(t *testing.T) {
	p := newTestPool(t)

	const n = 20
	results := make(chan int, n)
	handles := make([]FiberHandle, 0, n)
	for i := 0; i < n; i++ {
		i := i
		h, err := p.Post(func(ctx context.Context) {
			FiberLocalData(ctx).Set(i)
			Yield(ctx)
			v, _ := FiberLocalData(ctx).Get().(int)
			results <- v
		})
		if err != nil {
			t.Fatalf("Post failed: %v", err)
		}
		handles = append(handles, h)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for _, h := range handles {
		if err := h.Join(ctx); err != nil {
			t.Fatalf("Join failed: %v", err)
		}
	}
	close(results)

	seen := make(map[int]bool)
	for v := range results {
		if seen[v] {
			t.Fatalf("value %d observed twice: local data leaked across fibers", v)
		}
		seen[v] = true
	}
	if len(seen) != n {
		t.Fatalf("observed %d distinct values, want %d", len(seen), n)
	}
}

func TestBindToThisThreadPinnedFiberCompletesAcrossYields(t *testing.T) {
	p := newTestPool(t)

	var seen []int
	handle, err := p.Post(func(ctx context.Context) {
		if err := BindToThisThread(ctx); err != nil {
			t.Errorf("BindToThisThread: %v", err)
			return
		}
		for i := 0; i < 5; i++ {
			seen = append(seen, i)
			Yield(ctx)
		}
	})
	if err != nil {
		t.Fatalf("Post failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := handle.Join(ctx); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if len(seen) != 5 {
		t.Fatalf("body ran %d iterations, want 5", len(seen))
	}
}
