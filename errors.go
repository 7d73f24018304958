package fiberpool

import "errors"

var (
	// ErrSubmitAfterShutdown is returned by Post/Async once the pool has
	// left the Running state.
	ErrSubmitAfterShutdown = errors.New("fiberpool: submit after shutdown")

	// ErrPin is returned by BindToThisThread when called with a context
	// that carries no ambient fiber (see DESIGN.md: "main thread" is
	// realized as "outside any fiber").
	ErrPin = errors.New("fiberpool: cannot pin outside a running fiber")

	// ErrPoolNotStopped is returned by Pool.Close when the pool has not
	// yet reached the Stopped state.
	ErrPoolNotStopped = errors.New("fiberpool: pool closed before reaching Stopped")

	// ErrJoinTimeout is returned by FiberHandle.Join when its context is
	// cancelled or its deadline passes before the fiber finishes.
	ErrJoinTimeout = errors.New("fiberpool: join timed out")

	// ErrNotJoinable is returned by FiberHandle.Join on a handle that has
	// already been released or detached.
	ErrNotJoinable = errors.New("fiberpool: handle not joinable")
)
