// Package queue implements the concurrent queue family underlying ports,
// receivers and the scheduler family: a closeable blocking FIFO, a
// Michael–Scott lock-free FIFO, a Treiber lock-free stack, a Chase–Lev
// work-stealing deque, a round-robin cursor and a lock-free free-list slot
// allocator used by Stack.
package queue

import "context"

// Queue describes a capability set: push, pop, a non-blocking try-variant,
// explicit close, and length. None of the concrete types in this package
// satisfies it: Blocking.Push takes no context, Stack and LockFree have no
// context-taking Pop and no Close, and Deque exposes
// PushBottom/PopBottom/Steal instead. The schedulers hold the concrete
// types directly.
type Queue[T any] interface {
	// Push adds v to the queue, blocking if the underlying implementation
	// has bounded capacity and is full. Returns ErrClosed if the queue has
	// been closed.
	Push(ctx context.Context, v T) error
	// Pop removes and returns the next value, blocking until one is
	// available or the queue is closed and drained.
	Pop(ctx context.Context) (T, error)
	// TryPop removes and returns the next value without blocking. Its bool
	// result is false if none is immediately available.
	TryPop() (T, bool)
	// Close marks the queue closed: no further Push calls succeed, and
	// Pop/TryPop continue to drain any values already enqueued; once the
	// queue is empty Pop returns ErrClosed and TryPop reports false.
	Close()
	// Len returns the best-effort current length. For lock-free
	// implementations this is an approximation (per spec.md §9: exact
	// counts require cross-core synchronization these algorithms avoid).
	Len() int
}
