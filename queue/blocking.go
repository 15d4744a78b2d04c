package queue

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Blocking is a closeable blocking FIFO (spec.md §4.1.1). Grounded directly
// on original_source/iris/iris-queue.c: Push/Pop block on a condition
// variable the way the original blocks on GAsyncQueue; Close wakes every
// waiter currently blocked in Pop so they observe ErrClosed once the queue
// has drained, matching the original's close-token broadcast without
// needing an explicit sentinel value pushed through the data path.
type Blocking[T any] struct {
	mu     sync.Mutex
	notEmpty *sync.Cond
	items  *list.List
	closed bool
	clock  clockwork.Clock
}

// NewBlocking creates an empty, open Blocking queue using the real clock.
func NewBlocking[T any]() *Blocking[T] {
	return newBlockingWithClock[T](clockwork.NewRealClock())
}

// newBlockingWithClock is exported to the package's tests only, to drive
// TimedPop deadlines deterministically with a fake clock instead of real
// wall-clock sleeps.
func newBlockingWithClock[T any](clock clockwork.Clock) *Blocking[T] {
	q := &Blocking[T]{items: list.New(), clock: clock}
	q.notEmpty = sync.NewCond(&q.mu)
	return q
}

// Push adds v to the back of the queue and wakes one waiting Pop. Returns
// ErrClosed if the queue has already been closed.
func (q *Blocking[T]) Push(v T) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	q.items.PushBack(v)
	q.notEmpty.Signal()
	return nil
}

// Pop blocks until a value is available, the queue is closed and drained,
// or ctx is done.
func (q *Blocking[T]) Pop(ctx context.Context) (v T, err error) {
	done := make(chan struct{})
	if ctx != nil {
		go func() {
			select {
			case <-ctx.Done():
				q.mu.Lock()
				q.notEmpty.Broadcast()
				q.mu.Unlock()
			case <-done:
			}
		}()
		defer close(done)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	for q.items.Len() == 0 && !q.closed {
		if ctx != nil && ctx.Err() != nil {
			var zero T
			return zero, ctx.Err()
		}
		q.notEmpty.Wait()
	}
	if q.items.Len() == 0 {
		var zero T
		return zero, ErrClosed
	}
	return q.popFront(), nil
}

func (q *Blocking[T]) popFront() T {
	e := q.items.Front()
	q.items.Remove(e)
	return e.Value.(T)
}

// TryPop returns immediately: the front value if one is available, or
// (zero, false) if the queue is empty (closed-and-drained counts as
// empty).
func (q *Blocking[T]) TryPop() (v T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.items.Len() == 0 {
		return v, false
	}
	return q.popFront(), true
}

// TimedPop blocks until a value is available or timeout elapses, using the
// queue's clock (the real clock in production, a clockwork.FakeClock in
// tests). Returns ErrTimeout on deadline, ErrClosed if closed-and-drained.
func (q *Blocking[T]) TimedPop(timeout time.Duration) (v T, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	deadline := q.clock.Now().Add(timeout)
	woken := make(chan struct{})
	go func() {
		<-q.clock.After(timeout)
		q.mu.Lock()
		q.notEmpty.Broadcast()
		q.mu.Unlock()
		close(woken)
	}()

	for q.items.Len() == 0 && !q.closed {
		if !q.clock.Now().Before(deadline) {
			var zero T
			return zero, ErrTimeout
		}
		q.notEmpty.Wait()
	}
	if q.items.Len() == 0 {
		var zero T
		return zero, ErrClosed
	}
	return q.popFront(), nil
}

// Close marks the queue closed and wakes every blocked Pop/TimedPop caller.
// Already-enqueued values remain poppable; subsequent Push calls fail with
// ErrClosed.
func (q *Blocking[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.notEmpty.Broadcast()
	q.mu.Unlock()
}

// Len returns the current number of enqueued values.
func (q *Blocking[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// TryPopOrClose is TryPop, except that when the queue is empty it also
// closes the queue before returning — the `_or_close` variant of
// iris-queue.c that lets a consumer atomically signal "I am no longer
// draining" in the same call that discovers there is nothing left to
// drain, so no producer can race in additional work between the empty
// check and the close.
func (q *Blocking[T]) TryPopOrClose() (v T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.items.Len() == 0 {
		q.closed = true
		q.notEmpty.Broadcast()
		return v, false
	}
	return q.popFront(), true
}

// TimedPopOrClose is TimedPop, except that when the deadline elapses with
// the queue still empty it also closes the queue before returning
// ErrTimeout — the deadline-bound sibling of TryPopOrClose.
func (q *Blocking[T]) TimedPopOrClose(timeout time.Duration) (v T, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	deadline := q.clock.Now().Add(timeout)
	woken := make(chan struct{})
	go func() {
		<-q.clock.After(timeout)
		q.mu.Lock()
		q.notEmpty.Broadcast()
		q.mu.Unlock()
		close(woken)
	}()

	for q.items.Len() == 0 && !q.closed {
		if !q.clock.Now().Before(deadline) {
			q.closed = true
			q.notEmpty.Broadcast()
			var zero T
			return zero, ErrTimeout
		}
		q.notEmpty.Wait()
	}
	if q.items.Len() == 0 {
		var zero T
		return zero, ErrClosed
	}
	return q.popFront(), nil
}
