package queue

import "code.hybscloud.com/atomix"

// RoundRobin cycles through a fixed set of values, handing out the next one
// on each call to Next. Grounded on original_source/tests/ws-queue-1.c
// (rrobin_new/rrobin_append wiring sibling work-stealing queues together so
// a thief visits its neighbors in rotation) — a plain atomic cursor over a
// fixed slice, since round-robin selection here has no blocking semantics.
type RoundRobin[T any] struct {
	items  []T
	cursor atomix.Uint64
}

// NewRoundRobin creates a RoundRobin over the given fixed set of items.
// Items appended later with Append are visible to subsequent Next calls.
func NewRoundRobin[T any](items ...T) *RoundRobin[T] {
	r := &RoundRobin[T]{items: append([]T(nil), items...)}
	return r
}

// Append adds an item to the rotation. Not safe to call concurrently with
// Next or other Append calls; callers build the rotation once before
// sharing it across goroutines, matching the original's fixed-membership
// construction-time wiring.
func (r *RoundRobin[T]) Append(v T) {
	r.items = append(r.items, v)
}

// Next returns the next item in rotation. ok is false if the rotation is
// empty.
func (r *RoundRobin[T]) Next() (v T, ok bool) {
	n := len(r.items)
	if n == 0 {
		return v, false
	}
	i := r.cursor.AddAcqRel(1) - 1
	return r.items[i%uint64(n)], true
}

// Len returns the number of items in the rotation.
func (r *RoundRobin[T]) Len() int { return len(r.items) }
