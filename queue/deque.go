package queue

import "code.hybscloud.com/atomix"

// Deque is a Chase–Lev work-stealing deque (spec.md §4.1.3). The owning
// worker calls PushBottom/PopBottom from a single goroutine; any other
// goroutine may call Steal concurrently. Grounded on
// original_source/tests/ws-queue-1.c (local_push/local_pop owned by the
// worker, try_steal from other workers, growth under many_push1).
//
// Backed by a plain slice rather than atomix.Uint64-addressed arena: bottom
// is only ever written by the owner, so it needs no atomic CAS, only
// release-ordered publication for the benefit of concurrent stealers.
type Deque[T any] struct {
	buf    []T
	bottom atomix.Uint64 // next free slot, owner-only
	top    atomix.Uint64 // next slot to steal
}

// NewDeque creates an empty Deque with the given initial capacity (rounded
// up internally as needed); it grows automatically on PushBottom.
func NewDeque[T any](initialCapacity int) *Deque[T] {
	if initialCapacity < 4 {
		initialCapacity = 4
	}
	return &Deque[T]{buf: make([]T, initialCapacity)}
}

// PushBottom adds v to the bottom of the deque. Must only be called by the
// owning worker goroutine.
func (d *Deque[T]) PushBottom(v T) {
	b := d.bottom.LoadRelaxed()
	t := d.top.LoadAcquire()
	if b-t >= uint64(len(d.buf)) {
		d.grow()
	}
	d.buf[b%uint64(len(d.buf))] = v
	d.bottom.StoreRelease(b + 1)
}

func (d *Deque[T]) grow() {
	old := d.buf
	n := make([]T, len(old)*2)
	t := d.top.LoadAcquire()
	b := d.bottom.LoadRelaxed()
	for i := t; i < b; i++ {
		n[i%uint64(len(n))] = old[i%uint64(len(old))]
	}
	d.buf = n
}

// PopBottom removes and returns the value from the bottom of the deque, the
// same end the owner pushes to. Must only be called by the owning worker
// goroutine. ok is false if the deque was empty.
func (d *Deque[T]) PopBottom() (v T, ok bool) {
	b := d.bottom.LoadRelaxed()
	if b == 0 {
		return v, false
	}
	b--
	d.bottom.StoreRelease(b)
	t := d.top.LoadAcquire()
	if t > b {
		d.bottom.StoreRelease(b + 1)
		return v, false
	}
	v = d.buf[b%uint64(len(d.buf))]
	if t == b {
		if !d.top.CompareAndSwapAcqRel(t, t+1) {
			d.bottom.StoreRelease(b + 1)
			var zero T
			return zero, false
		}
		d.bottom.StoreRelease(b + 1)
		return v, true
	}
	return v, true
}

// Steal removes and returns the value from the top of the deque. May be
// called by any goroutine other than the owner. ok is false if the deque
// was empty or lost a race with another stealer/the owner's PopBottom.
func (d *Deque[T]) Steal() (v T, ok bool) {
	t := d.top.LoadAcquire()
	b := d.bottom.LoadAcquire()
	if t >= b {
		return v, false
	}
	v = d.buf[t%uint64(len(d.buf))]
	if !d.top.CompareAndSwapAcqRel(t, t+1) {
		var zero T
		return zero, false
	}
	return v, true
}

// Len returns a best-effort count of items currently held.
func (d *Deque[T]) Len() int {
	b := d.bottom.LoadAcquire()
	t := d.top.LoadAcquire()
	if b < t {
		return 0
	}
	return int(b - t)
}
