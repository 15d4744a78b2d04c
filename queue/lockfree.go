package queue

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// LockFree is a Michael–Scott style lock-free FIFO (spec.md §4.1.2). Nodes
// live in a fixed backing arena addressed by index rather than by pointer
// (atomix exposes no pointer-width atomic in this corpus), with a sentinel
// dummy node always occupying the queue so head != tail except when truly
// empty — the classic MS-queue invariant, adapted to index-chained
// singly-linked lists instead of pointer-chained ones.
type LockFree[T any] struct {
	arena []T
	next  []atomix.Uint64 // next[i]: packed (successor-idx+1, generation) of arena[i], 0 = nil
	head  atomix.Uint64   // packed (idx+1, generation)
	tail  atomix.Uint64
	cap   uint64
	used  atomix.Uint64
	freeS *idxStack
}

// NewLockFree creates a LockFree queue with the given fixed node capacity
// (including the sentinel, so usable capacity is capacity-1).
func NewLockFree[T any](capacity int) *LockFree[T] {
	if capacity < 2 {
		capacity = 2
	}
	q := &LockFree[T]{
		arena: make([]T, capacity),
		next:  make([]atomix.Uint64, capacity),
		cap:   uint64(capacity),
		freeS: newIdxStack(capacity),
	}
	sentinel, _ := q.allocate()
	h := idxPack(sentinel, 1)
	q.head.StoreRelease(h)
	q.tail.StoreRelease(h)
	return q
}

func (q *LockFree[T]) allocate() (idx uint64, ok bool) {
	if idx, ok = q.freeS.pop(); ok {
		return idx, true
	}
	u := q.used.AddAcqRel(1) - 1
	if u >= q.cap {
		q.used.AddAcqRel(-1)
		return 0, false
	}
	return u, true
}

func (q *LockFree[T]) release(idx uint64) { q.freeS.push(idx) }

// Push enqueues v. Returns ErrFull if the backing arena is exhausted.
func (q *LockFree[T]) Push(v T) error {
	idx, ok := q.allocate()
	if !ok {
		return ErrFull
	}
	q.arena[idx] = v
	q.next[idx].StoreRelease(0)
	newTail := idxPack(idx, 1)

	sw := spin.Wait{}
	for {
		tail := q.tail.LoadAcquire()
		ti, _, _ := idxUnpack(tail)
		tailNext := q.next[ti].LoadAcquire()
		if tail != q.tail.LoadAcquire() {
			sw.Once()
			continue
		}
		if _, _, hasNext := idxUnpack(tailNext); !hasNext {
			if q.next[ti].CompareAndSwapAcqRel(tailNext, newTail) {
				q.tail.CompareAndSwapAcqRel(tail, newTail)
				return nil
			}
		} else {
			q.tail.CompareAndSwapAcqRel(tail, tailNext)
		}
		sw.Once()
	}
}

// TryPop removes and returns the front value. ok is false if the queue is
// currently empty.
func (q *LockFree[T]) TryPop() (v T, ok bool) {
	sw := spin.Wait{}
	for {
		head := q.head.LoadAcquire()
		tail := q.tail.LoadAcquire()
		hi, _, _ := idxUnpack(head)
		headNext := q.next[hi].LoadAcquire()
		if head != q.head.LoadAcquire() {
			sw.Once()
			continue
		}
		if head == tail {
			if _, _, hasNext := idxUnpack(headNext); !hasNext {
				return v, false
			}
			q.tail.CompareAndSwapAcqRel(tail, headNext)
			sw.Once()
			continue
		}
		ni, _, _ := idxUnpack(headNext)
		val := q.arena[ni]
		if q.head.CompareAndSwapAcqRel(head, headNext) {
			q.release(hi)
			return val, true
		}
		sw.Once()
	}
}

// Len returns a best-effort length (spec.md §9: exact counts require
// expensive cross-core synchronization lock-free structures avoid).
func (q *LockFree[T]) Len() int {
	return int(q.used.LoadAcquire())
}
