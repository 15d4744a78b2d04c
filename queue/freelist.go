package queue

import "code.hybscloud.com/atomix"

// freeList is a lock-free index allocator used by Stack so its
// pushes/pops reuse backing-array slots instead of allocating a
// fresh node every time. Grounded on original_source/tests/free-list-1.c
// (get/put semantics: get hands back a node, here a slot index, ready for
// immediate reuse; put returns it to the pool); the index-not-pointer shape
// follows hayabusa-cloud-lfq's QueueIndirect idiom (a free list of
// buffer-pool indices, per its doc.go example).
type freeList[T any] struct {
	free  *idxStack
	slots []T
	used  atomix.Uint64
	cap   uint64
}

func newFreeList[T any](capacity int) *freeList[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &freeList[T]{
		free:  newIdxStack(capacity),
		slots: make([]T, capacity),
		cap:   uint64(capacity),
	}
}

// get returns the index of a slot ready for reuse, allocating a fresh one
// from the backing array when the free stack is empty. ok is false once
// the backing array is exhausted and no freed slot is available.
func (f *freeList[T]) get() (idx uint64, ok bool) {
	if idx, ok = f.free.pop(); ok {
		return idx, true
	}
	u := f.used.AddAcqRel(1) - 1
	if u >= f.cap {
		f.used.AddAcqRel(-1)
		return 0, false
	}
	return u, true
}

// put returns idx to the free pool.
func (f *freeList[T]) put(idx uint64) {
	var zero T
	f.slots[idx] = zero
	f.free.push(idx)
}
