package queue

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// idxStack is a lock-free Treiber stack over slot indices rather than raw
// pointers: atomix exposes no pointer-width atomic in this corpus, so the
// free list, Stack and LockFree's free-slot pool are each built as a fixed
// backing array plus one of these index stacks (Deque does not use one).
// The head word packs (index+1)<<32 | generation so
// a CAS can't succeed against a stale head that happens to name the same
// index again after an intervening pop/push cycle (ABA).
type idxStack struct {
	head atomix.Uint64
	next []atomix.Uint64
}

func newIdxStack(capacity int) *idxStack {
	return &idxStack{next: make([]atomix.Uint64, capacity)}
}

func idxPack(idx, gen uint64) uint64 { return ((idx + 1) << 32) | (gen & 0xffffffff) }

func idxUnpack(v uint64) (idx uint64, gen uint64, ok bool) {
	if v == 0 {
		return 0, 0, false
	}
	return (v >> 32) - 1, v & 0xffffffff, true
}

func (s *idxStack) push(idx uint64) {
	sw := spin.Wait{}
	for {
		head := s.head.LoadAcquire()
		_, gen, has := idxUnpack(head)
		if !has {
			gen = 0
		}
		s.next[idx].StoreRelease(head)
		if s.head.CompareAndSwapAcqRel(head, idxPack(idx, gen+1)) {
			return
		}
		sw.Once()
	}
}

func (s *idxStack) pop() (idx uint64, ok bool) {
	sw := spin.Wait{}
	for {
		head := s.head.LoadAcquire()
		hi, _, has := idxUnpack(head)
		if !has {
			return 0, false
		}
		next := s.next[hi].LoadAcquire()
		if s.head.CompareAndSwapAcqRel(head, next) {
			return hi, true
		}
		sw.Once()
	}
}
