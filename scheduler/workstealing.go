package scheduler

import (
	"bytes"
	"context"
	"runtime"
	"strconv"
	"sync"
	"time"

	"code.hybscloud.com/atomix"
	"github.com/irisconc/iris/internal/debug"
	"github.com/irisconc/iris/queue"
)

// wsLocalCapacity is the initial capacity of each worker's local deque;
// queue.Deque grows automatically past this under sustained local pushes.
const wsLocalCapacity = 64

// WorkStealing is the work-stealing scheduler of spec.md §4.5.3: each
// worker owns a local queue.Deque, all workers share one global
// queue.Blocking overflow, and idle workers steal from peers in
// round-robin before parking on the global queue. Grounded on
// original_source/tests/ws-queue-1.c's local_push/local_pop/try_steal
// triad and the global-queue park-on-empty fallback.
type WorkStealing struct {
	global *queue.Blocking[workItem]

	mu     sync.RWMutex
	deques []*queue.Deque[workItem]
	rr     *queue.RoundRobin[int]

	min, max int
	workers  atomix.Int64
	closed   atomix.Bool
	metrics  instruments

	// owners maps a running worker goroutine's id to its deque index, so
	// Queue can tell whether it is being called from inside a worker's own
	// handler (push local) or from any other goroutine (push global), per
	// spec.md §4.5.3.
	owners sync.Map // goroutine id (int64) -> worker index (int)
}

// NewWorkStealing creates a WorkStealing scheduler with minThreads workers,
// each owning a local deque; maxThreads bounds the worker count spawned
// under backlog.
func NewWorkStealing(minThreads, maxThreads int, opts ...Option) *WorkStealing {
	if maxThreads <= 0 {
		maxThreads = defaultMaxThreads()
	}
	min := clampMin(minThreads, maxThreads)

	s := &WorkStealing{
		global: queue.NewBlocking[workItem](),
		rr:     queue.NewRoundRobin[int](),
		min:    min, max: maxThreads,
		metrics: newInstruments("workstealing", buildMetricsConfig(opts)),
	}
	for i := 0; i < min; i++ {
		s.spawn()
	}
	return s
}

func (s *WorkStealing) spawn() bool {
	s.mu.Lock()
	if s.closed.LoadAcquire() || s.workers.LoadAcquire() >= int64(s.max) {
		s.mu.Unlock()
		return false
	}
	idx := len(s.deques)
	s.deques = append(s.deques, queue.NewDeque[workItem](wsLocalCapacity))
	s.rr.Append(idx)
	s.mu.Unlock()

	s.workers.AddAcqRel(1)
	s.metrics.workers.Add(1)
	go s.run(idx)
	return true
}

// Queue implements receiver.Scheduler. Called from inside a worker's own
// handler, fn lands on that worker's local deque bottom (cheap, LIFO,
// cache-friendly for recursive fan-out); called from any other goroutine,
// it lands on the shared global queue.
func (s *WorkStealing) Queue(fn func(), destroy func()) {
	item := workItem{fn: fn, destroy: destroy}
	if self, ok := s.ownWorker(); ok {
		s.mu.RLock()
		deque := s.deques[self]
		s.mu.RUnlock()
		deque.PushBottom(item)
		s.metrics.depth.Add(1)
		return
	}
	if err := s.global.Push(item); err != nil {
		debug.Logf(debug.SectionScheduler, "scheduler.WorkStealing: queue on closed scheduler, running destructor")
		if destroy != nil {
			destroy()
		}
		return
	}
	s.metrics.depth.Add(1)
	s.maybeGrow()
}

// maybeGrow spawns one additional worker when the global queue's backlog
// exceeds the current worker count and max_threads hasn't been reached.
// Also covers min_threads == 0: the first Queue call spawns worker 0.
func (s *WorkStealing) maybeGrow() {
	workers := s.workers.LoadAcquire()
	if workers > 0 && int64(s.global.Len()) <= workers {
		return
	}
	if workers >= int64(s.max) {
		return
	}
	s.spawn()
}

func (s *WorkStealing) ownWorker() (int, bool) {
	v, ok := s.owners.Load(goroutineID())
	if !ok {
		return 0, false
	}
	return v.(int), true
}

func (s *WorkStealing) run(self int) {
	defer func() {
		s.workers.AddAcqRel(-1)
		s.metrics.workers.Add(-1)
	}()

	gid := goroutineID()
	s.owners.Store(gid, self)
	defer s.owners.Delete(gid)

	s.mu.RLock()
	mine := s.deques[self]
	s.mu.RUnlock()

	ctx := context.Background()
	for {
		// 1. Local pop (bottom).
		if item, ok := mine.PopBottom(); ok {
			s.metrics.depth.Add(-1)
			item.run()
			continue
		}
		// 2. Global pop, non-blocking first so a worker with stealable
		// work never parks behind an unrelated slow popper.
		if item, ok := s.global.TryPop(); ok {
			s.metrics.depth.Add(-1)
			item.run()
			continue
		}
		// 3. Steal from peers, round-robin.
		if item, ok := s.stealFromPeers(self); ok {
			s.metrics.depth.Add(-1)
			item.run()
			continue
		}
		// 4. Park on the global queue until signalled or closed.
		item, err := s.global.Pop(ctx)
		if err != nil {
			s.drain(mine)
			return
		}
		s.metrics.depth.Add(-1)
		item.run()
	}
}

func (s *WorkStealing) stealFromPeers(self int) (workItem, bool) {
	s.mu.RLock()
	n := s.rr.Len()
	rr := s.rr
	deques := s.deques
	s.mu.RUnlock()

	for i := 0; i < n; i++ {
		peer, ok := rr.Next()
		if !ok || peer == self {
			continue
		}
		if item, ok := deques[peer].Steal(); ok {
			debug.Logf(debug.SectionScheduler, "scheduler.WorkStealing: worker %d stole from %d", self, peer)
			return item, true
		}
	}
	var zero workItem
	return zero, false
}

func (s *WorkStealing) drain(mine *queue.Deque[workItem]) {
	for {
		item, ok := mine.PopBottom()
		if !ok {
			return
		}
		s.metrics.depth.Add(-1)
		if item.destroy != nil {
			item.destroy()
		}
	}
}

// MinThreads implements Scheduler.
func (s *WorkStealing) MinThreads() int { return s.min }

// MaxThreads implements Scheduler.
func (s *WorkStealing) MaxThreads() int { return s.max }

// Close closes the global queue (waking every parked worker), waits for
// every worker to drain its local deque and exit, then drains any
// remaining global-queue items, invoking their destructors.
func (s *WorkStealing) Close() {
	if !s.closed.CompareAndSwapAcqRel(false, true) {
		return
	}
	s.global.Close()
	for s.workers.LoadAcquire() > 0 {
		time.Sleep(time.Millisecond)
	}
	for {
		item, ok := s.global.TryPop()
		if !ok {
			return
		}
		s.metrics.depth.Add(-1)
		if item.destroy != nil {
			item.destroy()
		}
	}
}

// goroutineID extracts the calling goroutine's runtime id by parsing the
// "goroutine N [...]" header runtime.Stack always writes first. Used only
// to key the owners map above; never exposed outside this file.
func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := bytes.TrimPrefix(buf[:n], []byte("goroutine "))
	b = b[:bytes.IndexByte(b, ' ')]
	id, _ := strconv.ParseInt(string(b), 10, 64)
	return id
}
