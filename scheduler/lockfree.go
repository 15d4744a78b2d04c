package scheduler

import (
	"sync"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
	"github.com/irisconc/iris/internal/debug"
	"github.com/irisconc/iris/queue"
)

// lfQueueCapacity bounds each worker's per-worker lock-free queue. A work
// item only lives in the queue between Queue() and the worker picking it
// up, so a generous fixed capacity is cheap insurance without needing an
// unbounded arena.
const lfQueueCapacity = 4096

// lfSpinBudget is the per-queue backlog above which Queue spawns another
// worker (while the worker count is below max).
const lfSpinBudget = 64

// LockFree is the lock-free scheduler of spec.md §4.5.2: one
// queue.LockFree[workItem] per worker, fed by a queue.RoundRobin
// distributor. Queue appends to the next queue in rotation; idle workers
// spin briefly on their own queue, then try their peers round-robin before
// sleeping. Grounded on original_source/tests/ws-queue-1.c's rrobin wiring
// generalized from the work-stealing deque's sibling lookup to plain
// lock-free FIFOs, per spec.md §4.5.2.
type LockFree struct {
	// mu guards queues/rr growth against the concurrent index reads every
	// worker goroutine performs; growth is rare (only on backlog), reads
	// are the hot path, hence RWMutex over an outright Mutex.
	mu     sync.RWMutex
	queues []*queue.LockFree[workItem]
	rr     *queue.RoundRobin[int]

	min, max int
	workers  atomix.Int64
	closed   atomix.Bool
	done     chan struct{}
	metrics  instruments
}

// NewLockFree creates a LockFree scheduler with minThreads workers, each
// owning its own per-worker queue; maxThreads bounds the worker (and
// queue) count spawned under backlog.
func NewLockFree(minThreads, maxThreads int, opts ...Option) *LockFree {
	if maxThreads <= 0 {
		maxThreads = defaultMaxThreads()
	}
	min := clampMin(minThreads, maxThreads)

	s := &LockFree{
		min: min, max: maxThreads,
		done:    make(chan struct{}),
		metrics: newInstruments("lockfree", buildMetricsConfig(opts)),
	}
	s.rr = queue.NewRoundRobin[int]()
	for i := 0; i < min; i++ {
		s.spawn()
	}
	return s
}

func (s *LockFree) spawn() bool {
	s.mu.Lock()
	if s.closed.LoadAcquire() || s.workers.LoadAcquire() >= int64(s.max) {
		s.mu.Unlock()
		return false
	}
	idx := len(s.queues)
	s.queues = append(s.queues, queue.NewLockFree[workItem](lfQueueCapacity))
	s.rr.Append(idx)
	s.mu.Unlock()

	s.workers.AddAcqRel(1)
	s.metrics.workers.Add(1)
	go s.run(idx)
	return true
}

func (s *LockFree) own(idx int) *queue.LockFree[workItem] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queues[idx]
}

// run never shrinks a worker once spawned: each worker permanently owns a
// slot in the round-robin rotation, and that rotation supports no removal
// (queue.RoundRobin is a fixed-membership cursor per its own doc comment),
// so an exited worker's queue would otherwise strand any item routed to it
// afterwards. Workers spawned under backlog stay until Close.
func (s *LockFree) run(self int) {
	defer func() {
		s.workers.AddAcqRel(-1)
		s.metrics.workers.Add(-1)
	}()
	sw := spin.Wait{}
	mine := s.own(self)
	for {
		if item, ok := mine.TryPop(); ok {
			sw = spin.Wait{}
			s.metrics.depth.Add(-1)
			item.run()
			continue
		}
		if stolen, ok := s.stealFromPeers(self); ok {
			sw = spin.Wait{}
			s.metrics.depth.Add(-1)
			stolen.run()
			continue
		}
		select {
		case <-s.done:
			s.drain(mine)
			return
		default:
		}
		sw.Once()
		time.Sleep(time.Microsecond)
	}
}

func (s *LockFree) stealFromPeers(self int) (workItem, bool) {
	s.mu.RLock()
	n := s.rr.Len()
	rr := s.rr
	queues := s.queues
	s.mu.RUnlock()

	for i := 0; i < n; i++ {
		peer, ok := rr.Next()
		if !ok || peer == self {
			continue
		}
		if item, ok := queues[peer].TryPop(); ok {
			debug.Logf(debug.SectionScheduler, "scheduler.LockFree: worker %d stole from %d", self, peer)
			return item, true
		}
	}
	var zero workItem
	return zero, false
}

func (s *LockFree) drain(q *queue.LockFree[workItem]) {
	for {
		item, ok := q.TryPop()
		if !ok {
			return
		}
		s.metrics.depth.Add(-1)
		if item.destroy != nil {
			item.destroy()
		}
	}
}

// Queue implements receiver.Scheduler: it appends to the next queue in the
// round-robin rotation.
func (s *LockFree) Queue(fn func(), destroy func()) {
	if s.closed.LoadAcquire() {
		debug.Logf(debug.SectionScheduler, "scheduler.LockFree: queue on closed scheduler, running destructor")
		if destroy != nil {
			destroy()
		}
		return
	}
	s.mu.RLock()
	rr, queues := s.rr, s.queues
	s.mu.RUnlock()

	if rr.Len() == 0 {
		// min_threads was 0: spawn the first worker on demand rather than
		// dropping the item.
		s.spawn()
		s.mu.RLock()
		rr, queues = s.rr, s.queues
		s.mu.RUnlock()
	}

	idx, ok := rr.Next()
	if !ok {
		if destroy != nil {
			destroy()
		}
		return
	}
	item := workItem{fn: fn, destroy: destroy}
	if err := queues[idx].Push(item); err != nil {
		// Backing arena exhausted: retry once against the next queue in
		// rotation; if that one is full too, the item is dropped and its
		// destructor runs.
		if alt, ok := rr.Next(); ok {
			if err2 := queues[alt].Push(item); err2 == nil {
				s.metrics.depth.Add(1)
				return
			}
		}
		debug.Logf(debug.SectionScheduler, "scheduler.LockFree: all queues full, running destructor")
		if destroy != nil {
			destroy()
		}
		return
	}
	s.metrics.depth.Add(1)
	if s.workers.LoadAcquire() < int64(s.max) && len(queues) > 0 && queues[idx].Len() > lfSpinBudget {
		s.spawn()
	}
}

// MinThreads implements Scheduler.
func (s *LockFree) MinThreads() int { return s.min }

// MaxThreads implements Scheduler.
func (s *LockFree) MaxThreads() int { return s.max }

// Close signals every worker to drain its queue and exit, then waits for
// them all to stop.
func (s *LockFree) Close() {
	if !s.closed.CompareAndSwapAcqRel(false, true) {
		return
	}
	close(s.done)
	for s.workers.LoadAcquire() > 0 {
		time.Sleep(time.Millisecond)
	}
}
