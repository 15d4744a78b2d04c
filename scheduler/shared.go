package scheduler

import (
	"context"
	"sync"
	"time"

	"code.hybscloud.com/atomix"
	"github.com/irisconc/iris/internal/debug"
	"github.com/irisconc/iris/queue"
	"golang.org/x/sync/errgroup"
)

// idleGrace is the default grace timeout an idle worker above min_threads
// waits before exiting, per spec.md §4.5.4.
const idleGrace = 2 * time.Second

// Shared is the shared-queue scheduler of spec.md §4.5.1: one blocking
// queue shared by every worker, each popping and executing in a loop until
// the queue closes. Work items flow through queue.Blocking[workItem] to
// plain goroutines, carrying their own execution closure instead of a
// typed-result channel.
type Shared struct {
	q *queue.Blocking[workItem]

	min, max int
	workers  atomix.Int64
	closed   atomix.Bool
	metrics  instruments

	mu sync.Mutex
	eg *errgroup.Group
}

// NewShared creates a Shared scheduler with minThreads workers started
// immediately; maxThreads bounds how many Queue will spawn under backlog
// (spec.md §4.5.4's "default: 2 × CPU count, min 2" when maxThreads <= 0).
func NewShared(minThreads, maxThreads int, opts ...Option) *Shared {
	if maxThreads <= 0 {
		maxThreads = defaultMaxThreads()
	}
	min := clampMin(minThreads, maxThreads)

	s := &Shared{
		q: queue.NewBlocking[workItem](), min: min, max: maxThreads, eg: &errgroup.Group{},
		metrics: newInstruments("shared", buildMetricsConfig(opts)),
	}
	for i := 0; i < min; i++ {
		s.spawn(true)
	}
	return s
}

func (s *Shared) spawn(permanent bool) {
	s.mu.Lock()
	if s.closed.LoadAcquire() {
		s.mu.Unlock()
		return
	}
	s.workers.AddAcqRel(1)
	s.metrics.workers.Add(1)
	s.eg.Go(func() error {
		s.run(permanent)
		return nil
	})
	s.mu.Unlock()
}

func (s *Shared) run(permanent bool) {
	defer func() {
		s.workers.AddAcqRel(-1)
		s.metrics.workers.Add(-1)
	}()
	for {
		if permanent {
			item, err := s.q.Pop(context.Background())
			if err != nil {
				return
			}
			s.metrics.depth.Add(-1)
			item.run()
			continue
		}
		item, err := s.q.TimedPop(idleGrace)
		switch {
		case err == queue.ErrClosed:
			return
		case err == queue.ErrTimeout:
			debug.Logf(debug.SectionScheduler, "scheduler.Shared: idle worker exiting after grace timeout")
			return
		case err != nil:
			return
		default:
			s.metrics.depth.Add(-1)
			item.run()
		}
	}
}

// Queue implements receiver.Scheduler. If the scheduler is closed, destroy
// runs immediately (fn never runs), matching spec.md §7's "state errors
// returned, not raised" for a queue that can no longer accept work.
func (s *Shared) Queue(fn func(), destroy func()) {
	item := workItem{fn: fn, destroy: destroy}
	if err := s.q.Push(item); err != nil {
		debug.Logf(debug.SectionScheduler, "scheduler.Shared: queue on closed scheduler, running destructor")
		if destroy != nil {
			destroy()
		}
		return
	}
	s.metrics.depth.Add(1)
	s.maybeGrow()
}

// maybeGrow spawns one additional non-permanent worker when the backlog
// exceeds the current worker count and max_threads hasn't been reached,
// per spec.md §4.5.4's "queue may spawn up to max_threads workers under
// sustained backlog".
func (s *Shared) maybeGrow() {
	if int64(s.q.Len()) <= s.workers.LoadAcquire() {
		return
	}
	if s.workers.LoadAcquire() >= int64(s.max) {
		return
	}
	s.spawn(false)
}

// MinThreads implements Scheduler.
func (s *Shared) MinThreads() int { return s.min }

// MaxThreads implements Scheduler.
func (s *Shared) MaxThreads() int { return s.max }

// Close stops accepting work, lets every worker drain the queue (running
// destructors for items that never ran once the queue reports closed), and
// joins all worker goroutines before returning.
func (s *Shared) Close() {
	s.mu.Lock()
	if !s.closed.CompareAndSwapAcqRel(false, true) {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	// closed is now visible to spawn() under the same mutex, so no eg.Go
	// call can start after this point — safe to Wait without racing a
	// concurrent errgroup.Go (sync.WaitGroup forbids Add-from-zero racing
	// a Wait).
	s.q.Close()
	_ = s.eg.Wait()

	for {
		item, ok := s.q.TryPop()
		if !ok {
			return
		}
		s.metrics.depth.Add(-1)
		if item.destroy != nil {
			item.destroy()
		}
	}
}
