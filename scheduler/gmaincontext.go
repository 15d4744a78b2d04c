package scheduler

import (
	"sync"

	"github.com/irisconc/iris/internal/debug"
)

// MainContext is the out-of-scope "external cooperative main-context"
// collaborator named in spec.md §5/§9 (`gmainscheduler_new(context?)`),
// reduced to what this module can implement without a GUI toolkit
// dependency: work items queue onto a plain FIFO and only run when the
// caller drives Tick, instead of a background worker goroutine. Grounded
// on original_source/tests/gmainscheduler-1.c, which drives its scheduler
// entirely from repeated g_main_context_iteration calls rather than
// dedicated OS threads.
type MainContext struct {
	mu    sync.Mutex
	items []workItem
}

// NewMainContext creates an empty MainContext scheduler. There is no
// min/max thread concept here — MinThreads/MaxThreads both report 0,
// since every item runs on whatever goroutine calls Tick.
func NewMainContext() *MainContext {
	return &MainContext{}
}

// Queue implements receiver.Scheduler: fn is appended to the pending list
// and runs on a future Tick call, on the caller's goroutine.
func (s *MainContext) Queue(fn func(), destroy func()) {
	s.mu.Lock()
	s.items = append(s.items, workItem{fn: fn, destroy: destroy})
	s.mu.Unlock()
}

// Tick runs every work item queued since the last Tick, in FIFO order, on
// the calling goroutine, and returns how many ran. Safe to call from any
// single driving goroutine (e.g. a GUI event loop's idle callback); not
// safe to call concurrently with itself.
func (s *MainContext) Tick() int {
	s.mu.Lock()
	pending := s.items
	s.items = nil
	s.mu.Unlock()

	for _, item := range pending {
		debug.Logf(debug.SectionScheduler, "scheduler.MainContext: running queued item")
		item.run()
	}
	return len(pending)
}

// MinThreads implements Scheduler: MainContext owns no worker threads.
func (s *MainContext) MinThreads() int { return 0 }

// MaxThreads implements Scheduler: MainContext owns no worker threads.
func (s *MainContext) MaxThreads() int { return 0 }

// Close drains any items still pending, running their destructors without
// running fn, matching every other scheduler's close-time item handling.
func (s *MainContext) Close() {
	s.mu.Lock()
	pending := s.items
	s.items = nil
	s.mu.Unlock()

	for _, item := range pending {
		if item.destroy != nil {
			item.destroy()
		}
	}
}
