// Package scheduler implements the worker-thread pool family of spec.md
// §4.5: a shared-queue scheduler, a lock-free scheduler, and a
// work-stealing scheduler, all sharing the common `queue(fn, destroy)` /
// `min_threads` / `max_threads` contract, with a spawn/dispatch loop
// generalized from task-channel dispatch to a plain work-item model.
package scheduler

import (
	"runtime"

	"github.com/irisconc/iris/receiver"
)

// Scheduler is the common surface every variant in this package implements;
// it is exactly receiver.Scheduler plus the introspection spec.md §4.5
// names (min_threads/max_threads).
type Scheduler interface {
	receiver.Scheduler
	// MinThreads returns the worker count maintained even when idle.
	MinThreads() int
	// MaxThreads returns the worker count this scheduler will not exceed.
	MaxThreads() int
	// Close stops accepting new work, drains queued items (running their
	// destructors if they never ran), and joins every worker goroutine.
	Close()
}

// workItem is the unit every scheduler variant queues: a function to run
// and an optional destructor invoked exactly once whether or not fn ran,
// mirroring spec.md §4.5's "work item = a function + user payload +
// optional destructor for the payload".
type workItem struct {
	fn      func()
	destroy func()
}

func (w workItem) run() {
	defer func() {
		if w.destroy != nil {
			w.destroy()
		}
	}()
	w.fn()
}

// defaultMaxThreads mirrors spec.md §4.5.4's "default: 2 × CPU count, min
// 2".
func defaultMaxThreads() int {
	n := 2 * runtime.NumCPU()
	if n < 2 {
		return 2
	}
	return n
}

// clampMin normalizes a requested min_threads against max_threads: negative
// values become 0 (fully dynamic — spec.md §4.5.4 allows starting with no
// workers and spawning under backlog), and a min above max is capped down
// to max.
func clampMin(min, max int) int {
	if min < 0 {
		return 0
	}
	if min > max {
		return max
	}
	return min
}
