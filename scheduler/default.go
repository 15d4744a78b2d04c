package scheduler

import "sync"

var (
	defaultMu  sync.Mutex
	defaultVal Scheduler
)

// Default returns the process-wide default scheduler, lazily creating a
// Shared scheduler with a dynamic thread count the first time it's called
// (spec.md §9's "lazily-initialised singleton accessed through an explicit
// accessor; initialisation is idempotent and threadsafe").
func Default() Scheduler {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultVal == nil {
		defaultVal = NewShared(1, defaultMaxThreads())
	}
	return defaultVal
}

// SetDefault replaces the process-wide default scheduler. It does not close
// the previous default; callers that want that must Close it themselves.
func SetDefault(s Scheduler) {
	defaultMu.Lock()
	defaultVal = s
	defaultMu.Unlock()
}
