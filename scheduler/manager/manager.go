// Package manager implements the process-wide Scheduler Manager of
// spec.md §4.6: a singleton that owns the default scheduler, tracks every
// live scheduler, and drives periodic rebalancing (inspecting queue depths
// and worker counts, growing a scheduler's pool when backlogged).
// Grounded on original_source/tests/scheduler-manager-1.c's
// iris_scheduler_manager_init(main_context?, use_periodic, on_tick_cb?),
// using a mutex-guarded lazy-singleton start sequence.
package manager

import (
	"context"
	"sync"
	"time"

	"github.com/irisconc/iris/internal/debug"
	"github.com/irisconc/iris/scheduler"
	"golang.org/x/sync/errgroup"
)

// registration pairs a scheduler with an optional backlog-depth reporter.
// scheduler.Scheduler doesn't itself expose a queue-depth hook (the three
// variants have structurally different queues), so Register takes the
// depth reporter as a closure rather than requiring an extra interface.
type registration struct {
	s     scheduler.Scheduler
	depth func() int
}

// Manager is the process-wide scheduler registry and rebalancer.
type Manager struct {
	mu      sync.Mutex
	def     scheduler.Scheduler
	regs    []registration
	onTick  func()
	ticking bool
	cancel  context.CancelFunc
	eg      *errgroup.Group
}

var (
	instMu sync.Mutex
	inst   *Manager
)

// Get returns the process-wide Manager singleton, creating it
// (unconfigured: no default scheduler, no periodic rebalancing) on first
// call.
func Get() *Manager {
	instMu.Lock()
	defer instMu.Unlock()
	if inst == nil {
		inst = &Manager{}
	}
	return inst
}

// Init configures the manager: it adopts (or lazily creates) the default
// scheduler, and — when usePeriodic is true — starts a background ticker
// that rebalances every registered scheduler and invokes onTick (if
// non-nil) after each pass, mirroring
// iris_scheduler_manager_init(main_context?, use_periodic, on_tick_cb?).
// period defaults to 10ms (scheduler-manager-1.c's g_timeout_add(10, ...)
// drives its rebalance dispatcher on that cadence) when <= 0.
func (m *Manager) Init(usePeriodic bool, period time.Duration, onTick func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.def == nil {
		m.def = scheduler.Default()
		m.regs = append(m.regs, registration{s: m.def})
	}
	m.onTick = onTick

	if !usePeriodic || m.ticking {
		return
	}
	if period <= 0 {
		period = 10 * time.Millisecond
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.eg = &errgroup.Group{}
	m.ticking = true
	m.eg.Go(func() error {
		m.tickLoop(ctx, period)
		return nil
	})
}

func (m *Manager) tickLoop(ctx context.Context, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.rebalanceOnce()
			m.mu.Lock()
			cb := m.onTick
			m.mu.Unlock()
			if cb != nil {
				cb()
			}
		}
	}
}

// Register adds s to the set of schedulers the manager rebalances. depth,
// if non-nil, reports s's current backlog for rebalancing decisions; when
// nil the manager rebalances s on worker-count alone.
func (m *Manager) Register(s scheduler.Scheduler, depth func() int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regs = append(m.regs, registration{s: s, depth: depth})
}

// Default returns the manager's default scheduler, lazily adopting
// scheduler.Default() if Init hasn't been called yet.
func (m *Manager) Default() scheduler.Scheduler {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.def == nil {
		m.def = scheduler.Default()
		m.regs = append(m.regs, registration{s: m.def})
	}
	return m.def
}

// rebalanceOnce inspects every registered scheduler and, when it reports a
// backlog and hasn't reached max_threads, nudges it by queuing a no-op
// item — every scheduler variant grows its worker pool opportunistically
// inside Queue() when backlogged (scheduler.Shared and WorkStealing via
// maybeGrow, LockFree inline in Queue), so a cheap wake-up item is enough to trigger
// that check without this package reaching into variant-specific queues.
func (m *Manager) rebalanceOnce() {
	m.mu.Lock()
	regs := append([]registration(nil), m.regs...)
	m.mu.Unlock()

	for _, r := range regs {
		if r.depth == nil {
			continue
		}
		if r.depth() > 0 && r.s.MaxThreads() > r.s.MinThreads() {
			debug.Logf(debug.SectionScheduler, "manager: rebalance nudging scheduler with backlog %d", r.depth())
			r.s.Queue(func() {}, nil)
		}
	}
}

// Teardown stops the periodic ticker (if running) and closes every
// registered scheduler exactly once, matching spec.md §4.6's "stop the
// timer, close each scheduler".
func (m *Manager) Teardown() {
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
	}
	eg := m.eg
	regs := append([]registration(nil), m.regs...)
	m.regs = nil
	m.ticking = false
	m.mu.Unlock()

	if eg != nil {
		_ = eg.Wait()
	}
	for _, r := range regs {
		r.s.Close()
	}
}
