// Package arbiter implements the exclusive/concurrent/teardown coordination
// state machine of spec.md §4.4, grounded directly on
// original_source/tests/arbiter-1.c and
// original_source/tests/coordination-arbiter-1.c.
//
// Arbiter implements receiver.Governor so any receiver.Receiver can be
// placed under its control via WithGovernor; it never imports the
// scheduler package, only the receiver package's minimal interfaces.
package arbiter

import (
	"code.hybscloud.com/atomix"
	"github.com/irisconc/iris/internal/debug"
	"github.com/irisconc/iris/metrics"
	"github.com/irisconc/iris/receiver"
)

const (
	flagExclusive uint64 = 1 << iota
	flagConcurrent
	flagNeedsExclusive
	flagCompleted
)

// Arbiter coordinates up to three receivers: at most one exclusive handler
// runs at a time, concurrent handlers may run in parallel with each other
// but never with exclusive, and the optional teardown handler runs exactly
// once, after any currently-active handlers have completed.
type Arbiter struct {
	exclusive  *receiver.Receiver
	concurrent *receiver.Receiver
	teardown   *receiver.Receiver

	flags atomix.Uint64

	activeExclusive  atomix.Int64
	activeConcurrent atomix.Int64
	teardownFired    atomix.Bool

	exclusiveTransitions  metrics.Counter
	concurrentTransitions metrics.Counter
	teardownTransitions   metrics.Counter
}

// Option configures an Arbiter at construction time.
type Option func(*Arbiter)

// WithMetrics attaches a metrics.Provider the arbiter reports its admitted
// state transitions through: one counter per state, incremented once per
// admitted exclusive/concurrent/teardown handler. Each state gets its own
// instrument name (rather than one shared name distinguished only by a
// "state" attribute) since metrics.InstrumentConfig.Attributes are
// advisory and a Provider is free to ignore them — distinct names are the
// only separation every implementation is guaranteed to honor. Defaults
// to metrics.NewNoopProvider() when not supplied.
func WithMetrics(p metrics.Provider) Option {
	return func(a *Arbiter) {
		a.exclusiveTransitions = p.Counter(
			"iris_arbiter_exclusive_transitions_total",
			metrics.WithDescription("admitted exclusive-handler transitions"),
			metrics.WithAttributes(map[string]string{"state": "exclusive"}),
		)
		a.concurrentTransitions = p.Counter(
			"iris_arbiter_concurrent_transitions_total",
			metrics.WithDescription("admitted concurrent-handler transitions"),
			metrics.WithAttributes(map[string]string{"state": "concurrent"}),
		)
		a.teardownTransitions = p.Counter(
			"iris_arbiter_teardown_transitions_total",
			metrics.WithDescription("admitted teardown-handler transitions"),
			metrics.WithAttributes(map[string]string{"state": "teardown"}),
		)
	}
}

// Coordinate creates an Arbiter governing the given already-constructed
// receivers (per spec.md §6's arbiter_coordinate) and assigns itself as
// each non-nil receiver's governor. Any of the three may be nil.
func Coordinate(exclusive, concurrent, teardown *receiver.Receiver, opts ...Option) *Arbiter {
	a := &Arbiter{exclusive: exclusive, concurrent: concurrent, teardown: teardown}
	for _, opt := range opts {
		opt(a)
	}
	if a.exclusiveTransitions == nil {
		noop := metrics.NewNoopProvider()
		a.exclusiveTransitions = noop.Counter("iris_arbiter_transitions_total")
		a.concurrentTransitions = noop.Counter("iris_arbiter_transitions_total")
		a.teardownTransitions = noop.Counter("iris_arbiter_transitions_total")
	}
	if exclusive != nil {
		exclusive.SetGovernor(a)
	}
	if concurrent != nil {
		concurrent.SetGovernor(a)
	}
	if teardown != nil {
		teardown.SetGovernor(a)
	}
	return a
}

// CanReceive implements receiver.Governor.
func (a *Arbiter) CanReceive(r *receiver.Receiver) receiver.Decision {
	switch r {
	case a.exclusive:
		return a.admitExclusive()
	case a.concurrent:
		return a.admitConcurrent()
	case a.teardown:
		return a.admitTeardown()
	default:
		return receiver.Never
	}
}

// OnCompleted implements receiver.Governor.
func (a *Arbiter) OnCompleted(r *receiver.Receiver) {
	switch r {
	case a.exclusive:
		a.completeExclusive()
	case a.concurrent:
		a.completeConcurrent()
	case a.teardown:
		// Teardown is permanent; no further bookkeeping.
	}
}

func (a *Arbiter) admitExclusive() receiver.Decision {
	for {
		s := a.flags.LoadAcquire()
		if s&flagCompleted != 0 {
			return receiver.Never
		}
		if s&(flagConcurrent|flagExclusive) == 0 {
			next := (s | flagExclusive) &^ flagNeedsExclusive
			if a.flags.CompareAndSwapAcqRel(s, next) {
				a.activeExclusive.AddAcqRel(1)
				a.exclusiveTransitions.Add(1)
				debug.Logf(debug.SectionArbiter, "arbiter: admit exclusive")
				return receiver.Delivered
			}
			continue
		}
		if a.flags.CompareAndSwapAcqRel(s, s|flagNeedsExclusive) {
			return receiver.Pause
		}
	}
}

// admitConcurrent implements the resolved reading of spec.md §4.4.1: a
// concurrent message joins an already-running concurrent batch (CONCURRENT
// already set) even when NEEDS_EXCLUSIVE is also set — NEEDS_EXCLUSIVE only
// blocks *starting a fresh* concurrent batch (see SPEC_FULL.md §9 / spec.md
// §8 scenario 6).
func (a *Arbiter) admitConcurrent() receiver.Decision {
	for {
		s := a.flags.LoadAcquire()
		if s&flagCompleted != 0 {
			return receiver.Pause
		}
		if s&flagExclusive != 0 {
			return receiver.Pause
		}
		if s&flagConcurrent != 0 {
			a.activeConcurrent.AddAcqRel(1)
			a.concurrentTransitions.Add(1)
			debug.Logf(debug.SectionArbiter, "arbiter: admit concurrent (joins batch)")
			return receiver.Delivered
		}
		if s&flagNeedsExclusive != 0 {
			return receiver.Pause
		}
		if a.flags.CompareAndSwapAcqRel(s, s|flagConcurrent) {
			a.activeConcurrent.AddAcqRel(1)
			a.concurrentTransitions.Add(1)
			debug.Logf(debug.SectionArbiter, "arbiter: admit concurrent (starts batch)")
			return receiver.Delivered
		}
	}
}

func (a *Arbiter) admitTeardown() receiver.Decision {
	if a.teardownFired.LoadAcquire() {
		return receiver.Never
	}
	if a.activeExclusive.LoadAcquire() > 0 || a.activeConcurrent.LoadAcquire() > 0 {
		for {
			s := a.flags.LoadAcquire()
			if s&flagCompleted != 0 {
				break
			}
			if a.flags.CompareAndSwapAcqRel(s, s|flagCompleted) {
				break
			}
		}
		return receiver.Pause
	}
	if !a.teardownFired.CompareAndSwapAcqRel(false, true) {
		return receiver.Pause
	}
	for {
		s := a.flags.LoadAcquire()
		if a.flags.CompareAndSwapAcqRel(s, s|flagCompleted|flagExclusive) {
			break
		}
	}
	a.teardownTransitions.Add(1)
	debug.Logf(debug.SectionArbiter, "arbiter: admit teardown")
	return receiver.Delivered
}

func (a *Arbiter) completeExclusive() {
	if a.activeExclusive.AddAcqRel(-1) != 0 {
		return
	}
	for {
		s := a.flags.LoadAcquire()
		if a.flags.CompareAndSwapAcqRel(s, s&^flagExclusive) {
			break
		}
	}
	if a.flags.LoadAcquire()&flagNeedsExclusive == 0 && a.concurrent != nil {
		a.concurrent.Notify()
	}
	a.maybeFireTeardown()
}

func (a *Arbiter) completeConcurrent() {
	if a.activeConcurrent.AddAcqRel(-1) != 0 {
		return
	}
	for {
		s := a.flags.LoadAcquire()
		if a.flags.CompareAndSwapAcqRel(s, s&^flagConcurrent) {
			break
		}
	}
	if a.flags.LoadAcquire()&flagNeedsExclusive != 0 {
		if a.exclusive != nil {
			a.exclusive.Notify()
		}
	}
	a.maybeFireTeardown()
}

// maybeFireTeardown re-signals the teardown receiver's port once the last
// active exclusive/concurrent handler drains, so a teardown message that
// arrived while handlers were still running (and was Paused by
// admitTeardown) gets a chance to be redelivered.
func (a *Arbiter) maybeFireTeardown() {
	if a.teardown == nil || a.teardownFired.LoadAcquire() {
		return
	}
	if a.activeExclusive.LoadAcquire() == 0 && a.activeConcurrent.LoadAcquire() == 0 {
		a.teardown.Notify()
	}
}
