// Package receiver implements the admission gate that turns a delivered
// message into a scheduler work item (spec.md §4.3).
//
// Receiver deliberately declares only the minimal interfaces it needs from
// its collaborators (Governor, Scheduler) rather than importing the
// arbiter or scheduler packages directly: arbiter holds receivers and
// receiver would otherwise need to import arbiter right back, an import
// cycle. Concrete arbiter.Arbiter and scheduler.* types satisfy these
// interfaces structurally.
package receiver

import (
	"code.hybscloud.com/atomix"
	"github.com/irisconc/iris/internal/debug"
	"github.com/irisconc/iris/message"
	"github.com/irisconc/iris/metrics"
)

// Decision is the result of an admission attempt, mirroring spec.md §4.3.
type Decision int

const (
	// Delivered means the message was admitted; a scheduler work item has
	// been queued.
	Delivered Decision = iota
	// Pause is a temporary refusal: the port must hold the message and
	// re-post when the receiver signals readiness.
	Pause
	// Remove is a temporary refusal that additionally asks the port to
	// detach this receiver until it re-arms.
	Remove
	// Never is a permanent refusal.
	Never
)

func (d Decision) String() string {
	switch d {
	case Delivered:
		return "DELIVERED"
	case Pause:
		return "PAUSE"
	case Remove:
		return "REMOVE"
	case Never:
		return "NEVER"
	default:
		return "UNKNOWN"
	}
}

// Governor is the arbiter-facing coordination hook a Receiver consults
// before admitting a message, when one governs it.
type Governor interface {
	// CanReceive returns the admission decision for r given the governor's
	// current state.
	CanReceive(r *Receiver) Decision
	// OnCompleted is invoked once r's handler has finished running (success
	// or recovered panic), after r's own bookkeeping has been updated.
	OnCompleted(r *Receiver)
}

// Scheduler is the work-item sink a Receiver hands admitted messages to.
type Scheduler interface {
	// Queue enqueues fn to run asynchronously; destroy, if non-nil, runs
	// exactly once whether or not fn ran (e.g. because the scheduler was
	// closed first).
	Queue(fn func(), destroy func())
}

// Handler processes one delivered message with its associated user data.
type Handler func(msg *message.Message, userData any)

// Receiver admits messages per spec.md §4.3's admission logic and, once
// admitted, hands a work item to its scheduler.
type Receiver struct {
	scheduler Scheduler
	governor  Governor
	handler   Handler
	userData  any
	destroy   func(any)

	maxActive int64 // 0 means unbounded
	active    atomix.Int64

	onReady func()

	activeGauge metrics.UpDownCounter
}

// Option configures a Receiver at construction time.
type Option func(*Receiver)

// WithGovernor attaches an arbiter (or any Governor) to the receiver. An
// arbiter-governed receiver's admission is delegated entirely to the
// governor; MaxActive is ignored.
func WithGovernor(g Governor) Option {
	return func(r *Receiver) { r.governor = g }
}

// SetGovernor attaches (or replaces) the receiver's governor after
// construction. arbiter.Coordinate uses this to wire existing receivers to
// a newly created Arbiter, matching spec.md §6's arbiter_coordinate, which
// takes already-constructed receivers rather than building new ones.
func (r *Receiver) SetGovernor(g Governor) {
	r.governor = g
}

// WithMaxActive bounds how many of this receiver's work items may be
// in-flight concurrently. Zero (the default) means unbounded, matching
// spec.md §4.3's "max_active defaults to unbounded for free receivers".
func WithMaxActive(n int64) Option {
	return func(r *Receiver) { r.maxActive = n }
}

// WithDestroy sets the destructor invoked on userData exactly once, when
// Teardown is called on the receiver. Ports never call Teardown themselves.
func WithDestroy(fn func(any)) Option {
	return func(r *Receiver) { r.destroy = fn }
}

// WithMetrics attaches a metrics.Provider the receiver reports its
// in-flight work-item count through. Defaults to metrics.NewNoopProvider()
// when not supplied.
func WithMetrics(p metrics.Provider) Option {
	return func(r *Receiver) {
		r.activeGauge = p.UpDownCounter(
			"iris_receiver_active",
			metrics.WithDescription("in-flight work items admitted by this receiver"),
		)
	}
}

// New creates a Receiver bound to a scheduler and handler. Port.SetReceiver
// attaches the returned Receiver and establishes its ready callback.
func New(s Scheduler, handler Handler, userData any, opts ...Option) *Receiver {
	r := &Receiver{scheduler: s, handler: handler, userData: userData}
	for _, opt := range opts {
		opt(r)
	}
	if r.activeGauge == nil {
		r.activeGauge = metrics.NewNoopProvider().UpDownCounter("iris_receiver_active")
	}
	return r
}

// SetReadyCallback registers the callback invoked after a work item
// completes and capacity may have opened up again. Ports call this when
// they attach a receiver so they can re-flush their holding queue; at most
// one callback is retained.
func (r *Receiver) SetReadyCallback(cb func()) {
	r.onReady = cb
}

// Active returns the current number of in-flight work items for this
// receiver.
func (r *Receiver) Active() int64 { return r.active.LoadAcquire() }

// Notify invokes the ready callback, if one is registered. Governors call
// this to ask a paused port to retry delivery after a state transition
// that may have opened capacity (e.g. an arbiter clearing EXCLUSIVE).
func (r *Receiver) Notify() {
	if r.onReady != nil {
		r.onReady()
	}
}

// Deliver attempts to admit msg per spec.md §4.3's admission logic. On
// Delivered, msg is ref'd once for the lifetime of the scheduled work item.
// The matching Unref lives solely in the destroy closure, never in fn
// itself: spec.md §4.5 ("work item... optional destructor for the payload,
// invoked whether or not the item ran") and every scheduler variant's
// workItem.run() both guarantee destroy fires exactly once per queued item
// regardless of whether fn ran — fn additionally unref'ing would double
// the release for every item the scheduler actually dispatches.
func (r *Receiver) Deliver(msg *message.Message) Decision {
	if msg == nil {
		debug.Logf(debug.SectionReceiver, "receiver.Deliver: nil message, no-op")
		return Never
	}

	decision := r.admit()
	if decision != Delivered {
		debug.Logf(debug.SectionReceiver, "receiver.Deliver: %s", decision)
		return decision
	}

	msg.Ref()
	r.scheduler.Queue(func() { r.run(msg) }, func() { msg.Unref() })
	return Delivered
}

func (r *Receiver) admit() Decision {
	if r.governor != nil {
		d := r.governor.CanReceive(r)
		if d == Delivered {
			r.active.AddAcqRel(1)
			r.activeGauge.Add(1)
		}
		return d
	}
	if r.maxActive <= 0 {
		r.active.AddAcqRel(1)
		r.activeGauge.Add(1)
		return Delivered
	}
	for {
		cur := r.active.LoadAcquire()
		if cur >= r.maxActive {
			return Pause
		}
		if r.active.CompareAndSwapAcqRel(cur, cur+1) {
			r.activeGauge.Add(1)
			return Delivered
		}
	}
}

// run invokes the handler and updates completion bookkeeping. It does not
// unref msg: the scheduler's destroy callback owns that, and it fires
// exactly once per queued item whether or not run executes (see Deliver).
func (r *Receiver) run(msg *message.Message) {
	defer r.complete()
	r.invokeHandler(msg)
}

func (r *Receiver) invokeHandler(msg *message.Message) {
	defer func() {
		if rec := recover(); rec != nil {
			debug.Log(debug.SectionReceiver).Interface("panic", rec).Msg("receiver handler panic recovered")
		}
	}()
	r.handler(msg, r.userData)
}

func (r *Receiver) complete() {
	r.active.AddAcqRel(-1)
	r.activeGauge.Add(-1)
	if r.governor != nil {
		r.governor.OnCompleted(r)
	}
	if r.onReady != nil {
		r.onReady()
	}
}

// Teardown runs the receiver's destructor, if any, exactly once: the
// destructor is cleared after the first call, so later calls do nothing.
func (r *Receiver) Teardown() {
	if r.destroy != nil {
		r.destroy(r.userData)
		r.destroy = nil
	}
}
