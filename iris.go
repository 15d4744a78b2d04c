package iris

import (
	"github.com/irisconc/iris/arbiter"
	"github.com/irisconc/iris/message"
	"github.com/irisconc/iris/port"
	"github.com/irisconc/iris/receiver"
)

// Receive composes receiver.New and Port.SetReceiver into the single
// arbiter_receive-shaped call spec.md §6 names: build a receiver bound to
// s and handler, attach it to p, and return it so callers can later
// re-govern it (arbiter.Coordinate) or detach it (p.SetReceiver(nil)).
func Receive(p *port.Port, s receiver.Scheduler, handler receiver.Handler, userData any, opts ...receiver.Option) *receiver.Receiver {
	r := receiver.New(s, handler, userData, opts...)
	p.SetReceiver(r)
	return r
}

// Coordinate wires exclusive, concurrent, and teardown receivers (any of
// which may be nil) under a new Arbiter, matching spec.md §6's
// arbiter_coordinate. It is a thin re-export of arbiter.Coordinate kept at
// the root so callers who only need message/port/receiver/arbiter/
// scheduler rarely need to import the arbiter package directly.
func Coordinate(exclusive, concurrent, teardown *receiver.Receiver, opts ...arbiter.Option) *arbiter.Arbiter {
	return arbiter.Coordinate(exclusive, concurrent, teardown, opts...)
}

// NewPort creates an empty, unattached mailbox (re-exported for callers
// that otherwise only touch this package).
func NewPort() *port.Port {
	return port.New()
}

// NewMessage creates a message with the given "what" identifier and a
// refcount of 1 (re-exported for callers that otherwise only touch this
// package).
func NewMessage(what int32) *message.Message {
	return message.New(what)
}
