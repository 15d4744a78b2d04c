// Package port implements the message mailbox of spec.md §4.2: a port
// holds at most one attached receiver plus a holding queue for messages
// that can't be delivered yet.
package port

import (
	"container/list"
	"sync"

	"github.com/irisconc/iris/internal/debug"
	"github.com/irisconc/iris/message"
	"github.com/irisconc/iris/receiver"
)

// Port is a mailbox: Post hands a message to the attached receiver, or
// buffers it in FIFO order when no receiver is attached or the receiver
// refuses. Grounded on original_source/iris/iris-queue.c's holding-queue
// idea generalized to spec.md §4.2's explicit contract; the short-held
// mutex matches spec.md §5's "Ports' holding queue is guarded by a
// short-held mutex".
type Port struct {
	mu       sync.Mutex
	receiver *receiver.Receiver
	holding  *list.List
}

// New creates an empty, unattached Port.
func New() *Port {
	return &Port{holding: list.New()}
}

// Post delivers msg to the attached receiver, or buffers it if none is
// attached or the receiver refuses (Pause, Remove or Never). Posting nil is
// a programmer error (spec.md §7.1): it is a no-op that returns false.
// Post is safe to call from any goroutine.
func (p *Port) Post(msg *message.Message) bool {
	if msg == nil {
		debug.Logf(debug.SectionPort, "port.Post: nil message, no-op")
		return false
	}

	p.mu.Lock()
	r := p.receiver
	if r == nil || p.holding.Len() > 0 {
		// A non-empty holding queue means earlier messages from some
		// producer are still waiting; posting straight to the receiver
		// here would risk delivering this message ahead of them, breaking
		// the per-producer ordering invariant (spec.md §4.2).
		p.holding.PushBack(msg)
		p.mu.Unlock()
		if r != nil {
			p.Flush()
		} else {
			debug.Logf(debug.SectionPort, "port.Post: no receiver, held")
		}
		return true
	}
	p.mu.Unlock()

	decision := r.Deliver(msg)
	switch decision {
	case receiver.Delivered:
		return true
	case receiver.Remove:
		p.mu.Lock()
		if p.receiver == r {
			p.receiver = nil
		}
		p.holding.PushBack(msg)
		p.mu.Unlock()
		debug.Logf(debug.SectionPort, "port.Post: receiver asked to be removed, held")
		return true
	case receiver.Pause:
		p.mu.Lock()
		p.holding.PushBack(msg)
		p.mu.Unlock()
		debug.Logf(debug.SectionPort, "port.Post: receiver paused, held")
		return true
	default: // Never
		p.mu.Lock()
		p.holding.PushBack(msg)
		p.mu.Unlock()
		debug.Logf(debug.SectionPort, "port.Post: receiver permanently refuses, held")
		return true
	}
}

// SetReceiver attaches r (nil to detach), then flushes any held messages to
// it in FIFO order, stopping early the moment the receiver begins refusing
// again. Passing nil just detaches: subsequent Post calls hold messages
// until a receiver is attached again.
func (p *Port) SetReceiver(r *receiver.Receiver) {
	p.mu.Lock()
	p.receiver = r
	p.mu.Unlock()

	if r != nil {
		r.SetReadyCallback(p.Flush)
	}
	p.Flush()
}

// HasReceiver reports whether a receiver is currently attached.
func (p *Port) HasReceiver() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.receiver != nil
}

// Flush attempts to redeliver every currently-held message to the attached
// receiver, in FIFO order, stopping at the first one the receiver doesn't
// admit (which is pushed back to the front of the holding queue).
func (p *Port) Flush() {
	for {
		p.mu.Lock()
		r := p.receiver
		if r == nil || p.holding.Len() == 0 {
			p.mu.Unlock()
			return
		}
		front := p.holding.Front()
		msg := front.Value.(*message.Message)
		p.holding.Remove(front)
		p.mu.Unlock()

		decision := r.Deliver(msg)
		if decision == receiver.Delivered {
			continue
		}

		p.mu.Lock()
		p.holding.PushFront(msg)
		if decision == receiver.Remove && p.receiver == r {
			p.receiver = nil
		}
		p.mu.Unlock()
		debug.Logf(debug.SectionPort, "port.Flush: stopped early, receiver refusing (%s)", decision)
		return
	}
}

// Pending returns the number of currently-held messages.
func (p *Port) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.holding.Len()
}
