// Package iris provides a concurrency core for message-driven systems: a
// reference-counted message type, ports that mailbox messages to attached
// receivers, an admission-gated receiver type, an arbiter for coordinating
// exclusive/concurrent/teardown handlers, and a family of interchangeable
// worker-pool schedulers.
//
// Constructors
//   - message.New / message.NewFull: build a message.
//   - port.New: create an unattached mailbox.
//   - Receive: admit a handler into a port via a scheduler.
//   - Coordinate: wire exclusive/concurrent/teardown receivers under an
//     arbiter.
//   - scheduler.NewShared / NewLockFree / NewWorkStealing / NewMainContext:
//     construct a scheduler variant.
//   - scheduler.Default / SetDefault: the process-wide default scheduler.
//
// Debug logging
// Set IRIS_DEBUG (or a per-section IRIS_DEBUG_<SECTION> variable — see
// internal/debug) to enable structured zerolog output for a subsystem.
package iris
