package queue

import (
	"errors"

	"code.hybscloud.com/iox"
)

// ErrClosed is returned by Blocking.Push once the queue has been closed, and
// by Blocking's Pop, TimedPop and TimedPopOrClose once a closed queue has
// been fully drained. The TryPop methods report emptiness through their
// bool result instead.
var ErrClosed = errors.New("queue: closed")

// ErrEmpty names the "no value immediately available" condition. No
// method in this package returns it: every TryPop reports an empty queue
// through its (value, ok) result. It is an alias for iox.ErrWouldBlock
// (same "retry later, not a failure"
// control-flow signal hayabusa-cloud-lfq's errors.go documents for its own
// Dequeue), so callers already handling ecosystem would-block errors via
// iox.IsWouldBlock recognize it without a queue-specific type switch.
var ErrEmpty = iox.ErrWouldBlock

// ErrFull is returned by the fixed-capacity lock-free structures (Stack
// and LockFree) when a push would exceed capacity; Deque grows instead and
// never returns it. It is the Enqueue-side counterpart of ErrEmpty, same
// underlying sentinel.
var ErrFull = iox.ErrWouldBlock

// ErrTimeout is returned by TimedPop when the deadline elapses before a
// value becomes available.
var ErrTimeout = errors.New("queue: timed out")

// IsWouldBlock reports whether err is the shared would-block/backpressure
// signal ErrEmpty and ErrFull alias. Delegates to iox.IsWouldBlock so
// wrapped errors are still recognized.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}
