package scheduler

import "errors"

// ErrClosed names the closed-scheduler condition. No method returns it:
// Queue has no error result, and on a closed scheduler it runs the item's
// destructor instead of the item.
var ErrClosed = errors.New("scheduler: closed")
