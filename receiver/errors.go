package receiver

import "errors"

// ErrNeverAdmitted is returned by callers that wrap Deliver and want a Go
// error for the Never decision (e.g. a teardown-complete arbiter state);
// Deliver itself returns the Decision enum directly per spec.md §4.3.
var ErrNeverAdmitted = errors.New("receiver: message never admitted")
