package port

import "errors"

// ErrNilMessage is the Go error form of the §7.1 precondition violation for
// callers that want an error rather than Post's boolean return.
var ErrNilMessage = errors.New("port: nil message")
