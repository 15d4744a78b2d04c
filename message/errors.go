package message

import "errors"

// ErrAttributeNotFound is the sentinel for a missing attribute. No function
// in this module returns it: the Get* methods report a missing attribute
// through the (value, ok) idiom.
var ErrAttributeNotFound = errors.New("message: attribute not found")

// PreconditionError tags a programmer error detected at a package boundary:
// logged and turned into a no-op rather than a panic, per spec.md §7.1.
type PreconditionError struct {
	Op   string
	What int32
	Err  error
}

func (e *PreconditionError) Error() string {
	return "message: " + e.Op + ": " + e.Err.Error()
}

func (e *PreconditionError) Unwrap() error { return e.Err }

func newPrecondition(op string, what int32, err error) *PreconditionError {
	return &PreconditionError{Op: op, What: what, Err: err}
}
