package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an update targets a session id that does not
// exist. Callers treat this as a programming-contract violation, not a
// recoverable condition.
var ErrNotFound = errors.New("not found")

// OpError wraps a storage failure with the operation that produced it.
// Callers treat it as fatal for the current user action but never for the
// process.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// opErr wraps err in an OpError, or returns nil if err is nil.
func opErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Err: err}
}
