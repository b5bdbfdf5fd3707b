package operations

import (
	"errors"
	"fmt"
)

// RunError records the state a run failed in
type RunError struct {
	State RunState
	Cause error
}

// Error implements the error interface
func (e *RunError) Error() string {
	if e == nil {
		return "unknown run error"
	}
	return fmt.Sprintf("run failed while %s: %v", e.State, e.Cause)
}

// Unwrap returns the underlying error
func (e *RunError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// FailedState returns the state a run error occurred in
func FailedState(err error) (RunState, bool) {
	var runErr *RunError
	if errors.As(err, &runErr) {
		return runErr.State, true
	}
	return "", false
}
