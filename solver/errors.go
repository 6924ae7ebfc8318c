package solver

import "fmt"

// ErrSolve wraps a backend-native failure so callers can log it without
// depending on the backend's own error type.
type ErrSolve struct {
	Backend string
	Cause   error
}

func (e *ErrSolve) Error() string {
	return fmt.Sprintf("solver: %s backend: %v", e.Backend, e.Cause)
}

func (e *ErrSolve) Unwrap() error { return e.Cause }
