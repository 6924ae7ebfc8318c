// Package epec implements the EPEC façade (C7): it owns each player's
// lower-level MP_Param, leader objective, PolyLCP, and convex-hull QP
// approximation, orchestrates finalize -> findNashEq -> feasibility-check
// -> branch loop, and exposes the read-only query surface the out-of-scope
// shell (CLI, JSON I/O, instance construction) consumes.
package epec

import "fmt"

// Status mirrors spec.md §6's status codes.
type Status int

const (
	StatusUninitialized Status = iota
	StatusNashEqFound
	StatusNashEqNotFound
	StatusTimeLimit
	StatusNumerical
)

func (s Status) String() string {
	switch s {
	case StatusUninitialized:
		return "Uninitialized"
	case StatusNashEqFound:
		return "NashEqFound"
	case StatusNashEqNotFound:
		return "NashEqNotFound"
	case StatusTimeLimit:
		return "TimeLimit"
	case StatusNumerical:
		return "Numerical"
	default:
		return "Unknown"
	}
}

// ErrorKind enumerates the error taxonomy of spec.md §6/§7. These are
// kinds, not sentinel values with fixed messages: construct an *Error with
// the kind that matches the failure.
type ErrorKind int

const (
	MemoryError ErrorKind = iota
	InvalidQuery
	InvalidData
	SolverError
	OutOfRange
	Numeric
	IOError
	Assertion
	UnknownError
)

func (k ErrorKind) String() string {
	switch k {
	case MemoryError:
		return "MemoryError"
	case InvalidQuery:
		return "InvalidQuery"
	case InvalidData:
		return "InvalidData"
	case SolverError:
		return "SolverError"
	case OutOfRange:
		return "OutOfRange"
	case Numeric:
		return "Numeric"
	case IOError:
		return "IOError"
	case Assertion:
		return "Assertion"
	default:
		return "Unknown"
	}
}

// Error wraps a failure with its taxonomy kind, grounded on
// original_source/include/support/codes.h's ZEROErrorCode enum and the
// ZEROException wrapper that carries it.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("epec: %s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("epec: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapError(kind ErrorKind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Stats mirrors spec.md §3's EPEC.Stats record, extended with the
// model-size counters original_source/include/support/codes.h's
// ZEROStatistics<DataObjectType> tracks alongside status/timing.
type Stats struct {
	Status         Status
	WallClock      float64 // seconds elapsed in the most recent FindNashEq call
	Iterations     int
	NumericalIssue bool

	// NumVariables, NumConstraints, and NumNonZero describe the size of
	// the joint model as finalized: the joint primal width, the sum of
	// every player's own constraint rows plus any market-clearing rows,
	// and the total nonzero count across every player's constraint and
	// objective matrices plus the market-clearing matrix.
	NumVariables  int
	NumConstraints int
	NumNonZero    int
}
