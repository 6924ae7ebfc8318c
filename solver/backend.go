// Package solver defines the capability contract (§6) this module requires
// of an external optimizer: continuous LP, MILP with binary variables, MIQP
// with convex quadratic objectives, and retrieval of primal values, the
// objective value and (through Solution.Ray) unbounded-ray directions; dual
// values are not part of Solution. Two backends are provided: GonumLPBackend (LP
// only, no external dependency beyond gonum) and HighsBackend (LP/MILP/MIQP
// via github.com/lanl/highs). A third option, package solver/milp, supplies
// a pure-Go MILP solver for callers that need integer variables without the
// HiGHS cgo dependency.
package solver

import "gonum.org/v1/gonum/mat"

// Status mirrors the subset of solver outcomes the engine distinguishes.
type Status int

const (
	StatusOptimal Status = iota
	StatusInfeasible
	StatusUnbounded
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	default:
		return "error"
	}
}

// LPModel is the data for a continuous or mixed-integer program in the
// standard form used throughout this module: minimize
//
//	c^T x + 1/2 x^T Q x
//
// subject to A x = b, G x <= h, x >= 0 (x >= 0 unless Free[i] is set), with
// Integer[i] marking integrality and Q nil for a pure LP/MILP.
type LPModel struct {
	C       []float64
	Q       *mat.Dense // nil for a linear objective
	A       *mat.Dense // equalities, may be nil
	B       []float64
	G       *mat.Dense // inequalities, may be nil
	H       []float64
	Integer []bool // per-column integrality; nil means continuous
	Free    []bool // per-column: true allows negative values
}

// Solution is the outcome of a Solve call.
type Solution struct {
	Status    Status
	X         []float64
	Objective float64
	// Ray holds an unbounded improving direction when Status ==
	// StatusUnbounded and the backend supplies one. None of the backends in
	// this module (GonumLPBackend, HighsBackend, milp.Backend) sets it, so
	// with them Ray is always nil.
	Ray []float64
	Err error
}

// Options configures a single Solve call, matching the per-model knobs of
// §6: time limit, thread hint, output flag, and dual-reduction flag.
type Options struct {
	TimeLimit    float64 // seconds; <=0 means unconstrained
	Threads      int
	OutputFlag   bool
	DualReductions bool
}

// Backend is the capability contract (§6) every component in this module
// programs against. Implementations are scoped resources: Close releases
// any native handle (e.g. a HiGHS environment) and must be safe to call
// even if Solve was never invoked.
type Backend interface {
	// Solve runs the model to optimality or to one of the terminal
	// statuses above. The backends in this module (GonumLPBackend,
	// HighsBackend, milp.Backend) ignore opts, so opts.TimeLimit does not
	// cap their running time.
	Solve(m LPModel, opts Options) Solution
	// Close releases the backend's native resources.
	Close() error
}
