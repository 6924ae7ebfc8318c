package milp

import (
	"fmt"

	"github.com/ds4opt/epec-oa/solver"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// Backend adapts the single-threaded branch-and-bound driver to
// solver.Backend, so any component written against the capability contract
// (§6) can drop in this pure-Go MILP solver wherever HighsBackend would
// otherwise be required purely for integrality. It does not support
// quadratic objectives or free (unbounded-below) variables; Solve reports
// StatusError for either, the same way GonumLPBackend reports its own
// unsupported-feature cases.
type Backend struct {
	Heuristic  BranchHeuristic
	Middleware bnbMiddleware
}

// NewBackend returns a Backend branching on the most-fractional variable,
// the driver's default heuristic.
func NewBackend() *Backend {
	return &Backend{Heuristic: BranchMostInfeasible}
}

func (b *Backend) Close() error { return nil }

func (b *Backend) Solve(m solver.LPModel, opts solver.Options) solver.Solution {
	if m.Q != nil {
		return solver.Solution{Status: solver.StatusError, Err: &solver.ErrSolve{Backend: "milp", Cause: fmt.Errorf("quadratic objective not supported")}}
	}
	for _, free := range m.Free {
		if free {
			return solver.Solution{Status: solver.StatusError, Err: &solver.ErrSolve{Backend: "milp", Cause: fmt.Errorf("free variables not supported")}}
		}
	}
	if m.A == nil && m.G == nil {
		return solver.Solution{Status: solver.StatusError, Err: &solver.ErrSolve{Backend: "milp", Cause: fmt.Errorf("model has no constraints")}}
	}

	integer := m.Integer
	if integer == nil {
		integer = make([]bool, len(m.C))
	}

	prepper := newPreprocessor()
	processed := prepper.preSolve(m.C, m.A, m.B, m.G, m.H, integer, b.Heuristic)

	tree := newTree(processed.toInitialSubproblem(), b.Middleware)
	sol, _, err := tree.Solve()
	if err != nil {
		switch err {
		case ErrInitialRelaxationInfeasible, lp.ErrInfeasible:
			return solver.Solution{Status: solver.StatusInfeasible, Err: err}
		case lp.ErrUnbounded:
			return solver.Solution{Status: solver.StatusUnbounded, Err: err}
		default:
			return solver.Solution{Status: solver.StatusError, Err: &solver.ErrSolve{Backend: "milp", Cause: err}}
		}
	}

	final := prepper.postSolve(sol)
	return solver.Solution{Status: solver.StatusOptimal, X: final.x, Objective: final.z}
}
