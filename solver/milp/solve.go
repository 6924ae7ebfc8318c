package milp

// Result is the outcome of solving a Problem end to end, in the caller's
// original variable space (any presolve-introduced slacks are stripped).
type Result struct {
	X         []float64
	Objective float64
}

// Solve compiles p, presolves it to standard form, and runs the
// single-threaded branch-and-bound driver to find an optimal integer
// feasible solution. Pass nil for middleware to skip instrumentation.
func Solve(p Problem, heuristic BranchHeuristic, middleware bnbMiddleware) (Result, *logTree, error) {
	c, A, b, G, h, integer := p.Compile()

	prepper := newPreprocessor()
	processed := prepper.preSolve(c, A, b, G, h, integer, heuristic)

	tree := newTree(processed.toInitialSubproblem(), middleware)
	sol, log, err := tree.Solve()
	if err != nil {
		return Result{}, log, err
	}

	final := prepper.postSolve(sol)
	return Result{X: final.x, Objective: final.z}, log, nil
}
