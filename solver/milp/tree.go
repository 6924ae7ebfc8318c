package milp

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize/convex/lp"
)

// bnbDecision names what the driver did with a candidate node, purely for
// instrumentation; it carries no algorithmic weight.
type bnbDecision string

const (
	decisionDegenerate         bnbDecision = "subproblem contains a degenerate (singular) matrix"
	decisionInfeasible         bnbDecision = "subproblem has no feasible solution"
	decisionWorseThanIncumbent bnbDecision = "worse than incumbent"
	decisionBranching          bnbDecision = "better than incumbent but not integer feasible, so branching"
	decisionNewIncumbent       bnbDecision = "better than incumbent and integer feasible, so replacing incumbent"
)

// ErrInitialRelaxationInfeasible is returned when the root LP relaxation
// itself has no feasible solution, which means the MILP is infeasible.
var ErrInitialRelaxationInfeasible = errors.New("milp: initial relaxation is infeasible")

// translateSolverFailure turns a solver error into the decision it should
// be logged as. ErrInfeasible is the expected way a node turns out to be a
// dead end; anything else (numerical trouble in the simplex, a singular
// basis) is logged as degenerate rather than crashing the whole search.
func translateSolverFailure(err error) bnbDecision {
	if err == lp.ErrInfeasible {
		return decisionInfeasible
	}
	return decisionDegenerate
}

// node is the instrumentation-facing summary of a search-tree node: no
// pointers into subProblem, so logged nodes never pin down the (possibly
// large) constraint matrices for garbage collection.
type node struct {
	id       int64
	x        []float64
	z        float64
	decision bnbDecision
}

func newNode(s solution, decision bnbDecision) node {
	return node{id: s.problem.id, x: s.x, z: s.z, decision: decision}
}

// logTree is an append-only record of every decision the driver made,
// suitable for post-hoc inspection or a middleware to forward to slog.
type logTree struct {
	nodes []node
}

func newLogTree() *logTree {
	return &logTree{}
}

func (t *logTree) record(n node) {
	t.nodes = append(t.nodes, n)
}

// Tree drives the branch-and-bound search. It is explicitly single
// threaded: Solve pops one node off its stack at a time, runs the LP
// relaxation synchronously, and decides whether to prune, accept, or
// branch before moving to the next node. There are no goroutines or
// channels in this driver; the only blocking point is the call into
// gonum's simplex.
type Tree struct {
	rootProblem subProblem
	middleware  bnbMiddleware
	incumbent   *solution
}

func newTree(rootProblem subProblem, middleware bnbMiddleware) *Tree {
	if middleware == nil {
		middleware = dummyMiddleware{}
	}
	return &Tree{rootProblem: rootProblem, middleware: middleware}
}

// Solve runs the search to completion and returns the best solution found
// along with its decision log.
func (t *Tree) Solve() (solution, *logTree, error) {
	tree := newLogTree()

	initial := t.rootProblem.solve()
	if initial.err != nil {
		if initial.err == lp.ErrInfeasible {
			return initial, tree, ErrInitialRelaxationInfeasible
		}
		return initial, tree, initial.err
	}

	if feasibleForIP(t.rootProblem.integralityConstraints, initial.x) {
		n := newNode(initial, decisionNewIncumbent)
		tree.record(n)
		t.middleware.ProcessDecision(initial, n.decision)
		return initial, tree, nil
	}

	stack := []subProblem{}
	p1, p2 := initial.branch()
	stack = append(stack, p1, p2)
	t.incumbent = nil

	for len(stack) > 0 {
		// depth-first: pop the most recently pushed node.
		prob := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		candidate := prob.solve()

		incumbentZ := math.Inf(1)
		if t.incumbent != nil {
			incumbentZ = t.incumbent.z
		}

		switch {
		case candidate.err != nil:
			decision := translateSolverFailure(candidate.err)
			n := newNode(candidate, decision)
			tree.record(n)
			t.middleware.ProcessDecision(candidate, decision)

		case incumbentZ <= candidate.z:
			n := newNode(candidate, decisionWorseThanIncumbent)
			tree.record(n)
			t.middleware.ProcessDecision(candidate, decisionWorseThanIncumbent)

		default:
			if feasibleForIP(t.rootProblem.integralityConstraints, candidate.x) {
				inc := candidate
				t.incumbent = &inc
				n := newNode(candidate, decisionNewIncumbent)
				tree.record(n)
				t.middleware.ProcessDecision(candidate, decisionNewIncumbent)
			} else {
				n := newNode(candidate, decisionBranching)
				tree.record(n)
				t.middleware.ProcessDecision(candidate, decisionBranching)

				p1, p2 := candidate.branch()
				stack = append(stack, p1, p2)
			}
		}
	}

	if t.incumbent == nil {
		return solution{}, tree, errors.New("milp: no integer-feasible solution found")
	}

	return *t.incumbent, tree, nil
}

func feasibleForIP(constraints []bool, solution []float64) bool {
	if len(constraints) != len(solution) {
		panic(fmt.Sprint("constraints vector and solution vector not of equal size: ", constraints, solution))
	}
	for i := range solution {
		if constraints[i] {
			if !isAllInteger(solution[i]) {
				return false
			}
		}
	}
	return true
}

func isAllInteger(in ...float64) bool {
	for _, k := range in {
		if k != math.Trunc(k) {
			return false
		}
	}
	return true
}
