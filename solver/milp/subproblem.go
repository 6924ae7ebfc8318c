package milp

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// subProblem is one node of the branch-and-bound tree: the original
// program plus whatever extra inequalities branching has accumulated along
// the path from the root.
type subProblem struct {
	id     int64
	parent int64

	// Inherited from the root problem and never modified in place.
	c []float64
	A *mat.Dense
	b []float64
	G *mat.Dense
	h []float64

	integralityConstraints []bool
	branchHeuristic        BranchHeuristic

	// Extra inequalities contributed by branching decisions on the path
	// from the root to this node.
	bnbConstraints []bnbConstraint
}

type bnbConstraint struct {
	branchedVariable int
	hsharp           float64
	gsharp           []float64
}

type solution struct {
	problem *subProblem
	x       []float64
	z       float64
	err     error
}

// combineInequalities folds the root problem's G/h together with whatever
// bnbConstraints this node has accumulated into a single G/h pair.
func (p subProblem) combineInequalities() (*mat.Dense, []float64) {
	if len(p.bnbConstraints) > 0 {
		h := p.h

		var bnbGvects []float64
		for _, constr := range p.bnbConstraints {
			bnbGvects = append(bnbGvects, constr.gsharp...)
			h = append(h, constr.hsharp)
		}
		bnbG := mat.NewDense(len(p.bnbConstraints), len(p.c), bnbGvects)

		if p.G == nil {
			return bnbG, h
		}
		if p.G.IsZero() {
			return bnbG, h
		}

		origRows, _ := p.G.Dims()
		bnbRows, _ := bnbG.Dims()
		expectedRows := origRows + bnbRows

		Gnew := mat.NewDense(expectedRows, len(p.c), nil)
		Gnew.Stack(p.G, bnbG)

		return Gnew, h
	}

	if p.G != nil {
		return mat.DenseCopyOf(p.G), p.h
	}
	return nil, nil
}

// convertToEqualities turns G x <= h into A x = b by appending one
// nonnegative slack variable per row.
func convertToEqualities(c []float64, A *mat.Dense, b []float64, G *mat.Dense, h []float64) (cNew []float64, aNew *mat.Dense, bNew []float64) {
	if G == nil {
		panic("provided pointer to G matrix is nil")
	}
	if insane := sanityCheckDimensions(c, A, b, G, h); insane != nil {
		panic(insane)
	}

	nVar := len(c)
	nCons := len(b)
	nIneq := len(h)

	nNewVar := nVar + nIneq
	nNewCons := len(b) + nIneq

	cNew = make([]float64, nNewVar)
	copy(cNew, c)

	bNew = make([]float64, nNewCons)
	copy(bNew, b)
	copy(bNew[nCons:], h)

	aNew = mat.NewDense(nNewCons, nNewVar, nil)

	if A != nil {
		aNew.Slice(0, nCons, 0, nVar).(*mat.Dense).Copy(A)
	}
	aNew.Slice(nCons, nNewCons, 0, nVar).(*mat.Dense).Copy(G)

	bottomRight := aNew.Slice(nCons, nNewCons, nVar, nVar+nIneq).(*mat.Dense)
	for i := 0; i < nIneq; i++ {
		bottomRight.Set(i, i, 1)
	}

	if insane := sanityCheckDimensions(cNew, aNew, bNew, nil, nil); insane != nil {
		panic(insane)
	}

	return
}

func (p subProblem) solve() solution {
	G, h := p.combineInequalities()

	var z float64
	var x []float64
	var err error

	if G != nil {
		c, A, b := convertToEqualities(p.c, p.A, p.b, G, h)
		z, x, err = lp.Simplex(c, A, b, 0, nil)
		if err == nil && len(x) != len(p.c) {
			x = x[:len(p.c)]
		}
	} else {
		z, x, err = lp.Simplex(p.c, p.A, p.b, 0, nil)
	}

	return solution{problem: &p, x: x, z: z, err: err}
}

// branch splits the node's solution into two children along the
// fractional variable chosen by the node's branch heuristic.
func (s solution) branch() (p1, p2 subProblem) {
	branchOn := 0
	switch s.problem.branchHeuristic {
	case BranchMaxFun:
		branchOn = maxFunBranchPoint(s.problem.c, s.problem.integralityConstraints)
	case BranchMostInfeasible:
		branchOn = mostInfeasibleBranchPoint(s.x, s.problem.integralityConstraints)
	case BranchNaive:
		branchOn = s.naiveBranchPoint()
	default:
		panic("provided branching heuristic config variable unknown")
	}

	currentCoeff := s.x[branchOn]

	p1 = s.problem.getChild(branchOn, 1, math.Floor(currentCoeff))
	p2 = s.problem.getChild(branchOn, -1, -(math.Floor(currentCoeff) + 1))

	p1.id++
	p2.id = p2.id + 2

	return
}

func (p subProblem) getChild(branchOn int, factor float64, smallerOrEqualThan float64) subProblem {
	child := p.copy()
	newConstraint := bnbConstraint{
		branchedVariable: branchOn,
		hsharp:           smallerOrEqualThan,
		gsharp:           make([]float64, len(p.c)),
	}
	newConstraint.gsharp[branchOn] = factor
	child.bnbConstraints = append(child.bnbConstraints, newConstraint)
	return child
}

// copy clones the node's identity and bnbConstraints slice while sharing the
// immutable root-problem data (c, A, b, G, h, integralityConstraints).
func (p *subProblem) copy() subProblem {
	n := subProblem{
		id:                     p.id,
		parent:                 p.id,
		c:                      p.c,
		A:                      p.A,
		b:                      p.b,
		G:                      p.G,
		h:                      p.h,
		branchHeuristic:        p.branchHeuristic,
		bnbConstraints:         make([]bnbConstraint, len(p.bnbConstraints)),
		integralityConstraints: p.integralityConstraints,
	}
	copy(n.bnbConstraints, p.bnbConstraints)
	return n
}

func sanityCheckDimensions(c []float64, A *mat.Dense, b []float64, G *mat.Dense, h []float64) error {
	if G == nil && A == nil {
		return errors.New("no constraint matrices provided")
	}

	if G != nil {
		if h == nil {
			return errors.New("h vector is nil while G matrix is provided")
		}
		rG, cG := G.Dims()
		if rG != len(h) {
			return errors.New("number of rows in G matrix is not equal to length of h")
		}
		if cG != len(c) {
			return errors.New("number of columns in G matrix is not equal to number of variables")
		}
	}
	if h != nil && G == nil {
		return errors.New("G matrix is nil while h vector is provided")
	}

	if A != nil {
		rA, cA := A.Dims()
		if rA != len(b) {
			return errors.New("number of rows in A matrix is not equal to length of b")
		}
		if cA != len(c) {
			return errors.New("number of columns in A matrix is not equal to number of variables")
		}
	}
	if b != nil && A == nil {
		return errors.New("A matrix is nil while b vector is provided")
	}

	return nil
}
