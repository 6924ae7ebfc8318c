package milp

import (
	"gonum.org/v1/gonum/mat"
)

// preProcessedProblem is the root problem after presolving has converted it
// to standard form and dropped degenerate rows.
type preProcessedProblem struct {
	c []float64
	A *mat.Dense
	b []float64

	integralityConstraints []bool
	branchHeuristic        BranchHeuristic
}

func (p preProcessedProblem) toInitialSubproblem() subProblem {
	return subProblem{
		id:                     0,
		c:                      p.c,
		A:                      p.A,
		b:                      p.b,
		integralityConstraints: p.integralityConstraints,
		branchHeuristic:        p.branchHeuristic,
		bnbConstraints:         []bnbConstraint{},
	}
}

type undoer func(solution) solution

// preProcessor records the substitutions presolving made so the final
// solution can be mapped back onto the caller's original variable space.
type preProcessor struct {
	undoers []undoer
}

func newPreprocessor() *preProcessor {
	return &preProcessor{}
}

// removeEmptyRows drops all-zero rows of A (and their corresponding b
// entries), which the simplex implementation treats as redundant anyway.
func removeEmptyRows(A *mat.Dense, b []float64) (*mat.Dense, []float64) {
	aRows, aCols := A.Dims()
	var nonEmptyRows []int
	for i := 0; i < aRows; i++ {
		nonzero := false
		for j := 0; j < aCols; j++ {
			if A.At(i, j) != 0 {
				nonzero = true
				break
			}
		}
		if nonzero {
			nonEmptyRows = append(nonEmptyRows, i)
		}
	}

	if len(nonEmptyRows) == 0 {
		panic("all rows of A are empty")
	}

	if len(nonEmptyRows) == aRows {
		bNew := make([]float64, aRows)
		copy(bNew, b)
		return mat.DenseCopyOf(A), bNew
	}

	var newAData []float64
	var bNew []float64
	for _, r := range nonEmptyRows {
		newAData = append(newAData, A.RawRowView(r)...)
		bNew = append(bNew, b[r])
	}

	return mat.NewDense(len(nonEmptyRows), aCols, newAData), bNew
}

// toStandardForm converts a problem with inequalities into one with only
// equalities and nonnegative slacks, recording the undoer needed to strip
// the slacks back off the eventual solution.
func (prepper *preProcessor) toStandardForm(c []float64, A *mat.Dense, b []float64, G *mat.Dense, h []float64, integrality []bool) (cNew []float64, Anew *mat.Dense, bNew []float64, intNew []bool) {
	cNew = c
	Anew = A
	bNew = b
	intNew = integrality

	if G != nil {
		cNew, Anew, bNew = convertToEqualities(c, A, b, G, h)

		intNew = make([]bool, len(cNew))
		copy(intNew, integrality)

		nOrig := len(c)
		prepper.addUndoer(func(s solution) solution {
			return solution{
				x:       s.x[:nOrig],
				z:       s.z,
				err:     s.err,
				problem: s.problem,
			}
		})
		return
	}

	return
}

func (prepper *preProcessor) addUndoer(u undoer) {
	prepper.undoers = append(prepper.undoers, u)
}

// preSolve produces the standard-form, empty-row-free problem a subProblem
// tree is rooted at.
func (prepper *preProcessor) preSolve(c []float64, A *mat.Dense, b []float64, G *mat.Dense, h []float64, integrality []bool, heuristic BranchHeuristic) preProcessedProblem {
	cNew, Anew, bNew, intNew := prepper.toStandardForm(c, A, b, G, h, integrality)
	Anew, bNew = removeEmptyRows(Anew, bNew)

	return preProcessedProblem{
		c:                      cNew,
		A:                      Anew,
		b:                      bNew,
		integralityConstraints: intNew,
		branchHeuristic:        heuristic,
	}
}

func (prepper *preProcessor) postSolve(s solution) solution {
	sol := s
	for i := len(prepper.undoers) - 1; i >= 0; i-- {
		sol = prepper.undoers[i](sol)
	}
	return sol
}
