package solver

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// GonumLPBackend solves continuous LPs with gonum's primal simplex. It
// rejects models carrying integrality constraints or a quadratic term;
// callers needing MILP/MIQP should use HighsBackend or solver/milp.
//
// gonum's lp.Simplex only accepts equality-constrained standard form
// (minimize c^T x s.t. A x = b, x >= 0), so inequalities G x <= h are first
// converted to equalities by appending one slack variable per row, the way
// the teacher's convertToEqualities does it.
type GonumLPBackend struct{}

func NewGonumLPBackend() *GonumLPBackend { return &GonumLPBackend{} }

func (b *GonumLPBackend) Close() error { return nil }

func (b *GonumLPBackend) Solve(m LPModel, opts Options) Solution {
	if m.Q != nil {
		return Solution{Status: StatusError, Err: &ErrSolve{Backend: "gonum", Cause: fmt.Errorf("quadratic objective not supported")}}
	}
	for _, isInt := range m.Integer {
		if isInt {
			return Solution{Status: StatusError, Err: &ErrSolve{Backend: "gonum", Cause: fmt.Errorf("integer variables not supported")}}
		}
	}
	for _, free := range m.Free {
		if free {
			return Solution{Status: StatusError, Err: &ErrSolve{Backend: "gonum", Cause: fmt.Errorf("free variables not supported")}}
		}
	}

	c := m.C
	A := m.A
	bvec := m.B

	if m.G != nil {
		nVar := len(c)
		gRows, _ := m.G.Dims()
		nSlack := gRows

		cNew := make([]float64, nVar+nSlack)
		copy(cNew, c)

		var aRows int
		if A != nil {
			aRows, _ = A.Dims()
		}
		nNewCons := aRows + nSlack
		nNewVar := nVar + nSlack

		aData := make([]float64, nNewCons*nNewVar)
		aNew := mat.NewDense(nNewCons, nNewVar, aData)
		if A != nil {
			for i := 0; i < aRows; i++ {
				for j := 0; j < nVar; j++ {
					aNew.Set(i, j, A.At(i, j))
				}
			}
		}
		for i := 0; i < nSlack; i++ {
			for j := 0; j < nVar; j++ {
				aNew.Set(aRows+i, j, m.G.At(i, j))
			}
			// slack variable absorbs the inequality: G x + s = h, s >= 0
			aNew.Set(aRows+i, nVar+i, 1)
		}

		bNew := make([]float64, nNewCons)
		copy(bNew, bvec)
		copy(bNew[aRows:], m.H)

		c = cNew
		A = aNew
		bvec = bNew
	}

	if A == nil {
		return Solution{Status: StatusError, Err: &ErrSolve{Backend: "gonum", Cause: fmt.Errorf("model has no constraints")}}
	}

	z, x, err := lp.Simplex(c, A, bvec, 0, nil)
	if err != nil {
		if err == lp.ErrInfeasible {
			return Solution{Status: StatusInfeasible, Err: err}
		}
		if err == lp.ErrUnbounded {
			return Solution{Status: StatusUnbounded, Err: err}
		}
		return Solution{Status: StatusError, Err: &ErrSolve{Backend: "gonum", Cause: err}}
	}

	return Solution{Status: StatusOptimal, X: x[:len(m.C)], Objective: z}
}
