package solver

import (
	"fmt"

	"github.com/lanl/highs"
)

// HighsBackend solves LP, MILP, and convex MIQP models via HiGHS, grounded
// on the Nonzero-triplet Model construction used for the set-cover MILP in
// this module's retrieval pack. Quadratic objectives are passed through
// Model.Hessian; §6's "indicator constraints" capability is not exercised
// here because no retrieved HiGHS binding exposes native indicators — see
// the big-M linearization in polylcp instead.
type HighsBackend struct{}

func NewHighsBackend() *HighsBackend { return &HighsBackend{} }

func (b *HighsBackend) Close() error { return nil }

func (b *HighsBackend) Solve(m LPModel, opts Options) Solution {
	nVar := len(m.C)

	model := &highs.Model{
		ColCosts: m.C,
	}

	model.ColLower = make([]float64, nVar)
	model.ColUpper = make([]float64, nVar)
	for j := 0; j < nVar; j++ {
		model.ColUpper[j] = highsInf()
		if len(m.Free) > j && m.Free[j] {
			model.ColLower[j] = -highsInf()
		}
	}

	if len(m.Integer) > 0 {
		model.VarTypes = make([]highs.VariableType, nVar)
		for j, isInt := range m.Integer {
			if isInt {
				model.VarTypes[j] = highs.IntegerType
			} else {
				model.VarTypes[j] = highs.ContinuousType
			}
		}
	}

	if m.A != nil {
		rows, cols := m.A.Dims()
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				if v := m.A.At(i, j); v != 0 {
					model.ConstMatrix = append(model.ConstMatrix, highs.Nonzero{Row: len(model.RowLower), Col: j, Val: v})
				}
			}
			model.RowLower = append(model.RowLower, m.B[i])
			model.RowUpper = append(model.RowUpper, m.B[i])
		}
	}

	if m.G != nil {
		rows, cols := m.G.Dims()
		for i := 0; i < rows; i++ {
			row := len(model.RowLower)
			for j := 0; j < cols; j++ {
				if v := m.G.At(i, j); v != 0 {
					model.ConstMatrix = append(model.ConstMatrix, highs.Nonzero{Row: row, Col: j, Val: v})
				}
			}
			model.RowLower = append(model.RowLower, -highsInf())
			model.RowUpper = append(model.RowUpper, m.H[i])
		}
	}

	if m.Q != nil {
		rows, cols := m.Q.Dims()
		for i := 0; i < rows; i++ {
			for j := i; j < cols; j++ {
				if v := m.Q.At(i, j); v != 0 {
					model.Hessian = append(model.Hessian, highs.Nonzero{Row: i, Col: j, Val: v})
				}
			}
		}
	}

	solution, err := model.Solve()
	if err != nil {
		return Solution{Status: StatusError, Err: &ErrSolve{Backend: "highs", Cause: err}}
	}

	switch solution.Status {
	case highs.Optimal:
		return Solution{Status: StatusOptimal, X: solution.ColumnPrimal, Objective: solution.Objective}
	case highs.Infeasible:
		return Solution{Status: StatusInfeasible}
	case highs.Unbounded:
		return Solution{Status: StatusUnbounded}
	default:
		return Solution{Status: StatusError, Err: &ErrSolve{Backend: "highs", Cause: fmt.Errorf("status %v", solution.Status)}}
	}
}

func highsInf() float64 { return 1e30 }
