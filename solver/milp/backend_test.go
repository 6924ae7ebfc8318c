package milp

import (
	"testing"

	"github.com/ds4opt/epec-oa/solver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestBackendSolvesIntegerModel(t *testing.T) {
	// minimize -x1-x2 s.t. x1+x2<=3.5, x1,x2 integer, x1,x2>=0
	m := solver.LPModel{
		C:       []float64{-1, -1},
		G:       mat.NewDense(1, 2, []float64{1, 1}),
		H:       []float64{3.5},
		Integer: []bool{true, true},
	}
	backend := NewBackend()
	defer backend.Close()

	sol := backend.Solve(m, solver.Options{})
	require.Equal(t, solver.StatusOptimal, sol.Status)
	assert.InDelta(t, -3, sol.Objective, 1e-6)
}

func TestBackendRejectsQuadraticObjective(t *testing.T) {
	m := solver.LPModel{C: []float64{1}, Q: mat.NewDense(1, 1, []float64{1}), A: mat.NewDense(1, 1, []float64{1}), B: []float64{1}}
	backend := NewBackend()
	sol := backend.Solve(m, solver.Options{})
	assert.Equal(t, solver.StatusError, sol.Status)
}

func TestBackendReportsInfeasible(t *testing.T) {
	m := solver.LPModel{
		C: []float64{1},
		A: mat.NewDense(1, 1, []float64{1}),
		B: []float64{-1},
	}
	backend := NewBackend()
	sol := backend.Solve(m, solver.Options{})
	assert.Equal(t, solver.StatusInfeasible, sol.Status)
}
