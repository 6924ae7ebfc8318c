package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestGonumLPBackendEquality(t *testing.T) {
	// grounded on ilp.go's ExampleSimplex: minimize -x1-2x2 s.t. -x1+2x2+x3=4, 3x1+x2+x4=9
	b := NewGonumLPBackend()
	defer b.Close()

	m := LPModel{
		C: []float64{-1, -2, 0, 0},
		A: mat.NewDense(2, 4, []float64{
			-1, 2, 1, 0,
			3, 1, 0, 1,
		}),
		B: []float64{4, 9},
	}
	sol := b.Solve(m, Options{})
	assert.Equal(t, StatusOptimal, sol.Status)
	assert.InDelta(t, -8, sol.Objective, 1e-6)
}

func TestGonumLPBackendInequality(t *testing.T) {
	b := NewGonumLPBackend()
	defer b.Close()

	// minimize -x s.t. x <= 5, x >= 0
	m := LPModel{
		C: []float64{-1},
		G: mat.NewDense(1, 1, []float64{1}),
		H: []float64{5},
	}
	sol := b.Solve(m, Options{})
	assert.Equal(t, StatusOptimal, sol.Status)
	assert.InDelta(t, -5, sol.Objective, 1e-6)
	assert.InDelta(t, 5, sol.X[0], 1e-6)
}

func TestGonumLPBackendRejectsIntegrality(t *testing.T) {
	b := NewGonumLPBackend()
	defer b.Close()

	m := LPModel{
		C:       []float64{-1},
		G:       mat.NewDense(1, 1, []float64{1}),
		H:       []float64{5},
		Integer: []bool{true},
	}
	sol := b.Solve(m, Options{})
	assert.Equal(t, StatusError, sol.Status)
}

func TestGonumLPBackendRejectsQuadratic(t *testing.T) {
	b := NewGonumLPBackend()
	defer b.Close()

	m := LPModel{
		C: []float64{-1},
		Q: mat.NewDense(1, 1, []float64{1}),
		G: mat.NewDense(1, 1, []float64{1}),
		H: []float64{5},
	}
	sol := b.Solve(m, Options{})
	assert.Equal(t, StatusError, sol.Status)
}
