package milp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolveSimpleMILP(t *testing.T) {
	// maximize x1+x2 (i.e. minimize -x1-x2) s.t. x1+x2<=3.5, x1,x2 integer, x1,x2>=0
	p := NewProblem()
	x1 := p.AddVariable(-1, true)
	x2 := p.AddVariable(-1, true)
	p.AddInequality([]Expression{{Coef: 1, Variable: x1}, {Coef: 1, Variable: x2}}, 3.5)

	res, log, err := Solve(p, BranchMostInfeasible, nil)
	require.NoError(t, err)
	assert.InDelta(t, -3, res.Objective, 1e-6)
	assert.NotNil(t, log)
}

func TestSolveLPRelaxationAlreadyIntegerFeasible(t *testing.T) {
	p := NewProblem()
	x1 := p.AddVariable(-1, true)
	p.AddInequality([]Expression{{Coef: 1, Variable: x1}}, 5)

	res, _, err := Solve(p, BranchNaive, nil)
	require.NoError(t, err)
	assert.InDelta(t, -5, res.Objective, 1e-6)
}

func TestFeasibleForIP(t *testing.T) {
	assert.True(t, feasibleForIP([]bool{true, false}, []float64{2, 1.5}))
	assert.False(t, feasibleForIP([]bool{true, false}, []float64{2.5, 1.5}))
}

func TestMaxFunBranchPoint(t *testing.T) {
	c := []float64{1, -5, 2}
	integer := []bool{true, true, true}
	assert.Equal(t, 1, maxFunBranchPoint(c, integer))
}

func TestMostInfeasibleBranchPoint(t *testing.T) {
	x := []float64{1.1, 2.5, 3.9}
	integer := []bool{true, true, true}
	assert.Equal(t, 1, mostInfeasibleBranchPoint(x, integer))
}
