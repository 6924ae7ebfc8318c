package nash

import (
	"testing"

	"github.com/ds4opt/epec-oa/numeric"
	"github.com/ds4opt/epec-oa/paramopt"
	"github.com/ds4opt/epec-oa/solver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// two players, each with one variable y_i >= 0, y_i <= 1, and own linear
// costs -y1 and y2 respectively; the cross terms are left at zero, so each
// payoff depends only on the player's own variable.
func twoPlayerZeroSum(t *testing.T) []*paramopt.MP_Param {
	mk := func(c0 float64, cross float64) *paramopt.MP_Param {
		C := numeric.NewSparse(1, 1)
		C.Set(0, 0, 0)
		B := numeric.NewSparse(1, 1)
		B.Set(0, 0, 1)
		m := &paramopt.MP_Param{}
		require.NoError(t, m.Set(nil, C, nil, B, []float64{c0}, []float64{1}))
		require.NoError(t, m.AddDummy(1, 0, -1)) // pad Nx to 2 (joint primal width)
		return m
	}
	p1 := mk(-1, 0)
	p2 := mk(1, 0)
	return []*paramopt.MP_Param{p1, p2}
}

func TestNewValidatesJointWidth(t *testing.T) {
	players := twoPlayerZeroSum(t)
	g, err := New(players, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, g.NumVars)
	assert.Equal(t, 0, g.GetPrimalLoc(0))
	assert.Equal(t, 1, g.GetPrimalLoc(1))
}

func TestNewRejectsMismatchedParameterWidth(t *testing.T) {
	m := &paramopt.MP_Param{}
	require.NoError(t, m.Set(nil, nil, nil, nil, []float64{0}, nil))
	_, err := New([]*paramopt.MP_Param{m}, nil, nil)
	assert.Error(t, err)
}

func TestComputeQPObjectiveValues(t *testing.T) {
	players := twoPlayerZeroSum(t)
	g, err := New(players, nil, nil)
	require.NoError(t, err)

	payoffs := g.ComputeQPObjectiveValues([]float64{1, 1}, true)
	require.Len(t, payoffs, 2)
	assert.InDelta(t, -1, payoffs[0], 1e-9)
	assert.InDelta(t, 1, payoffs[1], 1e-9)
}

func TestAssembleLCPShapeAndFeasibility(t *testing.T) {
	players := twoPlayerZeroSum(t)
	g, err := New(players, nil, nil)
	require.NoError(t, err)

	lcp, err := g.AssembleLCP()
	require.NoError(t, err)

	// K = NumVars (2) + sum(Ncons) (1+1) + 0 market rows = 4.
	assert.Equal(t, 4, lcp.K)

	backend := solver.NewGonumLPBackend()
	defer backend.Close()
	full := make(numeric.Encoding, lcp.K)
	for i := range full {
		full[i] = -1
	}
	feasible, err := lcp.OuterApproximate(full, true, backend)
	require.NoError(t, err)
	assert.True(t, feasible)
}
