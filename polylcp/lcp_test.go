package polylcp

import (
	"testing"

	"github.com/ds4opt/epec-oa/numeric"
	"github.com/ds4opt/epec-oa/solver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// a trivial 1x1 LCP: w = z - 1 (M=[1], q=[-1]). Solutions: z=0,w=-1
// (infeasible since w<0) or z=1,w=0.
func simpleLCP() *PolyLCP {
	M := numeric.NewSparse(1, 1)
	M.Set(0, 0, 1)
	return New(M, []float64{-1})
}

func TestWFromZ(t *testing.T) {
	p := simpleLCP()
	w := p.WFromZ([]float64{1})
	assert.InDelta(t, 0, w[0], 1e-9)
}

func TestSolEncode(t *testing.T) {
	p := simpleLCP()
	enc := p.SolEncode([]float64{1})
	assert.Equal(t, numeric.Encoding{-1}, enc)

	enc2 := p.SolEncode([]float64{0})
	assert.Equal(t, numeric.Encoding{1}, enc2)
}

func TestOuterApproximateFeasibleWhenUnpinned(t *testing.T) {
	p := simpleLCP()
	backend := solver.NewGonumLPBackend()
	defer backend.Close()

	// z=1, w=0 is feasible for the unpinned relaxation (z free >= 0).
	feasible, err := p.OuterApproximate(numeric.Encoding{-1}, true, backend)
	require.NoError(t, err)
	assert.True(t, feasible)
}

func TestOuterApproximateInfeasibleWhenPinnedWrong(t *testing.T) {
	p := simpleLCP()
	backend := solver.NewGonumLPBackend()
	defer backend.Close()

	// pinning z=0 forces w=-1, which violates w>=0: infeasible.
	feasible, err := p.OuterApproximate(numeric.Encoding{1}, true, backend)
	require.NoError(t, err)
	assert.False(t, feasible)
}

func TestContainsCutAndAddCustomCuts(t *testing.T) {
	p := simpleLCP()
	assert.False(t, p.ContainsCut([]float64{1}, 2))
	require.NoError(t, p.AddCustomCuts([][]float64{{1}}, []float64{2}))
	assert.True(t, p.ContainsCut([]float64{1}, 2))
}

func TestLCPasMIPShape(t *testing.T) {
	p := simpleLCP()
	model := p.LCPasMIP(true)
	assert.Len(t, model.C, 2)
	assert.True(t, model.Integer[1])
	assert.False(t, model.Integer[0])
}

func TestExtractSols(t *testing.T) {
	p := simpleLCP()
	sol := solver.Solution{Status: solver.StatusOptimal, X: []float64{1, 1}}
	z, w, ok := p.ExtractSols(sol)
	assert.True(t, ok)
	assert.Equal(t, []float64{1}, z)
	assert.InDelta(t, 0, w[0], 1e-9)
}
