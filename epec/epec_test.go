package epec

import (
	"testing"

	"github.com/ds4opt/epec-oa/numeric"
	"github.com/ds4opt/epec-oa/paramopt"
	"github.com/ds4opt/epec-oa/polylcp"
	"github.com/ds4opt/epec-oa/solver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubBackend returns a canned Solution regardless of the model, letting
// RespondSol's own control flow be tested without a working MIQP solver.
type stubBackend struct{ sol solver.Solution }

func (b *stubBackend) Solve(solver.LPModel, solver.Options) solver.Solution { return b.sol }
func (b *stubBackend) Close() error                                        { return nil }

// buildPlayer constructs a trivial single-z-variable player: the
// complementarity system w=1 always (no real complementarity, the way
// outerapprox's fakeHost tests keep the LCP inert to isolate the code
// under test), with the given leader cost. otherWidth is the number of
// other players' own-variables this player's LowerLevel parameter vector
// must already carry before Finalize inserts its own zero gap, mirroring
// the pre-finalize convention EPEC.Finalize's padding expects.
func buildPlayer(t *testing.T, cvec []float64, cross *numeric.Sparse, otherWidth int) *PlayerData {
	t.Helper()
	M := numeric.NewSparse(len(cvec), len(cvec))
	lcp := polylcp.New(M, make([]float64, len(cvec)))

	B := numeric.NewSparse(len(cvec), len(cvec))
	for i := range cvec {
		B.Set(i, i, 1)
	}
	b := make([]float64, len(cvec))
	for i := range b {
		b[i] = 1
	}
	C := numeric.NewSparse(len(cvec), otherWidth)
	lower := &paramopt.MP_Param{}
	require.NoError(t, lower.Set(nil, C, nil, B, make([]float64, len(cvec)), b))

	return &PlayerData{
		LowerLevel:      lower,
		LeaderObjective: paramopt.QPObjective{C: cross, Cvec: cvec},
		PolyLCPData:     lcp,
	}
}

func twoPlayerEPEC(t *testing.T) *EPEC {
	t.Helper()
	e := &EPEC{
		Players: []*PlayerData{
			buildPlayer(t, []float64{-1}, nil, 1),
			buildPlayer(t, []float64{1}, nil, 1),
		},
		SolverBackend: &stubBackend{},
		Config:        DefaultConfig(),
	}
	require.NoError(t, e.Finalize())
	return e
}

func TestFinalizeComputesLeaderLocationsAndPadsParameters(t *testing.T) {
	e := twoPlayerEPEC(t)
	assert.Equal(t, []int{0, 1}, e.LeaderLocations)
	assert.Equal(t, 2, e.NumVariables)
	assert.Equal(t, 2, e.Players[0].LowerLevel.Nx)
	assert.Equal(t, 2, e.Players[1].LowerLevel.Nx)
	assert.NotNil(t, e.Players[0].QPParamData)
	assert.Len(t, e.SolutionX, 2)
}

func TestFinalizeIsIdempotent(t *testing.T) {
	e := twoPlayerEPEC(t)
	locsBefore := append([]int(nil), e.LeaderLocations...)
	require.NoError(t, e.Finalize())
	assert.Equal(t, locsBefore, e.LeaderLocations)
}

func TestFinalizeRejectsEmptyPlayers(t *testing.T) {
	e := &EPEC{}
	err := e.Finalize()
	require.Error(t, err)
	var epecErr *Error
	require.ErrorAs(t, err, &epecErr)
	assert.Equal(t, InvalidData, epecErr.Kind)
}

func TestFinalizeRejectsMismatchedMarketClearingDims(t *testing.T) {
	e := &EPEC{
		Players: []*PlayerData{buildPlayer(t, []float64{-1}, nil, 0)},
		MC:      numeric.NewSparse(1, 5),
		MCRHS:   []float64{1},
	}
	err := e.Finalize()
	require.Error(t, err)
}

func TestRespondSolExtractsOptimalBestResponse(t *testing.T) {
	e := twoPlayerEPEC(t)
	e.SolverBackend = &stubBackend{sol: solver.Solution{Status: solver.StatusOptimal, X: []float64{0.7, 0}, Objective: 1.23}}

	val, br, unbounded, err := e.RespondSol(0, []float64{0, 0}, nil)
	require.NoError(t, err)
	assert.False(t, unbounded)
	assert.Equal(t, 1.23, val)
	assert.Equal(t, []float64{0.7}, br)
}

func TestRespondSolWalksRayOnUnbounded(t *testing.T) {
	e := twoPlayerEPEC(t)
	e.SolverBackend = &stubBackend{sol: solver.Solution{Status: solver.StatusUnbounded, Ray: []float64{1}}}

	// player 0's leader cost is -y: increasing y along the ray strictly
	// improves (decreases) the objective, so the walk should terminate on
	// its first doubling step.
	val, dev, unbounded, err := e.RespondSol(0, []float64{0, 0}, nil)
	require.NoError(t, err)
	assert.False(t, unbounded)
	assert.InDelta(t, -1, val, 1e-9)
	assert.InDelta(t, 1, dev[0], 1e-9)
}

func TestRespondSolUnboundedWithNoImprovingRay(t *testing.T) {
	e := twoPlayerEPEC(t)
	e.SolverBackend = &stubBackend{sol: solver.Solution{Status: solver.StatusUnbounded, Ray: nil}}

	_, _, unbounded, err := e.RespondSol(0, []float64{0, 0}, nil)
	require.NoError(t, err)
	assert.True(t, unbounded)
}

func TestRespondSolPropagatesSolverError(t *testing.T) {
	e := twoPlayerEPEC(t)
	e.SolverBackend = &stubBackend{sol: solver.Solution{Status: solver.StatusInfeasible}}

	_, _, _, err := e.RespondSol(0, []float64{0, 0}, nil)
	require.Error(t, err)
	var epecErr *Error
	require.ErrorAs(t, err, &epecErr)
	assert.Equal(t, SolverError, epecErr.Kind)
}

func TestGetValLeadLeadAndFollComputeExpectedValues(t *testing.T) {
	cross := numeric.NewSparse(1, 1)
	cross.Set(0, 0, 2) // player 0's leader cost picks up 2*y1 as a cross term
	e := &EPEC{
		Players: []*PlayerData{
			buildPlayer(t, []float64{-1}, cross, 1),
			buildPlayer(t, []float64{1}, nil, 1),
		},
		SolverBackend: &stubBackend{},
		Config:        DefaultConfig(),
	}
	require.NoError(t, e.Finalize())
	e.SolutionX = []float64{3, 5}
	e.NashEquilibrium = true

	lead, err := e.GetValLeadLead(0, 1)
	require.NoError(t, err)
	assert.InDelta(t, 2*5*3, lead, 1e-9) // (cross . y1) . y0

	foll, err := e.GetValLeadFoll(0, 0)
	require.NoError(t, err)
	assert.InDelta(t, -1*3, foll, 1e-9) // Cvec . y0 (no Q term)
}

func TestGetValLeadLeadRequiresSolvedEquilibrium(t *testing.T) {
	e := twoPlayerEPEC(t)
	_, err := e.GetValLeadLead(0, 1)
	require.Error(t, err)
	var epecErr *Error
	require.ErrorAs(t, err, &epecErr)
	assert.Equal(t, InvalidQuery, epecErr.Kind)
}

func TestFindNashEqRejectsUnimplementedAlgorithm(t *testing.T) {
	e := twoPlayerEPEC(t)
	err := e.FindNashEq(AlgorithmFullEnumeration)
	require.Error(t, err)
	var epecErr *Error
	require.ErrorAs(t, err, &epecErr)
	assert.Equal(t, Assertion, epecErr.Kind)
}

func TestXOfIAndXMinusISliceTheJointVector(t *testing.T) {
	e := twoPlayerEPEC(t)
	x := []float64{10, 20}
	assert.Equal(t, []float64{10}, e.XOfI(x, 0))
	assert.Equal(t, []float64{20}, e.XMinusI(x, 0))
	assert.Equal(t, []float64{20}, e.XOfI(x, 1))
	assert.Equal(t, []float64{10}, e.XMinusI(x, 1))
}
