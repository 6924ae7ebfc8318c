package outerapprox

import (
	"testing"

	"github.com/ds4opt/epec-oa/nash"
	"github.com/ds4opt/epec-oa/numeric"
	"github.com/ds4opt/epec-oa/paramopt"
	"github.com/ds4opt/epec-oa/polylcp"
	"github.com/ds4opt/epec-oa/solver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePlayer/fakeHost implement just enough of outerapprox.Player/Host to
// drive FeasibilityCheck in isolation: two players with one variable each
// and own linear costs -y1 and y2 (cross terms zero), whose best-response
// values and vectors are canned per test rather than solved.
type fakePlayer struct {
	lcp *polylcp.PolyLCP
	qp  *paramopt.MP_Param
	obj paramopt.QPObjective
}

func (f *fakePlayer) PolyLCP() *polylcp.PolyLCP        { return f.lcp }
func (f *fakePlayer) QPParam() *paramopt.MP_Param      { return f.qp }
func (f *fakePlayer) Objective() paramopt.QPObjective  { return f.obj }

type fakeHost struct {
	players      []*fakePlayer
	primalLoc    []int
	backend      solver.Backend
	respondValue []float64
	respondBR    [][]float64
	timeRemain   float64
}

func (h *fakeHost) NumPlayers() int        { return len(h.players) }
func (h *fakeHost) Player(i int) Player    { return h.players[i] }
func (h *fakeHost) Backend() solver.Backend { return h.backend }
func (h *fakeHost) PrimalLoc(i int) int    { return h.primalLoc[i] }

func (h *fakeHost) Respond(i int, x []float64) (float64, []float64, bool, error) {
	return h.respondValue[i], h.respondBR[i], false, nil
}
func (h *fakeHost) XOfI(x []float64, i int) []float64 {
	base := h.primalLoc[i]
	return append([]float64(nil), x[base:base+1]...)
}
func (h *fakeHost) XMinusI(x []float64, i int) []float64 {
	out := make([]float64, 0, len(x)-1)
	base := h.primalLoc[i]
	for j, v := range x {
		if j != base {
			out = append(out, v)
		}
	}
	return out
}
func (h *fakeHost) Assemble() (*nash.NashGame, error) { return nil, nil }
func (h *fakeHost) TimeRemaining() float64            { return h.timeRemain }

func trivialLCP() *polylcp.PolyLCP {
	M := numeric.NewSparse(1, 1)
	return polylcp.New(M, []float64{1}) // w = 1 always: no real complementarity constraint
}

func buildTwoPlayerFakeHost(t *testing.T) *fakeHost {
	mk := func(c0 float64) *fakePlayer {
		C := numeric.NewSparse(1, 1)
		return &fakePlayer{
			lcp: trivialLCP(),
			obj: paramopt.QPObjective{C: C, Cvec: []float64{c0}},
		}
	}
	backend := solver.NewGonumLPBackend()
	t.Cleanup(func() { backend.Close() })

	return &fakeHost{
		players:    []*fakePlayer{mk(-1), mk(1)},
		primalLoc:  []int{0, 1},
		backend:    backend,
		timeRemain: -1,
	}
}

func TestFeasibilityCheckAcceptsMatchingBestResponse(t *testing.T) {
	host := buildTwoPlayerFakeHost(t)
	host.respondValue = []float64{-1, 1}
	host.respondBR = [][]float64{{1}, {1}}

	e := NewEngine(host, numeric.DefaultTolerance)
	game, err := nashGameFor(host, t)
	require.NoError(t, err)

	ok, addedCuts, err := e.FeasibilityCheck([]float64{1, 1}, game)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, addedCuts)
	assert.True(t, e.Trees[0].Feasible)
	assert.True(t, e.Trees[0].Pure)
}

func TestFeasibilityCheckAddsValueCutOnWorsePayoff(t *testing.T) {
	host := buildTwoPlayerFakeHost(t)
	// player 0's candidate payoff (-0.5) is worse than its true best
	// response value (-1), i.e. p > v* + tol: a value cut should be added.
	host.respondValue = []float64{-1, 1}
	host.respondBR = [][]float64{{1}, {0}}

	e := NewEngine(host, numeric.DefaultTolerance)
	game, err := nashGameFor(host, t)
	require.NoError(t, err)

	ok, addedCuts, err := e.FeasibilityCheck([]float64{0.5, 0}, game)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, addedCuts)

	lcp := host.players[0].lcp
	require.NotNil(t, lcp.Acut)
	rows, _ := lcp.Acut.Dims()
	assert.Equal(t, 1, rows)
}

func TestFeasibilityCheckRejectsBetterThanBestResponse(t *testing.T) {
	host := buildTwoPlayerFakeHost(t)
	// candidate payoff is strictly *better* than the reported best
	// response value: impossible for a valid relaxation, must error.
	host.respondValue = []float64{5, 1}
	host.respondBR = [][]float64{{1}, {0}}

	e := NewEngine(host, numeric.DefaultTolerance)
	game, err := nashGameFor(host, t)
	require.NoError(t, err)

	_, _, err = e.FeasibilityCheck([]float64{0.5, 0}, game)
	assert.ErrorIs(t, err, ErrNumeric)
}

func TestTimeBudgetSplitsAcrossCandidates(t *testing.T) {
	host := &fakeHost{timeRemain: 10}
	e := &Engine{Host: host}
	assert.InDelta(t, 9.8, e.timeBudget(1), 1e-9)
	assert.InDelta(t, 0.5, e.timeBudget(5), 1e-9)
}

func TestTimeBudgetUnconstrained(t *testing.T) {
	host := &fakeHost{timeRemain: -1}
	e := &Engine{Host: host}
	assert.Equal(t, -1.0, e.timeBudget(3))
}

// nashGameFor builds the real nash.NashGame this fakeHost's players would
// assemble, used only to exercise ComputeQPObjectiveValues in
// FeasibilityCheck tests (Assemble itself is stubbed out since these tests
// never reach the branch-and-cut master-LCP solve).
func nashGameFor(h *fakeHost, t *testing.T) (*nash.NashGame, error) {
	players := make([]*paramopt.MP_Param, len(h.players))
	for i, p := range h.players {
		m := &paramopt.MP_Param{}
		require.NoError(t, m.Set(nil, p.obj.C, nil, numeric.NewSparse(0, 1), p.obj.Cvec, nil))
		require.NoError(t, m.AddDummy(len(h.players)-1, 0, -1))
		players[i] = m
	}
	return nash.New(players, nil, nil)
}
