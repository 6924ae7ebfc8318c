package outerapprox

import (
	"fmt"
	"log/slog"

	"github.com/ds4opt/epec-oa/nash"
	"github.com/ds4opt/epec-oa/paramopt"
	"github.com/ds4opt/epec-oa/polylcp"
	"github.com/ds4opt/epec-oa/solver"
)

// ErrNumeric is returned by FeasibilityCheck when a relaxation's payoff
// underestimates the true best-response value, a discrepancy spec.md §4.6.2
// calls impossible for a valid outer approximation (see the §9 open
// question: kept as a hard fault rather than tolerance-suppressed).
var ErrNumeric = fmt.Errorf("outerapprox: relaxation payoff below best-response value")

// Status is the per-solve state machine of spec.md §4.6.6.
type Status int

const (
	Uninitialized Status = iota
	Iterating
	NashEqFound
	NashEqNotFound
	TimeLimit
	Numerical
)

func (s Status) String() string {
	switch s {
	case Uninitialized:
		return "Uninitialized"
	case Iterating:
		return "Iterating"
	case NashEqFound:
		return "NashEqFound"
	case NashEqNotFound:
		return "NashEqNotFound"
	case TimeLimit:
		return "TimeLimit"
	case Numerical:
		return "Numerical"
	default:
		return "Unknown"
	}
}

// Player is the per-player data the engine needs: the disjunctive
// complementarity system (PolyLCP), the convex-hull QP approximation it
// refreshes every iteration (QPParam), and the leader cost (Objective) used
// both to refresh QPParam and to derive value cuts.
type Player interface {
	PolyLCP() *polylcp.PolyLCP
	QPParam() *paramopt.MP_Param
	Objective() paramopt.QPObjective
}

// Host is the narrow slice of the EPEC façade (C7) the engine calls back
// into: best-response solves, joint-vector slicing, and the master-LCP
// assembly NashGame (C5) performs over the current QPParams. Kept as an
// interface (rather than a direct dependency on package epec) so the
// façade can own the engine without an import cycle.
type Host interface {
	NumPlayers() int
	Player(i int) Player
	Backend() solver.Backend

	// PrimalLoc returns the offset of player i's block within the joint
	// solution vector x passed to FeasibilityCheck/branching.
	PrimalLoc(i int) int

	// Respond solves player i's true best response to x^{-i} (x holds the
	// full joint vector; the callee extracts its own complement). Returns
	// the optimal value, the best-response vector restricted to player i's
	// own decision block, and whether the problem was unbounded.
	Respond(i int, x []float64) (value float64, bestResponse []float64, unbounded bool, err error)

	// XOfI extracts player i's own decision slice from the joint vector x.
	XOfI(x []float64, i int) []float64
	// XMinusI extracts the parameter vector player i's objective expects
	// (every other player's decision slice, in the order player i's C
	// matrix was built against).
	XMinusI(x []float64, i int) []float64

	// Assemble (re)builds the joint NashGame from the players' current
	// QPParam approximations.
	Assemble() (*nash.NashGame, error)

	// TimeRemaining reports the wall-clock budget left in seconds; a
	// negative value means the engine has no time limit.
	TimeRemaining() float64
}

// Engine runs the branch-and-cut loop of spec.md §4.6 over a Host. It owns
// one OuterTree and one Incumbent node per player, plus the joint solution
// vector from the most recently solved master LCP.
type Engine struct {
	Host Host

	Trees     []*OuterTree
	Incumbent []int

	Tolerance    float64
	OracleBudget int

	SolutionX []float64

	Stats Stats

	// Logger receives per-iteration branching decisions at Debug, the start
	// of Solve and each terminal state at Info, and hybrid-branching
	// infeasibility and feasibility-check failures at Warn. Never
	// nil: NewEngine defaults it to slog.Default(). The engine never writes
	// to stdout directly.
	Logger *slog.Logger
}

// Stats mirrors the subset of §4.7's EPEC.Stats the engine itself tracks.
type Stats struct {
	Status         Status
	Iterations     int
	AddedCuts      bool
	NumericalIssue bool
}

// NewEngine builds an Engine with one fresh OuterTree per player, rooted at
// an all-bits-free encoding.
func NewEngine(host Host, tolerance float64) *Engine {
	n := host.NumPlayers()
	trees := make([]*OuterTree, n)
	incumbent := make([]int, n)
	for i := 0; i < n; i++ {
		k := host.Player(i).PolyLCP().K
		trees[i] = NewOuterTree(k)
		incumbent[i] = trees[i].Root()
	}
	return &Engine{
		Host:         host,
		Trees:        trees,
		Incumbent:    incumbent,
		Tolerance:    tolerance,
		OracleBudget: 15,
		Stats:        Stats{Status: Uninitialized},
		Logger:       slog.Default(),
	}
}
