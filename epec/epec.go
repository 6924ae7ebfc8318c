package epec

import (
	"log/slog"
	"time"

	"github.com/ds4opt/epec-oa/nash"
	"github.com/ds4opt/epec-oa/numeric"
	"github.com/ds4opt/epec-oa/outerapprox"
	"github.com/ds4opt/epec-oa/paramopt"
	"github.com/ds4opt/epec-oa/polylcp"
	"github.com/ds4opt/epec-oa/solver"
)

// maxRayWalkIterations bounds RespondSol's unbounded-deviation ray walk
// (spec.md §4.7): each iteration doubles the step, so this comfortably
// covers any representable improvement without risking an infinite loop
// on a direction that never improves (a modeling error, not something to
// spin forever on).
const maxRayWalkIterations = 50

// Config collects the options of spec.md §6.
type Config struct {
	DeviationTolerance  float64
	IndicatorConstraints bool
	TimeLimit           float64 // seconds; negative disables
	Threads             int
	PureNashEquilibrium bool
	RandomSeed          int64
	BoundPrimals        bool
	BoundBigM           float64

	// Logger receives structured diagnostics (see package doc). Nil means
	// slog.Default().
	Logger *slog.Logger
}

// DefaultConfig mirrors spec.md §4.4's numerical policy defaults.
func DefaultConfig() Config {
	return Config{
		DeviationTolerance: numeric.DefaultTolerance,
		TimeLimit:          -1,
		BoundBigM:          polylcp.DefaultBigM,
	}
}

// PlayerData bundles one player's data under the façade's exclusive
// ownership, per spec.md §3's ownership note.
type PlayerData struct {
	// LowerLevel is the player's own QP: objective y-block plus feasible
	// set, before Finalize pads its parameter vector to the joint width.
	LowerLevel *paramopt.MP_Param
	// LeaderObjective is the leader-level cost this player minimizes at
	// equilibrium (may differ from LowerLevel's own objective in a
	// bilevel reading; for the single-level EPEC this module implements
	// they coincide unless the caller sets otherwise).
	LeaderObjective paramopt.QPObjective
	// PolyLCPData is the player's disjunctive complementarity system.
	PolyLCPData *polylcp.PolyLCP
	// QPParamData is the convex-hull approximation PolyLCP.MakeQP
	// refreshes every outer-approximation iteration.
	QPParamData *paramopt.MP_Param
}

// Algorithm is the closed set of equilibrium-finding strategies spec.md
// §4.7 names, modeled as a tagged union per the §9 design note rather than
// dynamic dispatch. Only AlgorithmOuterApproximation is implemented by
// this module; the others are sibling strategies over the same
// PolyLCP/NashGame primitives that spec.md explicitly places out of scope.
type Algorithm int

const (
	AlgorithmFullEnumeration Algorithm = iota
	AlgorithmInnerApproximation
	AlgorithmCombinatorialPNE
	AlgorithmOuterApproximation
)

// EPEC is the façade of spec.md §4.7: it owns every player's data,
// orchestrates finalize -> findNashEq -> feasibility-check -> branch, and
// answers the shell's read-only queries.
type EPEC struct {
	Config        Config
	SolverBackend solver.Backend

	Players         []*PlayerData
	LeaderLocations []int
	NumVariables    int

	// MC, MCRHS encode the market-clearing rows MC*y <= MCRHS over the
	// joint primal; either may be left nil for a game with none.
	MC    *numeric.Sparse
	MCRHS []float64

	SolutionX       []float64
	NashEquilibrium bool
	Finalized       bool
	Stats           Stats

	// PreFinalize/PostFinalize are optional pure callbacks run immediately
	// before/after Finalize's own work, per spec.md §4.7.
	PreFinalize  func(*EPEC) error
	PostFinalize func(*EPEC) error

	deadline   time.Time
	playerPure []bool
}

// Finalize validates data, computes LeaderLocations, and pads each
// player's lower-level MP_Param with dummy parameters so its parameter
// vector is exactly the joint primal y with a zero gap at its own slice
// (position = LeaderLocations[i]). Idempotent: a second call is a no-op.
func (e *EPEC) Finalize() error {
	if e.Finalized {
		return nil
	}
	if len(e.Players) == 0 {
		return newError(InvalidData, "finalize requires at least one player")
	}
	for i, p := range e.Players {
		if p.LowerLevel == nil {
			return newError(InvalidData, "player %d has no LowerLevel MP_Param", i)
		}
		if p.PolyLCPData == nil {
			return newError(InvalidData, "player %d has no PolyLCPData", i)
		}
	}
	if e.PreFinalize != nil {
		if err := e.PreFinalize(e); err != nil {
			return err
		}
	}

	e.LeaderLocations = make([]int, len(e.Players))
	numVars := 0
	for i, p := range e.Players {
		e.LeaderLocations[i] = numVars
		numVars += p.LowerLevel.Ny
	}
	e.NumVariables = numVars

	for i, p := range e.Players {
		ny := p.LowerLevel.Ny
		if err := p.LowerLevel.AddDummy(ny, 0, e.LeaderLocations[i]); err != nil {
			return wrapError(InvalidData, err, "padding player %d's lower level to the joint parameter width", i)
		}
		if p.QPParamData == nil {
			p.QPParamData = &paramopt.MP_Param{}
		}
	}

	if e.MC != nil {
		_, cols := e.MC.Dims()
		if cols != e.NumVariables {
			return newError(InvalidData, "market-clearing matrix has %d columns, want %d", cols, e.NumVariables)
		}
		rows, _ := e.MC.Dims()
		if rows != len(e.MCRHS) {
			return newError(InvalidData, "market-clearing RHS has length %d, want %d rows", len(e.MCRHS), rows)
		}
	}

	e.SolutionX = make([]float64, e.NumVariables)
	e.Finalized = true

	if e.PostFinalize != nil {
		return e.PostFinalize(e)
	}
	return nil
}

// BuildResponseModel returns the MIP/MIQP solving player i's best response
// to x^{-i}, grounded on spec.md §4.7's respond(i, x).
func (e *EPEC) BuildResponseModel(i int, x []float64) solver.LPModel {
	p := e.Players[i]
	xMinusI := e.XMinusI(x, i)
	return p.PolyLCPData.MPECasMIQP(p.LeaderObjective.Q, p.LeaderObjective.C, p.LeaderObjective.Cvec, xMinusI, e.Config.BoundPrimals)
}

// RespondSol solves player i's best response and returns its objective
// value and decision vector, grounded on spec.md §4.7's respondSol. If the
// model is unbounded, it takes the improving direction from the Ray the
// unbounded solve itself reports (copied into a vector sized to the
// player's PolyLCP.K before use); it does not re-solve with a zero
// objective, and a missing or all-zero Ray is reported as unbounded. It
// then walks along the ray from prevDev, doubling the step, until the
// leader objective improves by more than DeviationTolerance over its value
// at prevDev, giving up after maxRayWalkIterations steps.
func (e *EPEC) RespondSol(i int, x []float64, prevDev []float64) (float64, []float64, bool, error) {
	p := e.Players[i]
	model := e.BuildResponseModel(i, x)
	sol := e.SolverBackend.Solve(model, solver.Options{TimeLimit: e.TimeRemaining(), Threads: e.Config.Threads})

	switch sol.Status {
	case solver.StatusOptimal:
		z, _, ok := p.PolyLCPData.ExtractSols(sol)
		if !ok {
			return 0, nil, false, newError(Assertion, "optimal status but extraction failed for player %d", i)
		}
		return sol.Objective, z, false, nil

	case solver.StatusUnbounded:
		k := p.PolyLCPData.K
		direction := make([]float64, k)
		if sol.Ray != nil {
			copy(direction, sol.Ray)
		}
		if allZero(direction) {
			return 0, nil, true, nil
		}

		xMinusI := e.XMinusI(x, i)
		walked := make([]float64, k)
		copy(walked, prevDev)
		base := e.leaderObjectiveValue(i, walked, xMinusI)

		step := 1.0
		for iter := 0; iter < maxRayWalkIterations; iter++ {
			candidate := addScaled(walked, direction, step)
			val := e.leaderObjectiveValue(i, candidate, xMinusI)
			if val < base-e.Config.DeviationTolerance {
				return val, candidate, false, nil
			}
			step *= 2
		}
		return 0, nil, true, nil

	default:
		return 0, nil, false, wrapError(SolverError, sol.Err, "best response solve for player %d returned %v", i, sol.Status)
	}
}

func (e *EPEC) leaderObjectiveValue(i int, y []float64, xMinusI []float64) float64 {
	obj := e.Players[i].LeaderObjective
	var val float64
	if obj.Q != nil {
		rows, _ := obj.Q.Dims()
		for r := 0; r < rows; r++ {
			row := obj.Q.Row(r)
			var qy float64
			for c, v := range row {
				qy += v * y[c]
			}
			val += 0.5 * qy * y[r]
		}
	}
	linear := make([]float64, len(y))
	copy(linear, obj.Cvec)
	if obj.C != nil {
		rows, _ := obj.C.Dims()
		for r := 0; r < rows && r < len(linear); r++ {
			row := obj.C.Row(r)
			var cx float64
			for c, v := range row {
				if c < len(xMinusI) {
					cx += v * xMinusI[c]
				}
			}
			linear[r] += cx
		}
	}
	for r, c := range linear {
		val += c * y[r]
	}
	return val
}

func allZero(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

func addScaled(base, dir []float64, step float64) []float64 {
	out := make([]float64, len(base))
	for i := range base {
		out[i] = base[i] + step*dir[i]
	}
	return out
}

// FindNashEq runs the selected algorithm to one of its terminal states.
// Only AlgorithmOuterApproximation is implemented; this spec's sibling
// strategies (Full Enumeration, Inner Approximation, Combinatorial PNE)
// are out of scope (spec.md §1).
func (e *EPEC) FindNashEq(algo Algorithm) error {
	if !e.Finalized {
		if err := e.Finalize(); err != nil {
			return err
		}
	}
	if algo != AlgorithmOuterApproximation {
		return newError(Assertion, "algorithm %d is not implemented by this module; only AlgorithmOuterApproximation is", algo)
	}

	start := time.Now()
	if e.Config.TimeLimit >= 0 {
		e.deadline = start.Add(time.Duration(e.Config.TimeLimit * float64(time.Second)))
	} else {
		e.deadline = time.Time{}
	}

	engine := outerapprox.NewEngine(e, e.Config.DeviationTolerance)
	engine.Logger = e.logger()
	e.logger().Info("epec: finding Nash equilibrium", "players", len(e.Players))
	status, solveErr := engine.Solve()

	numCons, numNonZero := e.modelSizeCounters()
	e.Stats = Stats{
		Status:         convertStatus(status),
		WallClock:      time.Since(start).Seconds(),
		Iterations:     engine.Stats.Iterations,
		NumericalIssue: engine.Stats.NumericalIssue,
		NumVariables:   e.NumVariables,
		NumConstraints: numCons,
		NumNonZero:     numNonZero,
	}
	e.logger().Info("epec: finished", "status", e.Stats.Status.String(), "wallClock", e.Stats.WallClock)

	e.playerPure = make([]bool, len(e.Players))
	for i, tree := range engine.Trees {
		e.playerPure[i] = tree.Pure
	}

	if status == outerapprox.NashEqFound {
		e.NashEquilibrium = true
		copy(e.SolutionX, engine.SolutionX)
		return nil
	}
	if status == outerapprox.Numerical {
		return wrapError(Numeric, solveErr, "master LCP solve failed numerically")
	}
	return solveErr
}

func convertStatus(s outerapprox.Status) Status {
	switch s {
	case outerapprox.NashEqFound:
		return StatusNashEqFound
	case outerapprox.NashEqNotFound:
		return StatusNashEqNotFound
	case outerapprox.TimeLimit:
		return StatusTimeLimit
	case outerapprox.Numerical:
		return StatusNumerical
	default:
		return StatusUninitialized
	}
}

// GetStatistics returns the statistics of the most recent FindNashEq call.
func (e *EPEC) GetStatistics() Stats { return e.Stats }

// IsSolved reports whether the most recent FindNashEq call found an
// equilibrium.
func (e *EPEC) IsSolved() bool { return e.NashEquilibrium }

// IsPureStrategy reports whether player i's equilibrium strategy is
// supported by a single vertex (pure, in the sense of spec.md's
// GLOSSARY).
func (e *EPEC) IsPureStrategy(i int) bool {
	if i < 0 || i >= len(e.playerPure) {
		return false
	}
	return e.playerPure[i]
}

// GetValLeadLead returns leader i's payoff contribution from the bilinear
// interaction between its own objective and leader j's equilibrium
// strategy: (C_i restricted to j's column block) . y_j, dotted into y_i.
// For i == j this reduces to the pure quadratic self-term 1/2 y_i^T Q_i y_i.
func (e *EPEC) GetValLeadLead(i, j int) (float64, error) {
	if err := e.checkSolved(); err != nil {
		return 0, err
	}
	if i < 0 || i >= len(e.Players) || j < 0 || j >= len(e.Players) {
		return 0, newError(OutOfRange, "player index out of range (%d, %d)", i, j)
	}
	p := e.Players[i]
	yi := e.XOfI(e.SolutionX, i)
	if i == j {
		if p.LeaderObjective.Q == nil {
			return 0, nil
		}
		var val float64
		rows, _ := p.LeaderObjective.Q.Dims()
		for r := 0; r < rows; r++ {
			row := p.LeaderObjective.Q.Row(r)
			var qy float64
			for c, v := range row {
				qy += v * yi[c]
			}
			val += 0.5 * qy * yi[r]
		}
		return val, nil
	}
	if p.LeaderObjective.C == nil {
		return 0, nil
	}
	yj := e.XOfI(e.SolutionX, j)
	jBase := e.compactOffset(i, j)
	var val float64
	rows, _ := p.LeaderObjective.C.Dims()
	for r := 0; r < rows && r < len(yi); r++ {
		row := p.LeaderObjective.C.Row(r)
		var cy float64
		for c := range yj {
			if jBase+c < len(row) {
				cy += row[jBase+c] * yj[c]
			}
		}
		val += cy * yi[r]
	}
	return val, nil
}

// compactOffset returns where player j's decision slice lands within the
// compact XMinusI(x, i) vector LeaderObjective.C's columns are indexed
// against (the joint primal with player i's own slice removed, not just
// zeroed).
func (e *EPEC) compactOffset(i, j int) int {
	offset := e.LeaderLocations[j]
	if i < j {
		offset -= e.Players[i].LowerLevel.Ny
	}
	return offset
}

// GetValLeadFoll mirrors GetValLeadLead but, when i == j, adds the linear
// term c_i . y_i once, giving the total leader payoff rather than only the
// quadratic self-term.
func (e *EPEC) GetValLeadFoll(i, j int) (float64, error) {
	val, err := e.GetValLeadLead(i, j)
	if err != nil || i != j {
		return val, err
	}
	p := e.Players[i]
	yi := e.XOfI(e.SolutionX, i)
	for r, c := range p.LeaderObjective.Cvec {
		if r < len(yi) {
			val += c * yi[r]
		}
	}
	return val, nil
}

// modelSizeCounters sums constraint rows and nonzero entries across every
// player's lower-level MP_Param plus the market-clearing rows, for Stats.
func (e *EPEC) modelSizeCounters() (numConstraints, numNonZero int) {
	for _, p := range e.Players {
		m := p.LowerLevel
		if m == nil {
			continue
		}
		numConstraints += m.Ncons
		numNonZero += sparseNNZ(m.Q) + sparseNNZ(m.C) + sparseNNZ(m.A) + sparseNNZ(m.B)
	}
	if e.MC != nil {
		rows, _ := e.MC.Dims()
		numConstraints += rows
		numNonZero += sparseNNZ(e.MC)
	}
	return
}

func sparseNNZ(s *numeric.Sparse) int {
	if s == nil {
		return 0
	}
	return s.NNZ()
}

// logger returns Config.Logger, defaulting to slog.Default() when unset.
func (e *EPEC) logger() *slog.Logger {
	if e.Config.Logger != nil {
		return e.Config.Logger
	}
	return slog.Default()
}

func (e *EPEC) checkSolved() error {
	if !e.NashEquilibrium {
		return newError(InvalidQuery, "no equilibrium available: FindNashEq has not found one")
	}
	return nil
}

// --- outerapprox.Host and outerapprox.Player adapters ---

func (e *EPEC) NumPlayers() int         { return len(e.Players) }
func (e *EPEC) Backend() solver.Backend { return e.SolverBackend }
func (e *EPEC) PrimalLoc(i int) int     { return e.LeaderLocations[i] }

func (e *EPEC) Player(i int) outerapprox.Player { return playerAdapter{e.Players[i]} }

// Respond adapts RespondSol to outerapprox.Host's narrower signature (no
// deviation memory across calls); each call starts its ray walk fresh.
func (e *EPEC) Respond(i int, x []float64) (float64, []float64, bool, error) {
	return e.RespondSol(i, x, nil)
}

func (e *EPEC) XOfI(x []float64, i int) []float64 {
	base := e.LeaderLocations[i]
	ny := e.Players[i].LowerLevel.Ny
	return append([]float64(nil), x[base:base+ny]...)
}

func (e *EPEC) XMinusI(x []float64, i int) []float64 {
	base := e.LeaderLocations[i]
	ny := e.Players[i].LowerLevel.Ny
	out := make([]float64, 0, len(x)-ny)
	out = append(out, x[:base]...)
	out = append(out, x[base+ny:]...)
	return out
}

func (e *EPEC) Assemble() (*nash.NashGame, error) {
	qps := make([]*paramopt.MP_Param, len(e.Players))
	for i, p := range e.Players {
		qps[i] = p.QPParamData
	}
	return nash.New(qps, e.MC, e.MCRHS)
}

func (e *EPEC) TimeRemaining() float64 {
	if e.Config.TimeLimit < 0 || e.deadline.IsZero() {
		return -1
	}
	// Clamp at zero: a negative value means "no limit" to outerapprox.Host.
	if remaining := time.Until(e.deadline).Seconds(); remaining > 0 {
		return remaining
	}
	return 0
}

type playerAdapter struct{ data *PlayerData }

func (a playerAdapter) PolyLCP() *polylcp.PolyLCP       { return a.data.PolyLCPData }
func (a playerAdapter) QPParam() *paramopt.MP_Param     { return a.data.QPParamData }
func (a playerAdapter) Objective() paramopt.QPObjective { return a.data.LeaderObjective }
