package outerapprox

import (
	"fmt"

	"github.com/ds4opt/epec-oa/nash"
	"github.com/ds4opt/epec-oa/solver"
)

// Solve runs the branch-and-cut loop of spec.md §4.6.1 to one of its
// terminal states. On iteration 1 every player branches via
// GetFirstBranchLocation; thereafter via HybridBranching. Between
// iterations the engine checks Host.TimeRemaining and transitions to
// TimeLimit if it has expired.
func (e *Engine) Solve() (Status, error) {
	e.Stats.Status = Iterating
	branch := true
	e.Logger.Info("outerapprox: starting branch-and-cut", "players", e.Host.NumPlayers())

	for iter := 1; ; iter++ {
		e.Stats.Iterations = iter

		if remaining := e.Host.TimeRemaining(); remaining >= 0 && remaining <= 0 {
			e.Stats.Status = TimeLimit
			e.Logger.Info("outerapprox: time limit reached", "iterations", iter)
			return e.Stats.Status, nil
		}

		candidates := 0
		if branch {
			for i := 0; i < e.Host.NumPlayers(); i++ {
				var pos int
				if iter == 1 {
					pos = e.GetFirstBranchLocation(i)
				} else {
					pos = e.HybridBranching(i)
				}
				if pos == -2 {
					e.Stats.Status = NashEqNotFound
					e.Logger.Info("outerapprox: player has no feasible continuation", "player", i, "iteration", iter)
					return e.Stats.Status, nil
				}
				if pos >= 0 {
					candidates++
					e.Logger.Debug("outerapprox: branching", "player", i, "bit", pos, "iteration", iter)
					e.Incumbent[i] = e.Trees[i].Branch(e.Incumbent[i], pos)
				}
			}
			if candidates == 0 {
				e.Stats.Status = NashEqNotFound
				e.Logger.Info("outerapprox: no branch candidates remain", "iteration", iter)
				return e.Stats.Status, nil
			}
		}

		for i := 0; i < e.Host.NumPlayers(); i++ {
			p := e.Host.Player(i)
			if err := p.PolyLCP().MakeQP(p.Objective(), p.QPParam(), e.Host.Backend()); err != nil {
				return e.Stats.Status, fmt.Errorf("outerapprox: refreshing player %d's hull QP: %w", i, err)
			}
		}

		game, err := e.Host.Assemble()
		if err != nil {
			return e.Stats.Status, err
		}
		lcp, err := game.AssembleLCP()
		if err != nil {
			return e.Stats.Status, err
		}

		model := lcp.LCPasMIP(false)
		sol := e.Host.Backend().Solve(model, solver.Options{TimeLimit: e.timeBudget(candidates)})
		if sol.Status != solver.StatusOptimal {
			branch = true
			continue
		}
		z, _, ok := lcp.ExtractSols(sol)
		if !ok {
			branch = true
			continue
		}
		x := z[:game.NumVars]
		e.SolutionX = x

		feasible, addedCuts, err := e.FeasibilityCheck(x, game)
		if err != nil {
			e.Stats.Status = Numerical
			e.Stats.NumericalIssue = true
			e.Logger.Warn("outerapprox: feasibility check failed numerically", "iteration", iter, "err", err)
			return e.Stats.Status, err
		}
		if feasible {
			e.Stats.Status = NashEqFound
			e.Logger.Info("outerapprox: equilibrium found", "iterations", iter)
			return e.Stats.Status, nil
		}
		e.Stats.AddedCuts = addedCuts
		branch = !addedCuts
	}
}

// timeBudget implements spec.md §5's split: the whole remaining budget
// (minus 2% slack) when only one branch candidate remains this iteration,
// otherwise 20% of it split evenly across the other candidates. A negative
// TimeRemaining (no limit) is passed through unconstrained.
func (e *Engine) timeBudget(candidates int) float64 {
	remaining := e.Host.TimeRemaining()
	if remaining < 0 {
		return -1
	}
	if candidates <= 1 {
		return remaining * 0.98
	}
	return remaining * 0.2 / float64(candidates-1)
}

// FeasibilityCheck implements spec.md §4.6.2: for each player in ascending
// index order, compute the true best response to x and compare it against
// the candidate's approximation payoff. A discrepancy in the "relaxation
// worse than best response" direction injects a value cut and
// short-circuits the pass; an exact payoff match with a mismatched
// strategy hands off to SeparationOracle; any remaining players are not
// inspected once one is found infeasible.
func (e *Engine) FeasibilityCheck(x []float64, game *nash.NashGame) (bool, bool, error) {
	payoffs := game.ComputeQPObjectiveValues(x, true)

	for i := 0; i < e.Host.NumPlayers(); i++ {
		e.Trees[i].ResetFeasibility()

		val, bestResponse, unbounded, err := e.Host.Respond(i, x)
		if err != nil {
			return false, false, err
		}
		if unbounded {
			return false, false, nil
		}

		p := payoffs[i]
		switch {
		case p < val-e.Tolerance:
			return false, false, fmt.Errorf("%w: player %d payoff %.6g below best-response value %.6g", ErrNumeric, i, p, val)
		case p > val+e.Tolerance:
			if err := e.addValueCut(i, val, x); err != nil {
				return false, false, err
			}
			return false, true, nil
		default:
			xOfI := e.Host.XOfI(x, i)
			e.Trees[i].AddVertex(bestResponse, e.Tolerance)

			if sameVector(xOfI, bestResponse, e.Tolerance) {
				e.Trees[i].Feasible = true
				if len(e.Trees[i].V) == 1 {
					e.Trees[i].Pure = true
				}
				continue
			}

			ok, err := e.SeparationOracle(i, xOfI, x)
			if err != nil {
				return false, false, err
			}
			if !ok {
				return false, true, nil
			}
		}
	}
	return true, false, nil
}

// addValueCut injects (C_i.xMinusI + c_i)^T y_i >= val as a linear cut into
// player i's PolyLCP cut pool, negated into <=-form, grounded on spec.md
// §4.6.4.
func (e *Engine) addValueCut(i int, val float64, x []float64) error {
	p := e.Host.Player(i)
	lcp := p.PolyLCP()
	obj := p.Objective()
	xMinusI := e.Host.XMinusI(x, i)

	coeff := make([]float64, lcp.K)
	if obj.C != nil {
		rows, cols := obj.C.Dims()
		for r := 0; r < rows && r < lcp.K; r++ {
			row := obj.C.Row(r)
			var cx float64
			for j := 0; j < cols && j < len(xMinusI); j++ {
				cx += row[j] * xMinusI[j]
			}
			coeff[r] += cx
		}
	}
	for r, c := range obj.Cvec {
		if r < lcp.K {
			coeff[r] += c
		}
	}

	lhs := make([]float64, lcp.K)
	for j, v := range coeff {
		lhs[j] = -v
	}
	rhs := -val

	if lcp.ContainsCut(lhs, rhs) {
		return nil
	}
	return lcp.AddCustomCuts([][]float64{lhs}, []float64{rhs})
}
