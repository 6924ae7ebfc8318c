// Package nash stacks every player's QP KKT conditions, plus a set of
// market-clearing inequalities, into a single LCP whose solutions are
// stationary points of every player simultaneously: a Nash equilibrium of
// the convex approximation each player's PolyLCP currently offers.
package nash

import (
	"fmt"

	"github.com/ds4opt/epec-oa/numeric"
	"github.com/ds4opt/epec-oa/paramopt"
	"github.com/ds4opt/epec-oa/polylcp"
)

// NashGame stacks N players' MP_Param into one master complementarity
// system, grounded on Game::NashGame's constructor: each player's own
// decision block y_i sits at PrimalLoc[i] in the joint primal, and every
// player's MP_Param is expected to carry the full joint y as its parameter
// vector x (own slice zero by convention, set by EPEC.Finalize's dummy
// padding), so stationarity rows can reference other players' variables
// directly through the player's own C matrix.
type NashGame struct {
	Players []*paramopt.MP_Param

	// MC, MCRHS encode the market-clearing rows MC*y <= MCRHS over the
	// joint primal y (NumVars columns).
	MC    *numeric.Sparse
	MCRHS []float64

	PrimalLoc []int
	NumVars   int
}

// New validates that every player's parameter width matches the joint
// primal (NumVars) and builds the PrimalLoc offset table.
func New(players []*paramopt.MP_Param, mc *numeric.Sparse, mcrhs []float64) (*NashGame, error) {
	if len(players) == 0 {
		return nil, fmt.Errorf("nash: NashGame requires at least one player")
	}

	loc := make([]int, len(players))
	numVars := 0
	for i, p := range players {
		loc[i] = numVars
		numVars += p.Ny
	}
	for i, p := range players {
		if p.Nx != numVars {
			return nil, fmt.Errorf("nash: player %d has Nx=%d, want %d (joint primal width); call EPEC.Finalize first", i, p.Nx, numVars)
		}
	}
	if mc != nil {
		_, cols := mc.Dims()
		if cols != numVars {
			return nil, fmt.Errorf("nash: market-clearing matrix has %d columns, want %d", cols, numVars)
		}
		rows, _ := mc.Dims()
		if rows != len(mcrhs) {
			return nil, fmt.Errorf("nash: market-clearing RHS has length %d, want %d", len(mcrhs), rows)
		}
	}

	return &NashGame{Players: players, MC: mc, MCRHS: mcrhs, PrimalLoc: loc, NumVars: numVars}, nil
}

// GetPrimalLoc returns the offset of player i's y-block in the stacked
// primal, grounded on Game::NashGame::getPrimalLoc.
func (g *NashGame) GetPrimalLoc(i int) int { return g.PrimalLoc[i] }

// ComputeQPObjectiveValues evaluates every player's objective at the joint
// point x (a length-NumVars vector), grounded on
// Game::NashGame::computeQPObjectiveValues. forPlayers is accepted for
// parity with the source's signature (which also supports evaluating
// follower-only objectives); this module only ever has player objectives,
// so it is otherwise unused.
func (g *NashGame) ComputeQPObjectiveValues(x []float64, forPlayers bool) []float64 {
	payoffs := make([]float64, len(g.Players))
	for i, p := range g.Players {
		yi := x[g.PrimalLoc[i] : g.PrimalLoc[i]+p.Ny]
		var obj float64
		if p.Q != nil {
			for r := 0; r < p.Ny; r++ {
				row := p.Q.Row(r)
				var qy float64
				for c, v := range row {
					qy += v * yi[c]
				}
				obj += 0.5 * qy * yi[r]
			}
		}
		linear := make([]float64, p.Ny)
		copy(linear, p.c)
		if p.C != nil {
			for r := 0; r < p.Ny; r++ {
				row := p.C.Row(r)
				var cx float64
				for c, v := range row {
					cx += v * x[c]
				}
				linear[r] += cx
			}
		}
		for r := 0; r < p.Ny; r++ {
			obj += linear[r] * yi[r]
		}
		payoffs[i] = obj
	}
	return payoffs
}

// AssembleLCP builds the master complementarity system M z + q, z >= 0,
// over the stacked decision vector
//
//	z = [y (NumVars), lambda_1 (Ncons_1), ..., lambda_N (Ncons_N), lambda_mc (R)]
//
// where y is the joint primal, lambda_i are player i's constraint
// multipliers, and lambda_mc is the market-clearing multiplier. Rows:
//
//   - y-block (stationarity): Q_i y_i + C_i x + c_i + B_i^T lambda_i +
//     MC_i^T lambda_mc, complementary to y_i >= 0.
//   - lambda_i-block (primal feasibility): b_i - A_i x_i - B_i y_i,
//     complementary to lambda_i >= 0.
//   - lambda_mc-block: MCRHS - MC*y, complementary to lambda_mc >= 0.
//
// The resulting system has the same (M, q, K) shape as a single-player
// PolyLCP, so it is returned wrapped in one: C4's LCPasMIP/MPECasMIQP
// machinery solves it unmodified.
func (g *NashGame) AssembleLCP() (*polylcp.PolyLCP, error) {
	consOffsets := make([]int, len(g.Players))
	totalCons := 0
	for i, p := range g.Players {
		consOffsets[i] = totalCons
		totalCons += p.Ncons
	}
	numMC := 0
	if g.MC != nil {
		numMC, _ = g.MC.Dims()
	}

	K := g.NumVars + totalCons + numMC
	lambdaStart := g.NumVars
	mcStart := g.NumVars + totalCons

	M := numeric.NewSparse(K, K)
	q := make([]float64, K)

	// y-block rows.
	for i, p := range g.Players {
		base := g.PrimalLoc[i]
		if p.Q != nil {
			for r := 0; r < p.Ny; r++ {
				for c, v := range p.Q.Row(r) {
					if v != 0 {
						M.Set(base+r, base+c, v)
					}
				}
			}
		}
		if p.C != nil {
			for r := 0; r < p.Ny; r++ {
				for c, v := range p.C.Row(r) {
					if v != 0 {
						M.Set(base+r, c, M.At(base+r, c)+v)
					}
				}
			}
		}
		for r := 0; r < p.Ny; r++ {
			q[base+r] += p.c[r]
		}
		if p.B != nil {
			lamBase := lambdaStart + consOffsets[i]
			for r := 0; r < p.Ncons; r++ {
				for c, v := range p.B.Row(r) {
					if v != 0 {
						// +B_i^T: column c of B_i's row r contributes to y-row c.
						M.Set(base+c, lamBase+r, M.At(base+c, lamBase+r)+v)
					}
				}
			}
		}
	}
	if g.MC != nil {
		for r := 0; r < numMC; r++ {
			for c, v := range g.MC.Row(r) {
				if v != 0 {
					// MC^T contributes to y-row c, column mcStart+r.
					M.Set(c, mcStart+r, M.At(c, mcStart+r)+v)
				}
			}
		}
	}

	// lambda_i-block rows: b_i - A_i x_i - B_i y_i.
	for i, p := range g.Players {
		lamBase := lambdaStart + consOffsets[i]
		base := g.PrimalLoc[i]
		for r := 0; r < p.Ncons; r++ {
			q[lamBase+r] = p.b[r]
			if p.A != nil {
				for c, v := range p.A.Row(r) {
					if v != 0 {
						M.Set(lamBase+r, c, M.At(lamBase+r, c)-v)
					}
				}
			}
			if p.B != nil {
				for c, v := range p.B.Row(r) {
					if v != 0 {
						M.Set(lamBase+r, base+c, M.At(lamBase+r, base+c)-v)
					}
				}
			}
		}
	}

	// lambda_mc-block rows: MCRHS - MC*y.
	if g.MC != nil {
		for r := 0; r < numMC; r++ {
			q[mcStart+r] = g.MCRHS[r]
			for c, v := range g.MC.Row(r) {
				if v != 0 {
					M.Set(mcStart+r, c, M.At(mcStart+r, c)-v)
				}
			}
		}
	}

	return polylcp.New(M, q), nil
}
