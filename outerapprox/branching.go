package outerapprox

import (
	"fmt"

	"github.com/ds4opt/epec-oa/paramopt"
	"github.com/ds4opt/epec-oa/solver"
	priorityqueue "gopkg.in/dnaeon/go-priorityqueue.v1"
)

// InfeasibleBranching returns the complementarity pair most violated by the
// current joint solution: the index maximizing z(j)+w(j) among pairs where
// both sides exceed tolerance (neither side within tolerance of zero) and
// the pair is still unbranched at the incumbent node. Grounded on
// Algorithms::EPEC::OuterApproximation::infeasibleBranching. Returns -1 if
// no such pair exists.
func (e *Engine) InfeasibleBranching(i int) int {
	node := e.Trees[i].Nodes[e.Incumbent[i]]
	p := e.Host.Player(i)
	lcp := p.PolyLCP()

	base := e.Host.PrimalLoc(i)
	z := e.SolutionX[base : base+lcp.K]
	w := lcp.WFromZ(z)

	result := -1
	maxInfeas := 0.0
	for j := 0; j < lcp.K; j++ {
		if z[j] > lcp.Tolerance && w[j] > lcp.Tolerance && node.AllowedBranchings[j] {
			if z[j]+w[j] > maxInfeas {
				maxInfeas = z[j] + w[j]
				result = j
			}
		}
	}
	return result
}

// DeviationBranching returns a complementarity pair that is active in
// player i's true best-response encoding but inactive in the incumbent's
// candidate encoding, grounded on
// Algorithms::EPEC::OuterApproximation::deviationBranching. Returns -1 if
// none qualifies or the best response is unbounded.
func (e *Engine) DeviationBranching(i int) int {
	node := e.Trees[i].Nodes[e.Incumbent[i]]
	p := e.Host.Player(i)
	lcp := p.PolyLCP()

	base := e.Host.PrimalLoc(i)
	z := e.SolutionX[base : base+lcp.K]
	currentEnc := lcp.SolEncode(z)

	_, dev, unbounded, err := e.Host.Respond(i, e.SolutionX)
	if err != nil || unbounded {
		return -1
	}
	devEnc := lcp.SolEncode(dev)

	result := -1
	for j := 0; j < lcp.K; j++ {
		if devEnc[j] > 0 && node.AllowedBranchings[j] && currentEnc[j] == 0 {
			result = j
		}
	}
	return result
}

// HybridBranching tentatively pins each eligible bit, rebuilds the outer
// approximation, and scores the resulting infeasibility against the
// candidate strategy x fixed into the hull QP. It returns the bit with the
// largest violation score, -1 if every bit is already feasible at x, or -2
// if some bit makes the outer approximation itself infeasible (in which
// case every bit at this node is marked permanently denied: the player has
// no feasible continuation from here). Grounded on
// Algorithms::EPEC::OuterApproximation::hybridBranching.
func (e *Engine) HybridBranching(i int) int {
	p := e.Host.Player(i)
	lcp := p.PolyLCP()
	node := e.Trees[i].Nodes[e.Incumbent[i]]
	backend := e.Host.Backend()

	base := e.Host.PrimalLoc(i)
	x := e.SolutionX[base : base+lcp.K]

	// Every eligible bit's violation score is collected into a max-priority
	// queue (highest relaxation slack pops first) rather than tracked with a
	// running best/bestScore pair, so picking the worst offender is a single
	// Get regardless of how many bits tie or how the candidate set grows.
	candidates := priorityqueue.New[int, float64](priorityqueue.MaxHeap)

	for bit := 0; bit < lcp.K; bit++ {
		if !node.AllowedBranchings[bit] {
			continue
		}
		trial := append([]bool(nil), node.Encoding...)
		trial[bit] = true

		feasible, err := lcp.OuterApproximate(boolsToEncoding(trial), true, backend)
		if err != nil {
			return -2
		}
		if !feasible {
			e.Logger.Warn("outerapprox: player has no feasible continuation, denying all bits", "player", i, "node", node.Id)
			for j := 0; j < lcp.K; j++ {
				e.Trees[i].DenyBranchingLocation(node.Id, j)
			}
			return -2
		}

		if err := lcp.MakeQP(p.Objective(), p.QPParam(), backend); err != nil {
			return -2
		}

		infeasible, score, err := feasibilityRelaxScore(p.QPParam(), x, backend)
		if err != nil {
			return -2
		}
		if infeasible {
			candidates.Put(bit, score)
		}
	}
	if candidates.Len() == 0 {
		return -1
	}
	return candidates.Get().Value
}

// GetFirstBranchLocation solves the LCP-as-MIP relaxation (no cuts) and
// picks the eligible pair with the largest max(z, w) value, grounded on
// Algorithms::EPEC::OuterApproximation::getFirstBranchLocation. Returns -1
// if every bit is already branched or the relaxation is infeasible
// (denying every bit at the incumbent node in the latter case).
func (e *Engine) GetFirstBranchLocation(i int) int {
	node := e.Trees[i].Nodes[e.Incumbent[i]]
	if node.CumulativeBranches == e.Trees[i].K {
		return -1
	}
	p := e.Host.Player(i)
	lcp := p.PolyLCP()

	model := lcp.LCPasMIP(true)
	sol := e.Host.Backend().Solve(model, solver.Options{})
	z, w, ok := lcp.ExtractSols(sol)
	if !ok {
		for j := 0; j < lcp.K; j++ {
			e.Trees[i].DenyBranchingLocation(node.Id, j)
		}
		return -1
	}

	maxValZ, maxValW := -1.0, -1.0
	maxPosZ, maxPosW := 0, 0
	for j := 0; j < lcp.K; j++ {
		if !node.AllowedBranchings[j] {
			continue
		}
		if z[j] > maxValZ {
			maxValZ = z[j]
			maxPosZ = j
		}
		if w[j] > maxValW {
			maxValW = w[j]
			maxPosW = j
		}
	}
	if maxValW > maxValZ {
		return maxPosW
	}
	return maxPosZ
}

// feasibilityRelaxScore fixes the leading len(fixed) own-variables of qp to
// the given values with zero objective, grounded on
// OuterApproximation::getFeasQP. If that is feasible, it returns
// (false, 0, nil). Otherwise it solves a feasibility relaxation LP -- one
// nonnegative slack per row, minimizing their sum -- and returns the
// relaxation's optimal value as the violation score, the same measure
// Gurobi's feasRelax(0, ...) produces.
func feasibilityRelaxScore(qp *paramopt.MP_Param, fixed []float64, backend solver.Backend) (infeasible bool, score float64, err error) {
	ny := qp.Ny
	G := denseOrNil(qp.B)
	var h []float64
	if qp.B != nil {
		h = append([]float64(nil), qp.b...)
	}

	var fixRows [][]float64
	var fixH []float64
	for j := 0; j < len(fixed) && j < ny; j++ {
		row := make([]float64, ny)
		row[j] = 1
		fixRows = append(fixRows, row)
		fixH = append(fixH, fixed[j])
		row2 := make([]float64, ny)
		row2[j] = -1
		fixRows = append(fixRows, row2)
		fixH = append(fixH, -fixed[j])
	}

	nBase := 0
	if G != nil {
		nBase, _ = G.Dims()
	}
	allRows := make([][]float64, 0, nBase+len(fixRows))
	allH := make([]float64, 0, nBase+len(fixRows))
	for r := 0; r < nBase; r++ {
		allRows = append(allRows, append([]float64(nil), G.RawRowView(r)...))
		allH = append(allH, h[r])
	}
	allRows = append(allRows, fixRows...)
	allH = append(allH, fixH...)

	probe := solver.LPModel{C: make([]float64, ny), G: rowsToDenseLocal(allRows, ny), H: allH}
	sol := backend.Solve(probe, solver.Options{})
	if sol.Status == solver.StatusOptimal {
		return false, 0, nil
	}
	if sol.Status != solver.StatusInfeasible {
		return false, 0, fmt.Errorf("outerapprox: feasibility probe returned %v", sol.Status)
	}

	nRows := len(allRows)
	nVar := ny + nRows
	relC := make([]float64, nVar)
	for j := ny; j < nVar; j++ {
		relC[j] = 1
	}

	relRows := make([][]float64, nRows)
	for r, row := range allRows {
		full := make([]float64, nVar)
		copy(full, row)
		full[ny+r] = -1 // row - s <= rhs, s >= 0
		relRows[r] = full
	}

	relModel := solver.LPModel{C: relC, G: rowsToDenseLocal(relRows, nVar), H: allH}
	relSol := backend.Solve(relModel, solver.Options{})
	if relSol.Status != solver.StatusOptimal {
		return true, 0, fmt.Errorf("outerapprox: feasibility relaxation returned %v", relSol.Status)
	}
	return true, relSol.Objective, nil
}
