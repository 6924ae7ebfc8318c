package outerapprox

import (
	"fmt"
	"math"

	"github.com/ds4opt/epec-oa/solver"
)

// SeparationOracle determines whether candidate lies in conv(player i's
// true feasible polyhedra) or exhibits a separating hyperplane, grounded
// verbatim on Algorithms::EPEC::OuterApproximation::separationOracle. It
// iterates at most e.OracleBudget times:
//
//  1. solve the dual membership LP over the tree's known vertices/rays;
//     if its optimum is within tolerance, candidate is inside (true).
//  2. otherwise maximize the separating direction over player i's true
//     best-response polytope via PolyLCP.MPECasMILP; a maximum strictly
//     below the direction evaluated at candidate (beyond tolerance) yields
//     the cut dir . z <= maximum (false, done); otherwise the maximizer
//     becomes a new vertex
//     (re-loop); an unbounded maximizer becomes a new ray (re-loop).
//
// jointX is the full joint solution the best-response maximization is
// evaluated against (so xMinusI can be sliced from it if needed by a
// richer Host; this engine's maximization uses only the direction).
func (e *Engine) SeparationOracle(i int, candidate []float64, jointX []float64) (bool, error) {
	tree := e.Trees[i]
	p := e.Host.Player(i)
	backend := e.Host.Backend()

	for iter := 0; iter < e.OracleBudget; iter++ {
		inside, support, dir, err := membershipLP(tree.V, tree.R, candidate, backend, e.Tolerance)
		if err != nil {
			return false, err
		}
		if inside {
			tree.Feasible = true
			if support == 1 {
				tree.Pure = true
			}
			return true, nil
		}

		val, ximax, unbounded, ray, err := e.maximizeOverBestResponse(i, dir)
		if err != nil {
			return false, err
		}
		if unbounded {
			tree.AddRay(ray, e.Tolerance)
			continue
		}

		target := dot(dir, candidate)
		if val < target-e.Tolerance {
			lcp := p.PolyLCP()
			lhs := append([]float64(nil), dir...)
			if lcp.ContainsCut(lhs, val) {
				return false, nil
			}
			if err := lcp.AddCustomCuts([][]float64{lhs}, []float64{val}); err != nil {
				return false, err
			}
			return false, nil
		}
		tree.AddVertex(ximax, e.Tolerance)
	}
	return false, nil
}

// maximizeOverBestResponse solves max dir . z over player i's full
// complementarity-constrained feasible set (not the hull relaxation), by
// minimizing -dir . z through PolyLCP.MPECasMILP.
func (e *Engine) maximizeOverBestResponse(i int, dir []float64) (val float64, ximax []float64, unbounded bool, ray []float64, err error) {
	p := e.Host.Player(i)
	lcp := p.PolyLCP()

	c := make([]float64, len(dir))
	for j, d := range dir {
		c[j] = -d
	}
	model := lcp.MPECasMILP(nil, c, nil)
	sol := e.Host.Backend().Solve(model, solver.Options{})

	switch sol.Status {
	case solver.StatusOptimal:
		z, _, ok := lcp.ExtractSols(sol)
		if !ok {
			return 0, nil, false, nil, fmt.Errorf("outerapprox: best-response extraction failed for player %d", i)
		}
		return -sol.Objective, z, false, nil, nil
	case solver.StatusUnbounded:
		return 0, nil, true, sol.Ray, nil
	default:
		return 0, nil, false, nil, fmt.Errorf("outerapprox: best-response maximization over player %d returned %v", i, sol.Status)
	}
}

// membershipLP solves the normalized dual membership LP: maximize
// y.candidate - t subject to y.v_k - t <= 0 for every known vertex v_k,
// y.r_j <= 0 for every known ray r_j, and -1 <= y_l <= 1 (normalization,
// since y and t are otherwise free and homogeneous in scale). An optimum
// within tol of zero certifies candidate in conv(V)+cone(R); support is the
// count of vertices whose constraint binds at the optimum (used to flag a
// pure-strategy equilibrium when exactly one vertex supports it).
func membershipLP(V, R [][]float64, candidate []float64, backend solver.Backend, tol float64) (inside bool, support int, dir []float64, err error) {
	n := len(candidate)
	if len(V) == 0 {
		return false, 0, append([]float64(nil), candidate...), nil
	}
	nVar := n + 1 // y (n), t (1)

	c := make([]float64, nVar)
	for j := 0; j < n; j++ {
		c[j] = -candidate[j]
	}
	c[n] = 1

	var gRows [][]float64
	var h []float64
	for _, v := range V {
		row := make([]float64, nVar)
		copy(row, v)
		row[n] = -1
		gRows = append(gRows, row)
		h = append(h, 0)
	}
	for _, r := range R {
		row := make([]float64, nVar)
		copy(row, r)
		gRows = append(gRows, row)
		h = append(h, 0)
	}
	for j := 0; j < n; j++ {
		row := make([]float64, nVar)
		row[j] = 1
		gRows = append(gRows, row)
		h = append(h, 1)

		row2 := make([]float64, nVar)
		row2[j] = -1
		gRows = append(gRows, row2)
		h = append(h, 1)
	}

	free := make([]bool, nVar)
	for j := range free {
		free[j] = true
	}

	model := solver.LPModel{C: c, G: rowsToDenseLocal(gRows, nVar), H: h, Free: free}
	sol := backend.Solve(model, solver.Options{})
	if sol.Status != solver.StatusOptimal {
		return false, 0, nil, fmt.Errorf("outerapprox: membership LP returned %v", sol.Status)
	}

	obj := -sol.Objective // undo the minimize(-y.candidate+t) flip
	y := sol.X[:n]
	t := sol.X[n]
	if obj <= tol {
		count := 0
		for _, v := range V {
			if math.Abs(dot(y, v)-t) <= tol {
				count++
			}
		}
		return true, count, nil, nil
	}
	return false, 0, y, nil
}
