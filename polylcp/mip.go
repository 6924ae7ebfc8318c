package polylcp

import (
	"fmt"

	"github.com/ds4opt/epec-oa/mathopt"
	"github.com/ds4opt/epec-oa/numeric"
	"github.com/ds4opt/epec-oa/paramopt"
	"github.com/ds4opt/epec-oa/solver"
	"gonum.org/v1/gonum/mat"
)

// LCPasMIP builds a MIP over variables [z(K), delta(K)] whose feasible
// region is the full (non-relaxed) complementarity system: for each pair i,
// delta_i in {0,1} selects which leg is pinned to zero via a big-M
// linearization (z_i <= M(1-delta_i), w_i <= M*delta_i), alongside the
// unconditional z_i >= 0, w_i >= 0. When relax is false the known cut pool
// is also imposed on the z-block.
func (p *PolyLCP) LCPasMIP(relax bool) solver.LPModel {
	nVar := 2 * p.K // z then delta

	var gRows [][]float64
	var h []float64

	for i := 0; i < p.K; i++ {
		// w_i >= 0: -(Mz)_i <= q_i
		row := make([]float64, nVar)
		for j, v := range p.M.Row(i) {
			row[j] = -v
		}
		gRows = append(gRows, row)
		h = append(h, p.Q[i])

		// z_i <= BigM*(1-delta_i)  =>  z_i + BigM*delta_i <= BigM
		row = make([]float64, nVar)
		row[i] = 1
		row[p.K+i] = p.BigM
		gRows = append(gRows, row)
		h = append(h, p.BigM)

		// w_i <= BigM*delta_i  =>  (Mz)_i - BigM*delta_i <= -q_i
		row = make([]float64, nVar)
		for j, v := range p.M.Row(i) {
			row[j] = v
		}
		row[p.K+i] = -p.BigM
		gRows = append(gRows, row)
		h = append(h, -p.Q[i])
	}

	if !relax && p.Acut != nil {
		cutRows, _ := p.Acut.Dims()
		for r := 0; r < cutRows; r++ {
			row := make([]float64, nVar)
			copy(row, p.Acut.Row(r))
			gRows = append(gRows, row)
			h = append(h, p.Bcut[r])
		}
	}

	G := rowsToDense(gRows, nVar)

	integer := make([]bool, nVar)
	for i := 0; i < p.K; i++ {
		integer[p.K+i] = true
	}

	return solver.LPModel{
		C:       make([]float64, nVar),
		G:       G,
		H:       h,
		Integer: integer,
	}
}

func rowsToDense(rows [][]float64, nVar int) *mat.Dense {
	data := make([]float64, len(rows)*nVar)
	for r, row := range rows {
		copy(data[r*nVar:(r+1)*nVar], row)
	}
	return mat.NewDense(len(rows), nVar, data)
}

// MPECasMIQP layers the quadratic objective 1/2 z^T Q z + (C*xMinusI + c)^T
// z on top of LCPasMIP(false). enforcePositivity adds an explicit z >= 0
// row per variable on top of the solver's own nonnegative-by-default
// bound, for backends where that default cannot be relied upon.
func (p *PolyLCP) MPECasMIQP(Q *numeric.Sparse, C *numeric.Sparse, c []float64, xMinusI []float64, enforcePositivity bool) solver.LPModel {
	model := p.LCPasMIP(false)
	nVar := len(model.C)

	linear := make([]float64, p.K)
	copy(linear, c)
	if C != nil {
		for i := 0; i < p.K; i++ {
			row := C.Row(i)
			for j, xj := range xMinusI {
				linear[i] += row[j] * xj
			}
		}
	}
	copy(model.C, linear)

	if Q != nil && Q.NNZ() > 0 {
		qData := make([]float64, nVar*nVar)
		qDense := mat.NewDense(nVar, nVar, qData)
		rows, cols := Q.Dims()
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				if v := Q.At(i, j); v != 0 {
					qDense.Set(i, j, v)
				}
			}
		}
		model.Q = qDense
	}

	if enforcePositivity {
		extraRows := make([][]float64, p.K)
		extraH := make([]float64, p.K)
		for i := 0; i < p.K; i++ {
			row := make([]float64, nVar)
			row[i] = -1
			extraRows[i] = row
		}
		existing := denseRows(model.G, nVar)
		existing = append(existing, extraRows...)
		model.H = append(model.H, extraH...)
		model.G = rowsToDense(existing, nVar)
	}

	return model
}

// MPECasMILP is the linear-objective specialization of MPECasMIQP (no
// quadratic term).
func (p *PolyLCP) MPECasMILP(C *numeric.Sparse, c []float64, xMinusI []float64) solver.LPModel {
	return p.MPECasMIQP(nil, C, c, xMinusI, false)
}

func denseRows(d *mat.Dense, nVar int) [][]float64 {
	if d == nil {
		return nil
	}
	rows, _ := d.Dims()
	out := make([][]float64, rows)
	for r := 0; r < rows; r++ {
		row := make([]float64, nVar)
		for c := 0; c < nVar; c++ {
			row[c] = d.At(r, c)
		}
		out[r] = row
	}
	return out
}

// ExtractSols reads the decision vector z and derived slack w out of a
// solved LCPasMIP/MPECasMIQP model's solution.
func (p *PolyLCP) ExtractSols(sol solver.Solution) (z, w []float64, ok bool) {
	if sol.Status != solver.StatusOptimal {
		return nil, nil, false
	}
	z = sol.X[:p.K]
	w = p.WFromZ(z)
	return z, w, true
}

// MakeQP rebuilds outQP as the convex hull (via mathopt.BuildHull) of the
// polyhedra recorded in ActiveEnc, layering the player's own QP objective
// on top of the hull's extended variables. The y_i/delta_i columns the
// hull introduces are left as the caller's responsibility to wire as dummy
// parameters of other players' QPs (NashGame does this when assembling the
// master LCP).
func (p *PolyLCP) MakeQP(obj paramopt.QPObjective, outQP *paramopt.MP_Param, backend solver.Backend) error {
	if len(p.ActiveEnc) == 0 {
		return fmt.Errorf("polylcp: no active encodings to build a hull from")
	}

	// OuterApproximate caches only the latest polyhedron, so each encoding is
	// recomputed; ActiveEnc is restored afterwards since recomputing appends.
	active := p.ActiveEnc
	var polys []mathopt.Polyhedron
	for _, enc := range active {
		if _, err := p.OuterApproximate(enc, true, backend); err != nil {
			p.ActiveEnc = active
			return err
		}
		polys = append(polys, mathopt.Polyhedron{A: p.lastA, B: p.lastB})
	}
	p.ActiveEnc = active

	var common mathopt.Polyhedron
	if p.Acut != nil {
		common = mathopt.Polyhedron{A: p.Acut, B: p.Bcut}
	}

	hull, err := mathopt.BuildHull(p.K, polys, common)
	if err != nil {
		return err
	}

	nVar := hull.DeltaStart + hull.NumCopies
	cExt := make([]float64, nVar)
	copy(cExt, obj.Cvec)

	var qExt *numeric.Sparse
	if obj.Q != nil {
		qExt = numeric.NewSparse(nVar, nVar)
		rows, cols := obj.Q.Dims()
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				if v := obj.Q.At(i, j); v != 0 {
					qExt.Set(i, j, v)
				}
			}
		}
	}

	var cMatExt *numeric.Sparse
	if obj.C != nil {
		rows, cols := obj.C.Dims()
		cMatExt = numeric.NewSparse(nVar, cols)
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				if v := obj.C.At(i, j); v != 0 {
					cMatExt.Set(i, j, v)
				}
			}
		}
	}

	return outQP.Set(qExt, cMatExt, nil, hull.A, cExt, hull.B)
}
