// Package polylcp represents a linear complementarity problem find z >= 0,
// w = Mz+q >= 0, z^T w = 0 as a union of polyhedra indexed by a
// complementarity encoding, and builds the MIP/MIQP linearizations the
// outer-approximation engine poses against an external solver.
package polylcp

import (
	"fmt"
	"math"

	"github.com/ds4opt/epec-oa/numeric"
	"github.com/ds4opt/epec-oa/solver"
)

const (
	// DefaultBigM is the big-M constant used to linearize each
	// complementarity pair when no override is given.
	DefaultBigM = 1e5
)

// PolyLCP holds one player's complementarity system plus everything the
// outer-approximation loop has learned about it so far: which encodings
// have been explored, and the pool of custom cuts (added by the
// feasibility check and separation oracle) that every subsequent
// relaxation must respect.
type PolyLCP struct {
	M *numeric.Sparse // K x K
	Q []float64        // length K
	K int

	BigM      float64
	Tolerance float64

	ActiveEnc []numeric.Encoding

	Acut *numeric.Sparse // cut pool, in z-space
	Bcut []float64

	// FeasOuterApp records the outcome of the most recent OuterApproximate
	// call.
	FeasOuterApp bool

	// last outer-approximation polyhedron, stored for makeQP.
	lastA *numeric.Sparse
	lastB []float64
}

// New constructs a PolyLCP over the system w = Mz+q, with the module's
// default tolerance and big-M.
func New(M *numeric.Sparse, q []float64) *PolyLCP {
	rows, _ := M.Dims()
	return &PolyLCP{
		M:         M,
		Q:         q,
		K:         rows,
		BigM:      DefaultBigM,
		Tolerance: numeric.DefaultTolerance,
	}
}

// WFromZ recovers the complementary slack w = Mz+q for a given decision
// vector z.
func (p *PolyLCP) WFromZ(z []float64) []float64 {
	w := make([]float64, p.K)
	for i := 0; i < p.K; i++ {
		row := p.M.Row(i)
		var sum float64
		for j, v := range row {
			sum += v * z[j]
		}
		w[i] = sum + p.Q[i]
	}
	return w
}

// SolEncode derives the complementarity encoding a decision vector
// realizes: +1 where z_i is pinned to (near) zero and w_i carries the
// active side, -1 where z_i is the active side, 0 where both legs are
// within tolerance of zero (a degenerate pair).
func (p *PolyLCP) SolEncode(z []float64) numeric.Encoding {
	w := p.WFromZ(z)
	enc := make(numeric.Encoding, p.K)
	for i := 0; i < p.K; i++ {
		switch {
		case math.Abs(z[i]) <= p.Tolerance && math.Abs(w[i]) <= p.Tolerance:
			enc[i] = 0
		case math.Abs(z[i]) <= p.Tolerance:
			enc[i] = 1
		default:
			enc[i] = -1
		}
	}
	return enc
}

// OuterApproximate builds the relaxation polyhedron in z-space for the
// given encoding: w = Mz+q >= 0 always, z >= 0 always, and z_i = 0
// wherever encoding[i] pins that pair. It probes feasibility with an LP
// and records the result in FeasOuterApp and, on success, as the
// polyhedron makeQP will build the convex hull from.
func (p *PolyLCP) OuterApproximate(encoding numeric.Encoding, recompute bool, backend solver.Backend) (bool, error) {
	if !recompute && p.lastA != nil {
		return p.FeasOuterApp, nil
	}
	if len(encoding) != p.K {
		return false, fmt.Errorf("polylcp: encoding has length %d, want %d", len(encoding), p.K)
	}

	var rows [][]float64
	var rhs []float64

	// w = Mz+q >= 0, i.e. -Mz <= q.
	for i := 0; i < p.K; i++ {
		row := make([]float64, p.K)
		for j, v := range p.M.Row(i) {
			row[j] = -v
		}
		rows = append(rows, row)
		rhs = append(rhs, p.Q[i])
	}

	pinned := encoding.Bits()
	for i, isPinned := range pinned {
		if !isPinned {
			continue
		}
		row := make([]float64, p.K)
		row[i] = 1
		rows = append(rows, row)
		rhs = append(rhs, 0)
	}

	A, b, err := denseToSparse(rows, rhs, p.K)
	if err != nil {
		return false, err
	}

	model := solver.LPModel{
		C: make([]float64, p.K),
		G: A.Dense(),
		H: b,
	}
	sol := backend.Solve(model, solver.Options{})

	p.lastA = A
	p.lastB = b
	p.FeasOuterApp = sol.Status == solver.StatusOptimal

	if p.FeasOuterApp {
		p.ActiveEnc = append(p.ActiveEnc, encoding)
	}

	return p.FeasOuterApp, nil
}

func denseToSparse(rows [][]float64, rhs []float64, k int) (*numeric.Sparse, []float64, error) {
	var locRow, locCol []int
	var val []float64
	for r, row := range rows {
		for c, v := range row {
			if v == 0 {
				continue
			}
			locRow = append(locRow, r)
			locCol = append(locCol, c)
			val = append(val, v)
		}
	}
	A, err := numeric.NewSparseFromTriplets(len(rows), k, locRow, locCol, val, numeric.DefaultTolerance)
	return A, rhs, err
}

// ContainsCut reports whether (lhs, rhs) is already present (within
// tolerance) in the cut pool.
func (p *PolyLCP) ContainsCut(lhs []float64, rhs float64) bool {
	if p.Acut == nil {
		return false
	}
	return numeric.ContainsConstraint(p.Acut.Dense(), p.Bcut, lhs, rhs, p.Tolerance)
}

// AddCustomCuts appends rows to the cut pool without deduplication; callers
// are expected to have already checked ContainsCut.
func (p *PolyLCP) AddCustomCuts(L [][]float64, r []float64) error {
	for i, row := range L {
		if p.Acut == nil {
			p.Acut = numeric.NewSparse(0, p.K)
		}
		rows, _ := p.Acut.Dims()
		if err := p.Acut.Resize(rows+1, p.K); err != nil {
			return err
		}
		for j, v := range row {
			p.Acut.Set(rows, j, v)
		}
		p.Bcut = append(p.Bcut, r[i])
	}
	return nil
}
