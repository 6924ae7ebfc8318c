// Package numeric implements the sparse/dense matrix primitives, tolerance
// comparisons, and the complementarity encoding codec shared by every other
// package in this module.
package numeric

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// DefaultTolerance is used by every comparison in this package unless the
// caller supplies its own.
const DefaultTolerance = 5.1e-4

// triplet is one (row, col, value) entry of a Sparse matrix.
type triplet struct {
	row, col int
	val      float64
}

// Sparse is a row/column/value triplet matrix, mirroring the source's
// arma::sp_mat: values within a caller-supplied tolerance of zero are
// treated as absent on construction and append.
type Sparse struct {
	rows, cols int
	entries    []triplet
}

// NewSparse allocates an empty rows x cols sparse matrix.
func NewSparse(rows, cols int) *Sparse {
	if rows < 0 || cols < 0 {
		panic("numeric: negative dimension")
	}
	return &Sparse{rows: rows, cols: cols}
}

// NewSparseFromTriplets builds a Sparse from batch (row, col, value)
// triplets in O(nnz), as required by the convex-hull builder (C3).
// Entries whose |value| <= tol are dropped.
func NewSparseFromTriplets(rows, cols int, rs, cs []int, vs []float64, tol float64) (*Sparse, error) {
	if len(rs) != len(cs) || len(rs) != len(vs) {
		return nil, fmt.Errorf("numeric: mismatched triplet slice lengths (%d, %d, %d)", len(rs), len(cs), len(vs))
	}
	s := NewSparse(rows, cols)
	for i := range rs {
		if rs[i] < 0 || rs[i] >= rows || cs[i] < 0 || cs[i] >= cols {
			return nil, fmt.Errorf("numeric: triplet (%d,%d) out of bounds for %dx%d matrix", rs[i], cs[i], rows, cols)
		}
		if abs(vs[i]) > tol {
			s.entries = append(s.entries, triplet{rs[i], cs[i], vs[i]})
		}
	}
	return s, nil
}

// Dims returns the matrix dimensions.
func (s *Sparse) Dims() (int, int) { return s.rows, s.cols }

// Set overwrites the value at (r, c). A subsequent Set to exactly zero
// removes the entry outright to keep the triplet list minimal.
func (s *Sparse) Set(r, c int, v float64) {
	if r < 0 || r >= s.rows || c < 0 || c >= s.cols {
		panic(fmt.Sprintf("numeric: Set(%d,%d) out of bounds for %dx%d matrix", r, c, s.rows, s.cols))
	}
	for i := range s.entries {
		if s.entries[i].row == r && s.entries[i].col == c {
			if v == 0 {
				s.entries = append(s.entries[:i], s.entries[i+1:]...)
			} else {
				s.entries[i].val = v
			}
			return
		}
	}
	if v != 0 {
		s.entries = append(s.entries, triplet{r, c, v})
	}
}

// At returns the value at (r, c), zero if absent.
func (s *Sparse) At(r, c int) float64 {
	if r < 0 || r >= s.rows || c < 0 || c >= s.cols {
		panic(fmt.Sprintf("numeric: At(%d,%d) out of bounds for %dx%d matrix", r, c, s.rows, s.cols))
	}
	for _, t := range s.entries {
		if t.row == r && t.col == c {
			return t.val
		}
	}
	return 0
}

// Row returns a dense copy of row r, length s.cols.
func (s *Sparse) Row(r int) []float64 {
	out := make([]float64, s.cols)
	for _, t := range s.entries {
		if t.row == r {
			out[t.col] = t.val
		}
	}
	return out
}

// Dense converts the Sparse matrix into a *mat.Dense for handoff to the LP
// and MIP backends, which operate on dense gonum matrices.
func (s *Sparse) Dense() *mat.Dense {
	d := mat.NewDense(s.rows, s.cols, nil)
	for _, t := range s.entries {
		d.Set(t.row, t.col, t.val)
	}
	return d
}

// NNZ reports the number of stored (non-dropped) entries.
func (s *Sparse) NNZ() int { return len(s.entries) }

// Resize grows or shrinks the matrix in place, following the source's
// Utils::resizePatch: growing preserves existing entries and zero-fills new
// cells, shrinking keeps the leading nR x nC submatrix. Growing one
// dimension while shrinking the other is rejected, matching §4.1's
// OutOfRange contract.
func (s *Sparse) Resize(nR, nC int) error {
	growR, growC := nR >= s.rows, nC >= s.cols
	if growR != growC && nR != s.rows && nC != s.cols {
		return fmt.Errorf("numeric: Resize(%d,%d) on %dx%d: %w", nR, nC, s.rows, s.cols, ErrOutOfRange)
	}
	kept := make([]triplet, 0, len(s.entries))
	for _, t := range s.entries {
		if t.row < nR && t.col < nC {
			kept = append(kept, t)
		}
	}
	s.rows, s.cols, s.entries = nR, nC, kept
	return nil
}

// ErrOutOfRange is returned by Resize when the requested shape grows one
// dimension and shrinks the other.
var ErrOutOfRange = fmt.Errorf("numeric: inconsistent resize direction")

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
