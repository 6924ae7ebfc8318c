// Package paramopt implements MP_Param, a parameterized quadratic program:
// a player's own decision variables y respond to an exogenous parameter
// vector x through the objective
//
//	1/2 y^T Q y + (C x + c)^T y
//
// subject to A x + B y <= b, y >= 0.
package paramopt

import (
	"fmt"

	"github.com/ds4opt/epec-oa/numeric"
	"github.com/ds4opt/epec-oa/solver"
)

// QPObjective bundles the objective-defining matrices of an MP_Param. Cvec
// is the linear term c of spec.md §3's (Q, C, c) triple; it is named Cvec
// rather than c so that other packages (polylcp, outerapprox) can read it
// across the package boundary without colliding with the C matrix field.
type QPObjective struct {
	Q    *numeric.Sparse // Ny x Ny, should be symmetric PSD
	C    *numeric.Sparse // Ny x Nx
	Cvec []float64       // length Ny
}

// QPConstraints bundles the constraint-defining matrices of an MP_Param.
type QPConstraints struct {
	A *numeric.Sparse // Ncons x Nx
	B *numeric.Sparse // Ncons x Ny
	b []float64       // length Ncons
}

// MP_Param is a parameterized QP: Nx parameters, Ny own-variables, Ncons
// constraints. The zero value is not ready for use; construct one with Set.
type MP_Param struct {
	Q *numeric.Sparse
	C *numeric.Sparse
	A *numeric.Sparse
	B *numeric.Sparse
	c []float64
	b []float64

	Nx    int
	Ny    int
	Ncons int
}

// Set installs the data of the parameterized program, keeping the caller's
// matrices intact (they are not mutated by subsequent AddDummy calls).
func (m *MP_Param) Set(Q, C, A, B *numeric.Sparse, c, b []float64) error {
	// AddDummy resizes the stored matrices in place, so keep private copies.
	clone := func(s *numeric.Sparse) *numeric.Sparse {
		if s == nil {
			return nil
		}
		_, cols := s.Dims()
		return insertColumns(s, cols, 0) // zero inserted columns: a plain copy
	}
	m.Q, m.C, m.A, m.B = clone(Q), clone(C), clone(A), clone(B)
	m.c, m.b = append([]float64(nil), c...), append([]float64(nil), b...)
	m.Size()
	if !m.DataCheck(false) {
		return fmt.Errorf("paramopt: finalize failed data check")
	}
	return nil
}

// SetFromObjective is the QP_Objective/QP_Constraints convenience overload.
func (m *MP_Param) SetFromObjective(obj QPObjective, cons QPConstraints) error {
	return m.Set(obj.Q, obj.C, cons.A, cons.B, obj.Cvec, cons.b)
}

// Size (re)computes Ny, Nx, and Ncons from the installed matrices, the way
// MP_Param::size() does: Ny from Q (or c if Q is empty), Nx from C's column
// count, Ncons from the length of b.
func (m *MP_Param) Size() int {
	if m.Q == nil || m.Q.NNZ() == 0 {
		rows, _ := safeDims(m.Q)
		if rows == 0 {
			m.Ny = len(m.c)
		} else {
			m.Ny = rows
		}
	} else {
		m.Ny, _ = m.Q.Dims()
	}
	_, m.Nx = safeDims(m.C)
	m.Ncons = len(m.b)
	return m.Ny
}

func safeDims(s *numeric.Sparse) (int, int) {
	if s == nil {
		return 0, 0
	}
	return s.Dims()
}

// DataCheck verifies the installed matrices are mutually consistent,
// mirroring MP_Param::dataCheck: Q is Ny x Ny (and symmetric if
// forceSymmetry), A has Nx columns, B has Ny columns, C has Ny rows, c has
// length Ny, A and B share Ncons rows.
func (m *MP_Param) DataCheck(forceSymmetry bool) bool {
	if forceSymmetry && m.Q != nil && !isSymmetric(m.Q) {
		return false
	}
	if m.Q != nil {
		qRows, qCols := m.Q.Dims()
		if qCols > 0 && qCols != m.Ny {
			return false
		}
		if qRows > 0 && qRows != m.Ny {
			return false
		}
	}
	if m.A != nil {
		_, aCols := m.A.Dims()
		if aCols > 0 && aCols != m.Nx {
			return false
		}
	}
	if m.B != nil {
		bRows, bCols := m.B.Dims()
		if bCols != m.Ny {
			return false
		}
		if bRows != m.Ncons {
			return false
		}
	}
	if m.C != nil {
		cRows, _ := m.C.Dims()
		if cRows != m.Ny {
			return false
		}
	}
	if len(m.c) != m.Ny {
		return false
	}
	if m.A != nil {
		aRows, _ := m.A.Dims()
		if aRows > 0 && aRows != m.Ncons {
			return false
		}
	}
	return true
}

func isSymmetric(s *numeric.Sparse) bool {
	rows, cols := s.Dims()
	if rows != cols {
		return false
	}
	for i := 0; i < rows; i++ {
		for j := i + 1; j < cols; j++ {
			if s.At(i, j) != s.At(j, i) {
				return false
			}
		}
	}
	return true
}

// AddDummy appends pars dummy parameters and vars dummy own-variables to
// the program, inserting the new parameter columns of A and C at position
// (or at the end if position is -1), mirroring MP_Param::addDummy. New
// rows/columns are zero-filled, so the dummy variables are inert until the
// caller overwrites their coefficients.
func (m *MP_Param) AddDummy(pars, vars, position int) error {
	m.Nx += pars
	m.Ny += vars

	if vars > 0 {
		if m.Q != nil {
			if err := m.Q.Resize(m.Ny, m.Ny); err != nil {
				return err
			}
		}
		if m.B != nil {
			if err := m.B.Resize(m.Ncons, m.Ny); err != nil {
				return err
			}
		}
		m.c = append(m.c, make([]float64, vars)...)
	}

	switch {
	case position == -1:
		if pars > 0 && m.A != nil {
			if err := m.A.Resize(m.Ncons, m.Nx); err != nil {
				return err
			}
		}
		if (vars > 0 || pars > 0) && m.C != nil {
			if err := m.C.Resize(m.Ny, m.Nx); err != nil {
				return err
			}
		}
	default:
		if pars > 0 && m.A != nil {
			m.A = insertColumns(m.A, position, pars)
		}
		if (vars > 0 || pars > 0) && m.C != nil {
			_, cCols := m.C.Dims()
			if err := m.C.Resize(m.Ny, cCols); err != nil {
				return err
			}
			m.C = insertColumns(m.C, position, pars)
		}
	}

	return nil
}

// insertColumns rebuilds s with `count` zero columns spliced in just before
// column `position`.
func insertColumns(s *numeric.Sparse, position, count int) *numeric.Sparse {
	rows, cols := s.Dims()
	out := numeric.NewSparse(rows, cols+count)
	for r := 0; r < rows; r++ {
		row := s.Row(r)
		for c := 0; c < cols; c++ {
			v := row[c]
			if v == 0 {
				continue
			}
			if c < position {
				out.Set(r, c, v)
			} else {
				out.Set(r, c+count, v)
			}
		}
	}
	return out
}

// SolveFixed solves the QP at a fixed parameter value x, returning the
// player's best-response y via the given backend.
func (m *MP_Param) SolveFixed(x []float64, backend solver.Backend, opts solver.Options) solver.Solution {
	linear := make([]float64, m.Ny)
	copy(linear, m.c)
	if m.C != nil {
		for i := 0; i < m.Ny; i++ {
			row := m.C.Row(i)
			for j, xj := range x {
				linear[i] += row[j] * xj
			}
		}
	}

	model := solver.LPModel{C: linear}
	if m.Q != nil && m.Q.NNZ() > 0 {
		model.Q = m.Q.Dense()
	}
	if m.B != nil {
		model.G = m.B.Dense()
		h := make([]float64, m.Ncons)
		copy(h, m.b)
		if m.A != nil {
			for i := 0; i < m.Ncons; i++ {
				row := m.A.Row(i)
				var ax float64
				for j, xj := range x {
					ax += row[j] * xj
				}
				h[i] -= ax
			}
		}
		model.H = h
	}

	return backend.Solve(model, opts)
}
