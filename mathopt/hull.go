// Package mathopt builds the Balas extended formulation for the convex
// hull of a union of polyhedra, the piece every outer-approximation cut
// round uses to turn "pick one of these disjuncts" into a single LP.
package mathopt

import (
	"fmt"

	"github.com/ds4opt/epec-oa/numeric"
)

// Polyhedron is one disjunct Pᵢ = {y : Aᵢy <= bᵢ, y >= 0}.
type Polyhedron struct {
	A *numeric.Sparse
	B []float64
}

// Hull is the Balas extended formulation of conv(⋃ᵢ Pᵢ) ∩ Pcommon in the
// variables [y, y_1..y_k, δ_1..δ_k]. NumOriginal is n (len(y)); NumCopies is
// k (the number of disjuncts). YStart/DeltaStart give the column offset of
// the first yᵢ-block and the δ-block respectively.
type Hull struct {
	A           *numeric.Sparse
	B           []float64
	NumOriginal int
	NumCopies   int
	YStart      int
	DeltaStart  int
}

// BuildHull constructs the extended formulation. Pcommon may be the zero
// value (nil A, nil B) to mean "no common constraints". All Polyhedra must
// have exactly n columns in A, matching len(b) to its own row count.
func BuildHull(n int, polyhedra []Polyhedron, common Polyhedron) (*Hull, error) {
	k := len(polyhedra)
	if k == 0 {
		return nil, fmt.Errorf("mathopt: BuildHull requires at least one polyhedron")
	}

	for i, p := range polyhedra {
		if p.A == nil {
			continue
		}
		rows, cols := p.A.Dims()
		if cols != n {
			return nil, fmt.Errorf("mathopt: polyhedron %d has %d columns, want %d", i, cols, n)
		}
		if rows != len(p.B) {
			return nil, fmt.Errorf("mathopt: polyhedron %d has %d rows but b has length %d", i, rows, len(p.B))
		}
	}
	var commonRows int
	if common.A != nil {
		var commonCols int
		commonRows, commonCols = common.A.Dims()
		if commonCols != n {
			return nil, fmt.Errorf("mathopt: common polyhedron has %d columns, want %d", commonCols, n)
		}
		if commonRows != len(common.B) {
			return nil, fmt.Errorf("mathopt: common polyhedron has %d rows but b has length %d", commonRows, len(common.B))
		}
	}

	yStart := n
	deltaStart := n + n*k
	nVar := deltaStart + k

	// Row budget: per-disjunct (own rows + common rows), plus 2n rows for
	// y = sum(y_i), plus 2 rows for sum(delta_i) = 1.
	nRows := 0
	for _, p := range polyhedra {
		if p.A != nil {
			rows, _ := p.A.Dims()
			nRows += rows
		}
		nRows += commonRows
	}
	nRows += 2*n + 2

	var locRow, locCol []int
	var val []float64
	push := func(r, c int, v float64) {
		if v == 0 {
			return
		}
		locRow = append(locRow, r)
		locCol = append(locCol, c)
		val = append(val, v)
	}

	bVec := make([]float64, 0, nRows)
	row := 0

	// 1. A_i y_i - b_i delta_i <= 0, and common.A y_i - common.b delta_i <= 0.
	for i, p := range polyhedra {
		yiCol := yStart + i*n
		deltaCol := deltaStart + i

		if p.A != nil {
			rows, _ := p.A.Dims()
			for r := 0; r < rows; r++ {
				for c := 0; c < n; c++ {
					push(row, yiCol+c, p.A.At(r, c))
				}
				push(row, deltaCol, -p.B[r])
				bVec = append(bVec, 0)
				row++
			}
		}

		if common.A != nil {
			for r := 0; r < commonRows; r++ {
				for c := 0; c < n; c++ {
					push(row, yiCol+c, common.A.At(r, c))
				}
				push(row, deltaCol, -common.B[r])
				bVec = append(bVec, 0)
				row++
			}
		}
	}

	// 2. y - sum_i y_i <= 0 and -y + sum_i y_i <= 0.
	for c := 0; c < n; c++ {
		push(row, c, 1)
		for i := 0; i < k; i++ {
			push(row, yStart+i*n+c, -1)
		}
		bVec = append(bVec, 0)
		row++
	}
	for c := 0; c < n; c++ {
		push(row, c, -1)
		for i := 0; i < k; i++ {
			push(row, yStart+i*n+c, 1)
		}
		bVec = append(bVec, 0)
		row++
	}

	// 3. sum_i delta_i = 1, encoded as <= 1 and <= -1 (negated).
	for i := 0; i < k; i++ {
		push(row, deltaStart+i, 1)
	}
	bVec = append(bVec, 1)
	row++
	for i := 0; i < k; i++ {
		push(row, deltaStart+i, -1)
	}
	bVec = append(bVec, -1)
	row++

	A, err := numeric.NewSparseFromTriplets(row, nVar, locRow, locCol, val, numeric.DefaultTolerance)
	if err != nil {
		return nil, err
	}

	return &Hull{
		A:           A,
		B:           bVec,
		NumOriginal: n,
		NumCopies:   k,
		YStart:      yStart,
		DeltaStart:  deltaStart,
	}, nil
}
