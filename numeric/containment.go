package numeric

import "gonum.org/v1/gonum/mat"

// ContainsRow reports whether some row of A equals row within tol in the
// max-norm, grounded on Utils::containsRow.
func ContainsRow(A *mat.Dense, row []float64, tol float64) bool {
	if A == nil {
		return false
	}
	r, c := A.Dims()
	if c != len(row) {
		return false
	}
	for i := 0; i < r; i++ {
		if rowMatches(A.RawRowView(i), row, tol) {
			return true
		}
	}
	return false
}

// ContainsConstraint reports whether the (A, b) system already contains a
// row i with ||A[i,:]-lhs||_inf <= tol and |b[i]-rhs| <= tol, grounded on
// Utils::containsConstraint.
func ContainsConstraint(A *mat.Dense, b []float64, lhs []float64, rhs, tol float64) bool {
	if A == nil {
		return false
	}
	r, c := A.Dims()
	if c != len(lhs) || r != len(b) {
		return false
	}
	for i := 0; i < r; i++ {
		if rowMatches(A.RawRowView(i), lhs, tol) && abs(b[i]-rhs) <= tol {
			return true
		}
	}
	return false
}

// ContainsElement reports whether some entry of b is within tol of element,
// grounded on Utils::containsElement.
func ContainsElement(b []float64, element, tol float64) bool {
	for _, v := range b {
		if abs(v-element) <= tol {
			return true
		}
	}
	return false
}

func rowMatches(a, b []float64, tol float64) bool {
	if len(a) != len(b) {
		return false
	}
	for j := range a {
		if abs(a[j]-b[j]) > tol {
			return false
		}
	}
	return true
}

// Normalize scales a vector by the larger of its max and |min|, matching
// Utils::normalize; used to normalize the dual membership LP's direction
// vectors before separation.
func Normalize(v []float64) []float64 {
	if len(v) == 0 {
		return v
	}
	max, min := v[0], v[0]
	for _, x := range v {
		if x > max {
			max = x
		}
		if x < min {
			min = x
		}
	}
	amin := abs(min)
	norm := max
	if amin > max {
		norm = amin
	}
	if norm == 0 {
		return append([]float64{}, v...)
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}
