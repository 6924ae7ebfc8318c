package outerapprox

import (
	"math"

	"github.com/ds4opt/epec-oa/numeric"
	"gonum.org/v1/gonum/mat"
)

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func sameVector(a, b []float64, tol float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > tol {
			return false
		}
	}
	return true
}

// boolsToEncoding converts the AllowedBranchings/Encoding "pinned" bool
// vector into the numeric.Encoding PolyLCP.OuterApproximate expects.
func boolsToEncoding(bits []bool) numeric.Encoding {
	enc := make(numeric.Encoding, len(bits))
	for i, b := range bits {
		if b {
			enc[i] = 1
		} else {
			enc[i] = -1
		}
	}
	return enc
}

func rowsToDenseLocal(rows [][]float64, nVar int) *mat.Dense {
	data := make([]float64, len(rows)*nVar)
	for r, row := range rows {
		copy(data[r*nVar:(r+1)*nVar], row)
	}
	return mat.NewDense(len(rows), nVar, data)
}

func denseOrNil(s *numeric.Sparse) *mat.Dense {
	if s == nil {
		return nil
	}
	return s.Dense()
}
