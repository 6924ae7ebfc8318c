package mathopt

import (
	"testing"

	"github.com/ds4opt/epec-oa/numeric"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildHullDimensions(t *testing.T) {
	n := 2
	A1 := numeric.NewSparse(1, n)
	A1.Set(0, 0, 1)
	A1.Set(0, 1, 1)
	A2 := numeric.NewSparse(1, n)
	A2.Set(0, 0, -1)
	A2.Set(0, 1, 1)

	polys := []Polyhedron{
		{A: A1, B: []float64{1}},
		{A: A2, B: []float64{1}},
	}

	hull, err := BuildHull(n, polys, Polyhedron{})
	require.NoError(t, err)

	assert.Equal(t, 2, hull.NumOriginal)
	assert.Equal(t, 2, hull.NumCopies)
	assert.Equal(t, n, hull.YStart)
	assert.Equal(t, n+n*2, hull.DeltaStart)

	rows, cols := hull.A.Dims()
	assert.Equal(t, n+n*2+2, cols)
	// 1 row per polyhedron (2) + 2n for y=sum(y_i) + 2 for sum(delta)=1
	assert.Equal(t, 2+2*n+2, rows)
}

func TestBuildHullRejectsColumnMismatch(t *testing.T) {
	bad := numeric.NewSparse(1, 3)
	_, err := BuildHull(2, []Polyhedron{{A: bad, B: []float64{1}}}, Polyhedron{})
	assert.Error(t, err)
}

func TestBuildHullRejectsEmptyFamily(t *testing.T) {
	_, err := BuildHull(2, nil, Polyhedron{})
	assert.Error(t, err)
}

func TestBuildHullWithCommonConstraints(t *testing.T) {
	n := 1
	A1 := numeric.NewSparse(1, n)
	A1.Set(0, 0, 1)
	common := numeric.NewSparse(1, n)
	common.Set(0, 0, 1)

	hull, err := BuildHull(n, []Polyhedron{{A: A1, B: []float64{2}}}, Polyhedron{A: common, B: []float64{5}})
	require.NoError(t, err)
	// 1 own row + 1 common row + 2n(=2) + 2 = 6
	rows, _ := hull.A.Dims()
	assert.Equal(t, 6, rows)
}
