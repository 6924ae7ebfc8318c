package numeric

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSparseSetAt(t *testing.T) {
	s := NewSparse(2, 2)
	s.Set(0, 1, 3.5)
	assert.Equal(t, 3.5, s.At(0, 1))
	assert.Equal(t, 0.0, s.At(1, 1))
	assert.Equal(t, 1, s.NNZ())

	s.Set(0, 1, 0)
	assert.Equal(t, 0, s.NNZ())
}

func TestSparseFromTriplets(t *testing.T) {
	s, err := NewSparseFromTriplets(2, 3, []int{0, 1}, []int{1, 2}, []float64{1, 2}, DefaultTolerance)
	require.NoError(t, err)
	assert.Equal(t, 2, s.NNZ())
	assert.Equal(t, 1.0, s.At(0, 1))
	assert.Equal(t, 2.0, s.At(1, 2))
}

func TestSparseFromTripletsDropsNearZero(t *testing.T) {
	s, err := NewSparseFromTriplets(1, 1, []int{0}, []int{0}, []float64{1e-9}, DefaultTolerance)
	require.NoError(t, err)
	assert.Equal(t, 0, s.NNZ())
}

func TestSparseResizeGrowPreservesAndZeroFills(t *testing.T) {
	s := NewSparse(1, 1)
	s.Set(0, 0, 7)
	require.NoError(t, s.Resize(3, 3))
	r, c := s.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 3, c)
	assert.Equal(t, 7.0, s.At(0, 0))
	assert.Equal(t, 0.0, s.At(2, 2))
}

func TestSparseResizeShrinkTakesLeadingSubmatrix(t *testing.T) {
	s := NewSparse(3, 3)
	s.Set(0, 0, 1)
	s.Set(2, 2, 9)
	require.NoError(t, s.Resize(1, 1))
	assert.Equal(t, 1.0, s.At(0, 0))
	r, c := s.Dims()
	assert.Equal(t, 1, r)
	assert.Equal(t, 1, c)
}

func TestSparseResizeInconsistentDirectionErrors(t *testing.T) {
	s := NewSparse(2, 2)
	err := s.Resize(4, 1)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestSparseDense(t *testing.T) {
	s := NewSparse(2, 2)
	s.Set(0, 1, 5)
	d := s.Dense()
	assert.Equal(t, 5.0, d.At(0, 1))
	assert.Equal(t, 0.0, d.At(1, 0))
}
