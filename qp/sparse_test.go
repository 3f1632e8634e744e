package qp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMatrix() *SparseMatrix {
	// [ 1 0 3 ]
	// [ 0 2 0 ]
	return NewSparseMatrixFromColumns(2,
		[][]int64{{0}, {1}, {0}},
		[][]float64{{1}, {2}, {3}})
}

func TestSparseMatrixAt(t *testing.T) {
	m := testMatrix()
	assert.Equal(t, 1.0, m.At(0, 0))
	assert.Equal(t, 0.0, m.At(1, 0))
	assert.Equal(t, 2.0, m.At(1, 1))
	assert.Equal(t, 0.0, m.At(0, 1))
	assert.Equal(t, 3.0, m.At(0, 2))
}

func TestSparseMatrixDims(t *testing.T) {
	m := testMatrix()
	r, c := m.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 3, c)
}

func TestSparseMatrixTranspose(t *testing.T) {
	m := testMatrix()
	mt := m.Transpose()

	r, c := mt.Dims()
	require.Equal(t, 3, r)
	require.Equal(t, 2, c)

	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			assert.Equal(t, m.At(i, j), mt.At(j, i), "at (%d,%d)", i, j)
		}
	}
}

func TestSparseMatrixCloneIsIndependent(t *testing.T) {
	m := testMatrix()
	clone := m.Clone()

	require.Equal(t, m.At(0, 0), clone.At(0, 0))

	clone.values[0] = 999
	assert.Equal(t, 1.0, m.At(0, 0), "mutating the clone must not affect the original")
	assert.Equal(t, 999.0, clone.At(0, 0))
}

func TestSparseMatrixColumnIteratesRowOrder(t *testing.T) {
	m := NewSparseMatrixFromColumns(5,
		[][]int64{{3, 0, 4}},
		[][]float64{{30, 0, 40}})
	var rows []int64
	m.Column(0, func(row int, value float64) {
		rows = append(rows, int64(row))
	})
	assert.Equal(t, []int64{3, 0, 4}, rows, "Column iterates in stored order, not sorted order")
}

func TestNewSparseMatrixPanicsOnBadColStart(t *testing.T) {
	assert.Panics(t, func() {
		NewSparseMatrix(1, 1, []int{0, 5}, []int64{0}, []float64{1})
	})
}
