package sharder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewForMatrixFlagsDenseColumns(t *testing.T) {
	nnzPerColumn := []int{1, 1, 9}
	_, warned := NewForMatrix(nnzPerColumn, 10, 2, Sequential())
	assert.True(t, warned, "column with 9/10 nonzeros should trip the density warning")
}

func TestNewForMatrixNoWarningWhenSparse(t *testing.T) {
	nnzPerColumn := []int{1, 1, 1}
	_, warned := NewForMatrix(nnzPerColumn, 1000, 2, Sequential())
	assert.False(t, warned)
}

func TestColumnMassCountsColumnPlusNonzeros(t *testing.T) {
	mass := ColumnMass([]int{0, 3, 1})
	assert.Equal(t, []float64{1, 4, 2}, mass)
}
