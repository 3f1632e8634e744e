package qp

import "gonum.org/v1/gonum/mat"

// SparseMatrix is a column-major compressed-sparse-column matrix with
// 64-bit row indices. It implements mat.Matrix so it can
// be passed to gonum routines without a conversion step.
type SparseMatrix struct {
	rows, cols int

	// colStart[j]..colStart[j+1] index into rowIdx/values for column j.
	colStart []int
	rowIdx   []int64
	values   []float64
}

// NewSparseMatrix builds a SparseMatrix from column-major triplets. cols
// must be sorted by column; rowIdx and values are parallel to the
// flattened nonzero list, grouped contiguously by column per colStart.
// NewSparseMatrix takes ownership of the slices it is given.
func NewSparseMatrix(rows, cols int, colStart []int, rowIdx []int64, values []float64) *SparseMatrix {
	if len(colStart) != cols+1 {
		panic("qp: colStart must have cols+1 entries")
	}
	if len(rowIdx) != len(values) {
		panic("qp: rowIdx and values length mismatch")
	}
	if colStart[0] != 0 || colStart[cols] != len(values) {
		panic("qp: colStart is not a valid CSC prefix")
	}
	return &SparseMatrix{rows: rows, cols: cols, colStart: colStart, rowIdx: rowIdx, values: values}
}

// NewSparseMatrixFromColumns builds a SparseMatrix from a dense slice of
// sparse columns, each given as parallel (row, value) slices.
func NewSparseMatrixFromColumns(rows int, columnRows [][]int64, columnValues [][]float64) *SparseMatrix {
	cols := len(columnRows)
	colStart := make([]int, cols+1)
	var nnz int
	for j := 0; j < cols; j++ {
		if len(columnRows[j]) != len(columnValues[j]) {
			panic("qp: column row/value length mismatch")
		}
		nnz += len(columnRows[j])
		colStart[j+1] = nnz
	}
	rowIdx := make([]int64, 0, nnz)
	values := make([]float64, 0, nnz)
	for j := 0; j < cols; j++ {
		rowIdx = append(rowIdx, columnRows[j]...)
		values = append(values, columnValues[j]...)
	}
	return NewSparseMatrix(rows, cols, colStart, rowIdx, values)
}

// Dims implements mat.Matrix.
func (m *SparseMatrix) Dims() (r, c int) { return m.rows, m.cols }

// At implements mat.Matrix. It is O(log nnz_col) via binary search and
// is intended for spot checks and tests, not hot-loop kernels.
func (m *SparseMatrix) At(i, j int) float64 {
	if i < 0 || i >= m.rows || j < 0 || j >= m.cols {
		panic("qp: index out of range")
	}
	lo, hi := m.colStart[j], m.colStart[j+1]
	target := int64(i)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case m.rowIdx[mid] == target:
			return m.values[mid]
		case m.rowIdx[mid] < target:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return 0
}

// T implements mat.Matrix, returning a transposed view backed by the
// same data (no copy).
func (m *SparseMatrix) T() mat.Matrix { return mat.Transpose{Matrix: m} }

// NumCols returns the number of columns.
func (m *SparseMatrix) NumCols() int { return m.cols }

// NumRows returns the number of rows.
func (m *SparseMatrix) NumRows() int { return m.rows }

// ColumnNNZ returns the number of stored entries in column j.
func (m *SparseMatrix) ColumnNNZ(j int) int { return m.colStart[j+1] - m.colStart[j] }

// Column calls f(rowIndex, value) for every stored entry of column j, in
// stored order (not sorted by row).
func (m *SparseMatrix) Column(j int, f func(row int, value float64)) {
	for k := m.colStart[j]; k < m.colStart[j+1]; k++ {
		f(int(m.rowIdx[k]), m.values[k])
	}
}

// ColumnSlice returns the raw (row, value) backing slices of column j.
// Callers must not mutate the returned slices.
func (m *SparseMatrix) ColumnSlice(j int) ([]int64, []float64) {
	lo, hi := m.colStart[j], m.colStart[j+1]
	return m.rowIdx[lo:hi], m.values[lo:hi]
}

// NNZPerColumn returns the number of stored entries in every column.
func (m *SparseMatrix) NNZPerColumn() []int {
	out := make([]int, m.cols)
	for j := range out {
		out[j] = m.ColumnNNZ(j)
	}
	return out
}

// forEachNonzero calls f(row, col, value) for every stored entry.
func (m *SparseMatrix) forEachNonzero(f func(row, col int, value float64)) {
	for j := 0; j < m.cols; j++ {
		for k := m.colStart[j]; k < m.colStart[j+1]; k++ {
			f(int(m.rowIdx[k]), j, m.values[k])
		}
	}
}

// Clone returns a deep copy of m; mutating the result (e.g. via
// rescaling) never touches m.
func (m *SparseMatrix) Clone() *SparseMatrix {
	return &SparseMatrix{
		rows:     m.rows,
		cols:     m.cols,
		colStart: append([]int(nil), m.colStart...),
		rowIdx:   append([]int64(nil), m.rowIdx...),
		values:   append([]float64(nil), m.values...),
	}
}

// Transpose returns the explicit transpose as a new SparseMatrix (a real
// copy, unlike T which returns a lazy view).
func (m *SparseMatrix) Transpose() *SparseMatrix {
	rows, cols := m.rows, m.cols
	colCount := make([]int, rows)
	m.forEachNonzero(func(r, _ int, _ float64) { colCount[r]++ })

	colStart := make([]int, rows+1)
	for i := 0; i < rows; i++ {
		colStart[i+1] = colStart[i] + colCount[i]
	}
	rowIdx := make([]int64, colStart[rows])
	values := make([]float64, colStart[rows])
	cursor := append([]int(nil), colStart[:rows]...)
	for j := 0; j < cols; j++ {
		for k := m.colStart[j]; k < m.colStart[j+1]; k++ {
			r := int(m.rowIdx[k])
			pos := cursor[r]
			rowIdx[pos] = int64(j)
			values[pos] = m.values[k]
			cursor[r]++
		}
	}
	return NewSparseMatrix(cols, rows, colStart, rowIdx, values)
}
