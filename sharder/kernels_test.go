package sharder

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDotMatchesNaiveSum(t *testing.T) {
	u := []float64{1, 2, 3, 4, 5, 6, 7}
	v := []float64{7, 6, 5, 4, 3, 2, 1}
	var want float64
	for i := range u {
		want += u[i] * v[i]
	}

	sh := New(len(u), 3, Sequential())
	assert.InDelta(t, want, sh.Dot(u, v), 1e-12)
}

func TestL2NormAndSquaredL2NormAreConsistent(t *testing.T) {
	v := []float64{3, 4, 0, 0, 12}
	sh := New(len(v), 2, Sequential())
	assert.InDelta(t, 13.0, sh.L2Norm(v), 1e-12)
	assert.InDelta(t, 169.0, sh.SquaredL2Norm(v), 1e-12)
}

func TestLInfNorm(t *testing.T) {
	v := []float64{-1, 2, -9, 5}
	sh := New(len(v), 4, Sequential())
	assert.Equal(t, 9.0, sh.LInfNorm(v))
}

func TestWeightedSquaredL2Norm(t *testing.T) {
	v := []float64{1, 2, 3}
	w := []float64{2, 0.5, 1}
	sh := New(len(v), 2, Sequential())
	want := 2*1.0 + 0.5*4.0 + 1*9.0
	assert.InDelta(t, want, sh.WeightedSquaredL2Norm(v, w), 1e-12)
}

func TestAddScaled(t *testing.T) {
	dst := []float64{1, 1, 1, 1}
	src := []float64{1, 2, 3, 4}
	sh := New(len(dst), 2, Sequential())
	sh.AddScaled(dst, 2, src)
	assert.Equal(t, []float64{3, 5, 7, 9}, dst)
}

func TestAssign(t *testing.T) {
	src := []float64{1, 4, 9, 16}
	dst := make([]float64, len(src))
	sh := New(len(src), 2, Sequential())
	sh.Assign(dst, src, math.Sqrt)
	assert.Equal(t, []float64{1, 2, 3, 4}, dst)
}

func TestSub(t *testing.T) {
	a := []float64{5, 3, 9, 1}
	b := []float64{1, 1, 10, 0}
	sh := New(len(a), 2, Sequential())
	assert.Equal(t, []float64{4, 2, -1, 1}, sh.Sub(a, b))
}

func TestSquaredL2DistanceAndL2DistanceAreConsistent(t *testing.T) {
	a := []float64{3, 0}
	b := []float64{0, 4}
	sh := New(len(a), 1, Sequential())
	assert.InDelta(t, 25.0, sh.SquaredL2Distance(a, b), 1e-12)
	assert.InDelta(t, 5.0, sh.L2Distance(a, b), 1e-12)
}

func TestHasNaN(t *testing.T) {
	sh := New(4, 2, Sequential())
	assert.False(t, sh.HasNaN([]float64{1, 2, 3, 4}))
	assert.True(t, sh.HasNaN([]float64{1, math.NaN(), 3, 4}))
}
