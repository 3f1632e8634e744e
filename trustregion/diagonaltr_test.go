package trustregion

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSolveDiagonalQPBindsAtRadius(t *testing.T) {
	g := []float64{1, 1}
	x0 := []float64{0, 0}
	l := []float64{-10, -10}
	u := []float64{10, 10}
	w := []float64{1, 1}
	q := []float64{1, 1}

	res := SolveDiagonalQP(g, x0, l, u, w, q, 1, 1e-9)

	want := -math.Sqrt(0.5)
	assert.InDelta(t, want, res.X[0], 1e-4)
	assert.InDelta(t, want, res.X[1], 1e-4)
	assert.InDelta(t, 1.0, res.Radius, 1e-4)
	assert.Greater(t, res.Lambda, 0.0)
}

func TestSolveDiagonalQPUnconstrainedWhenRadiusIsLarge(t *testing.T) {
	g := []float64{1}
	x0 := []float64{0}
	l := []float64{-10}
	u := []float64{10}
	w := []float64{1}
	q := []float64{1}

	res := SolveDiagonalQP(g, x0, l, u, w, q, 100, 1e-9)

	assert.InDelta(t, -1.0, res.X[0], 1e-9)
	assert.Equal(t, 0.0, res.Lambda)
}

func TestSolveDiagonalQPPanicsOnNonpositiveWeight(t *testing.T) {
	assert.Panics(t, func() {
		SolveDiagonalQP([]float64{1}, []float64{0}, []float64{-1}, []float64{1}, []float64{0}, []float64{1}, 1, 1e-9)
	})
}
