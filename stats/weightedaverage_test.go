package stats

import (
	"testing"

	"github.com/gonum-community/pdlp/sharder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShardedWeightedAverageExactOnConstantInput(t *testing.T) {
	sh := sharder.New(5, 2, sharder.Sequential())
	avg := NewShardedWeightedAverage(sh)

	v := []float64{1.5, -2.25, 3, 0.125, 7}
	for i := 0; i < 37; i++ {
		avg.Add(v, 0.37)
	}

	require.Equal(t, v, avg.Avg(), "running average of a constant vector must be exact with no drift")
	assert.EqualValues(t, 37, avg.NumTerms())
}

func TestShardedWeightedAverageWeightedMean(t *testing.T) {
	sh := sharder.New(1, 1, sharder.Sequential())
	avg := NewShardedWeightedAverage(sh)

	avg.Add([]float64{0}, 1)
	avg.Add([]float64{10}, 3)

	assert.InDelta(t, 7.5, avg.Avg()[0], 1e-12)
	assert.InDelta(t, 4.0, avg.SumWeights(), 1e-12)
}

func TestShardedWeightedAverageZeroWeightCountsTermButNotValue(t *testing.T) {
	sh := sharder.New(1, 1, sharder.Sequential())
	avg := NewShardedWeightedAverage(sh)

	avg.Add([]float64{5}, 1)
	avg.Add([]float64{1000}, 0)

	assert.Equal(t, 5.0, avg.Avg()[0])
	assert.EqualValues(t, 2, avg.NumTerms())
}

func TestShardedWeightedAverageClearResets(t *testing.T) {
	sh := sharder.New(1, 1, sharder.Sequential())
	avg := NewShardedWeightedAverage(sh)

	avg.Add([]float64{5}, 1)
	avg.Clear()

	assert.Equal(t, 0.0, avg.Avg()[0])
	assert.Equal(t, 0.0, avg.SumWeights())
	assert.EqualValues(t, 0, avg.NumTerms())
}

func TestShardedWeightedAverageNegativeWeightPanics(t *testing.T) {
	sh := sharder.New(1, 1, sharder.Sequential())
	avg := NewShardedWeightedAverage(sh)
	assert.Panics(t, func() { avg.Add([]float64{1}, -1) })
}
