package optimization

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrontierSortedByVolatility(t *testing.T) {
	opt := NewOptimizer(zerolog.Nop())

	points, err := opt.Frontier(testInputs(), 0.02, Constraints{}, 8)
	require.NoError(t, err)
	require.NotEmpty(t, points)

	for i := 1; i < len(points); i++ {
		assert.GreaterOrEqual(t, points[i].Volatility, points[i-1].Volatility,
			"frontier must be non-decreasing in volatility")
	}

	// The min-vol anchor is the first point.
	minVol, err := opt.Optimize(testInputs(), ObjectiveMinVolatility, 0.02, nil, Constraints{})
	require.NoError(t, err)
	assert.InDelta(t, minVol.Volatility, points[0].Volatility, 1e-6)
}

func TestFrontierDeduplicatesByVolatility(t *testing.T) {
	points := []Result{
		{Volatility: 0.20},
		{Volatility: 0.10},
		{Volatility: 0.10 + 1e-9},
		{Volatility: 0.15},
	}

	out := dedupeByVolatility(points)
	require.Len(t, out, 3)
	assert.InDelta(t, 0.10, out[0].Volatility, 1e-9)
	assert.InDelta(t, 0.15, out[1].Volatility, 1e-9)
	assert.InDelta(t, 0.20, out[2].Volatility, 1e-9)
}

func TestFrontierSkipsNothingWhenAnchorsCoincide(t *testing.T) {
	opt := NewOptimizer(zerolog.Nop())

	// Identical assets: every portfolio has the same moments, so the
	// frontier collapses to a single point instead of erroring.
	inputs := Inputs{
		Symbols: []string{"A", "B"},
		Mu:      []float64{0.10, 0.10},
		Sigma: [][]float64{
			{0.02, 0.02},
			{0.02, 0.02},
		},
	}

	points, err := opt.Frontier(inputs, 0.02, Constraints{}, 8)
	require.NoError(t, err)
	assert.Len(t, points, 1)
}
