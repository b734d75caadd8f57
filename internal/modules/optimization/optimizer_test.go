package optimization

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testInputs() Inputs {
	return Inputs{
		Symbols: []string{"A", "B", "C"},
		Mu:      []float64{0.12, 0.08, 0.10},
		Sigma: [][]float64{
			{0.04, 0.01, 0.005},
			{0.01, 0.03, 0.008},
			{0.005, 0.008, 0.025},
		},
	}
}

func newTestOptimizer() *Optimizer {
	return NewOptimizer(zerolog.Nop())
}

func assertValidWeights(t *testing.T, result *Result) {
	t.Helper()
	require.Len(t, result.Weights, len(result.Symbols))
	sum := 0.0
	for _, w := range result.Weights {
		assert.GreaterOrEqual(t, w, 0.0, "weights should be non-negative")
		assert.LessOrEqual(t, w, 1.0+1e-9, "weights should be <= 1")
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-6, "weights should sum to 1")
}

func TestOptimizeMinVolatility(t *testing.T) {
	opt := newTestOptimizer()

	result, err := opt.Optimize(testInputs(), ObjectiveMinVolatility, 0.02, nil, Constraints{})
	require.NoError(t, err)
	require.True(t, result.Converged)
	assertValidWeights(t, result)

	// No sampled feasible portfolio should beat the minimizer.
	inputs := testInputs()
	rng := rand.New(rand.NewPCG(7, 11))
	for trial := 0; trial < 500; trial++ {
		w := make([]float64, 3)
		sum := 0.0
		for i := range w {
			w[i] = rng.Float64()
			sum += w[i]
		}
		for i := range w {
			w[i] /= sum
		}
		var variance float64
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				variance += w[i] * w[j] * inputs.Sigma[i][j]
			}
		}
		assert.LessOrEqual(t, result.Volatility, math.Sqrt(variance)+1e-4)
	}
}

func TestOptimizeMinVolatilityEqualVarianceSplitsEvenly(t *testing.T) {
	opt := newTestOptimizer()

	inputs := Inputs{
		Symbols: []string{"A", "B"},
		Mu:      []float64{0, 0},
		Sigma: [][]float64{
			{0.02, 0},
			{0, 0.02},
		},
	}

	result, err := opt.Optimize(inputs, ObjectiveMinVolatility, 0, nil, Constraints{})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, result.Weights[0], 0.02)
	assert.InDelta(t, 0.5, result.Weights[1], 0.02)
}

func TestOptimizeMaxSharpeDegenerateZeroExcess(t *testing.T) {
	opt := newTestOptimizer()

	// Zero expected excess return everywhere: the ratio surface is
	// flat, so the solver keeps the equal-weight starting point.
	inputs := Inputs{
		Symbols: []string{"A", "B"},
		Mu:      []float64{0, 0},
		Sigma: [][]float64{
			{0.02, 0},
			{0, 0.02},
		},
	}

	result, err := opt.Optimize(inputs, ObjectiveMaxSharpe, 0, nil, Constraints{})
	require.NoError(t, err)
	assertValidWeights(t, result)
	assert.Zero(t, result.SharpeRatio)
}

func TestOptimizeMaxSharpePrefersHigherRatioAsset(t *testing.T) {
	opt := newTestOptimizer()

	// A has the higher return at equal variance: it should dominate.
	inputs := Inputs{
		Symbols: []string{"A", "B"},
		Mu:      []float64{0.15, 0.05},
		Sigma: [][]float64{
			{0.03, 0},
			{0, 0.03},
		},
	}

	result, err := opt.Optimize(inputs, ObjectiveMaxSharpe, 0.0, nil, Constraints{})
	require.NoError(t, err)
	assertValidWeights(t, result)
	assert.Greater(t, result.Weights[0], result.Weights[1])
}

func TestOptimizeTargetReturn(t *testing.T) {
	opt := newTestOptimizer()

	target := 0.10
	result, err := opt.Optimize(testInputs(), ObjectiveTargetReturn, 0.02, &target, Constraints{})
	require.NoError(t, err)
	assertValidWeights(t, result)
	assert.InDelta(t, target, result.ExpectedReturn, 0.01)
}

func TestOptimizeTargetReturnUnachievable(t *testing.T) {
	opt := newTestOptimizer()

	// Max achievable return is 0.12 (all-in on A).
	target := 0.20
	_, err := opt.Optimize(testInputs(), ObjectiveTargetReturn, 0.02, &target, Constraints{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnachievableTarget))

	target = 0.01 // below the minimum 0.08
	_, err = opt.Optimize(testInputs(), ObjectiveTargetReturn, 0.02, &target, Constraints{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnachievableTarget))
}

func TestOptimizeTargetReturnMissingTarget(t *testing.T) {
	opt := newTestOptimizer()

	_, err := opt.Optimize(testInputs(), ObjectiveTargetReturn, 0.02, nil, Constraints{})
	require.Error(t, err)
}

func TestOptimizeMaxReturn(t *testing.T) {
	opt := newTestOptimizer()

	result, err := opt.Optimize(testInputs(), ObjectiveMaxReturn, 0.02, nil, Constraints{})
	require.NoError(t, err)
	assertValidWeights(t, result)
	// A has the highest expected return; it should carry most weight.
	assert.Greater(t, result.Weights[0], 0.8)
	assert.InDelta(t, 0.12, result.ExpectedReturn, 0.01)
}

func TestOptimizeRespectsBounds(t *testing.T) {
	opt := newTestOptimizer()

	constraints := Constraints{
		MaxWeights: map[string]float64{"A": 0.4},
		MinWeights: map[string]float64{"B": 0.1},
	}

	result, err := opt.Optimize(testInputs(), ObjectiveMaxReturn, 0.02, nil, constraints)
	require.NoError(t, err)
	assert.LessOrEqual(t, result.Weights[0], 0.4+1e-3)
	assert.GreaterOrEqual(t, result.Weights[1], 0.1-1e-3)
}

func TestOptimizeRejectsTooFewSymbols(t *testing.T) {
	opt := newTestOptimizer()

	inputs := Inputs{Symbols: []string{"A"}, Mu: []float64{0.1}, Sigma: [][]float64{{0.02}}}
	_, err := opt.Optimize(inputs, ObjectiveMinVolatility, 0.02, nil, Constraints{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientData))
}

func TestAchievableReturnRange(t *testing.T) {
	mu := []float64{0.12, 0.08, 0.10}
	lo := []float64{0, 0, 0}
	hi := []float64{1, 1, 1}

	minRet, maxRet := achievableReturnRange(mu, lo, hi)
	assert.InDelta(t, 0.08, minRet, 1e-9)
	assert.InDelta(t, 0.12, maxRet, 1e-9)

	// Capping A at 40% pulls the max down: 0.4×0.12 + 0.6×0.10.
	hi = []float64{0.4, 1, 1}
	_, maxRet = achievableReturnRange(mu, lo, hi)
	assert.InDelta(t, 0.108, maxRet, 1e-9)
}
