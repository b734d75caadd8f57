package rebalancing

import (
	"context"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAnalyzer() *Analyzer {
	return NewAnalyzer(zerolog.Nop())
}

func seedPtr(v uint64) *uint64 { return &v }

func TestAnalyzeDrift(t *testing.T) {
	a := newTestAnalyzer()

	analysis, err := a.AnalyzeDrift(
		[]string{"A", "B"},
		[]float64{0.70, 0.30},
		[]float64{0.60, 0.40},
		0.05,
	)
	require.NoError(t, err)
	assert.InDelta(t, 0.10, analysis.MaxDrift, 1e-9)
	assert.True(t, analysis.ShouldRebalance)
	assert.InDelta(t, 0.10, analysis.Drifts[0].Drift, 1e-9)
	assert.InDelta(t, 0.10, analysis.Drifts[1].Drift, 1e-9)
}

func TestAnalyzeDriftBoundaryDoesNotTrigger(t *testing.T) {
	a := newTestAnalyzer()

	// Max drift exactly equals the threshold: strict comparison means
	// no trigger.
	analysis, err := a.AnalyzeDrift(
		[]string{"A", "B"},
		[]float64{0.65, 0.35},
		[]float64{0.60, 0.40},
		0.05,
	)
	require.NoError(t, err)
	assert.InDelta(t, 0.05, analysis.MaxDrift, 1e-9)
	assert.False(t, analysis.ShouldRebalance)
}

func TestExceedsThreshold(t *testing.T) {
	// math.Abs(0.65-0.60) is a few ULPs above 0.05; the trigger must
	// still treat it as at-threshold.
	assert.False(t, exceedsThreshold(math.Abs(0.65-0.60), 0.05))
	assert.False(t, exceedsThreshold(0.05, 0.05))
	assert.True(t, exceedsThreshold(0.051, 0.05))
	assert.False(t, exceedsThreshold(0.049, 0.05))
}

func TestAnalyzeDriftRejectsMisalignedInputs(t *testing.T) {
	a := newTestAnalyzer()

	_, err := a.AnalyzeDrift([]string{"A", "B"}, []float64{1.0}, []float64{0.5, 0.5}, 0.05)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func timingInputs() ([]float64, [][]float64, []float64) {
	mu := []float64{0.15, 0.03}
	sigma := [][]float64{
		{0.06, 0.005},
		{0.005, 0.01},
	}
	target := []float64{0.5, 0.5}
	return mu, sigma, target
}

func TestAnalyzeTimingTriggersOnDivergentAssets(t *testing.T) {
	a := newTestAnalyzer()
	mu, sigma, target := timingInputs()

	cfg := TimingConfig{
		InitialInvestment:  10000,
		Years:              3,
		DriftThreshold:     0.05,
		TransactionCostPct: 0.001,
		Seed:               seedPtr(11),
	}

	result, err := a.AnalyzeTiming(context.Background(), mu, sigma, target, cfg)
	require.NoError(t, err)

	// Drifts this divergent must fire at least once over 3 years.
	assert.NotEmpty(t, result.RebalanceDays)
	assert.Greater(t, result.TotalTransactionCosts, 0.0)
	assert.Greater(t, result.AvgRebalancesPerYear, 0.0)
}

func TestAnalyzeTimingDeterministicWithSeed(t *testing.T) {
	a := newTestAnalyzer()
	mu, sigma, target := timingInputs()

	cfg := TimingConfig{
		InitialInvestment:  10000,
		Years:              2,
		DriftThreshold:     0.05,
		TransactionCostPct: 0.001,
		Seed:               seedPtr(21),
	}

	first, err := a.AnalyzeTiming(context.Background(), mu, sigma, target, cfg)
	require.NoError(t, err)
	second, err := a.AnalyzeTiming(context.Background(), mu, sigma, target, cfg)
	require.NoError(t, err)

	assert.Equal(t, first.RebalanceDays, second.RebalanceDays)
	assert.Equal(t, first.TotalTransactionCosts, second.TotalTransactionCosts)
	assert.Equal(t, first.SharpeImprovement, second.SharpeImprovement)
}

func TestAnalyzeTimingRespectsYearlyCap(t *testing.T) {
	a := newTestAnalyzer()
	mu, sigma, target := timingInputs()

	cap := 2
	capped := TimingConfig{
		InitialInvestment:    10000,
		Years:                3,
		DriftThreshold:       0.02,
		TransactionCostPct:   0.001,
		MaxRebalancesPerYear: &cap,
		Seed:                 seedPtr(31),
	}
	uncapped := capped
	uncapped.MaxRebalancesPerYear = nil

	cappedResult, err := a.AnalyzeTiming(context.Background(), mu, sigma, target, capped)
	require.NoError(t, err)
	uncappedResult, err := a.AnalyzeTiming(context.Background(), mu, sigma, target, uncapped)
	require.NoError(t, err)

	assert.LessOrEqual(t, cappedResult.AvgRebalancesPerYear, float64(cap)+1e-9)
	assert.GreaterOrEqual(t, uncappedResult.AvgRebalancesPerYear, cappedResult.AvgRebalancesPerYear)
}

func TestAnalyzeTimingNoTriggerBelowThreshold(t *testing.T) {
	a := newTestAnalyzer()

	// Equal deterministic growth never drifts apart.
	mu := []float64{0.05, 0.05}
	sigma := [][]float64{
		{0, 0},
		{0, 0},
	}
	target := []float64{0.5, 0.5}

	cfg := TimingConfig{
		InitialInvestment:  10000,
		Years:              1,
		DriftThreshold:     0.05,
		TransactionCostPct: 0.001,
		Seed:               seedPtr(41),
	}

	result, err := a.AnalyzeTiming(context.Background(), mu, sigma, target, cfg)
	require.NoError(t, err)
	assert.Empty(t, result.RebalanceDays)
	assert.Zero(t, result.TotalTransactionCosts)
	assert.Zero(t, result.CostBenefitRatio)
}

func TestAnalyzeTimingValidation(t *testing.T) {
	a := newTestAnalyzer()
	mu, sigma, target := timingInputs()

	tests := []struct {
		name string
		cfg  TimingConfig
	}{
		{"zero investment", TimingConfig{Years: 1, DriftThreshold: 0.05}},
		{"zero years", TimingConfig{InitialInvestment: 1000, DriftThreshold: 0.05}},
		{"zero threshold", TimingConfig{InitialInvestment: 1000, Years: 1}},
		{"negative cost", TimingConfig{InitialInvestment: 1000, Years: 1, DriftThreshold: 0.05, TransactionCostPct: -0.01}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.AnalyzeTiming(context.Background(), mu, sigma, target, tt.cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}
