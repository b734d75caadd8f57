package simulation

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/rs/zerolog"

	"github.com/foliotrader/folio/pkg/formulas"
)

// batchSize is the path-batch granularity for parallel dispatch and
// cancellation checks.
const batchSize = 100

var percentileLevels = []int{5, 25, 50, 75, 95}

// Simulator projects portfolio value forward under correlated
// geometric Brownian motion. Each asset takes lognormal daily steps
// with drift mu_i/252 − σ_i²/(2·252); cross-asset shocks come from the
// Cholesky factor of the daily covariance matrix. The simulator is a
// pure computation: same seed and inputs give identical output.
type Simulator struct {
	log zerolog.Logger
}

// NewSimulator creates a Monte Carlo simulator
func NewSimulator(log zerolog.Logger) *Simulator {
	return &Simulator{log: log.With().Str("component", "simulator").Logger()}
}

// Run simulates cfg.NumPaths independent paths over cfg.Years.
//
// Args:
//
//	ctx: checked between batches of 100 paths; cancellation aborts the run
//	mu: annualized expected returns, ordered parallel to weights
//	sigma: annualized covariance matrix
//	weights: target weights, must sum to 1 within tolerance
//	cfg: horizon, path count, costs, optional seed
//
// Returns:
//
//	aggregated Result, or the context error when cancelled
func (s *Simulator) Run(ctx context.Context, mu []float64, sigma [][]float64, weights []float64, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	n := len(weights)
	if n == 0 || len(mu) != n || len(sigma) != n {
		return nil, fmt.Errorf("%w: mu, sigma and weights must agree in size", ErrInvalidRequest)
	}
	var weightSum float64
	for _, w := range weights {
		if w < 0 {
			return nil, fmt.Errorf("%w: weights must be non-negative", ErrInvalidRequest)
		}
		weightSum += w
	}
	if math.Abs(weightSum-1.0) > 1e-6 {
		return nil, fmt.Errorf("%w: weights sum to %.6f, expected 1", ErrInvalidRequest, weightSum)
	}

	steps := int(cfg.Years * formulas.TradingDaysPerYear)
	if steps == 0 {
		return nil, fmt.Errorf("%w: horizon shorter than one trading day", ErrInvalidRequest)
	}

	model := NewPathModel(mu, sigma)
	if model.Fallback {
		s.log.Warn().Msg("covariance not positive definite, sampling assets independently")
	}

	seed := uint64(0x5eed)
	if cfg.Seed != nil {
		seed = *cfg.Seed
	}

	terminals := make([]float64, cfg.NumPaths)
	drawdowns := make([]float64, cfg.NumPaths)

	var wg sync.WaitGroup
	sem := make(chan struct{}, runtime.GOMAXPROCS(0))
	for start := 0; start < cfg.NumPaths; start += batchSize {
		if err := ctx.Err(); err != nil {
			break
		}
		end := start + batchSize
		if end > cfg.NumPaths {
			end = cfg.NumPaths
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(start, end int) {
			defer wg.Done()
			defer func() { <-sem }()
			for path := start; path < end; path++ {
				terminals[path], drawdowns[path] = runPath(model, seed, uint64(path), weights, steps, cfg)
			}
		}(start, end)
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return s.aggregate(terminals, drawdowns, cfg, model.Fallback), nil
}

// runPath simulates one path and returns its terminal value and
// maximum drawdown.
func runPath(model *PathModel, seed, path uint64, weights []float64, steps int, cfg Config) (terminal, maxDrawdown float64) {
	n := len(weights)
	gen := NewPathGenerator(model, seed, path)

	values := make([]float64, n)
	for i := range values {
		values[i] = weights[i] * cfg.InitialInvestment
	}

	growth := make([]float64, n)
	peak := cfg.InitialInvestment

	for t := 0; t < steps; t++ {
		gen.Step(growth)

		var total float64
		for i := range values {
			values[i] *= growth[i]
			total += values[i]
		}

		if cfg.Rebalancing != nil && (t+1)%cfg.Rebalancing.IntervalDays == 0 {
			total, _ = Rebalance(values, weights, total, cfg.Rebalancing.TransactionCostPct)
		}

		if total > peak {
			peak = total
		}
		if dd := total/peak - 1; dd < maxDrawdown {
			maxDrawdown = dd
		}
		terminal = total
	}
	return terminal, maxDrawdown
}

// Rebalance resets asset values to the target weights and deducts the
// transaction cost: costPct × Σ|current_i − target_i| × total. Returns
// the post-cost total and the cost paid.
func Rebalance(values, targets []float64, total, costPct float64) (newTotal, cost float64) {
	if total <= 0 {
		return total, 0
	}
	var traded float64
	for i := range values {
		traded += math.Abs(values[i]/total - targets[i])
	}
	cost = costPct * traded * total
	total -= cost
	for i := range values {
		values[i] = targets[i] * total
	}
	return total, cost
}

func (s *Simulator) aggregate(terminals, drawdowns []float64, cfg Config, fallback bool) *Result {
	result := &Result{
		Percentiles:        make(map[int]float64, len(percentileLevels)),
		NumPaths:           cfg.NumPaths,
		CovarianceFallback: fallback,
	}

	for _, level := range percentileLevels {
		result.Percentiles[level] = formulas.Percentile(terminals, float64(level))
	}
	result.ValueAtRisk95 = result.Percentiles[5]
	result.ExpectedShortfall95 = formulas.TailMean(terminals, 0.05)

	losses := 0
	pathReturns := make([]float64, len(terminals))
	for i, terminal := range terminals {
		if terminal < cfg.InitialInvestment {
			losses++
		}
		pathReturns[i] = math.Pow(terminal/cfg.InitialInvestment, 1.0/cfg.Years) - 1
	}
	result.ProbabilityOfLoss = float64(losses) / float64(len(terminals))
	result.ExpectedReturn = formulas.Mean(pathReturns)
	result.ExpectedVolatility = formulas.StdDev(pathReturns)
	if result.ExpectedVolatility > 0 {
		result.SharpeRatio = (result.ExpectedReturn - cfg.RiskFreeRate) / result.ExpectedVolatility
	}
	result.MaxDrawdown = formulas.Mean(drawdowns)

	return result
}
