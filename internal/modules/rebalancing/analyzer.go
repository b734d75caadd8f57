package rebalancing

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/foliotrader/folio/internal/modules/simulation"
	"github.com/foliotrader/folio/pkg/formulas"
)

// defaultTimingPaths is how many representative paths a timing study
// averages over when the caller does not say.
const defaultTimingPaths = 25

// driftEpsilon absorbs floating-point noise in the drift comparison so
// a drift that is exactly at the threshold never triggers. Without it,
// weights like 0.65 vs 0.60 produce |diff| a few ULPs above 0.05.
const driftEpsilon = 1e-9

// Analyzer evaluates allocation drift and the economics of threshold
// rebalancing.
type Analyzer struct {
	log zerolog.Logger
}

// NewAnalyzer creates a rebalancing analyzer
func NewAnalyzer(log zerolog.Logger) *Analyzer {
	return &Analyzer{log: log.With().Str("component", "rebalancing_analyzer").Logger()}
}

// AnalyzeDrift compares current weights to targets. The trigger is
// strict: max drift equal to the threshold does not recommend a
// rebalance.
func (a *Analyzer) AnalyzeDrift(symbols []string, current, target []float64, threshold float64) (*DriftAnalysis, error) {
	if len(symbols) == 0 || len(current) != len(symbols) || len(target) != len(symbols) {
		return nil, fmt.Errorf("%w: symbols, current and target must agree in size", ErrInvalidRequest)
	}
	if threshold <= 0 {
		return nil, fmt.Errorf("%w: drift threshold must be positive", ErrInvalidRequest)
	}

	analysis := &DriftAnalysis{
		Drifts:    make([]Drift, len(symbols)),
		Threshold: threshold,
	}
	for i, symbol := range symbols {
		drift := math.Abs(current[i] - target[i])
		analysis.Drifts[i] = Drift{
			Symbol:        symbol,
			CurrentWeight: current[i],
			TargetWeight:  target[i],
			Drift:         drift,
		}
		if drift > analysis.MaxDrift {
			analysis.MaxDrift = drift
		}
	}
	analysis.ShouldRebalance = exceedsThreshold(analysis.MaxDrift, threshold)
	return analysis, nil
}

// AnalyzeTiming simulates threshold-triggered rebalancing over the
// horizon on GBM paths and weighs its benefit against its costs.
//
// Each path evolves a rebalanced and a buy-and-hold portfolio under
// identical daily shocks. A rebalance fires on any day the max drift
// strictly exceeds the threshold, capped (earliest wins) when
// MaxRebalancesPerYear is set. The benefit is measured as the
// reduction in terminal-value dispersion the rebalancing buys;
// CostBenefitRatio divides that by the cumulative transaction costs.
func (a *Analyzer) AnalyzeTiming(ctx context.Context, mu []float64, sigma [][]float64, target []float64, cfg TimingConfig) (*TimingResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	n := len(target)
	if n == 0 || len(mu) != n || len(sigma) != n {
		return nil, fmt.Errorf("%w: mu, sigma and target weights must agree in size", ErrInvalidRequest)
	}

	numPaths := cfg.NumPaths
	if numPaths <= 0 {
		numPaths = defaultTimingPaths
	}
	steps := int(cfg.Years * formulas.TradingDaysPerYear)
	if steps == 0 {
		return nil, fmt.Errorf("%w: horizon shorter than one trading day", ErrInvalidRequest)
	}

	seed := uint64(0x2eba1)
	if cfg.Seed != nil {
		seed = *cfg.Seed
	}

	model := simulation.NewPathModel(mu, sigma)
	if model.Fallback {
		a.log.Warn().Msg("covariance not positive definite, sampling assets independently")
	}

	var rebalanceDays []int
	terminalsReb := make([]float64, numPaths)
	terminalsHold := make([]float64, numPaths)
	costsPerPath := make([]float64, numPaths)
	rebalancesPerPath := make([]int, numPaths)

	for path := 0; path < numPaths; path++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		gen := simulation.NewPathGenerator(model, seed, uint64(path))
		reb := make([]float64, n)
		hold := make([]float64, n)
		for i := 0; i < n; i++ {
			reb[i] = target[i] * cfg.InitialInvestment
			hold[i] = target[i] * cfg.InitialInvestment
		}

		growth := make([]float64, n)
		rebalancesThisYear := 0
		year := 0

		for t := 0; t < steps; t++ {
			if t/formulas.TradingDaysPerYear != year {
				year = t / formulas.TradingDaysPerYear
				rebalancesThisYear = 0
			}

			gen.Step(growth)
			var totalReb, totalHold float64
			for i := 0; i < n; i++ {
				reb[i] *= growth[i]
				hold[i] *= growth[i]
				totalReb += reb[i]
				totalHold += hold[i]
			}

			if exceedsThreshold(maxDrift(reb, target, totalReb), cfg.DriftThreshold) && a.underCap(cfg, rebalancesThisYear) {
				var cost float64
				_, cost = simulation.Rebalance(reb, target, totalReb, cfg.TransactionCostPct)
				costsPerPath[path] += cost
				rebalancesPerPath[path]++
				rebalancesThisYear++
				if path == 0 {
					rebalanceDays = append(rebalanceDays, t)
				}
			}
		}

		terminalsReb[path] = sum(reb)
		terminalsHold[path] = sum(hold)
	}

	return a.buildResult(rebalanceDays, terminalsReb, terminalsHold, costsPerPath, rebalancesPerPath, cfg), nil
}

func (a *Analyzer) underCap(cfg TimingConfig, rebalancesThisYear int) bool {
	return cfg.MaxRebalancesPerYear == nil || rebalancesThisYear < *cfg.MaxRebalancesPerYear
}

func (a *Analyzer) buildResult(rebalanceDays []int, terminalsReb, terminalsHold, costsPerPath []float64, rebalancesPerPath []int, cfg TimingConfig) *TimingResult {
	numPaths := len(terminalsReb)

	var totalRebalances int
	for _, c := range rebalancesPerPath {
		totalRebalances += c
	}

	result := &TimingResult{
		RebalanceDays:         rebalanceDays,
		AvgRebalancesPerYear:  float64(totalRebalances) / float64(numPaths) / cfg.Years,
		TotalTransactionCosts: formulas.Mean(costsPerPath),
	}

	result.SharpeImprovement = pathSharpe(terminalsReb, cfg) - pathSharpe(terminalsHold, cfg)

	// Benefit is the dispersion the rebalancing removes, in currency.
	benefit := formulas.StdDev(terminalsHold) - formulas.StdDev(terminalsReb)
	if result.TotalTransactionCosts > 0 {
		result.CostBenefitRatio = benefit / result.TotalTransactionCosts
	}

	return result
}

// pathSharpe computes the Sharpe ratio of annualized per-path returns.
func pathSharpe(terminals []float64, cfg TimingConfig) float64 {
	returns := make([]float64, len(terminals))
	for i, terminal := range terminals {
		returns[i] = math.Pow(terminal/cfg.InitialInvestment, 1.0/cfg.Years) - 1
	}
	vol := formulas.StdDev(returns)
	if vol == 0 {
		return 0
	}
	return formulas.Mean(returns) / vol
}

// exceedsThreshold is the strict trigger comparison. Drift at the
// threshold, up to floating-point noise, does not rebalance.
func exceedsThreshold(drift, threshold float64) bool {
	return drift > threshold+driftEpsilon
}

func maxDrift(values, target []float64, total float64) float64 {
	if total <= 0 {
		return 0
	}
	var max float64
	for i := range values {
		if d := math.Abs(values[i]/total - target[i]); d > max {
			max = d
		}
	}
	return max
}

func sum(values []float64) float64 {
	var s float64
	for _, v := range values {
		s += v
	}
	return s
}
