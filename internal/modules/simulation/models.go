package simulation

import (
	"errors"
	"fmt"
)

// ErrInvalidRequest is returned for malformed simulation parameters.
var ErrInvalidRequest = errors.New("invalid simulation request")

// WarnCovarianceFallback marks a covariance matrix that was not
// positive definite, where correlated sampling degraded to independent
// per-asset draws.
const WarnCovarianceFallback = "covariance_diagonal_fallback"

// Rebalancing configures periodic rebalancing inside a simulation.
type Rebalancing struct {
	IntervalDays       int     `json:"interval_days"`        // trading days between rebalances
	TransactionCostPct float64 `json:"transaction_cost_pct"` // fraction of traded value
}

// Config parameterizes one simulation run.
type Config struct {
	InitialInvestment float64      `json:"initial_investment"`
	Years             float64      `json:"years"`
	NumPaths          int          `json:"num_paths"`
	RiskFreeRate      float64      `json:"risk_free_rate"`
	Seed              *uint64      `json:"seed,omitempty"`
	Rebalancing       *Rebalancing `json:"rebalancing,omitempty"`
}

// Validate checks the simulation parameters
func (c Config) Validate() error {
	if c.InitialInvestment <= 0 {
		return fmt.Errorf("%w: initial investment must be positive", ErrInvalidRequest)
	}
	if c.Years <= 0 {
		return fmt.Errorf("%w: years must be positive", ErrInvalidRequest)
	}
	if c.NumPaths <= 0 {
		return fmt.Errorf("%w: num_paths must be positive", ErrInvalidRequest)
	}
	if c.Rebalancing != nil {
		if c.Rebalancing.IntervalDays <= 0 {
			return fmt.Errorf("%w: rebalancing interval must be positive", ErrInvalidRequest)
		}
		if c.Rebalancing.TransactionCostPct < 0 {
			return fmt.Errorf("%w: transaction cost cannot be negative", ErrInvalidRequest)
		}
	}
	return nil
}

// Result summarizes the terminal-value distribution of a run.
// MaxDrawdown is the mean of per-path maximum drawdowns (non-positive).
// ValueAtRisk95 is the 5th percentile of terminal portfolio value, a
// currency amount, unlike the return-based VaR in pkg/formulas.
type Result struct {
	Percentiles        map[int]float64 `json:"percentiles"`
	ProbabilityOfLoss  float64         `json:"probability_of_loss"`
	ExpectedReturn     float64         `json:"expected_return"`
	ExpectedVolatility float64         `json:"expected_volatility"`
	SharpeRatio        float64         `json:"sharpe_ratio"`
	MaxDrawdown        float64         `json:"max_drawdown"`
	ValueAtRisk95      float64         `json:"value_at_risk_95"`
	// ExpectedShortfall95 is the mean terminal value of the worst 5% of
	// paths, always at or below ValueAtRisk95.
	ExpectedShortfall95 float64 `json:"expected_shortfall_95"`
	NumPaths           int             `json:"num_paths"`
	CovarianceFallback bool            `json:"covariance_fallback,omitempty"`
}
