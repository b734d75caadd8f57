package rebalancing

import (
	"errors"
	"fmt"
)

// ErrInvalidRequest is returned for malformed analyzer parameters.
var ErrInvalidRequest = errors.New("invalid rebalancing request")

// Drift is the absolute distance between a symbol's current and target
// weight.
type Drift struct {
	Symbol        string  `json:"symbol"`
	CurrentWeight float64 `json:"current_weight"`
	TargetWeight  float64 `json:"target_weight"`
	Drift         float64 `json:"drift"`
}

// DriftAnalysis reports per-symbol drift against a target allocation.
// ShouldRebalance triggers only when MaxDrift strictly exceeds the
// threshold; drift exactly at the threshold does not trigger.
type DriftAnalysis struct {
	Drifts          []Drift `json:"drifts"`
	MaxDrift        float64 `json:"max_drift"`
	Threshold       float64 `json:"threshold"`
	ShouldRebalance bool    `json:"should_rebalance"`
}

// TimingConfig parameterizes a rebalancing timing study.
type TimingConfig struct {
	InitialInvestment    float64 `json:"initial_investment"`
	Years                float64 `json:"years"`
	DriftThreshold       float64 `json:"drift_threshold"`
	TransactionCostPct   float64 `json:"transaction_cost_pct"`
	MaxRebalancesPerYear *int    `json:"max_rebalances_per_year,omitempty"`
	NumPaths             int     `json:"num_paths,omitempty"` // default 25
	Seed                 *uint64 `json:"seed,omitempty"`
}

// Validate checks the timing study parameters
func (c TimingConfig) Validate() error {
	if c.InitialInvestment <= 0 {
		return fmt.Errorf("%w: initial investment must be positive", ErrInvalidRequest)
	}
	if c.Years <= 0 {
		return fmt.Errorf("%w: years must be positive", ErrInvalidRequest)
	}
	if c.DriftThreshold <= 0 {
		return fmt.Errorf("%w: drift threshold must be positive", ErrInvalidRequest)
	}
	if c.TransactionCostPct < 0 {
		return fmt.Errorf("%w: transaction cost cannot be negative", ErrInvalidRequest)
	}
	if c.MaxRebalancesPerYear != nil && *c.MaxRebalancesPerYear < 0 {
		return fmt.Errorf("%w: max rebalances per year cannot be negative", ErrInvalidRequest)
	}
	return nil
}

// TimingResult summarizes the cost/benefit of threshold rebalancing
// over the horizon. RebalanceDays are trading-day offsets from the
// representative (first) path; costs and improvements are averaged
// across paths. CostBenefitRatio below 1 signals that rebalancing is
// not worth its costs at this threshold.
type TimingResult struct {
	RebalanceDays         []int   `json:"rebalance_days"`
	AvgRebalancesPerYear  float64 `json:"avg_rebalances_per_year"`
	TotalTransactionCosts float64 `json:"total_transaction_costs"`
	CostBenefitRatio      float64 `json:"cost_benefit_ratio"`
	SharpeImprovement     float64 `json:"sharpe_improvement"`
}
