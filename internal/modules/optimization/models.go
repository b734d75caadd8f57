package optimization

import (
	"errors"
	"fmt"
	"strings"
)

// Objective selects the optimization target
type Objective string

const (
	ObjectiveMaxSharpe     Objective = "MAX_SHARPE"
	ObjectiveMinVolatility Objective = "MIN_VOLATILITY"
	ObjectiveTargetReturn  Objective = "TARGET_RETURN"
	ObjectiveMaxReturn     Objective = "MAX_RETURN"
)

// ObjectiveFromString parses an objective name (case-insensitive)
func ObjectiveFromString(value string) (Objective, error) {
	switch Objective(strings.ToUpper(strings.TrimSpace(value))) {
	case ObjectiveMaxSharpe:
		return ObjectiveMaxSharpe, nil
	case ObjectiveMinVolatility:
		return ObjectiveMinVolatility, nil
	case ObjectiveTargetReturn:
		return ObjectiveTargetReturn, nil
	case ObjectiveMaxReturn:
		return ObjectiveMaxReturn, nil
	default:
		return "", fmt.Errorf("unknown objective: %q", value)
	}
}

// ErrInsufficientData is returned when fewer than two symbols are given
// or their historical return series cannot be aligned.
var ErrInsufficientData = errors.New("insufficient historical data")

// ErrUnachievableTarget is returned when a target return lies outside
// the range reachable under the weight bounds.
var ErrUnachievableTarget = errors.New("target return outside achievable range")

// Constraints holds per-symbol weight bounds. Zero value means the
// default long-only bounds [0, 1] for every symbol.
type Constraints struct {
	MinWeights map[string]float64 `json:"min_weights,omitempty"`
	MaxWeights map[string]float64 `json:"max_weights,omitempty"`
}

// bounds materializes the lower/upper bound vectors for an ordered
// symbol list.
func (c Constraints) bounds(symbols []string) (lo, hi []float64) {
	lo = make([]float64, len(symbols))
	hi = make([]float64, len(symbols))
	for i, symbol := range symbols {
		hi[i] = 1.0
		if v, ok := c.MinWeights[symbol]; ok {
			lo[i] = v
		}
		if v, ok := c.MaxWeights[symbol]; ok {
			hi[i] = v
		}
	}
	return lo, hi
}

// Result is an optimized portfolio. Weights are ordered parallel to
// Symbols and sum to 1 within tolerance. Converged=false carries the
// best-found weights when the solver missed its tolerance; callers
// decide whether to reject.
type Result struct {
	Symbols        []string  `json:"symbols"`
	Weights        []float64 `json:"weights"`
	ExpectedReturn float64   `json:"expected_return"`
	Volatility     float64   `json:"volatility"`
	SharpeRatio    float64   `json:"sharpe_ratio"`
	Converged      bool      `json:"converged"`
}

// Inputs are the annualized moment estimates the solver works on:
// expected return vector mu and covariance matrix sigma, both ordered
// parallel to Symbols.
type Inputs struct {
	Symbols []string
	Mu      []float64
	Sigma   [][]float64
}
