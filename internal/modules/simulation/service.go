package simulation

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/foliotrader/folio/internal/domain"
	"github.com/foliotrader/folio/internal/modules/optimization"
)

// MomentSource estimates annualized mu and sigma for a symbol set.
type MomentSource interface {
	BuildInputs(symbols []string) (*optimization.Inputs, []domain.Warning, error)
}

// Service wires historical moment estimation to the simulator
type Service struct {
	moments   MomentSource
	simulator *Simulator
	maxPaths  int
	log       zerolog.Logger
}

// NewService creates a simulation service
func NewService(moments MomentSource, simulator *Simulator, maxPaths int, log zerolog.Logger) *Service {
	return &Service{
		moments:   moments,
		simulator: simulator,
		maxPaths:  maxPaths,
		log:       log.With().Str("service", "simulation").Logger(),
	}
}

// Simulate estimates moments for the symbols and runs the projection.
// Weights are ordered parallel to symbols. Path counts above the
// configured maximum are rejected rather than silently truncated.
func (s *Service) Simulate(ctx context.Context, symbols []string, weights []float64, cfg Config) (*Result, []domain.Warning, error) {
	if len(symbols) != len(weights) {
		return nil, nil, fmt.Errorf("%w: %d symbols but %d weights", ErrInvalidRequest, len(symbols), len(weights))
	}
	if s.maxPaths > 0 && cfg.NumPaths > s.maxPaths {
		return nil, nil, fmt.Errorf("%w: num_paths %d exceeds maximum %d", ErrInvalidRequest, cfg.NumPaths, s.maxPaths)
	}

	inputs, warnings, err := s.moments.BuildInputs(symbols)
	if err != nil {
		return nil, nil, err
	}

	result, err := s.simulator.Run(ctx, inputs.Mu, inputs.Sigma, weights, cfg)
	if err != nil {
		return nil, nil, err
	}
	if result.CovarianceFallback {
		warnings = append(warnings, domain.Warning{
			Code:    WarnCovarianceFallback,
			Message: "covariance matrix not positive definite; assets sampled independently",
		})
	}

	s.log.Info().
		Int("paths", cfg.NumPaths).
		Float64("years", cfg.Years).
		Float64("median_terminal", result.Percentiles[50]).
		Msg("simulation complete")

	return result, warnings, nil
}
