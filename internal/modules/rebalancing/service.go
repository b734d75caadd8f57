package rebalancing

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/foliotrader/folio/internal/domain"
	"github.com/foliotrader/folio/internal/modules/optimization"
)

// MomentSource estimates annualized mu and sigma for a symbol set.
type MomentSource interface {
	BuildInputs(symbols []string) (*optimization.Inputs, []domain.Warning, error)
}

// Service wires moment estimation to the drift and timing analyzers
type Service struct {
	moments  MomentSource
	analyzer *Analyzer
	log      zerolog.Logger
}

// NewService creates a rebalancing service
func NewService(moments MomentSource, analyzer *Analyzer, log zerolog.Logger) *Service {
	return &Service{
		moments:  moments,
		analyzer: analyzer,
		log:      log.With().Str("service", "rebalancing").Logger(),
	}
}

// AnalyzeDrift checks the current allocation against targets.
func (s *Service) AnalyzeDrift(symbols []string, current, target []float64, threshold float64) (*DriftAnalysis, error) {
	return s.analyzer.AnalyzeDrift(symbols, current, target, threshold)
}

// AnalyzeTiming estimates historical moments for the symbols and runs
// the timing study against the target allocation.
func (s *Service) AnalyzeTiming(ctx context.Context, symbols []string, target []float64, cfg TimingConfig) (*TimingResult, []domain.Warning, error) {
	inputs, warnings, err := s.moments.BuildInputs(symbols)
	if err != nil {
		return nil, nil, err
	}
	result, err := s.analyzer.AnalyzeTiming(ctx, inputs.Mu, inputs.Sigma, target, cfg)
	if err != nil {
		return nil, nil, err
	}
	return result, warnings, nil
}
