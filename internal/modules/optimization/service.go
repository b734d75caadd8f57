package optimization

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/foliotrader/folio/internal/domain"
)

// lookbackYears is the default historical window for moment estimation.
const lookbackYears = 2

// Service composes moment estimation and the solver
type Service struct {
	builder      *InputsBuilder
	optimizer    *Optimizer
	riskFreeRate float64
	log          zerolog.Logger
}

// NewService creates an optimization service
func NewService(builder *InputsBuilder, optimizer *Optimizer, riskFreeRate float64, log zerolog.Logger) *Service {
	return &Service{
		builder:      builder,
		optimizer:    optimizer,
		riskFreeRate: riskFreeRate,
		log:          log.With().Str("service", "optimization").Logger(),
	}
}

// Optimize estimates moments over the trailing window and solves for
// the requested objective. A zero riskFreeRate override uses the
// configured default.
func (s *Service) Optimize(symbols []string, objective Objective, riskFreeRate *float64, targetReturn *float64, constraints Constraints) (*Result, []domain.Warning, error) {
	inputs, warnings, err := s.buildInputs(symbols)
	if err != nil {
		return nil, nil, err
	}
	result, err := s.optimizer.Optimize(*inputs, objective, s.effectiveRate(riskFreeRate), targetReturn, constraints)
	if err != nil {
		return nil, nil, err
	}
	return result, warnings, nil
}

// Frontier traces the efficient frontier for the symbol set.
func (s *Service) Frontier(symbols []string, riskFreeRate *float64, constraints Constraints, numPoints int) ([]Result, []domain.Warning, error) {
	inputs, warnings, err := s.buildInputs(symbols)
	if err != nil {
		return nil, nil, err
	}
	points, err := s.optimizer.Frontier(*inputs, s.effectiveRate(riskFreeRate), constraints, numPoints)
	if err != nil {
		return nil, nil, err
	}
	return points, warnings, nil
}

// BuildInputs exposes moment estimation for sibling modules (the
// simulator and rebalancing analyzer reuse the same mu and sigma).
func (s *Service) BuildInputs(symbols []string) (*Inputs, []domain.Warning, error) {
	return s.buildInputs(symbols)
}

func (s *Service) buildInputs(symbols []string) (*Inputs, []domain.Warning, error) {
	end := time.Now().UTC()
	start := end.AddDate(-lookbackYears, 0, 0)
	return s.builder.Build(symbols, start.Format("2006-01-02"), end.Format("2006-01-02"))
}

func (s *Service) effectiveRate(override *float64) float64 {
	if override != nil {
		return *override
	}
	return s.riskFreeRate
}
