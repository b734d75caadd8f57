package portfolio

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/foliotrader/folio/internal/domain"
)

// OrderSource provides the active order ledger.
type OrderSource interface {
	FindOrders(symbol, asOf string) ([]domain.Order, error)
	Symbols() ([]string, error)
}

// InstrumentSource provides instrument metadata.
type InstrumentSource interface {
	Get(symbol string) (*domain.Instrument, error)
}

// Service values the reconstructed portfolio in base currency.
type Service struct {
	orders        OrderSource
	instruments   InstrumentSource
	prices        PriceSource
	converter     BaseConverter
	reconstructor *Reconstructor
	log           zerolog.Logger
}

// NewService creates a portfolio valuation service
func NewService(orders OrderSource, instruments InstrumentSource, prices PriceSource, converter BaseConverter, log zerolog.Logger) *Service {
	return &Service{
		orders:        orders,
		instruments:   instruments,
		prices:        prices,
		converter:     converter,
		reconstructor: NewReconstructor(prices, converter, log),
		log:           log.With().Str("service", "portfolio").Logger(),
	}
}

// GetSummary reconstructs and values every held symbol as of the given
// date. Symbols whose net quantity is zero are omitted; over-sold
// positions are included with their negative quantity so the data
// problem stays visible.
func (s *Service) GetSummary(asOf string) (*Summary, error) {
	symbols, err := s.orders.Symbols()
	if err != nil {
		return nil, fmt.Errorf("listing order symbols: %w", err)
	}

	summary := &Summary{
		AsOf:         asOf,
		BaseCurrency: string(s.converter.Base()),
		Holdings:     []Holding{},
	}

	for _, symbol := range symbols {
		holding, position, warnings, err := s.valueSymbol(symbol, asOf)
		if err != nil {
			return nil, err
		}
		summary.Warnings = append(summary.Warnings, warnings...)
		if holding == nil {
			continue
		}
		summary.TotalValue += holding.CurrentValue
		summary.TotalCost += position.RemainingCost()
		summary.Holdings = append(summary.Holdings, *holding)
	}

	summary.UnrealizedPnL = summary.TotalValue - summary.TotalCost

	if summary.TotalValue > 0 {
		for i := range summary.Holdings {
			summary.Holdings[i].WeightPct = summary.Holdings[i].CurrentValue / summary.TotalValue * 100
		}
	}

	return summary, nil
}

// GetPosition reconstructs a single symbol's position as of the given date.
func (s *Service) GetPosition(symbol, asOf string) (*Position, []domain.Warning, error) {
	inst, err := s.instruments.Get(symbol)
	if err != nil {
		return nil, nil, fmt.Errorf("loading instrument %s: %w", symbol, err)
	}
	if inst == nil {
		return nil, nil, fmt.Errorf("unknown instrument: %s", symbol)
	}

	orders, err := s.orders.FindOrders(symbol, asOf)
	if err != nil {
		return nil, nil, fmt.Errorf("loading orders for %s: %w", symbol, err)
	}

	pos, warnings, err := s.reconstructor.Reconstruct(symbol, inst.Currency, orders)
	if err != nil {
		return nil, nil, err
	}
	return &pos, warnings, nil
}

func (s *Service) valueSymbol(symbol, asOf string) (*Holding, *Position, []domain.Warning, error) {
	inst, err := s.instruments.Get(symbol)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading instrument %s: %w", symbol, err)
	}
	if inst == nil {
		// Orders can reference symbols that were never added to the
		// universe; skip them rather than failing the whole summary.
		s.log.Warn().Str("symbol", symbol).Msg("orders reference unknown instrument, skipping")
		return nil, nil, nil, nil
	}

	orders, err := s.orders.FindOrders(symbol, asOf)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading orders for %s: %w", symbol, err)
	}

	pos, warnings, err := s.reconstructor.Reconstruct(symbol, inst.Currency, orders)
	if err != nil {
		return nil, nil, nil, err
	}
	if pos.NetQuantity == 0 {
		return nil, nil, warnings, nil
	}

	point, err := s.prices.GetCloseOnOrBefore(symbol, asOf)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading price for %s: %w", symbol, err)
	}
	if point == nil {
		warnings = append(warnings, domain.Warning{
			Code:    domain.WarnMissingClosePrice,
			Symbol:  symbol,
			Date:    asOf,
			Message: fmt.Sprintf("no close price on or before %s; position not valued", asOf),
		})
		return nil, nil, warnings, nil
	}

	priceBase, err := s.converter.ConvertToBase(point.Close, inst.Currency, &point.Date)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("converting price for %s: %w", symbol, err)
	}

	value := pos.NetQuantity * priceBase
	holding := &Holding{
		Symbol:             symbol,
		Name:               inst.Name,
		Quantity:           pos.NetQuantity,
		AverageCost:        pos.AverageCostBasis,
		CurrentPrice:       priceBase,
		CurrentValue:       value,
		UnrealizedGainLoss: value - pos.RemainingCost(),
		Currency:           string(s.converter.Base()),
	}
	return holding, &pos, warnings, nil
}
