package dividends

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/foliotrader/folio/internal/domain"
)

// DividendSource provides recorded dividends per symbol.
type DividendSource interface {
	ListBySymbol(symbol, start, end string) ([]domain.Dividend, error)
}

// PriceSource provides the latest close per symbol.
type PriceSource interface {
	GetLatestPrice(symbol string) (*domain.PricePoint, error)
}

// BaseConverter converts dividend amounts into the base currency.
type BaseConverter interface {
	ConvertToBase(amount float64, from domain.Currency, date *string) (float64, error)
}

// InstrumentSource provides instrument metadata.
type InstrumentSource interface {
	Get(symbol string) (*domain.Instrument, error)
}

// Yield is a trailing-twelve-month dividend yield for one symbol.
type Yield struct {
	Symbol      string  `json:"symbol"`
	TTMDividend float64 `json:"ttm_dividend"` // base currency, per share basis not applied
	Price       float64 `json:"price"`        // latest close in base currency
	YieldPct    float64 `json:"yield_pct"`
}

// Service computes dividend income metrics
type Service struct {
	dividends DividendSource
	prices    PriceSource
	converter BaseConverter
	log       zerolog.Logger
}

// NewService creates a dividend service
func NewService(dividends DividendSource, prices PriceSource, converter BaseConverter, log zerolog.Logger) *Service {
	return &Service{
		dividends: dividends,
		prices:    prices,
		converter: converter,
		log:       log.With().Str("service", "dividends").Logger(),
	}
}

// TTMYield sums the trailing twelve months of per-share dividends in
// base currency and relates them to the latest close. Returns nil when
// the symbol has no price history to yield against.
func (s *Service) TTMYield(symbol string, instrumentCurrency domain.Currency) (*Yield, error) {
	end := time.Now().UTC()
	start := end.AddDate(-1, 0, 0)

	received, err := s.dividends.ListBySymbol(symbol, start.Format("2006-01-02"), end.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("loading dividends for %s: %w", symbol, err)
	}

	var total float64
	for _, d := range received {
		date := d.Date
		amount, err := s.converter.ConvertToBase(d.Amount, d.Currency, &date)
		if err != nil {
			return nil, fmt.Errorf("converting dividend %d: %w", d.ID, err)
		}
		total += amount
	}

	point, err := s.prices.GetLatestPrice(symbol)
	if err != nil {
		return nil, fmt.Errorf("loading price for %s: %w", symbol, err)
	}
	if point == nil {
		return nil, nil
	}

	price, err := s.converter.ConvertToBase(point.Close, instrumentCurrency, &point.Date)
	if err != nil {
		return nil, fmt.Errorf("converting price for %s: %w", symbol, err)
	}

	yield := &Yield{
		Symbol:      symbol,
		TTMDividend: total,
		Price:       price,
	}
	if price > 0 {
		yield.YieldPct = total / price * 100
	}
	return yield, nil
}
