package dividends

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foliotrader/folio/internal/domain"
)

type fakeDividends struct {
	dividends []domain.Dividend
}

func (f *fakeDividends) ListBySymbol(symbol, start, end string) ([]domain.Dividend, error) {
	var out []domain.Dividend
	for _, d := range f.dividends {
		if d.Symbol == symbol && d.Date >= start && d.Date <= end {
			out = append(out, d)
		}
	}
	return out, nil
}

type fakePrices struct {
	point *domain.PricePoint
}

func (f *fakePrices) GetLatestPrice(symbol string) (*domain.PricePoint, error) {
	return f.point, nil
}

type doublingConverter struct{}

func (doublingConverter) ConvertToBase(amount float64, from domain.Currency, date *string) (float64, error) {
	if from == domain.CurrencyAUD {
		return amount, nil
	}
	return amount * 2, nil
}

func TestTTMYieldSumsTrailingYearInBase(t *testing.T) {
	source := &fakeDividends{dividends: []domain.Dividend{
		{ID: 1, Symbol: "AAPL.US", Date: "2026-06-01", Amount: 1.0, Currency: domain.CurrencyUSD},
		{ID: 2, Symbol: "AAPL.US", Date: "2026-03-01", Amount: 1.0, Currency: domain.CurrencyUSD},
		{ID: 3, Symbol: "AAPL.US", Date: "2020-01-01", Amount: 5.0, Currency: domain.CurrencyUSD}, // outside window
	}}
	prices := &fakePrices{point: &domain.PricePoint{Symbol: "AAPL.US", Date: "2026-08-31", Close: 100}}

	svc := NewService(source, prices, doublingConverter{}, zerolog.Nop())

	yield, err := svc.TTMYield("AAPL.US", domain.CurrencyUSD)
	require.NoError(t, err)
	require.NotNil(t, yield)

	// Two 1 USD dividends double to 4 AUD; the 100 USD close doubles
	// to 200 AUD.
	assert.InDelta(t, 4.0, yield.TTMDividend, 1e-9)
	assert.InDelta(t, 200.0, yield.Price, 1e-9)
	assert.InDelta(t, 2.0, yield.YieldPct, 1e-9)
}

func TestTTMYieldNoPriceHistory(t *testing.T) {
	svc := NewService(&fakeDividends{}, &fakePrices{}, doublingConverter{}, zerolog.Nop())

	yield, err := svc.TTMYield("GHOST.AU", domain.CurrencyAUD)
	require.NoError(t, err)
	assert.Nil(t, yield)
}
