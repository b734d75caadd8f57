package portfolio

import (
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foliotrader/folio/internal/domain"
)

type fakeOrders struct {
	orders map[string][]domain.Order
}

func (f *fakeOrders) FindOrders(symbol, asOf string) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range f.orders[symbol] {
		if o.TradeDate <= asOf {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOrders) Symbols() ([]string, error) {
	var symbols []string
	for s := range f.orders {
		symbols = append(symbols, s)
	}
	return symbols, nil
}

type fakeInstruments struct {
	instruments map[string]domain.Instrument
}

func (f *fakeInstruments) Get(symbol string) (*domain.Instrument, error) {
	inst, ok := f.instruments[symbol]
	if !ok {
		return nil, nil
	}
	return &inst, nil
}

type multiPrices struct {
	closes map[string]float64 // symbol -> close for any date
}

func (f *multiPrices) GetLatestPrice(symbol string) (*domain.PricePoint, error) {
	return f.GetCloseOnOrBefore(symbol, "")
}

func (f *multiPrices) GetCloseOnOrBefore(symbol, date string) (*domain.PricePoint, error) {
	close, ok := f.closes[symbol]
	if !ok {
		return nil, nil
	}
	return &domain.PricePoint{Symbol: symbol, Date: date, Close: close}, nil
}

// halvingConverter treats 1 USD = 2 AUD so conversion effects show up
// unmistakably in the assertions.
type halvingConverter struct{}

func (halvingConverter) Base() domain.Currency { return domain.CurrencyAUD }

func (halvingConverter) ConvertToBase(amount float64, from domain.Currency, date *string) (float64, error) {
	if from == domain.CurrencyAUD {
		return amount, nil
	}
	return amount * 2, nil
}

func TestGetSummaryValuesInBaseCurrency(t *testing.T) {
	orders := &fakeOrders{orders: map[string][]domain.Order{
		"VAS.AU":  {buy("VAS.AU", 10, 100, "2023-01-01")},
		"AAPL.US": {buy("AAPL.US", 5, 100, "2023-01-01")},
	}}
	instruments := &fakeInstruments{instruments: map[string]domain.Instrument{
		"VAS.AU":  {Symbol: "VAS.AU", Name: "Vanguard Australian Shares", Currency: domain.CurrencyAUD},
		"AAPL.US": {Symbol: "AAPL.US", Name: "Apple", Currency: domain.CurrencyUSD},
	}}
	prices := &multiPrices{closes: map[string]float64{"VAS.AU": 110, "AAPL.US": 120}}

	svc := NewService(orders, instruments, prices, halvingConverter{}, zerolog.Nop())

	summary, err := svc.GetSummary("2023-12-31")
	require.NoError(t, err)
	require.Len(t, summary.Holdings, 2)

	bySymbol := map[string]Holding{}
	for _, h := range summary.Holdings {
		bySymbol[h.Symbol] = h
	}

	// VAS: 10 × 110 AUD. AAPL: 5 × 120 USD × 2 = 1200 AUD.
	assert.InDelta(t, 1100, bySymbol["VAS.AU"].CurrentValue, 1e-9)
	assert.InDelta(t, 1200, bySymbol["AAPL.US"].CurrentValue, 1e-9)
	assert.InDelta(t, 2300, summary.TotalValue, 1e-9)

	// AAPL cost: 5 × 100 USD × 2 = 1000 AUD, basis 200 AUD/share.
	assert.InDelta(t, 200, bySymbol["AAPL.US"].AverageCost, 1e-9)
	assert.InDelta(t, 200, bySymbol["AAPL.US"].UnrealizedGainLoss, 1e-9)

	assert.Equal(t, "AUD", summary.BaseCurrency)
	assert.InDelta(t, 2000, summary.TotalCost, 1e-9)
	assert.InDelta(t, 300, summary.UnrealizedPnL, 1e-9)
}

func TestGetSummaryWeightsSumToHundred(t *testing.T) {
	orders := &fakeOrders{orders: map[string][]domain.Order{
		"VAS.AU": {buy("VAS.AU", 10, 100, "2023-01-01")},
		"NDQ.AU": {buy("NDQ.AU", 30, 25, "2023-01-01")},
	}}
	instruments := &fakeInstruments{instruments: map[string]domain.Instrument{
		"VAS.AU": {Symbol: "VAS.AU", Currency: domain.CurrencyAUD},
		"NDQ.AU": {Symbol: "NDQ.AU", Currency: domain.CurrencyAUD},
	}}
	prices := &multiPrices{closes: map[string]float64{"VAS.AU": 100, "NDQ.AU": 30}}

	svc := NewService(orders, instruments, prices, identityConverter{}, zerolog.Nop())

	summary, err := svc.GetSummary("2023-12-31")
	require.NoError(t, err)

	var totalWeight float64
	for _, h := range summary.Holdings {
		totalWeight += h.WeightPct
	}
	assert.InDelta(t, 100, totalWeight, 1e-9)
}

func TestGetSummaryPartialSellKeepsRemainingBasis(t *testing.T) {
	// Buy 20 @ 100, sell 10, price unchanged: the 10 shares left carry
	// basis 1000, so unrealized P/L is exactly zero. Comparing against
	// the cost of all buys ever made would book the sold shares' cost
	// as a phantom loss.
	orders := &fakeOrders{orders: map[string][]domain.Order{
		"VAS.AU": {
			buy("VAS.AU", 20, 100, "2023-01-01"),
			sell("VAS.AU", 10, 100, "2023-06-01"),
		},
	}}
	instruments := &fakeInstruments{instruments: map[string]domain.Instrument{
		"VAS.AU": {Symbol: "VAS.AU", Currency: domain.CurrencyAUD},
	}}
	prices := &multiPrices{closes: map[string]float64{"VAS.AU": 100}}

	svc := NewService(orders, instruments, prices, identityConverter{}, zerolog.Nop())

	summary, err := svc.GetSummary("2023-12-31")
	require.NoError(t, err)
	require.Len(t, summary.Holdings, 1)

	h := summary.Holdings[0]
	assert.InDelta(t, 10, h.Quantity, 1e-9)
	assert.InDelta(t, 100, h.AverageCost, 1e-9)
	assert.InDelta(t, 1000, h.CurrentValue, 1e-9)
	assert.InDelta(t, 0, h.UnrealizedGainLoss, 1e-9)

	assert.InDelta(t, 1000, summary.TotalCost, 1e-9)
	assert.InDelta(t, 0, summary.UnrealizedPnL, 1e-9)
}

func TestGetSummarySkipsClosedPositions(t *testing.T) {
	orders := &fakeOrders{orders: map[string][]domain.Order{
		"VAS.AU": {
			buy("VAS.AU", 10, 100, "2023-01-01"),
			sell("VAS.AU", 10, 110, "2023-06-01"),
		},
	}}
	instruments := &fakeInstruments{instruments: map[string]domain.Instrument{
		"VAS.AU": {Symbol: "VAS.AU", Currency: domain.CurrencyAUD},
	}}
	prices := &multiPrices{closes: map[string]float64{"VAS.AU": 120}}

	svc := NewService(orders, instruments, prices, identityConverter{}, zerolog.Nop())

	summary, err := svc.GetSummary("2023-12-31")
	require.NoError(t, err)
	assert.Empty(t, summary.Holdings)
	assert.Zero(t, summary.TotalValue)
}

func TestGetSummaryAsOfExcludesLaterOrders(t *testing.T) {
	orders := &fakeOrders{orders: map[string][]domain.Order{
		"VAS.AU": {
			buy("VAS.AU", 10, 100, "2023-01-01"),
			buy("VAS.AU", 10, 120, "2023-06-01"),
		},
	}}
	instruments := &fakeInstruments{instruments: map[string]domain.Instrument{
		"VAS.AU": {Symbol: "VAS.AU", Currency: domain.CurrencyAUD},
	}}
	prices := &multiPrices{closes: map[string]float64{"VAS.AU": 105}}

	svc := NewService(orders, instruments, prices, identityConverter{}, zerolog.Nop())

	summary, err := svc.GetSummary("2023-03-01")
	require.NoError(t, err)
	require.Len(t, summary.Holdings, 1)
	assert.Equal(t, float64(10), summary.Holdings[0].Quantity)
	assert.True(t, math.Abs(summary.Holdings[0].AverageCost-100) < 1e-9)
}
