package portfolio

import (
	"math"
	"testing"

	"github.com/rs/zerolog"

	"github.com/foliotrader/folio/internal/domain"
)

type fakePrices struct {
	closes map[string]float64 // date -> close, same for all symbols
	latest *domain.PricePoint
}

func (f *fakePrices) GetLatestPrice(symbol string) (*domain.PricePoint, error) {
	return f.latest, nil
}

func (f *fakePrices) GetCloseOnOrBefore(symbol, date string) (*domain.PricePoint, error) {
	close, ok := f.closes[date]
	if !ok {
		return nil, nil
	}
	return &domain.PricePoint{Symbol: symbol, Date: date, Close: close}, nil
}

type identityConverter struct{}

func (identityConverter) Base() domain.Currency { return domain.CurrencyAUD }

func (identityConverter) ConvertToBase(amount float64, from domain.Currency, date *string) (float64, error) {
	return amount, nil
}

func ptr(v float64) *float64 { return &v }

func buy(symbol string, volume, price float64, date string) domain.Order {
	return domain.Order{Symbol: symbol, Side: domain.OrderSideBuy, Volume: volume, UnitPrice: ptr(price), TradeDate: date, Active: true}
}

func sell(symbol string, volume, price float64, date string) domain.Order {
	return domain.Order{Symbol: symbol, Side: domain.OrderSideSell, Volume: volume, UnitPrice: ptr(price), TradeDate: date, Active: true}
}

func newTestReconstructor(prices PriceSource) *Reconstructor {
	return NewReconstructor(prices, identityConverter{}, zerolog.Nop())
}

func TestReconstructVolumeWeightedCostBasis(t *testing.T) {
	rc := newTestReconstructor(&fakePrices{})

	orders := []domain.Order{
		buy("AAPL.US", 10, 100, "2023-01-01"),
		buy("AAPL.US", 10, 120, "2023-06-01"),
	}

	pos, warnings, err := rc.Reconstruct("AAPL.US", domain.CurrencyAUD, orders)
	if err != nil {
		t.Fatalf("Reconstruct failed: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("expected no warnings, got %v", warnings)
	}
	if pos.NetQuantity != 20 {
		t.Errorf("expected net quantity 20, got %v", pos.NetQuantity)
	}
	if math.Abs(pos.AverageCostBasis-110) > 1e-9 {
		t.Errorf("expected average cost basis 110, got %v", pos.AverageCostBasis)
	}
}

func TestReconstructSellsReduceQuantityNotBasis(t *testing.T) {
	rc := newTestReconstructor(&fakePrices{})

	orders := []domain.Order{
		buy("VAS.AU", 100, 90, "2023-01-01"),
		sell("VAS.AU", 40, 95, "2023-03-01"),
	}

	pos, _, err := rc.Reconstruct("VAS.AU", domain.CurrencyAUD, orders)
	if err != nil {
		t.Fatalf("Reconstruct failed: %v", err)
	}
	if pos.NetQuantity != 60 {
		t.Errorf("expected net quantity 60, got %v", pos.NetQuantity)
	}
	// Sells never move the basis: it stays the buy price.
	if math.Abs(pos.AverageCostBasis-90) > 1e-9 {
		t.Errorf("expected average cost basis 90, got %v", pos.AverageCostBasis)
	}
}

func TestReconstructOverSoldFlaggedNotClamped(t *testing.T) {
	rc := newTestReconstructor(&fakePrices{})

	orders := []domain.Order{
		buy("GOOG.US", 5, 100, "2023-01-01"),
		sell("GOOG.US", 8, 110, "2023-02-01"),
	}

	pos, _, err := rc.Reconstruct("GOOG.US", domain.CurrencyUSD, orders)
	if err != nil {
		t.Fatalf("Reconstruct failed: %v", err)
	}
	if pos.NetQuantity != -3 {
		t.Errorf("expected net quantity -3, got %v", pos.NetQuantity)
	}
	if !pos.OverSold {
		t.Error("expected over-sold position to be flagged")
	}
}

func TestReconstructLegacyOrderUsesPriorClose(t *testing.T) {
	prices := &fakePrices{closes: map[string]float64{"2023-01-07": 50}}
	rc := newTestReconstructor(prices)

	// Legacy row with no unit price; 2023-01-07 close stands in.
	orders := []domain.Order{
		{Symbol: "CSL.AU", Side: domain.OrderSideBuy, Volume: 10, TradeDate: "2023-01-07", Active: true},
		buy("CSL.AU", 10, 70, "2023-02-01"),
	}

	pos, warnings, err := rc.Reconstruct("CSL.AU", domain.CurrencyAUD, orders)
	if err != nil {
		t.Fatalf("Reconstruct failed: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("expected no warnings, got %v", warnings)
	}
	if math.Abs(pos.AverageCostBasis-60) > 1e-9 {
		t.Errorf("expected average cost basis 60, got %v", pos.AverageCostBasis)
	}
}

func TestReconstructMissingCloseExcludedFromBasis(t *testing.T) {
	rc := newTestReconstructor(&fakePrices{}) // no closes at all

	orders := []domain.Order{
		{Symbol: "BHP.AU", Side: domain.OrderSideBuy, Volume: 10, TradeDate: "2023-01-01", Active: true},
		buy("BHP.AU", 10, 40, "2023-02-01"),
	}

	pos, warnings, err := rc.Reconstruct("BHP.AU", domain.CurrencyAUD, orders)
	if err != nil {
		t.Fatalf("Reconstruct failed: %v", err)
	}
	// The unpriced order still counts toward quantity.
	if pos.NetQuantity != 20 {
		t.Errorf("expected net quantity 20, got %v", pos.NetQuantity)
	}
	// Basis comes from the priced order alone.
	if math.Abs(pos.AverageCostBasis-40) > 1e-9 {
		t.Errorf("expected average cost basis 40, got %v", pos.AverageCostBasis)
	}
	if len(warnings) != 1 || warnings[0].Code != domain.WarnMissingClosePrice {
		t.Errorf("expected one missing_close_price warning, got %v", warnings)
	}
}

func TestReconstructEmptyLedger(t *testing.T) {
	rc := newTestReconstructor(&fakePrices{})

	pos, warnings, err := rc.Reconstruct("NAB.AU", domain.CurrencyAUD, nil)
	if err != nil {
		t.Fatalf("Reconstruct failed: %v", err)
	}
	if pos.NetQuantity != 0 || pos.AverageCostBasis != 0 || pos.OverSold {
		t.Errorf("expected zero position, got %+v", pos)
	}
	if len(warnings) != 0 {
		t.Errorf("expected no warnings, got %v", warnings)
	}
}
