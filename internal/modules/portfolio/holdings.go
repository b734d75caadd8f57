package portfolio

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/foliotrader/folio/internal/domain"
)

// PriceSource provides historical and latest close prices per symbol.
type PriceSource interface {
	GetLatestPrice(symbol string) (*domain.PricePoint, error)
	GetCloseOnOrBefore(symbol, date string) (*domain.PricePoint, error)
}

// BaseConverter converts instrument-currency amounts into the base currency.
type BaseConverter interface {
	Base() domain.Currency
	ConvertToBase(amount float64, from domain.Currency, date *string) (float64, error)
}

// Reconstructor rebuilds positions from the append-only order ledger.
// The ledger is the single source of truth: quantities and cost bases
// are always recomputed from orders, never stored.
type Reconstructor struct {
	prices    PriceSource
	converter BaseConverter
	log       zerolog.Logger
}

// NewReconstructor creates a holdings reconstructor
func NewReconstructor(prices PriceSource, converter BaseConverter, log zerolog.Logger) *Reconstructor {
	return &Reconstructor{
		prices:    prices,
		converter: converter,
		log:       log.With().Str("component", "reconstructor").Logger(),
	}
}

// Reconstruct derives the position for one symbol from its active orders
// dated on or before asOf.
//
// Net quantity is the signed sum of volumes (buys positive, sells
// negative). The average cost basis is volume-weighted over buy orders
// only, in base currency at each order's trade date. Orders without a
// recorded unit price fall back to the close on the nearest prior
// trading day; when no close exists either, the order still moves the
// net quantity but is excluded from the cost basis and a warning is
// emitted.
//
// Args:
//
//	symbol: instrument symbol
//	instrumentCurrency: currency the orders and prices are denominated in
//	orders: active orders for the symbol, trade_date ascending
//
// Returns:
//
//	Position, data-quality warnings, error
func (rc *Reconstructor) Reconstruct(symbol string, instrumentCurrency domain.Currency, orders []domain.Order) (Position, []domain.Warning, error) {
	pos := Position{Symbol: symbol}
	var warnings []domain.Warning

	var boughtVolume, boughtCost float64

	for _, order := range orders {
		if order.Side.IsSell() {
			pos.NetQuantity -= order.Volume
			continue
		}
		pos.NetQuantity += order.Volume

		price, warning, err := rc.resolveUnitPrice(order)
		if err != nil {
			return Position{}, nil, err
		}
		if warning != nil {
			warnings = append(warnings, *warning)
			continue
		}

		tradeDate := order.TradeDate
		cost, err := rc.converter.ConvertToBase(price*order.Volume, instrumentCurrency, &tradeDate)
		if err != nil {
			return Position{}, nil, fmt.Errorf("converting cost of order %d: %w", order.ID, err)
		}
		boughtVolume += order.Volume
		boughtCost += cost
	}

	if boughtVolume > 0 {
		pos.AverageCostBasis = boughtCost / boughtVolume
	}
	pos.TotalCost = boughtCost

	if pos.NetQuantity < 0 {
		pos.OverSold = true
		rc.log.Warn().
			Str("symbol", symbol).
			Float64("net_quantity", pos.NetQuantity).
			Msg("sell orders exceed buy orders")
	}

	return pos, warnings, nil
}

// resolveUnitPrice returns the price to cost a buy order at. Legacy
// orders without a unit price are costed at the close on the nearest
// prior trading day.
func (rc *Reconstructor) resolveUnitPrice(order domain.Order) (float64, *domain.Warning, error) {
	if order.UnitPrice != nil {
		return *order.UnitPrice, nil, nil
	}

	point, err := rc.prices.GetCloseOnOrBefore(order.Symbol, order.TradeDate)
	if err != nil {
		return 0, nil, fmt.Errorf("looking up close for order %d: %w", order.ID, err)
	}
	if point == nil {
		return 0, &domain.Warning{
			Code:    domain.WarnMissingClosePrice,
			Symbol:  order.Symbol,
			Date:    order.TradeDate,
			Message: fmt.Sprintf("no close price on or before %s; order %d excluded from cost basis", order.TradeDate, order.ID),
		}, nil
	}
	return point.Close, nil, nil
}
