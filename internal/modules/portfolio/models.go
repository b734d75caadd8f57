package portfolio

import "github.com/foliotrader/folio/internal/domain"

// Position is the reconstructed state of a single symbol at a point in
// time, derived purely from the order ledger.
type Position struct {
	Symbol           string  `json:"symbol"`
	NetQuantity      float64 `json:"net_quantity"`
	AverageCostBasis float64 `json:"average_cost_basis"` // in base currency
	TotalCost        float64 `json:"total_cost"`         // cumulative cost of all buys, in base currency
	OverSold         bool    `json:"over_sold"`          // sells exceed buys; reported, never clamped
}

// RemainingCost is the basis of the shares still held. Sold shares carry
// their cost out of the position, so unrealized P/L compares value
// against this, not TotalCost.
func (p Position) RemainingCost() float64 {
	return p.AverageCostBasis * p.NetQuantity
}

// Holding is a valued position ready for presentation.
type Holding struct {
	Symbol             string  `json:"symbol"`
	Name               string  `json:"name,omitempty"`
	Quantity           float64 `json:"quantity"`
	AverageCost        float64 `json:"average_cost"`
	CurrentPrice       float64 `json:"current_price"`
	CurrentValue       float64 `json:"current_value"`
	UnrealizedGainLoss float64 `json:"unrealized_gain_loss"`
	WeightPct          float64 `json:"weight_pct"`
	Currency           string  `json:"currency"`
}

// Summary is the full portfolio valuation at a given date.
type Summary struct {
	AsOf          string           `json:"as_of"`
	BaseCurrency  string           `json:"base_currency"`
	TotalValue    float64          `json:"total_value"`
	TotalCost     float64          `json:"total_cost"` // basis of shares still held
	UnrealizedPnL float64          `json:"unrealized_pnl"`
	Holdings      []Holding        `json:"holdings"`
	Warnings      []domain.Warning `json:"warnings,omitempty"`
}

// Snapshot is a persisted daily portfolio summary row.
type Snapshot struct {
	ID            int64   `json:"id"`
	Date          string  `json:"date"`
	TotalValue    float64 `json:"total_value"`
	TotalCost     float64 `json:"total_cost"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
	PositionCount int     `json:"position_count"`
	CreatedAt     string  `json:"created_at"`
}
