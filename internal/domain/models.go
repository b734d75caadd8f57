package domain

import (
	"fmt"
	"strings"
	"time"
)

// Currency represents an ISO currency code
type Currency string

const (
	CurrencyEUR Currency = "EUR"
	CurrencyUSD Currency = "USD"
	CurrencyGBP Currency = "GBP"
	CurrencyAUD Currency = "AUD"
	CurrencyHKD Currency = "HKD"
)

// OrderSide represents the order direction (BUY or SELL)
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// IsValid checks if the order side is valid
func (s OrderSide) IsValid() bool {
	return s == OrderSideBuy || s == OrderSideSell
}

// IsBuy returns true if this is a BUY order
func (s OrderSide) IsBuy() bool {
	return s == OrderSideBuy
}

// IsSell returns true if this is a SELL order
func (s OrderSide) IsSell() bool {
	return s == OrderSideSell
}

// OrderSideFromString creates an OrderSide from a string (case-insensitive)
func OrderSideFromString(value string) (OrderSide, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "BUY":
		return OrderSideBuy, nil
	case "SELL":
		return OrderSideSell, nil
	default:
		return "", fmt.Errorf("invalid order side: %q", value)
	}
}

// Order represents one row of the append-only order ledger.
// Orders are never mutated after commit; they are superseded by new
// orders or marked inactive via the soft-delete flag.
type Order struct {
	ID        int64      `json:"id"`
	Symbol    string     `json:"symbol"`
	Side      OrderSide  `json:"side"`
	Volume    float64    `json:"volume"`
	TradeDate string     `json:"trade_date"`           // YYYY-MM-DD
	UnitPrice *float64   `json:"unit_price,omitempty"` // nil for legacy rows, recovered via close lookup
	Active    bool       `json:"active"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// Validate validates order data and normalizes the symbol
func (o *Order) Validate() error {
	if strings.TrimSpace(o.Symbol) == "" {
		return fmt.Errorf("symbol cannot be empty")
	}
	if !o.Side.IsValid() {
		return fmt.Errorf("invalid order side: %q", o.Side)
	}
	if o.Volume <= 0 {
		return fmt.Errorf("volume must be positive")
	}
	if o.UnitPrice != nil && *o.UnitPrice <= 0 {
		return fmt.Errorf("unit price must be positive when set")
	}
	if _, err := time.Parse("2006-01-02", o.TradeDate); err != nil {
		return fmt.Errorf("invalid trade date %q: %w", o.TradeDate, err)
	}
	o.Symbol = strings.ToUpper(strings.TrimSpace(o.Symbol))
	return nil
}

// Instrument represents a tradable instrument in the universe
type Instrument struct {
	ID          int64     `json:"id"`
	Symbol      string    `json:"symbol"`
	Name        string    `json:"name"`
	Currency    Currency  `json:"currency"`
	Sector      string    `json:"sector"`
	Type        string    `json:"type"` // stock, etf, bond, ...
	Active      bool      `json:"active"`
	LastUpdated time.Time `json:"last_updated"`
}

// PricePoint represents a daily OHLCV price point
type PricePoint struct {
	Symbol string  `json:"symbol"`
	Date   string  `json:"date"` // YYYY-MM-DD
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume *int64  `json:"volume,omitempty"`
}

// FXRate represents one observation of a currency pair rate.
// Rate follows the pair convention: for pair AUDUSD, rate r means 1 AUD = r USD.
type FXRate struct {
	Pair string  `json:"pair"` // e.g. "EURUSD"
	Date string  `json:"date"` // YYYY-MM-DD
	Rate float64 `json:"rate"`
}

// Dividend represents a cash dividend received for a holding
type Dividend struct {
	ID       int64    `json:"id"`
	Symbol   string   `json:"symbol"`
	Date     string   `json:"date"` // YYYY-MM-DD
	Amount   float64  `json:"amount"`
	Currency Currency `json:"currency"`
}

// Warning is a structured data-quality warning attached to computed
// results. Fallback fills, missing price lookups and outlier repairs are
// reported this way instead of being silently absorbed.
type Warning struct {
	Code    string `json:"code"`
	Symbol  string `json:"symbol,omitempty"`
	Date    string `json:"date,omitempty"`
	Message string `json:"message"`
}

// Warning codes
const (
	WarnFXForwardFill     = "fx_forward_fill"
	WarnFXBackFill        = "fx_back_fill"
	WarnFXMeanFill        = "fx_mean_fill"
	WarnMissingClosePrice = "missing_close_price"
	WarnOutlierRepaired   = "outlier_repaired"
)
