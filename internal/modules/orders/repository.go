package orders

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/foliotrader/folio/internal/domain"
	"github.com/rs/zerolog"
)

// Repository handles order ledger database operations. The ledger is
// append-only: rows are inserted and soft-deleted, never updated.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new order repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "orders").Logger(),
	}
}

// Create appends a new order to the ledger
func (r *Repository) Create(order domain.Order) (int64, error) {
	if err := order.Validate(); err != nil {
		return 0, err
	}

	now := time.Now().UTC().Format(time.RFC3339)

	var unitPrice interface{}
	if order.UnitPrice != nil {
		unitPrice = *order.UnitPrice
	}

	res, err := r.db.Exec(
		`INSERT INTO orders (symbol, side, volume, trade_date, unit_price, active, created_at)
		 VALUES (?, ?, ?, ?, ?, 1, ?)`,
		order.Symbol, string(order.Side), order.Volume, order.TradeDate, unitPrice, now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create order: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get order id: %w", err)
	}

	r.log.Info().
		Str("symbol", order.Symbol).
		Str("side", string(order.Side)).
		Float64("volume", order.Volume).
		Str("trade_date", order.TradeDate).
		Msg("Order created")

	return id, nil
}

// FindOrders returns active orders ordered by trade date ascending. An
// empty symbol matches all symbols; an empty asOf matches all dates.
func (r *Repository) FindOrders(symbol, asOf string) ([]domain.Order, error) {
	query := "SELECT id, symbol, side, volume, trade_date, unit_price, active, created_at FROM orders WHERE active = 1"
	var args []interface{}

	if symbol != "" {
		query += " AND symbol = ?"
		args = append(args, strings.ToUpper(strings.TrimSpace(symbol)))
	}
	if asOf != "" {
		query += " AND trade_date <= ?"
		args = append(args, asOf)
	}
	query += " ORDER BY trade_date ASC, id ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}

// Symbols returns the distinct symbols referenced by active orders
func (r *Repository) Symbols() ([]string, error) {
	rows, err := r.db.Query("SELECT DISTINCT symbol FROM orders WHERE active = 1 ORDER BY symbol ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query order symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating symbols: %w", err)
	}

	return symbols, nil
}

// Deactivate soft-deletes an order. The row stays in the ledger.
func (r *Repository) Deactivate(id int64) error {
	res, err := r.db.Exec("UPDATE orders SET active = 0 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to deactivate order: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deactivation: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("order %d not found", id)
	}

	r.log.Info().Int64("id", id).Msg("Order deactivated")
	return nil
}

func scanOrder(rows *sql.Rows) (domain.Order, error) {
	var (
		order     domain.Order
		side      string
		unitPrice sql.NullFloat64
		active    int
		createdAt sql.NullString
	)

	err := rows.Scan(&order.ID, &order.Symbol, &side, &order.Volume, &order.TradeDate, &unitPrice, &active, &createdAt)
	if err != nil {
		return domain.Order{}, err
	}

	order.Side = domain.OrderSide(side)
	order.Active = active == 1
	if unitPrice.Valid {
		order.UnitPrice = &unitPrice.Float64
	}
	if createdAt.Valid {
		if t, err := time.Parse(time.RFC3339, createdAt.String); err == nil {
			order.CreatedAt = &t
		}
	}

	return order, nil
}
