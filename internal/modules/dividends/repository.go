package dividends

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/foliotrader/folio/internal/domain"
)

// Repository handles dividend database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a dividend repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "dividends").Logger(),
	}
}

// Create records a received dividend
func (r *Repository) Create(dividend domain.Dividend) (int64, error) {
	if dividend.Amount <= 0 {
		return 0, fmt.Errorf("dividend amount must be positive")
	}
	symbol := strings.ToUpper(strings.TrimSpace(dividend.Symbol))
	if symbol == "" {
		return 0, fmt.Errorf("symbol cannot be empty")
	}

	result, err := r.db.Exec(`
		INSERT INTO dividends (symbol, date, amount, currency)
		VALUES (?, ?, ?, ?)`,
		symbol, dividend.Date, dividend.Amount, string(dividend.Currency))
	if err != nil {
		return 0, fmt.Errorf("creating dividend: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading insert id: %w", err)
	}

	r.log.Info().
		Str("symbol", symbol).
		Float64("amount", dividend.Amount).
		Str("date", dividend.Date).
		Msg("Dividend recorded")

	return id, nil
}

// ListBySymbol returns dividends for a symbol within [start, end],
// newest first.
func (r *Repository) ListBySymbol(symbol, start, end string) ([]domain.Dividend, error) {
	rows, err := r.db.Query(`
		SELECT id, symbol, date, amount, currency
		FROM dividends
		WHERE symbol = ? AND date >= ? AND date <= ?
		ORDER BY date DESC`,
		strings.ToUpper(symbol), start, end)
	if err != nil {
		return nil, fmt.Errorf("querying dividends: %w", err)
	}
	defer rows.Close()
	return scanDividends(rows)
}

// List returns all dividends newest first.
func (r *Repository) List() ([]domain.Dividend, error) {
	rows, err := r.db.Query(`
		SELECT id, symbol, date, amount, currency
		FROM dividends
		ORDER BY date DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying dividends: %w", err)
	}
	defer rows.Close()
	return scanDividends(rows)
}

func scanDividends(rows *sql.Rows) ([]domain.Dividend, error) {
	var dividends []domain.Dividend
	for rows.Next() {
		var d domain.Dividend
		var currency string
		if err := rows.Scan(&d.ID, &d.Symbol, &d.Date, &d.Amount, &currency); err != nil {
			return nil, fmt.Errorf("scanning dividend: %w", err)
		}
		d.Currency = domain.Currency(currency)
		dividends = append(dividends, d)
	}
	return dividends, rows.Err()
}
