package currency

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/foliotrader/folio/internal/domain"
	"github.com/rs/zerolog"
)

// Repository handles fx_rates database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new FX rate repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "fx").Logger(),
	}
}

// GetRate returns the rate for a pair on the given date, falling back to
// the most recent prior observation. A nil date means latest available.
func (r *Repository) GetRate(pair string, date *string) (float64, error) {
	var (
		rate float64
		err  error
	)

	if date == nil {
		err = r.db.QueryRow(
			"SELECT rate FROM fx_rates WHERE pair = ? ORDER BY date DESC LIMIT 1",
			pair,
		).Scan(&rate)
	} else {
		err = r.db.QueryRow(
			"SELECT rate FROM fx_rates WHERE pair = ? AND date <= ? ORDER BY date DESC LIMIT 1",
			pair, *date,
		).Scan(&rate)
	}

	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("no FX rate found for pair %s", pair)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query FX rate: %w", err)
	}

	return rate, nil
}

// GetSeries returns rates for a pair between start and end dates inclusive,
// chronologically ascending.
func (r *Repository) GetSeries(pair, start, end string) ([]domain.FXRate, error) {
	rows, err := r.db.Query(
		"SELECT pair, date, rate FROM fx_rates WHERE pair = ? AND date >= ? AND date <= ? ORDER BY date ASC",
		pair, start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query FX series: %w", err)
	}
	defer rows.Close()

	var series []domain.FXRate
	for rows.Next() {
		var fx domain.FXRate
		if err := rows.Scan(&fx.Pair, &fx.Date, &fx.Rate); err != nil {
			return nil, fmt.Errorf("failed to scan FX rate: %w", err)
		}
		series = append(series, fx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating FX rates: %w", err)
	}

	return series, nil
}

// SaveRate upserts one rate observation
func (r *Repository) SaveRate(fx domain.FXRate) error {
	_, err := r.db.Exec(
		`INSERT INTO fx_rates (pair, date, rate) VALUES (?, ?, ?)
		 ON CONFLICT(pair, date) DO UPDATE SET rate = excluded.rate`,
		fx.Pair, fx.Date, fx.Rate,
	)
	if err != nil {
		return fmt.Errorf("failed to save FX rate: %w", err)
	}
	return nil
}
