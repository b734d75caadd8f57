package universe

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/foliotrader/folio/internal/domain"
	"github.com/rs/zerolog"
)

// Repository handles instrument database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new instrument repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "universe").Logger(),
	}
}

// Get retrieves an instrument by symbol. Returns nil when not found.
func (r *Repository) Get(symbol string) (*domain.Instrument, error) {
	query := `
		SELECT id, symbol, name, currency, sector, type, active, last_updated
		FROM instruments
		WHERE symbol = ?
	`

	row := r.db.QueryRow(query, strings.ToUpper(strings.TrimSpace(symbol)))
	inst, err := scanInstrument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get instrument: %w", err)
	}

	return &inst, nil
}

// List returns all active instruments ordered by symbol
func (r *Repository) List() ([]domain.Instrument, error) {
	query := `
		SELECT id, symbol, name, currency, sector, type, active, last_updated
		FROM instruments
		WHERE active = 1
		ORDER BY symbol ASC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query instruments: %w", err)
	}
	defer rows.Close()

	var instruments []domain.Instrument
	for rows.Next() {
		inst, err := scanInstrument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan instrument: %w", err)
		}
		instruments = append(instruments, inst)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating instruments: %w", err)
	}

	return instruments, nil
}

// Save upserts an instrument. Currency is immutable once set: an update
// that changes it is rejected, multi-currency handling belongs to the
// converter, not instrument mutation.
func (r *Repository) Save(inst domain.Instrument) error {
	symbol := strings.ToUpper(strings.TrimSpace(inst.Symbol))
	if symbol == "" {
		return fmt.Errorf("symbol cannot be empty")
	}

	existing, err := r.Get(symbol)
	if err != nil {
		return err
	}
	if existing != nil && existing.Currency != inst.Currency {
		return fmt.Errorf("currency of %s is immutable (have %s, got %s)", symbol, existing.Currency, inst.Currency)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = r.db.Exec(
		`INSERT INTO instruments (symbol, name, currency, sector, type, active, last_updated)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(symbol) DO UPDATE SET
		   name = excluded.name,
		   sector = excluded.sector,
		   type = excluded.type,
		   active = excluded.active,
		   last_updated = excluded.last_updated`,
		symbol, inst.Name, string(inst.Currency), inst.Sector, inst.Type, boolToInt(inst.Active), now,
	)
	if err != nil {
		return fmt.Errorf("failed to save instrument: %w", err)
	}

	r.log.Info().Str("symbol", symbol).Msg("Instrument saved")
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanInstrument(row rowScanner) (domain.Instrument, error) {
	var (
		inst        domain.Instrument
		currency    string
		name        sql.NullString
		sector      sql.NullString
		instType    sql.NullString
		active      int
		lastUpdated string
	)

	err := row.Scan(&inst.ID, &inst.Symbol, &name, &currency, &sector, &instType, &active, &lastUpdated)
	if err != nil {
		return domain.Instrument{}, err
	}

	inst.Name = name.String
	inst.Currency = domain.Currency(currency)
	inst.Sector = sector.String
	inst.Type = instType.String
	inst.Active = active == 1
	if t, err := time.Parse(time.RFC3339, lastUpdated); err == nil {
		inst.LastUpdated = t
	}

	return inst, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
