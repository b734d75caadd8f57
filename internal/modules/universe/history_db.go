package universe

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/foliotrader/folio/internal/domain"
	"github.com/rs/zerolog"
)

// HistoryDB provides access to historical price data. Each symbol gets
// its own database file under the history directory.
type HistoryDB struct {
	historyDir string
	log        zerolog.Logger
}

// NewHistoryDB creates a new history database accessor
func NewHistoryDB(historyDir string, log zerolog.Logger) *HistoryDB {
	return &HistoryDB{
		historyDir: historyDir,
		log:        log.With().Str("component", "history_db").Logger(),
	}
}

const dailyPricesSchema = `
CREATE TABLE IF NOT EXISTS daily_prices (
    date TEXT PRIMARY KEY,
    open_price REAL,
    high_price REAL,
    low_price REAL,
    close_price REAL NOT NULL,
    volume INTEGER
);
`

// GetPriceSeries fetches daily prices for a symbol between start and end
// dates inclusive, chronologically ascending.
func (h *HistoryDB) GetPriceSeries(symbol, start, end string) ([]domain.PricePoint, error) {
	db, err := h.openHistoryDB(symbol, false)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	query := `
		SELECT date, open_price, high_price, low_price, close_price, volume
		FROM daily_prices
		WHERE date >= ? AND date <= ?
		ORDER BY date ASC
	`

	rows, err := db.Query(query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily prices: %w", err)
	}
	defer rows.Close()

	var prices []domain.PricePoint
	for rows.Next() {
		p, err := scanPrice(rows, symbol)
		if err != nil {
			return nil, err
		}
		prices = append(prices, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily prices: %w", err)
	}

	return prices, nil
}

// GetLatestPrice fetches the most recent price point for a symbol.
// Returns nil when no history exists.
func (h *HistoryDB) GetLatestPrice(symbol string) (*domain.PricePoint, error) {
	db, err := h.openHistoryDB(symbol, false)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	query := `
		SELECT date, open_price, high_price, low_price, close_price, volume
		FROM daily_prices
		ORDER BY date DESC
		LIMIT 1
	`

	row := db.QueryRow(query)
	p, err := scanPrice(row, symbol)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &p, nil
}

// GetCloseOnOrBefore returns the close price on the given date, or the
// nearest prior trading day. Used to recover unit prices for legacy
// orders recorded without one. Returns nil when no price exists at or
// before the date.
func (h *HistoryDB) GetCloseOnOrBefore(symbol, date string) (*domain.PricePoint, error) {
	db, err := h.openHistoryDB(symbol, false)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	query := `
		SELECT date, open_price, high_price, low_price, close_price, volume
		FROM daily_prices
		WHERE date <= ?
		ORDER BY date DESC
		LIMIT 1
	`

	row := db.QueryRow(query, date)
	p, err := scanPrice(row, symbol)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &p, nil
}

// SavePrices upserts a batch of price points for a symbol
func (h *HistoryDB) SavePrices(symbol string, prices []domain.PricePoint) error {
	db, err := h.openHistoryDB(symbol, true)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO daily_prices (date, open_price, high_price, low_price, close_price, volume)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
		  open_price = excluded.open_price,
		  high_price = excluded.high_price,
		  low_price = excluded.low_price,
		  close_price = excluded.close_price,
		  volume = excluded.volume
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range prices {
		var volume interface{}
		if p.Volume != nil {
			volume = *p.Volume
		}
		if _, err := stmt.Exec(p.Date, p.Open, p.High, p.Low, p.Close, volume); err != nil {
			return fmt.Errorf("failed to insert price for %s: %w", p.Date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit prices: %w", err)
	}

	h.log.Debug().Str("symbol", symbol).Int("count", len(prices)).Msg("Saved prices")
	return nil
}

// openHistoryDB opens the history database for a symbol. When create is
// true the directory and schema are created on demand.
func (h *HistoryDB) openHistoryDB(symbol string, create bool) (*sql.DB, error) {
	// Convert symbol format: AAPL.US -> AAPL_US
	dbSymbol := strings.ReplaceAll(strings.ToUpper(symbol), ".", "_")
	dbPath := filepath.Join(h.historyDir, dbSymbol+".db")

	if create {
		if err := os.MkdirAll(h.historyDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database for %s: %w", symbol, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping history database for %s: %w", symbol, err)
	}

	if create {
		if _, err := db.Exec(dailyPricesSchema); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ensure price schema for %s: %w", symbol, err)
		}
	}

	return db, nil
}

type priceScanner interface {
	Scan(dest ...interface{}) error
}

func scanPrice(row priceScanner, symbol string) (domain.PricePoint, error) {
	var (
		p      domain.PricePoint
		open   sql.NullFloat64
		high   sql.NullFloat64
		low    sql.NullFloat64
		volume sql.NullInt64
	)

	err := row.Scan(&p.Date, &open, &high, &low, &p.Close, &volume)
	if err == sql.ErrNoRows {
		return domain.PricePoint{}, err
	}
	if err != nil {
		return domain.PricePoint{}, fmt.Errorf("failed to scan daily price: %w", err)
	}

	p.Symbol = symbol
	p.Open = open.Float64
	p.High = high.Float64
	p.Low = low.Float64
	if volume.Valid {
		p.Volume = &volume.Int64
	}

	return p, nil
}
