package orders

import (
	"database/sql"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/mattn/go-sqlite3"

	"github.com/foliotrader/folio/internal/domain"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)

	_, err = db.Exec(`
		CREATE TABLE orders (
			id INTEGER PRIMARY KEY,
			symbol TEXT NOT NULL,
			side TEXT NOT NULL,
			volume REAL NOT NULL,
			trade_date TEXT NOT NULL,
			unit_price REAL,
			active INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL
		)
	`)
	require.NoError(t, err)

	return db
}

func testRepo(t *testing.T) (*Repository, *sql.DB) {
	db := setupTestDB(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	return NewRepository(db, log), db
}

func price(v float64) *float64 { return &v }

func TestCreateAndFindOrders(t *testing.T) {
	repo, db := testRepo(t)
	defer db.Close()

	id, err := repo.Create(domain.Order{
		Symbol:    "aapl.us",
		Side:      domain.OrderSideBuy,
		Volume:    10,
		TradeDate: "2025-01-02",
		UnitPrice: price(100),
	})
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	orders, err := repo.FindOrders("AAPL.US", "")
	require.NoError(t, err)
	require.Len(t, orders, 1)

	// Symbol is normalized on create
	assert.Equal(t, "AAPL.US", orders[0].Symbol)
	assert.Equal(t, domain.OrderSideBuy, orders[0].Side)
	assert.Equal(t, 10.0, orders[0].Volume)
	require.NotNil(t, orders[0].UnitPrice)
	assert.Equal(t, 100.0, *orders[0].UnitPrice)
	assert.True(t, orders[0].Active)
}

func TestFindOrdersAsOfCutoff(t *testing.T) {
	repo, db := testRepo(t)
	defer db.Close()

	for _, date := range []string{"2025-01-02", "2025-02-03", "2025-03-04"} {
		_, err := repo.Create(domain.Order{
			Symbol:    "MSFT.US",
			Side:      domain.OrderSideBuy,
			Volume:    1,
			TradeDate: date,
			UnitPrice: price(50),
		})
		require.NoError(t, err)
	}

	orders, err := repo.FindOrders("MSFT.US", "2025-02-03")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "2025-01-02", orders[0].TradeDate)
	assert.Equal(t, "2025-02-03", orders[1].TradeDate)
}

func TestFindOrdersLegacyNilUnitPrice(t *testing.T) {
	repo, db := testRepo(t)
	defer db.Close()

	_, err := repo.Create(domain.Order{
		Symbol:    "BHP.AU",
		Side:      domain.OrderSideBuy,
		Volume:    5,
		TradeDate: "2020-06-15",
	})
	require.NoError(t, err)

	orders, err := repo.FindOrders("BHP.AU", "")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Nil(t, orders[0].UnitPrice)
}

func TestCreateRejectsInvalidOrders(t *testing.T) {
	repo, db := testRepo(t)
	defer db.Close()

	tests := []struct {
		name  string
		order domain.Order
	}{
		{"empty symbol", domain.Order{Side: domain.OrderSideBuy, Volume: 1, TradeDate: "2025-01-02"}},
		{"bad side", domain.Order{Symbol: "AAPL.US", Side: "HOLD", Volume: 1, TradeDate: "2025-01-02"}},
		{"zero volume", domain.Order{Symbol: "AAPL.US", Side: domain.OrderSideBuy, Volume: 0, TradeDate: "2025-01-02"}},
		{"negative price", domain.Order{Symbol: "AAPL.US", Side: domain.OrderSideBuy, Volume: 1, TradeDate: "2025-01-02", UnitPrice: price(-1)}},
		{"bad date", domain.Order{Symbol: "AAPL.US", Side: domain.OrderSideBuy, Volume: 1, TradeDate: "02/01/2025"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.Create(tt.order)
			assert.Error(t, err)
		})
	}
}

func TestSymbolsDistinctActive(t *testing.T) {
	repo, db := testRepo(t)
	defer db.Close()

	for _, sym := range []string{"AAPL.US", "AAPL.US", "MSFT.US"} {
		_, err := repo.Create(domain.Order{
			Symbol:    sym,
			Side:      domain.OrderSideBuy,
			Volume:    1,
			TradeDate: "2025-01-02",
			UnitPrice: price(10),
		})
		require.NoError(t, err)
	}

	symbols, err := repo.Symbols()
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL.US", "MSFT.US"}, symbols)
}

func TestDeactivateHidesOrder(t *testing.T) {
	repo, db := testRepo(t)
	defer db.Close()

	id, err := repo.Create(domain.Order{
		Symbol:    "AAPL.US",
		Side:      domain.OrderSideSell,
		Volume:    3,
		TradeDate: "2025-01-02",
		UnitPrice: price(120),
	})
	require.NoError(t, err)

	require.NoError(t, repo.Deactivate(id))

	orders, err := repo.FindOrders("AAPL.US", "")
	require.NoError(t, err)
	assert.Empty(t, orders)

	// The row stays in the ledger
	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM orders").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestDeactivateUnknownID(t *testing.T) {
	repo, db := testRepo(t)
	defer db.Close()

	assert.Error(t, repo.Deactivate(999))
}
