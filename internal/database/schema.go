package database

// Schema defines the portfolio database tables. The orders table is an
// append-only ledger: rows are never updated except for the active flag.
const Schema = `
CREATE TABLE IF NOT EXISTS instruments (
    id INTEGER PRIMARY KEY,
    symbol TEXT UNIQUE NOT NULL,
    name TEXT,
    currency TEXT NOT NULL,
    sector TEXT,
    type TEXT,
    active INTEGER NOT NULL DEFAULT 1,
    last_updated TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS orders (
    id INTEGER PRIMARY KEY,
    symbol TEXT NOT NULL,
    side TEXT NOT NULL,
    volume REAL NOT NULL,
    trade_date TEXT NOT NULL,
    unit_price REAL,
    active INTEGER NOT NULL DEFAULT 1,
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_symbol ON orders(symbol);
CREATE INDEX IF NOT EXISTS idx_orders_trade_date ON orders(trade_date);

CREATE TABLE IF NOT EXISTS fx_rates (
    id INTEGER PRIMARY KEY,
    pair TEXT NOT NULL,
    date TEXT NOT NULL,
    rate REAL NOT NULL,
    UNIQUE(pair, date)
);

CREATE INDEX IF NOT EXISTS idx_fx_rates_pair_date ON fx_rates(pair, date);

CREATE TABLE IF NOT EXISTS dividends (
    id INTEGER PRIMARY KEY,
    symbol TEXT NOT NULL,
    date TEXT NOT NULL,
    amount REAL NOT NULL,
    currency TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_dividends_symbol ON dividends(symbol);

CREATE TABLE IF NOT EXISTS portfolio_snapshots (
    id INTEGER PRIMARY KEY,
    date TEXT UNIQUE NOT NULL,
    total_value REAL NOT NULL,
    total_cost REAL NOT NULL,
    unrealized_pnl REAL NOT NULL,
    position_count INTEGER NOT NULL,
    created_at TEXT NOT NULL
);
`
