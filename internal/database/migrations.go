package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS events (
    id TEXT PRIMARY KEY,
    company_name TEXT NOT NULL,
    stock_ticker TEXT NOT NULL,
    earnings_date TEXT NOT NULL,
    earnings_type TEXT NOT NULL CHECK(earnings_type IN ('BMO', 'AMC')),
    is_confirmed INTEGER DEFAULT 1,
    estimated_eps TEXT,
    estimated_revenue TEXT,
    source TEXT NOT NULL,
    detected_logo_name TEXT,
    detected_date TEXT,
    detected_line TEXT,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS extraction_runs (
    id TEXT PRIMARY KEY,
    kind TEXT NOT NULL CHECK(kind IN ('upload', 'bulk', 'import')),
    logo_count INTEGER DEFAULT 0,
    calendar_count INTEGER DEFAULT 0,
    fallback_count INTEGER DEFAULT 0,
    unique_count INTEGER DEFAULT 0,
    added INTEGER DEFAULT 0,
    skipped INTEGER DEFAULT 0,
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_date ON events(earnings_date);
CREATE INDEX IF NOT EXISTS idx_runs_created ON extraction_runs(created_at);
`)
			return err
		},
	},
	{
		Version:     2,
		Description: "index events by ticker",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_events_ticker_date ON events(stock_ticker, earnings_date)`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
