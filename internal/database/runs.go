package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/TobiSchelling/catalysts/internal/store"
)

// InsertRun records an extraction run and returns its id.
func (db *DB) InsertRun(r store.Run) (string, error) {
	if r.ID == "" {
		r.ID = store.NewID()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	_, err := db.conn.Exec(
		`INSERT INTO extraction_runs
		(id, kind, logo_count, calendar_count, fallback_count, unique_count, added, skipped, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Kind, r.LogoCount, r.CalendarCount, r.FallbackCount, r.UniqueCount, r.Added, r.Skipped,
		r.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return "", err
	}
	return r.ID, nil
}

// GetStats returns aggregate database statistics. Upcoming counts events
// on or after today.
func (db *DB) GetStats(today string) (*store.Stats, error) {
	s := &store.Stats{BySource: make(map[string]int)}

	queries := []struct {
		sql  string
		args []any
		dest *int
	}{
		{"SELECT COUNT(*) FROM events", nil, &s.Events},
		{"SELECT COUNT(DISTINCT stock_ticker) FROM events", nil, &s.Tickers},
		{"SELECT COUNT(*) FROM events WHERE earnings_date >= ?", []any{today}, &s.Upcoming},
		{"SELECT COUNT(*) FROM extraction_runs", nil, &s.Runs},
	}

	for _, q := range queries {
		if err := db.conn.QueryRow(q.sql, q.args...).Scan(q.dest); err != nil {
			return nil, err
		}
	}

	rows, err := db.conn.Query("SELECT source, COUNT(*) FROM events GROUP BY source")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var source string
		var n int
		if err := rows.Scan(&source, &n); err != nil {
			return nil, err
		}
		s.BySource[source] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var last sql.NullString
	if err := db.conn.QueryRow("SELECT MAX(created_at) FROM extraction_runs").Scan(&last); err != nil {
		return nil, err
	}
	if last.Valid {
		t, err := time.Parse(timeLayout, last.String)
		if err != nil {
			return nil, fmt.Errorf("parsing last run time: %w", err)
		}
		s.LastRun = t.Format(time.RFC3339)
	}

	return s, nil
}
