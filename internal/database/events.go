package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/TobiSchelling/catalysts/internal/extract"
	"github.com/TobiSchelling/catalysts/internal/store"
)

// timeLayout keeps fixed-width fractions so stored times sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const eventColumns = `id, company_name, stock_ticker, earnings_date, earnings_type, is_confirmed,
	estimated_eps, estimated_revenue, source, detected_logo_name, detected_date, detected_line, created_at`

// InsertEvents stores each event as a new record in one transaction.
func (db *DB) InsertEvents(events []extract.Event) ([]store.Record, error) {
	records := store.NewRecords(events, time.Now())
	if len(records) == 0 {
		return records, nil
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO events (` + eventColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		_, err := stmt.Exec(
			r.ID, r.CompanyName, r.StockTicker, r.EarningsDate, string(r.EarningsType), r.IsConfirmed,
			nullDecimal(r.EstimatedEPS), nullDecimal(r.EstimatedRevenue), string(r.Source),
			nullString(r.DetectedLogoName), nullString(r.DetectedDate), nullString(r.DetectedLine),
			r.CreatedAt.Format(timeLayout),
		)
		if err != nil {
			return nil, fmt.Errorf("inserting %s: %w", r.Key(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit insert: %w", err)
	}
	return records, nil
}

// ListEvents returns events ordered by earnings date, then insertion time.
func (db *DB) ListEvents(f store.Filter) ([]store.Record, error) {
	query := "SELECT " + eventColumns + " FROM events WHERE 1=1"
	var args []any
	if f.Ticker != "" {
		query += " AND stock_ticker = ?"
		args = append(args, f.Ticker)
	}
	if f.From != "" {
		query += " AND earnings_date >= ?"
		args = append(args, f.From)
	}
	query += " ORDER BY earnings_date, created_at"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []store.Record{}
	for rows.Next() {
		r, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	return records, rows.Err()
}

// GetEvent returns one event by id.
func (db *DB) GetEvent(id string) (*store.Record, error) {
	row := db.conn.QueryRow("SELECT "+eventColumns+" FROM events WHERE id = ?", id)
	r, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return r, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(s scanner) (*store.Record, error) {
	var (
		r                    store.Record
		timing, source       string
		eps, revenue         decimal.NullDecimal
		logoName, date, line sql.NullString
		createdAt            string
	)
	err := s.Scan(&r.ID, &r.CompanyName, &r.StockTicker, &r.EarningsDate, &timing, &r.IsConfirmed,
		&eps, &revenue, &source, &logoName, &date, &line, &createdAt)
	if err != nil {
		return nil, err
	}

	r.EarningsType = extract.Timing(timing)
	r.Source = extract.Source(source)
	r.EstimatedEPS = decimalPtr(eps)
	r.EstimatedRevenue = decimalPtr(revenue)
	r.DetectedLogoName = logoName.String
	r.DetectedDate = date.String
	r.DetectedLine = line.String
	if r.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at of %s: %w", r.ID, err)
	}
	return &r, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func decimalPtr(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	return &d.Decimal
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
