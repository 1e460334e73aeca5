package docstore

import (
	"fmt"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/TobiSchelling/catalysts/internal/store"
)

type runDoc struct {
	ID            string
	Kind          string
	LogoCount     int
	CalendarCount int
	FallbackCount int
	UniqueCount   int
	Added         int
	Skipped       int
	CreatedAt     time.Time
}

// InsertRun records an extraction run and returns its id.
func (db *DB) InsertRun(r store.Run) (string, error) {
	if r.ID == "" {
		r.ID = store.NewID()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	d := runDoc{
		ID:            r.ID,
		Kind:          r.Kind,
		LogoCount:     r.LogoCount,
		CalendarCount: r.CalendarCount,
		FallbackCount: r.FallbackCount,
		UniqueCount:   r.UniqueCount,
		Added:         r.Added,
		Skipped:       r.Skipped,
		CreatedAt:     r.CreatedAt.UTC(),
	}
	if err := db.store.Insert(d.ID, d); err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}
	return d.ID, nil
}

// GetStats returns aggregate store statistics. Upcoming counts events on
// or after today.
func (db *DB) GetStats(today string) (*store.Stats, error) {
	s := &store.Stats{BySource: make(map[string]int)}

	var events []eventDoc
	if err := db.store.Find(&events, badgerhold.Where("ID").Ne("")); err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	tickers := make(map[string]bool)
	for _, e := range events {
		tickers[e.StockTicker] = true
		s.BySource[e.Source]++
	}
	s.Events = len(events)
	s.Tickers = len(tickers)

	upcoming, err := db.store.Count(&eventDoc{}, badgerhold.Where("EarningsDate").Ge(today))
	if err != nil {
		return nil, fmt.Errorf("counting upcoming events: %w", err)
	}
	s.Upcoming = int(upcoming)

	var runs []runDoc
	if err := db.store.Find(&runs, badgerhold.Where("ID").Ne("")); err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	s.Runs = len(runs)
	var last time.Time
	for _, r := range runs {
		if r.CreatedAt.After(last) {
			last = r.CreatedAt
		}
	}
	if !last.IsZero() {
		s.LastRun = last.Format(time.RFC3339)
	}
	return s, nil
}
