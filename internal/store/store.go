// Package store defines persistence for confirmed earnings events and the
// extraction run log. Backends live in internal/database (SQLite) and
// internal/docstore (Badger).
package store

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/TobiSchelling/catalysts/internal/extract"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// Run kinds.
const (
	RunUpload = "upload"
	RunBulk   = "bulk"
	RunImport = "import"
)

// Record is a persisted event. Records are insert-only.
type Record struct {
	ID string `json:"id"`
	extract.Event
	CreatedAt time.Time `json:"createdAt"`
}

// Run summarizes one extraction request.
type Run struct {
	ID            string    `json:"id"`
	Kind          string    `json:"kind"`
	LogoCount     int       `json:"logoCount"`
	CalendarCount int       `json:"calendarCount"`
	FallbackCount int       `json:"fallbackCount"`
	UniqueCount   int       `json:"uniqueCount"`
	Added         int       `json:"added"`
	Skipped       int       `json:"skipped"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Filter narrows ListEvents. Zero values mean no restriction.
type Filter struct {
	Ticker string
	From   string // YYYY-MM-DD, inclusive
	Limit  int
}

// Stats contains aggregate store statistics.
type Stats struct {
	Events   int
	Tickers  int
	Upcoming int
	Runs     int
	BySource map[string]int
	LastRun  string
}

// Store persists events and runs.
type Store interface {
	InsertEvents(events []extract.Event) ([]Record, error)
	ListEvents(f Filter) ([]Record, error)
	GetEvent(id string) (*Record, error)
	InsertRun(r Run) (string, error)
	GetStats(today string) (*Stats, error)
	Close() error
}

// NewID returns an opaque record id.
func NewID() string {
	return uuid.New().String()
}

// NewRecords assigns ids and a creation time to events.
func NewRecords(events []extract.Event, now time.Time) []Record {
	records := make([]Record, len(events))
	for i, e := range events {
		records[i] = Record{ID: NewID(), Event: e, CreatedAt: now.UTC()}
	}
	return records
}

// Today returns today's date as YYYY-MM-DD.
func Today() string {
	return time.Now().Format("2006-01-02")
}
