package docstore

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/shopspring/decimal"
	"github.com/timshannon/badgerhold/v4"

	"github.com/TobiSchelling/catalysts/internal/extract"
	"github.com/TobiSchelling/catalysts/internal/store"
)

// eventDoc is the stored form of a record. Estimates are kept as decimal
// strings, empty when absent.
type eventDoc struct {
	ID               string
	CompanyName      string
	StockTicker      string
	EarningsDate     string
	EarningsType     string
	IsConfirmed      bool
	EstimatedEPS     string
	EstimatedRevenue string
	Source           string
	DetectedLogoName string
	DetectedDate     string
	DetectedLine     string
	CreatedAt        time.Time
}

// InsertEvents stores each event as a new document in one transaction.
func (db *DB) InsertEvents(events []extract.Event) ([]store.Record, error) {
	records := store.NewRecords(events, time.Now())
	if len(records) == 0 {
		return records, nil
	}

	err := db.store.Badger().Update(func(tx *badger.Txn) error {
		for _, r := range records {
			if err := db.store.TxInsert(tx, r.ID, toDoc(r)); err != nil {
				return fmt.Errorf("inserting %s: %w", r.Key(), err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ListEvents returns events ordered by earnings date, then insertion time.
func (db *DB) ListEvents(f store.Filter) ([]store.Record, error) {
	query := badgerhold.Where("ID").Ne("")
	if f.Ticker != "" {
		query = query.And("StockTicker").Eq(f.Ticker)
	}
	if f.From != "" {
		query = query.And("EarningsDate").Ge(f.From)
	}

	var docs []eventDoc
	if err := db.store.Find(&docs, query); err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}

	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].EarningsDate != docs[j].EarningsDate {
			return docs[i].EarningsDate < docs[j].EarningsDate
		}
		return docs[i].CreatedAt.Before(docs[j].CreatedAt)
	})
	if f.Limit > 0 && len(docs) > f.Limit {
		docs = docs[:f.Limit]
	}

	records := make([]store.Record, 0, len(docs))
	for _, d := range docs {
		r, err := fromDoc(d)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}

// GetEvent returns one event by id.
func (db *DB) GetEvent(id string) (*store.Record, error) {
	var d eventDoc
	if err := db.store.Get(id, &d); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("getting event: %w", err)
	}
	r, err := fromDoc(d)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func toDoc(r store.Record) eventDoc {
	return eventDoc{
		ID:               r.ID,
		CompanyName:      r.CompanyName,
		StockTicker:      r.StockTicker,
		EarningsDate:     r.EarningsDate,
		EarningsType:     string(r.EarningsType),
		IsConfirmed:      r.IsConfirmed,
		EstimatedEPS:     decimalString(r.EstimatedEPS),
		EstimatedRevenue: decimalString(r.EstimatedRevenue),
		Source:           string(r.Source),
		DetectedLogoName: r.DetectedLogoName,
		DetectedDate:     r.DetectedDate,
		DetectedLine:     r.DetectedLine,
		CreatedAt:        r.CreatedAt,
	}
}

func fromDoc(d eventDoc) (store.Record, error) {
	eps, err := parseDecimal(d.EstimatedEPS)
	if err != nil {
		return store.Record{}, fmt.Errorf("event %s: estimated EPS: %w", d.ID, err)
	}
	revenue, err := parseDecimal(d.EstimatedRevenue)
	if err != nil {
		return store.Record{}, fmt.Errorf("event %s: estimated revenue: %w", d.ID, err)
	}
	return store.Record{
		ID: d.ID,
		Event: extract.Event{
			CompanyName:      d.CompanyName,
			StockTicker:      d.StockTicker,
			EarningsDate:     d.EarningsDate,
			EarningsType:     extract.Timing(d.EarningsType),
			IsConfirmed:      d.IsConfirmed,
			EstimatedEPS:     eps,
			EstimatedRevenue: revenue,
			Source:           extract.Source(d.Source),
			DetectedLogoName: d.DetectedLogoName,
			DetectedDate:     d.DetectedDate,
			DetectedLine:     d.DetectedLine,
		},
		CreatedAt: d.CreatedAt,
	}, nil
}

func decimalString(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func parseDecimal(s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
