package extract

import "sort"

// DefaultMaxEvents caps a reconciled result.
const DefaultMaxEvents = 20

// Reconciled is the merged outcome of one extraction.
type Reconciled struct {
	Events          []Event
	TotalDetections int            // candidates before de-duplication
	UniqueCount     int            // distinct keys before the cap
	BySource        map[Source]int // candidates per strategy
}

// Reconcile de-duplicates candidates by Key, keeping the first occurrence,
// sorts them by date and truncates to limit (no cap when limit <= 0).
// Candidates must arrive in strategy-priority order.
func Reconcile(candidates []Event, limit int) Reconciled {
	r := Reconciled{
		Events:          []Event{},
		TotalDetections: len(candidates),
		BySource:        make(map[Source]int),
	}

	seen := make(map[string]bool, len(candidates))
	for _, e := range candidates {
		r.BySource[e.Source]++
		k := e.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		r.Events = append(r.Events, e)
	}
	r.UniqueCount = len(r.Events)

	// YYYY-MM-DD sorts lexically.
	sort.SliceStable(r.Events, func(i, j int) bool {
		return r.Events[i].EarningsDate < r.Events[j].EarningsDate
	})

	if limit > 0 && len(r.Events) > limit {
		r.Events = r.Events[:limit]
	}
	return r
}
