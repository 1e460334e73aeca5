package extract

import (
	"testing"
	"time"

	"github.com/TobiSchelling/catalysts/internal/directory"
)

var testNow = time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

func testDirectory(t *testing.T) *directory.Directory {
	t.Helper()
	d, err := directory.New([]directory.Entry{
		{CompanyName: "Apple", Ticker: "AAPL"},
		{CompanyName: "Microsoft", Ticker: "MSFT"},
		{CompanyName: "NVIDIA", Ticker: "NVDA"},
		{CompanyName: "Tesla", Ticker: "TSLA"},
		{CompanyName: "Meta", Ticker: "META"},
		{CompanyName: "Facebook", Ticker: "META"},
	})
	if err != nil {
		t.Fatalf("failed to build directory: %v", err)
	}
	return d
}

func testExtractor(t *testing.T, opts ...Option) *Extractor {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	return New(testDirectory(t), opts...)
}

func assertUniqueKeys(t *testing.T, events []Event) {
	t.Helper()
	seen := make(map[string]bool)
	for _, e := range events {
		if seen[e.Key()] {
			t.Errorf("duplicate key %s", e.Key())
		}
		seen[e.Key()] = true
	}
}

func assertSortedByDate(t *testing.T, events []Event) {
	t.Helper()
	for i := 1; i < len(events); i++ {
		if events[i].EarningsDate < events[i-1].EarningsDate {
			t.Errorf("events out of order at %d: %s before %s", i, events[i-1].EarningsDate, events[i].EarningsDate)
		}
	}
}
