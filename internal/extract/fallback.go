package extract

import (
	"strings"
	"time"

	"github.com/TobiSchelling/catalysts/internal/directory"
)

// FromTextFallback pairs every company mention in fullText with the first
// date of the whole text and the page timing. Callers only run it when
// the logo and calendar strategies found nothing.
func FromTextFallback(dir *directory.Directory, fullText string, now time.Time) []Event {
	tok, date, ok := FirstDate(fullText, now)
	if !ok {
		return nil
	}
	timing := ClassifyTiming(fullText)
	entries := dir.Entries()

	var events []Event
	for _, line := range splitLines(fullText) {
		lower := strings.ToLower(line)
		for _, e := range entries {
			if !mentions(lower, e) {
				continue
			}
			events = append(events, Event{
				CompanyName:  e.CompanyName,
				StockTicker:  e.Ticker,
				EarningsDate: date,
				EarningsType: timing,
				IsConfirmed:  true,
				Source:       SourceFallback,
				DetectedDate: tok.Raw,
				DetectedLine: line,
			})
		}
	}
	return events
}
