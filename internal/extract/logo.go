package extract

import (
	"time"

	"github.com/TobiSchelling/catalysts/internal/directory"
	"github.com/TobiSchelling/catalysts/internal/ocr"
)

// FromLogos produces one event per resolvable logo. Every logo on the page
// shares the first date token of fullText and one page-wide timing; when
// the text has no usable date, no logo yields an event.
//
// Bounding boxes are carried on the logos but not used for distance.
func FromLogos(dir *directory.Directory, logos []ocr.Logo, fullText string, now time.Time) []Event {
	if len(logos) == 0 {
		return nil
	}
	tok, date, ok := FirstDate(fullText, now)
	if !ok {
		return nil
	}
	timing := ClassifyTiming(fullText)

	var events []Event
	for _, logo := range logos {
		r, ok := dir.Resolve(logo.Label)
		if !ok {
			continue
		}
		events = append(events, Event{
			CompanyName:      r.CompanyName,
			StockTicker:      r.Ticker,
			EarningsDate:     date,
			EarningsType:     timing,
			IsConfirmed:      true,
			Source:           SourceLogo,
			DetectedLogoName: logo.Label,
			DetectedDate:     tok.Raw,
		})
	}
	return events
}
