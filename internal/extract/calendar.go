package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/TobiSchelling/catalysts/internal/directory"
)

// DefaultWindow is how many lines above and below a company mention are
// searched for its date and timing.
const DefaultWindow = 3

const minCalendarLine = 3

var (
	weekdayLine = regexp.MustCompile(`(?i)^(monday|tuesday|wednesday|thursday|friday|saturday|sunday|mon|tue|tues|wed|thu|thur|thurs|fri|sat|sun)$`)
	integerLine = regexp.MustCompile(`^\d+$`)
)

// FromCalendarText scans calendar-style text line by line. For each line
// mentioning a directory company or ticker, the surrounding window is
// searched for a date and a timing keyword. A line can match several
// entries and then yields several events.
func FromCalendarText(dir *directory.Directory, fullText string, now time.Time, window int) []Event {
	if window < 0 {
		window = DefaultWindow
	}
	lines := splitLines(fullText)
	entries := dir.Entries()

	var events []Event
	for i, line := range lines {
		if calendarHeader(line) {
			continue
		}
		lower := strings.ToLower(line)
		for _, e := range entries {
			if !mentions(lower, e) {
				continue
			}
			lo, hi := max(0, i-window), min(len(lines), i+window+1)
			span := lines[lo:hi]

			tok, date, ok := firstWindowDate(span, now)
			if !ok {
				continue
			}
			timing, found := windowTiming(span)
			if !found {
				timing = DefaultPageTiming
			}
			events = append(events, Event{
				CompanyName:  e.CompanyName,
				StockTicker:  e.Ticker,
				EarningsDate: date,
				EarningsType: timing,
				IsConfirmed:  true,
				Source:       SourceCalendar,
				DetectedDate: tok.Raw,
				DetectedLine: line,
			})
		}
	}
	return events
}

// firstWindowDate resolves the first date token of the window, scanned
// as one block with the calendar patterns.
func firstWindowDate(span []string, now time.Time) (DateToken, string, bool) {
	return FirstDate(strings.Join(span, "\n"), now, calendarPatterns...)
}

// calendarHeader reports lines that are day headers or day numbers.
func calendarHeader(line string) bool {
	return len(line) < minCalendarLine || weekdayLine.MatchString(line) || integerLine.MatchString(line)
}

// mentions reports whether a lower-cased line names the entry's company
// or ticker.
func mentions(lower string, e directory.Entry) bool {
	return strings.Contains(lower, strings.ToLower(e.CompanyName)) ||
		strings.Contains(lower, strings.ToLower(e.Ticker))
}

func splitLines(text string) []string {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
