package extract

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/TobiSchelling/catalysts/internal/directory"
)

// Rejection reasons reported for pasted lines.
const (
	ReasonNoTicker = "No valid ticker"
	ReasonNoDate   = "No valid date"
)

// ErrInvalidDefaultDate is returned when the caller-supplied default date
// cannot be parsed.
var ErrInvalidDefaultDate = errors.New("invalid default date")

// Rejection is a pasted line that did not produce an event.
type Rejection struct {
	Line   string `json:"line"`
	Reason string `json:"reason"`
}

// BulkParse is the result of parsing pasted text.
type BulkParse struct {
	Events  []Event
	Skipped []Rejection
}

var (
	bulkSeparators = regexp.MustCompile(`[\s,]+`)
	bulkTicker     = regexp.MustCompile(`^[A-Za-z]{1,5}$`)
	bulkISO        = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	bulkMDY        = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4}|\d{2})$`)
	bulkDay        = regexp.MustCompile(`^(\d{1,2})(?:st|nd|rd|th)?$`)
	bulkYear       = regexp.MustCompile(`^\d{4}$`)
)

// minGenericDateLen keeps the generic parser away from short tokens such
// as "Q3" or "10".
const minGenericDateLen = 6

// ParseBulk parses operator-pasted lines such as "NVDA 1/25/2025 AMC".
// Anything after '#' is a comment. Each line needs a ticker-shaped token
// and a date (or defaultDate); timing defaults to AMC. Lines are not
// de-duplicated against each other.
func ParseBulk(dir *directory.Directory, text, defaultDate string, now time.Time) (BulkParse, error) {
	var fallbackDate string
	if strings.TrimSpace(defaultDate) != "" {
		d, ok := lineDate(tokenize(defaultDate), now)
		if !ok {
			return BulkParse{}, fmt.Errorf("%w: %q", ErrInvalidDefaultDate, defaultDate)
		}
		fallbackDate = d
	}

	res := BulkParse{Events: []Event{}, Skipped: []Rejection{}}
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		content := line
		if i := strings.IndexByte(content, '#'); i >= 0 {
			content = content[:i]
		}
		tokens := tokenize(content)
		if len(tokens) == 0 {
			continue
		}

		ticker, ok := bulkTickerToken(tokens)
		if !ok {
			res.Skipped = append(res.Skipped, Rejection{Line: line, Reason: ReasonNoTicker})
			continue
		}
		date, ok := lineDate(tokens, now)
		if !ok {
			date, ok = fallbackDate, fallbackDate != ""
		}
		if !ok {
			res.Skipped = append(res.Skipped, Rejection{Line: line, Reason: ReasonNoDate})
			continue
		}

		company := ticker
		if e, found := dir.ByTicker(ticker); found {
			company = e.CompanyName
		}
		res.Events = append(res.Events, Event{
			CompanyName:  company,
			StockTicker:  ticker,
			EarningsDate: date,
			EarningsType: bulkTiming(tokens),
			IsConfirmed:  true,
			Source:       SourceBulk,
			DetectedLine: line,
		})
	}
	return res, nil
}

func tokenize(s string) []string {
	var out []string
	for _, t := range bulkSeparators.Split(s, -1) {
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

func bulkTickerToken(tokens []string) (string, bool) {
	for _, t := range tokens {
		if bulkTicker.MatchString(t) {
			return strings.ToUpper(t), true
		}
	}
	return "", false
}

func bulkTiming(tokens []string) Timing {
	for _, t := range tokens {
		switch {
		case strings.EqualFold(t, string(AMC)):
			return AMC
		case strings.EqualFold(t, string(BMO)):
			return BMO
		}
	}
	return DefaultBulkTiming
}

// lineDate returns the first token position that starts a date.
func lineDate(tokens []string, now time.Time) (string, bool) {
	for i := range tokens {
		if d, ok := dateAt(tokens, i, now); ok {
			return d, true
		}
	}
	return "", false
}

func dateAt(tokens []string, i int, now time.Time) (string, bool) {
	tok := tokens[i]

	if m := bulkISO.FindStringSubmatch(tok); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		return civilDate(y, time.Month(mo), d)
	}

	if m := bulkMDY.FindStringSubmatch(tok); m != nil {
		mo, _ := strconv.Atoi(m[1])
		d, _ := strconv.Atoi(m[2])
		y, ok := resolveYear(m[3], now)
		if !ok {
			return "", false
		}
		return civilDate(y, time.Month(mo), d)
	}

	// "Jan 25 2025", "January 25, 2025" (the comma is a separator).
	if month, ok := monthToken(tok); ok && i+1 < len(tokens) {
		if m := bulkDay.FindStringSubmatch(tokens[i+1]); m != nil {
			d, _ := strconv.Atoi(m[1])
			y := now.Year()
			if i+2 < len(tokens) && bulkYear.MatchString(tokens[i+2]) {
				y, _ = strconv.Atoi(tokens[i+2])
			}
			return civilDate(y, month, d)
		}
	}

	if len(tok) >= minGenericDateLen && strings.ContainsAny(tok, "0123456789") {
		if t, err := dateparse.ParseIn(tok, time.UTC); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

var fullMonths = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
	"sept": time.September,
}

func monthToken(tok string) (time.Month, bool) {
	lower := strings.ToLower(strings.TrimSuffix(tok, "."))
	if m, ok := fullMonths[lower]; ok {
		return m, true
	}
	m, ok := monthNumbers[lower]
	return m, ok
}
