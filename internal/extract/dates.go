package extract

import (
	"iter"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DatePattern identifies which pattern matched a date token.
type DatePattern int

const (
	PatternMonthAbbrev DatePattern = iota + 1 // Jan 5
	PatternMonthFull                          // January 5
	PatternSlash                              // 1/5, 1/5/25, 1/5/2025
	PatternDash                               // 1-5, 1-5-25, 1-5-2025
	PatternWeekday                            // Mon 15
	PatternISO                                // 2025-01-05
)

func (p DatePattern) String() string {
	switch p {
	case PatternMonthAbbrev:
		return "month_abbrev"
	case PatternMonthFull:
		return "month_full"
	case PatternSlash:
		return "numeric_slash"
	case PatternDash:
		return "numeric_dash"
	case PatternWeekday:
		return "weekday"
	case PatternISO:
		return "iso"
	}
	return "unknown"
}

// AllPatterns is the default scan order.
var AllPatterns = []DatePattern{
	PatternMonthAbbrev,
	PatternMonthFull,
	PatternSlash,
	PatternDash,
	PatternWeekday,
	PatternISO,
}

// calendarPatterns are the patterns used inside calendar windows.
var calendarPatterns = []DatePattern{PatternMonthAbbrev, PatternSlash, PatternDash}

var patternRegexps = map[DatePattern]*regexp.Regexp{
	PatternMonthAbbrev: regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)\s+(\d{1,2})\b(?:,?\s+(\d{4})\b)?`),
	PatternMonthFull:   regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december)\s+(\d{1,2})\b(?:,?\s+(\d{4})\b)?`),
	PatternSlash:       regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{4}|\d{2}))?\b`),
	PatternDash:        regexp.MustCompile(`\b(\d{1,2})-(\d{1,2})(?:-(\d{4}|\d{2}))?\b`),
	PatternWeekday:     regexp.MustCompile(`(?i)\b(mon|tue|wed|thu|fri|sat|sun)\s+(\d{1,2})\b`),
	PatternISO:         regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`),
}

var monthNumbers = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// DateToken is a raw date-like substring and the pattern that found it.
type DateToken struct {
	Raw     string
	Pattern DatePattern
}

// Tokens yields date-like substrings of text. Patterns are applied one
// after another (all of them when none are given); within a pattern,
// matches come left to right. Numeric matches that only continue a longer
// number, such as the month and day of an ISO date, are skipped.
func Tokens(text string, patterns ...DatePattern) iter.Seq[DateToken] {
	if len(patterns) == 0 {
		patterns = AllPatterns
	}
	return func(yield func(DateToken) bool) {
		for _, p := range patterns {
			re, ok := patternRegexps[p]
			if !ok {
				continue
			}
			for _, loc := range re.FindAllStringIndex(text, -1) {
				if (p == PatternSlash || p == PatternDash) && continuesNumber(text, loc[0]) {
					continue
				}
				if !yield(DateToken{Raw: text[loc[0]:loc[1]], Pattern: p}) {
					return
				}
			}
		}
	}
}

// continuesNumber reports whether the match at start directly follows a
// digit and a separator, as "07-23" does inside "2024-07-23".
func continuesNumber(text string, start int) bool {
	if start < 2 {
		return false
	}
	sep, digit := text[start-1], text[start-2]
	return (sep == '-' || sep == '/') && digit >= '0' && digit <= '9'
}

// FirstDate resolves the first token found in text. The "nearest" date on
// a calendar is approximated by the first one; a first token that does
// not resolve means no date.
func FirstDate(text string, now time.Time, patterns ...DatePattern) (DateToken, string, bool) {
	for tok := range Tokens(text, patterns...) {
		date, ok := ResolveToken(tok, now)
		return tok, date, ok
	}
	return DateToken{}, "", false
}

// ResolveToken converts a token into a YYYY-MM-DD date. Tokens without a
// year use now's year; two-digit years are 20YY. Weekday tokens never
// resolve, and neither do impossible dates such as Feb 30.
func ResolveToken(tok DateToken, now time.Time) (string, bool) {
	re, ok := patternRegexps[tok.Pattern]
	if !ok {
		return "", false
	}
	m := re.FindStringSubmatch(tok.Raw)
	if m == nil {
		return "", false
	}

	var month time.Month
	var dayStr, yearStr string
	switch tok.Pattern {
	case PatternMonthAbbrev, PatternMonthFull:
		month = monthNumbers[strings.ToLower(m[1][:3])]
		dayStr, yearStr = m[2], m[3]
	case PatternSlash, PatternDash:
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return "", false
		}
		month = time.Month(n)
		dayStr, yearStr = m[2], m[3]
	case PatternISO:
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return "", false
		}
		month = time.Month(n)
		yearStr, dayStr = m[1], m[3]
	default:
		return "", false
	}

	day, err := strconv.Atoi(dayStr)
	if err != nil {
		return "", false
	}
	year, ok := resolveYear(yearStr, now)
	if !ok {
		return "", false
	}
	return civilDate(year, month, day)
}

func resolveYear(s string, now time.Time) (int, bool) {
	if s == "" {
		return now.Year(), true
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	if len(s) == 2 {
		return 2000 + n, true
	}
	return n, true
}

// civilDate formats a calendar date, rejecting values time.Date would
// silently normalize.
func civilDate(year int, month time.Month, day int) (string, bool) {
	if month < time.January || month > time.December || day < 1 {
		return "", false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Month() != month || t.Day() != day {
		return "", false
	}
	return t.Format("2006-01-02"), true
}
