package directory

import (
	"strings"
	"unicode"
)

const maxSynthesizedLen = 5

// Resolution is the outcome of resolving a free-text label.
type Resolution struct {
	CompanyName string
	Ticker      string
	// Synthesized is set when no entry matched and the ticker was derived
	// from the label itself. Such tickers may not exist on any market.
	Synthesized bool
}

// Resolve maps a logo label or text token to a company and ticker:
// exact name match, then case-insensitive substring match in either
// direction (first entry wins), then a synthesized ticker.
// It returns false only when the label has no letters to synthesize from.
func (d *Directory) Resolve(label string) (Resolution, bool) {
	label = strings.TrimSpace(label)
	if label == "" {
		return Resolution{}, false
	}

	if e, ok := d.byName[label]; ok {
		return Resolution{CompanyName: e.CompanyName, Ticker: e.Ticker}, true
	}

	if e, ok := d.matchSubstring(label); ok {
		return Resolution{CompanyName: e.CompanyName, Ticker: e.Ticker}, true
	}

	ticker := SynthesizeTicker(label)
	if ticker == "" {
		return Resolution{}, false
	}
	return Resolution{CompanyName: label, Ticker: ticker, Synthesized: true}, true
}

// CompanyName returns the directory name for a ticker-or-name-like input,
// or the input unchanged when nothing matches.
func (d *Directory) CompanyName(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return input
	}
	if e, ok := d.matchSubstring(trimmed); ok {
		return e.CompanyName
	}
	return input
}

func (d *Directory) matchSubstring(input string) (Entry, bool) {
	lower := strings.ToLower(input)
	for _, e := range d.entries {
		name := strings.ToLower(e.CompanyName)
		if strings.Contains(lower, name) || strings.Contains(name, lower) {
			return e, true
		}
	}
	return Entry{}, false
}

// SynthesizeTicker uppercases the label, drops every non-letter and keeps
// at most five characters.
func SynthesizeTicker(label string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(label) {
		if r > unicode.MaxASCII || !unicode.IsLetter(r) {
			continue
		}
		b.WriteRune(r)
		if b.Len() == maxSynthesizedLen {
			break
		}
	}
	return b.String()
}
