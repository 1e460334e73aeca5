// Package directory holds the static company-name to ticker table used to
// resolve logos and text mentions into stock tickers.
package directory

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed tickers.yaml
var defaultYAML []byte

var tickerPattern = regexp.MustCompile(`^[A-Z][A-Z.]{0,4}$`)

// ValidTicker reports whether s is an uppercase 1-5 character symbol
// made of letters and dots (e.g. "AAPL", "BRK.B").
func ValidTicker(s string) bool {
	return tickerPattern.MatchString(s)
}

// Entry maps one company name or alias to its ticker.
type Entry struct {
	CompanyName string `yaml:"name"`
	Ticker      string `yaml:"ticker"`
}

// Directory is an ordered, read-only table of entries. It is safe for
// concurrent use because nothing mutates it after construction.
type Directory struct {
	entries  []Entry
	byName   map[string]Entry
	byTicker map[string]Entry
}

type directoryFile struct {
	Companies []Entry `yaml:"companies"`
}

// New builds a directory from entries, keeping their order.
func New(entries []Entry) (*Directory, error) {
	d := &Directory{
		entries:  make([]Entry, 0, len(entries)),
		byName:   make(map[string]Entry, len(entries)),
		byTicker: make(map[string]Entry, len(entries)),
	}
	for i, e := range entries {
		e.CompanyName = strings.TrimSpace(e.CompanyName)
		e.Ticker = strings.TrimSpace(e.Ticker)
		if e.CompanyName == "" {
			return nil, fmt.Errorf("entry %d: company name is empty", i+1)
		}
		if !ValidTicker(e.Ticker) {
			return nil, fmt.Errorf("entry %d (%s): invalid ticker %q", i+1, e.CompanyName, e.Ticker)
		}
		// First occurrence wins for both lookups.
		if _, ok := d.byName[e.CompanyName]; !ok {
			d.byName[e.CompanyName] = e
		}
		if _, ok := d.byTicker[e.Ticker]; !ok {
			d.byTicker[e.Ticker] = e
		}
		d.entries = append(d.entries, e)
	}
	return d, nil
}

// Parse parses a YAML directory document.
func Parse(data []byte) (*Directory, error) {
	var f directoryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing directory: %w", err)
	}
	if len(f.Companies) == 0 {
		return nil, fmt.Errorf("directory has no companies")
	}
	return New(f.Companies)
}

// Load reads a directory YAML file from disk.
func Load(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}
	return Parse(data)
}

// Default returns the built-in directory.
func Default() *Directory {
	d, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("built-in directory is invalid: %v", err))
	}
	return d
}

// Entries returns a copy of all entries in insertion order.
func (d *Directory) Entries() []Entry {
	out := make([]Entry, len(d.entries))
	copy(out, d.entries)
	return out
}

// Len returns the number of entries.
func (d *Directory) Len() int {
	return len(d.entries)
}

// ByTicker returns the first entry with exactly this ticker.
func (d *Directory) ByTicker(ticker string) (Entry, bool) {
	e, ok := d.byTicker[ticker]
	return e, ok
}
