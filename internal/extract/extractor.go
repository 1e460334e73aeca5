package extract

import (
	"time"

	"github.com/TobiSchelling/catalysts/internal/directory"
	"github.com/TobiSchelling/catalysts/internal/ocr"
)

// Extractor runs the strategies against one directory. It holds no
// per-request state and is safe for concurrent use.
type Extractor struct {
	dir       *directory.Directory
	now       func() time.Time
	maxEvents int
	window    int
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithClock sets the clock used to fill in missing years.
func WithClock(now func() time.Time) Option {
	return func(x *Extractor) { x.now = now }
}

// WithMaxEvents sets the reconciled result cap.
func WithMaxEvents(n int) Option {
	return func(x *Extractor) { x.maxEvents = n }
}

// WithWindow sets the calendar window half-height.
func WithWindow(n int) Option {
	return func(x *Extractor) { x.window = n }
}

// New returns an extractor over dir with the default cap and window.
func New(dir *directory.Directory, opts ...Option) *Extractor {
	x := &Extractor{
		dir:       dir,
		now:       time.Now,
		maxEvents: DefaultMaxEvents,
		window:    DefaultWindow,
	}
	for _, o := range opts {
		o(x)
	}
	return x
}

// Directory returns the directory the extractor resolves against.
func (x *Extractor) Directory() *directory.Directory {
	return x.dir
}

// Extraction is a reconciled result plus per-strategy candidate counts.
type Extraction struct {
	Reconciled
	LogoCandidates     int
	CalendarCandidates int
	FallbackCandidates int
	FallbackUsed       bool
}

// FromOCR runs logo-proximity and calendar-window extraction, and the
// text fallback only when both came up empty.
func (x *Extractor) FromOCR(res *ocr.Result) Extraction {
	if res == nil {
		res = &ocr.Result{}
	}
	now := x.now()
	logos := FromLogos(x.dir, res.Logos, res.FullText, now)
	calendar := FromCalendarText(x.dir, res.FullText, now, x.window)
	return x.finish(logos, calendar, res.FullText, now)
}

// FromText runs the text-only strategies on a document without logos.
func (x *Extractor) FromText(text string) Extraction {
	now := x.now()
	calendar := FromCalendarText(x.dir, text, now, x.window)
	return x.finish(nil, calendar, text, now)
}

func (x *Extractor) finish(logos, calendar []Event, text string, now time.Time) Extraction {
	out := Extraction{
		LogoCandidates:     len(logos),
		CalendarCandidates: len(calendar),
	}
	candidates := append(append([]Event{}, logos...), calendar...)
	if len(candidates) == 0 {
		fallback := FromTextFallback(x.dir, text, now)
		out.FallbackCandidates = len(fallback)
		out.FallbackUsed = true
		candidates = fallback
	}
	out.Reconciled = Reconcile(candidates, x.maxEvents)
	return out
}

// ParseBulk parses pasted text with the extractor's directory and clock.
func (x *Extractor) ParseBulk(text, defaultDate string) (BulkParse, error) {
	return ParseBulk(x.dir, text, defaultDate, x.now())
}
