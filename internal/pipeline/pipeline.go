// Package pipeline runs extraction requests end to end: OCR, the
// extraction strategies, validation, persistence and the run log.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/TobiSchelling/catalysts/internal/collect"
	"github.com/TobiSchelling/catalysts/internal/extract"
	"github.com/TobiSchelling/catalysts/internal/ocr"
	"github.com/TobiSchelling/catalysts/internal/store"
)

// DefaultExtractedTextChars is how much OCR text an upload echoes back.
const DefaultExtractedTextChars = 1000

var (
	// ErrInvalidEvent is returned when a submitted event fails validation.
	ErrInvalidEvent = errors.New("invalid event")
	// ErrNoStore is returned by operations that persist without a store.
	ErrNoStore = errors.New("no store configured")
	// ErrEmptyImage is returned for an upload without image bytes.
	ErrEmptyImage = errors.New("empty image")
)

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Pipeline wires the OCR client, extractor and store together. The store
// may be nil, in which case nothing is persisted and runs are not logged.
type Pipeline struct {
	client    ocr.Client
	x         *extract.Extractor
	store     store.Store
	textChars int
}

// New creates a new pipeline.
func New(client ocr.Client, x *extract.Extractor, st store.Store, extractedTextChars int) *Pipeline {
	if extractedTextChars <= 0 {
		extractedTextChars = DefaultExtractedTextChars
	}
	return &Pipeline{client: client, x: x, store: st, textChars: extractedTextChars}
}

// Extractor returns the pipeline's extractor.
func (p *Pipeline) Extractor() *extract.Extractor {
	return p.x
}

// Store returns the pipeline's store, which may be nil.
func (p *Pipeline) Store() store.Store {
	return p.store
}

// UploadResult is the response to a screenshot upload.
type UploadResult struct {
	Success            bool            `json:"success"`
	Events             []extract.Event `json:"events"`
	ExtractedText      string          `json:"extractedText"`
	LogoCount          int             `json:"logoCount"`
	CalendarEventCount int             `json:"calendarEventCount"`
	Message            string          `json:"message"`

	Extraction extract.Extraction `json:"-"`
	Steps      []StepResult       `json:"-"`
}

// ProcessUpload runs OCR on an image and extracts earnings events from it.
// Detected events are returned for review, not persisted.
func (p *Pipeline) ProcessUpload(ctx context.Context, image []byte) (*UploadResult, error) {
	if len(image) == 0 {
		return nil, ErrEmptyImage
	}
	r := &UploadResult{}

	log.Println("Step 1/3: Running OCR...")
	res, err := p.client.Annotate(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("ocr: %w", err)
	}
	if res == nil {
		res = &ocr.Result{}
	}
	r.Steps = append(r.Steps, StepResult{
		Name:    "OCR",
		Summary: fmt.Sprintf("%d logos, %d characters of text", len(res.Logos), len(res.FullText)),
	})

	log.Println("Step 2/3: Extracting events...")
	ext := p.x.FromOCR(res)
	r.Extraction = ext
	r.Success = true
	r.Events = ext.Events
	r.ExtractedText = truncate(res.FullText, p.textChars)
	r.LogoCount = ext.LogoCandidates
	r.CalendarEventCount = ext.CalendarCandidates
	r.Message = uploadMessage(ext)
	r.Steps = append(r.Steps, StepResult{Name: "Extract", Summary: r.Message})

	log.Println("Step 3/3: Recording run...")
	r.Steps = append(r.Steps, p.recordRun(store.Run{
		Kind:          store.RunUpload,
		LogoCount:     ext.LogoCandidates,
		CalendarCount: ext.CalendarCandidates,
		FallbackCount: ext.FallbackCandidates,
		UniqueCount:   ext.UniqueCount,
	}))

	return r, nil
}

func uploadMessage(ext extract.Extraction) string {
	n := len(ext.Events)
	switch {
	case n == 0:
		return "No earnings events detected. Try a clearer screenshot or use bulk paste."
	case ext.FallbackUsed:
		return fmt.Sprintf("Found %d earnings event(s) from a full-text scan", n)
	default:
		return fmt.Sprintf("Found %d earnings event(s) (%d from logos, %d from calendar text)",
			n, ext.LogoCandidates, ext.CalendarCandidates)
	}
}

// truncate returns at most n runes of s.
func truncate(s string, n int) string {
	runes := 0
	for i := range s {
		if runes == n {
			return s[:i]
		}
		runes++
	}
	return s
}

// BulkResult is the response to a bulk paste.
type BulkResult struct {
	Success bool                `json:"success"`
	Added   int                 `json:"added"`
	Skipped []extract.Rejection `json:"skipped"`

	Records []store.Record `json:"-"`
}

// ProcessBulk parses pasted lines and persists every accepted event.
func (p *Pipeline) ProcessBulk(text, defaultDate string) (*BulkResult, error) {
	if p.store == nil {
		return nil, ErrNoStore
	}

	parsed, err := p.x.ParseBulk(text, defaultDate)
	if err != nil {
		return nil, err
	}

	skipped := append([]extract.Rejection{}, parsed.Skipped...)
	accepted := make([]extract.Event, 0, len(parsed.Events))
	for _, e := range parsed.Events {
		if err := extract.Validate(e); err != nil {
			skipped = append(skipped, extract.Rejection{Line: e.DetectedLine, Reason: err.Error()})
			continue
		}
		accepted = append(accepted, e)
	}

	records, err := p.store.InsertEvents(accepted)
	if err != nil {
		return nil, fmt.Errorf("saving events: %w", err)
	}
	log.Printf("Bulk paste: %d added, %d skipped", len(records), len(skipped))

	p.recordRun(store.Run{
		Kind:        store.RunBulk,
		UniqueCount: len(accepted),
		Added:       len(records),
		Skipped:     len(skipped),
	})

	return &BulkResult{Success: true, Added: len(records), Skipped: skipped, Records: records}, nil
}

// SaveEvents validates and persists reviewed events. Nothing is written
// if any event is invalid.
func (p *Pipeline) SaveEvents(events []extract.Event) ([]store.Record, error) {
	if p.store == nil {
		return nil, ErrNoStore
	}
	for _, e := range events {
		if err := extract.Validate(e); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
		}
	}
	records, err := p.store.InsertEvents(events)
	if err != nil {
		return nil, fmt.Errorf("saving events: %w", err)
	}
	return records, nil
}

// recordRun logs a run to the store. Failures are logged, not returned.
func (p *Pipeline) recordRun(run store.Run) StepResult {
	step := StepResult{Name: "Record"}
	if p.store == nil {
		step.Summary = "No store configured, run not recorded"
		return step
	}
	run.CreatedAt = time.Now()
	id, err := p.store.InsertRun(run)
	if err != nil {
		log.Printf("Failed to record %s run: %v", run.Kind, err)
		step.Err = err
		return step
	}
	step.Summary = fmt.Sprintf("Recorded run %s", id)
	return step
}

// DocumentSource supplies text documents for import.
type DocumentSource interface {
	Collect(ctx context.Context) ([]collect.Document, *collect.Result)
}

// DocumentEvents pairs a document with the events found in it.
type DocumentEvents struct {
	Document collect.Document
	Events   []extract.Event
}

// ImportResult holds the results of a document import.
type ImportResult struct {
	Documents []DocumentEvents
	Events    []extract.Event
	Added     int
	Steps     []StepResult
}

// ProcessDocuments runs the text-only strategies over each document and
// reconciles the results across documents.
func (p *Pipeline) ProcessDocuments(docs []collect.Document) (*ImportResult, extract.Extraction) {
	r := &ImportResult{}
	var all []extract.Event
	var total extract.Extraction

	for _, doc := range docs {
		ext := p.x.FromText(doc.Text)
		total.LogoCandidates += ext.LogoCandidates
		total.CalendarCandidates += ext.CalendarCandidates
		total.FallbackCandidates += ext.FallbackCandidates
		if len(ext.Events) == 0 {
			continue
		}
		r.Documents = append(r.Documents, DocumentEvents{Document: doc, Events: ext.Events})
		all = append(all, ext.Events...)
	}

	total.Reconciled = extract.Reconcile(all, 0)
	r.Events = total.Events
	return r, total
}

// Import collects documents, extracts events from them and optionally
// saves the reconciled events.
func (p *Pipeline) Import(ctx context.Context, src DocumentSource, save bool) (*ImportResult, error) {
	log.Println("Step 1/3: Collecting documents...")
	docs, cres := src.Collect(ctx)
	collectStep := StepResult{
		Name:    "Collect",
		Summary: fmt.Sprintf("Collected %d documents (%d failed)", cres.TotalFound, cres.Failed),
	}

	log.Println("Step 2/3: Extracting events...")
	r, ext := p.ProcessDocuments(docs)
	r.Steps = append(r.Steps, collectStep, StepResult{
		Name:    "Extract",
		Summary: fmt.Sprintf("Found %d earnings event(s) in %d of %d documents", len(r.Events), len(r.Documents), len(docs)),
	})

	if !save {
		r.Steps = append(r.Steps, StepResult{Name: "Save", Summary: "Skipped (dry run)"})
		return r, nil
	}

	log.Println("Step 3/3: Saving events...")
	records, err := p.SaveEvents(r.Events)
	if err != nil {
		r.Steps = append(r.Steps, StepResult{Name: "Save", Err: err})
		return r, err
	}
	r.Added = len(records)
	r.Steps = append(r.Steps, StepResult{Name: "Save", Summary: fmt.Sprintf("Saved %d events", r.Added)})

	p.recordRun(store.Run{
		Kind:          store.RunImport,
		CalendarCount: ext.CalendarCandidates,
		FallbackCount: ext.FallbackCandidates,
		UniqueCount:   ext.UniqueCount,
		Added:         r.Added,
	})
	return r, nil
}
