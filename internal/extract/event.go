// Package extract turns OCR output and pasted text into structured
// earnings events.
//
// Several independent strategies produce candidate events; Reconcile
// merges them so that each (ticker, date) pair appears once, with the
// higher-priority strategy winning.
package extract

import (
	"github.com/shopspring/decimal"
)

// Timing is when the earnings announcement happens relative to the session.
type Timing string

const (
	BMO Timing = "BMO" // before market open
	AMC Timing = "AMC" // after market close
)

// Source records which strategy produced an event.
type Source string

const (
	SourceLogo     Source = "logo_detection"
	SourceCalendar Source = "calendar_text"
	SourceFallback Source = "text_fallback"
	SourceBulk     Source = "bulk_paste"
)

// Event is a single earnings announcement.
type Event struct {
	CompanyName  string `json:"companyName" validate:"required"`
	StockTicker  string `json:"stockTicker" validate:"required,ticker"`
	EarningsDate string `json:"earningsDate" validate:"required,datetime=2006-01-02"`
	EarningsType Timing `json:"earningsType" validate:"oneof=BMO AMC"`
	IsConfirmed  bool   `json:"isConfirmed"`

	// Estimates are not extracted; they stay nil until set elsewhere.
	EstimatedEPS     *decimal.Decimal `json:"estimatedEPS"`
	EstimatedRevenue *decimal.Decimal `json:"estimatedRevenue"`

	Source Source `json:"source" validate:"oneof=logo_detection calendar_text text_fallback bulk_paste"`

	// Raw strings kept for operator review only.
	DetectedLogoName string `json:"detectedLogoName,omitempty"`
	DetectedDate     string `json:"detectedDate,omitempty"`
	DetectedLine     string `json:"detectedLine,omitempty"`
}

// Key identifies an event for de-duplication.
func (e Event) Key() string {
	return e.StockTicker + "-" + e.EarningsDate
}
