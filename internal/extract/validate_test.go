package extract

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	valid := event("BRK.B", "2025-05-03", SourceBulk)
	if err := Validate(valid); err != nil {
		t.Fatalf("expected valid event, got %v", err)
	}

	tests := map[string]func(e *Event){
		"lowercase ticker": func(e *Event) { e.StockTicker = "brk" },
		"long ticker":      func(e *Event) { e.StockTicker = "ABCDEF" },
		"bad date":         func(e *Event) { e.EarningsDate = "2025-13-01" },
		"bad timing":       func(e *Event) { e.EarningsType = "DMH" },
		"missing company":  func(e *Event) { e.CompanyName = "" },
		"unknown source":   func(e *Event) { e.Source = "manual" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			e := valid
			mutate(&e)
			if err := Validate(e); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestEventJSON(t *testing.T) {
	data, err := json.Marshal(event("AAPL", "2025-01-30", SourceLogo))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	s := string(data)
	for _, want := range []string{`"stockTicker":"AAPL"`, `"earningsType":"BMO"`, `"estimatedEPS":null`, `"source":"logo_detection"`} {
		if !strings.Contains(s, want) {
			t.Errorf("expected %s in %s", want, s)
		}
	}
	if strings.Contains(s, "detectedLine") {
		t.Errorf("expected empty debug fields to be omitted, got %s", s)
	}
}
