package extract

import (
	"testing"

	"github.com/TobiSchelling/catalysts/internal/ocr"
)

func TestCalendarScenario(t *testing.T) {
	events := FromCalendarText(testDirectory(t), "Apple reports Dec 15 BMO", testNow, DefaultWindow)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d: %+v", len(events), events)
	}
	e := events[0]
	if e.CompanyName != "Apple" || e.StockTicker != "AAPL" || e.EarningsDate != "2025-12-15" || e.EarningsType != BMO {
		t.Errorf("unexpected event %+v", e)
	}
	if e.Source != SourceCalendar || !e.IsConfirmed {
		t.Errorf("expected confirmed calendar_text event, got %+v", e)
	}
	if e.DetectedLine != "Apple reports Dec 15 BMO" {
		t.Errorf("unexpected detected line %q", e.DetectedLine)
	}
}

func TestCalendarWindows(t *testing.T) {
	text := `Earnings this week
Apple
Jan 30
after market close
Conference call details
Webcast replay
Investor relations
Microsoft
Feb 4
BMO`

	events := FromCalendarText(testDirectory(t), text, testNow, DefaultWindow)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d: %+v", len(events), events)
	}
	if events[0].StockTicker != "AAPL" || events[0].EarningsDate != "2025-01-30" || events[0].EarningsType != AMC {
		t.Errorf("unexpected Apple event %+v", events[0])
	}
	if events[1].StockTicker != "MSFT" || events[1].EarningsDate != "2025-02-04" || events[1].EarningsType != BMO {
		t.Errorf("unexpected Microsoft event %+v", events[1])
	}
}

func TestCalendarTimingPrefersBMO(t *testing.T) {
	events := FromCalendarText(testDirectory(t), "Microsoft AMC Jan 28\nApple BMO Jan 29", testNow, DefaultWindow)
	var apple *Event
	for i := range events {
		if events[i].StockTicker == "AAPL" {
			apple = &events[i]
		}
	}
	if apple == nil {
		t.Fatalf("expected an Apple event, got %+v", events)
	}
	if apple.EarningsType != BMO {
		t.Errorf("expected Apple's BMO to win over the AMC above it, got %s", apple.EarningsType)
	}
}

func TestCalendarWindowDatePatternOrder(t *testing.T) {
	// Month names are scanned before slash dates across the whole window.
	events := FromCalendarText(testDirectory(t), "Week of 1/20\nApple Jan 23", testNow, DefaultWindow)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %+v", events)
	}
	if events[0].EarningsDate != "2025-01-23" || events[0].DetectedDate != "Jan 23" {
		t.Errorf("expected Jan 23 from the month pattern, got %+v", events[0])
	}
}

func TestCalendarISODateNotRead(t *testing.T) {
	// ISO dates are not a calendar pattern, and their tail is not a dash date.
	events := FromCalendarText(testDirectory(t), "Apple\n2024-07-23", testNow, DefaultWindow)
	if len(events) != 0 {
		t.Errorf("expected no event, got %+v", events)
	}
}

func TestFallbackKeepsISOYear(t *testing.T) {
	events := FromTextFallback(testDirectory(t), "Apple reports 2024-07-23", testNow)
	if len(events) != 1 || events[0].EarningsDate != "2024-07-23" {
		t.Errorf("expected the ISO year to be kept, got %+v", events)
	}
}

func TestCalendarNoDateInWindow(t *testing.T) {
	events := FromCalendarText(testDirectory(t), "Apple\nThu 23\nQ3 results", testNow, DefaultWindow)
	if len(events) != 0 {
		t.Errorf("expected weekday-only window to yield nothing, got %+v", events)
	}
}

func TestCalendarMultipleMatchesPerLine(t *testing.T) {
	events := FromCalendarText(testDirectory(t), "Meta (Facebook) Jan 5", testNow, DefaultWindow)
	if len(events) != 2 {
		t.Fatalf("expected one event per matching entry, got %d", len(events))
	}
	if events[0].CompanyName != "Meta" || events[1].CompanyName != "Facebook" {
		t.Errorf("unexpected companies %q, %q", events[0].CompanyName, events[1].CompanyName)
	}
}

func TestCalendarHeader(t *testing.T) {
	tests := map[string]bool{
		"Monday":      true,
		"thurs":       true,
		"15":          true,
		"AB":          true,
		"Apple":       false,
		"Monday AAPL": false,
	}
	for line, want := range tests {
		if got := calendarHeader(line); got != want {
			t.Errorf("calendarHeader(%q) = %v, want %v", line, got, want)
		}
	}
}

func TestLogosShareDateAndTiming(t *testing.T) {
	logos := []ocr.Logo{{Label: "Apple"}, {Label: "Tesla Motors"}, {Label: "1234"}}
	events := FromLogos(testDirectory(t), logos, "Week of Jan 5\nafter market close", testNow)

	if len(events) != 2 {
		t.Fatalf("expected unresolvable logo to be dropped, got %d events", len(events))
	}
	for _, e := range events {
		if e.EarningsDate != "2025-01-05" || e.EarningsType != AMC || e.Source != SourceLogo {
			t.Errorf("unexpected event %+v", e)
		}
	}
	if events[1].StockTicker != "TSLA" || events[1].DetectedLogoName != "Tesla Motors" {
		t.Errorf("expected Tesla resolved by substring, got %+v", events[1])
	}
}

func TestLogosSynthesizedTicker(t *testing.T) {
	events := FromLogos(testDirectory(t), []ocr.Logo{{Label: "Zoom Video"}}, "Mar 3", testNow)
	if len(events) != 1 || events[0].StockTicker != "ZOOMV" || events[0].CompanyName != "Zoom Video" {
		t.Errorf("expected synthesized ZOOMV, got %+v", events)
	}
}

func TestLogosWithoutDate(t *testing.T) {
	events := FromLogos(testDirectory(t), []ocr.Logo{{Label: "Apple"}}, "no date here", testNow)
	if len(events) != 0 {
		t.Errorf("expected no events without a date, got %+v", events)
	}
}

func TestTwoLogosCollapse(t *testing.T) {
	logos := []ocr.Logo{{Label: "Apple"}, {Label: "Apple Inc."}}
	candidates := FromLogos(testDirectory(t), logos, "Dec 15", testNow)
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
	r := Reconcile(candidates, DefaultMaxEvents)
	if len(r.Events) != 1 || r.Events[0].Key() != "AAPL-2025-12-15" {
		t.Errorf("expected one AAPL event, got %+v", r.Events)
	}
	if r.TotalDetections != 2 || r.UniqueCount != 1 {
		t.Errorf("unexpected counts total=%d unique=%d", r.TotalDetections, r.UniqueCount)
	}
}

func TestFallbackUsesWholeText(t *testing.T) {
	events := FromTextFallback(testDirectory(t), "Apple\nNVDA\nweek of 3/14", testNow)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	for _, e := range events {
		if e.EarningsDate != "2025-03-14" || e.EarningsType != BMO || e.Source != SourceFallback {
			t.Errorf("unexpected event %+v", e)
		}
	}
}
