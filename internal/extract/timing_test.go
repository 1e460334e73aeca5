package extract

import "testing"

func TestClassifyTiming(t *testing.T) {
	tests := map[string]Timing{
		"Reports before market open": BMO,
		"AAPL BMO":                   BMO,
		"premarket call":             BMO,
		"Reports AMC":                AMC,
		"After Market Close":         AMC,
		"aftermarket session":        AMC,
		"":                           BMO,
		"no keywords":                BMO,
		"not before market open":     BMO,
		"BMO and AMC":                BMO,
	}
	for span, want := range tests {
		if got := ClassifyTiming(span); got != want {
			t.Errorf("ClassifyTiming(%q) = %s, want %s", span, got, want)
		}
	}
}

func TestWindowTimingPrefersBMO(t *testing.T) {
	got, ok := windowTiming([]string{"Microsoft AMC", "Apple", "BMO"})
	if !ok || got != BMO {
		t.Errorf("expected BMO to win over an earlier AMC, got %s %v", got, ok)
	}
	got, ok = windowTiming([]string{"Apple", "after market close"})
	if !ok || got != AMC {
		t.Errorf("expected AMC, got %s %v", got, ok)
	}
	if _, ok := windowTiming([]string{"Apple", "Jan 5"}); ok {
		t.Error("expected no timing keyword")
	}
	// Windows do not recognise the long forms.
	if _, ok := windowTiming([]string{"premarket"}); ok {
		t.Error("expected premarket to be ignored in windows")
	}
}
