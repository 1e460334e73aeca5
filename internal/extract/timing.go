package extract

import "strings"

// Defaults differ per path and are kept as they are: a screenshot page
// defaults to BMO, a pasted line defaults to AMC.
const (
	DefaultPageTiming = BMO
	DefaultBulkTiming = AMC
)

var (
	bmoKeywords = []string{"before market", "bmo", "premarket"}
	amcKeywords = []string{"after market", "amc", "aftermarket"}

	// Calendar windows only look for the short forms.
	windowBMOKeywords = []string{"bmo", "before market"}
	windowAMCKeywords = []string{"amc", "after market"}
)

// ClassifyTiming classifies a span by keyword search. There is no
// negation handling: "not before market open" is still BMO.
func ClassifyTiming(span string) Timing {
	if t, ok := matchTiming(span, bmoKeywords, amcKeywords); ok {
		return t
	}
	return DefaultPageTiming
}

// windowTiming classifies the window as a whole with the short forms.
// BMO is checked first, so a BMO anywhere in the window beats an AMC.
func windowTiming(lines []string) (Timing, bool) {
	return matchTiming(strings.Join(lines, "\n"), windowBMOKeywords, windowAMCKeywords)
}

func matchTiming(span string, bmo, amc []string) (Timing, bool) {
	lower := strings.ToLower(span)
	if containsAny(lower, bmo) {
		return BMO, true
	}
	if containsAny(lower, amc) {
		return AMC, true
	}
	return "", false
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
