package suggestion

import (
	"math"
	"sort"
)

// Classify returns an adjusted severity for s, applying the rules in order:
//  1. category in {security, logic} and confidence >= 0.9 -> Error.
//  2. incoming severity is Error and confidence < 0.7 -> Warning.
//  3. otherwise the incoming severity (invalid values default to Suggest).
func Classify(s Suggestion) Severity {
	current := normalizeSeverity(s.Severity)

	if (s.Category == CategorySecurity || s.Category == CategoryLogic) && s.Confidence >= 0.9 {
		return Error
	}
	if current == Error && s.Confidence < 0.7 {
		return Warning
	}
	return current
}

// FilterByThreshold reclassifies every suggestion (writing the classified
// severity back via WithSeverity) and retains those whose classified
// priority is <= the threshold's priority. An invalid threshold defaults to
// Suggest. The input slice is not mutated; a new slice is returned.
func FilterByThreshold(suggestions []Suggestion, threshold Severity) []Suggestion {
	thresholdPriority := severityOrder[normalizeSeverity(threshold)]

	filtered := make([]Suggestion, 0, len(suggestions))
	for _, s := range suggestions {
		classified := Classify(s)
		s = s.WithSeverity(classified)
		if severityOrder[classified] <= thresholdPriority {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

// SortBySeverity returns a stably sorted copy ordered by (classified severity
// ascending priority, confidence descending, category ascending).
func SortBySeverity(suggestions []Suggestion) []Suggestion {
	out := make([]Suggestion, len(suggestions))
	copy(out, suggestions)

	sort.SliceStable(out, func(i, j int) bool {
		si, sj := Classify(out[i]), Classify(out[j])
		pi, pj := severityOrder[si], severityOrder[sj]
		if pi != pj {
			return pi < pj
		}
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// ShouldBlockMerge reports whether any suggestion classifies as Error.
func ShouldBlockMerge(suggestions []Suggestion) bool {
	for _, s := range suggestions {
		if Classify(s) == Error {
			return true
		}
	}
	return false
}

// GetMaxSeverity returns the most severe classified value, or Note when
// suggestions is empty.
func GetMaxSeverity(suggestions []Suggestion) Severity {
	if len(suggestions) == 0 {
		return Note
	}

	maxPriority := math.MaxInt
	maxSeverity := Note
	for _, s := range suggestions {
		sev := Classify(s)
		if p := severityOrder[sev]; p < maxPriority {
			maxPriority = p
			maxSeverity = sev
		}
	}
	return maxSeverity
}

// Stats holds severity distribution counts and percentages.
type Stats struct {
	Error            int     `json:"error"`
	Warning          int     `json:"warning"`
	Suggestion       int     `json:"suggestion"`
	Note             int     `json:"note"`
	Total            int     `json:"total"`
	ErrorPercent      float64 `json:"error_percent,omitempty"`
	WarningPercent    float64 `json:"warning_percent,omitempty"`
	SuggestionPercent float64 `json:"suggestion_percent,omitempty"`
	NotePercent       float64 `json:"note_percent,omitempty"`
}

// GetSeverityStats returns counts per severity and 1-decimal-place
// percentages. Percentages are omitted (left zero) when total is zero.
func GetSeverityStats(suggestions []Suggestion) Stats {
	stats := Stats{Total: len(suggestions)}

	for _, s := range suggestions {
		switch Classify(s) {
		case Error:
			stats.Error++
		case Warning:
			stats.Warning++
		case Suggest:
			stats.Suggestion++
		case Note:
			stats.Note++
		}
	}

	if stats.Total > 0 {
		round1 := func(n int) float64 {
			return math.Round(float64(n)/float64(stats.Total)*1000) / 10
		}
		stats.ErrorPercent = round1(stats.Error)
		stats.WarningPercent = round1(stats.Warning)
		stats.SuggestionPercent = round1(stats.Suggestion)
		stats.NotePercent = round1(stats.Note)
	}

	return stats
}
