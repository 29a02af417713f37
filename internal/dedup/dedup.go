// Package dedup collapses near-duplicate findings within a file using a
// fuzzy signature: category, line bucket, and Jaccard similarity over the
// normalized message.
package dedup

import (
	"fmt"
	"sort"
	"strings"

	"github.com/corvid-review/corvid/internal/suggestion"
)

const (
	defaultLineTolerance               = 3
	defaultMessageSimilarityThreshold   = 0.8
)

// Deduplicator collapses suggestions that describe the same issue.
type Deduplicator struct {
	LineTolerance             int
	MessageSimilarityThreshold float64
}

// NewDeduplicator returns a Deduplicator configured with the default line
// tolerance (3) and message similarity threshold (0.8).
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{
		LineTolerance:              defaultLineTolerance,
		MessageSimilarityThreshold: defaultMessageSimilarityThreshold,
	}
}

// Deduplicate groups suggestions by file and, within each file, collapses
// colliding signatures keeping the first of each colliding run (suggestions
// sorted by line number first). Never increases the input length and is
// idempotent: Deduplicate(Deduplicate(s)) == Deduplicate(s).
func (d *Deduplicator) Deduplicate(suggestions []suggestion.Suggestion) []suggestion.Suggestion {
	if len(suggestions) == 0 {
		return []suggestion.Suggestion{}
	}

	byFile := make(map[string][]suggestion.Suggestion)
	var fileOrder []string
	for _, s := range suggestions {
		if _, ok := byFile[s.FilePath]; !ok {
			fileOrder = append(fileOrder, s.FilePath)
		}
		byFile[s.FilePath] = append(byFile[s.FilePath], s)
	}

	result := make([]suggestion.Suggestion, 0, len(suggestions))
	for _, path := range fileOrder {
		result = append(result, d.deduplicateFile(byFile[path])...)
	}
	return result
}

func (d *Deduplicator) deduplicateFile(suggestions []suggestion.Suggestion) []suggestion.Suggestion {
	if len(suggestions) <= 1 {
		return suggestions
	}

	sorted := make([]suggestion.Suggestion, len(suggestions))
	copy(sorted, suggestions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].LineNumber < sorted[j].LineNumber
	})

	result := make([]suggestion.Suggestion, 0, len(sorted))
	var seen []string

	for _, s := range sorted {
		sig := d.signature(s)

		duplicate := false
		for _, seenSig := range seen {
			if d.isDuplicate(sig, seenSig) {
				duplicate = true
				break
			}
		}

		if !duplicate {
			seen = append(seen, sig)
			result = append(result, s)
		}
	}

	return result
}

// signature builds "{category}:{line_bucket}:{normalized_message[:100]}".
// The line bucket is line_number / line_tolerance under integer division,
// so collisions depend on bucket membership, not raw line distance: lines 9
// and 10 share bucket 3 while 8 and 9 do not. The asymmetry around bucket
// edges is deliberate; widening to a sliding window would change which
// duplicates survive.
func (d *Deduplicator) signature(s suggestion.Suggestion) string {
	message := normalizeMessage(s.Message)
	if len(message) > 100 {
		message = message[:100]
	}
	bucket := s.LineNumber / d.LineTolerance
	return fmt.Sprintf("%s:%d:%s", s.Category, bucket, message)
}

func normalizeMessage(msg string) string {
	return strings.Join(strings.Fields(strings.ToLower(msg)), " ")
}

// isDuplicate compares two "category:bucket:message" signatures: same
// category, same bucket, and Jaccard word-set similarity of the message
// parts >= threshold.
func (d *Deduplicator) isDuplicate(sig1, sig2 string) bool {
	parts1 := strings.SplitN(sig1, ":", 3)
	parts2 := strings.SplitN(sig2, ":", 3)

	if parts1[0] != parts2[0] {
		return false
	}
	if parts1[1] != parts2[1] {
		return false
	}

	msg1, msg2 := "", ""
	if len(parts1) > 2 {
		msg1 = parts1[2]
	}
	if len(parts2) > 2 {
		msg2 = parts2[2]
	}

	return jaccardSimilarity(msg1, msg2) >= d.MessageSimilarityThreshold
}

func jaccardSimilarity(s1, s2 string) float64 {
	if s1 == s2 {
		return 1.0
	}
	if s1 == "" || s2 == "" {
		return 0.0
	}

	words1 := wordSet(s1)
	words2 := wordSet(s2)
	if len(words1) == 0 || len(words2) == 0 {
		return 0.0
	}

	intersection := 0
	for w := range words1 {
		if _, ok := words2[w]; ok {
			intersection++
		}
	}
	union := len(words1) + len(words2) - intersection

	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(s) {
		set[w] = struct{}{}
	}
	return set
}

// DeduplicateByPriority groups by (file, exact line) and, for each group,
// keeps the suggestion with the minimum tuple
// (severity_priority, category_priority, -confidence).
func DeduplicateByPriority(suggestions []suggestion.Suggestion) []suggestion.Suggestion {
	if len(suggestions) == 0 {
		return []suggestion.Suggestion{}
	}

	type location struct {
		file string
		line int
	}

	byLocation := make(map[location][]suggestion.Suggestion)
	var order []location
	for _, s := range suggestions {
		loc := location{s.FilePath, s.LineNumber}
		if _, ok := byLocation[loc]; !ok {
			order = append(order, loc)
		}
		byLocation[loc] = append(byLocation[loc], s)
	}

	result := make([]suggestion.Suggestion, 0, len(order))
	for _, loc := range order {
		result = append(result, selectHighestPriority(byLocation[loc]))
	}
	return result
}

var severityPriority = map[suggestion.Severity]int{
	suggestion.Error:   0,
	suggestion.Warning: 1,
	suggestion.Suggest: 2,
	suggestion.Note:    3,
}

func selectHighestPriority(group []suggestion.Suggestion) suggestion.Suggestion {
	best := group[0]
	bestKey := priorityKey(best)

	for _, s := range group[1:] {
		key := priorityKey(s)
		if less(key, bestKey) {
			best = s
			bestKey = key
		}
	}
	return best
}

type priorityTuple struct {
	severity   int
	category   int
	confidence float64
}

func priorityKey(s suggestion.Suggestion) priorityTuple {
	sevRank, ok := severityPriority[s.Severity]
	if !ok {
		sevRank = 4
	}
	catRank := 5
	switch s.Category {
	case suggestion.CategorySecurity:
		catRank = 0
	case suggestion.CategoryLogic:
		catRank = 1
	case suggestion.CategoryPattern:
		catRank = 2
	case suggestion.CategoryStyle:
		catRank = 3
	}
	return priorityTuple{severity: sevRank, category: catRank, confidence: -s.Confidence}
}

func less(a, b priorityTuple) bool {
	if a.severity != b.severity {
		return a.severity < b.severity
	}
	if a.category != b.category {
		return a.category < b.category
	}
	return a.confidence < b.confidence
}
