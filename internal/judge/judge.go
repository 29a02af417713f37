// Package judge implements the LLM-as-judge validation, ranking, and
// conflict-resolution stage. Every operation degrades to a deterministic
// fallback when the model is unavailable rather than failing the review.
package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/corvid-review/corvid/internal/modelrouter"
	"github.com/corvid-review/corvid/internal/suggestion"
)

// Router is the narrow routing capability Judge needs.
type Router interface {
	RouteJSON(ctx context.Context, prompt string, tier modelrouter.Tier, systemPrompt string, target interface{}, opts ...modelrouter.RequestOption) error
}

// Judge validates, ranks, and deconflicts suggestions via a model router.
type Judge struct {
	Router Router
}

// New returns a Judge backed by router.
func New(router Router) *Judge {
	return &Judge{Router: router}
}

type validateResponse struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason"`
}

// Validate asks the model whether s is accurate, actionable, appropriately
// severity-scored, and valuable. Any router or parse failure fails open
// (the suggestion is accepted) so judge unavailability never silently drops
// real findings.
func (j *Judge) Validate(ctx context.Context, s suggestion.Suggestion) bool {
	prompt := fmt.Sprintf(`Validate this code review suggestion:

File: %s
Line: %d
Category: %s
Severity: %s
Message: %s
Suggested fix: %s
Confidence: %.2f

Evaluate if this suggestion is:
1. Accurate - Does it identify a real issue?
2. Actionable - Can the developer fix it?
3. Appropriate - Is the severity correct?
4. Valuable - Does it improve the code?

Return JSON: {"valid": true/false, "reason": "brief explanation"}`,
		s.FilePath, s.LineNumber, s.Category, s.Severity, s.Message, replacementOrNA(s), s.Confidence)

	var resp validateResponse
	resp.Valid = true // fail-open default before the router even runs
	if err := j.Router.RouteJSON(ctx, prompt, modelrouter.Balanced, "", &resp); err != nil {
		return true
	}
	return resp.Valid
}

func replacementOrNA(s suggestion.Suggestion) string {
	if s.Replacement == "" {
		return "N/A"
	}
	return s.Replacement
}

// maxRankContext caps how many suggestions are described in the ranking
// prompt, bounding the prompt's size on very large reviews.
const maxRankContext = 50

// indexList parses the model's index response liberally: a bare JSON array
// or one wrapped in {"indices": [...]}. Non-integer entries are dropped
// rather than failing the parse; out-of-range values are the caller's
// problem.
type indexList []int

func (l *indexList) UnmarshalJSON(data []byte) error {
	var items []any
	if err := json.Unmarshal(data, &items); err != nil {
		var wrapped struct {
			Indices []any `json:"indices"`
		}
		if err2 := json.Unmarshal(data, &wrapped); err2 != nil {
			return err
		}
		items = wrapped.Indices
	}
	out := make([]int, 0, len(items))
	for _, it := range items {
		if f, ok := it.(float64); ok && f == float64(int(f)) {
			out = append(out, int(f))
		}
	}
	*l = out
	return nil
}

// Rank returns the topK most important suggestions. If len(suggestions) <=
// topK the input is returned unchanged. On any router failure, Rank falls
// back to a deterministic severity-then-confidence sort truncated to topK.
func (j *Judge) Rank(ctx context.Context, suggestions []suggestion.Suggestion, topK int) []suggestion.Suggestion {
	if len(suggestions) <= topK {
		return suggestions
	}

	listed := suggestions
	if len(listed) > maxRankContext {
		listed = listed[:maxRankContext]
	}

	var b strings.Builder
	for i, s := range listed {
		fmt.Fprintf(&b, "%d. [%s] %s: %s (confidence: %.2f)\n\n",
			i+1, strings.ToUpper(string(s.Severity)), s.Category, s.Message, s.Confidence)
	}

	prompt := fmt.Sprintf(`Rank these code review suggestions by importance:

%s

Consider:
1. Security issues are most critical
2. Logic errors before style issues
3. High confidence suggestions
4. Actionability

Return the indices (1-based) of the top %d most important suggestions as a JSON array.`, b.String(), topK)

	var indices indexList
	if err := j.Router.RouteJSON(ctx, prompt, modelrouter.Balanced, "", &indices); err != nil {
		return fallbackRank(suggestions, topK)
	}

	ranked := make([]suggestion.Suggestion, 0, topK)
	taken := make(map[int]bool)
	for _, idx := range indices {
		if len(ranked) >= topK {
			break
		}
		if idx < 1 || idx > len(suggestions) {
			continue
		}
		ranked = append(ranked, suggestions[idx-1])
		taken[idx-1] = true
	}

	// Backfill if the model returned fewer than topK valid indices.
	for i, s := range suggestions {
		if len(ranked) >= topK {
			break
		}
		if !taken[i] {
			ranked = append(ranked, s)
		}
	}

	return ranked
}

func fallbackRank(suggestions []suggestion.Suggestion, topK int) []suggestion.Suggestion {
	sorted := make([]suggestion.Suggestion, len(suggestions))
	copy(sorted, suggestions)
	sort.SliceStable(sorted, func(i, j int) bool {
		pi, pj := severityRank(sorted[i].Severity), severityRank(sorted[j].Severity)
		if pi != pj {
			return pi < pj
		}
		return sorted[i].Confidence > sorted[j].Confidence
	})
	if len(sorted) > topK {
		sorted = sorted[:topK]
	}
	return sorted
}

func severityRank(s suggestion.Severity) int {
	switch s {
	case suggestion.Error:
		return 0
	case suggestion.Warning:
		return 1
	case suggestion.Suggest:
		return 2
	case suggestion.Note:
		return 3
	default:
		return 4
	}
}

// CheckConflicts groups suggestions sharing an exact (file, line) and asks
// the model which to keep when a location has more than one. Singleton
// locations always pass through untouched. Any router failure falls back to
// keeping every suggestion.
func (j *Judge) CheckConflicts(ctx context.Context, suggestions []suggestion.Suggestion) []suggestion.Suggestion {
	if len(suggestions) <= 1 {
		return suggestions
	}

	type location struct {
		file string
		line int
	}
	byLocation := make(map[location][]int) // location -> indices into suggestions
	for i, s := range suggestions {
		loc := location{s.FilePath, s.LineNumber}
		byLocation[loc] = append(byLocation[loc], i)
	}

	var conflicting []int
	for _, idxs := range byLocation {
		if len(idxs) > 1 {
			conflicting = append(conflicting, idxs...)
		}
	}
	if len(conflicting) < 2 {
		return suggestions
	}

	var b strings.Builder
	for i, idx := range conflicting {
		s := suggestions[idx]
		fmt.Fprintf(&b, "%d. %s: %s\n\n", i+1, s.Category, s.Message)
	}

	prompt := fmt.Sprintf(`These suggestions may conflict. Identify which to keep:

%s

Keep suggestions that:
1. Are most specific and actionable
2. Have highest severity
3. Are most likely to improve code quality

Return indices (1-based) of suggestions to KEEP as JSON array.`, b.String())

	var keepIndices indexList
	if err := j.Router.RouteJSON(ctx, prompt, modelrouter.Balanced, "", &keepIndices); err != nil {
		return suggestions
	}

	toKeep := make(map[int]bool)
	for _, idx := range keepIndices {
		if idx >= 1 && idx <= len(conflicting) {
			toKeep[conflicting[idx-1]] = true
		}
	}

	var out []suggestion.Suggestion
	for i, s := range suggestions {
		loc := location{s.FilePath, s.LineNumber}
		if len(byLocation[loc]) == 1 || toKeep[i] {
			out = append(out, s)
		}
	}
	return out
}
