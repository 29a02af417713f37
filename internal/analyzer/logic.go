package analyzer

import (
	"context"
	"regexp"
	"strings"

	"github.com/corvid-review/corvid/internal/suggestion"
)

type logicPattern struct {
	re       *regexp.Regexp
	message  string
	severity suggestion.Severity
}

// logicPatterns is the fixed logic-defect table: null-check
// ordering, probable infinite loop, off-by-one, resource-leak hints, the
// bare-except-with-pass check (also covered by style but scored under the
// logic category here), list mutation while iterating, promise chains
// without a catch, and async/await usage. It has no unreachable-after-return
// entry and no mutable-default entry (that check exists in style only).
var logicPatterns = []logicPattern{
	{regexp.MustCompile(`\b(if|while)\s*\(\s*\w+\s*==\s*(None|null|NULL)\s*\)\s*&&`),
		"Potential null pointer - check null before use", suggestion.Warning},
	{regexp.MustCompile(`while\s*\(\s*true\s*\)|while\s+True\s*:`),
		"Potential infinite loop - ensure a proper exit condition", suggestion.Warning},
	{regexp.MustCompile(`range\s*\(\s*len\s*\(|for\s*\(\s*int\s+\w+\s*=\s*0;\s*\w+\s*<=\s*.+\.(length|size)`),
		"Potential off-by-one error - verify loop bounds", suggestion.Warning},
	{regexp.MustCompile(`\bopen\s*\(|\bfopen\s*\(`),
		"File/resource opened - ensure it is properly closed", suggestion.Warning},
	{regexp.MustCompile(`except\s*:\s*\n?\s*pass`),
		"Bare except with pass - exceptions are silently swallowed", suggestion.Warning},
	{regexp.MustCompile(`for\s+\w+\s+in\s+(\w+)\s*:\s*\n[^\n]*\1\.(remove|pop|append)`),
		"Mutating a list while iterating over it can skip elements", suggestion.Warning},
	{regexp.MustCompile(`\.then\s*\([^)]*\)\s*;?\s*$`),
		"Promise chain without a trailing .catch", suggestion.Suggest},
	{regexp.MustCompile(`\basync\s+function[^{]*\{[^}]*\bawait\b`),
		"async function should consistently await its calls", suggestion.Note},
}

const maxLogicMatchesPerChunk = 3

// Logic is the mandatory priority-2 analyzer.
type Logic struct {
	Augmenter ModelAugmenter
}

func (l *Logic) Name() string              { return "logic" }
func (l *Logic) Priority() int             { return 2 }
func (l *Logic) ShouldAnalyze(c Chunk) bool { return c.Language != "unknown" }

func (l *Logic) Analyze(ctx context.Context, chunk Chunk, rc Context) ([]suggestion.Suggestion, error) {
	var out []suggestion.Suggestion

	for _, p := range logicPatterns {
		matches := p.re.FindAllStringIndex(chunk.Content, -1)
		if len(matches) > maxLogicMatchesPerChunk {
			matches = matches[:maxLogicMatchesPerChunk]
		}
		for _, loc := range matches {
			lineNum := chunk.StartLine + strings.Count(chunk.Content[:loc[0]], "\n")
			out = append(out, suggestion.Suggestion{
				FilePath:   chunk.FilePath,
				LineNumber: lineNum,
				Message:    p.message,
				Severity:   p.severity,
				Agent:      l.Name(),
				Confidence: 0.75,
				Category:   suggestion.CategoryLogic,
			})
		}
	}

	if l.Augmenter != nil && len(chunk.Content) >= 100 {
		if augmented, err := l.Augmenter.Augment(ctx, chunk, rc, logicSystemPrompt); err == nil {
			out = append(out, augmented...)
		}
	}

	return out, nil
}

const logicSystemPrompt = `You are a software correctness reviewer. Look for null-check ordering bugs, unreachable code, off-by-one errors, resource leaks, and missing error handling. Respond with a JSON object whose "suggestions" field is an array of findings.`
