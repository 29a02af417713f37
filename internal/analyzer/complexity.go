package analyzer

import (
	"context"
	"fmt"
	"regexp"

	"github.com/corvid-review/corvid/internal/suggestion"
)

// funcHeaderRe finds function/method definitions across the languages the
// other analyzers already special-case, to attribute a long chunk to the
// function it most likely belongs to rather than just the chunk's start line.
var funcHeaderRe = regexp.MustCompile(`(?m)^\s*(def\s+\w+|function\s+\w+|func\s+(\([^)]*\)\s*)?\w+|public\s+\w.*\w+\s*\(|private\s+\w.*\w+\s*\()`)

const defaultMaxFunctionLines = 80

// Complexity is the optional analyzer demonstrating that the registry
// accommodates analyzers beyond the four mandatory ones: it flags chunks
// whose line count exceeds MaxLines, a proxy for "this function is doing too
// much" cheap enough to run without a model call. Disabled unless
// ReviewConfig.EnableAgents["complexity"] is explicitly true, since a long
// chunk is common and noisy as a default-on check.
type Complexity struct {
	// MaxLines is the line-count threshold above which a chunk is flagged.
	// Zero selects defaultMaxFunctionLines.
	MaxLines int
}

func (c *Complexity) Name() string  { return "complexity" }
func (c *Complexity) Priority() int { return 4 }

// ShouldAnalyze accepts every chunk. The opt-in gate lives in Analyze, which
// returns nothing unless EnableAgents["complexity"] is explicitly true:
// unlike the four mandatory analyzers, a missing key means disabled rather
// than enabled.
func (c *Complexity) ShouldAnalyze(chunk Chunk) bool { return true }

func (c *Complexity) maxLines() int {
	if c.MaxLines > 0 {
		return c.MaxLines
	}
	return defaultMaxFunctionLines
}

func (c *Complexity) Analyze(ctx context.Context, chunk Chunk, rc Context) ([]suggestion.Suggestion, error) {
	if enabled, ok := rc.Config.EnableAgents[c.Name()]; !ok || !enabled {
		return nil, nil
	}

	lines := chunk.EndLine - chunk.StartLine + 1
	limit := c.maxLines()
	if lines <= limit {
		return nil, nil
	}

	lineNum := chunk.StartLine
	if loc := funcHeaderRe.FindStringIndex(chunk.Content); loc != nil {
		lineNum = chunk.StartLine + countNewlines(chunk.Content[:loc[0]])
	}

	return []suggestion.Suggestion{{
		FilePath:   chunk.FilePath,
		LineNumber: lineNum,
		Message:    fmt.Sprintf("Function spans %d lines (threshold %d) - consider splitting it up", lines, limit),
		Severity:   suggestion.Suggest,
		Agent:      c.Name(),
		Confidence: 0.6,
		Category:   suggestion.CategoryLogic,
	}}, nil
}

func countNewlines(s string) int {
	n := 0
	for _, r := range s {
		if r == '\n' {
			n++
		}
	}
	return n
}
