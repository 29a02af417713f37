package analyzer

import (
	"context"
	"regexp"
	"strings"

	"github.com/corvid-review/corvid/internal/suggestion"
)

// Style is the mandatory priority-5 analyzer: per-line formatting checks
// plus language-specific conventions.
type Style struct {
	Augmenter ModelAugmenter
}

func (s *Style) Name() string              { return "style" }
func (s *Style) Priority() int             { return 5 }
func (s *Style) ShouldAnalyze(c Chunk) bool { return c.Language != "unknown" }

var (
	bareExceptRe   = regexp.MustCompile(`\bexcept\s*:`)
	mutableDefault = regexp.MustCompile(`def\s+\w+\s*\([^)]*=(\[\]|\{\}|\(\))`)
	jsEqualityRe   = regexp.MustCompile(`(?:^|[^=!])==(?:[^=]|$)`)
	jsStrictRe     = regexp.MustCompile(`===`)
	jsVarRe        = regexp.MustCompile(`\bvar\s+`)
	javaBraceRe    = regexp.MustCompile(`\)\s*\{`)
	defOrClassRe   = regexp.MustCompile(`(?m)^(def |class )`)
)

func (s *Style) Analyze(ctx context.Context, chunk Chunk, rc Context) ([]suggestion.Suggestion, error) {
	var out []suggestion.Suggestion
	lines := strings.Split(chunk.Content, "\n")

	for i, line := range lines {
		lineNum := chunk.StartLine + i

		if len(line) > 120 {
			out = append(out, suggestion.Suggestion{
				FilePath: chunk.FilePath, LineNumber: lineNum,
				Message: "Line exceeds 120 characters", Severity: suggestion.Suggest,
				Agent: s.Name(), Confidence: 0.9, Category: suggestion.CategoryStyle,
			})
		}

		if trimmed := strings.TrimRight(line, " \t"); trimmed != line {
			out = append(out, suggestion.Suggestion{
				FilePath: chunk.FilePath, LineNumber: lineNum,
				Message: "Trailing whitespace detected", Severity: suggestion.Note,
				Replacement: trimmed, Agent: s.Name(), Confidence: 1.0, Category: suggestion.CategoryStyle,
			})
		}

		switch chunk.Language {
		case "python":
			out = append(out, s.pythonLineChecks(line, lineNum, chunk.FilePath)...)
		case "javascript", "typescript":
			out = append(out, s.jsLineChecks(line, lineNum, chunk.FilePath)...)
		case "java":
			out = append(out, s.javaLineChecks(line, lineNum, chunk.FilePath)...)
		}
	}

	if chunk.Language == "python" && defOrClassRe.MatchString(chunk.Content) && !hasDocstring(chunk.Content) {
		out = append(out, suggestion.Suggestion{
			FilePath: chunk.FilePath, LineNumber: chunk.StartLine,
			Message: "Missing docstring for function/class", Severity: suggestion.Suggest,
			Agent: s.Name(), Confidence: 0.7, Category: suggestion.CategoryStyle,
		})
	}

	if s.Augmenter != nil && len(chunk.Content) >= 100 {
		if augmented, err := s.Augmenter.Augment(ctx, chunk, rc, styleSystemPrompt); err == nil {
			out = append(out, augmented...)
		}
	}

	return out, nil
}

func (s *Style) pythonLineChecks(line string, lineNum int, filePath string) []suggestion.Suggestion {
	var out []suggestion.Suggestion

	if strings.Contains(line, "\t") && strings.Contains(line, "  ") {
		out = append(out, suggestion.Suggestion{
			FilePath: filePath, LineNumber: lineNum, Message: "Mixed tabs and spaces detected",
			Severity: suggestion.Error, Agent: s.Name(), Confidence: 1.0, Category: suggestion.CategoryStyle,
		})
	}
	if bareExceptRe.MatchString(line) {
		out = append(out, suggestion.Suggestion{
			FilePath: filePath, LineNumber: lineNum, Message: "Bare 'except:' clause - catch specific exceptions",
			Severity: suggestion.Warning, Replacement: "except SpecificException:",
			Agent: s.Name(), Confidence: 0.9, Category: suggestion.CategoryStyle,
		})
	}
	if mutableDefault.MatchString(line) {
		out = append(out, suggestion.Suggestion{
			FilePath: filePath, LineNumber: lineNum, Message: "Mutable default argument - use None instead",
			Severity: suggestion.Warning, Agent: s.Name(), Confidence: 0.85, Category: suggestion.CategoryStyle,
		})
	}
	return out
}

func (s *Style) jsLineChecks(line string, lineNum int, filePath string) []suggestion.Suggestion {
	var out []suggestion.Suggestion

	if jsEqualityRe.MatchString(line) && !jsStrictRe.MatchString(line) {
		out = append(out, suggestion.Suggestion{
			FilePath: filePath, LineNumber: lineNum, Message: "Use '===' instead of '==' for strict equality",
			Severity: suggestion.Suggest, Agent: s.Name(), Confidence: 0.8, Category: suggestion.CategoryStyle,
		})
	}
	if jsVarRe.MatchString(line) {
		out = append(out, suggestion.Suggestion{
			FilePath: filePath, LineNumber: lineNum, Message: "Use 'const' or 'let' instead of 'var'",
			Severity: suggestion.Suggest, Agent: s.Name(), Confidence: 0.8, Category: suggestion.CategoryStyle,
		})
	}
	return out
}

func (s *Style) javaLineChecks(line string, lineNum int, filePath string) []suggestion.Suggestion {
	if javaBraceRe.MatchString(line) {
		return []suggestion.Suggestion{{
			FilePath: filePath, LineNumber: lineNum, Message: "Consider K&R brace style (opening brace on same line)",
			Severity: suggestion.Note, Agent: "style", Confidence: 0.6, Category: suggestion.CategoryStyle,
		}}
	}
	return nil
}

func hasDocstring(content string) bool {
	return strings.Contains(content, `"""`) || strings.Contains(content, "'''")
}

const styleSystemPrompt = `You are a code style expert. Check indentation, naming conventions, complexity, and readability. Respond with a JSON object whose "suggestions" field is an array of findings.`
