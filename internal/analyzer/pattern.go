package analyzer

import (
	"context"
	"regexp"
	"strings"

	"github.com/corvid-review/corvid/internal/suggestion"
)

type antiPattern struct {
	re          *regexp.Regexp
	message     string
	replacement string
	severity    suggestion.Severity
}

var languagePatterns = map[string][]antiPattern{
	"python": {
		{regexp.MustCompile(`(?i)except\s*Exception\s*as\s*e:\s*print\s*\(\s*e\s*\)`),
			"Bare exception with print - use logging instead",
			"except SpecificException as e:\n    logger.error(f'Error: {e}')", suggestion.Warning},
		{regexp.MustCompile(`(?i)open\s*\([^)]+\)(?:\s+as\s+\w+\s*:|\s*\w+\s*=)?.*\.(read|write)`),
			"File not opened with context manager - resource may leak",
			"with open(filename, 'r') as f:\n    content = f.read()", suggestion.Warning},
		{regexp.MustCompile(`(?i)\.format\s*\(|%\s*\(|\+\s*['"]`),
			"Consider using f-strings for better readability",
			"f'String with {variable}'", suggestion.Suggest},
	},
	"javascript": {
		{regexp.MustCompile(`(?i)var\s+`),
			"Use const or let instead of var", "const variable = value;", suggestion.Suggest},
		{regexp.MustCompile(`(?i)\.then\s*\([^)]*\)\s*\.then`),
			"Consider using async/await for better readability",
			"const result = await asyncFunction();", suggestion.Suggest},
		{regexp.MustCompile(`(?i)callback\s*\(|function\s*\([^)]*\)\s*\{[^}]*\}\s*\)`),
			"Consider using arrow functions for cleaner code",
			"(param) => { return value; }", suggestion.Note},
	},
	"typescript": {
		{regexp.MustCompile(`(?i):\s*any\s*[;=)]`),
			"Avoid using 'any' type - use specific types",
			"Use proper TypeScript interfaces or types", suggestion.Suggest},
		{regexp.MustCompile(`(?i)!\s*\w+`),
			"Non-null assertion may cause runtime errors",
			"Add proper null checks", suggestion.Warning},
	},
	"java": {
		{regexp.MustCompile(`(?i)System\.out\.print`),
			"Use logging framework instead of System.out",
			`logger.info("message");`, suggestion.Suggest},
		{regexp.MustCompile(`(?i)catch\s*\(\s*Exception\s+e\s*\)\s*\{\s*\}`),
			"Empty catch block - exceptions are silently ignored",
			`catch (SpecificException e) { logger.error("Error", e); }`, suggestion.Warning},
	},
}

// customRuleRe extracts AGENTS.md-authored rules following the grammar:
//
//	## Rule: <name>
//	...
//	Pattern: `<regex>`
//	...
//	Message: <message>
//	...
//	Severity: <severity>
var customRuleRe = regexp.MustCompile(`(?is)##\s*Rule:\s*(.+?)\n.*?Pattern:\s*` + "`" + `(.+?)` + "`" + `.*?Message:\s*(.+?)\n.*?Severity:\s*(\w+)`)

// Pattern is the mandatory priority-3 analyzer: language-specific
// anti-pattern matching plus optional AGENTS.md user rules.
type Pattern struct {
	Augmenter ModelAugmenter
}

func (p *Pattern) Name() string              { return "pattern" }
func (p *Pattern) Priority() int             { return 3 }
func (p *Pattern) ShouldAnalyze(c Chunk) bool { return c.Language != "unknown" }

func (p *Pattern) Analyze(ctx context.Context, chunk Chunk, rc Context) ([]suggestion.Suggestion, error) {
	var out []suggestion.Suggestion

	for _, ap := range languagePatterns[chunk.Language] {
		for _, loc := range ap.re.FindAllStringIndex(chunk.Content, -1) {
			lineNum := chunk.StartLine + strings.Count(chunk.Content[:loc[0]], "\n")
			out = append(out, suggestion.Suggestion{
				FilePath: chunk.FilePath, LineNumber: lineNum,
				Message: ap.message, Severity: ap.severity, Replacement: ap.replacement,
				Agent: p.Name(), Confidence: 0.8, Category: suggestion.CategoryPattern,
			})
		}
	}

	if rc.AgentsMD != "" {
		out = append(out, p.checkCustomRules(chunk, rc.AgentsMD)...)
	}

	if p.Augmenter != nil && len(chunk.Content) >= 100 {
		if augmented, err := p.Augmenter.Augment(ctx, chunk, rc, patternSystemPrompt); err == nil {
			out = append(out, augmented...)
		}
	}

	return out, nil
}

func (p *Pattern) checkCustomRules(chunk Chunk, agentsMD string) []suggestion.Suggestion {
	var out []suggestion.Suggestion

	for _, m := range customRuleRe.FindAllStringSubmatch(agentsMD, -1) {
		patternStr := strings.TrimSpace(m[2])
		message := strings.TrimSpace(m[3])
		severity := suggestion.Severity(strings.ToLower(strings.TrimSpace(m[4])))

		userRe, err := regexp.Compile(patternStr)
		if err != nil {
			continue // invalid user regex is skipped silently
		}

		for _, loc := range userRe.FindAllStringIndex(chunk.Content, -1) {
			lineNum := chunk.StartLine + strings.Count(chunk.Content[:loc[0]], "\n")
			out = append(out, suggestion.Suggestion{
				FilePath: chunk.FilePath, LineNumber: lineNum,
				Message: "[AGENTS.md] " + message, Severity: severity,
				Agent: p.Name(), Confidence: 0.85, Category: suggestion.CategoryPattern,
			})
		}
	}

	return out
}

const patternSystemPrompt = `You are an expert in design patterns and code quality. Compare the code against best practices: design patterns, idiomatic style, performance patterns, error handling, API design, SOLID and DRY principles. Respond with a JSON object whose "suggestions" field is an array of findings.`
