package analyzer

import (
	"context"
	"regexp"
	"strings"

	"github.com/corvid-review/corvid/internal/suggestion"
)

// ModelAugmenter is the narrow slice of ModelClient an analyzer needs for
// its best-effort LLM augmentation pass. A nil Augmenter disables
// augmentation entirely; an error from Augment is always swallowed.
type ModelAugmenter interface {
	Augment(ctx context.Context, chunk Chunk, rc Context, systemPrompt string) ([]suggestion.Suggestion, error)
}

type securityPattern struct {
	re       *regexp.Regexp
	message  string
	severity suggestion.Severity
	langs    map[string]bool
}

func langSet(langs ...string) map[string]bool {
	set := make(map[string]bool, len(langs))
	for _, l := range langs {
		set[l] = true
	}
	return set
}

var securityPatterns = []securityPattern{
	{
		re:       regexp.MustCompile(`(?i)(execute|cursor\.execute|raw|query)\s*\([^)]*\+[^)]*\)`),
		message:  "Potential SQL injection vulnerability detected",
		severity: suggestion.Error,
		langs:    langSet("python", "javascript", "typescript", "java", "php"),
	},
	{
		re:       regexp.MustCompile(`(?i)(password|passwd|pwd|secret|api_key|apikey)\s*=\s*['"][^'"]+['"]`),
		message:  "Hardcoded credential detected",
		severity: suggestion.Error,
		langs:    langSet("python", "javascript", "typescript", "java", "go", "ruby", "php"),
	},
	{
		re:       regexp.MustCompile(`\beval\s*\(|\bexec\s*\(`),
		message:  "Use of eval/exec can lead to code injection",
		severity: suggestion.Warning,
		langs:    langSet("python", "javascript"),
	},
	{
		re:       regexp.MustCompile(`\bpickle\.loads?\s*\(`),
		message:  "Deserialization of untrusted data can execute arbitrary code",
		severity: suggestion.Warning,
		langs:    langSet("python"),
	},
	{
		re:       regexp.MustCompile(`innerHTML|dangerouslySetInnerHTML`),
		message:  "Potential XSS vulnerability - sanitize input before inserting into the DOM",
		severity: suggestion.Warning,
		langs:    langSet("javascript", "typescript"),
	},
	{
		re:       regexp.MustCompile(`(os\.system|subprocess\.call|subprocess\.Popen)\s*\([^)]*\+[^)]*\)`),
		message:  "Potential shell injection vulnerability",
		severity: suggestion.Error,
		langs:    langSet("python"),
	},
	{
		re:       regexp.MustCompile(`\bmd5\s*\(|\bsha1\s*\(`),
		message:  "Insecure hash algorithm - use SHA-256 or higher",
		severity: suggestion.Warning,
		langs:    langSet("python", "javascript", "typescript", "java", "go"),
	},
	{
		re:       regexp.MustCompile(`verify\s*=\s*[Ff]alse|verify_ssl\s*=\s*[Ff]alse|NODE_TLS_REJECT_UNAUTHORIZED`),
		message:  "TLS/SSL verification disabled - security risk",
		severity: suggestion.Error,
		langs:    langSet("python", "javascript", "typescript"),
	},
}

// Security is the mandatory priority-1 analyzer: pattern-based vulnerability
// detection with optional best-effort LLM augmentation.
type Security struct {
	Augmenter ModelAugmenter
}

func (s *Security) Name() string     { return "security" }
func (s *Security) Priority() int    { return 1 }
func (s *Security) ShouldAnalyze(chunk Chunk) bool { return chunk.Language != "unknown" }

func (s *Security) Analyze(ctx context.Context, chunk Chunk, rc Context) ([]suggestion.Suggestion, error) {
	var out []suggestion.Suggestion

	for _, p := range securityPatterns {
		if !p.langs[chunk.Language] {
			continue
		}
		for _, loc := range p.re.FindAllStringIndex(chunk.Content, -1) {
			lineNum := chunk.StartLine + strings.Count(chunk.Content[:loc[0]], "\n")
			out = append(out, suggestion.Suggestion{
				FilePath:   chunk.FilePath,
				LineNumber: lineNum,
				Message:    p.message,
				Severity:   p.severity,
				Agent:      s.Name(),
				Confidence: 0.9,
				Category:   suggestion.CategorySecurity,
			})
		}
	}

	if s.Augmenter != nil && len(chunk.Content) >= 100 {
		if augmented, err := s.Augmenter.Augment(ctx, chunk, rc, securitySystemPrompt); err == nil {
			out = append(out, augmented...)
		}
		// LLM failures MUST NOT fail the analyzer: best-effort augmentation only.
	}

	return out, nil
}

const securitySystemPrompt = `You are a security expert analyzing code for vulnerabilities: SQL injection, XSS, hardcoded secrets, insecure deserialization, command injection, path traversal, weak cryptography, and authN/authZ flaws. Respond with a JSON object whose "suggestions" field is an array of findings.`
