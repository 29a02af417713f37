// Package optimizer implements the large-PR admission layer: per-file
// priority scoring, token estimation, budgeted selection, and chunking.
// The priority and token tables are fixed; only the selection budget and
// exclude globs are operator-configurable.
package optimizer

import (
	"path"
	"regexp"
	"strings"
)

// Priority ranks a file's importance for review. Higher values are reviewed
// first and survive token-budget trimming longest.
type Priority int

const (
	PrioritySkip     Priority = 1
	PriorityLow      Priority = 2
	PriorityMedium   Priority = 3
	PriorityHigh     Priority = 4
	PriorityCritical Priority = 5
)

func (p Priority) String() string {
	switch p {
	case PrioritySkip:
		return "SKIP"
	case PriorityLow:
		return "LOW"
	case PriorityMedium:
		return "MEDIUM"
	case PriorityHigh:
		return "HIGH"
	case PriorityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ParsePriority parses the same names Priority.String produces (the
// configuration file's min_priority_for_inclusion value), case-sensitive.
func ParsePriority(s string) (Priority, bool) {
	switch s {
	case "SKIP":
		return PrioritySkip, true
	case "LOW":
		return PriorityLow, true
	case "MEDIUM":
		return PriorityMedium, true
	case "HIGH":
		return PriorityHigh, true
	case "CRITICAL":
		return PriorityCritical, true
	default:
		return 0, false
	}
}

// ChangeType mirrors the provider's file status.
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeModified ChangeType = "modified"
	ChangeDeleted  ChangeType = "deleted"
	ChangeRenamed  ChangeType = "renamed"
)

// FileInfo is the optimizer's selection record for one changed file.
type FileInfo struct {
	Path            string     `json:"path"`
	Language        string     `json:"language"`
	Additions       int        `json:"additions"`
	Deletions       int        `json:"deletions"`
	ChangeType      ChangeType `json:"change_type"`
	Priority        Priority   `json:"priority"`
	ReviewReason    string     `json:"review_reason"`
	EstimatedTokens int        `json:"estimated_tokens"`
}

// ChangedFileInput is the raw per-file record the optimizer prioritizes;
// it is what a ProviderAdapter's diff listing yields before classification.
type ChangedFileInput struct {
	Path       string
	Additions  int
	Deletions  int
	ChangeType ChangeType
}

// priorityPattern is one (priority, compiled regex) entry, matched against
// the full file path using Go's RE2 anchored-at-start-of-string semantics
// to mirror Python's re.match (match from the start, not full-string).
type priorityPattern struct {
	priority Priority
	re       *regexp.Regexp
}

// priorityPatterns is matched in SKIP -> LOW -> HIGH -> CRITICAL order so
// CRITICAL wins ties (a file matching both a LOW and a CRITICAL pattern
// ends up CRITICAL because CRITICAL is evaluated last and unconditionally
// overwrites any earlier classification — see calculatePriority).
var priorityPatterns = map[Priority][]string{
	PriorityCritical: {
		`.*\.config\.(js|ts|json|yaml|yml)$`,
		`.*Dockerfile.*`,
		`.*docker-compose.*`,
		`.*\.env.*`,
		`.*secrets?.*`,
		`.*auth.*\.py$`,
		`.*security.*\.py$`,
		`.*password.*\.py$`,
		`.*encrypt.*\.py$`,
	},
	PriorityHigh: {
		`.*/(models|schemas|entities)/.*\.py$`,
		`.*/services/.*\.py$`,
		`.*/controllers?/.*\.py$`,
		`.*/handlers?/.*\.py$`,
		`.*/core/.*\.py$`,
		`.*/main\.py$`,
		`.*app\.py$`,
		`.*/(api|routes)/.*\.(js|ts)$`,
	},
	PriorityLow: {
		`.*\.test\.(py|js|ts)$`,
		`.*\.spec\.(py|js|ts)$`,
		`.*test_.*\.py$`,
		`.*/tests?/.*\.py$`,
		`.*/__tests__/.*\.(js|ts)$`,
		`.*\.md$`,
		`.*README.*`,
		`.*CHANGELOG.*`,
		`.*\.rst$`,
	},
	PrioritySkip: {
		`.*\.min\.(js|css)$`,
		`.*bundle\.(js|css)$`,
		`.*\.lock$`,
		`.*yarn\.lock$`,
		`.*package-lock\.json$`,
		`.*\.map$`,
		`.*/dist/.*`,
		`.*/build/.*`,
		`.*/node_modules/.*`,
		`.*/\.venv/.*`,
		`.*__pycache__.*`,
		`.*\.pyc$`,
	},
}

var compiledPatterns = compilePatterns()

func compilePatterns() []priorityPattern {
	var out []priorityPattern
	for _, p := range []Priority{PrioritySkip, PriorityLow, PriorityHigh, PriorityCritical} {
		for _, pat := range priorityPatterns[p] {
			out = append(out, priorityPattern{priority: p, re: regexp.MustCompile("^" + pat)})
		}
	}
	return out
}

// tokenMultipliers scales the base token estimate by detected language.
var tokenMultipliers = map[string]float64{
	"python":     1.0,
	"javascript": 0.8,
	"typescript": 0.8,
	"java":       1.2,
	"go":         0.9,
	"rust":       1.0,
	"c":          1.0,
	"cpp":        1.1,
	"csharp":     1.1,
	"ruby":       0.9,
	"php":        1.0,
	"swift":      1.0,
	"kotlin":     1.0,
	"scala":      1.2,
	"default":    1.0,
}

var languageByExt = map[string]string{
	".py":    "python",
	".js":    "javascript",
	".jsx":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".java":  "java",
	".go":    "go",
	".rs":    "rust",
	".c":     "c",
	".cpp":   "cpp",
	".h":     "c",
	".hpp":   "cpp",
	".cs":    "csharp",
	".rb":    "ruby",
	".php":   "php",
	".swift": "swift",
	".kt":    "kotlin",
	".scala": "scala",
}

// DetectLanguage infers a language tag from a file path extension, "unknown"
// if unrecognized.
func DetectLanguage(filePath string) string {
	ext := strings.ToLower(path.Ext(filePath))
	if lang, ok := languageByExt[ext]; ok {
		return lang
	}
	return "unknown"
}

// calculatePriority matches path against the fixed pattern tables in
// SKIP -> LOW -> HIGH -> CRITICAL order, so that a later, more specific
// match (CRITICAL) overrides an earlier one. If nothing matches: deletions
// > 100 -> HIGH; added -> HIGH; else MEDIUM.
func calculatePriority(in ChangedFileInput) Priority {
	matched := Priority(0)
	for _, pp := range compiledPatterns {
		if pp.re.MatchString(in.Path) {
			matched = pp.priority
		}
	}
	if matched != 0 {
		return matched
	}

	if in.Deletions > 100 {
		return PriorityHigh
	}
	if in.ChangeType == ChangeAdded {
		return PriorityHigh
	}
	return PriorityMedium
}

// estimateTokens computes floor((additions+deletions)*20*multiplier) + 500.
func estimateTokens(additions, deletions int, language string) int {
	multiplier, ok := tokenMultipliers[language]
	if !ok {
		multiplier = tokenMultipliers["default"]
	}
	totalLines := additions + deletions
	base := float64(totalLines*20) * multiplier
	return int(base) + 500
}

func reviewReason(priority Priority, in ChangedFileInput) string {
	reasons := map[Priority]string{
		PriorityCritical: "Critical file requiring review (config/security)",
		PriorityHigh:     "High priority file (core logic or new file)",
		PriorityMedium:   "Standard file for review",
		PriorityLow:      "Low priority (tests or docs)",
		PrioritySkip:     "Skipped (generated or build file)",
	}

	reason := reasons[priority]
	switch {
	case in.ChangeType == ChangeAdded:
		reason += " [NEW FILE]"
	case in.ChangeType == ChangeDeleted:
		reason += " [DELETED]"
	case in.Deletions > in.Additions:
		reason += " [MAJOR REFACTORING]"
	}
	return reason
}

// PrioritizeFiles computes FileInfo for each input, sorted by
// (priority descending, estimated tokens ascending).
func PrioritizeFiles(files []ChangedFileInput) []FileInfo {
	infos := make([]FileInfo, 0, len(files))
	for _, f := range files {
		language := DetectLanguage(f.Path)
		priority := calculatePriority(f)
		tokens := estimateTokens(f.Additions, f.Deletions, language)

		infos = append(infos, FileInfo{
			Path:            f.Path,
			Language:        language,
			Additions:       f.Additions,
			Deletions:       f.Deletions,
			ChangeType:      f.ChangeType,
			Priority:        priority,
			ReviewReason:    reviewReason(priority, f),
			EstimatedTokens: tokens,
		})
	}

	sortByPriorityThenTokens(infos)
	return infos
}
