package optimizer

import "github.com/bmatcuk/doublestar/v4"

// ExcludeGlobs holds operator-configured gitignore-style patterns (e.g.
// "vendor/**", "**/*.min.js") checked ahead of the fixed priority regex
// table. A path matching any pattern is forced to PrioritySkip regardless of
// what the regex table would otherwise assign.
type ExcludeGlobs []string

// Matches reports whether path matches any configured glob. Malformed
// patterns are skipped (doublestar.Match only errors on invalid pattern
// syntax, never on the candidate path).
func (g ExcludeGlobs) Matches(path string) bool {
	for _, pattern := range g {
		if ok, err := doublestar.Match(pattern, path); err == nil && ok {
			return true
		}
	}
	return false
}

// ApplyExcludeGlobs downgrades any FileInfo whose path matches globs to
// PrioritySkip, annotating the reason, before the normal selection pass runs.
func ApplyExcludeGlobs(infos []FileInfo, globs ExcludeGlobs) []FileInfo {
	if len(globs) == 0 {
		return infos
	}
	out := make([]FileInfo, len(infos))
	for i, fi := range infos {
		if globs.Matches(fi.Path) && fi.Priority != PrioritySkip {
			fi.Priority = PrioritySkip
			fi.ReviewReason = "Skipped (matched configured exclude glob)"
		}
		out[i] = fi
	}
	return out
}
