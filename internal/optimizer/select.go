package optimizer

import (
	"fmt"
	"sort"
)

func sortByPriorityThenTokens(infos []FileInfo) {
	sort.SliceStable(infos, func(i, j int) bool {
		if infos[i].Priority != infos[j].Priority {
			return infos[i].Priority > infos[j].Priority
		}
		return infos[i].EstimatedTokens < infos[j].EstimatedTokens
	})
}

// SelectionConfig bounds how many files and tokens a single review admits.
type SelectionConfig struct {
	MaxTokensPerReview   int
	MaxFilesToReview     int
	MinPriorityInclusion Priority
}

// DefaultSelectionConfig mirrors the optimizer's documented defaults.
func DefaultSelectionConfig() SelectionConfig {
	return SelectionConfig{
		MaxTokensPerReview:   100000,
		MaxFilesToReview:     50,
		MinPriorityInclusion: PriorityMedium,
	}
}

// Summary reports selection totals and breakdowns.
type Summary struct {
	TotalFiles         int            `json:"total_files"`
	FilesSelected      int            `json:"files_selected"`
	FilesSkipped       int            `json:"files_skipped"`
	TotalTokens        int            `json:"total_tokens"`
	TokensSelected     int            `json:"tokens_selected"`
	PriorityBreakdown  map[string]int `json:"priority_breakdown"`
	LanguageBreakdown  map[string]int `json:"language_breakdown"`
}

// SelectFilesForReview walks the prioritized list (already sorted by
// PrioritizeFiles) and greedily admits files until either the file-count or
// token budget would be exceeded, skipping anything below the configured
// minimum priority. Every emitted FileInfo satisfies estimated_tokens >= 500;
// the selected prefix's cumulative tokens is always <= MaxTokensPerReview and
// len(selected) <= MaxFilesToReview.
func SelectFilesForReview(fileInfos []FileInfo, cfg SelectionConfig) (selected, skipped []FileInfo, summary Summary) {
	totalTokens := 0

	for _, fi := range fileInfos {
		if fi.Priority < cfg.MinPriorityInclusion {
			skipped = append(skipped, fi)
			continue
		}

		if len(selected) >= cfg.MaxFilesToReview {
			fi.ReviewReason += fmt.Sprintf(" (Skipped: max %d files reached)", cfg.MaxFilesToReview)
			skipped = append(skipped, fi)
			continue
		}

		projected := totalTokens + fi.EstimatedTokens
		if projected > cfg.MaxTokensPerReview {
			fi.ReviewReason += fmt.Sprintf(" (Skipped: would exceed %d token limit)", cfg.MaxTokensPerReview)
			skipped = append(skipped, fi)
			continue
		}

		selected = append(selected, fi)
		totalTokens += fi.EstimatedTokens
	}

	total := 0
	for _, fi := range fileInfos {
		total += fi.EstimatedTokens
	}

	summary = Summary{
		TotalFiles:        len(fileInfos),
		FilesSelected:     len(selected),
		FilesSkipped:      len(skipped),
		TotalTokens:       total,
		TokensSelected:    totalTokens,
		PriorityBreakdown: priorityBreakdown(selected),
		LanguageBreakdown: languageBreakdown(selected),
	}

	return selected, skipped, summary
}

func priorityBreakdown(files []FileInfo) map[string]int {
	breakdown := make(map[string]int)
	for _, f := range files {
		breakdown[f.Priority.String()]++
	}
	return breakdown
}

func languageBreakdown(files []FileInfo) map[string]int {
	breakdown := make(map[string]int)
	for _, f := range files {
		breakdown[f.Language]++
	}
	return breakdown
}
