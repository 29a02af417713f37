package workflow

import (
	"strings"

	"github.com/corvid-review/corvid/internal/optimizer"
	"github.com/corvid-review/corvid/internal/pr"
)

// selectChunks applies the optimizer's admission pass to the
// chunks chunk_analyzer parsed out of the diff: group by file, prioritize,
// apply exclude globs, then greedily select within the configured file/token
// budget. Chunks belonging to a skipped file are dropped; the chunks of a
// selected file are kept in their original relative order. A cfg with no
// budget configured (MaxFilesPerReview/MaxTokensPerReview both zero, the
// zero-value ReviewConfig a test might pass) selects everything.
func selectChunks(chunks []pr.ChunkInfo, cfg pr.ReviewConfig) ([]pr.ChunkInfo, optimizer.Summary) {
	if cfg.MaxFilesPerReview <= 0 && cfg.MaxTokensPerReview <= 0 {
		return chunks, optimizer.Summary{}
	}

	inputs := changedFilesFromChunks(chunks)
	infos := optimizer.PrioritizeFiles(inputs)
	infos = optimizer.ApplyExcludeGlobs(infos, optimizer.ExcludeGlobs(cfg.ExcludeGlobs))

	minPriority := optimizer.PriorityMedium
	if p, ok := optimizer.ParsePriority(cfg.MinPriorityForInclusion); ok {
		minPriority = p
	}

	selCfg := optimizer.SelectionConfig{
		MaxTokensPerReview:   cfg.MaxTokensPerReview,
		MaxFilesToReview:     cfg.MaxFilesPerReview,
		MinPriorityInclusion: minPriority,
	}
	if selCfg.MaxTokensPerReview <= 0 {
		selCfg.MaxTokensPerReview = optimizer.DefaultSelectionConfig().MaxTokensPerReview
	}
	if selCfg.MaxFilesToReview <= 0 {
		selCfg.MaxFilesToReview = optimizer.DefaultSelectionConfig().MaxFilesToReview
	}

	selected, _, summary := optimizer.SelectFilesForReview(infos, selCfg)

	admitted := make(map[string]optimizer.FileInfo, len(selected))
	for _, fi := range selected {
		admitted[fi.Path] = fi
	}

	out := make([]pr.ChunkInfo, 0, len(chunks))
	for _, c := range chunks {
		fi, ok := admitted[c.FilePath]
		if !ok {
			continue
		}
		out = append(out, splitOversizedChunk(c, fi, cfg.ChunkSize)...)
	}
	return out, summary
}

// splitOversizedChunk re-splits a hunk whose content exceeds cfg.ChunkSize
// using optimizer.ChunkLargeFile, translating each resulting FileChunk's
// content-relative line numbers back into the file-absolute line numbers
// ChunkInfo carries. A chunk within budget (or an unconfigured ChunkSize)
// passes through unchanged.
func splitOversizedChunk(c pr.ChunkInfo, fi optimizer.FileInfo, chunkSize int) []pr.ChunkInfo {
	if chunkSize <= 0 || len(c.Content) <= chunkSize {
		return []pr.ChunkInfo{c}
	}

	pieces := optimizer.ChunkLargeFile(fi, c.Content, chunkSize)
	out := make([]pr.ChunkInfo, 0, len(pieces))
	for _, p := range pieces {
		out = append(out, pr.ChunkInfo{
			FilePath:  c.FilePath,
			StartLine: c.StartLine + p.StartLine - 1,
			EndLine:   c.StartLine + p.EndLine - 1,
			Content:   p.Content,
			Language:  c.Language,
		})
	}
	return out
}

// changedFilesFromChunks aggregates per-file addition/deletion counts from
// the "+"/"-" prefixed lines chunk content carries, and returns the files in
// first-seen order alongside the optimizer's ChangedFileInput view of them.
// A real diff listing would supply ChangeType from the provider's file
// status; ParseUnifiedDiff discards it, so a file with only added lines and
// no unchanged context is classified ChangeAdded and one with only removed
// lines ChangeDeleted, otherwise ChangeModified.
func changedFilesFromChunks(chunks []pr.ChunkInfo) []optimizer.ChangedFileInput {
	type counts struct {
		additions, deletions, context int
	}
	seen := map[string]*counts{}
	var order []string

	for _, c := range chunks {
		cnt, ok := seen[c.FilePath]
		if !ok {
			cnt = &counts{}
			seen[c.FilePath] = cnt
			order = append(order, c.FilePath)
		}
		for _, line := range strings.Split(c.Content, "\n") {
			switch {
			case strings.HasPrefix(line, "+"):
				cnt.additions++
			case strings.HasPrefix(line, "-"):
				cnt.deletions++
			case strings.HasPrefix(line, " "):
				cnt.context++
			}
		}
	}

	inputs := make([]optimizer.ChangedFileInput, 0, len(order))
	for _, path := range order {
		cnt := seen[path]
		changeType := optimizer.ChangeModified
		switch {
		case cnt.context == 0 && cnt.deletions == 0 && cnt.additions > 0:
			changeType = optimizer.ChangeAdded
		case cnt.context == 0 && cnt.additions == 0 && cnt.deletions > 0:
			changeType = optimizer.ChangeDeleted
		}
		inputs = append(inputs, optimizer.ChangedFileInput{
			Path:       path,
			Additions:  cnt.additions,
			Deletions:  cnt.deletions,
			ChangeType: changeType,
		})
	}
	return inputs
}
