package pr

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/corvid-review/corvid/internal/optimizer"
)

// hunkHeaderRe matches "@@ -old_start,old_len +new_start,new_len @@", with
// the length operands optional (a single-line hunk omits them).
var hunkHeaderRe = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// fileHeaderRe matches "diff --git a/<path> b/<path>"; the new-side (b/)
// operand is taken as the chunk's file path.
var fileHeaderRe = regexp.MustCompile(`^diff --git a/(.+) b/(.+)$`)

// ParseUnifiedDiff parses a standard unified diff into one ChunkInfo per
// file: a "diff --git" line opens a new file (path from the b/ operand), the
// first "@@ -old,+new @@" hunk header sets the chunk's start line from the
// new-side operand, and every hunk header and body line ("+", "-", or a
// leading space) accumulates into that file's single chunk. Language is
// inferred from the file extension. An empty diff yields an empty slice.
func ParseUnifiedDiff(diff string) []ChunkInfo {
	var chunks []ChunkInfo

	var cur *ChunkInfo
	hunkStart := 0 // new-side start line of the current hunk
	hunkLines := 0 // new-side lines seen in the current hunk
	endLine := 0

	flush := func() {
		if cur != nil && cur.Content != "" {
			cur.EndLine = endLine
			if cur.EndLine < cur.StartLine {
				cur.EndLine = cur.StartLine
			}
			chunks = append(chunks, *cur)
		}
		cur = nil
		hunkStart, hunkLines, endLine = 0, 0, 0
	}

	appendLine := func(line string) {
		if cur.Content != "" {
			cur.Content += "\n"
		}
		cur.Content += line
	}

	for _, line := range strings.Split(diff, "\n") {
		switch {
		case strings.HasPrefix(line, "diff --git "):
			flush()
			if m := fileHeaderRe.FindStringSubmatch(line); m != nil {
				cur = &ChunkInfo{
					FilePath: m[2],
					Language: optimizer.DetectLanguage(m[2]),
				}
			}

		case strings.HasPrefix(line, "@@ "):
			m := hunkHeaderRe.FindStringSubmatch(line)
			if m == nil || cur == nil {
				continue
			}
			newStart, _ := strconv.Atoi(m[3])
			hunkStart = newStart
			hunkLines = 0
			if cur.StartLine == 0 {
				cur.StartLine = newStart
			}
			appendLine(line)

		// Body lines only count once the first hunk header has been seen,
		// which also keeps the "---"/"+++" file headers out of the content.
		case cur != nil && cur.StartLine > 0 &&
			(strings.HasPrefix(line, "+") || strings.HasPrefix(line, "-") || strings.HasPrefix(line, " ")):
			appendLine(line)
			// Only "+" and context lines exist on the new side.
			if !strings.HasPrefix(line, "-") {
				hunkLines++
				endLine = hunkStart + hunkLines - 1
			}

		default:
			// Diff metadata lines (index, "\ No newline at end of file",
			// etc.) neither open nor extend a chunk.
		}
	}
	flush()

	return chunks
}
