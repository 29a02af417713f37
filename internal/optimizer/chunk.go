package optimizer

import "strings"

const defaultChunkSize = 5000

// FileChunk is one reviewable slice of a file's full content.
type FileChunk struct {
	FileInfo   FileInfo `json:"file_info"`
	Content    string   `json:"content"`
	StartLine  int      `json:"start_line"`
	EndLine    int      `json:"end_line"`
	IsFullFile bool     `json:"is_full_file"`
}

// ChunkLargeFile splits content at line boundaries into chunks whose
// cumulative character length does not exceed chunkSize (default 5000 when
// chunkSize <= 0). A file that already fits in one chunk yields a single
// IsFullFile chunk without being split.
func ChunkLargeFile(fileInfo FileInfo, content string, chunkSize int) []FileChunk {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}

	if len(content) <= chunkSize {
		return []FileChunk{{
			FileInfo:   fileInfo,
			Content:    content,
			StartLine:  1,
			EndLine:    strings.Count(content, "\n") + 1,
			IsFullFile: true,
		}}
	}

	var chunks []FileChunk
	lines := strings.Split(content, "\n")

	var currentLines []string
	currentSize := 0
	startLine := 1
	lineNumber := 0

	flush := func(endLine int) {
		chunks = append(chunks, FileChunk{
			FileInfo:   fileInfo,
			Content:    strings.Join(currentLines, "\n"),
			StartLine:  startLine,
			EndLine:    endLine,
			IsFullFile: false,
		})
	}

	for _, line := range lines {
		lineNumber++
		lineSize := len(line)

		if currentSize+lineSize > chunkSize && len(currentLines) > 0 {
			flush(lineNumber - 1)
			currentLines = []string{line}
			currentSize = lineSize
			startLine = lineNumber
		} else {
			currentLines = append(currentLines, line)
			currentSize += lineSize + 1
		}
	}

	if len(currentLines) > 0 {
		chunks = append(chunks, FileChunk{
			FileInfo:   fileInfo,
			Content:    strings.Join(currentLines, "\n"),
			StartLine:  startLine,
			EndLine:    lineNumber,
			IsFullFile: len(chunks) == 0,
		})
	}

	return chunks
}
