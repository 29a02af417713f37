package analyzer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvid-review/corvid/internal/suggestion"
)

func TestLogic_NameAndPriority(t *testing.T) {
	t.Parallel()

	l := &Logic{}
	assert.Equal(t, "logic", l.Name())
	assert.Equal(t, 2, l.Priority())
}

func TestLogic_InfiniteLoop(t *testing.T) {
	t.Parallel()

	l := &Logic{}
	chunk := Chunk{FilePath: "f.py", StartLine: 1, EndLine: 1, Content: "while True:", Language: "python"}

	out, err := l.Analyze(context.Background(), chunk, Context{})
	require.NoError(t, err)

	found := false
	for _, sg := range out {
		if sg.Message == "Potential infinite loop - ensure a proper exit condition" {
			found = true
			assert.Equal(t, suggestion.CategoryLogic, sg.Category)
		}
	}
	assert.True(t, found)
}

func TestLogic_MaxThreeMatchesPerChunk(t *testing.T) {
	t.Parallel()

	l := &Logic{}
	content := ""
	for i := 0; i < 6; i++ {
		content += "while True:\n    pass\n"
	}
	chunk := Chunk{FilePath: "f.py", StartLine: 1, EndLine: 12, Content: content, Language: "python"}

	out, err := l.Analyze(context.Background(), chunk, Context{})
	require.NoError(t, err)

	count := 0
	for _, sg := range out {
		if sg.Message == "Potential infinite loop - ensure a proper exit condition" {
			count++
		}
	}
	assert.Equal(t, 3, count, "at most 3 matches per pattern per chunk")
}

func TestLogic_ResourceLeakHint(t *testing.T) {
	t.Parallel()

	l := &Logic{}
	chunk := Chunk{FilePath: "f.py", StartLine: 1, EndLine: 1, Content: "f = open('x.txt')", Language: "python"}

	out, err := l.Analyze(context.Background(), chunk, Context{})
	require.NoError(t, err)

	found := false
	for _, sg := range out {
		if sg.Message == "File/resource opened - ensure it is properly closed" {
			found = true
		}
	}
	assert.True(t, found)
}
