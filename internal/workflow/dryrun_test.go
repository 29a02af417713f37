package workflow

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// minimalSingleStepDef returns a WorkflowDefinition with one step that
// transitions to StepDone on success and StepFailed on failure.
func minimalSingleStepDef() *WorkflowDefinition {
	return &WorkflowDefinition{
		Name:        "test-workflow",
		Description: "A minimal single-step workflow for tests.",
		InitialStep: "ingest",
		Steps: []StepDefinition{
			{
				Name: "ingest",
				Transitions: map[string]string{
					EventSuccess: StepDone,
					EventFailure: StepFailed,
				},
			},
		},
	}
}

// minimalState returns a WorkflowState suitable for passing to
// FormatWorkflowDryRun (the method ignores it, but callers still need one).
func minimalState() *WorkflowState {
	return NewWorkflowState("test-run-1", "test-workflow", "ingest")
}

// ---------------------------------------------------------------------------
// Write
// ---------------------------------------------------------------------------

func TestDryRunFormatter_Write(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	f := NewDryRunFormatter(&buf, false)
	f.Write("hello")
	assert.Equal(t, "hello", buf.String())
}

func TestDryRunFormatter_Write_EmptyString(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	f := NewDryRunFormatter(&buf, false)
	f.Write("")
	assert.Empty(t, buf.String())
}

func TestDryRunFormatter_Write_MultipleWrites(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	f := NewDryRunFormatter(&buf, false)
	f.Write("a")
	f.Write("b")
	f.Write("c")
	assert.Equal(t, "abc", buf.String())
}

// ---------------------------------------------------------------------------
// FormatWorkflowDryRun -- basics
// ---------------------------------------------------------------------------

func TestFormatWorkflowDryRun_EmptyDefinition(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	f := NewDryRunFormatter(&buf, false)

	assert.Equal(t, "No steps defined.\n", f.FormatWorkflowDryRun(nil, minimalState(), nil))
	assert.Equal(t, "No steps defined.\n",
		f.FormatWorkflowDryRun(&WorkflowDefinition{Name: "empty"}, minimalState(), nil))
}

func TestFormatWorkflowDryRun_SingleStep(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	f := NewDryRunFormatter(&buf, false)
	got := f.FormatWorkflowDryRun(minimalSingleStepDef(), minimalState(), nil)

	assert.Contains(t, got, "Workflow: test-workflow")
	assert.Contains(t, got, "1. ingest")
	assert.Contains(t, got, "-> success: DONE")
	assert.Contains(t, got, "-> failure: FAILED")
}

func TestFormatWorkflowDryRun_UnderlineMatchesHeader(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	f := NewDryRunFormatter(&buf, false)
	got := f.FormatWorkflowDryRun(minimalSingleStepDef(), minimalState(), nil)

	lines := strings.Split(got, "\n")
	require.GreaterOrEqual(t, len(lines), 2)
	assert.Equal(t, strings.Repeat("=", len(lines[0])), lines[1],
		"the underline must match the header's width")
}

func TestFormatWorkflowDryRun_WithStepOutputs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	f := NewDryRunFormatter(&buf, false)
	got := f.FormatWorkflowDryRun(minimalSingleStepDef(), minimalState(), map[string]string{
		"ingest": "would fetch the PR diff",
	})

	assert.Contains(t, got, "ingest: would fetch the PR diff")
}

func TestFormatWorkflowDryRun_FallbackDescription(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	f := NewDryRunFormatter(&buf, false)

	// Absent and empty descriptions both fall back to "step N".
	got := f.FormatWorkflowDryRun(minimalSingleStepDef(), minimalState(), nil)
	assert.Contains(t, got, "ingest: step 1")

	got = f.FormatWorkflowDryRun(minimalSingleStepDef(), minimalState(), map[string]string{"ingest": ""})
	assert.Contains(t, got, "ingest: step 1")
}

// ---------------------------------------------------------------------------
// FormatWorkflowDryRun -- the built-in review workflow
// ---------------------------------------------------------------------------

func TestFormatWorkflowDryRun_ReviewWorkflow(t *testing.T) {
	t.Parallel()

	def := ReviewWorkflowDefinition()
	var buf bytes.Buffer
	f := NewDryRunFormatter(&buf, false)
	got := f.FormatWorkflowDryRun(def, minimalState(), map[string]string{})

	for _, step := range []string{
		StepIngestPR, StepChunkAnalyzer, StepParallelAgents,
		StepAggregateResults, StepSeverityFilter, StepLLMJudge, StepPublish,
	} {
		assert.Contains(t, got, step, "all seven review stages must appear")
	}

	// parallel_agents transitions back to itself while chunks remain; the
	// self-loop must be annotated rather than revisited.
	assert.Contains(t, got, "cycles back to step")
}

func TestFormatWorkflowDryRun_CycleDetection(t *testing.T) {
	t.Parallel()

	def := &WorkflowDefinition{
		Name:        "retry-loop",
		InitialStep: "fetch",
		Steps: []StepDefinition{
			{
				Name: "fetch",
				Transitions: map[string]string{
					EventSuccess: "verify",
					EventFailure: StepFailed,
				},
			},
			{
				Name: "verify",
				Transitions: map[string]string{
					EventSuccess: StepDone,
					"retry":      "fetch",
				},
			},
		},
	}

	var buf bytes.Buffer
	f := NewDryRunFormatter(&buf, false)
	got := f.FormatWorkflowDryRun(def, minimalState(), map[string]string{})

	assert.Contains(t, got, "cycles back to step 1",
		"verify -> retry -> fetch must be annotated as a cycle")
}

func TestFormatWorkflowDryRun_BFSOrder(t *testing.T) {
	t.Parallel()

	def := ReviewWorkflowDefinition()
	var buf bytes.Buffer
	f := NewDryRunFormatter(&buf, false)
	got := f.FormatWorkflowDryRun(def, minimalState(), map[string]string{})

	idxIngest := strings.Index(got, "1. "+StepIngestPR)
	idxPublish := strings.Index(got, StepPublish)
	require.GreaterOrEqual(t, idxIngest, 0)
	require.Greater(t, idxPublish, 0)
	assert.Less(t, idxIngest, idxPublish, "the initial step must be listed first")
}

// ---------------------------------------------------------------------------
// FormatWorkflowDryRun -- styled vs plain, determinism
// ---------------------------------------------------------------------------

func TestFormatWorkflowDryRun_StyledVsPlain(t *testing.T) {
	t.Parallel()

	def := minimalSingleStepDef()
	state := minimalState()
	stepOutputs := map[string]string{"ingest": "ingestion step"}

	var plainBuf, styledBuf bytes.Buffer
	plain := NewDryRunFormatter(&plainBuf, false)
	styled := NewDryRunFormatter(&styledBuf, true)

	plainOut := plain.FormatWorkflowDryRun(def, state, stepOutputs)
	styledOut := styled.FormatWorkflowDryRun(def, state, stepOutputs)

	assert.False(t, strings.Contains(plainOut, "\x1b["),
		"plain (styled=false) output must not contain ANSI escape sequences")

	assert.Contains(t, plainOut, "ingest")
	assert.Contains(t, styledOut, "ingest")
	assert.Contains(t, plainOut, "test-workflow")
	assert.Contains(t, styledOut, "test-workflow")
}

func TestFormatWorkflowDryRun_Deterministic(t *testing.T) {
	t.Parallel()

	def := ReviewWorkflowDefinition()
	state := minimalState()
	stepOutputs := map[string]string{
		StepIngestPR:      "fetch the diff",
		StepChunkAnalyzer: "parse the diff into chunks",
		StepPublish:       "post the comments",
	}

	var buf1, buf2 bytes.Buffer
	out1 := NewDryRunFormatter(&buf1, false).FormatWorkflowDryRun(def, state, stepOutputs)
	out2 := NewDryRunFormatter(&buf2, false).FormatWorkflowDryRun(def, state, stepOutputs)

	assert.Equal(t, out1, out2,
		"FormatWorkflowDryRun must produce identical output on repeated calls with the same inputs")
}
