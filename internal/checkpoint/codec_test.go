package checkpoint

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvid-review/corvid/internal/pr"
	"github.com/corvid-review/corvid/internal/suggestion"
	"github.com/corvid-review/corvid/internal/workflow"
)

func newTestReviewWorkflowState(t *testing.T) *workflow.WorkflowState {
	t.Helper()

	event := pr.PREvent{
		Provider:     pr.GitHub,
		RepoOwner:    "corvid-review",
		RepoName:     "corvid",
		PRNumber:     42,
		Action:       pr.Synchronize,
		SourceBranch: "feature/x",
		TargetBranch: "main",
		HeadSHA:      "deadbeef",
		Title:        "add widget",
		Author:       "octocat",
	}
	cfg := pr.DefaultReviewConfig()

	rs := workflow.NewReviewState("review-123", event, cfg)
	rs.CurrentStage = workflow.StepChunkAnalyzer
	rs.Diff = "--- a/widget.go\n+++ b/widget.go\n"
	rs.Chunks = []pr.ChunkInfo{{FilePath: "widget.go", StartLine: 1, EndLine: 10, Content: "func f() {}", Language: "go"}}
	rs.Suggestions = []suggestion.Suggestion{{
		FilePath: "widget.go", LineNumber: 3, Category: suggestion.CategoryStyle,
		Severity: suggestion.Warning, Message: "consider a doc comment", Confidence: 0.6,
		Agent: "style",
	}}

	ws := workflow.NewWorkflowStateFor(rs)
	ws.AddStepRecord(workflow.StepRecord{
		Step: workflow.StepIngestPR, Event: workflow.EventSuccess,
		StartedAt: time.Now().Add(-time.Minute), Duration: 2 * time.Second,
	})
	return ws
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	t.Parallel()

	ws := newTestReviewWorkflowState(t)

	rec, err := Encode(ws)
	require.NoError(t, err)
	assert.Equal(t, ws.ID, rec.ID)
	assert.Equal(t, schemaVersion, rec.V)

	got, err := Decode(rec)
	require.NoError(t, err)

	assert.Equal(t, ws.ID, got.ID)
	assert.Equal(t, ws.WorkflowName, got.WorkflowName)
	assert.Equal(t, ws.CurrentStep, got.CurrentStep)
	assert.Equal(t, len(ws.StepHistory), len(got.StepHistory))
	assert.WithinDuration(t, ws.CreatedAt, got.CreatedAt, time.Second)

	gotRS := workflow.GetReviewState(got)
	require.NotNil(t, gotRS, "review_state must decode back to a *workflow.ReviewState, not a bare map")

	wantRS := workflow.GetReviewState(ws)
	assert.Equal(t, wantRS.ReviewID, gotRS.ReviewID)
	assert.Equal(t, wantRS.Event, gotRS.Event)
	assert.Equal(t, wantRS.Config, gotRS.Config)
	assert.Equal(t, wantRS.Diff, gotRS.Diff)
	assert.Equal(t, wantRS.Chunks, gotRS.Chunks)
	assert.Equal(t, wantRS.Suggestions, gotRS.Suggestions)
	assert.Equal(t, wantRS.CurrentStage, gotRS.CurrentStage)
}

func TestDecode_UnknownTaggedTypeFallsBackToRawPayload(t *testing.T) {
	t.Parallel()

	ws := newTestReviewWorkflowState(t)
	ws.Metadata["extra_note"] = "plain string metadata survives untagged"

	rec, err := Encode(ws)
	require.NoError(t, err)
	rec.ChannelValues["mystery"] = json.RawMessage(`{"_type":"unknown_kind","_class":"Mystery","_data":{"a":1}}`)

	got, err := Decode(rec)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": float64(1)}, got.Metadata["mystery"])
	assert.Equal(t, "plain string metadata survives untagged", got.Metadata["extra_note"])
}

func TestMemoryStore_SaveLoad(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ws := newTestReviewWorkflowState(t)

	require.NoError(t, store.Save(t.Context(), ws))

	got, err := store.Load(t.Context(), ws.ID)
	require.NoError(t, err)
	assert.Equal(t, ws.ID, got.ID)
	assert.Equal(t, ws.CurrentStep, got.CurrentStep)

	_, err = store.Load(t.Context(), "does-not-exist")
	assert.ErrorContains(t, err, "not found")
}

func TestNewCheckpointer_SatisfiesWorkflowCheckpointer(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	cp := NewCheckpointer(store, t.Context())

	var _ workflow.Checkpointer = cp

	ws := newTestReviewWorkflowState(t)
	require.NoError(t, cp.Save(ws))

	got, err := store.Load(t.Context(), ws.ID)
	require.NoError(t, err)
	assert.Equal(t, ws.ID, got.ID)
}
