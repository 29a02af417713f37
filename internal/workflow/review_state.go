package workflow

import (
	"time"

	"github.com/mitchellh/hashstructure/v2"

	"github.com/corvid-review/corvid/internal/optimizer"
	"github.com/corvid-review/corvid/internal/pr"
	"github.com/corvid-review/corvid/internal/suggestion"
)

// reviewStateKey is the WorkflowState.Metadata key under which the engine's
// generic state machine carries Corvid's domain-specific ReviewState. The
// generic Engine/Registry/StepHandler machinery is domain-agnostic; only
// the payload the handlers act on is review-specific.
const reviewStateKey = "review_state"

// ChunkResult summarizes one chunk's parallel_agents pass for the
// per-chunk agent results recorded on ReviewState metadata.
type ChunkResult struct {
	ChunkIndex       int      `json:"chunk_index"`
	FilePath         string   `json:"file_path"`
	SuggestionsFound int      `json:"suggestions_found"`
	AnalyzersRun     []string `json:"analyzers_run"`
}

// ReviewState is the workflow's complete state at any checkpoint. It is
// the value every stage handler reads and mutates; the
// workflow engine exclusively owns one instance per run, and checkpoints are
// serialized snapshots held by the persistence layer (internal/checkpoint).
type ReviewState struct {
	ReviewID string         `json:"review_id"`
	Event    pr.PREvent     `json:"event"`
	Config   pr.ReviewConfig `json:"config"`

	// ConfigHash fingerprints the effective ReviewConfig at review start so
	// the dashboard and a resumed checkpoint can tell when a review ran
	// under a configuration that has since changed.
	ConfigHash uint64 `json:"config_hash,omitempty"`

	Diff     string `json:"diff"`
	AgentsMD string `json:"agents_md,omitempty"`

	Chunks            []pr.ChunkInfo `json:"chunks"`
	CurrentChunkIndex int            `json:"current_chunk_index"`

	// Selection records chunk_analyzer's optimizer admission pass: how many
	// files/tokens of the diff were kept versus dropped for budget reasons.
	// Zero-value when ReviewConfig carried no selection budget.
	Selection optimizer.Summary `json:"selection,omitempty"`

	Suggestions []suggestion.Suggestion            `json:"suggestions"`
	AnalyzerRaw map[string][]suggestion.Suggestion `json:"analyzer_raw,omitempty"`

	ValidatedSuggestions []suggestion.Suggestion `json:"validated_suggestions"`
	RejectedSuggestions  []suggestion.Suggestion `json:"rejected_suggestions"`

	Comments []pr.ReviewComment `json:"comments"`
	Summary  string             `json:"summary"`
	Passed   bool               `json:"passed"`

	CurrentStage string        `json:"current_stage"`
	ChunkResults []ChunkResult `json:"chunk_results,omitempty"`
	ErrorCount   int           `json:"error_count"`

	CreatedAt   time.Time `json:"created_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`

	Error      string `json:"error,omitempty"`
	ShouldStop bool   `json:"should_stop"`
}

// NewReviewState builds the initial ReviewState for a freshly-ingested
// PREvent, before ingest_pr has populated its fetched fields.
func NewReviewState(reviewID string, event pr.PREvent, cfg pr.ReviewConfig) *ReviewState {
	rs := &ReviewState{
		ReviewID:     reviewID,
		Event:        event,
		Config:       cfg,
		Suggestions:  []suggestion.Suggestion{},
		CurrentStage: StepIngestPR,
		CreatedAt:    time.Now(),
	}
	// A hash failure leaves ConfigHash zero, which reads as "unknown".
	if h, err := hashstructure.Hash(cfg, hashstructure.FormatV2, nil); err == nil {
		rs.ConfigHash = h
	}
	return rs
}

// Fail records a stage failure: sets Error (first error wins) and
// ShouldStop, after which no further
// stage may mutate non-terminal fields.
func (rs *ReviewState) Fail(err error) {
	if rs.Error == "" {
		rs.Error = err.Error()
	}
	rs.ErrorCount++
	rs.ShouldStop = true
}

// CheckInvariants validates the chunk-cursor invariant:
// current_chunk_index <= len(chunks).
func (rs *ReviewState) CheckInvariants() bool {
	return rs.CurrentChunkIndex <= len(rs.Chunks)
}

// NewWorkflowStateFor wraps rs in a generic WorkflowState so it can be
// driven by the Engine, keyed on rs.ReviewID and starting at rs.CurrentStage
// (StepIngestPR for a fresh review, or the checkpoint's recorded step when
// resuming).
func NewWorkflowStateFor(rs *ReviewState) *WorkflowState {
	ws := NewWorkflowState(rs.ReviewID, WorkflowReview, rs.CurrentStage)
	ws.Metadata[reviewStateKey] = rs
	return ws
}

// GetReviewState extracts the ReviewState carried in ws.Metadata. Returns
// nil if ws carries no review state (a programming error: every review
// workflow run must be seeded via NewWorkflowStateFor).
func GetReviewState(ws *WorkflowState) *ReviewState {
	v, ok := ws.Metadata[reviewStateKey]
	if !ok {
		return nil
	}
	rs, _ := v.(*ReviewState)
	return rs
}
