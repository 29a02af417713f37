// handlers.go contains the concrete StepHandler implementations for the
// built-in review workflow's seven stages. Each handler reads and mutates
// the ReviewState carried on the generic WorkflowState, closing over the
// narrow collaborator capability it needs rather than a concrete adapter,
// so the workflow can be exercised in tests with fakes.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/corvid-review/corvid/internal/analyzer"
	"github.com/corvid-review/corvid/internal/pr"
	"github.com/corvid-review/corvid/internal/suggestion"
)

// DiffFetcher is the narrow capability ingest_pr needs from a
// ProviderAdapter: fetch the PR's unified diff and optional AGENTS.md text.
type DiffFetcher interface {
	FetchDiff(ctx context.Context, event pr.PREvent) (string, error)
	FetchAgentsMD(ctx context.Context, event pr.PREvent) (string, error)
}

// CommentPoster is the narrow capability publish needs from a
// ProviderAdapter.
type CommentPoster interface {
	PostReviewComments(ctx context.Context, owner, repo string, prNumber int, comments []pr.ReviewComment) error
}

// SuggestionValidator is the narrow capability llm_judge needs from a Judge.
type SuggestionValidator interface {
	Validate(ctx context.Context, s suggestion.Suggestion) bool
}

// Deduper is the narrow capability aggregate_results needs from a
// Deduplicator.
type Deduper interface {
	Deduplicate(s []suggestion.Suggestion) []suggestion.Suggestion
}

// Handlers bundles the seven review-stage StepHandlers and the collaborator
// capabilities they close over.
type Handlers struct {
	Diffs       DiffFetcher
	Comments    CommentPoster
	Analyzers   *analyzer.Registry
	Dedup       Deduper
	Judge       SuggestionValidator
	Concurrency int
}

// NewHandlers builds a Handlers bundle. Concurrency <= 0 defaults to 1.
func NewHandlers(diffs DiffFetcher, comments CommentPoster, analyzers *analyzer.Registry, dedup Deduper, judge SuggestionValidator, concurrency int) *Handlers {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Handlers{
		Diffs:       diffs,
		Comments:    comments,
		Analyzers:   analyzers,
		Dedup:       dedup,
		Judge:       judge,
		Concurrency: concurrency,
	}
}

func (h *Handlers) IngestPR() StepHandler         { return &ingestPRHandler{h} }
func (h *Handlers) ChunkAnalyzer() StepHandler    { return &chunkAnalyzerHandler{h} }
func (h *Handlers) ParallelAgents() StepHandler   { return &parallelAgentsHandler{h} }
func (h *Handlers) AggregateResults() StepHandler { return &aggregateResultsHandler{h} }
func (h *Handlers) SeverityFilter() StepHandler   { return &severityFilterHandler{h} }
func (h *Handlers) LLMJudge() StepHandler         { return &llmJudgeHandler{h} }
func (h *Handlers) Publish() StepHandler          { return &publishHandler{h} }

// Compile-time interface compliance checks for every review stage handler.
var (
	_ StepHandler = (*ingestPRHandler)(nil)
	_ StepHandler = (*chunkAnalyzerHandler)(nil)
	_ StepHandler = (*parallelAgentsHandler)(nil)
	_ StepHandler = (*aggregateResultsHandler)(nil)
	_ StepHandler = (*severityFilterHandler)(nil)
	_ StepHandler = (*llmJudgeHandler)(nil)
	_ StepHandler = (*publishHandler)(nil)
)

// ---------------------------------------------------------------- ingest_pr

type ingestPRHandler struct{ h *Handlers }

func (x *ingestPRHandler) Name() string { return StepIngestPR }
func (x *ingestPRHandler) DryRun(ws *WorkflowState) string {
	return "would fetch the PR diff and optional AGENTS.md, then install default review config"
}

func (x *ingestPRHandler) Execute(ctx context.Context, ws *WorkflowState) (string, error) {
	rs := GetReviewState(ws)
	if rs == nil {
		return EventFailure, fmt.Errorf("workflow: %s: no ReviewState on WorkflowState", StepIngestPR)
	}
	if x.h.Diffs == nil {
		return EventFailure, fmt.Errorf("workflow: %s: no DiffFetcher configured", StepIngestPR)
	}

	diff, err := x.h.Diffs.FetchDiff(ctx, rs.Event)
	if err != nil {
		rs.Fail(fmt.Errorf("%s: fetch diff: %w", StepIngestPR, err))
		rs.CurrentStage = StepPublish
		return eventStop, nil
	}
	rs.Diff = diff

	// AGENTS.md is optional context; its absence is not a failure.
	if agentsMD, err := x.h.Diffs.FetchAgentsMD(ctx, rs.Event); err == nil {
		rs.AgentsMD = agentsMD
	}

	defaults := pr.DefaultReviewConfig()
	if rs.Config.MaxSuggestions <= 0 {
		rs.Config.MaxSuggestions = defaults.MaxSuggestions
	}
	if rs.Config.SeverityThreshold == "" {
		rs.Config.SeverityThreshold = defaults.SeverityThreshold
	}
	if rs.Config.EnableAgents == nil {
		rs.Config.EnableAgents = defaults.EnableAgents
	}

	rs.CurrentStage = StepChunkAnalyzer
	return EventSuccess, nil
}

// ----------------------------------------------------------- chunk_analyzer

type chunkAnalyzerHandler struct{ h *Handlers }

func (x *chunkAnalyzerHandler) Name() string { return StepChunkAnalyzer }
func (x *chunkAnalyzerHandler) DryRun(ws *WorkflowState) string {
	return "would parse the unified diff into one ChunkInfo per file, then admit files by optimizer priority within the configured file/token budget"
}

func (x *chunkAnalyzerHandler) Execute(ctx context.Context, ws *WorkflowState) (string, error) {
	rs := GetReviewState(ws)
	if rs == nil {
		return EventFailure, fmt.Errorf("workflow: %s: no ReviewState on WorkflowState", StepChunkAnalyzer)
	}

	chunks := pr.ParseUnifiedDiff(rs.Diff)
	if len(chunks) == 0 {
		rs.Fail(errors.New("no PR diff to analyze"))
		rs.CurrentStage = StepPublish
		return eventStop, nil
	}

	admitted, summary := selectChunks(chunks, rs.Config)
	if len(admitted) == 0 {
		rs.Fail(errors.New("optimizer admitted no files for review"))
		rs.CurrentStage = StepPublish
		return eventStop, nil
	}

	rs.Chunks = admitted
	rs.Selection = summary
	rs.CurrentChunkIndex = 0
	rs.CurrentStage = StepParallelAgents
	return EventSuccess, nil
}

// ---------------------------------------------------------- parallel_agents

type parallelAgentsHandler struct{ h *Handlers }

func (x *parallelAgentsHandler) Name() string { return StepParallelAgents }
func (x *parallelAgentsHandler) DryRun(ws *WorkflowState) string {
	return "would fan out the enabled analyzers over the current chunk and advance the chunk cursor"
}

func (x *parallelAgentsHandler) Execute(ctx context.Context, ws *WorkflowState) (string, error) {
	rs := GetReviewState(ws)
	if rs == nil {
		return EventFailure, fmt.Errorf("workflow: %s: no ReviewState on WorkflowState", StepParallelAgents)
	}
	if x.h.Analyzers == nil {
		return EventFailure, fmt.Errorf("workflow: %s: no analyzer registry configured", StepParallelAgents)
	}

	if rs.ShouldStop || rs.CurrentChunkIndex >= len(rs.Chunks) {
		rs.CurrentStage = StepAggregateResults
		return eventAdvance, nil
	}

	chunk := rs.Chunks[rs.CurrentChunkIndex]
	achunk := analyzer.Chunk{
		FilePath:  chunk.FilePath,
		StartLine: chunk.StartLine,
		EndLine:   chunk.EndLine,
		Content:   chunk.Content,
		Language:  chunk.Language,
	}
	rc := analyzer.Context{
		AgentsMD: rs.AgentsMD,
		Config: analyzer.ReviewConfig{
			EnableAgents: rs.Config.EnableAgents,
			CustomRules:  rs.Config.CustomRules,
		},
		ChunkIndex:  rs.CurrentChunkIndex,
		TotalChunks: len(rs.Chunks),
	}

	enabled := x.h.Analyzers.Enabled(rc.Config)
	results := analyzer.RunAll(ctx, enabled, achunk, rc, x.h.Concurrency)

	var found []suggestion.Suggestion
	names := make([]string, 0, len(results))
	if rs.AnalyzerRaw == nil {
		rs.AnalyzerRaw = map[string][]suggestion.Suggestion{}
	}
	for _, r := range results {
		names = append(names, r.AnalyzerName)
		if r.Err != nil {
			// An analyzer throwing is treated as an empty result for this
			// chunk; the caller that owns a logger records r.Err.
			continue
		}
		found = append(found, r.Suggestions...)
		rs.AnalyzerRaw[r.AnalyzerName] = append(rs.AnalyzerRaw[r.AnalyzerName], r.Suggestions...)
	}

	rs.Suggestions = append(rs.Suggestions, found...)
	rs.ChunkResults = append(rs.ChunkResults, ChunkResult{
		ChunkIndex:       rs.CurrentChunkIndex,
		FilePath:         chunk.FilePath,
		SuggestionsFound: len(found),
		AnalyzersRun:     names,
	})
	rs.CurrentChunkIndex++

	if rs.CurrentChunkIndex < len(rs.Chunks) {
		rs.CurrentStage = StepParallelAgents
		return eventContinue, nil
	}
	rs.CurrentStage = StepAggregateResults
	return eventAdvance, nil
}

// -------------------------------------------------------- aggregate_results

type aggregateResultsHandler struct{ h *Handlers }

func (x *aggregateResultsHandler) Name() string { return StepAggregateResults }
func (x *aggregateResultsHandler) DryRun(ws *WorkflowState) string {
	return "would deduplicate near-identical findings within each file"
}

func (x *aggregateResultsHandler) Execute(ctx context.Context, ws *WorkflowState) (string, error) {
	rs := GetReviewState(ws)
	if rs == nil {
		return EventFailure, fmt.Errorf("workflow: %s: no ReviewState on WorkflowState", StepAggregateResults)
	}
	if x.h.Dedup == nil {
		return EventFailure, fmt.Errorf("workflow: %s: no Deduplicator configured", StepAggregateResults)
	}

	rs.Suggestions = x.h.Dedup.Deduplicate(rs.Suggestions)

	if len(rs.Suggestions) == 0 || rs.ShouldStop {
		rs.CurrentStage = StepPublish
		return eventStop, nil
	}
	rs.CurrentStage = StepSeverityFilter
	return EventSuccess, nil
}

// ---------------------------------------------------------- severity_filter

type severityFilterHandler struct{ h *Handlers }

func (x *severityFilterHandler) Name() string { return StepSeverityFilter }
func (x *severityFilterHandler) DryRun(ws *WorkflowState) string {
	return "would reclassify and threshold-filter suggestions, then truncate to max_suggestions"
}

func (x *severityFilterHandler) Execute(ctx context.Context, ws *WorkflowState) (string, error) {
	rs := GetReviewState(ws)
	if rs == nil {
		return EventFailure, fmt.Errorf("workflow: %s: no ReviewState on WorkflowState", StepSeverityFilter)
	}

	threshold := suggestion.Severity(rs.Config.SeverityThreshold)
	rs.Suggestions = suggestion.FilterByThreshold(rs.Suggestions, threshold)
	rs.Suggestions = suggestion.SortBySeverity(rs.Suggestions)

	if rs.Config.MaxSuggestions > 0 && len(rs.Suggestions) > rs.Config.MaxSuggestions {
		rs.Suggestions = rs.Suggestions[:rs.Config.MaxSuggestions]
	}

	if len(rs.Suggestions) == 0 {
		rs.CurrentStage = StepPublish
		return eventEmpty, nil
	}
	rs.CurrentStage = StepLLMJudge
	return EventSuccess, nil
}

// -------------------------------------------------------------- llm_judge

type llmJudgeHandler struct{ h *Handlers }

func (x *llmJudgeHandler) Name() string { return StepLLMJudge }
func (x *llmJudgeHandler) DryRun(ws *WorkflowState) string {
	return "would ask the judge to validate each surviving suggestion, partitioning into validated/rejected"
}

func (x *llmJudgeHandler) Execute(ctx context.Context, ws *WorkflowState) (string, error) {
	rs := GetReviewState(ws)
	if rs == nil {
		return EventFailure, fmt.Errorf("workflow: %s: no ReviewState on WorkflowState", StepLLMJudge)
	}

	var validated, rejected []suggestion.Suggestion
	for _, s := range rs.Suggestions {
		if x.h.Judge == nil || x.h.Judge.Validate(ctx, s) {
			validated = append(validated, s)
		} else {
			rejected = append(rejected, s)
		}
	}

	rs.ValidatedSuggestions = validated
	rs.RejectedSuggestions = rejected
	rs.Suggestions = validated

	rs.CurrentStage = StepPublish
	return EventSuccess, nil
}

// ------------------------------------------------------------------ publish

type publishHandler struct{ h *Handlers }

func (x *publishHandler) Name() string { return StepPublish }
func (x *publishHandler) DryRun(ws *WorkflowState) string {
	return "would post review comments to the provider and render the summary"
}

func (x *publishHandler) Execute(ctx context.Context, ws *WorkflowState) (string, error) {
	rs := GetReviewState(ws)
	if rs == nil {
		return EventFailure, fmt.Errorf("workflow: %s: no ReviewState on WorkflowState", StepPublish)
	}

	rs.Comments = projectComments(rs.Suggestions)

	// publish is terminal regardless of error: a posting failure is
	// recorded on the state, not surfaced as an engine-level failure, so
	// the workflow always reaches StepDone and the checkpoint remains
	// resumable for a retry.
	if x.h.Comments != nil && len(rs.Comments) > 0 {
		if err := x.h.Comments.PostReviewComments(ctx, rs.Event.RepoOwner, rs.Event.RepoName, rs.Event.PRNumber, rs.Comments); err != nil {
			rs.Fail(fmt.Errorf("%s: post review comments: %w", StepPublish, err))
		}
	}

	rs.Summary = renderSummary(rs)
	// A review passes only when it ran cleanly and found nothing that
	// blocks the merge (any finding classifying to error severity).
	rs.Passed = rs.Error == "" && !suggestion.ShouldBlockMerge(rs.Suggestions)
	rs.CompletedAt = time.Now()
	rs.CurrentStage = StepPublish

	return EventSuccess, nil
}

func projectComments(suggestions []suggestion.Suggestion) []pr.ReviewComment {
	comments := make([]pr.ReviewComment, 0, len(suggestions))
	for _, s := range suggestions {
		comments = append(comments, pr.ReviewComment{
			FilePath:   s.FilePath,
			LineNumber: s.LineNumber,
			Message:    s.Message,
			Severity:   string(s.Severity),
			Suggestion: s.Replacement,
		})
	}
	return comments
}

// renderSummary builds the markdown status summary publish attaches to the
// review: counts per severity plus a status line.
func renderSummary(rs *ReviewState) string {
	if rs.Error != "" {
		return fmt.Sprintf("## Review incomplete\n\n%s\n", rs.Error)
	}

	stats := suggestion.GetSeverityStats(rs.Suggestions)
	status := "no issues found"
	if suggestion.ShouldBlockMerge(rs.Suggestions) {
		status = "blocking issues found"
	} else if len(rs.Suggestions) > 0 {
		status = "non-blocking issues found"
	}

	return fmt.Sprintf(
		"## Review summary\n\nStatus: %s\n\n- error: %d (%.1f%%)\n- warning: %d (%.1f%%)\n- suggestion: %d (%.1f%%)\n- note: %d (%.1f%%)\n",
		status,
		stats.Error, stats.ErrorPercent,
		stats.Warning, stats.WarningPercent,
		stats.Suggestion, stats.SuggestionPercent,
		stats.Note, stats.NotePercent,
	)
}
