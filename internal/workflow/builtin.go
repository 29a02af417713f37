package workflow

// WorkflowReview is the name of Corvid's single built-in workflow: the
// seven-stage review pipeline.
const WorkflowReview = "review"

// Stage name constants for the review workflow's seven steps.
const (
	StepIngestPR         = "ingest_pr"
	StepChunkAnalyzer    = "chunk_analyzer"
	StepParallelAgents   = "parallel_agents"
	StepAggregateResults = "aggregate_results"
	StepSeverityFilter   = "severity_filter"
	StepLLMJudge         = "llm_judge"
	StepPublish          = "publish"
)

// Transition event constants specific to the review workflow's branches,
// alongside the shared EventSuccess/EventFailure vocabulary in events.go.
const (
	// eventStop is returned by ingest_pr, chunk_analyzer and aggregate_results
	// when they end the review early (an Error recorded on the ReviewState, or
	// ShouldStop set), short-circuiting straight to publish: only publish
	// still runs after it.
	eventStop = "stop"

	// eventContinue is returned by parallel_agents while chunks remain.
	eventContinue = "continue"

	// eventAdvance is returned by parallel_agents once every chunk has been
	// processed (or ShouldStop was set mid-loop), moving to aggregate.
	eventAdvance = "advance"

	// eventEmpty is returned by severity_filter when nothing survived
	// filtering, skipping straight to publish.
	eventEmpty = "empty"
)

// reviewWorkflowDef builds the seven-stage review WorkflowDefinition.
func reviewWorkflowDef() *WorkflowDefinition {
	return &WorkflowDefinition{
		Name:        WorkflowReview,
		Description: "Ingest a PR event, fan out chunk analyzers, consolidate, judge, and publish review comments.",
		InitialStep: StepIngestPR,
		Steps: []StepDefinition{
			{
				Name: StepIngestPR,
				Transitions: map[string]string{
					EventSuccess: StepChunkAnalyzer,
					eventStop:    StepPublish,
				},
			},
			{
				Name: StepChunkAnalyzer,
				Transitions: map[string]string{
					EventSuccess: StepParallelAgents,
					eventStop:    StepPublish,
				},
			},
			{
				Name: StepParallelAgents,
				Transitions: map[string]string{
					eventContinue: StepParallelAgents,
					eventAdvance:  StepAggregateResults,
				},
			},
			{
				Name: StepAggregateResults,
				Transitions: map[string]string{
					EventSuccess: StepSeverityFilter,
					eventStop:    StepPublish,
				},
			},
			{
				Name: StepSeverityFilter,
				Transitions: map[string]string{
					EventSuccess: StepLLMJudge,
					eventEmpty:   StepPublish,
				},
			},
			{
				Name: StepLLMJudge,
				Transitions: map[string]string{
					EventSuccess: StepPublish,
				},
			},
			{
				// publish is terminal regardless of error:
				// whether PostReviewComments succeeds or fails, the engine's
				// next step is StepDone; the outcome is recorded on
				// ReviewState.Error/Passed, not on the transition graph.
				Name: StepPublish,
				Transitions: map[string]string{
					EventSuccess: StepDone,
				},
			},
		},
	}
}

// ReviewWorkflowDefinition returns the built-in review WorkflowDefinition.
func ReviewWorkflowDefinition() *WorkflowDefinition {
	return reviewWorkflowDef()
}

// RegisterReviewHandlers registers h's seven stage handlers into registry
// under their stage names.
func RegisterReviewHandlers(registry *Registry, h *Handlers) {
	registry.Register(h.IngestPR())
	registry.Register(h.ChunkAnalyzer())
	registry.Register(h.ParallelAgents())
	registry.Register(h.AggregateResults())
	registry.Register(h.SeverityFilter())
	registry.Register(h.LLMJudge())
	registry.Register(h.Publish())
}
