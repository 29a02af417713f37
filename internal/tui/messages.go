package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// ---------------------------------------------------------------------------
// Worker Messages
// ---------------------------------------------------------------------------

// WorkerStatus represents the current lifecycle state of a job-queue worker.
type WorkerStatus int

const (
	// WorkerIdle means the worker is available but not currently processing a review.
	WorkerIdle WorkerStatus = iota
	// WorkerBusy means the worker is actively processing a review job.
	WorkerBusy
	// WorkerCompleted means the worker finished its last job successfully.
	WorkerCompleted
	// WorkerFailed means the worker's last job ended in a terminal error.
	WorkerFailed
	// WorkerThrottled means the worker is paused, waiting on a model rate limit.
	WorkerThrottled
	// WorkerOffline means the worker has not renewed its lease and is presumed dead.
	WorkerOffline
)

var workerStatusStrings = []string{
	"idle",
	"busy",
	"completed",
	"failed",
	"throttled",
	"offline",
}

// String returns a human-readable label for the WorkerStatus.
// Returns "unknown" for values outside the defined range.
func (s WorkerStatus) String() string {
	if int(s) < 0 || int(s) >= len(workerStatusStrings) {
		return "unknown"
	}
	return workerStatusStrings[s]
}

// WorkerStatusMsg signals a job-queue worker lifecycle change. It is
// dispatched whenever a worker transitions between states, e.g. from
// WorkerIdle to WorkerBusy when it claims a review job off the stream.
type WorkerStatusMsg struct {
	// WorkerID is the consumer name the worker registered with the broker.
	WorkerID string
	// Status is the new lifecycle state of the worker.
	Status WorkerStatus
	// Review identifies the review job being processed, if any (repo#pr).
	Review string
	// Detail is an optional human-readable description of the transition.
	Detail string
	// Timestamp records when the status transition occurred.
	Timestamp time.Time
}

// ---------------------------------------------------------------------------
// Workflow Messages
// ---------------------------------------------------------------------------

// WorkflowEventMsg mirrors workflow.WorkflowEvent for TUI consumption. It
// carries enough context for the TUI to render meaningful stage transitions
// in the event log and status bar as a review moves through the pipeline
// (ingest_pr -> chunk_analyzer -> parallel_agents -> aggregate_results ->
// severity_filter -> llm_judge -> publish).
type WorkflowEventMsg struct {
	// WorkflowID is the unique identifier of the running review workflow.
	WorkflowID string
	// Type is one of workflow's WE* lifecycle constants (e.g. "step_started").
	Type string
	// Step is the step name that produced this event.
	Step string
	// Event is the transition event returned by the step handler (e.g. "success").
	Event string
	// Message is a human-readable description of the event.
	Message string
	// Error holds the error message when Type signals a failure.
	Error string
	// Timestamp records when the workflow event was emitted.
	Timestamp time.Time
}

// ---------------------------------------------------------------------------
// Rate Limit Messages
// ---------------------------------------------------------------------------

// RateLimitMsg signals a model-provider rate-limit event with countdown
// information. The TUI uses ResetAfter / ResetAt to display a live countdown
// timer until the provider allows new requests again.
type RateLimitMsg struct {
	// Provider is the model provider that issued the rate limit (e.g. "anthropic").
	Provider string
	// ResetAfter is the duration to wait before the rate limit clears.
	ResetAfter time.Duration
	// ResetAt is the absolute time at which the rate limit is expected to clear.
	ResetAt time.Time
	// Timestamp records when the rate-limit event was detected.
	Timestamp time.Time
}

// ---------------------------------------------------------------------------
// Queue Messages
// ---------------------------------------------------------------------------

// QueueStatusMsg reports the MessageBroker's current backlog, fed by the
// same counters the job runtime exposes on /metrics.
type QueueStatusMsg struct {
	// Depth is the number of pending entries in the review stream.
	Depth int
	// InFlight is the number of entries claimed but not yet acked.
	InFlight int
	// DLQDepth is the number of entries parked in the dead-letter stream.
	DLQDepth int
	// Timestamp records when this snapshot was taken.
	Timestamp time.Time
}

// ---------------------------------------------------------------------------
// Budget Messages
// ---------------------------------------------------------------------------

// BudgetStatusMsg reports the current spend against the configured budget
// limits, fed by the CostLedger-backed budget.Enforcer.
type BudgetStatusMsg struct {
	DailyUSD        float64
	DailyLimitUSD   float64
	MonthlyUSD      float64
	MonthlyLimitUSD float64
	Timestamp       time.Time
}

// ---------------------------------------------------------------------------
// Review Activity Messages
// ---------------------------------------------------------------------------

// ReviewCompletedMsg reports a single review run finishing the publish
// stage, feeding the dashboard's "recent reviews" tail.
type ReviewCompletedMsg struct {
	Repo            string
	PRNumber        int
	SuggestionCount int
	CostUSD         float64
	Timestamp       time.Time
}

// ---------------------------------------------------------------------------
// Internal TUI Messages
// ---------------------------------------------------------------------------

// TickMsg is sent periodically to trigger timer updates such as rate-limit
// countdowns and elapsed-time displays.
type TickMsg struct {
	// Time is the wall-clock time at which the tick fired.
	Time time.Time
}

// ErrorMsg represents a non-fatal error to display in the event log.
// Fatal errors should cause program termination via tea.Quit; ErrorMsg is
// reserved for recoverable issues that the user should be aware of.
type ErrorMsg struct {
	// Source identifies the component that generated the error (e.g. "broker", "webhook").
	Source string
	// Detail is the human-readable error description.
	Detail string
	// Timestamp records when the error was observed.
	Timestamp time.Time
}

// FocusChangedMsg signals that keyboard focus moved to a different panel.
// The TUI dispatches this message whenever the user navigates between the
// sidebar, activity panel, and event log.
type FocusChangedMsg struct {
	// Panel is the panel that has received focus.
	// FocusPanel is defined in app.go (same package).
	Panel FocusPanel
}

// ---------------------------------------------------------------------------
// Helper Functions
// ---------------------------------------------------------------------------

// TickCmd returns a tea.Cmd that sends a single TickMsg after duration d.
// Use this helper instead of time.After in goroutines to stay within Bubble
// Tea's Elm architecture and avoid data races.
func TickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

// TickEvery returns a tea.Cmd that sends a TickMsg after duration d.
// The caller's Update handler should call TickEvery again upon receiving a
// TickMsg to create recurring ticks via the recursive scheduling pattern:
//
//	case TickMsg:
//	    // update state...
//	    return m, TickEvery(interval)
func TickEvery(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}
