package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

// dispatchSB sends any tea.Msg value to the StatusBarModel and returns the
// updated model. Since tea.Msg is defined as any, all message types used in
// the dashboard's TUI are accepted.
func dispatchSB(sb StatusBarModel, msg any) StatusBarModel {
	return sb.Update(msg)
}

func newWideStatusBar() StatusBarModel {
	sb := NewStatusBarModel(DefaultTheme())
	sb.SetWidth(120)
	return sb
}

// ---------------------------------------------------------------------------
// Construction and View basics
// ---------------------------------------------------------------------------

func TestNewStatusBarModel_Defaults(t *testing.T) {
	t.Parallel()

	sb := NewStatusBarModel(DefaultTheme())
	assert.Equal(t, "idle", sb.mode)
	assert.False(t, sb.paused)
	assert.True(t, sb.startTime.IsZero())
}

func TestView_EmptyWithoutWidth(t *testing.T) {
	t.Parallel()

	sb := NewStatusBarModel(DefaultTheme())
	assert.Empty(t, sb.View())
}

func TestView_ContainsDefaultSegments(t *testing.T) {
	t.Parallel()

	sb := newWideStatusBar()
	view := sb.View()
	assert.Contains(t, view, "[idle]")
	assert.Contains(t, view, "Budget")
	assert.Contains(t, view, "help")
}

// ---------------------------------------------------------------------------
// WorkflowEventMsg handling
// ---------------------------------------------------------------------------

func TestUpdate_WorkflowEventMsg_SetsWorkflowAndPhase(t *testing.T) {
	t.Parallel()

	sb := newWideStatusBar()
	sb = dispatchSB(sb, WorkflowEventMsg{WorkflowID: "github-acme-widgets-7", Step: "severity_filter", Event: "success"})

	assert.Equal(t, "github-acme-widgets-7", sb.workflow)
	assert.Equal(t, "severity_filter", sb.phase)
	assert.Contains(t, sb.View(), "severity_filter")
}

func TestUpdate_WorkflowEventMsg_ModeTransitions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		event string
		want  string
	}{
		{"success watches", "success", "watching"},
		{"failure errors", "failure", "error"},
		{"error errors", "error", "error"},
		{"rate limit throttles", "rate_limited", "throttled"},
		{"blocked throttles", "blocked", "throttled"},
		{"other leaves idle behind", "continue", "watching"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sb := newWideStatusBar()
			sb = dispatchSB(sb, WorkflowEventMsg{WorkflowID: "w", Event: tt.event})
			assert.Equal(t, tt.want, sb.mode)
		})
	}
}

func TestUpdate_WorkflowEventMsg_EmptyFieldsLeaveStateAlone(t *testing.T) {
	t.Parallel()

	sb := newWideStatusBar()
	sb = dispatchSB(sb, WorkflowEventMsg{WorkflowID: "w1", Step: "ingest_pr"})
	sb = dispatchSB(sb, WorkflowEventMsg{Event: "success"})

	assert.Equal(t, "w1", sb.workflow, "empty WorkflowID must not clear the last observed id")
	assert.Equal(t, "ingest_pr", sb.phase, "empty Step must not clear the last observed step")
}

// ---------------------------------------------------------------------------
// Budget and queue segments
// ---------------------------------------------------------------------------

func TestUpdate_BudgetStatusMsg(t *testing.T) {
	t.Parallel()

	sb := newWideStatusBar()
	assert.Contains(t, sb.View(), "Budget")

	sb = dispatchSB(sb, BudgetStatusMsg{DailyUSD: 12.5, DailyLimitUSD: 50})
	view := sb.View()
	assert.Contains(t, view, "$12.50/$50.00")
}

func TestUpdate_QueueStatusMsg(t *testing.T) {
	t.Parallel()

	sb := newWideStatusBar()
	sb = dispatchSB(sb, QueueStatusMsg{Depth: 4})
	assert.Contains(t, sb.View(), "Queue")

	sb = dispatchSB(sb, QueueStatusMsg{Depth: 4, DLQDepth: 2})
	assert.Contains(t, sb.View(), "(dlq 2)")
}

// ---------------------------------------------------------------------------
// Pause and timer
// ---------------------------------------------------------------------------

func TestUpdate_PauseRequestMsg_Toggles(t *testing.T) {
	t.Parallel()

	sb := newWideStatusBar()
	sb = dispatchSB(sb, PauseRequestMsg{})
	assert.True(t, sb.paused)
	assert.Contains(t, sb.View(), "PAUSED")

	sb = dispatchSB(sb, PauseRequestMsg{})
	assert.False(t, sb.paused)
}

func TestUpdate_TickMsg_StartsAndAdvancesTimer(t *testing.T) {
	t.Parallel()

	sb := newWideStatusBar()
	start := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)

	sb = dispatchSB(sb, TickMsg{Time: start})
	assert.Equal(t, start, sb.startTime)
	assert.Equal(t, time.Duration(0), sb.elapsed)

	sb = dispatchSB(sb, TickMsg{Time: start.Add(65 * time.Second)})
	assert.Equal(t, 65*time.Second, sb.elapsed)
}

func TestUpdate_TickMsg_FrozenWhilePaused(t *testing.T) {
	t.Parallel()

	sb := newWideStatusBar()
	start := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	sb = dispatchSB(sb, TickMsg{Time: start})
	sb = dispatchSB(sb, TickMsg{Time: start.Add(10 * time.Second)})

	sb = dispatchSB(sb, PauseRequestMsg{})
	sb = dispatchSB(sb, TickMsg{Time: start.Add(60 * time.Second)})

	assert.Equal(t, 10*time.Second, sb.elapsed, "elapsed must freeze while paused")
}

func TestUpdate_TickMsg_NegativeElapsedClampedToZero(t *testing.T) {
	t.Parallel()

	sb := newWideStatusBar()
	start := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	sb = dispatchSB(sb, TickMsg{Time: start})
	sb = dispatchSB(sb, TickMsg{Time: start.Add(-5 * time.Second)})

	assert.Equal(t, time.Duration(0), sb.elapsed)
}

func TestSetPaused(t *testing.T) {
	t.Parallel()

	sb := newWideStatusBar()
	sb.SetPaused(true)
	assert.Contains(t, sb.View(), "PAUSED")
}

// ---------------------------------------------------------------------------
// Narrow widths
// ---------------------------------------------------------------------------

func TestView_NarrowWidthDropsOptionalSegments(t *testing.T) {
	t.Parallel()

	sb := NewStatusBarModel(DefaultTheme())
	sb.SetWidth(30)
	sb = dispatchSB(sb, WorkflowEventMsg{WorkflowID: "w", Step: "publish", Event: "success"})
	sb = dispatchSB(sb, QueueStatusMsg{Depth: 9})

	view := sb.View()
	// Mandatory segments survive; the view stays a single line.
	assert.Contains(t, view, "Budget")
	assert.NotContains(t, view, "\n")
}

func TestView_IgnoresUnknownMessages(t *testing.T) {
	t.Parallel()

	sb := newWideStatusBar()
	before := sb.View()
	sb = dispatchSB(sb, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	assert.Equal(t, before, sb.View())
}

// ---------------------------------------------------------------------------
// formatElapsed
// ---------------------------------------------------------------------------

func TestFormatElapsed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		d    time.Duration
		want string
	}{
		{"zero", 0, "00:00:00"},
		{"negative clamps", -time.Minute, "00:00:00"},
		{"seconds", 42 * time.Second, "00:00:42"},
		{"minutes", 3*time.Minute + 5*time.Second, "00:03:05"},
		{"hours", 2*time.Hour + 14*time.Minute + 9*time.Second, "02:14:09"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, formatElapsed(tt.d))
		})
	}
}
