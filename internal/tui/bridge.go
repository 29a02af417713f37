package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/corvid-review/corvid/internal/workflow"
)

// EventBridge drains backend event channels into Bubble Tea commands. Each
// Cmd method reads exactly one value from its channel (or observes context
// cancellation) and returns it wrapped as a tea.Msg. The App's Update loop
// re-invokes the matching Cmd method after handling the message, keeping the
// channel draining for as long as the program runs.
//
// EventBridge holds no state of its own; it exists to group the channel-to-Cmd
// conversion functions under one name, matching the shape of the bridge the
// command-center TUI used for its own backend channels.
type EventBridge struct{}

// NewEventBridge returns a ready-to-use EventBridge.
func NewEventBridge() EventBridge {
	return EventBridge{}
}

// WorkflowEventCmd returns a tea.Cmd that reads one workflow.WorkflowEvent
// from ch and converts it into a WorkflowEventMsg. Returns nil (no message)
// when ctx is cancelled or ch is closed.
func (EventBridge) WorkflowEventCmd(ctx context.Context, ch <-chan workflow.WorkflowEvent) tea.Cmd {
	return func() tea.Msg {
		select {
		case evt, ok := <-ch:
			if !ok {
				return nil
			}
			return convertWorkflowEvent(evt)
		case <-ctx.Done():
			return nil
		}
	}
}

// convertWorkflowEvent maps a workflow.WorkflowEvent onto the TUI's
// WorkflowEventMsg representation.
func convertWorkflowEvent(evt workflow.WorkflowEvent) WorkflowEventMsg {
	return WorkflowEventMsg{
		WorkflowID: evt.WorkflowID,
		Type:       evt.Type,
		Step:       evt.Step,
		Event:      evt.Event,
		Message:    evt.Message,
		Error:      evt.Error,
		Timestamp:  evt.Timestamp,
	}
}

// WorkerStatusCmd returns a tea.Cmd that reads one WorkerStatusMsg from ch.
// Returns nil when ctx is cancelled or ch is closed.
func (EventBridge) WorkerStatusCmd(ctx context.Context, ch <-chan WorkerStatusMsg) tea.Cmd {
	return func() tea.Msg {
		select {
		case evt, ok := <-ch:
			if !ok {
				return nil
			}
			return evt
		case <-ctx.Done():
			return nil
		}
	}
}

// QueueStatusCmd returns a tea.Cmd that reads one QueueStatusMsg from ch.
// Returns nil when ctx is cancelled or ch is closed.
func (EventBridge) QueueStatusCmd(ctx context.Context, ch <-chan QueueStatusMsg) tea.Cmd {
	return func() tea.Msg {
		select {
		case evt, ok := <-ch:
			if !ok {
				return nil
			}
			return evt
		case <-ctx.Done():
			return nil
		}
	}
}

// BudgetStatusCmd returns a tea.Cmd that reads one BudgetStatusMsg from ch.
// Returns nil when ctx is cancelled or ch is closed.
func (EventBridge) BudgetStatusCmd(ctx context.Context, ch <-chan BudgetStatusMsg) tea.Cmd {
	return func() tea.Msg {
		select {
		case evt, ok := <-ch:
			if !ok {
				return nil
			}
			return evt
		case <-ctx.Done():
			return nil
		}
	}
}

// ReviewCompletedCmd returns a tea.Cmd that reads one ReviewCompletedMsg from
// ch. Returns nil when ctx is cancelled or ch is closed.
func (EventBridge) ReviewCompletedCmd(ctx context.Context, ch <-chan ReviewCompletedMsg) tea.Cmd {
	return func() tea.Msg {
		select {
		case evt, ok := <-ch:
			if !ok {
				return nil
			}
			return evt
		case <-ctx.Done():
			return nil
		}
	}
}

// RateLimitCmd returns a tea.Cmd that reads one RateLimitMsg from ch.
// Returns nil when ctx is cancelled or ch is closed.
func (EventBridge) RateLimitCmd(ctx context.Context, ch <-chan RateLimitMsg) tea.Cmd {
	return func() tea.Msg {
		select {
		case evt, ok := <-ch:
			if !ok {
				return nil
			}
			return evt
		case <-ctx.Done():
			return nil
		}
	}
}
