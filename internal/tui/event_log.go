package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// MaxEventLogEntries is the maximum number of entries retained in the event
// log. When the buffer is full the oldest entry is evicted to make room.
const MaxEventLogEntries = 500

// ---------------------------------------------------------------------------
// EventCategory
// ---------------------------------------------------------------------------

// EventCategory classifies an event log entry for colour-coded display.
type EventCategory int

const (
	// EventInfo is the default category for informational messages.
	EventInfo EventCategory = iota
	// EventSuccess indicates a successful operation.
	EventSuccess
	// EventWarning indicates a cautionary condition such as a rate limit.
	EventWarning
	// EventError indicates a failure.
	EventError
	// EventDebug is reserved for low-priority diagnostic messages.
	EventDebug
)

// ---------------------------------------------------------------------------
// EventEntry
// ---------------------------------------------------------------------------

// EventEntry is a single entry in the event log ring buffer.
type EventEntry struct {
	// Timestamp records when the event occurred.
	Timestamp time.Time
	// Category classifies the entry for display purposes.
	Category EventCategory
	// Message is the human-readable description of the event.
	Message string
}

// ---------------------------------------------------------------------------
// EventLogModel
// ---------------------------------------------------------------------------

// EventLogModel is the Bubble Tea sub-model for the scrollable event log
// panel rendered in the lower-right area of the dashboard TUI. It maintains a
// bounded ring buffer of EventEntry values and drives a bubbles/viewport for
// display.
//
// EventLogModel follows Bubble Tea's Elm architecture: Update returns a new
// value, and View is a pure function of the model state.
type EventLogModel struct {
	theme      Theme
	width      int
	height     int
	focused    bool
	visible    bool // toggled by the 'l' key; starts true
	entries    []EventEntry
	viewport   viewport.Model
	autoScroll bool
}

// NewEventLogModel creates an EventLogModel that is visible and has
// auto-scroll enabled. The entries buffer starts empty.
func NewEventLogModel(theme Theme) EventLogModel {
	return EventLogModel{
		theme:      theme,
		visible:    true,
		autoScroll: true,
		viewport:   viewport.New(0, 0),
	}
}

// SetDimensions updates the panel width and height and resizes the internal
// viewport. The viewport height is (height - 1) to reserve one row for the
// panel header.
func (el *EventLogModel) SetDimensions(width, height int) {
	el.width = width
	el.height = height

	vpHeight := height - 1
	if vpHeight < 0 {
		vpHeight = 0
	}
	el.viewport.Width = width
	el.viewport.Height = vpHeight

	// Re-render content at the new width.
	el.rebuildContent()
}

// SetFocused sets whether the event log panel currently holds keyboard focus.
func (el *EventLogModel) SetFocused(focused bool) {
	el.focused = focused
}

// SetVisible shows or hides the event log panel.
func (el *EventLogModel) SetVisible(visible bool) {
	el.visible = visible
}

// IsVisible reports whether the panel is currently shown.
func (el EventLogModel) IsVisible() bool {
	return el.visible
}

// AddEntry appends a new EventEntry to the log. When the buffer exceeds
// MaxEventLogEntries the oldest entry is evicted. The viewport content is
// rebuilt after every insertion and, when autoScroll is enabled, the viewport
// is scrolled to the bottom.
func (el *EventLogModel) AddEntry(category EventCategory, message string) {
	entry := EventEntry{
		Timestamp: time.Now(),
		Category:  category,
		Message:   message,
	}

	el.entries = append(el.entries, entry)

	// Evict oldest entries when over the limit.
	if len(el.entries) > MaxEventLogEntries {
		el.entries = el.entries[len(el.entries)-MaxEventLogEntries:]
	}

	el.rebuildContent()
}

// rebuildContent replaces the viewport content with all formatted entries
// joined by newlines, then auto-scrolls if enabled.
func (el *EventLogModel) rebuildContent() {
	if len(el.entries) == 0 {
		el.viewport.SetContent("")
		return
	}

	lines := make([]string, len(el.entries))
	for i, e := range el.entries {
		lines[i] = el.formatEntry(e)
	}
	el.viewport.SetContent(strings.Join(lines, "\n"))

	if el.autoScroll {
		el.viewport.GotoBottom()
	}
}

// formatEntry renders a single EventEntry as "HH:MM:SS message". The
// timestamp is styled with EventTimestamp (muted colour) and the message is
// styled according to its category.
func (el EventLogModel) formatEntry(entry EventEntry) string {
	ts := el.theme.EventTimestamp.Render(entry.Timestamp.Format("15:04:05"))
	msg := el.categoryStyle(entry.Category).Render(entry.Message)
	return ts + " " + msg
}

// categoryStyle returns the lipgloss style appropriate for the given category.
func (el EventLogModel) categoryStyle(cat EventCategory) lipgloss.Style {
	switch cat {
	case EventSuccess:
		return lipgloss.NewStyle().Foreground(ColorSuccess)
	case EventWarning:
		return lipgloss.NewStyle().Foreground(ColorWarning)
	case EventError:
		return lipgloss.NewStyle().Bold(true).Foreground(ColorError)
	case EventDebug:
		return lipgloss.NewStyle().Foreground(ColorMuted)
	default: // EventInfo
		return el.theme.EventMessage
	}
}

// ---------------------------------------------------------------------------
// Update
// ---------------------------------------------------------------------------

// Update processes incoming tea.Msg values and returns the updated model and
// any follow-up command.
//
// Handled messages:
//   - WorkflowEventMsg   — classified and added to the log
//   - WorkerStatusMsg    — classified and added to the log
//   - ReviewCompletedMsg — added as EventSuccess
//   - RateLimitMsg       — added as EventWarning
//   - ErrorMsg           — added as EventError
//   - FocusChangedMsg    — updates the focused flag
//   - tea.KeyMsg "l"     — toggles panel visibility
//   - tea.KeyMsg (navigation when focused) — forwarded to the viewport
func (el EventLogModel) Update(msg tea.Msg) (EventLogModel, tea.Cmd) {
	switch msg := msg.(type) {
	case WorkflowEventMsg:
		cat, text := classifyWorkflowEvent(msg)
		el.AddEntry(cat, text)

	case WorkerStatusMsg:
		cat, text := classifyWorkerStatus(msg)
		el.AddEntry(cat, text)

	case ReviewCompletedMsg:
		text := fmt.Sprintf("Review completed: %s#%d (%d suggestions, $%.2f)",
			msg.Repo, msg.PRNumber, msg.SuggestionCount, msg.CostUSD)
		el.AddEntry(EventSuccess, text)

	case RateLimitMsg:
		text := fmt.Sprintf("Rate limit: %s, waiting %s", msg.Provider, formatCountdown(msg.ResetAfter))
		el.AddEntry(EventWarning, text)

	case ErrorMsg:
		text := msg.Detail
		if text == "" {
			text = msg.Source
		}
		el.AddEntry(EventError, text)

	case FocusChangedMsg:
		el.focused = msg.Panel == FocusEventLog

	case tea.KeyMsg:
		// Toggle visibility regardless of focus.
		if msg.Type == tea.KeyRunes && string(msg.Runes) == "l" {
			el.visible = !el.visible
			return el, nil
		}

		// Navigation keys only when focused.
		if el.focused {
			return el.handleKey(msg)
		}
	}

	return el, nil
}

// handleKey routes navigation key events to the viewport and manages the
// autoScroll flag.
func (el EventLogModel) handleKey(msg tea.KeyMsg) (EventLogModel, tea.Cmd) {
	switch msg.Type {
	case tea.KeyUp:
		el.viewport.ScrollUp(1)
		el.autoScroll = false

	case tea.KeyDown:
		el.viewport.ScrollDown(1)
		if el.viewport.AtBottom() {
			el.autoScroll = true
		}

	case tea.KeyPgUp:
		el.viewport.PageUp()
		el.autoScroll = false

	case tea.KeyPgDown:
		el.viewport.PageDown()
		if el.viewport.AtBottom() {
			el.autoScroll = true
		}

	case tea.KeyHome:
		el.viewport.GotoTop()
		el.autoScroll = false

	case tea.KeyEnd:
		el.viewport.GotoBottom()
		el.autoScroll = true

	case tea.KeyRunes:
		switch string(msg.Runes) {
		case "k":
			el.viewport.ScrollUp(1)
			el.autoScroll = false
		case "j":
			el.viewport.ScrollDown(1)
			if el.viewport.AtBottom() {
				el.autoScroll = true
			}
		case "g":
			el.viewport.GotoTop()
			el.autoScroll = false
		case "G":
			el.viewport.GotoBottom()
			el.autoScroll = true
		}

	default:
	}

	return el, nil
}

// ---------------------------------------------------------------------------
// View
// ---------------------------------------------------------------------------

// View renders the event log panel as a string. It returns an empty string
// when the panel is hidden or when dimensions have not been set. The rendered
// output consists of a one-line header followed by the scrollable viewport.
// When the panel has focus a highlighted border colour is used.
func (el EventLogModel) View() string {
	if !el.visible || el.width <= 0 || el.height <= 0 {
		return ""
	}

	var sb strings.Builder

	// Header line.
	header := el.theme.ActivityHeader.Render("Event Log")
	sb.WriteString(header)
	sb.WriteString("\n")

	// Body: placeholder when empty, viewport otherwise.
	if len(el.entries) == 0 {
		placeholder := lipgloss.NewStyle().Foreground(ColorMuted).Render("No events yet")
		sb.WriteString(placeholder)
	} else {
		sb.WriteString(el.viewport.View())
	}

	content := sb.String()

	// Apply the container style. When focused use ColorPrimary border.
	containerStyle := el.theme.EventContainer
	if el.focused {
		containerStyle = containerStyle.
			BorderForeground(ColorPrimary)
	}

	return containerStyle.
		Width(el.width).
		Render(content)
}

// ---------------------------------------------------------------------------
// Classify helpers
// ---------------------------------------------------------------------------

// classifyWorkflowEvent maps a WorkflowEventMsg to an EventCategory and a
// human-readable log message.
func classifyWorkflowEvent(msg WorkflowEventMsg) (EventCategory, string) {
	name := msg.WorkflowID

	cat := EventInfo
	evt := strings.ToLower(msg.Event)
	switch {
	case strings.Contains(evt, "fail"), strings.Contains(evt, "error"):
		cat = EventError
	case strings.Contains(evt, "rate_limited"), strings.Contains(evt, "blocked"):
		cat = EventWarning
	case evt == "success":
		cat = EventSuccess
	}

	var text string
	if msg.Error != "" {
		text = fmt.Sprintf("Review '%s' step %s: %s", name, msg.Step, msg.Error)
	} else if msg.Step != "" {
		text = fmt.Sprintf("Review '%s' step: %s (%s)", name, msg.Step, msg.Event)
	} else if msg.Message != "" {
		text = fmt.Sprintf("Review '%s': %s", name, msg.Message)
	} else {
		text = fmt.Sprintf("Review '%s' event: %s", name, msg.Event)
	}

	return cat, text
}

// classifyWorkerStatus maps a WorkerStatusMsg to an EventCategory and a
// human-readable log message.
func classifyWorkerStatus(msg WorkerStatusMsg) (EventCategory, string) {
	switch msg.Status {
	case WorkerBusy:
		text := fmt.Sprintf("Worker %s started", msg.WorkerID)
		if msg.Review != "" {
			text = fmt.Sprintf("Worker %s started %s", msg.WorkerID, msg.Review)
		}
		return EventInfo, text

	case WorkerCompleted:
		text := fmt.Sprintf("Worker %s completed", msg.WorkerID)
		if msg.Review != "" {
			text = fmt.Sprintf("Worker %s completed %s", msg.WorkerID, msg.Review)
		}
		return EventSuccess, text

	case WorkerFailed:
		text := fmt.Sprintf("Worker %s failed", msg.WorkerID)
		if msg.Detail != "" {
			text = fmt.Sprintf("Worker %s failed: %s", msg.WorkerID, msg.Detail)
		}
		return EventError, text

	case WorkerThrottled:
		return EventWarning, fmt.Sprintf("Worker %s throttled", msg.WorkerID)

	case WorkerOffline:
		return EventWarning, fmt.Sprintf("Worker %s offline", msg.WorkerID)

	default: // WorkerIdle and unknown values
		return EventInfo, fmt.Sprintf("Worker %s idle", msg.WorkerID)
	}
}
