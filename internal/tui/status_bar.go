package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// StatusBarModel manages the bottom status bar display in the dashboard TUI.
// It tracks the most recent workflow step, the current budget spend, the
// queue depth, and the elapsed uptime. The view renders all fields in a
// single line with styled separators. The elapsed timer is computed from the
// start time on each TickMsg.
//
// StatusBarModel follows Bubble Tea's Elm architecture: Update returns a new
// value, and View is a pure function of the model state.
type StatusBarModel struct {
	theme Theme
	width int

	// Dynamic state updated by incoming messages.
	workflow string // most recently observed WorkflowID
	phase    string // most recently observed pipeline step

	dailyUSD        float64
	dailyLimitUSD   float64
	queueDepth      int
	queueDLQ        int
	budgetKnown     bool
	queueKnown      bool

	startTime time.Time
	elapsed   time.Duration
	paused    bool
	mode      string // e.g., "watching", "idle"
}

// NewStatusBarModel creates a StatusBarModel with the given theme.
// All dynamic state fields start at their zero values; the mode defaults to
// "idle". The start time stays zero until the first TickMsg sets it, which
// starts the uptime timer.
func NewStatusBarModel(theme Theme) StatusBarModel {
	return StatusBarModel{
		theme:     theme,
		mode:      "idle",
		startTime: time.Time{},
	}
}

// SetWidth updates the status bar width. This should be called whenever the
// parent App processes a tea.WindowSizeMsg.
func (sb *StatusBarModel) SetWidth(width int) {
	sb.width = width
}

// SetPaused updates the paused state. When true, the status bar displays a
// prominent "PAUSED" indicator in warning colour, signalling that
// auto-refresh polling is suspended.
func (sb *StatusBarModel) SetPaused(paused bool) {
	sb.paused = paused
}

// Update processes messages that affect status bar content and returns the
// updated model.
//
// Handled messages:
//   - WorkflowEventMsg  — updates the workflow id and current pipeline step
//   - BudgetStatusMsg   — updates the daily spend and limit
//   - QueueStatusMsg    — updates the queue depth and DLQ depth
//   - PauseRequestMsg   — toggles the paused (auto-refresh) flag
//   - TickMsg           — advances the elapsed timer when not paused; starts
//     the timer on the first tick if it has not been set
func (sb StatusBarModel) Update(msg tea.Msg) StatusBarModel {
	switch m := msg.(type) {
	case WorkflowEventMsg:
		sb = sb.handleWorkflowEvent(m)

	case BudgetStatusMsg:
		sb.dailyUSD = m.DailyUSD
		sb.dailyLimitUSD = m.DailyLimitUSD
		sb.budgetKnown = true

	case QueueStatusMsg:
		sb.queueDepth = m.Depth
		sb.queueDLQ = m.DLQDepth
		sb.queueKnown = true

	case PauseRequestMsg:
		sb.paused = !sb.paused

	case TickMsg:
		if sb.startTime.IsZero() {
			sb.startTime = m.Time
		}
		if !sb.paused {
			elapsed := m.Time.Sub(sb.startTime)
			if elapsed < 0 {
				elapsed = 0
			}
			sb.elapsed = elapsed
		}
	}

	return sb
}

// handleWorkflowEvent extracts workflow id and step information from a
// WorkflowEventMsg and updates the model accordingly.
func (sb StatusBarModel) handleWorkflowEvent(msg WorkflowEventMsg) StatusBarModel {
	if msg.WorkflowID != "" {
		sb.workflow = msg.WorkflowID
	}

	if msg.Step != "" {
		sb.phase = msg.Step
	}

	// Derive mode from the transition event when available.
	switch strings.ToLower(msg.Event) {
	case "failure", "error":
		sb.mode = "error"
	case "rate_limited", "blocked":
		sb.mode = "throttled"
	case "success":
		sb.mode = "watching"
	default:
		if sb.mode == "idle" {
			sb.mode = "watching"
		}
	}

	return sb
}

// View renders the status bar as a single-line string spanning the full
// terminal width. Segments are left-aligned, separated by styled dividers.
// A "? help" hint is right-aligned. If the total segment width exceeds the
// available width, rightmost optional segments are omitted to ensure the bar
// fits exactly in one line.
//
// Rendered format (approximate):
//
//	[mode] | Step {phase} | Budget ${daily}/${limit} | Queue {depth} (dlq {n}) | {uptime} | ? help
func (sb StatusBarModel) View() string {
	if sb.width <= 0 {
		return ""
	}

	sep := sb.theme.StatusSeparator.Render(" | ")

	// --- Build individual segment strings ---

	modeStr := sb.modeSegment()
	phaseStr := sb.phaseSegment()
	budgetStr := sb.budgetSegment()
	queueStr := sb.queueSegment()
	timerStr := sb.timerSegment()
	helpStr := sb.theme.HelpKey.Render("?") + " " + sb.theme.HelpDesc.Render("help")

	// Mandatory segments (always shown if they fit): mode + budget.
	// Optional segments (hidden first when narrow): phase, queue, timer.
	type segment struct {
		text     string
		optional bool
	}

	segments := []segment{
		{text: modeStr, optional: false},
		{text: sep + phaseStr, optional: true},
		{text: sep + budgetStr, optional: false},
		{text: sep + queueStr, optional: true},
		{text: sep + timerStr, optional: true},
	}

	// StatusBar theme style has Padding(0,1), i.e. 1 column on each side = 2
	// total columns consumed by padding.
	const barPadding = 2
	innerWidth := sb.width - barPadding
	if innerWidth < 0 {
		innerWidth = 0
	}

	// Reserve space inside innerWidth for the right-aligned help hint
	// (including its leading separator).
	helpSepStr := sep + helpStr
	helpSegWidth := lipgloss.Width(helpSepStr)

	// Compute mandatory-only width to know how much optional budget we have.
	mandatoryWidth := 0
	for _, seg := range segments {
		if !seg.optional {
			mandatoryWidth += lipgloss.Width(seg.text)
		}
	}

	// Budget available for optional segments (between mandatory content and help hint).
	optionalBudget := innerWidth - mandatoryWidth - helpSegWidth
	if optionalBudget < 0 {
		optionalBudget = 0
	}

	// Build the ordered segment list: always include mandatory segments,
	// greedily include optional segments while they fit within optionalBudget.
	var leftParts []string
	optionalUsed := 0

	for _, seg := range segments {
		w := lipgloss.Width(seg.text)
		if !seg.optional {
			// Mandatory: always include.
			leftParts = append(leftParts, seg.text)
		} else if optionalUsed+w <= optionalBudget {
			// Optional: include only if it fits within the optional budget.
			leftParts = append(leftParts, seg.text)
			optionalUsed += w
		}
		// Optional segments that exceed the budget are skipped.
	}

	leftContent := strings.Join(leftParts, "")

	// Fill the gap between the left content and the right-aligned hint.
	leftWidth := lipgloss.Width(leftContent)
	gap := innerWidth - leftWidth - helpSegWidth
	if gap < 0 {
		gap = 0
	}
	padding := strings.Repeat(" ", gap)

	// Compose full bar content.
	barContent := leftContent + padding + helpSepStr

	// Apply the StatusBar style. Width(sb.width) sets the total rendered width
	// (lipgloss uses the border-box model where Width includes padding).
	// With Padding(0,1) the content area is sb.width-2, which matches innerWidth.
	// MaxHeight(1) ensures no line wrapping.
	return sb.theme.StatusBar.
		Width(sb.width).
		MaxHeight(1).
		Render(barContent)
}

// modeSegment returns the styled mode label (e.g., "[watching]" or "[idle]").
// When paused it returns a prominent "PAUSED" indicator.
func (sb StatusBarModel) modeSegment() string {
	if sb.paused {
		pausedStyle := lipgloss.NewStyle().
			Bold(true).
			Background(ColorWarning).
			Foreground(lipgloss.Color("#000000")).
			Padding(0, 1)
		return pausedStyle.Render("PAUSED")
	}

	label := sb.mode
	if label == "" {
		label = "idle"
	}
	return sb.theme.StatusKey.Render("[" + label + "]")
}

// phaseSegment returns the styled pipeline step label.
// Returns "Step --" when no step information is available.
func (sb StatusBarModel) phaseSegment() string {
	phase := sb.phase
	if phase == "" {
		phase = "--"
	}
	return sb.theme.StatusKey.Render("Step") + " " + sb.theme.StatusValue.Render(phase)
}

// budgetSegment returns the styled daily spend vs. limit.
// Returns "Budget --" when no budget snapshot has been received yet.
func (sb StatusBarModel) budgetSegment() string {
	if !sb.budgetKnown {
		return sb.theme.StatusKey.Render("Budget") + " " + sb.theme.StatusValue.Render("--")
	}
	value := fmt.Sprintf("$%.2f/$%.2f", sb.dailyUSD, sb.dailyLimitUSD)
	style := sb.theme.StatusValue
	if sb.dailyLimitUSD > 0 && sb.dailyUSD >= sb.dailyLimitUSD {
		style = sb.theme.StatusFailed
	} else if sb.dailyLimitUSD > 0 && sb.dailyUSD/sb.dailyLimitUSD >= 0.8 {
		style = sb.theme.StatusWaiting
	}
	return sb.theme.StatusKey.Render("Budget") + " " + style.Render(value)
}

// queueSegment returns the styled queue depth, including the DLQ depth when
// non-zero.
func (sb StatusBarModel) queueSegment() string {
	if !sb.queueKnown {
		return sb.theme.StatusKey.Render("Queue") + " " + sb.theme.StatusValue.Render("--")
	}
	value := fmt.Sprintf("%d", sb.queueDepth)
	if sb.queueDLQ > 0 {
		value = fmt.Sprintf("%d (dlq %d)", sb.queueDepth, sb.queueDLQ)
	}
	return sb.theme.StatusKey.Render("Queue") + " " + sb.theme.StatusValue.Render(value)
}

// timerSegment returns the styled uptime in HH:MM:SS format.
// When paused, the elapsed time is frozen at its last known value.
func (sb StatusBarModel) timerSegment() string {
	return sb.theme.StatusKey.Render("Up") + " " +
		sb.theme.StatusValue.Render(formatElapsed(sb.elapsed))
}

// formatElapsed converts a duration to "HH:MM:SS" format.
// Negative durations are treated as zero.
func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int(d.Hours())
	mins := int(d.Minutes()) % 60
	secs := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, mins, secs)
}
