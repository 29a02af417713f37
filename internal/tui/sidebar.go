package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ---------------------------------------------------------------------------
// WorkflowStatus
// ---------------------------------------------------------------------------

// WorkflowStatus represents the lifecycle state of a review workflow for
// display purposes in the sidebar.
type WorkflowStatus int

const (
	// WorkflowIdle means the workflow is known but not currently active.
	WorkflowIdle WorkflowStatus = iota
	// WorkflowRunning means the workflow is actively executing steps.
	WorkflowRunning
	// WorkflowPaused means the workflow has been suspended mid-execution.
	WorkflowPaused
	// WorkflowCompleted means the workflow finished all steps successfully.
	WorkflowCompleted
	// WorkflowFailed means the workflow encountered a terminal error.
	WorkflowFailed
)

// workflowStatusStrings maps each WorkflowStatus constant to its string label.
var workflowStatusStrings = []string{
	"idle",
	"running",
	"paused",
	"completed",
	"failed",
}

// String returns a human-readable label for the WorkflowStatus.
// Returns "unknown" for values outside the defined range.
func (s WorkflowStatus) String() string {
	if int(s) < 0 || int(s) >= len(workflowStatusStrings) {
		return "unknown"
	}
	return workflowStatusStrings[s]
}

// workflowStatusFromEvent maps a WorkflowEventMsg.Event string to a
// WorkflowStatus. Unrecognised event strings map to WorkflowRunning so that
// any observed step transition keeps the workflow visible as active.
func workflowStatusFromEvent(event string) WorkflowStatus {
	switch strings.ToLower(event) {
	case "idle", "stopped", "not_started":
		return WorkflowIdle
	case "paused", "waiting", "rate_limited":
		return WorkflowPaused
	case "completed", "done", "success":
		return WorkflowCompleted
	case "failed", "error":
		return WorkflowFailed
	default:
		// Any step transition that is not one of the terminal states is
		// treated as running.
		return WorkflowRunning
	}
}

// ---------------------------------------------------------------------------
// WorkflowEntry
// ---------------------------------------------------------------------------

// WorkflowEntry holds the display data for a single review workflow entry
// rendered in the sidebar workflow list. One entry corresponds to one
// in-flight PR review run.
type WorkflowEntry struct {
	// ID is the unique identifier used for deduplication (the review's WorkflowID).
	ID string
	// Name is the human-readable label, usually "repo#pr".
	Name string
	// Status is the current lifecycle state.
	Status WorkflowStatus
	// StartedAt records when the workflow was first observed.
	StartedAt time.Time
	// Detail is optional context such as the current pipeline step.
	Detail string
}

// ---------------------------------------------------------------------------
// QueueSection
// ---------------------------------------------------------------------------

// QueueSection renders the MessageBroker's backlog snapshot in the sidebar.
// It is a value type; all mutations return a new copy, consistent with the
// Bubble Tea Elm-architecture pattern used throughout the TUI package.
type QueueSection struct {
	theme Theme

	depth    int
	inFlight int
	dlqDepth int
	known    bool
}

// NewQueueSection creates a QueueSection with the given theme and
// zero-initialised counters.
func NewQueueSection(theme Theme) QueueSection {
	return QueueSection{theme: theme}
}

// Update processes a QueueStatusMsg and returns the updated section.
func (qs QueueSection) Update(msg tea.Msg) QueueSection {
	if m, ok := msg.(QueueStatusMsg); ok {
		qs.depth = m.Depth
		qs.inFlight = m.InFlight
		qs.dlqDepth = m.DLQDepth
		qs.known = true
	}
	return qs
}

// View renders the queue section as a string constrained to width columns.
func (qs QueueSection) View(width int) string {
	var sb strings.Builder

	sb.WriteString(qs.theme.SidebarTitle.Render("Queue"))
	sb.WriteString("\n")

	if !qs.known {
		sb.WriteString(qs.theme.SidebarItem.Render("No data"))
		sb.WriteString("\n")
		return sb.String()
	}

	sb.WriteString(qs.theme.SidebarItem.Render(fmt.Sprintf("depth:     %d", qs.depth)))
	sb.WriteString("\n")
	sb.WriteString(qs.theme.SidebarItem.Render(fmt.Sprintf("in-flight: %d", qs.inFlight)))
	sb.WriteString("\n")

	dlqLine := fmt.Sprintf("dlq:       %d", qs.dlqDepth)
	if qs.dlqDepth > 0 {
		sb.WriteString(qs.theme.StatusWaiting.Render(dlqLine))
	} else {
		sb.WriteString(qs.theme.SidebarItem.Render(dlqLine))
	}
	sb.WriteString("\n")

	return sb.String()
}

// ---------------------------------------------------------------------------
// WorkerEntry
// ---------------------------------------------------------------------------

// WorkerEntry holds the display data for a single job-queue worker rendered
// in the sidebar's worker health list.
type WorkerEntry struct {
	ID     string
	Status WorkerStatus
	Review string
}

// ---------------------------------------------------------------------------
// ProviderRateLimit
// ---------------------------------------------------------------------------

// ProviderRateLimit tracks the rate-limit state for a single model provider.
// It is a value type used inside RateLimitSection.
type ProviderRateLimit struct {
	// Provider is the model provider name (e.g. "anthropic").
	Provider string
	// ResetAt is the absolute time at which the rate limit is expected to clear.
	ResetAt time.Time
	// Remaining is the time left until the rate limit clears, recalculated on
	// each TickMsg using time.Until(ResetAt).
	Remaining time.Duration
	// Active is true while the countdown is running (Remaining > 0).
	Active bool
}

// ---------------------------------------------------------------------------
// RateLimitSection
// ---------------------------------------------------------------------------

// RateLimitSection renders the rate-limit status display in the sidebar.
// It tracks per-provider state and drives a per-second countdown timer via
// TickCmd. It is a value type consistent with Bubble Tea's Elm architecture.
type RateLimitSection struct {
	theme Theme
	// providers maps provider name → rate-limit state.
	providers map[string]*ProviderRateLimit
	// order holds provider names in stable insertion order for rendering.
	order []string
}

// NewRateLimitSection creates a RateLimitSection initialised with the given
// theme and an empty provider map.
func NewRateLimitSection(theme Theme) RateLimitSection {
	return RateLimitSection{
		theme:     theme,
		providers: make(map[string]*ProviderRateLimit),
	}
}

// Update handles RateLimitMsg and TickMsg messages and returns the updated
// section together with a follow-up command.
//
//   - RateLimitMsg: registers or updates the named provider's reset time, marks
//     it Active, and returns TickCmd(time.Second) to start the countdown.
//   - TickMsg: recalculates Remaining = time.Until(ResetAt) for every provider
//     and clears Active when Remaining has reached zero. Returns TickCmd if any
//     provider is still active; nil otherwise.
func (rl RateLimitSection) Update(msg tea.Msg) (RateLimitSection, tea.Cmd) {
	switch msg := msg.(type) {
	case RateLimitMsg:
		rl = rl.applyRateLimitMsg(msg)
		return rl, TickCmd(time.Second)

	case TickMsg:
		_ = msg // tick time not needed; Remaining is recalculated via time.Until(ResetAt)
		rl = rl.tick()
		if rl.HasActiveLimit() {
			return rl, TickCmd(time.Second)
		}
		return rl, nil
	}

	return rl, nil
}

// applyRateLimitMsg updates (or inserts) the provider entry from a RateLimitMsg.
// It copies the providers map and order slice to honour value-receiver semantics.
func (rl RateLimitSection) applyRateLimitMsg(msg RateLimitMsg) RateLimitSection {
	key := msg.Provider

	// Determine ResetAt: prefer the explicit ResetAt if non-zero; otherwise
	// derive from ResetAfter relative to the message timestamp.
	resetAt := msg.ResetAt
	if resetAt.IsZero() {
		ts := msg.Timestamp
		if ts.IsZero() {
			ts = time.Now()
		}
		resetAt = ts.Add(msg.ResetAfter)
	}

	remaining := time.Until(resetAt)
	if remaining < 0 {
		remaining = 0
	}

	// Copy providers map for immutability.
	newProviders := make(map[string]*ProviderRateLimit, len(rl.providers))
	for k, v := range rl.providers {
		cp := *v
		newProviders[k] = &cp
	}

	newOrder := rl.order
	if _, exists := newProviders[key]; !exists {
		// Append to order only for new providers; copy the slice first.
		newOrder = make([]string, len(rl.order)+1)
		copy(newOrder, rl.order)
		newOrder[len(rl.order)] = key
	}

	newProviders[key] = &ProviderRateLimit{
		Provider:  msg.Provider,
		ResetAt:   resetAt,
		Remaining: remaining,
		Active:    true,
	}

	rl.providers = newProviders
	rl.order = newOrder
	return rl
}

// tick recalculates Remaining for every provider and deactivates expired ones.
func (rl RateLimitSection) tick() RateLimitSection {
	if len(rl.providers) == 0 {
		return rl
	}

	newProviders := make(map[string]*ProviderRateLimit, len(rl.providers))
	for k, v := range rl.providers {
		cp := *v
		if cp.Active {
			cp.Remaining = time.Until(cp.ResetAt)
			if cp.Remaining <= 0 {
				cp.Remaining = 0
				cp.Active = false
			}
		}
		newProviders[k] = &cp
	}

	rl.providers = newProviders
	return rl
}

// HasActiveLimit returns true when at least one provider currently has Active == true.
func (rl RateLimitSection) HasActiveLimit() bool {
	for _, prl := range rl.providers {
		if prl.Active {
			return true
		}
	}
	return false
}

// View renders the "Rate Limits" section header followed by one line per known
// provider. Lines are truncated to fit within width columns.
//
// Format per provider:
//   - No active limit: "{name}: OK"
//   - Active limit:    "{name}: WAIT M:SS"
//
// When no providers are known, a placeholder "No limits" line is shown instead.
func (rl RateLimitSection) View(width int) string {
	var sb strings.Builder

	sb.WriteString(rl.theme.SidebarTitle.Render("Rate Limits"))
	sb.WriteString("\n")

	if len(rl.order) == 0 {
		sb.WriteString(rl.theme.SidebarItem.Render("No limits"))
		sb.WriteString("\n")
		return sb.String()
	}

	for _, key := range rl.order {
		prl, ok := rl.providers[key]
		if !ok {
			continue
		}

		name := prl.Provider
		if name == "" {
			name = key
		}

		var line string
		if prl.Active {
			countdown := formatCountdown(prl.Remaining)
			suffix := ": " + rl.theme.StatusWaiting.Render("WAIT "+countdown)
			if width > 0 {
				// Reserve width for the suffix before truncating the name.
				suffixWidth := lipgloss.Width(": WAIT " + countdown)
				nameAllowed := width - suffixWidth
				if nameAllowed < 1 {
					nameAllowed = 1
				}
				line = truncateName(name, nameAllowed) + suffix
			} else {
				line = name + suffix
			}
		} else {
			suffix := ": " + rl.theme.StatusCompleted.Render("OK")
			if width > 0 {
				suffixWidth := lipgloss.Width(": OK")
				nameAllowed := width - suffixWidth
				if nameAllowed < 1 {
					nameAllowed = 1
				}
				line = truncateName(name, nameAllowed) + suffix
			} else {
				line = name + suffix
			}
		}

		sb.WriteString(rl.theme.SidebarItem.Render(line))
		sb.WriteString("\n")
	}

	return sb.String()
}

// formatCountdown formats a duration as "M:SS" (under 1 hour) or "H:MM:SS"
// (1 hour or more). Negative durations return "0:00".
func formatCountdown(d time.Duration) string {
	if d <= 0 {
		return "0:00"
	}

	totalSec := int(d.Seconds())
	h := totalSec / 3600
	m := (totalSec % 3600) / 60
	s := totalSec % 60

	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// ---------------------------------------------------------------------------
// SidebarModel
// ---------------------------------------------------------------------------

// SidebarModel is the Bubble Tea sub-model for the sidebar panel.
// It maintains the review workflow list, the worker health list, the queue
// depth section, and the rate-limit status section.
//
// Update returns (SidebarModel, tea.Cmd) — not (tea.Model, tea.Cmd) — so the
// parent App must store the returned value in its own sidebar field.
type SidebarModel struct {
	theme  Theme
	width  int
	height int

	// focused indicates whether the sidebar currently holds keyboard focus.
	focused bool

	// workflows is the ordered list of tracked review workflows.
	workflows []WorkflowEntry
	// workflowIndex maps WorkflowEntry.ID → slice index for O(1) dedup.
	workflowIndex map[string]int
	// selectedIdx is the index of the currently highlighted workflow.
	selectedIdx int
	// scrollOffset is the first visible row index inside the workflow list.
	scrollOffset int

	// workers is the ordered list of tracked job-queue workers.
	workers []WorkerEntry
	// workerIndex maps WorkerEntry.ID → slice index for O(1) dedup.
	workerIndex map[string]int

	// queue tracks the broker's depth / in-flight / DLQ snapshot.
	queue QueueSection

	// rateLimits holds the per-provider rate-limit countdown display.
	rateLimits RateLimitSection
}

// NewSidebarModel creates a SidebarModel with the given theme and empty
// workflow and worker lists. Dimensions default to zero until SetDimensions
// is called.
func NewSidebarModel(theme Theme) SidebarModel {
	return SidebarModel{
		theme:         theme,
		workflowIndex: make(map[string]int),
		workerIndex:   make(map[string]int),
		queue:         NewQueueSection(theme),
		rateLimits:    NewRateLimitSection(theme),
	}
}

// SetDimensions updates the sidebar panel size. This should be called
// whenever the parent App processes a tea.WindowSizeMsg.
func (m *SidebarModel) SetDimensions(width, height int) {
	m.width = width
	m.height = height
}

// SetFocused sets whether the sidebar has keyboard focus. When focused is
// false, navigation key events are ignored.
func (m *SidebarModel) SetFocused(focused bool) {
	m.focused = focused
}

// SelectedWorkflow returns the Name of the currently selected workflow, or an
// empty string when the workflow list is empty.
func (m SidebarModel) SelectedWorkflow() string {
	if len(m.workflows) == 0 {
		return ""
	}
	if m.selectedIdx < 0 || m.selectedIdx >= len(m.workflows) {
		return ""
	}
	return m.workflows[m.selectedIdx].Name
}

// ---------------------------------------------------------------------------
// Update
// ---------------------------------------------------------------------------

// Update processes incoming tea.Msg values and returns the updated model and
// any follow-up command.
//
// Handled messages:
//   - WorkflowEventMsg  — adds or updates a review workflow in the list
//   - WorkerStatusMsg   — adds or updates a worker in the worker list
//   - QueueStatusMsg    — updates the queue depth / in-flight / DLQ counters
//   - RateLimitMsg      — registers or updates a provider rate-limit countdown
//   - TickMsg           — advances the rate-limit countdown timers
//   - FocusChangedMsg   — updates the focused flag
//   - tea.KeyMsg        — j/k/up/down navigation when focused
func (m SidebarModel) Update(msg tea.Msg) (SidebarModel, tea.Cmd) {
	switch msg := msg.(type) {
	case WorkflowEventMsg:
		m = m.handleWorkflowEvent(msg)

	case WorkerStatusMsg:
		m = m.handleWorkerStatus(msg)

	case QueueStatusMsg:
		m.queue = m.queue.Update(msg)

	case RateLimitMsg:
		var cmd tea.Cmd
		m.rateLimits, cmd = m.rateLimits.Update(msg)
		return m, cmd

	case TickMsg:
		var cmd tea.Cmd
		m.rateLimits, cmd = m.rateLimits.Update(msg)
		return m, cmd

	case FocusChangedMsg:
		m.focused = msg.Panel == FocusSidebar

	case tea.KeyMsg:
		if m.focused {
			m = m.handleKeyMsg(msg)
		}
	}

	return m, nil
}

// handleWorkflowEvent adds a new WorkflowEntry or updates the status of an
// existing one. WorkflowID is used as the deduplication key.
func (m SidebarModel) handleWorkflowEvent(msg WorkflowEventMsg) SidebarModel {
	id := msg.WorkflowID

	status := workflowStatusFromEvent(msg.Event)

	if idx, exists := m.workflowIndex[id]; exists {
		// Update in place — create a new slice copy to stay immutable.
		updated := make([]WorkflowEntry, len(m.workflows))
		copy(updated, m.workflows)
		updated[idx].Status = status
		updated[idx].Detail = msg.Step
		m.workflows = updated
	} else {
		// Append a new entry.
		entry := WorkflowEntry{
			ID:        id,
			Name:      id,
			Status:    status,
			StartedAt: msg.Timestamp,
			Detail:    msg.Step,
		}

		// Copy the map to preserve value-receiver immutability.
		newIndex := make(map[string]int, len(m.workflowIndex)+1)
		for k, v := range m.workflowIndex {
			newIndex[k] = v
		}
		newIndex[id] = len(m.workflows)
		m.workflowIndex = newIndex

		m.workflows = append(m.workflows, entry)
	}

	return m
}

// handleWorkerStatus adds a new WorkerEntry or updates an existing one.
// WorkerID is used as the deduplication key.
func (m SidebarModel) handleWorkerStatus(msg WorkerStatusMsg) SidebarModel {
	id := msg.WorkerID

	if idx, exists := m.workerIndex[id]; exists {
		updated := make([]WorkerEntry, len(m.workers))
		copy(updated, m.workers)
		updated[idx].Status = msg.Status
		updated[idx].Review = msg.Review
		m.workers = updated
	} else {
		entry := WorkerEntry{
			ID:     id,
			Status: msg.Status,
			Review: msg.Review,
		}

		newIndex := make(map[string]int, len(m.workerIndex)+1)
		for k, v := range m.workerIndex {
			newIndex[k] = v
		}
		newIndex[id] = len(m.workers)
		m.workerIndex = newIndex

		m.workers = append(m.workers, entry)
	}

	return m
}

// handleKeyMsg processes navigation key events when the sidebar is focused.
func (m SidebarModel) handleKeyMsg(msg tea.KeyMsg) SidebarModel {
	n := len(m.workflows)
	if n == 0 {
		return m
	}

	switch msg.Type {
	case tea.KeyRunes:
		switch string(msg.Runes) {
		case "j":
			m.selectedIdx = clampIdx(m.selectedIdx+1, n)
		case "k":
			m.selectedIdx = clampIdx(m.selectedIdx-1, n)
		}
	case tea.KeyDown:
		m.selectedIdx = clampIdx(m.selectedIdx+1, n)
	case tea.KeyUp:
		m.selectedIdx = clampIdx(m.selectedIdx-1, n)
	default:
	}

	m.scrollOffset = adjustScroll(m.scrollOffset, m.selectedIdx, m.listHeight())
	return m
}

// clampIdx clamps idx to [0, n-1].
func clampIdx(idx, n int) int {
	if idx < 0 {
		return 0
	}
	if idx >= n {
		return n - 1
	}
	return idx
}

// adjustScroll ensures the selected row is visible in the scroll window.
// It returns the updated scroll offset.
func adjustScroll(offset, selected, visible int) int {
	if visible <= 0 {
		return 0
	}
	if selected < offset {
		return selected
	}
	if selected >= offset+visible {
		return selected - visible + 1
	}
	return offset
}

// ---------------------------------------------------------------------------
// View helpers
// ---------------------------------------------------------------------------

// listHeight returns the number of rows available for workflow entries inside
// the sidebar, accounting for the section header and separators.
func (m SidebarModel) listHeight() int {
	const headerRows = 2 // header line + margin-bottom blank line
	h := m.height - headerRows
	if h < 0 {
		return 0
	}
	return h
}

// workflowIndicator returns a styled Unicode symbol for the given
// WorkflowStatus. Symbol mapping:
//
//	WorkflowRunning   → "●"  (theme.StatusRunning)
//	WorkflowIdle      → "○"  (theme.StatusBlocked — muted)
//	WorkflowPaused    → "◌"  (theme.StatusWaiting)
//	WorkflowCompleted → "✓"  (theme.StatusCompleted)
//	WorkflowFailed    → "✗"  (theme.StatusFailed)
func (m SidebarModel) workflowIndicator(status WorkflowStatus) string {
	switch status {
	case WorkflowRunning:
		return m.theme.StatusRunning.Render("●")
	case WorkflowPaused:
		return m.theme.StatusWaiting.Render("◌")
	case WorkflowCompleted:
		return m.theme.StatusCompleted.Render("✓")
	case WorkflowFailed:
		return m.theme.StatusFailed.Render("✗")
	default: // WorkflowIdle and unknown values
		return m.theme.StatusBlocked.Render("○")
	}
}

// truncateName truncates name to fit within maxWidth visible columns.
// If the name is wider it is shortened and an ellipsis "…" (1 column wide) is
// appended. If maxWidth <= 0 an empty string is returned.
func truncateName(name string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	w := lipgloss.Width(name)
	if w <= maxWidth {
		return name
	}
	// Walk runes until we consume maxWidth-1 columns (leave room for "…").
	target := maxWidth - 1
	var sb strings.Builder
	col := 0
	for _, r := range name {
		rw := lipgloss.Width(string(r))
		if col+rw > target {
			break
		}
		sb.WriteRune(r)
		col += rw
	}
	sb.WriteString("…")
	return sb.String()
}

// workflowListView renders the workflow list section (header + entries or
// placeholder). It does not apply the outer container style; that is handled
// by View().
func (m SidebarModel) workflowListView() string {
	var sb strings.Builder

	// Header.
	header := m.theme.SidebarTitle.Render("REVIEWS")
	sb.WriteString(header)
	sb.WriteString("\n")

	if len(m.workflows) == 0 {
		placeholder := m.theme.SidebarItem.Render("No reviews")
		sb.WriteString(placeholder)
		return sb.String()
	}

	// Determine visible slice via scroll window.
	visible := m.listHeight()
	if visible < 1 {
		visible = 1
	}

	start := m.scrollOffset
	end := start + visible
	if end > len(m.workflows) {
		end = len(m.workflows)
	}

	// Available width for the name:
	//   total width
	//   - 1 indicator column
	//   - 1 space between indicator and name
	nameWidth := m.width - 2 // indicator + space
	if nameWidth < 1 {
		nameWidth = 1
	}

	for i := start; i < end; i++ {
		entry := m.workflows[i]
		indicator := m.workflowIndicator(entry.Status)
		name := truncateName(entry.Name, nameWidth)
		line := indicator + " " + name

		if i == m.selectedIdx {
			if m.focused {
				sb.WriteString(m.theme.SidebarActive.Render(line))
			} else {
				sb.WriteString(m.theme.SidebarInactive.Render(line))
			}
		} else {
			sb.WriteString(m.theme.SidebarItem.Render(line))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// workerListView renders the worker health list section.
func (m SidebarModel) workerListView() string {
	var sb strings.Builder

	header := m.theme.SidebarTitle.Render("WORKERS")
	sb.WriteString(header)
	sb.WriteString("\n")

	if len(m.workers) == 0 {
		sb.WriteString(m.theme.SidebarItem.Render("No workers"))
		sb.WriteString("\n")
		return sb.String()
	}

	nameWidth := m.width - 2
	if nameWidth < 1 {
		nameWidth = 1
	}

	for _, w := range m.workers {
		indicator := m.theme.StatusIndicator(w.Status)
		label := w.ID
		if w.Review != "" {
			label = fmt.Sprintf("%s (%s)", w.ID, w.Review)
		}
		line := indicator + " " + truncateName(label, nameWidth)
		sb.WriteString(m.theme.SidebarItem.Render(line))
		sb.WriteString("\n")
	}

	return sb.String()
}

// ---------------------------------------------------------------------------
// View
// ---------------------------------------------------------------------------

// View renders the full sidebar panel as a string sized to the configured
// width and height. Sections are stacked vertically:
//
//  1. Review workflow list
//  2. Worker health list
//  3. Rate limits
//  4. Queue depth
//  5. Padding rows to fill height
func (m SidebarModel) View() string {
	if m.width == 0 && m.height == 0 {
		return ""
	}

	var sb strings.Builder

	// Section 1: review workflow list.
	sb.WriteString(m.workflowListView())
	sb.WriteString("\n")

	// Section 2: worker health.
	sb.WriteString(m.workerListView())
	sb.WriteString("\n")

	// Section 3: rate limits.
	sb.WriteString(m.rateLimits.View(m.width))
	sb.WriteString("\n")

	// Section 4: queue depth.
	sb.WriteString(m.queue.View(m.width))
	sb.WriteString("\n")

	content := sb.String()

	// Count the lines already rendered so we can pad to full height.
	renderedLines := strings.Count(content, "\n")

	// Trim the trailing newline before padding so lipgloss does not add an
	// extra blank line at the top.
	content = strings.TrimRight(content, "\n")

	// Pad remaining rows with blank lines.
	remaining := m.height - renderedLines
	if remaining > 0 {
		content += strings.Repeat("\n", remaining)
	}

	// Apply the outer container style (border + padding) if width > 0.
	// SidebarContainer has BorderRight(true), which adds 1 column. Subtract
	// it from Width() so the total rendered width equals m.width.
	if m.width > 0 {
		innerWidth := m.width - 1 // 1 for the right border character
		if innerWidth < 0 {
			innerWidth = 0
		}
		return m.theme.SidebarContainer.
			Width(innerWidth).
			Render(content)
	}

	return content
}
