package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/corvid-review/corvid/internal/logging"
	"github.com/corvid-review/corvid/internal/workflow"
)

// FocusPanel identifies which panel currently has keyboard focus.
type FocusPanel int

const (
	// FocusSidebar indicates the sidebar panel has focus.
	FocusSidebar FocusPanel = iota
	// FocusActivityPanel indicates the activity panel has focus.
	FocusActivityPanel
	// FocusEventLog indicates the event log panel has focus.
	FocusEventLog
)

// AppConfig holds configuration for the dashboard TUI application. All
// channels are read-only from the App's perspective; the service process
// feeds them from the workflow engine, job runtime, and budget enforcer.
type AppConfig struct {
	// Version is the corvid semantic version string (e.g. "1.0.0").
	Version string
	// ServiceName identifies the running service instance, shown in the title bar.
	ServiceName string

	// Ctx is the cancellation context for backend operations. When nil,
	// a background context is used.
	Ctx context.Context
	// Cancel cancels the Ctx context. Called on graceful shutdown.
	Cancel context.CancelFunc

	// WorkflowEvents is the channel on which the workflow engine broadcasts
	// WorkflowEvent values for every in-flight review. May be nil in
	// read-only preview mode.
	WorkflowEvents <-chan workflow.WorkflowEvent
	// WorkerEvents is the channel on which job-queue worker lifecycle
	// transitions are sent.
	WorkerEvents <-chan WorkerStatusMsg
	// QueueEvents is the channel on which MessageBroker backlog snapshots
	// are sent.
	QueueEvents <-chan QueueStatusMsg
	// BudgetEvents is the channel on which budget spend snapshots are sent.
	BudgetEvents <-chan BudgetStatusMsg
	// ReviewEvents is the channel on which completed-review summaries are
	// sent, feeding the "recent reviews" activity feed.
	ReviewEvents <-chan ReviewCompletedMsg
	// RateLimitEvents is the channel on which model-provider rate-limit
	// events are sent.
	RateLimitEvents <-chan RateLimitMsg
}

// App is the top-level Bubble Tea model for the Corvid operations dashboard.
// It implements tea.Model (Init, Update, View) and composes all TUI
// sub-models: sidebar, activity panel, event log, status bar, and help
// overlay.
type App struct {
	config   AppConfig
	width    int
	height   int
	focus    FocusPanel
	ready    bool // true after first WindowSizeMsg
	quitting bool

	// Keyboard navigation
	keyMap      KeyMap
	helpOverlay HelpOverlay

	// Layout manager: computes panel dimensions on resize.
	layout Layout

	// Sub-models
	sidebar       SidebarModel
	activityPanel ActivityPanelModel
	eventLog      EventLogModel
	statusBar     StatusBarModel
	theme         Theme

	// Backend integration
	bridge          EventBridge
	ctx             context.Context
	cancel          context.CancelFunc
	workflowEvents  <-chan workflow.WorkflowEvent
	workerEvents    <-chan WorkerStatusMsg
	queueEvents     <-chan QueueStatusMsg
	budgetEvents    <-chan BudgetStatusMsg
	reviewEvents    <-chan ReviewCompletedMsg
	rateLimitEvents <-chan RateLimitMsg
}

// NewApp constructs an App with sensible defaults:
// focus is on the sidebar, ready and quitting are false.
// All sub-models are initialised with the default theme. The sidebar
// receives initial focus to match the default FocusSidebar state.
// If cfg carries event channels, the App wires them through an EventBridge
// so that backend events are forwarded as TUI messages.
func NewApp(cfg AppConfig) App {
	km := DefaultKeyMap()
	theme := DefaultTheme()

	sidebar := NewSidebarModel(theme)
	sidebar.SetFocused(true)

	ctx := cfg.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	return App{
		config:          cfg,
		focus:           FocusSidebar,
		ready:           false,
		quitting:        false,
		keyMap:          km,
		helpOverlay:     NewHelpOverlay(theme, km),
		layout:          NewLayout(),
		sidebar:         sidebar,
		activityPanel:   NewActivityPanelModel(theme),
		eventLog:        NewEventLogModel(theme),
		statusBar:       NewStatusBarModel(theme),
		theme:           theme,
		bridge:          NewEventBridge(),
		ctx:             ctx,
		cancel:          cfg.Cancel,
		workflowEvents:  cfg.WorkflowEvents,
		workerEvents:    cfg.WorkerEvents,
		queueEvents:     cfg.QueueEvents,
		budgetEvents:    cfg.BudgetEvents,
		reviewEvents:    cfg.ReviewEvents,
		rateLimitEvents: cfg.RateLimitEvents,
	}
}

// Init returns a batch of commands that start draining backend event
// channels via the EventBridge, plus a periodic tick for timers. Each bridge
// command reads a single event from its channel and converts it into a TUI
// message; the Update handler re-invokes the bridge command to keep
// draining. Channels left nil in AppConfig are skipped.
func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{TickCmd(tickInterval)}
	if a.workflowEvents != nil {
		cmds = append(cmds, a.bridge.WorkflowEventCmd(a.ctx, a.workflowEvents))
	}
	if a.workerEvents != nil {
		cmds = append(cmds, a.bridge.WorkerStatusCmd(a.ctx, a.workerEvents))
	}
	if a.queueEvents != nil {
		cmds = append(cmds, a.bridge.QueueStatusCmd(a.ctx, a.queueEvents))
	}
	if a.budgetEvents != nil {
		cmds = append(cmds, a.bridge.BudgetStatusCmd(a.ctx, a.budgetEvents))
	}
	if a.reviewEvents != nil {
		cmds = append(cmds, a.bridge.ReviewCompletedCmd(a.ctx, a.reviewEvents))
	}
	if a.rateLimitEvents != nil {
		cmds = append(cmds, a.bridge.RateLimitCmd(a.ctx, a.rateLimitEvents))
	}
	return tea.Batch(cmds...)
}

// tickInterval is the cadence of the uptime / rate-limit countdown timer.
const tickInterval = 1e9 // 1 second, expressed in nanoseconds to avoid importing time here

// Update dispatches incoming messages and returns the updated model plus any
// follow-up command. It handles window resizing, the help overlay, keyboard
// bindings, and all sub-model message routing.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		return a.handleWindowSize(m)

	case tea.KeyMsg:
		return a.handleKey(m)

	case FocusChangedMsg:
		a.focus = m.Panel
		var sCmd, apCmd, elCmd tea.Cmd
		a.sidebar, sCmd = a.sidebar.Update(m)
		a.activityPanel, apCmd = a.activityPanel.Update(m)
		a.eventLog, elCmd = a.eventLog.Update(m)
		return a, tea.Batch(sCmd, apCmd, elCmd)

	case WorkflowEventMsg:
		var sCmd, elCmd tea.Cmd
		a.sidebar, sCmd = a.sidebar.Update(m)
		a.eventLog, elCmd = a.eventLog.Update(m)
		a.statusBar = a.statusBar.Update(m)
		cmds := []tea.Cmd{sCmd, elCmd}
		if a.workflowEvents != nil {
			cmds = append(cmds, a.bridge.WorkflowEventCmd(a.ctx, a.workflowEvents))
		}
		return a, tea.Batch(cmds...)

	case WorkerStatusMsg:
		var sCmd, elCmd tea.Cmd
		a.sidebar, sCmd = a.sidebar.Update(m)
		a.eventLog, elCmd = a.eventLog.Update(m)
		cmds := []tea.Cmd{sCmd, elCmd}
		if a.workerEvents != nil {
			cmds = append(cmds, a.bridge.WorkerStatusCmd(a.ctx, a.workerEvents))
		}
		return a, tea.Batch(cmds...)

	case QueueStatusMsg:
		var sCmd tea.Cmd
		a.sidebar, sCmd = a.sidebar.Update(m)
		a.statusBar = a.statusBar.Update(m)
		cmds := []tea.Cmd{sCmd}
		if a.queueEvents != nil {
			cmds = append(cmds, a.bridge.QueueStatusCmd(a.ctx, a.queueEvents))
		}
		return a, tea.Batch(cmds...)

	case BudgetStatusMsg:
		a.statusBar = a.statusBar.Update(m)
		var cmds []tea.Cmd
		if a.budgetEvents != nil {
			cmds = append(cmds, a.bridge.BudgetStatusCmd(a.ctx, a.budgetEvents))
		}
		return a, tea.Batch(cmds...)

	case ReviewCompletedMsg:
		var apCmd, elCmd tea.Cmd
		a.activityPanel, apCmd = a.activityPanel.Update(m)
		a.eventLog, elCmd = a.eventLog.Update(m)
		cmds := []tea.Cmd{apCmd, elCmd}
		if a.reviewEvents != nil {
			cmds = append(cmds, a.bridge.ReviewCompletedCmd(a.ctx, a.reviewEvents))
		}
		return a, tea.Batch(cmds...)

	case RateLimitMsg:
		var sCmd, elCmd tea.Cmd
		a.sidebar, sCmd = a.sidebar.Update(m)
		a.eventLog, elCmd = a.eventLog.Update(m)
		cmds := []tea.Cmd{sCmd, elCmd}
		if a.rateLimitEvents != nil {
			cmds = append(cmds, a.bridge.RateLimitCmd(a.ctx, a.rateLimitEvents))
		}
		return a, tea.Batch(cmds...)

	case ErrorMsg:
		var cmd tea.Cmd
		a.eventLog, cmd = a.eventLog.Update(m)
		return a, cmd

	case PauseRequestMsg:
		a.statusBar = a.statusBar.Update(m)
		a.eventLog.AddEntry(EventInfo, "Auto-refresh toggled")
		return a, nil

	case SkipRequestMsg:
		a.eventLog.AddEntry(EventInfo, "Manual refresh requested")
		return a, nil

	case TickMsg:
		var sCmd, elCmd tea.Cmd
		a.sidebar, sCmd = a.sidebar.Update(m)
		a.eventLog, elCmd = a.eventLog.Update(m)
		a.statusBar = a.statusBar.Update(m)
		return a, tea.Batch(sCmd, elCmd, TickCmd(tickInterval))
	}

	return a, nil
}

// handleWindowSize processes tea.WindowSizeMsg, resizes the layout and all
// sub-models, and sets the ready flag.
func (a App) handleWindowSize(m tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	a.width = m.Width
	a.height = m.Height
	a.ready = true

	a.helpOverlay.SetDimensions(m.Width, m.Height)
	a.layout.Resize(m.Width, m.Height)

	// Apply computed dimensions to each sub-model.
	a.sidebar.SetDimensions(a.layout.Sidebar.Width, a.layout.Sidebar.Height)
	a.activityPanel.SetDimensions(a.layout.ActivityPanel.Width, a.layout.ActivityPanel.Height)
	a.eventLog.SetDimensions(a.layout.EventLog.Width, a.layout.EventLog.Height)
	a.statusBar.SetWidth(m.Width)

	return a, nil
}

// handleKey processes tea.KeyMsg, dispatching to the help overlay, global key
// bindings, and finally the focused sub-model's key handler.
func (a App) handleKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	// When the help overlay is visible, delegate all key events to it.
	if a.helpOverlay.IsVisible() {
		var cmd tea.Cmd
		a.helpOverlay, cmd = a.helpOverlay.Update(m)
		return a, cmd
	}

	switch {
	case key.Matches(m, a.keyMap.Help):
		a.helpOverlay.Toggle()
		return a, nil

	case key.Matches(m, a.keyMap.Quit):
		a.quitting = true
		// Cancel the backend context so bridge goroutines receive a
		// cancellation signal before the TUI exits.
		if a.cancel != nil {
			a.cancel()
		}
		return a, tea.Quit

	case key.Matches(m, a.keyMap.FocusNext):
		a.focus = NextFocus(a.focus)
		a.sidebar.SetFocused(a.focus == FocusSidebar)
		a.activityPanel.SetFocused(a.focus == FocusActivityPanel)
		a.eventLog.SetFocused(a.focus == FocusEventLog)
		return a, func() tea.Msg { return FocusChangedMsg{Panel: a.focus} }

	case key.Matches(m, a.keyMap.FocusPrev):
		a.focus = PrevFocus(a.focus)
		a.sidebar.SetFocused(a.focus == FocusSidebar)
		a.activityPanel.SetFocused(a.focus == FocusActivityPanel)
		a.eventLog.SetFocused(a.focus == FocusEventLog)
		return a, func() tea.Msg { return FocusChangedMsg{Panel: a.focus} }

	case key.Matches(m, a.keyMap.Pause):
		return a, func() tea.Msg { return PauseRequestMsg{} }

	case key.Matches(m, a.keyMap.Skip):
		return a, func() tea.Msg { return SkipRequestMsg{} }

	case key.Matches(m, a.keyMap.ToggleLog):
		var cmd tea.Cmd
		a.eventLog, cmd = a.eventLog.Update(m)
		return a, cmd

	// Forward scrolling / navigation keys to the focused panel.
	case key.Matches(m, a.keyMap.Up),
		key.Matches(m, a.keyMap.Down),
		key.Matches(m, a.keyMap.PageUp),
		key.Matches(m, a.keyMap.PageDown),
		key.Matches(m, a.keyMap.Home),
		key.Matches(m, a.keyMap.End):
		return a.forwardKeyToFocused(m)
	}

	return a, nil
}

// forwardKeyToFocused routes a keyboard event to whichever panel currently
// holds focus. Unmatched focus values are silently ignored.
func (a App) forwardKeyToFocused(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.focus {
	case FocusSidebar:
		a.sidebar, cmd = a.sidebar.Update(m)
	case FocusActivityPanel:
		a.activityPanel, cmd = a.activityPanel.Update(m)
	case FocusEventLog:
		a.eventLog, cmd = a.eventLog.Update(m)
	}
	return a, cmd
}

// View renders the complete UI as a string.
//
// Rendering logic:
//   - If quitting, return an empty string to clear the screen on exit.
//   - If not yet ready (no WindowSizeMsg received), show an initializing message.
//   - If the terminal is too small, show a resize warning via the layout.
//   - If the help overlay is visible, render it on top of the full view.
//   - Otherwise, render the full composited layout.
func (a App) View() string {
	if a.quitting {
		return ""
	}

	if !a.ready {
		return "Initializing Corvid dashboard..."
	}

	if a.width < MinTerminalWidth || a.height < MinTerminalHeight {
		return a.layout.RenderTooSmall(a.theme)
	}

	if a.helpOverlay.IsVisible() {
		return a.helpOverlay.View()
	}

	return a.fullView()
}

// fullView renders the complete TUI layout using the layout manager and all
// integrated sub-model views.
func (a App) fullView() string {
	titleBar := a.renderTitleBar()
	sidebar := a.sidebar.View()
	activityPanel := a.activityPanel.View()
	eventLog := a.eventLog.View()
	statusBar := a.statusBar.View()

	return a.layout.Render(a.theme, titleBar, sidebar, activityPanel, eventLog, statusBar)
}

// renderTitleBar builds a full-width title bar showing the Corvid version and
// the service name (when available).
func (a App) renderTitleBar() string {
	title := fmt.Sprintf("Corvid v%s — Review Dashboard", a.config.Version)
	if a.config.ServiceName != "" {
		title = fmt.Sprintf("%s  |  %s", title, a.config.ServiceName)
	}

	return lipgloss.NewStyle().
		Width(a.width).
		Bold(true).
		Background(lipgloss.Color("62")). // purple
		Foreground(lipgloss.Color("15")). // white
		Padding(0, 1).
		Render(title)
}

// RunTUI creates a tea.Program configured for full-screen rendering with
// cell-motion mouse support, runs it, and returns any error encountered.
//
// Use tea.WithMouseCellMotion (not WithMouseAllMotion) so that the user can
// still select and copy text from the terminal.
func RunTUI(cfg AppConfig) error {
	logger := logging.New("tui")
	logger.Info("starting dashboard", "version", cfg.Version, "service", cfg.ServiceName)

	p := tea.NewProgram(
		NewApp(cfg),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	_, err := p.Run()
	if err != nil {
		return fmt.Errorf("running dashboard: %w", err)
	}

	return nil
}
