package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// MaxActivityEntries is the maximum number of recent-review entries retained
// for display in the activity panel.
const MaxActivityEntries = 100

// ---------------------------------------------------------------------------
// ActivityPanelModel
// ---------------------------------------------------------------------------

// ActivityPanelModel is the Bubble Tea sub-model for the upper-right activity
// panel. It renders the tail of recently completed reviews, feeding the
// dashboard's "recent reviews" requirement alongside the sidebar's worker and
// queue sections.
//
// ActivityPanelModel follows Bubble Tea's Elm architecture: Update returns a
// new value, and View is a pure function of the model state.
type ActivityPanelModel struct {
	theme   Theme
	width   int
	height  int
	focused bool

	reviews []ReviewCompletedMsg
}

// NewActivityPanelModel creates an ActivityPanelModel with the given theme
// and an empty review history.
func NewActivityPanelModel(theme Theme) ActivityPanelModel {
	return ActivityPanelModel{theme: theme}
}

// SetDimensions updates the panel width and height. This should be called
// whenever the parent App processes a tea.WindowSizeMsg.
func (m *ActivityPanelModel) SetDimensions(width, height int) {
	m.width = width
	m.height = height
}

// SetFocused sets whether the activity panel currently holds keyboard focus.
func (m *ActivityPanelModel) SetFocused(focused bool) {
	m.focused = focused
}

// Update processes incoming tea.Msg values and returns the updated model.
//
// Handled messages:
//   - ReviewCompletedMsg — prepends a new entry to the recent-reviews feed
//   - FocusChangedMsg    — updates the focused flag
func (m ActivityPanelModel) Update(msg tea.Msg) (ActivityPanelModel, tea.Cmd) {
	switch msg := msg.(type) {
	case ReviewCompletedMsg:
		reviews := append([]ReviewCompletedMsg{msg}, m.reviews...)
		if len(reviews) > MaxActivityEntries {
			reviews = reviews[:MaxActivityEntries]
		}
		m.reviews = reviews

	case FocusChangedMsg:
		m.focused = msg.Panel == FocusActivityPanel
	}

	return m, nil
}

// View renders the activity panel as a string sized to the configured width
// and height. Each review is rendered on a single line: "HH:MM:SS  repo#pr —
// N suggestions, $cost".
func (m ActivityPanelModel) View() string {
	if m.width <= 0 || m.height <= 0 {
		return ""
	}

	var sb strings.Builder

	header := m.theme.ActivityHeader.Render("Recent Reviews")
	sb.WriteString(header)
	sb.WriteString("\n")

	if len(m.reviews) == 0 {
		sb.WriteString(m.theme.ActivityOutput.Render("No reviews published yet"))
	} else {
		maxRows := m.height - 1
		if maxRows < 0 {
			maxRows = 0
		}
		n := len(m.reviews)
		if n > maxRows {
			n = maxRows
		}
		lines := make([]string, 0, n)
		for i := 0; i < n; i++ {
			r := m.reviews[i]
			line := fmt.Sprintf("%s  %s#%d — %d suggestions, $%.2f",
				r.Timestamp.Format("15:04:05"), r.Repo, r.PRNumber, r.SuggestionCount, r.CostUSD)
			lines = append(lines, m.theme.ActivityOutput.Render(line))
		}
		sb.WriteString(strings.Join(lines, "\n"))
	}

	content := sb.String()

	containerStyle := m.theme.ActivityContainer
	if m.focused {
		containerStyle = containerStyle.BorderForeground(ColorPrimary)
	}

	return containerStyle.
		Width(m.width).
		Height(m.height).
		Render(content)
}
