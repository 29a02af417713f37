package tui

import (
	"testing"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runesKey(r string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(r)}
}

// ---------------------------------------------------------------------------
// DefaultKeyMap
// ---------------------------------------------------------------------------

func TestDefaultKeyMap_AllBindingsHaveKeysAndHelp(t *testing.T) {
	t.Parallel()

	km := DefaultKeyMap()
	bindings := []struct {
		name    string
		binding key.Binding
	}{
		{"Quit", km.Quit},
		{"Help", km.Help},
		{"Pause", km.Pause},
		{"Skip", km.Skip},
		{"ToggleLog", km.ToggleLog},
		{"FocusNext", km.FocusNext},
		{"FocusPrev", km.FocusPrev},
		{"Up", km.Up},
		{"Down", km.Down},
		{"PageUp", km.PageUp},
		{"PageDown", km.PageDown},
		{"Home", km.Home},
		{"End", km.End},
	}

	for _, b := range bindings {
		b := b
		t.Run(b.name, func(t *testing.T) {
			t.Parallel()
			assert.NotEmpty(t, b.binding.Keys(), "binding must declare at least one key")
			assert.NotEmpty(t, b.binding.Help().Key, "binding must declare help text")
		})
	}
}

func TestDefaultKeyMap_QuitMatches(t *testing.T) {
	t.Parallel()

	km := DefaultKeyMap()
	assert.True(t, key.Matches(runesKey("q"), km.Quit))
	assert.True(t, key.Matches(tea.KeyMsg{Type: tea.KeyCtrlC}, km.Quit))
	assert.False(t, key.Matches(runesKey("x"), km.Quit))
}

func TestDefaultKeyMap_FocusCycleKeys(t *testing.T) {
	t.Parallel()

	km := DefaultKeyMap()
	assert.True(t, key.Matches(tea.KeyMsg{Type: tea.KeyTab}, km.FocusNext))
	assert.True(t, key.Matches(tea.KeyMsg{Type: tea.KeyShiftTab}, km.FocusPrev))
}

func TestDefaultKeyMap_HelpMatchesQuestionMark(t *testing.T) {
	t.Parallel()

	km := DefaultKeyMap()
	assert.True(t, key.Matches(runesKey("?"), km.Help))
}

func TestDefaultKeyMap_ScrollKeys(t *testing.T) {
	t.Parallel()

	km := DefaultKeyMap()
	assert.True(t, key.Matches(tea.KeyMsg{Type: tea.KeyUp}, km.Up))
	assert.True(t, key.Matches(runesKey("k"), km.Up))
	assert.True(t, key.Matches(tea.KeyMsg{Type: tea.KeyDown}, km.Down))
	assert.True(t, key.Matches(runesKey("j"), km.Down))
}

// ---------------------------------------------------------------------------
// Focus cycling
// ---------------------------------------------------------------------------

func TestNextFocus_CyclesForward(t *testing.T) {
	t.Parallel()

	assert.Equal(t, FocusActivityPanel, NextFocus(FocusSidebar))
	assert.Equal(t, FocusEventLog, NextFocus(FocusActivityPanel))
	assert.Equal(t, FocusSidebar, NextFocus(FocusEventLog))
}

func TestPrevFocus_CyclesBackward(t *testing.T) {
	t.Parallel()

	assert.Equal(t, FocusEventLog, PrevFocus(FocusSidebar))
	assert.Equal(t, FocusSidebar, PrevFocus(FocusActivityPanel))
	assert.Equal(t, FocusActivityPanel, PrevFocus(FocusEventLog))
}

func TestFocusCycle_RoundTrips(t *testing.T) {
	t.Parallel()

	for _, p := range []FocusPanel{FocusSidebar, FocusActivityPanel, FocusEventLog} {
		assert.Equal(t, p, PrevFocus(NextFocus(p)))
		assert.Equal(t, p, NextFocus(PrevFocus(p)))
	}
}

// ---------------------------------------------------------------------------
// HelpOverlay
// ---------------------------------------------------------------------------

func newVisibleOverlay() HelpOverlay {
	h := NewHelpOverlay(DefaultTheme(), DefaultKeyMap())
	h.SetDimensions(100, 40)
	h.Toggle()
	return h
}

func TestNewHelpOverlay_StartsHidden(t *testing.T) {
	t.Parallel()

	h := NewHelpOverlay(DefaultTheme(), DefaultKeyMap())
	assert.False(t, h.IsVisible())
	assert.Empty(t, h.View())
}

func TestHelpOverlay_Toggle(t *testing.T) {
	t.Parallel()

	h := NewHelpOverlay(DefaultTheme(), DefaultKeyMap())
	h.Toggle()
	assert.True(t, h.IsVisible())
	h.Toggle()
	assert.False(t, h.IsVisible())
}

func TestHelpOverlay_ViewRequiresDimensions(t *testing.T) {
	t.Parallel()

	h := NewHelpOverlay(DefaultTheme(), DefaultKeyMap())
	h.Toggle()
	assert.Empty(t, h.View(), "overlay must not render before dimensions are known")
}

func TestHelpOverlay_ViewContent(t *testing.T) {
	t.Parallel()

	h := newVisibleOverlay()
	view := h.View()
	require.NotEmpty(t, view)

	assert.Contains(t, view, "Keyboard Shortcuts")
	assert.Contains(t, view, "Navigation")
	assert.Contains(t, view, "Actions")
	assert.Contains(t, view, "Scrolling")
	assert.Contains(t, view, "quit")
	assert.Contains(t, view, "Press ? or Esc to close")
}

func TestHelpOverlay_DismissedByHelpKey(t *testing.T) {
	t.Parallel()

	h := newVisibleOverlay()
	h, _ = h.Update(runesKey("?"))
	assert.False(t, h.IsVisible())
}

func TestHelpOverlay_DismissedByEsc(t *testing.T) {
	t.Parallel()

	h := newVisibleOverlay()
	h, _ = h.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, h.IsVisible())
}

func TestHelpOverlay_OtherKeysKeepItOpen(t *testing.T) {
	t.Parallel()

	h := newVisibleOverlay()
	h, _ = h.Update(runesKey("x"))
	assert.True(t, h.IsVisible())
}

// ---------------------------------------------------------------------------
// Control messages
// ---------------------------------------------------------------------------

func TestControlMessagesAreDistinctTypes(t *testing.T) {
	t.Parallel()

	// Both are empty marker types; the type itself carries the meaning.
	var pause tea.Msg = PauseRequestMsg{}
	var skip tea.Msg = SkipRequestMsg{}

	_, isPause := pause.(PauseRequestMsg)
	_, isSkip := skip.(SkipRequestMsg)
	assert.True(t, isPause)
	assert.True(t, isSkip)

	_, crossed := pause.(SkipRequestMsg)
	assert.False(t, crossed)
}
