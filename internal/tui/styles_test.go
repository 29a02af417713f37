package tui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Color palette vars
// ---------------------------------------------------------------------------

func TestColorPalette_AllDefined(t *testing.T) {
	t.Parallel()
	colors := []struct {
		name  string
		color lipgloss.AdaptiveColor
	}{
		{"ColorPrimary", ColorPrimary},
		{"ColorSecondary", ColorSecondary},
		{"ColorAccent", ColorAccent},
		{"ColorSuccess", ColorSuccess},
		{"ColorWarning", ColorWarning},
		{"ColorError", ColorError},
		{"ColorInfo", ColorInfo},
		{"ColorMuted", ColorMuted},
		{"ColorSubtle", ColorSubtle},
		{"ColorBorder", ColorBorder},
		{"ColorHighlight", ColorHighlight},
	}
	for _, c := range colors {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			assert.NotEmpty(t, c.color.Light, "%s Light color must not be empty", c.name)
			assert.NotEmpty(t, c.color.Dark, "%s Dark color must not be empty", c.name)
		})
	}
}

// ---------------------------------------------------------------------------
// DefaultTheme -- no zero-value styles
// ---------------------------------------------------------------------------

func TestDefaultTheme_NoZeroValueStyles(t *testing.T) {
	t.Parallel()
	theme := DefaultTheme()

	const sentinel = "x"

	type check struct {
		name  string
		style lipgloss.Style
	}

	checks := []check{
		// Title bar
		{"TitleBar", theme.TitleBar},
		{"TitleText", theme.TitleText},
		{"TitleVersion", theme.TitleVersion},
		{"TitleHint", theme.TitleHint},
		// Sidebar
		{"SidebarContainer", theme.SidebarContainer},
		{"SidebarTitle", theme.SidebarTitle},
		{"SidebarItem", theme.SidebarItem},
		{"SidebarActive", theme.SidebarActive},
		{"SidebarInactive", theme.SidebarInactive},
		// Activity panel
		{"ActivityContainer", theme.ActivityContainer},
		{"ActivityHeader", theme.ActivityHeader},
		{"ActivityTab", theme.ActivityTab},
		{"ActivityTabActive", theme.ActivityTabActive},
		{"ActivityOutput", theme.ActivityOutput},
		// Event log
		{"EventContainer", theme.EventContainer},
		{"EventTimestamp", theme.EventTimestamp},
		{"EventMessage", theme.EventMessage},
		// Status bar
		{"StatusBar", theme.StatusBar},
		{"StatusKey", theme.StatusKey},
		{"StatusValue", theme.StatusValue},
		{"StatusSeparator", theme.StatusSeparator},
		// Progress bars
		{"ProgressFilled", theme.ProgressFilled},
		{"ProgressEmpty", theme.ProgressEmpty},
		{"ProgressLabel", theme.ProgressLabel},
		{"ProgressPercent", theme.ProgressPercent},
		// Status indicators
		{"StatusRunning", theme.StatusRunning},
		{"StatusCompleted", theme.StatusCompleted},
		{"StatusFailed", theme.StatusFailed},
		{"StatusWaiting", theme.StatusWaiting},
		{"StatusBlocked", theme.StatusBlocked},
		// General
		{"Border", theme.Border},
		{"HelpKey", theme.HelpKey},
		{"HelpDesc", theme.HelpDesc},
		{"ErrorText", theme.ErrorText},
		// Dividers
		{"VerticalDivider", theme.VerticalDivider},
		{"HorizontalDivider", theme.HorizontalDivider},
	}

	for _, c := range checks {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			out := c.style.Render(sentinel)
			assert.NotEmpty(t, out, "style %s must render non-empty output", c.name)
		})
	}
}

// DefaultTheme must be idempotent -- two calls return equivalent themes.
func TestDefaultTheme_Idempotent(t *testing.T) {
	t.Parallel()
	a := DefaultTheme()
	b := DefaultTheme()

	require.Equal(t, a.TitleBar.Render("Corvid"), b.TitleBar.Render("Corvid"),
		"TitleBar must produce identical output on consecutive DefaultTheme calls")
	require.Equal(t, a.StatusKey.Render("worker"), b.StatusKey.Render("worker"))
	require.Equal(t, a.ErrorText.Render("fail"), b.ErrorText.Render("fail"))
}

// ---------------------------------------------------------------------------
// StatusIndicator
// ---------------------------------------------------------------------------

func TestStatusIndicator_AllStatuses_NonEmpty(t *testing.T) {
	t.Parallel()
	theme := DefaultTheme()

	statuses := []struct {
		name   string
		status WorkerStatus
	}{
		{"Idle", WorkerIdle},
		{"Busy", WorkerBusy},
		{"Completed", WorkerCompleted},
		{"Failed", WorkerFailed},
		{"Throttled", WorkerThrottled},
		{"Offline", WorkerOffline},
	}

	for _, s := range statuses {
		s := s
		t.Run(s.name, func(t *testing.T) {
			t.Parallel()
			out := theme.StatusIndicator(s.status)
			assert.NotEmpty(t, out, "StatusIndicator for %s must return a non-empty string", s.name)
		})
	}
}

func TestStatusIndicator_CorrectSymbols(t *testing.T) {
	t.Parallel()
	theme := DefaultTheme()

	tests := []struct {
		name       string
		status     WorkerStatus
		wantSymbol string
	}{
		{name: "Idle contains open circle", status: WorkerIdle, wantSymbol: "○"},
		{name: "Busy contains filled circle", status: WorkerBusy, wantSymbol: "●"},
		{name: "Completed contains check", status: WorkerCompleted, wantSymbol: "✓"},
		{name: "Failed contains exclamation", status: WorkerFailed, wantSymbol: "!"},
		{name: "Throttled contains times", status: WorkerThrottled, wantSymbol: "×"},
		{name: "Offline contains dashed circle", status: WorkerOffline, wantSymbol: "◌"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			out := theme.StatusIndicator(tt.status)
			assert.Contains(t, out, tt.wantSymbol,
				"StatusIndicator(%v) must contain symbol %q", tt.status, tt.wantSymbol)
		})
	}
}

// An out-of-range WorkerStatus must still return a non-empty string (falls through to idle).
func TestStatusIndicator_OutOfRange_NonEmpty(t *testing.T) {
	t.Parallel()
	theme := DefaultTheme()
	out := theme.StatusIndicator(WorkerStatus(999))
	assert.NotEmpty(t, out, "out-of-range WorkerStatus must produce a non-empty indicator")
}

// Each status must produce a distinct indicator symbol.
func TestStatusIndicator_DistinctSymbols(t *testing.T) {
	t.Parallel()
	theme := DefaultTheme()

	seen := make(map[string]WorkerStatus)
	statuses := []WorkerStatus{WorkerIdle, WorkerBusy, WorkerCompleted, WorkerFailed, WorkerThrottled, WorkerOffline}

	for _, s := range statuses {
		indicator := theme.StatusIndicator(s)
		raw := stripANSI(indicator)
		if prev, exists := seen[raw]; exists {
			t.Errorf("StatusIndicator(%v) and StatusIndicator(%v) produce the same symbol %q",
				s, prev, raw)
		}
		seen[raw] = s
	}
}

// ---------------------------------------------------------------------------
// ProgressBar
// ---------------------------------------------------------------------------

func TestProgressBar_ZeroWidth_ReturnsEmpty(t *testing.T) {
	t.Parallel()
	theme := DefaultTheme()
	assert.Empty(t, theme.ProgressBar(0.5, 0), "width=0 must return empty string")
}

func TestProgressBar_NegativeWidth_ReturnsEmpty(t *testing.T) {
	t.Parallel()
	theme := DefaultTheme()
	assert.Empty(t, theme.ProgressBar(0.5, -1), "negative width must return empty string")
	assert.Empty(t, theme.ProgressBar(0.5, -100), "negative width must return empty string")
}

func TestProgressBar_ZeroFilled_AllEmpty(t *testing.T) {
	t.Parallel()
	theme := DefaultTheme()
	out := theme.ProgressBar(0.0, 20)
	require.NotEmpty(t, out, "ProgressBar(0.0, 20) must return a non-empty string (empty chars)")
	raw := stripANSI(out)
	assert.Equal(t, strings.Repeat("░", 20), raw,
		"ProgressBar(0.0, 20) should be all empty-block characters")
}

func TestProgressBar_FullFilled_AllFilled(t *testing.T) {
	t.Parallel()
	theme := DefaultTheme()
	out := theme.ProgressBar(1.0, 20)
	require.NotEmpty(t, out)
	raw := stripANSI(out)
	assert.Equal(t, strings.Repeat("█", 20), raw,
		"ProgressBar(1.0, 20) should be all filled-block characters")
}

func TestProgressBar_HalfFilled(t *testing.T) {
	t.Parallel()
	theme := DefaultTheme()
	out := theme.ProgressBar(0.5, 20)
	require.NotEmpty(t, out)
	raw := stripANSI(out)
	assert.Equal(t,
		strings.Repeat("█", 10)+strings.Repeat("░", 10),
		raw,
		"ProgressBar(0.5, 20) should be half filled",
	)
}

func TestProgressBar_TableDriven(t *testing.T) {
	t.Parallel()
	theme := DefaultTheme()

	tests := []struct {
		name         string
		filled       float64
		width        int
		wantFilled   int
		wantEmpty    int
		wantRetEmpty bool
	}{
		{name: "0% at width 10", filled: 0.0, width: 10, wantFilled: 0, wantEmpty: 10},
		{name: "100% at width 10", filled: 1.0, width: 10, wantFilled: 10, wantEmpty: 0},
		{name: "50% at width 10", filled: 0.5, width: 10, wantFilled: 5, wantEmpty: 5},
		{name: "25% at width 8", filled: 0.25, width: 8, wantFilled: 2, wantEmpty: 6},
		{name: "75% at width 8", filled: 0.75, width: 8, wantFilled: 6, wantEmpty: 2},
		{name: "width 1 empty", filled: 0.0, width: 1, wantFilled: 0, wantEmpty: 1},
		{name: "width 1 full", filled: 1.0, width: 1, wantFilled: 1, wantEmpty: 0},
		{name: "width 2 half", filled: 0.5, width: 2, wantFilled: 1, wantEmpty: 1},
		{name: "width 0 returns empty", filled: 0.5, width: 0, wantRetEmpty: true},
		{name: "negative width returns empty", filled: 0.5, width: -5, wantRetEmpty: true},
		{name: "overshoot clamp to 100%", filled: 1.5, width: 10, wantFilled: 10, wantEmpty: 0},
		{name: "undershoot clamp to 0%", filled: -0.5, width: 10, wantFilled: 0, wantEmpty: 10},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			out := theme.ProgressBar(tt.filled, tt.width)

			if tt.wantRetEmpty {
				assert.Empty(t, out, "expected empty string for case %q", tt.name)
				return
			}

			raw := stripANSI(out)
			wantRaw := strings.Repeat("█", tt.wantFilled) + strings.Repeat("░", tt.wantEmpty)
			assert.Equal(t, wantRaw, raw, "raw bar content mismatch for case %q", tt.name)
		})
	}
}

// ProgressBar must not panic for very small widths.
func TestProgressBar_NoPanic_SmallWidths(t *testing.T) {
	t.Parallel()
	theme := DefaultTheme()

	for _, w := range []int{-10, -1, 0, 1, 2, 3} {
		w := w
		t.Run("width_"+itoa(w), func(t *testing.T) {
			t.Parallel()
			assert.NotPanics(t, func() {
				_ = theme.ProgressBar(0.5, w)
			})
		})
	}
}

// ProgressBar output length (ANSI-stripped) must equal the requested width.
func TestProgressBar_OutputLength_EqualsWidth(t *testing.T) {
	t.Parallel()
	theme := DefaultTheme()

	widths := []int{1, 5, 10, 20, 40, 80}
	for _, w := range widths {
		w := w
		t.Run("width_"+itoa(w), func(t *testing.T) {
			t.Parallel()
			out := theme.ProgressBar(0.5, w)
			raw := stripANSI(out)
			assert.Equal(t, w, len([]rune(raw)),
				"ANSI-stripped bar must have exactly %d rune(s)", w)
		})
	}
}

// ProgressBar must never panic regardless of filled or width values.
func TestProgressBar_NoPanic_ExtremeValues(t *testing.T) {
	t.Parallel()
	theme := DefaultTheme()

	tests := []struct {
		name   string
		filled float64
		width  int
	}{
		{name: "large overshoot", filled: 99.9, width: 20},
		{name: "large undershoot", filled: -99.9, width: 20},
		{name: "zero filled, zero width", filled: 0.0, width: 0},
		{name: "very large width", filled: 0.5, width: 200},
		{name: "exact boundary low", filled: 0.0, width: 1},
		{name: "exact boundary high", filled: 1.0, width: 1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.NotPanics(t, func() {
				_ = theme.ProgressBar(tt.filled, tt.width)
			}, "ProgressBar must not panic for filled=%v width=%d", tt.filled, tt.width)
		})
	}
}

// ---------------------------------------------------------------------------
// Theme style distinctiveness
// ---------------------------------------------------------------------------

func TestDefaultTheme_StylesDistinctFromZero(t *testing.T) {
	t.Parallel()

	theme := DefaultTheme()
	zeroStyle := lipgloss.NewStyle()

	paddedStyles := []struct {
		name  string
		style lipgloss.Style
	}{
		{"TitleBar", theme.TitleBar},
		{"SidebarContainer", theme.SidebarContainer},
		{"SidebarItem", theme.SidebarItem},
		{"SidebarActive", theme.SidebarActive},
		{"SidebarInactive", theme.SidebarInactive},
		{"ActivityContainer", theme.ActivityContainer},
		{"ActivityTab", theme.ActivityTab},
		{"ActivityTabActive", theme.ActivityTabActive},
		{"EventContainer", theme.EventContainer},
		{"StatusBar", theme.StatusBar},
	}

	for _, c := range paddedStyles {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			const sentinel = "test"
			got := c.style.Render(sentinel)
			plain := zeroStyle.Render(sentinel)
			assert.NotEqual(t, plain, got,
				"style %s must differ from zero-value lipgloss.Style (expected padding/bold to produce distinct output)",
				c.name)
		})
	}
}

func TestDefaultTheme_TitleBar_HasBackground(t *testing.T) {
	t.Parallel()
	theme := DefaultTheme()

	rendered := theme.TitleBar.Render("Corvid")
	plain := lipgloss.NewStyle().Render("Corvid")
	assert.NotEqual(t, plain, rendered,
		"TitleBar must have a distinctive style (background + padding) different from the zero-value style")
	assert.True(t, len(rendered) > len("Corvid"),
		"TitleBar Render should be longer than the raw input due to padding")
}

func TestDefaultTheme_StatusBar_ContrastingKeyValue(t *testing.T) {
	t.Parallel()
	theme := DefaultTheme()

	const sample = "worker"
	keyOut := theme.StatusKey.Render(sample)
	valOut := theme.StatusValue.Render(sample)

	if keyOut == sample && valOut == sample {
		t.Skip("skipping color-contrast check: ANSI rendering unavailable in this environment")
	}

	assert.NotEqual(t, keyOut, valOut,
		"StatusKey and StatusValue must produce different renderings (contrasting styles for readability)")
}

// ---------------------------------------------------------------------------
// StatusIndicator — full rendered output distinctiveness
// ---------------------------------------------------------------------------

func TestStatusIndicator_RenderedOutput_Distinct(t *testing.T) {
	t.Parallel()
	theme := DefaultTheme()

	allStatuses := []WorkerStatus{
		WorkerIdle,
		WorkerBusy,
		WorkerCompleted,
		WorkerFailed,
		WorkerThrottled,
		WorkerOffline,
	}

	rendered := make(map[WorkerStatus]string, len(allStatuses))
	for _, s := range allStatuses {
		rendered[s] = theme.StatusIndicator(s)
	}

	for _, s := range allStatuses {
		assert.NotEmpty(t, rendered[s], "StatusIndicator(%v) must return non-empty string", s)
	}

	seen := make(map[string]WorkerStatus)
	for _, s := range allStatuses {
		out := rendered[s]
		if prev, exists := seen[out]; exists {
			t.Errorf("StatusIndicator(%v) and StatusIndicator(%v) produce identical rendered string %q",
				s, prev, out)
		}
		seen[out] = s
	}
}

func TestStatusIndicator_OutOfRange_FallsBackToIdle(t *testing.T) {
	t.Parallel()
	theme := DefaultTheme()

	outOfRange := theme.StatusIndicator(WorkerStatus(99))
	idle := theme.StatusIndicator(WorkerIdle)

	assert.Contains(t, stripANSI(outOfRange), "○",
		"out-of-range WorkerStatus must fall back to the idle open-circle symbol")
	assert.Equal(t, stripANSI(idle), stripANSI(outOfRange),
		"out-of-range WorkerStatus must produce the same symbol as WorkerIdle")
}

// ---------------------------------------------------------------------------
// Color palette — count and type checks
// ---------------------------------------------------------------------------

func TestColorPalette_Count(t *testing.T) {
	t.Parallel()

	palette := []lipgloss.AdaptiveColor{
		ColorPrimary,
		ColorSecondary,
		ColorAccent,
		ColorSuccess,
		ColorWarning,
		ColorError,
		ColorInfo,
		ColorMuted,
		ColorSubtle,
		ColorBorder,
		ColorHighlight,
	}

	assert.Len(t, palette, 11, "color palette must contain exactly 11 colors")

	for i, c := range palette {
		assert.NotEmpty(t, c.Light, "palette[%d].Light must not be empty", i)
		assert.NotEmpty(t, c.Dark, "palette[%d].Dark must not be empty", i)
	}
}

func TestColorPalette_UniqueValues(t *testing.T) {
	t.Parallel()

	type namedColor struct {
		name  string
		color lipgloss.AdaptiveColor
	}

	colors := []namedColor{
		{"ColorPrimary", ColorPrimary},
		{"ColorSecondary", ColorSecondary},
		{"ColorAccent", ColorAccent},
		{"ColorSuccess", ColorSuccess},
		{"ColorWarning", ColorWarning},
		{"ColorError", ColorError},
		{"ColorInfo", ColorInfo},
		{"ColorMuted", ColorMuted},
		{"ColorSubtle", ColorSubtle},
		{"ColorBorder", ColorBorder},
		{"ColorHighlight", ColorHighlight},
	}

	type colorPair struct{ light, dark string }
	seen := make(map[colorPair]string)

	for _, c := range colors {
		pair := colorPair{light: c.color.Light, dark: c.color.Dark}
		if prev, exists := seen[pair]; exists {
			t.Errorf("color %s and %s share identical Light=%q Dark=%q values (copy-paste error?)",
				c.name, prev, c.color.Light, c.color.Dark)
		}
		seen[pair] = c.name
	}
}

// ---------------------------------------------------------------------------
// Theme field count
// ---------------------------------------------------------------------------

// TestDefaultTheme_FieldCount verifies that the Theme struct has exactly 36
// style fields. This guards against accidentally removing a field.
func TestDefaultTheme_FieldCount(t *testing.T) {
	t.Parallel()

	allFields := []string{
		// Title bar (4)
		"TitleBar", "TitleText", "TitleVersion", "TitleHint",
		// Sidebar (5)
		"SidebarContainer", "SidebarTitle", "SidebarItem", "SidebarActive", "SidebarInactive",
		// Activity panel (5)
		"ActivityContainer", "ActivityHeader", "ActivityTab", "ActivityTabActive", "ActivityOutput",
		// Event log (3)
		"EventContainer", "EventTimestamp", "EventMessage",
		// Status bar (4)
		"StatusBar", "StatusKey", "StatusValue", "StatusSeparator",
		// Progress bars (4)
		"ProgressFilled", "ProgressEmpty", "ProgressLabel", "ProgressPercent",
		// Status indicators (5)
		"StatusRunning", "StatusCompleted", "StatusFailed", "StatusWaiting", "StatusBlocked",
		// General (4)
		"Border", "HelpKey", "HelpDesc", "ErrorText",
		// Dividers (2)
		"VerticalDivider", "HorizontalDivider",
	}

	const expectedFieldCount = 36
	assert.Equal(t, expectedFieldCount, len(allFields),
		"Theme must have exactly %d style fields; update this list if fields are added or removed",
		expectedFieldCount)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// stripANSI removes ANSI escape sequences from s so tests can inspect raw
// symbol content independently of terminal color codes. It handles multi-byte
// UTF-8 runes (e.g. Unicode block characters used by ProgressBar).
func stripANSI(s string) string {
	var b strings.Builder
	runes := []rune(s)
	inEsc := false
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '\x1b' {
			inEsc = true
			continue
		}
		if inEsc {
			if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') {
				inEsc = false
			}
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
