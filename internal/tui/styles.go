package tui

import (
	"sync"

	"charm.land/lipgloss/v2"

	"github.com/retracehq/retrace/internal/tui/theme"
)

// Styles holds all the computed lipgloss styles for the TUI.
type Styles struct {
	// Border styles
	ActiveBorder   lipgloss.Style
	InactiveBorder lipgloss.Style

	// Status bar
	StatusBar lipgloss.Style

	// Event block styles, one per kind
	UserBlock       lipgloss.Style
	AssistantBlock  lipgloss.Style
	ThinkingBlock   lipgloss.Style
	ToolCallBlock   lipgloss.Style
	ToolResultBlock lipgloss.Style

	// Block labels
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	ThinkingLabel  lipgloss.Style
	ToolLabel      lipgloss.Style
	OtherLabel     lipgloss.Style

	// Timeline chrome
	Title  lipgloss.Style
	Info   lipgloss.Style
	Help   lipgloss.Style
	Border lipgloss.Style

	// Search and deep-link highlight
	Highlight lipgloss.Style

	// Banner shown when a deep-link target is hidden by the filter
	Banner lipgloss.Style

	// Separators
	Separator lipgloss.Style
	MoreText  lipgloss.Style

	// Confirm dialog
	ConfirmPrompt     lipgloss.Style
	ConfirmSelected   lipgloss.Style
	ConfirmUnselected lipgloss.Style
}

var (
	stylesOnce sync.Once
	styles     Styles
)

// GetStyles returns the current styles, initializing from theme if needed.
func GetStyles() *Styles {
	stylesOnce.Do(func() {
		styles = buildStyles(theme.Current())
	})
	return &styles
}

// ReloadStyles rebuilds styles from the current theme.
func ReloadStyles() *Styles {
	theme.Reload()
	styles = buildStyles(theme.Current())
	return &styles
}

// applyStyle applies a theme.Style to a lipgloss.Style builder.
func applyStyle(s lipgloss.Style, ts theme.Style) lipgloss.Style {
	if ts.Fg != "" {
		s = s.Foreground(lipgloss.Color(ts.Fg))
	}
	if ts.Bg != "" {
		s = s.Background(lipgloss.Color(ts.Bg))
	}
	if ts.Bold {
		s = s.Bold(true)
	}
	if ts.Italic {
		s = s.Italic(true)
	}
	if ts.Underline {
		s = s.Underline(true)
	}
	return s
}

// buildStyles creates Styles from a Theme.
func buildStyles(t theme.Theme) Styles {
	border := func(color string) lipgloss.Style {
		return lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(color))
	}
	block := func(ts theme.Style) lipgloss.Style {
		return applyStyle(lipgloss.NewStyle(), ts).Padding(0, 1).MarginBottom(1)
	}
	label := func(ts theme.Style) lipgloss.Style {
		return applyStyle(lipgloss.NewStyle(), ts)
	}
	fg := func(color string) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
	}

	return Styles{
		ActiveBorder:   border(t.GetBorderActive()),
		InactiveBorder: border(t.GetBorderInactive()),

		StatusBar: fg(t.TextPrimary.Fg).
			Background(lipgloss.Color(t.GetAccent())).
			Bold(true).
			Padding(0, 1),

		UserBlock:       block(t.UserBlock),
		AssistantBlock:  block(t.AssistantBlock),
		ThinkingBlock:   block(t.ThinkingBlock),
		ToolCallBlock:   block(t.ToolCallBlock),
		ToolResultBlock: block(t.ToolResultBlock),

		UserLabel:      label(t.UserLabel),
		AssistantLabel: label(t.AssistantLabel),
		ThinkingLabel:  label(t.ThinkingLabel),
		ToolLabel:      label(t.ToolLabel),
		OtherLabel:     label(t.OtherLabel),

		Title:  fg(t.TextPrimary.Fg).Bold(true),
		Info:   fg(t.TextSecondary.Fg),
		Help:   fg(t.TextMuted.Fg),
		Border: border(t.GetBorderInactive()),

		Highlight: label(t.GetHighlight()),

		Banner: fg(t.TextPrimary.Fg).
			Background(lipgloss.Color(t.GetAccent())).
			Padding(0, 1),

		Separator: fg(t.GetAccent()).Bold(true),
		MoreText:  fg(t.TextSecondary.Fg).Italic(true),

		ConfirmPrompt:     label(t.ConfirmPrompt).Bold(true),
		ConfirmSelected:   label(t.ConfirmSelected).Bold(true).Padding(0, 2),
		ConfirmUnselected: label(t.ConfirmUnselected).Padding(0, 2),
	}
}
