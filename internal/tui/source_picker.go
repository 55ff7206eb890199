package tui

import (
	"strings"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/retracehq/retrace/internal/i18n"
	"github.com/retracehq/retrace/internal/retrace"
	"github.com/retracehq/retrace/internal/tui/theme"
)

// sourceColorHex returns the badge color for a source name.
func sourceColorHex(source retrace.Source) string {
	switch source {
	case retrace.SourceClaude:
		return "#d97757"
	case retrace.SourceCodex:
		return "#74aa9c"
	default:
		return theme.Current().GetAccent()
	}
}

// sourceChoice is one row in the source picker. Sources without any
// stored sessions are shown but cannot be selected.
type sourceChoice struct {
	source  retrace.Source
	enabled bool
}

// sourcePicked is delivered to the shell when the picker finishes.
type sourcePicked struct {
	source    retrace.Source
	cancelled bool
}

// sourcePicker is the shell page for choosing which source to browse.
type sourcePicker struct {
	choices []sourceChoice
	cursor  int
	width   int
	height  int
}

type sourcePickerKeyMap struct {
	Up    key.Binding
	Down  key.Binding
	Enter key.Binding
	Quit  key.Binding
}

func sourcePickerKeys() sourcePickerKeyMap {
	return sourcePickerKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", i18n.T("tui.common.up", "up")),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", i18n.T("tui.common.down", "down")),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", i18n.T("tui.common.select", "select")),
		),
		Quit: key.NewBinding(
			key.WithKeys("esc", "q"),
			key.WithHelp("esc", i18n.T("tui.common.cancel", "cancel")),
		),
	}
}

// newSourcePicker builds a picker over every known source, marking the
// ones the registry actually has data for.
func newSourcePicker(registry *retrace.StoreRegistry) sourcePicker {
	registered := make(map[retrace.Source]bool)
	for _, s := range registry.Sources() {
		registered[s] = true
	}

	var choices []sourceChoice
	for _, s := range []retrace.Source{retrace.SourceClaude, retrace.SourceCodex} {
		choices = append(choices, sourceChoice{source: s, enabled: registered[s]})
	}

	p := sourcePicker{choices: choices}
	for i, c := range choices {
		if c.enabled {
			p.cursor = i
			break
		}
	}
	return p
}

func (m sourcePicker) Init() tea.Cmd { return nil }

func (m sourcePicker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keys := sourcePickerKeys()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			m.moveCursor(-1)

		case key.Matches(msg, keys.Down):
			m.moveCursor(1)

		case key.Matches(msg, keys.Quit):
			return m, func() tea.Msg { return sourcePicked{cancelled: true} }

		case key.Matches(msg, keys.Enter):
			choice := m.choices[m.cursor]
			if !choice.enabled {
				return m, nil
			}
			return m, func() tea.Msg { return sourcePicked{source: choice.source} }
		}
	}

	return m, nil
}

// moveCursor advances to the next enabled choice, wrapping around.
func (m *sourcePicker) moveCursor(dir int) {
	n := len(m.choices)
	for i := 0; i < n; i++ {
		next := (m.cursor + dir + n) % n
		m.cursor = next
		if m.choices[next].enabled {
			return
		}
	}
}

func (m sourcePicker) View() tea.View {
	t := theme.Current()
	titleStyle := lipgloss.NewStyle().Bold(true).MarginBottom(1)
	cursorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(t.GetAccent())).Bold(true)
	disabledStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(t.TextMuted.Fg))
	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(t.TextSecondary.Fg)).MarginTop(1)

	var b strings.Builder
	b.WriteString(titleStyle.Render(i18n.T("tui.sources.title", "Select a Source")))
	b.WriteString("\n")

	for i, c := range m.choices {
		if i == m.cursor {
			b.WriteString(cursorStyle.Render("> "))
		} else {
			b.WriteString("  ")
		}

		name := string(c.source)
		if !c.enabled {
			b.WriteString(disabledStyle.Render(name + " " + i18n.T("tui.sources.noData", "(no data)")))
		} else {
			style := lipgloss.NewStyle().Foreground(lipgloss.Color(sourceColorHex(c.source)))
			if i == m.cursor {
				style = style.Bold(true)
			}
			b.WriteString(style.Render(name))
		}
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render(i18n.T("tui.sources.hints", "enter select • esc cancel")))

	inner := lipgloss.NewStyle().Padding(1, 3).Render(b.String())
	if m.width > 0 && m.height > 0 {
		inner = lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, inner)
	}

	v := tea.NewView(inner)
	v.AltScreen = true
	return v
}
