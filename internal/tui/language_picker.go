package tui

import (
	"fmt"
	"strings"

	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/retracehq/retrace/internal/i18n"
	"github.com/retracehq/retrace/internal/tui/theme"
)

// langPicker is a two-pane picker: available languages on the left and a
// sample of that locale's UI strings on the right.
type langPicker struct {
	langs  []i18n.LangInfo
	cursor int

	preview viewport.Model
	width   int
	height  int
	ready   bool

	selected string // chosen tag, "" while open or after cancel

	palette langPalette
}

// langPalette is the slice of the active theme the picker needs.
type langPalette struct {
	accent       string
	borderActive string
	borderIdle   string
	text         string
	muted        string
}

func newLangPicker(activeTag string) langPicker {
	t := theme.Current()
	m := langPicker{
		langs: i18n.AvailableLanguages(activeTag),
		palette: langPalette{
			accent:       t.GetAccent(),
			borderActive: t.GetBorderActive(),
			borderIdle:   t.GetBorderInactive(),
			text:         t.TextPrimary.Fg,
			muted:        t.TextMuted.Fg,
		},
	}
	for i, l := range m.langs {
		if l.Active {
			m.cursor = i
		}
	}
	return m
}

func (m langPicker) listWidth() int    { return m.width * 35 / 100 }
func (m langPicker) previewWidth() int { return m.width - m.listWidth() - 2 }

func (m langPicker) Init() tea.Cmd { return nil }

func (m langPicker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.preview = viewport.New()
			m.ready = true
		}
		m.preview.SetWidth(m.previewWidth())
		m.preview.SetHeight(m.height - 4)
		m.refreshPreview()

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "up", "k":
			return m.moveCursor(-1), nil
		case "down", "j":
			return m.moveCursor(1), nil
		case "enter":
			if len(m.langs) > 0 {
				m.selected = m.langs[m.cursor].Tag
			}
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.preview, cmd = m.preview.Update(msg)
	return m, cmd
}

func (m langPicker) moveCursor(delta int) langPicker {
	next := m.cursor + delta
	if next < 0 || next >= len(m.langs) {
		return m
	}
	m.cursor = next
	m.refreshPreview()
	return m
}

// previewSection groups preview strings under one label.
type previewSection struct {
	label  string
	match  func(id string) bool
	values []string
}

// refreshPreview renders sample strings from the cursor's locale, grouped
// by UI area.
func (m *langPicker) refreshPreview() {
	if !m.ready || len(m.langs) == 0 {
		return
	}

	tag := m.langs[m.cursor].Tag
	values := i18n.PreviewStrings(tag)

	sections := []previewSection{
		{label: "Event kinds", match: func(id string) bool { return strings.HasPrefix(id, "tui.kind.") }},
		{label: "Search", match: func(id string) bool { return id == "tui.search.inputTitle" }},
		{label: "Loading", match: func(id string) bool { return id == "tui.common.loading" }},
		{label: "Time", match: func(id string) bool { return strings.HasPrefix(id, "common.time.") }},
		{label: "Timeline", match: func(id string) bool {
			return strings.HasPrefix(id, "tui.timeline.") || strings.HasPrefix(id, "tui.bookmarks.")
		}},
	}

	for _, kv := range i18n.PreviewKeys() {
		for i := range sections {
			if sections[i].match(kv[0]) {
				sections[i].values = append(sections[i].values, values[kv[0]])
				break
			}
		}
	}

	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.muted))
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.text)).Bold(true)

	var b strings.Builder
	b.WriteString("\n")
	for _, s := range sections {
		if len(s.values) == 0 {
			continue
		}
		b.WriteString(labelStyle.Render(fmt.Sprintf("  %-16s", s.label)))
		b.WriteString(valueStyle.Render(strings.Join(s.values, " · ")))
		b.WriteString("\n\n")
	}
	m.preview.SetContent(b.String())
}

func (m langPicker) View() tea.View {
	if !m.ready {
		v := tea.NewView("Loading...")
		v.AltScreen = true
		return v
	}

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.palette.accent))
	listTitle := titleStyle.Render("Languages")
	previewTitle := titleStyle.Render("Preview")
	brand := lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.borderIdle)).Render("retrace")
	midGap := strings.Repeat(" ", max(0, m.listWidth()-lipgloss.Width(listTitle)+3))
	rightGap := strings.Repeat(" ", max(0, m.width-lipgloss.Width(listTitle)-lipgloss.Width(midGap)-lipgloss.Width(previewTitle)-lipgloss.Width(brand)))
	header := listTitle + midGap + previewTitle + rightGap + brand

	pane := func(content, borderColor string, width int) string {
		return lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(borderColor)).
			Width(width).
			Height(m.height - 2).
			Render(content)
	}
	listPane := pane(m.renderList(), m.palette.borderActive, m.listWidth())
	previewPane := pane(m.preview.View(), m.palette.borderIdle, m.previewWidth())

	footer := lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.borderIdle)).
		Render("↑/↓: navigate • enter: select • q/esc: cancel")

	v := tea.NewView(header + "\n" +
		lipgloss.JoinHorizontal(lipgloss.Top, listPane, " ", previewPane) + "\n" +
		footer)
	v.AltScreen = true
	return v
}

func (m langPicker) renderList() string {
	cursorStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.palette.accent))
	nameStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.text))
	descStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.muted))

	var b strings.Builder
	for i, l := range m.langs {
		name := l.Name
		if l.Active {
			name += " *"
		}

		if i != m.cursor {
			b.WriteString("  " + nameStyle.Render(name) + "\n")
			continue
		}

		b.WriteString("▸ " + cursorStyle.Render(name) + "\n")
		desc := l.Tag
		if l.EnglishName != l.Name {
			desc += " · " + l.EnglishName
		}
		b.WriteString("    " + descStyle.Render(desc) + "\n")
	}
	return b.String()
}

// RunLanguagePicker runs the language picker TUI and returns the selected tag.
// Returns "" if the user cancelled.
func RunLanguagePicker(activeTag string) (string, error) {
	final, err := tea.NewProgram(newLangPicker(activeTag)).Run()
	if err != nil {
		return "", err
	}
	result, ok := final.(langPicker)
	if !ok {
		return "", nil
	}
	return result.selected, nil
}
