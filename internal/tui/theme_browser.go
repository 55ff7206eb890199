package tui

import (
	"fmt"
	"strings"

	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/retracehq/retrace/internal/retrace"
	"github.com/retracehq/retrace/internal/tui/theme"
)

// browserChrome is the vertical space around the panes: header, footer and
// the pane borders.
const browserChrome = 6

// browserAction is what the user chose before the browser quit.
type browserAction int

const (
	browserCancel browserAction = iota
	browserActivate
	browserEdit
	browserCreate
)

// browserEntry pairs a listed theme with its loaded definition.
type browserEntry struct {
	meta   theme.ThemeMeta
	theme  theme.Theme
	active bool
}

// themeBrowser is a two-pane browser: a theme list on the left, a rendered
// sample transcript in the chosen theme on the right.
type themeBrowser struct {
	entries []browserEntry
	cursor  int
	sample  []retrace.Event

	preview viewport.Model
	width   int
	height  int
	ready   bool

	action browserAction
	chosen string // theme name for activate/edit
}

func newThemeBrowser() themeBrowser {
	metas, _ := theme.ListAvailable()
	activeName := theme.ActiveName()

	b := themeBrowser{sample: theme.SampleEvents()}
	for i, meta := range metas {
		t, err := theme.LoadByName(meta.Name)
		if err != nil {
			t = theme.DefaultTheme()
		}
		entry := browserEntry{meta: meta, theme: t, active: meta.Name == activeName}
		if entry.active {
			b.cursor = i
		}
		b.entries = append(b.entries, entry)
	}
	return b
}

// current returns the theme under the cursor, falling back to the default
// theme when the list is empty.
func (m themeBrowser) current() theme.Theme {
	if len(m.entries) == 0 {
		return theme.DefaultTheme()
	}
	return m.entries[m.cursor].theme
}

func (m themeBrowser) Init() tea.Cmd { return nil }

func (m themeBrowser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.preview = viewport.New()
			m.ready = true
		}
		m.preview.SetWidth(m.previewWidth() - 4)
		m.preview.SetHeight(m.height - browserChrome)
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
			if len(m.entries) > 0 {
				m.action = browserActivate
				m.chosen = m.entries[m.cursor].meta.Name
			}
			return m, tea.Quit
		case "e":
			if len(m.entries) > 0 {
				m.action = browserEdit
				m.chosen = m.entries[m.cursor].meta.Name
			}
			return m, tea.Quit
		case "n":
			m.action = browserCreate
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.preview, cmd = m.preview.Update(msg)
	return m, cmd
}

func (m themeBrowser) moveCursor(delta int) themeBrowser {
	next := m.cursor + delta
	if next < 0 || next >= len(m.entries) {
		return m
	}
	m.cursor = next
	m.refreshPreview()
	return m
}

func (m themeBrowser) listWidth() int    { return m.width * 35 / 100 }
func (m themeBrowser) previewWidth() int { return m.width - m.listWidth() - 3 }

// refreshPreview re-renders the sample transcript in the cursor's theme.
func (m *themeBrowser) refreshPreview() {
	if !m.ready || len(m.entries) == 0 {
		return
	}

	t := m.current()
	styles := buildPreviewStyles(t)
	width := m.preview.Width()

	var b strings.Builder
	b.WriteString(renderColorSwatches(t))
	b.WriteString("\n\n")
	for _, ev := range m.sample {
		if rendered := renderPreviewEvent(&ev, width, styles); rendered != "" {
			b.WriteString(rendered)
			b.WriteString("\n")
		}
	}
	m.preview.SetContent(b.String())
}

// renderColorSwatches draws labelled blocks for the theme's key colors.
func renderColorSwatches(t theme.Theme) string {
	label := lipgloss.NewStyle().Foreground(lipgloss.Color(t.TextMuted.Fg))
	swatch := func(name, hex string) string {
		if hex == "" {
			return ""
		}
		block := lipgloss.NewStyle().Background(lipgloss.Color(hex)).Render("  ")
		return label.Render(name+" ") + block
	}

	parts := make([]string, 0, 4)
	for _, p := range []string{
		swatch("accent", t.GetAccent()),
		swatch("border", t.GetBorderActive()),
		swatch("text", t.TextPrimary.Fg),
		swatch("muted", t.TextMuted.Fg),
	} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "  ")
}

func (m themeBrowser) View() tea.View {
	if !m.ready {
		v := tea.NewView("Loading...")
		v.AltScreen = true
		return v
	}

	t := m.current()
	accent := t.GetAccent()
	borderActive := t.GetBorderActive()
	borderIdle := t.GetBorderInactive()

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(accent))
	listTitle := titleStyle.Render("Themes")
	gap := max(0, m.listWidth()-lipgloss.Width(listTitle)+3)
	header := listTitle + strings.Repeat(" ", gap) + titleStyle.Render("Preview")

	pane := func(content, borderColor string, width int) string {
		return lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(borderColor)).
			Width(width).
			Height(m.height - browserChrome).
			Render(content)
	}
	listPane := pane(m.renderList(accent, borderIdle), borderActive, m.listWidth())
	previewPane := pane(m.preview.View(), borderIdle, m.previewWidth())

	footer := lipgloss.NewStyle().Foreground(lipgloss.Color(borderIdle)).
		Render("↑/↓: navigate • enter: activate • e: edit • n: new theme • q/esc: cancel")

	v := tea.NewView(header + "\n" +
		lipgloss.JoinHorizontal(lipgloss.Top, listPane, " ", previewPane) + "\n" +
		footer)
	v.AltScreen = true
	return v
}

func (m themeBrowser) renderList(accent, muted string) string {
	cursorStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(accent))
	descStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(muted))

	var b strings.Builder
	for i, entry := range m.entries {
		name := entry.meta.Name
		if entry.active {
			name += " *"
		}

		if i != m.cursor {
			b.WriteString("  " + name + "\n")
			continue
		}
		b.WriteString("▸ " + cursorStyle.Render(name) + "\n")
		if entry.meta.Description != "" {
			b.WriteString("    " + descStyle.Render(entry.meta.Description) + "\n")
		}
	}
	return b.String()
}

// RunThemeBrowser runs the theme browser and applies the chosen action:
// activating a theme, launching the builder on an existing theme, or
// creating a new one.
func RunThemeBrowser() error {
	final, err := tea.NewProgram(newThemeBrowser()).Run()
	if err != nil {
		return err
	}
	result, ok := final.(themeBrowser)
	if !ok {
		return nil
	}

	switch result.action {
	case browserActivate:
		if err := theme.SetActive(result.chosen); err != nil {
			return fmt.Errorf("failed to set theme: %w", err)
		}
		fmt.Printf("Theme set to: %s\n", result.chosen)
		return nil

	case browserEdit:
		return RunThemeBuilder(result.chosen)

	case browserCreate:
		fmt.Print("New theme name: ")
		var name string
		if _, err := fmt.Scanln(&name); err != nil || name == "" {
			return nil
		}
		return RunThemeBuilder(name)
	}
	return nil
}
