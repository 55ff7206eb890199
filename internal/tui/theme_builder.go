package tui

import (
	"fmt"
	"strings"

	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/retracehq/retrace/internal/retrace"
	"github.com/retracehq/retrace/internal/tui/colorpicker"
	"github.com/retracehq/retrace/internal/tui/theme"
)

// builderChrome is the vertical space around the panes: header, footer and
// pane borders.
const builderChrome = 6

// editTarget says which half of a style the picker is editing.
type editTarget int

const (
	editNone editTarget = iota
	editFg
	editBg
)

// styleTarget is one editable slot in the theme. Full styles expose a
// *theme.Style; plain color fields (accent, borders) expose a *string and
// have no background or text attributes.
type styleTarget struct {
	name    string
	section string
	style   func(*theme.Theme) *theme.Style
	color   func(*theme.Theme) *string
}

func (st styleTarget) hasStyle() bool { return st.style != nil }

func styleTargets() []styleTarget {
	full := func(name, section string, f func(*theme.Theme) *theme.Style) styleTarget {
		return styleTarget{name: name, section: section, style: f}
	}
	plain := func(name string, f func(*theme.Theme) *string) styleTarget {
		return styleTarget{name: name, section: "Accent Colors", color: f}
	}

	return []styleTarget{
		plain("Accent", func(t *theme.Theme) *string { return &t.Accent }),
		plain("Border Active", func(t *theme.Theme) *string { return &t.BorderActive }),
		plain("Border Inactive", func(t *theme.Theme) *string { return &t.BorderInactive }),

		full("Text Primary", "Text", func(t *theme.Theme) *theme.Style { return &t.TextPrimary }),
		full("Text Secondary", "Text", func(t *theme.Theme) *theme.Style { return &t.TextSecondary }),
		full("Text Muted", "Text", func(t *theme.Theme) *theme.Style { return &t.TextMuted }),

		full("User Block", "Blocks", func(t *theme.Theme) *theme.Style { return &t.UserBlock }),
		full("Assistant Block", "Blocks", func(t *theme.Theme) *theme.Style { return &t.AssistantBlock }),
		full("Thinking Block", "Blocks", func(t *theme.Theme) *theme.Style { return &t.ThinkingBlock }),
		full("Tool Call Block", "Blocks", func(t *theme.Theme) *theme.Style { return &t.ToolCallBlock }),
		full("Tool Result Block", "Blocks", func(t *theme.Theme) *theme.Style { return &t.ToolResultBlock }),

		full("User Label", "Labels", func(t *theme.Theme) *theme.Style { return &t.UserLabel }),
		full("Assistant Label", "Labels", func(t *theme.Theme) *theme.Style { return &t.AssistantLabel }),
		full("Thinking Label", "Labels", func(t *theme.Theme) *theme.Style { return &t.ThinkingLabel }),
		full("Tool Label", "Labels", func(t *theme.Theme) *theme.Style { return &t.ToolLabel }),

		full("Confirm Prompt", "Confirm Dialog", func(t *theme.Theme) *theme.Style { return &t.ConfirmPrompt }),
		full("Confirm Selected", "Confirm Dialog", func(t *theme.Theme) *theme.Style { return &t.ConfirmSelected }),
		full("Confirm Unselected", "Confirm Dialog", func(t *theme.Theme) *theme.Style { return &t.ConfirmUnselected }),
	}
}

// themeBuilder is a two-pane editor: style slots on the left (swapped for
// the color picker while editing) and a live sample transcript on the right.
type themeBuilder struct {
	theme     theme.Theme
	themeName string
	targets   []styleTarget
	selected  int

	editing editTarget
	picker  colorpicker.Model

	preview viewport.Model
	sample  []retrace.Event
	width   int
	height  int
	ready   bool

	previewFocused bool
	dirty          bool

	status      string
	statusIsErr bool
}

func newThemeBuilder(themeName string) themeBuilder {
	t, err := theme.LoadByName(themeName)
	if err != nil {
		t = theme.DefaultTheme()
	}
	return themeBuilder{
		theme:     t,
		themeName: themeName,
		targets:   styleTargets(),
		sample:    theme.SampleEvents(),
		picker:    colorpicker.New("#000000"),
	}
}

func (m themeBuilder) Init() tea.Cmd { return nil }

func (m themeBuilder) listWidth() int    { return m.width * 45 / 100 }
func (m themeBuilder) previewWidth() int { return m.width - m.listWidth() - 3 }

func (m themeBuilder) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.preview = viewport.New()
			m.ready = true
		}
		m.preview.SetWidth(m.previewWidth() - 1)
		m.preview.SetHeight(m.height - builderChrome)
		m.refreshPreview()

	case tea.KeyMsg:
		m.status = ""
		key := msg.String()

		if m.editing != editNone {
			m.handlePickerKey(key)
			return m, nil
		}
		if key == "q" || key == "esc" || key == "ctrl+c" {
			return m, tea.Quit
		}
		m.handleKey(key)
	}

	if m.previewFocused && m.editing == editNone {
		var cmd tea.Cmd
		m.preview, cmd = m.preview.Update(msg)
		return m, cmd
	}
	return m, nil
}

// handlePickerKey routes a key to the color picker and applies the value to
// the selected slot as it changes, so the preview tracks the picker live.
func (m *themeBuilder) handlePickerKey(key string) {
	m.picker.HandleKey(key)
	m.setSelectedColor(m.picker.Value())

	switch {
	case m.picker.Confirmed:
		m.dirty = true
		m.editing = editNone
		m.picker.Confirmed = false
	case m.picker.Cancelled:
		m.setSelectedColor(colorpicker.RGBToHex(m.picker.OrigR, m.picker.OrigG, m.picker.OrigB))
		m.editing = editNone
		m.picker.Cancelled = false
	}
	m.refreshPreview()
}

func (m *themeBuilder) handleKey(key string) {
	switch key {
	case "up", "k":
		if !m.previewFocused && m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if !m.previewFocused && m.selected < len(m.targets)-1 {
			m.selected++
		}
	case "tab":
		m.previewFocused = !m.previewFocused
	case "enter", "e", "left", "h":
		if !m.previewFocused {
			m.openPicker(editFg)
		}
	case "E", "right", "l":
		if !m.previewFocused && m.targets[m.selected].hasStyle() {
			m.openPicker(editBg)
		}
	case "b":
		m.toggleAttr(func(s *theme.Style) { s.Bold = !s.Bold })
	case "i":
		m.toggleAttr(func(s *theme.Style) { s.Italic = !s.Italic })
	case "u":
		m.toggleAttr(func(s *theme.Style) { s.Underline = !s.Underline })
	case "ctrl+s":
		m.save()
	}
}

// selectedColor returns the color the current edit target holds.
func (m *themeBuilder) selectedColor(target editTarget) string {
	st := m.targets[m.selected]
	if st.hasStyle() {
		s := st.style(&m.theme)
		if target == editBg {
			return s.Bg
		}
		return s.Fg
	}
	return *st.color(&m.theme)
}

// setSelectedColor writes hex into the current edit target.
func (m *themeBuilder) setSelectedColor(hex string) {
	st := m.targets[m.selected]
	if st.hasStyle() {
		s := st.style(&m.theme)
		if m.editing == editBg {
			s.Bg = hex
		} else {
			s.Fg = hex
		}
		return
	}
	*st.color(&m.theme) = hex
}

func (m *themeBuilder) openPicker(target editTarget) {
	current := m.selectedColor(target)
	if current == "" {
		if target == editBg {
			current = "#000000"
		} else {
			current = "#808080"
		}
	}

	m.picker = colorpicker.New(current)
	m.picker.AccentColor = m.theme.GetAccent()
	m.picker.MutedColor = m.theme.TextMuted.Fg
	m.editing = target
}

func (m *themeBuilder) toggleAttr(flip func(*theme.Style)) {
	st := m.targets[m.selected]
	if !st.hasStyle() {
		return
	}
	flip(st.style(&m.theme))
	m.dirty = true
	m.refreshPreview()
}

func (m *themeBuilder) save() {
	if err := theme.Save(m.themeName, m.theme); err != nil {
		m.status = fmt.Sprintf("Error saving: %v", err)
		m.statusIsErr = true
		return
	}
	m.dirty = false
	m.status = fmt.Sprintf("Theme '%s' saved!", m.themeName)
	m.statusIsErr = false
}

func (m *themeBuilder) refreshPreview() {
	if !m.ready {
		return
	}

	styles := buildPreviewStyles(m.theme)
	width := m.preview.Width()

	var b strings.Builder
	for _, ev := range m.sample {
		if rendered := renderPreviewEvent(&ev, width, styles); rendered != "" {
			b.WriteString(rendered)
			b.WriteString("\n")
		}
	}
	m.preview.SetContent(b.String())
}

// previewStyles holds lipgloss styles built from the theme for preview.
type previewStyles struct {
	UserBlock       lipgloss.Style
	AssistantBlock  lipgloss.Style
	ThinkingBlock   lipgloss.Style
	ToolCallBlock   lipgloss.Style
	ToolResultBlock lipgloss.Style
	UserLabel       lipgloss.Style
	AssistantLabel  lipgloss.Style
	ThinkingLabel   lipgloss.Style
	ToolLabel       lipgloss.Style
}

func buildPreviewStyles(t theme.Theme) previewStyles {
	block := func(ts theme.Style) lipgloss.Style {
		return applyStyle(lipgloss.NewStyle(), ts).Padding(0, 1).MarginBottom(1)
	}
	label := func(ts theme.Style) lipgloss.Style {
		return applyStyle(lipgloss.NewStyle(), ts)
	}
	return previewStyles{
		UserBlock:       block(t.UserBlock),
		AssistantBlock:  block(t.AssistantBlock),
		ThinkingBlock:   block(t.ThinkingBlock),
		ToolCallBlock:   block(t.ToolCallBlock),
		ToolResultBlock: block(t.ToolResultBlock),
		UserLabel:       label(t.UserLabel),
		AssistantLabel:  label(t.AssistantLabel),
		ThinkingLabel:   label(t.ThinkingLabel),
		ToolLabel:       label(t.ToolLabel),
	}
}

func renderPreviewEvent(ev *retrace.Event, width int, styles previewStyles) string {
	section := func(label lipgloss.Style, title string, block lipgloss.Style, text string) string {
		return label.Render(title) + "\n" + block.Width(width).Render(text)
	}

	switch ev.Kind {
	case retrace.KindUser:
		if ev.Content == "" {
			return ""
		}
		return section(styles.UserLabel, "User", styles.UserBlock, ev.Content)

	case retrace.KindAssistant:
		if ev.Content == "" {
			return ""
		}
		return section(styles.AssistantLabel, "Assistant", styles.AssistantBlock, ev.Content)

	case retrace.KindThinking:
		if ev.Content == "" {
			return ""
		}
		text := ev.Content
		if len(text) > 200 {
			text = text[:200] + "..."
		}
		return section(styles.ThinkingLabel, "Thinking", styles.ThinkingBlock, text)

	case retrace.KindToolUse:
		title := fmt.Sprintf("Tool: %s", ev.ToolName)
		return section(styles.ToolLabel, title, styles.ToolCallBlock, "id: "+ev.ToolUseID)

	case retrace.KindToolResult:
		title := "Tool Result"
		if ev.IsError {
			title = "Tool Error"
		}
		text := ev.Content
		if text == "" {
			text = "(no output)"
		}
		if idx := strings.IndexByte(text, '\n'); idx >= 0 {
			text = text[:idx] + " …"
		}
		return section(styles.ToolLabel, title, styles.ToolResultBlock, text)
	}
	return ""
}

func (m themeBuilder) View() tea.View {
	if !m.ready {
		v := tea.NewView("Loading...")
		v.AltScreen = true
		return v
	}

	accent := m.theme.GetAccent()
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(accent))

	listTitle := titleStyle.Render("Theme: " + m.themeName)
	if m.dirty {
		listTitle += lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5555")).Render(" *")
	}
	header := listTitle +
		strings.Repeat(" ", max(0, m.listWidth()-lipgloss.Width(listTitle)+3)) +
		titleStyle.Render("Preview")

	pane := func(content string, active bool, width int) string {
		border := m.theme.GetBorderInactive()
		if active {
			border = m.theme.GetBorderActive()
		}
		return lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(border)).
			Width(width).
			Height(m.height - builderChrome).
			Render(content)
	}

	left := m.renderTargetList()
	if m.editing != editNone {
		left = m.renderPickerPane()
	}
	listActive := !m.previewFocused || m.editing != editNone
	listPane := pane(left, listActive, m.listWidth())
	previewPane := pane(m.preview.View(), !listActive, m.previewWidth())

	help := "↑/↓: select • e/E: edit fg/bg • b/i/u: bold/italic/underline • tab: pane • ctrl+s: save • esc/q: quit"
	if m.editing != editNone {
		// Show only the picker's own help line.
		lines := strings.Split(m.picker.View(), "\n")
		help = lines[len(lines)-1]
	}
	footer := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.TextMuted.Fg)).Render(help)

	v := tea.NewView(header + "\n" +
		lipgloss.JoinHorizontal(lipgloss.Top, listPane, " ", previewPane) + "\n" +
		footer)
	v.AltScreen = true
	return v
}

func (m themeBuilder) renderTargetList() string {
	accent := m.theme.GetAccent()
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(accent))
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.TextMuted.Fg))
	chip := func(hex string) string {
		return lipgloss.NewStyle().Background(lipgloss.Color(hex)).Render("  ")
	}

	var b strings.Builder
	section := ""
	for i, st := range m.targets {
		if st.section != section {
			if section != "" {
				b.WriteString("\n")
			}
			b.WriteString(sectionStyle.Render(st.section) + "\n")
			section = st.section
		}

		prefix := "  "
		nameStyle := lipgloss.NewStyle().Width(18)
		if i == m.selected {
			prefix = "▸ "
			nameStyle = nameStyle.Bold(true).Foreground(lipgloss.Color(accent))
		}

		var info strings.Builder
		if st.hasStyle() {
			s := st.style(&m.theme)
			if s.Fg != "" {
				info.WriteString(chip(s.Fg) + " ")
			}
			if s.Bg != "" {
				info.WriteString(chip(s.Bg) + " ")
			}
			attrs := ""
			if s.Bold {
				attrs += "B"
			}
			if s.Italic {
				attrs += "I"
			}
			if s.Underline {
				attrs += "U"
			}
			if attrs != "" {
				info.WriteString(mutedStyle.Render("[" + attrs + "]"))
			}
		} else {
			hex := *st.color(&m.theme)
			info.WriteString(chip(hex) + " " + mutedStyle.Render(hex))
		}

		b.WriteString(prefix + nameStyle.Render(st.name) + " " + info.String() + "\n")
	}

	if m.status != "" {
		statusStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#50fa7b"))
		if m.statusIsErr {
			statusStyle = statusStyle.Foreground(lipgloss.Color("#ff5555"))
		}
		b.WriteString("\n" + statusStyle.Render(m.status) + "\n")
	}
	return b.String()
}

func (m themeBuilder) renderPickerPane() string {
	target := "Foreground"
	if m.editing == editBg {
		target = "Background"
	}
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.theme.GetAccent()))
	header := headerStyle.Render(fmt.Sprintf("Editing: %s (%s)", m.targets[m.selected].name, target))
	return header + "\n\n" + m.picker.View()
}

// RunThemeBuilder runs the theme builder TUI.
func RunThemeBuilder(themeName string) error {
	_, err := tea.NewProgram(newThemeBuilder(themeName)).Run()
	return err
}
