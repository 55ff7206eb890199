package tui

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/list"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/retracehq/retrace/internal/retrace"
)

// pickerSessionItem wraps a retrace.SessionMeta for the picker list.
type pickerSessionItem struct {
	meta retrace.SessionMeta
}

func (i pickerSessionItem) Title() string {
	return i.sessionTitle(70)
}

// sessionTitle picks the display title: summary, then first prompt, then the
// session id, then the file name. Some recorders store the project path where
// a prompt belongs; those values read as noise and are skipped.
func (i pickerSessionItem) sessionTitle(maxLen int) string {
	for _, candidate := range []string{i.meta.Summary, i.meta.FirstPrompt, i.meta.ID} {
		title := strings.Join(strings.Fields(candidate), " ")
		if title == "" || (i.meta.ProjectPath != "" && title == i.meta.ProjectPath) {
			continue
		}
		return truncateTitle(title, maxLen)
	}
	if i.meta.FullPath != "" {
		name := strings.TrimSuffix(filepath.Base(i.meta.FullPath), ".jsonl")
		return truncateTitle(name, maxLen)
	}
	return i.meta.ID
}

func truncateTitle(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}

func (i pickerSessionItem) Description() string {
	var parts []string

	if i.meta.FullPath != "" {
		filename := filepath.Base(i.meta.FullPath)
		filename = strings.TrimSuffix(filename, ".jsonl")
		// GUIDs are 36 chars, so allow a little more before truncating
		if len(filename) > 37 {
			filename = filename[:34] + "..."
		}
		parts = append(parts, filename)
	}

	if !i.meta.ModifiedAt.IsZero() {
		parts = append(parts, i.meta.ModifiedAt.Local().Format("Jan 02, 3:04 PM"))
	} else if !i.meta.CreatedAt.IsZero() {
		parts = append(parts, i.meta.CreatedAt.Local().Format("Jan 02, 3:04 PM"))
	}

	if i.meta.FileSize > 0 {
		parts = append(parts, formatFileSize(i.meta.FileSize))
	}

	if i.meta.EventCount > 0 {
		parts = append(parts, fmt.Sprintf("%d events", i.meta.EventCount))
	}

	if i.meta.Source != "" {
		parts = append(parts, string(i.meta.Source))
	}

	result := ""
	for idx, p := range parts {
		if idx > 0 {
			result += "  •  "
		}
		result += p
	}
	return result
}

func (i pickerSessionItem) FilterValue() string {
	return i.meta.FirstPrompt + " " + i.meta.Summary + " " + i.meta.ID
}

func formatFileSize(size int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
	)
	switch {
	case size >= MB:
		return fmt.Sprintf("%.1f MB", float64(size)/float64(MB))
	case size >= KB:
		return fmt.Sprintf("%.1f KB", float64(size)/float64(KB))
	default:
		return fmt.Sprintf("%d B", size)
	}
}

// SessionPickerResult holds the result of the session picker.
type SessionPickerResult struct {
	Selected  *retrace.SessionMeta
	Cancelled bool
}

// SessionPickerModel is a session picker page.
type SessionPickerModel struct {
	list       list.Model
	sessions   []retrace.SessionMeta
	result     SessionPickerResult
	quitting   bool
	width      int
	height     int
	ready      bool
	standalone bool
}

type sessionPickerKeyMap struct {
	Enter key.Binding
	Quit  key.Binding
}

func defaultSessionPickerKeyMap() sessionPickerKeyMap {
	return sessionPickerKeyMap{
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("esc", "cancel"),
		),
	}
}

// NewSessionPickerModel creates a new session picker with sessions sorted by
// newest first.
func NewSessionPickerModel(sessions []retrace.SessionMeta) SessionPickerModel {
	sorted := make([]retrace.SessionMeta, len(sessions))
	copy(sorted, sessions)
	sort.Slice(sorted, func(i, j int) bool {
		ti := sorted[i].ModifiedAt
		if ti.IsZero() {
			ti = sorted[i].CreatedAt
		}
		tj := sorted[j].ModifiedAt
		if tj.IsZero() {
			tj = sorted[j].CreatedAt
		}
		return ti.After(tj)
	})

	items := make([]list.Item, len(sorted))
	for i, s := range sorted {
		items[i] = pickerSessionItem{meta: s}
	}

	delegate := list.NewDefaultDelegate()
	l := list.New(items, delegate, 0, 0)
	l.Title = "Select a Session"
	l.SetShowStatusBar(true)
	l.SetShowHelp(true)
	l.SetFilteringEnabled(true)

	return SessionPickerModel{
		list:     l,
		sessions: sorted,
	}
}

func (m SessionPickerModel) Init() tea.Cmd {
	return nil
}

func (m SessionPickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keys := defaultSessionPickerKeyMap()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, msg.Height-2)
		m.ready = true
		return m, nil

	case tea.KeyMsg:
		// Don't handle keys if filtering
		if m.list.FilterState() == list.Filtering {
			break
		}

		switch {
		case key.Matches(msg, keys.Quit):
			m.result.Cancelled = true
			m.quitting = true
			return m.finish()

		case key.Matches(msg, keys.Enter):
			if item := m.list.SelectedItem(); item != nil {
				if si, ok := item.(pickerSessionItem); ok {
					selected := si.meta
					m.result.Selected = &selected
				}
			}
			m.quitting = true
			return m.finish()
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m SessionPickerModel) finish() (tea.Model, tea.Cmd) {
	if m.standalone {
		return m, tea.Quit
	}
	result := m.result
	return m, func() tea.Msg { return result }
}

var sessionPickerStyle = lipgloss.NewStyle().Padding(1, 2)

func (m SessionPickerModel) viewContent() string {
	if !m.ready {
		return "Loading..."
	}
	if m.quitting {
		return ""
	}
	return sessionPickerStyle.Render(m.list.View())
}

func (m SessionPickerModel) View() tea.View {
	v := tea.NewView(m.viewContent())
	v.AltScreen = true
	return v
}

// Result returns the picker result after the program exits.
func (m SessionPickerModel) Result() SessionPickerResult {
	return m.result
}

// PickSession runs the session picker and returns the selected session.
func PickSession(sessions []retrace.SessionMeta) (*retrace.SessionMeta, error) {
	if len(sessions) == 0 {
		return nil, fmt.Errorf("no sessions available")
	}

	model := NewSessionPickerModel(sessions)
	model.standalone = true
	p := tea.NewProgram(model)
	finalModel, err := p.Run()
	if err != nil {
		return nil, err
	}

	result := finalModel.(SessionPickerModel).Result()
	if result.Cancelled {
		return nil, nil
	}
	return result.Selected, nil
}
