package tui

import (
	"fmt"
	"sort"
	"strings"

	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/list"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/retracehq/retrace/internal/i18n"
	"github.com/retracehq/retrace/internal/retrace"
)

// pickerProjectItem wraps a retrace.Project for the picker list.
type pickerProjectItem struct {
	project retrace.Project
}

func (i pickerProjectItem) Title() string { return i.project.Name }

func (i pickerProjectItem) Description() string {
	p := i.project

	var parts []string
	if p.DisplayPath != "" {
		path := p.DisplayPath
		if len(path) > 50 {
			path = "..." + path[len(path)-47:]
		}
		parts = append(parts, path)
	}
	if p.SessionCount > 0 {
		parts = append(parts, fmt.Sprintf("%d sessions", p.SessionCount))
	}
	if p.Source != "" {
		parts = append(parts, string(p.Source))
	}
	if !p.LastModified.IsZero() {
		parts = append(parts, p.LastModified.Local().Format("Jan 02, 3:04 PM"))
	}

	return strings.Join(parts, "  •  ")
}

func (i pickerProjectItem) FilterValue() string {
	return i.project.Name + " " + i.project.Path + " " + string(i.project.Source)
}

// projectPickerResult holds the result of the project picker. Variants are
// the selected project's records from every source that shares its path, so
// the shell can merge their sessions into one list.
type projectPickerResult struct {
	Selected  *retrace.Project
	Variants  []retrace.Project
	Cancelled bool
}

// projectPicker is a project picker page. Embedded in the shell it reports
// back with a projectPickerResult message; standalone it quits the program.
type projectPicker struct {
	list       list.Model
	projects   []retrace.Project
	result     projectPickerResult
	quitting   bool
	ready      bool
	standalone bool
}

type projectPickerKeyMap struct {
	Enter key.Binding
	Quit  key.Binding
}

func projectPickerKeys() projectPickerKeyMap {
	return projectPickerKeyMap{
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", i18n.T("tui.common.select", "select")),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("esc", i18n.T("tui.common.cancel", "cancel")),
		),
	}
}

// newProjectPicker creates a project picker with projects sorted by last
// modified, newest first.
func newProjectPicker(projects []retrace.Project) projectPicker {
	sorted := make([]retrace.Project, len(projects))
	copy(sorted, projects)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].LastModified.After(sorted[j].LastModified)
	})

	items := make([]list.Item, len(sorted))
	for i, p := range sorted {
		items[i] = pickerProjectItem{project: p}
	}

	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = i18n.T("tui.projects.title", "Select a Project")
	l.SetShowStatusBar(true)
	l.SetShowHelp(true)
	l.SetFilteringEnabled(true)

	return projectPicker{list: l, projects: sorted}
}

func (m projectPicker) Init() tea.Cmd { return nil }

func (m projectPicker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keys := projectPickerKeys()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height-2)
		m.ready = true
		return m, nil

	case tea.KeyMsg:
		// The list owns the keyboard while filtering.
		if m.list.FilterState() == list.Filtering {
			break
		}

		switch {
		case key.Matches(msg, keys.Quit):
			m.result.Cancelled = true
			return m.finish()

		case key.Matches(msg, keys.Enter):
			if pi, ok := m.list.SelectedItem().(pickerProjectItem); ok {
				selected := pi.project
				m.result.Selected = &selected
				m.result.Variants = m.variantsOf(selected)
			}
			return m.finish()
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// finish delivers the result: embedded pickers message the shell,
// standalone ones quit the program.
func (m projectPicker) finish() (tea.Model, tea.Cmd) {
	m.quitting = true
	if m.standalone {
		return m, tea.Quit
	}
	result := m.result
	return m, func() tea.Msg { return result }
}

// variantsOf collects every project record sharing the selected path.
func (m projectPicker) variantsOf(selected retrace.Project) []retrace.Project {
	var variants []retrace.Project
	for _, p := range m.projects {
		if p.Path == selected.Path {
			variants = append(variants, p)
		}
	}
	if len(variants) == 0 {
		variants = []retrace.Project{selected}
	}
	return variants
}

var projectPickerStyle = lipgloss.NewStyle().Padding(1, 2)

func (m projectPicker) View() tea.View {
	content := ""
	switch {
	case !m.ready:
		content = i18n.T("tui.common.loading", "Loading...")
	case !m.quitting:
		content = projectPickerStyle.Render(m.list.View())
	}

	v := tea.NewView(content)
	v.AltScreen = true
	return v
}

// PickProject runs the project picker and returns the selected project, or
// nil when the user cancels.
func PickProject(projects []retrace.Project) (*retrace.Project, error) {
	if len(projects) == 0 {
		return nil, fmt.Errorf("no projects available")
	}

	model := newProjectPicker(projects)
	model.standalone = true
	final, err := tea.NewProgram(model, termSizeOpts()...).Run()
	if err != nil {
		return nil, err
	}

	result := final.(projectPicker).result
	if result.Cancelled {
		return nil, nil
	}
	return result.Selected, nil
}
