// Package cli provides CLI output formatting utilities.
package cli

import (
	"context"
	"fmt"
	"sort"

	"charm.land/bubbles/v2/list"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/retracehq/retrace/internal/retrace"
)

// SessionPickerItem represents a selectable session in the picker.
type SessionPickerItem struct {
	Session retrace.SessionMeta
	Project retrace.Project
}

func (i SessionPickerItem) Title() string {
	if i.Session.FirstPrompt != "" {
		return retrace.TruncateString(i.Session.FirstPrompt, 53)
	}
	return retrace.TruncateString(i.Session.ID, 8)
}

func (i SessionPickerItem) Description() string {
	proj := retrace.TruncateString(i.Project.Name, 23)
	return fmt.Sprintf("%s | %s | %d events", proj, i.Session.Source, i.Session.EventCount)
}

func (i SessionPickerItem) FilterValue() string {
	return i.Session.FirstPrompt + " " + i.Project.Name + " " + i.Session.ID
}

// sessionPicker wraps a filterable list over sessions from every source.
type sessionPicker struct {
	list     list.Model
	selected *SessionPickerItem
	quitting bool
}

func newSessionPicker(sessions []SessionPickerItem) sessionPicker {
	items := make([]list.Item, len(sessions))
	for i, s := range sessions {
		items[i] = s
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(lipgloss.Color("#9d7aff")).
		Bold(true)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(lipgloss.Color("#666666"))

	l := list.New(items, delegate, 80, 20)
	l.SetShowTitle(true)
	l.Title = "Select a session (or press / to search)"
	l.SetShowStatusBar(false)
	l.SetShowHelp(true)
	l.SetFilteringEnabled(true)

	return sessionPicker{list: l}
}

func (m sessionPicker) Init() tea.Cmd { return nil }

func (m sessionPicker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "enter":
			if item, ok := m.list.SelectedItem().(SessionPickerItem); ok {
				m.selected = &item
				return m, tea.Quit
			}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m sessionPicker) View() tea.View {
	if m.quitting && m.selected == nil {
		return tea.NewView("Cancelled.\n")
	}
	return tea.NewView(m.list.View())
}

// collectSessions gathers every session from every registered store.
// Stores or projects that fail to list are skipped rather than aborting
// the picker.
func collectSessions(registry *retrace.StoreRegistry) []SessionPickerItem {
	ctx := context.Background()

	var all []SessionPickerItem
	for _, store := range registry.All() {
		projects, err := store.ListProjects(ctx)
		if err != nil {
			continue
		}
		for _, proj := range projects {
			sessions, err := store.ListSessions(ctx, proj.ID)
			if err != nil {
				continue
			}
			for _, sess := range sessions {
				all = append(all, SessionPickerItem{Session: sess, Project: proj})
			}
		}
	}
	return all
}

// PickSessionInteractive shows an interactive picker for sessions across all
// sources, newest first.
func PickSessionInteractive(registry *retrace.StoreRegistry) (*SessionPickerItem, error) {
	sessions := collectSessions(registry)
	if len(sessions) == 0 {
		return nil, fmt.Errorf("no sessions found")
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].Session.ModifiedAt.After(sessions[j].Session.ModifiedAt)
	})

	final, err := tea.NewProgram(newSessionPicker(sessions)).Run()
	if err != nil {
		return nil, err
	}

	m := final.(sessionPicker)
	if m.selected == nil {
		return nil, fmt.Errorf("no session selected")
	}
	return m.selected, nil
}
