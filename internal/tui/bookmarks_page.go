package tui

import (
	"strings"

	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/list"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/retracehq/retrace/internal/bookmarks"
	"github.com/retracehq/retrace/internal/i18n"
	"github.com/retracehq/retrace/internal/retrace"
)

// bookmarkListItem wraps a bookmark for the list.
type bookmarkListItem struct {
	bm bookmarks.Bookmark
}

func (i bookmarkListItem) Title() string {
	title := i.bm.Note
	if title == "" {
		title = i.bm.Preview
	}
	if title == "" {
		title = i.bm.EventID
	}
	return "★ " + title
}

func (i bookmarkListItem) Description() string {
	var parts []string

	if i.bm.Kind != "" {
		parts = append(parts, i.bm.Kind)
	}
	if i.bm.Source != "" {
		parts = append(parts, i.bm.Source)
	}
	if len(i.bm.SessionID) >= 8 {
		parts = append(parts, i.bm.SessionID[:8])
	}
	// When the note is shown as the title, keep the event preview visible.
	if i.bm.Note != "" && i.bm.Preview != "" {
		parts = append(parts, retrace.TruncateString(i.bm.Preview, 40))
	}
	if !i.bm.UpdatedAt.IsZero() {
		parts = append(parts, i18n.RelativeTime(i.bm.UpdatedAt))
	}

	return strings.Join(parts, "  •  ")
}

func (i bookmarkListItem) FilterValue() string {
	return i.bm.Note + " " + i.bm.Preview + " " + i.bm.SessionID + " " + i.bm.Source
}

type bookmarksKeyMap struct {
	Open   key.Binding
	Note   key.Binding
	Delete key.Binding
	Back   key.Binding
	Quit   key.Binding
}

func defaultBookmarksKeyMap() bookmarksKeyMap {
	return bookmarksKeyMap{
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		Note: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "edit note"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc", "q"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

// BookmarksPage lists every saved bookmark across sessions. Opening one
// asks the shell to load its session and deep-link to the event.
type BookmarksPage struct {
	marks *bookmarks.Manager
	list  list.Model
	keys  bookmarksKeyMap

	noting    bool
	noteInput textinput.Model
	noteID    string

	pendingDelete string

	width  int
	height int
	ready  bool
}

// NewBookmarksPage creates the bookmarks page over the shared manager.
func NewBookmarksPage(marks *bookmarks.Manager) BookmarksPage {
	delegate := list.NewDefaultDelegate()
	l := list.New(bookmarkItems(marks), delegate, 0, 0)
	l.Title = i18n.T("tui.bookmarks.title", "Bookmarks")
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(true)

	ni := textinput.New()
	ni.Placeholder = i18n.T("tui.note.placeholder", "Bookmark note...")
	ni.Prompt = ""
	ni.CharLimit = 280

	return BookmarksPage{
		marks:     marks,
		list:      l,
		keys:      defaultBookmarksKeyMap(),
		noteInput: ni,
	}
}

func bookmarkItems(marks *bookmarks.Manager) []list.Item {
	all := marks.List()
	items := make([]list.Item, len(all))
	for i, bm := range all {
		items[i] = bookmarkListItem{bm: bm}
	}
	return items
}

func (m BookmarksPage) Init() tea.Cmd {
	return nil
}

func (m BookmarksPage) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, msg.Height-3)
		m.ready = true
		return m, nil

	case tea.KeyMsg:
		if m.noting {
			return m.updateNote(msg)
		}
		if m.list.FilterState() == list.Filtering {
			break
		}

		// Any key other than a second d disarms a pending delete.
		if !key.Matches(msg, m.keys.Delete) {
			m.pendingDelete = ""
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg { return PopPageMsg{} }

		case key.Matches(msg, m.keys.Open):
			if bm, ok := m.selected(); ok {
				return m, func() tea.Msg { return OpenBookmarkMsg{Bookmark: bm} }
			}
			return m, nil

		case key.Matches(msg, m.keys.Note):
			if bm, ok := m.selected(); ok {
				m.noteID = bm.ID
				m.noteInput.SetValue(bm.Note)
				m.noteInput.Focus()
				m.noting = true
				return m, textinput.Blink
			}
			return m, nil

		case key.Matches(msg, m.keys.Delete):
			return m.handleDelete()
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// updateNote handles keys while the note input is focused.
func (m BookmarksPage) updateNote(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.noting = false
		m.noteInput.Blur()
		if m.noteID != "" {
			m.marks.SetNote(m.noteID, strings.TrimSpace(m.noteInput.Value()))
		}
		return m, m.list.SetItems(bookmarkItems(m.marks))

	case "esc":
		m.noting = false
		m.noteInput.Blur()
		return m, nil

	case "ctrl+c":
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.noteInput, cmd = m.noteInput.Update(msg)
	return m, cmd
}

// handleDelete removes the selected bookmark on the second press.
func (m BookmarksPage) handleDelete() (tea.Model, tea.Cmd) {
	bm, ok := m.selected()
	if !ok {
		return m, nil
	}
	if m.pendingDelete != bm.ID {
		m.pendingDelete = bm.ID
		return m, nil
	}
	m.marks.Remove(bm.ID)
	m.pendingDelete = ""
	return m, m.list.SetItems(bookmarkItems(m.marks))
}

func (m BookmarksPage) selected() (bookmarks.Bookmark, bool) {
	item := m.list.SelectedItem()
	if item == nil {
		return bookmarks.Bookmark{}, false
	}
	bi, ok := item.(bookmarkListItem)
	if !ok {
		return bookmarks.Bookmark{}, false
	}
	return bi.bm, true
}

var bookmarksPageStyle = lipgloss.NewStyle().Padding(1, 2)

func (m BookmarksPage) viewContent() string {
	if !m.ready {
		return "Loading..."
	}
	if len(m.list.Items()) == 0 && !m.noting {
		empty := i18n.T("tui.bookmarks.empty", "No bookmarks yet. Press m on a timeline event to add one.")
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, GetStyles().Info.Render(empty))
	}
	return bookmarksPageStyle.Render(m.list.View()) + "\n" + m.bottomLine()
}

// bottomLine shows the note input, a delete confirmation, or key hints.
func (m BookmarksPage) bottomLine() string {
	s := GetStyles()
	if m.noting {
		return " " + s.Info.Render(i18n.T("tui.timeline.notePrompt", "note: ")) + m.noteInput.View()
	}
	if m.pendingDelete != "" {
		return " " + s.Banner.Render(i18n.T("tui.bookmarks.confirmDelete", "Press d again to delete"))
	}
	return " " + s.Help.Render(i18n.T("tui.bookmarks.hints", "enter open  n note  d delete  / filter  esc back"))
}

func (m BookmarksPage) View() tea.View {
	v := tea.NewView(m.viewContent())
	v.AltScreen = true
	return v
}
