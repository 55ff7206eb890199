package tui

import (
	"fmt"
	"io"
	"strings"

	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/list"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"

	"github.com/retracehq/retrace/internal/i18n"
	"github.com/retracehq/retrace/internal/index"
	"github.com/retracehq/retrace/internal/tui/theme"
	"github.com/retracehq/retrace/internal/tuilog"
)

// searchResultItem wraps an index.SessionResult for the list.
type searchResultItem struct {
	result index.SessionResult
}

func (i searchResultItem) Title() string {
	return i.resultTitle(80)
}

func (i searchResultItem) Description() string {
	return ""
}

func (i searchResultItem) FilterValue() string {
	return i.result.ProjectName + " " + i.result.SessionID + " " + string(i.result.Source)
}

// resultTitle returns the plain-text title used for list filtering.
func (i searchResultItem) resultTitle(maxLen int) string {
	if maxLen <= 0 {
		maxLen = 80
	}
	title := fmt.Sprintf("%s · %s · %s (%s)",
		i.result.ProjectName,
		shortenID(i.result.SessionID),
		i.result.Source,
		matchCount(len(i.result.Matches)),
	)
	return ansi.Truncate(title, maxLen, "...")
}

// renderTitle renders the title with a colored source badge.
func (i searchResultItem) renderTitle(maxLen int, muted bool) string {
	if maxLen <= 0 {
		maxLen = 80
	}

	res := i.result
	sourceStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(sourceColorHex(res.Source)))
	if muted {
		sourceStyle = sourceStyle.Faint(true)
	}

	title := fmt.Sprintf("%s · %s · %s (%s)",
		res.ProjectName,
		shortenID(res.SessionID),
		sourceStyle.Render(string(res.Source)),
		matchCount(len(res.Matches)),
	)
	return ansi.Truncate(title, maxLen, "...")
}

func matchCount(n int) string {
	return i18n.Tn("tui.search.matchCount", "{{.Count}} match", "{{.Count}} matches", n)
}

func shortenID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// renderPreview renders a match preview with the matched span highlighted.
func renderPreview(m index.Match, maxLen int, muted bool) string {
	if m.Preview == "" {
		return ""
	}

	preview := m.Preview
	if len(preview) > maxLen {
		preview = preview[:maxLen-3] + "..."
	}

	t := theme.Current()
	var highlightStyle, normalStyle lipgloss.Style
	if muted {
		normalStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(t.TextMuted.Fg))
		highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.TextPrimary.Fg)).
			Bold(true)
	} else {
		normalStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(t.TextSecondary.Fg))
		highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.GetAccent())).
			Bold(true)
	}

	kindStr := fmt.Sprintf("[%s]:", m.Kind)
	kindStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(t.TextMuted.Fg))
	if muted {
		kindStyle = kindStyle.Faint(true)
	}

	if m.MatchStart >= 0 && m.MatchEnd > m.MatchStart && m.MatchStart < len(preview) {
		// Truncation above may have cut into the matched span.
		matchEnd := m.MatchEnd
		if matchEnd > len(preview) {
			matchEnd = len(preview)
		}

		before := preview[:m.MatchStart]
		match := preview[m.MatchStart:matchEnd]
		after := preview[matchEnd:]

		return kindStyle.Render(kindStr) + " " +
			normalStyle.Render(before) +
			highlightStyle.Render(match) +
			normalStyle.Render(after)
	}

	return kindStyle.Render(kindStr) + " " + normalStyle.Render(preview)
}

// searchResultDelegate renders each search result as a three line row.
type searchResultDelegate struct {
	normalStyle   lipgloss.Style
	selectedStyle lipgloss.Style
	dimmedStyle   lipgloss.Style
	cursorStyle   lipgloss.Style
	sepStyle      lipgloss.Style
}

func newSearchResultDelegate() searchResultDelegate {
	t := theme.Current()
	return searchResultDelegate{
		normalStyle:   lipgloss.NewStyle().PaddingLeft(4),
		selectedStyle: lipgloss.NewStyle().PaddingLeft(1).Bold(true).Foreground(lipgloss.Color(t.TextPrimary.Fg)),
		dimmedStyle:   lipgloss.NewStyle().PaddingLeft(4).Foreground(lipgloss.Color(t.TextMuted.Fg)),
		cursorStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color(t.GetAccent())).Bold(true),
		sepStyle:      lipgloss.NewStyle().Foreground(lipgloss.Color(t.GetBorderInactive())),
	}
}

func (d searchResultDelegate) Height() int                             { return 3 }
func (d searchResultDelegate) Spacing() int                            { return 0 }
func (d searchResultDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

// ShortHelp returns key bindings for the help bar.
func (d searchResultDelegate) ShortHelp() []key.Binding {
	return []key.Binding{
		key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", i18n.T("tui.search.view", "view"))),
	}
}

// FullHelp returns key bindings for the full help view.
func (d searchResultDelegate) FullHelp() [][]key.Binding {
	return [][]key.Binding{d.ShortHelp()}
}

func (d searchResultDelegate) Render(w io.Writer, m list.Model, idx int, item list.Item) {
	si, ok := item.(searchResultItem)
	if !ok {
		return
	}
	if m.Width() <= 0 {
		return
	}

	isSelected := idx == m.Index()
	emptyFilter := m.FilterState() == list.Filtering && m.FilterValue() == ""
	res := si.result

	textWidth := m.Width() - 6
	if textWidth < 20 {
		textWidth = 20
	}

	// Line 1: project, session, source and match count.
	var titleStr string
	if emptyFilter {
		titleStr = d.dimmedStyle.Render(si.renderTitle(textWidth, true))
	} else if isSelected {
		marker := d.cursorStyle.Render(">  ")
		titleStr = marker + d.selectedStyle.Render(si.renderTitle(textWidth, false))
	} else {
		titleStr = d.normalStyle.Render(si.renderTitle(textWidth, false))
	}

	// Line 2: first match preview with the hit highlighted.
	var previewStr string
	if len(res.Matches) > 0 {
		previewStr = renderPreview(res.Matches[0], textWidth, emptyFilter && !isSelected)
	}

	sepWidth := m.Width() - 6
	if sepWidth < 1 {
		sepWidth = 1
	}
	sep := d.sepStyle.Render(strings.Repeat("─", sepWidth))

	fmt.Fprintf(w, "%s\n%s\n%s", titleStr, previewStr, "    "+sep) //nolint: errcheck
}

// searchPicker lets the user pick a session from search results.
type searchPicker struct {
	list     list.Model
	results  []index.SessionResult
	selected *index.SessionResult
	quitting bool
	width    int
	height   int
	ready    bool
	query    string // the query that produced these results
}

// searchPickerKeyMap defines key bindings for the search picker.
type searchPickerKeyMap struct {
	Enter key.Binding
	Back  key.Binding
	Quit  key.Binding
}

func defaultSearchPickerKeyMap() searchPickerKeyMap {
	return searchPickerKeyMap{
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", i18n.T("tui.search.viewSession", "view session")),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", i18n.T("tui.common.back", "back")),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", i18n.T("tui.common.quit", "quit")),
		),
	}
}

func newSearchPicker(results []index.SessionResult, query string) searchPicker {
	items := make([]list.Item, len(results))
	for i, r := range results {
		items[i] = searchResultItem{result: r}
	}

	l := list.New(items, newSearchResultDelegate(), 0, 0)
	l.Title = searchPickerTitle(len(results), query)
	l.SetShowStatusBar(false)
	l.SetShowHelp(true)
	l.SetFilteringEnabled(true)

	return searchPicker{list: l, results: results, query: query}
}

func searchPickerTitle(count int, query string) string {
	if query != "" {
		return i18n.Tf("tui.search.resultsFor", "Search results for %q (%d)", query, count)
	}
	return i18n.Tf("tui.search.results", "Search results (%d)", count)
}

func (m searchPicker) Init() tea.Cmd {
	tuilog.Log.Info("SearchPicker.Init", "resultCount", len(m.results))
	return nil
}

func (m searchPicker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keys := defaultSearchPickerKeyMap()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, msg.Height-2)
		m.ready = true
		return m, nil

	case tea.KeyMsg:
		// The list owns the keyboard while filtering.
		if m.list.FilterState() == list.Filtering {
			break
		}

		switch {
		case key.Matches(msg, keys.Back), key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, keys.Enter):
			if si, ok := m.list.SelectedItem().(searchResultItem); ok {
				tuilog.Log.Info("SearchPicker: result selected", "sessionID", si.result.SessionID)
				m.selected = &si.result
			}
			m.quitting = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

var searchPickerStyle = lipgloss.NewStyle().Padding(1, 2)

func (m searchPicker) View() tea.View {
	content := ""
	switch {
	case !m.ready:
		content = i18n.T("tui.common.loading", "Loading...")
	case !m.quitting:
		content = searchPickerStyle.Render(m.list.View())
	}

	v := tea.NewView(content)
	v.AltScreen = true
	return v
}

// PickSearchResult runs the search result picker and returns the selected
// result, or nil when the user cancels.
func PickSearchResult(results []index.SessionResult, query string) (*index.SessionResult, error) {
	if len(results) == 0 {
		return nil, fmt.Errorf("no search results available")
	}

	final, err := tea.NewProgram(newSearchPicker(results, query), termSizeOpts()...).Run()
	if err != nil {
		return nil, err
	}
	return final.(searchPicker).selected, nil
}
