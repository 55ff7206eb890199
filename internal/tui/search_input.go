package tui

import (
	"context"
	"fmt"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/retracehq/retrace/internal/i18n"
	"github.com/retracehq/retrace/internal/index"
	"github.com/retracehq/retrace/internal/tui/theme"
)

// searchInput is a single centered input field for entering a catalog
// search query.
type searchInput struct {
	input     textinput.Model
	cancelled bool
	width     int
	height    int
}

func newSearchInput() searchInput {
	ti := textinput.New()
	ti.Placeholder = i18n.T("tui.search.placeholder", "Enter search query...")
	ti.Focus()
	ti.CharLimit = 156
	return searchInput{input: ti}
}

func (m searchInput) Init() tea.Cmd {
	return textinput.Blink
}

func (m searchInput) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			return m, tea.Quit
		case "esc", "ctrl+c":
			m.cancelled = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m searchInput) View() tea.View {
	t := theme.Current()
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(t.TextPrimary.Fg))
	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(t.TextMuted.Fg))

	content := fmt.Sprintf("%s\n\n%s\n\n%s",
		titleStyle.Render(i18n.T("tui.search.inputTitle", "Search Sessions")),
		m.input.View(),
		helpStyle.Render(i18n.T("tui.search.inputHints", "enter: search  ·  esc: cancel")),
	)

	// Center the block in the terminal.
	const contentWidth, contentHeight = 60, 6
	container := lipgloss.NewStyle().Padding(
		max(0, (m.height-contentHeight)/2),
		max(0, (m.width-contentWidth)/2),
	)

	v := tea.NewView(container.Render(content))
	v.AltScreen = true
	return v
}

// PickSearchQuery runs the search input and returns the entered query.
// An empty string with a nil error means the user cancelled.
func PickSearchQuery() (string, error) {
	final, err := tea.NewProgram(newSearchInput(), termSizeOpts()...).Run()
	if err != nil {
		return "", err
	}

	m := final.(searchInput)
	if m.cancelled {
		return "", nil
	}
	return m.input.Value(), nil
}

// PerformSearch runs query against the catalog and returns grouped results.
// The catalog is opened read-only, so this fails while a watch holds the
// write lock.
func PerformSearch(ctx context.Context, query string, opts index.Options) ([]index.SessionResult, error) {
	if query == "" {
		return nil, fmt.Errorf("empty search query")
	}
	opts.Query = query

	dbPath, err := index.DefaultPath()
	if err != nil {
		return nil, fmt.Errorf("resolve catalog path: %w", err)
	}

	db, err := index.OpenReadOnly(dbPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	results, _, err := index.NewService(db).Search(ctx, opts)
	if err != nil {
		return nil, err
	}
	return results, nil
}
