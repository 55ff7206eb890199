package tui

import (
	"io"
	"os"
	"strings"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
)

// ConfirmResult is the outcome of a confirmation dialog.
type ConfirmResult int

const (
	ConfirmYes ConfirmResult = iota
	ConfirmNo
	ConfirmCancelled
)

// ConfirmOptions configures the confirm dialog. Zero-value button labels
// default to Yes/No; Output defaults to stdout.
type ConfirmOptions struct {
	Prompt      string
	Affirmative string
	Negative    string
	Default     bool // initial selection, true selects the affirmative
	Output      io.Writer
}

// Confirm runs an interactive yes/no dialog and reports the choice.
// Cancelling (esc, q, ctrl+c) is distinct from answering no, so callers can
// abort multi-step flows instead of treating a cancel as a decision.
func Confirm(opts ConfirmOptions) (ConfirmResult, error) {
	if opts.Affirmative == "" {
		opts.Affirmative = "Yes"
	}
	if opts.Negative == "" {
		opts.Negative = "No"
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	final, err := tea.NewProgram(newConfirmModel(opts)).Run()
	if err != nil {
		return ConfirmCancelled, err
	}
	return final.(confirmModel).result, nil
}

type confirmKeyMap struct {
	Toggle key.Binding
	Submit key.Binding
	Yes    key.Binding
	No     key.Binding
	Cancel key.Binding
	Abort  key.Binding
}

type confirmModel struct {
	opts      ConfirmOptions
	keys      confirmKeyMap
	yesActive bool
	result    ConfirmResult
	done      bool
}

func newConfirmModel(opts ConfirmOptions) confirmModel {
	return confirmModel{
		opts:      opts,
		yesActive: opts.Default,
		result:    ConfirmCancelled,
		keys: confirmKeyMap{
			Toggle: key.NewBinding(
				key.WithKeys("left", "right", "h", "l", "tab", "shift+tab"),
				key.WithHelp("←/→", "toggle"),
			),
			Submit: key.NewBinding(
				key.WithKeys("enter"),
				key.WithHelp("enter", "submit"),
			),
			Yes: key.NewBinding(
				key.WithKeys("y", "Y"),
				key.WithHelp("y", opts.Affirmative),
			),
			No: key.NewBinding(
				key.WithKeys("n", "N"),
				key.WithHelp("n", opts.Negative),
			),
			Cancel: key.NewBinding(
				key.WithKeys("q", "esc"),
				key.WithHelp("esc", "cancel"),
			),
			Abort: key.NewBinding(
				key.WithKeys("ctrl+c"),
				key.WithHelp("ctrl+c", "abort"),
			),
		},
	}
}

func (m confirmModel) Init() tea.Cmd { return nil }

// finish records the result and quits.
func (m confirmModel) finish(r ConfirmResult) (tea.Model, tea.Cmd) {
	m.result = r
	m.done = true
	return m, tea.Quit
}

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Abort):
		m.result = ConfirmCancelled
		m.done = true
		return m, tea.Interrupt
	case key.Matches(keyMsg, m.keys.Cancel):
		return m.finish(ConfirmCancelled)
	case key.Matches(keyMsg, m.keys.Yes):
		return m.finish(ConfirmYes)
	case key.Matches(keyMsg, m.keys.No):
		return m.finish(ConfirmNo)
	case key.Matches(keyMsg, m.keys.Toggle):
		m.yesActive = !m.yesActive
	case key.Matches(keyMsg, m.keys.Submit):
		if m.yesActive {
			return m.finish(ConfirmYes)
		}
		return m.finish(ConfirmNo)
	}
	return m, nil
}

func (m confirmModel) View() tea.View {
	if m.done {
		return tea.NewView("")
	}

	s := GetStyles()
	button := func(label string, active bool) string {
		if active {
			return s.ConfirmSelected.Render(label)
		}
		return s.ConfirmUnselected.Render(label)
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(s.ConfirmPrompt.Render(m.opts.Prompt))
	b.WriteString("\n\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Center,
		button(m.opts.Affirmative, m.yesActive),
		"  ",
		button(m.opts.Negative, !m.yesActive),
	))
	b.WriteString("\n")
	return tea.NewView(b.String())
}
