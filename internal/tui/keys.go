package tui

import "charm.land/bubbles/v2/key"

// timelineKeyMap defines key bindings for the timeline page
type timelineKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	PgUp   key.Binding
	PgDown key.Binding
	Home   key.Binding
	End    key.Binding
	Quit   key.Binding
	Back   key.Binding

	// Kind filter toggles
	ToggleUser      key.Binding
	ToggleAssistant key.Binding
	ToggleTools     key.Binding
	ToggleResults   key.Binding
	ToggleThinking  key.Binding

	// Timeline actions
	Search    key.Binding
	NextMatch key.Binding
	PrevMatch key.Binding
	Contents  key.Binding
	Bookmark  key.Binding
	Note      key.Binding
	Follow    key.Binding
	Reveal    key.Binding
}

// defaultTimelineKeyMap returns the default key bindings for the timeline
func defaultTimelineKeyMap() timelineKeyMap {
	return timelineKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "scroll down"),
		),
		PgUp: key.NewBinding(
			key.WithKeys("pgup", "b"),
			key.WithHelp("pgup", "page up"),
		),
		PgDown: key.NewBinding(
			key.WithKeys("pgdown", " "),
			key.WithHelp("pgdn", "page down"),
		),
		Home: key.NewBinding(
			key.WithKeys("home", "g"),
			key.WithHelp("g", "go to top"),
		),
		End: key.NewBinding(
			key.WithKeys("end", "G"),
			key.WithHelp("G", "go to bottom"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),

		// Kind filter toggles
		ToggleUser: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "toggle user"),
		),
		ToggleAssistant: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "toggle assistant"),
		),
		ToggleTools: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "toggle tool calls"),
		),
		ToggleResults: key.NewBinding(
			key.WithKeys("4"),
			key.WithHelp("4", "toggle tool results"),
		),
		ToggleThinking: key.NewBinding(
			key.WithKeys("5"),
			key.WithHelp("5", "toggle thinking"),
		),

		Search: key.NewBinding(
			key.WithKeys("/", "ctrl+f"),
			key.WithHelp("/", "search"),
		),
		NextMatch: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "next match"),
		),
		PrevMatch: key.NewBinding(
			key.WithKeys("N", "shift+enter"),
			key.WithHelp("N", "previous match"),
		),
		Contents: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "contents"),
		),
		Bookmark: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "toggle bookmark"),
		),
		Note: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "edit note"),
		),
		Follow: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "follow"),
		),
		Reveal: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "reveal hidden"),
		),
	}
}
