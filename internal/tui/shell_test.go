package tui

import (
	"testing"

	tea "charm.land/bubbletea/v2"
)

// sizeProbe records the window sizes a page receives from the shell.
type sizeProbe struct {
	width  int
	height int
	sized  bool
}

func (m *sizeProbe) Init() tea.Cmd { return nil }

func (m *sizeProbe) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if ws, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = ws.Width
		m.height = ws.Height
		m.sized = true
	}
	return m, nil
}

func (m *sizeProbe) View() tea.View { return tea.NewView("") }

// drainCmd runs a command tree and collects every message it produces.
func drainCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if msg == nil {
		return nil
	}
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, sub := range batch {
			out = append(out, drainCmd(sub)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func sizedShell(width, height int) *Shell {
	return &Shell{
		width:  width,
		height: height,
		stack:  NewNavStack(),
	}
}

func TestShellPushSendsReducedPageSize(t *testing.T) {
	s := sizedShell(100, 30)
	page := &sizeProbe{}

	model, cmd := s.Update(PushPageMsg{Item: NavItem{Title: "probe", Model: page}})
	s = model.(*Shell)

	for _, msg := range drainCmd(cmd) {
		model, _ = s.Update(msg)
		s = model.(*Shell)
	}

	if !page.sized {
		t.Fatal("pushed page never received a window size")
	}
	// One row belongs to the shell's breadcrumb bar.
	if page.width != 100 || page.height != 29 {
		t.Fatalf("pushed page sized %dx%d, want 100x29", page.width, page.height)
	}
}

func TestShellPopRebroadcastsWindowSize(t *testing.T) {
	revealed := &sizeProbe{}
	top := &sizeProbe{}

	s := sizedShell(120, 40)
	s.stack.items = append(s.stack.items,
		NavItem{Title: "revealed", Model: revealed},
		NavItem{Title: "top", Model: top},
	)

	model, cmd := s.Update(PopPageMsg{})
	s = model.(*Shell)
	if got := len(s.stack.items); got != 1 {
		t.Fatalf("stack depth after pop = %d, want 1", got)
	}

	msgs := drainCmd(cmd)
	found := false
	for _, msg := range msgs {
		if ws, ok := msg.(tea.WindowSizeMsg); ok {
			found = true
			// The rebroadcast carries the full size; the shell deducts its
			// breadcrumb row on the way down.
			if ws.Width != 120 || ws.Height != 40 {
				t.Fatalf("rebroadcast size %dx%d, want 120x40", ws.Width, ws.Height)
			}
		}
	}
	if !found {
		t.Fatalf("no WindowSizeMsg in pop commands: %#v", msgs)
	}

	for _, msg := range msgs {
		model, _ = s.Update(msg)
		s = model.(*Shell)
	}
	if !revealed.sized {
		t.Fatal("revealed page did not receive the rebroadcast size")
	}
	if revealed.width != 120 || revealed.height != 39 {
		t.Fatalf("revealed page sized %dx%d, want 120x39", revealed.width, revealed.height)
	}
}

func TestShellPopOfLastPageQuits(t *testing.T) {
	s := sizedShell(80, 24)
	s.stack.items = append(s.stack.items, NavItem{Title: "only", Model: &sizeProbe{}})

	_, cmd := s.Update(PopPageMsg{})
	if cmd == nil {
		t.Fatal("expected a quit command, got nil")
	}
	msgs := drainCmd(cmd)
	quit := false
	for _, msg := range msgs {
		if _, ok := msg.(tea.QuitMsg); ok {
			quit = true
		}
	}
	if !quit {
		t.Fatalf("expected QuitMsg when popping the last page, got %#v", msgs)
	}
}

func TestNavStackPath(t *testing.T) {
	ns := NewNavStack()
	ns.items = append(ns.items,
		NavItem{Title: "Projects"},
		NavItem{Title: "myproject"},
		NavItem{Title: "a1b2c3d4"},
	)

	path := ns.Path()
	want := []string{"Projects", "myproject", "a1b2c3d4"}
	if len(path) != len(want) {
		t.Fatalf("Path() length = %d, want %d", len(path), len(want))
	}
	for i := range want {
		if path[i] != want[i] {
			t.Errorf("Path()[%d] = %q, want %q", i, path[i], want[i])
		}
	}
}
