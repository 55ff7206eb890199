package tui

import (
	"context"
	"os"
	"strings"

	tea "charm.land/bubbletea/v2"

	"github.com/retracehq/retrace/internal/bookmarks"
	"github.com/retracehq/retrace/internal/retrace"
	"github.com/retracehq/retrace/internal/sources"
	"github.com/retracehq/retrace/internal/tuilog"
)

// NavItem represents a page in the navigation stack.
type NavItem struct {
	Title string
	Model tea.Model
}

// NavStack manages navigation history.
type NavStack struct {
	items []NavItem
}

func NewNavStack() *NavStack {
	return &NavStack{items: make([]NavItem, 0)}
}

// Push adds a page and sends it the current window size so it can lay out
// its viewport before the first real resize arrives.
func (ns *NavStack) Push(item NavItem, width, height int) tea.Cmd {
	ns.items = append(ns.items, item)
	initCmd := item.Model.Init()
	if width > 0 && height > 0 {
		sizeCmd := func() tea.Msg {
			return tea.WindowSizeMsg{Width: width, Height: height}
		}
		return tea.Batch(initCmd, sizeCmd)
	}
	return initCmd
}

func (ns *NavStack) Pop() {
	if len(ns.items) > 0 {
		ns.items = ns.items[:len(ns.items)-1]
	}
}

func (ns *NavStack) Peek() (NavItem, bool) {
	if len(ns.items) == 0 {
		return NavItem{}, false
	}
	return ns.items[len(ns.items)-1], true
}

func (ns *NavStack) IsEmpty() bool {
	return len(ns.items) == 0
}

func (ns *NavStack) Path() []string {
	path := make([]string, len(ns.items))
	for i, item := range ns.items {
		path[i] = item.Title
	}
	return path
}

// Navigation messages.
type PushPageMsg struct {
	Item NavItem
}

type PopPageMsg struct{}

// InitialPage defines which page to start on.
type InitialPage int

const (
	InitialPageAuto     InitialPage = iota // auto-detect project from CWD
	InitialPageSources                     // always start at the source picker
	InitialPageProjects                    // always start at the projects list
)

// pageContent is implemented by pages that expose their body separately from
// the full tea.View, so the shell can draw its breadcrumb line above it.
type pageContent interface {
	viewContent() string
}

// Shell is the main TUI container with navigation. It reserves one line for
// the breadcrumb bar and forwards the remaining height to the active page.
type Shell struct {
	width       int
	height      int
	stack       *NavStack
	registry    *retrace.StoreRegistry
	marks       *bookmarks.Manager
	loading     bool
	loadErr     error
	initialPage InitialPage
}

// NewShell creates the main TUI shell.
func NewShell(initial InitialPage, marks *bookmarks.Manager) *Shell {
	return &Shell{
		stack:       NewNavStack(),
		registry:    retrace.NewRegistry(),
		marks:       marks,
		loading:     true,
		initialPage: initial,
	}
}

// NewShellWithSessions creates a Shell that starts with a pre-loaded session
// picker. Back navigation from the timeline returns to the picker via
// PopPageMsg; cancelling the picker exits the program.
func NewShellWithSessions(registry *retrace.StoreRegistry, sessions []retrace.SessionMeta, marks *bookmarks.Manager) *Shell {
	s := &Shell{
		stack:    NewNavStack(),
		registry: registry,
		marks:    marks,
	}
	s.stack.items = append(s.stack.items, NavItem{
		Title: "Sessions",
		Model: NewSessionPickerModel(sessions),
	})
	return s
}

// NewShellWithSession creates a Shell that opens directly on one session's
// timeline. Back navigation from the timeline exits the program.
func NewShellWithSession(registry *retrace.StoreRegistry, meta retrace.SessionMeta, marks *bookmarks.Manager) *Shell {
	s := &Shell{
		stack:    NewNavStack(),
		registry: registry,
		marks:    marks,
	}
	title := meta.ID
	if len(title) > 8 {
		title = title[:8]
	}
	s.stack.items = append(s.stack.items, NavItem{
		Title: title,
		Model: NewTimelinePage(registry, meta, marks),
	})
	return s
}

func (s *Shell) Init() tea.Cmd {
	tuilog.Log.Info("Shell.Init: starting")
	if !s.loading {
		if current, ok := s.stack.Peek(); ok {
			return current.Model.Init()
		}
		return nil
	}
	return loadSourcesCmd(s.registry)
}

func (s *Shell) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	// The breadcrumb line belongs to the shell; pages lay out in the rest.
	if ws, ok := msg.(tea.WindowSizeMsg); ok {
		s.width = ws.Width
		s.height = ws.Height
		msg = tea.WindowSizeMsg{Width: ws.Width, Height: ws.Height - 1}
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if s.stack.IsEmpty() {
			switch msg.String() {
			case "q", "ctrl+c", "esc":
				return s, tea.Quit
			}
		}
		if msg.String() == "ctrl+b" && s.marks != nil && !s.onBookmarksPage() {
			return s, s.pushPage(NavItem{
				Title: "Bookmarks",
				Model: NewBookmarksPage(s.marks),
			})
		}

	case sourcesLoadedMsg:
		s.loading = false
		if msg.err != nil {
			tuilog.Log.Error("Shell.Update: sources loading failed", "error", msg.err)
			s.loadErr = msg.err
			return s, nil
		}
		return s, s.openInitialPage()

	case sourcePicked:
		if msg.cancelled {
			return s, s.popPage()
		}
		return s, s.openProjects([]retrace.Source{msg.source})

	case projectPickerResult:
		tuilog.Log.Info("Shell.Update: project result", "cancelled", msg.Cancelled, "hasSelection", msg.Selected != nil)
		if msg.Cancelled {
			return s, s.popPage()
		}
		if msg.Selected != nil {
			return s, s.openSessions(*msg.Selected, msg.Variants)
		}

	case SessionPickerResult:
		tuilog.Log.Info("Shell.Update: session result", "cancelled", msg.Cancelled, "hasSelection", msg.Selected != nil)
		if msg.Cancelled {
			return s, s.popPage()
		}
		if msg.Selected != nil {
			return s, s.openTimeline(*msg.Selected, "")
		}

	case OpenBookmarksPageMsg:
		if s.marks != nil && !s.onBookmarksPage() {
			return s, s.pushPage(NavItem{
				Title: "Bookmarks",
				Model: NewBookmarksPage(s.marks),
			})
		}

	case OpenBookmarkMsg:
		return s, s.openBookmark(msg.Bookmark)

	case PushPageMsg:
		return s, s.pushPage(msg.Item)

	case PopPageMsg:
		return s, s.popPage()
	}

	// Pass message to the current page.
	if current, ok := s.stack.Peek(); ok {
		newModel, cmd := current.Model.Update(msg)
		current.Model = newModel
		s.stack.items[len(s.stack.items)-1] = current
		cmds = append(cmds, cmd)
	}

	return s, tea.Batch(cmds...)
}

func (s *Shell) View() tea.View {
	if s.loading {
		v := tea.NewView("Loading sources...")
		v.AltScreen = true
		return v
	}
	if s.loadErr != nil {
		v := tea.NewView("Failed to load sources: " + s.loadErr.Error() + "\n\nPress q to quit.")
		v.AltScreen = true
		return v
	}
	if s.stack.IsEmpty() {
		v := tea.NewView("No recorded sessions found.\n\nPress q to quit.")
		v.AltScreen = true
		return v
	}

	current, _ := s.stack.Peek()
	pc, ok := current.Model.(pageContent)
	if !ok {
		return current.Model.View()
	}

	v := tea.NewView(s.breadcrumb() + "\n" + pc.viewContent())
	v.AltScreen = true
	return v
}

// breadcrumb renders the one-line navigation trail.
func (s *Shell) breadcrumb() string {
	styles := GetStyles()
	trail := "retrace"
	for _, part := range s.stack.Path() {
		trail += " ▸ " + part
	}
	if s.width > 0 {
		trail = retrace.TruncateString(trail, s.width)
		if pad := s.width - len([]rune(trail)); pad > 0 {
			trail += strings.Repeat(" ", pad)
		}
	}
	return styles.StatusBar.Render(trail)
}

// pushPage adds a page with the full window size; the size message loops
// back through Update, which deducts the breadcrumb row exactly once.
func (s *Shell) pushPage(item NavItem) tea.Cmd {
	return s.stack.Push(item, s.width, s.height)
}

// popPage removes the top page and rebroadcasts the window size so the
// revealed page re-renders at the current dimensions.
func (s *Shell) popPage() tea.Cmd {
	s.stack.Pop()
	if s.stack.IsEmpty() {
		return tea.Quit
	}
	if s.width > 0 && s.height > 0 {
		width, height := s.width, s.height
		return func() tea.Msg {
			return tea.WindowSizeMsg{Width: width, Height: height}
		}
	}
	return nil
}

func (s *Shell) onBookmarksPage() bool {
	current, ok := s.stack.Peek()
	if !ok {
		return false
	}
	_, isMarks := current.Model.(BookmarksPage)
	return isMarks
}

// openInitialPage decides the first page after source discovery.
func (s *Shell) openInitialPage() tea.Cmd {
	ctx := context.Background()

	if s.initialPage == InitialPageAuto {
		if cwd, err := os.Getwd(); err == nil {
			if project := s.registry.FindProjectForPath(ctx, cwd); project != nil {
				tuilog.Log.Info("Shell: auto-detected project from cwd", "project", project.Name, "path", project.Path)
				return s.openSessions(*project, nil)
			}
		}
	}

	if s.initialPage != InitialPageProjects && len(s.registry.Sources()) > 1 {
		return s.pushPage(NavItem{
			Title: "Sources",
			Model: newSourcePicker(s.registry),
		})
	}

	return s.openProjects(s.registry.Sources())
}

// openProjects pushes the project picker for the given sources.
func (s *Shell) openProjects(srcs []retrace.Source) tea.Cmd {
	ctx := context.Background()

	var projects []retrace.Project
	for _, src := range srcs {
		store, ok := s.registry.Get(src)
		if !ok {
			continue
		}
		ps, err := store.ListProjects(ctx)
		if err != nil {
			tuilog.Log.Error("Shell: failed to list projects", "source", src, "error", err)
			continue
		}
		projects = append(projects, ps...)
	}

	tuilog.Log.Info("Shell: pushing project picker", "projectCount", len(projects))
	return s.pushPage(NavItem{
		Title: "Projects",
		Model: newProjectPicker(projects),
	})
}

// openSessions pushes the session picker for a project. variants carries the
// same project path as recorded by other sources, so their sessions merge
// into one list.
func (s *Shell) openSessions(project retrace.Project, variants []retrace.Project) tea.Cmd {
	ctx := context.Background()

	if len(variants) == 0 {
		variants = s.projectVariants(ctx, project)
	}

	var sessions []retrace.SessionMeta
	for _, proj := range variants {
		store, ok := s.registry.Get(proj.Source)
		if !ok {
			continue
		}
		list, err := store.ListSessions(ctx, proj.ID)
		if err != nil {
			tuilog.Log.Error("Shell: failed to list sessions", "source", proj.Source, "error", err)
			continue
		}
		sessions = append(sessions, list...)
	}

	tuilog.Log.Info("Shell: pushing session picker", "project", project.Name, "sessionCount", len(sessions))
	return s.pushPage(NavItem{
		Title: project.Name,
		Model: NewSessionPickerModel(sessions),
	})
}

// projectVariants finds every source's record of the same project path.
func (s *Shell) projectVariants(ctx context.Context, project retrace.Project) []retrace.Project {
	var variants []retrace.Project
	for _, store := range s.registry.All() {
		projects, err := store.ListProjects(ctx)
		if err != nil {
			continue
		}
		for _, p := range projects {
			if p.Path == project.Path {
				variants = append(variants, p)
			}
		}
	}
	if len(variants) == 0 {
		variants = []retrace.Project{project}
	}
	return variants
}

// openTimeline pushes the timeline page for a session. target optionally
// names an event to deep-link to.
func (s *Shell) openTimeline(meta retrace.SessionMeta, target string) tea.Cmd {
	page := NewTimelinePage(s.registry, meta, s.marks)
	if target != "" {
		page.SetDeepLink(target)
	}
	title := meta.ID
	if len(title) > 8 {
		title = title[:8]
	}
	return s.pushPage(NavItem{
		Title: title,
		Model: page,
	})
}

// openBookmark resolves a bookmark's session and opens it at the marked
// event.
func (s *Shell) openBookmark(bm bookmarks.Bookmark) tea.Cmd {
	ctx := context.Background()

	if store, ok := s.registry.Get(retrace.Source(bm.Source)); ok {
		if meta, err := store.GetSessionMeta(ctx, bm.SessionID); err == nil && meta != nil {
			return s.openTimeline(*meta, bm.EventID)
		}
	}
	if _, meta, ok := s.registry.FindSession(ctx, bm.SessionID); ok {
		return s.openTimeline(*meta, bm.EventID)
	}

	tuilog.Log.Warn("Shell: bookmarked session not found", "session", bm.SessionID, "source", bm.Source)
	return nil
}

func loadSourcesCmd(registry *retrace.StoreRegistry) tea.Cmd {
	return func() tea.Msg {
		tuilog.Log.Info("Shell: loading sources")

		discovery := retrace.NewDiscovery(sources.AllFactories()...)
		discovered, err := discovery.Discover(context.Background())
		if err != nil {
			tuilog.Log.Error("Shell: discovery failed", "error", err)
			return sourcesLoadedMsg{err: err}
		}

		for _, store := range discovered.All() {
			registry.Register(store)
			tuilog.Log.Info("Shell: registered store", "source", store.Source())
		}
		return sourcesLoadedMsg{}
	}
}
