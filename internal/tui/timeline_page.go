package tui

import (
	"fmt"
	"strings"
	"time"

	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"

	"github.com/retracehq/retrace/internal/bookmarks"
	"github.com/retracehq/retrace/internal/i18n"
	"github.com/retracehq/retrace/internal/retrace"
	"github.com/retracehq/retrace/internal/timeline"
	"github.com/retracehq/retrace/internal/tuilog"
)

// TimelinePage renders one session as a scrollable timeline. The timeline
// engine owns grouping, windowing, search, the reading position and
// deep-link handling; this page feeds it geometry and measured heights and
// translates its outputs into lines on screen.
type TimelinePage struct {
	registry *retrace.StoreRegistry
	meta     retrace.SessionMeta
	marks    *bookmarks.Manager

	engine   *timeline.Timeline
	geom     *viewGeometry
	renderer *Renderer
	header   headerModel
	keys     timelineKeyMap

	width  int
	height int

	loading bool
	loadErr error

	// Engine outputs, kept current through callbacks.
	activeKind   retrace.EventKind
	hasActive    bool
	hiddenTarget bool

	searching   bool
	searchInput textinput.Model

	noting    bool
	noteInput textinput.Model
	noteEvent retrace.Event

	toc *tocOverlay

	follow  bool
	watcher *sessionWatcher

	statusMsg string
}

// NewTimelinePage creates a timeline page for the given session. The
// session body loads asynchronously from Init.
func NewTimelinePage(registry *retrace.StoreRegistry, meta retrace.SessionMeta, marks *bookmarks.Manager) *TimelinePage {
	p := &TimelinePage{
		registry: registry,
		meta:     meta,
		marks:    marks,
		geom:     newViewGeometry(),
		renderer: NewRenderer(),
		header:   newHeaderModel(),
		keys:     defaultTimelineKeyMap(),
		loading:  true,
	}

	m := meta
	p.header.setSessionMeta(&m)

	// The header renders above the scroll area, so deep-link scrolls only
	// need the padding, not extra header clearance.
	p.engine = timeline.New(timeline.Config{HeaderLines: 0})
	p.engine.SetCallbacks(timeline.Callbacks{
		OnActiveKindChange: func(kind retrace.EventKind, ok bool) {
			p.activeKind = kind
			p.hasActive = ok
		},
		OnTargetFilteredChange: func(hidden bool) {
			p.hiddenTarget = hidden
		},
	})
	p.engine.Attach(p.geom)

	si := textinput.New()
	si.Placeholder = i18n.T("tui.timeline.searchPlaceholder", "Search this session...")
	si.Prompt = "/"
	si.CharLimit = 156
	p.searchInput = si

	ni := textinput.New()
	ni.Placeholder = i18n.T("tui.note.placeholder", "Bookmark note...")
	ni.Prompt = ""
	ni.CharLimit = 280
	p.noteInput = ni

	return p
}

// SetDeepLink points the page at an event to scroll to and highlight once
// the session is loaded. Call before the page receives its first messages.
func (p *TimelinePage) SetDeepLink(eventID string) {
	p.engine.SetTarget(eventID)
}

func (p *TimelinePage) Init() tea.Cmd {
	return loadSessionCmd(p.registry, p.meta)
}

func (p *TimelinePage) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		widthChanged := p.width != 0 && msg.Width != p.width
		p.width = msg.Width
		p.height = msg.Height
		p.header.setWidth(msg.Width)
		if widthChanged {
			p.engine.InvalidateMeasurements()
		}
		p.layout()
		return p, p.batch()

	case sessionLoadedMsg:
		p.loading = false
		if msg.err != nil {
			p.loadErr = msg.err
			return p, p.batch()
		}
		p.loadErr = nil
		p.header.setSession(msg.session)
		p.engine.SetEvents(msg.session.Events)
		if p.follow {
			p.scrollToBottom()
		}
		p.layout()
		return p, p.batch()

	case sessionChangedMsg:
		if !p.follow || p.watcher == nil {
			return p, nil
		}
		return p, p.batch(loadSessionCmd(p.registry, p.meta), p.watcher.next())

	case followStoppedMsg:
		if msg.w == p.watcher {
			p.watcher = nil
			p.follow = false
		}
		return p, nil

	case timelineTickMsg:
		p.engine.Tick(msg.gen)
		return p, p.batch()

	case tea.KeyMsg:
		switch {
		case p.noting:
			return p.updateNote(msg)
		case p.searching:
			return p.updateSearch(msg)
		case p.toc != nil:
			return p.updateTOC(msg)
		default:
			return p.updateKeys(msg)
		}
	}
	return p, nil
}

// updateSearch handles keys while the search input is focused.
func (p *TimelinePage) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		query := strings.TrimSpace(p.searchInput.Value())
		p.searching = false
		p.searchInput.Blur()
		if query == "" {
			p.engine.ClearQuery()
		} else {
			p.engine.SetQuery(query)
		}
		p.layout()
		return p, p.batch()

	case "esc":
		p.searching = false
		p.searchInput.Blur()
		p.searchInput.SetValue("")
		p.engine.ClearQuery()
		p.layout()
		return p, p.batch()

	case "ctrl+c":
		p.teardown()
		return p, tea.Quit
	}

	var cmd tea.Cmd
	p.searchInput, cmd = p.searchInput.Update(msg)
	return p, cmd
}

// updateNote handles keys while the bookmark note input is focused.
func (p *TimelinePage) updateNote(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		p.noting = false
		p.noteInput.Blur()
		p.saveNote(strings.TrimSpace(p.noteInput.Value()))
		p.layout()
		return p, p.batch()

	case "esc":
		p.noting = false
		p.noteInput.Blur()
		p.layout()
		return p, p.batch()

	case "ctrl+c":
		p.teardown()
		return p, tea.Quit
	}

	var cmd tea.Cmd
	p.noteInput, cmd = p.noteInput.Update(msg)
	return p, cmd
}

// updateTOC handles keys while the table-of-contents overlay is open.
func (p *TimelinePage) updateTOC(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, p.keys.Quit):
		p.teardown()
		return p, tea.Quit

	case key.Matches(msg, p.keys.Back), key.Matches(msg, p.keys.Contents):
		p.closeTOC()
		return p, p.batch()

	case key.Matches(msg, p.keys.Up):
		p.toc.move(-1)
	case key.Matches(msg, p.keys.Down):
		p.toc.move(1)
	case key.Matches(msg, p.keys.PgUp):
		p.toc.move(-p.toc.pageSize())
	case key.Matches(msg, p.keys.PgDown):
		p.toc.move(p.toc.pageSize())
	case key.Matches(msg, p.keys.Home):
		p.toc.moveTo(0)
	case key.Matches(msg, p.keys.End):
		p.toc.moveTo(p.toc.lastIndex())

	case msg.String() == "enter":
		index := p.toc.current
		p.closeTOC()
		p.jumpToItem(index)
		return p, p.batch()
	}
	return p, nil
}

// updateKeys handles keys in the normal reading mode.
func (p *TimelinePage) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p.statusMsg = ""

	switch {
	case key.Matches(msg, p.keys.Quit):
		p.teardown()
		return p, tea.Quit

	case key.Matches(msg, p.keys.Back):
		if p.engine.Search().Active() {
			p.engine.ClearQuery()
			p.layout()
			return p, p.batch()
		}
		p.teardown()
		return p, func() tea.Msg { return PopPageMsg{} }

	case key.Matches(msg, p.keys.Up):
		p.scrollBy(-1)
	case key.Matches(msg, p.keys.Down):
		p.scrollBy(1)
	case key.Matches(msg, p.keys.PgUp):
		p.scrollBy(-maxInt(1, p.geom.ViewportHeight()-1))
	case key.Matches(msg, p.keys.PgDown):
		p.scrollBy(maxInt(1, p.geom.ViewportHeight()-1))
	case key.Matches(msg, p.keys.Home):
		p.geom.SetScrollOffset(0)
		p.engine.Sync()
	case key.Matches(msg, p.keys.End):
		p.scrollToBottom()

	case key.Matches(msg, p.keys.ToggleUser):
		p.toggleKind(retrace.KindUser)
	case key.Matches(msg, p.keys.ToggleAssistant):
		p.toggleKind(retrace.KindAssistant)
	case key.Matches(msg, p.keys.ToggleTools):
		p.toggleKind(retrace.KindToolUse)
	case key.Matches(msg, p.keys.ToggleResults):
		p.toggleKind(retrace.KindToolResult)
	case key.Matches(msg, p.keys.ToggleThinking):
		p.toggleKind(retrace.KindThinking)

	case key.Matches(msg, p.keys.Search):
		p.searching = true
		p.searchInput.SetValue(p.engine.Search().Query())
		p.searchInput.Focus()
		p.layout()
		return p, textinput.Blink

	case key.Matches(msg, p.keys.NextMatch):
		if p.engine.Search().Active() {
			p.engine.NextMatch()
		}
	case key.Matches(msg, p.keys.PrevMatch):
		if p.engine.Search().Active() {
			p.engine.PrevMatch()
		}

	case key.Matches(msg, p.keys.Contents):
		p.openTOC()

	case key.Matches(msg, p.keys.Bookmark):
		p.toggleBookmark()

	case key.Matches(msg, p.keys.Note):
		if ev, ok := p.activeEvent(); ok {
			p.noteEvent = ev
			p.noteInput.SetValue(p.currentNote(ev))
			p.noteInput.Focus()
			p.noting = true
			p.layout()
			return p, textinput.Blink
		}

	case key.Matches(msg, p.keys.Follow):
		return p.toggleFollow()

	case key.Matches(msg, p.keys.Reveal):
		p.revealTarget()
	}

	return p, p.batch()
}

// toggleFollow starts or stops tailing the session file.
func (p *TimelinePage) toggleFollow() (tea.Model, tea.Cmd) {
	if p.follow {
		p.stopFollow()
		p.statusMsg = i18n.T("tui.timeline.followOff", "follow off")
		return p, p.batch()
	}
	if p.meta.FullPath == "" {
		p.statusMsg = i18n.T("tui.timeline.followUnavailable", "follow unavailable")
		return p, p.batch()
	}
	w, err := newSessionWatcher(p.meta.FullPath)
	if err != nil {
		tuilog.Log.Warn("Follow unavailable", "path", p.meta.FullPath, "error", err)
		p.statusMsg = i18n.T("tui.timeline.followUnavailable", "follow unavailable")
		return p, p.batch()
	}
	p.watcher = w
	p.follow = true
	p.scrollToBottom()
	p.statusMsg = i18n.T("tui.timeline.followOn", "following")
	return p, p.batch(w.next(), loadSessionCmd(p.registry, p.meta))
}

func (p *TimelinePage) stopFollow() {
	if p.watcher != nil {
		p.watcher.stop()
		p.watcher = nil
	}
	p.follow = false
}

// teardown releases everything that outlives a single Update call.
func (p *TimelinePage) teardown() {
	p.stopFollow()
	p.closeTOC()
	p.engine.Close()
}

// batch appends the engine's deferred work to the outgoing commands. Every
// Update path that touched the engine funnels through here so no scheduled
// scroll correction or highlight expiry is dropped.
func (p *TimelinePage) batch(cmds ...tea.Cmd) tea.Cmd {
	for _, f := range p.engine.TakeFollowups() {
		gen := f.Gen
		cmds = append(cmds, tea.Tick(f.After, func(time.Time) tea.Msg {
			return timelineTickMsg{gen: gen}
		}))
	}
	return tea.Batch(cmds...)
}

// layout recomputes the scroll viewport from the page size and the chrome
// currently shown around the body.
func (p *TimelinePage) layout() {
	body := p.height - p.header.height() - 1 // status bar
	if p.bannerVisible() {
		body--
	}
	if p.barVisible() {
		body--
	}
	if body < 0 {
		body = 0
	}
	p.geom.setViewport(body, body > 0 && p.width > 0)
	if p.toc != nil {
		p.toc.resize(body)
	}
	p.engine.Sync()
}

func (p *TimelinePage) bannerVisible() bool {
	return p.hiddenTarget && p.engine.Target() != ""
}

func (p *TimelinePage) barVisible() bool {
	return p.searching || p.noting || p.engine.Search().Active()
}

func (p *TimelinePage) scrollBy(delta int) {
	p.scrollTo(p.geom.ScrollOffset() + delta)
}

func (p *TimelinePage) scrollTo(offset int) {
	if limit := p.maxScroll(); offset > limit {
		offset = limit
	}
	p.geom.SetScrollOffset(offset)
	p.engine.Sync()
}

func (p *TimelinePage) scrollToBottom() {
	p.scrollTo(p.maxScroll())
}

func (p *TimelinePage) maxScroll() int {
	return maxInt(0, p.engine.Window().TotalSize()-p.geom.ViewportHeight())
}

// jumpToItem scrolls so the item starts near the top of the body, mirroring
// the deep-link placement. Used by TOC jumps, which must not re-arm the
// one-shot deep-link latch.
func (p *TimelinePage) jumpToItem(index int) {
	off, ok := p.engine.Window().ScrollToIndex(index, timeline.AlignStart)
	if !ok {
		return
	}
	p.scrollTo(maxInt(0, off-2))
}

func (p *TimelinePage) toggleKind(kind retrace.EventKind) {
	p.engine.ToggleFilter(kind)
	p.clampScroll()
	p.layout()
}

// clampScroll pulls the offset back when filtering shrank the content.
func (p *TimelinePage) clampScroll() {
	if off := p.geom.ScrollOffset(); off > p.maxScroll() {
		p.geom.SetScrollOffset(p.maxScroll())
	}
}

// revealTarget re-enables the kind that hides the deep-link target, letting
// the pending scroll and highlight fire.
func (p *TimelinePage) revealTarget() {
	target := p.engine.Target()
	if target == "" {
		return
	}
	for _, ev := range p.engine.Events() {
		if ev.ID == target {
			p.engine.RevealKind(ev.Kind)
			p.layout()
			return
		}
	}
}

func (p *TimelinePage) openTOC() {
	items := p.engine.Items()
	if len(items) == 0 {
		return
	}
	start := 0
	if idx, _, ok := p.engine.ActiveItem(); ok {
		start = idx
	}
	p.toc = newTOCOverlay(items, p.geom.ViewportHeight(), start)
}

func (p *TimelinePage) closeTOC() {
	if p.toc != nil {
		p.toc.close()
		p.toc = nil
	}
}

// activeEvent returns the first event of the item under the reading
// position.
func (p *TimelinePage) activeEvent() (retrace.Event, bool) {
	idx, _, ok := p.engine.ActiveItem()
	if !ok {
		return retrace.Event{}, false
	}
	items := p.engine.Items()
	if idx < 0 || idx >= len(items) {
		return retrace.Event{}, false
	}
	return items[idx].First(), true
}

// toggleBookmark adds or removes a bookmark on the active event.
func (p *TimelinePage) toggleBookmark() {
	ev, ok := p.activeEvent()
	if !ok || ev.ID == "" {
		return
	}
	if bm, found := p.marks.Find(string(p.meta.Source), p.meta.ID, ev.ID); found {
		p.marks.Remove(bm.ID)
		p.statusMsg = i18n.T("tui.timeline.bookmarkRemoved", "bookmark removed")
		return
	}
	if _, err := p.marks.Add(p.bookmarkAt(ev, "")); err != nil {
		tuilog.Log.Error("Bookmark failed", "event", ev.ID, "error", err)
		p.statusMsg = i18n.T("tui.timeline.bookmarkFailed", "bookmark failed")
		return
	}
	p.statusMsg = i18n.T("tui.timeline.bookmarkAdded", "bookmarked")
}

// saveNote writes the note for the noted event, bookmarking it first when
// needed.
func (p *TimelinePage) saveNote(note string) {
	ev := p.noteEvent
	if ev.ID == "" {
		return
	}
	if bm, found := p.marks.Find(string(p.meta.Source), p.meta.ID, ev.ID); found {
		if _, err := p.marks.SetNote(bm.ID, note); err != nil {
			tuilog.Log.Error("Note failed", "bookmark", bm.ID, "error", err)
			p.statusMsg = i18n.T("tui.timeline.noteFailed", "note failed")
			return
		}
	} else {
		if _, err := p.marks.Add(p.bookmarkAt(ev, note)); err != nil {
			tuilog.Log.Error("Note failed", "event", ev.ID, "error", err)
			p.statusMsg = i18n.T("tui.timeline.noteFailed", "note failed")
			return
		}
	}
	p.statusMsg = i18n.T("tui.timeline.noteSaved", "note saved")
}

func (p *TimelinePage) bookmarkAt(ev retrace.Event, note string) bookmarks.Bookmark {
	return bookmarks.Bookmark{
		Source:    string(p.meta.Source),
		ProjectID: p.meta.ProjectPath,
		SessionID: p.meta.ID,
		EventID:   ev.ID,
		Kind:      string(ev.Kind),
		Preview:   bookmarkPreview(ev),
		Note:      note,
	}
}

// bookmarkPreview summarizes an event for the bookmarks list.
func bookmarkPreview(ev retrace.Event) string {
	if ev.Kind == retrace.KindToolUse {
		return strings.TrimSpace(ev.ToolName + " " + toolInputSummary(ev))
	}
	return firstLine(ev.Content)
}

// currentNote returns the stored note for an event, if it is bookmarked.
func (p *TimelinePage) currentNote(ev retrace.Event) string {
	if bm, found := p.marks.Find(string(p.meta.Source), p.meta.ID, ev.ID); found {
		return bm.Note
	}
	return ""
}

func (p *TimelinePage) viewContent() string {
	var b strings.Builder
	b.WriteString(p.header.view())
	b.WriteString("\n")
	if p.bannerVisible() {
		b.WriteString(p.renderBanner())
		b.WriteString("\n")
	}
	if p.toc != nil {
		b.WriteString(p.toc.view(p.width))
	} else {
		b.WriteString(p.renderBody())
	}
	b.WriteString("\n")
	if p.barVisible() {
		b.WriteString(p.renderBar())
		b.WriteString("\n")
	}
	b.WriteString(p.renderStatusBar())
	return b.String()
}

func (p *TimelinePage) View() tea.View {
	v := tea.NewView(p.viewContent())
	v.AltScreen = true
	return v
}

// renderBody draws the visible window of timeline items into a fixed-height
// line buffer. Rendered heights that differ from the window's estimates are
// fed back through Measure so the next frame's offsets are exact.
func (p *TimelinePage) renderBody() string {
	if p.loading {
		return p.fillBody(i18n.T("tui.timeline.loading", "Loading session..."))
	}
	if p.loadErr != nil {
		return p.fillBody(i18n.Tf("tui.timeline.loadError", "Failed to load session: %v", p.loadErr))
	}

	items := p.engine.Items()
	if len(items) == 0 {
		if len(p.engine.Events()) == 0 {
			return p.fillBody(i18n.T("tui.timeline.empty", "Session has no events."))
		}
		return p.fillBody(i18n.T("tui.timeline.allFiltered", "All events hidden. Press 1-5 to show a kind."))
	}

	viewH := p.geom.ViewportHeight()
	if viewH <= 0 {
		return ""
	}
	offset := p.geom.ScrollOffset()

	buf := make([]string, viewH)
	remeasured := false
	for _, v := range p.engine.Visible() {
		if v.Index < 0 || v.Index >= len(items) {
			continue
		}
		rendered := p.renderer.RenderItem(items[v.Index], p.width, p.itemHighlighted(v.Index, items[v.Index]))
		lines := strings.Split(rendered, "\n")
		if len(lines) != v.End-v.Start {
			p.engine.Measure(v.Index, len(lines))
			remeasured = true
		}
		for i, line := range lines {
			pos := v.Start + i - offset
			if pos >= 0 && pos < viewH {
				buf[pos] = line
			}
		}
	}
	if remeasured {
		p.engine.Sync()
	}
	return strings.Join(buf, "\n")
}

// itemHighlighted reports whether an item gets the highlight style: the
// current search match, or the deep-link target during its highlight window.
func (p *TimelinePage) itemHighlighted(index int, it timeline.Item) bool {
	if cur, ok := p.engine.Search().Current(); ok && cur == index {
		return true
	}
	target := p.engine.Target()
	return target != "" && it.ContainsEvent(target) && p.engine.Highlighted(target)
}

func (p *TimelinePage) fillBody(msg string) string {
	viewH := p.geom.ViewportHeight()
	if viewH <= 0 {
		return msg
	}
	return lipgloss.Place(p.width, viewH, lipgloss.Center, lipgloss.Center, GetStyles().Info.Render(msg))
}

func (p *TimelinePage) renderBanner() string {
	s := GetStyles()
	text := i18n.T("tui.timeline.hiddenTarget", "Bookmarked event is hidden by filters. Press o to reveal it.")
	return ansi.Truncate(s.Banner.Render(text), p.width, "")
}

// renderBar draws the input line under the body: the focused search or note
// input, or the match position for a committed query.
func (p *TimelinePage) renderBar() string {
	s := GetStyles()
	if p.noting {
		return s.Info.Render(i18n.T("tui.timeline.notePrompt", "note: ")) + p.noteInput.View()
	}
	if p.searching {
		return p.searchInput.View()
	}

	search := p.engine.Search()
	cur, total := search.Pos()
	if total == 0 {
		return s.Help.Render(i18n.Tf("tui.search.noMatches", "no matches for %q  (esc to clear)", search.Query()))
	}
	pos := fmt.Sprintf("/%s  %d/%d", search.Query(), cur+1, total)
	hints := i18n.T("tui.search.hints", "enter next  N prev  esc clear")
	return s.Info.Render(pos) + "  " + s.Help.Render(hints)
}

func (p *TimelinePage) renderStatusBar() string {
	s := GetStyles()

	chips := make([]string, 0, 5)
	for i, kind := range retrace.Kinds() {
		chip := fmt.Sprintf("%d:%s", i+1, kindShortLabel(kind))
		if p.engine.Filters().Enabled(kind) {
			chips = append(chips, kindLabelStyle(s, kind).Render(chip))
		} else {
			chips = append(chips, s.Help.Render(chip))
		}
	}

	segments := []string{strings.Join(chips, " ")}
	if p.hasActive {
		badge := "▸ " + kindShortLabel(p.activeKind)
		segments = append(segments, kindLabelStyle(s, p.activeKind).Render(badge))
	}
	if n := len(p.marks.ForSession(string(p.meta.Source), p.meta.ID)); n > 0 {
		segments = append(segments, s.Info.Render(fmt.Sprintf("★ %d", n)))
	}
	if p.follow {
		segments = append(segments, s.Info.Render(i18n.T("tui.timeline.followBadge", "⟳ follow")))
	}
	if p.statusMsg != "" {
		segments = append(segments, s.MoreText.Render(p.statusMsg))
	}

	sep := s.Separator.Render(" │ ")
	return ansi.Truncate(strings.Join(segments, sep), p.width, "…")
}

// kindShortLabel is the compact kind name used in chips and badges.
func kindShortLabel(kind retrace.EventKind) string {
	switch kind {
	case retrace.KindUser:
		return i18n.T("tui.kind.user", "user")
	case retrace.KindAssistant:
		return i18n.T("tui.kind.assistant", "asst")
	case retrace.KindToolUse:
		return i18n.T("tui.kind.tool", "tool")
	case retrace.KindToolResult:
		return i18n.T("tui.kind.result", "result")
	case retrace.KindThinking:
		return i18n.T("tui.kind.thinking", "think")
	default:
		return string(kind)
	}
}

// kindLabelStyle maps an event kind to its label style.
func kindLabelStyle(s *Styles, kind retrace.EventKind) lipgloss.Style {
	switch kind {
	case retrace.KindUser:
		return s.UserLabel
	case retrace.KindAssistant:
		return s.AssistantLabel
	case retrace.KindThinking:
		return s.ThinkingLabel
	case retrace.KindToolUse, retrace.KindToolResult:
		return s.ToolLabel
	default:
		return s.OtherLabel
	}
}
