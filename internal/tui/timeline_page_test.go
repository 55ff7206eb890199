package tui

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/retracehq/retrace/internal/bookmarks"
	"github.com/retracehq/retrace/internal/retrace"
)

func timelineTestSession(n int) *retrace.Session {
	kinds := retrace.Kinds()
	events := make([]retrace.Event, 0, n)
	for i := 0; i < n; i++ {
		ev := retrace.Event{
			ID:      fmt.Sprintf("ev-%03d", i),
			Kind:    kinds[i%len(kinds)],
			Content: fmt.Sprintf("event %d body", i),
		}
		if ev.Kind == retrace.KindToolUse {
			ev.ToolName = "Read"
		}
		events = append(events, ev)
	}
	return &retrace.Session{
		Meta:   retrace.SessionMeta{ID: "sess-1", Source: retrace.SourceClaude},
		Events: events,
	}
}

func testMarks(t *testing.T) *bookmarks.Manager {
	t.Helper()
	m, err := bookmarks.NewManagerAt(filepath.Join(t.TempDir(), "bookmarks.json"))
	if err != nil {
		t.Fatalf("NewManagerAt: %v", err)
	}
	return m
}

func loadedTimelinePage(t *testing.T, n int) *TimelinePage {
	t.Helper()
	page := NewTimelinePage(retrace.NewRegistry(), retrace.SessionMeta{ID: "sess-1", Source: retrace.SourceClaude}, testMarks(t))

	model, _ := page.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	page = model.(*TimelinePage)
	model, _ = page.Update(sessionLoadedMsg{session: timelineTestSession(n)})
	return model.(*TimelinePage)
}

func TestTimelinePageLayout(t *testing.T) {
	page := loadedTimelinePage(t, 20)

	// 24 rows minus two header lines and the status bar.
	if got := page.geom.ViewportHeight(); got != 21 {
		t.Fatalf("expected viewport height 21, got %d", got)
	}
	if !page.geom.Mounted() {
		t.Fatal("expected mounted geometry after first size message")
	}

	// An active query adds the search bar line.
	page.engine.SetQuery("body")
	page.layout()
	if got := page.geom.ViewportHeight(); got != 20 {
		t.Fatalf("expected viewport height 20 with search bar, got %d", got)
	}

	page.engine.ClearQuery()
	page.layout()
	if got := page.geom.ViewportHeight(); got != 21 {
		t.Fatalf("expected viewport height 21 after clearing search, got %d", got)
	}
}

func TestTimelinePageRenderBodyLineCount(t *testing.T) {
	page := loadedTimelinePage(t, 30)

	body := page.renderBody()
	lines := strings.Split(body, "\n")
	if got, want := len(lines), page.geom.ViewportHeight(); got != want {
		t.Fatalf("expected %d body lines, got %d", want, got)
	}
}

func TestTimelinePageDeepLinkScrollsAndHighlights(t *testing.T) {
	marks := testMarks(t)
	page := NewTimelinePage(retrace.NewRegistry(), retrace.SessionMeta{ID: "sess-1", Source: retrace.SourceClaude}, marks)
	page.SetDeepLink("ev-041")

	model, _ := page.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	page = model.(*TimelinePage)
	model, cmd := page.Update(sessionLoadedMsg{session: timelineTestSession(50)})
	page = model.(*TimelinePage)

	if !page.engine.Highlighted("ev-041") {
		t.Fatal("expected deep-link target highlighted after load")
	}
	if page.geom.ScrollOffset() == 0 {
		t.Fatal("expected deep-link scroll to move the viewport")
	}
	// The highlight expiry is deferred work and must come back as a timer
	// command.
	if cmd == nil {
		t.Fatal("expected deferred engine work after deep-link arrival")
	}
}

func TestTimelinePageHiddenTargetRevealed(t *testing.T) {
	marks := testMarks(t)
	page := NewTimelinePage(retrace.NewRegistry(), retrace.SessionMeta{ID: "sess-1", Source: retrace.SourceClaude}, marks)
	page.SetDeepLink("ev-044") // thinking event

	model, _ := page.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	page = model.(*TimelinePage)

	page.toggleKind(retrace.KindThinking)
	model, _ = page.Update(sessionLoadedMsg{session: timelineTestSession(50)})
	page = model.(*TimelinePage)

	if !page.hiddenTarget {
		t.Fatal("expected hidden-target signal when the target kind is filtered")
	}
	if !page.bannerVisible() {
		t.Fatal("expected banner while the target is hidden")
	}
	if page.engine.Highlighted("ev-044") {
		t.Fatal("expected no highlight while the target is hidden")
	}
	// Banner takes one line from the body.
	if got := page.geom.ViewportHeight(); got != 20 {
		t.Fatalf("expected viewport height 20 with banner, got %d", got)
	}

	page.revealTarget()

	if page.hiddenTarget {
		t.Fatal("expected hidden-target signal cleared after reveal")
	}
	if !page.engine.Filters().Enabled(retrace.KindThinking) {
		t.Fatal("expected thinking kind re-enabled by reveal")
	}
	if !page.engine.Highlighted("ev-044") {
		t.Fatal("expected highlight after reveal")
	}
	if got := page.geom.ViewportHeight(); got != 21 {
		t.Fatalf("expected viewport height 21 after banner cleared, got %d", got)
	}
}

func TestTimelinePageFilterTogglesRegroup(t *testing.T) {
	page := loadedTimelinePage(t, 25)

	before := len(page.engine.Items())
	page.toggleKind(retrace.KindToolResult)
	after := len(page.engine.Items())
	if after >= before {
		t.Fatalf("expected fewer items with tool results hidden, got %d -> %d", before, after)
	}

	page.toggleKind(retrace.KindToolResult)
	if got := len(page.engine.Items()); got != before {
		t.Fatalf("expected item count restored, got %d want %d", got, before)
	}
}

func TestTimelinePageBookmarkToggleOnActiveEvent(t *testing.T) {
	page := loadedTimelinePage(t, 15)

	ev, ok := page.activeEvent()
	if !ok {
		t.Fatal("expected an active event on a loaded page")
	}

	page.toggleBookmark()
	if _, found := page.marks.Find(string(retrace.SourceClaude), "sess-1", ev.ID); !found {
		t.Fatalf("expected bookmark for %s after toggle", ev.ID)
	}

	page.toggleBookmark()
	if _, found := page.marks.Find(string(retrace.SourceClaude), "sess-1", ev.ID); found {
		t.Fatalf("expected bookmark for %s removed after second toggle", ev.ID)
	}
}

func TestTimelinePageSearchStatusFlow(t *testing.T) {
	page := loadedTimelinePage(t, 20)

	page.engine.SetQuery("event 1")
	if !page.barVisible() {
		t.Fatal("expected search bar visible with an active query")
	}
	if _, total := page.engine.Search().Pos(); total == 0 {
		t.Fatal("expected matches for a query that occurs in the session")
	}

	cur, _ := page.engine.Search().Pos()
	page.engine.NextMatch()
	if next, _ := page.engine.Search().Pos(); next == cur {
		t.Fatal("expected NextMatch to advance the match pointer")
	}
	page.engine.PrevMatch()
	if back, _ := page.engine.Search().Pos(); back != cur {
		t.Fatalf("match pointer = %d after next+prev, want %d", back, cur)
	}

	page.engine.ClearQuery()
	if page.barVisible() {
		t.Fatal("expected search bar hidden after clear")
	}
}
