package timeline

import (
	"testing"

	"github.com/retracehq/retrace/internal/retrace"
)

func threeIntervals() []VisibleItem {
	return []VisibleItem{
		{Index: 0, Start: 0, End: 100},
		{Index: 1, Start: 100, End: 250},
		{Index: 2, Start: 250, End: 400},
	}
}

func TestResolveActive_Containment(t *testing.T) {
	vis := threeIntervals()

	tests := []struct {
		target int
		want   int
	}{
		{0, 0},
		{99, 0},
		{100, 1}, // interval start is inclusive
		{120, 1},
		{249, 1},
		{250, 2},
		{399, 2},
	}
	for _, tt := range tests {
		got, ok := ResolveActive(vis, tt.target)
		if !ok || got != tt.want {
			t.Errorf("target %d: expected item %d, got %d ok=%v", tt.target, tt.want, got, ok)
		}
	}
}

func TestResolveActive_ClosestCenterFallback(t *testing.T) {
	vis := threeIntervals()

	// Past the last interval: item 2's center (325) is closest.
	if got, ok := ResolveActive(vis, 500); !ok || got != 2 {
		t.Errorf("target 500: expected item 2, got %d ok=%v", got, ok)
	}
	// Before the first interval.
	if got, ok := ResolveActive(vis, -50); !ok || got != 0 {
		t.Errorf("target -50: expected item 0, got %d ok=%v", got, ok)
	}
}

func TestResolveActive_EmptySet(t *testing.T) {
	if got, ok := ResolveActive(nil, 10); ok || got != -1 {
		t.Errorf("expected (-1,false) for empty set, got (%d,%v)", got, ok)
	}
}

// trackerFixture wires a tracker over a fixed visible set and item list.
func trackerFixture(anchor Anchor, topOffset int) (*ActiveTracker, *fakeGeom) {
	items := Group([]retrace.Event{
		evt("u1", retrace.KindUser, "hi"),
		evt("a1", retrace.KindAssistant, "hello"),
		evt("th1", retrace.KindThinking, "hm"),
	})
	g := &fakeGeom{height: 40, mounted: true}
	tr := NewActiveTracker(anchor, topOffset, g, func() ([]VisibleItem, []Item) {
		return threeIntervals(), items
	})
	return tr, g
}

func TestTracker_AnchorMiddle(t *testing.T) {
	tr, g := trackerFixture(AnchorMiddle, 0)

	tr.Recompute()
	if idx, kind, ok := tr.Active(); !ok || idx != 0 || kind != retrace.KindUser {
		t.Errorf("offset 0: expected item 0 (user), got %d %q ok=%v", idx, kind, ok)
	}

	// Offset 100 puts the viewport middle at line 120, inside item 1.
	g.offset = 100
	tr.Recompute()
	if idx, kind, ok := tr.Active(); !ok || idx != 1 || kind != retrace.KindAssistant {
		t.Errorf("offset 100: expected item 1 (assistant), got %d %q ok=%v", idx, kind, ok)
	}
}

func TestTracker_AnchorTop(t *testing.T) {
	tr, g := trackerFixture(AnchorTop, 3)

	g.offset = 98
	tr.Recompute()
	if idx, _, _ := tr.Active(); idx != 1 {
		t.Errorf("offset 98 + top 3: expected item 1, got %d", idx)
	}

	g.offset = 90
	tr.Recompute()
	if idx, _, _ := tr.Active(); idx != 0 {
		t.Errorf("offset 90 + top 3: expected item 0, got %d", idx)
	}
}

func TestTracker_EmitsOnlyOnTransition(t *testing.T) {
	tr, g := trackerFixture(AnchorMiddle, 0)

	var calls []int
	tr.SetOnChange(func(index int, _ retrace.EventKind, _ bool) {
		calls = append(calls, index)
	})

	tr.Recompute()
	tr.Recompute() // same position, no new emit
	g.offset = 10  // still inside item 0
	tr.Recompute()
	g.offset = 100 // crosses into item 1
	tr.Recompute()

	want := []int{0, 1}
	if len(calls) != len(want) {
		t.Fatalf("expected %d emits, got %d (%v)", len(want), len(calls), calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("emit %d: expected index %d, got %d", i, want[i], calls[i])
		}
	}
}

func TestTracker_UnmountedClearsActive(t *testing.T) {
	tr, g := trackerFixture(AnchorMiddle, 0)

	tr.Recompute()
	if _, _, ok := tr.Active(); !ok {
		t.Fatal("expected an active item while mounted")
	}

	g.mounted = false
	tr.Recompute()
	if idx, _, ok := tr.Active(); ok || idx != -1 {
		t.Errorf("expected no active item when unmounted, got %d ok=%v", idx, ok)
	}
}

func TestTracker_WatchFollowsScroll(t *testing.T) {
	tr, g := trackerFixture(AnchorMiddle, 0)
	tr.Watch()

	g.scroll(250)
	if idx, _, _ := tr.Active(); idx != 2 {
		t.Errorf("expected scroll notification to recompute, got item %d", idx)
	}
}

func TestTracker_CloseRemovesListener(t *testing.T) {
	tr, g := trackerFixture(AnchorMiddle, 0)
	tr.Watch()
	g.scroll(250)

	tr.Close()
	g.scroll(0)
	if idx, _, _ := tr.Active(); idx != 2 {
		t.Errorf("expected no recompute after close, got item %d", idx)
	}
	if g.onChange != nil {
		t.Error("expected the subscription to be cancelled")
	}
}
