package timeline

import "github.com/retracehq/retrace/internal/retrace"

// Anchor selects the reading position an ActiveTracker follows. Each view
// picks exactly one: the full timeline reading view anchors on the viewport
// middle, the table-of-contents overlay anchors on a fixed offset from the
// top. Mixing anchors within one view is not supported.
type Anchor int

const (
	// AnchorMiddle targets the vertical middle of the viewport. Zero value
	// so an unconfigured engine reads like the main timeline view.
	AnchorMiddle Anchor = iota
	// AnchorTop targets a fixed line offset below the container top.
	AnchorTop
)

// ResolveActive finds the visible item whose [Start, End) interval contains
// the target line. When no interval contains it (fast scroll, list
// boundaries), the item whose center lies closest to the target wins.
// Returns false only for an empty visible set.
func ResolveActive(visible []VisibleItem, target int) (int, bool) {
	if len(visible) == 0 {
		return -1, false
	}

	best := -1
	bestDist := -1
	for _, v := range visible {
		if v.Start <= target && target < v.End {
			return v.Index, true
		}
		center := (v.Start + v.End) / 2
		dist := target - center
		if dist < 0 {
			dist = -dist
		}
		if best == -1 || dist < bestDist {
			best = v.Index
			bestDist = dist
		}
	}
	return best, true
}

// ActiveTracker determines which item sits under the reading position and
// reports changes. Recompute is cheap and idempotent so it can run on every
// scroll tick; only the most recent result is kept (last-write-wins), and
// the change callback fires only on transitions.
type ActiveTracker struct {
	anchor    Anchor
	topOffset int // used with AnchorTop

	geom     Geometry
	snapshot func() ([]VisibleItem, []Item)

	activeIndex int
	activeKind  retrace.EventKind
	hasActive   bool

	onChange func(index int, kind retrace.EventKind, ok bool)
	cancel   func()
}

// NewActiveTracker creates a tracker reading scroll state from geom and the
// current items/visible-set from snapshot.
func NewActiveTracker(anchor Anchor, topOffset int, geom Geometry, snapshot func() ([]VisibleItem, []Item)) *ActiveTracker {
	return &ActiveTracker{
		anchor:      anchor,
		topOffset:   topOffset,
		geom:        geom,
		snapshot:    snapshot,
		activeIndex: -1,
	}
}

// SetOnChange installs the transition callback. Pass nil to remove it.
func (t *ActiveTracker) SetOnChange(fn func(index int, kind retrace.EventKind, ok bool)) {
	t.onChange = fn
}

// Watch subscribes to the geometry's change notifications when the provider
// supports them. Views that poll instead may simply call Recompute.
func (t *ActiveTracker) Watch() {
	if t.cancel != nil {
		return
	}
	if n, ok := t.geom.(Notifier); ok {
		t.cancel = n.Subscribe(t.Recompute)
	}
}

// Close removes the geometry subscription. Recompute calls after Close are
// still valid; only the push notifications stop.
func (t *ActiveTracker) Close() {
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}

// Active returns the current item index and kind; ok is false when nothing
// is active (empty timeline or unmounted view).
func (t *ActiveTracker) Active() (int, retrace.EventKind, bool) {
	return t.activeIndex, t.activeKind, t.hasActive
}

// target computes the anchor line for the current scroll state.
func (t *ActiveTracker) target() int {
	offset := t.geom.ScrollOffset()
	if t.anchor == AnchorMiddle {
		return offset + t.geom.ViewportHeight()/2
	}
	return offset + t.topOffset
}

// Recompute re-derives the active item from the current geometry and
// snapshot, emitting the change callback on transitions.
func (t *ActiveTracker) Recompute() {
	if t.geom == nil || !t.geom.Mounted() {
		t.set(-1, "", false)
		return
	}

	visible, items := t.snapshot()
	idx, ok := ResolveActive(visible, t.target())
	if !ok || idx < 0 || idx >= len(items) {
		t.set(-1, "", false)
		return
	}
	t.set(idx, items[idx].Kind(), true)
}

func (t *ActiveTracker) set(index int, kind retrace.EventKind, ok bool) {
	if index == t.activeIndex && kind == t.activeKind && ok == t.hasActive {
		return
	}
	t.activeIndex = index
	t.activeKind = kind
	t.hasActive = ok
	if t.onChange != nil {
		t.onChange(index, kind, ok)
	}
}
