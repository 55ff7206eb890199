package tui

import "github.com/retracehq/retrace/internal/timeline"

// viewGeometry adapts a page's scroll state to the timeline engine's
// geometry contract. The page owns the values; the engine reads them and
// scrolls programmatically through SetScrollOffset. Subscribers (the
// engine's active tracker) are notified synchronously on every change, so
// everything stays on the bubbletea event loop.
type viewGeometry struct {
	offset  int
	height  int
	mounted bool

	subs    map[int]func()
	nextSub int
}

var (
	_ timeline.Geometry = (*viewGeometry)(nil)
	_ timeline.Notifier = (*viewGeometry)(nil)
	_ timeline.Scroller = (*viewGeometry)(nil)
)

func newViewGeometry() *viewGeometry {
	return &viewGeometry{subs: make(map[int]func())}
}

func (g *viewGeometry) ScrollOffset() int   { return g.offset }
func (g *viewGeometry) ViewportHeight() int { return g.height }
func (g *viewGeometry) Mounted() bool       { return g.mounted }

// SetScrollOffset moves the scroll position. Negative offsets clamp to 0;
// the upper bound is the caller's business since total content height lives
// with the window, not here.
func (g *viewGeometry) SetScrollOffset(offset int) {
	if offset < 0 {
		offset = 0
	}
	if offset == g.offset {
		return
	}
	g.offset = offset
	g.notify()
}

// Subscribe registers a change callback and returns its cancel func.
func (g *viewGeometry) Subscribe(fn func()) func() {
	g.nextSub++
	id := g.nextSub
	g.subs[id] = fn
	return func() { delete(g.subs, id) }
}

// setViewport updates the visible area after a resize or remount.
func (g *viewGeometry) setViewport(height int, mounted bool) {
	if height == g.height && mounted == g.mounted {
		return
	}
	g.height = height
	g.mounted = mounted
	g.notify()
}

func (g *viewGeometry) notify() {
	for _, fn := range g.subs {
		fn()
	}
}
