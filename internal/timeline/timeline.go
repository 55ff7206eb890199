package timeline

import (
	"time"

	"github.com/retracehq/retrace/internal/retrace"
	"github.com/retracehq/retrace/internal/tuilog"
)

// State names the orchestrator's position in its lifecycle. Transitions are
// synchronous: Filtering, Searching and DeepLinking cover one operation and
// return to Loaded before the triggering call returns.
type State int

const (
	StateIdle State = iota
	StateLoaded
	StateFiltering
	StateSearching
	StateDeepLinking
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoaded:
		return "loaded"
	case StateFiltering:
		return "filtering"
	case StateSearching:
		return "searching"
	case StateDeepLinking:
		return "deep-linking"
	default:
		return "unknown"
	}
}

// Config sets the engine's geometry and timing knobs. Zero values pick the
// defaults noted per field.
type Config struct {
	EstimateLines int // estimated item height before measurement (default 4)
	Overscan      int // items rendered beyond each viewport edge (default 8)
	HeaderLines   int // sticky header rows a deep-link scroll must clear
	ScrollPadding int // extra lines below the header on deep-link (default 2)
	SettleDelay   time.Duration // deferred scroll correction delay (default 80ms)
	Anchor        Anchor        // reading-position anchor (default AnchorMiddle)
	Now           func() time.Time
}

func (c Config) withDefaults() Config {
	if c.EstimateLines == 0 {
		c.EstimateLines = 4
	}
	if c.Overscan == 0 {
		c.Overscan = 8
	}
	if c.ScrollPadding == 0 {
		c.ScrollPadding = 2
	}
	if c.SettleDelay == 0 {
		c.SettleDelay = 80 * time.Millisecond
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Callbacks are the engine's outputs to the hosting page.
type Callbacks struct {
	// OnActiveKindChange reports the reading position's event kind;
	// ok=false means no active item (empty or unmounted timeline).
	OnActiveKindChange func(kind retrace.EventKind, ok bool)

	// OnTargetFilteredChange reports that the deep-link target is hidden
	// by filters (or no longer is), so a banner can offer a reveal action.
	OnTargetFilteredChange func(hidden bool)
}

// Followup is deferred engine work the host must deliver back through
// Tick(Gen) after the delay. In the TUI this becomes a timer tick command;
// tests call Tick directly. A Followup whose generation was cancelled in
// the meantime is ignored, which makes late timers harmless.
type Followup struct {
	Gen   int
	After time.Duration
}

// Timeline composes the grouping, windowing, tracking, search and deep-link
// components over one session's events, and owns their shared state:
// filters, memoized items, and deferred scroll corrections.
//
// Everything runs on the host's event loop; no method spawns goroutines or
// arms timers directly.
type Timeline struct {
	cfg Config
	cb  Callbacks

	events   []retrace.Event
	filters  KindFilter
	filtered []retrace.Event
	items    []Item
	itemKeys []string
	dirty    bool

	geom    Geometry
	window  *VirtualWindow
	tracker *ActiveTracker
	search  *Search
	deep    *DeepLink

	state State

	nextGen   int
	followups map[int]func()
	queue     []Followup
	settleGen int // generation of the pending scroll correction, 0 none

	closed bool
}

// New creates an unattached engine in the Idle state.
func New(cfg Config) *Timeline {
	cfg = cfg.withDefaults()
	t := &Timeline{
		cfg:       cfg,
		filters:   NewKindFilter(),
		window:    NewVirtualWindow(cfg.EstimateLines, cfg.Overscan),
		search:    NewSearch(),
		deep:      NewDeepLink(cfg.Now),
		state:     StateIdle,
		followups: make(map[int]func()),
	}
	return t
}

// SetCallbacks wires the output callbacks. Call before Attach so the first
// recompute already reports.
func (t *Timeline) SetCallbacks(cb Callbacks) {
	t.cb = cb
	t.deep.SetOnTargetFiltered(func(hidden bool) {
		if t.cb.OnTargetFilteredChange != nil {
			t.cb.OnTargetFilteredChange(hidden)
		}
	})
}

// Attach binds the engine to the hosting view's geometry and starts active
// tracking. Safe to call again after a remount.
func (t *Timeline) Attach(geom Geometry) {
	if t.tracker != nil {
		t.tracker.Close()
	}
	t.geom = geom
	t.window.Attach(geom)
	t.tracker = NewActiveTracker(t.cfg.Anchor, t.cfg.HeaderLines+1, geom, func() ([]VisibleItem, []Item) {
		return t.window.Visible(), t.Items()
	})
	t.tracker.SetOnChange(func(_ int, kind retrace.EventKind, ok bool) {
		if t.cb.OnActiveKindChange != nil {
			t.cb.OnActiveKindChange(kind, ok)
		}
	})
	t.tracker.Watch()
	t.Sync()

	// A deep-link that arrived before the view mounted can act now.
	t.evaluateDeepLink()
}

// Close tears the engine down: the geometry subscription is removed and all
// deferred work is cancelled, so no timer effect lands after this returns.
func (t *Timeline) Close() {
	if t.tracker != nil {
		t.tracker.Close()
	}
	t.cancelDeferred()
	t.closed = true
}

// State returns the orchestrator state.
func (t *Timeline) State() State { return t.state }

// Window exposes the virtual window for rendering hosts.
func (t *Timeline) Window() *VirtualWindow { return t.window }

// Search exposes the search component.
func (t *Timeline) Search() *Search { return t.search }

// Filters returns the current kind filter set.
func (t *Timeline) Filters() KindFilter { return t.filters }

// Events returns the authoritative unfiltered event list.
func (t *Timeline) Events() []retrace.Event { return t.events }

// FilteredEvents returns the filtered sequence the items were derived from.
func (t *Timeline) FilteredEvents() []retrace.Event {
	t.rebuildIfDirty()
	return t.filtered
}

// Items returns the memoized grouped display items, regrouping only when
// events or filters changed since the last call.
func (t *Timeline) Items() []Item {
	t.rebuildIfDirty()
	return t.items
}

// ActiveItem returns the current reading-position item.
func (t *Timeline) ActiveItem() (int, retrace.EventKind, bool) {
	if t.tracker == nil {
		return -1, "", false
	}
	return t.tracker.Active()
}

// Target returns the deep-link target id.
func (t *Timeline) Target() string { return t.deep.Target() }

// TargetFilteredOut reports whether the deep-link target is hidden by the
// current filter selection.
func (t *Timeline) TargetFilteredOut() bool { return t.deep.TargetFilteredOut() }

// Highlighted reports whether an event id is inside its deep-link
// highlight window.
func (t *Timeline) Highlighted(eventID string) bool { return t.deep.Highlighted(eventID) }

// SetEvents replaces the session's event list and recomputes every derived
// structure. The first load moves Idle → Loaded; later calls (live follow
// appends, reloads) stay Loaded.
func (t *Timeline) SetEvents(events []retrace.Event) {
	if t.closed {
		return
	}
	t.events = events
	t.dirty = true
	t.rebuildIfDirty()
	if t.state == StateIdle {
		t.state = StateLoaded
	}
	t.Sync()
	t.evaluateDeepLink()
}

// ToggleFilter flips one kind's visibility: items regroup, the tracker
// re-syncs, and a pending deep-link target re-evaluates its visibility.
func (t *Timeline) ToggleFilter(kind retrace.EventKind) {
	t.setFilters(t.filters.Toggle(kind))
}

// RevealKind force-enables one kind, the banner's one-key reveal action.
func (t *Timeline) RevealKind(kind retrace.EventKind) {
	t.setFilters(t.filters.Enable(kind))
}

// SetFilters replaces the whole filter selection.
func (t *Timeline) SetFilters(f KindFilter) { t.setFilters(f) }

func (t *Timeline) setFilters(f KindFilter) {
	if t.closed || f == t.filters {
		return
	}
	loaded := t.state != StateIdle
	if loaded {
		t.state = StateFiltering
	}
	t.filters = f
	t.dirty = true
	t.rebuildIfDirty()
	t.Sync()
	t.evaluateDeepLink()
	if loaded {
		t.state = StateLoaded
	}
}

// SetQuery replaces the search query. The match pointer resets to 0 and the
// view scrolls to the first match when one exists. Pending deferred scroll
// work for the previous query is cancelled.
func (t *Timeline) SetQuery(query string) {
	if t.closed || query == t.search.Query() {
		return
	}
	loaded := t.state != StateIdle
	if loaded {
		t.state = StateSearching
	}
	t.cancelDeferred()
	idx, ok := t.search.SetQuery(query)
	if ok {
		t.scrollToItem(idx, AlignCenter)
	}
	if loaded {
		t.state = StateLoaded
	}
}

// ClearQuery drops the query and match state (Escape semantics).
func (t *Timeline) ClearQuery() {
	if t.closed {
		return
	}
	t.cancelDeferred()
	t.search.Clear()
}

// NextMatch advances to the next match with wraparound and scrolls to it.
func (t *Timeline) NextMatch() (int, bool) {
	if t.closed {
		return -1, false
	}
	idx, ok := t.search.Next()
	if ok {
		t.scrollToItem(idx, AlignCenter)
	}
	return idx, ok
}

// PrevMatch steps back to the previous match with wraparound and scrolls
// to it.
func (t *Timeline) PrevMatch() (int, bool) {
	if t.closed {
		return -1, false
	}
	idx, ok := t.search.Prev()
	if ok {
		t.scrollToItem(idx, AlignCenter)
	}
	return idx, ok
}

// SetTarget supplies a deep-link target event id (e.g. opening a bookmark).
// Pending deferred work for a previous target is cancelled; the scroll and
// highlight fire at most once per distinct id.
func (t *Timeline) SetTarget(eventID string) {
	if t.closed {
		return
	}
	loaded := t.state != StateIdle
	if loaded {
		t.state = StateDeepLinking
	}
	t.cancelDeferred()
	t.deep.SetTarget(eventID)
	t.evaluateDeepLink()
	if loaded {
		t.state = StateLoaded
	}
}

// Measure records a rendered item height and keeps the active state in sync
// with the corrected offsets.
func (t *Timeline) Measure(index, lines int) {
	t.window.Measure(index, lines)
}

// InvalidateMeasurements drops all measured heights, e.g. after a width
// change re-wraps every item.
func (t *Timeline) InvalidateMeasurements() {
	t.window.Reset()
}

// Visible returns the items to render for the current scroll state.
func (t *Timeline) Visible() []VisibleItem {
	t.rebuildIfDirty()
	return t.window.Visible()
}

// Sync recomputes the active item from current geometry. Hosts call it
// after every scroll, resize, or measurement change; it is cheap and
// idempotent.
func (t *Timeline) Sync() {
	t.rebuildIfDirty()
	if t.tracker != nil {
		t.tracker.Recompute()
	}
}

// TakeFollowups drains the deferred actions the host must schedule; each
// comes back through Tick(gen) after its delay.
func (t *Timeline) TakeFollowups() []Followup {
	out := t.queue
	t.queue = nil
	return out
}

// Tick delivers a followup back to the engine. Stale generations (cancelled
// or superseded) are ignored.
func (t *Timeline) Tick(gen int) {
	fn, ok := t.followups[gen]
	if !ok {
		return
	}
	delete(t.followups, gen)
	if gen == t.settleGen {
		t.settleGen = 0
	}
	fn()
}

// rebuildIfDirty re-derives filtered events and grouped items, carrying
// measured heights across by item key so regroups don't lose geometry.
func (t *Timeline) rebuildIfDirty() {
	if !t.dirty {
		return
	}

	oldIndex := make(map[string]int, len(t.itemKeys))
	for i, k := range t.itemKeys {
		oldIndex[k] = i
	}

	t.filtered = t.filters.Apply(t.events)
	t.items = Group(t.filtered)

	t.itemKeys = make([]string, len(t.items))
	mapping := make([]int, len(t.items))
	for i, it := range t.items {
		key := it.Key()
		t.itemKeys[i] = key
		if old, ok := oldIndex[key]; ok {
			mapping[i] = old
		} else {
			mapping[i] = -1
		}
	}
	t.window.RemapHeights(mapping)
	t.search.SetItems(t.items)
	t.dirty = false
}

// scrollToItem applies a programmatic scroll and schedules one deferred
// correction so offsets recomputed after real measurements win. A newer
// scroll supersedes the pending correction.
func (t *Timeline) scrollToItem(index int, align Align) bool {
	off, ok := t.window.ScrollToIndex(index, align)
	if !ok {
		return false
	}
	t.applyOffset(off)

	if t.settleGen != 0 {
		delete(t.followups, t.settleGen)
	}
	t.settleGen = t.schedule(t.cfg.SettleDelay, func() {
		if off, ok := t.window.ScrollToIndex(index, align); ok {
			t.applyOffset(off)
		}
	})
	return true
}

func (t *Timeline) applyOffset(offset int) {
	if s, ok := t.geom.(Scroller); ok {
		s.SetScrollOffset(offset)
	}
	t.Sync()
}

// evaluateDeepLink runs the deep-link decision: update the filtered-out
// signal, and perform the one-shot scroll+highlight when the target is
// visible. If geometry isn't ready the scroll retries once after the settle
// delay, then abandons.
func (t *Timeline) evaluateDeepLink() {
	idx, fire := t.deep.Evaluate(t.events, t.Items())
	if !fire {
		return
	}

	if t.deepLinkScroll(idx) {
		return
	}

	// Geometry unavailable: one deferred retry, then abandon.
	t.schedule(t.cfg.SettleDelay, func() {
		idx, fire := t.deep.Evaluate(t.events, t.Items())
		if !fire {
			return
		}
		if !t.deepLinkScroll(idx) {
			tuilog.Log.Debug("deep-link scroll abandoned", "target", t.deep.Target())
			t.deep.Abandon()
		}
	})
}

// deepLinkScroll positions the item below the sticky header plus padding
// and starts the highlight window. Returns false when geometry is not
// available yet.
func (t *Timeline) deepLinkScroll(index int) bool {
	off, ok := t.window.ScrollToIndex(index, AlignStart)
	if !ok {
		return false
	}
	off -= t.cfg.HeaderLines + t.cfg.ScrollPadding
	if off < 0 {
		off = 0
	}
	t.applyOffset(off)
	t.deep.ConfirmScrolled()

	// Self-clearing highlight.
	t.schedule(HighlightDuration+10*time.Millisecond, func() {
		t.deep.ClearExpired()
	})
	return true
}

// schedule registers deferred work and queues its Followup for the host.
func (t *Timeline) schedule(after time.Duration, fn func()) int {
	t.nextGen++
	gen := t.nextGen
	t.followups[gen] = fn
	t.queue = append(t.queue, Followup{Gen: gen, After: after})
	return gen
}

// cancelDeferred wipes all pending deferred work; late Ticks become no-ops.
func (t *Timeline) cancelDeferred() {
	t.followups = make(map[int]func())
	t.queue = nil
	t.settleGen = 0
}
