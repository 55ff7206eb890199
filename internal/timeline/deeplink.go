package timeline

import (
	"time"

	"github.com/retracehq/retrace/internal/retrace"
)

// HighlightDuration is how long a deep-linked event stays highlighted.
const HighlightDuration = 2500 * time.Millisecond

// DeepLink locates a target event inside the grouped items, fires a one-shot
// scroll toward it, and tracks whether active filters currently hide it.
//
// The scroll latch burns per distinct target id: unrelated re-evaluations
// never re-fire it, and setting a different id re-arms it.
type DeepLink struct {
	target      string
	scrolledFor string

	filteredOut bool
	onFiltered  func(hidden bool)

	highlightID    string
	highlightUntil time.Time

	now func() time.Time
}

// NewDeepLink creates a DeepLink. now may be nil for the wall clock; tests
// inject their own.
func NewDeepLink(now func() time.Time) *DeepLink {
	if now == nil {
		now = time.Now
	}
	return &DeepLink{now: now}
}

// SetOnTargetFiltered installs the hidden-by-filter transition callback.
func (d *DeepLink) SetOnTargetFiltered(fn func(hidden bool)) { d.onFiltered = fn }

// Target returns the current target event id ("" when none).
func (d *DeepLink) Target() string { return d.target }

// SetTarget replaces the target event id. A changed id re-arms the scroll
// latch and cancels the previous target's highlight.
func (d *DeepLink) SetTarget(id string) {
	if id == d.target {
		return
	}
	d.target = id
	d.CancelHighlight()
}

// Evaluate checks the target against the unfiltered events (existence) and
// the current items (visibility), updates the filtered-out signal, and
// reports whether the one-shot scroll should fire now. Callers re-run it on
// every filter change so arriving on a hidden bookmark and then enabling
// its kind clears the signal and performs the deferred scroll.
//
// Returns the containing item index and fire=true exactly once per target
// while it is visible. A missing or empty target is a silent no-op.
func (d *DeepLink) Evaluate(events []retrace.Event, items []Item) (int, bool) {
	if d.target == "" {
		d.setFiltered(false)
		return -1, false
	}

	exists := false
	for i := range events {
		if events[i].ID == d.target {
			exists = true
			break
		}
	}
	if !exists {
		// Absent means "doesn't exist", not "filtered out".
		d.setFiltered(false)
		return -1, false
	}

	idx := FindItem(items, d.target)
	if idx < 0 {
		d.setFiltered(true)
		return -1, false
	}
	d.setFiltered(false)

	if d.scrolledFor == d.target {
		return idx, false
	}
	return idx, true
}

// ConfirmScrolled burns the latch for the current target and starts its
// highlight window.
func (d *DeepLink) ConfirmScrolled() {
	d.scrolledFor = d.target
	d.highlightID = d.target
	d.highlightUntil = d.now().Add(HighlightDuration)
}

// Abandon burns the latch without highlighting, used when the scroll could
// not be performed (geometry never became available).
func (d *DeepLink) Abandon() {
	d.scrolledFor = d.target
}

// TargetFilteredOut reports whether the target exists but is hidden by the
// current filters, as of the last Evaluate.
func (d *DeepLink) TargetFilteredOut() bool { return d.filteredOut }

// Highlighted reports whether the event with the given id is inside its
// highlight window.
func (d *DeepLink) Highlighted(id string) bool {
	return id != "" && id == d.highlightID && d.now().Before(d.highlightUntil)
}

// ClearExpired drops the highlight once its window has passed. Returns true
// when state changed so hosts know to re-render.
func (d *DeepLink) ClearExpired() bool {
	if d.highlightID == "" || d.now().Before(d.highlightUntil) {
		return false
	}
	d.highlightID = ""
	d.highlightUntil = time.Time{}
	return true
}

// CancelHighlight drops any highlight immediately.
func (d *DeepLink) CancelHighlight() {
	d.highlightID = ""
	d.highlightUntil = time.Time{}
}

func (d *DeepLink) setFiltered(hidden bool) {
	if hidden == d.filteredOut {
		return
	}
	d.filteredOut = hidden
	if d.onFiltered != nil {
		d.onFiltered(hidden)
	}
}
