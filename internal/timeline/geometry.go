package timeline

import (
	"sync"
	"time"
)

// Geometry reports the scroll state of whatever view hosts the timeline.
// Offsets and heights are in lines. A nil or unmounted Geometry turns every
// positional operation into a no-op, so the engine can be driven before the
// first layout without special cases at call sites.
type Geometry interface {
	// ScrollOffset returns the first visible virtual line.
	ScrollOffset() int

	// ViewportHeight returns the rows available to the timeline body.
	ViewportHeight() int

	// Mounted reports whether the view has had a real layout yet.
	Mounted() bool
}

// Notifier is implemented by Geometry providers that can push change
// notifications (scroll or resize). Subscribe returns a cancel func;
// trackers call it on teardown so no callback fires after Close.
type Notifier interface {
	Subscribe(onChange func()) (cancel func())
}

// Scroller is implemented by Geometry providers that accept programmatic
// scrolling. Hosts without it (a measuring pass, a detached engine) simply
// don't move; scroll requests still return the computed offset.
type Scroller interface {
	SetScrollOffset(offset int)
}

// SingleShot is a cancellable one-shot timer: scheduling replaces any
// pending run, so a superseded deferred action never fires after a newer
// one. Safe for concurrent use.
type SingleShot struct {
	mu    sync.Mutex
	timer *time.Timer
}

// Schedule runs fn after d, cancelling any previously scheduled run.
func (s *SingleShot) Schedule(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(d, fn)
}

// Stop cancels the pending run, if any.
func (s *SingleShot) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
