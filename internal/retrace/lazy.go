package retrace

import (
	"io"
	"sync"
)

// GenericLazySession wraps any SessionReader to provide lazy loading.
// Events are loaded incrementally by content size so huge sessions open fast.
type GenericLazySession struct {
	mu sync.Mutex

	Meta SessionMeta

	events []Event

	reader      SessionReader
	fullyLoaded bool
}

// NewLazySession creates a lazy session wrapper around a SessionReader and
// preloads roughly the first 8KB of content so the first screen renders
// without a second read.
func NewLazySession(reader SessionReader) (*GenericLazySession, error) {
	ls := &GenericLazySession{
		Meta:   reader.Metadata(),
		reader: reader,
		events: make([]Event, 0, 64),
	}

	if err := ls.loadUntilBytes(8 * 1024); err != nil && err != io.EOF {
		reader.Close()
		return nil, err
	}

	return ls, nil
}

func (ls *GenericLazySession) loadUntilBytes(maxBytes int) error {
	contentBytes := 0
	for contentBytes < maxBytes && !ls.fullyLoaded {
		event, err := ls.reader.ReadNext()
		if err == io.EOF {
			ls.fullyLoaded = true
			return io.EOF
		}
		if err != nil {
			return err
		}
		if event != nil {
			ls.events = append(ls.events, *event)
			contentBytes += estimateEventSize(event)
		}
	}
	return nil
}

// estimateEventSize estimates the displayable content size of an event.
func estimateEventSize(e *Event) int {
	size := len(e.Content)
	for k, v := range e.ToolInput {
		size += len(k)
		if s, ok := v.(string); ok {
			size += len(s)
		} else {
			size += 16
		}
	}
	return size
}

// Events returns all currently loaded events.
func (ls *GenericLazySession) Events() []Event {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return ls.events
}

// EventCount returns the number of loaded events.
func (ls *GenericLazySession) EventCount() int {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return len(ls.events)
}

// HasMore returns true if there is more content to load.
func (ls *GenericLazySession) HasMore() bool {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return !ls.fullyLoaded
}

// LoadMore loads additional events up to maxContentBytes of displayable
// content. Returns the number of new events loaded.
func (ls *GenericLazySession) LoadMore(maxContentBytes int) (int, error) {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	if ls.fullyLoaded || ls.reader == nil {
		return 0, nil
	}

	startCount := len(ls.events)
	contentBytes := 0

	for contentBytes < maxContentBytes && !ls.fullyLoaded {
		event, err := ls.reader.ReadNext()
		if err == io.EOF {
			ls.fullyLoaded = true
			break
		}
		if err != nil {
			return len(ls.events) - startCount, err
		}
		if event != nil {
			ls.events = append(ls.events, *event)
			contentBytes += estimateEventSize(event)
		}
	}

	return len(ls.events) - startCount, nil
}

// LoadAll loads all remaining events from the session.
// Use with caution on large sessions.
func (ls *GenericLazySession) LoadAll() error {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	for !ls.fullyLoaded {
		event, err := ls.reader.ReadNext()
		if err == io.EOF {
			ls.fullyLoaded = true
			break
		}
		if err != nil {
			return err
		}
		if event != nil {
			ls.events = append(ls.events, *event)
		}
	}

	return nil
}

// Progress returns the fraction of content loaded (0.0 to 1.0), based on
// event count against the metadata event count when known.
func (ls *GenericLazySession) Progress() float64 {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	if ls.fullyLoaded {
		return 1.0
	}
	if ls.Meta.EventCount > 0 {
		return float64(len(ls.events)) / float64(ls.Meta.EventCount)
	}
	return 0.0
}

// Metadata returns the session metadata.
func (ls *GenericLazySession) Metadata() SessionMeta {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return ls.Meta
}

// Close closes the underlying reader.
func (ls *GenericLazySession) Close() error {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	if ls.reader != nil {
		err := ls.reader.Close()
		ls.reader = nil
		return err
	}
	return nil
}

// ReadNext implements SessionReader but is not supported for lazy sessions.
// Use LoadMore or LoadAll to read events incrementally.
func (ls *GenericLazySession) ReadNext() (*Event, error) {
	return nil, io.ErrClosedPipe
}

var _ LazySession = (*GenericLazySession)(nil)
