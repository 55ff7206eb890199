// Package bookmarks persists user bookmarks on session events.
//
// Bookmarks live in a single JSON file under the retrace config
// directory. Mutations mark the store dirty and schedule a debounced
// save; Close flushes whatever is pending.
package bookmarks

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/retracehq/retrace/internal/config"
	"github.com/retracehq/retrace/internal/retrace"
)

const (
	fileVersion   = 1
	saveDebounce  = 1 * time.Second
	previewLength = 120

	idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	idLength   = 8
)

// Bookmark marks one event inside a recorded session.
type Bookmark struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	ProjectID string    `json:"project_id,omitempty"`
	SessionID string    `json:"session_id"`
	EventID   string    `json:"event_id"`
	Kind      string    `json:"kind,omitempty"`
	Preview   string    `json:"preview,omitempty"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// bookmarksFile is the on-disk envelope.
type bookmarksFile struct {
	Version   int        `json:"version"`
	Bookmarks []Bookmark `json:"bookmarks"`
}

// Path returns the default bookmarks file location.
func Path() (string, error) {
	dir, err := config.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "bookmarks.json"), nil
}

// Manager owns the bookmark collection and its persistence.
type Manager struct {
	mu    sync.Mutex
	path  string
	items map[string]Bookmark // keyed by Bookmark.ID

	debounce time.Duration
	timer    *time.Timer
	dirty    bool
	closed   bool
}

// NewManager loads the bookmark store from its default path.
func NewManager() (*Manager, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return NewManagerAt(path)
}

// NewManagerAt loads the bookmark store from the given file.
// A missing file yields an empty store.
func NewManagerAt(path string) (*Manager, error) {
	m := &Manager{
		path:     path,
		items:    make(map[string]Bookmark),
		debounce: saveDebounce,
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read bookmarks: %w", err)
	}

	var file bookmarksFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse bookmarks: %w", err)
	}
	for _, b := range file.Bookmarks {
		if b.ID == "" || b.SessionID == "" || b.EventID == "" {
			continue
		}
		m.items[b.ID] = b
	}
	return m, nil
}

// Add upserts a bookmark for b's (source, session, event) triple.
// New bookmarks get a minted ID and timestamps; re-adding an already
// bookmarked event refreshes its note, preview and kind instead.
func (m *Manager) Add(b Bookmark) (Bookmark, error) {
	if b.SessionID == "" || b.EventID == "" {
		return Bookmark{}, fmt.Errorf("bookmark needs a session and event id")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if existing, ok := m.findLocked(b.Source, b.SessionID, b.EventID); ok {
		if b.Note != "" {
			existing.Note = b.Note
		}
		if b.Preview != "" {
			existing.Preview = retrace.TruncateString(b.Preview, previewLength)
		}
		if b.Kind != "" {
			existing.Kind = b.Kind
		}
		existing.UpdatedAt = now
		m.items[existing.ID] = existing
		m.scheduleSaveLocked()
		return existing, nil
	}

	id, err := mintID()
	if err != nil {
		return Bookmark{}, err
	}
	b.ID = id
	b.Preview = retrace.TruncateString(b.Preview, previewLength)
	b.CreatedAt = now
	b.UpdatedAt = now
	m.items[b.ID] = b
	m.scheduleSaveLocked()
	return b, nil
}

// Get returns the bookmark with the given ID.
func (m *Manager) Get(id string) (Bookmark, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.items[id]
	return b, ok
}

// Find returns the bookmark on the given event, if any.
func (m *Manager) Find(source, sessionID, eventID string) (Bookmark, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findLocked(source, sessionID, eventID)
}

func (m *Manager) findLocked(source, sessionID, eventID string) (Bookmark, bool) {
	for _, b := range m.items {
		if b.Source == source && b.SessionID == sessionID && b.EventID == eventID {
			return b, true
		}
	}
	return Bookmark{}, false
}

// SetNote updates the note on an existing bookmark.
func (m *Manager) SetNote(id, note string) (Bookmark, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.items[id]
	if !ok {
		return Bookmark{}, fmt.Errorf("bookmark %s not found", id)
	}
	b.Note = note
	b.UpdatedAt = time.Now()
	m.items[id] = b
	m.scheduleSaveLocked()
	return b, nil
}

// Remove deletes a bookmark by ID. Removing an unknown ID is a no-op.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return
	}
	delete(m.items, id)
	m.scheduleSaveLocked()
}

// List returns all bookmarks, newest first.
func (m *Manager) List() []Bookmark {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Bookmark, 0, len(m.items))
	for _, b := range m.items {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ForSession returns the bookmarks in one session, oldest first.
func (m *Manager) ForSession(source, sessionID string) []Bookmark {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Bookmark
	for _, b := range m.items {
		if b.Source == source && b.SessionID == sessionID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Len returns the number of bookmarks.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Save writes the store to disk immediately, canceling any pending
// debounced save.
func (m *Manager) Save() error {
	m.mu.Lock()
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.dirty = false
	data, err := m.marshalLocked()
	path := m.path
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return writeFile(path, data)
}

// Close flushes pending changes and stops the save timer.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	dirty := m.dirty
	m.mu.Unlock()

	if dirty {
		return m.Save()
	}
	m.mu.Lock()
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.mu.Unlock()
	return nil
}

// scheduleSaveLocked marks the store dirty and (re)starts the debounce
// timer. Callers hold m.mu.
func (m *Manager) scheduleSaveLocked() {
	m.dirty = true
	if m.closed {
		return
	}
	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = time.AfterFunc(m.debounce, func() {
		m.Save()
	})
}

func (m *Manager) marshalLocked() ([]byte, error) {
	file := bookmarksFile{Version: fileVersion, Bookmarks: make([]Bookmark, 0, len(m.items))}
	for _, b := range m.items {
		file.Bookmarks = append(file.Bookmarks, b)
	}
	// Stable file contents keep diffs readable.
	sort.Slice(file.Bookmarks, func(i, j int) bool {
		if !file.Bookmarks[i].CreatedAt.Equal(file.Bookmarks[j].CreatedAt) {
			return file.Bookmarks[i].CreatedAt.Before(file.Bookmarks[j].CreatedAt)
		}
		return file.Bookmarks[i].ID < file.Bookmarks[j].ID
	})
	return json.MarshalIndent(file, "", "  ")
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// mintID creates a short random bookmark ID (e.g. "bm-4k9tz0qa").
func mintID() (string, error) {
	buf := make([]byte, idLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate bookmark id: %w", err)
	}
	id := make([]byte, idLength)
	for i := range buf {
		id[i] = idAlphabet[int(buf[i])%len(idAlphabet)]
	}
	return "bm-" + string(id), nil
}
