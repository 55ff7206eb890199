package timeline

import (
	"encoding/json"
	"strings"
)

// eventMatches reports whether a single event contains the lowercased query
// in its content or its JSON-serialized tool input. A tool input that fails
// to serialize makes that event non-matching rather than failing the pass.
func eventMatchesQuery(content string, toolInput map[string]any, loweredQuery string) bool {
	if strings.Contains(strings.ToLower(content), loweredQuery) {
		return true
	}
	if len(toolInput) == 0 {
		return false
	}
	raw, err := json.Marshal(toolInput)
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(raw)), loweredQuery)
}

// itemMatches applies the event rule to every member: a group matches when
// any member matches.
func itemMatches(it Item, loweredQuery string) bool {
	for _, e := range it.Events {
		if eventMatchesQuery(e.Content, e.ToolInput, loweredQuery) {
			return true
		}
	}
	return false
}

// ComputeMatches returns the indices of items matching the query, in
// ascending order. The empty query matches nothing (search off, not
// "match everything"). Matching is case-insensitive substring containment.
// Deterministic for identical (items, query) pairs.
func ComputeMatches(items []Item, query string) []int {
	if query == "" {
		return nil
	}
	lowered := strings.ToLower(query)
	var matches []int
	for i, it := range items {
		if itemMatches(it, lowered) {
			matches = append(matches, i)
		}
	}
	return matches
}

// Search holds the in-memory match set over the current items plus the
// navigation pointer. All methods are total: with no matches, navigation
// no-ops and reports ok=false.
type Search struct {
	items   []Item
	query   string
	matches []int
	pos     int
}

// NewSearch returns an inactive search (empty query, no matches).
func NewSearch() *Search {
	return &Search{}
}

// Active reports whether a non-empty query is set.
func (s *Search) Active() bool { return s.query != "" }

// Query returns the current query string.
func (s *Search) Query() string { return s.query }

// Matches returns the current match list (item indices, ascending).
func (s *Search) Matches() []int { return s.matches }

// Pos returns the current pointer and the match count.
func (s *Search) Pos() (current, total int) { return s.pos, len(s.matches) }

// SetItems replaces the item set and recomputes matches for the current
// query. The pointer is kept if it still addresses a match, otherwise it
// snaps back to 0.
func (s *Search) SetItems(items []Item) {
	s.items = items
	s.matches = ComputeMatches(items, s.query)
	if s.pos >= len(s.matches) {
		s.pos = 0
	}
}

// SetQuery replaces the query, recomputes matches, and resets the pointer
// to 0. Returns the first match's item index when one exists, so callers
// can scroll to it.
func (s *Search) SetQuery(query string) (int, bool) {
	s.query = query
	s.matches = ComputeMatches(s.items, query)
	s.pos = 0
	return s.Current()
}

// Clear drops the query and matches (Escape semantics).
func (s *Search) Clear() {
	s.query = ""
	s.matches = nil
	s.pos = 0
}

// Current returns the item index under the pointer.
func (s *Search) Current() (int, bool) {
	if len(s.matches) == 0 {
		return -1, false
	}
	return s.matches[s.pos], true
}

// Next advances the pointer with wraparound and returns the new current
// item index. No-op on an empty match list.
func (s *Search) Next() (int, bool) {
	if len(s.matches) == 0 {
		return -1, false
	}
	s.pos = (s.pos + 1) % len(s.matches)
	return s.matches[s.pos], true
}

// Prev steps the pointer back with wraparound and returns the new current
// item index. No-op on an empty match list.
func (s *Search) Prev() (int, bool) {
	if len(s.matches) == 0 {
		return -1, false
	}
	s.pos = (s.pos - 1 + len(s.matches)) % len(s.matches)
	return s.matches[s.pos], true
}
