package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/retracehq/retrace/internal/bookmarks"
	"github.com/retracehq/retrace/internal/export"
	"github.com/retracehq/retrace/internal/index"
	"github.com/retracehq/retrace/internal/retrace"
	"github.com/retracehq/retrace/internal/timeline"
	"github.com/retracehq/retrace/internal/tuilog"
)

// ErrorResponse is the JSON error envelope returned by every endpoint.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// SourcesResponse lists the configured session sources and whether their
// on-disk directories exist.
type SourcesResponse struct {
	Sources []retrace.SourceInfo `json:"sources"`
}

// ProjectsResponse lists projects across sources.
type ProjectsResponse struct {
	Projects []retrace.Project `json:"projects"`
}

// SessionsResponse lists session metadata for a project.
type SessionsResponse struct {
	Sessions []retrace.SessionMeta `json:"sessions"`
}

// SessionResponse carries one session with a paginated window of its events.
// Items is populated when the request asks for grouped display items.
type SessionResponse struct {
	Meta    retrace.SessionMeta `json:"meta"`
	Events  []retrace.Event     `json:"events"`
	Items   []DisplayItem       `json:"items,omitempty"`
	Total   int                 `json:"total"`
	HasMore bool                `json:"has_more"`
}

// DisplayItem is a rendered timeline row: either a single event or a
// collapsed run of consecutive tool calls.
type DisplayItem struct {
	Key      string   `json:"key"`
	Kind     string   `json:"kind"`
	ToolName string   `json:"tool_name,omitempty"`
	Count    int      `json:"count"`
	EventIDs []string `json:"event_ids"`
	Grouped  bool     `json:"grouped"`
}

// SearchResponse carries full-text search results from the catalog.
type SearchResponse struct {
	Query   string                `json:"query"`
	Results []index.SessionResult `json:"results"`
	Total   int                   `json:"total"`
}

// BookmarksResponse lists saved bookmarks, newest first.
type BookmarksResponse struct {
	Bookmarks []bookmarks.Bookmark `json:"bookmarks"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err string, msg string) {
	writeJSON(w, status, ErrorResponse{Error: err, Message: msg})
}

// pathParam returns the named chi URL parameter, unescaped. Project IDs in
// particular contain slashes and arrive percent-encoded.
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}

// handleGetSources returns the status of every registered source.
// @Summary List sources
// @Description Returns the configured session sources and whether each base directory exists
// @Tags sources
// @Produce json
// @Success 200 {object} SourcesResponse
// @Router /sources [get]
func (s *Server) handleGetSources(w http.ResponseWriter, r *http.Request) {
	infos := s.registry.SourceStatus(r.Context())
	if infos == nil {
		infos = []retrace.SourceInfo{}
	}
	writeJSON(w, http.StatusOK, SourcesResponse{Sources: infos})
}

// handleGetProjects returns projects across all sources, or for one source
// when ?source= is given.
// @Summary List projects
// @Description Returns all projects with recorded sessions, sorted by last activity
// @Tags projects
// @Produce json
// @Param source query string false "Only list projects from this source (claude, codex)"
// @Success 200 {object} ProjectsResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /projects [get]
func (s *Server) handleGetProjects(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		projects []retrace.Project
		err      error
	)
	if src := r.URL.Query().Get("source"); src != "" {
		store, ok := s.registry.Get(retrace.Source(src))
		if !ok {
			writeError(w, http.StatusNotFound, "unknown_source", "no source named "+src)
			return
		}
		projects, err = store.ListProjects(ctx)
	} else {
		projects, err = s.registry.ListAllProjects(ctx)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list_projects_failed", err.Error())
		return
	}
	if projects == nil {
		projects = []retrace.Project{}
	}
	writeJSON(w, http.StatusOK, ProjectsResponse{Projects: projects})
}

// handleGetProjectSessions returns the sessions recorded for one project.
// The project ID is matched against every source unless ?source= narrows it.
// @Summary List sessions for a project
// @Description Returns session metadata for a project, newest first
// @Tags sessions
// @Produce json
// @Param projectID path string true "Project ID (percent-encoded)"
// @Param source query string false "Only list sessions from this source"
// @Success 200 {object} SessionsResponse
// @Failure 404 {object} ErrorResponse
// @Router /projects/{projectID}/sessions [get]
func (s *Server) handleGetProjectSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projectID := pathParam(r, "projectID")

	stores := s.registry.All()
	if src := r.URL.Query().Get("source"); src != "" {
		store, ok := s.registry.Get(retrace.Source(src))
		if !ok {
			writeError(w, http.StatusNotFound, "unknown_source", "no source named "+src)
			return
		}
		stores = []retrace.Store{store}
	}

	sessions := []retrace.SessionMeta{}
	for _, store := range stores {
		metas, err := store.ListSessions(ctx, projectID)
		if err != nil {
			// A project usually lives in exactly one source, so a miss
			// in the others is expected.
			continue
		}
		sessions = append(sessions, metas...)
	}
	writeJSON(w, http.StatusOK, SessionsResponse{Sessions: sessions})
}

// resolveSession loads a full session from the store addressed by the URL.
// It writes the error response itself and returns nil when resolution fails.
func (s *Server) resolveSession(w http.ResponseWriter, r *http.Request) *retrace.Session {
	source := retrace.Source(pathParam(r, "source"))
	sessionID := pathParam(r, "sessionID")

	store, ok := s.registry.Get(source)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown_source", "no source named "+string(source))
		return nil
	}
	sess, err := store.LoadSession(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, retrace.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session_not_found", "no session "+sessionID)
		} else {
			writeError(w, http.StatusInternalServerError, "load_failed", err.Error())
		}
		return nil
	}
	return sess
}

// handleGetSession returns one session with a paginated window of events.
// @Summary Get a session
// @Description Returns session metadata plus a window of parsed events. Pass grouped=true to also receive collapsed tool-run display items for the window.
// @Tags sessions
// @Produce json
// @Param source path string true "Source name (claude, codex)"
// @Param projectID path string true "Project ID (percent-encoded)"
// @Param sessionID path string true "Session ID"
// @Param offset query int false "Skip this many events"
// @Param limit query int false "Maximum events to return (0 = all)"
// @Param grouped query bool false "Include grouped display items"
// @Success 200 {object} SessionResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /sessions/{source}/{projectID}/{sessionID} [get]
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess := s.resolveSession(w, r)
	if sess == nil {
		return
	}

	total := len(sess.Events)
	events := sess.Events
	if offset := queryInt(r, "offset", 0); offset > 0 {
		if offset >= len(events) {
			events = nil
		} else {
			events = events[offset:]
		}
	}
	hasMore := false
	if limit := queryInt(r, "limit", 0); limit > 0 && limit < len(events) {
		events = events[:limit]
		hasMore = true
	}

	resp := SessionResponse{
		Meta:    sess.Meta,
		Events:  events,
		Total:   total,
		HasMore: hasMore,
	}
	if r.URL.Query().Get("grouped") == "true" {
		resp.Items = displayItems(timeline.Group(events))
	}
	sessionsServedTotal.WithLabelValues(string(sess.Meta.Source)).Inc()
	writeJSON(w, http.StatusOK, resp)
}

func displayItems(items []timeline.Item) []DisplayItem {
	out := make([]DisplayItem, 0, len(items))
	for _, item := range items {
		di := DisplayItem{
			Key:      item.Key(),
			Kind:     string(item.Kind()),
			ToolName: item.ToolName(),
			Count:    item.Len(),
			Grouped:  item.IsGroup(),
		}
		ids := make([]string, 0, item.Len())
		for _, ev := range item.Events {
			ids = append(ids, ev.ID)
		}
		di.EventIDs = ids
		out = append(out, di)
	}
	return out
}

// handleExportSession streams a session in the requested export format.
// @Summary Export a session
// @Description Renders the session as markdown, JSON, or plain text and returns it as a file download
// @Tags sessions
// @Produce octet-stream
// @Param source path string true "Source name (claude, codex)"
// @Param projectID path string true "Project ID (percent-encoded)"
// @Param sessionID path string true "Session ID"
// @Param format query string false "Export format: markdown, json, plain" default(markdown)
// @Success 200 {file} file
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{source}/{projectID}/{sessionID}/export [get]
func (s *Server) handleExportSession(w http.ResponseWriter, r *http.Request) {
	formatName := r.URL.Query().Get("format")
	if formatName == "" {
		formatName = "markdown"
	}
	format, err := export.ParseFormat(formatName)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_format", err.Error())
		return
	}

	sess := s.resolveSession(w, r)
	if sess == nil {
		return
	}

	filename := export.DefaultFilename(sess.Meta, format, time.Now())
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := export.Write(w, sess, format); err != nil {
		// Headers are gone; all we can do is log.
		tuilog.Log.Error("export stream failed", "session", sess.Meta.ID, "error", err)
	}
}

// handleSearch runs a full-text query against the search catalog.
// @Summary Search sessions
// @Description Searches the indexed catalog for sessions whose text matches the query. Requires `retrace index` to have been run.
// @Tags search
// @Produce json
// @Param q query string true "Search query"
// @Param project query string false "Substring filter on project name"
// @Param source query string false "Restrict to one source"
// @Param limit query int false "Maximum sessions to return" default(50)
// @Param per_session query int false "Maximum matches per session" default(2)
// @Param regex query bool false "Treat the query as a regular expression"
// @Param case_sensitive query bool false "Match case-sensitively"
// @Success 200 {object} SearchResponse
// @Failure 400 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse "Search catalog has not been built"
// @Router /search [get]
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing_query", "q parameter is required")
		return
	}

	opts := index.DefaultOptions()
	opts.Query = query
	opts.Project = q.Get("project")
	opts.Source = q.Get("source")
	opts.Regex = q.Get("regex") == "true"
	opts.CaseSensitive = q.Get("case_sensitive") == "true"
	if n := queryInt(r, "limit", 0); n > 0 {
		opts.Limit = n
	}
	if n := queryInt(r, "per_session", 0); n > 0 {
		opts.PerSession = n
	}

	path, err := s.catalogPath()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "index_open_failed", err.Error())
		return
	}
	db, err := index.OpenReadOnly(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeError(w, http.StatusServiceUnavailable, "index_not_built",
				"no search catalog; run `retrace index` first")
			return
		}
		writeError(w, http.StatusInternalServerError, "index_open_failed", err.Error())
		return
	}
	defer db.Close()

	start := time.Now()
	results, total, err := index.NewService(db).Search(r.Context(), opts)
	searchDurationSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		searchesTotal.WithLabelValues("error").Inc()
		writeError(w, http.StatusInternalServerError, "search_failed", err.Error())
		return
	}
	searchesTotal.WithLabelValues("ok").Inc()

	if results == nil {
		results = []index.SessionResult{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Query: query, Results: results, Total: total})
}

// handleListBookmarks returns saved bookmarks, optionally scoped to one
// session.
// @Summary List bookmarks
// @Description Returns saved bookmarks, newest first. Filter to one session with source and session parameters.
// @Tags bookmarks
// @Produce json
// @Param source query string false "Source of the session filter"
// @Param session query string false "Only bookmarks for this session ID"
// @Success 200 {object} BookmarksResponse
// @Router /bookmarks [get]
func (s *Server) handleListBookmarks(w http.ResponseWriter, r *http.Request) {
	if s.bookmarks == nil {
		writeJSON(w, http.StatusOK, BookmarksResponse{Bookmarks: []bookmarks.Bookmark{}})
		return
	}
	q := r.URL.Query()
	var list []bookmarks.Bookmark
	if session := q.Get("session"); session != "" {
		list = s.bookmarks.ForSession(q.Get("source"), session)
	} else {
		list = s.bookmarks.List()
	}
	if list == nil {
		list = []bookmarks.Bookmark{}
	}
	writeJSON(w, http.StatusOK, BookmarksResponse{Bookmarks: list})
}

// handleCreateBookmark saves a bookmark. Posting the same event twice
// updates the existing entry instead of duplicating it.
// @Summary Create a bookmark
// @Description Saves a bookmark for one event in a session. Re-posting the same source/session/event updates the existing bookmark.
// @Tags bookmarks
// @Accept json
// @Produce json
// @Param bookmark body bookmarks.Bookmark true "Bookmark to save"
// @Success 201 {object} bookmarks.Bookmark
// @Failure 400 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse "Bookmark store unavailable"
// @Router /bookmarks [post]
func (s *Server) handleCreateBookmark(w http.ResponseWriter, r *http.Request) {
	if s.bookmarks == nil {
		writeError(w, http.StatusServiceUnavailable, "bookmarks_unavailable", "no bookmark store configured")
		return
	}
	var b bookmarks.Bookmark
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	saved, err := s.bookmarks.Add(b)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_bookmark", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// handleUpdateBookmark replaces the note on an existing bookmark.
// @Summary Update a bookmark note
// @Description Sets the free-form note on an existing bookmark
// @Tags bookmarks
// @Accept json
// @Produce json
// @Param bookmarkID path string true "Bookmark ID"
// @Param body body object true "New note text, e.g. {\"note\": \"...\"}"
// @Success 200 {object} bookmarks.Bookmark
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /bookmarks/{bookmarkID} [patch]
func (s *Server) handleUpdateBookmark(w http.ResponseWriter, r *http.Request) {
	if s.bookmarks == nil {
		writeError(w, http.StatusServiceUnavailable, "bookmarks_unavailable", "no bookmark store configured")
		return
	}
	id := pathParam(r, "bookmarkID")
	var body struct {
		Note string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if _, err := s.bookmarks.SetNote(id, body.Note); err != nil {
		writeError(w, http.StatusNotFound, "bookmark_not_found", err.Error())
		return
	}
	b, _ := s.bookmarks.Get(id)
	writeJSON(w, http.StatusOK, b)
}

// handleDeleteBookmark removes a bookmark. Deleting an unknown ID succeeds.
// @Summary Delete a bookmark
// @Tags bookmarks
// @Param bookmarkID path string true "Bookmark ID"
// @Success 204 "Deleted"
// @Failure 503 {object} ErrorResponse
// @Router /bookmarks/{bookmarkID} [delete]
func (s *Server) handleDeleteBookmark(w http.ResponseWriter, r *http.Request) {
	if s.bookmarks == nil {
		writeError(w, http.StatusServiceUnavailable, "bookmarks_unavailable", "no bookmark store configured")
		return
	}
	s.bookmarks.Remove(pathParam(r, "bookmarkID"))
	w.WriteHeader(http.StatusNoContent)
}
