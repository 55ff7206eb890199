package index

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"sort"

	"github.com/bytedance/sonic"
	"golang.org/x/sync/errgroup"

	"github.com/retracehq/retrace/internal/retrace"
)

// previewWindow is how many bytes of context are kept on each side of a
// match in the preview.
const previewWindow = 100

// searchWorkers bounds how many session files are scanned concurrently.
const searchWorkers = 16

// Matcher is the compiled matching strategy for one query.
type Matcher struct {
	re *regexp.Regexp
}

// NewMatcher compiles query into a matcher. Plain queries are quoted so
// regex metacharacters match literally; regex queries compile as written.
// Case-insensitive matching uses the (?i) flag.
func NewMatcher(query string, caseSensitive, useRegex bool) (*Matcher, error) {
	pattern := query
	if !useRegex {
		pattern = regexp.QuoteMeta(query)
	}
	if !caseSensitive {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", query, err)
	}
	return &Matcher{re: re}, nil
}

func (m *Matcher) Match(text string) bool {
	return m.re.MatchString(text)
}

// FindIndex returns the byte offsets [start, end) of the first match in
// text, or (-1, -1) when there is none.
func (m *Matcher) FindIndex(text string) (int, int) {
	loc := m.re.FindStringIndex(text)
	if loc == nil {
		return -1, -1
	}
	return loc[0], loc[1]
}

// Candidate is a catalog row that may contain matches.
type Candidate struct {
	Path        string
	Source      retrace.Source
	SessionID   string
	ProjectName string
}

// Match is one matching line inside a session file.
type Match struct {
	LineNum    int    `json:"line_num"`
	Kind       string `json:"kind"`
	Preview    string `json:"preview"`
	MatchStart int    `json:"match_start"` // offset of the match within Preview
	MatchEnd   int    `json:"match_end"`
}

// SessionResult groups the matches found in one session.
type SessionResult struct {
	SessionID   string         `json:"session_id"`
	ProjectName string         `json:"project_name"`
	Source      retrace.Source `json:"source"`
	Path        string         `json:"path"`
	Matches     []Match        `json:"matches"`
}

// Options configure a search.
type Options struct {
	Query         string
	Project       string // substring filter on project name
	Source        string
	Limit         int // global cap on matches; 0 means unlimited
	PerSession    int // cap on matches per session; 0 means unlimited
	CaseSensitive bool
	Regex         bool
}

// DefaultOptions returns the limits used when the caller sets none.
func DefaultOptions() Options {
	return Options{Limit: 50, PerSession: 2}
}

type rawMatch struct {
	Candidate
	Match
}

// Service answers search queries, using the catalog for candidate lookup
// and the session files themselves for matching.
type Service struct {
	db *DB
}

// NewService creates a search service over the given catalog.
func NewService(db *DB) *Service {
	return &Service{db: db}
}

// Candidates returns the sessions worth scanning for opts, filtered in SQL
// and ordered newest first.
func (s *Service) Candidates(ctx context.Context, opts Options) ([]Candidate, error) {
	query := `
		SELECT s.path, s.source, s.id, p.name
		FROM sessions s
		JOIN projects p ON s.project_id = p.id
		WHERE 1=1`
	var args []any
	if opts.Project != "" {
		query += " AND p.name LIKE ?"
		args = append(args, "%"+opts.Project+"%")
	}
	if opts.Source != "" {
		query += " AND s.source = ?"
		args = append(args, opts.Source)
	}
	query += " ORDER BY s.modified_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("candidate query: %w", err)
	}
	defer rows.Close()

	var candidates []Candidate
	for rows.Next() {
		var c Candidate
		var source string
		if err := rows.Scan(&c.Path, &source, &c.SessionID, &c.ProjectName); err != nil {
			return nil, err
		}
		c.Source = retrace.Source(source)
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// Search scans candidate session files in parallel and returns grouped
// results ordered newest session first, along with the total match count.
// Scanning stops once the global limit is reached.
func (s *Service) Search(ctx context.Context, opts Options) ([]SessionResult, int, error) {
	matcher, err := NewMatcher(opts.Query, opts.CaseSensitive, opts.Regex)
	if err != nil {
		return nil, 0, err
	}

	candidates, err := s.Candidates(ctx, opts)
	if err != nil {
		return nil, 0, err
	}

	sctx, cancel := context.WithCancel(ctx)
	defer cancel()

	hits := make(chan rawMatch)
	g, gctx := errgroup.WithContext(sctx)
	g.SetLimit(searchWorkers)

	// g.Go blocks once the worker limit is reached, so launching has to
	// run beside the aggregation loop that drains hits.
	go func() {
		for _, c := range candidates {
			cand := c
			g.Go(func() error {
				scanFile(gctx, cand, matcher, hits)
				return nil
			})
		}
		g.Wait()
		close(hits)
	}()

	groups := make(map[string]*SessionResult)
	var order []string
	total := 0
	for hit := range hits {
		if opts.Limit > 0 && total >= opts.Limit {
			// Stop the scanners but keep draining so none block on send.
			cancel()
			continue
		}

		group, ok := groups[hit.SessionID]
		if !ok {
			group = &SessionResult{
				SessionID:   hit.SessionID,
				ProjectName: hit.ProjectName,
				Source:      hit.Source,
				Path:        hit.Path,
			}
			groups[hit.SessionID] = group
			order = append(order, hit.SessionID)
		}
		if opts.PerSession > 0 && len(group.Matches) >= opts.PerSession {
			continue
		}
		group.Matches = append(group.Matches, hit.Match)
		total++
	}

	// Hits arrive in whatever order the workers finish; put sessions back
	// into candidate order so results stay newest first.
	rank := make(map[string]int, len(candidates))
	for i, c := range candidates {
		rank[c.SessionID] = i
	}
	sort.Slice(order, func(i, j int) bool { return rank[order[i]] < rank[order[j]] })

	results := make([]SessionResult, 0, len(order))
	for _, id := range order {
		if group := groups[id]; len(group.Matches) > 0 {
			results = append(results, *group)
		}
	}
	return results, total, nil
}

// scanFile streams one session file line by line and sends raw matches.
// Files that cannot be opened are skipped; one unreadable transcript is not
// worth failing the whole search.
func scanFile(ctx context.Context, c Candidate, m *Matcher, out chan<- rawMatch) {
	f, err := os.Open(c.Path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := retrace.NewScannerWithMaxCapacity(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		if ctx.Err() != nil {
			return
		}
		text := scanner.Text()
		if !m.Match(text) {
			continue
		}

		preview, start, end := extractPreview(text, m)
		hit := rawMatch{
			Candidate: c,
			Match: Match{
				LineNum:    lineNum,
				Kind:       lineKind(text),
				Preview:    preview,
				MatchStart: start,
				MatchEnd:   end,
			},
		}
		select {
		case out <- hit:
		case <-ctx.Done():
			return
		}
	}
}

// lineKind pulls the event kind out of a raw JSONL line. Claude lines carry
// a "type" field and some formats use "role", so this is best effort.
func lineKind(line string) string {
	var probe struct {
		Type string `json:"type"`
		Role string `json:"role"`
	}
	if err := sonic.UnmarshalString(line, &probe); err == nil {
		if probe.Type != "" {
			return probe.Type
		}
		if probe.Role != "" {
			return probe.Role
		}
	}
	return "unknown"
}

// extractPreview cuts a window around the first match and returns the
// preview along with the match offsets inside it.
func extractPreview(line string, m *Matcher) (preview string, matchStart, matchEnd int) {
	start, end := m.FindIndex(line)
	if start == -1 {
		return "", 0, 0
	}

	pStart := start - previewWindow
	if pStart < 0 {
		pStart = 0
	}
	pEnd := end + previewWindow
	if pEnd > len(line) {
		pEnd = len(line)
	}

	preview = line[pStart:pEnd]
	matchStart = start - pStart
	matchEnd = matchStart + (end - start)

	if pStart > 0 {
		preview = "..." + preview
		matchStart += 3
		matchEnd += 3
	}
	if pEnd < len(line) {
		preview += "..."
	}
	return preview, matchStart, matchEnd
}
