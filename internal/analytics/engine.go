// Package analytics answers aggregate questions about recorded sessions by
// pointing an in-memory DuckDB instance at the session JSONL files
// themselves. Nothing is written anywhere; every query is a SELECT over
// read_json, so the numbers are always as fresh as the files on disk.
package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/retracehq/retrace/internal/retrace"
	"github.com/retracehq/retrace/internal/tuilog"
)

// SessionFile is one transcript file the engine reads, with the identity it
// was discovered under. Queries group by file path; the engine maps paths
// back to these records when it reports per-session or per-project numbers.
type SessionFile struct {
	Path        string
	SessionID   string
	ProjectName string
	Source      retrace.Source
}

// CollectFiles walks every registered store and returns the transcript files
// to analyze. A non-empty project filter keeps only projects whose ID, name,
// or path matches it. Stores that fail to list are logged and skipped so one
// unreadable source does not blank out the rest of the report.
func CollectFiles(ctx context.Context, registry *retrace.StoreRegistry, project string) ([]SessionFile, error) {
	var files []SessionFile
	for _, store := range registry.All() {
		projects, err := store.ListProjects(ctx)
		if err != nil {
			tuilog.Log.Warn("stats: cannot list projects", "source", store.Source(), "error", err)
			continue
		}
		for _, p := range projects {
			if project != "" && !projectMatches(p, project) {
				continue
			}
			sessions, err := store.ListSessions(ctx, p.ID)
			if err != nil {
				tuilog.Log.Warn("stats: cannot list sessions", "source", store.Source(), "project", p.Name, "error", err)
				continue
			}
			for _, meta := range sessions {
				if meta.FullPath == "" {
					continue
				}
				files = append(files, SessionFile{
					Path:        meta.FullPath,
					SessionID:   meta.ID,
					ProjectName: p.Name,
					Source:      store.Source(),
				})
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	return files, nil
}

func projectMatches(p retrace.Project, filter string) bool {
	return p.ID == filter || p.Name == filter || p.Path == filter || p.DisplayPath == filter
}

// Engine provides analytical queries over session transcripts.
//
// It holds an in-memory DuckDB instance that only ever reads the JSONL files
// it was given; no data is written and no catalog is involved. Claude logs
// one message object per line while Codex wraps its lines in event_msg and
// response_item envelopes, so the scan reads a fixed set of columns and each
// query normalizes the two shapes in SQL.
type Engine struct {
	db     *sql.DB
	files  []SessionFile
	byPath map[string]SessionFile
}

// NewEngine creates an analytics engine over the given transcript files.
func NewEngine(files []SessionFile) (*Engine, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	byPath := make(map[string]SessionFile, len(files))
	for _, f := range files {
		byPath[f.Path] = f
	}
	return &Engine{db: db, files: files, byPath: byPath}, nil
}

// Close closes the database connection.
func (e *Engine) Close() error {
	return e.db.Close()
}

// FileCount returns how many transcript files the engine reads.
func (e *Engine) FileCount() int {
	return len(e.files)
}

// fromJSONL returns the FROM clause that scans every transcript file.
// The column set is fixed rather than inferred: Claude lines fill type,
// message, and timestamp while Codex lines fill type, payload, and
// timestamp, and the missing column is NULL either way. ignore_errors
// skips lines that are not valid JSON, such as truncated tail writes.
func (e *Engine) fromJSONL() string {
	quoted := make([]string, len(e.files))
	for i, f := range e.files {
		quoted[i] = "'" + strings.ReplaceAll(f.Path, "'", "''") + "'"
	}
	return fmt.Sprintf(`read_json([%s],
			columns={timestamp: 'VARCHAR', type: 'VARCHAR', message: 'JSON', payload: 'JSON'},
			format='newline_delimited', ignore_errors=true, filename=true)`,
		strings.Join(quoted, ", "))
}

// kindExpr classifies a line as a user or assistant message regardless of
// source. Claude stores the role in the top-level type; Codex stores it one
// level down in the payload, either as an event_msg kind or as the role of a
// response_item message. Lines that are neither evaluate to NULL.
const kindExpr = `CASE
		WHEN type IN ('user', 'assistant') THEN type
		WHEN type = 'event_msg' AND json_extract_string(payload, '$.type') = 'user_message' THEN 'user'
		WHEN type = 'event_msg' AND json_extract_string(payload, '$.type') = 'agent_message' THEN 'assistant'
		WHEN type = 'response_item'
			AND json_extract_string(payload, '$.type') = 'message'
			AND json_extract_string(payload, '$.role') IN ('user', 'assistant')
			THEN json_extract_string(payload, '$.role')
	END`

// messages returns a derived table with one row per user or assistant
// message: filename, kind, and the parsed timestamp.
func (e *Engine) messages() string {
	return fmt.Sprintf(`(
		SELECT * FROM (
			SELECT filename, %s AS kind, TRY_CAST(timestamp AS TIMESTAMP) AS ts
			FROM %s
		) AS lines
		WHERE kind IS NOT NULL
	) AS messages`, kindExpr, e.fromJSONL())
}

// Totals summarizes the whole corpus.
type Totals struct {
	Sessions          int64
	UserMessages      int64
	AssistantMessages int64
	FirstActivity     time.Time
	LastActivity      time.Time
}

// GetTotals returns corpus-wide message counts and the activity span.
// Sessions counts files that contain at least one message.
func (e *Engine) GetTotals(ctx context.Context) (*Totals, error) {
	if len(e.files) == 0 {
		return &Totals{}, nil
	}

	sqlQuery := fmt.Sprintf(`
		SELECT
			COUNT(DISTINCT filename) as sessions,
			COUNT(*) FILTER (WHERE kind = 'user') as user_messages,
			COUNT(*) FILTER (WHERE kind = 'assistant') as assistant_messages,
			MIN(ts) as first_activity,
			MAX(ts) as last_activity
		FROM %s
	`, e.messages())

	var t Totals
	var first, last sql.NullTime
	err := e.db.QueryRowContext(ctx, sqlQuery).Scan(&t.Sessions, &t.UserMessages, &t.AssistantMessages, &first, &last)
	if err != nil {
		return nil, fmt.Errorf("totals query: %w", err)
	}
	if first.Valid {
		t.FirstActivity = first.Time
	}
	if last.Valid {
		t.LastActivity = last.Time
	}
	return &t, nil
}

// ActivityDay represents daily activity.
type ActivityDay struct {
	Date     time.Time
	Sessions int64
	Messages int64
}

// GetActivity returns daily activity for the most recent days.
func (e *Engine) GetActivity(ctx context.Context, days int) ([]ActivityDay, error) {
	if len(e.files) == 0 {
		return nil, nil
	}
	if days <= 0 {
		days = 30
	}

	sqlQuery := fmt.Sprintf(`
		SELECT
			DATE_TRUNC('day', ts) as day,
			COUNT(DISTINCT filename) as sessions,
			COUNT(*) as messages
		FROM %s
		WHERE ts IS NOT NULL
		GROUP BY day
		ORDER BY day DESC
		LIMIT $1
	`, e.messages())

	rows, err := e.db.QueryContext(ctx, sqlQuery, days)
	if err != nil {
		return nil, fmt.Errorf("activity query: %w", err)
	}
	defer rows.Close()

	var results []ActivityDay
	for rows.Next() {
		var a ActivityDay
		if err := rows.Scan(&a.Date, &a.Sessions, &a.Messages); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		results = append(results, a)
	}

	return results, rows.Err()
}

// ProjectActivity represents per-project totals.
type ProjectActivity struct {
	Project    string
	Source     retrace.Source
	Sessions   int64
	Messages   int64
	LastActive time.Time
}

// GetProjectActivity returns message and session counts grouped by project,
// busiest first. The grouping runs over file paths in SQL and is folded into
// projects here, since the project a file belongs to is registry knowledge
// the transcript lines do not carry.
func (e *Engine) GetProjectActivity(ctx context.Context) ([]ProjectActivity, error) {
	if len(e.files) == 0 {
		return nil, nil
	}

	sqlQuery := fmt.Sprintf(`
		SELECT
			filename,
			COUNT(*) as messages,
			MAX(ts) as last_active
		FROM %s
		GROUP BY filename
	`, e.messages())

	rows, err := e.db.QueryContext(ctx, sqlQuery)
	if err != nil {
		return nil, fmt.Errorf("project activity query: %w", err)
	}
	defer rows.Close()

	type key struct {
		project string
		source  retrace.Source
	}
	grouped := make(map[key]*ProjectActivity)
	for rows.Next() {
		var filename string
		var messages int64
		var last sql.NullTime
		if err := rows.Scan(&filename, &messages, &last); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		sf, ok := e.byPath[filename]
		if !ok {
			continue
		}
		k := key{project: sf.ProjectName, source: sf.Source}
		pa := grouped[k]
		if pa == nil {
			pa = &ProjectActivity{Project: sf.ProjectName, Source: sf.Source}
			grouped[k] = pa
		}
		pa.Sessions++
		pa.Messages += messages
		if last.Valid && last.Time.After(pa.LastActive) {
			pa.LastActive = last.Time
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	results := make([]ProjectActivity, 0, len(grouped))
	for _, pa := range grouped {
		results = append(results, *pa)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Messages != results[j].Messages {
			return results[i].Messages > results[j].Messages
		}
		return results[i].Project < results[j].Project
	})
	return results, nil
}

// ToolUsage represents tool usage frequency.
type ToolUsage struct {
	ToolName   string
	UsageCount int64
}

// GetToolStats returns tool usage frequency across all sessions. Claude
// records tool calls as tool_use blocks inside assistant message content;
// Codex records them as function_call response items. Only process Claude
// content when it is an array, since user-visible text is stored as a plain
// string.
func (e *Engine) GetToolStats(ctx context.Context, limit int) ([]ToolUsage, error) {
	if len(e.files) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	sqlQuery := fmt.Sprintf(`
		WITH tool_calls AS (
			SELECT
				json_extract_string(content_item, '$.name') as tool_name
			FROM %[1]s,
				 LATERAL unnest(
					CASE
						WHEN json_type(json_extract(message, '$.content')) = 'ARRAY'
						THEN CAST(json_extract(message, '$.content') AS JSON[])
						ELSE ARRAY[]::JSON[]
					END
				 ) AS t(content_item)
			WHERE type = 'assistant'
			  AND json_extract_string(content_item, '$.type') = 'tool_use'
			UNION ALL
			SELECT
				json_extract_string(payload, '$.name') as tool_name
			FROM %[1]s
			WHERE type = 'response_item'
			  AND json_extract_string(payload, '$.type') IN ('function_call', 'custom_tool_call')
		)
		SELECT tool_name, COUNT(*) as usage_count
		FROM tool_calls
		WHERE tool_name IS NOT NULL AND tool_name <> ''
		GROUP BY tool_name
		ORDER BY usage_count DESC, tool_name
		LIMIT $1
	`, e.fromJSONL())

	rows, err := e.db.QueryContext(ctx, sqlQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("tool stats query: %w", err)
	}
	defer rows.Close()

	var results []ToolUsage
	for rows.Next() {
		var t ToolUsage
		if err := rows.Scan(&t.ToolName, &t.UsageCount); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		results = append(results, t)
	}

	return results, rows.Err()
}

// TokenStats represents token usage for one session.
type TokenStats struct {
	SessionID    string
	ProjectName  string
	Source       retrace.Source
	Path         string
	InputTokens  int64
	OutputTokens int64
	CacheTokens  int64
	TotalTokens  int64
}

// GetTokenStats returns the heaviest sessions by token usage. Counts come
// from the usage object on assistant messages; sources that do not log
// per-message usage contribute nothing here.
func (e *Engine) GetTokenStats(ctx context.Context, limit int) ([]TokenStats, error) {
	if len(e.files) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	sqlQuery := fmt.Sprintf(`
		SELECT
			filename,
			COALESCE(SUM(CAST(json_extract(message, '$.usage.input_tokens') AS BIGINT)), 0) as input_tokens,
			COALESCE(SUM(CAST(json_extract(message, '$.usage.output_tokens') AS BIGINT)), 0) as output_tokens,
			COALESCE(SUM(CAST(json_extract(message, '$.usage.cache_read_input_tokens') AS BIGINT)), 0)
				+ COALESCE(SUM(CAST(json_extract(message, '$.usage.cache_creation_input_tokens') AS BIGINT)), 0) as cache_tokens
		FROM %s
		WHERE type = 'assistant'
		  AND json_extract(message, '$.usage') IS NOT NULL
		GROUP BY filename
		ORDER BY input_tokens + output_tokens DESC
		LIMIT $1
	`, e.fromJSONL())

	rows, err := e.db.QueryContext(ctx, sqlQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("token stats query: %w", err)
	}
	defer rows.Close()

	var results []TokenStats
	for rows.Next() {
		var s TokenStats
		var filename string
		if err := rows.Scan(&filename, &s.InputTokens, &s.OutputTokens, &s.CacheTokens); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		s.Path = filename
		if sf, ok := e.byPath[filename]; ok {
			s.SessionID = sf.SessionID
			s.ProjectName = sf.ProjectName
			s.Source = sf.Source
		}
		s.TotalTokens = s.InputTokens + s.OutputTokens
		results = append(results, s)
	}

	return results, rows.Err()
}

// ModelUsage represents model usage statistics.
type ModelUsage struct {
	Model           string
	Responses       int64
	AvgOutputTokens float64
}

// GetModelStats returns response counts per model, taken from the model
// field on assistant messages.
func (e *Engine) GetModelStats(ctx context.Context) ([]ModelUsage, error) {
	if len(e.files) == 0 {
		return nil, nil
	}

	sqlQuery := fmt.Sprintf(`
		SELECT
			json_extract_string(message, '$.model') as model,
			COUNT(*) as responses,
			AVG(CAST(json_extract(message, '$.usage.output_tokens') AS DOUBLE)) as avg_output
		FROM %s
		WHERE type = 'assistant'
		  AND json_extract_string(message, '$.model') IS NOT NULL
		GROUP BY model
		ORDER BY responses DESC, model
	`, e.fromJSONL())

	rows, err := e.db.QueryContext(ctx, sqlQuery)
	if err != nil {
		return nil, fmt.Errorf("model stats query: %w", err)
	}
	defer rows.Close()

	var results []ModelUsage
	for rows.Next() {
		var m ModelUsage
		var avgOutput sql.NullFloat64
		if err := rows.Scan(&m.Model, &m.Responses, &avgOutput); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if avgOutput.Valid {
			m.AvgOutputTokens = avgOutput.Float64
		}
		results = append(results, m)
	}

	return results, rows.Err()
}
