// Package index maintains the DuckDB catalog of discovered sessions and the
// search service that runs over it. The catalog holds project and session
// metadata only; transcript content stays in the source JSONL files and is
// scanned on demand.
package index

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/retracehq/retrace/internal/config"
	"github.com/retracehq/retrace/internal/retrace"
)

// ErrNoRows is returned when a query expects a row but none is found.
var ErrNoRows = sql.ErrNoRows

//go:embed schema/init.sql
var initSQL string

// DefaultPath returns the filesystem path for the catalog database,
// ~/.retrace/index.duckdb unless the config directory is overridden.
func DefaultPath() (string, error) {
	dir, err := config.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "index.duckdb"), nil
}

const projectIDScopeSeparator = "::"

// ScopedProjectID builds the catalog row ID for a project. Raw project IDs
// are only unique within one source, so rows are keyed by source and ID
// together.
func ScopedProjectID(source retrace.Source, projectID string) string {
	if source == "" {
		return projectID
	}
	return string(source) + projectIDScopeSeparator + projectID
}

// DB wraps the DuckDB catalog connection.
type DB struct {
	*sql.DB
	path string
}

// Open opens or creates the catalog at path and applies the schema.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create catalog directory: %w", err)
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	if _, err := db.Exec(initSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply catalog schema: %w", err)
	}

	// Catalog queries never read external files or the network through SQL;
	// disabling external access keeps injected input from doing so either.
	if _, err := db.Exec("SET enable_external_access=false"); err != nil {
		db.Close()
		return nil, fmt.Errorf("restrict catalog access: %w", err)
	}

	return &DB{DB: db, path: path}, nil
}

// OpenReadOnly opens the catalog without write access.
//
// DuckDB does not allow a READ_ONLY connection while a READ_WRITE connection
// holds the same file, so this fails while `retrace index --watch` or a
// server with watching enabled is running against the same catalog.
func OpenReadOnly(path string) (*DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("no catalog at %s (run `retrace index` first): %w", path, err)
	}

	db, err := sql.Open("duckdb", path+"?access_mode=READ_ONLY")
	if err != nil {
		return nil, fmt.Errorf("open catalog read-only: %w", err)
	}

	if _, err := db.Exec("SET enable_external_access=false"); err != nil {
		db.Close()
		return nil, fmt.Errorf("restrict catalog access: %w", err)
	}

	return &DB{DB: db, path: path}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.DB.Close()
}

// Path returns the filesystem path of the catalog file.
func (d *DB) Path() string {
	return d.path
}

// Counts reports how many projects and sessions the catalog holds.
func (d *DB) Counts(ctx context.Context) (projects, sessions int, err error) {
	if err = d.QueryRowContext(ctx, "SELECT count(*) FROM projects").Scan(&projects); err != nil {
		return 0, 0, err
	}
	if err = d.QueryRowContext(ctx, "SELECT count(*) FROM sessions").Scan(&sessions); err != nil {
		return 0, 0, err
	}
	return projects, sessions, nil
}
