package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ali-ramadhan/citekit/internal/reference"
)

// DB wraps a SQLite database connection.
type DB struct {
	db *sql.DB
}

// Build describes one rebuild of the usage index.
type Build struct {
	ID      string `json:"id"`
	BuiltAt string `json:"built_at"`
	Pages   int    `json:"pages"`
}

// MissingKey is a citation that did not resolve on a page.
type MissingKey struct {
	Page   string `json:"page"`
	Source string `json:"source"`
	Key    string `json:"key"`
}

// Match is a reference found by Search.
type Match struct {
	Source  string `json:"source"`
	Key     string `json:"key"`
	Kind    string `json:"type"`
	Title   string `json:"title"`
	Authors string `json:"authors"`
	Year    string `json:"year"`
}

// Stats summarizes the index.
type Stats struct {
	Build      *Build `json:"build,omitempty"`
	Pages      int    `json:"pages"`
	Citations  int    `json:"citations"`
	UniqueKeys int    `json:"unique_keys"`
	Missing    int    `json:"missing"`
	References int    `json:"references"`
}

// OpenDB opens or creates a SQLite database at the given path.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS builds (
			id TEXT PRIMARY KEY,
			built_at TEXT NOT NULL,
			pages INTEGER NOT NULL
		);

		-- Resolved citations, one row per (page, key)
		CREATE TABLE IF NOT EXISTS citations (
			page TEXT NOT NULL,
			source TEXT NOT NULL,
			key TEXT NOT NULL,
			PRIMARY KEY (page, key)
		);

		CREATE INDEX IF NOT EXISTS idx_citations_key ON citations(key);
		CREATE INDEX IF NOT EXISTS idx_citations_source ON citations(source);

		CREATE TABLE IF NOT EXISTS missing (
			page TEXT NOT NULL,
			source TEXT NOT NULL,
			key TEXT NOT NULL,
			PRIMARY KEY (page, key)
		);

		-- Reference catalog, one row per (source, key)
		CREATE TABLE IF NOT EXISTS refs (
			source TEXT NOT NULL,
			key TEXT NOT NULL,
			kind TEXT NOT NULL,
			title TEXT,
			authors TEXT,
			year TEXT,
			doi TEXT,
			PRIMARY KEY (source, key)
		);

		CREATE VIRTUAL TABLE IF NOT EXISTS refs_fts USING fts5(
			source,
			key,
			title,
			authors_text,
			year
		);
	`

	_, err := db.Exec(schema)
	return err
}

// RebuildFromJSONL clears the citation tables, rebuilds them from a usage
// JSONL file and records a new build.
func (d *DB) RebuildFromJSONL(jsonlPath string) (*Build, error) {
	usages, err := ReadAllUsage(jsonlPath)
	if err != nil {
		return nil, fmt.Errorf("reading JSONL: %w", err)
	}

	if _, err := d.db.Exec("DELETE FROM citations"); err != nil {
		return nil, fmt.Errorf("clearing citations table: %w", err)
	}
	if _, err := d.db.Exec("DELETE FROM missing"); err != nil {
		return nil, fmt.Errorf("clearing missing table: %w", err)
	}

	citeStmt, err := d.db.Prepare(`INSERT OR IGNORE INTO citations (page, source, key) VALUES (?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("preparing citations insert: %w", err)
	}
	defer citeStmt.Close()

	missStmt, err := d.db.Prepare(`INSERT OR IGNORE INTO missing (page, source, key) VALUES (?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("preparing missing insert: %w", err)
	}
	defer missStmt.Close()

	for _, u := range usages {
		for _, key := range u.Keys {
			if _, err := citeStmt.Exec(u.Page, u.Source, key); err != nil {
				return nil, fmt.Errorf("inserting citation %s on %s: %w", key, u.Page, err)
			}
		}
		for _, key := range u.Missing {
			if _, err := missStmt.Exec(u.Page, u.Source, key); err != nil {
				return nil, fmt.Errorf("inserting missing %s on %s: %w", key, u.Page, err)
			}
		}
	}

	b := &Build{
		ID:      uuid.NewString(),
		BuiltAt: time.Now().UTC().Format(time.RFC3339),
		Pages:   len(usages),
	}
	if _, err := d.db.Exec(`INSERT INTO builds (id, built_at, pages) VALUES (?, ?, ?)`,
		b.ID, b.BuiltAt, b.Pages); err != nil {
		return nil, fmt.Errorf("recording build: %w", err)
	}

	return b, nil
}

// ClearRefs drops every indexed reference, e.g. before re-indexing all
// sources so that deleted files do not linger.
func (d *DB) ClearRefs() error {
	if _, err := d.db.Exec("DELETE FROM refs"); err != nil {
		return fmt.Errorf("clearing refs table: %w", err)
	}
	if _, err := d.db.Exec("DELETE FROM refs_fts"); err != nil {
		return fmt.Errorf("clearing refs_fts table: %w", err)
	}
	return nil
}

// IndexSource replaces the catalog rows of one reference source.
func (d *DB) IndexSource(source string, refs map[string]reference.Reference) (int, error) {
	if _, err := d.db.Exec("DELETE FROM refs WHERE source = ?", source); err != nil {
		return 0, fmt.Errorf("clearing refs for %s: %w", source, err)
	}
	if _, err := d.db.Exec("DELETE FROM refs_fts WHERE source = ?", source); err != nil {
		return 0, fmt.Errorf("clearing refs_fts for %s: %w", source, err)
	}

	refsStmt, err := d.db.Prepare(`
		INSERT INTO refs (source, key, kind, title, authors, year, doi)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing refs insert: %w", err)
	}
	defer refsStmt.Close()

	ftsStmt, err := d.db.Prepare(`
		INSERT INTO refs_fts (source, key, title, authors_text, year)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing fts insert: %w", err)
	}
	defer ftsStmt.Close()

	keys := make([]string, 0, len(refs))
	for k := range refs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		ref := refs[key]
		c := ref.Base()
		_, err := refsStmt.Exec(source, key, string(ref.Kind()),
			nullableStringValue(c.Title), nullableStringValue(c.Authors),
			nullableStringValue(c.Year), nullableStringValue(c.Links.DOI))
		if err != nil {
			return 0, fmt.Errorf("inserting ref %s: %w", key, err)
		}
		if _, err := ftsStmt.Exec(source, key, c.Title, c.Authors, c.Year); err != nil {
			return 0, fmt.Errorf("inserting fts for %s: %w", key, err)
		}
	}

	return len(keys), nil
}

// LastBuild returns the most recent build, or nil if none is recorded.
func (d *DB) LastBuild() (*Build, error) {
	var b Build
	err := d.db.QueryRow(`
		SELECT id, built_at, pages FROM builds
		ORDER BY built_at DESC, rowid DESC LIMIT 1
	`).Scan(&b.ID, &b.BuiltAt, &b.Pages)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying last build: %w", err)
	}
	return &b, nil
}

// CitedBy returns the pages citing key, sorted. An empty source matches
// every source.
func (d *DB) CitedBy(key, source string) ([]string, error) {
	query := `SELECT page FROM citations WHERE key = ?`
	args := []interface{}{key}
	if source != "" {
		query += " AND source = ?"
		args = append(args, source)
	}
	query += " ORDER BY page"

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying citing pages: %w", err)
	}
	defer rows.Close()

	return scanStrings(rows)
}

// KeysForPage returns the resolved keys cited on page, sorted.
func (d *DB) KeysForPage(page string) ([]string, error) {
	rows, err := d.db.Query(`SELECT key FROM citations WHERE page = ? ORDER BY key`, page)
	if err != nil {
		return nil, fmt.Errorf("querying page keys: %w", err)
	}
	defer rows.Close()

	return scanStrings(rows)
}

// SourceForPage returns the reference source page was resolved against,
// or "" if the page cited nothing that resolved.
func (d *DB) SourceForPage(page string) (string, error) {
	var source string
	err := d.db.QueryRow(`SELECT source FROM citations WHERE page = ? LIMIT 1`, page).Scan(&source)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("querying page source: %w", err)
	}
	return source, nil
}

// CitedKeys returns every key cited anywhere against source, sorted.
func (d *DB) CitedKeys(source string) ([]string, error) {
	rows, err := d.db.Query(`SELECT DISTINCT key FROM citations WHERE source = ? ORDER BY key`, source)
	if err != nil {
		return nil, fmt.Errorf("querying cited keys: %w", err)
	}
	defer rows.Close()

	return scanStrings(rows)
}

// UnusedKeys returns the indexed references of source that no page cites.
func (d *DB) UnusedKeys(source string) ([]string, error) {
	rows, err := d.db.Query(`
		SELECT key FROM refs
		WHERE source = ?
		AND key NOT IN (SELECT key FROM citations WHERE source = ?)
		ORDER BY key
	`, source, source)
	if err != nil {
		return nil, fmt.Errorf("querying unused keys: %w", err)
	}
	defer rows.Close()

	return scanStrings(rows)
}

// MissingKeys returns every unresolved citation ordered by page and key.
func (d *DB) MissingKeys() ([]MissingKey, error) {
	rows, err := d.db.Query(`SELECT page, source, key FROM missing ORDER BY page, key`)
	if err != nil {
		return nil, fmt.Errorf("querying missing keys: %w", err)
	}
	defer rows.Close()

	var out []MissingKey
	for rows.Next() {
		var m MissingKey
		if err := rows.Scan(&m.Page, &m.Source, &m.Key); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Search performs a full-text search over indexed references.
func (d *DB) Search(query string, limit int) ([]Match, error) {
	ftsQuery := prepareFTSQuery(query)
	if ftsQuery == "" {
		return nil, nil
	}

	rows, err := d.db.Query(`
		SELECT r.source, r.key, r.kind, r.title, r.authors, r.year
		FROM refs r
		JOIN (SELECT source, key FROM refs_fts WHERE refs_fts MATCH ?) f
		ON r.source = f.source AND r.key = f.key
		ORDER BY r.source, r.key
		LIMIT ?`, ftsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("searching: %w", err)
	}
	defer rows.Close()

	var out []Match
	for rows.Next() {
		var m Match
		var title, authors, year sql.NullString
		if err := rows.Scan(&m.Source, &m.Key, &m.Kind, &title, &authors, &year); err != nil {
			return nil, err
		}
		m.Title = title.String
		m.Authors = authors.String
		m.Year = year.String
		out = append(out, m)
	}
	return out, rows.Err()
}

// Stats summarizes the current contents of the index.
func (d *DB) Stats() (*Stats, error) {
	var s Stats
	counts := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(DISTINCT page) FROM citations", &s.Pages},
		{"SELECT COUNT(*) FROM citations", &s.Citations},
		{"SELECT COUNT(DISTINCT source || char(0) || key) FROM citations", &s.UniqueKeys},
		{"SELECT COUNT(*) FROM missing", &s.Missing},
		{"SELECT COUNT(*) FROM refs", &s.References},
	}
	for _, c := range counts {
		if err := d.db.QueryRow(c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("counting: %w", err)
		}
	}

	b, err := d.LastBuild()
	if err != nil {
		return nil, err
	}
	s.Build = b
	return &s, nil
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// nullableStringValue converts a string to sql.NullString, treating empty as NULL.
func nullableStringValue(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// prepareFTSQuery escapes special characters for FTS5 queries.
func prepareFTSQuery(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return query
	}

	// FTS5 uses double quotes for phrase matching
	if strings.ContainsAny(query, "\"*+-:(){}[]^~.,&") {
		query = strings.ReplaceAll(query, "\"", "\"\"")
		return "\"" + query + "\""
	}

	return query
}
