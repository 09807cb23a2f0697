// Package store persists processed documents in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dgallion1/texgest/internal/doctree"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no record matches.
var ErrNotFound = errors.New("store: document not found")

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	doc_id       TEXT PRIMARY KEY,
	title        TEXT NOT NULL DEFAULT '',
	format       TEXT NOT NULL DEFAULT '',
	filename     TEXT NOT NULL DEFAULT '',
	content_hash TEXT NOT NULL,
	outline_mode TEXT NOT NULL DEFAULT '',
	outline      TEXT NOT NULL DEFAULT '[]',
	sections     TEXT NOT NULL DEFAULT '{}',
	timings      TEXT NOT NULL DEFAULT '{}',
	created_at   INTEGER NOT NULL,
	updated_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_hash ON documents(content_hash);
`

var pragmas = []string{
	"PRAGMA foreign_keys = ON",
	"PRAGMA journal_mode = WAL",
	"PRAGMA busy_timeout = 10000",
	"PRAGMA synchronous = NORMAL",
}

// Record is one processed document.
type Record struct {
	DocID       string            `json:"doc_id"`
	Title       string            `json:"title"`
	Format      string            `json:"format"`
	Filename    string            `json:"filename"`
	ContentHash string            `json:"content_hash"`
	OutlineMode string            `json:"outline_mode"`
	Outline     []string          `json:"outline"`
	Sections    *doctree.Sections `json:"sections"`
	Timings     map[string]int64  `json:"timings_ms"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Summary is the listing form of a Record.
type Summary struct {
	DocID        string    `json:"doc_id"`
	Title        string    `json:"title"`
	Format       string    `json:"format"`
	OutlineMode  string    `json:"outline_mode"`
	SectionCount int       `json:"section_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Store wraps the documents database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path. ":memory:" gives a
// private in-memory database on a single connection.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("store: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: schema: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error { return s.db.Close() }

// Put inserts or replaces a record. CreatedAt is kept from an existing row.
func (s *Store) Put(ctx context.Context, r *Record) error {
	outline, err := json.Marshal(orEmpty(r.Outline))
	if err != nil {
		return fmt.Errorf("marshal outline: %w", err)
	}
	sections := r.Sections
	if sections == nil {
		sections = doctree.NewSections()
	}
	secJSON, err := json.Marshal(sections)
	if err != nil {
		return fmt.Errorf("marshal sections: %w", err)
	}
	timings, err := json.Marshal(r.Timings)
	if err != nil {
		return fmt.Errorf("marshal timings: %w", err)
	}

	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (doc_id, title, format, filename, content_hash, outline_mode,
			outline, sections, timings, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(doc_id) DO UPDATE SET
			title = excluded.title,
			format = excluded.format,
			filename = excluded.filename,
			content_hash = excluded.content_hash,
			outline_mode = excluded.outline_mode,
			outline = excluded.outline,
			sections = excluded.sections,
			timings = excluded.timings,
			updated_at = excluded.updated_at`,
		r.DocID, r.Title, r.Format, r.Filename, r.ContentHash, r.OutlineMode,
		string(outline), string(secJSON), string(timings),
		r.CreatedAt.UnixMilli(), r.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("put %s: %w", r.DocID, err)
	}
	return nil
}

const selectRecord = `SELECT doc_id, title, format, filename, content_hash, outline_mode,
	outline, sections, timings, created_at, updated_at FROM documents`

// Get returns the record for docID or ErrNotFound.
func (s *Store) Get(ctx context.Context, docID string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, selectRecord+` WHERE doc_id = ?`, docID)
	return scanRecord(row)
}

// FindByHash returns the most recently updated record with the given content
// hash, or ErrNotFound.
func (s *Store) FindByHash(ctx context.Context, hash string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, selectRecord+` WHERE content_hash = ? ORDER BY updated_at DESC LIMIT 1`, hash)
	return scanRecord(row)
}

// List returns summaries ordered by most recent update.
func (s *Store) List(ctx context.Context, limit, offset int) ([]Summary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc_id, title, format, outline_mode, sections, updated_at
		FROM documents ORDER BY updated_at DESC, doc_id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var sum Summary
		var sections string
		var updated int64
		if err := rows.Scan(&sum.DocID, &sum.Title, &sum.Format, &sum.OutlineMode, &sections, &updated); err != nil {
			return nil, fmt.Errorf("list scan: %w", err)
		}
		secs := doctree.NewSections()
		if err := json.Unmarshal([]byte(sections), secs); err != nil {
			return nil, fmt.Errorf("decode sections of %s: %w", sum.DocID, err)
		}
		sum.SectionCount = secs.Len()
		sum.UpdatedAt = time.UnixMilli(updated).UTC()
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete removes a record. Deleting a missing record returns ErrNotFound.
func (s *Store) Delete(ctx context.Context, docID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE doc_id = ?`, docID)
	if err != nil {
		return fmt.Errorf("delete %s: %w", docID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var r Record
	var outline, sections, timings string
	var created, updated int64
	err := row.Scan(&r.DocID, &r.Title, &r.Format, &r.Filename, &r.ContentHash, &r.OutlineMode,
		&outline, &sections, &timings, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan record: %w", err)
	}

	if err := json.Unmarshal([]byte(outline), &r.Outline); err != nil {
		return nil, fmt.Errorf("decode outline: %w", err)
	}
	r.Sections = doctree.NewSections()
	if err := json.Unmarshal([]byte(sections), r.Sections); err != nil {
		return nil, fmt.Errorf("decode sections: %w", err)
	}
	if err := json.Unmarshal([]byte(timings), &r.Timings); err != nil {
		return nil, fmt.Errorf("decode timings: %w", err)
	}
	r.CreatedAt = time.UnixMilli(created).UTC()
	r.UpdatedAt = time.UnixMilli(updated).UTC()
	return &r, nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
