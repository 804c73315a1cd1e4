package pubsite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a requested page or record does not exist.
	ErrNotFound = sql.ErrNoRows
	// ErrImageNotFound is returned when an image id has no stored image.
	ErrImageNotFound = errors.New("pubsite: image not found")
	// ErrInvalidParent is returned when a page type may not live under the given parent.
	ErrInvalidParent = errors.New("pubsite: invalid parent page")
	// ErrSlugTaken is returned when a sibling already uses the slug.
	ErrSlugTaken = errors.New("pubsite: slug already in use")
	// ErrInvalidPage is returned when a new page is missing required values.
	ErrInvalidPage = errors.New("pubsite: invalid page")
)

// timeFormat is fixed width so stored timestamps sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeFormat, s.String)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Store wraps a SQLite database holding pages, revisions, assets and settings.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
	now func() time.Time
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and creates any missing tables.
func NewStore(path string, log zerolog.Logger) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	// busy_timeout is per connection, so it goes in the DSN.
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}
	// WAL lets readers proceed during a write; synchronous=NORMAL is safe with WAL.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA synchronous=NORMAL;
		PRAGMA cache_size=-8000;
		PRAGMA mmap_size=268435456;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db, log: log, now: time.Now}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS pages (
    id TEXT PRIMARY KEY,
    type TEXT NOT NULL,
    parent_id TEXT,
    slug TEXT NOT NULL,
    url_path TEXT NOT NULL UNIQUE,
    title TEXT NOT NULL,
    live INTEGER NOT NULL DEFAULT 0,
    has_unpublished_changes INTEGER NOT NULL DEFAULT 0,
    first_published_at TEXT,
    last_published_at TEXT,
    latest_revision_id TEXT,
    live_revision_id TEXT,
    content BLOB,
    search_text TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS pages_parent ON pages(parent_id);
CREATE TABLE IF NOT EXISTS revisions (
    id TEXT PRIMARY KEY,
    object_type TEXT NOT NULL,
    object_id TEXT NOT NULL,
    number INTEGER NOT NULL,
    content BLOB NOT NULL,
    created_at TEXT NOT NULL,
    UNIQUE (object_type, object_id, number)
);
CREATE TABLE IF NOT EXISTS page_tags (
    page_id TEXT NOT NULL,
    tag TEXT NOT NULL,
    PRIMARY KEY (page_id, tag)
);
CREATE TABLE IF NOT EXISTS images (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    filename TEXT NOT NULL UNIQUE,
    original_name TEXT NOT NULL,
    width INTEGER NOT NULL,
    height INTEGER NOT NULL,
    size INTEGER NOT NULL,
    uploaded_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS authors (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    image_id INTEGER
);
CREATE TABLE IF NOT EXISTS settings (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS form_submissions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    page_id TEXT NOT NULL,
    data TEXT NOT NULL,
    submitted_at TEXT NOT NULL
);
`)
	if err != nil {
		return err
	}
	// Databases created before search support lack the column.
	if _, err := s.db.Exec(`ALTER TABLE pages ADD COLUMN search_text TEXT NOT NULL DEFAULT '';`); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "duplicate column") {
			return nil
		}
		return err
	}
	return nil
}

// ParseTags splits a comma-delimited tag string (e.g. "go, web") into a slice.
// Case is preserved; tags are matched exactly.
func ParseTags(tagString string) []string {
	return cleanTags(strings.Split(tagString, ","))
}

func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
