// Package sqlite provides a single-file listings store for local runs.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	// Registers the pure-Go "sqlite" driver.
	_ "modernc.org/sqlite"

	"github.com/JakeFAU/jobboard-scraper/internal/scraper"
)

// DefaultTable is the listings table name.
const DefaultTable = "jobs"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// JobStoreConfig selects the database file and table.
type JobStoreConfig struct {
	// Path is a file path, ":memory:" or a full "file:" URI.
	Path  string
	Table string
}

// JobStore upserts listings into SQLite keyed by link.
type JobStore struct {
	db    *sql.DB
	table string
}

// NewJobStore opens the database and verifies the connection.
func NewJobStore(ctx context.Context, cfg JobStoreConfig) (*JobStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = DefaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	db, err := sql.Open("sqlite", dsn(cfg.Path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer; also keeps ":memory:" databases on a single connection.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return &JobStore{db: db, table: table}, nil
}

func dsn(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
}

// Close releases the database handle.
func (s *JobStore) Close() {
	if s == nil || s.db == nil {
		return
	}
	_ = s.db.Close()
}

// Ping checks the connection.
func (s *JobStore) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return scraper.ErrStoreUnavailable
	}
	if err := s.db.PingContext(ctx); err != nil {
		return errors.Join(scraper.ErrStoreUnavailable, err)
	}
	return nil
}

// EnsureSchema creates the listings table when it does not exist.
func (s *JobStore) EnsureSchema(ctx context.Context) error {
	if s == nil || s.db == nil {
		return scraper.ErrStoreUnavailable
	}
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	company TEXT,
	title TEXT,
	description TEXT,
	link TEXT UNIQUE,
	date_posted TEXT,
	created_at TEXT DEFAULT CURRENT_TIMESTAMP
)`, s.table)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create %s table: %w", s.table, err)
	}
	return nil
}

// Upsert inserts the record or overwrites the row sharing its link.
// Records without a link are always inserted.
func (s *JobStore) Upsert(ctx context.Context, record scraper.JobRecord) error {
	if s == nil || s.db == nil {
		return scraper.ErrStoreUnavailable
	}
	query := fmt.Sprintf(`
INSERT INTO %s (company, title, description, link, date_posted)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (link) DO UPDATE SET
	company = excluded.company,
	title = excluded.title,
	description = excluded.description,
	date_posted = excluded.date_posted`, s.table)

	var link any
	if record.HasLink() {
		link = record.Link
	}
	_, err := s.db.ExecContext(ctx, query,
		record.Company,
		record.Title,
		record.Description,
		link,
		record.DatePosted.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("%w: upsert %q: %w", scraper.ErrInsertFailed, record.Link, err)
	}
	return nil
}

// Get loads the row stored under link.
func (s *JobStore) Get(ctx context.Context, link string) (scraper.JobRecord, bool, error) {
	if s == nil || s.db == nil {
		return scraper.JobRecord{}, false, scraper.ErrStoreUnavailable
	}
	query := fmt.Sprintf(`SELECT company, title, description, date_posted FROM %s WHERE link = ?`, s.table)
	rec := scraper.JobRecord{Link: link}
	var posted string
	err := s.db.QueryRowContext(ctx, query, link).Scan(&rec.Company, &rec.Title, &rec.Description, &posted)
	if errors.Is(err, sql.ErrNoRows) {
		return scraper.JobRecord{}, false, nil
	}
	if err != nil {
		return scraper.JobRecord{}, false, fmt.Errorf("get %q: %w", link, err)
	}
	if rec.DatePosted, err = time.Parse(time.RFC3339, posted); err != nil {
		return scraper.JobRecord{}, false, fmt.Errorf("parse date_posted %q: %w", posted, err)
	}
	return rec, true, nil
}

// Count returns the number of stored rows.
func (s *JobStore) Count(ctx context.Context) (int, error) {
	if s == nil || s.db == nil {
		return 0, scraper.ErrStoreUnavailable
	}
	var n int
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", s.table, err)
	}
	return n, nil
}
