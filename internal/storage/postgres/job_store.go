// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/jobboard-scraper/internal/scraper"
)

// DefaultTable is the listings table name.
const DefaultTable = "jobs"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// JobStoreConfig controls the Postgres connection pool used for listings.
type JobStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

type pinger interface {
	Ping(context.Context) error
}

// JobStore upserts listings into Postgres keyed by link.
type JobStore struct {
	pool  execCloser
	table string
}

// NewJobStore connects to Postgres and verifies the connection.
func NewJobStore(ctx context.Context, cfg JobStoreConfig) (*JobStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &JobStore{pool: pool, table: table}, nil
}

// NewJobStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewJobStoreWithPool(pool execCloser, table string) (*JobStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &JobStore{pool: pool, table: name}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = DefaultTable
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Close releases the underlying pool resources.
func (s *JobStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Ping checks the connection when the pool supports it.
func (s *JobStore) Ping(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return scraper.ErrStoreUnavailable
	}
	p, ok := s.pool.(pinger)
	if !ok {
		return nil
	}
	if err := p.Ping(ctx); err != nil {
		return errors.Join(scraper.ErrStoreUnavailable, err)
	}
	return nil
}

// EnsureSchema creates the listings table when it does not exist.
func (s *JobStore) EnsureSchema(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return scraper.ErrStoreUnavailable
	}
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id SERIAL PRIMARY KEY,
	company TEXT,
	title TEXT,
	description TEXT,
	link TEXT UNIQUE,
	date_posted TIMESTAMP,
	created_at TIMESTAMP DEFAULT NOW()
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create %s table: %w", s.table, err)
	}
	return nil
}

// Upsert inserts the record or, when its link already exists, overwrites
// company, title, description and date_posted. Records without a link are
// always inserted.
func (s *JobStore) Upsert(ctx context.Context, record scraper.JobRecord) error {
	if s == nil || s.pool == nil {
		return scraper.ErrStoreUnavailable
	}
	query := fmt.Sprintf(`
INSERT INTO %s (company, title, description, link, date_posted)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (link) DO UPDATE SET
	company = EXCLUDED.company,
	title = EXCLUDED.title,
	description = EXCLUDED.description,
	date_posted = EXCLUDED.date_posted`, s.table)

	args := []any{
		record.Company,
		record.Title,
		record.Description,
		nullIfEmpty(record.Link),
		record.DatePosted,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: upsert %q: %w", scraper.ErrInsertFailed, record.Link, err)
	}
	return nil
}

// NULLs never collide under a UNIQUE constraint.
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
