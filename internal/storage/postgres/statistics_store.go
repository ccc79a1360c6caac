// Package postgres exports computed entry statistics to Postgres.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/activity-heatmap/internal/activity"
)

const defaultTable = "activity_entries"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// StatisticsStoreConfig controls the Postgres connection pool used for exports.
type StatisticsStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Begin(context.Context) (pgx.Tx, error)
	Close()
}

// StatisticsStore upserts one row per entry, keyed by canonical link.
type StatisticsStore struct {
	pool  pool
	table string
}

// NewStatisticsStore connects to Postgres using cfg.
func NewStatisticsStore(ctx context.Context, cfg StatisticsStoreConfig) (*StatisticsStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
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
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &StatisticsStore{pool: p, table: table}, nil
}

// NewStatisticsStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewStatisticsStoreWithPool(p pool, table string) (*StatisticsStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &StatisticsStore{pool: p, table: name}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Close releases the underlying pool resources.
func (s *StatisticsStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the export table when it does not exist.
func (s *StatisticsStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	link TEXT PRIMARY KEY,
	entry_date DATE NOT NULL,
	title TEXT NOT NULL,
	source_type TEXT NOT NULL,
	word_count INTEGER NOT NULL,
	char_count INTEGER NOT NULL,
	run_id TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

// UpsertEntries writes entries in a single transaction. Rows are keyed by
// activity.CanonicalLink so repeated runs overwrite rather than duplicate.
func (s *StatisticsStore) UpsertEntries(ctx context.Context, runID string, at time.Time, entries []activity.Entry) (err error) {
	if s == nil || s.pool == nil {
		return fmt.Errorf("statistics store is not configured")
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				err = fmt.Errorf("%w (rollback: %v)", err, rbErr)
			}
		}
	}()

	query := fmt.Sprintf(`
INSERT INTO %s (
	link,
	entry_date,
	title,
	source_type,
	word_count,
	char_count,
	run_id,
	updated_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8
)
ON CONFLICT (link) DO UPDATE SET
	entry_date = EXCLUDED.entry_date,
	title = EXCLUDED.title,
	source_type = EXCLUDED.source_type,
	word_count = EXCLUDED.word_count,
	char_count = EXCLUDED.char_count,
	run_id = EXCLUDED.run_id,
	updated_at = EXCLUDED.updated_at`, s.table)

	for _, e := range entries {
		args := []any{
			e.Key(),
			e.Date,
			e.Title,
			string(e.SourceType),
			e.WordCount,
			e.CharCount,
			runID,
			at,
		}
		if _, err = tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert %s: %w", e.Link, err)
		}
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
