package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/ranklab-media/studio-cli/internal/db"
	"github.com/ranklab-media/studio-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	run_slug   TEXT PRIMARY KEY,
	theme      TEXT NOT NULL,
	category   TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS fetch_cache (
	url            TEXT PRIMARY KEY,
	text           TEXT NOT NULL,
	content_type   TEXT NOT NULL DEFAULT '',
	method         TEXT NOT NULL,
	token_estimate INTEGER NOT NULL DEFAULT 0,
	content_length INTEGER NOT NULL DEFAULT 0,
	fetched_at     TIMESTAMPTZ NOT NULL,
	expires_at     TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_fetch_cache_expires_at ON fetch_cache(expires_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) UpsertRun(ctx context.Context, rec RunRecord) error {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO runs (run_slug, theme, category, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (run_slug) DO UPDATE SET
			theme = EXCLUDED.theme,
			category = EXCLUDED.category,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at`,
		rec.RunSlug, rec.Theme, rec.Category, string(rec.Status), rec.CreatedAt, now,
	)
	return eris.Wrap(err, "postgres: upsert run")
}

func (s *PostgresStore) GetRun(ctx context.Context, runSlug string) (*RunRecord, error) {
	var rec RunRecord
	var status string
	err := s.pool.QueryRow(ctx,
		`SELECT run_slug, theme, category, status, created_at, updated_at FROM runs WHERE run_slug = $1`,
		runSlug,
	).Scan(&rec.RunSlug, &rec.Theme, &rec.Category, &status, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("postgres: run not found: %s", runSlug)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get run")
	}
	rec.Status = model.RunStatus(status)
	return &rec, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]RunRecord, error) {
	query := `SELECT run_slug, theme, category, status, created_at, updated_at FROM runs`
	var args []any
	if filter.Status != "" {
		query += ` WHERE status = $1`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var rec RunRecord
		var status string
		if err := rows.Scan(&rec.RunSlug, &rec.Theme, &rec.Category, &status, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		rec.Status = model.RunStatus(status)
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate runs")
}

func (s *PostgresStore) GetCachedFetch(ctx context.Context, url string) (*model.FetchCacheEntry, error) {
	var e model.FetchCacheEntry
	err := s.pool.QueryRow(ctx, `
		SELECT url, text, method, content_type, token_estimate, content_length, fetched_at, expires_at
		FROM fetch_cache WHERE url = $1 AND expires_at > now()`,
		url,
	).Scan(&e.URL, &e.Text, &e.Method, &e.ContentType, &e.TokenEstimate, &e.ContentLength, &e.FetchedAt, &e.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get cached fetch")
	}
	return &e, nil
}

func (s *PostgresStore) SetCachedFetch(ctx context.Context, entry model.FetchCacheEntry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO fetch_cache (url, text, method, content_type, token_estimate, content_length, fetched_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (url) DO UPDATE SET
			text = EXCLUDED.text,
			method = EXCLUDED.method,
			content_type = EXCLUDED.content_type,
			token_estimate = EXCLUDED.token_estimate,
			content_length = EXCLUDED.content_length,
			fetched_at = EXCLUDED.fetched_at,
			expires_at = EXCLUDED.expires_at`,
		entry.URL, entry.Text, entry.Method, entry.ContentType,
		entry.TokenEstimate, entry.ContentLength, entry.FetchedAt, entry.ExpiresAt,
	)
	return eris.Wrap(err, "postgres: set cached fetch")
}

func (s *PostgresStore) DeleteExpiredFetches(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM fetch_cache WHERE expires_at <= now()`)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired fetches")
	}
	return int(tag.RowsAffected()), nil
}
