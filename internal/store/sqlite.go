package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/ranklab-media/studio-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	run_slug   TEXT PRIMARY KEY,
	theme      TEXT NOT NULL,
	category   TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS fetch_cache (
	url            TEXT PRIMARY KEY,
	text           TEXT NOT NULL,
	method         TEXT NOT NULL,
	content_type   TEXT NOT NULL DEFAULT '',
	token_estimate INTEGER NOT NULL DEFAULT 0,
	content_length INTEGER NOT NULL DEFAULT 0,
	fetched_at     DATETIME NOT NULL,
	expires_at     DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_fetch_cache_expires_at ON fetch_cache(expires_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertRun(ctx context.Context, rec RunRecord) error {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (run_slug, theme, category, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_slug) DO UPDATE SET
			theme = excluded.theme,
			category = excluded.category,
			status = excluded.status,
			updated_at = excluded.updated_at`,
		rec.RunSlug, rec.Theme, rec.Category, string(rec.Status), rec.CreatedAt, rec.UpdatedAt,
	)
	return eris.Wrap(err, "sqlite: upsert run")
}

func (s *SQLiteStore) GetRun(ctx context.Context, runSlug string) (*RunRecord, error) {
	var rec RunRecord
	var status string
	err := s.db.QueryRowContext(ctx,
		`SELECT run_slug, theme, category, status, created_at, updated_at FROM runs WHERE run_slug = ?`,
		runSlug,
	).Scan(&rec.RunSlug, &rec.Theme, &rec.Category, &status, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Errorf("sqlite: run not found: %s", runSlug)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get run")
	}
	rec.Status = model.RunStatus(status)
	return &rec, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]RunRecord, error) {
	query := `SELECT run_slug, theme, category, status, created_at, updated_at FROM runs`
	var args []any
	if filter.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var rec RunRecord
		var status string
		if err := rows.Scan(&rec.RunSlug, &rec.Theme, &rec.Category, &status, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		rec.Status = model.RunStatus(status)
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}

func (s *SQLiteStore) GetCachedFetch(ctx context.Context, url string) (*model.FetchCacheEntry, error) {
	var e model.FetchCacheEntry
	err := s.db.QueryRowContext(ctx, `
		SELECT url, text, method, content_type, token_estimate, content_length, fetched_at, expires_at
		FROM fetch_cache WHERE url = ? AND expires_at > ?`,
		url, time.Now().UTC(),
	).Scan(&e.URL, &e.Text, &e.Method, &e.ContentType, &e.TokenEstimate, &e.ContentLength, &e.FetchedAt, &e.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get cached fetch")
	}
	return &e, nil
}

func (s *SQLiteStore) SetCachedFetch(ctx context.Context, entry model.FetchCacheEntry) error {
	// Last writer wins; entries are TTL-keyed so a concurrent overwrite is
	// harmless.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fetch_cache (url, text, method, content_type, token_estimate, content_length, fetched_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			text = excluded.text,
			method = excluded.method,
			content_type = excluded.content_type,
			token_estimate = excluded.token_estimate,
			content_length = excluded.content_length,
			fetched_at = excluded.fetched_at,
			expires_at = excluded.expires_at`,
		entry.URL, entry.Text, entry.Method, entry.ContentType,
		entry.TokenEstimate, entry.ContentLength, entry.FetchedAt, entry.ExpiresAt,
	)
	return eris.Wrap(err, "sqlite: set cached fetch")
}

func (s *SQLiteStore) DeleteExpiredFetches(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM fetch_cache WHERE expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired fetches")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}
	return int(n), nil
}
