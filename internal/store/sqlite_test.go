package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ranklab-media/studio-cli/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLiteStore_RunUpsertAndGet(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	rec := RunRecord{
		RunSlug:  "wireless-earbuds-2026-02-11",
		Theme:    "wireless earbuds",
		Category: "audio",
		Status:   model.StatusDraftWaitingGate1,
	}
	require.NoError(t, s.UpsertRun(ctx, rec))

	got, err := s.GetRun(ctx, rec.RunSlug)
	require.NoError(t, err)
	assert.Equal(t, rec.Theme, got.Theme)
	assert.Equal(t, model.StatusDraftWaitingGate1, got.Status)

	// Upsert updates the status in place.
	rec.Status = model.StatusAssetsWaitingGate2
	require.NoError(t, s.UpsertRun(ctx, rec))

	got, err = s.GetRun(ctx, rec.RunSlug)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAssetsWaitingGate2, got.Status)

	runs, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestSQLiteStore_GetRun_NotFound(t *testing.T) {
	s := newTestSQLite(t)
	_, err := s.GetRun(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLiteStore_ListRuns_StatusFilter(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertRun(ctx, RunRecord{RunSlug: "a-2026-01-01", Theme: "a", Status: model.StatusPublished}))
	require.NoError(t, s.UpsertRun(ctx, RunRecord{RunSlug: "b-2026-01-02", Theme: "b", Status: model.StatusFailed}))

	runs, err := s.ListRuns(ctx, RunFilter{Status: model.StatusFailed})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "b-2026-01-02", runs[0].RunSlug)
}

func TestSQLiteStore_FetchCache(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	entry := model.FetchCacheEntry{
		URL:           "https://www.rtings.com/best-earbuds",
		Text:          "long page text",
		Method:        "html",
		ContentType:   "text/html",
		ContentLength: 14,
		FetchedAt:     now,
		ExpiresAt:     now.Add(time.Hour),
	}
	require.NoError(t, s.SetCachedFetch(ctx, entry))

	got, err := s.GetCachedFetch(ctx, entry.URL)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "long page text", got.Text)
	assert.Equal(t, "html", got.Method)

	// Unknown URL is a nil result, not an error.
	got, err = s.GetCachedFetch(ctx, "https://nope.example")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteStore_FetchCache_ExpiredInvisible(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.SetCachedFetch(ctx, model.FetchCacheEntry{
		URL:       "https://stale.example",
		Text:      "old",
		Method:    "markdown",
		FetchedAt: now.Add(-2 * time.Hour),
		ExpiresAt: now.Add(-time.Hour),
	}))

	got, err := s.GetCachedFetch(ctx, "https://stale.example")
	require.NoError(t, err)
	assert.Nil(t, got)

	n, err := s.DeleteExpiredFetches(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
