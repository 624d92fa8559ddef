// Package store persists the process-wide run index and the fetch TTL cache.
package store

import (
	"context"
	"time"

	"github.com/ranklab-media/studio-cli/internal/model"
)

// RunRecord is one row in the run index, mirroring the on-disk
// pipeline_state.json so status commands and the HTTP endpoint can list
// runs without walking the artifacts tree.
type RunRecord struct {
	RunSlug   string          `json:"run_slug"`
	Theme     string          `json:"theme"`
	Category  string          `json:"category"`
	Status    model.RunStatus `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines persistence for the run index and the fetch cache.
type Store interface {
	// Run index
	UpsertRun(ctx context.Context, rec RunRecord) error
	GetRun(ctx context.Context, runSlug string) (*RunRecord, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]RunRecord, error)

	// Fetch cache
	GetCachedFetch(ctx context.Context, url string) (*model.FetchCacheEntry, error)
	SetCachedFetch(ctx context.Context, entry model.FetchCacheEntry) error
	DeleteExpiredFetches(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
