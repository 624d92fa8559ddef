// Package supamirror mirrors pipeline run state to a Supabase table so
// dashboards can watch progress without filesystem access. Mirroring is
// best-effort: callers log and continue on error.
package supamirror

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	supabase "github.com/supabase-community/supabase-go"
)

// DefaultTable is the upsert target unless WithTable overrides it.
const DefaultTable = "pipeline_states"

// RunStateRow is the mirrored view of one pipeline run.
type RunStateRow struct {
	RunSlug   string `json:"run_slug"`
	Theme     string `json:"theme"`
	Category  string `json:"category"`
	Status    string `json:"status"`
	Stage     string `json:"stage"`
	UpdatedAt string `json:"updated_at"`
}

// Mirror pushes run state upstream.
type Mirror interface {
	UpsertRunState(ctx context.Context, row RunStateRow) error
}

type client struct {
	sb    *supabase.Client
	table string
}

// Option configures the mirror.
type Option func(*client)

// WithTable overrides the target table.
func WithTable(table string) Option {
	return func(c *client) {
		if table != "" {
			c.table = table
		}
	}
}

// New creates a Supabase-backed mirror.
func New(url, serviceKey string, opts ...Option) (Mirror, error) {
	if url == "" || serviceKey == "" {
		return nil, eris.New("supamirror: url and service key not configured")
	}
	sb, err := supabase.NewClient(url, serviceKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, eris.Wrap(err, "supamirror: create client")
	}
	c := &client{sb: sb, table: DefaultTable}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func (c *client) UpsertRunState(ctx context.Context, row RunStateRow) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "supamirror: upsert run state")
	}
	if row.UpdatedAt == "" {
		row.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	var out []RunStateRow
	_, err := c.sb.From(c.table).
		Upsert(row, "run_slug", "", "").
		ExecuteTo(&out)
	if err != nil {
		return eris.Wrap(err, "supamirror: upsert run state")
	}
	return nil
}

// Noop is a Mirror that does nothing, used when Supabase is not configured.
type Noop struct{}

// UpsertRunState always succeeds.
func (Noop) UpsertRunState(context.Context, RunStateRow) error { return nil }
