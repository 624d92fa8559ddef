package supamirror

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_MissingConfig(t *testing.T) {
	_, err := New("", "key")
	require.Error(t, err)

	_, err = New("https://proj.supabase.co", "")
	require.Error(t, err)
}

func TestUpsertRunState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/pipeline_states", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("Apikey"))

		var rows []map[string]any
		var row map[string]any
		body := json.NewDecoder(r.Body)
		if err := body.Decode(&rows); err == nil && len(rows) > 0 {
			row = rows[0]
		}
		if row != nil {
			assert.Equal(t, "wireless-earbuds-2026-08-24", row["run_slug"])
			assert.NotEmpty(t, row["updated_at"])
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	m, err := New(srv.URL, "service-key")
	require.NoError(t, err)

	err = m.UpsertRunState(context.Background(), RunStateRow{
		RunSlug:  "wireless-earbuds-2026-08-24",
		Theme:    "wireless earbuds",
		Category: "electronics",
		Status:   "draft_waiting_gate_1",
		Stage:    "script",
	})
	require.NoError(t, err)
}

func TestUpsertRunState_CanceledContext(t *testing.T) {
	m, err := New("https://proj.supabase.co", "key")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, m.UpsertRunState(ctx, RunStateRow{RunSlug: "x"}))
}

func TestNoop(t *testing.T) {
	require.NoError(t, Noop{}.UpsertRunState(context.Background(), RunStateRow{}))
}

func TestWithTable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/run_dashboard", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	m, err := New(srv.URL, "service-key", WithTable("run_dashboard"))
	require.NoError(t, err)
	require.NoError(t, m.UpsertRunState(context.Background(), RunStateRow{RunSlug: "x"}))
}
