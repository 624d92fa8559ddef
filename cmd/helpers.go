package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ranklab-media/studio-cli/internal/fetch"
	"github.com/ranklab-media/studio-cli/internal/niche"
	"github.com/ranklab-media/studio-cli/internal/store"
	"github.com/ranklab-media/studio-cli/internal/verify"
	"github.com/ranklab-media/studio-cli/pkg/llm"
	"github.com/ranklab-media/studio-cli/pkg/paapi"
	"github.com/ranklab-media/studio-cli/pkg/supamirror"
)

// printJSON writes the machine-readable command summary to stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return eris.Wrap(err, "cmd: encode output")
	}
	return nil
}

// initStore opens the run-index store from config.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	case "sqlite", "":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("cmd: unknown store driver %q", cfg.Store.Driver)
	}
}

// initLLM builds the Anthropic client, failing fast on a missing key.
func initLLM() (llm.Client, error) {
	if cfg.Anthropic.Key == "" {
		return nil, eris.New("cmd: anthropic.key is not configured")
	}
	return llm.NewClient(cfg.Anthropic.Key), nil
}

// initPicker loads the niche pool and history from config.
func initPicker() (*niche.Picker, *niche.History, error) {
	pool := niche.DefaultPool
	if cfg.Niche.PoolPath != "" {
		loaded, err := niche.LoadPool(cfg.Niche.PoolPath)
		if err != nil {
			return nil, nil, err
		}
		pool = loaded
	}
	history, err := niche.LoadHistory(cfg.Niche.HistoryPath)
	if err != nil {
		return nil, nil, err
	}
	return niche.NewPicker(pool, history), history, nil
}

// initVerifier wires the marketplace backend. PA-API credentials take
// priority; without them verification cannot run.
func initVerifier() (*verify.Verifier, error) {
	if cfg.Amazon.AssociateTag == "" {
		return nil, eris.New("cmd: amazon.associate_tag is not configured")
	}
	if cfg.Amazon.PAAPIAccessKey == "" || cfg.Amazon.PAAPISecretKey == "" {
		return nil, eris.New("cmd: amazon PA-API credentials are not configured")
	}
	signer := paapi.NewSigV4Signer(cfg.Amazon.PAAPIAccessKey, cfg.Amazon.PAAPISecretKey, cfg.Amazon.Host)
	client := paapi.NewClient(signer, cfg.Amazon.AssociateTag, cfg.Amazon.Host)
	return verify.New(verify.NewPAAPIBackend(client), cfg.Amazon.AssociateTag), nil
}

// initFetcher builds the page fetcher with the store-backed TTL cache.
// The returned cleanup closes the cache store.
func initFetcher(ctx context.Context) (*fetch.Fetcher, func()) {
	opts := []fetch.Option{
		fetch.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Fetch.TimeoutSecs) * time.Second}),
	}
	cleanup := func() {}
	st, err := initStore(ctx)
	if err == nil {
		if err := st.Migrate(ctx); err == nil {
			opts = append(opts, fetch.WithCache(st, time.Duration(cfg.Fetch.CacheTTLHours)*time.Hour))
			cleanup = func() { _ = st.Close() }
		} else {
			zap.L().Warn("cmd: fetch cache unavailable", zap.Error(err))
			_ = st.Close()
		}
	} else {
		zap.L().Warn("cmd: fetch cache unavailable", zap.Error(err))
	}
	return fetch.New(opts...), cleanup
}

// initMirror returns the dashboard mirror, or nil when Supabase is not
// configured.
func initMirror() (supamirror.Mirror, error) {
	if cfg.Supabase.URL == "" {
		return nil, nil
	}
	return supamirror.New(cfg.Supabase.URL, cfg.Supabase.ServiceRoleKey,
		supamirror.WithTable(cfg.Supabase.Table))
}
