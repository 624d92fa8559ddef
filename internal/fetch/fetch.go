// Package fetch implements the cost-ordered page fetch cascade: TTL cache,
// markdown content negotiation, plain HTML with local conversion, then a
// headless browser fallback. Failures never raise; callers check
// FetchResult.OK.
package fetch

import (
	"context"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ranklab-media/studio-cli/internal/fsutil"
	"github.com/ranklab-media/studio-cli/internal/model"
	"github.com/ranklab-media/studio-cli/internal/resilience"
	"github.com/ranklab-media/studio-cli/pkg/browser"
)

const (
	// minTextLen is the success threshold for a cascade tier.
	minTextLen = 200

	acceptHeader = "text/markdown, text/html;q=0.9"
	userAgent    = "Mozilla/5.0 (compatible; StudioBot/1.0)"
)

// Cache is the fetch-cache subset of store.Store.
type Cache interface {
	GetCachedFetch(ctx context.Context, url string) (*model.FetchCacheEntry, error)
	SetCachedFetch(ctx context.Context, entry model.FetchCacheEntry) error
}

// Fetcher runs the cascade. Zero-value collaborators disable their tier:
// nil cache skips caching, nil browser skips the browser fallback.
type Fetcher struct {
	http     *http.Client
	browser  browser.Driver
	cache    Cache
	cacheTTL time.Duration
	minLen   int
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(f *Fetcher) { f.http = hc }
}

// WithBrowser enables the headless-browser fallback tier.
func WithBrowser(d browser.Driver) Option {
	return func(f *Fetcher) { f.browser = d }
}

// WithCache enables the TTL cache tier.
func WithCache(c Cache, ttl time.Duration) Option {
	return func(f *Fetcher) {
		f.cache = c
		f.cacheTTL = ttl
	}
}

// WithMinLength overrides the per-tier success threshold.
func WithMinLength(n int) Option {
	return func(f *Fetcher) { f.minLen = n }
}

// New creates a Fetcher with sensible defaults.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		http: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		cacheTTL: 24 * time.Hour,
		minLen:   minTextLen,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// PageText runs the cascade and returns just the text and producing method.
func (f *Fetcher) PageText(ctx context.Context, url, persistTo string) (string, string) {
	res, _ := f.PageData(ctx, url, persistTo)
	return res.Text, res.Method
}

// Page runs the cascade and returns the full FetchResult.
func (f *Fetcher) Page(ctx context.Context, url, persistTo string) model.FetchResult {
	res, _ := f.PageData(ctx, url, persistTo)
	return res
}

// PageData runs the cascade and additionally returns the raw HTML when the
// winning tier had any (the markdown tier does not).
func (f *Fetcher) PageData(ctx context.Context, url, persistTo string) (model.FetchResult, string) {
	// Tier 1: cache.
	if f.cache != nil {
		if entry, err := f.cache.GetCachedFetch(ctx, url); err == nil && entry != nil && len(entry.Text) >= f.minLen {
			res := model.FetchResult{
				URL:           url,
				Text:          entry.Text,
				Method:        "cached:" + entry.Method,
				ContentType:   entry.ContentType,
				TokenEstimate: entry.TokenEstimate,
				ContentLength: len(entry.Text),
				FetchedAt:     entry.FetchedAt,
			}
			f.persist(res, persistTo)
			return res, ""
		}
	}

	// Tiers 2+3: one GET with content negotiation; markdown wins outright,
	// otherwise convert the HTML locally.
	res, rawHTML := f.fetchHTTP(ctx, url)
	if res.OK() {
		f.finish(ctx, &res, persistTo)
		return res, rawHTML
	}

	// Tier 4: browser, with transient retries.
	if f.browser != nil {
		bres, braw := f.fetchBrowser(ctx, url)
		if bres.OK() {
			f.finish(ctx, &bres, persistTo)
			return bres, braw
		}
		if bres.Error != "" {
			res.Error = bres.Error
		}
	}

	zap.L().Warn("fetch: all tiers failed",
		zap.String("url", url),
		zap.String("error", res.Error),
	)
	return model.FetchResult{
		URL:       url,
		Method:    model.FetchFailed,
		FetchedAt: time.Now().UTC(),
		Error:     res.Error,
	}, ""
}

// PageAll fetches urls concurrently with a bounded worker pool. The pool is
// capped to the input size; one failed URL never cancels the rest. Results
// keep input order.
func (f *Fetcher) PageAll(ctx context.Context, urls []string, maxConcurrent int, persistTo string) []model.FetchResult {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	if maxConcurrent > len(urls) {
		maxConcurrent = len(urls)
	}

	results := make([]model.FetchResult, len(urls))
	var mu sync.Mutex

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)

	for i, u := range urls {
		g.Go(func() error {
			res := f.Page(gCtx, u, persistTo)
			mu.Lock()
			results[i] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// fetchHTTP performs the negotiated GET covering the markdown and html tiers.
func (f *Fetcher) fetchHTTP(ctx context.Context, url string) (model.FetchResult, string) {
	fail := func(err error) (model.FetchResult, string) {
		return model.FetchResult{URL: url, Method: model.FetchFailed, Error: err.Error()}, ""
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fail(err)
	}
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.http.Do(req)
	if err != nil {
		return fail(err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 2*1024*1024))
	if err != nil {
		return fail(err)
	}
	if resp.StatusCode >= 400 {
		return model.FetchResult{
			URL:    url,
			Method: model.FetchFailed,
			Error:  "fetch: status " + strconv.Itoa(resp.StatusCode),
		}, ""
	}

	contentType := resp.Header.Get("Content-Type")
	body := decodeBody(raw, contentType)

	if strings.Contains(contentType, "text/markdown") {
		res := model.FetchResult{
			URL:           url,
			Text:          strings.TrimSpace(body),
			Method:        model.FetchMarkdown,
			ContentType:   contentType,
			ContentLength: len(body),
			FetchedAt:     time.Now().UTC(),
		}
		if tok := resp.Header.Get("x-markdown-tokens"); tok != "" {
			if n, err := strconv.Atoi(tok); err == nil {
				res.TokenEstimate = n
			}
		}
		if len(res.Text) < f.minLen {
			res.Method = model.FetchFailed
			res.Error = "fetch: markdown below minimum length"
		}
		return res, ""
	}

	text := htmlToText(body)
	res := model.FetchResult{
		URL:           url,
		Text:          text,
		Method:        model.FetchHTML,
		ContentType:   contentType,
		ContentLength: len(text),
		FetchedAt:     time.Now().UTC(),
	}
	if len(text) < f.minLen {
		res.Method = model.FetchFailed
		res.Error = "fetch: extracted text below minimum length"
	}
	return res, body
}

// fetchBrowser navigates with the driver under the transient retry policy
// and converts the captured HTML.
func (f *Fetcher) fetchBrowser(ctx context.Context, url string) (model.FetchResult, string) {
	cfg := resilience.DefaultRetryConfig()
	cfg.OnRetry = resilience.RetryLogger("browser", "navigate")

	html, err := resilience.WithRetryVal(ctx, cfg, func(ctx context.Context) (string, error) {
		return f.browser.Navigate(ctx, url)
	})
	if err != nil {
		return model.FetchResult{URL: url, Method: model.FetchFailed, Error: err.Error()}, ""
	}

	text := htmlToText(html)
	res := model.FetchResult{
		URL:           url,
		Text:          text,
		Method:        model.FetchBrowser,
		ContentLength: len(text),
		FetchedAt:     time.Now().UTC(),
	}
	if len(text) < f.minLen {
		res.Method = model.FetchFailed
		res.Error = "fetch: browser text below minimum length"
	}
	return res, html
}

// finish caches and persists a successful result.
func (f *Fetcher) finish(ctx context.Context, res *model.FetchResult, persistTo string) {
	if f.cache != nil {
		now := time.Now().UTC()
		err := f.cache.SetCachedFetch(ctx, model.FetchCacheEntry{
			URL:           res.URL,
			Text:          res.Text,
			Method:        res.Method,
			ContentType:   res.ContentType,
			TokenEstimate: res.TokenEstimate,
			ContentLength: res.ContentLength,
			FetchedAt:     res.FetchedAt,
			ExpiresAt:     now.Add(f.cacheTTL),
		})
		if err != nil {
			zap.L().Warn("fetch: cache write failed",
				zap.String("url", res.URL),
				zap.Error(err),
			)
		}
	}
	f.persist(*res, persistTo)
}

// persist writes <slug>.md and <slug>.json under dir when set.
func (f *Fetcher) persist(res model.FetchResult, dir string) {
	if dir == "" {
		return
	}
	slug := fsutil.SlugURL(res.URL)
	mdPath := filepath.Join(dir, slug+".md")

	if err := fsutil.WriteFileAtomic(mdPath, []byte(res.Text), 0o644); err != nil {
		zap.L().Warn("fetch: persist text failed", zap.String("url", res.URL), zap.Error(err))
		return
	}
	res.ArtifactPath = mdPath
	res.Text = "" // metadata file carries no body

	if err := fsutil.WriteJSONAtomic(filepath.Join(dir, slug+".json"), res); err != nil {
		zap.L().Warn("fetch: persist metadata failed", zap.String("url", res.URL), zap.Error(err))
	}
}
