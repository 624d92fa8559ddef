package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ranklab-media/studio-cli/internal/fsutil"
	"github.com/ranklab-media/studio-cli/internal/model"
	"github.com/ranklab-media/studio-cli/pkg/browser"
)

type memCache struct {
	mu      sync.Mutex
	entries map[string]model.FetchCacheEntry
}

func newMemCache() *memCache {
	return &memCache{entries: map[string]model.FetchCacheEntry{}}
}

func (m *memCache) GetCachedFetch(_ context.Context, url string) (*model.FetchCacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[url]; ok {
		return &e, nil
	}
	return nil, nil
}

func (m *memCache) SetCachedFetch(_ context.Context, entry model.FetchCacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.URL] = entry
	return nil
}

func longText(prefix string) string {
	return prefix + strings.Repeat(" review content body", 20)
}

func TestPage_CacheBypassesNetwork(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte("<html><body>live</body></html>"))
	}))
	defer srv.Close()

	cache := newMemCache()
	require.NoError(t, cache.SetCachedFetch(context.Background(), model.FetchCacheEntry{
		URL:       srv.URL,
		Text:      longText("cached"),
		Method:    model.FetchHTML,
		FetchedAt: time.Now().UTC(),
	}))

	f := New(WithCache(cache, time.Hour))
	res := f.Page(context.Background(), srv.URL, "")

	assert.True(t, res.OK())
	assert.True(t, res.Cached())
	assert.Equal(t, "cached:html", res.Method)
	assert.Zero(t, calls.Load(), "cache hit must do no HTTP calls")
}

func TestPage_MarkdownNegotiation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("Accept"), "text/markdown")
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Header().Set("x-markdown-tokens", "512")
		_, _ = w.Write([]byte(longText("# Best Earbuds")))
	}))
	defer srv.Close()

	cache := newMemCache()
	f := New(WithCache(cache, time.Hour))
	res := f.Page(context.Background(), srv.URL, "")

	require.True(t, res.OK())
	assert.Equal(t, model.FetchMarkdown, res.Method)
	assert.Equal(t, 512, res.TokenEstimate)
	assert.Contains(t, res.Text, "# Best Earbuds")

	// Success populates the cache.
	entry, err := cache.GetCachedFetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, model.FetchMarkdown, entry.Method)
}

func TestPage_HTMLConversion(t *testing.T) {
	page := `<html><head><title>Review</title><script>var x=1;</script></head>
		<body><nav>menu</nav><p>` + longText("The Sony XM5 earbuds impressed us.") + `</p>
		<footer>copyright</footer></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	f := New()
	res, raw := f.PageData(context.Background(), srv.URL, "")

	require.True(t, res.OK())
	assert.Equal(t, model.FetchHTML, res.Method)
	assert.Contains(t, res.Text, "Sony XM5")
	assert.NotContains(t, res.Text, "var x=1")
	assert.NotContains(t, res.Text, "menu")
	assert.NotContains(t, res.Text, "copyright")
	assert.Contains(t, raw, "<html>", "html tier returns raw html")
}

func TestPage_BrowserFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body></body></html>")) // too short
	}))
	defer srv.Close()

	stub := browser.NewStub()
	stub.Pages[srv.URL] = "<html><body><p>" + longText("rendered by js") + "</p></body></html>"

	f := New(WithBrowser(stub))
	res := f.Page(context.Background(), srv.URL, "")

	require.True(t, res.OK())
	assert.Equal(t, model.FetchBrowser, res.Method)
	assert.Contains(t, res.Text, "rendered by js")
	assert.Equal(t, []string{srv.URL}, stub.Navigations())
}

func TestPage_AllTiersFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := New()
	res := f.Page(context.Background(), srv.URL, "")

	assert.False(t, res.OK())
	assert.Equal(t, model.FetchFailed, res.Method)
	assert.Empty(t, res.Text)
	assert.NotEmpty(t, res.Error)
}

func TestPage_Persistence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/markdown")
		_, _ = w.Write([]byte(longText("persisted body")))
	}))
	defer srv.Close()

	dir := t.TempDir()
	f := New()
	res := f.Page(context.Background(), srv.URL, dir)
	require.True(t, res.OK())

	slug := fsutil.SlugURL(srv.URL)
	body, err := os.ReadFile(filepath.Join(dir, slug+".md"))
	require.NoError(t, err)
	assert.Contains(t, string(body), "persisted body")

	var meta model.FetchResult
	require.NoError(t, fsutil.ReadJSON(filepath.Join(dir, slug+".json"), &meta))
	assert.Equal(t, model.FetchMarkdown, meta.Method)
	assert.Empty(t, meta.Text)
	assert.NotEmpty(t, meta.ArtifactPath)
}

func TestPageAll_IsolatesFailures(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/markdown")
		_, _ = w.Write([]byte(longText("batch page")))
	}))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	f := New()
	results := f.PageAll(context.Background(), []string{good.URL, bad.URL, good.URL}, 4, "")

	require.Len(t, results, 3)
	assert.True(t, results[0].OK())
	assert.False(t, results[1].OK())
	assert.True(t, results[2].OK(), "one failure must not cancel siblings")
}

func TestHTMLToText_BlockBreaks(t *testing.T) {
	text := htmlToText("<h1>Title</h1><p>first</p><p>second</p><aside>skip</aside>")
	assert.Contains(t, text, "Title\n")
	assert.Contains(t, text, "first\n")
	assert.NotContains(t, text, "skip")
}

func TestDecodeBody_Latin1(t *testing.T) {
	// 0xE9 is é in ISO-8859-1.
	raw := []byte{'c', 'a', 'f', 0xE9}
	out := decodeBody(raw, "text/html; charset=iso-8859-1")
	assert.Equal(t, "café", out)
}
