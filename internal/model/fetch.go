package model

import (
	"strings"
	"time"
)

// FetchMethod names the tier that produced a fetch result. Cache hits are
// reported as "cached:<original_method>".
const (
	FetchMarkdown = "markdown"
	FetchHTML     = "html"
	FetchBrowser  = "browser"
	FetchFailed   = "failed"
)

// FetchResult is the outcome of one page fetch.
type FetchResult struct {
	URL           string            `json:"url"`
	Text          string            `json:"text"`
	Method        string            `json:"method"`
	ContentType   string            `json:"content_type,omitempty"`
	TokenEstimate int               `json:"token_estimate,omitempty"`
	ContentLength int               `json:"content_length"`
	FetchedAt     time.Time         `json:"fetched_at"`
	Headers       map[string]string `json:"headers,omitempty"`
	ArtifactPath  string            `json:"artifact_path,omitempty"`
	Error         string            `json:"error,omitempty"`
}

// OK reports whether the fetch produced usable text.
func (r FetchResult) OK() bool {
	return r.Method != FetchFailed && len(r.Text) > 0
}

// Cached reports whether the result came from the TTL cache.
func (r FetchResult) Cached() bool {
	return strings.HasPrefix(r.Method, "cached:")
}

// FetchCacheEntry is the TTL-indexed cache record for a URL.
type FetchCacheEntry struct {
	URL           string    `json:"url"`
	Text          string    `json:"text"`
	Method        string    `json:"method"`
	ContentType   string    `json:"content_type,omitempty"`
	TokenEstimate int       `json:"token_estimate,omitempty"`
	ContentLength int       `json:"content_length"`
	FetchedAt     time.Time `json:"fetched_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}
