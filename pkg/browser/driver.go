// Package browser defines the headless-browser driver boundary. The CDP
// transport itself is an external collaborator; the pipeline only needs
// page navigation with a settle delay and raw HTML capture.
package browser

import (
	"context"
	"time"
)

// Driver navigates pages in a headless browser session.
type Driver interface {
	// Navigate loads a URL, waits for domcontentloaded plus a settle
	// delay, and returns the rendered page HTML.
	Navigate(ctx context.Context, url string) (string, error)
}

// NavigateOptions tune a navigation request.
type NavigateOptions struct {
	// Settle is how long to wait after domcontentloaded before capturing
	// the page. Defaults to 2s.
	Settle time.Duration

	// Timeout bounds the whole navigation. Defaults to 70s.
	Timeout time.Duration
}

// DefaultNavigateOptions returns the standard navigation tuning.
func DefaultNavigateOptions() NavigateOptions {
	return NavigateOptions{
		Settle:  2 * time.Second,
		Timeout: 70 * time.Second,
	}
}
