package browser

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
)

// Stub is a scripted Driver for tests: it records navigations and serves
// canned HTML per URL.
type Stub struct {
	mu    sync.Mutex
	Pages map[string]string
	Errs  map[string]error
	Log   []string
}

// NewStub creates an empty Stub driver.
func NewStub() *Stub {
	return &Stub{
		Pages: map[string]string{},
		Errs:  map[string]error{},
	}
}

// Navigate returns the scripted page or error for url.
func (s *Stub) Navigate(_ context.Context, url string) (string, error) {
	s.mu.Lock()
	s.Log = append(s.Log, url)
	s.mu.Unlock()

	if err, ok := s.Errs[url]; ok {
		return "", err
	}
	if html, ok := s.Pages[url]; ok {
		return html, nil
	}
	return "", eris.Errorf("browser: no page scripted for %s", url)
}

// Navigations returns the ordered list of visited URLs.
func (s *Stub) Navigations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.Log))
	copy(out, s.Log)
	return out
}
