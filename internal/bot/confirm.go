package bot

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// confirmTTL is how long a staged pipeline command stays confirmable.
const confirmTTL = 5 * time.Minute

type pendingConfirm struct {
	adminID int64
	args    []string
	expires time.Time
}

// confirmStore holds staged pipeline commands keyed by hex token.
// Tokens are admin-scoped and single-use; expired entries are pruned on
// every access.
type confirmStore struct {
	mu       sync.Mutex
	pending  map[string]pendingConfirm
	now      func() time.Time
	newToken func() (string, error)
}

func newConfirmStore() *confirmStore {
	return &confirmStore{
		pending:  map[string]pendingConfirm{},
		now:      time.Now,
		newToken: randomToken,
	}
}

// newConfirmStoreForTest injects clock and token generation.
func newConfirmStoreForTest(now func() time.Time, newToken func() (string, error)) *confirmStore {
	s := newConfirmStore()
	if now != nil {
		s.now = now
	}
	if newToken != nil {
		s.newToken = newToken
	}
	return s
}

func randomToken() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", eris.Wrap(err, "bot: confirm token")
	}
	return hex.EncodeToString(buf), nil
}

// Add stages a command and returns its token.
func (s *confirmStore) Add(adminID int64, args []string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune()

	token, err := s.newToken()
	if err != nil {
		return "", err
	}
	s.pending[token] = pendingConfirm{
		adminID: adminID,
		args:    args,
		expires: s.now().Add(confirmTTL),
	}
	return token, nil
}

// Take consumes a token for the given admin. Unknown, expired, or
// cross-admin tokens all fail the same way.
func (s *confirmStore) Take(adminID int64, token string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune()

	p, ok := s.pending[token]
	if !ok || p.adminID != adminID {
		return nil, fmt.Errorf("unknown or expired confirmation token")
	}
	delete(s.pending, token)
	return p.args, nil
}

// prune drops expired entries; callers hold the lock.
func (s *confirmStore) prune() {
	now := s.now()
	for token, p := range s.pending {
		if now.After(p.expires) {
			delete(s.pending, token)
		}
	}
}
