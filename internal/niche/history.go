package niche

import (
	"os"
	"sort"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/ranklab-media/studio-cli/internal/fsutil"
	"github.com/ranklab-media/studio-cli/internal/model"
)

// History is the process-wide niche usage log, at most one entry per date,
// persisted as niche_history.json.
type History struct {
	mu      sync.Mutex
	path    string
	entries []model.NicheHistoryEntry
}

// LoadHistory reads the history file at path. A missing file yields an
// empty history bound to that path.
func LoadHistory(path string) (*History, error) {
	h := &History{path: path}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return h, nil
	}
	if err := fsutil.ReadJSON(path, &h.entries); err != nil {
		return nil, eris.Wrap(err, "niche: load history")
	}
	return h, nil
}

// Entries returns a copy of the history, oldest first.
func (h *History) Entries() []model.NicheHistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]model.NicheHistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Upsert records entry under its date, replacing any existing entry for
// that date, and saves atomically.
func (h *History) Upsert(entry model.NicheHistoryEntry) error {
	if entry.Date == "" {
		return eris.New("niche: history entry has no date")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	replaced := false
	for i, e := range h.entries {
		if e.Date == entry.Date {
			h.entries[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		h.entries = append(h.entries, entry)
		sort.Slice(h.entries, func(i, j int) bool {
			return h.entries[i].Date < h.entries[j].Date
		})
	}

	if err := fsutil.WriteJSONAtomic(h.path, h.entries); err != nil {
		return eris.Wrap(err, "niche: save history")
	}
	return nil
}
