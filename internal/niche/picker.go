// Package niche selects the day's topic from a curated pool: recently used
// niches are excluded, rotation bonuses reward fresh categories, and ties
// break on a date-seeded hash so the pick is deterministic per date.
package niche

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sort"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ranklab-media/studio-cli/internal/model"
)

const (
	exclusionDays        = 60
	relaxedExclusionDays = 30

	categoryWindowDays    = 2
	subcategoryWindowDays = 14
	intentWindowDays      = 7

	primaryThreshold  = 70
	fallbackThreshold = 60
	minPassing        = 12
)

// ErrNoAvailableNiches is returned when even the relaxed exclusion window
// leaves the pool empty.
var ErrNoAvailableNiches = eris.New("niche: no available niches")

// ScoredNiche is a pool candidate with its rotation-adjusted score.
type ScoredNiche struct {
	model.NicheCandidate
	StaticScore   int `json:"static_score"`
	RotationBonus int `json:"rotation_bonus"`
	Total         int `json:"total"`
}

// Picker ranks pool candidates against the usage history.
type Picker struct {
	pool    []model.NicheCandidate
	history *History
}

// NewPicker creates a Picker over pool and history.
func NewPicker(pool []model.NicheCandidate, history *History) *Picker {
	return &Picker{pool: pool, history: history}
}

// Pick returns the winning niche for date (YYYY-MM-DD).
func (p *Picker) Pick(date string) (*ScoredNiche, error) {
	ranked, err := p.Rank(date)
	if err != nil {
		return nil, err
	}
	return &ranked[0], nil
}

// Rank returns all eligible candidates for date, best first. The order is
// deterministic: same date and history always rank identically.
func (p *Picker) Rank(date string) ([]ScoredNiche, error) {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return nil, eris.Wrapf(err, "niche: parse date %s", date)
	}

	entries := p.history.Entries()

	available := p.excludeRecent(entries, day, exclusionDays)
	if len(available) == 0 {
		zap.L().Warn("niche: 60-day window empty, relaxing to 30 days")
		available = p.excludeRecent(entries, day, relaxedExclusionDays)
	}
	if len(available) == 0 {
		return nil, ErrNoAvailableNiches
	}

	scored := make([]ScoredNiche, 0, len(available))
	for _, c := range available {
		static := c.StaticScore()
		bonus := rotationBonus(c, entries, day)
		scored = append(scored, ScoredNiche{
			NicheCandidate: c,
			StaticScore:    static,
			RotationBonus:  bonus,
			Total:          static + bonus,
		})
	}

	scored = thresholdFilter(scored)

	seed := dateSeed(date)
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Total != scored[j].Total {
			return scored[i].Total > scored[j].Total
		}
		return tieHash(scored[i].Keyword, seed) < tieHash(scored[j].Keyword, seed)
	})
	return scored, nil
}

func (p *Picker) excludeRecent(entries []model.NicheHistoryEntry, day time.Time, windowDays int) []model.NicheCandidate {
	used := map[string]bool{}
	for _, e := range entries {
		if withinWindow(e.Date, day, windowDays) {
			used[e.Niche] = true
		}
	}

	var out []model.NicheCandidate
	for _, c := range p.pool {
		if !used[c.Keyword] {
			out = append(out, c)
		}
	}
	return out
}

func rotationBonus(c model.NicheCandidate, entries []model.NicheHistoryEntry, day time.Time) int {
	bonus := 0

	usedWithin := func(windowDays int, match func(model.NicheHistoryEntry) bool) bool {
		for _, e := range entries {
			if withinWindow(e.Date, day, windowDays) && match(e) {
				return true
			}
		}
		return false
	}

	if !usedWithin(categoryWindowDays, func(e model.NicheHistoryEntry) bool { return e.Category == c.Category }) {
		bonus += 15
	}
	if !usedWithin(subcategoryWindowDays, func(e model.NicheHistoryEntry) bool { return e.Subcategory == c.Subcategory }) {
		bonus += 10
	}
	if !usedWithin(intentWindowDays, func(e model.NicheHistoryEntry) bool { return e.Intent == c.Intent }) {
		bonus += 5
	}
	return bonus
}

// withinWindow reports whether entryDate falls in [day-window, day).
func withinWindow(entryDate string, day time.Time, windowDays int) bool {
	d, err := time.Parse("2006-01-02", entryDate)
	if err != nil {
		return false
	}
	age := day.Sub(d)
	return age >= 0 && age < time.Duration(windowDays)*24*time.Hour
}

func thresholdFilter(scored []ScoredNiche) []ScoredNiche {
	for _, threshold := range []int{primaryThreshold, fallbackThreshold} {
		var pass []ScoredNiche
		for _, s := range scored {
			if s.Total >= threshold {
				pass = append(pass, s)
			}
		}
		if len(pass) >= minPassing {
			return pass
		}
	}
	return scored
}

// dateSeed derives the daily tiebreak seed from the first 8 hex chars of
// sha256(date).
func dateSeed(date string) uint64 {
	sum := sha256.Sum256([]byte(date))
	hexed := hex.EncodeToString(sum[:])
	seed, err := strconv.ParseUint(hexed[:8], 16, 64)
	if err != nil {
		return 0
	}
	return seed
}

// tieHash orders equal-score candidates pseudo-randomly but stably per day.
func tieHash(keyword string, seed uint64) uint64 {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], seed)
	sum := sha256.Sum256(append([]byte(keyword+":"), buf[:]...))
	return binary.BigEndian.Uint64(sum[:8])
}
