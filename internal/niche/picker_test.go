package niche

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ranklab-media/studio-cli/internal/model"
)

func tempHistory(t *testing.T) *History {
	t.Helper()
	h, err := LoadHistory(filepath.Join(t.TempDir(), "niche_history.json"))
	require.NoError(t, err)
	return h
}

func TestPick_Deterministic(t *testing.T) {
	h := tempHistory(t)
	p := NewPicker(DefaultPool, h)

	first, err := p.Pick("2026-08-24")
	require.NoError(t, err)
	for range 5 {
		again, err := p.Pick("2026-08-24")
		require.NoError(t, err)
		assert.Equal(t, first.Keyword, again.Keyword)
	}
}

func TestPick_DifferentDatesRotate(t *testing.T) {
	h := tempHistory(t)
	p := NewPicker(DefaultPool, h)

	seen := map[string]bool{}
	day := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := range 10 {
		date := day.AddDate(0, 0, i).Format("2006-01-02")
		pick, err := p.Pick(date)
		require.NoError(t, err)
		require.NoError(t, h.Upsert(model.NicheHistoryEntry{
			Date:        date,
			Niche:       pick.Keyword,
			Category:    pick.Category,
			Subcategory: pick.Subcategory,
			Intent:      pick.Intent,
		}))
		seen[pick.Keyword] = true
	}
	assert.Len(t, seen, 10, "60-day exclusion must prevent repeats")
}

func TestPick_ExclusionWindow(t *testing.T) {
	pool := []model.NicheCandidate{
		{Keyword: "a", Category: "c1", Subcategory: "s1", Intent: model.IntentGeneral, ReviewCoverage: 5, AmazonDepth: 5, Monetization: 5},
		{Keyword: "b", Category: "c2", Subcategory: "s2", Intent: model.IntentWork, ReviewCoverage: 1, AmazonDepth: 1, Monetization: 1},
	}
	h := tempHistory(t)
	require.NoError(t, h.Upsert(model.NicheHistoryEntry{Date: "2026-08-20", Niche: "a", Category: "c1", Subcategory: "s1", Intent: model.IntentGeneral}))

	p := NewPicker(pool, h)
	pick, err := p.Pick("2026-08-24")
	require.NoError(t, err)
	assert.Equal(t, "b", pick.Keyword, "recently used niche must be excluded even with a higher score")
}

func TestPick_RelaxesTo30Days(t *testing.T) {
	pool := []model.NicheCandidate{
		{Keyword: "only", Category: "c", Subcategory: "s", Intent: model.IntentGeneral, ReviewCoverage: 3, AmazonDepth: 3, Monetization: 3},
	}
	h := tempHistory(t)
	// Used 45 days ago: inside 60-day window, outside 30-day window.
	require.NoError(t, h.Upsert(model.NicheHistoryEntry{Date: "2026-07-10", Niche: "only", Category: "c", Subcategory: "s", Intent: model.IntentGeneral}))

	p := NewPicker(pool, h)
	pick, err := p.Pick("2026-08-24")
	require.NoError(t, err)
	assert.Equal(t, "only", pick.Keyword)
}

func TestPick_NoAvailableNiches(t *testing.T) {
	pool := []model.NicheCandidate{
		{Keyword: "only", Category: "c", Subcategory: "s", Intent: model.IntentGeneral},
	}
	h := tempHistory(t)
	require.NoError(t, h.Upsert(model.NicheHistoryEntry{Date: "2026-08-23", Niche: "only", Category: "c", Subcategory: "s", Intent: model.IntentGeneral}))

	p := NewPicker(pool, h)
	_, err := p.Pick("2026-08-24")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no available niches")
}

func TestRotationBonus(t *testing.T) {
	c := model.NicheCandidate{Keyword: "x", Category: "audio", Subcategory: "earbuds", Intent: model.IntentFitness}
	day := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)

	// Nothing used recently: full bonus.
	assert.Equal(t, 30, rotationBonus(c, nil, day))

	// Category used yesterday: lose +15.
	entries := []model.NicheHistoryEntry{{Date: "2026-08-23", Niche: "y", Category: "audio", Subcategory: "other", Intent: model.IntentWork}}
	assert.Equal(t, 15, rotationBonus(c, entries, day))

	// Category used 3 days ago is outside its 2-day window.
	entries[0].Date = "2026-08-21"
	assert.Equal(t, 30, rotationBonus(c, entries, day))

	// Subcategory inside 14 days, intent inside 7 days.
	entries = []model.NicheHistoryEntry{
		{Date: "2026-08-15", Niche: "y", Category: "other", Subcategory: "earbuds", Intent: model.IntentWork},
		{Date: "2026-08-20", Niche: "z", Category: "other", Subcategory: "other", Intent: model.IntentFitness},
	}
	assert.Equal(t, 15, rotationBonus(c, entries, day))
}

func TestHistory_UpsertByDate(t *testing.T) {
	h := tempHistory(t)
	require.NoError(t, h.Upsert(model.NicheHistoryEntry{Date: "2026-08-24", Niche: "first"}))
	require.NoError(t, h.Upsert(model.NicheHistoryEntry{Date: "2026-08-24", Niche: "second", VideoID: "vid-1"}))

	entries := h.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "second", entries[0].Niche)
	assert.Equal(t, "vid-1", entries[0].VideoID)
}

func TestHistory_PersistsAcrossLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "niche_history.json")
	h1, err := LoadHistory(path)
	require.NoError(t, err)
	require.NoError(t, h1.Upsert(model.NicheHistoryEntry{Date: "2026-08-24", Niche: "robot vacuums"}))

	h2, err := LoadHistory(path)
	require.NoError(t, err)
	entries := h2.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "robot vacuums", entries[0].Niche)
}

func TestDefaultPool_Sane(t *testing.T) {
	require.GreaterOrEqual(t, len(DefaultPool), 80)

	seen := map[string]bool{}
	for _, c := range DefaultPool {
		assert.False(t, seen[c.Keyword], "duplicate keyword %s", c.Keyword)
		seen[c.Keyword] = true
		assert.NotEmpty(t, c.Category)
		assert.NotEmpty(t, c.Subcategory)
		assert.LessOrEqual(t, c.StaticScore(), 70)
	}
}

func TestLoadPool_YAMLOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pool.yaml")
	yaml := `
- keyword: test niche
  category: test
  subcategory: sub
  intent: general
  review_coverage: 4
  amazon_depth: 3
  monetization: 5
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	pool, err := LoadPool(path)
	require.NoError(t, err)
	require.Len(t, pool, 1)
	assert.Equal(t, "test niche", pool[0].Keyword)
	assert.Equal(t, 4*4+3*3+5*5+10, pool[0].StaticScore())
}
