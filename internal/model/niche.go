package model

// Intent describes the buyer intent bucket of a niche.
type Intent string

const (
	IntentGeneral  Intent = "general"
	IntentGaming   Intent = "gaming"
	IntentTravel   Intent = "travel"
	IntentFitness  Intent = "fitness"
	IntentWork     Intent = "work"
	IntentCreative Intent = "creative"
)

// NicheCandidate is one entry in the curated niche pool.
type NicheCandidate struct {
	Keyword        string  `json:"keyword" yaml:"keyword"`
	Category       string  `json:"category" yaml:"category"`
	Subcategory    string  `json:"subcategory" yaml:"subcategory"`
	Intent         Intent  `json:"intent" yaml:"intent"`
	PriceBand      string  `json:"price_band" yaml:"price_band"`
	PriceMin       float64 `json:"price_min" yaml:"price_min"`
	PriceMax       float64 `json:"price_max" yaml:"price_max"`
	ReviewCoverage int     `json:"review_coverage" yaml:"review_coverage"`
	AmazonDepth    int     `json:"amazon_depth" yaml:"amazon_depth"`
	Monetization   int     `json:"monetization" yaml:"monetization"`
}

// StaticScore is the rotation-independent niche score (max 70).
func (n NicheCandidate) StaticScore() int {
	return n.ReviewCoverage*4 + n.AmazonDepth*3 + n.Monetization*5 + 10
}

// EffectivePriceBand returns the explicit price band, or derives one from
// the price ceiling when unset.
func (n NicheCandidate) EffectivePriceBand() string {
	if n.PriceBand != "" {
		return n.PriceBand
	}
	switch {
	case n.PriceMax < 80:
		return "budget"
	case n.PriceMax < 250:
		return "mid"
	default:
		return "premium"
	}
}

// NicheHistoryEntry records one published (or picked) niche per date.
// Dates are YYYY-MM-DD strings; at most one entry per date.
type NicheHistoryEntry struct {
	Date           string   `json:"date"`
	Niche          string   `json:"niche"`
	VideoID        string   `json:"video_id,omitempty"`
	Category       string   `json:"category"`
	Subcategory    string   `json:"subcategory"`
	Intent         Intent   `json:"intent"`
	SeedKeywords   []string `json:"seed_keywords,omitempty"`
	FinalTop5ASINs []string `json:"final_top5_asins,omitempty"`
}
