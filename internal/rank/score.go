package rank

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ranklab-media/studio-cli/internal/model"
)

// Scoring weights. Evidence dominates, regret subtracts hardest per point.
const (
	weightEvidence   = 3.0
	weightConfidence = 2.0
	weightPrice      = 1.0
	weightReviews    = 0.5
	weightRegret     = 2.5
)

var priceNumRe = regexp.MustCompile(`\$?(\d[\d,]*(?:\.\d+)?)`)

// scorecard computes the weighted components for one verified product.
func scorecard(p model.VerifiedProduct) model.Scorecard {
	sc := model.Scorecard{
		Evidence:      evidenceScore(p),
		Confidence:    confidenceScore(p.MatchConfidence),
		Price:         priceScore(p.AmazonPrice),
		Reviews:       reviewsScore(p.AmazonReviewsCount),
		RegretPenalty: regretScore(p),
	}
	sc.Total = weightEvidence*sc.Evidence +
		weightConfidence*sc.Confidence +
		weightPrice*sc.Price +
		weightReviews*sc.Reviews -
		weightRegret*sc.RegretPenalty
	return sc
}

func evidenceScore(p model.VerifiedProduct) float64 {
	score := 2.0 * float64(len(p.Evidence))
	for _, s := range p.Evidence {
		switch s.Source {
		case "Wirecutter":
			score += 2.0
		case "RTINGS":
			score += 1.5
		}
	}
	return score
}

func confidenceScore(c model.MatchConfidence) float64 {
	switch c {
	case model.ConfidenceHigh:
		return 3.0
	case model.ConfidenceMedium:
		return 1.5
	default:
		return 0.5
	}
}

// priceScore rewards the mid-market band where affiliate conversion is best.
func priceScore(price string) float64 {
	p, ok := parsePrice(price)
	if !ok {
		return 1.0
	}
	switch {
	case p >= 50 && p <= 300:
		return 2.0
	case (p >= 30 && p < 50) || (p > 300 && p <= 500):
		return 1.5
	case p < 30:
		return 0.5
	default:
		return 1.0
	}
}

func reviewsScore(count int) float64 {
	switch {
	case count > 10000:
		return 2.0
	case count > 1000:
		return 1.5
	case count > 100:
		return 1.0
	default:
		return 0.5
	}
}

// regretScore accumulates risk signals, capped at 3.
func regretScore(p model.VerifiedProduct) float64 {
	regret := 0.0
	if len(p.Evidence) <= 1 {
		regret += 1.0
	}
	if !mentionsDownside(p) {
		regret += 0.5
	}
	if !mentionsWarranty(p) {
		regret += 0.5
	}
	if price, ok := parsePrice(p.AmazonPrice); ok && (price < 20 || price > 800) {
		regret += 1.0
	}
	if regret > 3.0 {
		regret = 3.0
	}
	return regret
}

func mentionsDownside(p model.VerifiedProduct) bool {
	for _, claim := range p.KeyClaims {
		if downsideKeyword(claim) != "" {
			return true
		}
	}
	return false
}

func mentionsWarranty(p model.VerifiedProduct) bool {
	for _, claim := range p.KeyClaims {
		if strings.Contains(strings.ToLower(claim), "warranty") {
			return true
		}
	}
	return false
}

func parsePrice(price string) (float64, bool) {
	m := priceNumRe.FindStringSubmatch(price)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
