package rank

import (
	"fmt"
	"strings"

	"github.com/ranklab-media/studio-cli/internal/model"
)

// downsideKeywords mark a claim as criticism rather than praise. The first
// hit becomes the product's downside line.
var downsideKeywords = []string{
	"downside", "drawback", "weakness", "complaint", "lacking", "missing",
	"disappointing", "worse", "cons", "mediocre", "struggles", "falls short",
	"only complaint", "but it", "however", "unfortunately", "trade-off",
}

// scenarioKeywords route a product to the Specific Scenario label.
var scenarioKeywords = []string{
	"travel", "calls", "gaming", "running", "music", "rooms", "commute", "office",
}

const maxBenefits = 3

// assignLabel picks the buyer-positioning label for a ranked product.
func assignLabel(p model.TopProduct) model.CategoryLabel {
	if p.Rank == 1 {
		return model.LabelNoRegret
	}

	claims := strings.ToLower(strings.Join(p.KeyClaims, " "))
	switch {
	case strings.Contains(claims, "best value"):
		return model.LabelBestValue
	case strings.Contains(claims, "upgrade pick"),
		strings.Contains(claims, "premium"),
		strings.Contains(claims, "splurge"):
		return model.LabelBestUpgrade
	}
	for _, kw := range scenarioKeywords {
		if strings.Contains(claims, kw) {
			return model.LabelScenario
		}
	}

	if price, ok := parsePrice(p.AmazonPrice); ok && price > 250 {
		return model.LabelBestUpgrade
	}

	switch p.Rank {
	case 2:
		return model.LabelBestValue
	case 3:
		return model.LabelBestUpgrade
	case 4:
		return model.LabelScenario
	default:
		return model.LabelAlternative
	}
}

// synthesize fills benefits, downside, and the buy/avoid lines.
func synthesize(p *model.TopProduct) {
	var pool []string
	pool = append(pool, p.KeyClaims...)
	for _, s := range p.Evidence {
		if s.Label != "" {
			pool = append(pool, s.Label)
		}
	}

	seen := map[string]bool{}
	for _, claim := range pool {
		key := strings.ToLower(strings.TrimSpace(claim))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		if kw := downsideKeyword(claim); kw != "" {
			if p.Downside == "" {
				p.Downside = strings.TrimSpace(claim)
			}
			continue
		}
		if len(p.Benefits) < maxBenefits {
			p.Benefits = append(p.Benefits, strings.TrimSpace(claim))
		}
	}

	p.BuyThisIf = buyLine(*p)
	p.AvoidThisIf = avoidLine(*p)
}

func buyLine(p model.TopProduct) string {
	if len(p.Benefits) > 0 {
		return fmt.Sprintf("you want the %s: %s", strings.ToLower(string(p.CategoryLabel)), p.Benefits[0])
	}
	return fmt.Sprintf("you want the %s in this category", strings.ToLower(string(p.CategoryLabel)))
}

func avoidLine(p model.TopProduct) string {
	if p.Downside != "" {
		return p.Downside
	}
	switch p.CategoryLabel {
	case model.LabelNoRegret:
		return "you need the absolute cheapest option"
	case model.LabelBestValue:
		return "you want flagship performance regardless of price"
	case model.LabelBestUpgrade:
		return "you are shopping on a tight budget"
	case model.LabelScenario:
		return "your use case differs from its specialty"
	default:
		return "one of the higher picks is in stock at a similar price"
	}
}

// downsideKeyword returns the first downside keyword in text, or "".
func downsideKeyword(text string) string {
	lower := strings.ToLower(text)
	for _, kw := range downsideKeywords {
		if strings.Contains(lower, kw) {
			return kw
		}
	}
	return ""
}
