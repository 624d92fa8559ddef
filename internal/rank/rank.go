// Package rank turns verified products into the final Top-5: a subcategory
// hard gate, regret-penalized scoring, buyer-label assignment, and narrative
// synthesis for the script stage.
package rank

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ranklab-media/studio-cli/internal/model"
)

// Rejection records a product dropped by the subcategory gate.
type Rejection struct {
	ProductName string `json:"product_name"`
	Reason      string `json:"reason"`
}

// Result is the ranker output.
type Result struct {
	Top      []model.TopProduct `json:"top"`
	Rejected []Rejection        `json:"rejected,omitempty"`
}

// Top5 ranks products under an optional subcategory contract. Gate
// rejections happen before scoring; brand-diversity problems only warn on
// the bus.
func Top5(products []model.VerifiedProduct, contract *model.SubcategoryContract, bus *model.Bus) (*Result, error) {
	if len(products) == 0 {
		return nil, eris.New("rank: no verified products to rank")
	}

	res := &Result{}

	// Step 1: hard gate.
	var eligible []model.VerifiedProduct
	for _, p := range products {
		if reason := gateReject(p, contract); reason != "" {
			zap.L().Info("rank: product rejected by subcategory gate",
				zap.String("product", p.ProductName),
				zap.String("reason", reason),
			)
			res.Rejected = append(res.Rejected, Rejection{ProductName: p.ProductName, Reason: reason})
			continue
		}
		eligible = append(eligible, p)
	}
	if len(eligible) == 0 {
		return nil, eris.New("rank: subcategory gate rejected every product")
	}

	// Steps 2-3: score and take the top five.
	type scored struct {
		product model.VerifiedProduct
		card    model.Scorecard
	}
	cards := make([]scored, 0, len(eligible))
	for _, p := range eligible {
		cards = append(cards, scored{product: p, card: scorecard(p)})
	}
	sort.SliceStable(cards, func(i, j int) bool { return cards[i].card.Total > cards[j].card.Total })
	if len(cards) > 5 {
		cards = cards[:5]
	}

	// Steps 4 and 6: rank, label, narrative.
	for i, s := range cards {
		top := model.TopProduct{
			VerifiedProduct: s.product,
			Rank:            i + 1,
			Scorecard:       s.card,
		}
		top.CategoryLabel = assignLabel(top)
		synthesize(&top)
		res.Top = append(res.Top, top)
	}

	// Step 5: brand diversity warning.
	if warning := brandDiversityWarning(res.Top); warning != "" && bus != nil {
		bus.Publish(model.Message{
			Sender:   "ranker",
			Receiver: model.Broadcast,
			Type:     model.MsgInfo,
			Stage:    "rank",
			Content:  warning,
		})
	}

	return res, nil
}

// gateReject returns a non-empty reason when the contract rejects p.
func gateReject(p model.VerifiedProduct, contract *model.SubcategoryContract) string {
	if contract == nil {
		return ""
	}
	haystack := strings.ToLower(p.ProductName + " " + p.AmazonTitle)

	for _, term := range contract.ForbiddenTerms {
		if strings.Contains(haystack, strings.ToLower(term)) {
			return fmt.Sprintf("contains forbidden term %q", term)
		}
	}
	if len(contract.RequiredTerms) > 0 {
		found := false
		for _, term := range contract.RequiredTerms {
			if strings.Contains(haystack, strings.ToLower(term)) {
				found = true
				break
			}
		}
		if !found {
			return fmt.Sprintf("missing every required term for subcategory %q", contract.Subcategory)
		}
	}
	return ""
}

// brandDiversityWarning fires when one brand dominates the final list.
func brandDiversityWarning(top []model.TopProduct) string {
	counts := map[string]int{}
	for _, p := range top {
		if p.Brand != "" {
			counts[strings.ToLower(p.Brand)]++
		}
	}
	for brand, n := range counts {
		if n >= 3 && len(top) >= 5 {
			return fmt.Sprintf("brand %q holds %d of %d slots", brand, n, len(top))
		}
	}
	return ""
}
