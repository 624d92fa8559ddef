package rank

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ranklab-media/studio-cli/internal/model"
)

func verified(name, brand, price string, sources ...string) model.VerifiedProduct {
	var refs []model.SourceRef
	for _, s := range sources {
		refs = append(refs, model.SourceRef{Source: s})
	}
	return model.VerifiedProduct{
		ProductName:        name,
		Brand:              brand,
		ASIN:               "B0" + name[:min(8, len(name))],
		AmazonPrice:        price,
		AmazonReviewsCount: 5000,
		MatchConfidence:    model.ConfidenceHigh,
		Evidence:           refs,
	}
}

func TestTop5_RanksByScore(t *testing.T) {
	products := []model.VerifiedProduct{
		verified("weak-one", "BrandA", "$15.00"),
		verified("strong-one", "BrandB", "$120.00", "Wirecutter", "RTINGS", "CNET"),
		verified("middle-one", "BrandC", "$80.00", "PCMag"),
	}

	res, err := Top5(products, nil, nil)
	require.NoError(t, err)
	require.Len(t, res.Top, 3)

	assert.Equal(t, "strong-one", res.Top[0].ProductName)
	assert.Equal(t, 1, res.Top[0].Rank)
	assert.Equal(t, model.LabelNoRegret, res.Top[0].CategoryLabel)
	assert.Equal(t, "weak-one", res.Top[2].ProductName)

	for i, p := range res.Top {
		assert.Equal(t, i+1, p.Rank, "ranks are 1..n in score order")
		if i > 0 {
			assert.LessOrEqual(t, p.Scorecard.Total, res.Top[i-1].Scorecard.Total)
		}
	}
}

func TestTop5_CapsAtFive(t *testing.T) {
	var products []model.VerifiedProduct
	for i := range 9 {
		products = append(products, verified(fmt.Sprintf("product-%d", i), "Brand", "$100.00", "CNET"))
	}
	res, err := Top5(products, nil, nil)
	require.NoError(t, err)
	assert.Len(t, res.Top, 5)
}

func TestTop5_SubcategoryGate(t *testing.T) {
	contract := &model.SubcategoryContract{
		Subcategory:    "earbuds",
		RequiredTerms:  []string{"earbuds", "in-ear"},
		ForbiddenTerms: []string{"headphones"},
	}
	products := []model.VerifiedProduct{
		verified("Sony WF Earbuds", "Sony", "$200.00", "Wirecutter"),
		verified("Sony WH Headphones", "Sony", "$300.00", "Wirecutter", "RTINGS"),
		verified("Generic Speaker", "JBL", "$50.00", "CNET"),
	}

	res, err := Top5(products, contract, nil)
	require.NoError(t, err)
	require.Len(t, res.Top, 1)
	assert.Equal(t, "Sony WF Earbuds", res.Top[0].ProductName)

	require.Len(t, res.Rejected, 2)
	assert.Contains(t, res.Rejected[0].Reason, "forbidden")
	assert.Contains(t, res.Rejected[1].Reason, "required")
}

func TestTop5_GateRejectsEverything(t *testing.T) {
	contract := &model.SubcategoryContract{Subcategory: "x", RequiredTerms: []string{"nomatch"}}
	_, err := Top5([]model.VerifiedProduct{verified("a", "b", "$10")}, contract, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected every product")
}

func TestTop5_EmptyInput(t *testing.T) {
	_, err := Top5(nil, nil, nil)
	require.Error(t, err)
}

func TestTop5_BrandDiversityWarning(t *testing.T) {
	products := []model.VerifiedProduct{
		verified("sony-a", "Sony", "$100.00", "Wirecutter"),
		verified("sony-b", "Sony", "$110.00", "RTINGS"),
		verified("sony-c", "Sony", "$120.00", "CNET"),
		verified("bose-a", "Bose", "$130.00", "PCMag"),
		verified("jbl-a", "JBL", "$140.00", "CNET"),
	}

	bus := model.NewBus()
	res, err := Top5(products, nil, bus)
	require.NoError(t, err)
	require.Len(t, res.Top, 5, "diversity problems must not drop products")

	msgs := bus.Filter("", model.MsgInfo, "rank")
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Content, "sony")
}

func TestScorecard_Formula(t *testing.T) {
	p := verified("x", "Sony", "$120.00", "Wirecutter", "RTINGS")
	sc := scorecard(p)

	// evidence = 2*2 + 2 (Wirecutter) + 1.5 (RTINGS)
	assert.InDelta(t, 7.5, sc.Evidence, 0.001)
	assert.InDelta(t, 3.0, sc.Confidence, 0.001)
	assert.InDelta(t, 2.0, sc.Price, 0.001)
	assert.InDelta(t, 1.5, sc.Reviews, 0.001)
	// regret: no downside (+0.5), no warranty (+0.5)
	assert.InDelta(t, 1.0, sc.RegretPenalty, 0.001)
	assert.InDelta(t, 3.0*7.5+2.0*3.0+1.0*2.0+0.5*1.5-2.5*1.0, sc.Total, 0.001)
}

func TestPriceScore_Bands(t *testing.T) {
	assert.InDelta(t, 2.0, priceScore("$50.00"), 0.001)
	assert.InDelta(t, 2.0, priceScore("$300.00"), 0.001)
	assert.InDelta(t, 1.5, priceScore("$30.00"), 0.001)
	assert.InDelta(t, 1.5, priceScore("$449.99"), 0.001)
	assert.InDelta(t, 0.5, priceScore("$19.99"), 0.001)
	assert.InDelta(t, 1.0, priceScore("$799.00"), 0.001)
	assert.InDelta(t, 1.0, priceScore(""), 0.001, "unparseable price is neutral")
}

func TestRegret_Signals(t *testing.T) {
	single := verified("x", "b", "$900.00")
	// single source (+1), no downside (+0.5), no warranty (+0.5), extreme price (+1)
	assert.InDelta(t, 3.0, regretScore(single), 0.001)

	covered := verified("y", "b", "$100.00", "Wirecutter", "CNET")
	covered.KeyClaims = []string{"two-year warranty included", "only complaint is the case size"}
	assert.InDelta(t, 0.0, regretScore(covered), 0.001)
}

func TestAssignLabel(t *testing.T) {
	base := model.TopProduct{VerifiedProduct: verified("x", "b", "$100.00"), Rank: 3}

	valueClaim := base
	valueClaim.KeyClaims = []string{"best value"}
	assert.Equal(t, model.LabelBestValue, assignLabel(valueClaim))

	upgrade := base
	upgrade.KeyClaims = []string{"upgrade pick"}
	assert.Equal(t, model.LabelBestUpgrade, assignLabel(upgrade))

	scenario := base
	scenario.KeyClaims = []string{"great for travel"}
	assert.Equal(t, model.LabelScenario, assignLabel(scenario))

	pricey := base
	pricey.AmazonPrice = "$329.00"
	assert.Equal(t, model.LabelBestUpgrade, assignLabel(pricey))

	fallback := model.TopProduct{VerifiedProduct: verified("x", "b", "$100.00"), Rank: 5}
	assert.Equal(t, model.LabelAlternative, assignLabel(fallback))
}

func TestSynthesize_BenefitsAndDownside(t *testing.T) {
	p := model.TopProduct{
		VerifiedProduct: model.VerifiedProduct{
			KeyClaims: []string{
				"class-leading noise cancellation",
				"the only complaint is battery life",
				"superb call quality",
				"compact case",
				"extra claim beyond the cap",
			},
		},
		Rank:          2,
		CategoryLabel: model.LabelBestValue,
	}
	synthesize(&p)

	assert.Len(t, p.Benefits, 3)
	assert.NotContains(t, p.Benefits, "the only complaint is battery life")
	assert.Equal(t, "the only complaint is battery life", p.Downside)
	assert.Contains(t, p.BuyThisIf, "best value")
	assert.Equal(t, p.Downside, p.AvoidThisIf)
}
