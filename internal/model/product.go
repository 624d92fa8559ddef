package model

// SourceRef ties a product mention back to the outlet that made it.
type SourceRef struct {
	Source string `json:"source"`
	URL    string `json:"url"`
	Label  string `json:"label,omitempty"`
}

// ProductCandidate is an aggregated product mention from reviews research.
// Invariant: SourceCount == len(Sources) and no duplicate source names.
type ProductCandidate struct {
	ProductName   string      `json:"product_name"`
	Brand         string      `json:"brand"`
	Sources       []SourceRef `json:"sources"`
	KeyClaims     []string    `json:"key_claims,omitempty"`
	SourceCount   int         `json:"source_count"`
	EvidenceScore float64     `json:"evidence_score"`
}

// MatchConfidence buckets title-similarity strength.
type MatchConfidence string

const (
	ConfidenceLow    MatchConfidence = "low"
	ConfidenceMedium MatchConfidence = "medium"
	ConfidenceHigh   MatchConfidence = "high"
)

// VerificationMethod records which marketplace backend resolved a product.
type VerificationMethod string

const (
	MethodPAAPI   VerificationMethod = "paapi"
	MethodBrowser VerificationMethod = "browser"
)

// VerifiedProduct is a shortlist entry resolved against the marketplace.
type VerifiedProduct struct {
	ProductName        string             `json:"product_name"`
	Brand              string             `json:"brand"`
	ASIN               string             `json:"asin"`
	AmazonURL          string             `json:"amazon_url"`
	AffiliateURL       string             `json:"affiliate_url"`
	AmazonTitle        string             `json:"amazon_title"`
	AmazonPrice        string             `json:"amazon_price"`
	AmazonRating       float64            `json:"amazon_rating"`
	AmazonReviewsCount int                `json:"amazon_reviews_count"`
	AmazonImageURL     string             `json:"amazon_image_url"`
	MatchConfidence    MatchConfidence    `json:"match_confidence"`
	VerificationMethod VerificationMethod `json:"verification_method"`
	Evidence           []SourceRef        `json:"evidence,omitempty"`
	KeyClaims          []string           `json:"key_claims,omitempty"`
	Error              string             `json:"error,omitempty"`
}

// CategoryLabel is the buyer-positioning tag for a ranked product.
type CategoryLabel string

const (
	LabelNoRegret    CategoryLabel = "No-Regret Pick"
	LabelBestValue   CategoryLabel = "Best Value"
	LabelBestUpgrade CategoryLabel = "Best Upgrade"
	LabelScenario    CategoryLabel = "Best for Specific Scenario"
	LabelAlternative CategoryLabel = "Best Alternative"
)

// Scorecard breaks down a ranked product's score components.
type Scorecard struct {
	Evidence      float64 `json:"evidence"`
	Confidence    float64 `json:"confidence"`
	Price         float64 `json:"price"`
	Reviews       float64 `json:"reviews"`
	RegretPenalty float64 `json:"regret_penalty"`
	Total         float64 `json:"total"`
}

// TopProduct is a VerifiedProduct placed in the final Top-5.
// Invariant: the five ranks form a permutation of 1..5.
type TopProduct struct {
	VerifiedProduct

	Rank          int           `json:"rank"`
	CategoryLabel CategoryLabel `json:"category_label"`
	Benefits      []string      `json:"benefits,omitempty"`
	Downside      string        `json:"downside,omitempty"`
	BuyThisIf     string        `json:"buy_this_if,omitempty"`
	AvoidThisIf   string        `json:"avoid_this_if,omitempty"`
	Scorecard     Scorecard     `json:"scorecard"`
}

// SubcategoryContract is the per-run allow/deny term list used by the
// ranker to hard-reject drifted products.
type SubcategoryContract struct {
	Subcategory    string   `json:"subcategory"`
	RequiredTerms  []string `json:"required_terms,omitempty"`
	ForbiddenTerms []string `json:"forbidden_terms,omitempty"`
}
