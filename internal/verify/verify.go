// Package verify resolves shortlisted products against the Amazon catalog,
// via the signed Product Advertising API when credentials exist or a
// browser search fallback otherwise. Queries are throttled and fuzzy
// title-matched; the output carries a confidence bucket per product.
package verify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ranklab-media/studio-cli/internal/model"
	"github.com/ranklab-media/studio-cli/internal/resilience"
)

// minQueryGap is the floor between marketplace queries.
const minQueryGap = 1500 * time.Millisecond

// Hit is one ordered marketplace search result.
type Hit struct {
	ASIN         string
	Title        string
	Price        string
	Rating       float64
	ReviewsCount int
	ImageURL     string
}

// Backend performs a marketplace search.
type Backend interface {
	Name() model.VerificationMethod
	Search(ctx context.Context, query string) ([]Hit, error)
}

// Verifier resolves candidates through a Backend.
type Verifier struct {
	backend      Backend
	associateTag string
	limiter      *rate.Limiter
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithLimiter overrides the query throttle (tests use an unlimited one).
func WithLimiter(l *rate.Limiter) Option {
	return func(v *Verifier) { v.limiter = l }
}

// New creates a Verifier.
func New(backend Backend, associateTag string, opts ...Option) *Verifier {
	v := &Verifier{
		backend:      backend,
		associateTag: associateTag,
		limiter:      rate.NewLimiter(rate.Every(minQueryGap), 1),
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

// VerifyAll resolves each candidate in order. Failures yield entries with
// Error set rather than dropping the candidate silently.
func (v *Verifier) VerifyAll(ctx context.Context, candidates []model.ProductCandidate) []model.VerifiedProduct {
	out := make([]model.VerifiedProduct, 0, len(candidates))
	for _, c := range candidates {
		if err := v.limiter.Wait(ctx); err != nil {
			break
		}
		out = append(out, v.verifyOne(ctx, c))
	}
	return out
}

func (v *Verifier) verifyOne(ctx context.Context, c model.ProductCandidate) model.VerifiedProduct {
	vp := model.VerifiedProduct{
		ProductName:        c.ProductName,
		Brand:              c.Brand,
		VerificationMethod: v.backend.Name(),
		Evidence:           c.Sources,
		KeyClaims:          c.KeyClaims,
	}

	query := searchQuery(c)
	cfg := resilience.DefaultRetryConfig()
	cfg.OnRetry = resilience.RetryLogger("marketplace", "search")

	hits, err := resilience.WithRetryVal(ctx, cfg, func(ctx context.Context) ([]Hit, error) {
		return v.backend.Search(ctx, query)
	})
	if err != nil {
		// Session-class failures (CAPTCHA, bot walls) skip the entry; the
		// next query may land on a fresh session.
		if resilience.Classify(err) == resilience.ClassSession {
			zap.L().Warn("verify: session challenge, skipping candidate",
				zap.String("product", c.ProductName),
				zap.Error(err),
			)
		}
		vp.Error = err.Error()
		return vp
	}
	if len(hits) == 0 {
		vp.Error = "verify: no marketplace results"
		return vp
	}

	best, bestSim := bestMatch(query, hits)
	vp.ASIN = best.ASIN
	vp.AmazonTitle = best.Title
	vp.AmazonPrice = best.Price
	vp.AmazonRating = best.Rating
	vp.AmazonReviewsCount = best.ReviewsCount
	vp.AmazonImageURL = best.ImageURL
	vp.AmazonURL = "https://www.amazon.com/dp/" + best.ASIN
	vp.AffiliateURL = AffiliateURL(best.ASIN, v.associateTag)
	vp.MatchConfidence = Confidence(bestSim)
	return vp
}

// searchQuery builds "<brand> <product_name>" without doubling the brand.
func searchQuery(c model.ProductCandidate) string {
	if c.Brand == "" || strings.HasPrefix(strings.ToLower(c.ProductName), strings.ToLower(c.Brand)) {
		return c.ProductName
	}
	return c.Brand + " " + c.ProductName
}

func bestMatch(query string, hits []Hit) (Hit, float64) {
	best := hits[0]
	bestSim := TitleSimilarity(query, best.Title)
	for _, h := range hits[1:] {
		if sim := TitleSimilarity(query, h.Title); sim > bestSim {
			best, bestSim = h, sim
		}
	}
	return best, bestSim
}

// AffiliateURL builds the tagged product link.
func AffiliateURL(asin, tag string) string {
	return fmt.Sprintf("https://www.amazon.com/dp/%s?tag=%s", asin, tag)
}
