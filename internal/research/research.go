// Package research implements reviews-first product discovery: each
// whitelisted outlet is searched for "best <niche>" roundups, product
// mentions are extracted and aggregated, and an evidence-ranked shortlist
// comes out.
package research

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ranklab-media/studio-cli/internal/fetch"
	"github.com/ranklab-media/studio-cli/internal/model"
	"github.com/ranklab-media/studio-cli/pkg/brave"
)

const (
	defaultResultsPerOutlet = 5
	shortlistTarget         = 8
	shortlistCap            = 15
	outletConcurrency       = 3

	// pageExtractLimit caps how much fetched page text is mined per result.
	pageExtractLimit = 20000
)

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// Researcher aggregates product candidates across the outlet whitelist.
type Researcher struct {
	search           brave.Client
	fetcher          *fetch.Fetcher
	outlets          []Outlet
	resultsPerOutlet int
}

// Option configures a Researcher.
type Option func(*Researcher)

// WithResultsPerOutlet overrides how many results are taken per outlet.
func WithResultsPerOutlet(n int) Option {
	return func(r *Researcher) { r.resultsPerOutlet = n }
}

// WithOutlets restricts the searched outlets, used by pipeline runs that
// enforce a domain allowlist.
func WithOutlets(outlets []Outlet) Option {
	return func(r *Researcher) { r.outlets = outlets }
}

// WithFetcher enables full-page mention extraction: each roundup page is
// fetched through the cascade and mined, instead of relying on the search
// snippet alone.
func WithFetcher(f *fetch.Fetcher) Option {
	return func(r *Researcher) { r.fetcher = f }
}

// New creates a Researcher over a search client.
func New(search brave.Client, opts ...Option) *Researcher {
	r := &Researcher{
		search:           search,
		outlets:          Outlets,
		resultsPerOutlet: defaultResultsPerOutlet,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

type aggregate struct {
	name      string
	brand     string
	sources   map[string]model.SourceRef // keyed by source name
	keyClaims []string
	claimSeen map[string]bool
}

// Research runs the per-outlet searches and returns the shortlist, best
// evidence first.
func (r *Researcher) Research(ctx context.Context, niche string) ([]model.ProductCandidate, error) {
	byKey := map[string]*aggregate{}
	var mu sync.Mutex

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(outletConcurrency)

	for _, outlet := range r.outlets {
		g.Go(func() error {
			query := fmt.Sprintf("site:%s best %s", outlet.Domain, niche)
			resp, err := r.search.Search(gCtx, query, brave.WithCount(r.resultsPerOutlet))
			if err != nil {
				// One outlet down must not sink the research stage.
				zap.L().Warn("research: outlet search failed",
					zap.String("outlet", outlet.Name),
					zap.Error(err),
				)
				return nil
			}

			results := resp.Web.Results
			if len(results) > r.resultsPerOutlet {
				results = results[:r.resultsPerOutlet]
			}

			// Full-page extraction happens before taking the lock.
			pageTexts := make([]string, len(results))
			if r.fetcher != nil {
				for i, res := range results {
					if page, _ := r.fetcher.PageText(gCtx, res.URL, ""); page != "" {
						pageTexts[i] = clip(page, pageExtractLimit)
					}
				}
			}

			mu.Lock()
			defer mu.Unlock()
			for i, res := range results {
				snippet := res.Title + " " + res.Description
				label := ExtractLabel(snippet)
				text := snippet
				if pageTexts[i] != "" {
					text += " " + pageTexts[i]
				}
				for _, m := range ExtractMentions(text) {
					key := Normalize(m.Name)
					agg, ok := byKey[key]
					if !ok {
						agg = &aggregate{
							name:      m.Name,
							brand:     m.Brand,
							sources:   map[string]model.SourceRef{},
							claimSeen: map[string]bool{},
						}
						byKey[key] = agg
					}
					if _, dup := agg.sources[outlet.Name]; !dup {
						agg.sources[outlet.Name] = model.SourceRef{
							Source: outlet.Name,
							URL:    res.URL,
							Label:  label,
						}
					}
					if label != "" && !agg.claimSeen[label] {
						agg.claimSeen[label] = true
						agg.keyClaims = append(agg.keyClaims, label)
					}
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "research: outlet searches")
	}

	candidates := make([]model.ProductCandidate, 0, len(byKey))
	for _, agg := range byKey {
		sources := make([]model.SourceRef, 0, len(agg.sources))
		evidence := 0.0
		for name, ref := range agg.sources {
			sources = append(sources, ref)
			evidence += OutletWeight(name)
		}
		sort.Slice(sources, func(i, j int) bool { return sources[i].Source < sources[j].Source })

		candidates = append(candidates, model.ProductCandidate{
			ProductName:   agg.name,
			Brand:         agg.brand,
			Sources:       sources,
			KeyClaims:     agg.keyClaims,
			SourceCount:   len(sources),
			EvidenceScore: evidence,
		})
	}

	shortlist := Shortlist(candidates)
	zap.L().Info("research: shortlist built",
		zap.String("niche", niche),
		zap.Int("mentions", len(candidates)),
		zap.Int("shortlisted", len(shortlist)),
	)
	return shortlist, nil
}

// Shortlist applies the inclusion policy: multi-source candidates always
// qualify, single-source ones only with a "best overall" claim; the list is
// topped up to 8 by evidence and capped at 15.
func Shortlist(candidates []model.ProductCandidate) []model.ProductCandidate {
	byEvidence := make([]model.ProductCandidate, len(candidates))
	copy(byEvidence, candidates)
	sort.SliceStable(byEvidence, func(i, j int) bool {
		if byEvidence[i].EvidenceScore != byEvidence[j].EvidenceScore {
			return byEvidence[i].EvidenceScore > byEvidence[j].EvidenceScore
		}
		return byEvidence[i].ProductName < byEvidence[j].ProductName
	})

	var included []model.ProductCandidate
	var rest []model.ProductCandidate
	for _, c := range byEvidence {
		if qualifies(c) {
			included = append(included, c)
		} else {
			rest = append(rest, c)
		}
	}

	for _, c := range rest {
		if len(included) >= shortlistTarget {
			break
		}
		included = append(included, c)
	}
	if len(included) > shortlistCap {
		included = included[:shortlistCap]
	}

	sort.SliceStable(included, func(i, j int) bool {
		return included[i].EvidenceScore > included[j].EvidenceScore
	})
	return included
}

func qualifies(c model.ProductCandidate) bool {
	if c.SourceCount >= 2 {
		return true
	}
	if c.SourceCount == 1 {
		for _, claim := range c.KeyClaims {
			if claim == "best overall" {
				return true
			}
		}
	}
	return false
}
