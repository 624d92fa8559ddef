package verify

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/ranklab-media/studio-cli/internal/model"
	"github.com/ranklab-media/studio-cli/pkg/paapi"
)

// PAAPIBackend verifies through the signed Product Advertising API.
type PAAPIBackend struct {
	client paapi.Client
}

// NewPAAPIBackend wraps a PA-API client.
func NewPAAPIBackend(client paapi.Client) *PAAPIBackend {
	return &PAAPIBackend{client: client}
}

// Name reports the verification method.
func (b *PAAPIBackend) Name() model.VerificationMethod { return model.MethodPAAPI }

// Search runs SearchItems and adapts the items to hits.
func (b *PAAPIBackend) Search(ctx context.Context, query string) ([]Hit, error) {
	items, err := b.client.SearchItems(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "verify: paapi search")
	}

	hits := make([]Hit, 0, len(items))
	for _, it := range items {
		hits = append(hits, Hit{
			ASIN:         it.ASIN,
			Title:        it.Title,
			Price:        it.Price,
			Rating:       it.Rating,
			ReviewsCount: it.ReviewsCount,
			ImageURL:     it.ImageURL,
		})
	}
	return hits, nil
}
