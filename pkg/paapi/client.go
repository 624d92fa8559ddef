// Package paapi provides a client for the Amazon Product Advertising API
// v5 SearchItems operation. Request signing (SigV4) is delegated to a
// Signer collaborator so the client stays testable against httptest.
package paapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// Signer applies SigV4 authentication headers to an outgoing request.
type Signer interface {
	Sign(req *http.Request, payload []byte) error
}

// Client performs marketplace item search.
type Client interface {
	SearchItems(ctx context.Context, keywords string) ([]Item, error)
}

// Item is one ordered search result.
type Item struct {
	ASIN         string  `json:"asin"`
	Title        string  `json:"title"`
	Price        string  `json:"price"`
	ImageURL     string  `json:"image_url"`
	Rating       float64 `json:"rating"`
	ReviewsCount int     `json:"reviews_count"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the endpoint (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = u }
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

type httpClient struct {
	signer     Signer
	partnerTag string
	baseURL    string
	http       *http.Client
}

// NewClient creates a PA-API client. A nil signer yields config errors on use.
func NewClient(signer Signer, partnerTag string, host string, opts ...Option) Client {
	c := &httpClient{
		signer:     signer,
		partnerTag: partnerTag,
		baseURL:    "https://" + host + "/paapi5/searchitems",
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type searchItemsRequest struct {
	Keywords    string   `json:"Keywords"`
	PartnerTag  string   `json:"PartnerTag"`
	PartnerType string   `json:"PartnerType"`
	Resources   []string `json:"Resources"`
	ItemCount   int      `json:"ItemCount"`
}

type searchItemsResponse struct {
	SearchResult struct {
		Items []struct {
			ASIN     string `json:"ASIN"`
			ItemInfo struct {
				Title struct {
					DisplayValue string `json:"DisplayValue"`
				} `json:"Title"`
			} `json:"ItemInfo"`
			Offers struct {
				Listings []struct {
					Price struct {
						DisplayAmount string `json:"DisplayAmount"`
					} `json:"Price"`
				} `json:"Listings"`
			} `json:"Offers"`
			Images struct {
				Primary struct {
					Large struct {
						URL string `json:"URL"`
					} `json:"Large"`
				} `json:"Primary"`
			} `json:"Images"`
			CustomerReviews struct {
				StarRating struct {
					Value float64 `json:"Value"`
				} `json:"StarRating"`
				Count int `json:"Count"`
			} `json:"CustomerReviews"`
		} `json:"Items"`
	} `json:"SearchResult"`
}

func (c *httpClient) SearchItems(ctx context.Context, keywords string) ([]Item, error) {
	if c.signer == nil {
		return nil, eris.New("paapi: credentials not configured")
	}
	if c.partnerTag == "" {
		return nil, eris.New("paapi: associate tag not configured")
	}

	payload, err := json.Marshal(searchItemsRequest{
		Keywords:    keywords,
		PartnerTag:  c.partnerTag,
		PartnerType: "Associates",
		Resources: []string{
			"ItemInfo.Title",
			"Offers.Listings.Price",
			"Images.Primary.Large",
			"CustomerReviews.StarRating",
			"CustomerReviews.Count",
		},
		ItemCount: 10,
	})
	if err != nil {
		return nil, eris.Wrap(err, "paapi: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "paapi: create request")
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("X-Amz-Target", "com.amazon.paapi5.v1.ProductAdvertisingAPIv1.SearchItems")

	if err := c.signer.Sign(req, payload); err != nil {
		return nil, eris.Wrap(err, "paapi: sign request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "paapi: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "paapi: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("paapi: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var parsed searchItemsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "paapi: unmarshal response")
	}

	items := make([]Item, 0, len(parsed.SearchResult.Items))
	for _, it := range parsed.SearchResult.Items {
		item := Item{
			ASIN:         it.ASIN,
			Title:        it.ItemInfo.Title.DisplayValue,
			ImageURL:     it.Images.Primary.Large.URL,
			Rating:       it.CustomerReviews.StarRating.Value,
			ReviewsCount: it.CustomerReviews.Count,
		}
		if len(it.Offers.Listings) > 0 {
			item.Price = it.Offers.Listings[0].Price.DisplayAmount
		}
		items = append(items, item)
	}
	return items, nil
}
