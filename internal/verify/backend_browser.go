package verify

import (
	"context"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/ranklab-media/studio-cli/internal/model"
	"github.com/ranklab-media/studio-cli/pkg/browser"
)

// maxCards bounds how many search result cards are parsed per query.
const maxCards = 5

// BrowserBackend verifies by navigating Amazon search and parsing result
// cards. Used when no API credentials are configured.
type BrowserBackend struct {
	driver browser.Driver
}

// NewBrowserBackend wraps a browser driver.
func NewBrowserBackend(driver browser.Driver) *BrowserBackend {
	return &BrowserBackend{driver: driver}
}

// Name reports the verification method.
func (b *BrowserBackend) Name() model.VerificationMethod { return model.MethodBrowser }

var captchaMarkers = []string{
	"enter the characters you see below",
	"api-services-support@amazon.com",
	"captcha",
	"/errors/validatecaptcha",
}

var (
	asinRe    = regexp.MustCompile(`data-asin="([A-Z0-9]{10})"`)
	titleRe   = regexp.MustCompile(`(?s)<h2[^>]*>.*?<span[^>]*>(.*?)</span>`)
	priceRe   = regexp.MustCompile(`\$\d[\d,]*(?:\.\d{2})?`)
	ratingRe  = regexp.MustCompile(`(\d\.\d) out of 5 stars`)
	reviewsRe = regexp.MustCompile(`aria-label="([\d,]+) ratings?"`)
	imageRe   = regexp.MustCompile(`<img[^>]+src="([^"]+)"`)
	tagStrip  = regexp.MustCompile(`<[^>]+>`)
)

// Search navigates the search page and parses up to five result cards.
func (b *BrowserBackend) Search(ctx context.Context, query string) ([]Hit, error) {
	searchURL := "https://www.amazon.com/s?k=" + url.QueryEscape(query)
	html, err := b.driver.Navigate(ctx, searchURL)
	if err != nil {
		return nil, eris.Wrap(err, "verify: browser search")
	}

	lower := strings.ToLower(html)
	for _, marker := range captchaMarkers {
		if strings.Contains(lower, marker) {
			return nil, eris.New("verify: captcha challenge on search page")
		}
	}

	return parseCards(html), nil
}

// parseCards extracts hits from search-result HTML. Cards without a parsable
// title are dropped; everything else degrades field by field.
func parseCards(html string) []Hit {
	locs := asinRe.FindAllStringSubmatchIndex(html, -1)

	var hits []Hit
	for i, loc := range locs {
		if len(hits) >= maxCards {
			break
		}
		asin := html[loc[2]:loc[3]]
		end := len(html)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		card := html[loc[1]:end]

		tm := titleRe.FindStringSubmatch(card)
		if tm == nil {
			continue
		}
		title := strings.TrimSpace(tagStrip.ReplaceAllString(tm[1], " "))
		if title == "" {
			continue
		}

		hit := Hit{ASIN: asin, Title: title}
		if pm := priceRe.FindString(card); pm != "" {
			hit.Price = pm
		}
		if rm := ratingRe.FindStringSubmatch(card); rm != nil {
			if r, err := strconv.ParseFloat(rm[1], 64); err == nil {
				hit.Rating = r
			}
		}
		if cm := reviewsRe.FindStringSubmatch(card); cm != nil {
			if n, err := strconv.Atoi(strings.ReplaceAll(cm[1], ",", "")); err == nil {
				hit.ReviewsCount = n
			}
		}
		if im := imageRe.FindStringSubmatch(card); im != nil {
			hit.ImageURL = im[1]
		}
		hits = append(hits, hit)
	}
	return hits
}
