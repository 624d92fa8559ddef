package verify

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ranklab-media/studio-cli/internal/resilience"
	"github.com/ranklab-media/studio-cli/pkg/browser"
)

func card(asin, title, price, rating, reviews string) string {
	return fmt.Sprintf(`<div data-asin=%q>
		<img src="https://m.media-amazon.com/%s.jpg"/>
		<h2 class="a-size-mini"><a><span>%s</span></a></h2>
		<span class="a-price">%s</span>
		<span aria-label="%s out of 5 stars">%s out of 5 stars</span>
		<a aria-label="%s ratings"></a>
	</div>`, asin, asin, title, price, rating, rating, reviews)
}

func TestBrowserSearch_ParsesCards(t *testing.T) {
	html := "<html><body>" +
		card("B000000001", "Sony WF-1000XM5 Earbuds", "$248.00", "4.4", "12,844") +
		card("B000000002", "Soundcore Liberty 4 NC", "$99.99", "4.5", "8,120") +
		"</body></html>"

	stub := browser.NewStub()
	stub.Pages["https://www.amazon.com/s?k=wireless+earbuds"] = html

	b := NewBrowserBackend(stub)
	hits, err := b.Search(context.Background(), "wireless earbuds")
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, "B000000001", hits[0].ASIN)
	assert.Equal(t, "Sony WF-1000XM5 Earbuds", hits[0].Title)
	assert.Equal(t, "$248.00", hits[0].Price)
	assert.InDelta(t, 4.4, hits[0].Rating, 0.001)
	assert.Equal(t, 12844, hits[0].ReviewsCount)
	assert.Contains(t, hits[0].ImageURL, "B000000001")

	assert.Equal(t, "Soundcore Liberty 4 NC", hits[1].Title)
}

func TestBrowserSearch_CapsAtFiveCards(t *testing.T) {
	html := ""
	for i := range 8 {
		html += card(fmt.Sprintf("B00000000%d", i), fmt.Sprintf("Product %d", i), "$10.00", "4.0", "100")
	}

	stub := browser.NewStub()
	stub.Pages["https://www.amazon.com/s?k=q"] = html

	b := NewBrowserBackend(stub)
	hits, err := b.Search(context.Background(), "q")
	require.NoError(t, err)
	assert.Len(t, hits, maxCards)
}

func TestBrowserSearch_CaptchaIsSessionError(t *testing.T) {
	stub := browser.NewStub()
	stub.Pages["https://www.amazon.com/s?k=q"] = `<html><body>
		Enter the characters you see below</body></html>`

	b := NewBrowserBackend(stub)
	_, err := b.Search(context.Background(), "q")
	require.Error(t, err)
	assert.Equal(t, resilience.ClassSession, resilience.Classify(err))
}

func TestBrowserSearch_SkipsTitlelessCards(t *testing.T) {
	html := `<div data-asin="B000000009"><span class="a-price">$5</span></div>` +
		card("B000000001", "Real Product", "$20.00", "4.0", "50")

	stub := browser.NewStub()
	stub.Pages["https://www.amazon.com/s?k=q"] = html

	b := NewBrowserBackend(stub)
	hits, err := b.Search(context.Background(), "q")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "B000000001", hits[0].ASIN)
}
