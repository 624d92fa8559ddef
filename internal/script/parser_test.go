package script

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const informalScript = `Welcome back! Today we count down the best earbuds.

#5 – Soundcore Liberty 4
Great battery, warm sound.

#4: Jabra Elite 10
Comfortable all day.

Quick Reset
Still with me? The top three get serious.

#3 - Bose QuietComfort Ultra
Class-leading quiet.

#2. Sennheiser Momentum 4
Audiophile tuning.

#1 Sony WF-1000XM5
The one to beat.

Conclusion
Links below. See you tomorrow.

---
Avatar Intro
Hey, quick intro before we start.

YouTube Description
The five best earbuds, tested and ranked.

Thumbnail Headlines
- TOP 5 EARBUDS
- DON'T BUY WRONG
`

func TestNormalizeMarkers_InformalHeadings(t *testing.T) {
	got := NormalizeMarkers(informalScript)

	assert.Contains(t, got, "[PRODUCT_5] Soundcore Liberty 4")
	assert.Contains(t, got, "[PRODUCT_4] Jabra Elite 10")
	assert.Contains(t, got, "[PRODUCT_3] Bose QuietComfort Ultra")
	assert.Contains(t, got, "[PRODUCT_2] Sennheiser Momentum 4")
	assert.Contains(t, got, "[PRODUCT_1] Sony WF-1000XM5")
	assert.Contains(t, got, MarkerRetentionReset)
	assert.Contains(t, got, MarkerConclusion)
	assert.True(t, strings.HasPrefix(got, MarkerHook), "prose before first product inserts a hook")
}

func TestNormalizeMarkers_Idempotent(t *testing.T) {
	once := NormalizeMarkers(informalScript)
	twice := NormalizeMarkers(once)
	assert.Equal(t, once, twice)
}

func TestNormalizeMarkers_NoHookWithoutProse(t *testing.T) {
	text := "[PRODUCT_5] Something\nbody"
	assert.NotContains(t, NormalizeMarkers(text), MarkerHook)
}

func TestExtractBody(t *testing.T) {
	body := ExtractBody(NormalizeMarkers(informalScript))

	assert.True(t, strings.HasPrefix(body, MarkerHook))
	assert.Contains(t, body, "[PRODUCT_1] Sony WF-1000XM5")
	assert.Contains(t, body, "Links below")
	assert.NotContains(t, body, "Avatar Intro")
	assert.NotContains(t, body, "YouTube Description")
	assert.NotContains(t, body, "TOP 5 EARBUDS")
	assert.NotContains(t, body, "---")
}

func TestExtractMetadata(t *testing.T) {
	meta := ExtractMetadata(NormalizeMarkers(informalScript))

	assert.Equal(t, "Hey, quick intro before we start.", meta.AvatarIntro)
	assert.Equal(t, "The five best earbuds, tested and ranked.", meta.YouTubeDescription)
	require.Len(t, meta.ThumbnailHeadlines, 2)
	assert.Equal(t, "TOP 5 EARBUDS", meta.ThumbnailHeadlines[0])
	assert.Equal(t, "DON'T BUY WRONG", meta.ThumbnailHeadlines[1])
}

func TestExtractBody_NoMarkers(t *testing.T) {
	assert.Equal(t, "just prose", ExtractBody("just prose"))
}
