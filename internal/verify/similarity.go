package verify

import (
	"strings"

	"github.com/ranklab-media/studio-cli/internal/model"
)

// simStopWords are ignored when comparing a query to a listing title.
var simStopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"for": true, "with": true, "in": true, "of": true, "to": true,
	"is": true, "by": true, "on": true, "at": true, "it": true, "new": true,
}

// TitleSimilarity is the fraction of the query's content tokens found in
// the listing title.
func TitleSimilarity(query, title string) float64 {
	qTokens := contentTokens(query)
	if len(qTokens) == 0 {
		return 0
	}
	tSet := map[string]bool{}
	for _, tok := range contentTokens(title) {
		tSet[tok] = true
	}

	hits := 0
	for _, tok := range qTokens {
		if tSet[tok] {
			hits++
		}
	}
	return float64(hits) / float64(len(qTokens))
}

// Confidence buckets a similarity score.
func Confidence(sim float64) model.MatchConfidence {
	switch {
	case sim > 0.6:
		return model.ConfidenceHigh
	case sim > 0.35:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}

func contentTokens(s string) []string {
	var out []string
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		tok = strings.Trim(tok, ".,:;!?()[]\"'")
		if tok == "" || simStopWords[tok] {
			continue
		}
		out = append(out, tok)
	}
	return out
}
