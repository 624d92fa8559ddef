package research

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractMentions(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "brand with model tail",
			text: "The Sony WF-1000XM5 is our top pick for most people",
			want: []string{"Sony WF-1000XM5"},
		},
		{
			name: "tail stops at comma",
			text: "We loved the Bose QuietComfort Ultra, which blocks everything",
			want: []string{"Bose QuietComfort Ultra"},
		},
		{
			name: "tail stops at pipe",
			text: "Anker Soundcore Liberty 4 | TechRadar",
			want: []string{"Anker Soundcore Liberty 4", "Soundcore Liberty 4"},
		},
		{
			name: "tail stops at spaced dash",
			text: "Jabra Elite 10 - the best for calls",
			want: []string{"Jabra Elite 10"},
		},
		{
			name: "tail stops at stop-word",
			text: "Sennheiser Momentum 4 delivers superb sound",
			want: []string{"Sennheiser Momentum 4"},
		},
		{
			name: "brand followed by stop-word is rejected",
			text: "Sony has announced new colors",
			want: nil,
		},
		{
			name: "bare brand at end is rejected",
			text: "the best earbuds from Sony",
			want: nil,
		},
		{
			name: "unknown brand ignored",
			text: "the Acme Blaster 3000 is great",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractMentions(tt.text)
			var names []string
			for _, m := range got {
				names = append(names, m.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestExtractMentions_RejectsOverlongNames(t *testing.T) {
	text := "Sony Ultra Mega Super Extended Professional Wireless Premium Noise Cancelling Earbuds Max Edition Pro"
	for _, m := range ExtractMentions(text) {
		assert.LessOrEqual(t, len(m.Name), 80)
	}
}

func TestExtractLabel(t *testing.T) {
	assert.Equal(t, "best overall", ExtractLabel("Our Best Overall pick this year"))
	assert.Equal(t, "upgrade pick", ExtractLabel("the Upgrade Pick for audiophiles"))
	assert.Equal(t, "best value", ExtractLabel("it's the best value around"))
	assert.Empty(t, ExtractLabel("a perfectly fine product"))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "sony wf1000xm5", Normalize("Sony WF-1000XM5"))
	assert.Equal(t, Normalize("Bose  QuietComfort   Ultra"), Normalize("bose quietcomfort ultra!"))
}

func TestBrandLexicon_Size(t *testing.T) {
	require.GreaterOrEqual(t, len(brandLexicon), 80)
	seen := map[string]bool{}
	for _, b := range brandLexicon {
		assert.False(t, seen[b], "duplicate brand %s", b)
		seen[b] = true
	}
}
