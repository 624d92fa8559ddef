package research

import (
	"regexp"
	"strings"
)

// brandLexicon drives mention extraction: a product mention is a known
// brand followed by a plausible model tail.
var brandLexicon = []string{
	// Audio / electronics
	"Sony", "Bose", "Apple", "Samsung", "Anker", "JBL", "Sennheiser", "Jabra",
	"Beats", "Soundcore", "Shokz", "Audio-Technica", "Shure", "Rode", "Elgato",
	"Logitech", "Razer", "Corsair", "SteelSeries", "HyperX", "Keychron",
	"Dell", "HP", "Lenovo", "Asus", "Acer", "MSI", "LG", "TCL", "Hisense",
	"Roku", "Amazon", "Google", "Microsoft", "Nintendo", "Valve",
	// Smart home / cleaning
	"Ring", "Ecobee", "Nest", "Wyze", "Eufy", "Arlo", "iRobot", "Roborock",
	"Shark", "Dyson", "Levoit", "Coway", "Honeywell", "Lasko", "Dreo",
	// Kitchen
	"Ninja", "Instant Pot", "Cuisinart", "KitchenAid", "Breville", "Vitamix",
	"NutriBullet", "Keurig", "Hamilton Beach", "Lodge", "Zojirushi", "Anova",
	"OXO", "De'Longhi", "Gaggia",
	// Fitness / wearables
	"Garmin", "Fitbit", "Polar", "Suunto", "Whoop", "Bowflex", "NordicTrack",
	"Peloton", "Theragun", "Hyperice", "Manduka",
	// Travel / outdoors
	"Osprey", "Samsonite", "Travelpro", "Away", "Monos", "Peak Design",
	"Patagonia", "Coleman", "MSR", "Big Agnes", "Salomon", "Merrell",
	"Columbia", "YETI",
	// Camera / creator
	"Canon", "Nikon", "Fujifilm", "Panasonic", "DJI", "GoPro", "Insta360",
	// Personal care
	"Philips", "Oral-B", "Waterpik", "Braun",
}

// stopWords terminate a model tail; a tail that starts with one is noise.
var stopWords = map[string]bool{
	"is": true, "are": true, "has": true, "was": true, "with": true,
	"for": true, "and": true, "the": true, "our": true, "we": true,
	"vs": true, "offers": true, "from": true, "this": true, "that": true,
	"comes": true, "gets": true, "delivers": true, "features": true,
	"brings": true, "remains": true, "earns": true, "makes": true,
	"takes": true, "sits": true, "stands": true,
}

// editorialLabels are matched longest-phrase-first against result text.
var editorialLabels = []string{
	"best overall", "editor's choice", "editors' choice", "upgrade pick",
	"budget pick", "best budget", "best value", "best premium",
	"best splurge", "top pick", "best cheap", "best midrange",
}

const maxMentionLen = 80

var (
	brandRes map[string]*regexp.Regexp

	// tailBreakRe cuts the raw tail at hard separators: commas, pipes,
	// bullets, spaced dashes, ellipses, "Read more", sentence boundaries.
	tailBreakRe = regexp.MustCompile(`,|\||•|…|\s-\s|\s–\s|—|\.\s+[A-Z]|\(|\)|\[|\]|Read more`)

	tokenRe    = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9.+/-]*$`)
	punctRe    = regexp.MustCompile(`[^a-z0-9\s]`)
	multiSpace = regexp.MustCompile(`\s+`)
)

func init() {
	brandRes = make(map[string]*regexp.Regexp, len(brandLexicon))
	for _, b := range brandLexicon {
		brandRes[b] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(b) + `\b`)
	}
}

// Mention is one extracted product reference.
type Mention struct {
	Brand string
	Name  string // "<brand> <model tail>"
}

// ExtractMentions pulls product mentions from a search-result title and
// description.
func ExtractMentions(text string) []Mention {
	var out []Mention
	seen := map[string]bool{}

	for _, brand := range brandLexicon {
		re := brandRes[brand]
		for _, loc := range re.FindAllStringIndex(text, -1) {
			tail := modelTail(text[loc[1]:])
			if tail == "" {
				continue
			}
			name := text[loc[0]:loc[1]] + " " + tail
			if len(name) > maxMentionLen {
				continue
			}
			key := Normalize(name)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, Mention{Brand: brand, Name: name})
		}
	}
	return out
}

// modelTail extracts the model portion following a brand occurrence.
// Returns "" when the tail is empty or starts with a stop-word.
func modelTail(rest string) string {
	if loc := tailBreakRe.FindStringIndex(rest); loc != nil {
		rest = rest[:loc[0]]
	}

	var kept []string
	for i, tok := range strings.Fields(rest) {
		lower := strings.ToLower(strings.Trim(tok, ".,:;!?'\""))
		if stopWords[lower] {
			if i == 0 {
				return ""
			}
			break
		}
		if !tokenRe.MatchString(strings.Trim(tok, ".,:;!?")) {
			break
		}
		kept = append(kept, strings.TrimRight(tok, ".,:;!?"))
		if len(kept) >= 6 {
			break
		}
	}
	return strings.Join(kept, " ")
}

// ExtractLabel returns the first editorial label found in text, or "".
func ExtractLabel(text string) string {
	lower := strings.ToLower(text)
	for _, label := range editorialLabels {
		if strings.Contains(lower, label) {
			return label
		}
	}
	return ""
}

// Normalize keys candidates: lowercase, punctuation stripped, whitespace
// collapsed.
func Normalize(name string) string {
	s := strings.ToLower(name)
	s = punctRe.ReplaceAllString(s, "")
	s = multiSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
