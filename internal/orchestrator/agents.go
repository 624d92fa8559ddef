package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/ranklab-media/studio-cli/internal/fsutil"
	"github.com/ranklab-media/studio-cli/internal/model"
	"github.com/ranklab-media/studio-cli/internal/niche"
	"github.com/ranklab-media/studio-cli/internal/rank"
	"github.com/ranklab-media/studio-cli/internal/research"
	"github.com/ranklab-media/studio-cli/internal/script"
	"github.com/ranklab-media/studio-cli/internal/verify"
)

// AllowedOutlets returns the research outlets whose domains are on the
// pipeline allowlist.
func AllowedOutlets() []research.Outlet {
	var out []research.Outlet
	for _, o := range research.Outlets {
		for _, d := range AllowedResearchDomains {
			if o.Domain == d || strings.HasPrefix(o.Domain, d+"/") {
				out = append(out, o)
			}
		}
	}
	return out
}

// NicheStrategist picks the day's niche and records it in the history.
type NicheStrategist struct {
	Picker  *niche.Picker
	History *niche.History
	Date    string // YYYY-MM-DD
}

func (a *NicheStrategist) Name() string { return "niche_strategist" }

func (a *NicheStrategist) Run(_ context.Context, rc *model.RunContext) error {
	pick, err := a.Picker.Pick(a.Date)
	if err != nil {
		return err
	}
	rc.Niche = pick.Keyword
	rc.Category = pick.Category

	if err := os.MkdirAll(rc.InputsDir, 0o755); err != nil {
		return eris.Wrap(err, "niche_strategist: inputs dir")
	}
	path := filepath.Join(rc.InputsDir, "niche.txt")
	if err := fsutil.WriteFileAtomic(path, []byte(pick.Keyword+"\n"), 0o644); err != nil {
		return err
	}

	if a.History != nil {
		if err := a.History.Upsert(model.NicheHistoryEntry{
			Date:        a.Date,
			Niche:       pick.Keyword,
			Category:    pick.Category,
			Subcategory: pick.Subcategory,
			Intent:      pick.Intent,
		}); err != nil {
			return err
		}
	}
	return nil
}

// SEOAgent derives the search keyword set from the chosen niche.
type SEOAgent struct {
	Year int
}

func (a *SEOAgent) Name() string { return "seo_agent" }

func (a *SEOAgent) Run(_ context.Context, rc *model.RunContext) error {
	keywords := []string{
		"best " + rc.Niche,
		fmt.Sprintf("best %s %d", rc.Niche, a.Year),
		"top 5 " + rc.Niche,
		rc.Niche + " buying guide",
		rc.Niche + " review",
	}
	return fsutil.WriteJSONAtomic(filepath.Join(rc.InputsDir, "seo_keywords.json"), keywords)
}

// ResearchAgent builds the shortlist from whitelisted review outlets.
type ResearchAgent struct {
	Researcher *research.Researcher
}

func (a *ResearchAgent) Name() string { return "research_agent" }

func (a *ResearchAgent) Run(ctx context.Context, rc *model.RunContext) error {
	shortlist, err := a.Researcher.Research(ctx, rc.Niche)
	if err != nil {
		return err
	}
	if err := fsutil.WriteJSONAtomic(filepath.Join(rc.InputsDir, "shortlist.json"), shortlist); err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(
		filepath.Join(rc.InputsDir, "research_notes.md"),
		[]byte(researchNotes(rc.Niche, shortlist)), 0o644)
}

func researchNotes(nicheName string, shortlist []model.ProductCandidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Research notes: %s\n\n", nicheName)
	fmt.Fprintf(&b, "%d shortlisted candidates, best evidence first.\n\n", len(shortlist))
	for _, c := range shortlist {
		fmt.Fprintf(&b, "## %s\n\n", c.ProductName)
		fmt.Fprintf(&b, "- brand: %s\n- evidence: %.1f across %d sources\n", c.Brand, c.EvidenceScore, c.SourceCount)
		for _, s := range c.Sources {
			fmt.Fprintf(&b, "- [%s](%s)", s.Source, s.URL)
			if s.Label != "" {
				fmt.Fprintf(&b, " (%s)", s.Label)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// AmazonVerifyAgent resolves the shortlist against the marketplace.
type AmazonVerifyAgent struct {
	Verifier *verify.Verifier
}

func (a *AmazonVerifyAgent) Name() string { return "amazon_verify" }

func (a *AmazonVerifyAgent) Run(ctx context.Context, rc *model.RunContext) error {
	var shortlist []model.ProductCandidate
	if err := fsutil.ReadJSON(filepath.Join(rc.InputsDir, "shortlist.json"), &shortlist); err != nil {
		return eris.Wrap(err, "amazon_verify: shortlist.json")
	}
	verified := a.Verifier.VerifyAll(ctx, shortlist)
	return fsutil.WriteJSONAtomic(filepath.Join(rc.InputsDir, "verified.json"), verified)
}

// Top5Ranker turns verified products into the ranked final five.
type Top5Ranker struct {
	Contract *model.SubcategoryContract
}

func (a *Top5Ranker) Name() string { return "top5_ranker" }

func (a *Top5Ranker) Run(_ context.Context, rc *model.RunContext) error {
	var verified []model.VerifiedProduct
	if err := fsutil.ReadJSON(filepath.Join(rc.InputsDir, "verified.json"), &verified); err != nil {
		return eris.Wrap(err, "top5_ranker: verified.json")
	}

	resolved := make([]model.VerifiedProduct, 0, len(verified))
	for _, v := range verified {
		if v.Error == "" && v.ASIN != "" {
			resolved = append(resolved, v)
		}
	}

	result, err := rank.Top5(resolved, a.Contract, rc.Bus)
	if err != nil {
		return err
	}
	if err := fsutil.WriteJSONAtomic(filepath.Join(rc.InputsDir, "products.json"), result.Top); err != nil {
		return err
	}
	if len(result.Rejected) > 0 {
		return fsutil.WriteJSONAtomic(filepath.Join(rc.InputsDir, "rejected.json"), result.Rejected)
	}
	return nil
}

// ScriptProducer drafts, refines, and normalizes the video script.
type ScriptProducer struct {
	Generator      *script.Generator
	RefineTemplate string
}

func (a *ScriptProducer) Name() string { return "script_producer" }

func (a *ScriptProducer) Run(ctx context.Context, rc *model.RunContext) error {
	var top []model.TopProduct
	if err := fsutil.ReadJSON(filepath.Join(rc.InputsDir, "products.json"), &top); err != nil {
		return eris.Wrap(err, "script_producer: products.json")
	}
	if err := os.MkdirAll(rc.ScriptDir, 0o755); err != nil {
		return eris.Wrap(err, "script_producer: script dir")
	}
	_, err := a.Generator.Generate(ctx, rc.ScriptDir, DraftPrompt(rc.Niche, top), a.RefineTemplate)
	return err
}

// DraftPrompt builds the scriptwriting prompt from the ranked products.
func DraftPrompt(nicheName string, top []model.TopProduct) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a Top-5 countdown video script about the best %s.\n", nicheName)
	b.WriteString("Count down from #5 to #1. Use section markers [HOOK], [PRODUCT_5]..[PRODUCT_1], ")
	b.WriteString("[RETENTION_RESET] before #3, and [CONCLUSION]. ")
	b.WriteString("After the conclusion add sections: Avatar Intro, YouTube Description, Thumbnail Headlines.\n\nProducts:\n")
	for _, p := range top {
		fmt.Fprintf(&b, "#%d %s (%s) - %s", p.Rank, p.ProductName, p.CategoryLabel, strings.Join(p.Benefits, "; "))
		if p.Downside != "" {
			fmt.Fprintf(&b, " | downside: %s", p.Downside)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// DzineAssetAgent writes the image-generation prompt pack.
type DzineAssetAgent struct{}

func (a *DzineAssetAgent) Name() string { return "dzine_asset_agent" }

// AssetPrompt is one entry of assets/prompts.json.
type AssetPrompt struct {
	Rank        int    `json:"rank"`
	ProductName string `json:"product_name"`
	Prompt      string `json:"prompt"`
	ImageURL    string `json:"image_url,omitempty"`
}

func (a *DzineAssetAgent) Run(_ context.Context, rc *model.RunContext) error {
	var top []model.TopProduct
	if err := fsutil.ReadJSON(filepath.Join(rc.InputsDir, "products.json"), &top); err != nil {
		return eris.Wrap(err, "dzine_asset_agent: products.json")
	}

	assetsDir := filepath.Join(rc.RunDir, "assets")
	if err := os.MkdirAll(assetsDir, 0o755); err != nil {
		return eris.Wrap(err, "dzine_asset_agent: assets dir")
	}

	prompts := make([]AssetPrompt, 0, len(top))
	for _, p := range top {
		prompts = append(prompts, AssetPrompt{
			Rank:        p.Rank,
			ProductName: p.ProductName,
			Prompt: fmt.Sprintf("Clean studio product shot of %s on a neutral background, %s styling",
				p.ProductName, strings.ToLower(string(p.CategoryLabel))),
			ImageURL: p.AmazonImageURL,
		})
	}
	return fsutil.WriteJSONAtomic(filepath.Join(assetsDir, "prompts.json"), prompts)
}

// TTSAgent splits the script into voiceover segments.
type TTSAgent struct{}

func (a *TTSAgent) Name() string { return "tts_agent" }

// TTSSegment is one entry of tts/segments.json.
type TTSSegment struct {
	Index  int    `json:"index"`
	Marker string `json:"marker"`
	Text   string `json:"text"`
}

func (a *TTSAgent) Run(_ context.Context, rc *model.RunContext) error {
	data, err := os.ReadFile(filepath.Join(rc.ScriptDir, "script.txt"))
	if err != nil {
		return eris.Wrap(err, "tts_agent: script.txt")
	}

	segments := SplitSegments(string(data))
	ttsDir := filepath.Join(rc.RunDir, "tts")
	if err := os.MkdirAll(ttsDir, 0o755); err != nil {
		return eris.Wrap(err, "tts_agent: tts dir")
	}
	if err := fsutil.WriteJSONAtomic(filepath.Join(ttsDir, "segments.json"), segments); err != nil {
		return err
	}

	var voice strings.Builder
	for _, s := range segments {
		voice.WriteString(s.Text)
		voice.WriteString("\n\n")
	}
	return fsutil.WriteFileAtomic(filepath.Join(ttsDir, "voiceover.txt"),
		[]byte(strings.TrimSpace(voice.String())+"\n"), 0o644)
}

// SplitSegments cuts a marker-normalized script into per-marker segments,
// dropping the marker lines from the spoken text.
func SplitSegments(scriptText string) []TTSSegment {
	var segments []TTSSegment
	marker := ""
	var buf []string

	flush := func() {
		text := strings.TrimSpace(strings.Join(buf, "\n"))
		if marker != "" && text != "" {
			segments = append(segments, TTSSegment{
				Index:  len(segments),
				Marker: marker,
				Text:   text,
			})
		}
		buf = buf[:0]
	}

	for _, line := range strings.Split(scriptText, "\n") {
		t := strings.TrimSpace(line)
		if strings.HasPrefix(t, "[") && strings.Contains(t, "]") {
			flush()
			marker = t[:strings.Index(t, "]")+1]
			if rest := strings.TrimSpace(t[strings.Index(t, "]")+1:]); rest != "" {
				buf = append(buf, rest)
			}
			continue
		}
		buf = append(buf, line)
	}
	flush()
	return segments
}

// ResolvePackager assembles the editor handoff package.
type ResolvePackager struct{}

func (a *ResolvePackager) Name() string { return "resolve_packager" }

func (a *ResolvePackager) Run(_ context.Context, rc *model.RunContext) error {
	var top []model.TopProduct
	if err := fsutil.ReadJSON(filepath.Join(rc.InputsDir, "products.json"), &top); err != nil {
		return eris.Wrap(err, "resolve_packager: products.json")
	}
	if err := os.MkdirAll(rc.ResolveDir, 0o755); err != nil {
		return eris.Wrap(err, "resolve_packager: resolve dir")
	}

	manifest := map[string]any{
		"run_slug": rc.RunSlug,
		"niche":    rc.Niche,
		"script":   filepath.Join(rc.ScriptDir, "script.txt"),
		"segments": filepath.Join(rc.RunDir, "tts", "segments.json"),
		"assets":   filepath.Join(rc.RunDir, "assets", "prompts.json"),
		"products": filepath.Join(rc.InputsDir, "products.json"),
	}
	if err := fsutil.WriteJSONAtomic(filepath.Join(rc.ResolveDir, "edit_manifest.json"), manifest); err != nil {
		return err
	}

	var csv strings.Builder
	csv.WriteString("index,marker,title\n")
	var segments []TTSSegment
	if err := fsutil.ReadJSON(filepath.Join(rc.RunDir, "tts", "segments.json"), &segments); err == nil {
		for _, s := range segments {
			title := s.Text
			if i := strings.IndexByte(title, '\n'); i >= 0 {
				title = title[:i]
			}
			if len(title) > 60 {
				title = title[:60]
			}
			fmt.Fprintf(&csv, "%d,%s,%q\n", s.Index, s.Marker, title)
		}
	}
	if err := fsutil.WriteFileAtomic(filepath.Join(rc.ResolveDir, "markers.csv"), []byte(csv.String()), 0o644); err != nil {
		return err
	}

	var notes strings.Builder
	fmt.Fprintf(&notes, "# Edit notes: %s\n\n", rc.Niche)
	notes.WriteString("Countdown order, #5 first:\n\n")
	for i := len(top) - 1; i >= 0; i-- {
		p := top[i]
		fmt.Fprintf(&notes, "- #%d %s (%s)\n", p.Rank, p.ProductName, p.CategoryLabel)
	}
	notes.WriteString("\nOverlay each product's affiliate link QR in its segment.\n")
	return fsutil.WriteFileAtomic(filepath.Join(rc.ResolveDir, "notes.md"), []byte(notes.String()), 0o644)
}
