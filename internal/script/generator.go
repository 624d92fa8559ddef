// Package script turns the ranked Top-5 into a voiceover-ready script:
// draft with one provider, refine with a second, then normalize the result
// into canonical section markers.
package script

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ranklab-media/studio-cli/internal/fsutil"
	"github.com/ranklab-media/studio-cli/pkg/llm"
	"github.com/ranklab-media/studio-cli/pkg/openai"
)

// draftTimeout bounds a single drafting call.
const draftTimeout = 120 * time.Second

// PlaceholderDraft is the literal the refine template must contain.
const PlaceholderDraft = "(paste draft here)"

// DraftResult is one provider call's output.
type DraftResult struct {
	Text         string
	Provider     string
	InputTokens  int
	OutputTokens int
}

// Drafter produces a script draft from a prompt.
type Drafter interface {
	Draft(ctx context.Context, prompt string) (*DraftResult, error)
}

// LLMDrafter drafts through the Anthropic messages API.
type LLMDrafter struct {
	Client llm.Client
	Model  string
}

// Draft sends the prompt as a single user message.
func (d *LLMDrafter) Draft(ctx context.Context, prompt string) (*DraftResult, error) {
	resp, err := d.Client.CreateMessage(ctx, llm.MessageRequest{
		Model:     d.Model,
		MaxTokens: 8192,
		Messages:  []llm.Message{llm.UserText(prompt)},
	})
	if err != nil {
		return nil, eris.Wrap(err, "script: draft call")
	}
	resp.Usage.LogCost(d.Model, "script_draft")
	return &DraftResult{
		Text:         resp.TextContent(),
		Provider:     d.Model,
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
	}, nil
}

// GenMeta is the script_gen_meta.json payload.
type GenMeta struct {
	GeneratedAt     time.Time `json:"generated_at"`
	DurationSeconds float64   `json:"duration_seconds"`
	DraftProvider   string    `json:"draft_provider"`
	RefineProvider  string    `json:"refine_provider,omitempty"`
	DraftInTokens   int       `json:"draft_in_tokens"`
	DraftOutTokens  int       `json:"draft_out_tokens"`
	RefineInTokens  int       `json:"refine_in_tokens,omitempty"`
	RefineOutTokens int       `json:"refine_out_tokens,omitempty"`
	RefineFellBack  bool      `json:"refine_fell_back,omitempty"`

	Metadata
}

// Output points at the four artifacts the generator writes.
type Output struct {
	RawPath    string
	FinalPath  string
	ScriptPath string
	MetaPath   string
	Script     string
	Meta       GenMeta
}

// Generator orchestrates draft, refine, and parse.
type Generator struct {
	primary  Drafter // preferred (browser-backed when available)
	fallback Drafter // HTTP provider
	refiner  openai.Client
	now      func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock injects the clock for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// NewGenerator creates a Generator. primary may be nil; refiner may be nil
// to skip refinement.
func NewGenerator(primary, fallback Drafter, refiner openai.Client, opts ...Option) *Generator {
	g := &Generator{
		primary:  primary,
		fallback: fallback,
		refiner:  refiner,
		now:      time.Now,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Generate runs the full pipeline and writes script_raw.txt,
// script_final.txt, script.txt, and script_gen_meta.json under dir.
func (g *Generator) Generate(ctx context.Context, dir, draftPrompt, refineTemplate string) (*Output, error) {
	started := g.now()

	draft, err := g.draft(ctx, draftPrompt)
	if err != nil {
		return nil, err
	}

	out := &Output{
		RawPath:    filepath.Join(dir, "script_raw.txt"),
		FinalPath:  filepath.Join(dir, "script_final.txt"),
		ScriptPath: filepath.Join(dir, "script.txt"),
		MetaPath:   filepath.Join(dir, "script_gen_meta.json"),
	}
	if err := fsutil.WriteFileAtomic(out.RawPath, []byte(draft.Text), 0o644); err != nil {
		return nil, err
	}

	meta := GenMeta{
		GeneratedAt:    started.UTC(),
		DraftProvider:  draft.Provider,
		DraftInTokens:  draft.InputTokens,
		DraftOutTokens: draft.OutputTokens,
	}

	final := draft.Text
	if g.refiner != nil && refineTemplate != "" {
		refined, rerr := g.refine(ctx, draft.Text, refineTemplate)
		if rerr != nil {
			zap.L().Warn("script: refinement failed, keeping raw draft", zap.Error(rerr))
			meta.RefineFellBack = true
		} else {
			final = refined.Text
			meta.RefineProvider = refined.Provider
			meta.RefineInTokens = refined.InputTokens
			meta.RefineOutTokens = refined.OutputTokens
		}
	}
	if err := fsutil.WriteFileAtomic(out.FinalPath, []byte(final), 0o644); err != nil {
		return nil, err
	}

	normalized := NormalizeMarkers(final)
	out.Script = ExtractBody(normalized)
	if err := fsutil.WriteFileAtomic(out.ScriptPath, []byte(out.Script+"\n"), 0o644); err != nil {
		return nil, err
	}

	meta.Metadata = ExtractMetadata(normalized)
	meta.DurationSeconds = g.now().Sub(started).Seconds()
	out.Meta = meta
	if err := fsutil.WriteJSONAtomic(out.MetaPath, meta); err != nil {
		return nil, err
	}
	return out, nil
}

// draft tries the primary provider, then the fallback.
func (g *Generator) draft(ctx context.Context, prompt string) (*DraftResult, error) {
	try := func(d Drafter) (*DraftResult, error) {
		dctx, cancel := context.WithTimeout(ctx, draftTimeout)
		defer cancel()
		return d.Draft(dctx, prompt)
	}

	if g.primary != nil {
		res, err := try(g.primary)
		if err == nil {
			return res, nil
		}
		zap.L().Warn("script: primary drafter failed, falling back", zap.Error(err))
	}
	if g.fallback == nil {
		return nil, eris.New("script: no drafter available")
	}
	res, err := try(g.fallback)
	if err != nil {
		return nil, eris.Wrap(err, "script: all drafters failed")
	}
	return res, nil
}

func (g *Generator) refine(ctx context.Context, raw, template string) (*DraftResult, error) {
	if !strings.Contains(template, PlaceholderDraft) {
		return nil, eris.Errorf("script: refine template missing %q", PlaceholderDraft)
	}
	prompt := strings.Replace(template, PlaceholderDraft, raw, 1)

	rctx, cancel := context.WithTimeout(ctx, draftTimeout)
	defer cancel()

	comp, err := g.refiner.Complete(rctx, prompt)
	if err != nil {
		return nil, eris.Wrap(err, "script: refine call")
	}
	return &DraftResult{
		Text:         comp.Text,
		Provider:     "openai",
		InputTokens:  comp.InputTokens,
		OutputTokens: comp.OutputTokens,
	}, nil
}
