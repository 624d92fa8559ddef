package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ranklab-media/studio-cli/internal/fetch"
	"github.com/ranklab-media/studio-cli/internal/fsutil"
	"github.com/ranklab-media/studio-cli/internal/model"
	"github.com/ranklab-media/studio-cli/internal/niche"
	"github.com/ranklab-media/studio-cli/internal/orchestrator"
	"github.com/ranklab-media/studio-cli/internal/research"
	"github.com/ranklab-media/studio-cli/internal/runstate"
	"github.com/ranklab-media/studio-cli/internal/store"
	"github.com/ranklab-media/studio-cli/pkg/brave"
)

var runDate string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute a full production run up to the first approval gate",
	RunE: func(cmd *cobra.Command, args []string) error {
		date := runDate
		if date == "" {
			date = time.Now().UTC().Format("2006-01-02")
		}
		summary, err := runDay(cmd.Context(), date)
		if summary != nil {
			if perr := printJSON(summary); perr != nil {
				return perr
			}
		}
		return err
	},
}

// runSummary is the machine-readable outcome of one orchestrated run.
type runSummary struct {
	RunSlug string   `json:"run_slug"`
	Niche   string   `json:"niche"`
	Status  string   `json:"status"`
	RunDir  string   `json:"run_dir"`
	Errors  []string `json:"errors,omitempty"`
}

func (s *runSummary) String() string {
	if len(s.Errors) > 0 {
		return fmt.Sprintf("Run %s failed: %s", s.RunSlug, strings.Join(s.Errors, "; "))
	}
	return fmt.Sprintf("Run %s complete, niche %q. Status: %s.", s.RunSlug, s.Niche, s.Status)
}

// runDay drives the eight-stage orchestration for one date and leaves the
// run parked at the first approval gate.
func runDay(ctx context.Context, date string) (*runSummary, error) {
	picker, history, err := initPicker()
	if err != nil {
		return nil, err
	}
	// The picker is deterministic per date, so this pick and the one the
	// strategist makes inside the run agree.
	pick, err := picker.Pick(date)
	if err != nil {
		return nil, err
	}

	runSlug := fsutil.RunSlug(pick.Keyword, date)
	runDir := filepath.Join(cfg.Pipeline.ArtifactsRoot, runSlug)
	rc := &model.RunContext{
		RunSlug:    runSlug,
		RunDir:     runDir,
		InputsDir:  filepath.Join(runDir, "inputs"),
		ScriptDir:  filepath.Join(runDir, "script"),
		ResolveDir: filepath.Join(runDir, "resolve"),
		Bus:        model.NewBus(),
	}
	for _, dir := range []string{rc.InputsDir, rc.ScriptDir, rc.ResolveDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, eris.Wrap(err, "cmd: run dirs")
		}
	}

	fetcher, cleanup := initFetcher(ctx)
	defer cleanup()
	agents, err := buildAgents(picker, history, date, pick, fetcher)
	if err != nil {
		return nil, err
	}

	summary := &runSummary{RunSlug: runSlug, Niche: pick.Keyword, RunDir: runDir}
	if err := orchestrator.New(agents).Run(ctx, rc); err != nil {
		summary.Status = string(model.StatusFailed)
		summary.Errors = rc.Errors
		persistFailedRun(ctx, runSlug, pick, rc)
		return summary, err
	}

	mirror, err := initMirror()
	if err != nil {
		return nil, err
	}
	opts := []runstate.Option{
		runstate.WithCommands(cfg.Pipeline.RenderCommand, cfg.Pipeline.UploadCommand),
	}
	if mirror != nil {
		opts = append(opts, runstate.WithMirror(mirror))
	}
	controller, err := runstate.New(runDir, runSlug, pick.Keyword, pick.Category, opts...)
	if err != nil {
		return nil, err
	}
	for name, rel := range map[string]string{
		"script":   "script/script.txt",
		"products": "inputs/products.json",
		"manifest": "resolve/edit_manifest.json",
	} {
		if err := controller.RegisterArtifact(ctx, name, rel); err != nil {
			return nil, err
		}
	}
	indexRun(ctx, controller.State())

	summary.Status = string(controller.State().Status)
	zap.L().Info("run complete",
		zap.String("run_slug", runSlug),
		zap.String("niche", pick.Keyword),
		zap.String("status", summary.Status),
	)
	return summary, nil
}

// buildAgents assembles the production agents for one run.
func buildAgents(picker *niche.Picker, history *niche.History, date string, pick *niche.ScoredNiche, fetcher *fetch.Fetcher) (map[string]orchestrator.Agent, error) {
	if cfg.Brave.Key == "" {
		return nil, eris.New("cmd: brave.key is not configured")
	}
	search := brave.NewClient(cfg.Brave.Key, brave.WithBaseURL(cfg.Brave.BaseURL))
	researcher := research.New(search,
		research.WithOutlets(orchestrator.AllowedOutlets()),
		research.WithFetcher(fetcher),
		research.WithResultsPerOutlet(cfg.Research.ResultsPerOutlet))

	verifier, err := initVerifier()
	if err != nil {
		return nil, err
	}
	gen, err := initGenerator()
	if err != nil {
		return nil, err
	}

	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return nil, eris.Wrapf(err, "cmd: parse date %q", date)
	}

	return map[string]orchestrator.Agent{
		orchestrator.StageNiche: &seqAgent{
			name: "niche_strategist",
			agents: []orchestrator.Agent{
				&orchestrator.NicheStrategist{Picker: picker, History: history, Date: date},
				&orchestrator.SEOAgent{Year: day.Year()},
			},
		},
		orchestrator.StageResearch: &orchestrator.ResearchAgent{Researcher: researcher},
		orchestrator.StageVerify:   &orchestrator.AmazonVerifyAgent{Verifier: verifier},
		orchestrator.StageRank:     &orchestrator.Top5Ranker{Contract: contractFor(pick.NicheCandidate)},
		orchestrator.StageScript: &orchestrator.ScriptProducer{
			Generator:      gen,
			RefineTemplate: defaultRefineTemplate,
		},
		orchestrator.StageAssets:   &orchestrator.DzineAssetAgent{},
		orchestrator.StageTTS:      &orchestrator.TTSAgent{},
		orchestrator.StageManifest: &orchestrator.ResolvePackager{},
	}, nil
}

// seqAgent runs several agents as one stage.
type seqAgent struct {
	name   string
	agents []orchestrator.Agent
}

func (a *seqAgent) Name() string { return a.name }

func (a *seqAgent) Run(ctx context.Context, rc *model.RunContext) error {
	for _, agent := range a.agents {
		if err := agent.Run(ctx, rc); err != nil {
			return err
		}
	}
	return nil
}

// contractFor derives the drift contract from the picked niche. The
// keyword's content words become required terms; matching any one keeps
// a product in the list.
func contractFor(c model.NicheCandidate) *model.SubcategoryContract {
	stop := map[string]bool{
		"best": true, "top": true, "for": true, "under": true,
		"the": true, "and": true, "with": true,
	}
	var required []string
	for _, tok := range strings.Fields(strings.ToLower(c.Keyword)) {
		if stop[tok] || strings.Trim(tok, "0123456789") == "" {
			continue
		}
		required = append(required, tok)
	}
	return &model.SubcategoryContract{
		Subcategory:   c.Subcategory,
		RequiredTerms: required,
	}
}

// persistFailedRun records the aborted run on disk and in the run index.
func persistFailedRun(ctx context.Context, runSlug string, pick *niche.ScoredNiche, rc *model.RunContext) {
	state := model.PipelineState{
		RunSlug:  runSlug,
		Theme:    pick.Keyword,
		Category: pick.Category,
	}
	state.Transition(model.StatusFailed, strings.Join(rc.Errors, "; "))
	if err := fsutil.WriteJSONAtomic(filepath.Join(rc.RunDir, runstate.StateFile), state); err != nil {
		zap.L().Error("cmd: persist failed run", zap.String("run_slug", runSlug), zap.Error(err))
	}
	indexRun(ctx, state)
}

// indexRun mirrors the run state into the store-backed run index.
func indexRun(ctx context.Context, state model.PipelineState) {
	st, err := initStore(ctx)
	if err != nil {
		zap.L().Warn("cmd: run index unavailable", zap.Error(err))
		return
	}
	defer st.Close() //nolint:errcheck
	if err := st.Migrate(ctx); err != nil {
		zap.L().Warn("cmd: run index migrate", zap.Error(err))
		return
	}
	now := time.Now().UTC()
	rec := store.RunRecord{
		RunSlug:   state.RunSlug,
		Theme:     state.Theme,
		Category:  state.Category,
		Status:    state.Status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if len(state.History) > 0 {
		rec.CreatedAt = state.History[0].TS
		rec.UpdatedAt = state.History[len(state.History)-1].TS
	}
	if err := st.UpsertRun(ctx, rec); err != nil {
		zap.L().Warn("cmd: run index upsert", zap.String("run_slug", state.RunSlug), zap.Error(err))
	}
}

func init() {
	runCmd.Flags().StringVar(&runDate, "date", "", "run date YYYY-MM-DD (default today)")
	rootCmd.AddCommand(runCmd)
}
