package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ranklab-media/studio-cli/internal/fsutil"
	"github.com/ranklab-media/studio-cli/internal/model"
	"github.com/ranklab-media/studio-cli/internal/orchestrator"
	"github.com/ranklab-media/studio-cli/internal/script"
	"github.com/ranklab-media/studio-cli/pkg/openai"
)

// defaultRefineTemplate polishes the draft while keeping the section
// markers intact. The placeholder is replaced with the raw draft.
const defaultRefineTemplate = `You are an editor for a Top-5 product video channel.
Tighten the script below: punchier hook, shorter sentences, keep every
[SECTION] marker line exactly as written, and keep all product facts.

(paste draft here)`

var (
	scriptProducts string
	scriptNiche    string
	scriptOut      string
	scriptRefine   string
)

var scriptCmd = &cobra.Command{
	Use:   "script",
	Short: "Draft and refine the video script",
	RunE: func(cmd *cobra.Command, args []string) error {
		if scriptProducts == "" || scriptNiche == "" {
			return eris.New("cmd: --products and --niche are required")
		}

		var top []model.TopProduct
		if err := fsutil.ReadJSON(scriptProducts, &top); err != nil {
			return err
		}

		gen, err := initGenerator()
		if err != nil {
			return err
		}
		template := defaultRefineTemplate
		if scriptRefine != "" {
			data, err := os.ReadFile(scriptRefine)
			if err != nil {
				return eris.Wrap(err, "cmd: refine template")
			}
			template = string(data)
		}

		out, err := gen.Generate(cmd.Context(), scriptOut,
			orchestrator.DraftPrompt(scriptNiche, top), template)
		if err != nil {
			return err
		}
		zap.L().Info("script generated",
			zap.String("niche", scriptNiche),
			zap.String("draft_provider", out.Meta.DraftProvider),
			zap.Float64("duration_secs", out.Meta.DurationSeconds),
		)
		return printJSON(map[string]any{
			"script":   out.ScriptPath,
			"raw":      out.RawPath,
			"meta":     out.MetaPath,
			"provider": out.Meta.DraftProvider,
		})
	},
}

// initGenerator wires the draft and refinement providers from config.
func initGenerator() (*script.Generator, error) {
	client, err := initLLM()
	if err != nil {
		return nil, err
	}
	fallback := &script.LLMDrafter{Client: client, Model: cfg.Anthropic.DraftModel}

	var refiner openai.Client
	if cfg.OpenAI.Key != "" {
		refiner = openai.NewClient(cfg.OpenAI.Key,
			openai.WithBaseURL(cfg.OpenAI.BaseURL),
			openai.WithModel(cfg.OpenAI.Model))
	}
	return script.NewGenerator(nil, fallback, refiner), nil
}

func init() {
	scriptCmd.Flags().StringVar(&scriptProducts, "products", "", "path to products.json")
	scriptCmd.Flags().StringVar(&scriptNiche, "niche", "", "niche keyword for the prompt")
	scriptCmd.Flags().StringVar(&scriptOut, "out", ".", "output directory")
	scriptCmd.Flags().StringVar(&scriptRefine, "refine-template", "", "path to a custom refinement template")
	rootCmd.AddCommand(scriptCmd)
}
