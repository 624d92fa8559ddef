package main

import (
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ranklab-media/studio-cli/internal/runstate"
)

var (
	pipelinePhase    string
	pipelineRunSlug  string
	pipelineReviewer string
	pipelineNotes    string
)

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Inspect or advance the two-gate run lifecycle",
	RunE: func(cmd *cobra.Command, args []string) error {
		if pipelineRunSlug == "" {
			return eris.New("cmd: --run-slug is required")
		}
		mirror, err := initMirror()
		if err != nil {
			return err
		}
		opts := []runstate.Option{
			runstate.WithCommands(cfg.Pipeline.RenderCommand, cfg.Pipeline.UploadCommand),
		}
		if mirror != nil {
			opts = append(opts, runstate.WithMirror(mirror))
		}
		controller, err := runstate.Load(filepath.Join(cfg.Pipeline.ArtifactsRoot, pipelineRunSlug), opts...)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		switch pipelinePhase {
		case "gate1", "gate2", "status":
			// inspection only
		case "approve_gate1":
			err = controller.ApproveGate1(ctx, pipelineReviewer, pipelineNotes)
		case "reject_gate1":
			err = controller.RejectGate1(ctx, pipelineReviewer, pipelineNotes)
		case "approve_gate2":
			err = controller.ApproveGate2(ctx, pipelineReviewer, pipelineNotes)
		case "reject_gate2":
			err = controller.RejectGate2(ctx, pipelineReviewer, pipelineNotes)
		case "finalize":
			err = controller.Finalize(ctx)
		default:
			return eris.Errorf("cmd: unknown phase %q", pipelinePhase)
		}

		indexRun(ctx, controller.State())
		if err != nil {
			return err
		}
		return printJSON(controller.State())
	},
}

func init() {
	pipelineCmd.Flags().StringVar(&pipelinePhase, "phase", "status", "status|gate1|gate2|approve_gate1|reject_gate1|approve_gate2|reject_gate2|finalize")
	pipelineCmd.Flags().StringVar(&pipelineRunSlug, "run-slug", "", "run to operate on")
	pipelineCmd.Flags().StringVar(&pipelineReviewer, "reviewer", "", "reviewer recorded with the gate decision")
	pipelineCmd.Flags().StringVar(&pipelineNotes, "notes", "", "notes recorded with the gate decision")
	rootCmd.AddCommand(pipelineCmd)
}
