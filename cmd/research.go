package main

import (
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ranklab-media/studio-cli/internal/fsutil"
	"github.com/ranklab-media/studio-cli/internal/research"
	"github.com/ranklab-media/studio-cli/pkg/brave"
)

var (
	researchNiche   string
	researchOut     string
	researchVideoID string
)

var researchCmd = &cobra.Command{
	Use:   "research",
	Short: "Build the product shortlist from review outlets",
	RunE: func(cmd *cobra.Command, args []string) error {
		if researchNiche == "" {
			return eris.New("cmd: --niche is required")
		}
		if cfg.Brave.Key == "" {
			return eris.New("cmd: brave.key is not configured")
		}

		search := brave.NewClient(cfg.Brave.Key, brave.WithBaseURL(cfg.Brave.BaseURL))
		fetcher, cleanup := initFetcher(cmd.Context())
		defer cleanup()
		researcher := research.New(search,
			research.WithFetcher(fetcher),
			research.WithResultsPerOutlet(cfg.Research.ResultsPerOutlet))

		shortlist, err := researcher.Research(cmd.Context(), researchNiche)
		if err != nil {
			return err
		}

		path := filepath.Join(researchOut, "shortlist.json")
		if err := fsutil.WriteJSONAtomic(path, shortlist); err != nil {
			return err
		}
		zap.L().Info("research complete",
			zap.String("niche", researchNiche),
			zap.Int("candidates", len(shortlist)),
		)
		return printJSON(map[string]any{
			"niche":      researchNiche,
			"candidates": len(shortlist),
			"shortlist":  path,
		})
	},
}

func init() {
	researchCmd.Flags().StringVar(&researchNiche, "niche", "", "niche keyword to research")
	researchCmd.Flags().StringVar(&researchOut, "out", ".", "output directory")
	researchCmd.Flags().StringVar(&researchVideoID, "video-id", "", "video id for log correlation")
	rootCmd.AddCommand(researchCmd)
}
