package main

import (
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ranklab-media/studio-cli/internal/fsutil"
	"github.com/ranklab-media/studio-cli/internal/model"
)

var (
	verifyShortlist string
	verifyOut       string
	verifyVideoID   string
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Resolve the shortlist against the marketplace",
	RunE: func(cmd *cobra.Command, args []string) error {
		if verifyShortlist == "" {
			return eris.New("cmd: --shortlist is required")
		}
		verifier, err := initVerifier()
		if err != nil {
			return err
		}

		var shortlist []model.ProductCandidate
		if err := fsutil.ReadJSON(verifyShortlist, &shortlist); err != nil {
			return err
		}

		verified := verifier.VerifyAll(cmd.Context(), shortlist)

		resolved := 0
		for _, v := range verified {
			if v.Error == "" && v.ASIN != "" {
				resolved++
			}
		}

		path := filepath.Join(verifyOut, "verified.json")
		if err := fsutil.WriteJSONAtomic(path, verified); err != nil {
			return err
		}
		zap.L().Info("verification complete",
			zap.Int("candidates", len(shortlist)),
			zap.Int("resolved", resolved),
		)
		return printJSON(map[string]any{
			"candidates": len(shortlist),
			"resolved":   resolved,
			"verified":   path,
		})
	},
}

func init() {
	verifyCmd.Flags().StringVar(&verifyShortlist, "shortlist", "", "path to shortlist.json")
	verifyCmd.Flags().StringVar(&verifyOut, "out", ".", "output directory")
	verifyCmd.Flags().StringVar(&verifyVideoID, "video-id", "", "video id for log correlation")
	rootCmd.AddCommand(verifyCmd)
}
