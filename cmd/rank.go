package main

import (
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ranklab-media/studio-cli/internal/fsutil"
	"github.com/ranklab-media/studio-cli/internal/model"
	"github.com/ranklab-media/studio-cli/internal/rank"
)

var (
	rankVerified string
	rankContract string
	rankOut      string
	rankVideoID  string
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Select the Top-5 from verified products",
	RunE: func(cmd *cobra.Command, args []string) error {
		if rankVerified == "" {
			return eris.New("cmd: --verified is required")
		}

		var verified []model.VerifiedProduct
		if err := fsutil.ReadJSON(rankVerified, &verified); err != nil {
			return err
		}
		resolved := make([]model.VerifiedProduct, 0, len(verified))
		for _, v := range verified {
			if v.Error == "" && v.ASIN != "" {
				resolved = append(resolved, v)
			}
		}

		var contract *model.SubcategoryContract
		if rankContract != "" {
			contract = &model.SubcategoryContract{}
			if err := fsutil.ReadJSON(rankContract, contract); err != nil {
				return err
			}
		}

		bus := model.NewBus()
		result, err := rank.Top5(resolved, contract, bus)
		if err != nil {
			return err
		}

		productsPath := filepath.Join(rankOut, "products.json")
		if err := fsutil.WriteJSONAtomic(productsPath, result.Top); err != nil {
			return err
		}
		if len(result.Rejected) > 0 {
			if err := fsutil.WriteJSONAtomic(filepath.Join(rankOut, "rejected.json"), result.Rejected); err != nil {
				return err
			}
		}

		warnings := make([]string, 0)
		for _, msg := range bus.All() {
			if msg.Type == model.MsgReview {
				warnings = append(warnings, msg.Content)
			}
		}
		zap.L().Info("ranking complete",
			zap.Int("resolved", len(resolved)),
			zap.Int("rejected", len(result.Rejected)),
			zap.Strings("warnings", warnings),
		)
		return printJSON(map[string]any{
			"top":      len(result.Top),
			"rejected": len(result.Rejected),
			"warnings": warnings,
			"products": productsPath,
		})
	},
}

func init() {
	rankCmd.Flags().StringVar(&rankVerified, "verified", "", "path to verified.json")
	rankCmd.Flags().StringVar(&rankContract, "contract", "", "path to a subcategory contract JSON")
	rankCmd.Flags().StringVar(&rankOut, "out", ".", "output directory")
	rankCmd.Flags().StringVar(&rankVideoID, "video-id", "", "video id for log correlation")
	rootCmd.AddCommand(rankCmd)
}
