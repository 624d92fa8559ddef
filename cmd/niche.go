package main

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ranklab-media/studio-cli/internal/model"
)

var (
	nicheDate    string
	nicheList    bool
	nicheHistory bool
	nicheVideoID string
)

var nicheCmd = &cobra.Command{
	Use:   "niche",
	Short: "Pick and persist today's niche",
	RunE: func(cmd *cobra.Command, args []string) error {
		picker, history, err := initPicker()
		if err != nil {
			return err
		}
		date := nicheDate
		if date == "" {
			date = time.Now().UTC().Format("2006-01-02")
		}

		if nicheHistory {
			return printJSON(history.Entries())
		}
		if nicheList {
			ranked, err := picker.Rank(date)
			if err != nil {
				return err
			}
			return printJSON(ranked)
		}

		pick, err := picker.Pick(date)
		if err != nil {
			return err
		}
		if err := history.Upsert(model.NicheHistoryEntry{
			Date:        date,
			Niche:       pick.Keyword,
			VideoID:     nicheVideoID,
			Category:    pick.Category,
			Subcategory: pick.Subcategory,
			Intent:      pick.Intent,
		}); err != nil {
			return err
		}

		zap.L().Info("niche picked",
			zap.String("date", date),
			zap.String("niche", pick.Keyword),
			zap.Int("score", pick.Total),
		)
		return printJSON(pick)
	},
}

func init() {
	nicheCmd.Flags().StringVar(&nicheDate, "date", "", "run date YYYY-MM-DD (default today)")
	nicheCmd.Flags().BoolVar(&nicheList, "list", false, "rank the whole pool instead of picking")
	nicheCmd.Flags().BoolVar(&nicheHistory, "history", false, "print the usage history")
	nicheCmd.Flags().StringVar(&nicheVideoID, "video-id", "", "video id to record with the pick")
	rootCmd.AddCommand(nicheCmd)
}
