package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ranklab-media/studio-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "studio-cli",
	Short: "Daily Top-5 product video production pipeline",
	Long: `studio-cli drives the daily production run: pick a niche, research
reviews, verify products on the marketplace, rank the Top-5, draft the
script, and package the edit manifest. Human approval gates sit between
draft and assets, and between assets and publish.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		return config.InitLogger(cfg.Log)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
