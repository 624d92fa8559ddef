package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ranklab-media/studio-cli/internal/bot"
	"github.com/ranklab-media/studio-cli/internal/jobworker"
	"github.com/ranklab-media/studio-cli/pkg/telegram"
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the Telegram admin bot",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Telegram.BotToken == "" {
			return eris.New("cmd: telegram.bot_token is not configured")
		}
		if len(cfg.Telegram.AdminIDs) == 0 {
			return eris.New("cmd: telegram.admin_ids is empty")
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		tg := telegram.NewClient(cfg.Telegram.BotToken)
		mgr := initJobManager()

		client, err := initLLM()
		if err != nil {
			return err
		}
		worker := jobworker.NewWorker(mgr, client, cfg.Anthropic.JobWorkerModel,
			jobworker.WithMaxIterations(cfg.Jobs.MaxIterations),
			jobworker.WithCheckpointInterval(cfg.Jobs.CheckpointInterval),
			jobworker.WithNotifier(func(adminID int64, text string) {
				sendCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := tg.SendMessage(sendCtx, adminID, bot.Truncate(text)); err != nil {
					zap.L().Warn("bot: notify failed", zap.Int64("admin_id", adminID), zap.Error(err))
				}
			}),
		)

		b := bot.New(tg, mgr, worker, cfg.Telegram.AdminIDs,
			bot.WithPipelineRunner(&pipelineDispatcher{}),
			bot.WithStatusProvider(bot.PipelineStatusFromDir(cfg.Pipeline.ArtifactsRoot)),
		)

		zap.L().Info("bot: polling", zap.Int("admins", len(cfg.Telegram.AdminIDs)))
		return b.Poll(ctx)
	},
}

// pipelineDispatcher executes confirmed /run commands from the bot.
type pipelineDispatcher struct{}

func (d *pipelineDispatcher) Run(ctx context.Context, args []string) (string, error) {
	if len(args) == 0 {
		return "", eris.New("cmd: empty pipeline command")
	}
	switch args[0] {
	case "day":
		date := time.Now().UTC().Format("2006-01-02")
		for i := 1; i < len(args)-1; i++ {
			if args[i] == "--date" {
				date = args[i+1]
			}
		}
		summary, err := runDay(ctx, date)
		if err != nil {
			if summary != nil {
				return summary.String(), nil
			}
			return "", err
		}
		return summary.String(), nil
	default:
		return "", eris.Errorf("cmd: unsupported pipeline command %q", args[0])
	}
}

func init() {
	rootCmd.AddCommand(botCmd)
}
