package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ranklab-media/studio-cli/internal/job"
	"github.com/ranklab-media/studio-cli/internal/jobworker"
	"github.com/ranklab-media/studio-cli/internal/model"
)

var (
	jobsAdminID int64
	jobsTitle   string
	jobsPrompt  string
	jobsType    string
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Manage admin jobs",
}

func initJobManager() *job.Manager {
	return job.NewManager(job.NewStore(cfg.Jobs.Root),
		job.WithQuotas(cfg.Jobs.MaxJobsPerHour, cfg.Jobs.MaxConcurrentJobs))
}

func initJobWorker(mgr *job.Manager) (*jobworker.Worker, error) {
	client, err := initLLM()
	if err != nil {
		return nil, err
	}
	return jobworker.NewWorker(mgr, client, cfg.Anthropic.JobWorkerModel,
		jobworker.WithMaxIterations(cfg.Jobs.MaxIterations),
		jobworker.WithCheckpointInterval(cfg.Jobs.CheckpointInterval),
	), nil
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		jobs, err := initJobManager().Store().List()
		if err != nil {
			return err
		}
		return printJSON(jobs)
	},
}

var jobsShowCmd = &cobra.Command{
	Use:   "show <job-id>",
	Short: "Show one job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		j, err := initJobManager().Store().Load(args[0])
		if err != nil {
			return err
		}
		return printJSON(j)
	},
}

var jobsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a job",
	RunE: func(cmd *cobra.Command, args []string) error {
		if jobsPrompt == "" {
			return eris.New("cmd: --prompt is required")
		}
		jobType := model.JobType(jobsType)
		title := jobsTitle
		if title == "" {
			title = jobsPrompt
			if len(title) > 40 {
				title = title[:40]
			}
		}
		j, err := initJobManager().Create(jobsAdminID, title, jobsPrompt, jobType)
		if err != nil {
			return err
		}
		return printJSON(j)
	},
}

var jobsRunCmd = &cobra.Command{
	Use:   "run <job-id>",
	Short: "Run a job's worker loop in the foreground",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr := initJobManager()
		worker, err := initJobWorker(mgr)
		if err != nil {
			return err
		}
		if err := worker.Run(cmd.Context(), args[0]); err != nil {
			return err
		}
		j, err := mgr.Store().Load(args[0])
		if err != nil {
			return err
		}
		return printJSON(j)
	},
}

var jobsCancelCmd = &cobra.Command{
	Use:   "cancel <job-id>",
	Short: "Cancel a job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return initJobManager().Cancel(jobsAdminID, args[0])
	},
}

var jobsApproveCmd = &cobra.Command{
	Use:   "approve <perm-id>",
	Short: "Approve a pending permission",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return resolvePermission(args[0], true) },
}

var jobsDenyCmd = &cobra.Command{
	Use:   "deny <perm-id>",
	Short: "Deny a pending permission",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return resolvePermission(args[0], false) },
}

// resolvePermission finds the job holding permID and records the decision.
func resolvePermission(permID string, approved bool) error {
	mgr := initJobManager()
	jobs, err := mgr.Store().List()
	if err != nil {
		return err
	}
	for _, j := range jobs {
		for _, perm := range j.Permissions {
			if perm.PermID != permID {
				continue
			}
			resolved, err := mgr.Resolve(jobsAdminID, j.ID, permID, approved)
			if err != nil {
				return err
			}
			return printJSON(resolved)
		}
	}
	return eris.Errorf("cmd: no job holds permission %s", permID)
}

func init() {
	jobsCmd.PersistentFlags().Int64Var(&jobsAdminID, "admin", 0, "admin id recorded in the audit trail")
	jobsCreateCmd.Flags().StringVar(&jobsTitle, "title", "", "job title (default prompt prefix)")
	jobsCreateCmd.Flags().StringVar(&jobsPrompt, "prompt", "", "job prompt")
	jobsCreateCmd.Flags().StringVar(&jobsType, "type", string(model.JobTypeGeneral), fmt.Sprintf("%s|%s|%s", model.JobTypeGeneral, model.JobTypeStudy, model.JobTypePipeline))
	jobsCmd.AddCommand(jobsListCmd, jobsShowCmd, jobsCreateCmd, jobsRunCmd, jobsCancelCmd, jobsApproveCmd, jobsDenyCmd)
	rootCmd.AddCommand(jobsCmd)
}
