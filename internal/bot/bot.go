// Package bot exposes the admin command surface over Telegram: job
// creation and control, permission decisions, and two-step-confirmed
// pipeline commands.
package bot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ranklab-media/studio-cli/internal/fsutil"
	"github.com/ranklab-media/studio-cli/internal/job"
	"github.com/ranklab-media/studio-cli/internal/model"
	"github.com/ranklab-media/studio-cli/pkg/telegram"
)

// maxMessageLen keeps replies under the Telegram message size limit.
const maxMessageLen = 3800

// JobRunner executes a job asynchronously; jobworker.Worker implements it.
type JobRunner interface {
	Run(ctx context.Context, jobID string) error
}

// PipelineRunner executes a confirmed pipeline command.
type PipelineRunner interface {
	Run(ctx context.Context, args []string) (string, error)
}

// StatusProvider reports pipeline run state for /pipeline-status.
type StatusProvider func(runSlug string) (string, error)

// Bot routes admin commands.
type Bot struct {
	tg       telegram.Client
	mgr      *job.Manager
	runner   JobRunner
	pipeline PipelineRunner
	status   StatusProvider
	admins   map[int64]bool
	confirms *confirmStore
}

// Option configures a Bot.
type Option func(*Bot)

// WithPipelineRunner wires the confirmed pipeline command executor.
func WithPipelineRunner(p PipelineRunner) Option {
	return func(b *Bot) { b.pipeline = p }
}

// WithStatusProvider wires /pipeline-status.
func WithStatusProvider(s StatusProvider) Option {
	return func(b *Bot) { b.status = s }
}

// WithConfirmStore injects the confirmation store (tests use a fixed clock).
func WithConfirmStore(s *confirmStore) Option {
	return func(b *Bot) { b.confirms = s }
}

// New creates a Bot for the given admin IDs.
func New(tg telegram.Client, mgr *job.Manager, runner JobRunner, adminIDs []int64, opts ...Option) *Bot {
	admins := make(map[int64]bool, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = true
	}
	b := &Bot{
		tg:       tg,
		mgr:      mgr,
		runner:   runner,
		admins:   admins,
		confirms: newConfirmStore(),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Poll runs the long-poll loop until ctx is done.
func (b *Bot) Poll(ctx context.Context) error {
	var offset int64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		updates, err := b.tg.GetUpdates(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			zap.L().Warn("bot: poll failed", zap.Error(err))
			time.Sleep(5 * time.Second)
			continue
		}
		for _, u := range updates {
			offset = u.UpdateID + 1
			if u.Message == nil || u.Message.Text == "" {
				continue
			}
			reply := b.Handle(ctx, u.Message.From.ID, u.Message.Text)
			if reply == "" {
				continue
			}
			if err := b.tg.SendMessage(ctx, u.Message.Chat.ID, Truncate(reply)); err != nil {
				zap.L().Warn("bot: send failed", zap.Error(err))
			}
		}
	}
}

// Truncate caps a reply at the Telegram-safe length.
func Truncate(text string) string {
	if len(text) <= maxMessageLen {
		return text
	}
	return text[:maxMessageLen-3] + "..."
}

// Handle dispatches one incoming command and returns the reply text.
// Non-admin senders get no reply at all.
func (b *Bot) Handle(ctx context.Context, senderID int64, text string) string {
	if !b.admins[senderID] {
		zap.L().Warn("bot: ignoring non-admin sender", zap.Int64("sender_id", senderID))
		return ""
	}

	cmd, args := splitCommand(text)
	switch cmd {
	case "/task":
		return b.cmdTask(ctx, senderID, args)
	case "/status":
		return b.cmdStatus(args)
	case "/logs":
		return b.cmdLogs(args)
	case "/checkpoint":
		return b.cmdCheckpoint(args)
	case "/cancel":
		return b.cmdCancel(senderID, args)
	case "/list":
		return b.cmdList()
	case "/continue":
		return b.cmdContinue(ctx, senderID, args)
	case "/artifacts":
		return b.cmdArtifacts(args)
	case "/get":
		return b.cmdGet(args)
	case "/approve":
		return b.cmdResolve(ctx, senderID, args, true)
	case "/deny":
		return b.cmdResolve(ctx, senderID, args, false)
	case "/pending":
		return b.cmdPending()
	case "/pipeline-status":
		return b.cmdPipelineStatus(args)
	case "/run":
		return b.cmdRun(senderID, args)
	case "/confirm":
		return b.cmdConfirm(ctx, senderID, args)
	case "/help":
		return helpText
	default:
		return "Unknown command. Try /help."
	}
}

const helpText = `Commands:
/task [study|pipeline] <prompt> - create and start a job
/status [job_id] - job status
/logs <job_id> - job log tail
/checkpoint <job_id> - latest checkpoint
/cancel <job_id> - cancel a job
/list - recent jobs
/continue <job_id> <instruction> - add guidance, resume if paused
/artifacts <job_id> - list artifacts
/get <job_id> <name> - fetch an artifact
/approve <perm_id> - approve a permission
/deny <perm_id> - deny a permission
/pending - pending permissions
/pipeline-status [run_slug] - run state
/run <pipeline args> - request a pipeline command (needs /confirm)
/confirm <token> - confirm a pending pipeline command
/help - this text`

func splitCommand(text string) (string, string) {
	text = strings.TrimSpace(text)
	cmd, rest, _ := strings.Cut(text, " ")
	// strip @botname suffixes used in group chats
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i]
	}
	return cmd, strings.TrimSpace(rest)
}

func (b *Bot) cmdTask(ctx context.Context, adminID int64, args string) string {
	jobType := model.JobTypeGeneral
	prompt := args
	if first, rest, ok := strings.Cut(args, " "); ok {
		switch first {
		case "study":
			jobType, prompt = model.JobTypeStudy, rest
		case "pipeline":
			jobType, prompt = model.JobTypePipeline, rest
		}
	}
	if strings.TrimSpace(prompt) == "" {
		return "Usage: /task [study|pipeline] <prompt>"
	}

	title := prompt
	if len(title) > 40 {
		title = title[:40]
	}
	j, err := b.mgr.Create(adminID, title, prompt, jobType)
	if err != nil {
		return "Could not create job: " + err.Error()
	}
	b.startJob(ctx, j.ID)
	return fmt.Sprintf("Job %s created (%s). Track it with /status %s", j.ID, j.JobType, j.ID)
}

// startJob runs the worker in the background; errors land in the job
// record and the logs.
func (b *Bot) startJob(ctx context.Context, jobID string) {
	if b.runner == nil {
		return
	}
	go func() {
		if err := b.runner.Run(ctx, jobID); err != nil {
			zap.L().Warn("bot: job run ended with error",
				zap.String("job_id", jobID),
				zap.Error(err))
		}
	}()
}

func (b *Bot) cmdStatus(args string) string {
	j, err := b.findJob(args)
	if err != nil {
		return err.Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Job %s\n%s\nstatus: %s (%d%%)\ntype: %s\ncreated: %s\n",
		j.ID, j.Title, j.Status, j.ProgressPercent, j.JobType, j.CreatedAt.Format(time.RFC3339))
	if j.Checkpoint != nil {
		fmt.Fprintf(&sb, "checkpoint: %s (iteration %d)\n", j.Checkpoint.Summary, j.Checkpoint.Iteration)
	}
	if j.Error != "" {
		fmt.Fprintf(&sb, "error: %s\n", j.Error)
	}
	for _, p := range j.PendingPermissions() {
		fmt.Fprintf(&sb, "pending permission %s: %s\n", p.PermID, p.Action)
	}
	return sb.String()
}

func (b *Bot) cmdLogs(args string) string {
	j, err := b.findJob(args)
	if err != nil {
		return err.Error()
	}
	logs, err := b.mgr.Store().ReadLog(j.ID, maxMessageLen-100)
	if err != nil {
		return "Could not read logs: " + err.Error()
	}
	if strings.TrimSpace(logs) == "" {
		return "No logs yet."
	}
	return logs
}

func (b *Bot) cmdCheckpoint(args string) string {
	j, err := b.findJob(args)
	if err != nil {
		return err.Error()
	}
	if j.Checkpoint == nil {
		return "No checkpoint yet."
	}
	return fmt.Sprintf("Iteration %d: %s", j.Checkpoint.Iteration, j.Checkpoint.Summary)
}

func (b *Bot) cmdCancel(adminID int64, args string) string {
	j, err := b.findJob(args)
	if err != nil {
		return err.Error()
	}
	if err := b.mgr.Cancel(adminID, j.ID); err != nil {
		return "Could not cancel: " + err.Error()
	}
	return "Job " + j.ID + " canceled."
}

func (b *Bot) cmdList() string {
	jobs, err := b.mgr.Store().List()
	if err != nil {
		return "Could not list jobs: " + err.Error()
	}
	if len(jobs) == 0 {
		return "No jobs."
	}
	if len(jobs) > 10 {
		jobs = jobs[:10]
	}
	var sb strings.Builder
	for _, j := range jobs {
		fmt.Fprintf(&sb, "%s  %-9s  %s\n", j.ID, j.Status, j.Title)
	}
	return sb.String()
}

func (b *Bot) cmdContinue(ctx context.Context, adminID int64, args string) string {
	jobID, instruction, _ := strings.Cut(args, " ")
	if jobID == "" || strings.TrimSpace(instruction) == "" {
		return "Usage: /continue <job_id> <instruction>"
	}
	if err := b.mgr.AddInstruction(adminID, jobID, strings.TrimSpace(instruction)); err != nil {
		return "Could not add instruction: " + err.Error()
	}

	j, err := b.mgr.Store().Load(jobID)
	if err == nil && j.Status == model.JobBlocked && len(j.PendingPermissions()) == 0 {
		b.startJob(ctx, jobID)
		return "Instruction added, resuming job " + jobID + "."
	}
	return "Instruction added."
}

func (b *Bot) cmdArtifacts(args string) string {
	j, err := b.findJob(args)
	if err != nil {
		return err.Error()
	}
	if len(j.Artifacts) == 0 {
		return "No artifacts."
	}
	var sb strings.Builder
	for _, a := range j.Artifacts {
		fmt.Fprintf(&sb, "%s (%s)\n", a.Name, a.MimeType)
	}
	return sb.String()
}

func (b *Bot) cmdGet(args string) string {
	jobID, name, _ := strings.Cut(args, " ")
	if jobID == "" || name == "" {
		return "Usage: /get <job_id> <artifact>"
	}
	j, err := b.findJob(jobID)
	if err != nil {
		return err.Error()
	}
	for _, a := range j.Artifacts {
		if a.Name != name {
			continue
		}
		data, rerr := os.ReadFile(a.Path)
		if rerr != nil {
			return "Could not read artifact: " + rerr.Error()
		}
		return string(data)
	}
	return fmt.Sprintf("No artifact %q on job %s.", name, j.ID)
}

func (b *Bot) cmdResolve(ctx context.Context, adminID int64, args string, approve bool) string {
	permID := strings.TrimSpace(args)
	if permID == "" {
		return "Usage: /approve <perm_id> or /deny <perm_id>"
	}
	j, err := b.findJobByPermission(permID)
	if err != nil {
		return err.Error()
	}
	resolved, err := b.mgr.Resolve(adminID, j.ID, permID, approve)
	if err != nil {
		return "Could not resolve: " + err.Error()
	}
	if approve && resolved.Status == model.JobRunning {
		b.startJob(ctx, j.ID)
		return "Approved, job " + j.ID + " resuming."
	}
	if approve {
		return "Approved."
	}
	return "Denied. The job stays paused; use /continue to resume it with guidance."
}

func (b *Bot) cmdPending() string {
	jobs, err := b.mgr.Store().List()
	if err != nil {
		return "Could not list jobs: " + err.Error()
	}
	var sb strings.Builder
	for _, j := range jobs {
		for _, p := range j.PendingPermissions() {
			fmt.Fprintf(&sb, "%s  job %s  [%s] %s\n", p.PermID, j.ID, p.RiskLevel, p.Action)
		}
	}
	if sb.Len() == 0 {
		return "No pending permissions."
	}
	return sb.String()
}

func (b *Bot) cmdPipelineStatus(args string) string {
	if b.status == nil {
		return "Pipeline status is not wired up."
	}
	out, err := b.status(strings.TrimSpace(args))
	if err != nil {
		return "Could not read pipeline state: " + err.Error()
	}
	return out
}

// cmdRun stages a pipeline command behind a confirmation token. Only
// confirmed commands execute.
func (b *Bot) cmdRun(adminID int64, args string) string {
	if b.pipeline == nil {
		return "Pipeline commands are not wired up."
	}
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return "Usage: /run <pipeline args>"
	}
	token, err := b.confirms.Add(adminID, fields)
	if err != nil {
		return "Could not stage command: " + err.Error()
	}
	return fmt.Sprintf("About to run: pipeline %s\nConfirm within 5 minutes: /confirm %s",
		strings.Join(fields, " "), token)
}

func (b *Bot) cmdConfirm(ctx context.Context, adminID int64, args string) string {
	token := strings.TrimSpace(args)
	if token == "" {
		return "Usage: /confirm <token>"
	}
	fields, err := b.confirms.Take(adminID, token)
	if err != nil {
		return err.Error()
	}
	out, err := b.pipeline.Run(ctx, fields)
	if err != nil {
		return "Pipeline command failed: " + err.Error()
	}
	if out == "" {
		out = "Done."
	}
	return out
}

// findJob resolves a job by ID, or the most recent job when id is empty.
func (b *Bot) findJob(id string) (*model.Job, error) {
	id = strings.TrimSpace(id)
	if id != "" {
		return b.mgr.Store().Load(id)
	}
	jobs, err := b.mgr.Store().List()
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("no jobs yet")
	}
	return jobs[0], nil
}

func (b *Bot) findJobByPermission(permID string) (*model.Job, error) {
	jobs, err := b.mgr.Store().List()
	if err != nil {
		return nil, err
	}
	for _, j := range jobs {
		for _, p := range j.Permissions {
			if p.PermID == permID {
				return j, nil
			}
		}
	}
	return nil, fmt.Errorf("no job holds permission %s", permID)
}

// PipelineStatusFromDir builds a StatusProvider reading run directories
// under root. Empty runSlug lists the known runs.
func PipelineStatusFromDir(root string) StatusProvider {
	return func(runSlug string) (string, error) {
		if runSlug == "" {
			entries, err := os.ReadDir(root)
			if err != nil {
				return "", err
			}
			var slugs []string
			for _, e := range entries {
				if e.IsDir() {
					slugs = append(slugs, e.Name())
				}
			}
			sort.Strings(slugs)
			if len(slugs) == 0 {
				return "No runs.", nil
			}
			return strings.Join(slugs, "\n"), nil
		}

		var state model.PipelineState
		path := filepath.Join(root, runSlug, "pipeline_state.json")
		if err := fsutil.ReadJSON(path, &state); err != nil {
			return "", err
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "%s\nstatus: %s\ntheme: %s\n", state.RunSlug, state.Status, state.Theme)
		if len(state.History) > 0 {
			last := state.History[len(state.History)-1]
			fmt.Fprintf(&sb, "last: %s (%s)\n", last.Reason, last.TS.Format(time.RFC3339))
		}
		return sb.String(), nil
	}
}
