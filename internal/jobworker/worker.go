// Package jobworker drives an admin job to completion: an iterative
// tool-use conversation with the model, sandboxed to the job workspace,
// reloading state from disk between iterations so external cancels and
// permission blocks take effect.
package jobworker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ranklab-media/studio-cli/internal/job"
	"github.com/ranklab-media/studio-cli/internal/model"
	"github.com/ranklab-media/studio-cli/pkg/llm"
)

const (
	DefaultMaxIterations      = 20
	DefaultCheckpointInterval = 5

	// continueAction names the synthetic permission created when the loop
	// runs out of iterations or the model ends its turn without completing.
	continueAction = "Continue past iteration limit"
)

// Notifier delivers a message to the job's admin. Nil disables delivery.
type Notifier func(adminID int64, text string)

// Worker runs queued jobs through the tool loop.
type Worker struct {
	mgr                *job.Manager
	store              *job.Store
	llm                llm.Client
	model              string
	maxIterations      int
	checkpointInterval int
	notify             Notifier
}

// Option configures a Worker.
type Option func(*Worker)

// WithMaxIterations overrides the iteration budget.
func WithMaxIterations(n int) Option {
	return func(w *Worker) { w.maxIterations = n }
}

// WithCheckpointInterval overrides how often generic checkpoints are stamped.
func WithCheckpointInterval(n int) Option {
	return func(w *Worker) { w.checkpointInterval = n }
}

// WithNotifier sets the admin notification hook.
func WithNotifier(n Notifier) Option {
	return func(w *Worker) { w.notify = n }
}

// NewWorker creates a Worker over the given manager and model client.
func NewWorker(mgr *job.Manager, client llm.Client, modelID string, opts ...Option) *Worker {
	w := &Worker{
		mgr:                mgr,
		store:              mgr.Store(),
		llm:                client,
		model:              modelID,
		maxIterations:      DefaultMaxIterations,
		checkpointInterval: DefaultCheckpointInterval,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Run executes one job until it completes, blocks, fails, or is canceled.
// A blocked job with all permissions resolved may be resumed here.
func (w *Worker) Run(ctx context.Context, jobID string) error {
	j, err := w.store.Load(jobID)
	if err != nil {
		return err
	}

	switch j.Status {
	case model.JobQueued:
		if j, err = w.mgr.Start(jobID); err != nil {
			return err
		}
	case model.JobRunning:
		// resume after approval or a worker restart
	case model.JobBlocked:
		if len(j.PendingPermissions()) > 0 {
			return eris.Errorf("jobworker: %s has pending permissions", jobID)
		}
		if err := w.mgr.Transition(j, model.JobRunning, "resumed after permission decision"); err != nil {
			return err
		}
	default:
		return eris.Errorf("jobworker: %s is %s, nothing to run", jobID, j.Status)
	}

	messages := []llm.Message{llm.UserText(j.Prompt)}
	if note := permissionNote(j); note != "" {
		messages = append(messages, llm.UserText(note))
	}
	seenInstructions := 0

	for i := 1; i <= w.maxIterations; i++ {
		// external cancel/block wins between iterations
		if j, err = w.store.Load(jobID); err != nil {
			return err
		}
		if j.Status == model.JobCanceled {
			_ = w.store.AppendLog(jobID, "worker: job canceled externally, exiting")
			return nil
		}
		if j.Status != model.JobRunning {
			return nil
		}

		if len(j.Instructions) > seenInstructions {
			for _, ins := range j.Instructions[seenInstructions:] {
				messages = append(messages, llm.UserText("Additional instruction from the admin: "+ins))
			}
			seenInstructions = len(j.Instructions)
		}

		resp, cerr := w.llm.CreateMessage(ctx, llm.MessageRequest{
			Model:     w.model,
			MaxTokens: 8192,
			System:    w.systemPrompt(j),
			Messages:  messages,
			Tools:     catalog(),
		})
		if cerr != nil {
			if ferr := w.mgr.Fail(j, cerr); ferr != nil {
				return ferr
			}
			w.notifyAdmin(j, fmt.Sprintf("Job %q failed: %s", j.Title, j.Error))
			return eris.Wrap(cerr, "jobworker: model call")
		}
		resp.Usage.LogCost(w.model, "job_worker")

		if text := strings.TrimSpace(resp.TextContent()); text != "" {
			_ = w.store.AppendLog(jobID, "model: "+text)
		}

		toolUses := resp.ToolUses()
		if len(toolUses) == 0 {
			return w.blockForContinue(j, "model ended its turn without calling complete")
		}

		messages = append(messages, llm.AssistantBlocks(resp.Content))
		results := make([]llm.ContentBlock, 0, len(toolUses))
		for _, tu := range toolUses {
			_ = w.store.AppendLog(jobID, "tool: "+tu.ToolName)
			res, isErr, oc, terr := w.execTool(j, i, tu.ToolName, tu.Input)
			if terr != nil {
				if ferr := w.mgr.Fail(j, terr); ferr != nil {
					return ferr
				}
				return terr
			}
			switch oc {
			case outcomeBlocked, outcomeCompleted:
				return nil
			}
			results = append(results, llm.ToolResult(tu.ToolID, res, isErr))
		}
		messages = append(messages, llm.Message{Role: "user", Blocks: results})

		if i%w.checkpointInterval == 0 && (j.Checkpoint == nil || j.Checkpoint.Iteration < i) {
			j.Checkpoint = &model.Checkpoint{
				Summary:   fmt.Sprintf("iteration %d of %d", i, w.maxIterations),
				Iteration: i,
				UpdatedAt: time.Now().UTC(),
			}
			if err := w.store.Save(j); err != nil {
				return err
			}
		}
	}

	if j, err = w.store.Load(jobID); err != nil {
		return err
	}
	if j.Status != model.JobRunning {
		return nil
	}
	return w.blockForContinue(j, "iteration limit reached")
}

// blockForContinue parks the job behind a synthetic continue permission.
func (w *Worker) blockForContinue(j *model.Job, reason string) error {
	perm, err := w.mgr.RequestPermission(j, continueAction, reason, model.RiskLow, "")
	if err != nil {
		return err
	}
	w.notifyAdmin(j, fmt.Sprintf("Job %q paused (%s). Approve with /approve %s to continue.",
		j.Title, reason, perm.PermID))
	zap.L().Info("jobworker: blocked for continue",
		zap.String("job_id", j.ID),
		zap.String("reason", reason))
	return nil
}

func (w *Worker) notifyAdmin(j *model.Job, text string) {
	if w.notify != nil {
		w.notify(j.AdminID, text)
	}
}

// permissionNote summarizes resolved permission decisions so a resumed
// worker knows what was approved or denied.
func permissionNote(j *model.Job) string {
	var lines []string
	for _, p := range j.Permissions {
		if p.Pending() {
			continue
		}
		verdict := "DENIED - choose the safe alternative or finish without it"
		if *p.Approved {
			verdict = "APPROVED"
		}
		lines = append(lines, fmt.Sprintf("Permission %q: %s", p.Action, verdict))
	}
	if len(lines) == 0 {
		return ""
	}
	return "Admin decisions on your earlier permission requests:\n" + strings.Join(lines, "\n")
}

// systemPrompt builds the per-type instructions for the tool loop.
func (w *Worker) systemPrompt(j *model.Job) string {
	var b strings.Builder
	b.WriteString("You are an autonomous assistant working inside an isolated job workspace. ")
	b.WriteString("Use only the provided tools; all file paths are relative to the workspace. ")
	b.WriteString("Record progress with update_checkpoint, ask via request_permission before anything risky, ")
	b.WriteString("and call complete when done.\n")

	switch j.JobType {
	case model.JobTypeStudy:
		b.WriteString("\nThis is a research job. Maintain plan.md (your approach), sources.json via add_source, ")
		b.WriteString("notes.md (working notes), and write your findings to output.md before completing.\n")
	case model.JobTypePipeline:
		b.WriteString("\nThis job supports the video production pipeline. Keep outputs machine-readable ")
		b.WriteString("where the prompt asks for JSON, and write the final deliverable to output.md.\n")
	}

	if len(j.Instructions) > 0 {
		b.WriteString("\nStanding instructions from the admin:\n")
		for _, ins := range j.Instructions {
			b.WriteString("- " + ins + "\n")
		}
	}
	return b.String()
}
