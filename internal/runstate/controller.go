// Package runstate owns the two-gate run lifecycle: pipeline_state.json
// persistence, gate decisions, and the finalize phase that shells out to
// the external render and upload runners.
package runstate

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ranklab-media/studio-cli/internal/fsutil"
	"github.com/ranklab-media/studio-cli/internal/model"
	"github.com/ranklab-media/studio-cli/pkg/supamirror"
)

const (
	StateFile = "pipeline_state.json"

	renderTimeout = time.Hour
	uploadTimeout = 30 * time.Minute

	finalizeAttempts = 3
	finalizeBackoff  = 10 * time.Second
)

// ErrRequiresApproval is returned by Finalize when either gate is not yet
// approved.
var ErrRequiresApproval = eris.New("runstate: finalize requires both gates approved")

// Runner executes an external command, preserving its output in logPath.
type Runner interface {
	Run(ctx context.Context, logPath string, name string, args ...string) error
}

// ExecRunner runs commands via os/exec.
type ExecRunner struct{}

// Run executes the command and appends combined output to logPath.
func (ExecRunner) Run(ctx context.Context, logPath string, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)

	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return eris.Wrap(err, "runstate: log dir")
	}
	logFile, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return eris.Wrap(err, "runstate: open log")
	}
	defer logFile.Close() //nolint:errcheck

	cmd.Stdout = logFile
	cmd.Stderr = logFile
	if err := cmd.Run(); err != nil {
		return eris.Wrapf(err, "runstate: %s", name)
	}
	return nil
}

// Mirror pushes run state to the dashboard store. Best effort only.
type Mirror interface {
	UpsertRunState(ctx context.Context, row supamirror.RunStateRow) error
}

// Controller advances one run through the gated lifecycle.
type Controller struct {
	runDir string
	state  *model.PipelineState

	runner Runner
	mirror Mirror
	sleep  func(time.Duration)

	renderCmd []string
	uploadCmd []string
}

// Option configures a Controller.
type Option func(*Controller)

// WithRunner overrides the external command runner.
func WithRunner(r Runner) Option {
	return func(c *Controller) { c.runner = r }
}

// WithMirror enables dashboard mirroring.
func WithMirror(m Mirror) Option {
	return func(c *Controller) { c.mirror = m }
}

// WithCommands sets the render and upload command lines.
func WithCommands(render, upload []string) Option {
	return func(c *Controller) {
		c.renderCmd = render
		c.uploadCmd = upload
	}
}

// WithSleep injects the backoff sleep for tests.
func WithSleep(sleep func(time.Duration)) Option {
	return func(c *Controller) { c.sleep = sleep }
}

// New creates a Controller for a fresh run and persists the initial state.
func New(runDir, runSlug, theme, category string, opts ...Option) (*Controller, error) {
	c := newController(runDir, opts...)
	c.state = &model.PipelineState{
		RunSlug:   runSlug,
		Theme:     theme,
		Category:  category,
		Artifacts: map[string]string{},
	}
	c.state.Transition(model.StatusDraftWaitingGate1, "run created")
	if err := c.save(context.Background()); err != nil {
		return nil, err
	}
	return c, nil
}

// Load opens an existing run.
func Load(runDir string, opts ...Option) (*Controller, error) {
	c := newController(runDir, opts...)
	var state model.PipelineState
	if err := fsutil.ReadJSON(filepath.Join(runDir, StateFile), &state); err != nil {
		return nil, eris.Wrap(err, "runstate: load state")
	}
	c.state = &state
	return c, nil
}

func newController(runDir string, opts ...Option) *Controller {
	c := &Controller{
		runDir:    runDir,
		runner:    ExecRunner{},
		sleep:     time.Sleep,
		renderCmd: []string{"studio-render"},
		uploadCmd: []string{"studio-upload"},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// State returns a copy of the persisted state.
func (c *Controller) State() model.PipelineState { return *c.state }

// RegisterArtifact records a named artifact path on the run.
func (c *Controller) RegisterArtifact(ctx context.Context, name, path string) error {
	if c.state.Artifacts == nil {
		c.state.Artifacts = map[string]string{}
	}
	c.state.Artifacts[name] = path
	return c.save(ctx)
}

// ApproveGate1 records approval of the script draft and advances the run
// to the asset-package gate.
func (c *Controller) ApproveGate1(ctx context.Context, reviewer, notes string) error {
	if c.state.Status != model.StatusDraftWaitingGate1 {
		return eris.Errorf("runstate: gate1 decision on status %s", c.state.Status)
	}
	c.state.Gate1 = decision(true, reviewer, notes)
	c.state.Transition(model.StatusAssetsWaitingGate2, "gate1 approved")
	return c.save(ctx)
}

// RejectGate1 records rejection; the run stays at gate1 for regeneration.
func (c *Controller) RejectGate1(ctx context.Context, reviewer, notes string) error {
	if c.state.Status != model.StatusDraftWaitingGate1 {
		return eris.Errorf("runstate: gate1 decision on status %s", c.state.Status)
	}
	c.state.Gate1 = decision(false, reviewer, notes)
	c.state.Transition(model.StatusDraftWaitingGate1, "gate1 rejected: "+notes)
	return c.save(ctx)
}

// ApproveGate2 records approval of the asset package. The status advances
// only when finalize starts rendering.
func (c *Controller) ApproveGate2(ctx context.Context, reviewer, notes string) error {
	if c.state.Status != model.StatusAssetsWaitingGate2 {
		return eris.Errorf("runstate: gate2 decision on status %s", c.state.Status)
	}
	c.state.Gate2 = decision(true, reviewer, notes)
	c.state.Transition(model.StatusAssetsWaitingGate2, "gate2 approved")
	return c.save(ctx)
}

// RejectGate2 records rejection; the run stays at gate2 for rework.
func (c *Controller) RejectGate2(ctx context.Context, reviewer, notes string) error {
	if c.state.Status != model.StatusAssetsWaitingGate2 {
		return eris.Errorf("runstate: gate2 decision on status %s", c.state.Status)
	}
	c.state.Gate2 = decision(false, reviewer, notes)
	c.state.Transition(model.StatusAssetsWaitingGate2, "gate2 rejected: "+notes)
	return c.save(ctx)
}

// Finalize renders and uploads through the external runners. Both gates
// must be approved first. Either step failing moves the run to failed with
// its logs preserved under logs/.
func (c *Controller) Finalize(ctx context.Context) error {
	if !c.state.Gate1.Approved || !c.state.Gate2.Approved {
		return ErrRequiresApproval
	}

	c.state.Transition(model.StatusRendering, "finalize started")
	if err := c.save(ctx); err != nil {
		return err
	}
	if err := c.runStep(ctx, "render", c.renderCmd, renderTimeout); err != nil {
		return c.fail(ctx, "render failed: "+err.Error(), err)
	}

	c.state.Transition(model.StatusUploading, "render finished")
	if err := c.save(ctx); err != nil {
		return err
	}
	if err := c.runStep(ctx, "upload", c.uploadCmd, uploadTimeout); err != nil {
		return c.fail(ctx, "upload failed: "+err.Error(), err)
	}

	c.state.Transition(model.StatusPublished, "upload finished")
	return c.save(ctx)
}

// runStep executes one external command under the retry policy.
func (c *Controller) runStep(ctx context.Context, step string, cmd []string, timeout time.Duration) error {
	if len(cmd) == 0 {
		return eris.Errorf("runstate: no %s command configured", step)
	}
	logPath := filepath.Join(c.runDir, "logs", step+".log")

	var err error
	for attempt := 0; attempt < finalizeAttempts; attempt++ {
		if attempt > 0 {
			c.sleep(finalizeBackoff)
			zap.L().Warn("runstate: retrying finalize step",
				zap.String("run_slug", c.state.RunSlug),
				zap.String("step", step),
				zap.Int("attempt", attempt+1),
			)
		}
		stepCtx, cancel := context.WithTimeout(ctx, timeout)
		err = c.runner.Run(stepCtx, logPath, cmd[0], cmd[1:]...)
		cancel()
		if err == nil {
			return nil
		}
	}
	return err
}

func (c *Controller) fail(ctx context.Context, reason string, cause error) error {
	c.state.Transition(model.StatusFailed, reason)
	if err := c.save(ctx); err != nil {
		return err
	}
	return eris.Wrap(cause, "runstate: finalize")
}

// save persists pipeline_state.json atomically and mirrors best-effort.
func (c *Controller) save(ctx context.Context) error {
	if err := fsutil.WriteJSONAtomic(filepath.Join(c.runDir, StateFile), c.state); err != nil {
		return err
	}
	if c.mirror != nil {
		row := supamirror.RunStateRow{
			RunSlug:   c.state.RunSlug,
			Theme:     c.state.Theme,
			Category:  c.state.Category,
			Status:    string(c.state.Status),
			UpdatedAt: time.Now().UTC().Format(time.RFC3339),
		}
		if len(c.state.History) > 0 {
			row.Stage = c.state.History[len(c.state.History)-1].Reason
		}
		if err := c.mirror.UpsertRunState(ctx, row); err != nil {
			zap.L().Warn("runstate: mirror upsert failed",
				zap.String("run_slug", c.state.RunSlug),
				zap.Error(err),
			)
		}
	}
	return nil
}

func decision(approved bool, reviewer, notes string) model.GateDecision {
	return model.GateDecision{
		Approved:   approved,
		Rejected:   !approved,
		Reviewer:   reviewer,
		Notes:      notes,
		DecisionAt: time.Now().UTC(),
	}
}
