// Package orchestrator sequences a single video run through its fixed
// stages, with a QA gatekeeper after every stage, an independent security
// audit of research sources, and a reviewer that warns without aborting.
package orchestrator

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ranklab-media/studio-cli/internal/model"
)

// Stage names, in execution order.
const (
	StageNiche    = "niche"
	StageResearch = "research"
	StageVerify   = "verify"
	StageRank     = "rank"
	StageScript   = "script"
	StageAssets   = "assets"
	StageTTS      = "tts"
	StageManifest = "manifest"
)

// StageOrder is the fixed stage sequence of a run.
var StageOrder = []string{
	StageNiche, StageResearch, StageVerify, StageRank,
	StageScript, StageAssets, StageTTS, StageManifest,
}

// Agent executes one stage of a run.
type Agent interface {
	Name() string
	Run(ctx context.Context, rc *model.RunContext) error
}

// Orchestrator drives agents through the stage sequence.
type Orchestrator struct {
	agents   map[string]Agent
	qa       *Gatekeeper
	security *SecurityAgent
	reviewer *Reviewer
}

// New creates an Orchestrator. agents maps stage name to the agent that
// runs it; every stage in StageOrder must be covered.
func New(agents map[string]Agent) *Orchestrator {
	return &Orchestrator{
		agents:   agents,
		qa:       NewGatekeeper(),
		security: NewSecurityAgent(),
		reviewer: NewReviewer(),
	}
}

// Run executes all stages in order. The first agent error, QA gate
// failure, or security violation aborts the run.
func (o *Orchestrator) Run(ctx context.Context, rc *model.RunContext) error {
	for _, stage := range StageOrder {
		if _, ok := o.agents[stage]; !ok {
			return eris.Errorf("orchestrator: no agent for stage %s", stage)
		}
	}

	for _, stage := range StageOrder {
		if rc.Aborted {
			break
		}
		agent := o.agents[stage]
		zap.L().Info("orchestrator: stage start",
			zap.String("run_slug", rc.RunSlug),
			zap.String("stage", stage),
			zap.String("agent", agent.Name()),
		)

		if err := agent.Run(ctx, rc); err != nil {
			rc.RecordError(stage, err)
			rc.Aborted = true
			rc.Bus.Publish(model.Message{
				Sender:   agent.Name(),
				Receiver: model.Broadcast,
				Type:     model.MsgError,
				Stage:    stage,
				Content:  err.Error(),
			})
			return eris.Wrapf(err, "orchestrator: stage %s", stage)
		}

		if err := o.qa.Check(stage, rc); err != nil {
			rc.RecordError(stage, err)
			rc.Aborted = true
			return eris.Wrapf(err, "orchestrator: qa gate %s", stage)
		}

		if stage == StageResearch {
			if err := o.security.Audit(rc); err != nil {
				rc.RecordError(stage, err)
				rc.Aborted = true
				rc.Bus.Publish(model.Message{
					Sender:   o.security.Name(),
					Receiver: model.Broadcast,
					Type:     model.MsgError,
					Stage:    stage,
					Content:  err.Error(),
				})
				return eris.Wrap(err, "orchestrator: security audit")
			}
		}

		o.reviewer.Review(stage, rc)
		rc.MarkCompleted(stage)
	}
	return nil
}
