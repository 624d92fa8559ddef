package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"go.uber.org/zap"

	"github.com/ranklab-media/studio-cli/internal/fsutil"
	"github.com/ranklab-media/studio-cli/internal/model"
)

var productMarkerRe = regexp.MustCompile(`(?m)^\[PRODUCT_[1-5]\]`)

// Reviewer emits editorial warnings on the bus. It never aborts a run.
type Reviewer struct{}

// NewReviewer creates a Reviewer.
func NewReviewer() *Reviewer { return &Reviewer{} }

// Name implements the agent naming convention for bus messages.
func (r *Reviewer) Name() string { return "reviewer_agent" }

// Review inspects the outputs of a finished stage and publishes warnings.
func (r *Reviewer) Review(stage string, rc *model.RunContext) {
	switch stage {
	case StageRank:
		r.reviewRank(rc)
	case StageScript:
		r.reviewScript(rc)
	}
}

func (r *Reviewer) reviewRank(rc *model.RunContext) {
	var top []model.TopProduct
	if err := fsutil.ReadJSON(filepath.Join(rc.InputsDir, "products.json"), &top); err != nil {
		return
	}
	counts := map[string]int{}
	for _, p := range top {
		if p.Brand != "" {
			counts[p.Brand]++
		}
	}
	for brand, n := range counts {
		if n >= 3 && len(top) >= 5 {
			r.warn(rc, StageRank, fmt.Sprintf("brand %s holds %d of %d slots", brand, n, len(top)))
		}
	}
}

func (r *Reviewer) reviewScript(rc *model.RunContext) {
	data, err := os.ReadFile(filepath.Join(rc.ScriptDir, "script.txt"))
	if err != nil {
		return
	}
	if n := len(productMarkerRe.FindAllString(string(data), -1)); n != 5 {
		r.warn(rc, StageScript, fmt.Sprintf("script has %d product sections, expected 5", n))
	}
}

func (r *Reviewer) warn(rc *model.RunContext, stage, content string) {
	rc.Bus.Publish(model.Message{
		Sender:   r.Name(),
		Receiver: model.Broadcast,
		Type:     model.MsgReview,
		Stage:    stage,
		Content:  content,
	})
	zap.L().Warn("reviewer: "+content,
		zap.String("run_slug", rc.RunSlug),
		zap.String("stage", stage),
	)
}
