package orchestrator

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/ranklab-media/studio-cli/internal/fsutil"
	"github.com/ranklab-media/studio-cli/internal/model"
)

// AllowedResearchDomains is the host allowlist for pipeline research
// sources. The research module knows more outlets; pipeline runs are
// restricted to these.
var AllowedResearchDomains = []string{"nytimes.com", "rtings.com", "pcmag.com"}

const minShortlistEntries = 8

// Gatekeeper validates stage outputs. A failed check aborts the run.
type Gatekeeper struct{}

// NewGatekeeper creates a Gatekeeper.
func NewGatekeeper() *Gatekeeper { return &Gatekeeper{} }

// Name implements the agent naming convention for bus messages.
func (g *Gatekeeper) Name() string { return "qa_gatekeeper" }

// Check validates the invariants of a just-finished stage.
func (g *Gatekeeper) Check(stage string, rc *model.RunContext) error {
	var err error
	switch stage {
	case StageNiche:
		err = g.checkNiche(rc)
	case StageResearch:
		err = g.checkResearch(rc)
	case StageVerify:
		err = g.checkVerify(rc)
	case StageRank:
		err = g.checkRank(rc)
	case StageManifest:
		err = g.checkManifest(rc)
	}

	msgType := model.MsgGatePass
	content := "ok"
	if err != nil {
		msgType = model.MsgGateFail
		content = err.Error()
	}
	rc.Bus.Publish(model.Message{
		Sender:   g.Name(),
		Receiver: model.Broadcast,
		Type:     msgType,
		Stage:    stage,
		Content:  content,
	})
	return err
}

func (g *Gatekeeper) checkNiche(rc *model.RunContext) error {
	if rc.Niche == "" {
		return eris.New("qa: niche not set on run context")
	}
	if _, err := os.Stat(filepath.Join(rc.InputsDir, "niche.txt")); err != nil {
		return eris.New("qa: niche.txt missing")
	}
	return nil
}

func (g *Gatekeeper) checkResearch(rc *model.RunContext) error {
	var shortlist []model.ProductCandidate
	path := filepath.Join(rc.InputsDir, "shortlist.json")
	if err := fsutil.ReadJSON(path, &shortlist); err != nil {
		return eris.Wrap(err, "qa: shortlist.json")
	}
	if len(shortlist) < minShortlistEntries {
		return eris.Errorf("qa: shortlist has %d entries, need %d", len(shortlist), minShortlistEntries)
	}
	for _, c := range shortlist {
		for _, src := range c.Sources {
			if !domainAllowed(src.URL) {
				return eris.Errorf("qa: source %s outside allowed research domains", src.URL)
			}
		}
	}
	return nil
}

func (g *Gatekeeper) checkVerify(rc *model.RunContext) error {
	var verified []model.VerifiedProduct
	if err := fsutil.ReadJSON(filepath.Join(rc.InputsDir, "verified.json"), &verified); err != nil {
		return eris.Wrap(err, "qa: verified.json")
	}
	resolved := 0
	for _, v := range verified {
		if v.Error == "" && v.ASIN != "" {
			resolved++
		}
	}
	if resolved < 5 {
		return eris.Errorf("qa: only %d products verified, need 5", resolved)
	}
	return nil
}

func (g *Gatekeeper) checkRank(rc *model.RunContext) error {
	var top []model.TopProduct
	if err := fsutil.ReadJSON(filepath.Join(rc.InputsDir, "products.json"), &top); err != nil {
		return eris.Wrap(err, "qa: products.json")
	}
	if len(top) != 5 {
		return eris.Errorf("qa: products.json has %d entries, need exactly 5", len(top))
	}
	for _, p := range top {
		if p.AffiliateURL == "" {
			return eris.Errorf("qa: rank %d (%s) missing affiliate URL", p.Rank, p.ProductName)
		}
	}
	return nil
}

func (g *Gatekeeper) checkManifest(rc *model.RunContext) error {
	for _, name := range []string{"edit_manifest.json", "markers.csv", "notes.md"} {
		if _, err := os.Stat(filepath.Join(rc.ResolveDir, name)); err != nil {
			return eris.Errorf("qa: resolve package missing %s", name)
		}
	}
	return nil
}

// domainAllowed reports whether a source URL's host is on the allowlist,
// including subdomains.
func domainAllowed(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(strings.TrimPrefix(u.Host, "www."))
	for _, d := range AllowedResearchDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
