package orchestrator

import (
	"os"
	"path/filepath"
	"regexp"

	"github.com/rotisserie/eris"

	"github.com/ranklab-media/studio-cli/internal/fsutil"
	"github.com/ranklab-media/studio-cli/internal/model"
)

var urlRe = regexp.MustCompile(`https?://[^\s)\]">]+`)

// SecurityAgent independently audits research outputs for unauthorized
// domains. Any violation aborts the run; it does not trust the QA gate to
// have caught everything.
type SecurityAgent struct{}

// NewSecurityAgent creates a SecurityAgent.
func NewSecurityAgent() *SecurityAgent { return &SecurityAgent{} }

// Name implements the agent naming convention for bus messages.
func (s *SecurityAgent) Name() string { return "security_agent" }

// Audit scans the shortlist and the research notes for URLs outside the
// allowed research domains.
func (s *SecurityAgent) Audit(rc *model.RunContext) error {
	var shortlist []model.ProductCandidate
	if err := fsutil.ReadJSON(filepath.Join(rc.InputsDir, "shortlist.json"), &shortlist); err != nil {
		return eris.Wrap(err, "security: shortlist.json")
	}
	for _, c := range shortlist {
		for _, src := range c.Sources {
			if !domainAllowed(src.URL) {
				return eris.Errorf("security: unauthorized domain in shortlist: %s", src.URL)
			}
		}
	}

	notesPath := filepath.Join(rc.InputsDir, "research_notes.md")
	data, err := os.ReadFile(notesPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return eris.Wrap(err, "security: research_notes.md")
	}
	for _, raw := range urlRe.FindAllString(string(data), -1) {
		if !domainAllowed(raw) {
			return eris.Errorf("security: unauthorized domain in research notes: %s", raw)
		}
	}
	return nil
}
