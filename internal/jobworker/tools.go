package jobworker

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ranklab-media/studio-cli/internal/fsutil"
	"github.com/ranklab-media/studio-cli/internal/model"
	"github.com/ranklab-media/studio-cli/pkg/llm"
)

// maxReadChars caps read_file output fed back into the conversation.
const maxReadChars = 10000

// outcome tells the loop what a tool execution did to the job.
type outcome int

const (
	outcomeContinue outcome = iota
	outcomeBlocked
	outcomeCompleted
)

// catalog is the closed tool set exposed to the model. Nothing outside
// this list is callable.
func catalog() []llm.Tool {
	return []llm.Tool{
		{
			Name:        "write_file",
			Description: "Write a file inside the job workspace. Overwrites existing content.",
			Properties: map[string]any{
				"filename": map[string]any{"type": "string", "description": "Path relative to the workspace"},
				"content":  map[string]any{"type": "string"},
			},
			Required: []string{"filename", "content"},
		},
		{
			Name:        "read_file",
			Description: "Read a file from the job workspace. Output is truncated to 10000 characters.",
			Properties: map[string]any{
				"filename": map[string]any{"type": "string"},
			},
			Required: []string{"filename"},
		},
		{
			Name:        "list_files",
			Description: "List workspace files. Directories are prefixed with [DIR].",
			Properties: map[string]any{
				"path": map[string]any{"type": "string", "description": "Subdirectory to list, defaults to the workspace root"},
			},
		},
		{
			Name:        "add_source",
			Description: "Record a research source in sources.json.",
			Properties: map[string]any{
				"url":         map[string]any{"type": "string"},
				"title":       map[string]any{"type": "string"},
				"notes":       map[string]any{"type": "string"},
				"reliability": map[string]any{"type": "string", "enum": []string{"high", "medium", "low"}},
			},
			Required: []string{"url"},
		},
		{
			Name:        "update_checkpoint",
			Description: "Record a progress summary and optionally update progress percent.",
			Properties: map[string]any{
				"summary":          map[string]any{"type": "string"},
				"progress_percent": map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
			},
			Required: []string{"summary"},
		},
		{
			Name:        "request_permission",
			Description: "Pause the job and ask the admin to approve a risky action before doing it.",
			Properties: map[string]any{
				"action":           map[string]any{"type": "string"},
				"reason":           map[string]any{"type": "string"},
				"risk_level":       map[string]any{"type": "string", "enum": []string{"low", "medium", "high"}},
				"safe_alternative": map[string]any{"type": "string"},
			},
			Required: []string{"action", "reason", "risk_level"},
		},
		{
			Name:        "complete",
			Description: "Mark the job finished. Call once all work is done and outputs are written.",
			Properties: map[string]any{
				"summary": map[string]any{"type": "string"},
			},
			Required: []string{"summary"},
		},
	}
}

// resolvePath maps a tool-supplied relative path into the workspace.
// Names containing ".." and anything escaping the workspace are rejected.
func resolvePath(workspace, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("empty path")
	}
	if strings.Contains(name, "..") {
		return "", fmt.Errorf("path traversal in %q", name)
	}
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("path %q escapes the workspace", name)
	}
	wsAbs, err := filepath.Abs(workspace)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(filepath.Join(wsAbs, name))
	if err != nil {
		return "", err
	}
	if abs != wsAbs && !strings.HasPrefix(abs, wsAbs+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the workspace", name)
	}
	return abs, nil
}

// Source is one row of the workspace sources.json.
type Source struct {
	URL         string    `json:"url"`
	Title       string    `json:"title,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	Reliability string    `json:"reliability,omitempty"`
	AddedAt     time.Time `json:"added_at"`
}

// execTool runs one tool_use block. Failures come back as error strings in
// the tool result, never as Go errors; only job persistence problems
// propagate.
func (w *Worker) execTool(j *model.Job, iteration int, name string, input json.RawMessage) (result string, isError bool, oc outcome, err error) {
	workspace := w.store.Workspace(j.ID)

	switch name {
	case "write_file":
		var args struct {
			Filename string `json:"filename"`
			Content  string `json:"content"`
		}
		if err := json.Unmarshal(input, &args); err != nil {
			return "error: invalid input: " + err.Error(), true, outcomeContinue, nil
		}
		path, perr := resolvePath(workspace, args.Filename)
		if perr != nil {
			return "error: " + perr.Error(), true, outcomeContinue, nil
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "error: " + err.Error(), true, outcomeContinue, nil
		}
		if err := fsutil.WriteFileAtomic(path, []byte(args.Content), 0o644); err != nil {
			return "error: " + err.Error(), true, outcomeContinue, nil
		}
		return fmt.Sprintf("wrote %d bytes to %s", len(args.Content), args.Filename), false, outcomeContinue, nil

	case "read_file":
		var args struct {
			Filename string `json:"filename"`
		}
		if err := json.Unmarshal(input, &args); err != nil {
			return "error: invalid input: " + err.Error(), true, outcomeContinue, nil
		}
		path, perr := resolvePath(workspace, args.Filename)
		if perr != nil {
			return "error: " + perr.Error(), true, outcomeContinue, nil
		}
		data, rerr := os.ReadFile(path)
		if rerr != nil {
			return "error: " + rerr.Error(), true, outcomeContinue, nil
		}
		text := string(data)
		if len(text) > maxReadChars {
			text = text[:maxReadChars] + "\n[truncated]"
		}
		return text, false, outcomeContinue, nil

	case "list_files":
		var args struct {
			Path string `json:"path"`
		}
		if len(input) > 0 {
			if err := json.Unmarshal(input, &args); err != nil {
				return "error: invalid input: " + err.Error(), true, outcomeContinue, nil
			}
		}
		dir := args.Path
		if dir == "" {
			dir = "."
		}
		path, perr := resolvePath(workspace, dir)
		if perr != nil {
			return "error: " + perr.Error(), true, outcomeContinue, nil
		}
		entries, rerr := os.ReadDir(path)
		if rerr != nil {
			return "error: " + rerr.Error(), true, outcomeContinue, nil
		}
		var lines []string
		for _, e := range entries {
			if e.IsDir() {
				lines = append(lines, "[DIR] "+e.Name())
			} else {
				lines = append(lines, e.Name())
			}
		}
		sort.Strings(lines)
		if len(lines) == 0 {
			return "(empty)", false, outcomeContinue, nil
		}
		return strings.Join(lines, "\n"), false, outcomeContinue, nil

	case "add_source":
		var args struct {
			URL         string `json:"url"`
			Title       string `json:"title"`
			Notes       string `json:"notes"`
			Reliability string `json:"reliability"`
		}
		if err := json.Unmarshal(input, &args); err != nil {
			return "error: invalid input: " + err.Error(), true, outcomeContinue, nil
		}
		if args.URL == "" {
			return "error: url is required", true, outcomeContinue, nil
		}
		path := filepath.Join(workspace, "sources.json")
		var sources []Source
		if _, serr := os.Stat(path); serr == nil {
			if err := fsutil.ReadJSON(path, &sources); err != nil {
				return "error: " + err.Error(), true, outcomeContinue, nil
			}
		}
		sources = append(sources, Source{
			URL:         args.URL,
			Title:       args.Title,
			Notes:       args.Notes,
			Reliability: args.Reliability,
			AddedAt:     time.Now().UTC(),
		})
		if err := fsutil.WriteJSONAtomic(path, sources); err != nil {
			return "error: " + err.Error(), true, outcomeContinue, nil
		}
		return fmt.Sprintf("source recorded (%d total)", len(sources)), false, outcomeContinue, nil

	case "update_checkpoint":
		var args struct {
			Summary         string `json:"summary"`
			ProgressPercent *int   `json:"progress_percent"`
		}
		if err := json.Unmarshal(input, &args); err != nil {
			return "error: invalid input: " + err.Error(), true, outcomeContinue, nil
		}
		j.Checkpoint = &model.Checkpoint{
			Summary:   args.Summary,
			Iteration: iteration,
			UpdatedAt: time.Now().UTC(),
		}
		if args.ProgressPercent != nil && *args.ProgressPercent >= 0 && *args.ProgressPercent <= 100 {
			j.ProgressPercent = *args.ProgressPercent
		}
		if err := w.store.Save(j); err != nil {
			return "", false, outcomeContinue, err
		}
		return "checkpoint recorded", false, outcomeContinue, nil

	case "request_permission":
		var args struct {
			Action          string `json:"action"`
			Reason          string `json:"reason"`
			RiskLevel       string `json:"risk_level"`
			SafeAlternative string `json:"safe_alternative"`
		}
		if err := json.Unmarshal(input, &args); err != nil {
			return "error: invalid input: " + err.Error(), true, outcomeContinue, nil
		}
		risk := model.RiskLevel(args.RiskLevel)
		if risk != model.RiskLow && risk != model.RiskMedium && risk != model.RiskHigh {
			risk = model.RiskMedium
		}
		perm, rerr := w.mgr.RequestPermission(j, args.Action, args.Reason, risk, args.SafeAlternative)
		if rerr != nil {
			return "", false, outcomeContinue, rerr
		}
		w.notifyAdmin(j, fmt.Sprintf("Job %q needs permission (%s risk): %s\nReason: %s\nApprove with /approve %s",
			j.Title, perm.RiskLevel, perm.Action, perm.Reason, perm.PermID))
		return "", false, outcomeBlocked, nil

	case "complete":
		var args struct {
			Summary string `json:"summary"`
		}
		if err := json.Unmarshal(input, &args); err != nil {
			return "error: invalid input: " + err.Error(), true, outcomeContinue, nil
		}
		outputPath := filepath.Join(workspace, "output.md")
		if _, serr := os.Stat(outputPath); serr == nil {
			j.Artifacts = append(j.Artifacts, model.Artifact{
				Name:      "output.md",
				Path:      outputPath,
				MimeType:  "text/markdown",
				CreatedAt: time.Now().UTC(),
			})
		}
		j.ProgressPercent = 100
		if err := w.mgr.Transition(j, model.JobCompleted, args.Summary); err != nil {
			return "", false, outcomeContinue, err
		}
		w.notifyAdmin(j, fmt.Sprintf("Job %q completed: %s", j.Title, args.Summary))
		return "", false, outcomeCompleted, nil

	default:
		return "error: unknown tool " + name, true, outcomeContinue, nil
	}
}
