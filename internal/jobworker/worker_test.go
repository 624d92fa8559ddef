package jobworker

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ranklab-media/studio-cli/internal/fsutil"
	"github.com/ranklab-media/studio-cli/internal/job"
	"github.com/ranklab-media/studio-cli/internal/model"
	"github.com/ranklab-media/studio-cli/pkg/llm"
)

// llmFunc lets a test script each model response.
type llmFunc func(ctx context.Context, req llm.MessageRequest) (*llm.MessageResponse, error)

func (f llmFunc) CreateMessage(ctx context.Context, req llm.MessageRequest) (*llm.MessageResponse, error) {
	return f(ctx, req)
}

func scripted(responses ...*llm.MessageResponse) (llm.Client, *[]llm.MessageRequest) {
	var requests []llm.MessageRequest
	f := llmFunc(func(_ context.Context, req llm.MessageRequest) (*llm.MessageResponse, error) {
		requests = append(requests, req)
		if len(requests) > len(responses) {
			return nil, eris.New("scripted llm exhausted")
		}
		return responses[len(requests)-1], nil
	})
	return f, &requests
}

func toolUse(id, name string, input map[string]any) llm.ContentBlock {
	raw, err := json.Marshal(input)
	if err != nil {
		panic(err)
	}
	return llm.ContentBlock{Type: "tool_use", ToolID: id, ToolName: name, Input: raw}
}

func toolResp(blocks ...llm.ContentBlock) *llm.MessageResponse {
	return &llm.MessageResponse{Content: blocks, StopReason: "tool_use"}
}

func textResp(text string) *llm.MessageResponse {
	return &llm.MessageResponse{
		Content:    []llm.ContentBlock{{Type: "text", Text: text}},
		StopReason: "end_turn",
	}
}

func newJob(t *testing.T, jobType model.JobType) (*job.Manager, *model.Job) {
	t.Helper()
	mgr := job.NewManager(job.NewStore(t.TempDir()))
	j, err := mgr.Create(42, "test job", "do the thing", jobType)
	require.NoError(t, err)
	return mgr, j
}

func TestRun_CompleteFlow(t *testing.T) {
	mgr, j := newJob(t, model.JobTypeGeneral)
	client, requests := scripted(
		toolResp(toolUse("t1", "write_file", map[string]any{
			"filename": "output.md",
			"content":  "# Findings\nall good",
		})),
		toolResp(toolUse("t2", "complete", map[string]any{"summary": "wrapped up"})),
	)

	var notices []string
	w := NewWorker(mgr, client, "claude-haiku-4-5-20251001",
		WithNotifier(func(_ int64, text string) { notices = append(notices, text) }))
	require.NoError(t, w.Run(context.Background(), j.ID))

	loaded, err := mgr.Store().Load(j.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobCompleted, loaded.Status)
	assert.Equal(t, 100, loaded.ProgressPercent)
	assert.NotNil(t, loaded.CompletedAt)
	require.Len(t, loaded.Artifacts, 1)
	assert.Equal(t, "output.md", loaded.Artifacts[0].Name)

	data, err := os.ReadFile(filepath.Join(mgr.Store().Workspace(j.ID), "output.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "all good")

	require.Len(t, *requests, 2)
	second := (*requests)[1]
	last := second.Messages[len(second.Messages)-1]
	require.Len(t, last.Blocks, 1)
	assert.Equal(t, "tool_result", last.Blocks[0].Type)
	assert.Contains(t, last.Blocks[0].Text, "wrote")

	require.Len(t, notices, 1)
	assert.Contains(t, notices[0], "completed")
}

func TestRun_PathTraversalRejected(t *testing.T) {
	mgr, j := newJob(t, model.JobTypeGeneral)
	client, requests := scripted(
		toolResp(toolUse("t1", "write_file", map[string]any{
			"filename": "../escape.txt",
			"content":  "nope",
		})),
		toolResp(toolUse("t2", "complete", map[string]any{"summary": "done"})),
	)

	w := NewWorker(mgr, client, "m")
	require.NoError(t, w.Run(context.Background(), j.ID))

	assert.NoFileExists(t, filepath.Join(mgr.Store().Root(), "escape.txt"))

	second := (*requests)[1]
	result := second.Messages[len(second.Messages)-1].Blocks[0]
	assert.True(t, result.IsError)
	assert.Contains(t, result.Text, "path traversal")
}

func TestRun_ReadFileTruncates(t *testing.T) {
	mgr, j := newJob(t, model.JobTypeGeneral)
	big := strings.Repeat("x", maxReadChars+500)
	require.NoError(t, os.WriteFile(
		filepath.Join(mgr.Store().Workspace(j.ID), "big.txt"), []byte(big), 0o644))

	client, requests := scripted(
		toolResp(toolUse("t1", "read_file", map[string]any{"filename": "big.txt"})),
		toolResp(toolUse("t2", "complete", map[string]any{"summary": "done"})),
	)
	require.NoError(t, NewWorker(mgr, client, "m").Run(context.Background(), j.ID))

	result := (*requests)[1].Messages[len((*requests)[1].Messages)-1].Blocks[0]
	assert.False(t, result.IsError)
	assert.Contains(t, result.Text, "[truncated]")
	assert.LessOrEqual(t, len(result.Text), maxReadChars+len("\n[truncated]"))
}

func TestRun_ListFilesMarksDirectories(t *testing.T) {
	mgr, j := newJob(t, model.JobTypeStudy)
	client, requests := scripted(
		toolResp(toolUse("t1", "list_files", map[string]any{})),
		toolResp(toolUse("t2", "complete", map[string]any{"summary": "done"})),
	)
	require.NoError(t, NewWorker(mgr, client, "m").Run(context.Background(), j.ID))

	listing := (*requests)[1].Messages[len((*requests)[1].Messages)-1].Blocks[0].Text
	assert.Contains(t, listing, "[DIR] artifacts")
	assert.Contains(t, listing, "plan.md")
	assert.NotContains(t, listing, "[DIR] plan.md")
}

func TestRun_AddSourceAppends(t *testing.T) {
	mgr, j := newJob(t, model.JobTypeStudy)
	client, _ := scripted(
		toolResp(toolUse("t1", "add_source", map[string]any{
			"url":         "https://www.rtings.com/headphones",
			"title":       "RTINGS earbud reviews",
			"reliability": "high",
		})),
		toolResp(toolUse("t2", "add_source", map[string]any{
			"url": "https://www.pcmag.com/picks/the-best-earbuds",
		})),
		toolResp(toolUse("t3", "complete", map[string]any{"summary": "done"})),
	)
	require.NoError(t, NewWorker(mgr, client, "m").Run(context.Background(), j.ID))

	var sources []Source
	require.NoError(t, fsutil.ReadJSON(
		filepath.Join(mgr.Store().Workspace(j.ID), "sources.json"), &sources))
	require.Len(t, sources, 2)
	assert.Equal(t, "https://www.rtings.com/headphones", sources[0].URL)
	assert.Equal(t, "high", sources[0].Reliability)
	assert.Equal(t, "https://www.pcmag.com/picks/the-best-earbuds", sources[1].URL)
}

func TestRun_UpdateCheckpoint(t *testing.T) {
	mgr, j := newJob(t, model.JobTypeGeneral)
	client, _ := scripted(
		toolResp(toolUse("t1", "update_checkpoint", map[string]any{
			"summary":          "halfway there",
			"progress_percent": 50,
		})),
		toolResp(toolUse("t2", "complete", map[string]any{"summary": "done"})),
	)
	require.NoError(t, NewWorker(mgr, client, "m").Run(context.Background(), j.ID))

	loaded, err := mgr.Store().Load(j.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.Checkpoint)
	assert.Equal(t, "halfway there", loaded.Checkpoint.Summary)
	assert.Equal(t, 1, loaded.Checkpoint.Iteration)
	assert.Equal(t, 100, loaded.ProgressPercent, "complete overrides to 100")
}

func TestRun_RequestPermissionBlocks(t *testing.T) {
	mgr, j := newJob(t, model.JobTypeGeneral)
	client, requests := scripted(
		toolResp(toolUse("t1", "request_permission", map[string]any{
			"action":           "purge old artifacts",
			"reason":           "workspace is full",
			"risk_level":       "high",
			"safe_alternative": "archive instead",
		})),
	)

	var notices []string
	w := NewWorker(mgr, client, "m",
		WithNotifier(func(adminID int64, text string) {
			assert.Equal(t, int64(42), adminID)
			notices = append(notices, text)
		}))
	require.NoError(t, w.Run(context.Background(), j.ID))

	loaded, err := mgr.Store().Load(j.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobBlocked, loaded.Status)
	pending := loaded.PendingPermissions()
	require.Len(t, pending, 1)
	assert.Equal(t, "purge old artifacts", pending[0].Action)
	assert.Equal(t, model.RiskHigh, pending[0].RiskLevel)

	assert.Len(t, *requests, 1, "loop stops immediately on permission request")
	require.Len(t, notices, 1)
	assert.Contains(t, notices[0], "needs permission")
}

func TestRun_MaxIterationsSynthesizesContinue(t *testing.T) {
	mgr, j := newJob(t, model.JobTypeGeneral)
	checkpointCall := toolResp(toolUse("t", "update_checkpoint", map[string]any{"summary": "spinning"}))
	client, requests := scripted(checkpointCall, checkpointCall, checkpointCall)

	w := NewWorker(mgr, client, "m", WithMaxIterations(3))
	require.NoError(t, w.Run(context.Background(), j.ID))

	loaded, err := mgr.Store().Load(j.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobBlocked, loaded.Status)
	pending := loaded.PendingPermissions()
	require.Len(t, pending, 1)
	assert.Equal(t, "Continue past iteration limit", pending[0].Action)
	assert.Len(t, *requests, 3)
}

func TestRun_TextOnlyEndsBlocked(t *testing.T) {
	mgr, j := newJob(t, model.JobTypeGeneral)
	client, _ := scripted(textResp("I think we are done here."))

	require.NoError(t, NewWorker(mgr, client, "m").Run(context.Background(), j.ID))

	loaded, err := mgr.Store().Load(j.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobBlocked, loaded.Status)
	require.Len(t, loaded.PendingPermissions(), 1)

	logs, err := mgr.Store().ReadLog(j.ID, 0)
	require.NoError(t, err)
	assert.Contains(t, logs, "I think we are done here.")
}

func TestRun_ExternalCancelDetected(t *testing.T) {
	mgr, j := newJob(t, model.JobTypeGeneral)

	calls := 0
	client := llmFunc(func(_ context.Context, _ llm.MessageRequest) (*llm.MessageResponse, error) {
		calls++
		if calls == 1 {
			// admin cancels while the first iteration is in flight
			require.NoError(t, mgr.Cancel(42, j.ID))
		}
		return toolResp(toolUse("t", "list_files", map[string]any{})), nil
	})

	require.NoError(t, NewWorker(mgr, client, "m").Run(context.Background(), j.ID))

	assert.Equal(t, 1, calls, "second iteration sees the cancel and exits")
	loaded, err := mgr.Store().Load(j.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobCanceled, loaded.Status)
}

func TestRun_APIErrorFailsJob(t *testing.T) {
	mgr, j := newJob(t, model.JobTypeGeneral)
	client := llmFunc(func(_ context.Context, _ llm.MessageRequest) (*llm.MessageResponse, error) {
		return nil, eris.New("529 overloaded")
	})

	err := NewWorker(mgr, client, "m").Run(context.Background(), j.ID)
	require.Error(t, err)

	loaded, lerr := mgr.Store().Load(j.ID)
	require.NoError(t, lerr)
	assert.Equal(t, model.JobFailed, loaded.Status)
	assert.Contains(t, loaded.Error, "529 overloaded")
}

func TestRun_GenericCheckpointStamped(t *testing.T) {
	mgr, j := newJob(t, model.JobTypeGeneral)
	listCall := toolResp(toolUse("t", "list_files", map[string]any{}))
	client, _ := scripted(listCall, listCall, toolResp(
		toolUse("t2", "complete", map[string]any{"summary": "done"})))

	w := NewWorker(mgr, client, "m", WithCheckpointInterval(2))
	require.NoError(t, w.Run(context.Background(), j.ID))

	loaded, err := mgr.Store().Load(j.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.Checkpoint)
	assert.Equal(t, 2, loaded.Checkpoint.Iteration)
	assert.Contains(t, loaded.Checkpoint.Summary, "iteration 2")
}

func TestRun_InstructionsPickedUpNextIteration(t *testing.T) {
	mgr, j := newJob(t, model.JobTypeGeneral)

	calls := 0
	var secondReq llm.MessageRequest
	client := llmFunc(func(_ context.Context, req llm.MessageRequest) (*llm.MessageResponse, error) {
		calls++
		switch calls {
		case 1:
			require.NoError(t, mgr.AddInstruction(42, j.ID, "focus on battery life"))
			return toolResp(toolUse("t", "list_files", map[string]any{})), nil
		default:
			secondReq = req
			return toolResp(toolUse("t2", "complete", map[string]any{"summary": "done"})), nil
		}
	})

	require.NoError(t, NewWorker(mgr, client, "m").Run(context.Background(), j.ID))

	found := false
	for _, m := range secondReq.Messages {
		for _, b := range m.Blocks {
			if strings.Contains(b.Text, "focus on battery life") {
				found = true
			}
		}
	}
	assert.True(t, found, "new instruction joins the conversation")
}

func TestRun_ResumeAfterDenialInjectsNote(t *testing.T) {
	mgr, j := newJob(t, model.JobTypeGeneral)

	// first run: worker asks for permission and blocks
	client1, _ := scripted(toolResp(toolUse("t1", "request_permission", map[string]any{
		"action":     "wipe notes",
		"reason":     "start over",
		"risk_level": "medium",
	})))
	require.NoError(t, NewWorker(mgr, client1, "m").Run(context.Background(), j.ID))

	loaded, err := mgr.Store().Load(j.ID)
	require.NoError(t, err)
	permID := loaded.PendingPermissions()[0].PermID
	_, err = mgr.Resolve(42, j.ID, permID, false)
	require.NoError(t, err)

	// second run resumes the blocked job with the denial visible
	client2, requests := scripted(toolResp(
		toolUse("t2", "complete", map[string]any{"summary": "finished without wiping"})))
	require.NoError(t, NewWorker(mgr, client2, "m").Run(context.Background(), j.ID))

	first := (*requests)[0]
	var joined strings.Builder
	for _, m := range first.Messages {
		for _, b := range m.Blocks {
			joined.WriteString(b.Text + "\n")
		}
	}
	assert.Contains(t, joined.String(), "DENIED")

	final, err := mgr.Store().Load(j.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobCompleted, final.Status)
}

func TestRun_TerminalJobRefused(t *testing.T) {
	mgr, j := newJob(t, model.JobTypeGeneral)
	require.NoError(t, mgr.Cancel(42, j.ID))

	client, _ := scripted()
	err := NewWorker(mgr, client, "m").Run(context.Background(), j.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to run")
}

func TestResolvePath(t *testing.T) {
	ws := t.TempDir()
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"plain file", "notes.md", false},
		{"nested", "sub/dir/file.txt", false},
		{"dot", ".", false},
		{"traversal", "../outside.txt", true},
		{"deep traversal", "a/../../outside.txt", true},
		{"dotdot in name", "notes..final.txt", true},
		{"absolute escape", "/etc/passwd", true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolvePath(ws, tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(got, ws))
		})
	}
}
