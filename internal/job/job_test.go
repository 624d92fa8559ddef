package job

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ranklab-media/studio-cli/internal/model"
)

func newManager(t *testing.T, opts ...ManagerOption) *Manager {
	t.Helper()
	return NewManager(NewStore(t.TempDir()), opts...)
}

func TestCreate_MaterializesWorkspace(t *testing.T) {
	m := newManager(t)
	j, err := m.Create(42, "summarize", "summarize the latest earbud reviews", model.JobTypeGeneral)
	require.NoError(t, err)

	assert.Equal(t, model.JobQueued, j.Status)
	assert.Equal(t, int64(42), j.AdminID)
	assert.NotEmpty(t, j.ID)

	ws := m.Store().Workspace(j.ID)
	assert.FileExists(t, filepath.Join(ws, "job.json"))
	assert.FileExists(t, filepath.Join(ws, "logs.txt"))
	assert.DirExists(t, filepath.Join(ws, "artifacts"))
	assert.NoFileExists(t, filepath.Join(ws, "plan.md"), "general jobs get no study templates")

	loaded, err := m.Store().Load(j.ID)
	require.NoError(t, err)
	assert.Equal(t, j.Prompt, loaded.Prompt)
}

func TestCreate_StudyTemplates(t *testing.T) {
	m := newManager(t)
	j, err := m.Create(1, "deep dive", "study noise cancelling tech", model.JobTypeStudy)
	require.NoError(t, err)

	ws := m.Store().Workspace(j.ID)
	for _, name := range []string{"plan.md", "sources.json", "output.md", "notes.md"} {
		assert.FileExists(t, filepath.Join(ws, name))
	}

	data, err := os.ReadFile(filepath.Join(ws, "sources.json"))
	require.NoError(t, err)
	var sources []any
	require.NoError(t, json.Unmarshal(data, &sources))
	assert.Empty(t, sources)
}

func TestCreate_EmptyPrompt(t *testing.T) {
	_, err := newManager(t).Create(1, "t", "", model.JobTypeGeneral)
	require.Error(t, err)
}

func TestCreate_HourlyRateLimit(t *testing.T) {
	m := newManager(t, WithQuotas(2, 1))

	for range 2 {
		_, err := m.Create(7, "t", "p", model.JobTypeGeneral)
		require.NoError(t, err)
	}
	_, err := m.Create(7, "t", "p", model.JobTypeGeneral)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")

	// a different admin has their own budget
	_, err = m.Create(8, "t", "p", model.JobTypeGeneral)
	assert.NoError(t, err)
}

func TestCreate_RateLimitWindowSlides(t *testing.T) {
	now := time.Now()
	m := newManager(t, WithQuotas(1, 1), WithManagerClock(func() time.Time { return now }))

	_, err := m.Create(7, "t", "p", model.JobTypeGeneral)
	require.NoError(t, err)
	_, err = m.Create(7, "t", "p", model.JobTypeGeneral)
	require.Error(t, err)

	now = now.Add(61 * time.Minute)
	_, err = m.Create(7, "t", "p", model.JobTypeGeneral)
	assert.NoError(t, err)
}

func TestStart_ConcurrencyLimit(t *testing.T) {
	m := newManager(t)
	a, err := m.Create(1, "a", "p", model.JobTypeGeneral)
	require.NoError(t, err)
	b, err := m.Create(1, "b", "p", model.JobTypeGeneral)
	require.NoError(t, err)

	_, err = m.Start(a.ID)
	require.NoError(t, err)
	_, err = m.Start(b.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "concurrency limit")
}

func TestTransition_TerminalIsImmutable(t *testing.T) {
	m := newManager(t)
	j, err := m.Create(1, "t", "p", model.JobTypeGeneral)
	require.NoError(t, err)
	require.NoError(t, m.Cancel(1, j.ID))

	loaded, err := m.Store().Load(j.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobCanceled, loaded.Status)
	assert.NotNil(t, loaded.CompletedAt)

	err = m.Transition(loaded, model.JobRunning, "resurrect")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot transition")
}

func TestTransition_IllegalMove(t *testing.T) {
	m := newManager(t)
	j, err := m.Create(1, "t", "p", model.JobTypeGeneral)
	require.NoError(t, err)

	err = m.Transition(j, model.JobCompleted, "skip running")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "illegal transition")
}

func TestFail_RecordsError(t *testing.T) {
	m := newManager(t)
	j, err := m.Create(1, "t", "p", model.JobTypeGeneral)
	require.NoError(t, err)
	_, err = m.Start(j.ID)
	require.NoError(t, err)

	j, err = m.Store().Load(j.ID)
	require.NoError(t, err)
	require.NoError(t, m.Fail(j, eris.New("model call exploded")))

	loaded, err := m.Store().Load(j.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobFailed, loaded.Status)
	assert.Contains(t, loaded.Error, "model call exploded")
}

func TestPermissionFlow(t *testing.T) {
	m := newManager(t)
	j, err := m.Create(9, "t", "p", model.JobTypeGeneral)
	require.NoError(t, err)
	_, err = m.Start(j.ID)
	require.NoError(t, err)

	j, err = m.Store().Load(j.ID)
	require.NoError(t, err)
	perm, err := m.RequestPermission(j, "delete 14 files", "cleanup", model.RiskHigh, "move to trash instead")
	require.NoError(t, err)
	assert.Equal(t, model.JobBlocked, j.Status)
	assert.True(t, perm.Pending())

	resolved, err := m.Resolve(9, j.ID, perm.PermID, true)
	require.NoError(t, err)
	assert.Equal(t, model.JobRunning, resolved.Status)
	assert.Empty(t, resolved.PendingPermissions())
	require.NotNil(t, resolved.Permissions[0].Approved)
	assert.True(t, *resolved.Permissions[0].Approved)

	// a decision is terminal
	_, err = m.Resolve(9, j.ID, perm.PermID, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already resolved")
}

func TestResolve_DenialStaysBlocked(t *testing.T) {
	m := newManager(t)
	j, err := m.Create(9, "t", "p", model.JobTypeGeneral)
	require.NoError(t, err)
	_, err = m.Start(j.ID)
	require.NoError(t, err)

	j, err = m.Store().Load(j.ID)
	require.NoError(t, err)
	perm, err := m.RequestPermission(j, "risky thing", "", model.RiskMedium, "")
	require.NoError(t, err)

	resolved, err := m.Resolve(9, j.ID, perm.PermID, false)
	require.NoError(t, err)
	assert.Equal(t, model.JobBlocked, resolved.Status)
	require.NotNil(t, resolved.Permissions[0].Approved)
	assert.False(t, *resolved.Permissions[0].Approved)
}

func TestResolve_UnknownPermission(t *testing.T) {
	m := newManager(t)
	j, err := m.Create(1, "t", "p", model.JobTypeGeneral)
	require.NoError(t, err)

	_, err = m.Resolve(1, j.ID, "nope", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestAddInstruction(t *testing.T) {
	m := newManager(t)
	j, err := m.Create(1, "t", "p", model.JobTypeGeneral)
	require.NoError(t, err)

	require.NoError(t, m.AddInstruction(1, j.ID, "also compare prices"))
	loaded, err := m.Store().Load(j.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"also compare prices"}, loaded.Instructions)

	require.NoError(t, m.Cancel(1, j.ID))
	err = m.AddInstruction(1, j.ID, "too late")
	require.Error(t, err)
}

func TestList_NewestFirst(t *testing.T) {
	now := time.Now()
	m := newManager(t, WithManagerClock(func() time.Time {
		now = now.Add(time.Second)
		return now
	}))

	first, err := m.Create(1, "first", "p", model.JobTypeGeneral)
	require.NoError(t, err)
	second, err := m.Create(1, "second", "p", model.JobTypeGeneral)
	require.NoError(t, err)

	jobs, err := m.Store().List()
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, second.ID, jobs[0].ID)
	assert.Equal(t, first.ID, jobs[1].ID)
}

func TestAuditLog(t *testing.T) {
	m := newManager(t)
	j, err := m.Create(5, "audited", "p", model.JobTypeGeneral)
	require.NoError(t, err)
	require.NoError(t, m.Cancel(5, j.ID))

	f, err := os.Open(filepath.Join(m.Store().Root(), "admin_actions.jsonl"))
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	var actions []AdminAction
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var a AdminAction
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &a))
		actions = append(actions, a)
	}
	require.Len(t, actions, 2)
	assert.Equal(t, "create_job", actions[0].Action)
	assert.Equal(t, "cancel_job", actions[1].Action)
	assert.Equal(t, int64(5), actions[1].AdminID)
	assert.Equal(t, j.ID, actions[1].JobID)
}

func TestAppendAndReadLog(t *testing.T) {
	s := NewStore(t.TempDir())
	j := &model.Job{ID: "abc", Status: model.JobQueued, CreatedAt: time.Now()}
	require.NoError(t, s.Create(j))

	require.NoError(t, s.AppendLog("abc", "hello"))
	require.NoError(t, s.AppendLog("abc", "world"))

	logs, err := s.ReadLog("abc", 0)
	require.NoError(t, err)
	assert.Contains(t, logs, "hello")
	assert.Contains(t, logs, "world")

	tail, err := s.ReadLog("abc", 10)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(tail), 10)
}
