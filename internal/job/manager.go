package job

import (
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ranklab-media/studio-cli/internal/model"
)

// Defaults for the admin quotas.
const (
	DefaultMaxJobsPerHour    = 10
	DefaultMaxConcurrentJobs = 1
)

// transitions is the job state machine. Terminal states have no entry.
var transitions = map[model.JobStatus][]model.JobStatus{
	model.JobQueued:  {model.JobRunning, model.JobCanceled, model.JobFailed},
	model.JobRunning: {model.JobBlocked, model.JobCompleted, model.JobFailed, model.JobCanceled},
	model.JobBlocked: {model.JobQueued, model.JobRunning, model.JobFailed, model.JobCanceled},
}

// CanTransition reports whether from -> to is a legal move.
func CanTransition(from, to model.JobStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Manager enforces lifecycle, quotas, and auditing over a Store.
type Manager struct {
	store         *Store
	maxPerHour    int
	maxConcurrent int
	now           func() time.Time
	newID         func() string
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithQuotas overrides the per-admin hourly and global concurrency limits.
func WithQuotas(perHour, concurrent int) ManagerOption {
	return func(m *Manager) {
		m.maxPerHour = perHour
		m.maxConcurrent = concurrent
	}
}

// WithManagerClock injects the clock for tests.
func WithManagerClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a Manager with default quotas.
func NewManager(store *Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:         store,
		maxPerHour:    DefaultMaxJobsPerHour,
		maxConcurrent: DefaultMaxConcurrentJobs,
		now:           time.Now,
		newID:         func() string { return uuid.NewString() },
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Store returns the underlying job store.
func (m *Manager) Store() *Store { return m.store }

// Create validates quotas, materializes the workspace, and audits the
// creation. The new job starts queued.
func (m *Manager) Create(adminID int64, title, prompt string, jobType model.JobType) (*model.Job, error) {
	if prompt == "" {
		return nil, eris.New("job: empty prompt")
	}
	if err := m.checkHourlyQuota(adminID); err != nil {
		return nil, err
	}

	now := m.now().UTC()
	j := &model.Job{
		ID:        m.newID(),
		Title:     title,
		Prompt:    prompt,
		Status:    model.JobQueued,
		CreatedAt: now,
		AdminID:   adminID,
		JobType:   jobType,
	}
	if err := m.store.Create(j); err != nil {
		return nil, err
	}
	m.audit(adminID, "create_job", j.ID, title)
	return j, nil
}

// Start moves a queued job to running if the concurrency slot is free.
func (m *Manager) Start(jobID string) (*model.Job, error) {
	j, err := m.store.Load(jobID)
	if err != nil {
		return nil, err
	}
	running, err := m.countRunning()
	if err != nil {
		return nil, err
	}
	if running >= m.maxConcurrent {
		return nil, eris.Errorf("job: concurrency limit reached (%d running)", running)
	}
	if err := m.Transition(j, model.JobRunning, "started"); err != nil {
		return nil, err
	}
	return j, nil
}

// Transition applies a lifecycle move, persists it, and logs it.
// Terminal states are immutable.
func (m *Manager) Transition(j *model.Job, to model.JobStatus, reason string) error {
	if j.Status.Terminal() {
		return eris.Errorf("job: %s is %s and cannot transition", j.ID, j.Status)
	}
	if !CanTransition(j.Status, to) {
		return eris.Errorf("job: illegal transition %s -> %s", j.Status, to)
	}

	now := m.now().UTC()
	from := j.Status
	j.Status = to
	switch to {
	case model.JobRunning:
		if j.StartedAt == nil {
			j.StartedAt = &now
		}
	case model.JobCompleted:
		j.ProgressPercent = 100
		j.CompletedAt = &now
	case model.JobFailed, model.JobCanceled:
		j.CompletedAt = &now
	}
	if err := m.store.Save(j); err != nil {
		return err
	}
	_ = m.store.AppendLog(j.ID, "status "+string(from)+" -> "+string(to)+": "+reason)
	zap.L().Info("job: transition",
		zap.String("job_id", j.ID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("reason", reason))
	return nil
}

// Cancel terminates a non-terminal job on admin request.
func (m *Manager) Cancel(adminID int64, jobID string) error {
	j, err := m.store.Load(jobID)
	if err != nil {
		return err
	}
	if err := m.Transition(j, model.JobCanceled, "canceled by admin"); err != nil {
		return err
	}
	m.audit(adminID, "cancel_job", jobID, "")
	return nil
}

// Fail marks a job failed with the given error message.
func (m *Manager) Fail(j *model.Job, cause error) error {
	j.Error = eris.ToString(cause, false)
	return m.Transition(j, model.JobFailed, j.Error)
}

// AddInstruction appends extra guidance picked up on the next worker
// iteration, used by /continue.
func (m *Manager) AddInstruction(adminID int64, jobID, instruction string) error {
	j, err := m.store.Load(jobID)
	if err != nil {
		return err
	}
	if j.Status.Terminal() {
		return eris.Errorf("job: %s is %s, cannot add instructions", jobID, j.Status)
	}
	j.Instructions = append(j.Instructions, instruction)
	if err := m.store.Save(j); err != nil {
		return err
	}
	m.audit(adminID, "continue_job", jobID, instruction)
	return nil
}

// RequestPermission records a pending permission and blocks the job.
func (m *Manager) RequestPermission(j *model.Job, action, reason string, risk model.RiskLevel, safeAlt string) (*model.PermissionRequest, error) {
	p := model.PermissionRequest{
		PermID:          m.newID(),
		JobID:           j.ID,
		Action:          action,
		Reason:          reason,
		RiskLevel:       risk,
		SafeAlternative: safeAlt,
		CreatedAt:       m.now().UTC(),
	}
	j.Permissions = append(j.Permissions, p)
	if err := m.Transition(j, model.JobBlocked, "awaiting permission: "+action); err != nil {
		return nil, err
	}
	return &p, nil
}

// Resolve records an admin decision on a pending permission. Approval
// moves the job back to running once no other permissions remain pending;
// denial leaves it blocked so the worker can pick a safe alternative when
// it resumes.
func (m *Manager) Resolve(adminID int64, jobID, permID string, approved bool) (*model.Job, error) {
	j, err := m.store.Load(jobID)
	if err != nil {
		return nil, err
	}

	found := false
	for i := range j.Permissions {
		if j.Permissions[i].PermID != permID {
			continue
		}
		if !j.Permissions[i].Pending() {
			return nil, eris.Errorf("job: permission %s already resolved", permID)
		}
		now := m.now().UTC()
		j.Permissions[i].Approved = &approved
		j.Permissions[i].ResolvedAt = &now
		found = true
		break
	}
	if !found {
		return nil, eris.Errorf("job: permission %s not found on %s", permID, jobID)
	}

	action := "deny_permission"
	if approved {
		action = "approve_permission"
	}
	if approved && j.Status == model.JobBlocked && len(j.PendingPermissions()) == 0 {
		if err := m.Transition(j, model.JobRunning, "permission approved"); err != nil {
			return nil, err
		}
	} else if err := m.store.Save(j); err != nil {
		return nil, err
	}
	m.audit(adminID, action, jobID, permID)
	return j, nil
}

func (m *Manager) checkHourlyQuota(adminID int64) error {
	jobs, err := m.store.List()
	if err != nil {
		return err
	}
	cutoff := m.now().Add(-time.Hour)
	count := 0
	for _, j := range jobs {
		if j.AdminID == adminID && j.CreatedAt.After(cutoff) {
			count++
		}
	}
	if count >= m.maxPerHour {
		return eris.Errorf("job: rate limit reached (%d jobs in the last hour)", count)
	}
	return nil
}

func (m *Manager) countRunning() (int, error) {
	jobs, err := m.store.List()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, j := range jobs {
		if j.Status == model.JobRunning {
			n++
		}
	}
	return n, nil
}

func (m *Manager) audit(adminID int64, action, jobID, detail string) {
	if err := m.store.Audit(AdminAction{
		AdminID: adminID,
		Action:  action,
		JobID:   jobID,
		Detail:  detail,
	}); err != nil {
		zap.L().Warn("job: audit write failed", zap.Error(err))
	}
}
