package model

import (
	"time"
)

// JobStatus is the lifecycle state of an admin job.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobBlocked   JobStatus = "blocked"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCanceled  JobStatus = "canceled"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobCanceled
}

// JobType selects the workspace template and system prompt for a job.
type JobType string

const (
	JobTypeGeneral  JobType = "general"
	JobTypeStudy    JobType = "study"
	JobTypePipeline JobType = "pipeline"
)

// RiskLevel grades a permission request.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// PermissionRequest is a worker-initiated pause awaiting admin approval.
// Approved == nil means pending; once set, the decision is terminal.
type PermissionRequest struct {
	PermID          string     `json:"perm_id"`
	JobID           string     `json:"job_id"`
	Action          string     `json:"action"`
	Reason          string     `json:"reason,omitempty"`
	RiskLevel       RiskLevel  `json:"risk_level"`
	SafeAlternative string     `json:"safe_alternative,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	Approved        *bool      `json:"approved"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
}

// Pending reports whether the request awaits a decision.
func (p PermissionRequest) Pending() bool {
	return p.Approved == nil
}

// Artifact is a named output file registered by a job or run.
type Artifact struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	MimeType  string    `json:"mime_type,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Checkpoint is the latest progress summary recorded by the worker.
type Checkpoint struct {
	Summary   string    `json:"summary"`
	Iteration int       `json:"iteration"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Job is a single admin-issued task with an isolated workspace.
type Job struct {
	ID              string              `json:"id"`
	Title           string              `json:"title"`
	Prompt          string              `json:"prompt"`
	Status          JobStatus           `json:"status"`
	ProgressPercent int                 `json:"progress_percent"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
	StartedAt       *time.Time          `json:"started_at,omitempty"`
	CompletedAt     *time.Time          `json:"completed_at,omitempty"`
	AdminID         int64               `json:"admin_id"`
	JobType         JobType             `json:"job_type"`
	LogsPath        string              `json:"logs_path,omitempty"`
	Artifacts       []Artifact          `json:"artifacts,omitempty"`
	Permissions     []PermissionRequest `json:"permissions,omitempty"`
	Instructions    []string            `json:"instructions,omitempty"`
	Checkpoint      *Checkpoint         `json:"checkpoint,omitempty"`
	Error           string              `json:"error,omitempty"`
}

// PendingPermissions returns the unresolved permission requests.
func (j *Job) PendingPermissions() []PermissionRequest {
	var out []PermissionRequest
	for _, p := range j.Permissions {
		if p.Pending() {
			out = append(out, p)
		}
	}
	return out
}
