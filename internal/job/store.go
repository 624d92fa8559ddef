// Package job owns the admin job subsystem: one directory per job under
// JOBS_ROOT, a lifecycle state machine, per-admin quotas, and the
// admin-action audit log.
package job

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/ranklab-media/studio-cli/internal/fsutil"
	"github.com/ranklab-media/studio-cli/internal/model"
)

// studyTemplates are seeded into the workspace of study-type jobs.
var studyTemplates = map[string]string{
	"plan.md":      "# Research Plan\n\n_Fill in scope, questions, and method._\n",
	"sources.json": "[]\n",
	"output.md":    "# Findings\n",
	"notes.md":     "",
}

// Store persists jobs on disk: JOBS_ROOT/<job_id>/{job.json,logs.txt,artifacts/}.
type Store struct {
	root string
	mu   sync.Mutex
}

// NewStore creates a Store rooted at root.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Root returns the jobs root directory.
func (s *Store) Root() string { return s.root }

// Workspace returns the directory owned by a job. Every tool-generated
// path must resolve inside it.
func (s *Store) Workspace(jobID string) string {
	return filepath.Join(s.root, jobID)
}

// Create materializes a new job directory and persists job.json.
func (s *Store) Create(j *model.Job) error {
	ws := s.Workspace(j.ID)
	if err := os.MkdirAll(filepath.Join(ws, "artifacts"), 0o755); err != nil {
		return eris.Wrapf(err, "job: create workspace %s", ws)
	}

	if j.JobType == model.JobTypeStudy {
		for name, content := range studyTemplates {
			path := filepath.Join(ws, name)
			if _, err := os.Stat(path); err == nil {
				continue
			}
			if err := fsutil.WriteFileAtomic(path, []byte(content), 0o644); err != nil {
				return eris.Wrapf(err, "job: seed template %s", name)
			}
		}
	}

	j.LogsPath = filepath.Join(ws, "logs.txt")
	if err := fsutil.WriteFileAtomic(j.LogsPath, nil, 0o644); err != nil {
		return eris.Wrap(err, "job: create log file")
	}
	return s.Save(j)
}

// Save writes job.json atomically, stamping UpdatedAt.
func (s *Store) Save(j *model.Job) error {
	j.UpdatedAt = time.Now().UTC()
	return fsutil.WriteJSONAtomic(filepath.Join(s.Workspace(j.ID), "job.json"), j)
}

// Load reads a job from disk. The worker reloads between iterations to
// observe external cancels and blocks.
func (s *Store) Load(jobID string) (*model.Job, error) {
	var j model.Job
	if err := fsutil.ReadJSON(filepath.Join(s.Workspace(jobID), "job.json"), &j); err != nil {
		return nil, eris.Wrapf(err, "job: load %s", jobID)
	}
	return &j, nil
}

// List returns all jobs, newest first.
func (s *Store) List() ([]*model.Job, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "job: list")
	}

	var jobs []*model.Job
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		j, err := s.Load(e.Name())
		if err != nil {
			continue // non-job directory
		}
		jobs = append(jobs, j)
	}
	sort.Slice(jobs, func(i, k int) bool { return jobs[i].CreatedAt.After(jobs[k].CreatedAt) })
	return jobs, nil
}

// AppendLog appends a timestamped line to the job's logs.txt.
func (s *Store) AppendLog(jobID, line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(filepath.Join(s.Workspace(jobID), "logs.txt"),
		os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return eris.Wrap(err, "job: open log")
	}
	defer f.Close() //nolint:errcheck

	stamp := time.Now().UTC().Format(time.RFC3339)
	if _, err := fmt.Fprintf(f, "[%s] %s\n", stamp, line); err != nil {
		return eris.Wrap(err, "job: append log")
	}
	return nil
}

// ReadLog returns up to the last maxBytes of the job's log.
func (s *Store) ReadLog(jobID string, maxBytes int) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.Workspace(jobID), "logs.txt"))
	if err != nil {
		return "", eris.Wrap(err, "job: read log")
	}
	if maxBytes > 0 && len(data) > maxBytes {
		data = data[len(data)-maxBytes:]
	}
	return string(data), nil
}

// AdminAction is one row in the admin audit log.
type AdminAction struct {
	Timestamp time.Time `json:"timestamp"`
	AdminID   int64     `json:"admin_id"`
	Action    string    `json:"action"`
	JobID     string    `json:"job_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// Audit appends an admin action to admin_actions.jsonl.
func (s *Store) Audit(a AdminAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return eris.Wrap(err, "job: mkdir root")
	}

	f, err := os.OpenFile(filepath.Join(s.root, "admin_actions.jsonl"),
		os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return eris.Wrap(err, "job: open audit log")
	}
	defer f.Close() //nolint:errcheck

	line, err := json.Marshal(a)
	if err != nil {
		return eris.Wrap(err, "job: marshal audit entry")
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return eris.Wrap(err, "job: write audit entry")
	}
	return nil
}
