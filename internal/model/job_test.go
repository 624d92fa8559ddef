package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobStatus_Terminal(t *testing.T) {
	assert.True(t, JobCompleted.Terminal())
	assert.True(t, JobFailed.Terminal())
	assert.True(t, JobCanceled.Terminal())
	assert.False(t, JobQueued.Terminal())
	assert.False(t, JobRunning.Terminal())
	assert.False(t, JobBlocked.Terminal())
}

func TestJob_PendingPermissions(t *testing.T) {
	yes := true
	job := &Job{
		Permissions: []PermissionRequest{
			{PermID: "p1", Approved: nil},
			{PermID: "p2", Approved: &yes},
			{PermID: "p3", Approved: nil},
		},
	}
	pending := job.PendingPermissions()
	require.Len(t, pending, 2)
	assert.Equal(t, "p1", pending[0].PermID)
	assert.Equal(t, "p3", pending[1].PermID)
}

func TestJob_JSONRoundTrip(t *testing.T) {
	now := time.Date(2026, 2, 11, 9, 30, 0, 0, time.UTC)
	job := Job{
		ID:              "c0ffee00-0000-4000-8000-000000000001",
		Title:           "summarize rivals",
		Prompt:          "study top competitor channels",
		Status:          JobBlocked,
		ProgressPercent: 40,
		CreatedAt:       now,
		UpdatedAt:       now,
		AdminID:         101,
		JobType:         JobTypeStudy,
		LogsPath:        "logs.txt",
		Permissions: []PermissionRequest{
			{PermID: "p1", JobID: "c0ffee00-0000-4000-8000-000000000001", Action: "run shell", RiskLevel: RiskHigh, CreatedAt: now},
		},
		Instructions: []string{"cite every source"},
		Checkpoint:   &Checkpoint{Summary: "3 channels reviewed", Iteration: 5, UpdatedAt: now},
	}

	data, err := json.Marshal(job)
	require.NoError(t, err)

	var got Job
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, job, got)

	// Pending permission survives the round trip as pending.
	assert.True(t, got.Permissions[0].Pending())
}
