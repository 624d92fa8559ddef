// Package model defines the value objects shared across the pipeline.
// On-disk JSON (snake_case fields, RFC 3339 UTC timestamps) is the durable
// contract; field names must not change without a migration.
package model

import (
	"time"
)

// RunStatus represents the two-gate lifecycle state of a video run.
type RunStatus string

const (
	StatusDraftWaitingGate1  RunStatus = "draft_waiting_gate_1"
	StatusAssetsWaitingGate2 RunStatus = "assets_waiting_gate_2"
	StatusRendering          RunStatus = "rendering"
	StatusUploading          RunStatus = "uploading"
	StatusPublished          RunStatus = "published"
	StatusFailed             RunStatus = "failed"
)

// statusRank orders the forward progression. Rejections rewind explicitly
// through RejectGate; everything else is monotonic.
var statusRank = map[RunStatus]int{
	StatusDraftWaitingGate1:  0,
	StatusAssetsWaitingGate2: 1,
	StatusRendering:          2,
	StatusUploading:          3,
	StatusPublished:          4,
}

// CanTransition reports whether moving from to next is a legal forward
// transition. Failed is reachable from anywhere; rewinds must go through
// the explicit gate-rejection path.
func (s RunStatus) CanTransition(next RunStatus) bool {
	if next == StatusFailed {
		return true
	}
	from, okFrom := statusRank[s]
	to, okTo := statusRank[next]
	if !okFrom || !okTo {
		return false
	}
	return to >= from
}

// GateDecision records a human approval decision at a gate.
type GateDecision struct {
	Approved   bool      `json:"approved"`
	Rejected   bool      `json:"rejected"`
	Reviewer   string    `json:"reviewer,omitempty"`
	Notes      string    `json:"notes,omitempty"`
	DecisionAt time.Time `json:"decision_at,omitzero"`
}

// HistoryEntry is one append-only record of a status change.
type HistoryEntry struct {
	TS     time.Time `json:"ts"`
	Status RunStatus `json:"status"`
	Reason string    `json:"reason,omitempty"`
}

// PipelineState is the persisted per-run state, written atomically to
// pipeline_state.json inside the run directory.
type PipelineState struct {
	RunSlug   string            `json:"run_slug"`
	Theme     string            `json:"theme"`
	Category  string            `json:"category"`
	Status    RunStatus         `json:"status"`
	Gate1     GateDecision      `json:"gate1"`
	Gate2     GateDecision      `json:"gate2"`
	Config    map[string]any    `json:"config,omitempty"`
	Artifacts map[string]string `json:"artifacts,omitempty"`
	History   []HistoryEntry    `json:"history"`
}

// Transition appends a history entry and sets the new status.
func (p *PipelineState) Transition(status RunStatus, reason string) {
	p.Status = status
	p.History = append(p.History, HistoryEntry{
		TS:     time.Now().UTC(),
		Status: status,
		Reason: reason,
	})
}

// RunContext carries per-run state through the orchestrator stages.
type RunContext struct {
	RunSlug    string
	Niche      string
	Category   string
	RunDir     string
	InputsDir  string
	ScriptDir  string
	ResolveDir string

	Bus       *Bus
	Completed []string
	Aborted   bool
	Errors    []string
}

// RecordError appends an error to the run's error list.
func (c *RunContext) RecordError(stage string, err error) {
	c.Errors = append(c.Errors, stage+": "+err.Error())
}

// MarkCompleted records a finished stage.
func (c *RunContext) MarkCompleted(stage string) {
	c.Completed = append(c.Completed, stage)
}
