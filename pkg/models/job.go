// Package models contains shared data models used across the pipeline.
package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusQueued     = "queued"
	JobStatusProcessing = "processing"
	JobStatusSucceeded  = "succeeded"
	JobStatusFailed     = "failed"
)

// validTransitions lists, for each status, the statuses it may move to.
// Terminal statuses have no entry.
var validTransitions = map[string][]string{
	JobStatusQueued:     {JobStatusProcessing},
	JobStatusProcessing: {JobStatusSucceeded, JobStatusFailed},
}

// Job tracks one image analysis request. The API returns a job_id on
// POST /api/v1/jobs; the client polls GET /api/v1/jobs/{job_id} until status
// is succeeded or failed.
type Job struct {
	ID               uuid.UUID  `db:"id"                 json:"id"`
	OwnerID          uuid.UUID  `db:"owner_id"           json:"owner_id"`
	Status           string     `db:"status"             json:"status"`
	ModelName        string     `db:"model_name"         json:"model_name"`
	ModelVersion     string     `db:"model_version"      json:"model_version"`
	InputContentType string     `db:"input_content_type" json:"input_content_type"`
	Result           *JobResult `db:"result"             json:"result"`
	StartedAt        *time.Time `db:"started_at"         json:"started_at,omitempty"`
	CompletedAt      *time.Time `db:"completed_at"       json:"completed_at,omitempty"`
	CreatedAt        time.Time  `db:"created_at"         json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"         json:"updated_at"`
}

// JobResult is the summary persisted when a job succeeds.
type JobResult struct {
	Labels []string `json:"labels"`
	Count  int      `json:"count"`
}

// IsValidStatus reports whether s is one of the four job statuses.
func IsValidStatus(s string) bool {
	switch s {
	case JobStatusQueued, JobStatusProcessing, JobStatusSucceeded, JobStatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no transition leaves status s.
func IsTerminal(s string) bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}

// CanTransition reports whether a job may move from one status to another.
func CanTransition(from, to string) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Predecessors returns every status from which to is reachable in one step.
func Predecessors(to string) []string {
	var from []string
	for _, s := range []string{JobStatusQueued, JobStatusProcessing, JobStatusSucceeded, JobStatusFailed} {
		if CanTransition(s, to) {
			from = append(from, s)
		}
	}
	return from
}

// Summarize builds the result summary for a detection list: distinct labels in
// first-seen order and the total detection count.
func Summarize(detections []Detection) *JobResult {
	seen := make(map[string]bool, len(detections))
	labels := make([]string, 0, len(detections))
	for _, d := range detections {
		if seen[d.Label] {
			continue
		}
		seen[d.Label] = true
		labels = append(labels, d.Label)
	}
	return &JobResult{Labels: labels, Count: len(detections)}
}
