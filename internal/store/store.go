package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/NethraK15/Giza-Global-Eval-Task/pkg/models"
	"github.com/google/uuid"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")
var ErrInvalidTransition = errors.New("invalid job status transition")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error
	GetOwner(ctx context.Context, id uuid.UUID) (*models.Owner, error)

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error

	JobStore
}

// JobStore is the job record capability shared by the submission path and
// the worker. Jobs are never deleted.
type JobStore interface {
	CreateJob(ctx context.Context, job *models.Job) error
	// GetJob returns the job only if it belongs to ownerID.
	GetJob(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) (*models.Job, error)
	// ListJobs returns ownerID's jobs, newest first.
	ListJobs(ctx context.Context, ownerID uuid.UUID) ([]*models.Job, error)
	// UpdateJobStatus moves a job along the state machine. It returns
	// ErrInvalidTransition when the current status does not allow the move.
	UpdateJobStatus(ctx context.Context, id uuid.UUID, status string, opts ...JobUpdateOption) error
}

// JobUpdate collects the optional fields of a status change.
type JobUpdate struct {
	Result *models.JobResult
}

type JobUpdateOption func(*JobUpdate)

// NewJobUpdate applies opts to an empty JobUpdate.
func NewJobUpdate(opts ...JobUpdateOption) JobUpdate {
	var u JobUpdate
	for _, opt := range opts {
		opt(&u)
	}
	return u
}

// Validate checks that the update fits the target status.
func (u JobUpdate) Validate(status string) error {
	if status == models.JobStatusSucceeded && u.Result == nil {
		return fmt.Errorf("%s requires a result", status)
	}
	if status != models.JobStatusSucceeded && u.Result != nil {
		return fmt.Errorf("result is only recorded on %s", models.JobStatusSucceeded)
	}
	return nil
}

// WithResult attaches the result summary. It is required when moving to
// succeeded and rejected for any other status.
func WithResult(r *models.JobResult) JobUpdateOption {
	return func(u *JobUpdate) {
		u.Result = r
	}
}
