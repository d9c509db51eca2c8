// Package jobs is the submission side of the pipeline: it accepts images,
// records jobs and dispatches them to the worker, and serves job state and
// artifacts back to their owners.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/NethraK15/Giza-Global-Eval-Task/internal/config"
	"github.com/NethraK15/Giza-Global-Eval-Task/internal/metrics"
	"github.com/NethraK15/Giza-Global-Eval-Task/internal/objectstore"
	"github.com/NethraK15/Giza-Global-Eval-Task/internal/queue"
	"github.com/NethraK15/Giza-Global-Eval-Task/internal/store"
	"github.com/NethraK15/Giza-Global-Eval-Task/pkg/models"
	"github.com/google/uuid"
)

var (
	ErrUnsupportedContentType = errors.New("unsupported content type")
	ErrArtifactNotReady       = errors.New("job artifacts not ready")
)

// SupportedContentTypes are the only image types accepted for analysis.
var SupportedContentTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
}

// Service orchestrates job submission and retrieval.
type Service struct {
	store   store.JobStore
	objects objectstore.Store
	queue   queue.Producer
	bucket  string
	model   config.ModelConfig
	metrics *metrics.Metrics
}

// NewService creates a new Service.
func NewService(st store.JobStore, objects objectstore.Store, q queue.Producer, bucket string, model config.ModelConfig, m *metrics.Metrics) *Service {
	return &Service{
		store:   st,
		objects: objects,
		queue:   q,
		bucket:  bucket,
		model:   model,
		metrics: m,
	}
}

// Submit validates the content type, then creates the job row, stores the
// input and publishes the dispatch message, in that order. The row exists
// before the message so the worker always finds it. If storing the input
// fails nothing is published and the row stays queued.
func (s *Service) Submit(ctx context.Context, ownerID uuid.UUID, image io.Reader, size int64, contentType string) (*models.Job, error) {
	if !SupportedContentTypes[contentType] {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedContentType, contentType)
	}

	now := time.Now().UTC()
	job := &models.Job{
		ID:               uuid.New(),
		OwnerID:          ownerID,
		Status:           models.JobStatusQueued,
		ModelName:        s.model.Name,
		ModelVersion:     s.model.Version,
		InputContentType: contentType,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("creating job: %w", err)
	}

	inputKey := objectstore.InputKey(ownerID, job.ID)
	if err := s.objects.Put(ctx, s.bucket, inputKey, image, size, contentType); err != nil {
		slog.Error("storing job input failed, job left queued without dispatch",
			"job_id", job.ID, "owner_id", ownerID, "error", err)
		return nil, fmt.Errorf("storing input: %w", err)
	}

	msg, err := json.Marshal(models.DispatchMessage{
		JobID:     job.ID.String(),
		OwnerID:   ownerID.String(),
		Bucket:    s.bucket,
		InputPath: inputKey,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding dispatch message: %w", err)
	}
	if err := s.queue.Push(ctx, msg); err != nil {
		slog.Error("dispatching job failed", "job_id", job.ID, "owner_id", ownerID, "error", err)
		return nil, fmt.Errorf("dispatching job: %w", err)
	}

	s.metrics.JobsSubmitted.Inc()
	slog.Info("job submitted",
		"job_id", job.ID, "owner_id", ownerID, "status", job.Status,
		"model_version", job.ModelVersion)
	return job, nil
}

// Get returns one of ownerID's jobs.
func (s *Service) Get(ctx context.Context, ownerID, jobID uuid.UUID) (*models.Job, error) {
	return s.store.GetJob(ctx, jobID, ownerID)
}

// List returns ownerID's jobs, newest first.
func (s *Service) List(ctx context.Context, ownerID uuid.UUID) ([]*models.Job, error) {
	return s.store.ListJobs(ctx, ownerID)
}

// Overlay opens the annotated image of a succeeded job.
func (s *Service) Overlay(ctx context.Context, ownerID, jobID uuid.UUID) (*objectstore.Object, error) {
	return s.artifact(ctx, ownerID, jobID, objectstore.OverlayKey)
}

// CSV opens the detection table of a succeeded job.
func (s *Service) CSV(ctx context.Context, ownerID, jobID uuid.UUID) (*objectstore.Object, error) {
	return s.artifact(ctx, ownerID, jobID, objectstore.CSVKey)
}

func (s *Service) artifact(ctx context.Context, ownerID, jobID uuid.UUID, key func(uuid.UUID, uuid.UUID) string) (*objectstore.Object, error) {
	job, err := s.store.GetJob(ctx, jobID, ownerID)
	if err != nil {
		return nil, err
	}
	if job.Status != models.JobStatusSucceeded {
		return nil, fmt.Errorf("%w: job is %s", ErrArtifactNotReady, job.Status)
	}
	obj, err := s.objects.Get(ctx, s.bucket, key(ownerID, jobID))
	if err != nil {
		return nil, fmt.Errorf("fetching artifact: %w", err)
	}
	return obj, nil
}
