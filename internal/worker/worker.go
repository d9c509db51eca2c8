// Package worker drains the dispatch queue and runs each job through
// detection and artifact generation. One Worker processes one job at a time.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/NethraK15/Giza-Global-Eval-Task/internal/metrics"
	"github.com/NethraK15/Giza-Global-Eval-Task/internal/objectstore"
	"github.com/NethraK15/Giza-Global-Eval-Task/internal/queue"
	"github.com/NethraK15/Giza-Global-Eval-Task/internal/result"
	"github.com/NethraK15/Giza-Global-Eval-Task/internal/store"
	"github.com/NethraK15/Giza-Global-Eval-Task/pkg/models"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// errNotClaimed means the job could not be moved to processing because it is
// missing or no longer queued. Such messages are skipped, not failed.
var errNotClaimed = errors.New("job not claimable")

// errClaimFailed means the store could not be reached while claiming the job.
// The job is still queued, so it is neither failed nor counted as processed.
var errClaimFailed = errors.New("claiming job")

// Config holds the worker's tunables.
type Config struct {
	PopTimeout   time.Duration
	RetryDelay   time.Duration
	ScratchDir   string
	ModelVersion string

	// MaxImagePixels bounds width*height of an input before it is decoded.
	MaxImagePixels int
}

// Worker is a single sequential queue consumer.
type Worker struct {
	queue    queue.Consumer
	store    store.JobStore
	objects  objectstore.Store
	detector models.Detector
	metrics  *metrics.Metrics
	validate *validator.Validate
	cfg      Config
}

// New creates a Worker.
func New(q queue.Consumer, st store.JobStore, objects objectstore.Store, detector models.Detector, m *metrics.Metrics, cfg Config) *Worker {
	return &Worker{
		queue:    q,
		store:    st,
		objects:  objects,
		detector: detector,
		metrics:  m,
		validate: validator.New(),
		cfg:      cfg,
	}
}

// Run pops and handles messages until ctx is cancelled. Shutdown is only
// observed between messages; a job in flight always runs to completion.
func (w *Worker) Run(ctx context.Context) error {
	slog.Info("worker started", "detector", w.detector.Name(), "model_version", w.cfg.ModelVersion)
	for {
		if ctx.Err() != nil {
			slog.Info("worker stopping")
			return nil
		}

		raw, err := w.queue.Pop(ctx, w.cfg.PopTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.metrics.QueueErrors.Inc()
			slog.Error("queue pop failed, retrying", "error", err, "retry_in", w.cfg.RetryDelay)
			select {
			case <-ctx.Done():
			case <-time.After(w.cfg.RetryDelay):
			}
			continue
		}
		if raw == nil {
			continue
		}

		w.Handle(ctx, raw)
	}
}

// Handle processes one raw dispatch message. Malformed messages are logged
// and dropped without touching any job. When the job could not be claimed
// because the store was unreachable, Handle waits RetryDelay before returning.
func (w *Worker) Handle(ctx context.Context, raw []byte) {
	msg, err := w.parse(raw)
	if err != nil {
		w.metrics.MessagesDropped.Inc()
		slog.Warn("dropping malformed dispatch message", "error", err, "payload_bytes", len(raw))
		return
	}
	if err := w.Process(context.WithoutCancel(ctx), msg); err != nil {
		select {
		case <-ctx.Done():
		case <-time.After(w.cfg.RetryDelay):
		}
	}
}

func (w *Worker) parse(raw []byte) (models.DispatchMessage, error) {
	var msg models.DispatchMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return msg, fmt.Errorf("decoding message: %w", err)
	}
	if err := w.validate.Struct(msg); err != nil {
		return msg, fmt.Errorf("validating message: %w", err)
	}
	return msg, nil
}

// Process runs one job to a terminal status. Every error or panic after the
// job is claimed ends in a best-effort failed transition. The only error
// returned is a transport failure while claiming, after which the caller
// should back off.
func (w *Worker) Process(ctx context.Context, msg models.DispatchMessage) error {
	jobID := uuid.MustParse(msg.JobID)
	ownerID := uuid.MustParse(msg.OwnerID)
	log := slog.With("job_id", jobID, "owner_id", ownerID, "model_version", w.cfg.ModelVersion)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic while processing job", "error", r)
			w.fail(ctx, log, jobID, start)
		}
	}()

	summary, err := w.process(ctx, log, jobID, ownerID, msg)
	if errors.Is(err, errNotClaimed) {
		log.Warn("skipping job", "error", err)
		return nil
	}
	if errors.Is(err, errClaimFailed) {
		w.metrics.QueueErrors.Inc()
		log.Error("could not claim job, job left queued", "error", err, "retry_in", w.cfg.RetryDelay)
		return err
	}
	if err != nil {
		log.Error("job processing failed", "error", err)
		w.fail(ctx, log, jobID, start)
		return nil
	}

	w.metrics.JobsProcessed.WithLabelValues(models.JobStatusSucceeded).Inc()
	w.metrics.JobDuration.Observe(time.Since(start).Seconds())
	log.Info("job succeeded",
		"status", models.JobStatusSucceeded,
		"latency_ms", time.Since(start).Milliseconds(),
		"labels", summary.Labels,
		"count", summary.Count)
	return nil
}

func (w *Worker) process(ctx context.Context, log *slog.Logger, jobID, ownerID uuid.UUID, msg models.DispatchMessage) (*models.JobResult, error) {
	err := w.store.UpdateJobStatus(ctx, jobID, models.JobStatusProcessing)
	if errors.Is(err, store.ErrInvalidTransition) || errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", errNotClaimed, err)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errClaimFailed, err)
	}
	log.Info("job processing", "status", models.JobStatusProcessing)

	image, err := w.fetchInput(ctx, jobID, msg)
	if err != nil {
		return nil, err
	}
	if err := result.CheckSize(image, w.cfg.MaxImagePixels); err != nil {
		return nil, err
	}

	detections, err := w.detector.Detect(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("detecting: %w", err)
	}

	artifacts, err := result.Generate(image, detections)
	if err != nil {
		return nil, fmt.Errorf("generating artifacts: %w", err)
	}

	overlayKey := objectstore.OverlayKey(ownerID, jobID)
	if err := w.objects.Put(ctx, msg.Bucket, overlayKey, bytes.NewReader(artifacts.Overlay),
		int64(len(artifacts.Overlay)), artifacts.OverlayContentType); err != nil {
		return nil, fmt.Errorf("storing overlay: %w", err)
	}
	csvKey := objectstore.CSVKey(ownerID, jobID)
	if err := w.objects.Put(ctx, msg.Bucket, csvKey, bytes.NewReader(artifacts.CSV),
		int64(len(artifacts.CSV)), "text/csv"); err != nil {
		return nil, fmt.Errorf("storing csv: %w", err)
	}

	summary := models.Summarize(detections)
	if err := w.store.UpdateJobStatus(ctx, jobID, models.JobStatusSucceeded, store.WithResult(summary)); err != nil {
		return nil, fmt.Errorf("marking succeeded: %w", err)
	}
	return summary, nil
}

// fetchInput downloads the input through a scratch file that is removed
// before returning.
func (w *Worker) fetchInput(ctx context.Context, jobID uuid.UUID, msg models.DispatchMessage) ([]byte, error) {
	obj, err := w.objects.Get(ctx, msg.Bucket, msg.InputPath)
	if err != nil {
		return nil, fmt.Errorf("fetching input: %w", err)
	}
	defer obj.Body.Close()

	scratch, err := os.CreateTemp(w.cfg.ScratchDir, jobID.String()+"-*.img")
	if err != nil {
		return nil, fmt.Errorf("creating scratch file: %w", err)
	}
	defer os.Remove(scratch.Name())
	defer scratch.Close()

	if _, err := io.Copy(scratch, obj.Body); err != nil {
		return nil, fmt.Errorf("downloading input: %w", err)
	}
	if _, err := scratch.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewinding scratch file: %w", err)
	}
	data, err := io.ReadAll(scratch)
	if err != nil {
		return nil, fmt.Errorf("reading scratch file: %w", err)
	}
	return data, nil
}

// fail marks the job failed. A failure here is logged and not retried.
func (w *Worker) fail(ctx context.Context, log *slog.Logger, jobID uuid.UUID, start time.Time) {
	w.metrics.JobsProcessed.WithLabelValues(models.JobStatusFailed).Inc()
	w.metrics.JobDuration.Observe(time.Since(start).Seconds())
	if err := w.store.UpdateJobStatus(ctx, jobID, models.JobStatusFailed); err != nil {
		log.Error("could not mark job failed", "error", err)
		return
	}
	log.Info("job failed", "status", models.JobStatusFailed, "latency_ms", time.Since(start).Milliseconds())
}
