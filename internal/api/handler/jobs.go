package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/NethraK15/Giza-Global-Eval-Task/internal/api/middleware"
	"github.com/NethraK15/Giza-Global-Eval-Task/internal/api/response"
	"github.com/NethraK15/Giza-Global-Eval-Task/internal/jobs"
	"github.com/NethraK15/Giza-Global-Eval-Task/internal/objectstore"
	"github.com/NethraK15/Giza-Global-Eval-Task/internal/store"
	"github.com/NethraK15/Giza-Global-Eval-Task/pkg/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// uploadFormField is the multipart field carrying the image.
const uploadFormField = "file"

// multipartMemory is how much of an upload is buffered in memory before
// spilling to a temporary file.
const multipartMemory = 8 << 20

// JobService defines the job operations the handlers depend on.
type JobService interface {
	Submit(ctx context.Context, ownerID uuid.UUID, image io.Reader, size int64, contentType string) (*models.Job, error)
	Get(ctx context.Context, ownerID, jobID uuid.UUID) (*models.Job, error)
	List(ctx context.Context, ownerID uuid.UUID) ([]*models.Job, error)
	Overlay(ctx context.Context, ownerID, jobID uuid.UUID) (*objectstore.Object, error)
	CSV(ctx context.Context, ownerID, jobID uuid.UUID) (*objectstore.Object, error)
}

type submitResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// NewSubmitJobHandler returns an http.HandlerFunc for POST /api/v1/jobs.
// Bodies larger than maxBytes are rejected with 413.
func NewSubmitJobHandler(svc JobService, maxBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := middleware.GetOwnerID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing owner", nil)
			return
		}

		if maxBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		}
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				response.Error(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE",
					"Upload exceeds the size limit", map[string]int64{"max_bytes": tooLarge.Limit})
				return
			}
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Expected a multipart/form-data body", nil)
			return
		}
		defer r.MultipartForm.RemoveAll()

		file, header, err := r.FormFile(uploadFormField)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "file is required", nil)
			return
		}
		defer file.Close()

		contentType, _, err := mime.ParseMediaType(header.Header.Get("Content-Type"))
		if err != nil {
			contentType = ""
		}

		job, err := svc.Submit(r.Context(), ownerID, file, header.Size, contentType)
		if err != nil {
			if errors.Is(err, jobs.ErrUnsupportedContentType) {
				response.Error(w, http.StatusBadRequest, "UNSUPPORTED_MEDIA_TYPE",
					"Only image/png and image/jpeg are accepted", map[string]string{"content_type": contentType})
				return
			}
			slog.Error("job submission failed", "owner_id", ownerID, "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to submit job", nil)
			return
		}

		response.Accepted(w, submitResponse{JobID: job.ID.String(), Status: job.Status})
	}
}

// NewListJobsHandler returns an http.HandlerFunc for GET /api/v1/jobs.
func NewListJobsHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := middleware.GetOwnerID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing owner", nil)
			return
		}

		list, err := svc.List(r.Context(), ownerID)
		if err != nil {
			slog.Error("listing jobs failed", "owner_id", ownerID, "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list jobs", nil)
			return
		}

		response.Collection(w, list, response.ListMeta{Count: len(list)})
	}
}

// NewGetJobHandler returns an http.HandlerFunc for GET /api/v1/jobs/{jobID}.
func NewGetJobHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, jobID, ok := jobRequest(w, r)
		if !ok {
			return
		}

		job, err := svc.Get(r.Context(), ownerID, jobID)
		if err != nil {
			writeJobError(w, ownerID, jobID, err)
			return
		}

		response.JSON(w, job)
	}
}

// NewOverlayHandler returns an http.HandlerFunc for
// GET /api/v1/jobs/{jobID}/overlay.
func NewOverlayHandler(svc JobService) http.HandlerFunc {
	return artifactHandler(svc.Overlay, func(contentType string) string {
		if contentType == "image/jpeg" {
			return "overlay.jpg"
		}
		return "overlay.png"
	})
}

// NewCSVHandler returns an http.HandlerFunc for GET /api/v1/jobs/{jobID}/csv.
func NewCSVHandler(svc JobService) http.HandlerFunc {
	return artifactHandler(svc.CSV, func(string) string { return "results.csv" })
}

type artifactFunc func(ctx context.Context, ownerID, jobID uuid.UUID) (*objectstore.Object, error)

func artifactHandler(open artifactFunc, filename func(contentType string) string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, jobID, ok := jobRequest(w, r)
		if !ok {
			return
		}

		obj, err := open(r.Context(), ownerID, jobID)
		if err != nil {
			writeJobError(w, ownerID, jobID, err)
			return
		}
		defer obj.Body.Close()

		response.Blob(w, obj.ContentType, obj.Size, filename(obj.ContentType), obj.Body)
	}
}

// jobRequest extracts the caller and the job ID from the path, writing the
// error response itself when either is missing.
func jobRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	ownerID, ok := middleware.GetOwnerID(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing owner", nil)
		return uuid.Nil, uuid.Nil, false
	}

	jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "jobID must be a valid UUID", nil)
		return uuid.Nil, uuid.Nil, false
	}
	return ownerID, jobID, true
}

func writeJobError(w http.ResponseWriter, ownerID, jobID uuid.UUID, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		response.Error(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "Job not found", nil)
	case errors.Is(err, jobs.ErrArtifactNotReady):
		response.Error(w, http.StatusConflict, "JOB_NOT_READY", "Job has not succeeded", nil)
	case errors.Is(err, objectstore.ErrObjectNotFound):
		slog.Error("artifact missing for succeeded job", "job_id", jobID, "owner_id", ownerID, "error", err)
		response.Error(w, http.StatusNotFound, "ARTIFACT_NOT_FOUND", "Artifact not found", nil)
	default:
		slog.Error("reading job failed", "job_id", jobID, "owner_id", ownerID, "error", err)
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
	}
}
