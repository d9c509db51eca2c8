package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/NethraK15/Giza-Global-Eval-Task/pkg/models"
	"github.com/sony/gobreaker"
)

// maxResponseBytes caps how much of an inference response is read.
const maxResponseBytes = 4 << 20

// HTTPEngine calls a remote inference server. The server accepts the raw image
// as the body of POST {baseURL}/predict and answers with
// {"detections":[{"label":..,"confidence":..,"box":[x1,y1,x2,y2]}]}.
//
// Calls go through a circuit breaker so a dead inference server fails jobs
// fast instead of holding the worker for the full timeout on every message.
type HTTPEngine struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

type predictResponse struct {
	Detections []predictedBox `json:"detections"`
}

// predictedBox keeps the box as a slice so a wrong element count is caught
// instead of being truncated or zero-filled.
type predictedBox struct {
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	Box        []float64 `json:"box"`
}

func NewHTTPEngine(baseURL string, timeout time.Duration) *HTTPEngine {
	return &HTTPEngine{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "detector",
			MaxRequests: 1,
			Interval:    30 * time.Second,
			Timeout:     15 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
			// A malformed answer means the server is up.
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, ErrInvalidResponse)
			},
		}),
	}
}

func (e *HTTPEngine) Name() string { return "http" }

func (e *HTTPEngine) Detect(ctx context.Context, img []byte) ([]models.Detection, error) {
	out, err := e.breaker.Execute(func() (interface{}, error) {
		return e.predict(ctx, img)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	if err != nil {
		return nil, err
	}
	return out.([]models.Detection), nil
}

func (e *HTTPEngine) predict(ctx context.Context, img []byte) ([]models.Detection, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/predict", bytes.NewReader(img))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", http.DetectContentType(img))
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: status %d", ErrEngineUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrInvalidResponse, resp.StatusCode)
	}

	var body predictResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrInvalidResponse, err)
	}
	detections := make([]models.Detection, 0, len(body.Detections))
	for i, d := range body.Detections {
		if err := validateDetection(d); err != nil {
			return nil, fmt.Errorf("%w: detection %d: %v", ErrInvalidResponse, i, err)
		}
		detections = append(detections, models.Detection{
			Label:      d.Label,
			Confidence: d.Confidence,
			Box:        [4]float64(d.Box),
		})
	}
	return detections, nil
}

// Ready checks that the inference server answers its health endpoint.
func (e *HTTPEngine) Ready(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrEngineUnavailable, resp.StatusCode)
	}
	return nil
}

func validateDetection(d predictedBox) error {
	if len(d.Box) != 4 {
		return fmt.Errorf("box has %d values, want 4", len(d.Box))
	}
	if d.Label == "" {
		return errors.New("empty label")
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("confidence %v outside [0,1]", d.Confidence)
	}
	if d.Box[2] < d.Box[0] || d.Box[3] < d.Box[1] {
		return fmt.Errorf("box %v has x2<x1 or y2<y1", d.Box)
	}
	return nil
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrEngineTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrEngineTimeout, err)
	}

	return fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
}

var _ models.Detector = (*HTTPEngine)(nil)
