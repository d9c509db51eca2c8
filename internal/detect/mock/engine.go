package mock

import (
	"context"

	"github.com/NethraK15/Giza-Global-Eval-Task/internal/detect"
	"github.com/NethraK15/Giza-Global-Eval-Task/pkg/models"
)

// MockEngine satisfies models.Detector for testing.
type MockEngine struct {
	Name_      string
	DetectFunc func(ctx context.Context, image []byte) ([]models.Detection, error)
	Calls      int
}

func (m *MockEngine) Name() string { return m.Name_ }

func (m *MockEngine) Detect(ctx context.Context, image []byte) ([]models.Detection, error) {
	m.Calls++
	if m.DetectFunc != nil {
		return m.DetectFunc(ctx, image)
	}
	return []models.Detection{}, nil
}

// Detections is the fixed answer of NewMockEngine.
func Detections() []models.Detection {
	return []models.Detection{
		{Label: "valve", Confidence: 0.87, Box: [4]float64{10, 10, 40, 40}},
		{Label: "pipe", Confidence: 0.6, Box: [4]float64{50, 5, 90, 30}},
	}
}

// NewMockEngine returns a MockEngine that always reports a valve and a pipe.
func NewMockEngine() *MockEngine {
	return &MockEngine{
		Name_: "mock",
		DetectFunc: func(_ context.Context, _ []byte) ([]models.Detection, error) {
			return Detections(), nil
		},
	}
}

// NewFailingEngine returns a MockEngine that always returns the given error.
func NewFailingEngine(err error) *MockEngine {
	return &MockEngine{
		Name_: "mock-failing",
		DetectFunc: func(_ context.Context, _ []byte) ([]models.Detection, error) {
			return nil, err
		},
	}
}

// NewPanickingEngine returns a MockEngine that panics on Detect.
func NewPanickingEngine() *MockEngine {
	return &MockEngine{
		Name_: "mock-panicking",
		DetectFunc: func(_ context.Context, _ []byte) ([]models.Detection, error) {
			panic("model crashed")
		},
	}
}

// NewTimeoutEngine returns a MockEngine that blocks until ctx is done.
func NewTimeoutEngine() *MockEngine {
	return &MockEngine{
		Name_: "mock-timeout",
		DetectFunc: func(ctx context.Context, _ []byte) ([]models.Detection, error) {
			<-ctx.Done()
			return nil, detect.ErrEngineTimeout
		},
	}
}

// Compile-time check that MockEngine implements Detector.
var _ models.Detector = (*MockEngine)(nil)
