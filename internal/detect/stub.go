package detect

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/NethraK15/Giza-Global-Eval-Task/pkg/models"
)

// StubEngine stands in for a real model. It reports a diagram covering the
// whole image and one instrument in its centre quarter.
type StubEngine struct{}

func NewStubEngine() *StubEngine {
	return &StubEngine{}
}

func (e *StubEngine) Name() string { return "stub" }

func (e *StubEngine) Detect(ctx context.Context, img []byte) ([]models.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngineTimeout, err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		return nil, fmt.Errorf("stub engine: read image header: %w", err)
	}
	w, h := float64(cfg.Width), float64(cfg.Height)

	return []models.Detection{
		{Label: "pid_diagram", Confidence: 0.95, Box: [4]float64{0, 0, w, h}},
		{Label: "instrument", Confidence: 0.95, Box: [4]float64{w / 4, h / 4, 3 * w / 4, 3 * h / 4}},
	}, nil
}

var _ models.Detector = (*StubEngine)(nil)
