package models

import "context"

// Detector is the capability every detection engine must implement.
// Engines are selected by configuration and injected into the worker.
type Detector interface {
	// Detect runs the model over an encoded image and returns detections in
	// the order the model produced them.
	Detect(ctx context.Context, image []byte) ([]Detection, error)
	// Name returns the engine identifier (e.g., "stub", "http").
	Name() string
}

// Detection is a single labeled bounding box. Box is [x1, y1, x2, y2] in
// pixel space of the source image.
type Detection struct {
	Label      string     `json:"label"`
	Confidence float64    `json:"confidence"`
	Box        [4]float64 `json:"box"`
}
