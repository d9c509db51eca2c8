// Package detect provides the detection engines behind models.Detector.
package detect

import (
	"fmt"

	"github.com/NethraK15/Giza-Global-Eval-Task/internal/config"
	"github.com/NethraK15/Giza-Global-Eval-Task/pkg/models"
)

// NewEngine constructs the detection engine named by cfg.Provider.
// Called once at worker startup.
func NewEngine(cfg config.DetectorConfig) (models.Detector, error) {
	switch cfg.Provider {
	case "stub":
		return NewStubEngine(), nil
	case "http":
		return NewHTTPEngine(cfg.BaseURL, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown detection engine %q: must be one of stub, http", cfg.Provider)
	}
}
