package detect

import "errors"

var (
	ErrEngineUnavailable = errors.New("detection engine unavailable")
	ErrEngineTimeout     = errors.New("detection engine timeout")
	ErrInvalidResponse   = errors.New("detection engine returned invalid response")
)
