package models

// DispatchMessage is the queue payload handed from the API to the worker.
// It carries just enough to find the job row and its input artifact.
type DispatchMessage struct {
	JobID     string `json:"job_id"     validate:"required,uuid"`
	OwnerID   string `json:"owner_id"   validate:"required,uuid"`
	Bucket    string `json:"bucket"     validate:"required"`
	InputPath string `json:"input_path" validate:"required"`
}
