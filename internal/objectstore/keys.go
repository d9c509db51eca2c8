package objectstore

import (
	"fmt"

	"github.com/google/uuid"
)

// Every artifact of a job lives under {owner_id}/{job_id}/.

func InputKey(ownerID, jobID uuid.UUID) string {
	return fmt.Sprintf("%s/%s/input.png", ownerID, jobID)
}

func OverlayKey(ownerID, jobID uuid.UUID) string {
	return fmt.Sprintf("%s/%s/overlay.png", ownerID, jobID)
}

func CSVKey(ownerID, jobID uuid.UUID) string {
	return fmt.Sprintf("%s/%s/results.csv", ownerID, jobID)
}
