package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultOwnerID is the owner seeded by the initial migration.
var DefaultOwnerID = uuid.MustParse("00000000-0000-0000-0000-000000000000")

// Owner is a principal that submits jobs. Every job and API key belongs to one.
type Owner struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	Email     string    `db:"email"      json:"email"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
