package models

import (
	"time"

	"github.com/google/uuid"
)

// APIKeyLookupLen is how many leading characters of a raw key are stored in
// the clear and used to find candidate hashes.
const APIKeyLookupLen = 8

// APIKey is a bearer credential for non-interactive clients.
// Raw keys are shown once at creation; only the bcrypt hash is stored.
type APIKey struct {
	ID         uuid.UUID  `db:"id"           json:"id"`
	OwnerID    uuid.UUID  `db:"owner_id"     json:"owner_id"`
	Name       string     `db:"name"         json:"name"`
	KeyHash    string     `db:"key_hash"     json:"-"`
	KeyPrefix  string     `db:"key_prefix"   json:"key_prefix"`
	LastUsedAt *time.Time `db:"last_used_at" json:"last_used_at,omitempty"`
	DeletedAt  *time.Time `db:"deleted_at"   json:"-"`
	CreatedAt  time.Time  `db:"created_at"   json:"created_at"`
}

// APIKeyLookupPrefix returns the stored lookup prefix of a raw key, or false
// when the key is too short to have one.
func APIKeyLookupPrefix(raw string) (string, bool) {
	if len(raw) < APIKeyLookupLen {
		return "", false
	}
	return raw[:APIKeyLookupLen], true
}

// Revoked reports whether the key has been soft-deleted.
func (k *APIKey) Revoked() bool {
	return k.DeletedAt != nil
}
