package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const (
	ownerIDKey          contextKey = "owner_id"
	rateLimitSubjectKey contextKey = "rate_limit_subject"
	ownerHolderKey      contextKey = "owner_holder"
)

type ownerHolder struct {
	id  uuid.UUID
	set bool
}

func withOwnerHolder(ctx context.Context, h *ownerHolder) context.Context {
	return context.WithValue(ctx, ownerHolderKey, h)
}

// SetOwnerID records the authenticated owner. The access log picks it up
// when a Logger sits earlier in the chain.
func SetOwnerID(ctx context.Context, id uuid.UUID) context.Context {
	if h, ok := ctx.Value(ownerHolderKey).(*ownerHolder); ok {
		h.id, h.set = id, true
	}
	return context.WithValue(ctx, ownerIDKey, id)
}

func GetOwnerID(r *http.Request) (uuid.UUID, bool) {
	id, ok := r.Context().Value(ownerIDKey).(uuid.UUID)
	return id, ok
}

func setRateLimitSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, rateLimitSubjectKey, subject)
}

func getRateLimitSubject(r *http.Request) (string, bool) {
	subject, ok := r.Context().Value(rateLimitSubjectKey).(string)
	return subject, ok && subject != ""
}
