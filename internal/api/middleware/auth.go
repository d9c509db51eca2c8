package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/NethraK15/Giza-Global-Eval-Task/internal/api/response"
	"github.com/NethraK15/Giza-Global-Eval-Task/internal/store"
	"github.com/NethraK15/Giza-Global-Eval-Task/pkg/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var errInvalidCredentials = errors.New("invalid credentials")

// CredentialStore is the subset of the store the auth middleware reads.
type CredentialStore interface {
	GetOwner(ctx context.Context, id uuid.UUID) (*models.Owner, error)
	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
}

// Auth resolves the owner of a request from a Bearer credential. Two schemes
// are accepted: HS256 tokens whose subject is the owner ID, and API keys
// looked up by prefix and verified with bcrypt.
type Auth struct {
	store  CredentialStore
	secret []byte
}

// NewAuth creates a new Auth middleware.
func NewAuth(s CredentialStore, secret string) *Auth {
	return &Auth{store: s, secret: []byte(secret)}
}

// Authenticate validates the Bearer credential and sets owner_id and the
// rate-limit subject in the request context.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := extractBearerToken(r)
		if raw == "" {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Missing or invalid Authorization header", nil)
			return
		}

		var (
			ownerID uuid.UUID
			subject string
			err     error
		)
		if strings.Count(raw, ".") == 2 {
			ownerID, err = a.verifyToken(r.Context(), raw)
			subject = "owner:" + ownerID.String()
		} else {
			ownerID, err = a.verifyAPIKey(r.Context(), raw)
			if prefix, ok := models.APIKeyLookupPrefix(raw); ok {
				subject = "key:" + prefix
			}
		}
		if errors.Is(err, errInvalidCredentials) {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Could not validate credentials", nil)
			return
		}
		if err != nil {
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to validate credentials", nil)
			return
		}

		ctx := SetOwnerID(r.Context(), ownerID)
		ctx = setRateLimitSubject(ctx, subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Auth) verifyToken(ctx context.Context, raw string) (uuid.UUID, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return uuid.Nil, errInvalidCredentials
	}

	ownerID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, errInvalidCredentials
	}

	if _, err := a.store.GetOwner(ctx, ownerID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return uuid.Nil, errInvalidCredentials
		}
		return uuid.Nil, err
	}
	return ownerID, nil
}

func (a *Auth) verifyAPIKey(ctx context.Context, raw string) (uuid.UUID, error) {
	prefix, ok := models.APIKeyLookupPrefix(raw)
	if !ok {
		return uuid.Nil, errInvalidCredentials
	}

	keys, err := a.store.GetAPIKeyByPrefix(ctx, prefix)
	if err != nil {
		return uuid.Nil, err
	}

	for _, key := range keys {
		if key.Revoked() {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(key.KeyHash), []byte(raw)) == nil {
			go a.touchAPIKey(key.ID)
			return key.OwnerID, nil
		}
	}
	return uuid.Nil, errInvalidCredentials
}

// touchAPIKey records key use. It runs off the request path, so a failure is
// only logged.
func (a *Auth) touchAPIKey(id uuid.UUID) {
	if err := a.store.UpdateAPIKeyLastUsed(context.Background(), id); err != nil {
		slog.Warn("updating api key last used failed", "key_id", id, "error", err)
	}
}

// IssueToken signs an HS256 token for ownerID. A zero ttl issues a token
// without expiry.
func IssueToken(secret string, ownerID uuid.UUID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:  ownerID.String(),
		IssuedAt: jwt.NewNumericDate(now),
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
