package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/NethraK15/Giza-Global-Eval-Task/internal/api/middleware"
	"github.com/NethraK15/Giza-Global-Eval-Task/internal/api/response"
	"github.com/NethraK15/Giza-Global-Eval-Task/internal/store"
	"github.com/NethraK15/Giza-Global-Eval-Task/pkg/models"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	apiKeyPrefix     = "gz_"
	apiKeyRandomLen  = 24
	maxKeyNameLength = 100
)

// KeyStore persists API keys.
type KeyStore interface {
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
}

type createKeyResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Key       string    `json:"key"`
	CreatedAt time.Time `json:"created_at"`
}

// NewCreateKeyHandler returns an http.HandlerFunc for POST /api/v1/keys. The
// raw key is returned once and only its bcrypt hash is stored.
func NewCreateKeyHandler(keys KeyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := middleware.GetOwnerID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing owner", nil)
			return
		}

		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" || len(req.Name) > maxKeyNameLength {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				fmt.Sprintf("name is required and at most %d characters", maxKeyNameLength), nil)
			return
		}

		rawKey, err := generateAPIKey()
		if err != nil {
			slog.Error("generating api key failed", "owner_id", ownerID, "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create key", nil)
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(rawKey), bcrypt.DefaultCost)
		if err != nil {
			slog.Error("hashing api key failed", "owner_id", ownerID, "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create key", nil)
			return
		}

		key := &models.APIKey{
			ID:        uuid.New(),
			OwnerID:   ownerID,
			Name:      req.Name,
			KeyHash:   string(hash),
			KeyPrefix: rawKey[:models.APIKeyLookupLen],
			CreatedAt: time.Now().UTC(),
		}
		if err := keys.CreateAPIKey(r.Context(), key); err != nil {
			if errors.Is(err, store.ErrDuplicateKey) {
				response.Error(w, http.StatusConflict, "DUPLICATE_KEY", "API key already exists", nil)
				return
			}
			slog.Error("storing api key failed", "owner_id", ownerID, "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create key", nil)
			return
		}

		slog.Info("api key created", "owner_id", ownerID, "key_id", key.ID, "key_prefix", key.KeyPrefix)
		response.Created(w, createKeyResponse{
			ID:        key.ID.String(),
			Name:      key.Name,
			Key:       rawKey,
			CreatedAt: key.CreatedAt,
		})
	}
}

func generateAPIKey() (string, error) {
	b := make([]byte, apiKeyRandomLen)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return apiKeyPrefix + hex.EncodeToString(b), nil
}
