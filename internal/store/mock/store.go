// Package mock provides an in-memory store.Store for tests. It applies the
// same state machine as the Postgres store.
package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/NethraK15/Giza-Global-Eval-Task/internal/store"
	"github.com/NethraK15/Giza-Global-Eval-Task/pkg/models"
	"github.com/google/uuid"
)

// StatusUpdate records one successful UpdateJobStatus call.
type StatusUpdate struct {
	ID     uuid.UUID
	Status string
	Result *models.JobResult
}

// MemoryStore satisfies store.Store for testing.
type MemoryStore struct {
	mu      sync.Mutex
	owners  map[uuid.UUID]*models.Owner
	keys    map[uuid.UUID]*models.APIKey
	jobs    map[uuid.UUID]*models.Job
	updates []StatusUpdate

	// Injected failures. UpdateStatusErr applies only to the listed statuses
	// (all statuses when the list is empty).
	PingErr           error
	CreateJobErr      error
	UpdateStatusErr   error
	UpdateErrStatuses []string
}

// NewMemoryStore returns a store seeded with the default owner.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		owners: map[uuid.UUID]*models.Owner{
			models.DefaultOwnerID: {ID: models.DefaultOwnerID, Email: "test@example.com", CreatedAt: time.Now().UTC()},
		},
		keys: make(map[uuid.UUID]*models.APIKey),
		jobs: make(map[uuid.UUID]*models.Job),
	}
}

func (s *MemoryStore) Ping(_ context.Context) error { return s.PingErr }

func (s *MemoryStore) AddOwner(o *models.Owner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owners[o.ID] = o
}

func (s *MemoryStore) GetOwner(_ context.Context, id uuid.UUID) (*models.Owner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.owners[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *MemoryStore) GetAPIKeyByPrefix(_ context.Context, prefix string) ([]*models.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.APIKey
	for _, k := range s.keys {
		if k.KeyPrefix == prefix && !k.Revoked() {
			cp := *k
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemoryStore) UpdateAPIKeyLastUsed(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if k, ok := s.keys[id]; ok {
		now := time.Now().UTC()
		k.LastUsedAt = &now
	}
	return nil
}

func (s *MemoryStore) CreateAPIKey(_ context.Context, key *models.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range s.keys {
		if k.ID == key.ID || k.KeyHash == key.KeyHash {
			return store.ErrDuplicateKey
		}
	}
	cp := *key
	s.keys[key.ID] = &cp
	return nil
}

func (s *MemoryStore) CreateJob(_ context.Context, job *models.Job) error {
	if s.CreateJobErr != nil {
		return s.CreateJobErr
	}
	if job.Status != models.JobStatusQueued || job.Result != nil {
		return fmt.Errorf("create job: new jobs must be %s without a result", models.JobStatusQueued)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; ok {
		return store.ErrDuplicateKey
	}
	cp := *job
	s.jobs[job.ID] = &cp
	return nil
}

func (s *MemoryStore) GetJob(_ context.Context, id uuid.UUID, ownerID uuid.UUID) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok || j.OwnerID != ownerID {
		return nil, store.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (s *MemoryStore) ListJobs(_ context.Context, ownerID uuid.UUID) ([]*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*models.Job{}
	for _, j := range s.jobs {
		if j.OwnerID == ownerID {
			cp := *j
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) UpdateJobStatus(_ context.Context, id uuid.UUID, status string, opts ...store.JobUpdateOption) error {
	if s.UpdateStatusErr != nil && s.failsOn(status) {
		return s.UpdateStatusErr
	}
	upd := store.NewJobUpdate(opts...)
	if err := upd.Validate(status); err != nil {
		return fmt.Errorf("update job status: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return store.ErrNotFound
	}
	if !models.CanTransition(j.Status, status) {
		return fmt.Errorf("%w: %s -> %s", store.ErrInvalidTransition, j.Status, status)
	}

	now := time.Now().UTC()
	j.Status = status
	j.UpdatedAt = now
	j.Result = upd.Result
	if status == models.JobStatusProcessing {
		j.StartedAt = &now
	}
	if models.IsTerminal(status) {
		j.CompletedAt = &now
	}
	s.updates = append(s.updates, StatusUpdate{ID: id, Status: status, Result: upd.Result})
	return nil
}

func (s *MemoryStore) failsOn(status string) bool {
	if len(s.UpdateErrStatuses) == 0 {
		return true
	}
	for _, st := range s.UpdateErrStatuses {
		if st == status {
			return true
		}
	}
	return false
}

// Job returns the stored job regardless of owner, or nil.
func (s *MemoryStore) Job(id uuid.UUID) *models.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil
	}
	cp := *j
	return &cp
}

// JobCount returns how many jobs exist.
func (s *MemoryStore) JobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Updates returns every applied status change, in order.
func (s *MemoryStore) Updates() []StatusUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]StatusUpdate(nil), s.updates...)
}

// Compile-time check that MemoryStore implements Store.
var _ store.Store = (*MemoryStore)(nil)
