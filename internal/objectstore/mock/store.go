// Package mock provides an in-memory objectstore.Store for tests.
package mock

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/NethraK15/Giza-Global-Eval-Task/internal/objectstore"
)

type object struct {
	data        []byte
	contentType string
}

// MemoryStore satisfies objectstore.Store for testing.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string]object
	puts    []string

	PutErr error
	GetErr error
	// FailPutKeys makes Put fail only for these keys.
	FailPutKeys map[string]bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]object)}
}

func path(bucket, key string) string { return bucket + "/" + key }

func (m *MemoryStore) Put(_ context.Context, bucket, key string, r io.Reader, _ int64, contentType string) error {
	if m.PutErr != nil {
		return m.PutErr
	}
	if m.FailPutKeys[key] {
		return fmt.Errorf("put %s: injected failure", key)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[path(bucket, key)] = object{data: data, contentType: contentType}
	m.puts = append(m.puts, key)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, bucket, key string) (*objectstore.Object, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.objects[path(bucket, key)]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", key, objectstore.ErrObjectNotFound)
	}
	return &objectstore.Object{
		Body:        io.NopCloser(bytes.NewReader(o.data)),
		ContentType: o.contentType,
		Size:        int64(len(o.data)),
	}, nil
}

func (m *MemoryStore) EnsureBucket(_ context.Context, _ string) error { return nil }

func (m *MemoryStore) Ping(_ context.Context, _ string) error { return m.GetErr }

// Data returns the stored bytes and content type of an object.
func (m *MemoryStore) Data(bucket, key string) ([]byte, string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.objects[path(bucket, key)]
	return o.data, o.contentType, ok
}

// Puts lists every successfully written key, in order.
func (m *MemoryStore) Puts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.puts...)
}

var _ objectstore.Store = (*MemoryStore)(nil)
