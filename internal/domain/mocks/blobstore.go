// Package mocks provides hand-written mock implementations of ports for
// tests.
package mocks

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/graftdb/graft/internal/domain/entities"
)

// BlobStore is a mock implementation of ports.BlobStore. Set Err to make
// every call fail, or PutErr to fail only writes (for WAL append-failure
// tests).
type BlobStore struct {
	mu     sync.Mutex
	Blobs  map[string][]byte
	Err    error
	PutErr error
	// Puts records the keys written, in order.
	Puts []string
}

// NewBlobStore creates a new mock BlobStore.
func NewBlobStore() *BlobStore {
	return &BlobStore{Blobs: make(map[string][]byte)}
}

// Put writes data under key.
func (m *BlobStore) Put(_ context.Context, key string, data []byte) error {
	if m.Err != nil {
		return m.Err
	}
	if m.PutErr != nil {
		return m.PutErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	m.Blobs[key] = cp
	m.Puts = append(m.Puts, key)
	return nil
}

// Get returns the blob bytes or entities.ErrNotFound.
func (m *BlobStore) Get(_ context.Context, key string) ([]byte, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.Blobs[key]
	if !ok {
		return nil, fmt.Errorf("blob %q: %w", key, entities.ErrNotFound)
	}
	return data, nil
}

// List returns all keys with the given prefix, sorted.
func (m *BlobStore) List(_ context.Context, prefix string) ([]string, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for key := range m.Blobs {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Delete removes the given keys; missing keys are ignored.
func (m *BlobStore) Delete(_ context.Context, keys []string) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.Blobs, key)
	}
	return nil
}
