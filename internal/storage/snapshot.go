// Package storage persists the movement collection as a single snapshot.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"flujo/internal/core"
)

// SnapshotKey is the fixed key the collection is stored under.
const SnapshotKey = "flujo_caja_data"

var errSnapshotMissing = errors.New("snapshot missing")

// SnapshotStore loads and saves the whole collection. A store that has
// never been saved loads as an empty collection.
type SnapshotStore interface {
	Load(ctx context.Context) ([]core.Movement, error)
	Save(ctx context.Context, rows []core.Movement) error
	Clear(ctx context.Context) error
	Close() error
}

func encode(rows []core.Movement) ([]byte, error) {
	if rows == nil {
		rows = []core.Movement{}
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

func decode(data []byte) ([]core.Movement, error) {
	var rows []core.Movement
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return rows, nil
}

// MemoryStore keeps the encoded snapshot in process memory.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string][]byte{}}
}

func (m *MemoryStore) Load(ctx context.Context) ([]core.Movement, error) {
	data, err := m.get()
	if errors.Is(err, errSnapshotMissing) {
		return nil, nil
	}
	return decode(data)
}

func (m *MemoryStore) get() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[SnapshotKey]
	if !ok {
		return nil, errSnapshotMissing
	}
	return data, nil
}

func (m *MemoryStore) Save(ctx context.Context, rows []core.Movement) error {
	data, err := encode(rows)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[SnapshotKey] = data
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, SnapshotKey)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
