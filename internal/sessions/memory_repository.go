package sessions

import (
	"context"
	"sync"
)

// MemoryRepository keeps sessions in process memory. Used when neither Redis
// nor MongoDB is configured, and in tests.
type MemoryRepository struct {
	mu    sync.RWMutex
	store map[string][]byte
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{store: map[string][]byte{}}
}

func (m *MemoryRepository) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.store[key]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (m *MemoryRepository) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := make([]byte, len(value))
	copy(b, value)
	m.store[key] = b
	return nil
}

func (m *MemoryRepository) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, key)
	return nil
}

// Len returns the number of stored sessions.
func (m *MemoryRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store)
}
