package repository

import (
	"context"
	"sync"
	"time"

	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/questions"
	"github.com/google/uuid"
)

// MemoryRepo keeps the catalog in process. Callers receive copies.
type MemoryRepo struct {
	mu    sync.RWMutex
	store map[string]*questions.PastQuestion
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[string]*questions.PastQuestion)}
}

func (m *MemoryRepo) Create(ctx context.Context, q *questions.PastQuestion) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	if q.UpdatedAt.IsZero() {
		q.UpdatedAt = q.CreatedAt
	}
	cp := *q
	m.store[q.ID] = &cp
	return q.ID, nil
}

func (m *MemoryRepo) Get(ctx context.Context, id string) (*questions.PastQuestion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if q, ok := m.store[id]; ok {
		cp := *q
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (m *MemoryRepo) List(ctx context.Context) ([]*questions.PastQuestion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*questions.PastQuestion, 0, len(m.store))
	for _, q := range m.store {
		cp := *q
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MemoryRepo) IncrementDownloads(ctx context.Context, id string) (*questions.PastQuestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	q.Downloads++
	q.UpdatedAt = time.Now().UTC()
	cp := *q
	return &cp, nil
}

func (m *MemoryRepo) Count(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.store)), nil
}
