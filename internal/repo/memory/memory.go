package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hamed0406/slotwatch/internal/domain"
)

// Store is a bounded in-memory alert log; the oldest entries fall off.
type Store struct {
	mu       sync.RWMutex
	capacity int
	alerts   []domain.AlertRecord
}

func New(capacity int) *Store {
	if capacity <= 0 {
		capacity = 100
	}
	return &Store{
		capacity: capacity,
		alerts:   make([]domain.AlertRecord, 0, capacity),
	}
}

func (m *Store) Record(ctx context.Context, r *domain.AlertRecord) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.SentAt.IsZero() {
		r.SentAt = time.Now().UTC()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.alerts) == m.capacity {
		m.alerts = append(m.alerts[:0], m.alerts[1:]...)
	}
	m.alerts = append(m.alerts, *r)
	return nil
}

func (m *Store) Recent(ctx context.Context, limit int) ([]domain.AlertRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 || limit > len(m.alerts) {
		limit = len(m.alerts)
	}
	out := make([]domain.AlertRecord, 0, limit)
	for i := len(m.alerts) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.alerts[i])
	}
	return out, nil
}
