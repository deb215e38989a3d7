package history

import (
	"context"
	"fmt"
	"sync"

	"chatrelay/internal/gateway/entity"
)

// DefaultMemoryCapacity bounds a MemoryStore created without a capacity.
const DefaultMemoryCapacity = 1000

// MemoryStore keeps the most recent messages in process. It is what the
// relay uses when no database is configured, which matches a plain restart
// losing everything.
type MemoryStore struct {
	mu       sync.RWMutex
	capacity int
	data     []entity.Message
	maxID    int64
	closed   bool
}

// NewMemoryStore retains at most capacity messages, dropping the oldest.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryStore{capacity: capacity}
}

func (s *MemoryStore) Append(_ context.Context, msg entity.Message) error {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}
	s.data = append(s.data, msg)
	if over := len(s.data) - s.capacity; over > 0 {
		s.data = append([]entity.Message(nil), s.data[over:]...)
	}
	if msg.ID > s.maxID {
		s.maxID = msg.ID
	}
	return nil
}

func (s *MemoryStore) Recent(_ context.Context, limit int) ([]entity.Message, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := 0
	if limit > 0 && len(s.data) > limit {
		start = len(s.data) - limit
	}
	return append([]entity.Message(nil), s.data[start:]...), nil
}

func (s *MemoryStore) MaxID(_ context.Context) (int64, error) {
	if s == nil {
		return 0, fmt.Errorf("store is nil")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxID, nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	s.mu.Lock()
	s.data = nil
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
