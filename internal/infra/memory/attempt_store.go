package memory

import (
	"context"
	"sync"

	"managemind-quiz-service/internal/domain"
)

// AttemptStore keeps practice attempts in a map.
type AttemptStore struct {
	mu       sync.RWMutex
	attempts map[string]domain.AttemptRecord
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{attempts: make(map[string]domain.AttemptRecord)}
}

func (s *AttemptStore) SaveAttempt(_ context.Context, record domain.AttemptRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[record.ID] = record
	return nil
}

func (s *AttemptStore) Attempt(_ context.Context, id string) (domain.AttemptRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.attempts[id]
	if !ok {
		return domain.AttemptRecord{}, domain.ErrAttemptNotFound
	}
	return record, nil
}
