package memory

import (
	"context"
	"sync"

	"github.com/bjeschke/solanahub/internal/domain"
	"github.com/bjeschke/solanahub/internal/storage"
)

// AttemptStore is an in-memory implementation of storage.AttemptStore.
type AttemptStore struct {
	mu       sync.RWMutex
	attempts []*domain.SubmissionAttempt // append order
}

// NewAttemptStore creates a new in-memory attempt store.
func NewAttemptStore() *AttemptStore {
	return &AttemptStore{}
}

// Insert appends an attempt.
func (s *AttemptStore) Insert(_ context.Context, a *domain.SubmissionAttempt) error {
	if a == nil || a.Actor == "" || a.Operation == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	aCopy := *a
	s.attempts = append(s.attempts, &aCopy)
	return nil
}

// GetByActor returns the actor's attempts, newest first, at most limit.
func (s *AttemptStore) GetByActor(_ context.Context, actor string, limit int) ([]*domain.SubmissionAttempt, error) {
	if actor == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SubmissionAttempt
	for i := len(s.attempts) - 1; i >= 0; i-- {
		if s.attempts[i].Actor != actor {
			continue
		}
		aCopy := *s.attempts[i]
		result = append(result, &aCopy)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

// GetByMint returns every attempt touching a mint, newest first.
func (s *AttemptStore) GetByMint(_ context.Context, mint string) ([]*domain.SubmissionAttempt, error) {
	if mint == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SubmissionAttempt
	for i := len(s.attempts) - 1; i >= 0; i-- {
		if s.attempts[i].Mint != mint {
			continue
		}
		aCopy := *s.attempts[i]
		result = append(result, &aCopy)
	}
	return result, nil
}

var _ storage.AttemptStore = (*AttemptStore)(nil)
