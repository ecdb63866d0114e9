package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/bjeschke/solanahub/internal/domain"
	"github.com/bjeschke/solanahub/internal/storage"
)

// TokenRecordStore is an in-memory implementation of storage.TokenRecordStore.
type TokenRecordStore struct {
	mu      sync.RWMutex
	byOwner map[string]map[string]*domain.TokenRecord // owner -> mint -> record
}

// NewTokenRecordStore creates a new in-memory token record store.
func NewTokenRecordStore() *TokenRecordStore {
	return &TokenRecordStore{
		byOwner: make(map[string]map[string]*domain.TokenRecord),
	}
}

// Save upserts a record, last write wins on (owner, mint).
func (s *TokenRecordStore) Save(_ context.Context, rec *domain.TokenRecord) error {
	if rec == nil || rec.Owner == "" || rec.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	mints, exists := s.byOwner[rec.Owner]
	if !exists {
		mints = make(map[string]*domain.TokenRecord)
		s.byOwner[rec.Owner] = mints
	}

	recCopy := *rec
	mints[rec.Mint] = &recCopy
	return nil
}

// List returns the owner's records, newest first.
func (s *TokenRecordStore) List(_ context.Context, owner string) ([]*domain.TokenRecord, error) {
	if owner == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	mints := s.byOwner[owner]
	records := make([]*domain.TokenRecord, 0, len(mints))
	for _, rec := range mints {
		recCopy := *rec
		records = append(records, &recCopy)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt > records[j].CreatedAt
	})
	return records, nil
}

// Remove deletes a record. Returns ErrNotFound if absent.
func (s *TokenRecordStore) Remove(_ context.Context, owner, mint string) error {
	if owner == "" || mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	mints, exists := s.byOwner[owner]
	if !exists {
		return storage.ErrNotFound
	}
	if _, exists := mints[mint]; !exists {
		return storage.ErrNotFound
	}

	delete(mints, mint)
	return nil
}

var _ storage.TokenRecordStore = (*TokenRecordStore)(nil)
