package memory

import (
	"context"
	"sync"

	"github.com/bjeschke/solanahub/internal/domain"
	"github.com/bjeschke/solanahub/internal/storage"
)

// MetadataLookupStore is an in-memory implementation of
// storage.MetadataLookupStore.
type MetadataLookupStore struct {
	mu      sync.RWMutex
	byOwner map[string][]*domain.MetadataLookup // newest first
}

// NewMetadataLookupStore creates a new in-memory metadata lookup store.
func NewMetadataLookupStore() *MetadataLookupStore {
	return &MetadataLookupStore{
		byOwner: make(map[string][]*domain.MetadataLookup),
	}
}

// Save records a lookup at the front of the owner's history. A repeat mint
// is moved to the front; the history is trimmed to the limit.
func (s *MetadataLookupStore) Save(_ context.Context, l *domain.MetadataLookup) error {
	if l == nil || l.Owner == "" || l.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.byOwner[l.Owner]

	// Drop any prior entry for the same mint
	filtered := make([]*domain.MetadataLookup, 0, len(history)+1)
	lCopy := *l
	filtered = append(filtered, &lCopy)
	for _, entry := range history {
		if entry.Mint != l.Mint {
			filtered = append(filtered, entry)
		}
	}

	if len(filtered) > domain.MetadataLookupHistoryLimit {
		filtered = filtered[:domain.MetadataLookupHistoryLimit]
	}
	s.byOwner[l.Owner] = filtered
	return nil
}

// List returns the owner's history, newest first.
func (s *MetadataLookupStore) List(_ context.Context, owner string) ([]*domain.MetadataLookup, error) {
	if owner == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.byOwner[owner]
	result := make([]*domain.MetadataLookup, 0, len(history))
	for _, entry := range history {
		entryCopy := *entry
		result = append(result, &entryCopy)
	}
	return result, nil
}

var _ storage.MetadataLookupStore = (*MetadataLookupStore)(nil)
