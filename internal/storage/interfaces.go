package storage

import (
	"context"

	"github.com/bjeschke/solanahub/internal/domain"
)

// TokenRecordStore persists per-owner summaries of created tokens. It is a
// display cache, not a source of truth: chain state always wins. Saves are
// last-write-wins on (owner, mint); there is no merge.
type TokenRecordStore interface {
	// Save upserts a record. A later save for the same (owner, mint)
	// replaces the earlier one entirely.
	Save(ctx context.Context, rec *domain.TokenRecord) error

	// List returns the owner's records, newest first. Records of other
	// owners are never visible.
	List(ctx context.Context, owner string) ([]*domain.TokenRecord, error)

	// Remove deletes a record. Returns ErrNotFound if absent.
	Remove(ctx context.Context, owner, mint string) error
}

// MetadataLookupStore keeps a bounded most-recent-first history of metadata
// lookups per owner. A repeat lookup of the same mint moves it to the front
// instead of duplicating it; entries beyond the bound are dropped.
type MetadataLookupStore interface {
	// Save records a lookup at the front of the owner's history.
	Save(ctx context.Context, l *domain.MetadataLookup) error

	// List returns at most domain.MetadataLookupHistoryLimit entries,
	// newest first.
	List(ctx context.Context, owner string) ([]*domain.MetadataLookup, error)
}

// AttemptStore is the append-only audit trail of transaction submissions.
// Writes are best effort from the caller's perspective: an audit failure
// never fails the user's operation.
type AttemptStore interface {
	// Insert appends an attempt.
	Insert(ctx context.Context, a *domain.SubmissionAttempt) error

	// GetByActor returns the actor's attempts, newest first, at most limit.
	GetByActor(ctx context.Context, actor string, limit int) ([]*domain.SubmissionAttempt, error)

	// GetByMint returns every attempt touching a mint, newest first.
	GetByMint(ctx context.Context, mint string) ([]*domain.SubmissionAttempt, error)
}
