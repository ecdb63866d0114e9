package postgres

import (
	"context"
	"fmt"

	"github.com/bjeschke/solanahub/internal/domain"
	"github.com/bjeschke/solanahub/internal/storage"
)

// MetadataLookupStore implements storage.MetadataLookupStore using PostgreSQL.
type MetadataLookupStore struct {
	pool *Pool
}

// NewMetadataLookupStore creates a new MetadataLookupStore.
func NewMetadataLookupStore(pool *Pool) *MetadataLookupStore {
	return &MetadataLookupStore{pool: pool}
}

// Compile-time interface check.
var _ storage.MetadataLookupStore = (*MetadataLookupStore)(nil)

// Save records a lookup at the front of the owner's history. A repeat mint
// replaces its earlier entry; anything beyond the history limit is trimmed.
func (s *MetadataLookupStore) Save(ctx context.Context, l *domain.MetadataLookup) error {
	if l == nil || l.Owner == "" || l.Mint == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO metadata_lookups (
			owner, mint, name, symbol, uri, update_authority,
			description, image, looked_up_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (owner, mint) DO UPDATE SET
			name = EXCLUDED.name,
			symbol = EXCLUDED.symbol,
			uri = EXCLUDED.uri,
			update_authority = EXCLUDED.update_authority,
			description = EXCLUDED.description,
			image = EXCLUDED.image,
			looked_up_at = EXCLUDED.looked_up_at
	`

	_, err := s.pool.Exec(ctx, query,
		l.Owner,
		l.Mint,
		l.Name,
		l.Symbol,
		l.URI,
		l.UpdateAuthority,
		l.Description,
		l.Image,
		l.LookedUpAt,
	)
	if err != nil {
		return fmt.Errorf("save metadata lookup: %w", err)
	}

	// Trim entries beyond the newest N
	trim := `
		DELETE FROM metadata_lookups
		WHERE owner = $1 AND mint NOT IN (
			SELECT mint FROM metadata_lookups
			WHERE owner = $1
			ORDER BY looked_up_at DESC
			LIMIT $2
		)
	`
	if _, err := s.pool.Exec(ctx, trim, l.Owner, domain.MetadataLookupHistoryLimit); err != nil {
		return fmt.Errorf("trim metadata lookups: %w", err)
	}
	return nil
}

// List returns the owner's history, newest first.
func (s *MetadataLookupStore) List(ctx context.Context, owner string) ([]*domain.MetadataLookup, error) {
	if owner == "" {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT owner, mint, name, symbol, uri, update_authority,
		       description, image, looked_up_at
		FROM metadata_lookups
		WHERE owner = $1
		ORDER BY looked_up_at DESC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, owner, domain.MetadataLookupHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("list metadata lookups: %w", err)
	}
	defer rows.Close()

	var history []*domain.MetadataLookup
	for rows.Next() {
		var l domain.MetadataLookup
		err := rows.Scan(
			&l.Owner,
			&l.Mint,
			&l.Name,
			&l.Symbol,
			&l.URI,
			&l.UpdateAuthority,
			&l.Description,
			&l.Image,
			&l.LookedUpAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan metadata lookup: %w", err)
		}
		history = append(history, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metadata lookups: %w", err)
	}
	return history, nil
}
