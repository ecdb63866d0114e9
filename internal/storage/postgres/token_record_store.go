package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bjeschke/solanahub/internal/domain"
	"github.com/bjeschke/solanahub/internal/storage"
)

// TokenRecordStore implements storage.TokenRecordStore using PostgreSQL.
type TokenRecordStore struct {
	pool *Pool
}

// NewTokenRecordStore creates a new TokenRecordStore.
func NewTokenRecordStore(pool *Pool) *TokenRecordStore {
	return &TokenRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenRecordStore = (*TokenRecordStore)(nil)

// Save upserts a record, last write wins on (owner, mint).
func (s *TokenRecordStore) Save(ctx context.Context, rec *domain.TokenRecord) error {
	if rec == nil || rec.Owner == "" || rec.Mint == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO token_records (
			owner, mint, name, symbol, decimals, metadata_uri, image_uri,
			network, mint_authority, freeze_authority, update_authority, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (owner, mint) DO UPDATE SET
			name = EXCLUDED.name,
			symbol = EXCLUDED.symbol,
			decimals = EXCLUDED.decimals,
			metadata_uri = EXCLUDED.metadata_uri,
			image_uri = EXCLUDED.image_uri,
			network = EXCLUDED.network,
			mint_authority = EXCLUDED.mint_authority,
			freeze_authority = EXCLUDED.freeze_authority,
			update_authority = EXCLUDED.update_authority,
			created_at = EXCLUDED.created_at
	`

	_, err := s.pool.Exec(ctx, query,
		rec.Owner,
		rec.Mint,
		rec.Name,
		rec.Symbol,
		rec.Decimals,
		rec.MetadataURI,
		rec.ImageURI,
		rec.Network,
		rec.MintAuthority,
		rec.FreezeAuthority,
		rec.UpdateAuthority,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save token record: %w", err)
	}
	return nil
}

// List returns the owner's records, newest first.
func (s *TokenRecordStore) List(ctx context.Context, owner string) ([]*domain.TokenRecord, error) {
	if owner == "" {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT owner, mint, name, symbol, decimals, metadata_uri, image_uri,
		       network, mint_authority, freeze_authority, update_authority, created_at
		FROM token_records
		WHERE owner = $1
		ORDER BY created_at DESC
	`

	rows, err := s.pool.Query(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("list token records: %w", err)
	}
	defer rows.Close()

	var records []*domain.TokenRecord
	for rows.Next() {
		rec, err := scanTokenRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token records: %w", err)
	}
	return records, nil
}

// Remove deletes a record. Returns ErrNotFound if absent.
func (s *TokenRecordStore) Remove(ctx context.Context, owner, mint string) error {
	if owner == "" || mint == "" {
		return storage.ErrInvalidInput
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM token_records WHERE owner = $1 AND mint = $2`, owner, mint)
	if err != nil {
		return fmt.Errorf("remove token record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanTokenRecord scans a single row into TokenRecord.
func scanTokenRecord(row pgx.Row) (*domain.TokenRecord, error) {
	var rec domain.TokenRecord

	err := row.Scan(
		&rec.Owner,
		&rec.Mint,
		&rec.Name,
		&rec.Symbol,
		&rec.Decimals,
		&rec.MetadataURI,
		&rec.ImageURI,
		&rec.Network,
		&rec.MintAuthority,
		&rec.FreezeAuthority,
		&rec.UpdateAuthority,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &rec, nil
}
