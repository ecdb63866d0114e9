package postgres

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjeschke/solanahub/internal/domain"
	"github.com/bjeschke/solanahub/internal/storage"
)

func testLookup(owner, mint string, lookedUpAt int64) *domain.MetadataLookup {
	return &domain.MetadataLookup{
		Owner:           owner,
		Mint:            mint,
		Name:            "Sample Token",
		Symbol:          "SMPL",
		URI:             "https://gateway.pinata.cloud/ipfs/QmMetadata",
		UpdateAuthority: owner,
		Description:     "a sample",
		Image:           "https://gateway.pinata.cloud/ipfs/QmImage",
		LookedUpAt:      lookedUpAt,
	}
}

func TestMetadataLookupStore_SaveAndList(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewMetadataLookupStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testLookup("owner-1", "mint-1", 1000)))
	require.NoError(t, store.Save(ctx, testLookup("owner-1", "mint-2", 2000)))

	got, err := store.List(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "mint-2", got[0].Mint)
	assert.Equal(t, "mint-1", got[1].Mint)
	assert.Equal(t, "Sample Token", got[0].Name)
	assert.Equal(t, "a sample", got[0].Description)
}

func TestMetadataLookupStore_RepeatMintMovesToFront(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewMetadataLookupStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testLookup("owner-1", "mint-1", 1000)))
	require.NoError(t, store.Save(ctx, testLookup("owner-1", "mint-2", 2000)))

	again := testLookup("owner-1", "mint-1", 3000)
	again.Name = "Refetched"
	require.NoError(t, store.Save(ctx, again))

	got, err := store.List(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "mint-1", got[0].Mint)
	assert.Equal(t, "Refetched", got[0].Name)
	assert.Equal(t, int64(3000), got[0].LookedUpAt)
	assert.Equal(t, "mint-2", got[1].Mint)
}

func TestMetadataLookupStore_BoundedHistory(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewMetadataLookupStore(pool)
	ctx := context.Background()

	total := domain.MetadataLookupHistoryLimit + 3
	for i := 0; i < total; i++ {
		l := testLookup("owner-1", fmt.Sprintf("mint-%02d", i), int64(1000+i))
		require.NoError(t, store.Save(ctx, l))
	}

	got, err := store.List(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, got, domain.MetadataLookupHistoryLimit)

	// Oldest entries were dropped
	assert.Equal(t, fmt.Sprintf("mint-%02d", total-1), got[0].Mint)
	assert.Equal(t, fmt.Sprintf("mint-%02d", total-domain.MetadataLookupHistoryLimit), got[len(got)-1].Mint)
}

func TestMetadataLookupStore_OwnerScoped(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewMetadataLookupStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testLookup("owner-1", "mint-1", 1000)))
	require.NoError(t, store.Save(ctx, testLookup("owner-2", "mint-2", 2000)))

	got, err := store.List(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "mint-1", got[0].Mint)
}

func TestMetadataLookupStore_InvalidInput(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewMetadataLookupStore(pool)
	ctx := context.Background()

	assert.ErrorIs(t, store.Save(ctx, nil), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.Save(ctx, testLookup("", "mint-1", 1)), storage.ErrInvalidInput)

	_, err := store.List(ctx, "")
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
