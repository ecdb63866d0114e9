package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/bjeschke/solanahub/internal/domain"
)

func TestMetadataLookupStore_SaveAndList(t *testing.T) {
	store := NewMetadataLookupStore()
	ctx := context.Background()

	l := &domain.MetadataLookup{
		Owner:      "owner1",
		Mint:       "mint1",
		Name:       "Example",
		Symbol:     "EXT",
		URI:        "https://gateway.pinata.cloud/ipfs/QmHash",
		LookedUpAt: 1704067200000,
	}

	if err := store.Save(ctx, l); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	history, err := store.List(ctx, "owner1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("len = %d, want 1", len(history))
	}
	if history[0].Name != "Example" {
		t.Errorf("name = %s", history[0].Name)
	}
}

func TestMetadataLookupStore_Bounded(t *testing.T) {
	store := NewMetadataLookupStore()
	ctx := context.Background()

	for i := 0; i < domain.MetadataLookupHistoryLimit+5; i++ {
		l := &domain.MetadataLookup{
			Owner:      "owner1",
			Mint:       fmt.Sprintf("mint%d", i),
			LookedUpAt: int64(i),
		}
		if err := store.Save(ctx, l); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	history, err := store.List(ctx, "owner1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(history) != domain.MetadataLookupHistoryLimit {
		t.Fatalf("len = %d, want %d", len(history), domain.MetadataLookupHistoryLimit)
	}
	// Newest first: the last saved mint leads
	if history[0].Mint != fmt.Sprintf("mint%d", domain.MetadataLookupHistoryLimit+4) {
		t.Errorf("front = %s", history[0].Mint)
	}
}

func TestMetadataLookupStore_RepeatMintMovesToFront(t *testing.T) {
	store := NewMetadataLookupStore()
	ctx := context.Background()

	for _, mint := range []string{"mint1", "mint2", "mint3"} {
		if err := store.Save(ctx, &domain.MetadataLookup{Owner: "owner1", Mint: mint}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	// Looking up mint1 again moves it to the front without duplicating
	if err := store.Save(ctx, &domain.MetadataLookup{Owner: "owner1", Mint: "mint1"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	history, err := store.List(ctx, "owner1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("len = %d, want 3", len(history))
	}
	if history[0].Mint != "mint1" {
		t.Errorf("front = %s, want mint1", history[0].Mint)
	}
}

func TestMetadataLookupStore_OwnerScoping(t *testing.T) {
	store := NewMetadataLookupStore()
	ctx := context.Background()

	if err := store.Save(ctx, &domain.MetadataLookup{Owner: "owner1", Mint: "mint1"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	history, err := store.List(ctx, "owner2")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("owner2 sees %d entries, want 0", len(history))
	}
}
