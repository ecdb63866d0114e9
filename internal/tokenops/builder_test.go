package tokenops

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/program/metaplex/token_metadata"
	"github.com/blocto/solana-go-sdk/types"

	"github.com/bjeschke/solanahub/internal/domain"
	"github.com/bjeschke/solanahub/internal/solana"
	"github.com/bjeschke/solanahub/internal/solana/stub"
)

// encodeMintAccount builds the 82-byte SPL mint layout.
func encodeMintAccount(mintAuth, freezeAuth *common.PublicKey, decimals uint8, supply uint64) string {
	buf := make([]byte, 82)

	if mintAuth != nil {
		binary.LittleEndian.PutUint32(buf[0:4], 1)
		copy(buf[4:36], mintAuth[:])
	}
	binary.LittleEndian.PutUint64(buf[36:44], supply)
	buf[44] = decimals
	buf[45] = 1 // initialized
	if freezeAuth != nil {
		binary.LittleEndian.PutUint32(buf[46:50], 1)
		copy(buf[50:82], freezeAuth[:])
	}

	return base64.StdEncoding.EncodeToString(buf)
}

func mintAccountInfo(data string) *solana.AccountInfo {
	return &solana.AccountInfo{
		Lamports: 1_461_600,
		Owner:    common.TokenProgramID.ToBase58(),
		Data:     data,
	}
}

func TestBuildCreateToken(t *testing.T) {
	actor := types.NewAccount()
	receiver := types.NewAccount()

	chain := stub.NewRPCClient()
	chain.RentExempt = 1_461_600
	chain.Balances[actor.PublicKey.ToBase58()] = DefaultFeeLamports + 2_000_000

	b := NewBuilder(chain, Config{FeeReceiver: receiver.PublicKey})

	plan, err := b.Build(context.Background(), domain.TokenIntent{
		Operation: domain.OpCreateToken,
		Actor:     actor.PublicKey,
		Decimals:  6,
		Metadata: domain.MetadataFields{
			Name:   "Example",
			Symbol: "EXT",
			URI:    "https://gateway.pinata.cloud/ipfs/QmMetaHash",
		},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(plan.Instructions) != 4 {
		t.Fatalf("instructions = %d, want 4 (fee, create, init, metadata)", len(plan.Instructions))
	}
	if len(plan.ExtraSigners) != 1 {
		t.Fatalf("extra signers = %d, want 1 (mint keypair)", len(plan.ExtraSigners))
	}
	if plan.Mint != plan.ExtraSigners[0].PublicKey {
		t.Error("plan mint should be the generated keypair")
	}

	// Fee transfer comes first and targets the system program
	if plan.Instructions[0].ProgramID != common.SystemProgramID {
		t.Errorf("first instruction program = %s, want system", plan.Instructions[0].ProgramID)
	}
	// Mint initialization targets the token program
	if plan.Instructions[2].ProgramID != common.TokenProgramID {
		t.Errorf("third instruction program = %s, want token", plan.Instructions[2].ProgramID)
	}
	// Metadata creation targets the metadata program
	if plan.Instructions[3].ProgramID != common.MetaplexTokenMetaProgramID {
		t.Errorf("fourth instruction program = %s, want metadata", plan.Instructions[3].ProgramID)
	}
}

func TestBuildCreateTokenInsufficientBalance(t *testing.T) {
	actor := types.NewAccount()

	chain := stub.NewRPCClient()
	chain.RentExempt = 1_461_600
	chain.Balances[actor.PublicKey.ToBase58()] = 10_000_000 // below fee+rent

	b := NewBuilder(chain, Config{FeeReceiver: types.NewAccount().PublicKey})

	plan, err := b.Build(context.Background(), domain.TokenIntent{
		Operation: domain.OpCreateToken,
		Actor:     actor.PublicKey,
		Decimals:  9,
		Metadata:  domain.MetadataFields{Name: "T", Symbol: "T", URI: "u"},
	})
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Errorf("error = %v, want ErrInsufficientBalance", err)
	}
	if plan != nil {
		t.Error("plan must be nil on rejection, zero instructions emitted")
	}
}

func TestBuildCreateTokenFeeBoundary(t *testing.T) {
	actor := types.NewAccount()

	chain := stub.NewRPCClient()
	chain.RentExempt = 1_461_600

	// The default platform fee is 0.1 SOL; one lamport short of fee+rent
	// must be rejected, the exact amount accepted.
	need := uint64(100_000_000) + chain.RentExempt

	b := NewBuilder(chain, Config{FeeReceiver: types.NewAccount().PublicKey})

	intent := domain.TokenIntent{
		Operation: domain.OpCreateToken,
		Actor:     actor.PublicKey,
		Decimals:  9,
		Metadata:  domain.MetadataFields{Name: "T", Symbol: "T", URI: "u"},
	}

	chain.Balances[actor.PublicKey.ToBase58()] = need - 1
	if _, err := b.Build(context.Background(), intent); !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Errorf("error = %v, want ErrInsufficientBalance", err)
	}

	chain.Balances[actor.PublicKey.ToBase58()] = need
	if _, err := b.Build(context.Background(), intent); err != nil {
		t.Errorf("Build at exact balance: %v", err)
	}
}

func TestBuildMintTo(t *testing.T) {
	actor := types.NewAccount()
	recipient := types.NewAccount()
	mint := types.NewAccount()

	chain := stub.NewRPCClient()
	chain.Accounts[mint.PublicKey.ToBase58()] = mintAccountInfo(
		encodeMintAccount(&actor.PublicKey, &actor.PublicKey, 6, 0))

	b := NewBuilder(chain, Config{FeeReceiver: types.NewAccount().PublicKey})

	intent := domain.TokenIntent{
		Operation: domain.OpMintTo,
		Actor:     actor.PublicKey,
		Mint:      mint.PublicKey,
		Recipient: recipient.PublicKey,
		Amount:    "1.5",
	}

	// Recipient has no associated token account yet: expect create + mint
	plan, err := b.Build(context.Background(), intent)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(plan.Instructions) != 2 {
		t.Fatalf("instructions = %d, want 2 (create ATA, mint)", len(plan.Instructions))
	}

	// Preload the ATA: expect just the mint instruction
	ata, _, err := common.FindAssociatedTokenAddress(recipient.PublicKey, mint.PublicKey)
	if err != nil {
		t.Fatalf("FindAssociatedTokenAddress: %v", err)
	}
	chain.Accounts[ata.ToBase58()] = &solana.AccountInfo{Lamports: 2_039_280}

	plan, err = b.Build(context.Background(), intent)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(plan.Instructions) != 1 {
		t.Fatalf("instructions = %d, want 1 (mint only)", len(plan.Instructions))
	}
}

func TestBuildMintToNullAuthorityFailsClosed(t *testing.T) {
	actor := types.NewAccount()
	mint := types.NewAccount()

	chain := stub.NewRPCClient()
	// Mint authority revoked: nobody can mint, not even the creator
	chain.Accounts[mint.PublicKey.ToBase58()] = mintAccountInfo(
		encodeMintAccount(nil, nil, 6, 1_000_000))

	b := NewBuilder(chain, Config{FeeReceiver: types.NewAccount().PublicKey})

	_, err := b.Build(context.Background(), domain.TokenIntent{
		Operation: domain.OpMintTo,
		Actor:     actor.PublicKey,
		Mint:      mint.PublicKey,
		Recipient: types.NewAccount().PublicKey,
		Amount:    "1",
	})
	if !errors.Is(err, domain.ErrAuthorityMismatch) {
		t.Errorf("error = %v, want ErrAuthorityMismatch", err)
	}
}

func TestBuildMintToWrongAuthority(t *testing.T) {
	actor := types.NewAccount()
	other := types.NewAccount()
	mint := types.NewAccount()

	chain := stub.NewRPCClient()
	chain.Accounts[mint.PublicKey.ToBase58()] = mintAccountInfo(
		encodeMintAccount(&other.PublicKey, nil, 6, 0))

	b := NewBuilder(chain, Config{FeeReceiver: types.NewAccount().PublicKey})

	_, err := b.Build(context.Background(), domain.TokenIntent{
		Operation: domain.OpMintTo,
		Actor:     actor.PublicKey,
		Mint:      mint.PublicKey,
		Recipient: types.NewAccount().PublicKey,
		Amount:    "1",
	})
	if !errors.Is(err, domain.ErrAuthorityMismatch) {
		t.Errorf("error = %v, want ErrAuthorityMismatch", err)
	}
}

func TestBuildMintToMintNotFound(t *testing.T) {
	actor := types.NewAccount()

	b := NewBuilder(stub.NewRPCClient(), Config{FeeReceiver: types.NewAccount().PublicKey})

	_, err := b.Build(context.Background(), domain.TokenIntent{
		Operation: domain.OpMintTo,
		Actor:     actor.PublicKey,
		Mint:      types.NewAccount().PublicKey,
		Recipient: types.NewAccount().PublicKey,
		Amount:    "1",
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestBuildSetAuthority(t *testing.T) {
	actor := types.NewAccount()
	newAuth := types.NewAccount()
	mint := types.NewAccount()

	chain := stub.NewRPCClient()
	chain.Accounts[mint.PublicKey.ToBase58()] = mintAccountInfo(
		encodeMintAccount(&actor.PublicKey, &actor.PublicKey, 0, 0))

	b := NewBuilder(chain, Config{FeeReceiver: types.NewAccount().PublicKey})

	plan, err := b.Build(context.Background(), domain.TokenIntent{
		Operation:     domain.OpSetAuthority,
		Actor:         actor.PublicKey,
		Mint:          mint.PublicKey,
		NewAuthority:  newAuth.PublicKey,
		AuthorityKind: domain.AuthorityMintTokens,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(plan.Instructions) != 1 {
		t.Fatalf("instructions = %d, want 1", len(plan.Instructions))
	}
	if plan.Instructions[0].ProgramID != common.TokenProgramID {
		t.Errorf("program = %s, want token", plan.Instructions[0].ProgramID)
	}
}

func TestBuildSetAuthorityMismatch(t *testing.T) {
	actor := types.NewAccount()
	holder := types.NewAccount()
	mint := types.NewAccount()

	chain := stub.NewRPCClient()
	// actor holds mint authority but NOT freeze authority
	chain.Accounts[mint.PublicKey.ToBase58()] = mintAccountInfo(
		encodeMintAccount(&actor.PublicKey, &holder.PublicKey, 0, 0))

	b := NewBuilder(chain, Config{FeeReceiver: types.NewAccount().PublicKey})

	_, err := b.Build(context.Background(), domain.TokenIntent{
		Operation:     domain.OpSetAuthority,
		Actor:         actor.PublicKey,
		Mint:          mint.PublicKey,
		NewAuthority:  types.NewAccount().PublicKey,
		AuthorityKind: domain.AuthorityFreezeAccount,
	})
	if !errors.Is(err, domain.ErrAuthorityMismatch) {
		t.Errorf("error = %v, want ErrAuthorityMismatch", err)
	}
}

func TestBuildRevokeAuthority(t *testing.T) {
	actor := types.NewAccount()
	mint := types.NewAccount()

	chain := stub.NewRPCClient()
	chain.Accounts[mint.PublicKey.ToBase58()] = mintAccountInfo(
		encodeMintAccount(&actor.PublicKey, nil, 0, 0))

	b := NewBuilder(chain, Config{FeeReceiver: types.NewAccount().PublicKey})

	plan, err := b.Build(context.Background(), domain.TokenIntent{
		Operation:     domain.OpRevokeAuthority,
		Actor:         actor.PublicKey,
		Mint:          mint.PublicKey,
		AuthorityKind: domain.AuthorityMintTokens,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(plan.Instructions) != 1 {
		t.Fatalf("instructions = %d, want 1", len(plan.Instructions))
	}
}

func TestBuildRevokeAlreadyRevoked(t *testing.T) {
	actor := types.NewAccount()
	mint := types.NewAccount()

	chain := stub.NewRPCClient()
	chain.Accounts[mint.PublicKey.ToBase58()] = mintAccountInfo(
		encodeMintAccount(nil, nil, 0, 0))

	b := NewBuilder(chain, Config{FeeReceiver: types.NewAccount().PublicKey})

	// Once revoked, the authority is gone forever; nobody matches null
	_, err := b.Build(context.Background(), domain.TokenIntent{
		Operation:     domain.OpRevokeAuthority,
		Actor:         actor.PublicKey,
		Mint:          mint.PublicKey,
		AuthorityKind: domain.AuthorityMintTokens,
	})
	if !errors.Is(err, domain.ErrAuthorityMismatch) {
		t.Errorf("error = %v, want ErrAuthorityMismatch", err)
	}
}

func TestBuildFreezeAccount(t *testing.T) {
	actor := types.NewAccount()
	holderOwner := types.NewAccount()
	mint := types.NewAccount()

	chain := stub.NewRPCClient()
	chain.Accounts[mint.PublicKey.ToBase58()] = mintAccountInfo(
		encodeMintAccount(&actor.PublicKey, &actor.PublicKey, 6, 0))

	ata, _, err := common.FindAssociatedTokenAddress(holderOwner.PublicKey, mint.PublicKey)
	if err != nil {
		t.Fatalf("FindAssociatedTokenAddress: %v", err)
	}
	chain.Accounts[ata.ToBase58()] = &solana.AccountInfo{Lamports: 2_039_280}

	b := NewBuilder(chain, Config{FeeReceiver: types.NewAccount().PublicKey})

	plan, err := b.Build(context.Background(), domain.TokenIntent{
		Operation: domain.OpFreezeAccount,
		Actor:     actor.PublicKey,
		Mint:      mint.PublicKey,
		Recipient: holderOwner.PublicKey,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(plan.Instructions) != 1 {
		t.Fatalf("instructions = %d, want 1", len(plan.Instructions))
	}
}

func TestBuildFreezeNoTokenAccount(t *testing.T) {
	actor := types.NewAccount()
	mint := types.NewAccount()

	chain := stub.NewRPCClient()
	chain.Accounts[mint.PublicKey.ToBase58()] = mintAccountInfo(
		encodeMintAccount(&actor.PublicKey, &actor.PublicKey, 6, 0))

	b := NewBuilder(chain, Config{FeeReceiver: types.NewAccount().PublicKey})

	_, err := b.Build(context.Background(), domain.TokenIntent{
		Operation: domain.OpFreezeAccount,
		Actor:     actor.PublicKey,
		Mint:      mint.PublicKey,
		Recipient: types.NewAccount().PublicKey,
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestBuildThawWithoutFreezeAuthority(t *testing.T) {
	actor := types.NewAccount()
	mint := types.NewAccount()

	chain := stub.NewRPCClient()
	chain.Accounts[mint.PublicKey.ToBase58()] = mintAccountInfo(
		encodeMintAccount(&actor.PublicKey, nil, 6, 0))

	b := NewBuilder(chain, Config{FeeReceiver: types.NewAccount().PublicKey})

	_, err := b.Build(context.Background(), domain.TokenIntent{
		Operation: domain.OpThawAccount,
		Actor:     actor.PublicKey,
		Mint:      mint.PublicKey,
		Recipient: types.NewAccount().PublicKey,
	})
	if !errors.Is(err, domain.ErrAuthorityMismatch) {
		t.Errorf("error = %v, want ErrAuthorityMismatch", err)
	}
}

func TestBuildCreateMetadataAlreadyExists(t *testing.T) {
	actor := types.NewAccount()
	mint := types.NewAccount()

	chain := stub.NewRPCClient()
	chain.Accounts[mint.PublicKey.ToBase58()] = mintAccountInfo(
		encodeMintAccount(&actor.PublicKey, nil, 6, 0))

	metadataKey, err := token_metadata.GetTokenMetaPubkey(mint.PublicKey)
	if err != nil {
		t.Fatalf("metadata pubkey: %v", err)
	}
	chain.Accounts[metadataKey.ToBase58()] = &solana.AccountInfo{Lamports: 5_616_720}

	b := NewBuilder(chain, Config{FeeReceiver: types.NewAccount().PublicKey})

	_, err = b.Build(context.Background(), domain.TokenIntent{
		Operation: domain.OpCreateMetadata,
		Actor:     actor.PublicKey,
		Mint:      mint.PublicKey,
		Metadata:  domain.MetadataFields{Name: "T", Symbol: "T", URI: "u"},
	})
	if !errors.Is(err, domain.ErrInvalidIntent) {
		t.Errorf("error = %v, want ErrInvalidIntent", err)
	}
}

func TestBuildUpdateMetadataNotFound(t *testing.T) {
	actor := types.NewAccount()
	mint := types.NewAccount()

	b := NewBuilder(stub.NewRPCClient(), Config{FeeReceiver: types.NewAccount().PublicKey})

	_, err := b.Build(context.Background(), domain.TokenIntent{
		Operation: domain.OpUpdateMetadata,
		Actor:     actor.PublicKey,
		Mint:      mint.PublicKey,
		Metadata:  domain.MetadataFields{Name: "T", Symbol: "T", URI: "u"},
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestBuildRejectsOffCurveActor(t *testing.T) {
	mint := types.NewAccount()

	// A program-derived address can never sign; it must be rejected before
	// any chain access.
	pda, _, err := common.FindAssociatedTokenAddress(types.NewAccount().PublicKey, mint.PublicKey)
	if err != nil {
		t.Fatalf("FindAssociatedTokenAddress: %v", err)
	}

	b := NewBuilder(stub.NewRPCClient(), Config{FeeReceiver: types.NewAccount().PublicKey})

	_, err = b.Build(context.Background(), domain.TokenIntent{
		Operation: domain.OpMintTo,
		Actor:     pda,
		Mint:      mint.PublicKey,
		Recipient: types.NewAccount().PublicKey,
		Amount:    "1",
	})
	if !errors.Is(err, domain.ErrInvalidAddress) {
		t.Errorf("error = %v, want ErrInvalidAddress", err)
	}
}

func TestBuildMintToOffCurveRecipient(t *testing.T) {
	actor := types.NewAccount()
	mint := types.NewAccount()

	chain := stub.NewRPCClient()
	chain.Accounts[mint.PublicKey.ToBase58()] = mintAccountInfo(
		encodeMintAccount(&actor.PublicKey, nil, 6, 0))

	pda, _, err := common.FindAssociatedTokenAddress(actor.PublicKey, mint.PublicKey)
	if err != nil {
		t.Fatalf("FindAssociatedTokenAddress: %v", err)
	}

	b := NewBuilder(chain, Config{FeeReceiver: types.NewAccount().PublicKey})

	_, err = b.Build(context.Background(), domain.TokenIntent{
		Operation: domain.OpMintTo,
		Actor:     actor.PublicKey,
		Mint:      mint.PublicKey,
		Recipient: pda,
		Amount:    "1",
	})
	if !errors.Is(err, domain.ErrInvalidAddress) {
		t.Errorf("error = %v, want ErrInvalidAddress", err)
	}
}

func TestBuildRejectsInvalidIntentBeforeNetwork(t *testing.T) {
	b := NewBuilder(stub.NewRPCClient(), Config{FeeReceiver: types.NewAccount().PublicKey})

	// MintTo without recipient or amount must fail at validation
	_, err := b.Build(context.Background(), domain.TokenIntent{
		Operation: domain.OpMintTo,
		Actor:     types.NewAccount().PublicKey,
		Mint:      types.NewAccount().PublicKey,
	})
	if !errors.Is(err, domain.ErrInvalidIntent) {
		t.Errorf("error = %v, want ErrInvalidIntent", err)
	}
}
