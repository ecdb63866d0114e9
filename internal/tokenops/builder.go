// Package tokenops turns validated token intents into ordered on-chain
// instruction plans, and inspects existing mints, holdings, and metadata.
package tokenops

import (
	"context"
	"fmt"
	"strings"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/program/associated_token_account"
	"github.com/blocto/solana-go-sdk/program/metaplex/token_metadata"
	"github.com/blocto/solana-go-sdk/program/system"
	"github.com/blocto/solana-go-sdk/program/token"
	"github.com/blocto/solana-go-sdk/types"

	"github.com/bjeschke/solanahub/internal/domain"
	"github.com/bjeschke/solanahub/internal/solana"
	"github.com/bjeschke/solanahub/internal/validate"
)

// DefaultFeeLamports is the platform fee charged on token creation, 0.1 SOL.
const DefaultFeeLamports = 100_000_000

// ChainReader is the read surface the builder needs to verify balances and
// current mint state before emitting instructions.
type ChainReader interface {
	GetBalance(ctx context.Context, pubkey string) (uint64, error)
	GetAccountInfo(ctx context.Context, pubkey string) (*solana.AccountInfo, error)
	GetMinimumBalanceForRentExemption(ctx context.Context, size uint64) (uint64, error)
}

// Config holds builder parameters.
type Config struct {
	// FeeLamports is the platform fee collected on CreateToken.
	FeeLamports uint64
	// FeeReceiver collects the platform fee.
	FeeReceiver common.PublicKey
}

// Plan is an ordered instruction list ready for submission, plus any
// ephemeral keys that must co-sign. Instruction order matters: the fee
// transfer, account creation, and initialization must precede dependent
// steps, and the submitter preserves the order as given.
type Plan struct {
	Operation    domain.Operation
	Mint         common.PublicKey
	Instructions []types.Instruction
	ExtraSigners []types.Account
}

// Builder constructs instruction plans from token intents. It performs all
// client-side checks (balance, authority, required fields) before emitting
// any instruction, so a rejected intent causes zero side effects.
type Builder struct {
	chain ChainReader
	cfg   Config
}

// NewBuilder creates a Builder. A zero FeeLamports falls back to the default.
func NewBuilder(chain ChainReader, cfg Config) *Builder {
	if cfg.FeeLamports == 0 {
		cfg.FeeLamports = DefaultFeeLamports
	}
	return &Builder{chain: chain, cfg: cfg}
}

// Build validates the intent and produces its instruction plan.
func (b *Builder) Build(ctx context.Context, intent domain.TokenIntent) (*Plan, error) {
	if err := intent.Validate(); err != nil {
		return nil, err
	}

	actor, err := walletKey(intent.Actor, "actor")
	if err != nil {
		return nil, err
	}

	switch intent.Operation {
	case domain.OpCreateToken:
		return b.buildCreateToken(ctx, actor, intent)
	case domain.OpMintTo:
		return b.buildMintTo(ctx, actor, intent)
	case domain.OpSetAuthority:
		return b.buildSetAuthority(ctx, actor, intent, false)
	case domain.OpRevokeAuthority:
		return b.buildSetAuthority(ctx, actor, intent, true)
	case domain.OpFreezeAccount:
		return b.buildFreezeThaw(ctx, actor, intent, true)
	case domain.OpThawAccount:
		return b.buildFreezeThaw(ctx, actor, intent, false)
	case domain.OpCreateMetadata:
		return b.buildCreateMetadata(ctx, actor, intent)
	case domain.OpUpdateMetadata:
		return b.buildUpdateMetadata(ctx, actor, intent)
	default:
		return nil, fmt.Errorf("%w: unknown operation %q", domain.ErrInvalidIntent, intent.Operation)
	}
}

func (b *Builder) buildCreateToken(ctx context.Context, actor common.PublicKey, intent domain.TokenIntent) (*Plan, error) {
	rent, err := b.chain.GetMinimumBalanceForRentExemption(ctx, token.MintAccountSize)
	if err != nil {
		return nil, fmt.Errorf("fetch rent floor: %w", err)
	}

	balance, err := b.chain.GetBalance(ctx, actor.ToBase58())
	if err != nil {
		return nil, fmt.Errorf("fetch balance: %w", err)
	}
	if balance < b.cfg.FeeLamports+rent {
		return nil, fmt.Errorf("%w: have %d lamports, need %d", domain.ErrInsufficientBalance, balance, b.cfg.FeeLamports+rent)
	}

	mint := types.NewAccount()

	metadataKey, err := token_metadata.GetTokenMetaPubkey(mint.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("derive metadata address: %w", err)
	}

	instructions := []types.Instruction{
		system.Transfer(system.TransferParam{
			From:   actor,
			To:     b.cfg.FeeReceiver,
			Amount: b.cfg.FeeLamports,
		}),
		system.CreateAccount(system.CreateAccountParam{
			From:     actor,
			New:      mint.PublicKey,
			Owner:    common.TokenProgramID,
			Lamports: rent,
			Space:    token.MintAccountSize,
		}),
		token.InitializeMint(token.InitializeMintParam{
			Decimals:   uint8(intent.Decimals),
			Mint:       mint.PublicKey,
			MintAuth:   actor,
			FreezeAuth: &actor,
		}),
		token_metadata.CreateMetadataAccountV3(token_metadata.CreateMetadataAccountV3Param{
			Metadata:                metadataKey,
			Mint:                    mint.PublicKey,
			MintAuthority:           actor,
			Payer:                   actor,
			UpdateAuthority:         actor,
			UpdateAuthorityIsSigner: true,
			IsMutable:               true,
			Data: token_metadata.DataV2{
				Name:   intent.Metadata.Name,
				Symbol: intent.Metadata.Symbol,
				Uri:    intent.Metadata.URI,
			},
		}),
	}

	return &Plan{
		Operation:    intent.Operation,
		Mint:         mint.PublicKey,
		Instructions: instructions,
		ExtraSigners: []types.Account{mint},
	}, nil
}

func (b *Builder) buildMintTo(ctx context.Context, actor common.PublicKey, intent domain.TokenIntent) (*Plan, error) {
	mint := intent.Mint

	state, err := b.fetchMint(ctx, mint)
	if err != nil {
		return nil, err
	}

	if !domain.AuthorityFromPointer(state.MintAuthority).Matches(actor) {
		return nil, fmt.Errorf("%w: actor does not hold mint authority", domain.ErrAuthorityMismatch)
	}

	amount, err := validate.ToBaseUnits(intent.Amount, int(state.Decimals))
	if err != nil {
		return nil, err
	}

	recipient, err := walletKey(intent.Recipient, "recipient")
	if err != nil {
		return nil, err
	}

	ata, _, err := common.FindAssociatedTokenAddress(recipient, mint)
	if err != nil {
		return nil, fmt.Errorf("derive associated token account: %w", err)
	}

	var instructions []types.Instruction

	// Lazily create the recipient's associated token account
	ataInfo, err := b.chain.GetAccountInfo(ctx, ata.ToBase58())
	if err != nil {
		return nil, fmt.Errorf("fetch associated token account: %w", err)
	}
	if ataInfo == nil {
		instructions = append(instructions, associated_token_account.CreateAssociatedTokenAccount(
			associated_token_account.CreateAssociatedTokenAccountParam{
				Funder:                 actor,
				Owner:                  recipient,
				Mint:                   mint,
				AssociatedTokenAccount: ata,
			},
		))
	}

	instructions = append(instructions, token.MintTo(token.MintToParam{
		Mint:   mint,
		To:     ata,
		Auth:   actor,
		Amount: amount,
	}))

	return &Plan{
		Operation:    intent.Operation,
		Mint:         mint,
		Instructions: instructions,
	}, nil
}

func (b *Builder) buildSetAuthority(ctx context.Context, actor common.PublicKey, intent domain.TokenIntent, revoke bool) (*Plan, error) {
	mint := intent.Mint

	state, err := b.fetchMint(ctx, mint)
	if err != nil {
		return nil, err
	}

	var current domain.Authority
	var authType token.AuthorityType
	switch intent.AuthorityKind {
	case domain.AuthorityMintTokens:
		current = domain.AuthorityFromPointer(state.MintAuthority)
		authType = token.AuthorityTypeMintTokens
	case domain.AuthorityFreezeAccount:
		current = domain.AuthorityFromPointer(state.FreezeAuthority)
		authType = token.AuthorityTypeFreezeAccount
	default:
		return nil, fmt.Errorf("%w: unknown authority kind %q", domain.ErrInvalidIntent, intent.AuthorityKind)
	}

	if !current.Matches(actor) {
		return nil, fmt.Errorf("%w: actor does not hold %s authority", domain.ErrAuthorityMismatch, intent.AuthorityKind)
	}

	// Revoking sets the authority to null. That is permanent: no one can
	// ever reclaim it.
	var newAuth *common.PublicKey
	if !revoke {
		target := intent.NewAuthority
		newAuth = &target
	}

	instruction := token.SetAuthority(token.SetAuthorityParam{
		Account:  mint,
		NewAuth:  newAuth,
		AuthType: authType,
		Auth:     actor,
	})

	return &Plan{
		Operation:    intent.Operation,
		Mint:         mint,
		Instructions: []types.Instruction{instruction},
	}, nil
}

func (b *Builder) buildFreezeThaw(ctx context.Context, actor common.PublicKey, intent domain.TokenIntent, freeze bool) (*Plan, error) {
	mint := intent.Mint

	state, err := b.fetchMint(ctx, mint)
	if err != nil {
		return nil, err
	}

	if !domain.AuthorityFromPointer(state.FreezeAuthority).Matches(actor) {
		return nil, fmt.Errorf("%w: actor does not hold freeze authority", domain.ErrAuthorityMismatch)
	}

	owner, err := walletKey(intent.Recipient, "account owner")
	if err != nil {
		return nil, err
	}

	ata, _, err := common.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return nil, fmt.Errorf("derive associated token account: %w", err)
	}

	ataInfo, err := b.chain.GetAccountInfo(ctx, ata.ToBase58())
	if err != nil {
		return nil, fmt.Errorf("fetch associated token account: %w", err)
	}
	if ataInfo == nil {
		return nil, fmt.Errorf("%w: owner holds no token account for this mint", domain.ErrNotFound)
	}

	var instruction types.Instruction
	if freeze {
		instruction = token.FreezeAccount(token.FreezeAccountParam{
			Account: ata,
			Mint:    mint,
			Auth:    actor,
		})
	} else {
		instruction = token.ThawAccount(token.ThawAccountParam{
			Account: ata,
			Mint:    mint,
			Auth:    actor,
		})
	}

	return &Plan{
		Operation:    intent.Operation,
		Mint:         mint,
		Instructions: []types.Instruction{instruction},
	}, nil
}

func (b *Builder) buildCreateMetadata(ctx context.Context, actor common.PublicKey, intent domain.TokenIntent) (*Plan, error) {
	mint := intent.Mint

	state, err := b.fetchMint(ctx, mint)
	if err != nil {
		return nil, err
	}

	// The metadata program requires the mint authority as signer
	if !domain.AuthorityFromPointer(state.MintAuthority).Matches(actor) {
		return nil, fmt.Errorf("%w: actor does not hold mint authority", domain.ErrAuthorityMismatch)
	}

	metadataKey, err := token_metadata.GetTokenMetaPubkey(mint)
	if err != nil {
		return nil, fmt.Errorf("derive metadata address: %w", err)
	}

	existing, err := b.chain.GetAccountInfo(ctx, metadataKey.ToBase58())
	if err != nil {
		return nil, fmt.Errorf("fetch metadata account: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: metadata already exists for this mint", domain.ErrInvalidIntent)
	}

	instruction := token_metadata.CreateMetadataAccountV3(token_metadata.CreateMetadataAccountV3Param{
		Metadata:                metadataKey,
		Mint:                    mint,
		MintAuthority:           actor,
		Payer:                   actor,
		UpdateAuthority:         actor,
		UpdateAuthorityIsSigner: true,
		IsMutable:               true,
		Data: token_metadata.DataV2{
			Name:   intent.Metadata.Name,
			Symbol: intent.Metadata.Symbol,
			Uri:    intent.Metadata.URI,
		},
	})

	return &Plan{
		Operation:    intent.Operation,
		Mint:         mint,
		Instructions: []types.Instruction{instruction},
	}, nil
}

func (b *Builder) buildUpdateMetadata(ctx context.Context, actor common.PublicKey, intent domain.TokenIntent) (*Plan, error) {
	mint := intent.Mint

	metadataKey, err := token_metadata.GetTokenMetaPubkey(mint)
	if err != nil {
		return nil, fmt.Errorf("derive metadata address: %w", err)
	}

	info, err := b.chain.GetAccountInfo(ctx, metadataKey.ToBase58())
	if err != nil {
		return nil, fmt.Errorf("fetch metadata account: %w", err)
	}
	if info == nil {
		return nil, fmt.Errorf("%w: no metadata for this mint", domain.ErrNotFound)
	}

	raw, err := info.DecodeData()
	if err != nil {
		return nil, err
	}
	existing, err := token_metadata.MetadataDeserialize(raw)
	if err != nil {
		return nil, fmt.Errorf("deserialize metadata: %w", err)
	}

	// The program would reject both of these anyway; checking here keeps
	// the failure cheap and specific.
	if existing.UpdateAuthority != actor {
		return nil, fmt.Errorf("%w: actor is not the update authority", domain.ErrAuthorityMismatch)
	}
	if !existing.IsMutable {
		return nil, fmt.Errorf("%w: metadata is immutable", domain.ErrInvalidIntent)
	}

	data := token_metadata.DataV2{
		Name:                 intent.Metadata.Name,
		Symbol:               intent.Metadata.Symbol,
		Uri:                  intent.Metadata.URI,
		SellerFeeBasisPoints: existing.Data.SellerFeeBasisPoints,
	}

	instruction := token_metadata.UpdateMetadataAccountV2(token_metadata.UpdateMetadataAccountV2Param{
		MetadataAccount: metadataKey,
		UpdateAuthority: actor,
		Data:            &data,
	})

	return &Plan{
		Operation:    intent.Operation,
		Mint:         mint,
		Instructions: []types.Instruction{instruction},
	}, nil
}

// walletKey rejects program-derived addresses where a wallet owner is
// expected. Intent keys are already size-checked; curve membership is the
// one property parsing cannot guarantee.
func walletKey(pk common.PublicKey, role string) (common.PublicKey, error) {
	if !validate.IsOnCurve(pk) {
		return common.PublicKey{}, fmt.Errorf("%w: %s %s is not on the ed25519 curve",
			domain.ErrInvalidAddress, role, pk.ToBase58())
	}
	return pk, nil
}

// fetchMint loads and decodes a mint account.
func (b *Builder) fetchMint(ctx context.Context, mint common.PublicKey) (token.MintAccount, error) {
	info, err := b.chain.GetAccountInfo(ctx, mint.ToBase58())
	if err != nil {
		return token.MintAccount{}, fmt.Errorf("fetch mint: %w", err)
	}
	if info == nil {
		return token.MintAccount{}, fmt.Errorf("%w: mint %s", domain.ErrNotFound, mint.ToBase58())
	}

	raw, err := info.DecodeData()
	if err != nil {
		return token.MintAccount{}, err
	}

	state, err := token.MintAccountFromData(raw)
	if err != nil {
		return token.MintAccount{}, fmt.Errorf("decode mint account: %w", err)
	}
	return state, nil
}

// trimPadding strips the trailing NUL padding the metadata program stores in
// fixed-width string fields.
func trimPadding(s string) string {
	return strings.TrimRight(s, "\x00")
}
