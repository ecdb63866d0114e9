package domain

import (
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
)

// Operation enumerates the supported token mutations.
type Operation string

const (
	OpCreateToken     Operation = "CreateToken"
	OpMintTo          Operation = "MintTo"
	OpSetAuthority    Operation = "SetAuthority"
	OpRevokeAuthority Operation = "RevokeAuthority"
	OpFreezeAccount   Operation = "FreezeAccount"
	OpThawAccount     Operation = "ThawAccount"
	OpCreateMetadata  Operation = "CreateMetadata"
	OpUpdateMetadata  Operation = "UpdateMetadata"
)

// MetadataFields are the user-supplied token metadata inputs.
type MetadataFields struct {
	Name        string
	Symbol      string
	Description string
	// URI points at the published off-chain metadata document. Filled in
	// from an AssetBundle before instruction building.
	URI string
}

// TokenIntent is an immutable description of one user action, constructed
// once per submit and validated as a unit. The operation determines which
// fields are required.
type TokenIntent struct {
	Operation Operation

	// Actor is the connected wallet's public key, the implicit signer.
	Actor common.PublicKey

	// Mint is the target token. Required for everything but CreateToken.
	Mint common.PublicKey

	// Recipient is the owner wallet receiving minted tokens (MintTo) or
	// the owner whose associated account is frozen/thawed.
	Recipient common.PublicKey

	// Amount is the raw user-entered amount string (MintTo).
	Amount string

	// Decimals for CreateToken.
	Decimals int

	// NewAuthority is the transfer target for SetAuthority.
	NewAuthority common.PublicKey

	// AuthorityKind selects the capability for SetAuthority/RevokeAuthority.
	AuthorityKind AuthorityKind

	// Metadata fields for CreateToken, CreateMetadata and UpdateMetadata.
	Metadata MetadataFields
}

var zeroKey common.PublicKey

// Validate checks that every field the operation requires is present.
// It performs no network access.
func (i TokenIntent) Validate() error {
	if i.Actor == zeroKey {
		return fmt.Errorf("%w: actor is required", ErrInvalidIntent)
	}

	if i.Operation != OpCreateToken && i.Mint == zeroKey {
		return fmt.Errorf("%w: mint is required for %s", ErrInvalidIntent, i.Operation)
	}

	switch i.Operation {
	case OpCreateToken:
		if i.Decimals < 0 || i.Decimals > 9 {
			return fmt.Errorf("%w: decimals must be within [0, 9]", ErrInvalidIntent)
		}
		if i.Metadata.Name == "" || i.Metadata.Symbol == "" {
			return fmt.Errorf("%w: name and symbol are required for %s", ErrInvalidIntent, i.Operation)
		}
	case OpMintTo:
		if i.Recipient == zeroKey {
			return fmt.Errorf("%w: recipient is required for %s", ErrInvalidIntent, i.Operation)
		}
		if i.Amount == "" {
			return fmt.Errorf("%w: amount is required for %s", ErrInvalidIntent, i.Operation)
		}
	case OpSetAuthority:
		if !i.AuthorityKind.Valid() {
			return fmt.Errorf("%w: unknown authority kind %q", ErrInvalidIntent, i.AuthorityKind)
		}
		if i.NewAuthority == zeroKey {
			return fmt.Errorf("%w: new authority is required for %s", ErrInvalidIntent, i.Operation)
		}
	case OpRevokeAuthority:
		if !i.AuthorityKind.Valid() {
			return fmt.Errorf("%w: unknown authority kind %q", ErrInvalidIntent, i.AuthorityKind)
		}
	case OpFreezeAccount, OpThawAccount:
		if i.Recipient == zeroKey {
			return fmt.Errorf("%w: account owner is required for %s", ErrInvalidIntent, i.Operation)
		}
	case OpCreateMetadata, OpUpdateMetadata:
		if i.Metadata.Name == "" || i.Metadata.Symbol == "" {
			return fmt.Errorf("%w: name and symbol are required for %s", ErrInvalidIntent, i.Operation)
		}
		if i.Metadata.URI == "" {
			return fmt.Errorf("%w: metadata URI is required for %s (publish assets first)", ErrInvalidIntent, i.Operation)
		}
	default:
		return fmt.Errorf("%w: unknown operation %q", ErrInvalidIntent, i.Operation)
	}

	return nil
}

// RequiresAssets reports whether the operation embeds off-chain metadata
// and therefore needs a published AssetBundle before building.
func (o Operation) RequiresAssets() bool {
	switch o {
	case OpCreateToken, OpCreateMetadata, OpUpdateMetadata:
		return true
	}
	return false
}
