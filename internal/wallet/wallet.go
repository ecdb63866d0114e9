// Package wallet abstracts transaction signing. The server binary signs with
// a local keypair; an Approver hook models the owner declining to sign.
package wallet

import (
	"context"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
)

// Wallet signs transactions on behalf of an account owner.
type Wallet interface {
	// PublicKey returns the wallet's public key.
	PublicKey() common.PublicKey

	// SignTransaction assembles and signs a transaction for the given
	// message. Extra signers cover ephemeral accounts such as a fresh
	// mint keypair. Returns domain.ErrUserRejected when the owner
	// declines to sign.
	SignTransaction(ctx context.Context, msg types.Message, extraSigners []types.Account) (types.Transaction, error)
}

// Approver decides whether the wallet signs a given message. Returning false
// models the owner dismissing the signing prompt.
type Approver func(ctx context.Context, msg types.Message) bool
