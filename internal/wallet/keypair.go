package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"

	"github.com/bjeschke/solanahub/internal/domain"
)

// KeypairWallet signs with a locally held ed25519 keypair.
type KeypairWallet struct {
	account  types.Account
	approver Approver
}

// NewKeypairWallet wraps an account. A nil approver signs unconditionally.
func NewKeypairWallet(account types.Account, approver Approver) *KeypairWallet {
	return &KeypairWallet{account: account, approver: approver}
}

// FromBase58 creates a wallet from a base58-encoded private key.
func FromBase58(key string) (*KeypairWallet, error) {
	account, err := types.AccountFromBase58(key)
	if err != nil {
		return nil, fmt.Errorf("parse base58 key: %w", err)
	}
	return NewKeypairWallet(account, nil), nil
}

// FromFile loads a keypair from a solana-cli id.json file, a JSON array of
// 64 byte values.
func FromFile(path string) (*KeypairWallet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keypair file: %w", err)
	}

	var bytes []byte
	if err := json.Unmarshal(raw, &bytes); err != nil {
		return nil, fmt.Errorf("parse keypair file: %w", err)
	}

	account, err := types.AccountFromBytes(bytes)
	if err != nil {
		return nil, fmt.Errorf("invalid keypair: %w", err)
	}
	return NewKeypairWallet(account, nil), nil
}

// PublicKey returns the wallet's public key.
func (w *KeypairWallet) PublicKey() common.PublicKey {
	return w.account.PublicKey
}

// SignTransaction signs the message with the wallet key and any extra signers.
func (w *KeypairWallet) SignTransaction(ctx context.Context, msg types.Message, extraSigners []types.Account) (types.Transaction, error) {
	if w.approver != nil && !w.approver(ctx, msg) {
		return types.Transaction{}, domain.ErrUserRejected
	}

	signers := make([]types.Account, 0, 1+len(extraSigners))
	signers = append(signers, w.account)
	signers = append(signers, extraSigners...)

	tx, err := types.NewTransaction(types.NewTransactionParam{
		Message: msg,
		Signers: signers,
	})
	if err != nil {
		return types.Transaction{}, fmt.Errorf("sign transaction: %w", err)
	}
	return tx, nil
}
