package stub

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bjeschke/solanahub/internal/solana"
)

// ErrNotFound is returned when a transaction is not found.
var ErrNotFound = errors.New("not found")

// RPCClient is an in-memory double for the HTTP RPC client. Zero values are
// usable; every field can be preloaded by tests.
type RPCClient struct {
	mu sync.Mutex

	Balances     map[string]uint64
	Accounts     map[string]*solana.AccountInfo
	Transactions map[string]*solana.Transaction
	Signatures   map[string][]solana.SignatureInfo
	Statuses     map[string]*solana.SignatureStatus

	Blockhash   solana.LatestBlockhash
	BlockHeight uint64
	RentExempt  uint64
	Version     string

	// SendErrs is consumed one entry per SendTransaction call. A nil entry
	// means the call succeeds.
	SendErrs []error
	// SentTxs records every base64 payload passed to SendTransaction.
	SentTxs []string

	OwnerAccounts   map[string][]solana.KeyedAccount
	ProgramAccounts map[string][]solana.KeyedAccount

	sendSeq int
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Balances:        make(map[string]uint64),
		Accounts:        make(map[string]*solana.AccountInfo),
		Transactions:    make(map[string]*solana.Transaction),
		Signatures:      make(map[string][]solana.SignatureInfo),
		Statuses:        make(map[string]*solana.SignatureStatus),
		OwnerAccounts:   make(map[string][]solana.KeyedAccount),
		ProgramAccounts: make(map[string][]solana.KeyedAccount),
		Version:         "2.1.0",
	}
}

// GetBalance returns the preloaded lamport balance for a pubkey.
func (c *RPCClient) GetBalance(_ context.Context, pubkey string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Balances[pubkey], nil
}

// GetLatestBlockhash returns the preloaded blockhash.
func (c *RPCClient) GetLatestBlockhash(_ context.Context) (solana.LatestBlockhash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Blockhash, nil
}

// GetBlockHeight returns the preloaded block height.
func (c *RPCClient) GetBlockHeight(_ context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.BlockHeight, nil
}

// GetMinimumBalanceForRentExemption returns the preloaded rent floor.
func (c *RPCClient) GetMinimumBalanceForRentExemption(_ context.Context, _ uint64) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.RentExempt, nil
}

// SendTransaction records the payload and returns a deterministic signature,
// or the next queued error.
func (c *RPCClient) SendTransaction(_ context.Context, txBase64 string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	seq := c.sendSeq
	c.sendSeq++

	if seq < len(c.SendErrs) && c.SendErrs[seq] != nil {
		return "", c.SendErrs[seq]
	}

	c.SentTxs = append(c.SentTxs, txBase64)
	return fmt.Sprintf("stub-signature-%d", seq), nil
}

// GetSignatureStatuses returns preloaded statuses, nil for unknown signatures.
func (c *RPCClient) GetSignatureStatuses(_ context.Context, signatures []string, _ bool) ([]*solana.SignatureStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	statuses := make([]*solana.SignatureStatus, len(signatures))
	for i, sig := range signatures {
		statuses[i] = c.Statuses[sig]
	}
	return statuses, nil
}

// GetTransaction retrieves a transaction by signature from the stub store.
func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, ok := c.Transactions[signature]
	if !ok {
		return nil, ErrNotFound
	}
	return tx, nil
}

// GetSignaturesForAddress retrieves signatures for an address from the stub store.
func (c *RPCClient) GetSignaturesForAddress(_ context.Context, address string, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sigs, ok := c.Signatures[address]
	if !ok {
		return nil, nil
	}

	// Apply limit if specified
	if opts != nil && opts.Limit > 0 && opts.Limit < len(sigs) {
		return sigs[:opts.Limit], nil
	}

	return sigs, nil
}

// GetAccountInfo returns the preloaded account, nil when absent.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Accounts[pubkey], nil
}

// GetTokenAccountsByOwner returns the preloaded accounts for an owner.
func (c *RPCClient) GetTokenAccountsByOwner(_ context.Context, owner, _ string) ([]solana.KeyedAccount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.OwnerAccounts[owner], nil
}

// GetProgramAccounts returns the preloaded accounts for a program, ignoring
// filters. Tests preload exactly the accounts the filters would match.
func (c *RPCClient) GetProgramAccounts(_ context.Context, programID string, _ []solana.ProgramAccountsFilter) ([]solana.KeyedAccount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ProgramAccounts[programID], nil
}

// GetSlot returns a fixed slot.
func (c *RPCClient) GetSlot(_ context.Context) (int64, error) {
	return 1000, nil
}

// GetVersion returns the preloaded node version.
func (c *RPCClient) GetVersion(_ context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Version, nil
}

// SetStatus records a signature status.
func (c *RPCClient) SetStatus(sig string, status *solana.SignatureStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Statuses[sig] = status
}

// AddTransaction adds a transaction to the stub store.
func (c *RPCClient) AddTransaction(tx *solana.Transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Transactions[tx.Signature] = tx
}

// AddSignatures adds signatures for an address to the stub store.
func (c *RPCClient) AddSignatures(address string, sigs []solana.SignatureInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Signatures[address] = sigs
}
