package solana

import (
	"encoding/base64"
	"fmt"
)

// Commitment levels understood by the cluster.
const (
	CommitmentProcessed = "processed"
	CommitmentConfirmed = "confirmed"
	CommitmentFinalized = "finalized"
)

// LatestBlockhash is a recent blockhash plus the last block height at which
// a transaction referencing it will still be accepted.
type LatestBlockhash struct {
	Blockhash            string
	LastValidBlockHeight uint64
}

// SignatureStatus reports the cluster's view of one submitted signature.
type SignatureStatus struct {
	Slot          uint64
	Confirmations *uint64
	// Err is the on-chain execution error, nil on success.
	Err interface{}
	// ConfirmationStatus is one of processed/confirmed/finalized.
	ConfirmationStatus string
}

// Finalized reports whether the status has reached finalized commitment.
func (s *SignatureStatus) Finalized() bool {
	return s != nil && s.ConfirmationStatus == CommitmentFinalized
}

// SignatureInfo from getSignaturesForAddress.
type SignatureInfo struct {
	Signature string
	Slot      int64
	BlockTime *int64
	Err       interface{}
}

// SignaturesOpts defines optional pagination parameters for getSignaturesForAddress.
type SignaturesOpts struct {
	Before string // Start searching backwards from this signature
	Until  string // Search until this signature
	Limit  int    // Maximum number of signatures to return
}

// AccountInfo represents Solana account information.
type AccountInfo struct {
	Lamports   uint64
	Owner      string
	Data       string // base64 encoded
	Executable bool
	RentEpoch  uint64
}

// DecodeData returns the raw account data bytes.
func (a *AccountInfo) DecodeData() ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(a.Data)
	if err != nil {
		return nil, fmt.Errorf("decode account data: %w", err)
	}
	return raw, nil
}

// KeyedAccount pairs an account with its address, as returned by
// getTokenAccountsByOwner and getProgramAccounts.
type KeyedAccount struct {
	Pubkey  string
	Account AccountInfo
}

// Transaction represents a fetched Solana transaction.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // Unix timestamp (seconds)
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// TransactionMeta contains transaction metadata.
type TransactionMeta struct {
	Err         interface{}
	LogMessages []string
}

// TransactionMessage contains parsed transaction message.
type TransactionMessage struct {
	AccountKeys []string
}

// MemcmpFilter matches account data bytes at an offset, base58 encoded.
type MemcmpFilter struct {
	Offset int    `json:"offset"`
	Bytes  string `json:"bytes"`
}

// ProgramAccountsFilter narrows a getProgramAccounts scan.
type ProgramAccountsFilter struct {
	DataSize uint64
	Memcmp   *MemcmpFilter
}
