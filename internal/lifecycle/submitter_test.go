package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/blocto/solana-go-sdk/program/system"
	"github.com/blocto/solana-go-sdk/types"

	"github.com/bjeschke/solanahub/internal/domain"
	"github.com/bjeschke/solanahub/internal/solana"
	"github.com/bjeschke/solanahub/internal/solana/stub"
	"github.com/bjeschke/solanahub/internal/tokenops"
	"github.com/bjeschke/solanahub/internal/wallet"
)

func fastPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		BackoffMult:  2.0,
	}
}

// testPlan returns a minimal one-instruction plan signed only by the wallet.
func testPlan(payer types.Account) *tokenops.Plan {
	dest := types.NewAccount()
	return &tokenops.Plan{
		Operation: domain.OpMintTo,
		Mint:      dest.PublicKey,
		Instructions: []types.Instruction{
			system.Transfer(system.TransferParam{
				From:   payer.PublicKey,
				To:     dest.PublicKey,
				Amount: 1,
			}),
		},
	}
}

func newStubChain(lastValid, height uint64) *stub.RPCClient {
	chain := stub.NewRPCClient()
	chain.Blockhash = solana.LatestBlockhash{
		Blockhash:            "9sHcv6xwn9YkB8nxTUGKDwPwNnmqVp5oAXxU8Fdkm4J6",
		LastValidBlockHeight: lastValid,
	}
	chain.BlockHeight = height
	return chain
}

func TestSubmitterSuccess(t *testing.T) {
	payer := types.NewAccount()
	chain := newStubChain(100, 50)
	s := NewSubmitter(chain, wallet.NewKeypairWallet(payer, nil), fastPolicy())

	sub, err := s.Submit(context.Background(), testPlan(payer))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if sub.Signature != "stub-signature-0" {
		t.Errorf("signature = %q, want stub-signature-0", sub.Signature)
	}
	if sub.Checkpoint.Blockhash != chain.Blockhash.Blockhash {
		t.Errorf("checkpoint blockhash = %q, want %q", sub.Checkpoint.Blockhash, chain.Blockhash.Blockhash)
	}
	if sub.Checkpoint.LastValidBlockHeight != 100 {
		t.Errorf("last valid block height = %d, want 100", sub.Checkpoint.LastValidBlockHeight)
	}
	if len(chain.SentTxs) != 1 {
		t.Errorf("sent %d transactions, want 1", len(chain.SentTxs))
	}
}

func TestSubmitterRetriesTransientError(t *testing.T) {
	payer := types.NewAccount()
	chain := newStubChain(100, 50)
	chain.SendErrs = []error{errors.New("connection reset"), nil}

	s := NewSubmitter(chain, wallet.NewKeypairWallet(payer, nil), fastPolicy())

	sub, err := s.Submit(context.Background(), testPlan(payer))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if sub.Signature != "stub-signature-1" {
		t.Errorf("signature = %q, want stub-signature-1", sub.Signature)
	}
}

func TestSubmitterRPCErrorNotRetried(t *testing.T) {
	payer := types.NewAccount()
	chain := newStubChain(100, 50)
	// The second entry would succeed; a retry would mask the failure.
	chain.SendErrs = []error{
		&solana.RPCError{Code: -32002, Message: "Transaction simulation failed"},
		nil,
	}

	s := NewSubmitter(chain, wallet.NewKeypairWallet(payer, nil), fastPolicy())

	_, err := s.Submit(context.Background(), testPlan(payer))
	var rpcErr *solana.RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("Submit() error = %v, want RPCError", err)
	}
	if len(chain.SentTxs) != 0 {
		t.Errorf("sent %d transactions after rejection, want 0", len(chain.SentTxs))
	}
}

func TestSubmitterExpiredCheckpointAborts(t *testing.T) {
	payer := types.NewAccount()
	// Height already past the checkpoint; the first failure must not be
	// followed by a resend.
	chain := newStubChain(100, 150)
	chain.SendErrs = []error{errors.New("connection reset"), nil}

	s := NewSubmitter(chain, wallet.NewKeypairWallet(payer, nil), fastPolicy())

	_, err := s.Submit(context.Background(), testPlan(payer))
	if !errors.Is(err, domain.ErrTransactionExpired) {
		t.Fatalf("Submit() error = %v, want ErrTransactionExpired", err)
	}
	if len(chain.SentTxs) != 0 {
		t.Errorf("sent %d transactions past expiry, want 0", len(chain.SentTxs))
	}
}

func TestSubmitterExhaustsAttempts(t *testing.T) {
	payer := types.NewAccount()
	chain := newStubChain(100, 50)
	transient := errors.New("connection reset")
	chain.SendErrs = []error{transient, transient, transient}

	s := NewSubmitter(chain, wallet.NewKeypairWallet(payer, nil), fastPolicy())

	_, err := s.Submit(context.Background(), testPlan(payer))
	if !errors.Is(err, transient) {
		t.Fatalf("Submit() error = %v, want wrapped %v", err, transient)
	}
}

func TestSubmitterUserRejected(t *testing.T) {
	payer := types.NewAccount()
	chain := newStubChain(100, 50)

	decline := func(ctx context.Context, msg types.Message) bool { return false }
	s := NewSubmitter(chain, wallet.NewKeypairWallet(payer, decline), fastPolicy())

	_, err := s.Submit(context.Background(), testPlan(payer))
	if !errors.Is(err, domain.ErrUserRejected) {
		t.Fatalf("Submit() error = %v, want ErrUserRejected", err)
	}
	if len(chain.SentTxs) != 0 {
		t.Errorf("sent %d transactions after rejected signing, want 0", len(chain.SentTxs))
	}
}
