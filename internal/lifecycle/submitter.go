package lifecycle

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/blocto/solana-go-sdk/types"

	"github.com/bjeschke/solanahub/internal/domain"
	"github.com/bjeschke/solanahub/internal/observability"
	"github.com/bjeschke/solanahub/internal/solana"
	"github.com/bjeschke/solanahub/internal/tokenops"
	"github.com/bjeschke/solanahub/internal/wallet"
)

// SendClient is the chain surface the submitter needs.
type SendClient interface {
	GetLatestBlockhash(ctx context.Context) (solana.LatestBlockhash, error)
	GetBlockHeight(ctx context.Context) (uint64, error)
	SendTransaction(ctx context.Context, txBase64 string) (string, error)
}

// Submitter signs and sends an instruction plan as a single transaction.
//
// The blockhash checkpoint is fixed once at signing. Retries resend the
// same signed bytes; the checkpoint's validity height is re-checked before
// every resend and an expired checkpoint aborts with ErrTransactionExpired
// rather than silently re-signing against a fresh blockhash.
type Submitter struct {
	chain  SendClient
	wallet wallet.Wallet
	policy RetryPolicy
}

// NewSubmitter creates a Submitter. A zero policy falls back to the default.
func NewSubmitter(chain SendClient, w wallet.Wallet, policy RetryPolicy) *Submitter {
	return &Submitter{
		chain:  chain,
		wallet: w,
		policy: policy.normalize(),
	}
}

// Submit signs the plan and sends it with bounded retries. On success the
// returned submission carries the signature and the checkpoint the
// confirmation tracker needs. No finality is implied.
func (s *Submitter) Submit(ctx context.Context, plan *tokenops.Plan) (domain.Submission, error) {
	latest, err := s.chain.GetLatestBlockhash(ctx)
	if err != nil {
		return domain.Submission{}, fmt.Errorf("fetch blockhash: %w", err)
	}
	checkpoint := domain.Checkpoint{
		Blockhash:            latest.Blockhash,
		LastValidBlockHeight: latest.LastValidBlockHeight,
	}

	msg := types.NewMessage(types.NewMessageParam{
		FeePayer:        s.wallet.PublicKey(),
		RecentBlockhash: latest.Blockhash,
		Instructions:    plan.Instructions,
	})

	tx, err := s.wallet.SignTransaction(ctx, msg, plan.ExtraSigners)
	if err != nil {
		return domain.Submission{}, err
	}

	raw, err := tx.Serialize()
	if err != nil {
		return domain.Submission{}, fmt.Errorf("serialize transaction: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(raw)

	delay := s.policy.InitialDelay
	var lastErr error

	for attempt := 0; attempt < s.policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return domain.Submission{}, ctx.Err()
			case <-time.After(delay):
			}
			delay = s.policy.nextDelay(delay)

			expired, err := s.checkpointExpired(ctx, checkpoint)
			if err != nil {
				return domain.Submission{}, err
			}
			if expired {
				observability.RecordExpiredCheckpoint()
				return domain.Submission{}, fmt.Errorf("%w: %v", domain.ErrTransactionExpired, lastErr)
			}
		}

		observability.RecordSendAttempt()
		sig, err := s.chain.SendTransaction(ctx, encoded)
		if err == nil {
			return domain.Submission{Signature: sig, Checkpoint: checkpoint}, nil
		}

		// The node saw and rejected the transaction; resending the same
		// bytes cannot succeed.
		var rpcErr *solana.RPCError
		if errors.As(err, &rpcErr) {
			return domain.Submission{}, fmt.Errorf("send transaction: %w", err)
		}

		lastErr = err
	}

	return domain.Submission{}, fmt.Errorf("send transaction after %d attempts: %w", s.policy.MaxAttempts, lastErr)
}

func (s *Submitter) checkpointExpired(ctx context.Context, cp domain.Checkpoint) (bool, error) {
	height, err := s.chain.GetBlockHeight(ctx)
	if err != nil {
		return false, fmt.Errorf("check block height: %w", err)
	}
	return height > cp.LastValidBlockHeight, nil
}
