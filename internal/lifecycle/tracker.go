package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/bjeschke/solanahub/internal/domain"
	"github.com/bjeschke/solanahub/internal/solana"
)

// StatusClient is the chain surface the tracker polls.
type StatusClient interface {
	GetSignatureStatuses(ctx context.Context, signatures []string, searchHistory bool) ([]*solana.SignatureStatus, error)
	GetBlockHeight(ctx context.Context) (uint64, error)
}

// Tracker waits for a submitted transaction to reach finalized commitment.
//
// A websocket subscription, when available, is the fast path; polling runs
// regardless, so a dropped socket degrades latency but never correctness.
// The status check always runs before the height cutoff check, so a
// transaction that finalized on the last valid block is reported as
// finalized, never as timed out.
type Tracker struct {
	chain        StatusClient
	subscriber   solana.WSClient
	pollInterval time.Duration
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithPollInterval overrides the status poll cadence.
func WithPollInterval(d time.Duration) TrackerOption {
	return func(t *Tracker) {
		if d > 0 {
			t.pollInterval = d
		}
	}
}

// WithSubscriber attaches a websocket client for push notifications.
func WithSubscriber(ws solana.WSClient) TrackerOption {
	return func(t *Tracker) { t.subscriber = ws }
}

// NewTracker creates a Tracker.
func NewTracker(chain StatusClient, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		chain:        chain,
		pollInterval: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Confirm blocks until the submission is finalized, fails on chain, or its
// checkpoint's validity height passes without a verdict.
//
// Returns nil on finalized success, *domain.ExecutionError when the
// transaction executed and failed, and ErrConfirmationTimeout when the
// height cutoff passed with the outcome unknown. A timeout is not a
// failure claim: the transaction may still have landed.
func (t *Tracker) Confirm(ctx context.Context, sub domain.Submission) error {
	var notifications <-chan solana.SignatureNotification
	if t.subscriber != nil {
		ch, err := t.subscriber.SubscribeSignature(ctx, sub.Signature)
		if err == nil {
			notifications = ch
		}
		// Subscription failure is not fatal, polling covers it.
	}

	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case nf, ok := <-notifications:
			if !ok {
				// Socket dropped; keep polling.
				notifications = nil
				continue
			}
			if nf.Err != nil {
				return &domain.ExecutionError{Signature: sub.Signature, Detail: nf.Err}
			}
			return nil

		case <-ticker.C:
			done, err := t.checkOnce(ctx, sub, false)
			if done {
				return err
			}

			height, herr := t.chain.GetBlockHeight(ctx)
			if herr != nil {
				// Transient; the next tick retries.
				continue
			}
			if height > sub.Checkpoint.LastValidBlockHeight {
				// Past the cutoff. One last look through history before
				// declaring the outcome unknown.
				done, err := t.checkOnce(ctx, sub, true)
				if done {
					return err
				}
				return fmt.Errorf("%w: signature %s", domain.ErrConfirmationTimeout, sub.Signature)
			}
		}
	}
}

// checkOnce polls the signature status. The first return value reports
// whether a verdict was reached.
func (t *Tracker) checkOnce(ctx context.Context, sub domain.Submission, searchHistory bool) (bool, error) {
	statuses, err := t.chain.GetSignatureStatuses(ctx, []string{sub.Signature}, searchHistory)
	if err != nil || len(statuses) == 0 {
		return false, nil
	}

	status := statuses[0]
	if status == nil {
		return false, nil
	}
	if status.Err != nil {
		return true, &domain.ExecutionError{Signature: sub.Signature, Detail: status.Err}
	}
	if status.Finalized() {
		return true, nil
	}
	return false, nil
}
