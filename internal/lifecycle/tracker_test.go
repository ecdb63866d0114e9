package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bjeschke/solanahub/internal/domain"
	"github.com/bjeschke/solanahub/internal/solana"
	"github.com/bjeschke/solanahub/internal/solana/stub"
)

func testSubmission(sig string, lastValid uint64) domain.Submission {
	return domain.Submission{
		Signature: sig,
		Checkpoint: domain.Checkpoint{
			Blockhash:            "9sHcv6xwn9YkB8nxTUGKDwPwNnmqVp5oAXxU8Fdkm4J6",
			LastValidBlockHeight: lastValid,
		},
	}
}

func TestTrackerFinalized(t *testing.T) {
	chain := stub.NewRPCClient()
	chain.BlockHeight = 50
	chain.SetStatus("sig-ok", &solana.SignatureStatus{
		ConfirmationStatus: solana.CommitmentFinalized,
	})

	tracker := NewTracker(chain, WithPollInterval(5*time.Millisecond))

	if err := tracker.Confirm(context.Background(), testSubmission("sig-ok", 100)); err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
}

func TestTrackerExecutionError(t *testing.T) {
	chain := stub.NewRPCClient()
	chain.BlockHeight = 50
	detail := map[string]interface{}{"InstructionError": []interface{}{float64(0), "InvalidAccountData"}}
	chain.SetStatus("sig-bad", &solana.SignatureStatus{
		ConfirmationStatus: solana.CommitmentConfirmed,
		Err:                detail,
	})

	tracker := NewTracker(chain, WithPollInterval(5*time.Millisecond))

	err := tracker.Confirm(context.Background(), testSubmission("sig-bad", 100))
	var execErr *domain.ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("Confirm() error = %v, want ExecutionError", err)
	}
	if execErr.Signature != "sig-bad" {
		t.Errorf("signature = %q, want sig-bad", execErr.Signature)
	}
}

func TestTrackerTimeoutPastValidityHeight(t *testing.T) {
	chain := stub.NewRPCClient()
	chain.BlockHeight = 150 // past the checkpoint, no status anywhere

	tracker := NewTracker(chain, WithPollInterval(5*time.Millisecond))

	err := tracker.Confirm(context.Background(), testSubmission("sig-lost", 100))
	if !errors.Is(err, domain.ErrConfirmationTimeout) {
		t.Fatalf("Confirm() error = %v, want ErrConfirmationTimeout", err)
	}
}

func TestTrackerFinalizedAtCutoffNotTimeout(t *testing.T) {
	chain := stub.NewRPCClient()
	chain.BlockHeight = 150
	chain.SetStatus("sig-late", &solana.SignatureStatus{
		ConfirmationStatus: solana.CommitmentFinalized,
	})

	tracker := NewTracker(chain, WithPollInterval(5*time.Millisecond))

	if err := tracker.Confirm(context.Background(), testSubmission("sig-late", 100)); err != nil {
		t.Fatalf("Confirm() error = %v, want success for finalized transaction", err)
	}
}

func TestTrackerContextCancelled(t *testing.T) {
	chain := stub.NewRPCClient()
	chain.BlockHeight = 50 // never past the checkpoint, never finalized

	tracker := NewTracker(chain, WithPollInterval(5*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := tracker.Confirm(ctx, testSubmission("sig-pending", 100))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Confirm() error = %v, want context deadline", err)
	}
}

// stubSubscriber delivers preloaded notifications for subscribed signatures.
type stubSubscriber struct {
	notifications map[string]solana.SignatureNotification
}

func (s *stubSubscriber) SubscribeSignature(_ context.Context, sig string) (<-chan solana.SignatureNotification, error) {
	ch := make(chan solana.SignatureNotification, 1)
	if nf, ok := s.notifications[sig]; ok {
		ch <- nf
	}
	close(ch)
	return ch, nil
}

func (s *stubSubscriber) Close() error { return nil }

func TestTrackerSubscriptionFastPath(t *testing.T) {
	chain := stub.NewRPCClient()
	chain.BlockHeight = 50

	ws := &stubSubscriber{notifications: map[string]solana.SignatureNotification{
		"sig-push": {Signature: "sig-push", Slot: 42},
	}}

	// Poll interval far beyond the test deadline: only the push path can
	// finish in time.
	tracker := NewTracker(chain, WithPollInterval(time.Hour), WithSubscriber(ws))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := tracker.Confirm(ctx, testSubmission("sig-push", 100)); err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
}

func TestTrackerSubscriptionFailureDetail(t *testing.T) {
	chain := stub.NewRPCClient()
	chain.BlockHeight = 50

	detail := map[string]interface{}{"InstructionError": []interface{}{float64(2), "Custom"}}
	ws := &stubSubscriber{notifications: map[string]solana.SignatureNotification{
		"sig-push-bad": {Signature: "sig-push-bad", Slot: 42, Err: detail},
	}}

	tracker := NewTracker(chain, WithPollInterval(time.Hour), WithSubscriber(ws))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := tracker.Confirm(ctx, testSubmission("sig-push-bad", 100))
	var execErr *domain.ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("Confirm() error = %v, want ExecutionError", err)
	}
}

func TestTrackerClosedSubscriptionFallsBackToPolling(t *testing.T) {
	chain := stub.NewRPCClient()
	chain.BlockHeight = 50
	chain.SetStatus("sig-fallback", &solana.SignatureStatus{
		ConfirmationStatus: solana.CommitmentFinalized,
	})

	// Subscriber knows nothing about the signature; its channel closes
	// immediately, simulating a dropped socket.
	ws := &stubSubscriber{notifications: map[string]solana.SignatureNotification{}}

	tracker := NewTracker(chain, WithPollInterval(5*time.Millisecond), WithSubscriber(ws))

	if err := tracker.Confirm(context.Background(), testSubmission("sig-fallback", 100)); err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
}
