// Package lifecycle drives a token operation from intent to verdict:
// build the instruction plan, sign and send it, then track confirmation.
// Each step either succeeds or maps the failure to one error class; there
// is no cross-step retry.
package lifecycle

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"github.com/bjeschke/solanahub/internal/domain"
	"github.com/bjeschke/solanahub/internal/observability"
	"github.com/bjeschke/solanahub/internal/pinata"
	"github.com/bjeschke/solanahub/internal/storage"
	"github.com/bjeschke/solanahub/internal/tokenops"
)

// PlanBuilder builds instruction plans from intents.
type PlanBuilder interface {
	Build(ctx context.Context, intent domain.TokenIntent) (*tokenops.Plan, error)
}

// PlanSubmitter signs and sends a plan.
type PlanSubmitter interface {
	Submit(ctx context.Context, plan *tokenops.Plan) (domain.Submission, error)
}

// ConfirmationTracker waits for a submission's verdict.
type ConfirmationTracker interface {
	Confirm(ctx context.Context, sub domain.Submission) error
}

// AssetPublisher pins the image and metadata document off chain.
type AssetPublisher interface {
	Publish(ctx context.Context, filename string, image io.Reader, asset pinata.TokenAsset) (domain.AssetBundle, error)
}

// MetadataReader resolves on-chain and off-chain metadata for a mint.
type MetadataReader interface {
	LookupMetadata(ctx context.Context, owner, mint string) (domain.MetadataLookup, error)
}

// Result summarizes a finalized operation.
type Result struct {
	Operation domain.Operation
	Mint      string
	Signature string
}

// Options configures a Service.
type Options struct {
	Builder   PlanBuilder
	Submitter PlanSubmitter
	Tracker   ConfirmationTracker
	Publisher AssetPublisher
	Metadata  MetadataReader

	Records  storage.TokenRecordStore
	Lookups  storage.MetadataLookupStore
	Attempts storage.AttemptStore

	// Network tags persisted records, e.g. "devnet".
	Network string
	Verbose bool
}

// Service is the action boundary for token operations. One Execute call is
// one user action: build, submit, confirm, persist. Audit and record writes
// are best effort and never fail the chain operation they describe.
type Service struct {
	builder   PlanBuilder
	submitter PlanSubmitter
	tracker   ConfirmationTracker
	publisher AssetPublisher
	metadata  MetadataReader

	records  storage.TokenRecordStore
	lookups  storage.MetadataLookupStore
	attempts storage.AttemptStore

	network string
	verbose bool
	now     func() time.Time
}

// NewService creates a Service.
func NewService(opts Options) *Service {
	return &Service{
		builder:   opts.Builder,
		submitter: opts.Submitter,
		tracker:   opts.Tracker,
		publisher: opts.Publisher,
		metadata:  opts.Metadata,
		records:   opts.Records,
		lookups:   opts.Lookups,
		attempts:  opts.Attempts,
		network:   opts.Network,
		verbose:   opts.Verbose,
		now:       time.Now,
	}
}

// Execute runs one token operation end to end. assets, when non-nil, is the
// already-published bundle backing the operation's metadata URI and is only
// consulted for record keeping.
func (s *Service) Execute(ctx context.Context, intent domain.TokenIntent, assets *domain.AssetBundle) (*Result, error) {
	plan, err := s.builder.Build(ctx, intent)
	if err != nil {
		return nil, err
	}

	started := s.now()
	submittedAt := started.UnixMilli()
	sub, err := s.submitter.Submit(ctx, plan)
	if err != nil {
		// A rejected signing prompt never reached the cluster; there is
		// nothing to audit.
		if !errors.Is(err, domain.ErrUserRejected) {
			outcome := outcomeForError(err)
			s.audit(ctx, intent, plan, sub, submittedAt, outcome, err)
			observability.RecordOperation(string(plan.Operation), string(outcome), s.now().Sub(started).Seconds())
		}
		return nil, err
	}

	s.audit(ctx, intent, plan, sub, submittedAt, domain.AttemptSubmitted, nil)
	s.log("submitted %s for %s: %s", plan.Operation, intent.Actor.ToBase58(), sub.Signature)

	if err := s.tracker.Confirm(ctx, sub); err != nil {
		outcome := outcomeForError(err)
		s.audit(ctx, intent, plan, sub, submittedAt, outcome, err)
		observability.RecordConfirmation(string(outcome), s.now().Sub(started).Seconds())
		observability.RecordOperation(string(plan.Operation), string(outcome), s.now().Sub(started).Seconds())
		return nil, err
	}

	s.audit(ctx, intent, plan, sub, submittedAt, domain.AttemptFinalized, nil)
	observability.RecordConfirmation(string(domain.AttemptFinalized), s.now().Sub(started).Seconds())
	observability.RecordOperation(string(plan.Operation), string(domain.AttemptFinalized), s.now().Sub(started).Seconds())
	s.persistAfterSuccess(ctx, intent, plan, assets)

	return &Result{
		Operation: plan.Operation,
		Mint:      plan.Mint.ToBase58(),
		Signature: sub.Signature,
	}, nil
}

// PublishAssets pins the token image and metadata document, returning their
// content-addressed URIs. The bundle stays valid if a later submit fails,
// so a retried operation reuses it instead of re-publishing.
func (s *Service) PublishAssets(ctx context.Context, filename string, image io.Reader, asset pinata.TokenAsset) (domain.AssetBundle, error) {
	started := s.now()
	bundle, err := s.publisher.Publish(ctx, filename, image, asset)
	status := "ok"
	if err != nil {
		status = "error"
	}
	observability.RecordPublish(status, s.now().Sub(started).Seconds())
	return bundle, err
}

// LookupMetadata resolves a mint's metadata and records the lookup in the
// owner's bounded history.
func (s *Service) LookupMetadata(ctx context.Context, owner, mint string) (domain.MetadataLookup, error) {
	lookup, err := s.metadata.LookupMetadata(ctx, owner, mint)
	if err != nil {
		return domain.MetadataLookup{}, err
	}
	if s.lookups != nil {
		if err := s.lookups.Save(ctx, &lookup); err != nil {
			s.log("save metadata lookup for %s: %v", mint, err)
		}
	}
	return lookup, nil
}

// LookupHistory returns the owner's recent metadata lookups, newest first.
func (s *Service) LookupHistory(ctx context.Context, owner string) ([]*domain.MetadataLookup, error) {
	return s.lookups.List(ctx, owner)
}

// Records returns the owner's created-token records, newest first.
func (s *Service) Records(ctx context.Context, owner string) ([]*domain.TokenRecord, error) {
	return s.records.List(ctx, owner)
}

// RemoveRecord deletes one record. Chain state is untouched.
func (s *Service) RemoveRecord(ctx context.Context, owner, mint string) error {
	return s.records.Remove(ctx, owner, mint)
}

// Attempts returns the actor's submission audit trail, newest first.
func (s *Service) Attempts(ctx context.Context, actor string, limit int) ([]*domain.SubmissionAttempt, error) {
	if s.attempts == nil {
		return nil, nil
	}
	return s.attempts.GetByActor(ctx, actor, limit)
}

// persistAfterSuccess updates the display stores after a finalized
// operation. Failures here are logged, never surfaced: the chain already
// holds the truth.
func (s *Service) persistAfterSuccess(ctx context.Context, intent domain.TokenIntent, plan *tokenops.Plan, assets *domain.AssetBundle) {
	if s.records == nil {
		return
	}
	owner := intent.Actor.ToBase58()

	switch plan.Operation {
	case domain.OpCreateToken:
		rec := &domain.TokenRecord{
			Owner:           owner,
			Mint:            plan.Mint.ToBase58(),
			Name:            intent.Metadata.Name,
			Symbol:          intent.Metadata.Symbol,
			Decimals:        intent.Decimals,
			MetadataURI:     intent.Metadata.URI,
			Network:         s.network,
			MintAuthority:   owner,
			FreezeAuthority: owner,
			UpdateAuthority: owner,
			CreatedAt:       s.now().UnixMilli(),
		}
		if assets != nil {
			rec.ImageURI = assets.ImageURI
		}
		if err := s.records.Save(ctx, rec); err != nil {
			s.log("save token record for %s: %v", rec.Mint, err)
		}

	case domain.OpSetAuthority, domain.OpRevokeAuthority:
		s.refreshRecordAuthority(ctx, owner, plan.Mint.ToBase58(), intent)
	}
}

// refreshRecordAuthority patches the stored record after an authority
// change so the display cache does not show a revoked capability.
func (s *Service) refreshRecordAuthority(ctx context.Context, owner, mint string, intent domain.TokenIntent) {
	recs, err := s.records.List(ctx, owner)
	if err != nil {
		s.log("list records for %s: %v", owner, err)
		return
	}
	for _, rec := range recs {
		if rec.Mint != mint {
			continue
		}
		value := ""
		if intent.Operation == domain.OpSetAuthority {
			value = intent.NewAuthority.ToBase58()
		}
		switch intent.AuthorityKind {
		case domain.AuthorityMintTokens:
			rec.MintAuthority = value
		case domain.AuthorityFreezeAccount:
			rec.FreezeAuthority = value
		}
		if err := s.records.Save(ctx, rec); err != nil {
			s.log("update token record %s: %v", mint, err)
		}
		return
	}
}

// audit appends one attempt row, best effort.
func (s *Service) audit(ctx context.Context, intent domain.TokenIntent, plan *tokenops.Plan, sub domain.Submission, submittedAt int64, outcome domain.AttemptOutcome, cause error) {
	if s.attempts == nil {
		return
	}

	attempt := &domain.SubmissionAttempt{
		Actor:                intent.Actor.ToBase58(),
		Operation:            plan.Operation,
		Mint:                 plan.Mint.ToBase58(),
		Signature:            sub.Signature,
		Outcome:              outcome,
		Blockhash:            sub.Checkpoint.Blockhash,
		LastValidBlockHeight: sub.Checkpoint.LastValidBlockHeight,
		SubmittedAt:          submittedAt,
	}
	if cause != nil {
		attempt.ErrText = cause.Error()
	}
	if outcome != domain.AttemptSubmitted {
		attempt.ResolvedAt = s.now().UnixMilli()
	}

	if err := s.attempts.Insert(ctx, attempt); err != nil {
		s.log("audit %s attempt for %s: %v", outcome, attempt.Mint, err)
	}
}

// outcomeForError maps a lifecycle error to its audit outcome.
func outcomeForError(err error) domain.AttemptOutcome {
	switch {
	case errors.Is(err, domain.ErrTransactionExpired):
		return domain.AttemptExpired
	case errors.Is(err, domain.ErrConfirmationTimeout):
		return domain.AttemptTimeout
	default:
		return domain.AttemptFailed
	}
}

func (s *Service) log(format string, args ...interface{}) {
	if s.verbose {
		log.Printf("[lifecycle] "+format, args...)
	}
}
