package domain

// AttemptOutcome classifies how a submission attempt resolved.
type AttemptOutcome string

const (
	AttemptSubmitted AttemptOutcome = "submitted"
	AttemptFinalized AttemptOutcome = "finalized"
	AttemptFailed    AttemptOutcome = "failed"
	AttemptExpired   AttemptOutcome = "expired"
	AttemptTimeout   AttemptOutcome = "timeout"
)

// SubmissionAttempt is one row of the append-only submission audit trail.
// Written best-effort around submit/confirm; never consulted by the
// lifecycle itself.
type SubmissionAttempt struct {
	Actor     string
	Operation Operation
	Mint      string
	Signature string
	Outcome   AttemptOutcome
	// ErrText is the classified error message for failed/expired/timeout
	// outcomes, empty otherwise.
	ErrText string

	Blockhash            string
	LastValidBlockHeight uint64

	SubmittedAt int64 // unix milliseconds
	ResolvedAt  int64 // unix milliseconds, zero while pending
}
