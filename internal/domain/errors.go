package domain

import (
	"errors"
	"fmt"
)

// Failure taxonomy for the token operation lifecycle. Every user-triggered
// flow resolves to exactly one of these classes or to a success summary.
var (
	// ErrInvalidAddress is returned when a supplied address is not a
	// structurally valid Solana public key.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrInvalidAmount is returned when a supplied amount is non-numeric,
	// negative, or exceeds integer precision at the mint's decimals.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidIntent is returned when an intent is missing a field
	// required by its operation. Checked before any network call.
	ErrInvalidIntent = errors.New("invalid intent")

	// ErrInsufficientBalance is returned when the actor cannot cover the
	// platform fee plus rent-exempt minimum for a new mint account.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrAuthorityMismatch is returned when the actor does not hold the
	// authority required by the operation. A revoked (absent) authority
	// never matches anyone.
	ErrAuthorityMismatch = errors.New("authority mismatch")

	// ErrPublish is returned when uploading the image or metadata document
	// to the pinning gateway fails.
	ErrPublish = errors.New("publish failed")

	// ErrTransactionExpired is returned when the checkpoint's validity
	// height passed before the transaction could be sent. The transaction
	// was not silently resubmitted.
	ErrTransactionExpired = errors.New("transaction expired")

	// ErrUserRejected is returned when the wallet declined to sign.
	ErrUserRejected = errors.New("user rejected signing")

	// ErrConfirmationTimeout is returned when the validity height passed
	// without the transaction being reported finalized or failed. The
	// outcome is unknown, not negative.
	ErrConfirmationTimeout = errors.New("confirmation timed out: outcome unknown")

	// ErrNotFound is returned when a queried on-chain record (e.g. token
	// metadata) does not exist.
	ErrNotFound = errors.New("not found")
)

// ExecutionError reports a transaction that executed on chain and failed.
// The underlying program error is preserved verbatim. Terminal: the
// lifecycle never retries an execution failure.
type ExecutionError struct {
	Signature string
	// Detail is the error value reported by the cluster, as-is.
	Detail any
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("transaction %s failed on chain: %v", e.Signature, e.Detail)
}
