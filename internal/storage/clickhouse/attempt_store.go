package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/bjeschke/solanahub/internal/domain"
	"github.com/bjeschke/solanahub/internal/storage"
)

// AttemptStore implements storage.AttemptStore using ClickHouse.
// The table is append-only; attempts and their later resolutions are
// separate rows, newest row wins when displaying.
type AttemptStore struct {
	conn *Conn
}

// NewAttemptStore creates a new AttemptStore.
func NewAttemptStore(conn *Conn) *AttemptStore {
	return &AttemptStore{conn: conn}
}

// Compile-time interface check.
var _ storage.AttemptStore = (*AttemptStore)(nil)

const attemptColumns = `
	actor, operation, mint, signature, outcome, err_text,
	blockhash, last_valid_block_height, submitted_at, resolved_at
`

// Insert appends an attempt row.
func (s *AttemptStore) Insert(ctx context.Context, a *domain.SubmissionAttempt) error {
	if a == nil {
		return storage.ErrInvalidInput
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO submission_attempts (`+attemptColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	err = batch.Append(
		a.Actor, string(a.Operation), a.Mint, a.Signature, string(a.Outcome), a.ErrText,
		a.Blockhash, a.LastValidBlockHeight,
		time.UnixMilli(a.SubmittedAt).UTC(), time.UnixMilli(a.ResolvedAt).UTC(),
	)
	if err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByActor retrieves the actor's attempts, newest first, at most limit.
func (s *AttemptStore) GetByActor(ctx context.Context, actor string, limit int) ([]*domain.SubmissionAttempt, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT ` + attemptColumns + `
		FROM submission_attempts
		WHERE actor = ?
		ORDER BY submitted_at DESC
		LIMIT ?
	`

	rows, err := s.conn.Query(ctx, query, actor, uint64(limit))
	if err != nil {
		return nil, fmt.Errorf("query by actor: %w", err)
	}
	defer rows.Close()

	return scanAttempts(rows)
}

// GetByMint retrieves every attempt touching a mint, newest first.
func (s *AttemptStore) GetByMint(ctx context.Context, mint string) ([]*domain.SubmissionAttempt, error) {
	query := `
		SELECT ` + attemptColumns + `
		FROM submission_attempts
		WHERE mint = ?
		ORDER BY submitted_at DESC
	`

	rows, err := s.conn.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("query by mint: %w", err)
	}
	defer rows.Close()

	return scanAttempts(rows)
}

func scanAttempts(rows chRows) ([]*domain.SubmissionAttempt, error) {
	var attempts []*domain.SubmissionAttempt

	for rows.Next() {
		var a domain.SubmissionAttempt
		var operation, outcome string
		var submittedAt, resolvedAt time.Time

		err := rows.Scan(
			&a.Actor, &operation, &a.Mint, &a.Signature, &outcome, &a.ErrText,
			&a.Blockhash, &a.LastValidBlockHeight, &submittedAt, &resolvedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan attempt row: %w", err)
		}

		a.Operation = domain.Operation(operation)
		a.Outcome = domain.AttemptOutcome(outcome)
		a.SubmittedAt = submittedAt.UnixMilli()
		a.ResolvedAt = resolvedAt.UnixMilli()

		attempts = append(attempts, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempt rows: %w", err)
	}

	return attempts, nil
}

// chRows is the subset of driver.Rows the scanners need.
type chRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}
