package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"placeclaim/internal/verification/models"
	id "placeclaim/pkg/domain"
	"placeclaim/pkg/platform/sentinel"
	"placeclaim/pkg/platform/tx"
)

const uniqueViolation = "23505"

// Store persists attempts in verification_attempts. A partial unique index
// keeps at most one issued attempt per claim.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create supersedes and inserts in one transaction, joining the caller's if present.
func (s *Store) Create(ctx context.Context, attempt *models.Attempt) error {
	if _, ok := tx.From(ctx); ok {
		return s.create(ctx, tx.Pick(ctx, s.db), attempt)
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin verification tx: %w", err)
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()
	if err := s.create(ctx, sqlTx, attempt); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit verification tx: %w", err)
	}
	return nil
}

func (s *Store) create(ctx context.Context, exec tx.Executor, attempt *models.Attempt) error {
	_, err := exec.ExecContext(ctx, `
		UPDATE verification_attempts
		SET state = 'superseded', resolved_at = $2
		WHERE claim_id = $1 AND state = 'issued'
	`, uuid.UUID(attempt.ClaimID), attempt.IssuedAt)
	if err != nil {
		return fmt.Errorf("supersede verification attempts: %w", err)
	}

	_, err = exec.ExecContext(ctx, `
		INSERT INTO verification_attempts (
			id, claim_id, user_id, phone_number, code_hash, state,
			failed_checks, resend_count, issued_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		uuid.UUID(attempt.ID),
		uuid.UUID(attempt.ClaimID),
		uuid.UUID(attempt.UserID),
		attempt.PhoneNumber,
		string(attempt.CodeHash),
		string(attempt.State),
		attempt.FailedChecks,
		attempt.ResendCount,
		attempt.IssuedAt,
		attempt.ExpiresAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert verification attempt: %w", err)
	}
	return nil
}

func (s *Store) Latest(ctx context.Context, claimID id.ClaimID) (*models.Attempt, error) {
	row := tx.Pick(ctx, s.db).QueryRowContext(ctx, `
		SELECT id, claim_id, user_id, phone_number, code_hash, state,
		       failed_checks, resend_count, issued_at, expires_at, resolved_at
		FROM verification_attempts
		WHERE claim_id = $1
		ORDER BY issued_at DESC, resend_count DESC
		LIMIT 1
	`, uuid.UUID(claimID))

	var (
		a          models.Attempt
		attemptID  uuid.UUID
		claim      uuid.UUID
		userID     uuid.UUID
		codeHash   string
		state      string
		resolvedAt sql.NullTime
	)
	err := row.Scan(&attemptID, &claim, &userID, &a.PhoneNumber, &codeHash, &state,
		&a.FailedChecks, &a.ResendCount, &a.IssuedAt, &a.ExpiresAt, &resolvedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find verification attempt: %w", err)
	}
	a.ID = id.AttemptID(attemptID)
	a.ClaimID = id.ClaimID(claim)
	a.UserID = id.UserID(userID)
	a.CodeHash = []byte(codeHash)
	a.State = models.State(state)
	if resolvedAt.Valid {
		t := resolvedAt.Time
		a.ResolvedAt = &t
	}
	return &a, nil
}

// Update applies the new state only if the row still holds the expected
// state and failed check count, so concurrent checks cannot both win.
func (s *Store) Update(ctx context.Context, attempt *models.Attempt, expectedState models.State, expectedFailed int) error {
	res, err := tx.Pick(ctx, s.db).ExecContext(ctx, `
		UPDATE verification_attempts
		SET state = $2, failed_checks = $3, resolved_at = $4
		WHERE id = $1 AND state = $5 AND failed_checks = $6
	`,
		uuid.UUID(attempt.ID),
		string(attempt.State),
		attempt.FailedChecks,
		attempt.ResolvedAt,
		string(expectedState),
		expectedFailed,
	)
	if err != nil {
		return fmt.Errorf("update verification attempt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update verification attempt: %w", err)
	}
	if n == 0 {
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *Store) CountFailedChecks(ctx context.Context, userID id.UserID) (int, error) {
	var total int
	err := tx.Pick(ctx, s.db).QueryRowContext(ctx, `
		SELECT COALESCE(SUM(failed_checks), 0)
		FROM verification_attempts
		WHERE user_id = $1
	`, uuid.UUID(userID)).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count failed checks: %w", err)
	}
	return total, nil
}
