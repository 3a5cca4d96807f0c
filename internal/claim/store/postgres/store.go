// Package postgres persists claims and verified owners.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"placeclaim/internal/claim/models"
	id "placeclaim/pkg/domain"
	"placeclaim/pkg/platform/sentinel"
	"placeclaim/pkg/platform/tx"
)

const uniqueViolation = "23505"

const claimColumns = `
	id, user_id, place_id, status, role, business_email, description,
	years_at_location, phone_number, fraud_score, rejection_reason,
	cancel_reason, created_at, updated_at, resolved_at`

// Store implements the claim and owner stores. Every method joins the
// transaction carried by ctx, if any.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, claim *models.Claim) error {
	_, err := tx.Pick(ctx, s.db).ExecContext(ctx, `
		INSERT INTO claims (`+claimColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, claimArgs(claim)...)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert claim: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, claimID id.ClaimID) (*models.Claim, error) {
	return s.get(ctx, `SELECT `+claimColumns+` FROM claims WHERE id = $1`, claimID)
}

// GetForUpdate locks the claim row for the rest of the transaction.
func (s *Store) GetForUpdate(ctx context.Context, claimID id.ClaimID) (*models.Claim, error) {
	return s.get(ctx, `SELECT `+claimColumns+` FROM claims WHERE id = $1 FOR UPDATE`, claimID)
}

func (s *Store) get(ctx context.Context, query string, claimID id.ClaimID) (*models.Claim, error) {
	claim, err := scanClaim(tx.Pick(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(claimID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find claim: %w", err)
	}
	return claim, nil
}

// Update writes the claim if its stored status still equals expected.
func (s *Store) Update(ctx context.Context, claim *models.Claim, expected models.Status) error {
	res, err := tx.Pick(ctx, s.db).ExecContext(ctx, `
		UPDATE claims SET
			status = $2, role = $3, business_email = $4, description = $5,
			years_at_location = $6, phone_number = $7, fraud_score = $8,
			rejection_reason = $9, cancel_reason = $10, updated_at = $11, resolved_at = $12
		WHERE id = $1 AND status = $13
	`,
		uuid.UUID(claim.ID),
		string(claim.Status),
		string(claim.Role),
		claim.BusinessEmail,
		claim.Description,
		claim.YearsAtLocation,
		claim.PhoneNumber,
		claim.FraudScore,
		claim.RejectionReason,
		claim.CancelReason,
		claim.UpdatedAt,
		claim.ResolvedAt,
		string(expected),
	)
	if err != nil {
		return fmt.Errorf("update claim: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update claim: %w", err)
	}
	if n == 0 {
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *Store) FindActiveByPlace(ctx context.Context, placeID id.PlaceID) (*models.Claim, error) {
	claim, err := scanClaim(tx.Pick(ctx, s.db).QueryRowContext(ctx, `
		SELECT `+claimColumns+`
		FROM claims
		WHERE place_id = $1 AND status = ANY($2)
		LIMIT 1
	`, uuid.UUID(placeID), pq.Array(statusStrings(models.ActiveStatuses))))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find active claim: %w", err)
	}
	return claim, nil
}

func (s *Store) ListByUser(ctx context.Context, userID id.UserID, statuses []models.Status) ([]*models.Claim, error) {
	rows, err := tx.Pick(ctx, s.db).QueryContext(ctx, `
		SELECT `+claimColumns+`
		FROM claims
		WHERE user_id = $1 AND status = ANY($2)
		ORDER BY created_at DESC
	`, uuid.UUID(userID), pq.Array(statusStrings(statuses)))
	if err != nil {
		return nil, fmt.Errorf("list user claims: %w", err)
	}
	defer rows.Close()

	var claims []*models.Claim
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		claims = append(claims, claim)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user claims: %w", err)
	}
	return claims, nil
}

func (s *Store) RecentClaimPlaces(ctx context.Context, userID id.UserID, since time.Time, exclude id.ClaimID) ([]id.PlaceID, error) {
	rows, err := tx.Pick(ctx, s.db).QueryContext(ctx, `
		SELECT place_id
		FROM claims
		WHERE user_id = $1 AND created_at >= $2 AND id <> $3
	`, uuid.UUID(userID), since, uuid.UUID(exclude))
	if err != nil {
		return nil, fmt.Errorf("list recent claim places: %w", err)
	}
	defer rows.Close()

	var places []id.PlaceID
	for rows.Next() {
		var placeID uuid.UUID
		if err := rows.Scan(&placeID); err != nil {
			return nil, fmt.Errorf("scan claim place: %w", err)
		}
		places = append(places, id.PlaceID(placeID))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claim places: %w", err)
	}
	return places, nil
}

// LockUser takes a transaction-scoped advisory lock on the user so policy
// checks spanning several places see a stable view.
func (s *Store) LockUser(ctx context.Context, userID id.UserID) error {
	if _, ok := tx.From(ctx); !ok {
		return errors.New("LockUser requires a transaction")
	}
	_, err := tx.Pick(ctx, s.db).ExecContext(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, "claim-user:"+userID.String())
	if err != nil {
		return fmt.Errorf("lock user claims: %w", err)
	}
	return nil
}

func (s *Store) CreateOwner(ctx context.Context, owner *models.VerifiedOwner) error {
	_, err := tx.Pick(ctx, s.db).ExecContext(ctx, `
		INSERT INTO verified_owners (id, claim_id, place_id, user_id, role, status, subscription_tier, verified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		uuid.UUID(owner.ID),
		uuid.UUID(owner.ClaimID),
		uuid.UUID(owner.PlaceID),
		uuid.UUID(owner.UserID),
		string(owner.Role),
		string(owner.Status),
		string(owner.SubscriptionTier),
		owner.VerifiedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert verified owner: %w", err)
	}
	return nil
}

func (s *Store) FindOwnerByClaim(ctx context.Context, claimID id.ClaimID) (*models.VerifiedOwner, error) {
	var (
		o                           models.VerifiedOwner
		ownerID, claim, place, user uuid.UUID
		role, status, tier          string
	)
	err := tx.Pick(ctx, s.db).QueryRowContext(ctx, `
		SELECT id, claim_id, place_id, user_id, role, status, subscription_tier, verified_at
		FROM verified_owners
		WHERE claim_id = $1
	`, uuid.UUID(claimID)).Scan(&ownerID, &claim, &place, &user, &role, &status, &tier, &o.VerifiedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find verified owner: %w", err)
	}
	o.ID = id.OwnerID(ownerID)
	o.ClaimID = id.ClaimID(claim)
	o.PlaceID = id.PlaceID(place)
	o.UserID = id.UserID(user)
	o.Role = models.Role(role)
	o.Status = models.OwnerStatus(status)
	o.SubscriptionTier = models.SubscriptionTier(tier)
	return &o, nil
}

func claimArgs(c *models.Claim) []any {
	return []any{
		uuid.UUID(c.ID),
		uuid.UUID(c.UserID),
		uuid.UUID(c.PlaceID),
		string(c.Status),
		string(c.Role),
		c.BusinessEmail,
		c.Description,
		c.YearsAtLocation,
		c.PhoneNumber,
		c.FraudScore,
		c.RejectionReason,
		c.CancelReason,
		c.CreatedAt,
		c.UpdatedAt,
		c.ResolvedAt,
	}
}

func scanClaim(row interface{ Scan(dest ...any) error }) (*models.Claim, error) {
	var (
		c                    models.Claim
		claimID, user, place uuid.UUID
		status, role         string
		fraudScore           sql.NullInt64
		resolvedAt           sql.NullTime
	)
	if err := row.Scan(&claimID, &user, &place, &status, &role, &c.BusinessEmail, &c.Description,
		&c.YearsAtLocation, &c.PhoneNumber, &fraudScore, &c.RejectionReason,
		&c.CancelReason, &c.CreatedAt, &c.UpdatedAt, &resolvedAt); err != nil {
		return nil, err
	}
	c.ID = id.ClaimID(claimID)
	c.UserID = id.UserID(user)
	c.PlaceID = id.PlaceID(place)
	c.Status = models.Status(status)
	c.Role = models.Role(role)
	if fraudScore.Valid {
		score := int(fraudScore.Int64)
		c.FraudScore = &score
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		c.ResolvedAt = &t
	}
	return &c, nil
}

func statusStrings(statuses []models.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
