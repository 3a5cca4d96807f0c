// Package eligibility decides whether a user may open a new claim on a place.
package eligibility

import (
	"context"
	"errors"
	"time"

	"placeclaim/internal/claim/models"
	id "placeclaim/pkg/domain"
	dErrors "placeclaim/pkg/domain-errors"
	"placeclaim/pkg/platform/sentinel"
	"placeclaim/pkg/requestcontext"
)

// Reader is the claim lookup the checker needs. Inside a transaction it must
// see the transaction's view.
type Reader interface {
	FindActiveByPlace(ctx context.Context, placeID id.PlaceID) (*models.Claim, error)
	ListByUser(ctx context.Context, userID id.UserID, statuses []models.Status) ([]*models.Claim, error)
}

// Policy configures the optional admission rules. The zero value allows a
// user several active claims on different places and immediate resubmission
// after a rejection.
type Policy struct {
	SingleActiveClaimPerUser bool
	RejectionCooldown        time.Duration
}

type Checker struct {
	claims Reader
	policy Policy
}

func New(claims Reader, policy Policy) *Checker {
	return &Checker{claims: claims, policy: policy}
}

// Check returns nil when userID may start a claim on placeID, already_claimed
// when an active claim on the place exists, or not_eligible when a policy rule
// blocks the user.
func (c *Checker) Check(ctx context.Context, userID id.UserID, placeID id.PlaceID) error {
	active, err := c.claims.FindActiveByPlace(ctx, placeID)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
	case err != nil:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check active claims")
	case active.IsOwnedBy(userID):
		return dErrors.New(dErrors.CodeAlreadyClaimed, "you already have an active claim on this place")
	default:
		return dErrors.New(dErrors.CodeAlreadyClaimed, "place already has an active claim")
	}

	if c.policy.SingleActiveClaimPerUser {
		mine, err := c.claims.ListByUser(ctx, userID, models.ActiveStatuses)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check user claims")
		}
		if len(mine) > 0 {
			return dErrors.New(dErrors.CodeNotEligible, "finish or cancel your active claim before starting another")
		}
	}

	if c.policy.RejectionCooldown > 0 {
		rejected, err := c.claims.ListByUser(ctx, userID, []models.Status{models.StatusRejected})
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check rejected claims")
		}
		now := requestcontext.Now(ctx)
		for _, prior := range rejected {
			if prior.PlaceID != placeID || prior.ResolvedAt == nil {
				continue
			}
			if now.Sub(*prior.ResolvedAt) < c.policy.RejectionCooldown {
				return dErrors.New(dErrors.CodeNotEligible, "a recent claim on this place was rejected, try again later")
			}
		}
	}
	return nil
}
