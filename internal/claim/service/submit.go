package service

import (
	"context"
	"errors"
	"strings"
	"time"

	audit "placeclaim/internal/audit/models"
	"placeclaim/internal/claim/models"
	ratelimit "placeclaim/internal/ratelimit/models"
	id "placeclaim/pkg/domain"
	dErrors "placeclaim/pkg/domain-errors"
	"placeclaim/pkg/platform/sentinel"
	"placeclaim/pkg/requestcontext"
)

// SubmitClaim opens a claim on placeID for the authenticated user.
// Eligibility and the insert share one transaction, so of two concurrent
// submissions for a place only one succeeds.
func (s *Service) SubmitClaim(ctx context.Context, placeID id.PlaceID) (result *models.Claim, err error) {
	ctx, span := s.startSpan(ctx, "submit", id.ClaimID{})
	start := time.Now()
	defer func() { s.finish(span, "submit_claim", start, err) }()

	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if err = s.limit(ctx, ratelimit.CategorySubmitClaim, userID.String(), placeID); err != nil {
		return nil, err
	}
	if _, err = s.places.FindPlace(ctx, placeID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "place not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up place")
	}

	claim := models.NewClaim(userID, placeID, requestcontext.Now(ctx))
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.LockUser(ctx, userID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to lock user claims")
		}
		if err := s.eligibility.Check(ctx, userID, placeID); err != nil {
			return err
		}
		if err := s.store.Create(ctx, claim); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.New(dErrors.CodeAlreadyClaimed, "place already has an active claim")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create claim")
		}
		return s.record(ctx, claim.ID, audit.ActionSubmitted, audit.UserActor(userID), map[string]string{
			"place_id": placeID.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	s.logInfo(ctx, "claim submitted", "claim_id", claim.ID.String(), "place_id", placeID.String())
	return claim, nil
}

// SubmitBusinessInfo records the claimant's business details and moves the
// claim to phone verification.
func (s *Service) SubmitBusinessInfo(ctx context.Context, claimID id.ClaimID, info models.BusinessInfo) (result *models.Claim, err error) {
	ctx, span := s.startSpan(ctx, "business_info", claimID)
	start := time.Now()
	defer func() { s.finish(span, "submit_business_info", start, err) }()

	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if err = info.Validate(); err != nil {
		return nil, err
	}
	claim, err := s.loadOwned(ctx, claimID, userID)
	if err != nil {
		return nil, err
	}
	if err = s.limit(ctx, ratelimit.CategoryBusinessInfo, userID.String(), claim.PlaceID); err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		locked, err := s.lockForTransition(ctx, claimID)
		if err != nil {
			return err
		}
		from := locked.Status
		if err := locked.RecordBusinessInfo(info, requestcontext.Now(ctx)); err != nil {
			return err
		}
		if err := s.save(ctx, locked, from); err != nil {
			return err
		}
		claim = locked
		return s.record(ctx, claimID, audit.ActionInfoUpdated, audit.UserActor(userID), map[string]any{
			"role":              info.Role,
			"business_email":    info.BusinessEmail,
			"years_at_location": info.YearsAtLocation,
		})
	})
	if err != nil {
		return nil, err
	}
	return claim, nil
}

// CancelClaim withdraws a non-terminal claim. Only the claimant may cancel.
func (s *Service) CancelClaim(ctx context.Context, claimID id.ClaimID, reason string) (result *models.Claim, err error) {
	ctx, span := s.startSpan(ctx, "cancel", claimID)
	start := time.Now()
	defer func() { s.finish(span, "cancel_claim", start, err) }()

	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(reason) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	claim, err := s.loadOwned(ctx, claimID, userID)
	if err != nil {
		return nil, err
	}
	if err = s.limit(ctx, ratelimit.CategoryCancelClaim, userID.String(), claim.PlaceID); err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		locked, err := s.lockForTransition(ctx, claimID)
		if err != nil {
			return err
		}
		from := locked.Status
		if err := locked.Cancel(reason, requestcontext.Now(ctx)); err != nil {
			return err
		}
		if err := s.save(ctx, locked, from); err != nil {
			return err
		}
		claim = locked
		return s.record(ctx, claimID, audit.ActionCanceled, audit.UserActor(userID), map[string]string{
			"from":   string(from),
			"reason": reason,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logInfo(ctx, "claim canceled", "claim_id", claimID.String())
	return claim, nil
}
