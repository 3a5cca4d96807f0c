package service

import (
	"context"
	"time"

	audit "placeclaim/internal/audit/models"
	"placeclaim/internal/claim/models"
	ratelimit "placeclaim/internal/ratelimit/models"
	review "placeclaim/internal/review/models"
	id "placeclaim/pkg/domain"
	"placeclaim/pkg/requestcontext"
)

// AdminReviewClaim settles a claim held for manual review. req must already
// be validated.
func (s *Service) AdminReviewClaim(ctx context.Context, claimID id.ClaimID, actorID string, req *review.ReviewRequest) (result *models.ReviewResult, err error) {
	ctx, span := s.startSpan(ctx, "admin_review", claimID)
	start := time.Now()
	defer func() { s.finish(span, "admin_review_claim", start, err) }()

	claim, err := s.load(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if err = s.limit(ctx, ratelimit.CategoryAdminReview, actorID, claim.PlaceID); err != nil {
		return nil, err
	}

	result = &models.ReviewResult{}
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		locked, err := s.lockForTransition(ctx, claimID)
		if err != nil {
			return err
		}
		verdict, err := s.gate.Review(ctx, locked, actorID, req, requestcontext.Now(ctx))
		if err != nil {
			return err
		}
		owner, err := s.applyVerdict(ctx, locked, verdict, audit.AdminActor(actorID))
		if err != nil {
			return err
		}
		result.Claim = locked
		result.Owner = owner
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logInfo(ctx, "claim reviewed",
		"claim_id", claimID.String(),
		"actor_id", actorID,
		"decision", string(req.Decision),
	)
	return result, nil
}
