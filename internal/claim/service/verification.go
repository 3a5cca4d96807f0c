package service

import (
	"context"
	"time"

	audit "placeclaim/internal/audit/models"
	"placeclaim/internal/claim/models"
	fraud "placeclaim/internal/fraud/models"
	fraudservice "placeclaim/internal/fraud/service"
	ratelimit "placeclaim/internal/ratelimit/models"
	review "placeclaim/internal/review/models"
	verification "placeclaim/internal/verification/models"
	verificationservice "placeclaim/internal/verification/service"
	id "placeclaim/pkg/domain"
	dErrors "placeclaim/pkg/domain-errors"
	"placeclaim/pkg/requestcontext"
)

// SendVerificationCode issues a code to the phone number on the claim.
func (s *Service) SendVerificationCode(ctx context.Context, claimID id.ClaimID) (result *verification.Outcome, err error) {
	ctx, span := s.startSpan(ctx, "send_code", claimID)
	start := time.Now()
	defer func() { s.finish(span, "send_verification_code", start, err) }()

	return s.issueCode(ctx, claimID, ratelimit.CategorySendCode, s.verifier.Issue)
}

// ResendVerificationCode supersedes the current code with a new one. It is
// budgeted separately from the first send.
func (s *Service) ResendVerificationCode(ctx context.Context, claimID id.ClaimID) (result *verification.Outcome, err error) {
	ctx, span := s.startSpan(ctx, "resend_code", claimID)
	start := time.Now()
	defer func() { s.finish(span, "resend_verification_code", start, err) }()

	return s.issueCode(ctx, claimID, ratelimit.CategoryResendCode, s.verifier.Resend)
}

func (s *Service) issueCode(
	ctx context.Context,
	claimID id.ClaimID,
	category ratelimit.ActionCategory,
	issue func(context.Context, verificationservice.Request) (*verification.Outcome, error),
) (*verification.Outcome, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	claim, err := s.loadOwned(ctx, claimID, userID)
	if err != nil {
		return nil, err
	}
	if claim.Status != models.StatusPhoneVerification {
		return nil, dErrors.New(dErrors.CodeInvalidTransition, "claim is not awaiting phone verification")
	}
	if err := s.limit(ctx, category, userID.String(), claim.PlaceID); err != nil {
		return nil, err
	}
	return issue(ctx, verificationservice.Request{
		ClaimID:     claim.ID,
		UserID:      userID,
		PhoneNumber: claim.PhoneNumber,
	})
}

// VerifyPhoneCode checks code against the claim's current attempt. On a
// match the claim is scored and moved to fraud review, then settled
// automatically unless the score falls in the manual band. Scoring runs
// before the code is consumed, and the attempt is resolved in the same
// transaction as the claim transition, so a failure leaves the code usable.
func (s *Service) VerifyPhoneCode(ctx context.Context, claimID id.ClaimID, code string) (result *models.VerifyResult, err error) {
	ctx, span := s.startSpan(ctx, "verify_code", claimID)
	start := time.Now()
	defer func() { s.finish(span, "verify_phone_code", start, err) }()

	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	claim, err := s.loadOwned(ctx, claimID, userID)
	if err != nil {
		return nil, err
	}
	if claim.Status != models.StatusPhoneVerification {
		return nil, dErrors.New(dErrors.CodeInvalidTransition, "claim is not awaiting phone verification")
	}
	if err = s.limit(ctx, ratelimit.CategoryVerifyCode, userID.String(), claim.PlaceID); err != nil {
		return nil, err
	}

	analysis, err := s.scorer.Evaluate(ctx, fraudservice.Subject{
		ClaimID:   claimID,
		UserID:    userID,
		PlaceID:   claim.PlaceID,
		ClientIP:  requestcontext.ClientIP(ctx),
		UserAgent: requestcontext.UserAgent(ctx),
	}, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	// A rejected code still commits its failed check; only the claim
	// transition is skipped.
	var checkErr error
	result = &models.VerifyResult{Outcome: models.OutcomeManualReview}
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		now := requestcontext.Now(ctx)
		locked, err := s.lockForTransition(ctx, claimID)
		if err != nil {
			return err
		}
		if locked.Status != models.StatusPhoneVerification {
			return dErrors.New(dErrors.CodeInvalidTransition, "claim is not awaiting phone verification")
		}
		attempt, err := s.verifier.Verify(ctx, claimID, code)
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeInternal) {
				return err
			}
			checkErr = err
			return nil
		}

		from := locked.Status
		if err := locked.EnterFraudReview(analysis.Score, now); err != nil {
			return err
		}
		if err := s.save(ctx, locked, from); err != nil {
			return err
		}
		if err := s.record(ctx, claimID, audit.ActionPhoneVerified, audit.UserActor(userID), phoneVerifiedDetails{
			AttemptID: attempt.ID,
			Fraud:     analysis,
		}); err != nil {
			return err
		}

		verdict := s.gate.Route(analysis, now)
		if verdict == nil {
			result.Claim = locked
			return s.record(ctx, claimID, audit.ActionFraudFlagged, audit.SystemActor(), map[string]any{
				"score": analysis.Score,
				"route": analysis.Route,
			})
		}
		owner, err := s.applyVerdict(ctx, locked, verdict, audit.SystemActor())
		if err != nil {
			return err
		}
		result.Claim = locked
		result.Owner = owner
		if verdict.Decision == review.DecisionApprove {
			result.Outcome = models.OutcomeApproved
		} else {
			result.Outcome = models.OutcomeRejected
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if checkErr != nil {
		return nil, checkErr
	}

	// The phone is proven, so earlier wrong codes stop counting against a
	// later claim by the same user on this place.
	if err := s.limiter.ResetUserPlace(ctx, ratelimit.CategoryVerifyCode, userID.String(), claim.PlaceID); err != nil {
		s.logWarn(ctx, "failed to reset verify budget", "claim_id", claimID.String(), "error", err)
	}
	if s.metrics != nil {
		s.metrics.IncOutcome(string(result.Outcome))
	}
	s.logInfo(ctx, "phone verified",
		"claim_id", claimID.String(),
		"fraud_score", analysis.Score,
		"outcome", string(result.Outcome),
	)
	return result, nil
}

type phoneVerifiedDetails struct {
	AttemptID id.AttemptID    `json:"attempt_id"`
	Fraud     *fraud.Analysis `json:"fraud"`
}

// applyVerdict settles a claim in fraud review. Approval creates the verified
// owner in the same transaction.
func (s *Service) applyVerdict(ctx context.Context, claim *models.Claim, verdict *review.Verdict, actor audit.Actor) (*models.VerifiedOwner, error) {
	from := claim.Status
	details := map[string]any{
		"decision":  verdict.Decision,
		"automatic": verdict.Automatic,
	}
	if verdict.Reason != "" {
		details["reason"] = verdict.Reason
	}

	if verdict.Decision == review.DecisionReject {
		if err := claim.Reject(verdict.Reason, verdict.DecidedAt); err != nil {
			return nil, err
		}
		if err := s.save(ctx, claim, from); err != nil {
			return nil, err
		}
		return nil, s.record(ctx, claim.ID, audit.ActionRejected, actor, details)
	}

	if err := claim.Approve(verdict.DecidedAt); err != nil {
		return nil, err
	}
	if err := s.save(ctx, claim, from); err != nil {
		return nil, err
	}
	owner := models.NewVerifiedOwner(claim, verdict.DecidedAt)
	if err := s.store.CreateOwner(ctx, owner); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create verified owner")
	}
	details["verified_owner_id"] = owner.ID.String()
	if err := s.record(ctx, claim.ID, audit.ActionApproved, actor, details); err != nil {
		return nil, err
	}
	return owner, nil
}
