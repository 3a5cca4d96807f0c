package service

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	audit "placeclaim/internal/audit/models"
	auditservice "placeclaim/internal/audit/service"
	auditstore "placeclaim/internal/audit/store/memory"
	"placeclaim/internal/claim/eligibility"
	"placeclaim/internal/claim/models"
	claimstore "placeclaim/internal/claim/store/memory"
	"placeclaim/internal/directory/admin"
	"placeclaim/internal/directory/geoip"
	directorymemory "placeclaim/internal/directory/memory"
	directory "placeclaim/internal/directory/models"
	fraud "placeclaim/internal/fraud/models"
	fraudservice "placeclaim/internal/fraud/service"
	ratelimit "placeclaim/internal/ratelimit/models"
	ratelimitservice "placeclaim/internal/ratelimit/service"
	"placeclaim/internal/ratelimit/store/bucket"
	review "placeclaim/internal/review/models"
	reviewservice "placeclaim/internal/review/service"
	verificationservice "placeclaim/internal/verification/service"
	verificationstore "placeclaim/internal/verification/store/memory"
	id "placeclaim/pkg/domain"
	dErrors "placeclaim/pkg/domain-errors"
	"placeclaim/pkg/requestcontext"
	"placeclaim/pkg/testutil"
)

var (
	now         = time.Date(2026, 5, 4, 15, 0, 0, 0, time.UTC)
	codePattern = regexp.MustCompile(`\b(\d{6})\b`)
)

const (
	// 203.0.113.0/24 resolves to a different region than the test place.
	foreignIP = "203.0.113.10"
	adminID   = "admin-1"
	botAgent  = "Googlebot/2.1 (+http://www.google.com/bot.html)"
)

type smsOutbox struct {
	mu       sync.Mutex
	messages []string
}

func (o *smsOutbox) Dispatch(_ context.Context, _, message string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages = append(o.messages, message)
	return true
}

func (o *smsOutbox) lastCode() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.messages) == 0 {
		return ""
	}
	m := codePattern.FindStringSubmatch(o.messages[len(o.messages)-1])
	if m == nil {
		return ""
	}
	return m[1]
}

// failingScorer fails the next failures evaluations, then delegates.
type failingScorer struct {
	next     FraudScorer
	failures int
}

func (f *failingScorer) Evaluate(ctx context.Context, subject fraudservice.Subject, at time.Time) (*fraud.Analysis, error) {
	if f.failures > 0 {
		f.failures--
		return nil, dErrors.New(dErrors.CodeInternal, "failed to gather fraud signals")
	}
	return f.next.Evaluate(ctx, subject, at)
}

type ClaimServiceSuite struct {
	suite.Suite
	claims   *claimstore.InMemoryStore
	accounts *directorymemory.Accounts
	places   *directorymemory.Places
	audit    *auditservice.Logger
	sms      *smsOutbox
	scorer   *failingScorer
	limiter  *ratelimitservice.Service
	service  *Service
	place    *directory.Place
}

func TestClaimServiceSuite(t *testing.T) {
	suite.Run(t, new(ClaimServiceSuite))
}

func (s *ClaimServiceSuite) SetupTest() {
	s.claims = claimstore.New()
	s.accounts = directorymemory.NewAccounts()
	s.places = directorymemory.NewPlaces()
	s.sms = &smsOutbox{}

	s.place = &directory.Place{
		ID:        id.PlaceID(uuid.New()),
		Name:      "Blue Bottle Coffee",
		Latitude:  37.7764,
		Longitude: -122.4232,
		Region:    "us-west",
	}
	s.places.Add(s.place)

	regions, err := geoip.ParseTable("203.0.113.0/24=eu-central;198.51.100.0/24=us-west")
	s.Require().NoError(err)

	s.limiter, err = ratelimitservice.New(bucket.NewInMemoryBucketStore())
	s.Require().NoError(err)

	verifications := verificationstore.New()
	verifier, err := verificationservice.New(verifications, s.sms, verificationservice.WithHashCost(bcrypt.MinCost))
	s.Require().NoError(err)

	scorer, err := fraudservice.New(s.accounts, s.places, directorymemory.NewCheckins(), regions, s.claims, verifier)
	s.Require().NoError(err)
	s.scorer = &failingScorer{next: scorer}

	admins := admin.NewStaticAuthorizer([]string{adminID})
	gate, err := reviewservice.New(admins)
	s.Require().NoError(err)

	s.audit, err = auditservice.New(auditstore.NewInMemoryStore())
	s.Require().NoError(err)

	s.service, err = New(Deps{
		Store:       s.claims,
		Tx:          NewMemoryTx(),
		Limiter:     s.limiter,
		Eligibility: eligibility.New(s.claims, eligibility.Policy{}),
		Places:      s.places,
		Verifier:    verifier,
		Scorer:      s.scorer,
		Gate:        gate,
		Audit:       s.audit,
		Admins:      admins,
	})
	s.Require().NoError(err)
}

// newUser registers an account of the given age and returns its context.
func (s *ClaimServiceSuite) newUser(age time.Duration) (id.UserID, context.Context) {
	userID := id.UserID(uuid.New())
	if age > 0 {
		s.accounts.Add(&directory.Account{ID: userID, Email: "owner@example.com", CreatedAt: now.Add(-age)})
	}
	return userID, testutil.UserContext(userID, foreignIP, now)
}

// toPhoneVerification submits a claim with business info and sends a code.
func (s *ClaimServiceSuite) toPhoneVerification(ctx context.Context) *models.Claim {
	claim, err := s.service.SubmitClaim(ctx, s.place.ID)
	s.Require().NoError(err)
	claim, err = s.service.SubmitBusinessInfo(ctx, claim.ID, models.BusinessInfo{
		Role:            models.RoleOwner,
		BusinessEmail:   "hello@bluebottle.example",
		Description:     "Specialty coffee roaster and cafe",
		YearsAtLocation: 6,
		PhoneNumber:     "+14155550167",
	})
	s.Require().NoError(err)
	_, err = s.service.SendVerificationCode(ctx, claim.ID)
	s.Require().NoError(err)
	return claim
}

func (s *ClaimServiceSuite) wrongCode() string {
	if s.sms.lastCode() == "000000" {
		return "111111"
	}
	return "000000"
}

func (s *ClaimServiceSuite) auditActions(claimID id.ClaimID) []audit.Action {
	entries, err := s.audit.List(context.Background(), claimID)
	s.Require().NoError(err)
	actions := make([]audit.Action, 0, len(entries))
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	return actions
}

func (s *ClaimServiceSuite) TestHappyPathApprovesAndCreatesOwner() {
	_, ctx := s.newUser(365 * 24 * time.Hour)
	claim := s.toPhoneVerification(ctx)

	result, err := s.service.VerifyPhoneCode(ctx, claim.ID, s.sms.lastCode())
	s.Require().NoError(err)

	s.Equal(models.OutcomeApproved, result.Outcome)
	s.Equal(models.StatusApproved, result.Claim.Status)
	s.Require().NotNil(result.Claim.FraudScore)
	s.Equal(15, *result.Claim.FraudScore)
	s.NotNil(result.Claim.ResolvedAt)
	s.Require().NotNil(result.Owner)
	s.Equal(models.OwnerStatusActive, result.Owner.Status)
	s.Equal(models.TierFree, result.Owner.SubscriptionTier)

	owner, err := s.claims.FindOwnerByClaim(context.Background(), claim.ID)
	s.Require().NoError(err)
	s.Equal(result.Owner.ID, owner.ID)

	s.Equal([]audit.Action{
		audit.ActionSubmitted,
		audit.ActionInfoUpdated,
		audit.ActionPhoneVerified,
		audit.ActionApproved,
	}, s.auditActions(claim.ID))
}

func (s *ClaimServiceSuite) TestSecondClaimantIsRejectedWithoutSideEffects() {
	_, firstCtx := s.newUser(365 * 24 * time.Hour)
	first, err := s.service.SubmitClaim(firstCtx, s.place.ID)
	s.Require().NoError(err)

	secondID, secondCtx := s.newUser(365 * 24 * time.Hour)
	_, err = s.service.SubmitClaim(secondCtx, s.place.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeAlreadyClaimed), "got %v", err)

	rows, err := s.claims.ListByUser(context.Background(), secondID, []models.Status{
		models.StatusPendingInfo, models.StatusPhoneVerification, models.StatusFraudReview,
		models.StatusApproved, models.StatusRejected, models.StatusCanceled,
	})
	s.Require().NoError(err)
	s.Empty(rows)
	s.Equal([]audit.Action{audit.ActionSubmitted}, s.auditActions(first.ID))
}

func (s *ClaimServiceSuite) TestConcurrentSubmissionsHaveOneWinner() {
	const claimants = 10
	ctxs := make([]context.Context, claimants)
	for i := range ctxs {
		_, ctxs[i] = s.newUser(365 * 24 * time.Hour)
	}

	result := testutil.RunConcurrent(claimants, func(i int) error {
		_, err := s.service.SubmitClaim(ctxs[i], s.place.ID)
		return err
	})

	s.Equal(int32(1), result.Successes)
	s.Equal(int32(claimants-1), result.Conflicts)
	s.Zero(result.Errors)
}

func (s *ClaimServiceSuite) TestSubmitRequiresAuthenticationAndKnownPlace() {
	_, err := s.service.SubmitClaim(requestcontext.WithTime(context.Background(), now), s.place.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	_, ctx := s.newUser(365 * 24 * time.Hour)
	_, err = s.service.SubmitClaim(ctx, id.PlaceID(uuid.New()))
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ClaimServiceSuite) TestRepeatedSubmissionsAreRateLimited() {
	_, ctx := s.newUser(365 * 24 * time.Hour)
	_, err := s.service.SubmitClaim(ctx, s.place.ID)
	s.Require().NoError(err)

	for i := 0; i < 4; i++ {
		_, err = s.service.SubmitClaim(ctx, s.place.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyClaimed), "attempt %d: %v", i+2, err)
	}
	_, err = s.service.SubmitClaim(ctx, s.place.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeRateLimited), "got %v", err)
}

func (s *ClaimServiceSuite) TestSixthVerifyIsExhaustedEvenWithCorrectCode() {
	_, ctx := s.newUser(365 * 24 * time.Hour)
	claim := s.toPhoneVerification(ctx)
	code := s.sms.lastCode()

	for i := 0; i < 4; i++ {
		_, err := s.service.VerifyPhoneCode(ctx, claim.ID, s.wrongCode())
		s.True(dErrors.HasCode(err, dErrors.CodeMismatch), "check %d: %v", i+1, err)
	}
	_, err := s.service.VerifyPhoneCode(ctx, claim.ID, s.wrongCode())
	s.True(dErrors.HasCode(err, dErrors.CodeMismatch))

	_, err = s.service.VerifyPhoneCode(ctx, claim.ID, code)
	s.True(dErrors.HasCode(err, dErrors.CodeExhausted), "got %v", err)

	stored, err := s.claims.Get(context.Background(), claim.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPhoneVerification, stored.Status)
}

func (s *ClaimServiceSuite) TestExhaustedClaimCannotGetANewCode() {
	_, ctx := s.newUser(365 * 24 * time.Hour)
	claim := s.toPhoneVerification(ctx)
	code := s.sms.lastCode()

	for range 5 {
		_, err := s.service.VerifyPhoneCode(ctx, claim.ID, s.wrongCode())
		s.Require().True(dErrors.HasCode(err, dErrors.CodeMismatch))
	}

	_, err := s.service.ResendVerificationCode(ctx, claim.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeExhausted), "resend: %v", err)
	_, err = s.service.SendVerificationCode(ctx, claim.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeExhausted), "send: %v", err)

	_, err = s.service.VerifyPhoneCode(ctx, claim.ID, code)
	s.True(dErrors.HasCode(err, dErrors.CodeExhausted), "verify: %v", err)

	stored, err := s.claims.Get(context.Background(), claim.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPhoneVerification, stored.Status)

	canceled, err := s.service.CancelClaim(ctx, claim.ID, "could not verify the phone")
	s.Require().NoError(err)
	s.Equal(models.StatusCanceled, canceled.Status)
}

func (s *ClaimServiceSuite) TestScoringFailureLeavesCodeUsable() {
	_, ctx := s.newUser(365 * 24 * time.Hour)
	claim := s.toPhoneVerification(ctx)
	code := s.sms.lastCode()

	s.scorer.failures = 1
	_, err := s.service.VerifyPhoneCode(ctx, claim.ID, code)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal), "got %v", err)

	stored, err := s.claims.Get(context.Background(), claim.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPhoneVerification, stored.Status)

	result, err := s.service.VerifyPhoneCode(ctx, claim.ID, code)
	s.Require().NoError(err)
	s.Equal(models.OutcomeApproved, result.Outcome)
	s.Equal([]audit.Action{
		audit.ActionSubmitted, audit.ActionInfoUpdated, audit.ActionPhoneVerified, audit.ActionApproved,
	}, s.auditActions(claim.ID))
}

func (s *ClaimServiceSuite) TestSuccessfulVerificationClearsVerifyBudget() {
	userID, ctx := s.newUser(365 * 24 * time.Hour)
	claim := s.toPhoneVerification(ctx)

	for range 4 {
		_, err := s.service.VerifyPhoneCode(ctx, claim.ID, s.wrongCode())
		s.Require().True(dErrors.HasCode(err, dErrors.CodeMismatch))
	}
	_, err := s.service.VerifyPhoneCode(ctx, claim.ID, s.sms.lastCode())
	s.Require().NoError(err)

	subject := ratelimitservice.Subject{IP: foreignIP, Actor: userID.String(), PlaceID: s.place.ID}
	for i := range 10 {
		_, err := s.limiter.Allow(ctx, ratelimit.CategoryVerifyCode, subject)
		s.Require().NoError(err, "check %d", i+1)
	}
}

func (s *ClaimServiceSuite) TestTransitionsValidateInputWithoutTransport() {
	_, ctx := s.newUser(365 * 24 * time.Hour)
	claim, err := s.service.SubmitClaim(ctx, s.place.ID)
	s.Require().NoError(err)

	s.Run("empty business info", func() {
		_, err := s.service.SubmitBusinessInfo(ctx, claim.ID, models.BusinessInfo{})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation), "got %v", err)
	})

	s.Run("malformed phone number", func() {
		_, err := s.service.SubmitBusinessInfo(ctx, claim.ID, models.BusinessInfo{
			Role:          models.RoleOwner,
			BusinessEmail: "hello@bluebottle.example",
			Description:   "Specialty coffee roaster and cafe",
			PhoneNumber:   "415-555-0167",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation), "got %v", err)
	})

	s.Run("blank cancellation reason", func() {
		_, err := s.service.CancelClaim(ctx, claim.ID, "   ")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation), "got %v", err)
	})

	stored, err := s.claims.Get(context.Background(), claim.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPendingInfo, stored.Status)
	s.Equal([]audit.Action{audit.ActionSubmitted}, s.auditActions(claim.ID))
}

func (s *ClaimServiceSuite) TestVerifyBeforeBusinessInfoIsInvalidTransition() {
	_, ctx := s.newUser(365 * 24 * time.Hour)
	claim, err := s.service.SubmitClaim(ctx, s.place.ID)
	s.Require().NoError(err)

	_, err = s.service.VerifyPhoneCode(ctx, claim.ID, "123456")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))

	_, err = s.service.SendVerificationCode(ctx, claim.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
}

func (s *ClaimServiceSuite) TestResendSupersedesPreviousCode() {
	_, ctx := s.newUser(365 * 24 * time.Hour)
	claim := s.toPhoneVerification(ctx)
	first := s.sms.lastCode()

	outcome, err := s.service.ResendVerificationCode(ctx, claim.ID)
	s.Require().NoError(err)
	s.Equal(1, outcome.ResendCount)
	second := s.sms.lastCode()

	if first != second {
		_, err = s.service.VerifyPhoneCode(ctx, claim.ID, first)
		s.True(dErrors.HasCode(err, dErrors.CodeMismatch), "got %v", err)
	}
	result, err := s.service.VerifyPhoneCode(ctx, claim.ID, second)
	s.Require().NoError(err)
	s.Equal(models.OutcomeApproved, result.Outcome)
}

func (s *ClaimServiceSuite) TestCancel() {
	_, ctx := s.newUser(365 * 24 * time.Hour)
	claim, err := s.service.SubmitClaim(ctx, s.place.ID)
	s.Require().NoError(err)

	s.Run("other users cannot cancel", func() {
		_, otherCtx := s.newUser(365 * 24 * time.Hour)
		_, err := s.service.CancelClaim(otherCtx, claim.ID, "not mine")
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("claimant cancels with a reason", func() {
		canceled, err := s.service.CancelClaim(ctx, claim.ID, "submitted by mistake")
		s.Require().NoError(err)
		s.Equal(models.StatusCanceled, canceled.Status)
		s.Equal("submitted by mistake", canceled.CancelReason)
		s.Equal([]audit.Action{audit.ActionSubmitted, audit.ActionCanceled}, s.auditActions(claim.ID))
	})

	s.Run("terminal claims cannot be canceled again", func() {
		_, err := s.service.CancelClaim(ctx, claim.ID, "again")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	s.Run("place can be claimed again", func() {
		_, err := s.service.SubmitClaim(ctx, s.place.ID)
		s.NoError(err)
	})
}

func (s *ClaimServiceSuite) TestManualReviewThenAdminDecision() {
	// 10-day-old account (+15) from a foreign region (+15) lands on the low threshold.
	_, ctx := s.newUser(10 * 24 * time.Hour)
	claim := s.toPhoneVerification(ctx)

	result, err := s.service.VerifyPhoneCode(ctx, claim.ID, s.sms.lastCode())
	s.Require().NoError(err)
	s.Equal(models.OutcomeManualReview, result.Outcome)
	s.Equal(models.StatusFraudReview, result.Claim.Status)
	s.Nil(result.Owner)
	s.Equal([]audit.Action{
		audit.ActionSubmitted,
		audit.ActionInfoUpdated,
		audit.ActionPhoneVerified,
		audit.ActionFraudFlagged,
	}, s.auditActions(claim.ID))

	adminCtx := requestcontext.WithTime(context.Background(), now)
	approve := &review.ReviewRequest{Decision: review.DecisionApprove}

	_, err = s.service.AdminReviewClaim(adminCtx, claim.ID, "mallory", approve)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	reviewed, err := s.service.AdminReviewClaim(adminCtx, claim.ID, adminID, approve)
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, reviewed.Claim.Status)
	s.Require().NotNil(reviewed.Owner)

	entries, err := s.service.AdminListAuditLog(adminCtx, claim.ID, adminID)
	s.Require().NoError(err)
	last := entries[len(entries)-1]
	s.Equal(audit.ActionApproved, last.Action)
	s.Equal(adminID, last.ActorID)
	s.Equal(audit.ActorAdmin, last.ActorType)

	_, err = s.service.AdminReviewClaim(adminCtx, claim.ID, adminID, approve)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
}

func (s *ClaimServiceSuite) TestAdminRejectionRequiresReason() {
	_, ctx := s.newUser(10 * 24 * time.Hour)
	claim := s.toPhoneVerification(ctx)
	_, err := s.service.VerifyPhoneCode(ctx, claim.ID, s.sms.lastCode())
	s.Require().NoError(err)

	adminCtx := requestcontext.WithTime(context.Background(), now)
	_, err = s.service.AdminReviewClaim(adminCtx, claim.ID, adminID, &review.ReviewRequest{Decision: review.DecisionReject})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	reviewed, err := s.service.AdminReviewClaim(adminCtx, claim.ID, adminID, &review.ReviewRequest{
		Decision: review.DecisionReject,
		Reason:   "business email domain does not match listing",
	})
	s.Require().NoError(err)
	s.Equal(models.StatusRejected, reviewed.Claim.Status)
	s.Equal("business email domain does not match listing", reviewed.Claim.RejectionReason)
	s.Nil(reviewed.Owner)
}

func (s *ClaimServiceSuite) TestHighRiskClaimIsRejectedAutomatically() {
	// Unknown account (+25), foreign region (+15), crawler agent (+10) and
	// four failed checks (+20) reach the high threshold.
	userID := id.UserID(uuid.New())
	ctx := requestcontext.WithUserID(context.Background(), userID)
	ctx = requestcontext.WithClientMetadata(ctx, foreignIP, botAgent)
	ctx = requestcontext.WithTime(ctx, now)

	claim := s.toPhoneVerification(ctx)
	code := s.sms.lastCode()
	for i := 0; i < 4; i++ {
		_, err := s.service.VerifyPhoneCode(ctx, claim.ID, s.wrongCode())
		s.Require().True(dErrors.HasCode(err, dErrors.CodeMismatch))
	}

	result, err := s.service.VerifyPhoneCode(ctx, claim.ID, code)
	s.Require().NoError(err)
	s.Equal(models.OutcomeRejected, result.Outcome)
	s.Equal(models.StatusRejected, result.Claim.Status)
	s.Equal(review.AutoRejectReason, result.Claim.RejectionReason)
	s.Equal(70, *result.Claim.FraudScore)
	s.Nil(result.Owner)

	_, err = s.claims.FindOwnerByClaim(context.Background(), claim.ID)
	s.Error(err)
}

func (s *ClaimServiceSuite) TestReadsAreScopedToOwnerOrAdmin() {
	_, ctx := s.newUser(365 * 24 * time.Hour)
	claim, err := s.service.SubmitClaim(ctx, s.place.ID)
	s.Require().NoError(err)

	got, err := s.service.GetClaim(ctx, claim.ID)
	s.Require().NoError(err)
	s.Equal(claim.ID, got.ID)

	_, otherCtx := s.newUser(365 * 24 * time.Hour)
	_, err = s.service.ListAuditLog(otherCtx, claim.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	_, err = s.service.AdminGetClaim(context.Background(), claim.ID, "")
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	_, err = s.service.AdminGetClaim(context.Background(), id.NewClaimID(), adminID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ClaimServiceSuite) TestNewRejectsMissingCollaborators() {
	_, err := New(Deps{})
	s.Error(err)
}
