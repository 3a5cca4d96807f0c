// Package service issues and checks one-time phone verification codes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"placeclaim/internal/verification/metrics"
	"placeclaim/internal/verification/models"
	id "placeclaim/pkg/domain"
	dErrors "placeclaim/pkg/domain-errors"
	"placeclaim/pkg/platform/privacy"
	"placeclaim/pkg/platform/sentinel"
	"placeclaim/pkg/requestcontext"
)

const (
	DefaultCodeTTL         = 10 * time.Minute
	DefaultMaxFailedChecks = 5
)

// Store persists verification attempts.
type Store interface {
	// Create supersedes the claim's issued attempt, if any, and inserts attempt
	// as the new active one.
	Create(ctx context.Context, attempt *models.Attempt) error
	// Latest returns the most recently issued attempt for the claim.
	Latest(ctx context.Context, claimID id.ClaimID) (*models.Attempt, error)
	// Update persists state, failed checks and resolution. It fails with
	// sentinel.ErrInvalidState when the stored attempt no longer matches
	// the expected state and failed check count.
	Update(ctx context.Context, attempt *models.Attempt, expectedState models.State, expectedFailed int) error
	CountFailedChecks(ctx context.Context, userID id.UserID) (int, error)
}

// Dispatcher hands a code to the SMS collaborator without waiting for delivery.
type Dispatcher interface {
	Dispatch(ctx context.Context, to, message string) bool
}

// Request identifies who gets a code, and where it goes.
type Request struct {
	ClaimID     id.ClaimID
	UserID      id.UserID
	PhoneNumber string
}

type Service struct {
	store           Store
	dispatcher      Dispatcher
	codeTTL         time.Duration
	maxFailedChecks int
	hashCost        int
	generate        func() (string, error)
	logger          *slog.Logger
	metrics         *metrics.Metrics
}

type Option func(*Service)

func WithCodeTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.codeTTL = ttl
		}
	}
}

func WithMaxFailedChecks(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxFailedChecks = n
		}
	}
}

// WithHashCost sets the bcrypt cost. Tests use bcrypt.MinCost.
func WithHashCost(cost int) Option {
	return func(s *Service) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.hashCost = cost
		}
	}
}

// WithCodeGenerator replaces the random code source.
func WithCodeGenerator(fn func() (string, error)) Option {
	return func(s *Service) {
		s.generate = fn
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(store Store, dispatcher Dispatcher, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("verification store is required")
	}
	if dispatcher == nil {
		return nil, errors.New("sms dispatcher is required")
	}
	s := &Service{
		store:           store,
		dispatcher:      dispatcher,
		codeTTL:         DefaultCodeTTL,
		maxFailedChecks: DefaultMaxFailedChecks,
		hashCost:        bcrypt.DefaultCost,
		generate:        GenerateCode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue creates a fresh code for the claim, superseding any active one, and
// queues it for delivery. A claim whose attempt was exhausted gets no new code.
func (s *Service) Issue(ctx context.Context, req Request) (*models.Outcome, error) {
	prior, err := s.store.Latest(ctx, req.ClaimID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification attempt")
	}
	if prior != nil && prior.State == models.StateExhausted {
		return nil, errExhausted()
	}
	return s.issue(ctx, req, 0, "initial")
}

// Resend issues a replacement code. It requires a prior attempt that is
// neither verified nor exhausted.
func (s *Service) Resend(ctx context.Context, req Request) (*models.Outcome, error) {
	prior, err := s.store.Latest(ctx, req.ClaimID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeInvalidTransition, "no verification code has been sent for this claim")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification attempt")
	}
	switch prior.State {
	case models.StateVerified:
		return nil, dErrors.New(dErrors.CodeInvalidTransition, "phone number already verified")
	case models.StateExhausted:
		return nil, errExhausted()
	}
	return s.issue(ctx, req, prior.ResendCount+1, "resend")
}

func errExhausted() error {
	return dErrors.New(dErrors.CodeExhausted, "too many failed attempts, this claim can no longer be verified")
}

func (s *Service) issue(ctx context.Context, req Request, resendCount int, kind string) (*models.Outcome, error) {
	code, err := s.generate()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate verification code")
	}
	hash, err := hashCode(code, s.hashCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash verification code")
	}

	now := requestcontext.Now(ctx)
	attempt := &models.Attempt{
		ID:          id.NewAttemptID(),
		ClaimID:     req.ClaimID,
		UserID:      req.UserID,
		PhoneNumber: req.PhoneNumber,
		CodeHash:    hash,
		State:       models.StateIssued,
		ResendCount: resendCount,
		IssuedAt:    now,
		ExpiresAt:   now.Add(s.codeTTL),
	}
	if err := s.store.Create(ctx, attempt); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "another code was issued concurrently")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store verification attempt")
	}

	// Delivery itself is fire-and-forget, but a full queue means the code
	// never leaves, so the caller is told to retry.
	message := fmt.Sprintf("Your place claim verification code is %s. It expires in %d minutes.", code, int(s.codeTTL.Minutes()))
	if !s.dispatcher.Dispatch(ctx, req.PhoneNumber, message) {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "verification code not queued for delivery",
				"claim_id", req.ClaimID.String(),
				"phone", privacy.MaskPhone(req.PhoneNumber),
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		return nil, dErrors.New(dErrors.CodeUnavailable, "verification code could not be sent, try again shortly")
	}
	if s.metrics != nil {
		s.metrics.IncIssued(kind)
	}

	return &models.Outcome{
		AttemptID:   attempt.ID,
		MaskedPhone: privacy.MaskPhone(req.PhoneNumber),
		ExpiresAt:   attempt.ExpiresAt,
		ResendCount: resendCount,
	}, nil
}

// Verify checks code against the claim's latest attempt. The checks run in
// order: exhausted, expired, then the code itself. A wrong code counts as a
// failed check, and the check that reaches the cap exhausts the attempt.
func (s *Service) Verify(ctx context.Context, claimID id.ClaimID, code string) (*models.Attempt, error) {
	attempt, err := s.store.Latest(ctx, claimID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeInvalidTransition, "no verification code has been sent for this claim")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification attempt")
	}

	now := requestcontext.Now(ctx)
	expectedState, expectedFailed := attempt.State, attempt.FailedChecks

	switch attempt.State {
	case models.StateVerified:
		return nil, s.checked("already_verified", dErrors.New(dErrors.CodeInvalidTransition, "phone number already verified"))
	case models.StateExhausted:
		return nil, s.checked("exhausted", errExhausted())
	case models.StateExpired:
		return nil, s.checked("expired", dErrors.New(dErrors.CodeExpired, "verification code has expired"))
	}

	if attempt.FailedChecks >= s.maxFailedChecks {
		attempt.Resolve(models.StateExhausted, now)
		if err := s.save(ctx, attempt, expectedState, expectedFailed); err != nil {
			return nil, err
		}
		return nil, s.checked("exhausted", errExhausted())
	}

	if attempt.IsExpired(now) {
		attempt.Resolve(models.StateExpired, now)
		if err := s.save(ctx, attempt, expectedState, expectedFailed); err != nil {
			return nil, err
		}
		return nil, s.checked("expired", dErrors.New(dErrors.CodeExpired, "verification code has expired"))
	}

	if !codeMatches(attempt.CodeHash, code) {
		attempt.FailedChecks++
		if attempt.FailedChecks >= s.maxFailedChecks {
			attempt.Resolve(models.StateExhausted, now)
		}
		if err := s.save(ctx, attempt, expectedState, expectedFailed); err != nil {
			return nil, err
		}
		return nil, s.checked("mismatch", dErrors.New(dErrors.CodeMismatch, "verification code does not match"))
	}

	attempt.Resolve(models.StateVerified, now)
	if err := s.save(ctx, attempt, expectedState, expectedFailed); err != nil {
		return nil, err
	}
	s.checked("verified", nil)
	return attempt, nil
}

// CountFailedChecks totals wrong codes across every attempt the user made.
func (s *Service) CountFailedChecks(ctx context.Context, userID id.UserID) (int, error) {
	return s.store.CountFailedChecks(ctx, userID)
}

func (s *Service) save(ctx context.Context, attempt *models.Attempt, expectedState models.State, expectedFailed int) error {
	err := s.store.Update(ctx, attempt, expectedState, expectedFailed)
	if errors.Is(err, sentinel.ErrInvalidState) {
		return dErrors.New(dErrors.CodeConflict, "verification attempt changed concurrently, retry")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update verification attempt")
	}
	return nil
}

func (s *Service) checked(outcome string, err error) error {
	if s.metrics != nil {
		s.metrics.IncCheck(outcome)
	}
	return err
}
