// Package service runs the place claim workflow: submission, business info,
// phone verification, fraud routing, cancellation and admin review.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	audit "placeclaim/internal/audit/models"
	"placeclaim/internal/claim/metrics"
	"placeclaim/internal/claim/models"
	directory "placeclaim/internal/directory/models"
	fraud "placeclaim/internal/fraud/models"
	fraudservice "placeclaim/internal/fraud/service"
	ratelimit "placeclaim/internal/ratelimit/models"
	ratelimitservice "placeclaim/internal/ratelimit/service"
	review "placeclaim/internal/review/models"
	reviewservice "placeclaim/internal/review/service"
	verification "placeclaim/internal/verification/models"
	verificationservice "placeclaim/internal/verification/service"
	id "placeclaim/pkg/domain"
	dErrors "placeclaim/pkg/domain-errors"
	"placeclaim/pkg/platform/sentinel"
	"placeclaim/pkg/requestcontext"
)

// Store persists claims and verified owners. Implementations join the
// transaction carried by ctx when there is one.
type Store interface {
	Create(ctx context.Context, claim *models.Claim) error
	Get(ctx context.Context, claimID id.ClaimID) (*models.Claim, error)
	GetForUpdate(ctx context.Context, claimID id.ClaimID) (*models.Claim, error)
	Update(ctx context.Context, claim *models.Claim, expected models.Status) error
	LockUser(ctx context.Context, userID id.UserID) error
	CreateOwner(ctx context.Context, owner *models.VerifiedOwner) error
	FindOwnerByClaim(ctx context.Context, claimID id.ClaimID) (*models.VerifiedOwner, error)
}

type RateLimiter interface {
	Allow(ctx context.Context, category ratelimit.ActionCategory, subject ratelimitservice.Subject) (*ratelimit.RateLimitResult, error)
	ResetUserPlace(ctx context.Context, category ratelimit.ActionCategory, actor string, placeID id.PlaceID) error
}

type EligibilityChecker interface {
	Check(ctx context.Context, userID id.UserID, placeID id.PlaceID) error
}

type PlaceDirectory interface {
	FindPlace(ctx context.Context, placeID id.PlaceID) (*directory.Place, error)
}

type Verifier interface {
	Issue(ctx context.Context, req verificationservice.Request) (*verification.Outcome, error)
	Resend(ctx context.Context, req verificationservice.Request) (*verification.Outcome, error)
	Verify(ctx context.Context, claimID id.ClaimID, code string) (*verification.Attempt, error)
}

type FraudScorer interface {
	Evaluate(ctx context.Context, subject fraudservice.Subject, now time.Time) (*fraud.Analysis, error)
}

type ReviewGate interface {
	Route(analysis *fraud.Analysis, now time.Time) *review.Verdict
	Review(ctx context.Context, claim reviewservice.Reviewable, actorID string, req *review.ReviewRequest, now time.Time) (*review.Verdict, error)
}

type AuditLogger interface {
	Record(ctx context.Context, claimID id.ClaimID, action audit.Action, actor audit.Actor, details any) (*audit.Entry, error)
	List(ctx context.Context, claimID id.ClaimID) ([]*audit.Entry, error)
}

type AdminAuthorizer interface {
	IsAdmin(ctx context.Context, actorID string) (bool, error)
}

// Service orchestrates the claim workflow. Each operation passes the rate
// limiter first and aborts without side effects on any failed gate.
type Service struct {
	store       Store
	tx          StoreTx
	limiter     RateLimiter
	eligibility EligibilityChecker
	places      PlaceDirectory
	verifier    Verifier
	scorer      FraudScorer
	gate        ReviewGate
	audit       AuditLogger
	admins      AdminAuthorizer
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
}

// Deps groups the collaborators New requires.
type Deps struct {
	Store       Store
	Tx          StoreTx
	Limiter     RateLimiter
	Eligibility EligibilityChecker
	Places      PlaceDirectory
	Verifier    Verifier
	Scorer      FraudScorer
	Gate        ReviewGate
	Audit       AuditLogger
	Admins      AdminAuthorizer
}

type Option func(*Service)

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

// WithTracer overrides the tracer taken from the global OpenTelemetry provider.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

func New(deps Deps, opts ...Option) (*Service, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("claim store is required")
	case deps.Tx == nil:
		return nil, errors.New("claim transaction runner is required")
	case deps.Limiter == nil:
		return nil, errors.New("rate limiter is required")
	case deps.Eligibility == nil:
		return nil, errors.New("eligibility checker is required")
	case deps.Places == nil:
		return nil, errors.New("place directory is required")
	case deps.Verifier == nil:
		return nil, errors.New("phone verifier is required")
	case deps.Scorer == nil:
		return nil, errors.New("fraud scorer is required")
	case deps.Gate == nil:
		return nil, errors.New("review gate is required")
	case deps.Audit == nil:
		return nil, errors.New("audit logger is required")
	case deps.Admins == nil:
		return nil, errors.New("admin authorizer is required")
	}

	s := &Service{
		store:       deps.Store,
		tx:          deps.Tx,
		limiter:     deps.Limiter,
		eligibility: deps.Eligibility,
		places:      deps.Places,
		verifier:    deps.Verifier,
		scorer:      deps.Scorer,
		gate:        deps.Gate,
		audit:       deps.Audit,
		admins:      deps.Admins,
		tracer:      otel.Tracer("placeclaim/claim"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) startSpan(ctx context.Context, name string, claimID id.ClaimID) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String("request_id", requestcontext.RequestID(ctx))}
	if !claimID.IsNil() {
		attrs = append(attrs, attribute.String("claim_id", claimID.String()))
	}
	return s.tracer.Start(ctx, "claim."+name, trace.WithAttributes(attrs...))
}

// finish ends the span and counts the operation outcome.
func (s *Service) finish(span trace.Span, op string, start time.Time, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
	if s.metrics != nil {
		s.metrics.ObserveOperation(op, string(outcomeCode(err)), time.Since(start).Seconds())
	}
}

func outcomeCode(err error) dErrors.Code {
	if err == nil {
		return "ok"
	}
	return dErrors.CodeOf(err)
}

// currentUser returns the authenticated caller.
func currentUser(ctx context.Context) (id.UserID, error) {
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		return id.UserID{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	return userID, nil
}

// loadOwned fetches a claim and checks that userID submitted it.
func (s *Service) loadOwned(ctx context.Context, claimID id.ClaimID, userID id.UserID) (*models.Claim, error) {
	claim, err := s.load(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if !claim.IsOwnedBy(userID) {
		return nil, dErrors.New(dErrors.CodeForbidden, "claim belongs to another user")
	}
	return claim, nil
}

func (s *Service) load(ctx context.Context, claimID id.ClaimID) (*models.Claim, error) {
	claim, err := s.store.Get(ctx, claimID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "claim not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load claim")
	}
	return claim, nil
}

// lockForTransition re-reads the claim inside a transaction.
func (s *Service) lockForTransition(ctx context.Context, claimID id.ClaimID) (*models.Claim, error) {
	claim, err := s.store.GetForUpdate(ctx, claimID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "claim not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to lock claim")
	}
	return claim, nil
}

// save persists a transition. A concurrent winner surfaces as invalid_transition.
func (s *Service) save(ctx context.Context, claim *models.Claim, from models.Status) error {
	err := s.store.Update(ctx, claim, from)
	if errors.Is(err, sentinel.ErrInvalidState) {
		return dErrors.New(dErrors.CodeInvalidTransition, "claim changed concurrently")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update claim")
	}
	if s.metrics != nil {
		s.metrics.IncTransition(string(from), string(claim.Status))
	}
	return nil
}

func (s *Service) limit(ctx context.Context, category ratelimit.ActionCategory, actor string, placeID id.PlaceID) error {
	_, err := s.limiter.Allow(ctx, category, ratelimitservice.Subject{
		IP:      requestcontext.ClientIP(ctx),
		Actor:   actor,
		PlaceID: placeID,
	})
	return err
}

func (s *Service) record(ctx context.Context, claimID id.ClaimID, action audit.Action, actor audit.Actor, details any) error {
	if _, err := s.audit.Record(ctx, claimID, action, actor, details); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit entry")
	}
	return nil
}

func (s *Service) logInfo(ctx context.Context, msg string, args ...any) {
	if s.logger == nil {
		return
	}
	args = append(args, "request_id", requestcontext.RequestID(ctx))
	s.logger.InfoContext(ctx, msg, args...)
}

func (s *Service) logWarn(ctx context.Context, msg string, args ...any) {
	if s.logger == nil {
		return
	}
	args = append(args, "request_id", requestcontext.RequestID(ctx))
	s.logger.WarnContext(ctx, msg, args...)
}
