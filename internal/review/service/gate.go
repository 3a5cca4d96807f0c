// Package service decides how scored claims leave fraud review.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	fraud "placeclaim/internal/fraud/models"
	"placeclaim/internal/review/metrics"
	"placeclaim/internal/review/models"
	dErrors "placeclaim/pkg/domain-errors"
)

const systemActorID = "system"

// AdminAuthorizer reports whether an actor may review claims.
type AdminAuthorizer interface {
	IsAdmin(ctx context.Context, actorID string) (bool, error)
}

// Reviewable is a claim as the gate sees it.
type Reviewable interface {
	AwaitingReview() bool
}

type Gate struct {
	authorizer AdminAuthorizer
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

type Option func(*Gate)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		g.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gate) {
		g.metrics = m
	}
}

func New(authorizer AdminAuthorizer, opts ...Option) (*Gate, error) {
	if authorizer == nil {
		return nil, errors.New("admin authorizer is required")
	}
	g := &Gate{authorizer: authorizer}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Route turns a fraud analysis into an automatic verdict. It returns nil when
// the claim needs a human decision.
func (g *Gate) Route(analysis *fraud.Analysis, now time.Time) *models.Verdict {
	var verdict *models.Verdict
	switch analysis.Route {
	case fraud.RouteAutoApprove:
		verdict = &models.Verdict{Decision: models.DecisionApprove, ActorID: systemActorID, Automatic: true, DecidedAt: now}
	case fraud.RouteAutoReject:
		verdict = &models.Verdict{Decision: models.DecisionReject, Reason: models.AutoRejectReason, ActorID: systemActorID, Automatic: true, DecidedAt: now}
	default:
		return nil
	}
	if g.metrics != nil {
		g.metrics.IncVerdict(string(verdict.Decision), true)
	}
	return verdict
}

// Review checks the actor's authority and the claim's position, then settles
// the admin's decision. req must already be validated.
func (g *Gate) Review(ctx context.Context, claim Reviewable, actorID string, req *models.ReviewRequest, now time.Time) (*models.Verdict, error) {
	if actorID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "reviewer identity is required")
	}
	ok, err := g.authorizer.IsAdmin(ctx, actorID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check review authority")
	}
	if !ok {
		if g.metrics != nil {
			g.metrics.Denied.Inc()
		}
		if g.logger != nil {
			g.logger.WarnContext(ctx, "review attempted without authority", "actor_id", actorID)
		}
		return nil, dErrors.New(dErrors.CodeForbidden, "actor may not review claims")
	}
	if !claim.AwaitingReview() {
		return nil, dErrors.New(dErrors.CodeInvalidTransition, "claim is not awaiting review")
	}
	if req.Decision == models.DecisionReject && req.Reason == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "reason is required when rejecting a claim")
	}

	if g.metrics != nil {
		g.metrics.IncVerdict(string(req.Decision), false)
	}
	return &models.Verdict{
		Decision:  req.Decision,
		Reason:    req.Reason,
		ActorID:   actorID,
		DecidedAt: now,
	}, nil
}
