// Package service enforces per-IP and per-user-per-place sliding window
// limits on claim operations.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"placeclaim/internal/ratelimit/config"
	"placeclaim/internal/ratelimit/metrics"
	"placeclaim/internal/ratelimit/models"
	id "placeclaim/pkg/domain"
	dErrors "placeclaim/pkg/domain-errors"
	"placeclaim/pkg/platform/privacy"
	"placeclaim/pkg/requestcontext"
)

// BucketStore checks and increments several sliding windows as one unit.
type BucketStore interface {
	AllowAll(ctx context.Context, now time.Time, reqs []models.BucketRequest) (*models.RateLimitResult, error)
	Reset(ctx context.Context, key string) error
}

// Subject identifies who is acting and on which place.
type Subject struct {
	IP      string
	Actor   string
	PlaceID id.PlaceID
}

type Service struct {
	buckets BucketStore
	config  *config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		s.config = cfg
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(buckets BucketStore, opts ...Option) (*Service, error) {
	if buckets == nil {
		return nil, errors.New("buckets store is required")
	}

	svc := &Service{
		buckets: buckets,
		config:  config.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Check evaluates both axes for a category and records the attempt when
// both have room. A denial consumes nothing on either axis.
func (s *Service) Check(ctx context.Context, category models.ActionCategory, subject Subject) (*models.RateLimitResult, error) {
	limits, ok := s.config.GetLimits(category)
	if !ok {
		// Default-deny when a category has no configured budget.
		s.logWarn(ctx, "rate limit config missing", "category", category)
		result := &models.RateLimitResult{
			Allowed:    false,
			ResetAt:    requestcontext.Now(ctx).Add(time.Minute),
			RetryAfter: time.Minute,
		}
		models.RecordResult(ctx, result)
		return result, nil
	}

	reqs := []models.BucketRequest{
		{
			Key:    models.IPKey(category, subject.IP),
			Axis:   models.AxisIP,
			Limit:  limits.PerIP.RequestsPerWindow,
			Window: limits.PerIP.Window,
		},
		{
			Key:    models.UserPlaceKey(category, subject.Actor, subject.PlaceID),
			Axis:   models.AxisUserPlace,
			Limit:  limits.PerUserPlace.RequestsPerWindow,
			Window: limits.PerUserPlace.Window,
		},
	}

	start := time.Now()
	result, err := s.buckets.AllowAll(ctx, requestcontext.Now(ctx), reqs)
	if s.metrics != nil {
		s.metrics.ObserveCheckLatency(time.Since(start).Seconds())
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncrementStoreErrors()
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check rate limit")
	}

	if s.metrics != nil {
		s.metrics.ObserveDecision(category, result)
	}
	models.RecordResult(ctx, result)
	if !result.Allowed {
		s.logWarn(ctx, "rate limit exceeded",
			"category", category,
			"axis", result.Axis,
			"ip", privacy.AnonymizeIP(subject.IP),
			"actor", subject.Actor,
			"place_id", subject.PlaceID.String(),
			"retry_after_seconds", result.RetryAfterSeconds(),
		)
	}
	return result, nil
}

// Allow runs Check and converts a denial into a rate_limited domain error
// carrying the retry delay.
func (s *Service) Allow(ctx context.Context, category models.ActionCategory, subject Subject) (*models.RateLimitResult, error) {
	result, err := s.Check(ctx, category, subject)
	if err != nil {
		return nil, err
	}
	if !result.Allowed {
		msg := fmt.Sprintf("too many %s attempts, retry in %ds", category, result.RetryAfterSeconds())
		return result, dErrors.RateLimited(msg, result.RetryAfter)
	}
	return result, nil
}

// ResetUserPlace clears the per-actor-and-place counter for a category.
func (s *Service) ResetUserPlace(ctx context.Context, category models.ActionCategory, actor string, placeID id.PlaceID) error {
	if err := s.buckets.Reset(ctx, models.UserPlaceKey(category, actor, placeID)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to reset rate limit")
	}
	return nil
}

func (s *Service) logWarn(ctx context.Context, msg string, args ...any) {
	if s.logger == nil {
		return
	}
	args = append(args, "request_id", requestcontext.RequestID(ctx))
	s.logger.WarnContext(ctx, msg, args...)
}
