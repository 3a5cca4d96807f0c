// Package service scores claims for fraud risk and decides their route.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	directory "placeclaim/internal/directory/models"
	"placeclaim/internal/fraud/metrics"
	"placeclaim/internal/fraud/models"
	id "placeclaim/pkg/domain"
	dErrors "placeclaim/pkg/domain-errors"
	"placeclaim/pkg/platform/sentinel"
)

const (
	checkinLookback     = 90 * 24 * time.Hour
	distantClaimWindow  = 24 * time.Hour
	distantClaimMinimum = 100.0 // km
)

// AccountDirectory looks up account age.
type AccountDirectory interface {
	FindAccount(ctx context.Context, userID id.UserID) (*directory.Account, error)
}

// PlaceDirectory looks up place coordinates and region.
type PlaceDirectory interface {
	FindPlace(ctx context.Context, placeID id.PlaceID) (*directory.Place, error)
}

// CheckinCounter counts a user's visits to a place.
type CheckinCounter interface {
	CountCheckins(ctx context.Context, userID id.UserID, placeID id.PlaceID, since time.Time) (int, error)
}

// IPRegionResolver maps client IPs to regions.
type IPRegionResolver interface {
	ResolveRegion(ctx context.Context, ip string) (string, bool)
}

// ClaimHistory lists places the user claimed recently.
type ClaimHistory interface {
	RecentClaimPlaces(ctx context.Context, userID id.UserID, since time.Time, exclude id.ClaimID) ([]id.PlaceID, error)
}

// VerificationHistory counts failed code checks across the user's attempts.
type VerificationHistory interface {
	CountFailedChecks(ctx context.Context, userID id.UserID) (int, error)
}

// Subject is the claim being scored and the request it arrived on.
type Subject struct {
	ClaimID   id.ClaimID
	UserID    id.UserID
	PlaceID   id.PlaceID
	ClientIP  string
	UserAgent string
}

type Service struct {
	accounts      AccountDirectory
	places        PlaceDirectory
	checkins      CheckinCounter
	regions       IPRegionResolver
	claims        ClaimHistory
	verifications VerificationHistory
	thresholds    Thresholds
	logger        *slog.Logger
	metrics       *metrics.Metrics
}

type Option func(*Service)

func WithThresholds(t Thresholds) Option {
	return func(s *Service) {
		s.thresholds = t
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

func New(
	accounts AccountDirectory,
	places PlaceDirectory,
	checkins CheckinCounter,
	regions IPRegionResolver,
	claims ClaimHistory,
	verifications VerificationHistory,
	opts ...Option,
) (*Service, error) {
	if accounts == nil || places == nil || checkins == nil || regions == nil || claims == nil || verifications == nil {
		return nil, errors.New("fraud scorer collaborators are required")
	}
	s := &Service{
		accounts:      accounts,
		places:        places,
		checkins:      checkins,
		regions:       regions,
		claims:        claims,
		verifications: verifications,
		thresholds:    DefaultThresholds(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.thresholds.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Thresholds returns the configured routing thresholds.
func (s *Service) Thresholds() Thresholds {
	return s.thresholds
}

// Evaluate gathers the signal inputs concurrently and scores them.
func (s *Service) Evaluate(ctx context.Context, subject Subject, now time.Time) (*models.Analysis, error) {
	input, err := s.Collect(ctx, subject, now)
	if err != nil {
		if s.metrics != nil {
			s.metrics.CollectErrors.Inc()
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to gather fraud signals")
	}

	analysis := Score(*input, s.thresholds, now)
	if s.metrics != nil {
		s.metrics.Scores.Observe(float64(analysis.Score))
		s.metrics.Routes.WithLabelValues(string(analysis.Route)).Inc()
		for _, sig := range analysis.Signals {
			s.metrics.SignalHits.WithLabelValues(string(sig.Name)).Inc()
		}
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "claim scored",
			"claim_id", subject.ClaimID.String(),
			"score", analysis.Score,
			"route", analysis.Route,
		)
	}
	return analysis, nil
}

// Collect fetches every signal input. Any collaborator failure aborts the
// whole collection so a claim is never scored on partial evidence.
func (s *Service) Collect(ctx context.Context, subject Subject, now time.Time) (*models.Input, error) {
	input := &models.Input{UserAgent: subject.UserAgent}

	place, err := s.places.FindPlace(ctx, subject.PlaceID)
	if err != nil {
		return nil, err
	}
	input.PlaceRegion = place.Region

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		account, err := s.accounts.FindAccount(gctx, subject.UserID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		input.AccountKnown = true
		input.AccountAge = account.Age(now)
		return nil
	})

	g.Go(func() error {
		n, err := s.checkins.CountCheckins(gctx, subject.UserID, subject.PlaceID, now.Add(-checkinLookback))
		if err != nil {
			return err
		}
		input.Checkins = n
		return nil
	})

	g.Go(func() error {
		n, err := s.countDistantClaims(gctx, subject, place, now)
		if err != nil {
			return err
		}
		input.DistantClaims = n
		return nil
	})

	g.Go(func() error {
		n, err := s.verifications.CountFailedChecks(gctx, subject.UserID)
		if err != nil {
			return err
		}
		input.FailedVerifications = n
		return nil
	})

	g.Go(func() error {
		if region, ok := s.regions.ResolveRegion(gctx, subject.ClientIP); ok {
			input.IPRegion = region
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return input, nil
}

func (s *Service) countDistantClaims(ctx context.Context, subject Subject, place *directory.Place, now time.Time) (int, error) {
	placeIDs, err := s.claims.RecentClaimPlaces(ctx, subject.UserID, now.Add(-distantClaimWindow), subject.ClaimID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, pid := range placeIDs {
		if pid == subject.PlaceID {
			continue
		}
		other, err := s.places.FindPlace(ctx, pid)
		if errors.Is(err, sentinel.ErrNotFound) {
			continue
		}
		if err != nil {
			return 0, err
		}
		if DistanceKm(place.Latitude, place.Longitude, other.Latitude, other.Longitude) > distantClaimMinimum {
			n++
		}
	}
	return n, nil
}
