package service

import (
	"fmt"
	"time"

	"github.com/mssola/useragent"

	"placeclaim/internal/fraud/models"
)

const (
	MaxScore = 100
	MinScore = 0

	DefaultLowThreshold  = 30
	DefaultHighThreshold = 70
)

// signal weights and caps
const (
	newAccountPoints   = 25
	youngAccountPoints = 15
	newAccountAge      = 7 * 24 * time.Hour
	youngAccountAge    = 30 * 24 * time.Hour
	checkinPoints      = -5
	checkinFloor       = -20
	distantClaimPoints = 15
	distantClaimsCap   = 30
	failedCheckPoints  = 5
	failedChecksCap    = 25
	regionMismatchPts  = 15
	automatedClientPts = 10
)

// Thresholds split scores into routes: below Low auto-approves, at or above
// High auto-rejects, anything between goes to manual review.
type Thresholds struct {
	Low  int
	High int
}

// DefaultThresholds returns the production thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{Low: DefaultLowThreshold, High: DefaultHighThreshold}
}

// Validate checks that the thresholds describe a non-empty review band.
func (t Thresholds) Validate() error {
	if t.Low < MinScore || t.High > MaxScore || t.Low >= t.High {
		return fmt.Errorf("invalid fraud thresholds: low=%d high=%d", t.Low, t.High)
	}
	return nil
}

// RouteFor maps a score onto a route.
func (t Thresholds) RouteFor(score int) models.Route {
	switch {
	case score < t.Low:
		return models.RouteAutoApprove
	case score >= t.High:
		return models.RouteAutoReject
	default:
		return models.RouteManualReview
	}
}

// Score computes the clamped risk score for input. It is pure: the same
// input and thresholds always produce the same analysis.
func Score(input models.Input, thresholds Thresholds, now time.Time) *models.Analysis {
	signals := make([]models.Signal, 0, 6)
	add := func(name models.SignalName, points int, detail string) {
		if points != 0 {
			signals = append(signals, models.Signal{Name: name, Points: points, Detail: detail})
		}
	}

	switch {
	case !input.AccountKnown || input.AccountAge < newAccountAge:
		add(models.SignalAccountAge, newAccountPoints, "account younger than 7 days")
	case input.AccountAge < youngAccountAge:
		add(models.SignalAccountAge, youngAccountPoints, "account younger than 30 days")
	}

	if input.Checkins > 0 {
		add(models.SignalCheckinDensity, max(checkinPoints*input.Checkins, checkinFloor),
			fmt.Sprintf("%d check-ins at the place in 90 days", input.Checkins))
	}

	if input.DistantClaims > 0 {
		add(models.SignalDistantClaims, min(distantClaimPoints*input.DistantClaims, distantClaimsCap),
			fmt.Sprintf("%d claims on distant places in 24 hours", input.DistantClaims))
	}

	if input.FailedVerifications > 0 {
		add(models.SignalFailedVerifications, min(failedCheckPoints*input.FailedVerifications, failedChecksCap),
			fmt.Sprintf("%d failed code checks", input.FailedVerifications))
	}

	if input.IPRegion != "" && input.PlaceRegion != "" && input.IPRegion != input.PlaceRegion {
		add(models.SignalIPRegionMismatch, regionMismatchPts,
			fmt.Sprintf("request from %s, place in %s", input.IPRegion, input.PlaceRegion))
	}

	if IsAutomatedClient(input.UserAgent) {
		add(models.SignalAutomatedClient, automatedClientPts, "user agent identifies a bot")
	}

	total := 0
	for _, s := range signals {
		total += s.Points
	}
	total = min(max(total, MinScore), MaxScore)

	return &models.Analysis{
		Score:         total,
		Route:         thresholds.RouteFor(total),
		Signals:       signals,
		LowThreshold:  thresholds.Low,
		HighThreshold: thresholds.High,
		ScoredAt:      now,
	}
}

// IsAutomatedClient reports whether the User-Agent parses as a bot or crawler.
// An empty agent is not treated as automated; plenty of mobile SDKs omit it.
func IsAutomatedClient(ua string) bool {
	if ua == "" {
		return false
	}
	return useragent.New(ua).Bot()
}
