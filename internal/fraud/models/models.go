package models

import "time"

// SignalName identifies one risk signal.
type SignalName string

const (
	SignalAccountAge          SignalName = "account_age"
	SignalCheckinDensity      SignalName = "checkin_density"
	SignalDistantClaims       SignalName = "distant_claims"
	SignalFailedVerifications SignalName = "failed_verifications"
	SignalIPRegionMismatch    SignalName = "ip_region_mismatch"
	SignalAutomatedClient     SignalName = "automated_client"
)

// Route is where a scored claim goes next.
type Route string

const (
	RouteAutoApprove  Route = "auto_approve"
	RouteManualReview Route = "manual_review"
	RouteAutoReject   Route = "auto_reject"
)

// Signal is one contribution to the score. Points may be negative for
// signals that lower risk.
type Signal struct {
	Name   SignalName `json:"name"`
	Points int        `json:"points"`
	Detail string     `json:"detail,omitempty"`
}

// Analysis is the scored result, serialized into the audit trail.
type Analysis struct {
	Score         int       `json:"score"`
	Route         Route     `json:"route"`
	Signals       []Signal  `json:"signals"`
	LowThreshold  int       `json:"low_threshold"`
	HighThreshold int       `json:"high_threshold"`
	ScoredAt      time.Time `json:"scored_at"`
}

// Input is the gathered evidence for one claim.
type Input struct {
	// AccountAge is unset when the account could not be found; such accounts
	// score as brand new.
	AccountAge          time.Duration
	AccountKnown        bool
	Checkins            int
	DistantClaims       int
	FailedVerifications int
	IPRegion            string
	PlaceRegion         string
	UserAgent           string
}
