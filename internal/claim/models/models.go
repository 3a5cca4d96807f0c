// Package models defines the claim aggregate and its lifecycle.
package models

import (
	"slices"
	"strings"
	"time"

	id "placeclaim/pkg/domain"
	dErrors "placeclaim/pkg/domain-errors"
	"placeclaim/pkg/platform/validation"
)

// Status is a claim's lifecycle position.
type Status string

const (
	StatusPendingInfo       Status = "pending_info"
	StatusPhoneVerification Status = "phone_verification"
	StatusFraudReview       Status = "fraud_review"
	StatusApproved          Status = "approved"
	StatusRejected          Status = "rejected"
	StatusCanceled          Status = "canceled"
)

// ActiveStatuses are the non-terminal statuses. A place holds at most one
// claim in any of them.
var ActiveStatuses = []Status{StatusPendingInfo, StatusPhoneVerification, StatusFraudReview}

var transitions = map[Status][]Status{
	StatusPendingInfo:       {StatusPhoneVerification, StatusCanceled},
	StatusPhoneVerification: {StatusFraudReview, StatusCanceled},
	StatusFraudReview:       {StatusApproved, StatusRejected, StatusCanceled},
}

func (s Status) IsActive() bool {
	return slices.Contains(ActiveStatuses, s)
}

func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusCanceled
}

// CanTransitionTo reports whether next directly follows s.
func (s Status) CanTransitionTo(next Status) bool {
	return slices.Contains(transitions[s], next)
}

// Role is the relationship the claimant asserts with the place.
type Role string

const (
	RoleOwner   Role = "owner"
	RoleManager Role = "manager"
)

// Claim is the root aggregate of the workflow.
type Claim struct {
	ID              id.ClaimID
	UserID          id.UserID
	PlaceID         id.PlaceID
	Status          Status
	Role            Role
	BusinessEmail   string
	Description     string
	YearsAtLocation int
	PhoneNumber     string
	FraudScore      *int
	RejectionReason string
	CancelReason    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ResolvedAt      *time.Time
}

// NewClaim starts a claim in pending_info.
func NewClaim(userID id.UserID, placeID id.PlaceID, now time.Time) *Claim {
	return &Claim{
		ID:        id.NewClaimID(),
		UserID:    userID,
		PlaceID:   placeID,
		Status:    StatusPendingInfo,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsOwnedBy reports whether userID submitted the claim.
func (c *Claim) IsOwnedBy(userID id.UserID) bool {
	return c.UserID == userID
}

// AwaitingReview reports whether the claim sits in fraud review.
func (c *Claim) AwaitingReview() bool {
	return c.Status == StatusFraudReview
}

// TransitionTo moves the claim to next or fails with invalid_transition.
func (c *Claim) TransitionTo(next Status, now time.Time) error {
	if !c.Status.CanTransitionTo(next) {
		return dErrors.New(dErrors.CodeInvalidTransition,
			"cannot move claim from "+string(c.Status)+" to "+string(next))
	}
	c.Status = next
	c.UpdatedAt = now
	if next.IsTerminal() {
		c.ResolvedAt = &now
	}
	return nil
}

// RecordBusinessInfo stores the business details and moves to phone verification.
func (c *Claim) RecordBusinessInfo(info BusinessInfo, now time.Time) error {
	if err := info.Validate(); err != nil {
		return err
	}
	if err := c.TransitionTo(StatusPhoneVerification, now); err != nil {
		return err
	}
	c.Role = info.Role
	c.BusinessEmail = info.BusinessEmail
	c.Description = info.Description
	c.YearsAtLocation = info.YearsAtLocation
	c.PhoneNumber = info.PhoneNumber
	return nil
}

// EnterFraudReview records the score once the phone is verified.
func (c *Claim) EnterFraudReview(score int, now time.Time) error {
	if err := c.TransitionTo(StatusFraudReview, now); err != nil {
		return err
	}
	c.FraudScore = &score
	return nil
}

func (c *Claim) Approve(now time.Time) error {
	return c.TransitionTo(StatusApproved, now)
}

func (c *Claim) Reject(reason string, now time.Time) error {
	if err := c.TransitionTo(StatusRejected, now); err != nil {
		return err
	}
	c.RejectionReason = reason
	return nil
}

// Cancel withdraws the claim. A reason is required.
func (c *Claim) Cancel(reason string, now time.Time) error {
	if strings.TrimSpace(reason) == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	if err := c.TransitionTo(StatusCanceled, now); err != nil {
		return err
	}
	c.CancelReason = reason
	return nil
}

// BusinessInfo is the validated content of the business-info step.
type BusinessInfo struct {
	Role            Role   `json:"role" validate:"required,oneof=owner manager"`
	BusinessEmail   string `json:"business_email" validate:"required,email,max=254"`
	Description     string `json:"description" validate:"notblank,max=2000"`
	YearsAtLocation int    `json:"years_at_location" validate:"min=0,max=150"`
	PhoneNumber     string `json:"phone_number" validate:"required,phone"`
}

// Validate applies the same rules as the business-info request, so callers
// that bypass HTTP cannot advance a claim with incomplete details.
func (i BusinessInfo) Validate() error {
	return validation.Struct(i)
}

// OwnerStatus tracks whether a verified owner still holds the listing.
type OwnerStatus string

const OwnerStatusActive OwnerStatus = "active"

// SubscriptionTier is the owner's plan. New owners start on free.
type SubscriptionTier string

const TierFree SubscriptionTier = "free"

// VerifiedOwner links a user to a place once a claim is approved. It
// outlives the claim that created it.
type VerifiedOwner struct {
	ID               id.OwnerID
	ClaimID          id.ClaimID
	PlaceID          id.PlaceID
	UserID           id.UserID
	Role             Role
	Status           OwnerStatus
	SubscriptionTier SubscriptionTier
	VerifiedAt       time.Time
}

// NewVerifiedOwner builds the owner record for an approved claim.
func NewVerifiedOwner(c *Claim, now time.Time) *VerifiedOwner {
	return &VerifiedOwner{
		ID:               id.NewOwnerID(),
		ClaimID:          c.ID,
		PlaceID:          c.PlaceID,
		UserID:           c.UserID,
		Role:             c.Role,
		Status:           OwnerStatusActive,
		SubscriptionTier: TierFree,
		VerifiedAt:       now,
	}
}
