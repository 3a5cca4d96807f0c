package models

import (
	"encoding/json"
	"time"

	audit "placeclaim/internal/audit/models"
	"placeclaim/pkg/platform/privacy"
)

// ClaimResponse is the caller-facing view of a claim. The phone number is masked.
type ClaimResponse struct {
	ID              string     `json:"id"`
	PlaceID         string     `json:"place_id"`
	UserID          string     `json:"user_id"`
	Status          Status     `json:"status"`
	Role            Role       `json:"role,omitempty"`
	BusinessEmail   string     `json:"business_email,omitempty"`
	Description     string     `json:"description,omitempty"`
	YearsAtLocation int        `json:"years_at_location,omitempty"`
	Phone           string     `json:"phone,omitempty"`
	FraudScore      *int       `json:"fraud_score,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	CancelReason    string     `json:"cancel_reason,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
}

func ToClaimResponse(c *Claim) *ClaimResponse {
	return &ClaimResponse{
		ID:              c.ID.String(),
		PlaceID:         c.PlaceID.String(),
		UserID:          c.UserID.String(),
		Status:          c.Status,
		Role:            c.Role,
		BusinessEmail:   c.BusinessEmail,
		Description:     c.Description,
		YearsAtLocation: c.YearsAtLocation,
		Phone:           privacy.MaskPhone(c.PhoneNumber),
		FraudScore:      c.FraudScore,
		RejectionReason: c.RejectionReason,
		CancelReason:    c.CancelReason,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
		ResolvedAt:      c.ResolvedAt,
	}
}

// VerificationOutcome is where a claim landed after its phone was verified.
type VerificationOutcome string

const (
	OutcomeApproved     VerificationOutcome = "approved"
	OutcomeRejected     VerificationOutcome = "rejected"
	OutcomeManualReview VerificationOutcome = "manual_review"
)

// VerifyResult is returned by VerifyPhoneCode.
type VerifyResult struct {
	Claim   *Claim
	Outcome VerificationOutcome
	Owner   *VerifiedOwner
}

type VerifyResponse struct {
	Claim   *ClaimResponse      `json:"claim"`
	Outcome VerificationOutcome `json:"outcome"`
	OwnerID string              `json:"verified_owner_id,omitempty"`
}

func ToVerifyResponse(r *VerifyResult) *VerifyResponse {
	resp := &VerifyResponse{Claim: ToClaimResponse(r.Claim), Outcome: r.Outcome}
	if r.Owner != nil {
		resp.OwnerID = r.Owner.ID.String()
	}
	return resp
}

// ReviewResult is returned by AdminReviewClaim.
type ReviewResult struct {
	Claim *Claim
	Owner *VerifiedOwner
}

type AuditEntryResponse struct {
	ID        string          `json:"id"`
	Action    audit.Action    `json:"action"`
	ActorID   string          `json:"actor_id"`
	ActorType string          `json:"actor_type"`
	Timestamp time.Time       `json:"timestamp"`
	Context   json.RawMessage `json:"context,omitempty"`
}

func ToAuditResponse(entries []*audit.Entry) []*AuditEntryResponse {
	out := make([]*AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, &AuditEntryResponse{
			ID:        e.ID.String(),
			Action:    e.Action,
			ActorID:   e.ActorID,
			ActorType: string(e.ActorType),
			Timestamp: e.Timestamp,
			Context:   e.Context,
		})
	}
	return out
}
