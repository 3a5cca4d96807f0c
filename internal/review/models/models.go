// Package models defines admin review decisions.
package models

import (
	"strings"
	"time"

	dErrors "placeclaim/pkg/domain-errors"
	"placeclaim/pkg/platform/validation"
)

// Decision is the outcome of a review, automatic or by an admin.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// AutoRejectReason is recorded when the fraud score alone rejects a claim.
const AutoRejectReason = "fraud risk"

// ReviewRequest is an admin's decision on a claim awaiting review.
type ReviewRequest struct {
	Decision Decision `json:"decision" validate:"required,oneof=approve reject"`
	Reason   string   `json:"reason" validate:"max=1000"`
}

func (r *ReviewRequest) Normalize() {
	r.Decision = Decision(strings.ToLower(strings.TrimSpace(string(r.Decision))))
	r.Reason = strings.TrimSpace(r.Reason)
}

func (r *ReviewRequest) Validate() error {
	if err := validation.Struct(r); err != nil {
		return err
	}
	if r.Decision == DecisionReject && r.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required when rejecting a claim")
	}
	return nil
}

// Verdict is a settled decision ready to apply to a claim.
type Verdict struct {
	Decision  Decision  `json:"decision"`
	Reason    string    `json:"reason,omitempty"`
	ActorID   string    `json:"actor_id"`
	Automatic bool      `json:"automatic"`
	DecidedAt time.Time `json:"decided_at"`
}
