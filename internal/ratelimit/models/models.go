package models

import (
	"time"

	dErrors "placeclaim/pkg/domain-errors"
)

// ActionCategory groups claim operations that share a rate limit budget.
type ActionCategory string

const (
	CategorySubmitClaim  ActionCategory = "submit_claim"
	CategoryBusinessInfo ActionCategory = "business_info"
	CategorySendCode     ActionCategory = "send_code"
	CategoryResendCode   ActionCategory = "resend_code"
	CategoryVerifyCode   ActionCategory = "verify_code"
	CategoryCancelClaim  ActionCategory = "cancel_claim"
	CategoryAdminReview  ActionCategory = "admin_review"
)

// Categories lists every supported action category.
var Categories = []ActionCategory{
	CategorySubmitClaim,
	CategoryBusinessInfo,
	CategorySendCode,
	CategoryResendCode,
	CategoryVerifyCode,
	CategoryCancelClaim,
	CategoryAdminReview,
}

// IsValid checks if the category is one of the supported values.
func (c ActionCategory) IsValid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseActionCategory validates a raw category name.
func ParseActionCategory(s string) (ActionCategory, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "rate limit category cannot be empty")
	}
	c := ActionCategory(s)
	if !c.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown rate limit category: "+s)
	}
	return c, nil
}

// Axis identifies the dimension a counter is keyed on.
type Axis string

const (
	AxisIP        Axis = "ip"
	AxisUserPlace Axis = "user_place"
)

// BucketRequest describes one sliding-window counter to check and increment.
type BucketRequest struct {
	Key    string
	Axis   Axis
	Limit  int
	Window time.Duration
}

// RateLimitResult represents the outcome of a rate limit check.
// When several buckets are checked together, the result reflects the bucket
// that denied the request, or the most constrained bucket when all allowed it.
type RateLimitResult struct {
	Allowed    bool          `json:"allowed"`
	Axis       Axis          `json:"axis"`
	Limit      int           `json:"limit"`
	Remaining  int           `json:"remaining"`
	ResetAt    time.Time     `json:"reset_at"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
}

// RetryAfterSeconds rounds the retry delay up to whole seconds for headers.
func (r *RateLimitResult) RetryAfterSeconds() int {
	if r == nil || r.RetryAfter <= 0 {
		return 0
	}
	secs := int(r.RetryAfter / time.Second)
	if r.RetryAfter%time.Second != 0 {
		secs++
	}
	return secs
}
