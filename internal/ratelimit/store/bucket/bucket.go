// Package bucket provides sliding-window counter stores for the rate limiter.
//
// Every store checks a batch of buckets atomically: the request is admitted
// only when all buckets have room, and only then is each bucket incremented.
package bucket

import (
	"fmt"
	"time"

	"placeclaim/internal/ratelimit/models"
)

func validateRequests(reqs []models.BucketRequest) error {
	if len(reqs) == 0 {
		return fmt.Errorf("at least one rate limit bucket is required")
	}
	for _, r := range reqs {
		if r.Key == "" {
			return fmt.Errorf("rate limit key is required")
		}
		if r.Limit <= 0 {
			return fmt.Errorf("rate limit for %s must be positive", r.Key)
		}
		if r.Window <= 0 {
			return fmt.Errorf("rate limit window for %s must be positive", r.Key)
		}
	}
	return nil
}

// deniedResult builds the result for the first bucket without room.
func deniedResult(req models.BucketRequest, oldest time.Time, now time.Time) *models.RateLimitResult {
	resetAt := now.Add(req.Window)
	if !oldest.IsZero() {
		resetAt = oldest.Add(req.Window)
	}
	retry := resetAt.Sub(now)
	if retry < 0 {
		retry = 0
	}
	return &models.RateLimitResult{
		Allowed:    false,
		Axis:       req.Axis,
		Limit:      req.Limit,
		Remaining:  0,
		ResetAt:    resetAt,
		RetryAfter: retry,
	}
}

// allowedResult reports the most constrained bucket after admission.
// counts holds each bucket's size after the increment; oldest its earliest entry.
func allowedResult(reqs []models.BucketRequest, counts []int, oldest []time.Time) *models.RateLimitResult {
	best := 0
	for i := range reqs {
		if reqs[i].Limit-counts[i] < reqs[best].Limit-counts[best] {
			best = i
		}
	}
	return &models.RateLimitResult{
		Allowed:   true,
		Axis:      reqs[best].Axis,
		Limit:     reqs[best].Limit,
		Remaining: reqs[best].Limit - counts[best],
		ResetAt:   oldest[best].Add(reqs[best].Window),
	}
}
