package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("PLACECLAIM_ADDR", "")
	t.Setenv("FRAUD_LOW_THRESHOLD", "")
	t.Setenv("CLAIM_REJECTION_COOLDOWN", "")

	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 30, cfg.Fraud.LowThreshold)
	assert.Equal(t, 70, cfg.Fraud.HighThreshold)
	assert.Equal(t, 10*time.Minute, cfg.Verification.CodeTTL)
	assert.Equal(t, 5, cfg.Verification.MaxFailedChecks)
	assert.Zero(t, cfg.Eligibility.RejectionCooldown, "rejected claims may be resubmitted immediately by default")
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("RATE_LIMIT_BACKEND", "redis")
	t.Setenv("RATE_LIMIT_OVERRIDES", "verify_code=60/10")
	t.Setenv("CLAIM_REJECTION_COOLDOWN", "72h")
	t.Setenv("SINGLE_ACTIVE_CLAIM_PER_USER", "true")
	t.Setenv("ADMIN_ACTOR_IDS", "alice, bob ,")
	t.Setenv("VERIFICATION_MAX_FAILED_CHECKS", "not-a-number")

	cfg := FromEnv()

	assert.Equal(t, "redis", cfg.RateLimit.Backend)
	assert.Equal(t, "verify_code=60/10", cfg.RateLimit.Overrides)
	assert.Equal(t, 72*time.Hour, cfg.Eligibility.RejectionCooldown)
	assert.True(t, cfg.Eligibility.SingleActiveClaimPerUser)
	assert.Equal(t, []string{"alice", "bob"}, cfg.Auth.AdminActors)
	assert.Equal(t, 5, cfg.Verification.MaxFailedChecks, "invalid values fall back to defaults")
}
