package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"placeclaim/internal/ratelimit/models"
)

// Limit defines a sliding window budget.
type Limit struct {
	RequestsPerWindow int
	Window            time.Duration
}

// CategoryLimits holds the two axes checked for one action category.
type CategoryLimits struct {
	PerIP        Limit
	PerUserPlace Limit
}

// Config holds rate limiting configuration keyed by action category.
type Config struct {
	Categories map[models.ActionCategory]CategoryLimits
}

// DefaultConfig returns the production defaults. Every category shares a one
// hour window; the per-IP budget is looser because several users may share
// an address.
func DefaultConfig() *Config {
	hour := time.Hour
	limits := func(ip, userPlace int) CategoryLimits {
		return CategoryLimits{
			PerIP:        Limit{RequestsPerWindow: ip, Window: hour},
			PerUserPlace: Limit{RequestsPerWindow: userPlace, Window: hour},
		}
	}
	return &Config{
		Categories: map[models.ActionCategory]CategoryLimits{
			models.CategorySubmitClaim:  limits(20, 5),
			models.CategoryBusinessInfo: limits(30, 10),
			models.CategorySendCode:     limits(30, 5),
			models.CategoryResendCode:   limits(30, 3),
			models.CategoryVerifyCode:   limits(60, 10),
			models.CategoryCancelClaim:  limits(30, 5),
			models.CategoryAdminReview:  limits(120, 20),
		},
	}
}

// GetLimits returns the limits configured for a category.
func (c *Config) GetLimits(category models.ActionCategory) (CategoryLimits, bool) {
	l, ok := c.Categories[category]
	if !ok || l.PerIP.RequestsPerWindow <= 0 || l.PerUserPlace.RequestsPerWindow <= 0 {
		return CategoryLimits{}, false
	}
	return l, true
}

// WithLimit returns a copy of the config with one category overridden.
func (c *Config) WithLimit(category models.ActionCategory, limits CategoryLimits) *Config {
	out := &Config{Categories: make(map[models.ActionCategory]CategoryLimits, len(c.Categories)+1)}
	for k, v := range c.Categories {
		out.Categories[k] = v
	}
	out.Categories[category] = limits
	return out
}

// WithOverrides applies operator overrides of the form
// "verify_code=60/10,resend_code=30/3", where each value is the per-IP then
// per-user-place budget for the category's existing window. An empty string
// returns c unchanged.
func (c *Config) WithOverrides(raw string) (*Config, error) {
	out := c
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, budgets, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("rate limit override %q: expected category=ip/user_place", part)
		}
		category, err := models.ParseActionCategory(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		ipRaw, userPlaceRaw, ok := strings.Cut(budgets, "/")
		if !ok {
			return nil, fmt.Errorf("rate limit override %q: expected ip/user_place budgets", part)
		}
		ip, err := strconv.Atoi(strings.TrimSpace(ipRaw))
		if err != nil || ip <= 0 {
			return nil, fmt.Errorf("rate limit override %q: invalid per-ip budget", part)
		}
		userPlace, err := strconv.Atoi(strings.TrimSpace(userPlaceRaw))
		if err != nil || userPlace <= 0 {
			return nil, fmt.Errorf("rate limit override %q: invalid per-user-place budget", part)
		}

		limits := out.Categories[category]
		if limits.PerIP.Window <= 0 {
			limits.PerIP.Window = time.Hour
		}
		if limits.PerUserPlace.Window <= 0 {
			limits.PerUserPlace.Window = time.Hour
		}
		limits.PerIP.RequestsPerWindow = ip
		limits.PerUserPlace.RequestsPerWindow = userPlace
		out = out.WithLimit(category, limits)
	}
	return out, nil
}
