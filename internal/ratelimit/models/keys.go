package models

import (
	"strings"

	id "placeclaim/pkg/domain"
)

// unknownSegment stands in for an empty identifier so that callers without
// a resolvable IP still share one bucket instead of skipping the check.
const unknownSegment = "unknown"

// KeyPrefix namespaces rate limit keys in the shared store.
const KeyPrefix = "rl"

// SanitizeKeySegment escapes delimiter characters in rate limit key segments
// so that user-controlled identifiers containing ':' cannot address a
// neighbouring bucket.
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}

// IPKey builds the per-IP counter key for a category.
func IPKey(category ActionCategory, ip string) string {
	return strings.Join([]string{KeyPrefix, string(AxisIP), string(category), segment(ip)}, ":")
}

// UserPlaceKey builds the per-actor-and-place counter key for a category.
// The actor is a user ID for claimant operations and the admin actor ID for reviews.
func UserPlaceKey(category ActionCategory, actor string, placeID id.PlaceID) string {
	return strings.Join([]string{
		KeyPrefix,
		string(AxisUserPlace),
		string(category),
		segment(actor),
		segment(placeID.String()),
	}, ":")
}

func segment(s string) string {
	if s == "" {
		return unknownSegment
	}
	return SanitizeKeySegment(s)
}
