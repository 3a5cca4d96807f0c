// Package models holds the read-only collaborator records the claim workflow
// consults: places, accounts and check-ins.
package models

import (
	"time"

	id "placeclaim/pkg/domain"
)

// Place is a listing that can be claimed.
type Place struct {
	ID        id.PlaceID
	Name      string
	Latitude  float64
	Longitude float64
	Region    string
}

// Account is the platform account behind an authenticated user.
type Account struct {
	ID        id.UserID
	Email     string
	CreatedAt time.Time
}

// Age returns how old the account is at now.
func (a *Account) Age(now time.Time) time.Duration {
	return now.Sub(a.CreatedAt)
}

// Checkin records a user visiting a place.
type Checkin struct {
	UserID      id.UserID
	PlaceID     id.PlaceID
	CheckedInAt time.Time
}
