// Package models defines one-time phone verification attempts.
package models

import (
	"time"

	id "placeclaim/pkg/domain"
)

// State is the lifecycle position of an attempt.
type State string

const (
	StateIssued     State = "issued"
	StateVerified   State = "verified"
	StateExpired    State = "expired"
	StateExhausted  State = "exhausted"
	StateSuperseded State = "superseded"
)

// IsTerminal reports whether no further checks are possible.
func (s State) IsTerminal() bool {
	return s != StateIssued
}

// Attempt is one issued code. Only the bcrypt hash of the code is kept.
type Attempt struct {
	ID           id.AttemptID
	ClaimID      id.ClaimID
	UserID       id.UserID
	PhoneNumber  string
	CodeHash     []byte
	State        State
	FailedChecks int
	ResendCount  int
	IssuedAt     time.Time
	ExpiresAt    time.Time
	ResolvedAt   *time.Time
}

// IsExpired reports whether the code is past its expiry at now.
func (a *Attempt) IsExpired(now time.Time) bool {
	return !now.Before(a.ExpiresAt)
}

// Resolve moves the attempt to a terminal state.
func (a *Attempt) Resolve(state State, now time.Time) {
	a.State = state
	a.ResolvedAt = &now
}

// Outcome is the result of a successful Issue or Resend, safe to return to callers.
type Outcome struct {
	AttemptID   id.AttemptID `json:"attempt_id"`
	MaskedPhone string       `json:"phone"`
	ExpiresAt   time.Time    `json:"expires_at"`
	ResendCount int          `json:"resend_count"`
}
