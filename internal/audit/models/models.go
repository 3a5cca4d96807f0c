package models

import (
	"encoding/json"
	"time"

	id "placeclaim/pkg/domain"
)

// Action tags what happened to a claim.
type Action string

const (
	ActionSubmitted     Action = "submitted"
	ActionInfoUpdated   Action = "info_updated"
	ActionPhoneVerified Action = "phone_verified"
	ActionFraudFlagged  Action = "fraud_flagged"
	ActionApproved      Action = "approved"
	ActionRejected      Action = "rejected"
	ActionCanceled      Action = "canceled"
)

// IsValid checks if the action is one of the supported values.
func (a Action) IsValid() bool {
	switch a {
	case ActionSubmitted, ActionInfoUpdated, ActionPhoneVerified, ActionFraudFlagged,
		ActionApproved, ActionRejected, ActionCanceled:
		return true
	}
	return false
}

// ActorType distinguishes who caused an entry.
type ActorType string

const (
	ActorUser   ActorType = "user"
	ActorAdmin  ActorType = "admin"
	ActorSystem ActorType = "system"
)

// SystemActorID identifies automated decisions such as fraud auto-routing.
const SystemActorID = "system"

// Entry is one append-only audit record for a claim. Entries for a claim are
// ordered by Timestamp, with Seq breaking ties.
type Entry struct {
	ID        id.EntryID      `json:"id"`
	ClaimID   id.ClaimID      `json:"claim_id"`
	Action    Action          `json:"action"`
	ActorID   string          `json:"actor_id"`
	ActorType ActorType       `json:"actor_type"`
	Timestamp time.Time       `json:"timestamp"`
	Context   json.RawMessage `json:"context,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
	Seq       int64           `json:"seq"`
}

// Actor names who performed an action.
type Actor struct {
	ID   string
	Type ActorType
}

// UserActor builds the actor for a claimant.
func UserActor(userID id.UserID) Actor {
	return Actor{ID: userID.String(), Type: ActorUser}
}

// AdminActor builds the actor for an administrator.
func AdminActor(actorID string) Actor {
	return Actor{ID: actorID, Type: ActorAdmin}
}

// SystemActor is the actor for automated transitions.
func SystemActor() Actor {
	return Actor{ID: SystemActorID, Type: ActorSystem}
}
