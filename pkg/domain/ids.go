// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "placeclaim/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing PlaceID where ClaimID is expected.
type (
	UserID    uuid.UUID
	PlaceID   uuid.UUID
	ClaimID   uuid.UUID
	AttemptID uuid.UUID
	OwnerID   uuid.UUID
	EntryID   uuid.UUID
)

// Parse functions - use at trust boundaries (handlers, API inputs).

func ParseUserID(s string) (UserID, error) {
	id, err := parseUUID(s, "user ID")
	return UserID(id), err
}

func ParsePlaceID(s string) (PlaceID, error) {
	id, err := parseUUID(s, "place ID")
	return PlaceID(id), err
}

func ParseClaimID(s string) (ClaimID, error) {
	id, err := parseUUID(s, "claim ID")
	return ClaimID(id), err
}

func ParseAttemptID(s string) (AttemptID, error) {
	id, err := parseUUID(s, "verification attempt ID")
	return AttemptID(id), err
}

// Constructors for freshly minted identifiers.

func NewClaimID() ClaimID     { return ClaimID(uuid.New()) }
func NewAttemptID() AttemptID { return AttemptID(uuid.New()) }
func NewOwnerID() OwnerID     { return OwnerID(uuid.New()) }
func NewEntryID() EntryID     { return EntryID(uuid.New()) }

// String methods - for logging and debugging.

func (id UserID) String() string    { return uuid.UUID(id).String() }
func (id PlaceID) String() string   { return uuid.UUID(id).String() }
func (id ClaimID) String() string   { return uuid.UUID(id).String() }
func (id AttemptID) String() string { return uuid.UUID(id).String() }
func (id OwnerID) String() string   { return uuid.UUID(id).String() }
func (id EntryID) String() string   { return uuid.UUID(id).String() }

// IsNil checks - used for service-layer validation.

func (id UserID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id PlaceID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id ClaimID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id AttemptID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id OwnerID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id EntryID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }

// parseUUID is the shared validation logic. Nil UUIDs are rejected at the boundary.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	if id == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return id, nil
}

// Text encoding so IDs serialize as canonical UUID strings in JSON and logs.

func (id UserID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id PlaceID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id ClaimID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id AttemptID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id OwnerID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id EntryID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }

func (id *UserID) UnmarshalText(b []byte) error    { return unmarshalUUID(b, (*uuid.UUID)(id)) }
func (id *PlaceID) UnmarshalText(b []byte) error   { return unmarshalUUID(b, (*uuid.UUID)(id)) }
func (id *ClaimID) UnmarshalText(b []byte) error   { return unmarshalUUID(b, (*uuid.UUID)(id)) }
func (id *AttemptID) UnmarshalText(b []byte) error { return unmarshalUUID(b, (*uuid.UUID)(id)) }
func (id *OwnerID) UnmarshalText(b []byte) error   { return unmarshalUUID(b, (*uuid.UUID)(id)) }
func (id *EntryID) UnmarshalText(b []byte) error   { return unmarshalUUID(b, (*uuid.UUID)(id)) }

func unmarshalUUID(b []byte, dst *uuid.UUID) error {
	parsed, err := uuid.ParseBytes(b)
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid UUID format")
	}
	*dst = parsed
	return nil
}
