// Package postgres reads directory records from the shared database.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"placeclaim/internal/directory/models"
	id "placeclaim/pkg/domain"
	"placeclaim/pkg/platform/sentinel"
	"placeclaim/pkg/platform/tx"
)

// Places reads the places table.
type Places struct {
	db *sql.DB
}

func NewPlaces(db *sql.DB) *Places {
	return &Places{db: db}
}

func (p *Places) FindPlace(ctx context.Context, placeID id.PlaceID) (*models.Place, error) {
	var (
		place models.Place
		rawID uuid.UUID
	)
	err := tx.Pick(ctx, p.db).QueryRowContext(ctx, `
		SELECT id, name, latitude, longitude, region
		FROM places
		WHERE id = $1
	`, uuid.UUID(placeID)).Scan(&rawID, &place.Name, &place.Latitude, &place.Longitude, &place.Region)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find place: %w", err)
	}
	place.ID = id.PlaceID(rawID)
	return &place, nil
}

// Accounts reads the accounts table.
type Accounts struct {
	db *sql.DB
}

func NewAccounts(db *sql.DB) *Accounts {
	return &Accounts{db: db}
}

func (a *Accounts) FindAccount(ctx context.Context, userID id.UserID) (*models.Account, error) {
	var (
		account models.Account
		rawID   uuid.UUID
	)
	err := tx.Pick(ctx, a.db).QueryRowContext(ctx, `
		SELECT id, email, created_at
		FROM accounts
		WHERE id = $1
	`, uuid.UUID(userID)).Scan(&rawID, &account.Email, &account.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	account.ID = id.UserID(rawID)
	return &account, nil
}

// Checkins reads the checkins table.
type Checkins struct {
	db *sql.DB
}

func NewCheckins(db *sql.DB) *Checkins {
	return &Checkins{db: db}
}

func (c *Checkins) CountCheckins(ctx context.Context, userID id.UserID, placeID id.PlaceID, since time.Time) (int, error) {
	var count int
	err := tx.Pick(ctx, c.db).QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM checkins
		WHERE user_id = $1 AND place_id = $2 AND checked_in_at >= $3
	`, uuid.UUID(userID), uuid.UUID(placeID), since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count checkins: %w", err)
	}
	return count, nil
}
