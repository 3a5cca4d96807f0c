package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"placeclaim/internal/directory/models"
	id "placeclaim/pkg/domain"
	"placeclaim/pkg/platform/sentinel"
)

func TestPlaces(t *testing.T) {
	places := NewPlaces()
	placeID := id.PlaceID(uuid.New())
	places.Add(&models.Place{ID: placeID, Name: "Cafe", Latitude: 52.52, Longitude: 13.40, Region: "eu-central"})

	got, err := places.FindPlace(context.Background(), placeID)
	require.NoError(t, err)
	assert.Equal(t, "Cafe", got.Name)

	got.Name = "mutated"
	again, _ := places.FindPlace(context.Background(), placeID)
	assert.Equal(t, "Cafe", again.Name)

	_, err = places.FindPlace(context.Background(), id.PlaceID(uuid.New()))
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestAccounts(t *testing.T) {
	accounts := NewAccounts()
	userID := id.UserID(uuid.New())
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	accounts.Add(&models.Account{ID: userID, Email: "owner@example.com", CreatedAt: created})

	got, err := accounts.FindAccount(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, got.Age(created.Add(24*time.Hour)))

	_, err = accounts.FindAccount(context.Background(), id.UserID(uuid.New()))
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestCheckinsCountsWithinWindow(t *testing.T) {
	checkins := NewCheckins()
	userID := id.UserID(uuid.New())
	placeID := id.PlaceID(uuid.New())
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	checkins.Add(userID, placeID, now.Add(-10*24*time.Hour))
	checkins.Add(userID, placeID, now.Add(-89*24*time.Hour))
	checkins.Add(userID, placeID, now.Add(-91*24*time.Hour))
	checkins.Add(userID, id.PlaceID(uuid.New()), now)
	checkins.Add(id.UserID(uuid.New()), placeID, now)

	n, err := checkins.CountCheckins(context.Background(), userID, placeID, now.Add(-90*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
