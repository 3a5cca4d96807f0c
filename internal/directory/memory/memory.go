// Package memory provides in-process directory implementations for local
// runs and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"placeclaim/internal/directory/models"
	id "placeclaim/pkg/domain"
	"placeclaim/pkg/platform/sentinel"
)

// Places is an in-memory place directory.
type Places struct {
	mu     sync.RWMutex
	places map[id.PlaceID]*models.Place
}

func NewPlaces() *Places {
	return &Places{places: make(map[id.PlaceID]*models.Place)}
}

// Add registers or replaces a place.
func (p *Places) Add(place *models.Place) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := *place
	p.places[place.ID] = &cp
}

func (p *Places) FindPlace(_ context.Context, placeID id.PlaceID) (*models.Place, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	place, ok := p.places[placeID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *place
	return &cp, nil
}

// Accounts is an in-memory account directory.
type Accounts struct {
	mu       sync.RWMutex
	accounts map[id.UserID]*models.Account
}

func NewAccounts() *Accounts {
	return &Accounts{accounts: make(map[id.UserID]*models.Account)}
}

// Add registers or replaces an account.
func (a *Accounts) Add(account *models.Account) {
	a.mu.Lock()
	defer a.mu.Unlock()
	cp := *account
	a.accounts[account.ID] = &cp
}

func (a *Accounts) FindAccount(_ context.Context, userID id.UserID) (*models.Account, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	account, ok := a.accounts[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *account
	return &cp, nil
}

// Checkins is an in-memory check-in log.
type Checkins struct {
	mu       sync.RWMutex
	checkins []models.Checkin
}

func NewCheckins() *Checkins {
	return &Checkins{}
}

// Add records a check-in.
func (c *Checkins) Add(userID id.UserID, placeID id.PlaceID, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checkins = append(c.checkins, models.Checkin{UserID: userID, PlaceID: placeID, CheckedInAt: at})
}

// CountCheckins counts the user's check-ins at the place at or after since.
func (c *Checkins) CountCheckins(_ context.Context, userID id.UserID, placeID id.PlaceID, since time.Time) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, ci := range c.checkins {
		if ci.UserID == userID && ci.PlaceID == placeID && !ci.CheckedInAt.Before(since) {
			n++
		}
	}
	return n, nil
}
