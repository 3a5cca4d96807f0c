// Package memory holds claims and verified owners in process memory.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"placeclaim/internal/claim/models"
	id "placeclaim/pkg/domain"
	"placeclaim/pkg/platform/sentinel"
)

// InMemoryStore enforces the same uniqueness rules as the Postgres indexes:
// one active claim per place and one verified owner per claim.
type InMemoryStore struct {
	mu     sync.RWMutex
	claims map[id.ClaimID]*models.Claim
	owners map[id.ClaimID]*models.VerifiedOwner
}

func New() *InMemoryStore {
	return &InMemoryStore{
		claims: make(map[id.ClaimID]*models.Claim),
		owners: make(map[id.ClaimID]*models.VerifiedOwner),
	}
}

func (s *InMemoryStore) Create(_ context.Context, claim *models.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.claims[claim.ID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	if claim.Status.IsActive() {
		for _, other := range s.claims {
			if other.PlaceID == claim.PlaceID && other.Status.IsActive() {
				return sentinel.ErrAlreadyUsed
			}
		}
	}
	s.claims[claim.ID] = clone(claim)
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, claimID id.ClaimID) (*models.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.claims[claimID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(c), nil
}

// GetForUpdate is Get; callers serialize through the in-memory transaction lock.
func (s *InMemoryStore) GetForUpdate(ctx context.Context, claimID id.ClaimID) (*models.Claim, error) {
	return s.Get(ctx, claimID)
}

// Update replaces the stored claim if it is still in expected.
func (s *InMemoryStore) Update(_ context.Context, claim *models.Claim, expected models.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.claims[claim.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if stored.Status != expected {
		return sentinel.ErrInvalidState
	}
	s.claims[claim.ID] = clone(claim)
	return nil
}

func (s *InMemoryStore) FindActiveByPlace(_ context.Context, placeID id.PlaceID) (*models.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.claims {
		if c.PlaceID == placeID && c.Status.IsActive() {
			return clone(c), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// ListByUser returns the user's claims in the given statuses, newest first.
func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID, statuses []models.Status) ([]*models.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Claim
	for _, c := range s.claims {
		if c.UserID == userID && slices.Contains(statuses, c.Status) {
			out = append(out, clone(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// RecentClaimPlaces lists places the user claimed since the cutoff, excluding one claim.
func (s *InMemoryStore) RecentClaimPlaces(_ context.Context, userID id.UserID, since time.Time, exclude id.ClaimID) ([]id.PlaceID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []id.PlaceID
	for _, c := range s.claims {
		if c.UserID == userID && c.ID != exclude && !c.CreatedAt.Before(since) {
			out = append(out, c.PlaceID)
		}
	}
	return out, nil
}

// LockUser is a no-op; the in-memory transaction already holds a global lock.
func (s *InMemoryStore) LockUser(context.Context, id.UserID) error {
	return nil
}

func (s *InMemoryStore) CreateOwner(_ context.Context, owner *models.VerifiedOwner) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.owners[owner.ClaimID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	cp := *owner
	s.owners[owner.ClaimID] = &cp
	return nil
}

func (s *InMemoryStore) FindOwnerByClaim(_ context.Context, claimID id.ClaimID) (*models.VerifiedOwner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	owner, ok := s.owners[claimID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *owner
	return &cp, nil
}

func clone(c *models.Claim) *models.Claim {
	cp := *c
	if c.FraudScore != nil {
		score := *c.FraudScore
		cp.FraudScore = &score
	}
	if c.ResolvedAt != nil {
		t := *c.ResolvedAt
		cp.ResolvedAt = &t
	}
	return &cp
}
