package memory

import (
	"context"
	"sync"

	"placeclaim/internal/verification/models"
	id "placeclaim/pkg/domain"
	"placeclaim/pkg/platform/sentinel"
)

// InMemoryStore keeps attempts per claim in issue order.
type InMemoryStore struct {
	mu       sync.RWMutex
	attempts map[id.ClaimID][]*models.Attempt
}

func New() *InMemoryStore {
	return &InMemoryStore{attempts: make(map[id.ClaimID][]*models.Attempt)}
}

func (s *InMemoryStore) Create(_ context.Context, attempt *models.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, prior := range s.attempts[attempt.ClaimID] {
		if prior.State == models.StateIssued {
			prior.Resolve(models.StateSuperseded, attempt.IssuedAt)
		}
	}
	s.attempts[attempt.ClaimID] = append(s.attempts[attempt.ClaimID], clone(attempt))
	return nil
}

func (s *InMemoryStore) Latest(_ context.Context, claimID id.ClaimID) (*models.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.attempts[claimID]
	if len(list) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return clone(list[len(list)-1]), nil
}

func (s *InMemoryStore) Update(_ context.Context, attempt *models.Attempt, expectedState models.State, expectedFailed int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, stored := range s.attempts[attempt.ClaimID] {
		if stored.ID != attempt.ID {
			continue
		}
		if stored.State != expectedState || stored.FailedChecks != expectedFailed {
			return sentinel.ErrInvalidState
		}
		stored.State = attempt.State
		stored.FailedChecks = attempt.FailedChecks
		stored.ResolvedAt = attempt.ResolvedAt
		return nil
	}
	return sentinel.ErrNotFound
}

func (s *InMemoryStore) CountFailedChecks(_ context.Context, userID id.UserID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, list := range s.attempts {
		for _, a := range list {
			if a.UserID == userID {
				total += a.FailedChecks
			}
		}
	}
	return total, nil
}

func clone(a *models.Attempt) *models.Attempt {
	cp := *a
	cp.CodeHash = append([]byte(nil), a.CodeHash...)
	if a.ResolvedAt != nil {
		t := *a.ResolvedAt
		cp.ResolvedAt = &t
	}
	return &cp
}
