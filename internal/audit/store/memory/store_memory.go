package memory

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"placeclaim/internal/audit/models"
	id "placeclaim/pkg/domain"
)

// InMemoryStore keeps audit entries in process memory. Appended entries are
// copied on the way in and out so callers cannot mutate stored history.
type InMemoryStore struct {
	mu      sync.RWMutex
	seq     int64
	entries map[id.ClaimID][]*models.Entry
}

// NewInMemoryStore creates an empty audit store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		entries: make(map[id.ClaimID][]*models.Entry),
	}
}

// Append assigns the next sequence number and stores a copy of entry.
func (s *InMemoryStore) Append(_ context.Context, entry *models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	entry.Seq = s.seq
	s.entries[entry.ClaimID] = append(s.entries[entry.ClaimID], clone(entry))
	return nil
}

// ListByClaim returns copies of a claim's entries ordered by timestamp then sequence.
func (s *InMemoryStore) ListByClaim(_ context.Context, claimID id.ClaimID) ([]*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.entries[claimID]
	out := make([]*models.Entry, 0, len(stored))
	for _, e := range stored {
		out = append(out, clone(e))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].Seq < out[j].Seq
	})
	return out, nil
}

// clone copies e including its context payload, which would otherwise share
// a backing array with the caller.
func clone(e *models.Entry) *models.Entry {
	cp := *e
	cp.Context = bytes.Clone(e.Context)
	return &cp
}
