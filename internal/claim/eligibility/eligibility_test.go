package eligibility

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"placeclaim/internal/claim/models"
	"placeclaim/internal/claim/store/memory"
	id "placeclaim/pkg/domain"
	dErrors "placeclaim/pkg/domain-errors"
	"placeclaim/pkg/requestcontext"
)

var now = time.Date(2026, 4, 12, 10, 0, 0, 0, time.UTC)

func newUser() id.UserID   { return id.UserID(uuid.New()) }
func newPlace() id.PlaceID { return id.PlaceID(uuid.New()) }

func seed(t *testing.T, store *memory.InMemoryStore, userID id.UserID, placeID id.PlaceID, status models.Status, resolvedAt time.Time) {
	t.Helper()
	c := models.NewClaim(userID, placeID, resolvedAt.Add(-time.Hour))
	c.Status = status
	if status.IsTerminal() {
		c.ResolvedAt = &resolvedAt
	}
	require.NoError(t, store.Create(context.Background(), c))
}

func TestCheck(t *testing.T) {
	ctx := requestcontext.WithTime(context.Background(), now)
	user, other := newUser(), newUser()
	place, elsewhere := newPlace(), newPlace()

	tests := []struct {
		name     string
		policy   Policy
		setup    func(t *testing.T, s *memory.InMemoryStore)
		wantCode dErrors.Code
	}{
		{
			name:  "no claims",
			setup: func(*testing.T, *memory.InMemoryStore) {},
		},
		{
			name: "own active claim on the place",
			setup: func(t *testing.T, s *memory.InMemoryStore) {
				seed(t, s, user, place, models.StatusPhoneVerification, now)
			},
			wantCode: dErrors.CodeAlreadyClaimed,
		},
		{
			name: "another user's active claim on the place",
			setup: func(t *testing.T, s *memory.InMemoryStore) {
				seed(t, s, other, place, models.StatusFraudReview, now)
			},
			wantCode: dErrors.CodeAlreadyClaimed,
		},
		{
			name: "terminal claims on the place do not block",
			setup: func(t *testing.T, s *memory.InMemoryStore) {
				seed(t, s, other, place, models.StatusCanceled, now.Add(-time.Minute))
				seed(t, s, user, place, models.StatusRejected, now.Add(-time.Minute))
			},
		},
		{
			name: "active claim elsewhere is allowed by default",
			setup: func(t *testing.T, s *memory.InMemoryStore) {
				seed(t, s, user, elsewhere, models.StatusPendingInfo, now)
			},
		},
		{
			name:   "active claim elsewhere with single active policy",
			policy: Policy{SingleActiveClaimPerUser: true},
			setup: func(t *testing.T, s *memory.InMemoryStore) {
				seed(t, s, user, elsewhere, models.StatusPendingInfo, now)
			},
			wantCode: dErrors.CodeNotEligible,
		},
		{
			name:   "rejection inside cooldown",
			policy: Policy{RejectionCooldown: 24 * time.Hour},
			setup: func(t *testing.T, s *memory.InMemoryStore) {
				seed(t, s, user, place, models.StatusRejected, now.Add(-23*time.Hour))
			},
			wantCode: dErrors.CodeNotEligible,
		},
		{
			name:   "rejection past cooldown",
			policy: Policy{RejectionCooldown: 24 * time.Hour},
			setup: func(t *testing.T, s *memory.InMemoryStore) {
				seed(t, s, user, place, models.StatusRejected, now.Add(-24*time.Hour))
			},
		},
		{
			name:   "cooldown only applies to the rejected place",
			policy: Policy{RejectionCooldown: 24 * time.Hour},
			setup: func(t *testing.T, s *memory.InMemoryStore) {
				seed(t, s, user, elsewhere, models.StatusRejected, now.Add(-time.Hour))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New()
			tt.setup(t, store)

			err := New(store, tt.policy).Check(ctx, user, place)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, dErrors.HasCode(err, tt.wantCode), "expected %s, got %v", tt.wantCode, err)
		})
	}
}

type failingReader struct{}

func (failingReader) FindActiveByPlace(context.Context, id.PlaceID) (*models.Claim, error) {
	return nil, errors.New("connection reset")
}

func (failingReader) ListByUser(context.Context, id.UserID, []models.Status) ([]*models.Claim, error) {
	return nil, errors.New("connection reset")
}

func TestCheckWrapsStoreFailures(t *testing.T) {
	err := New(failingReader{}, Policy{}).Check(context.Background(), newUser(), newPlace())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}
