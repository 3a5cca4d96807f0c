package memory

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"placeclaim/internal/audit/models"
	id "placeclaim/pkg/domain"
)

var recorded = time.Date(2026, 4, 9, 12, 0, 0, 0, time.UTC)

func newEntry(claimID id.ClaimID, action models.Action, at time.Time) *models.Entry {
	return &models.Entry{
		ID:        id.NewEntryID(),
		ClaimID:   claimID,
		Action:    action,
		ActorID:   models.SystemActorID,
		ActorType: models.ActorSystem,
		Timestamp: at,
		Context:   json.RawMessage(`{"reason":"original"}`),
	}
}

func TestListOrdersByTimestampThenSequence(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	claimID := id.NewClaimID()

	require.NoError(t, store.Append(ctx, newEntry(claimID, models.ActionInfoUpdated, recorded.Add(time.Minute))))
	require.NoError(t, store.Append(ctx, newEntry(claimID, models.ActionSubmitted, recorded)))
	require.NoError(t, store.Append(ctx, newEntry(claimID, models.ActionPhoneVerified, recorded.Add(time.Minute))))
	require.NoError(t, store.Append(ctx, newEntry(id.NewClaimID(), models.ActionSubmitted, recorded)))

	entries, err := store.ListByClaim(ctx, claimID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, models.ActionSubmitted, entries[0].Action)
	assert.Equal(t, models.ActionInfoUpdated, entries[1].Action)
	assert.Equal(t, models.ActionPhoneVerified, entries[2].Action)
	assert.Less(t, entries[1].Seq, entries[2].Seq)
}

func TestStoredHistoryIsIsolatedFromCallers(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	claimID := id.NewClaimID()

	entry := newEntry(claimID, models.ActionRejected, recorded)
	require.NoError(t, store.Append(ctx, entry))
	copy(entry.Context, `{"reason":"tampered"}`)

	listed, err := store.ListByClaim(ctx, claimID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.JSONEq(t, `{"reason":"original"}`, string(listed[0].Context))

	copy(listed[0].Context, `{"reason":"tampered"}`)
	listed[0].Action = models.ActionApproved

	again, err := store.ListByClaim(ctx, claimID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"reason":"original"}`, string(again[0].Context))
	assert.Equal(t, models.ActionRejected, again[0].Action)
}
