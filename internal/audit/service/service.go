// Package service records the append-only audit trail of claim transitions
// and administrative decisions.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"placeclaim/internal/audit/metrics"
	"placeclaim/internal/audit/models"
	id "placeclaim/pkg/domain"
	dErrors "placeclaim/pkg/domain-errors"
	"placeclaim/pkg/requestcontext"
)

// Store persists audit entries. Append assigns Seq. Implementations never
// update or delete an appended entry.
type Store interface {
	Append(ctx context.Context, entry *models.Entry) error
	ListByClaim(ctx context.Context, claimID id.ClaimID) ([]*models.Entry, error)
}

type Logger struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Logger)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Logger) {
		l.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Logger) {
		l.metrics = m
	}
}

func New(store Store, opts ...Option) (*Logger, error) {
	if store == nil {
		return nil, errors.New("audit store is required")
	}
	l := &Logger{store: store}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Record appends one entry. When ctx carries a transaction the append joins
// it, so a failed transition never leaves an orphan entry behind.
func (l *Logger) Record(ctx context.Context, claimID id.ClaimID, action models.Action, actor models.Actor, details any) (*models.Entry, error) {
	if !action.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "unknown audit action: "+string(action))
	}

	payload := json.RawMessage(`{}`)
	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode audit context")
		}
		payload = raw
	}

	entry := &models.Entry{
		ID:        id.NewEntryID(),
		ClaimID:   claimID,
		Action:    action,
		ActorID:   actor.ID,
		ActorType: actor.Type,
		Timestamp: requestcontext.Now(ctx),
		Context:   payload,
		RequestID: requestcontext.RequestID(ctx),
	}

	if err := l.store.Append(ctx, entry); err != nil {
		if l.metrics != nil {
			l.metrics.IncAppendFailures()
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to append audit entry")
	}

	if l.metrics != nil {
		l.metrics.IncRecorded(string(entry.Action), string(entry.ActorType))
	}
	if l.logger != nil {
		l.logger.InfoContext(ctx, string(entry.Action),
			"log_type", "audit",
			"claim_id", claimID.String(),
			"actor_id", actor.ID,
			"actor_type", actor.Type,
			"seq", entry.Seq,
			"request_id", entry.RequestID,
		)
	}
	return entry, nil
}

// List returns a claim's entries in order.
func (l *Logger) List(ctx context.Context, claimID id.ClaimID) ([]*models.Entry, error) {
	entries, err := l.store.ListByClaim(ctx, claimID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit entries")
	}
	return entries, nil
}
