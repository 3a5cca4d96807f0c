package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"placeclaim/internal/audit/models"
	"placeclaim/internal/audit/outbox"
	id "placeclaim/pkg/domain"
	"placeclaim/pkg/platform/tx"
)

// Store implements the audit store on the claim_audit_log table. The table
// has no update or delete path here, and a trigger rejects both.
type Store struct {
	db     *sql.DB
	outbox outbox.Store
}

// Option configures the Store.
type Option func(*Store)

// WithOutbox writes every appended entry to the outbox in the same transaction.
func WithOutbox(o outbox.Store) Option {
	return func(s *Store) {
		s.outbox = o
	}
}

// New creates a new PostgreSQL audit store.
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append inserts the entry and assigns its sequence number. When an outbox is
// configured and ctx carries no transaction, both writes share a local one.
func (s *Store) Append(ctx context.Context, entry *models.Entry) error {
	if s.outbox == nil {
		return s.insert(ctx, tx.Pick(ctx, s.db), entry)
	}
	if _, ok := tx.From(ctx); ok {
		return s.appendWithOutbox(ctx, entry)
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin audit tx: %w", err)
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()
	if err := s.appendWithOutbox(tx.WithTx(ctx, sqlTx), entry); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit audit tx: %w", err)
	}
	return nil
}

func (s *Store) appendWithOutbox(ctx context.Context, entry *models.Entry) error {
	if err := s.insert(ctx, tx.Pick(ctx, s.db), entry); err != nil {
		return err
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode outbox payload: %w", err)
	}
	return s.outbox.Append(ctx, outbox.NewEntry(entry.ClaimID.String(), string(entry.Action), payload, entry.Timestamp))
}

func (s *Store) insert(ctx context.Context, exec tx.Executor, entry *models.Entry) error {
	details := entry.Context
	if len(details) == 0 {
		details = json.RawMessage(`{}`)
	}
	err := exec.QueryRowContext(ctx, `
		INSERT INTO claim_audit_log (id, claim_id, action, actor_id, actor_type, context, request_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING seq
	`,
		uuid.UUID(entry.ID),
		uuid.UUID(entry.ClaimID),
		string(entry.Action),
		entry.ActorID,
		string(entry.ActorType),
		string(details),
		entry.RequestID,
		entry.Timestamp,
	).Scan(&entry.Seq)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// ListByClaim returns a claim's entries ordered by timestamp then sequence.
func (s *Store) ListByClaim(ctx context.Context, claimID id.ClaimID) ([]*models.Entry, error) {
	rows, err := tx.Pick(ctx, s.db).QueryContext(ctx, `
		SELECT seq, id, claim_id, action, actor_id, actor_type, context, request_id, occurred_at
		FROM claim_audit_log
		WHERE claim_id = $1
		ORDER BY occurred_at ASC, seq ASC
	`, uuid.UUID(claimID))
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}

func scanEntry(row interface{ Scan(dest ...any) error }) (*models.Entry, error) {
	var (
		e         models.Entry
		entryID   uuid.UUID
		claimID   uuid.UUID
		action    string
		actorType string
		details   []byte
	)
	if err := row.Scan(&e.Seq, &entryID, &claimID, &action, &e.ActorID, &actorType, &details, &e.RequestID, &e.Timestamp); err != nil {
		return nil, fmt.Errorf("scan audit entry: %w", err)
	}
	e.ID = id.EntryID(entryID)
	e.ClaimID = id.ClaimID(claimID)
	e.Action = models.Action(action)
	e.ActorType = models.ActorType(actorType)
	e.Context = json.RawMessage(details)
	return &e, nil
}
