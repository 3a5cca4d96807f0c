package main

import (
	"context"
	"database/sql"
	"time"

	dErrors "placeclaim/pkg/domain-errors"
	"placeclaim/pkg/platform/tx"
)

const defaultClaimTxTimeout = 5 * time.Second

// claimPostgresTx runs claim units of work in one SQL transaction. The
// transaction travels through ctx so every Postgres store joins it.
type claimPostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newClaimPostgresTx(db *sql.DB) *claimPostgresTx {
	return &claimPostgresTx{db: db}
}

func (t *claimPostgresTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, ok := tx.From(ctx); ok {
		return fn(ctx)
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultClaimTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	sqlTx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to begin transaction")
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	if err := fn(tx.WithTx(ctx, sqlTx)); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to commit transaction")
	}
	return nil
}
