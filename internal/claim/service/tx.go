package service

import (
	"context"
	"sync"
	"time"

	dErrors "placeclaim/pkg/domain-errors"
)

// StoreTx runs fn as one unit of work. Stores called with the ctx handed to
// fn join that unit.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// defaultClaimTxTimeout is the maximum duration for a claim transaction.
const defaultClaimTxTimeout = 5 * time.Second

type inTxKey struct{}

// memoryClaimTx serializes claim transactions behind one mutex. Claim
// uniqueness spans users and places, so sharding by either key would let
// two writers race on the other.
type memoryClaimTx struct {
	mu      sync.Mutex
	timeout time.Duration
}

// NewMemoryTx returns the StoreTx used with in-memory stores.
func NewMemoryTx() StoreTx {
	return &memoryClaimTx{}
}

func (t *memoryClaimTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if ctx.Value(inTxKey{}) != nil {
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

	t.mu.Lock()
	defer t.mu.Unlock()

	// Check again after acquiring lock
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	return fn(context.WithValue(ctx, inTxKey{}, true))
}
