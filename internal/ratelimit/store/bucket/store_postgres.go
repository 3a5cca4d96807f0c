package bucket

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"placeclaim/internal/ratelimit/models"
)

// PostgresBucketStore persists rate limit events in PostgreSQL. It is the
// fallback shared store for deployments without Redis.
type PostgresBucketStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed bucket store.
func NewPostgres(db *sql.DB) *PostgresBucketStore {
	return &PostgresBucketStore{db: db}
}

// AllowAll locks every key, evaluates all windows, and records the request
// in each bucket only when all of them have room.
func (s *PostgresBucketStore) AllowAll(ctx context.Context, now time.Time, reqs []models.BucketRequest) (*models.RateLimitResult, error) {
	if err := validateRequests(reqs); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin rate limit tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Locks are taken in key order so concurrent batches cannot deadlock.
	lockKeys := make([]string, len(reqs))
	for i, r := range reqs {
		lockKeys[i] = r.Key
	}
	sort.Strings(lockKeys)
	for _, key := range lockKeys {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1)::bigint)`, key); err != nil {
			return nil, fmt.Errorf("acquire rate limit lock: %w", err)
		}
	}

	counts := make([]int, len(reqs))
	oldest := make([]time.Time, len(reqs))
	for i, r := range reqs {
		cutoff := now.Add(-r.Window)
		if _, err := tx.ExecContext(ctx, `DELETE FROM rate_limit_events WHERE key = $1 AND occurred_at <= $2`, r.Key, cutoff); err != nil {
			return nil, fmt.Errorf("cleanup rate limit events: %w", err)
		}

		var current int
		var first sql.NullTime
		err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*), MIN(occurred_at)
			FROM rate_limit_events
			WHERE key = $1
		`, r.Key).Scan(&current, &first)
		if err != nil {
			return nil, fmt.Errorf("count rate limit events: %w", err)
		}

		if current+1 > r.Limit {
			var oldestDenied time.Time
			if first.Valid {
				oldestDenied = first.Time
			}
			return deniedResult(r, oldestDenied, now), nil
		}
		counts[i] = current + 1
		oldest[i] = now
		if first.Valid {
			oldest[i] = first.Time
		}
	}

	for _, r := range reqs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO rate_limit_events (key, occurred_at, window_seconds)
			VALUES ($1, $2, $3)
		`, r.Key, now, int(r.Window.Seconds()))
		if err != nil {
			return nil, fmt.Errorf("insert rate limit event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit rate limit tx: %w", err)
	}
	return allowedResult(reqs, counts, oldest), nil
}

// Reset clears the counter for a key.
func (s *PostgresBucketStore) Reset(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("rate limit key is required")
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM rate_limit_events WHERE key = $1`, key); err != nil {
		return fmt.Errorf("reset rate limit: %w", err)
	}
	return nil
}

// currentCount returns the events still inside the window ending at now.
func (s *PostgresBucketStore) currentCount(ctx context.Context, now time.Time, key string, window time.Duration) (int, error) {
	if key == "" {
		return 0, fmt.Errorf("rate limit key is required")
	}
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM rate_limit_events
		WHERE key = $1 AND occurred_at > $2
	`, key, now.Add(-window)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count rate limit events: %w", err)
	}
	return count, nil
}
