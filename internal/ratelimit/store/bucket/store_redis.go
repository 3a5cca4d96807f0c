package bucket

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"placeclaim/internal/ratelimit/models"
)

// allowAllScript checks every key's sorted set, then adds the request to all
// of them only if each has room. Scores are unix milliseconds supplied by the
// caller so that every node uses the request's clock, not Redis's.
//
// KEYS: bucket keys. ARGV[1]: now_ms, ARGV[2]: member, then limit and
// window_ms per key.
//
// Returns {allowed, index (1-based), count, oldest_ms}. When denied the index
// names the first full bucket; when allowed it names the bucket with the
// fewest remaining slots and count includes this request.
var allowAllScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local member = ARGV[2]
local n = #KEYS
local counts = {}

for i = 1, n do
  local limit = tonumber(ARGV[1 + i * 2])
  local window = tonumber(ARGV[2 + i * 2])
  redis.call('ZREMRANGEBYSCORE', KEYS[i], '-inf', now - window)
  local count = redis.call('ZCARD', KEYS[i])
  if count + 1 > limit then
    local oldest = redis.call('ZRANGE', KEYS[i], 0, 0, 'WITHSCORES')
    local oldestScore = 0
    if oldest[2] then oldestScore = tonumber(oldest[2]) end
    return {0, i, count, oldestScore}
  end
  counts[i] = count
end

local best = 1
local bestRemaining = nil
for i = 1, n do
  local limit = tonumber(ARGV[1 + i * 2])
  local window = tonumber(ARGV[2 + i * 2])
  redis.call('ZADD', KEYS[i], now, member)
  redis.call('PEXPIRE', KEYS[i], window)
  local remaining = limit - counts[i] - 1
  if bestRemaining == nil or remaining < bestRemaining then
    best = i
    bestRemaining = remaining
  end
end

local oldest = redis.call('ZRANGE', KEYS[best], 0, 0, 'WITHSCORES')
return {1, best, counts[best] + 1, tonumber(oldest[2])}
`)

// RedisBucketStore keeps sliding windows as Redis sorted sets shared by every
// service instance.
type RedisBucketStore struct {
	client redis.UniversalClient
}

// NewRedis constructs a Redis-backed bucket store.
func NewRedis(client redis.UniversalClient) *RedisBucketStore {
	return &RedisBucketStore{client: client}
}

// AllowAll runs the check-and-increment for all buckets as one script.
func (s *RedisBucketStore) AllowAll(ctx context.Context, now time.Time, reqs []models.BucketRequest) (*models.RateLimitResult, error) {
	if err := validateRequests(reqs); err != nil {
		return nil, err
	}

	nowMs := now.UnixMilli()
	keys := make([]string, len(reqs))
	args := make([]any, 0, 2+len(reqs)*2)
	args = append(args, nowMs, strconv.FormatInt(nowMs, 10)+"-"+uuid.NewString())
	for i, r := range reqs {
		keys[i] = r.Key
		args = append(args, r.Limit, r.Window.Milliseconds())
	}

	vals, err := allowAllScript.Run(ctx, s.client, keys, args...).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("run rate limit script: %w", err)
	}
	if len(vals) != 4 || vals[1] < 1 || int(vals[1]) > len(reqs) {
		return nil, fmt.Errorf("unexpected rate limit script reply: %v", vals)
	}

	req := reqs[vals[1]-1]
	var oldest time.Time
	if vals[3] > 0 {
		oldest = time.UnixMilli(vals[3])
	}
	if vals[0] == 0 {
		return deniedResult(req, oldest, now), nil
	}
	if oldest.IsZero() {
		oldest = now
	}
	return &models.RateLimitResult{
		Allowed:   true,
		Axis:      req.Axis,
		Limit:     req.Limit,
		Remaining: req.Limit - int(vals[2]),
		ResetAt:   oldest.Add(req.Window),
	}, nil
}

// Reset clears the counter for a key.
func (s *RedisBucketStore) Reset(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("rate limit key is required")
	}
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("reset rate limit: %w", err)
	}
	return nil
}

// currentCount returns the entries still inside the window ending at now.
// The window is not stored with the key, so callers pass it explicitly.
func (s *RedisBucketStore) currentCount(ctx context.Context, now time.Time, key string, window time.Duration) (int, error) {
	if key == "" {
		return 0, fmt.Errorf("rate limit key is required")
	}
	lower := "(" + strconv.FormatInt(now.Add(-window).UnixMilli(), 10)
	n, err := s.client.ZCount(ctx, key, lower, "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("count rate limit entries: %w", err)
	}
	return int(n), nil
}
