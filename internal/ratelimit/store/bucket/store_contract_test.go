package bucket

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"placeclaim/internal/ratelimit/models"
)

const (
	testLimit  = 5
	testWindow = time.Hour
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type bucketStore interface {
	AllowAll(ctx context.Context, now time.Time, reqs []models.BucketRequest) (*models.RateLimitResult, error)
	Reset(ctx context.Context, key string) error
	currentCount(ctx context.Context, now time.Time, key string, window time.Duration) (int, error)
}

// BucketStoreSuite runs the same sliding-window behaviour against every store.
type BucketStoreSuite struct {
	suite.Suite
	newStore func(t *testing.T) bucketStore
	store    bucketStore
	ctx      context.Context
}

func TestInMemoryBucketStoreSuite(t *testing.T) {
	suite.Run(t, &BucketStoreSuite{
		newStore: func(*testing.T) bucketStore { return NewInMemoryBucketStore() },
	})
}

func TestRedisBucketStoreSuite(t *testing.T) {
	suite.Run(t, &BucketStoreSuite{
		newStore: func(t *testing.T) bucketStore {
			mr := miniredis.RunT(t)
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = client.Close() })
			return NewRedis(client)
		},
	})
}

func (s *BucketStoreSuite) SetupTest() {
	s.store = s.newStore(s.T())
	s.ctx = context.Background()
}

func single(key string) []models.BucketRequest {
	return []models.BucketRequest{{Key: key, Axis: models.AxisUserPlace, Limit: testLimit, Window: testWindow}}
}

func (s *BucketStoreSuite) TestAllowAll() {
	s.Run("first request allowed", func() {
		result, err := s.store.AllowAll(s.ctx, baseTime, single("allow:first"))
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Equal(testLimit, result.Limit)
		s.Equal(testLimit-1, result.Remaining)
		s.Equal(models.AxisUserPlace, result.Axis)
		s.True(result.ResetAt.Equal(baseTime.Add(testWindow)))
	})

	s.Run("requests up to limit allowed then denied", func() {
		var result *models.RateLimitResult
		var err error
		for i := range testLimit {
			result, err = s.store.AllowAll(s.ctx, baseTime.Add(time.Duration(i)*time.Second), single("allow:limit"))
			s.Require().NoError(err)
			s.True(result.Allowed)
		}
		s.Equal(0, result.Remaining)

		denied, err := s.store.AllowAll(s.ctx, baseTime.Add(10*time.Second), single("allow:limit"))
		s.Require().NoError(err)
		s.False(denied.Allowed)
		s.Equal(0, denied.Remaining)
		s.True(denied.ResetAt.Equal(baseTime.Add(testWindow)), "reset follows the oldest entry")
		s.Equal(testWindow-10*time.Second, denied.RetryAfter)
	})

	s.Run("denied requests are not counted", func() {
		key := "allow:denied-not-counted"
		for range testLimit + 3 {
			_, err := s.store.AllowAll(s.ctx, baseTime, single(key))
			s.Require().NoError(err)
		}
		count, err := s.store.currentCount(s.ctx, baseTime, key, testWindow)
		s.Require().NoError(err)
		s.Equal(testLimit, count)
	})

	s.Run("window rollover admits again", func() {
		key := "allow:rollover"
		for range testLimit {
			_, err := s.store.AllowAll(s.ctx, baseTime, single(key))
			s.Require().NoError(err)
		}
		denied, err := s.store.AllowAll(s.ctx, baseTime.Add(testWindow-time.Millisecond), single(key))
		s.Require().NoError(err)
		s.False(denied.Allowed)

		result, err := s.store.AllowAll(s.ctx, baseTime.Add(testWindow), single(key))
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Equal(testLimit-1, result.Remaining)
	})

	s.Run("sliding window releases entries one at a time", func() {
		key := "allow:sliding"
		for i := range testLimit {
			_, err := s.store.AllowAll(s.ctx, baseTime.Add(time.Duration(i)*time.Minute), single(key))
			s.Require().NoError(err)
		}
		result, err := s.store.AllowAll(s.ctx, baseTime.Add(testWindow+time.Second), single(key))
		s.Require().NoError(err)
		s.True(result.Allowed)

		denied, err := s.store.AllowAll(s.ctx, baseTime.Add(testWindow+2*time.Second), single(key))
		s.Require().NoError(err)
		s.False(denied.Allowed)
	})

	s.Run("invalid requests rejected", func() {
		_, err := s.store.AllowAll(s.ctx, baseTime, nil)
		s.Error(err)
		_, err = s.store.AllowAll(s.ctx, baseTime, []models.BucketRequest{{Key: "", Limit: 1, Window: time.Minute}})
		s.Error(err)
		_, err = s.store.AllowAll(s.ctx, baseTime, []models.BucketRequest{{Key: "k", Limit: 0, Window: time.Minute}})
		s.Error(err)
		_, err = s.store.AllowAll(s.ctx, baseTime, []models.BucketRequest{{Key: "k", Limit: 1}})
		s.Error(err)
	})
}

func (s *BucketStoreSuite) TestAllowAllIsAtomicAcrossBuckets() {
	ipBucket := models.BucketRequest{Key: "multi:ip", Axis: models.AxisIP, Limit: 10, Window: testWindow}
	userBucket := models.BucketRequest{Key: "multi:user", Axis: models.AxisUserPlace, Limit: 2, Window: testWindow}
	both := []models.BucketRequest{ipBucket, userBucket}

	for range 2 {
		result, err := s.store.AllowAll(s.ctx, baseTime, both)
		s.Require().NoError(err)
		s.True(result.Allowed)
	}

	denied, err := s.store.AllowAll(s.ctx, baseTime, both)
	s.Require().NoError(err)
	s.False(denied.Allowed)
	s.Equal(models.AxisUserPlace, denied.Axis)
	s.Equal(2, denied.Limit)

	ipCount, err := s.store.currentCount(s.ctx, baseTime, ipBucket.Key, testWindow)
	s.Require().NoError(err)
	s.Equal(2, ipCount, "a denied batch must not increment the buckets that had room")
}

func (s *BucketStoreSuite) TestAllowedResultReportsMostConstrainedBucket() {
	reqs := []models.BucketRequest{
		{Key: "constrained:ip", Axis: models.AxisIP, Limit: 20, Window: testWindow},
		{Key: "constrained:user", Axis: models.AxisUserPlace, Limit: 3, Window: testWindow},
	}
	result, err := s.store.AllowAll(s.ctx, baseTime, reqs)
	s.Require().NoError(err)
	s.True(result.Allowed)
	s.Equal(models.AxisUserPlace, result.Axis)
	s.Equal(2, result.Remaining)
}

func (s *BucketStoreSuite) TestConcurrentRequestsNeverExceedLimit() {
	const goroutines = 40
	var allowed atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			result, err := s.store.AllowAll(s.ctx, baseTime, single("concurrent"))
			if err == nil && result.Allowed {
				allowed.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	s.Equal(int32(testLimit), allowed.Load())
}

func (s *BucketStoreSuite) TestReset() {
	key := "reset:key"
	for range testLimit {
		_, err := s.store.AllowAll(s.ctx, baseTime, single(key))
		s.Require().NoError(err)
	}
	s.Require().NoError(s.store.Reset(s.ctx, key))

	count, err := s.store.currentCount(s.ctx, baseTime, key, testWindow)
	s.Require().NoError(err)
	s.Equal(0, count)

	result, err := s.store.AllowAll(s.ctx, baseTime, single(key))
	s.Require().NoError(err)
	s.True(result.Allowed)
}

func (s *BucketStoreSuite) TestCurrentCountUnknownKey() {
	count, err := s.store.currentCount(s.ctx, baseTime, "missing", testWindow)
	s.Require().NoError(err)
	s.Equal(0, count)
}
