//go:build integration

package redis_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	redisstore "causeway/internal/identity/store/redis"
	"causeway/pkg/testutil/containers"
)

type RedisAllocatorSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *redisstore.Store
}

func TestRedisAllocatorSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisAllocatorSuite))
}

func (s *RedisAllocatorSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = redisstore.New(s.redis.Client, redisstore.WithKeyPrefix("test:seq:"))
}

func (s *RedisAllocatorSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisAllocatorSuite) TestReserveConsecutiveBlocks() {
	ctx := context.Background()

	first, err := s.store.Reserve(ctx, "Customer", 10)
	s.Require().NoError(err)
	s.Equal(int64(1), first)

	next, err := s.store.Reserve(ctx, "Customer", 10)
	s.Require().NoError(err)
	s.Equal(int64(11), next)

	current, err := s.store.Current(ctx, "Customer")
	s.Require().NoError(err)
	s.Equal(int64(20), current)
}

func (s *RedisAllocatorSuite) TestSeedRaisesCountersToFloor() {
	ctx := context.Background()
	_, err := s.store.Reserve(ctx, "Order", 5)
	s.Require().NoError(err)
	_, err = s.store.Reserve(ctx, "Refund", 2000)
	s.Require().NoError(err)

	s.Require().NoError(s.store.Seed(ctx, 1000, "Order", "Invoice", "Refund"))

	next, err := s.store.Reserve(ctx, "Order", 1)
	s.Require().NoError(err)
	s.Equal(int64(1001), next, "counter below the floor is raised")

	first, err := s.store.Reserve(ctx, "Invoice", 1)
	s.Require().NoError(err)
	s.Equal(int64(1001), first)

	refund, err := s.store.Reserve(ctx, "Refund", 1)
	s.Require().NoError(err)
	s.Equal(int64(2001), refund, "counter above the floor is kept")
}

func (s *RedisAllocatorSuite) TestConcurrentReserveNeverOverlaps() {
	ctx := context.Background()
	const workers = 20
	const batch = 8

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[int64]bool)
	for range workers {
		wg.Go(func() {
			first, err := s.store.Reserve(ctx, "Shipment", batch)
			s.Require().NoError(err)
			mu.Lock()
			defer mu.Unlock()
			for id := first; id < first+batch; id++ {
				s.False(seen[id], "id %d handed out twice", id)
				seen[id] = true
			}
		})
	}
	wg.Wait()
	s.Len(seen, workers*batch)
}
