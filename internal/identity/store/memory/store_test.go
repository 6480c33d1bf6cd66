package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"
)

type InMemoryAllocatorSuite struct {
	suite.Suite
	store *Store
	ctx   context.Context
}

func TestInMemoryAllocatorSuite(t *testing.T) {
	suite.Run(t, new(InMemoryAllocatorSuite))
}

func (s *InMemoryAllocatorSuite) SetupTest() {
	s.store = New()
	s.ctx = context.Background()
}

func (s *InMemoryAllocatorSuite) TestReserve() {
	s.Run("blocks are consecutive per sequence", func() {
		first, err := s.store.Reserve(s.ctx, "Customer", 10)
		s.Require().NoError(err)
		s.Equal(int64(1), first)

		next, err := s.store.Reserve(s.ctx, "Customer", 10)
		s.Require().NoError(err)
		s.Equal(int64(11), next)

		current, err := s.store.Current(s.ctx, "Customer")
		s.Require().NoError(err)
		s.Equal(int64(20), current)
	})

	s.Run("sequences are independent", func() {
		first, err := s.store.Reserve(s.ctx, "Order", 5)
		s.Require().NoError(err)
		s.Equal(int64(1), first)
	})

	s.Run("non-positive batch is rejected", func() {
		_, err := s.store.Reserve(s.ctx, "Order", 0)
		s.Error(err)
	})
}

func (s *InMemoryAllocatorSuite) TestSeed() {
	_, err := s.store.Reserve(s.ctx, "Order", 5)
	s.Require().NoError(err)
	_, err = s.store.Reserve(s.ctx, "Refund", 2000)
	s.Require().NoError(err)

	s.Require().NoError(s.store.Seed(s.ctx, 1000, "Order", "Invoice", " Invoice ", "Refund"))

	next, err := s.store.Reserve(s.ctx, "Order", 1)
	s.Require().NoError(err)
	s.Equal(int64(1001), next, "counter below the floor is raised")

	first, err := s.store.Reserve(s.ctx, "Invoice", 1)
	s.Require().NoError(err)
	s.Equal(int64(1001), first)

	refund, err := s.store.Reserve(s.ctx, "Refund", 1)
	s.Require().NoError(err)
	s.Equal(int64(2001), refund, "counter above the floor is kept")
}

func (s *InMemoryAllocatorSuite) TestConcurrentReserveNeverOverlaps() {
	const workers = 50
	const batch = 4
	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[int64]bool)

	for range workers {
		wg.Go(func() {
			first, err := s.store.Reserve(s.ctx, "Invoice", batch)
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
