package generator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"

	"causeway/internal/identity/metrics"
	"causeway/internal/identity/store/memory"
	"causeway/internal/objectcache/models"
	dErrors "causeway/pkg/domain-errors"
)

// countingAllocator records how often a block was reserved.
type countingAllocator struct {
	inner *memory.Store
	calls atomic.Int64
	err   error
}

func (c *countingAllocator) Reserve(ctx context.Context, sequence string, n int64) (int64, error) {
	c.calls.Add(1)
	if c.err != nil {
		return 0, c.err
	}
	return c.inner.Reserve(ctx, sequence, n)
}

// gatedAllocator holds every reservation until released and reports the
// context state each one saw.
type gatedAllocator struct {
	inner   *memory.Store
	calls   atomic.Int64
	entered chan struct{}
	release chan struct{}
	ctxErrs chan error
}

func newGatedAllocator() *gatedAllocator {
	return &gatedAllocator{
		inner:   memory.New(),
		entered: make(chan struct{}, 8),
		release: make(chan struct{}),
		ctxErrs: make(chan error, 8),
	}
}

func (g *gatedAllocator) Reserve(ctx context.Context, sequence string, n int64) (int64, error) {
	g.calls.Add(1)
	g.entered <- struct{}{}
	<-g.release
	g.ctxErrs <- ctx.Err()
	return g.inner.Reserve(context.Background(), sequence, n)
}

type SequentialSuite struct {
	suite.Suite
	alloc   *countingAllocator
	metrics *metrics.Metrics
	gen     *Sequential
	ctx     context.Context
}

func TestSequentialSuite(t *testing.T) {
	suite.Run(t, new(SequentialSuite))
}

func (s *SequentialSuite) SetupTest() {
	s.ctx = context.Background()
	s.alloc = &countingAllocator{inner: memory.New()}
	s.metrics = metrics.New(prometheus.NewRegistry())
	var seq atomic.Int64
	gen, err := NewSequential(s.alloc,
		WithBatchSize(5),
		WithMetrics(s.metrics),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithTransientKeys(func() string { return fmt.Sprintf("t%d", seq.Add(1)) }),
	)
	s.Require().NoError(err)
	s.gen = gen
}

func (s *SequentialSuite) TestNewRequiresAllocator() {
	_, err := NewSequential(nil)
	s.Error(err)
}

// =============================================================================
// Transient and aggregated oids
// =============================================================================

func (s *SequentialSuite) TestCreateTransientOid() {
	oid, err := s.gen.CreateTransientOid(s.ctx, nil, "Customer")
	s.Require().NoError(err)
	s.True(oid.IsTransient())
	s.Equal("Customer", oid.TypeName())
	s.Equal("t1", oid.ID())

	_, err = s.gen.CreateTransientOid(s.ctx, nil, "")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *SequentialSuite) TestCreateAggregateOid() {
	parent := models.NewTransientOid("Customer", "t9")

	oid, err := s.gen.CreateAggregateOid(s.ctx, "OrderList", parent, "orders")
	s.Require().NoError(err)
	s.Same(parent, oid.Parent())
	s.Equal("orders", oid.Member())
	s.True(oid.IsTransient())

	_, err = s.gen.CreateAggregateOid(s.ctx, "OrderList", nil, "orders")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	_, err = s.gen.CreateAggregateOid(s.ctx, "OrderList", parent, "")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

// =============================================================================
// Persistent ids
// =============================================================================

func (s *SequentialSuite) TestConvertTransientToPersistent() {
	s.Run("mutates the shared handle", func() {
		oid := models.NewTransientOid("Customer", "t1")
		held := oid

		s.Require().NoError(s.gen.ConvertTransientToPersistent(s.ctx, oid))
		s.False(held.IsTransient())
		s.Equal("1", held.ID())
	})

	s.Run("ids are sequential per type across batches", func() {
		var got []string
		for range 7 {
			oid := models.NewTransientOid("Order", "t")
			s.Require().NoError(s.gen.ConvertTransientToPersistent(s.ctx, oid))
			got = append(got, oid.ID())
		}
		s.Equal([]string{"1", "2", "3", "4", "5", "6", "7"}, got)
	})

	s.Run("persistent and aggregated oids are refused", func() {
		err := s.gen.ConvertTransientToPersistent(s.ctx, models.NewPersistentOid("Order", "1"))
		s.True(errors.Is(err, models.ErrNotTransient))

		agg := models.NewAggregateOid("OrderList", models.NewTransientOid("Customer", "t"), "orders")
		err = s.gen.ConvertTransientToPersistent(s.ctx, agg)
		s.True(errors.Is(err, models.ErrAggregatedOid))
	})
}

func (s *SequentialSuite) TestAsPersistent() {
	root := models.NewPersistentOid("Customer", "100")

	next, err := s.gen.AsPersistent(s.ctx, root)
	s.Require().NoError(err)
	s.NotSame(root, next)
	s.False(next.IsTransient())
	s.Equal("Customer", next.TypeName())
	s.True(next.Previous().Equal(root))
	s.Equal("100", root.ID(), "root is left alone")
}

func (s *SequentialSuite) TestAllocatorFailure() {
	s.alloc.err = errors.New("connection refused")

	err := s.gen.ConvertTransientToPersistent(s.ctx, models.NewTransientOid("Customer", "t"))
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.ReserveFailures.WithLabelValues("Customer")))
}

func (s *SequentialSuite) TestCancelledCallerDoesNotFailSharedReservation() {
	alloc := newGatedAllocator()
	gen, err := NewSequential(alloc, WithBatchSize(5))
	s.Require().NoError(err)

	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan error, 1)
	go func() {
		done <- gen.ConvertTransientToPersistent(ctx, models.NewTransientOid("Invoice", "t1"))
	}()
	<-alloc.entered
	cancel()
	s.ErrorIs(<-done, context.Canceled, "the caller stops waiting")

	waiting := make(chan error, 1)
	oid := models.NewTransientOid("Invoice", "t2")
	go func() {
		waiting <- gen.ConvertTransientToPersistent(s.ctx, oid)
	}()
	close(alloc.release)

	s.Require().NoError(<-waiting)
	s.NoError(<-alloc.ctxErrs, "reservation ran without the cancelled context")
	s.Equal("1", oid.ID())
	s.Equal(int64(1), alloc.calls.Load())
}

func (s *SequentialSuite) TestConcurrentPromotionsShareBatches() {
	const workers = 40
	var (
		mu   sync.Mutex
		seen = make(map[string]bool)
	)
	g, ctx := errgroup.WithContext(s.ctx)
	for range workers {
		g.Go(func() error {
			oid := models.NewTransientOid("Invoice", "t")
			if err := s.gen.ConvertTransientToPersistent(ctx, oid); err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			if seen[oid.ID()] {
				return fmt.Errorf("id %s issued twice", oid.ID())
			}
			seen[oid.ID()] = true
			return nil
		})
	}
	s.Require().NoError(g.Wait())
	s.Len(seen, workers)

	for i := 1; i <= workers; i++ {
		s.True(seen[strconv.Itoa(i)], "id %d skipped", i)
	}
	s.Equal(int64(workers/5), s.alloc.calls.Load())
	s.Equal(float64(workers), testutil.ToFloat64(s.metrics.IDsIssued.WithLabelValues("Invoice")))
}

// =============================================================================
// Random
// =============================================================================

func TestRandom(t *testing.T) {
	ctx := context.Background()
	gen := NewRandom()

	t.Run("promotes with a uuid key", func(t *testing.T) {
		oid, err := gen.CreateTransientOid(ctx, nil, "Customer")
		if err != nil {
			t.Fatal(err)
		}
		transientKey := oid.ID()
		if err := gen.ConvertTransientToPersistent(ctx, oid); err != nil {
			t.Fatal(err)
		}
		if oid.IsTransient() || oid.ID() == transientKey {
			t.Fatalf("expected fresh persistent key, got %s", oid)
		}
	})

	t.Run("aggregated oids are unsupported", func(t *testing.T) {
		_, err := gen.CreateAggregateOid(ctx, "OrderList", models.NewTransientOid("Customer", "x"), "orders")
		if !dErrors.HasCode(err, dErrors.CodeUnsupported) {
			t.Fatalf("expected unsupported, got %v", err)
		}
	})
}
