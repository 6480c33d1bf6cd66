// Package generator issues oids for the object cache.
//
// Sequential hands out persistent keys from per-type blocks reserved from a
// shared Allocator; Random uses UUIDs for everything and needs no backing
// store. Both are safe for concurrent use by many caches.
package generator

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"causeway/internal/identity/metrics"
	"causeway/internal/objectcache/models"
	"causeway/internal/objectcache/ports"
	dErrors "causeway/pkg/domain-errors"
)

var (
	_ ports.OidGenerator = (*Sequential)(nil)
	_ ports.OidGenerator = (*Random)(nil)
)

const DefaultBatchSize = 50

// Allocator reserves blocks of consecutive ids per named sequence.
type Allocator interface {
	// Reserve returns the first id of a block of n ids.
	Reserve(ctx context.Context, sequence string, n int64) (int64, error)
}

type block struct {
	next, end int64
}

// Sequential issues uuid transient keys and numeric persistent keys.
type Sequential struct {
	alloc     Allocator
	batchSize int64
	newKey    func() string

	mu     sync.Mutex
	blocks map[string]*block
	group  singleflight.Group

	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// Option configures a Sequential generator.
type Option func(*Sequential)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Sequential) {
		if logger != nil {
			g.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Sequential) { g.metrics = m }
}

func WithTracer(t trace.Tracer) Option {
	return func(g *Sequential) {
		if t != nil {
			g.tracer = t
		}
	}
}

// WithBatchSize sets how many ids are reserved per round trip.
func WithBatchSize(n int64) Option {
	return func(g *Sequential) {
		if n > 0 {
			g.batchSize = n
		}
	}
}

// WithTransientKeys replaces the transient key source.
func WithTransientKeys(next func() string) Option {
	return func(g *Sequential) {
		if next != nil {
			g.newKey = next
		}
	}
}

func NewSequential(alloc Allocator, opts ...Option) (*Sequential, error) {
	if alloc == nil {
		return nil, fmt.Errorf("id allocator is required")
	}
	g := &Sequential{
		alloc:     alloc,
		batchSize: DefaultBatchSize,
		newKey:    uuid.NewString,
		blocks:    make(map[string]*block),
		logger:    slog.New(slog.DiscardHandler),
		tracer:    otel.Tracer("causeway/identity"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

func (g *Sequential) CreateTransientOid(_ context.Context, _ any, typeName string) (*models.Oid, error) {
	if typeName == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "type name is required")
	}
	return models.NewTransientOid(typeName, g.newKey()), nil
}

func (g *Sequential) CreateAggregateOid(_ context.Context, typeName string, parent *models.Oid, member string) (*models.Oid, error) {
	return aggregateOid(typeName, parent, member)
}

// ConvertTransientToPersistent assigns the next id of the oid's type.
func (g *Sequential) ConvertTransientToPersistent(ctx context.Context, oid *models.Oid) error {
	if err := checkPromotable(oid); err != nil {
		return err
	}
	id, err := g.next(ctx, oid.TypeName())
	if err != nil {
		return err
	}
	return oid.MakePersistent(strconv.FormatInt(id, 10))
}

// AsPersistent issues a fresh persistent identity of root's type that
// records root as its predecessor. root is not modified.
func (g *Sequential) AsPersistent(ctx context.Context, root *models.Oid) (*models.Oid, error) {
	if err := checkRoot(root); err != nil {
		return nil, err
	}
	id, err := g.next(ctx, root.TypeName())
	if err != nil {
		return nil, err
	}
	return models.NewPersistentOid(root.TypeName(), strconv.FormatInt(id, 10)).WithPrevious(root.Clone()), nil
}

// next takes one id from the type's current block, reserving a new block
// when it is used up. Concurrent callers share a single reservation, which
// runs detached from any one caller's cancellation; a caller that gives up
// stops waiting without failing the others.
func (g *Sequential) next(ctx context.Context, typeName string) (int64, error) {
	for {
		if id, ok := g.take(typeName); ok {
			if g.metrics != nil {
				g.metrics.IncrementIssued(typeName)
			}
			return id, nil
		}
		ch := g.group.DoChan(typeName, func() (any, error) {
			return nil, g.refill(context.WithoutCancel(ctx), typeName)
		})
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case res := <-ch:
			if res.Err != nil {
				return 0, res.Err
			}
		}
	}
}

func (g *Sequential) take(typeName string) (int64, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	b := g.blocks[typeName]
	if b == nil || b.next >= b.end {
		return 0, false
	}
	id := b.next
	b.next++
	return id, true
}

func (g *Sequential) refill(ctx context.Context, typeName string) error {
	g.mu.Lock()
	if b := g.blocks[typeName]; b != nil && b.next < b.end {
		g.mu.Unlock()
		return nil
	}
	g.mu.Unlock()

	ctx, span := g.tracer.Start(ctx, "identity.reserve", trace.WithAttributes(
		attribute.String("oid.type", typeName),
		attribute.Int64("batch.size", g.batchSize),
	))
	defer span.End()

	start := time.Now()
	first, err := g.alloc.Reserve(ctx, typeName, g.batchSize)
	if g.metrics != nil {
		g.metrics.ObserveReserve(typeName, start, err)
	}
	if err != nil {
		span.RecordError(err)
		g.logger.ErrorContext(ctx, "id batch reservation failed",
			"type", typeName,
			"batch_size", g.batchSize,
			"error", err,
		)
		return dErrors.Wrap(err, dErrors.CodeInternal, "reserve ids for "+typeName)
	}

	g.mu.Lock()
	g.blocks[typeName] = &block{next: first, end: first + g.batchSize}
	g.mu.Unlock()

	g.logger.DebugContext(ctx, "id batch reserved",
		"type", typeName,
		"first", first,
		"batch_size", g.batchSize,
	)
	return nil
}

// Random issues UUID keys for transient and persistent identities alike.
// It has no notion of aggregated identity.
type Random struct{}

func NewRandom() *Random {
	return &Random{}
}

func (*Random) CreateTransientOid(_ context.Context, _ any, typeName string) (*models.Oid, error) {
	if typeName == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "type name is required")
	}
	return models.NewTransientOid(typeName, uuid.NewString()), nil
}

func (*Random) CreateAggregateOid(_ context.Context, typeName string, _ *models.Oid, _ string) (*models.Oid, error) {
	return nil, dErrors.New(dErrors.CodeUnsupported, "random generator cannot issue aggregated oids for "+typeName)
}

func (*Random) ConvertTransientToPersistent(_ context.Context, oid *models.Oid) error {
	if err := checkPromotable(oid); err != nil {
		return err
	}
	return oid.MakePersistent(uuid.NewString())
}

func (*Random) AsPersistent(_ context.Context, root *models.Oid) (*models.Oid, error) {
	if err := checkRoot(root); err != nil {
		return nil, err
	}
	return models.NewPersistentOid(root.TypeName(), uuid.NewString()).WithPrevious(root.Clone()), nil
}

func aggregateOid(typeName string, parent *models.Oid, member string) (*models.Oid, error) {
	if parent == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "aggregated oid needs a parent")
	}
	if member == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "aggregated oid needs a member name")
	}
	return models.NewAggregateOid(typeName, parent, member), nil
}

func checkRoot(oid *models.Oid) error {
	if oid == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "oid is required")
	}
	if oid.IsAggregated() {
		return dErrors.Wrap(models.ErrAggregatedOid, dErrors.CodeInvalidInput, "root oid required, got "+oid.String())
	}
	return nil
}

func checkPromotable(oid *models.Oid) error {
	if err := checkRoot(oid); err != nil {
		return err
	}
	if !oid.IsTransient() {
		return dErrors.Wrap(models.ErrNotTransient, dErrors.CodeConflict, "cannot promote "+oid.String())
	}
	return nil
}
