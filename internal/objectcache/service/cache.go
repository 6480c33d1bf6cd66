// Package service implements the per-session object identity cache.
//
// A Cache wraps every domain object it sees in exactly one adapter and keeps
// two lookups over those adapters, by object reference and by oid, in
// agreement. It is owned by one session and is not safe for concurrent use.
package service

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"reflect"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"causeway/internal/objectcache/index"
	"causeway/internal/objectcache/metrics"
	"causeway/internal/objectcache/models"
	"causeway/internal/objectcache/ports"
	dErrors "causeway/pkg/domain-errors"
)

// Cache is the identity map of one session.
type Cache struct {
	descriptors ports.TypeDescriptors
	factory     ports.AdapterFactory
	generator   ports.OidGenerator
	injector    ports.Injector

	index *index.Index

	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
	strictRemap bool
}

type Option func(*Cache)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(c *Cache) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithStrictRemap turns a missing identity entry during promotion or update
// remap into an error instead of a logged warning.
func WithStrictRemap(strict bool) Option {
	return func(c *Cache) {
		c.strictRemap = strict
	}
}

// New constructs a Cache. All four collaborators are required.
func New(
	descriptors ports.TypeDescriptors,
	factory ports.AdapterFactory,
	generator ports.OidGenerator,
	injector ports.Injector,
	opts ...Option,
) (*Cache, error) {
	if descriptors == nil {
		return nil, fmt.Errorf("type descriptors are required")
	}
	if factory == nil {
		return nil, fmt.Errorf("adapter factory is required")
	}
	if generator == nil {
		return nil, fmt.Errorf("oid generator is required")
	}
	if injector == nil {
		return nil, fmt.Errorf("injector is required")
	}
	c := &Cache{
		descriptors: descriptors,
		factory:     factory,
		generator:   generator,
		injector:    injector,
		index:       index.New(),
		logger:      slog.New(slog.DiscardHandler),
		tracer:      otel.Tracer("causeway/objectcache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// =============================================================================
// Lookup / creation
// =============================================================================

// AdapterFor returns the adapter of obj, creating one on first sight.
//
// Value types get a fresh unindexed adapter on every call. Any other type
// gets a transient root adapter that is registered before the injector runs.
func (c *Cache) AdapterFor(ctx context.Context, obj any) (*models.Adapter, error) {
	if obj == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "object is required")
	}
	if a, ok := c.index.ByObject(obj); ok {
		return a, nil
	}
	d, err := c.describe(obj)
	if err != nil {
		return nil, err
	}
	if d.Value {
		return c.factory.NewAdapter(obj, nil, models.StateValue), nil
	}
	return c.createRoot(ctx, obj, d)
}

// AdapterForMember returns the adapter of obj reached through member of
// owner. When the member or obj's type is aggregated the adapter's identity
// is derived from the owner's and the owner's version is copied onto it;
// otherwise this behaves like AdapterFor.
func (c *Cache) AdapterForMember(ctx context.Context, obj any, owner *models.Adapter, member ports.MemberContext) (*models.Adapter, error) {
	if obj == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "object is required")
	}
	if a, ok := c.index.ByObject(obj); ok {
		return a, nil
	}
	d, err := c.describe(obj)
	if err != nil {
		return nil, err
	}
	if d.Value {
		return c.factory.NewAdapter(obj, nil, models.StateValue), nil
	}
	if !member.Aggregated && !d.Aggregated {
		return c.createRoot(ctx, obj, d)
	}

	if err := c.requireOwner(owner, member.Name); err != nil {
		return nil, err
	}
	if !index.Referenceable(obj) {
		return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%T has no reference identity", obj))
	}
	oid, err := c.generator.CreateAggregateOid(ctx, d.Name, owner.Oid(), member.Name)
	if err != nil {
		return nil, collaboratorError(err, "create aggregated oid for "+member.Name)
	}

	// The owner replaced the collection behind this member: keep the adapter,
	// follow the new instance.
	if existing, ok := c.index.ByOid(oid); ok {
		if err := c.index.RekeyObject(existing, obj); err != nil {
			return nil, c.consistencyError(ctx, "adapter_for_member", existing, err)
		}
		c.logger.DebugContext(ctx, "aggregated collection instance replaced",
			"oid", existing.Oid().String(),
			"member", member.Name,
		)
		return existing, nil
	}

	elem := member.ElementType
	if elem == nil {
		elem = d.ElementType
	}
	a := c.newAdapter(obj, oid, owner.State(), elem)
	if v := owner.Version(); v != nil {
		cp := *v
		a.SetVersion(&cp)
	}
	if err := c.register(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// RecreateRootAdapter returns the adapter for a persistent identity read
// back from storage. An adapter already known by obj or by oid is returned
// as is; otherwise a Ghost root adapter is registered.
func (c *Cache) RecreateRootAdapter(ctx context.Context, oid *models.Oid, obj any) (*models.Adapter, error) {
	if oid == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "oid is required")
	}
	if obj == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "object is required")
	}
	if oid.IsAggregated() {
		return nil, dErrors.Wrap(models.ErrAggregatedOid, dErrors.CodeValidation, "root oid required, got "+oid.String())
	}
	if a, ok := c.index.ByObject(obj); ok {
		return a, nil
	}
	if a, ok := c.index.ByOid(oid); ok {
		return a, nil
	}
	d, err := c.describe(obj)
	if err != nil {
		return nil, err
	}
	if d.Value {
		return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("value type %T cannot carry identity %s", obj, oid))
	}
	if d.Standalone {
		return c.factory.NewAdapter(obj, oid, models.StateStandalone), nil
	}
	if !index.Referenceable(obj) {
		return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%T has no reference identity", obj))
	}
	a := c.newAdapter(obj, oid, models.StateGhost, d.ElementType)
	if err := c.register(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// GetAdapterFor looks obj up without creating anything.
func (c *Cache) GetAdapterFor(obj any) (*models.Adapter, bool) {
	return c.index.ByObject(obj)
}

// GetAdapterForOid looks oid up by its current content.
func (c *Cache) GetAdapterForOid(oid *models.Oid) (*models.Adapter, bool) {
	return c.index.ByOid(oid)
}

// =============================================================================
// Removal / state
// =============================================================================

// RemoveAdapter drops a from both lookups. Aggregated adapters owned by a
// are left in place; see RemoveAggregateGroup.
func (c *Cache) RemoveAdapter(ctx context.Context, a *models.Adapter) error {
	if a == nil {
		return dErrors.New(dErrors.CodeValidation, "adapter is required")
	}
	if !a.State().IsIndexed() {
		return dErrors.New(dErrors.CodeValidation, "adapter is not tracked: "+a.String())
	}
	if err := c.verify(ctx, "remove", a); err != nil {
		return err
	}
	c.index.Remove(a)
	if c.metrics != nil {
		c.metrics.AddRemoved(1)
	}
	c.logger.DebugContext(ctx, "adapter removed", "oid", a.Oid().String())
	return nil
}

// MarkResolved records that a Ghost adapter's content has been loaded.
func (c *Cache) MarkResolved(ctx context.Context, a *models.Adapter) error {
	if a == nil {
		return dErrors.New(dErrors.CodeValidation, "adapter is required")
	}
	if err := c.verify(ctx, "mark_resolved", a); err != nil {
		return err
	}
	return a.ChangeState(models.StateResolved)
}

// =============================================================================
// Iteration
// =============================================================================

// All yields every indexed adapter. The cache must not be modified while
// iterating.
func (c *Cache) All() iter.Seq[*models.Adapter] {
	return c.index.All()
}

func (c *Cache) Len() int {
	return c.index.Len()
}

// Reset forgets every adapter. Oid handles held elsewhere are unaffected.
func (c *Cache) Reset(ctx context.Context) {
	n := c.index.Len()
	c.index.Reset()
	c.logger.DebugContext(ctx, "object cache reset", "adapters", n)
}

// =============================================================================
// Helpers
// =============================================================================

func (c *Cache) describe(obj any) (ports.Descriptor, error) {
	d, err := c.descriptors.Describe(reflect.TypeOf(obj))
	if err != nil {
		return ports.Descriptor{}, collaboratorError(err, fmt.Sprintf("describe %T", obj))
	}
	return d, nil
}

func (c *Cache) createRoot(ctx context.Context, obj any, d ports.Descriptor) (*models.Adapter, error) {
	if !d.Standalone && !index.Referenceable(obj) {
		return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%T has no reference identity", obj))
	}
	oid, err := c.generator.CreateTransientOid(ctx, obj, d.Name)
	if err != nil {
		return nil, collaboratorError(err, "create transient oid for "+d.Name)
	}
	if d.Standalone {
		return c.factory.NewAdapter(obj, oid, models.StateStandalone), nil
	}
	a := c.newAdapter(obj, oid, models.StateTransient, d.ElementType)
	if err := c.register(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (c *Cache) newAdapter(obj any, oid *models.Oid, state models.ResolveState, elem reflect.Type) *models.Adapter {
	if elem != nil {
		return c.factory.NewCollectionAdapter(obj, oid, state, elem)
	}
	return c.factory.NewAdapter(obj, oid, state)
}

// register indexes a and then hands its object to the injector. Injection
// runs only once both lookups resolve to a, so a service touching the same
// object finds it instead of registering it again.
func (c *Cache) register(ctx context.Context, a *models.Adapter) error {
	if err := c.index.Insert(a); err != nil {
		if errors.Is(err, index.ErrOccupied) {
			return dErrors.Wrap(err, dErrors.CodeConflict, "identity already taken: "+a.Oid().String())
		}
		return dErrors.Wrap(err, dErrors.CodeValidation, "cannot register "+a.String())
	}
	if err := c.injector.Inject(ctx, a.Object()); err != nil {
		c.index.Remove(a)
		return collaboratorError(err, "inject services into "+a.String())
	}
	if c.metrics != nil {
		c.metrics.IncrementRegistered(a.State().String())
	}
	c.logger.DebugContext(ctx, "adapter registered",
		"oid", a.Oid().String(),
		"state", a.State().String(),
	)
	return nil
}

func (c *Cache) requireOwner(owner *models.Adapter, member string) error {
	if owner == nil || owner.Oid() == nil {
		return dErrors.New(dErrors.CodeValidation, "aggregated member "+member+" needs an owner with identity")
	}
	if registered, ok := c.index.ByOid(owner.Oid()); !ok || registered != owner {
		return dErrors.New(dErrors.CodeValidation, "owner of "+member+" is not registered: "+owner.String())
	}
	return nil
}

// verify fails when the two lookups disagree about a, including a missing
// oid entry.
func (c *Cache) verify(ctx context.Context, operation string, a *models.Adapter) error {
	if err := c.index.Verify(a); err != nil {
		return c.consistencyError(ctx, operation, a, err)
	}
	return nil
}

func (c *Cache) consistencyError(ctx context.Context, operation string, a *models.Adapter, err error) error {
	if c.metrics != nil {
		c.metrics.IncrementConsistencyViolation(operation)
	}
	c.logger.ErrorContext(ctx, "identity map inconsistent",
		"operation", operation,
		"adapter", a.String(),
		"error", err,
	)
	return dErrors.Wrap(err, dErrors.CodeInvariantViolation, "identity map inconsistent during "+operation)
}

// collaboratorError keeps a collaborator's own code and classifies anything
// else as internal.
func collaboratorError(err error, msg string) error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
