// Package ports defines the collaborators the object cache consumes.
// Implementations live outside the cache and are passed in at construction.
package ports

//go:generate mockgen -source=ports.go -destination=../mocks/mocks.go -package=mocks TypeDescriptors,AdapterFactory,OidGenerator,Injector

import (
	"context"
	"reflect"

	"causeway/internal/objectcache/models"
)

// Descriptor is what the cache needs to know about a runtime type.
type Descriptor struct {
	// Name is the stable type name written into oids.
	Name string
	// Value types are immutable; their adapters are never indexed.
	Value bool
	// Standalone types carry an identity but are never tracked.
	Standalone bool
	// Aggregated types have a lifecycle bound to an owner.
	Aggregated bool
	// ElementType is set for collection types.
	ElementType reflect.Type
	// Collections lists the collection-typed members, in declaration order.
	Collections []Member
}

// Collection returns the collection member called name.
func (d Descriptor) Collection(name string) (Member, bool) {
	for _, m := range d.Collections {
		if m.Name == name {
			return m, true
		}
	}
	return Member{}, false
}

// Member describes one collection-typed member of an owning type.
type Member struct {
	Name        string
	Aggregated  bool
	ElementType reflect.Type
	// Get reads the member's current value off an owner instance.
	Get func(owner any) (any, error)
}

// MemberContext describes the field or collection an object was reached
// through when dereferenced off a known owner.
type MemberContext struct {
	Name string
	// Aggregated marks the reference itself as owned, regardless of the
	// referenced type's descriptor.
	Aggregated  bool
	ElementType reflect.Type
}

// MemberContextOf builds the context for a declared collection member.
func MemberContextOf(m Member) MemberContext {
	return MemberContext{Name: m.Name, Aggregated: m.Aggregated, ElementType: m.ElementType}
}

// TypeDescriptors answers questions about runtime types. It has no side
// effects on the cache.
type TypeDescriptors interface {
	Describe(t reflect.Type) (Descriptor, error)
}

// AdapterFactory builds adapters. It performs no registration.
type AdapterFactory interface {
	NewAdapter(obj any, oid *models.Oid, state models.ResolveState) *models.Adapter
	NewCollectionAdapter(obj any, oid *models.Oid, state models.ResolveState, elementType reflect.Type) *models.Adapter
}

// OidGenerator issues identities. Implementations shared between caches must
// be safe for concurrent use.
type OidGenerator interface {
	// CreateTransientOid issues a fresh transient root identity for obj.
	CreateTransientOid(ctx context.Context, obj any, typeName string) (*models.Oid, error)

	// CreateAggregateOid builds the identity of member within parent.
	// Generators without aggregate support return a CodeUnsupported error.
	CreateAggregateOid(ctx context.Context, typeName string, parent *models.Oid, member string) (*models.Oid, error)

	// ConvertTransientToPersistent mutates oid in place.
	ConvertTransientToPersistent(ctx context.Context, oid *models.Oid) error

	// AsPersistent issues a new persistent identity superseding root.
	AsPersistent(ctx context.Context, root *models.Oid) (*models.Oid, error)
}

// Injector supplies services to a newly registered domain object.
type Injector interface {
	Inject(ctx context.Context, obj any) error
}
