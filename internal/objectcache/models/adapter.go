package models

import (
	"fmt"
	"reflect"

	dErrors "causeway/pkg/domain-errors"
)

// Adapter wraps one domain object together with its identity, resolve state
// and concurrency token.
//
// Invariants:
//   - Value adapters carry no oid and are never indexed
//   - The wrapped object only changes when an aggregated collection's
//     backing container is replaced (see SwapObject)
//   - The oid handle is never replaced, only mutated
type Adapter struct {
	object      any
	oid         *Oid
	state       ResolveState
	version     *Version
	elementType reflect.Type
}

// NewAdapter constructs an adapter without registering it anywhere.
func NewAdapter(object any, oid *Oid, state ResolveState) *Adapter {
	return &Adapter{object: object, oid: oid, state: state}
}

// NewCollectionAdapter constructs an adapter for a collection whose element
// type is known from the owning member's declaration.
func NewCollectionAdapter(object any, oid *Oid, state ResolveState, elementType reflect.Type) *Adapter {
	return &Adapter{object: object, oid: oid, state: state, elementType: elementType}
}

func (a *Adapter) Object() any { return a.object }

func (a *Adapter) Oid() *Oid { return a.oid }

func (a *Adapter) State() ResolveState { return a.state }

func (a *Adapter) Version() *Version { return a.version }

func (a *Adapter) SetVersion(v *Version) { a.version = v }

// ElementType is the declared element type for collection adapters, nil otherwise.
func (a *Adapter) ElementType() reflect.Type { return a.elementType }

func (a *Adapter) IsValue() bool { return a.state == StateValue }

func (a *Adapter) IsAggregated() bool { return a.oid != nil && a.oid.IsAggregated() }

func (a *Adapter) IsTransient() bool { return a.oid != nil && a.oid.IsTransient() }

// ChangeState moves the adapter along the resolve state machine.
func (a *Adapter) ChangeState(next ResolveState) error {
	if !a.state.CanTransitionTo(next) {
		return dErrors.Wrap(
			fmt.Errorf("%s -> %s: %w", a.state, next, ErrIllegalTransition),
			dErrors.CodeInvariantViolation,
			"cannot change resolve state of "+a.String(),
		)
	}
	a.state = next
	return nil
}

// CheckLock compares the cached version with the backing store's current
// version and reports a conflict when they differ.
func (a *Adapter) CheckLock(current *Version) error {
	if a.version.Different(current) {
		return dErrors.Wrap(
			fmt.Errorf("cached %s, stored %s: %w", a.version, current, ErrConcurrency),
			dErrors.CodeConflict,
			"object changed by another session: "+a.String(),
		)
	}
	return nil
}

// SwapObject replaces the wrapped collection instance. Only the cache calls
// this, while it rekeys the object side of its index in the same step.
func (a *Adapter) SwapObject(object any) {
	a.object = object
}

func (a *Adapter) String() string {
	if a.oid == nil {
		return fmt.Sprintf("adapter[%T %s]", a.object, a.state)
	}
	return fmt.Sprintf("adapter[%s %s]", a.oid, a.state)
}
