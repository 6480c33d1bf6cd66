// Package index holds the adapters of one cache and the two lookups derived
// from them: object reference -> adapter and oid -> adapter.
//
// Both lookups are maintained by the same operations so they cannot drift
// apart through this package's API. Callers outside the cache must not hold
// an *Index.
package index

import (
	"errors"
	"fmt"
	"iter"
	"reflect"
	"unsafe"

	"causeway/internal/objectcache/models"
)

var (
	// ErrNotReferenceable is returned for objects without reference
	// identity (non-pointer structs, slices, zero-sized pointees).
	ErrNotReferenceable = errors.New("object has no reference identity")
	// ErrNotIndexable is returned for adapters that must stay out of the
	// index (values, standalone, missing oid).
	ErrNotIndexable = errors.New("adapter is not indexable")
	// ErrOccupied is returned when a key already maps to another adapter.
	ErrOccupied = errors.New("index key already taken")
)

// ObjectKey identifies a live object by reference. The dynamic type is part
// of the key because a struct and its first field share an address.
type ObjectKey struct {
	typ reflect.Type
	ptr unsafe.Pointer
}

// KeyOf returns the reference key of obj.
func KeyOf(obj any) (ObjectKey, error) {
	if obj == nil {
		return ObjectKey{}, fmt.Errorf("nil object: %w", ErrNotReferenceable)
	}
	v := reflect.ValueOf(obj)
	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return ObjectKey{}, fmt.Errorf("nil %s: %w", v.Type(), ErrNotReferenceable)
		}
		if v.Type().Elem().Size() == 0 {
			return ObjectKey{}, fmt.Errorf("zero-sized %s: %w", v.Type(), ErrNotReferenceable)
		}
	case reflect.Map, reflect.Chan:
		if v.IsNil() {
			return ObjectKey{}, fmt.Errorf("nil %s: %w", v.Type(), ErrNotReferenceable)
		}
	default:
		return ObjectKey{}, fmt.Errorf("%s: %w", v.Type(), ErrNotReferenceable)
	}
	return ObjectKey{typ: v.Type(), ptr: v.UnsafePointer()}, nil
}

// Referenceable reports whether obj can be keyed by reference.
func Referenceable(obj any) bool {
	_, err := KeyOf(obj)
	return err == nil
}

// Index is not safe for concurrent use.
type Index struct {
	byObject map[ObjectKey]*models.Adapter
	byOid    map[models.OidKey]*models.Adapter
}

func New() *Index {
	return &Index{
		byObject: make(map[ObjectKey]*models.Adapter),
		byOid:    make(map[models.OidKey]*models.Adapter),
	}
}

// Insert registers a under its object and its oid. Nothing is written
// unless both keys are free.
func (ix *Index) Insert(a *models.Adapter) error {
	if a == nil || a.Oid() == nil || !a.State().IsIndexed() {
		return fmt.Errorf("insert %v: %w", a, ErrNotIndexable)
	}
	objKey, err := KeyOf(a.Object())
	if err != nil {
		return fmt.Errorf("insert %s: %w", a, err)
	}
	k := a.Oid().Key()
	if other, found := ix.byObject[objKey]; found && other != a {
		return fmt.Errorf("insert %s: object held by %s: %w", a, other, ErrOccupied)
	}
	if other, found := ix.byOid[k]; found && other != a {
		return fmt.Errorf("insert %s: oid held by %s: %w", a, other, ErrOccupied)
	}
	ix.byObject[objKey] = a
	ix.byOid[k] = a
	return nil
}

// Remove deletes a from both lookups under its current keys. Entries that
// point at another adapter are left alone.
func (ix *Index) Remove(a *models.Adapter) {
	if objKey, err := KeyOf(a.Object()); err == nil && ix.byObject[objKey] == a {
		delete(ix.byObject, objKey)
	}
	if a.Oid() == nil {
		return
	}
	if k := a.Oid().Key(); ix.byOid[k] == a {
		delete(ix.byOid, k)
	}
}

func (ix *Index) ByObject(obj any) (*models.Adapter, bool) {
	objKey, err := KeyOf(obj)
	if err != nil {
		return nil, false
	}
	a, found := ix.byObject[objKey]
	return a, found
}

func (ix *Index) ByOid(oid *models.Oid) (*models.Adapter, bool) {
	if oid == nil {
		return nil, false
	}
	return ix.ByOidKey(oid.Key())
}

func (ix *Index) ByOidKey(k models.OidKey) (*models.Adapter, bool) {
	a, found := ix.byOid[k]
	return a, found
}

// Check compares what each lookup returns for a.
//
// A lookup returning a different adapter is a consistency error. An oid
// lookup returning nothing is reported through oidMissing, which the caller
// may tolerate.
func (ix *Index) Check(a *models.Adapter) (oidMissing bool, err error) {
	byObj, found := ix.ByObject(a.Object())
	if !found {
		return false, fmt.Errorf("%s: object not indexed: %w", a, models.ErrConsistency)
	}
	if byObj != a {
		return false, fmt.Errorf("%s: object maps to %s: %w", a, byObj, models.ErrConsistency)
	}
	byOid, found := ix.ByOid(a.Oid())
	if !found {
		return true, nil
	}
	if byOid != a {
		return false, fmt.Errorf("%s: oid maps to %s: %w", a, byOid, models.ErrConsistency)
	}
	return false, nil
}

// Verify is Check without tolerance for a missing oid entry.
func (ix *Index) Verify(a *models.Adapter) error {
	missing, err := ix.Check(a)
	if err != nil {
		return err
	}
	if missing {
		return fmt.Errorf("%s: oid not indexed: %w", a, models.ErrConsistency)
	}
	return nil
}

// RekeyOids detaches the oid entries of adapters, runs mutate (which may
// change their oids in place) and re-attaches every adapter under its new
// key. Adapters whose old entry was absent are returned in missing.
//
// When mutate fails, or a new key is already held by another adapter, the
// oids get their old content back and the old entries are restored.
func (ix *Index) RekeyOids(adapters []*models.Adapter, mutate func() error) (missing []*models.Adapter, err error) {
	snapshots := make([]*models.Oid, len(adapters))
	detached := make([]*models.Adapter, 0, len(adapters))
	for i, a := range adapters {
		snapshots[i] = a.Oid().Clone()
		k := a.Oid().Key()
		if ix.byOid[k] != a {
			missing = append(missing, a)
			continue
		}
		delete(ix.byOid, k)
		detached = append(detached, a)
	}

	rollback := func() {
		for i, a := range adapters {
			a.Oid().Restore(snapshots[i])
		}
		for _, a := range detached {
			ix.byOid[a.Oid().Key()] = a
		}
	}

	if err := mutate(); err != nil {
		rollback()
		return missing, err
	}

	for _, a := range adapters {
		if other, found := ix.byOid[a.Oid().Key()]; found && other != a {
			err := fmt.Errorf("reattach %s: oid held by %s: %w", a, other, ErrOccupied)
			rollback()
			return missing, err
		}
	}
	for _, a := range adapters {
		ix.byOid[a.Oid().Key()] = a
	}
	return missing, nil
}

// RekeyObject moves a from its current object key to obj and swaps the
// adapter's wrapped object.
func (ix *Index) RekeyObject(a *models.Adapter, obj any) error {
	newKey, err := KeyOf(obj)
	if err != nil {
		return fmt.Errorf("rekey %s: %w", a, err)
	}
	if other, found := ix.byObject[newKey]; found && other != a {
		return fmt.Errorf("rekey %s: object held by %s: %w", a, other, ErrOccupied)
	}
	if oldKey, err := KeyOf(a.Object()); err == nil && ix.byObject[oldKey] == a {
		delete(ix.byObject, oldKey)
	}
	a.SwapObject(obj)
	ix.byObject[newKey] = a
	return nil
}

// Len returns the number of adapters reachable through the oid lookup.
func (ix *Index) Len() int {
	return len(ix.byOid)
}

// All yields every adapter reachable through the oid lookup. The index must
// not be modified during iteration.
func (ix *Index) All() iter.Seq[*models.Adapter] {
	return func(yield func(*models.Adapter) bool) {
		for _, a := range ix.byOid {
			if !yield(a) {
				return
			}
		}
	}
}

// Reset drops every entry.
func (ix *Index) Reset() {
	clear(ix.byObject)
	clear(ix.byOid)
}
