// Package persistence drives an object cache from the backing-store side:
// it creates, promotes, loads, updates and destroys domain objects of one
// session and keeps the session's cache in step with the store.
package persistence

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"causeway/internal/objectcache/models"
	"causeway/internal/objectcache/ports"
	"causeway/internal/objectcache/service"
	"causeway/internal/persistence/store"
	dErrors "causeway/pkg/domain-errors"
	"causeway/pkg/platform/sentinel"
)

// ObjectStore persists root objects keyed by persistent root oids.
type ObjectStore interface {
	Insert(ctx context.Context, oid *models.Oid, obj any, v *models.Version) error
	Load(ctx context.Context, oid *models.Oid) (store.Record, error)
	Version(ctx context.Context, oid *models.Oid) (*models.Version, error)
	Update(ctx context.Context, oid *models.Oid, obj any, expected, next *models.Version) error
	Rename(ctx context.Context, from, to *models.Oid) error
	Delete(ctx context.Context, oid *models.Oid) error
}

// Session owns one object cache. Its methods serialize on the session, so a
// diagnostics reader may snapshot it while the owner works.
type Session struct {
	mu sync.Mutex

	id    string
	user  string
	cache *service.Cache

	store       ObjectStore
	descriptors ports.TypeDescriptors
	generator   ports.OidGenerator

	clock   func() time.Time
	logger  *slog.Logger
	onClose func(id string)
}

func (s *Session) ID() string { return s.id }

func (s *Session) User() string { return s.user }

// NewTransient registers obj as a new transient root and materializes its
// aggregated collections.
func (s *Session) NewTransient(ctx context.Context, obj any) (*models.Adapter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.cache.AdapterFor(ctx, obj)
	if err != nil {
		return nil, err
	}
	if a.IsValue() {
		return nil, dErrors.New(dErrors.CodeValidation, "value objects cannot be persisted")
	}
	if err := s.materialize(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// MakePersistent promotes obj's aggregate group to persistent identity and
// inserts the root into the store at version 1. When the insert fails the
// group is removed from the session and obj can be registered again.
func (s *Session) MakePersistent(ctx context.Context, obj any) (*models.Oid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.adapter(obj)
	if err != nil {
		return nil, err
	}
	if !a.IsTransient() {
		return nil, dErrors.New(dErrors.CodeConflict, "already persistent: "+a.Oid().String())
	}
	if err := s.materialize(ctx, a); err != nil {
		return nil, err
	}
	if err := s.cache.RemapAsPersistent(ctx, a); err != nil {
		return nil, err
	}

	v := a.Version().Next(s.user, s.clock())
	if err := s.store.Insert(ctx, a.Oid(), obj, v); err != nil {
		insertErr := storeError(err, "insert "+a.Oid().String())
		// The issued identity is spent; the group leaves the session.
		if rmErr := s.cache.RemoveAggregateGroup(ctx, a); rmErr != nil {
			return nil, errors.Join(insertErr, rmErr)
		}
		s.logger.WarnContext(ctx, "insert failed, object dropped from session",
			"session_id", s.id,
			"oid", a.Oid().String(),
			"error", err,
		)
		return nil, insertErr
	}
	s.setGroupVersion(a, v)

	s.logger.InfoContext(ctx, "object persisted",
		"session_id", s.id,
		"oid", a.Oid().String(),
		"version", v.String(),
	)
	return a.Oid(), nil
}

// Load returns the object stored under oid. An object already in the
// session is returned without touching the store.
func (s *Session) Load(ctx context.Context, oid *models.Oid) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a, ok := s.cache.GetAdapterForOid(oid); ok {
		return a.Object(), nil
	}
	rec, err := s.store.Load(ctx, oid)
	if err != nil {
		return nil, storeError(err, "load "+oid.String())
	}
	// Each session owns its handles; the caller's oid may belong to another.
	a, err := s.cache.RecreateRootAdapter(ctx, models.NewPersistentOid(rec.TypeName, rec.ID), rec.Object)
	if err != nil {
		return nil, err
	}
	if a.State() == models.StateGhost {
		if err := s.cache.MarkResolved(ctx, a); err != nil {
			return nil, err
		}
	}
	if err := s.materialize(ctx, a); err != nil {
		return nil, err
	}
	s.setGroupVersion(a, rec.Version)
	return a.Object(), nil
}

// Update writes obj back after an optimistic lock check against the
// stored version. The new version is shared by the whole aggregate group.
func (s *Session) Update(ctx context.Context, obj any) (*models.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.persistentAdapter(obj)
	if err != nil {
		return nil, err
	}
	current, err := s.store.Version(ctx, a.Oid())
	if err != nil {
		return nil, storeError(err, "read version of "+a.Oid().String())
	}
	if err := a.CheckLock(current); err != nil {
		return nil, err
	}
	next := a.Version().Next(s.user, s.clock())
	if err := s.store.Update(ctx, a.Oid(), obj, current, next); err != nil {
		return nil, storeError(err, "update "+a.Oid().String())
	}
	s.setGroupVersion(a, next)
	return next, nil
}

// Reissue moves obj to a fresh persistent identity. The adapter keeps its
// *Oid handle, which afterwards names the new identity and records the old
// one as previous.
func (s *Session) Reissue(ctx context.Context, obj any) (*models.Oid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.persistentAdapter(obj)
	if err != nil {
		return nil, err
	}
	next, err := s.generator.AsPersistent(ctx, a.Oid())
	if err != nil {
		return nil, err
	}
	if err := s.store.Rename(ctx, a.Oid(), next); err != nil {
		return nil, storeError(err, "rename "+a.Oid().String())
	}
	if err := s.cache.RemapUpdated(ctx, next); err != nil {
		return nil, err
	}
	return a.Oid(), nil
}

// Destroy deletes obj from the store, if it was ever stored, and drops its
// whole aggregate group from the session.
func (s *Session) Destroy(ctx context.Context, obj any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.adapter(obj)
	if err != nil {
		return err
	}
	if !a.IsTransient() {
		if err := s.store.Delete(ctx, a.Oid()); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return storeError(err, "delete "+a.Oid().String())
		}
	}
	return s.cache.RemoveAggregateGroup(ctx, a)
}

// Lookup returns obj's adapter without creating one.
func (s *Session) Lookup(obj any) (*models.Adapter, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.GetAdapterFor(obj)
}

func (s *Session) Snapshot() []service.AdapterView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Snapshot()
}

// Close forgets every adapter of the session.
func (s *Session) Close(ctx context.Context) {
	s.mu.Lock()
	s.cache.Reset(ctx)
	s.mu.Unlock()
	if s.onClose != nil {
		s.onClose(s.id)
	}
	s.logger.DebugContext(ctx, "session closed", "session_id", s.id)
}

func (s *Session) adapter(obj any) (*models.Adapter, error) {
	a, ok := s.cache.GetAdapterFor(obj)
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "object is not part of this session")
	}
	return a, nil
}

func (s *Session) persistentAdapter(obj any) (*models.Adapter, error) {
	a, err := s.adapter(obj)
	if err != nil {
		return nil, err
	}
	if a.IsTransient() {
		return nil, dErrors.New(dErrors.CodeConflict, "object is not persistent yet: "+a.Oid().String())
	}
	if a.IsAggregated() {
		return nil, dErrors.New(dErrors.CodeValidation, "aggregated objects are stored with their owner: "+a.Oid().String())
	}
	return a, nil
}

// materialize registers the aggregated collections reachable from root.
func (s *Session) materialize(ctx context.Context, root *models.Adapter) error {
	d, err := s.descriptors.Describe(reflect.TypeOf(root.Object()))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "describe "+root.String())
	}
	for _, m := range d.Collections {
		if !m.Aggregated || m.Get == nil {
			continue
		}
		v, err := m.Get(root.Object())
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "read member "+m.Name)
		}
		if isNil(v) {
			continue
		}
		if _, err := s.cache.AdapterForMember(ctx, v, root, ports.MemberContextOf(m)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) setGroupVersion(root *models.Adapter, v *models.Version) {
	root.SetVersion(v)
	for _, a := range s.cache.AggregateGroup(root) {
		cp := *v
		a.SetVersion(&cp)
	}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func storeError(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, msg)
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, msg)
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.Wrap(err, dErrors.CodeValidation, msg)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
