// Package store provides an in-memory ObjectStore. It keeps object
// references, not copies, and exists for tests and single-process use;
// relational mapping of domain objects is not provided.
package store

import (
	"context"
	"fmt"
	"sync"

	"causeway/internal/objectcache/models"
	"causeway/pkg/platform/sentinel"
)

// Record is one stored root object with its version.
type Record struct {
	TypeName string
	ID       string
	Object   any
	Version  *models.Version
}

// InMemory is safe for concurrent use by many sessions.
type InMemory struct {
	mu      sync.RWMutex
	records map[models.OidKey]Record
}

func NewInMemory() *InMemory {
	return &InMemory{records: make(map[models.OidKey]Record)}
}

func storeKey(oid *models.Oid) (models.OidKey, error) {
	if oid == nil || oid.IsAggregated() || oid.IsTransient() {
		return "", fmt.Errorf("store key for %s: persistent root oid required: %w", oid, sentinel.ErrInvalidState)
	}
	return oid.Key(), nil
}

// Insert stores a new root object.
func (s *InMemory) Insert(_ context.Context, oid *models.Oid, obj any, v *models.Version) error {
	k, err := storeKey(oid)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[k]; exists {
		return fmt.Errorf("insert %s: %w", oid, sentinel.ErrConflict)
	}
	s.records[k] = Record{TypeName: oid.TypeName(), ID: oid.ID(), Object: obj, Version: v}
	return nil
}

func (s *InMemory) Load(_ context.Context, oid *models.Oid) (Record, error) {
	k, err := storeKey(oid)
	if err != nil {
		return Record{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[k]
	if !ok {
		return Record{}, fmt.Errorf("load %s: %w", oid, sentinel.ErrNotFound)
	}
	return r, nil
}

// Version returns the stored version of oid.
func (s *InMemory) Version(ctx context.Context, oid *models.Oid) (*models.Version, error) {
	r, err := s.Load(ctx, oid)
	if err != nil {
		return nil, err
	}
	return r.Version, nil
}

// Update replaces the stored object when the stored version is still
// expected. Otherwise nothing is written and ErrConflict is returned.
func (s *InMemory) Update(_ context.Context, oid *models.Oid, obj any, expected, next *models.Version) error {
	k, err := storeKey(oid)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[k]
	if !ok {
		return fmt.Errorf("update %s: %w", oid, sentinel.ErrNotFound)
	}
	if r.Version.Different(expected) {
		return fmt.Errorf("update %s: stored %s, expected %s: %w", oid, r.Version, expected, sentinel.ErrConflict)
	}
	r.Object = obj
	r.Version = next
	s.records[k] = r
	return nil
}

// Rename moves the record stored under from to to.
func (s *InMemory) Rename(_ context.Context, from, to *models.Oid) error {
	fk, err := storeKey(from)
	if err != nil {
		return err
	}
	tk, err := storeKey(to)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[fk]
	if !ok {
		return fmt.Errorf("rename %s: %w", from, sentinel.ErrNotFound)
	}
	if _, taken := s.records[tk]; taken {
		return fmt.Errorf("rename %s to %s: %w", from, to, sentinel.ErrConflict)
	}
	delete(s.records, fk)
	r.TypeName, r.ID = to.TypeName(), to.ID()
	s.records[tk] = r
	return nil
}

func (s *InMemory) Delete(_ context.Context, oid *models.Oid) error {
	k, err := storeKey(oid)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[k]; !ok {
		return fmt.Errorf("delete %s: %w", oid, sentinel.ErrNotFound)
	}
	delete(s.records, k)
	return nil
}

func (s *InMemory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
