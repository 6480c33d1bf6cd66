// Package inject supplies registered services to domain objects as they
// enter an object cache.
//
// A field receives a service when it is exported, tagged `inject:""` and
// nil, and exactly one registered service is assignable to its type:
//
//	type Customer struct {
//		Clock Clock `inject:""`
//	}
package inject

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"causeway/internal/objectcache/ports"
)

var _ ports.Injector = (*Services)(nil)

var (
	// ErrNoService is returned when no registered service fits a tagged field.
	ErrNoService = errors.New("inject: no service for field")
	// ErrAmbiguousService is returned when several registered services fit.
	ErrAmbiguousService = errors.New("inject: ambiguous service for field")
)

// Services is safe for concurrent use once registration is complete.
type Services struct {
	mu       sync.RWMutex
	services []reflect.Value
	plans    sync.Map // map[reflect.Type][]int of injectable field indices
}

func New(services ...any) *Services {
	s := &Services{}
	for _, svc := range services {
		s.Register(svc)
	}
	return s
}

// Register adds svc to the candidates for injection. Nil is ignored.
func (s *Services) Register(svc any) {
	if svc == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.services = append(s.services, reflect.ValueOf(svc))
}

// Inject fills the tagged nil fields of obj. Objects that are not pointers
// to structs are left alone. Nothing is assigned unless every field
// resolves.
func (s *Services) Inject(ctx context.Context, obj any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v := reflect.ValueOf(obj)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return nil
	}
	elem := v.Elem()
	type assignment struct {
		field reflect.Value
		svc   reflect.Value
	}
	var pending []assignment
	for _, i := range s.plan(elem.Type()) {
		field := elem.Field(i)
		if !field.IsZero() {
			continue
		}
		svc, err := s.lookup(field.Type())
		if err != nil {
			return fmt.Errorf("%s.%s: %w", elem.Type().Name(), elem.Type().Field(i).Name, err)
		}
		pending = append(pending, assignment{field: field, svc: svc})
	}
	for _, a := range pending {
		a.field.Set(a.svc)
	}
	return nil
}

func (s *Services) plan(t reflect.Type) []int {
	if p, ok := s.plans.Load(t); ok {
		return p.([]int)
	}
	var fields []int
	for i := range t.NumField() {
		f := t.Field(i)
		if _, ok := f.Tag.Lookup("inject"); ok && f.IsExported() {
			fields = append(fields, i)
		}
	}
	s.plans.Store(t, fields)
	return fields
}

func (s *Services) lookup(t reflect.Type) (reflect.Value, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found reflect.Value
	for _, svc := range s.services {
		if !svc.Type().AssignableTo(t) {
			continue
		}
		if found.IsValid() {
			return reflect.Value{}, fmt.Errorf("%s: %w", t, ErrAmbiguousService)
		}
		found = svc
	}
	if !found.IsValid() {
		return reflect.Value{}, fmt.Errorf("%s: %w", t, ErrNoService)
	}
	return found, nil
}

// Noop injects nothing.
type Noop struct{}

func (Noop) Inject(context.Context, any) error { return nil }
