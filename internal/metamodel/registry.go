// Package metamodel answers the object cache's questions about runtime
// types: value or entity, aggregated or root, and which members hold
// collections.
//
// Types are described either explicitly through Register, or derived on
// first use:
//
//   - scalars, strings and non-pointer structs are value types
//   - pointers to structs are root entities named after the struct
//   - pointers to slices, and maps, are collections of their element type
//
// Collection members of an entity are discovered from struct tags:
//
//	type Customer struct {
//		Orders *[]*Order         `causeway:"collection,aggregated"`
//		Tags   map[string]string `causeway:"collection"`
//	}
package metamodel

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"causeway/internal/objectcache/ports"
)

var _ ports.TypeDescriptors = (*Registry)(nil)

const tagName = "causeway"

var (
	// ErrNilType is returned when a nil reflect.Type is provided.
	ErrNilType = errors.New("metamodel: nil type")
	// ErrConflictingRegistration indicates a type registered twice with
	// different descriptors, or two types sharing a name.
	ErrConflictingRegistration = errors.New("metamodel: conflicting registration")
	// ErrInvalidMember is returned for tagged members the cache cannot read.
	ErrInvalidMember = errors.New("metamodel: invalid collection member")
)

var timeType = reflect.TypeOf(time.Time{})

// TypeOption adjusts a descriptor at registration.
type TypeOption func(*ports.Descriptor)

// WithName overrides the oid type name.
func WithName(name string) TypeOption {
	return func(d *ports.Descriptor) { d.Name = name }
}

func AsValue() TypeOption {
	return func(d *ports.Descriptor) { d.Value = true }
}

func AsStandalone() TypeOption {
	return func(d *ports.Descriptor) { d.Standalone = true }
}

func AsAggregated() TypeOption {
	return func(d *ports.Descriptor) { d.Aggregated = true }
}

// Registry is safe for concurrent use. Lookups of already described types
// take no lock.
type Registry struct {
	mu    sync.Mutex
	types sync.Map // map[reflect.Type]ports.Descriptor
	names map[string]reflect.Type
}

func NewRegistry() *Registry {
	return &Registry{names: make(map[string]reflect.Type)}
}

// Register describes the dynamic type of sample. Re-registering the same
// type with the same name is a no-op.
func (r *Registry) Register(sample any, opts ...TypeOption) error {
	t := reflect.TypeOf(sample)
	if t == nil {
		return ErrNilType
	}
	d, err := derive(t)
	if err != nil {
		return err
	}
	for _, opt := range opts {
		opt(&d)
	}
	return r.store(t, d, true)
}

// Describe implements ports.TypeDescriptors.
func (r *Registry) Describe(t reflect.Type) (ports.Descriptor, error) {
	if t == nil {
		return ports.Descriptor{}, ErrNilType
	}
	if v, ok := r.types.Load(t); ok {
		return v.(ports.Descriptor), nil
	}
	d, err := derive(t)
	if err != nil {
		return ports.Descriptor{}, err
	}
	if err := r.store(t, d, false); err != nil {
		return ports.Descriptor{}, err
	}
	v, _ := r.types.Load(t)
	return v.(ports.Descriptor), nil
}

// Names returns the registered type names, for diagnostics.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.names))
	for n := range r.names {
		names = append(names, n)
	}
	return names
}

func (r *Registry) store(t reflect.Type, d ports.Descriptor, explicit bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.types.Load(t); ok {
		if !explicit || old.(ports.Descriptor).Name == d.Name {
			return nil
		}
		return fmt.Errorf("%s registered as %q: %w", t, old.(ports.Descriptor).Name, ErrConflictingRegistration)
	}
	if d.Name != "" && !d.Value {
		if other, taken := r.names[d.Name]; taken && other != t {
			return fmt.Errorf("name %q used by %s and %s: %w", d.Name, other, t, ErrConflictingRegistration)
		}
		r.names[d.Name] = t
	}
	r.types.Store(t, d)
	return nil
}

func derive(t reflect.Type) (ports.Descriptor, error) {
	switch t.Kind() {
	case reflect.Pointer:
		elem := t.Elem()
		switch elem.Kind() {
		case reflect.Struct:
			if elem == timeType {
				return ports.Descriptor{Name: elem.String(), Value: true}, nil
			}
			members, err := collectionMembers(elem)
			if err != nil {
				return ports.Descriptor{}, err
			}
			return ports.Descriptor{Name: elem.Name(), Collections: members}, nil
		case reflect.Slice, reflect.Array:
			return ports.Descriptor{Name: typeName(elem), ElementType: elem.Elem()}, nil
		case reflect.Map:
			return ports.Descriptor{Name: typeName(elem), ElementType: elem.Elem()}, nil
		}
		return ports.Descriptor{Name: typeName(elem), Value: true}, nil
	case reflect.Map:
		return ports.Descriptor{Name: typeName(t), ElementType: t.Elem()}, nil
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.UnsafePointer:
		return ports.Descriptor{Name: typeName(t), Standalone: true}, nil
	}
	return ports.Descriptor{Name: typeName(t), Value: true}, nil
}

func typeName(t reflect.Type) string {
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}

func collectionMembers(st reflect.Type) ([]ports.Member, error) {
	var members []ports.Member
	for i := range st.NumField() {
		f := st.Field(i)
		tag, ok := f.Tag.Lookup(tagName)
		if !ok {
			continue
		}
		flags := strings.Split(tag, ",")
		if flags[0] != "collection" {
			continue
		}
		if !f.IsExported() {
			return nil, fmt.Errorf("%s.%s is unexported: %w", st.Name(), f.Name, ErrInvalidMember)
		}
		elem, err := elementOf(f.Type)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", st.Name(), f.Name, err)
		}
		members = append(members, ports.Member{
			Name:        memberName(f),
			Aggregated:  hasFlag(flags[1:], "aggregated"),
			ElementType: elem,
			Get:         fieldGetter(f.Index),
		})
	}
	return members, nil
}

func elementOf(t reflect.Type) (reflect.Type, error) {
	switch t.Kind() {
	case reflect.Map:
		return t.Elem(), nil
	case reflect.Pointer:
		if k := t.Elem().Kind(); k == reflect.Slice || k == reflect.Array || k == reflect.Map {
			return t.Elem().Elem(), nil
		}
	}
	return nil, fmt.Errorf("%s has no reference identity: %w", t, ErrInvalidMember)
}

func memberName(f reflect.StructField) string {
	return strings.ToLower(f.Name[:1]) + f.Name[1:]
}

func hasFlag(flags []string, want string) bool {
	for _, f := range flags {
		if strings.TrimSpace(f) == want {
			return true
		}
	}
	return false
}

func fieldGetter(index []int) func(owner any) (any, error) {
	return func(owner any) (any, error) {
		v := reflect.ValueOf(owner)
		if v.Kind() != reflect.Pointer || v.IsNil() {
			return nil, fmt.Errorf("owner %T is not a non-nil pointer: %w", owner, ErrInvalidMember)
		}
		return v.Elem().FieldByIndex(index).Interface(), nil
	}
}
