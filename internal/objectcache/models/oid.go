package models

import (
	"fmt"
	"strings"
)

// OidKey is the comparable form of an Oid's current content. The identity
// side of the cache is keyed by it, so it must be recomputed after every
// in-place mutation of the Oid.
type OidKey string

// Oid is a persistence identity.
//
// A root Oid names a type and a primary key and is either transient (not yet
// in the backing store) or persistent. An aggregated Oid names a member of
// an owning Oid; its transience is always read from the parent.
//
// *Oid is a shared handle. Promotion and update remaps mutate the value
// behind the handle so every holder observes the new identity; they never
// hand out a replacement.
type Oid struct {
	typeName  string
	key       string
	transient bool

	parent *Oid
	member string

	previous *Oid
}

// NewTransientOid builds a root identity that is not yet persisted.
func NewTransientOid(typeName, key string) *Oid {
	return &Oid{typeName: typeName, key: key, transient: true}
}

// NewPersistentOid builds a root identity read back from storage.
func NewPersistentOid(typeName, key string) *Oid {
	return &Oid{typeName: typeName, key: key}
}

// NewAggregateOid builds the identity of member within parent.
func NewAggregateOid(typeName string, parent *Oid, member string) *Oid {
	return &Oid{typeName: typeName, parent: parent, member: member}
}

func (o *Oid) TypeName() string { return o.typeName }

// ID returns the primary key payload. Aggregated oids have none.
func (o *Oid) ID() string { return o.key }

func (o *Oid) Parent() *Oid { return o.parent }

func (o *Oid) Member() string { return o.member }

// Previous returns the identity this oid supersedes, if any.
func (o *Oid) Previous() *Oid { return o.previous }

func (o *Oid) IsAggregated() bool { return o.parent != nil }

func (o *Oid) IsTransient() bool {
	if o.parent != nil {
		return o.parent.IsTransient()
	}
	return o.transient
}

// Root follows parent links to the owning root identity.
func (o *Oid) Root() *Oid {
	root := o
	for root.parent != nil {
		root = root.parent
	}
	return root
}

// Key derives the index key from the oid's current content.
func (o *Oid) Key() OidKey {
	if o.parent != nil {
		return o.parent.Key() + "~" + OidKey(o.member)
	}
	prefix := "P"
	if o.transient {
		prefix = "T"
	}
	return OidKey(prefix + ":" + o.typeName + ":" + o.key)
}

func (o *Oid) String() string {
	if o == nil {
		return "<nil>"
	}
	return string(o.Key())
}

// Equal compares current content, not handles.
func (o *Oid) Equal(other *Oid) bool {
	if o == nil || other == nil {
		return o == other
	}
	return o.Key() == other.Key()
}

// WithPrevious records the identity o supersedes and returns o.
func (o *Oid) WithPrevious(previous *Oid) *Oid {
	o.previous = previous
	return o
}

// Clone returns a detached copy. The parent handle is shared.
func (o *Oid) Clone() *Oid {
	c := *o
	return &c
}

// MakePersistent converts a transient root oid in place.
func (o *Oid) MakePersistent(key string) error {
	if o.parent != nil {
		return fmt.Errorf("make persistent %s: %w", o, ErrAggregatedOid)
	}
	if !o.transient {
		return fmt.Errorf("make persistent %s: %w", o, ErrNotTransient)
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("make persistent %s: empty key", o)
	}
	o.key = key
	o.transient = false
	return nil
}

// Rebind points an aggregated oid at parent. Used after the owner's
// identity has been replaced by an equal-valued handle.
func (o *Oid) Rebind(parent *Oid) error {
	if o.parent == nil {
		return fmt.Errorf("rebind %s: not aggregated", o)
	}
	o.parent = parent
	return nil
}

// CopyFrom overwrites o's content with other's. The superseded content is
// kept as o's previous identity.
func (o *Oid) CopyFrom(other *Oid) {
	old := o.Clone()
	old.previous = nil
	o.typeName = other.typeName
	o.key = other.key
	o.transient = other.transient
	o.parent = other.parent
	o.member = other.member
	o.previous = old
}

// Restore puts back content captured earlier with Clone, previous identity
// included. It undoes an in-place mutation that could not be completed.
func (o *Oid) Restore(snapshot *Oid) {
	*o = *snapshot
}
