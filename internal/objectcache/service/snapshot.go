package service

import (
	"fmt"
	"slices"
	"strings"

	"causeway/internal/objectcache/models"
)

// AdapterView is a read-only rendering of one indexed adapter.
type AdapterView struct {
	Oid        string `json:"oid"`
	Type       string `json:"type"`
	State      string `json:"state"`
	Transient  bool   `json:"transient"`
	Aggregated bool   `json:"aggregated"`
	Parent     string `json:"parent,omitempty"`
	Member     string `json:"member,omitempty"`
	Previous   string `json:"previous,omitempty"`
	Version    string `json:"version,omitempty"`
	Object     string `json:"object"`
}

func viewOf(a *models.Adapter) AdapterView {
	oid := a.Oid()
	v := AdapterView{
		Oid:        oid.String(),
		Type:       oid.TypeName(),
		State:      a.State().String(),
		Transient:  oid.IsTransient(),
		Aggregated: oid.IsAggregated(),
		Member:     oid.Member(),
		Object:     fmt.Sprintf("%T", a.Object()),
	}
	if p := oid.Parent(); p != nil {
		v.Parent = p.String()
	}
	if p := oid.Previous(); p != nil {
		v.Previous = p.String()
	}
	if ver := a.Version(); ver != nil {
		v.Version = ver.String()
	}
	return v
}

// Snapshot renders every indexed adapter, ordered by oid.
func (c *Cache) Snapshot() []AdapterView {
	views := make([]AdapterView, 0, c.index.Len())
	for a := range c.index.All() {
		views = append(views, viewOf(a))
	}
	slices.SortFunc(views, func(x, y AdapterView) int {
		return strings.Compare(x.Oid, y.Oid)
	})
	return views
}
