// Package factory provides the default adapter construction collaborator.
package factory

import (
	"reflect"

	"causeway/internal/objectcache/models"
	"causeway/internal/objectcache/ports"
)

var _ ports.AdapterFactory = Default{}

// Default builds plain models.Adapter values.
type Default struct{}

func (Default) NewAdapter(obj any, oid *models.Oid, state models.ResolveState) *models.Adapter {
	return models.NewAdapter(obj, oid, state)
}

func (Default) NewCollectionAdapter(obj any, oid *models.Oid, state models.ResolveState, elementType reflect.Type) *models.Adapter {
	return models.NewCollectionAdapter(obj, oid, state, elementType)
}
