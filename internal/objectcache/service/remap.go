package service

import (
	"context"
	"errors"

	"causeway/internal/objectcache/index"
	"causeway/internal/objectcache/models"
	dErrors "causeway/pkg/domain-errors"
)

// RemapUpdated moves the adapter known by newOid.Previous() onto newOid.
//
// The adapter keeps its *Oid handle; newOid's content is copied into it, so
// holders of the handle observe the superseding identity. Aggregates under
// the adapter are re-indexed with it. When no adapter is known by the
// previous identity the remap is logged and skipped, unless the cache was
// built with WithStrictRemap.
func (c *Cache) RemapUpdated(ctx context.Context, newOid *models.Oid) error {
	if newOid == nil || newOid.Previous() == nil {
		return dErrors.New(dErrors.CodeValidation, "superseding oid must reference the oid it replaces")
	}
	previous := newOid.Previous()

	a, ok := c.index.ByOid(previous)
	if !ok {
		if c.strictRemap {
			return dErrors.New(dErrors.CodeNotFound, "no adapter for superseded oid "+previous.String())
		}
		if c.metrics != nil {
			c.metrics.IncrementPartialRemap("update")
		}
		c.logger.WarnContext(ctx, "no adapter for superseded oid",
			"previous_oid", previous.String(),
			"oid", newOid.String(),
		)
		return nil
	}
	if err := c.verify(ctx, "update", a); err != nil {
		return err
	}
	if other, taken := c.index.ByOid(newOid); taken && other != a {
		return dErrors.New(dErrors.CodeConflict, "superseding oid "+newOid.String()+" already held by "+other.String())
	}

	group := c.AggregateGroup(a)
	members := append([]*models.Adapter{a}, group...)
	if _, err := c.index.RekeyOids(members, func() error {
		a.Oid().CopyFrom(newOid)
		return nil
	}); err != nil {
		if errors.Is(err, index.ErrOccupied) {
			return dErrors.Wrap(err, dErrors.CodeConflict, "remap "+previous.String())
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "remap "+previous.String())
	}

	if c.metrics != nil {
		c.metrics.IncrementUpdateRemap()
	}
	c.logger.InfoContext(ctx, "adapter remapped",
		"oid", a.Oid().String(),
		"previous_oid", previous.String(),
		"aggregates", len(group),
	)
	return nil
}

// RemoveAggregateGroup removes root and every aggregated adapter
// materialized under it. Use it where RemoveAdapter's non-cascading removal
// would leave aggregates behind.
func (c *Cache) RemoveAggregateGroup(ctx context.Context, root *models.Adapter) error {
	if root == nil || root.Oid() == nil {
		return dErrors.New(dErrors.CodeValidation, "root adapter with identity is required")
	}
	if err := c.verify(ctx, "remove_group", root); err != nil {
		return err
	}
	group := c.AggregateGroup(root)
	for _, a := range group {
		if err := c.verify(ctx, "remove_group", a); err != nil {
			return err
		}
	}
	for _, a := range group {
		c.index.Remove(a)
	}
	c.index.Remove(root)
	if c.metrics != nil {
		c.metrics.AddRemoved(len(group) + 1)
	}
	c.logger.DebugContext(ctx, "aggregate group removed",
		"oid", root.Oid().String(),
		"aggregates", len(group),
	)
	return nil
}
