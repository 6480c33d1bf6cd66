package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"causeway/internal/objectcache/index"
	"causeway/internal/objectcache/models"
	dErrors "causeway/pkg/domain-errors"
)

// AggregateGroup returns the materialized aggregated adapters whose oid
// descends from root's, in no particular order. Oids are compared by
// content so aggregates bound to an equal but distinct parent handle are
// found too.
func (c *Cache) AggregateGroup(root *models.Adapter) []*models.Adapter {
	if root == nil || root.Oid() == nil {
		return nil
	}
	rootKey := root.Oid().Key()
	var group []*models.Adapter
	for a := range c.index.All() {
		if a == root || !a.IsAggregated() {
			continue
		}
		for p := a.Oid().Parent(); p != nil; p = p.Parent() {
			if p.Key() == rootKey {
				group = append(group, a)
				break
			}
		}
	}
	return group
}

// RemapAsPersistent promotes a transient root adapter and every aggregated
// adapter already materialized under it to persistent identity.
//
// The root's oid is converted in place by the generator, so every holder of
// that *Oid sees the persistent identity. Aggregated oids are re-bound to the
// root handle and re-indexed under their new keys. An aggregate whose
// collection instance the owner has since replaced is moved to the instance
// the owner now holds. The root ends Resolved.
//
// A missing identity entry for the root is logged and tolerated unless the
// cache was built with WithStrictRemap.
func (c *Cache) RemapAsPersistent(ctx context.Context, root *models.Adapter) (err error) {
	if root == nil || root.Oid() == nil {
		return dErrors.New(dErrors.CodeValidation, "root adapter with identity is required")
	}
	if root.IsAggregated() {
		return dErrors.Wrap(models.ErrAggregatedOid, dErrors.CodeValidation, "cannot promote aggregated "+root.String())
	}
	if root.State() != models.StateTransient || !root.Oid().IsTransient() {
		return dErrors.Wrap(models.ErrNotTransient, dErrors.CodeValidation, "only transient roots can be promoted: "+root.String())
	}

	ctx, span := c.tracer.Start(ctx, "objectcache.remap_as_persistent",
		trace.WithAttributes(attribute.String("oid.type", root.Oid().TypeName())))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "promotion failed")
		}
		span.End()
	}()
	start := time.Now()

	oidMissing, err := c.index.Check(root)
	if err != nil {
		return c.consistencyError(ctx, "promote", root, err)
	}
	if oidMissing && c.strictRemap {
		return c.consistencyError(ctx, "promote", root, c.index.Verify(root))
	}

	group := c.AggregateGroup(root)
	for _, a := range group {
		if err := c.index.Verify(a); err != nil {
			return c.consistencyError(ctx, "promote", a, err)
		}
	}

	transientOid := root.Oid().String()
	members := append([]*models.Adapter{root}, group...)
	missing, err := c.index.RekeyOids(members, func() error {
		for _, a := range group {
			if parent := a.Oid().Parent(); parent != root.Oid() && parent.Key() == root.Oid().Key() {
				if err := a.Oid().Rebind(root.Oid()); err != nil {
					return err
				}
			}
		}
		return c.generator.ConvertTransientToPersistent(ctx, root.Oid())
	})
	if err != nil {
		if errors.Is(err, index.ErrOccupied) {
			c.logger.WarnContext(ctx, "persistent identity already taken",
				"oid", transientOid,
				"error", err,
			)
			return dErrors.Wrap(err, dErrors.CodeConflict, "promote "+transientOid)
		}
		return collaboratorError(err, "promote "+transientOid)
	}
	for _, a := range missing {
		c.partialRemap(ctx, "promote", a, transientOid)
	}

	if err := c.repairCollections(ctx, root, group); err != nil {
		return err
	}

	for _, a := range group {
		if a.State() == models.StateTransient {
			if err := a.ChangeState(models.StateResolved); err != nil {
				return err
			}
		}
	}
	if err := root.ChangeState(models.StateResolved); err != nil {
		return err
	}

	if c.metrics != nil {
		c.metrics.ObservePromotion(start)
	}
	span.SetAttributes(
		attribute.String("oid.persistent", root.Oid().String()),
		attribute.Int("group.aggregates", len(group)),
	)
	c.logger.InfoContext(ctx, "adapter promoted",
		"oid", root.Oid().String(),
		"transient_oid", transientOid,
		"aggregates", len(group),
	)
	return nil
}

// repairCollections points each direct aggregate of root at the collection
// instance root holds now. Object keys are by reference, so an aggregate
// still keyed by a replaced instance would never be found again.
func (c *Cache) repairCollections(ctx context.Context, root *models.Adapter, group []*models.Adapter) error {
	if len(group) == 0 {
		return nil
	}
	d, err := c.describe(root.Object())
	if err != nil {
		return err
	}
	for _, a := range group {
		if a.Oid().Parent() != root.Oid() {
			continue
		}
		m, ok := d.Collection(a.Oid().Member())
		if !ok || m.Get == nil {
			continue
		}
		current, err := m.Get(root.Object())
		if err != nil {
			c.logger.WarnContext(ctx, "cannot read aggregated member",
				"oid", a.Oid().String(),
				"member", m.Name,
				"error", err,
			)
			continue
		}
		if !index.Referenceable(current) || sameInstance(current, a.Object()) {
			continue
		}
		if err := c.index.RekeyObject(a, current); err != nil {
			return c.consistencyError(ctx, "promote", a, err)
		}
		c.logger.DebugContext(ctx, "aggregated collection instance replaced",
			"oid", a.Oid().String(),
			"member", m.Name,
		)
	}
	return nil
}

func (c *Cache) partialRemap(ctx context.Context, operation string, a *models.Adapter, previous string) {
	if c.metrics != nil {
		c.metrics.IncrementPartialRemap(operation)
	}
	c.logger.WarnContext(ctx, "identity entry missing during remap",
		"operation", operation,
		"oid", a.Oid().String(),
		"previous_oid", previous,
	)
}

func sameInstance(a, b any) bool {
	ka, errA := index.KeyOf(a)
	kb, errB := index.KeyOf(b)
	return errA == nil && errB == nil && ka == kb
}
