// Package placement turns configuration entities into positioned
// instances. Placement runs in two phases: Resolve computes the analytic
// transform, and SnapToGround corrects floor-attached instances once their
// asset bounds are known.
package placement

import (
	"context"
	"fmt"

	"vpc-scene/internal/catalog"
	"vpc-scene/internal/compose"
	"vpc-scene/internal/ctxlog"
	"vpc-scene/internal/mathutil"
	"vpc-scene/internal/vpc"
)

// DefaultGroundEpsilon is the tolerance below the ground plane, in meters.
const DefaultGroundEpsilon = 1e-4

// Instance is one resolved placement handed to the scene builder.
type Instance struct {
	EntityID   string
	CatalogRef string
	ParentID   string
	Transform  mathutil.Transform
	// AssetURI is empty for placeholder instances.
	AssetURI      string
	FloorAttached bool
}

// Placeholder reports whether the instance has no visual.
func (i Instance) Placeholder() bool {
	return i.AssetURI == ""
}

// UnresolvedReferenceError reports an entity whose catalog reference is
// absent from the catalog. It is a warning, never fatal.
type UnresolvedReferenceError struct {
	EntityID string
	Ref      string
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("placement: entity %s: reference %q not found in catalog", e.EntityID, e.Ref)
}

// Resolve computes an instance for every entity that references a known
// product, in configuration order. Unknown references are skipped and
// returned as warnings, except for room shell entities, which the catalog
// need not list.
func Resolve(ctx context.Context, entities []vpc.Entity, cat *catalog.Catalog) ([]Instance, []error) {
	log := ctxlog.FromContext(ctx)

	var (
		out      []Instance
		warnings []error
	)
	for _, e := range entities {
		if !e.HasRef() {
			continue
		}
		p, ok := cat.Get(e.CatalogRef)
		if !ok && e.Shell() {
			log.Debug("room shell entity, left to the room builder", "entity", e.ID, "ref", e.CatalogRef)
			continue
		}
		if !ok {
			log.Warn("reference not found in catalog", "entity", e.ID, "ref", e.CatalogRef)
			warnings = append(warnings, &UnresolvedReferenceError{EntityID: e.ID, Ref: e.CatalogRef})
			continue
		}
		if !p.HasAsset() {
			log.Debug("product has no model, keeping a placeholder", "entity", e.ID, "ref", e.CatalogRef, "assembly", p.Assembly)
		}
		out = append(out, Instance{
			EntityID:      e.ID,
			CatalogRef:    e.CatalogRef,
			ParentID:      e.ParentID,
			Transform:     compose.Compose(e, p),
			AssetURI:      p.AssetURI,
			FloorAttached: e.FloorAttached,
		})
	}
	log.Debug("resolved placements", "entities", len(entities), "instances", len(out), "warnings", len(warnings))
	return out, warnings
}

// SnapToGround returns base lifted so that local, transformed by it, does
// not sink below the ground plane by more than eps. Only floor-attached
// instances move, and only upward. The result depends on base alone, so
// calling it again with the same base gives the same transform.
func SnapToGround(base mathutil.Transform, local mathutil.Box3, floorAttached bool, eps float64) mathutil.Transform {
	if !floorAttached || local.IsEmpty() {
		return base
	}
	world := local.MulMat4(base.Matrix())
	if minY := world.Min[mathutil.AxisY]; minY < -eps {
		base.Position[mathutil.AxisY] -= minY
	}
	return base
}
