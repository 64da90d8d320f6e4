// Package compose combines an entity's world placement with its catalog
// product's local model offset.
package compose

import (
	"math"

	"vpc-scene/internal/catalog"
	"vpc-scene/internal/mathutil"
	"vpc-scene/internal/units"
	"vpc-scene/internal/vpc"
)

// Local converts a product's template offset into canonical local
// position, rotation and scale, applying the height anchoring rule.
// A nil product yields the identity offset.
func Local(p *catalog.Product) mathutil.Transform {
	if p == nil {
		return mathutil.IdentityTransform()
	}
	local := mathutil.Transform{
		Position: units.Position(p.Offset.P),
		Rotation: units.EulerDegrees(p.Offset.R),
		Scale:    units.Scale(p.Offset.S),
	}
	// World positions are product centers; drop free-standing products onto their base.
	if p.Mount != catalog.WallMounted && p.Offset.P.Y == nil {
		if h := p.HeightMM(); h != nil && !math.IsNaN(*h) && !math.IsInf(*h, 0) {
			local.Position[mathutil.AxisY] -= *h / 2000
		}
	}
	return local
}

// Compose returns the renderer transform for one entity/product pair.
// The local offset is rotated into the entity's world frame and the world
// rotation is applied before the local one. The result depends only on
// its inputs.
func Compose(e vpc.Entity, p *catalog.Product) mathutil.Transform {
	worldPos := e.World.Position
	worldQuat := e.World.Rotation.Normalize()
	local := Local(p)

	return mathutil.Transform{
		Position: worldPos.Add(worldQuat.Rotate(local.Position)),
		Rotation: worldQuat.Mul(local.Rotation).Normalize(),
		Scale:    local.Scale,
	}
}
