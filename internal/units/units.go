// Package units converts raw room-planner numbers (millimeters, degrees,
// depth-mirrored handedness) into the canonical frame: meters, radians,
// Y-up with the depth axis flipped.
package units

import (
	"vpc-scene/internal/mathutil"
)

// MMPerMeter is the source linear unit ratio.
const MMPerMeter = 1000.0

// Axes holds optional per-axis source values. A nil component is missing.
type Axes struct {
	X *float64 `json:"x,omitempty"`
	Y *float64 `json:"y,omitempty"`
	Z *float64 `json:"z,omitempty"`
}

// QuatFields holds optional quaternion components in source handedness.
type QuatFields struct {
	X *float64 `json:"x,omitempty"`
	Y *float64 `json:"y,omitempty"`
	Z *float64 `json:"z,omitempty"`
	W *float64 `json:"w,omitempty"`
}

// MMToM converts millimeters to meters.
func MMToM(mm float64) float64 {
	return mm / MMPerMeter
}

// Position converts a millimeter position to canonical meters. Z is negated
// after the unit conversion; missing axes are 0.
func Position(p Axes) mathutil.Vec3 {
	return mathutil.Vec3{
		MMToM(value(p.X, 0)),
		MMToM(value(p.Y, 0)),
		-MMToM(value(p.Z, 0)),
	}
}

// Rotation converts a source quaternion to canonical handedness by negating
// its Z component. Missing components default to identity (W=1).
func Rotation(r QuatFields) mathutil.Quat {
	return mathutil.Quat{
		value(r.X, 0),
		value(r.Y, 0),
		-value(r.Z, 0),
		value(r.W, 1),
	}
}

// EulerDegrees converts per-axis template degrees to a canonical quaternion.
// The depth axis angle is negated before conversion so it agrees with
// Rotation.
func EulerDegrees(r Axes) mathutil.Quat {
	return mathutil.EulerXYZ(
		mathutil.Deg2Rad(value(r.X, 0)),
		mathutil.Deg2Rad(value(r.Y, 0)),
		-mathutil.Deg2Rad(value(r.Z, 0)),
	)
}

// Scale converts per-axis multipliers. Missing or zero components are 1.
func Scale(s Axes) mathutil.Vec3 {
	return mathutil.Vec3{nonZero(s.X), nonZero(s.Y), nonZero(s.Z)}
}

// Float returns a pointer to v, for building Axes literals.
func Float(v float64) *float64 {
	return &v
}

func value(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func nonZero(p *float64) float64 {
	if p == nil || *p == 0 {
		return 1
	}
	return *p
}
