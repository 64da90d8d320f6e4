package mathutil

import "math"

// EulerXYZ converts intrinsic X-then-Y-then-Z Euler angles (radians) to a
// quaternion (Euler order XYZ).
func EulerXYZ(rx, ry, rz float64) Quat {
	cx, sx := math.Cos(rx*0.5), math.Sin(rx*0.5)
	cy, sy := math.Cos(ry*0.5), math.Sin(ry*0.5)
	cz, sz := math.Cos(rz*0.5), math.Sin(rz*0.5)

	return Quat{
		sx*cy*cz + cx*sy*sz, // x
		cx*sy*cz - sx*cy*sz, // y
		cx*cy*sz + sx*sy*cz, // z
		cx*cy*cz - sx*sy*sz, // w
	}
}

// AxisAngle returns the rotation of angle radians around axis.
func AxisAngle(axis Vec3, angle float64) Quat {
	a := axis.Normalize()
	s := math.Sin(angle * 0.5)
	return Quat{a[0] * s, a[1] * s, a[2] * s, math.Cos(angle * 0.5)}
}

// Deg2Rad converts degrees to radians.
func Deg2Rad(d float64) float64 {
	return d * math.Pi / 180
}
