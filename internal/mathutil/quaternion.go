package mathutil

import "math"

// Quat represents a quaternion (x, y, z, w).
type Quat [4]float64

// QuatIdentity returns the identity rotation.
func QuatIdentity() Quat {
	return Quat{0, 0, 0, 1}
}

// Mul returns the Hamilton product q × r: r is applied first, then q.
func (q Quat) Mul(r Quat) Quat {
	ax, ay, az, aw := q[0], q[1], q[2], q[3]
	bx, by, bz, bw := r[0], r[1], r[2], r[3]
	return Quat{
		ax*bw + aw*bx + ay*bz - az*by,
		ay*bw + aw*by + az*bx - ax*bz,
		az*bw + aw*bz + ax*by - ay*bx,
		aw*bw - ax*bx - ay*by - az*bz,
	}
}

func (q Quat) Len() float64 {
	return math.Sqrt(q[0]*q[0] + q[1]*q[1] + q[2]*q[2] + q[3]*q[3])
}

// Normalize returns q scaled to unit length. A degenerate quaternion
// (zero or non-finite length) normalizes to identity.
func (q Quat) Normalize() Quat {
	l := q.Len()
	if l < 1e-12 || math.IsNaN(l) || math.IsInf(l, 0) {
		return QuatIdentity()
	}
	inv := 1 / l
	return Quat{q[0] * inv, q[1] * inv, q[2] * inv, q[3] * inv}
}

func (q Quat) Conjugate() Quat {
	return Quat{-q[0], -q[1], -q[2], q[3]}
}

// Rotate applies the rotation q to v. q is expected to be unit length.
func (q Quat) Rotate(v Vec3) Vec3 {
	// t = 2 * cross(q.xyz, v); v' = v + w*t + cross(q.xyz, t)
	u := Vec3{q[0], q[1], q[2]}
	t := u.Cross(v).Scale(2)
	return v.Add(t.Scale(q[3])).Add(u.Cross(t))
}

// QuatToMat3 converts a quaternion to a 3×3 rotation matrix.
func QuatToMat3(q Quat) Mat3 {
	x, y, z, w := q[0], q[1], q[2], q[3]
	xx, yy, zz := x*x, y*y, z*z
	xy, xz, yz := x*y, x*z, y*z
	wx, wy, wz := w*x, w*y, w*z

	return Mat3{
		1 - 2*(yy+zz), 2 * (xy - wz), 2 * (xz + wy),
		2 * (xy + wz), 1 - 2*(xx+zz), 2 * (yz - wx),
		2 * (xz - wy), 2 * (yz + wx), 1 - 2*(xx+yy),
	}
}

// Mat3ToQuat converts a pure rotation matrix to a unit quaternion.
func Mat3ToQuat(m Mat3) Quat {
	m11, m12, m13 := m[0], m[1], m[2]
	m21, m22, m23 := m[3], m[4], m[5]
	m31, m32, m33 := m[6], m[7], m[8]

	var q Quat
	switch trace := m11 + m22 + m33; {
	case trace > 0:
		s := 0.5 / math.Sqrt(trace+1)
		q = Quat{(m32 - m23) * s, (m13 - m31) * s, (m21 - m12) * s, 0.25 / s}
	case m11 > m22 && m11 > m33:
		s := 2 * math.Sqrt(1+m11-m22-m33)
		q = Quat{0.25 * s, (m12 + m21) / s, (m13 + m31) / s, (m32 - m23) / s}
	case m22 > m33:
		s := 2 * math.Sqrt(1+m22-m11-m33)
		q = Quat{(m12 + m21) / s, 0.25 * s, (m23 + m32) / s, (m13 - m31) / s}
	default:
		s := 2 * math.Sqrt(1+m33-m11-m22)
		q = Quat{(m13 + m31) / s, (m23 + m32) / s, 0.25 * s, (m21 - m12) / s}
	}
	return q.Normalize()
}
