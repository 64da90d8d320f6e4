package mathutil

// Mat3 is a 3×3 matrix stored row-major: [r0c0, r0c1, r0c2, r1c0, ...].
// Value type for zero heap allocation.
type Mat3 [9]float64

func Mat3Identity() Mat3 {
	return Mat3{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// MulVec3 returns M × v.
func (m Mat3) MulVec3(v Vec3) Vec3 {
	return Vec3{
		m[0]*v[0] + m[1]*v[1] + m[2]*v[2],
		m[3]*v[0] + m[4]*v[1] + m[5]*v[2],
		m[6]*v[0] + m[7]*v[1] + m[8]*v[2],
	}
}

// ScaleColumns returns M × diag(s).
func (m Mat3) ScaleColumns(s Vec3) Mat3 {
	return Mat3{
		m[0] * s[0], m[1] * s[1], m[2] * s[2],
		m[3] * s[0], m[4] * s[1], m[5] * s[2],
		m[6] * s[0], m[7] * s[1], m[8] * s[2],
	}
}
