package mathutil

// Mat4 is a 4×4 matrix stored row-major. Used for asset node world transforms.
type Mat4 [16]float64

func Mat4Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Mat4Mul returns a × b.
func Mat4Mul(a, b Mat4) Mat4 {
	var m Mat4
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			m[r*4+c] = a[r*4+0]*b[0*4+c] + a[r*4+1]*b[1*4+c] +
				a[r*4+2]*b[2*4+c] + a[r*4+3]*b[3*4+c]
		}
	}
	return m
}

// MulPoint transforms a 3D point (w=1) by the 4×4 matrix.
func (m Mat4) MulPoint(v Vec3) Vec3 {
	return Vec3{
		m[0]*v[0] + m[1]*v[1] + m[2]*v[2] + m[3],
		m[4]*v[0] + m[5]*v[1] + m[6]*v[2] + m[7],
		m[8]*v[0] + m[9]*v[1] + m[10]*v[2] + m[11],
	}
}

// FromMat3Translation builds a 4×4 affine matrix from a 3×3 linear part and translation.
func FromMat3Translation(r Mat3, t Vec3) Mat4 {
	return Mat4{
		r[0], r[1], r[2], t[0],
		r[3], r[4], r[5], t[1],
		r[6], r[7], r[8], t[2],
		0, 0, 0, 1,
	}
}

// ComposeTRS builds T × R × S.
func ComposeTRS(t Vec3, q Quat, s Vec3) Mat4 {
	return FromMat3Translation(QuatToMat3(q).ScaleColumns(s), t)
}

// FromColumnMajor converts a column-major array (glTF layout).
func FromColumnMajor(c [16]float64) Mat4 {
	return Mat4{
		c[0], c[4], c[8], c[12],
		c[1], c[5], c[9], c[13],
		c[2], c[6], c[10], c[14],
		c[3], c[7], c[11], c[15],
	}
}

// IsIdentity checks if the matrix is approximately identity.
func (m Mat4) IsIdentity() bool {
	id := Mat4Identity()
	for i := 0; i < 16; i++ {
		d := m[i] - id[i]
		if d > 1e-8 || d < -1e-8 {
			return false
		}
	}
	return true
}

// Decompose splits an affine matrix without shear into translation,
// rotation and scale. A negative determinant is folded into scale X.
func (m Mat4) Decompose() Transform {
	t := Vec3{m[3], m[7], m[11]}
	cx := Vec3{m[0], m[4], m[8]}
	cy := Vec3{m[1], m[5], m[9]}
	cz := Vec3{m[2], m[6], m[10]}
	s := Vec3{cx.Len(), cy.Len(), cz.Len()}
	if cx.Cross(cy).Dot(cz) < 0 {
		s[0] = -s[0]
	}
	if s[0] == 0 || s[1] == 0 || s[2] == 0 {
		return Transform{Position: t, Rotation: QuatIdentity(), Scale: s}
	}
	r := Mat3{
		cx[0] / s[0], cy[0] / s[1], cz[0] / s[2],
		cx[1] / s[0], cy[1] / s[1], cz[1] / s[2],
		cx[2] / s[0], cy[2] / s[1], cz[2] / s[2],
	}
	return Transform{Position: t, Rotation: Mat3ToQuat(r), Scale: s}
}
