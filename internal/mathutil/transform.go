package mathutil

// Transform is a decomposed affine transform: T × R × S.
type Transform struct {
	Position Vec3
	Rotation Quat
	Scale    Vec3
}

// IdentityTransform has zero translation, identity rotation and unit scale.
func IdentityTransform() Transform {
	return Transform{
		Rotation: QuatIdentity(),
		Scale:    Vec3{1, 1, 1},
	}
}

// Matrix returns the 4×4 matrix of t.
func (t Transform) Matrix() Mat4 {
	return ComposeTRS(t.Position, t.Rotation, t.Scale)
}
