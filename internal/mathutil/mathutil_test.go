package mathutil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

const eps = 1e-12

func assertVec(t *testing.T, want, got Vec3) {
	t.Helper()
	for k := 0; k < 3; k++ {
		assert.InDelta(t, want[k], got[k], 1e-9, "component %d", k)
	}
}

func TestQuatRotate(t *testing.T) {
	q := AxisAngle(Vec3{0, 1, 0}, math.Pi/2)
	assertVec(t, Vec3{0, 0, -1}, q.Rotate(Vec3{1, 0, 0}))
	assertVec(t, Vec3{1, 0, 0}, q.Rotate(Vec3{0, 0, 1}))
	assertVec(t, Vec3{0, 2, 0}, q.Rotate(Vec3{0, 2, 0}))
}

func TestQuatMulOrder(t *testing.T) {
	yaw := AxisAngle(Vec3{0, 1, 0}, math.Pi/2)
	pitch := AxisAngle(Vec3{1, 0, 0}, math.Pi/2)
	v := Vec3{0, 0, 1}

	// yaw × pitch applies pitch first.
	assertVec(t, yaw.Rotate(pitch.Rotate(v)), yaw.Mul(pitch).Rotate(v))
	assert.NotEqual(t, yaw.Mul(pitch), pitch.Mul(yaw))
}

func TestQuatNormalize(t *testing.T) {
	assert.Equal(t, QuatIdentity(), Quat{}.Normalize())
	assert.Equal(t, QuatIdentity(), Quat{math.NaN(), 0, 0, 1}.Normalize())
	n := Quat{0, 0, 0, 2}.Normalize()
	assert.InDelta(t, 1, n[3], eps)
}

func TestEulerXYZMatchesAxisProduct(t *testing.T) {
	rx, ry, rz := 0.3, -1.1, 2.0
	want := AxisAngle(Vec3{1, 0, 0}, rx).
		Mul(AxisAngle(Vec3{0, 1, 0}, ry)).
		Mul(AxisAngle(Vec3{0, 0, 1}, rz))
	got := EulerXYZ(rx, ry, rz)
	for k := 0; k < 4; k++ {
		assert.InDelta(t, want[k], got[k], 1e-9)
	}
}

func TestComposeTRSMatchesQuatRotate(t *testing.T) {
	q := AxisAngle(Vec3{1, 2, 3}, 0.7)
	pos := Vec3{1, -2, 0.5}
	scale := Vec3{2, 1, 0.5}
	p := Vec3{0.3, 0.4, -0.9}

	want := q.Rotate(p.Mul(scale)).Add(pos)
	assertVec(t, want, ComposeTRS(pos, q, scale).MulPoint(p))
	assertVec(t, want, Transform{pos, q, scale}.Matrix().MulPoint(p))
}

func TestFromColumnMajor(t *testing.T) {
	m := FromColumnMajor([16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 5, 6, 7, 1})
	assertVec(t, Vec3{5, 6, 7}, m.MulPoint(Vec3{}))
	assert.True(t, Mat4Identity().IsIdentity())
	assert.False(t, m.IsIdentity())
}

func TestBox3(t *testing.T) {
	b := EmptyBox()
	assert.True(t, b.IsEmpty())

	b = b.ExpandByPoint(Vec3{-1, 0, 2}).ExpandByPoint(Vec3{1, 3, -2})
	assert.False(t, b.IsEmpty())
	assertVec(t, Vec3{-1, 0, -2}, b.Min)
	assertVec(t, Vec3{1, 3, 2}, b.Max)
	assertVec(t, Vec3{0, 1.5, 0}, b.Center())
	assertVec(t, Vec3{2, 3, 4}, b.Size())

	moved := b.MulMat4(ComposeTRS(Vec3{0, -1, 0}, QuatIdentity(), Vec3{1, 1, 1}))
	assertVec(t, Vec3{-1, -1, -2}, moved.Min)

	turned := b.MulMat4(ComposeTRS(Vec3{}, AxisAngle(Vec3{0, 1, 0}, math.Pi/2), Vec3{1, 1, 1}))
	assertVec(t, Vec3{-2, 0, -1}, turned.Min)
	assertVec(t, Vec3{2, 3, 1}, turned.Max)

	assert.True(t, EmptyBox().MulMat4(Mat4Identity()).IsEmpty())
	assert.Equal(t, b, b.Union(EmptyBox()))
}

func TestDecomposeRoundTrip(t *testing.T) {
	cases := []Transform{
		IdentityTransform(),
		{Position: Vec3{1, -2, 3}, Rotation: AxisAngle(Vec3{1, 1, 0}, 0.7), Scale: Vec3{2, 0.5, 3}},
		{Position: Vec3{0, 0, 0}, Rotation: AxisAngle(Vec3{0, 0, 1}, math.Pi), Scale: Vec3{1, 1, 1}},
		{Position: Vec3{5, 5, 5}, Rotation: AxisAngle(Vec3{0, 1, 0}, -2.5), Scale: Vec3{1, 4, 1}},
	}
	for _, want := range cases {
		got := want.Matrix().Decompose()
		assertVec(t, want.Position, got.Position)
		assertVec(t, want.Scale, got.Scale)
		dot := want.Rotation[0]*got.Rotation[0] + want.Rotation[1]*got.Rotation[1] +
			want.Rotation[2]*got.Rotation[2] + want.Rotation[3]*got.Rotation[3]
		assert.InDelta(t, 1, math.Abs(dot), 1e-9)
	}
}

func TestDecomposeMirror(t *testing.T) {
	m := ComposeTRS(Vec3{}, QuatIdentity(), Vec3{-1, 1, 1})
	got := m.Decompose()
	assertVec(t, Vec3{-1, 1, 1}, got.Scale)
	assertVec(t, Vec3{-1, 2, 3}, got.Matrix().MulPoint(Vec3{1, 2, 3}))
}
