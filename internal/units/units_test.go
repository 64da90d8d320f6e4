package units

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"vpc-scene/internal/mathutil"
)

func TestPosition(t *testing.T) {
	tests := []struct {
		name string
		in   Axes
		want mathutil.Vec3
	}{
		{"missing", Axes{}, mathutil.Vec3{0, 0, 0}},
		{"full", Axes{X: Float(1000), Y: Float(250), Z: Float(-500)}, mathutil.Vec3{1, 0.25, 0.5}},
		{"depth only", Axes{Z: Float(2000)}, mathutil.Vec3{0, 0, -2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Position(tt.in))
		})
	}
}

func TestRotation(t *testing.T) {
	assert.Equal(t, mathutil.QuatIdentity(), Rotation(QuatFields{}))
	got := Rotation(QuatFields{X: Float(0.1), Y: Float(0.2), Z: Float(0.3), W: Float(0.9)})
	assert.Equal(t, mathutil.Quat{0.1, 0.2, -0.3, 0.9}, got)
}

func TestEulerDegreesAgreesWithRotation(t *testing.T) {
	// 90° around the depth axis authored as degrees must equal the same
	// rotation authored as a source quaternion.
	h := math.Sqrt(0.5)
	fromQuat := Rotation(QuatFields{Z: Float(h), W: Float(h)})
	fromDeg := EulerDegrees(Axes{Z: Float(90)})
	for k := 0; k < 4; k++ {
		assert.InDelta(t, fromQuat[k], fromDeg[k], 1e-12)
	}

	assert.Equal(t, mathutil.QuatIdentity(), EulerDegrees(Axes{}))
}

func TestScale(t *testing.T) {
	assert.Equal(t, mathutil.Vec3{1, 1, 1}, Scale(Axes{}))
	assert.Equal(t, mathutil.Vec3{2, 1, 0.5}, Scale(Axes{X: Float(2), Y: Float(0), Z: Float(0.5)}))
}
