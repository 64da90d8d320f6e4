package mathutil

import "math"

// Box3 is an axis-aligned bounding box. The zero value is not empty; use
// EmptyBox to start an accumulation.
type Box3 struct {
	Min Vec3
	Max Vec3
}

func EmptyBox() Box3 {
	inf := math.Inf(1)
	return Box3{
		Min: Vec3{inf, inf, inf},
		Max: Vec3{-inf, -inf, -inf},
	}
}

func (b Box3) IsEmpty() bool {
	return b.Max[0] < b.Min[0] || b.Max[1] < b.Min[1] || b.Max[2] < b.Min[2]
}

// ExpandByPoint returns b grown to contain p.
func (b Box3) ExpandByPoint(p Vec3) Box3 {
	for k := 0; k < 3; k++ {
		if p[k] < b.Min[k] {
			b.Min[k] = p[k]
		}
		if p[k] > b.Max[k] {
			b.Max[k] = p[k]
		}
	}
	return b
}

// Union returns the smallest box containing both.
func (b Box3) Union(o Box3) Box3 {
	if o.IsEmpty() {
		return b
	}
	return b.ExpandByPoint(o.Min).ExpandByPoint(o.Max)
}

// Corners returns the eight corners of b.
func (b Box3) Corners() [8]Vec3 {
	var c [8]Vec3
	for i := 0; i < 8; i++ {
		c[i] = Vec3{b.Min[0], b.Min[1], b.Min[2]}
		if i&1 != 0 {
			c[i][0] = b.Max[0]
		}
		if i&2 != 0 {
			c[i][1] = b.Max[1]
		}
		if i&4 != 0 {
			c[i][2] = b.Max[2]
		}
	}
	return c
}

// MulMat4 returns the axis-aligned box enclosing b transformed by m.
func (b Box3) MulMat4(m Mat4) Box3 {
	if b.IsEmpty() {
		return b
	}
	out := EmptyBox()
	for _, c := range b.Corners() {
		out = out.ExpandByPoint(m.MulPoint(c))
	}
	return out
}

func (b Box3) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

func (b Box3) Size() Vec3 {
	return b.Max.Sub(b.Min)
}
