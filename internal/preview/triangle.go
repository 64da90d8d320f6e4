package preview

import "math"

// fillTriangle rasterizes one projected triangle into fb. Vertices are
// (x, y, height) in pixel space; base is the surface color and the shade
// grows with height between lo and lo+span.
func fillTriangle(fb *FrameBuffer, v0, v1, v2 [3]float64, base [4]float64, lo, span float64) {
	x0, y0, z0 := v0[0], v0[1], v0[2]
	x1, y1, z1 := v1[0], v1[1], v1[2]
	x2, y2, z2 := v2[0], v2[1], v2[2]

	minX := int(math.Floor(math.Min(math.Min(x0, x1), x2)))
	maxX := int(math.Ceil(math.Max(math.Max(x0, x1), x2)))
	minY := int(math.Floor(math.Min(math.Min(y0, y1), y2)))
	maxY := int(math.Ceil(math.Max(math.Max(y0, y1), y2)))
	if minX < 0 {
		minX = 0
	}
	if maxX >= fb.Width {
		maxX = fb.Width - 1
	}
	if minY < 0 {
		minY = 0
	}
	if maxY >= fb.Height {
		maxY = fb.Height - 1
	}
	if minX > maxX || minY > maxY {
		return
	}

	// Barycentric setup
	det := (y1-y2)*(x0-x2) + (x2-x1)*(y0-y2)
	if det > -1e-8 && det < 1e-8 {
		return
	}
	invDet := 1.0 / det
	dy12 := y1 - y2
	dx21 := x2 - x1
	dy20 := y2 - y0
	dx02 := x0 - x2

	for sy := minY; sy <= maxY; sy++ {
		dsy := float64(sy) + 0.5 - y2
		rowOff := sy * fb.Width
		for sx := minX; sx <= maxX; sx++ {
			dsx := float64(sx) + 0.5 - x2
			w0 := (dy12*dsx + dx21*dsy) * invDet
			w1 := (dy20*dsx + dx02*dsy) * invDet
			w2 := 1.0 - w0 - w1
			if w0 < -0.001 || w1 < -0.001 || w2 < -0.001 {
				continue
			}

			z := w0*z0 + w1*z1 + w2*z2
			zIdx := rowOff + sx
			if z <= fb.ZBuf[zIdx] {
				continue
			}
			fb.ZBuf[zIdx] = z

			shade := 0.55
			if span > 0 {
				shade += 0.45 * clamp01((z-lo)/span)
			} else {
				shade = 1
			}
			ci := zIdx * 4
			fb.Color[ci] = clamp8(base[0] * shade * 255)
			fb.Color[ci+1] = clamp8(base[1] * shade * 255)
			fb.Color[ci+2] = clamp8(base[2] * shade * 255)
			fb.Color[ci+3] = 255
		}
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
