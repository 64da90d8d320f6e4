package preview

import (
	"image"
	"image/color"
	"math"
)

// FrameBuffer holds the supersampled footprint as flat slices. Depth is
// world height, so taller surfaces win.
type FrameBuffer struct {
	Width  int
	Height int
	Color  []uint8   // RGBA interleaved, len = W*H*4
	ZBuf   []float64 // height per pixel, initialized to -inf
}

// NewFrameBuffer allocates a transparent color buffer and -inf z-buffer.
func NewFrameBuffer(w, h int) *FrameBuffer {
	n := w * h
	zbuf := make([]float64, n)
	for i := range zbuf {
		zbuf[i] = math.Inf(-1)
	}
	return &FrameBuffer{
		Width:  w,
		Height: h,
		Color:  make([]uint8, n*4),
		ZBuf:   zbuf,
	}
}

// Composite draws the covered pixels of fb over dst, which must have the
// same size.
func (fb *FrameBuffer) Composite(dst *image.NRGBA) {
	for y := 0; y < fb.Height; y++ {
		for x := 0; x < fb.Width; x++ {
			si := (y*fb.Width + x) * 4
			if fb.Color[si+3] == 0 {
				continue
			}
			dst.SetNRGBA(x, y, color.NRGBA{fb.Color[si], fb.Color[si+1], fb.Color[si+2], fb.Color[si+3]})
		}
	}
}
