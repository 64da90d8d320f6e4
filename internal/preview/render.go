// Package preview draws a top-down footprint of a scene: every asset
// instance's world bounding box seen from above, shaded by height.
package preview

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"

	"vpc-scene/internal/mathutil"
	"vpc-scene/internal/scene"
)

// Defaults for Options.
const (
	DefaultSize        = 256
	DefaultSupersample = 2
	DefaultMargin      = 0.06
)

// DefaultColor is used for instances without materials.
var DefaultColor = [4]float64{0.72, 0.72, 0.72, 1}

// Options controls rendering.
type Options struct {
	Size int // output edge in pixels, for whichever of Width/Height is unset
	// Width and Height give a non-square frame.
	Width, Height int
	Supersample   int     // render at Supersample times the frame, then resample
	Margin        float64 // fraction of the shorter edge left empty on each side
	Background    color.NRGBA
	// Backdrop, when set, is scaled to fill the image behind the footprint.
	Backdrop image.Image
	// Filter resamples the supersampled frame; CatmullRom when nil.
	Filter draw.Interpolator
}

func (o Options) withDefaults() Options {
	if o.Size <= 0 {
		o.Size = DefaultSize
	}
	if o.Width <= 0 {
		o.Width = o.Size
	}
	if o.Height <= 0 {
		o.Height = o.Size
	}
	if o.Filter == nil {
		o.Filter = draw.CatmullRom
	}
	if o.Supersample <= 0 {
		o.Supersample = DefaultSupersample
	}
	if o.Margin <= 0 || o.Margin >= 0.5 {
		o.Margin = DefaultMargin
	}
	return o
}

// Box faces as corner indices into Box3.Corners.
var boxFaces = [6][4]int{
	{0, 2, 6, 4}, {1, 3, 7, 5},
	{0, 1, 5, 4}, {2, 3, 7, 6},
	{0, 1, 3, 2}, {4, 5, 7, 6},
}

// Render returns an image of the scene seen from above, +X to the right
// and +Z down, centered and scaled to fit the frame.
func Render(root *scene.Node, opts Options) *image.NRGBA {
	opts = opts.withDefaults()
	w, h := opts.Width*opts.Supersample, opts.Height*opts.Supersample

	canvas := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: opts.Background}, image.Point{}, draw.Src)
	if opts.Backdrop != nil {
		opts.Filter.Scale(canvas, canvas.Bounds(), opts.Backdrop, opts.Backdrop.Bounds(), draw.Over, nil)
	}

	if root != nil {
		if bounds := root.Bounds(); !bounds.IsEmpty() {
			fb := NewFrameBuffer(w, h)
			drawFootprints(fb, root, bounds, opts.Margin)
			fb.Composite(canvas)
		}
	}
	return resample(canvas, opts.Width, opts.Height, opts.Filter)
}

func drawFootprints(fb *FrameBuffer, root *scene.Node, bounds mathutil.Box3, margin float64) {
	ext := bounds.Size()
	fw, fh := float64(fb.Width), float64(fb.Height)
	pad := 2 * margin * math.Min(fw, fh)
	scale := math.Inf(1)
	if ext[0] > 0 {
		scale = (fw - pad) / ext[0]
	}
	if ext[2] > 0 {
		scale = math.Min(scale, (fh-pad)/ext[2])
	}
	if math.IsInf(scale, 1) {
		scale = math.Min(fw, fh) - pad
	}
	center := bounds.Center()
	project := func(p mathutil.Vec3) [3]float64 {
		return [3]float64{
			fw/2 + (p[0]-center[0])*scale,
			fh/2 + (p[2]-center[2])*scale,
			p[1],
		}
	}

	lo, height := bounds.Min[1], ext[1]
	root.WalkWorld(func(n *scene.Node, world mathutil.Mat4) bool {
		if n.Asset == nil {
			return true
		}
		if n.Asset.Bounds.IsEmpty() {
			return false
		}
		base := DefaultColor
		if len(n.Asset.Materials) > 0 {
			base = n.Asset.Materials[0].BaseColor
		}
		var pts [8][3]float64
		for i, c := range n.Asset.Bounds.Corners() {
			pts[i] = project(world.MulPoint(c))
		}
		for _, f := range boxFaces {
			fillTriangle(fb, pts[f[0]], pts[f[1]], pts[f[2]], base, lo, height)
			fillTriangle(fb, pts[f[0]], pts[f[2]], pts[f[3]], base, lo, height)
		}
		return false
	})
}
