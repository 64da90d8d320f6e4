package preview

import (
	"fmt"
	"image"
	"sort"
	"strings"

	"golang.org/x/image/draw"
)

// DefaultFilter names the resampling kernel used when Options.Filter is empty.
const DefaultFilter = "catmullrom"

var filters = map[string]draw.Interpolator{
	"nearest":        draw.NearestNeighbor,
	"approxbilinear": draw.ApproxBiLinear,
	"bilinear":       draw.BiLinear,
	"catmullrom":     draw.CatmullRom,
}

// Filter returns the resampling kernel registered under name.
func Filter(name string) (draw.Interpolator, error) {
	if name == "" {
		name = DefaultFilter
	}
	f, ok := filters[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("preview: unknown filter %q (want one of %s)", name, strings.Join(FilterNames(), ", "))
	}
	return f, nil
}

// FilterNames lists the accepted filter names.
func FilterNames() []string {
	out := make([]string, 0, len(filters))
	for k := range filters {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// resample scales a supersampled frame down to w×h. The scaling runs on
// premultiplied pixels so transparent texels contribute no color to the
// footprint edges.
func resample(src *image.NRGBA, w, h int, filter draw.Interpolator) *image.NRGBA {
	sb := src.Bounds()
	if sb.Dx() == w && sb.Dy() == h {
		return src
	}

	premul := image.NewRGBA(sb)
	draw.Draw(premul, sb, src, sb.Min, draw.Src)

	scaled := image.NewRGBA(image.Rect(0, 0, w, h))
	filter.Scale(scaled, scaled.Bounds(), premul, sb, draw.Src, nil)

	out := image.NewNRGBA(scaled.Bounds())
	draw.Draw(out, out.Bounds(), scaled, image.Point{}, draw.Src)
	return out
}
