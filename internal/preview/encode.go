package preview

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"
	"github.com/gabriel-vasile/mimetype"

	"vpc-scene/internal/interchange"
	"vpc-scene/internal/scene"
)

// Encode writes img as lossless WebP.
func Encode(w io.Writer, img image.Image) error {
	if err := nativewebp.Encode(w, img, nil); err != nil {
		return fmt.Errorf("preview: encode webp: %w", err)
	}
	return nil
}

// LoadBackdrop reads a floor-plan image (TGA, PNG or JPEG).
func LoadBackdrop(path string) (*image.NRGBA, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("preview: read %s: %w", path, err)
	}
	img, err := decodeImage(raw)
	if err != nil {
		return nil, fmt.Errorf("preview: decode %s: %w", path, err)
	}
	return toNRGBA(img), nil
}

// Func adapts Render and Encode to the bundle's preview hook.
func Func(opts Options) func(*scene.Node, *interchange.Document) ([]byte, error) {
	return func(root *scene.Node, _ *interchange.Document) ([]byte, error) {
		var buf bytes.Buffer
		if err := Encode(&buf, Render(root, opts)); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
}

// decodeImage sniffs PNG and JPEG; TGA has no magic number and is the
// fallback.
func decodeImage(raw []byte) (image.Image, error) {
	r := bytes.NewReader(raw)
	switch mimetype.Detect(raw).String() {
	case "image/png":
		return png.Decode(r)
	case "image/jpeg":
		return jpeg.Decode(r)
	default:
		return tga.Decode(r)
	}
}

func toNRGBA(src image.Image) *image.NRGBA {
	if n, ok := src.(*image.NRGBA); ok {
		return n
	}
	b := src.Bounds()
	dst := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.SetNRGBA(x, y, color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA))
		}
	}
	return dst
}
