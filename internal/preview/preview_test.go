package preview

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/HugoSmits86/nativewebp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vpc-scene/internal/asset"
	"vpc-scene/internal/asset/assettest"
	"vpc-scene/internal/interchange"
	"vpc-scene/internal/mathutil"
	"vpc-scene/internal/scene"
)

func boxScene(t *testing.T) *scene.Node {
	t.Helper()
	m, err := asset.Parse("table.glb", assettest.Box("table", mathutil.Vec3{-1, 0, -1}, mathutil.Vec3{1, 1, 1}))
	require.NoError(t, err)
	inst, err := m.Instantiate()
	require.NoError(t, err)

	root := scene.New("Products")
	n := scene.New("e1")
	n.Transform.Position = mathutil.Vec3{3, 0, -2}
	n.AttachAsset(inst)
	root.Add(n)
	return root
}

func assertColor(t *testing.T, want color.NRGBA, got color.NRGBA) {
	t.Helper()
	assert.InDelta(t, want.R, got.R, 2)
	assert.InDelta(t, want.G, got.G, 2)
	assert.InDelta(t, want.B, got.B, 2)
	assert.InDelta(t, want.A, got.A, 2)
}

func TestRenderFootprint(t *testing.T) {
	img := Render(boxScene(t), Options{Size: 64})
	require.Equal(t, image.Rect(0, 0, 64, 64), img.Bounds())

	// Top face of the box at full height, material color unshaded.
	assertColor(t, color.NRGBA{51, 102, 153, 255}, img.NRGBAAt(32, 32))
	assert.Equal(t, uint8(0), img.NRGBAAt(0, 0).A)
	assert.Equal(t, uint8(0), img.NRGBAAt(63, 63).A)
}

func TestRenderTallerWins(t *testing.T) {
	root := boxScene(t)
	m, err := asset.Parse("lamp.glb", assettest.Box("lamp", mathutil.Vec3{-0.2, 0, -0.2}, mathutil.Vec3{0.2, 2, 0.2}))
	require.NoError(t, err)
	inst, err := m.Instantiate()
	require.NoError(t, err)
	inst.ApplyFlatStyle([4]float64{1, 1, 1, 1})
	lamp := scene.New("e2")
	lamp.Transform.Position = mathutil.Vec3{3, 0, -2}
	lamp.AttachAsset(inst)
	root.Add(lamp)

	img := Render(root, Options{Size: 64, Supersample: 1})
	assertColor(t, color.NRGBA{255, 255, 255, 255}, img.NRGBAAt(32, 32))
	// The table top sits at mid height, so it is darker than full color.
	edge := img.NRGBAAt(32, 8)
	assert.Equal(t, uint8(255), edge.A)
	assert.Less(t, edge.B, uint8(153))
}

func TestRenderEmptyScene(t *testing.T) {
	bg := color.NRGBA{10, 20, 30, 255}
	img := Render(scene.New("Products"), Options{Size: 16, Background: bg})
	require.Equal(t, 16, img.Bounds().Dx())
	assertColor(t, bg, img.NRGBAAt(8, 8))

	img = Render(nil, Options{})
	assert.Equal(t, DefaultSize, img.Bounds().Dx())
}

func TestRenderBackdrop(t *testing.T) {
	red := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for i := 0; i < len(red.Pix); i += 4 {
		copy(red.Pix[i:], []byte{255, 0, 0, 255})
	}
	img := Render(boxScene(t), Options{Size: 32, Supersample: 1, Backdrop: red})
	assertColor(t, color.NRGBA{255, 0, 0, 255}, img.NRGBAAt(0, 0))
	assertColor(t, color.NRGBA{51, 102, 153, 255}, img.NRGBAAt(16, 16))
}

func TestEncodeWebP(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, Render(boxScene(t), Options{Size: 32})))
	data := buf.Bytes()
	require.Greater(t, len(data), 12)
	assert.Equal(t, "RIFF", string(data[:4]))
	assert.Equal(t, "WEBP", string(data[8:12]))

	img, err := nativewebp.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 32, 32), img.Bounds())
}

func TestFunc(t *testing.T) {
	data, err := Func(Options{Size: 16})(boxScene(t), &interchange.Document{})
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(data[:4]))
}

func TestLoadBackdrop(t *testing.T) {
	dir := t.TempDir()

	src := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	src.SetNRGBA(1, 1, color.NRGBA{1, 2, 3, 255})
	var pngBuf bytes.Buffer
	require.NoError(t, png.Encode(&pngBuf, src))
	pngPath := filepath.Join(dir, "plan.png")
	require.NoError(t, os.WriteFile(pngPath, pngBuf.Bytes(), 0o644))

	img, err := LoadBackdrop(pngPath)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 3), img.Bounds())
	assert.Equal(t, color.NRGBA{1, 2, 3, 255}, img.NRGBAAt(1, 1))

	// 2x2 uncompressed true-color TGA, BGRA pixels, top-left origin.
	tga := []byte{0, 0, 2, 0, 0, 0, 0, 0, 0, 0, 0, 0, 2, 0, 2, 0, 32, 0x28}
	for i := 0; i < 4; i++ {
		tga = append(tga, 30, 20, 10, 255)
	}
	tgaPath := filepath.Join(dir, "plan.tga")
	require.NoError(t, os.WriteFile(tgaPath, tga, 0o644))

	img, err = LoadBackdrop(tgaPath)
	require.NoError(t, err)
	assert.Equal(t, 2, img.Bounds().Dx())
	assert.Equal(t, color.NRGBA{10, 20, 30, 255}, img.NRGBAAt(0, 0))

	_, err = LoadBackdrop(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
}

func TestRenderNonSquareFrame(t *testing.T) {
	img := Render(boxScene(t), Options{Width: 96, Height: 48, Supersample: 1})
	require.Equal(t, image.Rect(0, 0, 96, 48), img.Bounds())

	// The 2x2 m footprint is fitted to the shorter edge and centered.
	assertColor(t, color.NRGBA{51, 102, 153, 255}, img.NRGBAAt(48, 24))
	assert.Equal(t, uint8(0), img.NRGBAAt(10, 24).A)
	assert.Equal(t, uint8(0), img.NRGBAAt(90, 24).A)
	assert.Equal(t, uint8(0), img.NRGBAAt(48, 1).A)
}

func TestFilter(t *testing.T) {
	f, err := Filter("")
	require.NoError(t, err)
	assert.NotNil(t, f)

	_, err = Filter("BiLinear")
	assert.NoError(t, err)

	_, err = Filter("lanczos")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catmullrom")
	assert.Equal(t, []string{"approxbilinear", "bilinear", "catmullrom", "nearest"}, FilterNames())

	nearest, err := Filter("nearest")
	require.NoError(t, err)
	img := Render(boxScene(t), Options{Width: 40, Height: 20, Filter: nearest})
	require.Equal(t, image.Rect(0, 0, 40, 20), img.Bounds())
	assertColor(t, color.NRGBA{51, 102, 153, 255}, img.NRGBAAt(20, 10))
}
