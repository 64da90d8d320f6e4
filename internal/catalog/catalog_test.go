package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vpc-scene/internal/pattern"
)

const sample = `{
  "products": [
    {
      "id": "P-100",
      "modelURI": "https://cdn.example.com/models/Desk.glb",
      "template": {
        "type": "desk",
        "modelTransform": {"p": {"x": 10, "z": 5}, "r": {"z": 90}, "s": {"x": 2, "y": 0}},
        "size": {"width": 1600, "height": 740, "depth": 800}
      }
    },
    {
      "id": "P-200",
      "modelURI": "shelf.glb",
      "template": {"type": "Wall_Shelf", "size": {"height": 300}}
    },
    {"id": "P-300", "template": {"parts": [{"ref": "P-100"}]}},
    {"modelURI": "orphan.glb"},
    {"id": "P-200", "modelURI": "shelf-v2.glb", "template": {"type": "wall shelf"}}
  ]
}`

func TestParse(t *testing.T) {
	c, err := Parse(context.Background(), []byte(sample), Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())
	for _, id := range []string{"P-100", "P-200", "P-300"} {
		_, ok := c.Get(id)
		assert.True(t, ok, id)
	}

	desk, ok := c.Get("P-100")
	require.True(t, ok)
	assert.Equal(t, "https://cdn.example.com/models/Desk.glb", desk.AssetURI)
	assert.True(t, desk.HasAsset())
	assert.Equal(t, FreeStanding, desk.Mount)
	assert.False(t, desk.Assembly)
	require.NotNil(t, desk.HeightMM())
	assert.Equal(t, 740.0, *desk.HeightMM())
	require.NotNil(t, desk.Offset.P.X)
	assert.Equal(t, 10.0, *desk.Offset.P.X)
	assert.Nil(t, desk.Offset.P.Y)
	require.NotNil(t, desk.Offset.R.Z)
	assert.Equal(t, 90.0, *desk.Offset.R.Z)

	shelf, ok := c.Get("P-200")
	require.True(t, ok)
	assert.Equal(t, "shelf-v2.glb", shelf.AssetURI, "later duplicate wins")
	assert.Equal(t, WallMounted, shelf.Mount)
	assert.Nil(t, shelf.HeightMM())

	asm, ok := c.Get("P-300")
	require.True(t, ok)
	assert.True(t, asm.Assembly)
	assert.False(t, asm.HasAsset())

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestParseWallPatterns(t *testing.T) {
	c, err := Parse(context.Background(), []byte(sample), Options{
		WallMountedTypes: pattern.MustCompile("desk"),
	})
	require.NoError(t, err)
	desk, _ := c.Get("P-100")
	shelf, _ := c.Get("P-200")
	assert.Equal(t, WallMounted, desk.Mount)
	assert.Equal(t, FreeStanding, shelf.Mount)
}

func TestParseMalformed(t *testing.T) {
	for name, doc := range map[string]string{
		"not json":    `[`,
		"no products": `{"items": []}`,
		"bad product": `{"products": ["x"]}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(context.Background(), []byte(doc), Options{})
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestNilCatalog(t *testing.T) {
	var c *Catalog
	_, ok := c.Get("x")
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))
	c, err := ParseFile(context.Background(), path, Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())
}

func TestMountClassString(t *testing.T) {
	assert.Equal(t, "wall-mounted", WallMounted.String())
	assert.Equal(t, "free-standing", FreeStanding.String())
}
