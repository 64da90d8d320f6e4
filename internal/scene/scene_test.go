package scene

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vpc-scene/internal/asset"
	"vpc-scene/internal/asset/assettest"
	"vpc-scene/internal/mathutil"
)

func loadInstance(t *testing.T, data []byte, source string) *asset.Instance {
	t.Helper()
	m, err := asset.Parse(source, data)
	require.NoError(t, err)
	inst, err := m.Instantiate()
	require.NoError(t, err)
	return inst
}

func TestAttachAssetMirrorsHierarchy(t *testing.T) {
	inst := loadInstance(t, assettest.Offset("shelf", mathutil.Vec3{0, 1, 0}, mathutil.Vec3{-1, -1, -1}, mathutil.Vec3{1, 1, 1}), "shelf.glb")

	n := New("e1")
	n.AttachAsset(inst)
	assert.True(t, n.HasAsset())
	assert.Equal(t, "shelf.glb", n.AssetSource)
	require.Len(t, n.Children, 1)
	root := n.Children[0]
	assert.True(t, root.Internal)
	assert.Equal(t, "shelf_root", root.Name)
	assert.InDelta(t, 1.0, root.Transform.Position[1], 1e-12)
	require.Len(t, root.Children, 1)
	assert.Equal(t, "shelf", root.Children[0].Name)
	assert.Equal(t, 3, n.Count())
}

func TestFindWalkAndRevealOrder(t *testing.T) {
	box := assettest.Box("b", mathutil.Vec3{-0.5, 0, -0.5}, mathutil.Vec3{0.5, 1, 0.5})

	root := New("Products")
	a := New("a")
	a.Transform.Position = mathutil.Vec3{2, 0, 0}
	a.SetMeta(MetaEntityID, "e1")
	a.AttachAsset(loadInstance(t, box, "b.glb"))
	group := New("group")
	b := New("b")
	b.AssetSource = "pending.glb"
	c := New("c")
	c.Transform.Position = mathutil.Vec3{0, 0, -3}
	c.AttachAsset(loadInstance(t, box, "b.glb"))
	group.Add(b, c)
	root.Add(a, group)

	assert.Same(t, group, root.Find("group"))
	assert.Same(t, c, root.Find("c"))
	assert.Nil(t, root.Find("nope"))
	assert.Equal(t, "e1", a.Metadata[MetaEntityID])

	var order []string
	root.Walk(func(n *Node, depth int) bool {
		if !n.Internal {
			order = append(order, n.Name)
		}
		return true
	})
	assert.Equal(t, []string{"Products", "a", "group", "b", "c"}, order)

	assert.Equal(t, []*Node{a, b, c}, root.AssetNodes())
	assert.Equal(t, []*Node{a, c}, root.RevealOrder())

	want := mathutil.Box3{Min: mathutil.Vec3{-0.5, 0, -3.5}, Max: mathutil.Vec3{2.5, 1, 0.5}}
	if diff := cmp.Diff(want, root.Bounds(), cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("bounds mismatch (-want +got):\n%s", diff)
	}
}

func TestBoundsEmpty(t *testing.T) {
	assert.True(t, New("empty").Bounds().IsEmpty())
}
