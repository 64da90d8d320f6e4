// Package scene holds the live scene graph built from resolved placements
// or reconstructed from an interchange document.
package scene

import (
	"vpc-scene/internal/asset"
	"vpc-scene/internal/mathutil"
)

// Metadata keys set on placement nodes.
const (
	MetaEntityID   = "entityId"
	MetaCatalogRef = "catalogRef"
)

// Node is one node of the live scene graph.
type Node struct {
	Name      string
	Transform mathutil.Transform
	Metadata  map[string]string
	// AssetSource identifies the attached asset; empty when none.
	AssetSource string
	// Asset is the placement's own copy of the asset content, when loaded.
	Asset    *asset.Instance
	Children []*Node
	// Internal marks nodes expanded from an asset's own hierarchy.
	Internal bool

	// placement is one more than the index of the resolved placement the
	// node was built from; zero otherwise.
	placement int
}

// New returns a node with an identity transform.
func New(name string) *Node {
	return &Node{Name: name, Transform: mathutil.IdentityTransform()}
}

// Add appends children in order.
func (n *Node) Add(children ...*Node) {
	n.Children = append(n.Children, children...)
}

// HasAsset reports whether an asset is attached to n.
func (n *Node) HasAsset() bool {
	return n.AssetSource != ""
}

// SetPlacement records that n was built from the i-th resolved placement.
func (n *Node) SetPlacement(i int) {
	n.placement = i + 1
}

// Placement returns the index recorded by SetPlacement.
func (n *Node) Placement() (int, bool) {
	return n.placement - 1, n.placement > 0
}

// SetMeta sets a metadata entry, allocating the map on first use.
func (n *Node) SetMeta(key, value string) {
	if n.Metadata == nil {
		n.Metadata = make(map[string]string)
	}
	n.Metadata[key] = value
}

// AttachAsset attaches inst to n and mirrors the asset's own hierarchy as
// internal children, the way a renderer adds the loaded asset under the
// placement node.
func (n *Node) AttachAsset(inst *asset.Instance) {
	n.Asset = inst
	n.AssetSource = inst.Source
	for _, r := range inst.Roots {
		n.Children = append(n.Children, expand(r))
	}
}

func expand(mn *asset.ModelNode) *Node {
	out := &Node{Name: mn.Name, Transform: mn.Matrix.Decompose(), Internal: true}
	for _, c := range mn.Children {
		out.Children = append(out.Children, expand(c))
	}
	return out
}

// Walk visits n and its descendants depth-first in child order. Returning
// false skips the node's children.
func (n *Node) Walk(fn func(n *Node, depth int) bool) {
	n.walk(0, fn)
}

func (n *Node) walk(depth int, fn func(*Node, int) bool) {
	if !fn(n, depth) {
		return
	}
	for _, c := range n.Children {
		c.walk(depth+1, fn)
	}
}

// WalkWorld is Walk with each node's accumulated world matrix.
func (n *Node) WalkWorld(fn func(n *Node, world mathutil.Mat4) bool) {
	n.walkWorld(mathutil.Mat4Identity(), fn)
}

func (n *Node) walkWorld(parent mathutil.Mat4, fn func(*Node, mathutil.Mat4) bool) {
	world := mathutil.Mat4Mul(parent, n.Transform.Matrix())
	if !fn(n, world) {
		return
	}
	for _, c := range n.Children {
		c.walkWorld(world, fn)
	}
}

// Find returns the first node named name in depth-first order, or nil.
func (n *Node) Find(name string) *Node {
	var found *Node
	n.Walk(func(c *Node, _ int) bool {
		if found != nil {
			return false
		}
		if c.Name == name {
			found = c
			return false
		}
		return true
	})
	return found
}

// Count returns the number of nodes in the subtree, n included.
func (n *Node) Count() int {
	total := 0
	n.Walk(func(*Node, int) bool {
		total++
		return true
	})
	return total
}

// AssetNodes returns every node carrying an asset, in document order.
// Asset-internal nodes are not searched.
func (n *Node) AssetNodes() []*Node {
	var out []*Node
	n.Walk(func(c *Node, _ int) bool {
		if c.HasAsset() {
			out = append(out, c)
			return false
		}
		return true
	})
	return out
}

// RevealOrder returns the loaded asset nodes in the order a viewer shows them.
func (n *Node) RevealOrder() []*Node {
	var out []*Node
	for _, c := range n.AssetNodes() {
		if c.Asset != nil {
			out = append(out, c)
		}
	}
	return out
}

// Bounds returns the world-space box enclosing every loaded asset in the
// subtree, or an empty box.
func (n *Node) Bounds() mathutil.Box3 {
	box := mathutil.EmptyBox()
	n.WalkWorld(func(c *Node, world mathutil.Mat4) bool {
		if c.Asset != nil {
			box = box.Union(c.Asset.Bounds.MulMat4(world))
			return false
		}
		return true
	})
	return box
}
