// Package asset loads glTF and GLB mesh assets and hands out per-placement
// instances of them.
package asset

import (
	"bytes"
	"fmt"

	"github.com/gabriel-vasile/mimetype"
	"github.com/jinzhu/copier"

	"vpc-scene/internal/mathutil"
)

// Content types produced by Parse.
const (
	ContentTypeGLB  = "model/gltf-binary"
	ContentTypeGLTF = "model/gltf+json"
)

// Material is the mutable presentation state of one material slot.
type Material struct {
	Name      string
	BaseColor [4]float64
	Flat      bool
}

// ModelNode is one node of an asset's own hierarchy.
type ModelNode struct {
	Name   string
	Matrix mathutil.Mat4 // local, relative to the parent
	Mesh   string
	// HasMesh is false for pure transform nodes.
	HasMesh bool
	// Bounds is the mesh bounding box in this node's space.
	Bounds    mathutil.Box3
	Materials []int
	Children  []*ModelNode
}

// Walk visits n and its descendants depth-first with their accumulated
// matrices. Returning false stops descent below that node.
func (n *ModelNode) Walk(parent mathutil.Mat4, fn func(n *ModelNode, world mathutil.Mat4) bool) {
	world := mathutil.Mat4Mul(parent, n.Matrix)
	if !fn(n, world) {
		return
	}
	for _, c := range n.Children {
		c.Walk(world, fn)
	}
}

// Model is a loaded asset. It is shared by every placement of the same
// source and must not be mutated after Parse.
type Model struct {
	Source      string
	ContentType string
	Size        int
	Generator   string
	Roots       []*ModelNode
	Materials   []Material
	// Bounds is the model-space bounding box of every mesh.
	Bounds mathutil.Box3
}

// NodeCount returns the number of nodes in the hierarchy.
func (m *Model) NodeCount() int {
	n := 0
	for _, r := range m.Roots {
		r.Walk(mathutil.Mat4Identity(), func(*ModelNode, mathutil.Mat4) bool {
			n++
			return true
		})
	}
	return n
}

// Parse decodes GLB or glTF JSON bytes. source is recorded for diagnostics.
func Parse(source string, data []byte) (*Model, error) {
	mt := mimetype.Detect(data)

	var (
		doc         *gltfDocument
		contentType string
		err         error
	)
	switch {
	case mt.Is(ContentTypeGLB):
		var jsonChunk, bin []byte
		if jsonChunk, bin, err = splitGLB(data); err != nil {
			return nil, fmt.Errorf("asset: parse %s: %w", source, err)
		}
		doc, err = decodeDocument(jsonChunk, bin)
		contentType = ContentTypeGLB
	case isJSON(mt, data):
		doc, err = decodeDocument(data, nil)
		contentType = ContentTypeGLTF
	default:
		return nil, fmt.Errorf("asset: parse %s: %w: %s", source, ErrUnsupported, mt.String())
	}
	if err != nil {
		return nil, fmt.Errorf("asset: parse %s: %w", source, err)
	}

	m, err := build(doc)
	if err != nil {
		return nil, fmt.Errorf("asset: parse %s: %w", source, err)
	}
	m.Source = source
	m.ContentType = contentType
	m.Size = len(data)
	return m, nil
}

func isJSON(mt *mimetype.MIME, data []byte) bool {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is(ContentTypeGLTF) || m.Is("application/json") {
			return true
		}
	}
	// mimetype only inspects a prefix; large documents can fall back to text.
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func build(doc *gltfDocument) (*Model, error) {
	m := &Model{Generator: doc.Asset.Generator, Bounds: mathutil.EmptyBox()}
	for _, mat := range doc.Materials {
		out := Material{Name: mat.Name, BaseColor: [4]float64{1, 1, 1, 1}}
		if pbr := mat.PbrMetallicRoughness; pbr != nil && pbr.BaseColorFactor != nil {
			out.BaseColor = *pbr.BaseColorFactor
		}
		m.Materials = append(m.Materials, out)
	}

	roots, err := rootNodes(doc)
	if err != nil {
		return nil, err
	}
	visiting := make([]bool, len(doc.Nodes))
	for _, idx := range roots {
		n, err := buildNode(doc, idx, visiting)
		if err != nil {
			return nil, err
		}
		m.Roots = append(m.Roots, n)
	}

	for _, r := range m.Roots {
		r.Walk(mathutil.Mat4Identity(), func(n *ModelNode, world mathutil.Mat4) bool {
			if !n.Bounds.IsEmpty() {
				m.Bounds = m.Bounds.Union(n.Bounds.MulMat4(world))
			}
			return true
		})
	}
	return m, nil
}

// rootNodes picks the default scene's roots, or every parentless node
// when the document declares no scene.
func rootNodes(doc *gltfDocument) ([]int, error) {
	if len(doc.Scenes) > 0 {
		s := 0
		if doc.Scene != nil {
			s = *doc.Scene
		}
		if s < 0 || s >= len(doc.Scenes) {
			return nil, fmt.Errorf("gltf: scene %d out of range", s)
		}
		return doc.Scenes[s].Nodes, nil
	}
	isChild := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			if c >= 0 && c < len(isChild) {
				isChild[c] = true
			}
		}
	}
	var roots []int
	for i := range doc.Nodes {
		if !isChild[i] {
			roots = append(roots, i)
		}
	}
	return roots, nil
}

func buildNode(doc *gltfDocument, idx int, visiting []bool) (*ModelNode, error) {
	if idx < 0 || idx >= len(doc.Nodes) {
		return nil, fmt.Errorf("gltf: node %d out of range", idx)
	}
	if visiting[idx] {
		return nil, fmt.Errorf("gltf: node %d is its own ancestor", idx)
	}
	visiting[idx] = true
	defer func() { visiting[idx] = false }()

	src := doc.Nodes[idx]
	n := &ModelNode{Name: src.Name, Matrix: nodeMatrix(src), Bounds: mathutil.EmptyBox()}

	if src.Mesh != nil {
		mi := *src.Mesh
		if mi < 0 || mi >= len(doc.Meshes) {
			return nil, fmt.Errorf("gltf: node %d: mesh %d out of range", idx, mi)
		}
		mesh := doc.Meshes[mi]
		n.HasMesh = true
		n.Mesh = mesh.Name
		for _, p := range mesh.Primitives {
			if pos, ok := p.Attributes["POSITION"]; ok {
				if lo, hi, ok := doc.positionBounds(pos); ok {
					n.Bounds = n.Bounds.ExpandByPoint(lo).ExpandByPoint(hi)
				}
			}
			if p.Material != nil {
				n.Materials = append(n.Materials, *p.Material)
			}
		}
	}

	for _, c := range src.Children {
		child, err := buildNode(doc, c, visiting)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, child)
	}
	return n, nil
}

func nodeMatrix(n gltfNode) mathutil.Mat4 {
	if n.Matrix != nil {
		return mathutil.FromColumnMajor(*n.Matrix)
	}
	t := mathutil.Vec3{}
	r := mathutil.QuatIdentity()
	s := mathutil.Vec3{1, 1, 1}
	if n.Translation != nil {
		t = *n.Translation
	}
	if n.Rotation != nil {
		r = mathutil.Quat(*n.Rotation).Normalize()
	}
	if n.Scale != nil {
		s = *n.Scale
	}
	return mathutil.ComposeTRS(t, r, s)
}

// Instance is one placement's private copy of a model's hierarchy and
// materials. Style changes never reach the shared Model.
type Instance struct {
	Source    string
	Roots     []*ModelNode
	Materials []Material
	Bounds    mathutil.Box3
	Visible   bool

	model *Model
}

// Instantiate deep-copies the model's mutable content. New instances are
// hidden until Show is called.
func (m *Model) Instantiate() (*Instance, error) {
	inst := &Instance{Source: m.Source, Bounds: m.Bounds, model: m}
	opt := copier.Option{DeepCopy: true}
	if err := copier.CopyWithOption(&inst.Roots, &m.Roots, opt); err != nil {
		return nil, fmt.Errorf("asset: instantiate %s: %w", m.Source, err)
	}
	if err := copier.CopyWithOption(&inst.Materials, &m.Materials, opt); err != nil {
		return nil, fmt.Errorf("asset: instantiate %s: %w", m.Source, err)
	}
	return inst, nil
}

// Model returns the shared template the instance was copied from.
func (i *Instance) Model() *Model {
	return i.model
}

// Show marks the instance visible.
func (i *Instance) Show() {
	i.Visible = true
}

// ApplyFlatStyle replaces every material slot's color with c. A model
// without materials gets a single flat slot.
func (i *Instance) ApplyFlatStyle(c [4]float64) {
	if len(i.Materials) == 0 {
		i.Materials = []Material{{Name: "flat"}}
	}
	for k := range i.Materials {
		i.Materials[k].BaseColor = c
		i.Materials[k].Flat = true
	}
}
