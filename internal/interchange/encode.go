package interchange

import (
	"errors"
	"fmt"

	"vpc-scene/internal/scene"
)

// ErrUnnamedAsset is returned when a node's asset has no bundle name.
var ErrUnnamedAsset = errors.New("interchange: asset has no bundle name")

// Subtree returns the node labelled rootLabel, or root itself when the
// label is empty or not found.
func Subtree(root *scene.Node, rootLabel string) *scene.Node {
	if root == nil || rootLabel == "" {
		return root
	}
	if n := root.Find(rootLabel); n != nil {
		return n
	}
	return root
}

// AssetSources lists the distinct asset sources under root in traversal
// order. Asset nodes are not descended into.
func AssetSources(root *scene.Node) []string {
	if root == nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, n := range root.AssetNodes() {
		if !seen[n.AssetSource] {
			seen[n.AssetSource] = true
			out = append(out, n.AssetSource)
		}
	}
	return out
}

// Encode serializes the subtree selected by rootLabel. Asset nodes become
// leaves referencing names[source]; a nil names map keeps the source
// itself as the reference.
func Encode(root *scene.Node, rootLabel string, names map[string]string) (*Document, error) {
	start := Subtree(root, rootLabel)
	if start == nil {
		return nil, fmt.Errorf("%w: no root node", ErrMalformedDocument)
	}
	n, err := encodeNode(start, names)
	if err != nil {
		return nil, err
	}
	return &Document{
		Version:   Version,
		Generator: Generator,
		RootName:  start.Name,
		Nodes:     []*Node{n},
	}, nil
}

func encodeNode(n *scene.Node, names map[string]string) (*Node, error) {
	out := &Node{
		Name:      n.Name,
		Transform: FromTransform(n.Transform),
	}
	if len(n.Metadata) > 0 {
		out.UserData = make(map[string]any, len(n.Metadata))
		for k, v := range n.Metadata {
			out.UserData[k] = v
		}
	}

	if n.HasAsset() {
		ref := n.AssetSource
		if names != nil {
			name, ok := names[n.AssetSource]
			if !ok {
				return nil, fmt.Errorf("%w: node %q: %s", ErrUnnamedAsset, n.Name, n.AssetSource)
			}
			ref = name
			out.AssetOriginalURL = n.AssetSource
		}
		out.Asset = &ref
		return out, nil
	}

	for _, c := range n.Children {
		child, err := encodeNode(c, names)
		if err != nil {
			return nil, err
		}
		out.Children = append(out.Children, child)
	}
	return out, nil
}
