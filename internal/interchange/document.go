// Package interchange maps live scene graphs to and from the portable
// JSON interchange document.
package interchange

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"vpc-scene/internal/mathutil"
)

// Document format identifiers.
const (
	Version   = 1
	Generator = "vpc-scene-export"
)

var (
	// ErrMalformedDocument is returned for structurally invalid documents.
	ErrMalformedDocument = errors.New("interchange: malformed document")
	// ErrInvalidAssetReference is matched by AssetRefError.
	ErrInvalidAssetReference = errors.New("interchange: invalid asset reference")
)

// Document is the top-level interchange document. Exactly one root node
// is supported; Nodes is a list for forward compatibility.
type Document struct {
	Version    int            `json:"version"`
	Generator  string         `json:"generator,omitempty"`
	ExportedAt string         `json:"exportedAt,omitempty"`
	RootName   string         `json:"rootName,omitempty"`
	Scene      *SceneSettings `json:"scene,omitempty"`
	Nodes      []*Node        `json:"nodes"`
}

// SceneSettings carries scene-wide presentation hints.
type SceneSettings struct {
	Background *Background `json:"background"`
}

// Background is a solid scene background color.
type Background struct {
	Type string `json:"type"`
	Hex  uint32 `json:"hex"`
}

// Root returns the document's root node, or nil.
func (d *Document) Root() *Node {
	if d == nil || len(d.Nodes) == 0 {
		return nil
	}
	return d.Nodes[0]
}

// Stamp records the export time.
func (d *Document) Stamp(t time.Time) {
	d.ExportedAt = t.UTC().Format(time.RFC3339)
}

// Node is one serialized scene node. A node with Asset set is a leaf
// whose content is re-expanded from the asset on load.
type Node struct {
	Name             string         `json:"name"`
	Transform        Transform      `json:"transform"`
	Asset            *string        `json:"asset,omitempty"`
	AssetOriginalURL string         `json:"assetOriginalUrl,omitempty"`
	UserData         map[string]any `json:"userData,omitempty"`
	Children         []*Node        `json:"children,omitempty"`
}

// Transform is the serialized transform. Missing fields read as identity.
type Transform struct {
	Position   *[3]float64 `json:"position"`
	Quaternion *[4]float64 `json:"quaternion"`
	Scale      *[3]float64 `json:"scale"`
}

// FromTransform fills every field.
func FromTransform(t mathutil.Transform) Transform {
	p := [3]float64(t.Position)
	q := [4]float64(t.Rotation)
	s := [3]float64(t.Scale)
	return Transform{Position: &p, Quaternion: &q, Scale: &s}
}

// Value returns the transform with missing fields set to identity.
func (t Transform) Value() mathutil.Transform {
	out := mathutil.IdentityTransform()
	if t.Position != nil {
		out.Position = *t.Position
	}
	if t.Quaternion != nil {
		out.Rotation = *t.Quaternion
	}
	if t.Scale != nil {
		out.Scale = *t.Scale
	}
	return out
}

// ReadDocument decodes a document from r.
func ReadDocument(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return &doc, nil
}

// Marshal encodes the document as indented JSON.
func (d *Document) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("interchange: marshal document: %w", err)
	}
	return data, nil
}

// AssetRefError reports a node whose asset reference cannot be turned
// into a loadable path.
type AssetRefError struct {
	Node string
	Ref  string
}

func (e *AssetRefError) Error() string {
	return fmt.Sprintf("interchange: node %q: invalid asset reference %q", e.Node, e.Ref)
}

// Is matches both ErrInvalidAssetReference and ErrMalformedDocument.
func (e *AssetRefError) Is(target error) bool {
	return target == ErrInvalidAssetReference || target == ErrMalformedDocument
}
