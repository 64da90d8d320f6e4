package asset

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// glTF 2.0 JSON schema, restricted to what bounds and hierarchy need.
type gltfDocument struct {
	Asset       gltfAsset        `json:"asset"`
	Scene       *int             `json:"scene,omitempty"`
	Scenes      []gltfScene      `json:"scenes,omitempty"`
	Nodes       []gltfNode       `json:"nodes,omitempty"`
	Meshes      []gltfMesh       `json:"meshes,omitempty"`
	Accessors   []gltfAccessor   `json:"accessors,omitempty"`
	BufferViews []gltfBufferView `json:"bufferViews,omitempty"`
	Buffers     []gltfBuffer     `json:"buffers,omitempty"`
	Materials   []gltfMaterial   `json:"materials,omitempty"`
}

type gltfAsset struct {
	Version   string `json:"version"`
	Generator string `json:"generator,omitempty"`
}

type gltfScene struct {
	Name  string `json:"name,omitempty"`
	Nodes []int  `json:"nodes,omitempty"`
}

type gltfNode struct {
	Name        string       `json:"name,omitempty"`
	Children    []int        `json:"children,omitempty"`
	Mesh        *int         `json:"mesh,omitempty"`
	Matrix      *[16]float64 `json:"matrix,omitempty"`
	Translation *[3]float64  `json:"translation,omitempty"`
	Rotation    *[4]float64  `json:"rotation,omitempty"`
	Scale       *[3]float64  `json:"scale,omitempty"`
}

type gltfMesh struct {
	Name       string          `json:"name,omitempty"`
	Primitives []gltfPrimitive `json:"primitives"`
}

type gltfPrimitive struct {
	Attributes map[string]int `json:"attributes"`
	Indices    *int           `json:"indices,omitempty"`
	Material   *int           `json:"material,omitempty"`
	Mode       *int           `json:"mode,omitempty"`
}

type gltfAccessor struct {
	BufferView    *int      `json:"bufferView,omitempty"`
	ByteOffset    int       `json:"byteOffset,omitempty"`
	ComponentType int       `json:"componentType"`
	Count         int       `json:"count"`
	Type          string    `json:"type"`
	Max           []float64 `json:"max,omitempty"`
	Min           []float64 `json:"min,omitempty"`
}

const gltfComponentTypeFloat = 5126

type gltfBufferView struct {
	Buffer     int  `json:"buffer"`
	ByteOffset int  `json:"byteOffset,omitempty"`
	ByteLength int  `json:"byteLength"`
	ByteStride *int `json:"byteStride,omitempty"`
	Target     *int `json:"target,omitempty"`
}

type gltfBuffer struct {
	URI        string `json:"uri,omitempty"`
	ByteLength int    `json:"byteLength"`

	data []byte
}

type gltfMaterial struct {
	Name                 string                    `json:"name,omitempty"`
	PbrMetallicRoughness *gltfPbrMetallicRoughness `json:"pbrMetallicRoughness,omitempty"`
}

type gltfPbrMetallicRoughness struct {
	BaseColorFactor *[4]float64 `json:"baseColorFactor,omitempty"`
}

// GLB container constants.
const (
	glbMagic      = 0x46546C67 // "glTF"
	glbVersion    = 2
	glbHeaderSize = 12
	glbChunkJSON  = 0x4E4F534A // "JSON"
	glbChunkBIN   = 0x004E4942 // "BIN\0"
)

// splitGLB returns the JSON and optional BIN chunk of a binary glTF.
func splitGLB(raw []byte) (jsonChunk, bin []byte, err error) {
	if len(raw) < glbHeaderSize {
		return nil, nil, fmt.Errorf("glb: truncated header")
	}
	if binary.LittleEndian.Uint32(raw[0:4]) != glbMagic {
		return nil, nil, fmt.Errorf("glb: invalid magic")
	}
	if v := binary.LittleEndian.Uint32(raw[4:8]); v != glbVersion {
		return nil, nil, fmt.Errorf("glb: unsupported version %d", v)
	}
	total := int(binary.LittleEndian.Uint32(raw[8:12]))
	if total > len(raw) {
		return nil, nil, fmt.Errorf("glb: declared length %d exceeds %d bytes", total, len(raw))
	}

	off := glbHeaderSize
	for off+8 <= total {
		size := int(binary.LittleEndian.Uint32(raw[off:]))
		typ := binary.LittleEndian.Uint32(raw[off+4:])
		off += 8
		if size < 0 || off+size > total {
			return nil, nil, fmt.Errorf("glb: truncated chunk at %d", off-8)
		}
		switch typ {
		case glbChunkJSON:
			if jsonChunk == nil {
				jsonChunk = raw[off : off+size]
			}
		case glbChunkBIN:
			if bin == nil {
				bin = raw[off : off+size]
			}
		}
		off += size
	}
	if jsonChunk == nil {
		return nil, nil, fmt.Errorf("glb: missing JSON chunk")
	}
	return jsonChunk, bin, nil
}

// EncodeGLB packs a glTF JSON document and an optional binary buffer into
// a GLB container. Chunks are padded to 4-byte alignment.
func EncodeGLB(jsonChunk, bin []byte) []byte {
	jsonPad := pad4(len(jsonChunk))
	binPad := pad4(len(bin))
	total := glbHeaderSize + 8 + len(jsonChunk) + jsonPad
	if len(bin) > 0 {
		total += 8 + len(bin) + binPad
	}

	var buf bytes.Buffer
	buf.Grow(total)
	w32 := func(v uint32) {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], v)
		buf.Write(b[:])
	}
	w32(glbMagic)
	w32(glbVersion)
	w32(uint32(total))

	w32(uint32(len(jsonChunk) + jsonPad))
	w32(glbChunkJSON)
	buf.Write(jsonChunk)
	buf.Write(bytes.Repeat([]byte{' '}, jsonPad))

	if len(bin) > 0 {
		w32(uint32(len(bin) + binPad))
		w32(glbChunkBIN)
		buf.Write(bin)
		buf.Write(make([]byte, binPad))
	}
	return buf.Bytes()
}

func pad4(n int) int {
	return (4 - n%4) % 4
}

func decodeDocument(jsonChunk, bin []byte) (*gltfDocument, error) {
	var doc gltfDocument
	if err := json.Unmarshal(jsonChunk, &doc); err != nil {
		return nil, fmt.Errorf("gltf: decode json: %w", err)
	}
	if !strings.HasPrefix(doc.Asset.Version, "2") {
		return nil, fmt.Errorf("gltf: unsupported version %q", doc.Asset.Version)
	}
	for i := range doc.Buffers {
		b := &doc.Buffers[i]
		switch {
		case b.URI == "" && i == 0:
			b.data = bin
		case strings.HasPrefix(b.URI, "data:"):
			comma := strings.IndexByte(b.URI, ',')
			if comma < 0 || !strings.Contains(b.URI[:comma], ";base64") {
				return nil, fmt.Errorf("gltf: buffer %d: unsupported data uri", i)
			}
			data, err := base64.StdEncoding.DecodeString(b.URI[comma+1:])
			if err != nil {
				return nil, fmt.Errorf("gltf: buffer %d: %w", i, err)
			}
			b.data = data
		}
		// External buffers stay unloaded; bounds then rely on accessor min/max.
	}
	return &doc, nil
}

// positionBounds returns the bounding box of a POSITION accessor, from its
// declared min/max when present, otherwise by reading the float data.
func (d *gltfDocument) positionBounds(idx int) (lo, hi [3]float64, ok bool) {
	if idx < 0 || idx >= len(d.Accessors) {
		return lo, hi, false
	}
	acc := d.Accessors[idx]
	if acc.Type != "VEC3" || acc.Count <= 0 {
		return lo, hi, false
	}
	if len(acc.Min) == 3 && len(acc.Max) == 3 {
		copy(lo[:], acc.Min)
		copy(hi[:], acc.Max)
		return lo, hi, true
	}
	if acc.ComponentType != gltfComponentTypeFloat || acc.BufferView == nil || *acc.BufferView < 0 || *acc.BufferView >= len(d.BufferViews) {
		return lo, hi, false
	}
	view := d.BufferViews[*acc.BufferView]
	if view.Buffer < 0 || view.Buffer >= len(d.Buffers) || d.Buffers[view.Buffer].data == nil {
		return lo, hi, false
	}
	data := d.Buffers[view.Buffer].data
	stride := 12
	if view.ByteStride != nil && *view.ByteStride >= 12 {
		stride = *view.ByteStride
	}
	base := view.ByteOffset + acc.ByteOffset
	last := base + (acc.Count-1)*stride + 12
	if base < 0 || last > len(data) || last > view.ByteOffset+view.ByteLength {
		return lo, hi, false
	}

	for k := 0; k < 3; k++ {
		lo[k] = math.Inf(1)
		hi[k] = math.Inf(-1)
	}
	for i := 0; i < acc.Count; i++ {
		off := base + i*stride
		for k := 0; k < 3; k++ {
			v := float64(math.Float32frombits(binary.LittleEndian.Uint32(data[off+4*k:])))
			if v < lo[k] {
				lo[k] = v
			}
			if v > hi[k] {
				hi[k] = v
			}
		}
	}
	return lo, hi, true
}
