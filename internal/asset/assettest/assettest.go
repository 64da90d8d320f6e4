// Package assettest builds small glTF fixtures for tests.
package assettest

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"math"

	"vpc-scene/internal/asset"
	"vpc-scene/internal/mathutil"
)

// Box returns a GLB with one node called name holding a cube mesh that
// spans lo..hi. The POSITION accessor declares min/max.
func Box(name string, lo, hi mathutil.Vec3) []byte {
	bin := corners(lo, hi)
	doc := document(name, nil, len(bin), &lo, &hi, "")
	return asset.EncodeGLB(mustJSON(doc), bin)
}

// BoxJSON returns the same cube as a glTF JSON document with an embedded
// base64 buffer and no accessor min/max, so bounds come from vertex data.
func BoxJSON(name string, lo, hi mathutil.Vec3) []byte {
	bin := corners(lo, hi)
	uri := "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(bin)
	return mustJSON(document(name, nil, len(bin), nil, nil, uri))
}

// Offset returns a GLB whose root node is translated by t and holds the
// cube as a child node named name.
func Offset(name string, t mathutil.Vec3, lo, hi mathutil.Vec3) []byte {
	bin := corners(lo, hi)
	doc := document(name, &t, len(bin), &lo, &hi, "")
	return asset.EncodeGLB(mustJSON(doc), bin)
}

func corners(lo, hi mathutil.Vec3) []byte {
	box := mathutil.Box3{Min: lo, Max: hi}
	out := make([]byte, 0, 8*12)
	for _, c := range box.Corners() {
		for k := 0; k < 3; k++ {
			out = binary.LittleEndian.AppendUint32(out, math.Float32bits(float32(c[k])))
		}
	}
	return out
}

func document(name string, parentT *mathutil.Vec3, binLen int, lo, hi *mathutil.Vec3, uri string) map[string]any {
	accessor := map[string]any{
		"bufferView":    0,
		"componentType": 5126,
		"count":         8,
		"type":          "VEC3",
	}
	if lo != nil && hi != nil {
		accessor["min"] = lo[:]
		accessor["max"] = hi[:]
	}
	buffer := map[string]any{"byteLength": binLen}
	if uri != "" {
		buffer["uri"] = uri
	}

	meshNode := map[string]any{"name": name, "mesh": 0}
	nodes := []any{meshNode}
	roots := []int{0}
	if parentT != nil {
		nodes = []any{
			map[string]any{"name": name + "_root", "translation": parentT[:], "children": []int{1}},
			meshNode,
		}
	}

	return map[string]any{
		"asset":  map[string]any{"version": "2.0", "generator": "assettest"},
		"scene":  0,
		"scenes": []any{map[string]any{"nodes": roots}},
		"nodes":  nodes,
		"meshes": []any{map[string]any{
			"name":       name + "_mesh",
			"primitives": []any{map[string]any{"attributes": map[string]int{"POSITION": 0}, "material": 0}},
		}},
		"materials": []any{map[string]any{
			"name":                 "paint",
			"pbrMetallicRoughness": map[string]any{"baseColorFactor": []float64{0.2, 0.4, 0.6, 1}},
		}},
		"accessors":   []any{accessor},
		"bufferViews": []any{map[string]any{"buffer": 0, "byteLength": binLen}},
		"buffers":     []any{buffer},
	}
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
