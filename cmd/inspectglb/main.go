package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"vpc-scene/internal/asset"
	"vpc-scene/internal/mathutil"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: inspectglb file.glb|url...")
		os.Exit(2)
	}

	remote := asset.NewHTTPFetcher(30*time.Second, 0)
	defer remote.Close()
	loader := asset.NewLoader(&asset.Router{Local: &asset.FileFetcher{}, Remote: remote})

	for _, arg := range os.Args[1:] {
		m, err := loader.Load(context.Background(), arg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Parse error %s: %v\n", arg, err)
			continue
		}
		fmt.Printf("\n=== %s (%s, %d bytes, nodes=%d, materials=%d) ===\n",
			arg, m.ContentType, m.Size, m.NodeCount(), len(m.Materials))
		if m.Generator != "" {
			fmt.Printf("  generator: %s\n", m.Generator)
		}
		printBox("  bounds", m.Bounds)

		meshes := 0
		for _, r := range m.Roots {
			r.Walk(mathutil.Mat4Identity(), func(n *asset.ModelNode, _ mathutil.Mat4) bool {
				if n.HasMesh {
					meshes++
				}
				return true
			})
		}
		fmt.Printf("  meshes: %d\n", meshes)
		for _, r := range m.Roots {
			printNode(r, 1)
		}

		for i, mat := range m.Materials {
			c := mat.BaseColor
			fmt.Printf("  Material[%d] %q color=(%.2f, %.2f, %.2f, %.2f)\n", i, mat.Name, c[0], c[1], c[2], c[3])
		}
	}
}

func printNode(n *asset.ModelNode, depth int) {
	t := n.Matrix.Decompose()
	line := fmt.Sprintf("%s%s pos=(%.3f, %.3f, %.3f) scale=(%.3f, %.3f, %.3f)",
		strings.Repeat("  ", depth), n.Name,
		t.Position[0], t.Position[1], t.Position[2], t.Scale[0], t.Scale[1], t.Scale[2])
	if n.HasMesh {
		line += fmt.Sprintf(" mesh=%q materials=%v", n.Mesh, n.Materials)
	}
	fmt.Println(line)
	if n.HasMesh {
		printBox(strings.Repeat("  ", depth+1)+"mesh bounds", n.Bounds)
	}
	for _, c := range n.Children {
		printNode(c, depth+1)
	}
}

func printBox(label string, b mathutil.Box3) {
	if b.IsEmpty() {
		fmt.Printf("%s: empty\n", label)
		return
	}
	s := b.Size()
	fmt.Printf("%s: min=(%.3f, %.3f, %.3f) max=(%.3f, %.3f, %.3f) size=%.3f x %.3f x %.3f\n",
		label, b.Min[0], b.Min[1], b.Min[2], b.Max[0], b.Max[1], b.Max[2], s[0], s[1], s[2])
}
