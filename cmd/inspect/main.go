package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"vpc-scene/internal/asset"
	"vpc-scene/internal/bundle"
	"vpc-scene/internal/ctxlog"
	"vpc-scene/internal/interchange"
	"vpc-scene/internal/scene"
)

func main() {
	internal := flag.Bool("internal", false, "Also print nodes expanded from asset content")
	logLevel := flag.String("log-level", "warn", "debug, info, warn or error")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: inspect [-internal] bundle.zip")
		os.Exit(2)
	}
	path := flag.Arg(0)

	b, err := bundle.ReadFile(path)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	doc := b.Document
	fmt.Printf("Bundle: %s\n", path)
	fmt.Printf("  version=%d generator=%q exportedAt=%s root=%q\n", doc.Version, doc.Generator, doc.ExportedAt, doc.RootName)
	fmt.Printf("  assets=%d preview=%v\n", len(b.Files), len(b.Preview) > 0)
	for _, name := range b.Order {
		fmt.Printf("    %s/%s (%d bytes)\n", bundle.AssetDir, name, len(b.Files[name]))
	}

	ctx := ctxlog.WithLogger(context.Background(), ctxlog.New(*logLevel, "text", os.Stderr))
	counting := &asset.CountingFetcher{Fetcher: b}
	root, err := interchange.Decode(ctx, doc, interchange.Options{
		Loader: asset.NewLoader(counting),
		Reveal: true,
	})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nScene: nodes=%d instances=%d loads=%d\n", root.Count(), len(root.RevealOrder()), counting.Total())
	root.Walk(func(n *scene.Node, depth int) bool {
		if n.Internal && !*internal {
			return false
		}
		p := n.Transform.Position
		line := fmt.Sprintf("%s%s pos=(%.3f, %.3f, %.3f)", strings.Repeat("  ", depth), label(n), p[0], p[1], p[2])
		if n.HasAsset() {
			line += " asset=" + n.AssetSource
		}
		if ref := n.Metadata[scene.MetaCatalogRef]; ref != "" {
			line += " ref=" + ref
		}
		fmt.Println(line)
		return true
	})

	if box := root.Bounds(); !box.IsEmpty() {
		s := box.Size()
		fmt.Printf("\nBounds: min=(%.3f, %.3f, %.3f) size=%.3f x %.3f x %.3f\n",
			box.Min[0], box.Min[1], box.Min[2], s[0], s[1], s[2])
	}
}

func label(n *scene.Node) string {
	if n.Name == "" {
		return "(unnamed)"
	}
	return n.Name
}
