package batch

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vpc-scene/internal/asset"
	"vpc-scene/internal/asset/assettest"
	"vpc-scene/internal/bundle"
	"vpc-scene/internal/catalog"
	"vpc-scene/internal/ctxlog"
	"vpc-scene/internal/interchange"
	"vpc-scene/internal/mathutil"
	"vpc-scene/internal/room"
	"vpc-scene/internal/scene"
)

const (
	chairURI = "https://cdn.example.com/chair.glb"
	lampURI  = "https://cdn.example.com/lamp.glb"
)

const room1 = `{"configuration":{"content":{"entities":[
  {"id":"e1","ref":"chair","c":{"WorldTransformComponent":{"p":{"x":1000,"y":0,"z":0}},
    "Connections":{"connections":["to floor"]}}},
  {"id":"e2","ref":"chair"},
  {"id":"e3","ref":"ghost"},
  {"id":"e4","ref":"lamp"},
  {"id":"e5","ref":"marker"}
]}}}`

const room3 = `{"configuration":{"content":{"entities":[{"id":"x1","ref":"chair"}]}}}`

func setup(t *testing.T) (Config, []Job, *asset.CountingFetcher) {
	t.Helper()
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
		return p
	}

	remote := &asset.CountingFetcher{Fetcher: asset.MapFetcher{
		chairURI: assettest.Box("chair", mathutil.Vec3{-0.3, -0.05, -0.3}, mathutil.Vec3{0.3, 0.9, 0.3}),
	}}
	cfg := Config{
		Catalog: catalog.New(
			&catalog.Product{ID: "chair", AssetURI: chairURI},
			&catalog.Product{ID: "lamp", AssetURI: lampURI},
			&catalog.Product{ID: "marker"},
		),
		Fetcher:   asset.NewMemo(remote),
		OutputDir: filepath.Join(dir, "out"),
		RootName:  "Products",
		Workers:   2,
		Now:       func() time.Time { return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) },
		Preview:   func(*scene.Node, *interchange.Document) ([]byte, error) { return []byte("img"), nil },
	}
	jobs := []Job{
		{Configuration: write("room1.json", room1)},
		{Name: "broken", Configuration: write("room2.json", `{}`)},
		{Configuration: write("room3.json", room3)},
		{Configuration: filepath.Join(dir, "absent.json")},
	}
	return cfg, jobs, remote
}

func TestRun(t *testing.T) {
	cfg, jobs, remote := setup(t)
	ctx := ctxlog.WithLogger(context.Background(), ctxlog.Discard())
	results := Run(ctx, cfg, jobs)
	require.Len(t, results, 4)

	r1 := results[0]
	require.True(t, r1.Success, r1.Error)
	assert.Equal(t, "room1", r1.Name)
	assert.Equal(t, 4, r1.Instances)
	assert.Equal(t, 1, r1.Assets)
	assert.Len(t, r1.Warnings, 2)
	assert.Equal(t, filepath.Join(cfg.OutputDir, "room1.zip"), r1.Bundle)

	assert.False(t, results[1].Success)
	assert.Equal(t, "broken", results[1].Name)
	assert.Contains(t, results[1].Error, "malformed")

	assert.True(t, results[2].Success)
	assert.False(t, results[3].Success)
	assert.Equal(t, 2, Failed(results))

	// One download per asset across staging, packing and jobs.
	assert.Equal(t, 1, remote.Count(chairURI))

	b, err := bundle.ReadFile(r1.Bundle)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-01T00:00:00Z", b.Document.ExportedAt)
	assert.Equal(t, []byte("img"), b.Preview)
	root := b.Document.Root()
	require.NotNil(t, root)
	assert.Equal(t, "Products", root.Name)
	var names []string
	for _, c := range root.Children {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"e1", "e2", "e5"}, names)

	// e1 is floor-attached and lifted by the asset's sunken base.
	e1 := root.Children[0].Transform.Value()
	assert.InDelta(t, 1.0, e1.Position[0], 1e-9)
	assert.InDelta(t, 0.05, e1.Position[1], 1e-9)
	e2 := root.Children[1].Transform.Value()
	assert.InDelta(t, 0, e2.Position[1], 1e-12)
}

func TestRunCancelled(t *testing.T) {
	cfg, jobs, remote := setup(t)
	ctx, cancel := context.WithCancel(ctxlog.WithLogger(context.Background(), ctxlog.Discard()))
	cancel()
	results := Run(ctx, cfg, jobs)
	assert.Equal(t, len(jobs), Failed(results))
	assert.Equal(t, 0, remote.Total())
}

func TestWriteManifest(t *testing.T) {
	dir := t.TempDir()
	results := []Result{
		{Name: "room1", Configuration: "/in/room1.json", Bundle: filepath.Join(dir, "room1.zip"), Instances: 3, Shell: 4, Assets: 2, Warnings: []string{"w"}, Success: true},
		{Name: "room2", Configuration: "/in/room2.json", Error: "boom"},
	}
	path := filepath.Join(dir, "manifest.json")
	require.NoError(t, WriteManifest(path, results))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var entries []ManifestEntry
	require.NoError(t, json.Unmarshal(data, &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "room1.zip", entries[0].Bundle)
	assert.Equal(t, 4, entries[0].Shell)
	assert.Equal(t, []string{"w"}, entries[0].Warnings)
	assert.Empty(t, entries[1].Bundle)
	assert.Equal(t, "boom", entries[1].Error)
}

const furnishedRoom = `{"configuration":{"content":{"entities":[
  {"id":"k1","ref":"kvadrat-corner","c":{"kv-id":{"id":"p1"},"WorldTransformComponent":{"p":{"x":0,"y":0,"z":0}}}},
  {"id":"k2","ref":"kvadrat-corner","c":{"kv-id":{"id":"p2"},"WorldTransformComponent":{"p":{"x":4000,"y":0,"z":0}}}},
  {"id":"k3","ref":"kvadrat-corner","c":{"kv-id":{"id":"p3"},"WorldTransformComponent":{"p":{"x":4000,"y":0,"z":3000}}}},
  {"id":"floor","ref":"kvadrat-floor","c":{"kv-id":{"id":"s1"},"kv-surface":{"cornerPersistentIds":["p1","p2","p3"]},
    "kv-material":{"colorCode":"#D0CCC4"}}},
  {"id":"door","ref":"kvadrat-door","c":{"kv-id":{"id":"o1"},"kv-parametric-object":{"size":{"X":900,"Y":2100}},
    "WorldTransformComponent":{"p":{"x":2000,"y":1050,"z":0}}}},
  {"id":"chair1","ref":"chair","c":{"Connections":{"connections":["to floor"]}}}
]}}}`

func TestExportRoomShell(t *testing.T) {
	cfg, _, _ := setup(t)
	bg := uint32(0xffdb00)
	cfg.Background = &bg
	path := filepath.Join(t.TempDir(), "furnished.json")
	require.NoError(t, os.WriteFile(path, []byte(furnishedRoom), 0o644))

	res := Export(ctxlog.WithLogger(context.Background(), ctxlog.Discard()), cfg, Job{Configuration: path})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 1, res.Instances)
	assert.Equal(t, 2, res.Shell)
	assert.Empty(t, res.Warnings, "shell entities are not unresolved references")

	b, err := bundle.ReadFile(res.Bundle)
	require.NoError(t, err)
	require.NotNil(t, b.Document.Scene)
	assert.Equal(t, bg, b.Document.Scene.Background.Hex)

	root := b.Document.Root()
	require.Len(t, root.Children, 2)
	assert.Equal(t, "chair1", root.Children[0].Name)
	shell := root.Children[1]
	assert.Equal(t, room.DefaultName, shell.Name)
	require.Len(t, shell.Children, 2)

	floor := shell.Children[0]
	assert.Equal(t, "s1", floor.Name)
	assert.Equal(t, "surface", floor.UserData[room.MetaKind])
	assert.Equal(t, "#d0ccc4", floor.UserData[room.MetaColor])
	var corners [][3]float64
	require.NoError(t, json.Unmarshal([]byte(floor.UserData[room.MetaCorners].(string)), &corners))
	assert.Equal(t, [][3]float64{{0, 0, 0}, {4, 0, 0}, {4, 0, -3}}, corners)

	door := shell.Children[1]
	assert.Equal(t, "opening", door.UserData[room.MetaKind])
	var size [3]float64
	require.NoError(t, json.Unmarshal([]byte(door.UserData[room.MetaSize].(string)), &size))
	assert.Equal(t, [3]float64{0.9, 2.1, room.OpeningDepth}, size)
	pos := door.Transform.Value().Position
	assert.InDelta(t, 2, pos[0], 1e-12)
	assert.InDelta(t, 1.05, pos[1], 1e-12)
}
