package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"vpc-scene/internal/asset"
	"vpc-scene/internal/catalog"
	"vpc-scene/internal/config"
	"vpc-scene/internal/ctxlog"
	"vpc-scene/internal/mathutil"
	"vpc-scene/internal/placement"
	"vpc-scene/internal/room"
	"vpc-scene/internal/stage"
	"vpc-scene/internal/vpc"
)

type output struct {
	EntityID      string     `json:"entityId"`
	CatalogRef    string     `json:"catalogRef"`
	ParentID      string     `json:"parentId,omitempty"`
	AssetURI      string     `json:"assetUri,omitempty"`
	FloorAttached bool       `json:"floorAttached"`
	Position      [3]float64 `json:"position"`
	Quaternion    [4]float64 `json:"quaternion"`
	Scale         [3]float64 `json:"scale"`
}

type report struct {
	Instances []output    `json:"instances"`
	Room      *room.Shell `json:"room,omitempty"`
}

func main() {
	configFile := flag.String("config", "", "Path to config file (.json, .toml, .yaml)")
	catalogFile := flag.String("catalog", "", "Path to catalog.json")
	assetRoot := flag.String("assets", "", "Directory relative asset URIs resolve against")
	snap := flag.Bool("snap", false, "Load assets and apply ground correction")
	logLevel := flag.String("log-level", "", "debug, info, warn or error")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: resolve -catalog catalog.json [-snap] config.json")
		os.Exit(2)
	}

	var cfg config.Config
	if *configFile != "" {
		var err error
		if cfg, err = config.Load(*configFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}
	if err := cfg.Resolve(config.Flags{Catalog: *catalogFile, AssetRoot: *assetRoot, LogLevel: *logLevel}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx := ctxlog.WithLogger(context.Background(), ctxlog.New(cfg.Log.Level, cfg.Log.Format, os.Stderr))

	if err := run(ctx, cfg, flag.Arg(0), *snap); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, path string, snap bool) error {
	floor, err := cfg.FloorMatcher()
	if err != nil {
		return err
	}
	wall, err := cfg.WallMatcher()
	if err != nil {
		return err
	}
	cat, err := catalog.ParseFile(ctx, cfg.Catalog, catalog.Options{WallMountedTypes: wall})
	if err != nil {
		return err
	}
	entities, _, err := vpc.ParseFile(ctx, path, vpc.Options{FloorConnectors: floor})
	if err != nil {
		return err
	}
	instances, _ := placement.Resolve(ctx, entities, cat)
	shell, _ := room.Build(ctx, entities)

	var transforms map[int]mathutil.Transform
	if snap {
		remote := asset.NewHTTPFetcher(cfg.HTTPTimeout.Std(), cfg.MaxAssetSize)
		defer remote.Close()
		loader := asset.NewLoader(&asset.Router{
			Local:  &asset.FileFetcher{Root: cfg.AssetRoot, MaxSize: cfg.MaxAssetSize},
			Remote: remote,
		})
		root, _, err := stage.Build(ctx, instances, loader, stage.Options{GroundEpsilon: cfg.GroundEpsilon})
		if err != nil {
			return err
		}
		transforms = stage.Transforms(root)
	}

	out := make([]output, 0, len(instances))
	for i, inst := range instances {
		t := inst.Transform
		if s, ok := transforms[i]; ok {
			t = s
		}
		parent := inst.ParentID
		if parent == vpc.NoValue {
			parent = ""
		}
		out = append(out, output{
			EntityID:      inst.EntityID,
			CatalogRef:    inst.CatalogRef,
			ParentID:      parent,
			AssetURI:      inst.AssetURI,
			FloorAttached: inst.FloorAttached,
			Position:      t.Position,
			Quaternion:    t.Rotation,
			Scale:         t.Scale,
		})
	}

	rep := report{Instances: out}
	if !shell.Empty() {
		rep.Room = shell
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}
