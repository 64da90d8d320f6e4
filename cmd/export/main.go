package main

import (
	"context"
	"flag"
	"fmt"
	"image/color"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"vpc-scene/internal/asset"
	"vpc-scene/internal/batch"
	"vpc-scene/internal/catalog"
	"vpc-scene/internal/config"
	"vpc-scene/internal/ctxlog"
	"vpc-scene/internal/preview"
	"vpc-scene/internal/vpc"
)

func main() {
	// CLI flags
	configFile := flag.String("config", "", "Path to config file (.json, .toml, .yaml)")
	baseDir := flag.String("base", "", "Base directory for relative paths")
	catalogFile := flag.String("catalog", "", "Path to catalog.json")
	assetRoot := flag.String("assets", "", "Directory relative asset URIs resolve against")
	outputDir := flag.String("output", "", "Output directory for bundles and manifest.json")
	rootName := flag.String("root", "", "Label of the exported subtree (default: Products)")
	workers := flag.Int("workers", 0, "Number of worker goroutines (default: NumCPU)")
	withPreview := flag.Bool("preview", false, "Store a preview.webp in each bundle")
	logLevel := flag.String("log-level", "", "debug, info, warn or error")
	logFormat := flag.String("log-format", "", "text or json")

	flag.Parse()

	// Load config
	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	// CLI flags override config file
	if err := cfg.Resolve(config.Flags{
		BaseDir:        *baseDir,
		Catalog:        *catalogFile,
		Configurations: flag.Args(),
		AssetRoot:      *assetRoot,
		OutputDir:      *outputDir,
		RootName:       *rootName,
		Workers:        *workers,
		Preview:        *withPreview,
		LogLevel:       *logLevel,
		LogFormat:      *logFormat,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if cfg.Catalog == "" || len(cfg.Configurations) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: export -catalog catalog.json [flags] config.json...")
		os.Exit(2)
	}

	logger := ctxlog.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = ctxlog.WithLogger(ctx, logger)

	floor, err := cfg.FloorMatcher()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	wall, err := cfg.WallMatcher()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Load catalog
	cat, err := catalog.ParseFile(ctx, cfg.Catalog, catalog.Options{WallMountedTypes: wall})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading catalog: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Catalog: %d products\n", cat.Len())

	remote := asset.NewHTTPFetcher(cfg.HTTPTimeout.Std(), cfg.MaxAssetSize)
	defer remote.Close()
	fetcher := asset.NewMemo(&asset.Router{
		Local:  &asset.FileFetcher{Root: cfg.AssetRoot, MaxSize: cfg.MaxAssetSize},
		Remote: remote,
	})

	background, err := cfg.BackgroundColor()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	batchCfg := batch.Config{
		Catalog:       cat,
		Fetcher:       fetcher,
		OutputDir:     cfg.OutputDir,
		RootName:      cfg.RootName,
		Entities:      vpc.Options{FloorConnectors: floor},
		GroundEpsilon: cfg.GroundEpsilon,
		Workers:       cfg.Workers,
		Background:    &background,
	}
	if cfg.Preview.Enabled {
		filter, err := preview.Filter(cfg.Preview.Filter)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		opts := preview.Options{
			Size:        cfg.Preview.Size,
			Width:       cfg.Preview.Width,
			Height:      cfg.Preview.Height,
			Supersample: cfg.Preview.Supersample,
			Filter:      filter,
			Background:  color.NRGBA{uint8(background >> 16), uint8(background >> 8), uint8(background), 0xff},
		}
		if cfg.Preview.Backdrop != "" {
			img, err := preview.LoadBackdrop(cfg.Preview.Backdrop)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: backdrop: %v\n", err)
			} else {
				opts.Backdrop = img
			}
		}
		batchCfg.Preview = preview.Func(opts)
	}

	fmt.Printf("Configurations: %d, Workers: %d\n", len(cfg.Configurations), cfg.Workers)
	fmt.Printf("Output: %s\n", cfg.OutputDir)
	fmt.Println("------------------------------------------------------------")

	start := time.Now()

	jobs := make([]batch.Job, len(cfg.Configurations))
	for i, c := range cfg.Configurations {
		jobs[i] = batch.Job{Configuration: c}
	}
	results := batch.Run(ctx, batchCfg, jobs)

	elapsed := time.Since(start)
	fmt.Println("------------------------------------------------------------")
	fmt.Printf("Done in %.1fs\n", elapsed.Seconds())

	failed := batch.Failed(results)
	fmt.Printf("Exported: %d/%d (%d assets downloaded)\n", len(results)-failed, len(results), fetcher.Len())

	if failed > 0 {
		fmt.Printf("\nFailed (%d):\n", failed)
		for _, r := range results {
			if !r.Success {
				fmt.Printf("  %s: %s\n", r.Name, r.Error)
			}
		}
	}

	// Write manifest
	manifestPath := filepath.Join(cfg.OutputDir, "manifest.json")
	os.MkdirAll(cfg.OutputDir, 0755)
	if err := batch.WriteManifest(manifestPath, results); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: manifest write failed: %v\n", err)
	} else {
		fmt.Printf("Manifest: %s\n", manifestPath)
	}

	if failed > 0 {
		os.Exit(1)
	}
}
