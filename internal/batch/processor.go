// Package batch exports many configurations against one catalog with a
// worker pool, one bundle archive per configuration.
package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"vpc-scene/internal/asset"
	"vpc-scene/internal/bundle"
	"vpc-scene/internal/catalog"
	"vpc-scene/internal/ctxlog"
	"vpc-scene/internal/placement"
	"vpc-scene/internal/room"
	"vpc-scene/internal/stage"
	"vpc-scene/internal/vpc"
)

// Config holds all shared resources for a batch run.
type Config struct {
	Catalog *catalog.Catalog
	// Fetcher serves asset bytes for both staging and packing. Wrap it in
	// an asset.Memo so each asset is downloaded once per run.
	Fetcher       asset.Fetcher
	OutputDir     string
	RootName      string
	Entities      vpc.Options
	GroundEpsilon float64
	Workers       int
	// Concurrency bounds asset loads within one job.
	Concurrency int
	Preview     bundle.PreviewFunc
	Now         func() time.Time
	// Background is recorded in every bundle document when set.
	Background *uint32
	// RoomName labels the room shell group; room.DefaultName when empty.
	RoomName string
}

// Job is one configuration to export.
type Job struct {
	// Name becomes the archive name; the configuration's base name when empty.
	Name          string
	Configuration string
}

func (j Job) name() string {
	if j.Name != "" {
		return j.Name
	}
	base := filepath.Base(j.Configuration)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Result holds the outcome of exporting one configuration.
type Result struct {
	Name          string
	Configuration string
	Bundle        string
	Instances     int
	// Shell counts room surfaces, openings and obstacles.
	Shell    int
	Assets   int
	Warnings []string
	Success  bool
	Error    string
}

// Run exports all jobs using a worker pool. Results are in job order.
func Run(ctx context.Context, cfg Config, jobs []Job) []Result {
	log := ctxlog.FromContext(ctx)
	total := len(jobs)
	results := make([]Result, total)
	var processed atomic.Int64

	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	start := time.Now()

	// Progress reporter
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				p := processed.Load()
				if p > 0 {
					elapsed := time.Since(start).Seconds()
					log.Info("export progress", "done", p, "total", total, "rate", fmt.Sprintf("%.1f/s", float64(p)/elapsed))
				}
			}
		}
	}()

	// Worker pool
	jobChan := make(chan int, workers*2)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobChan {
				results[idx] = Export(ctx, cfg, jobs[idx])
				processed.Add(1)
			}
		}()
	}

	// Send work
	for i := range jobs {
		jobChan <- i
	}
	close(jobChan)

	wg.Wait()
	close(done)

	log.Info("export finished", "jobs", total, "elapsed", time.Since(start).Round(time.Millisecond))
	return results
}

// Export runs the whole pipeline for one configuration: parse, resolve,
// stage, add the room shell, pack and write the archive.
func Export(ctx context.Context, cfg Config, job Job) Result {
	res := Result{Name: job.name(), Configuration: job.Configuration}
	log := ctxlog.FromContext(ctx).With("job", res.Name)
	ctx = ctxlog.WithLogger(ctx, log)

	fail := func(err error) Result {
		log.Error("export failed", "err", err)
		res.Error = err.Error()
		return res
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	entities, warnings, err := vpc.ParseFile(ctx, job.Configuration, cfg.Entities)
	if err != nil {
		return fail(err)
	}
	instances, unresolved := placement.Resolve(ctx, entities, cfg.Catalog)
	warnings = append(warnings, unresolved...)
	res.Instances = len(instances)

	root, staged, err := stage.Build(ctx, instances, asset.NewLoader(cfg.Fetcher), stage.Options{
		RootName:      cfg.RootName,
		GroundEpsilon: cfg.GroundEpsilon,
		Concurrency:   cfg.Concurrency,
	})
	if err != nil {
		return fail(err)
	}
	warnings = append(warnings, staged...)

	shell, skipped := room.Build(ctx, entities)
	warnings = append(warnings, skipped...)
	if !shell.Empty() {
		root.Add(shell.Node(cfg.RoomName))
		res.Shell = len(shell.Surfaces) + len(shell.Elements)
	}
	for _, w := range warnings {
		res.Warnings = append(res.Warnings, w.Error())
	}

	b, err := bundle.Pack(ctx, root, root.Name, cfg.Fetcher, bundle.Options{
		Concurrency: cfg.Concurrency,
		Now:         cfg.Now,
		Background:  cfg.Background,
		Preview:     cfg.Preview,
	})
	if err != nil {
		return fail(err)
	}
	res.Assets = len(b.Files)

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return fail(fmt.Errorf("batch: %w", err))
	}
	out := filepath.Join(cfg.OutputDir, res.Name+".zip")
	if err := b.WriteFile(out); err != nil {
		return fail(err)
	}
	res.Bundle = out
	res.Success = true
	log.Debug("exported", "bundle", out, "instances", res.Instances, "assets", res.Assets, "warnings", len(res.Warnings))
	return res
}
