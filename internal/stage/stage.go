// Package stage builds the live scene graph for a set of resolved
// placements. It stands in for the renderer: it loads each asset once,
// gives every placement its own instance, and runs the post-load ground
// correction that needs real geometry.
package stage

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"vpc-scene/internal/asset"
	"vpc-scene/internal/assetcache"
	"vpc-scene/internal/ctxlog"
	"vpc-scene/internal/mathutil"
	"vpc-scene/internal/placement"
	"vpc-scene/internal/scene"
)

// DefaultRootName names the group every placement is added to.
const DefaultRootName = "Products"

// Options controls scene building.
type Options struct {
	// RootName labels the group node; DefaultRootName when empty.
	RootName string
	// GroundEpsilon is the snapping tolerance; placement.DefaultGroundEpsilon
	// when zero or negative.
	GroundEpsilon float64
	// Style, when set, is applied to each instance's own materials.
	Style *[4]float64
	// Hidden leaves instances invisible so the caller can reveal them in
	// RevealOrder.
	Hidden bool
	// Concurrency bounds parallel asset loads; 0 means 8.
	Concurrency int
}

func (o Options) rootName() string {
	if o.RootName == "" {
		return DefaultRootName
	}
	return o.RootName
}

func (o Options) epsilon() float64 {
	if o.GroundEpsilon <= 0 {
		return placement.DefaultGroundEpsilon
	}
	return o.GroundEpsilon
}

// Build creates one node per instance under a root group, in instance
// order. A placement whose asset fails to load is left out and reported in
// the returned warnings; placeholders stay in the scene without a visual.
// Only cancellation of ctx is fatal.
func Build(ctx context.Context, instances []placement.Instance, loader asset.Loader, opts Options) (*scene.Node, []error, error) {
	if loader == nil {
		return nil, nil, fmt.Errorf("stage: build: no asset loader")
	}
	log := ctxlog.FromContext(ctx)

	root := scene.New(opts.rootName())
	nodes := make([]*scene.Node, len(instances))
	for i, inst := range instances {
		n := scene.New(inst.EntityID)
		n.Transform = inst.Transform
		n.SetMeta(scene.MetaEntityID, inst.EntityID)
		n.SetMeta(scene.MetaCatalogRef, inst.CatalogRef)
		n.SetPlacement(i)
		nodes[i] = n
	}

	cache := assetcache.New(loader)
	failed := make([]error, len(instances))
	limit := opts.Concurrency
	if limit <= 0 {
		limit = 8
	}
	eps := opts.epsilon()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, inst := range instances {
		if inst.Placeholder() {
			continue
		}
		g.Go(func() error {
			m, err := cache.Resolve(gctx, inst.AssetURI)
			if err == nil {
				err = attach(nodes[i], inst, m, opts, eps)
			}
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				failed[i] = fmt.Errorf("stage: entity %s: %w", inst.EntityID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("stage: build: %w", err)
	}

	var warnings []error
	for i, n := range nodes {
		if failed[i] != nil {
			log.Warn("failed to load model", "entity", instances[i].EntityID, "uri", instances[i].AssetURI, "err", failed[i])
			warnings = append(warnings, failed[i])
			continue
		}
		root.Add(n)
	}
	log.Debug("scene staged", "instances", len(instances), "nodes", len(root.Children), "loads", cache.Loads())
	return root, warnings, nil
}

func attach(n *scene.Node, inst placement.Instance, m *asset.Model, opts Options, eps float64) error {
	ai, err := m.Instantiate()
	if err != nil {
		return err
	}
	if opts.Style != nil {
		ai.ApplyFlatStyle(*opts.Style)
	}
	if !opts.Hidden {
		ai.Show()
	}
	n.Transform = placement.SnapToGround(inst.Transform, m.Bounds, inst.FloorAttached, eps)
	n.AttachAsset(ai)
	return nil
}

// Resnap recomputes ground correction for every asset node in root from
// the analytic transform of the placement it was built from. instances
// must be the slice given to Build. Running it repeatedly gives the same
// result.
func Resnap(root *scene.Node, instances []placement.Instance, eps float64) {
	if eps <= 0 {
		eps = placement.DefaultGroundEpsilon
	}
	for _, n := range root.AssetNodes() {
		i, ok := n.Placement()
		if !ok || i >= len(instances) || n.Asset == nil {
			continue
		}
		inst := instances[i]
		n.Transform = placement.SnapToGround(inst.Transform, n.Asset.Bounds, inst.FloorAttached, eps)
	}
}

// Transforms maps placement index to the staged transform of every node
// Build kept.
func Transforms(root *scene.Node) map[int]mathutil.Transform {
	out := make(map[int]mathutil.Transform, len(root.Children))
	for _, n := range root.Children {
		if i, ok := n.Placement(); ok {
			out[i] = n.Transform
		}
	}
	return out
}
