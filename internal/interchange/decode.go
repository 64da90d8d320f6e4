package interchange

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"golang.org/x/sync/errgroup"

	"vpc-scene/internal/asset"
	"vpc-scene/internal/assetcache"
	"vpc-scene/internal/ctxlog"
	"vpc-scene/internal/scene"
)

// DefaultAssetDir is the bundle folder relative asset references resolve into.
const DefaultAssetDir = "models"

// FlatWhite is the default presentation color for reconstructed instances.
var FlatWhite = [4]float64{1, 1, 1, 1}

// Options controls reconstruction.
type Options struct {
	Loader asset.Loader
	// AssetDir prefixes relative references; DefaultAssetDir when empty.
	AssetDir string
	// Style, when set, is applied to each instance's own materials.
	Style *[4]float64
	// Reveal makes instances visible immediately instead of waiting for
	// the caller to step through RevealOrder.
	Reveal bool
	// Concurrency bounds parallel asset loads; 0 means 8.
	Concurrency int
}

// ResolveRef turns a document asset reference into a loadable key:
// absolute URLs pass through, bundle names resolve into dir.
func ResolveRef(ref, dir string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}
	if asset.IsAbsolute(ref) {
		return ref, true
	}
	if dir == "" {
		dir = DefaultAssetDir
	}
	clean := path.Clean(strings.ReplaceAll(ref, "\\", "/"))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "/") || strings.HasPrefix(clean, "../") {
		return "", false
	}
	if strings.HasPrefix(clean, dir+"/") {
		return clean, true
	}
	return path.Join(dir, clean), true
}

type loadJob struct {
	node     *scene.Node
	key      string
	original string
}

// Decode rebuilds a live scene graph from doc. Asset loads for distinct
// references run concurrently through a cache scoped to this call; the
// first failure aborts the whole reconstruction.
func Decode(ctx context.Context, doc *Document, opts Options) (*scene.Node, error) {
	rootDoc := doc.Root()
	if rootDoc == nil {
		return nil, fmt.Errorf("%w: no root node", ErrMalformedDocument)
	}
	if opts.Loader == nil {
		return nil, fmt.Errorf("interchange: decode: no asset loader")
	}

	var jobs []loadJob
	root, err := buildNode(rootDoc, opts.AssetDir, &jobs)
	if err != nil {
		return nil, err
	}

	log := ctxlog.FromContext(ctx)
	cache := assetcache.New(opts.Loader)
	limit := opts.Concurrency
	if limit <= 0 {
		limit = 8
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, job := range jobs {
		g.Go(func() error {
			m, err := cache.Resolve(gctx, job.key)
			if err != nil {
				return fmt.Errorf("interchange: node %q: %w", job.node.Name, err)
			}
			inst, err := m.Instantiate()
			if err != nil {
				return fmt.Errorf("interchange: node %q: %w", job.node.Name, err)
			}
			if opts.Style != nil {
				inst.ApplyFlatStyle(*opts.Style)
			}
			if opts.Reveal {
				inst.Show()
			}

			// Asset content first, then the document's own children.
			children := job.node.Children
			job.node.Children = nil
			job.node.AttachAsset(inst)
			job.node.Children = append(job.node.Children, children...)
			if job.original != "" {
				job.node.AssetSource = job.original
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Debug("scene reconstructed", "nodes", root.Count(), "assets", len(jobs), "loads", cache.Loads())
	return root, nil
}

func buildNode(dn *Node, dir string, jobs *[]loadJob) (*scene.Node, error) {
	if dn == nil {
		return nil, fmt.Errorf("%w: null node", ErrMalformedDocument)
	}
	n := &scene.Node{Name: dn.Name, Transform: dn.Transform.Value()}
	for k, v := range dn.UserData {
		if v == nil {
			continue
		}
		n.SetMeta(k, metaString(v))
	}

	if dn.Asset != nil {
		key, ok := ResolveRef(*dn.Asset, dir)
		if !ok {
			return nil, &AssetRefError{Node: dn.Name, Ref: *dn.Asset}
		}
		n.AssetSource = key
		*jobs = append(*jobs, loadJob{node: n, key: key, original: dn.AssetOriginalURL})
	}

	for _, c := range dn.Children {
		child, err := buildNode(c, dir, jobs)
		if err != nil {
			return nil, err
		}
		n.Add(child)
	}
	return n, nil
}

func metaString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
