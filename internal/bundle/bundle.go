// Package bundle packs a scene into a self-contained archive: the
// interchange document plus every referenced asset, deduplicated.
package bundle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zip"
	"golang.org/x/sync/errgroup"

	"vpc-scene/internal/asset"
	"vpc-scene/internal/ctxlog"
	"vpc-scene/internal/interchange"
	"vpc-scene/internal/scene"
)

// Archive layout.
const (
	DocumentPath = "scene.json"
	AssetDir     = "models"
	PreviewPath  = "preview.webp"
)

// ErrMissingAsset is returned when a document references a file the
// archive does not contain.
var ErrMissingAsset = errors.New("bundle: referenced asset missing from archive")

// Bundle is an interchange document with its asset files.
type Bundle struct {
	Document *interchange.Document
	// Files maps bundle filename to asset bytes.
	Files map[string][]byte
	// Order lists Files keys in first-reference order.
	Order   []string
	Preview []byte
}

// PreviewFunc renders a preview image of the packed subtree.
type PreviewFunc func(root *scene.Node, doc *interchange.Document) ([]byte, error)

// Options controls packing.
type Options struct {
	// Concurrency bounds parallel fetches; 0 means 8.
	Concurrency int
	// Now stamps the document; time.Now when nil.
	Now func() time.Time
	// Background is recorded as the scene background color when set.
	Background *uint32
	// Preview, when set, renders preview.webp.
	Preview PreviewFunc
}

// Pack serializes the subtree labelled rootLabel and fetches each distinct
// asset exactly once. Any fetch failure aborts packing; no partial bundle
// is returned.
func Pack(ctx context.Context, root *scene.Node, rootLabel string, fetcher asset.Fetcher, opts Options) (*Bundle, error) {
	start := interchange.Subtree(root, rootLabel)
	if start == nil {
		return nil, fmt.Errorf("bundle: pack: %w: no root node", interchange.ErrMalformedDocument)
	}

	sources := interchange.AssetSources(start)
	names := AssignNames(sources)

	doc, err := interchange.Encode(start, "", names)
	if err != nil {
		return nil, fmt.Errorf("bundle: pack: %w", err)
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	doc.Stamp(now())
	if opts.Background != nil {
		doc.Scene = &interchange.SceneSettings{Background: &interchange.Background{Type: "color", Hex: *opts.Background}}
	}

	limit := opts.Concurrency
	if limit <= 0 {
		limit = 8
	}
	var (
		mu    sync.Mutex
		files = make(map[string][]byte, len(sources))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, src := range sources {
		g.Go(func() error {
			data, err := fetcher.Fetch(gctx, src)
			if err != nil {
				var le *asset.LoadError
				if !errors.As(err, &le) {
					err = &asset.LoadError{URI: src, Err: err}
				}
				return fmt.Errorf("bundle: fetch %s: %w", src, err)
			}
			mu.Lock()
			files[names[src]] = data
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	b := &Bundle{Document: doc, Files: files}
	for _, src := range sources {
		b.Order = append(b.Order, names[src])
	}

	if opts.Preview != nil {
		img, err := opts.Preview(start, doc)
		if err != nil {
			return nil, fmt.Errorf("bundle: preview: %w", err)
		}
		b.Preview = img
	}

	ctxlog.FromContext(ctx).Debug("bundle packed", "root", doc.RootName, "assets", len(b.Order))
	return b, nil
}

// WriteTo writes the bundle as a zip archive.
func (b *Bundle) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	zw := zip.NewWriter(cw)

	doc, err := b.Document.Marshal()
	if err != nil {
		return cw.n, err
	}
	if err := writeEntry(zw, DocumentPath, doc); err != nil {
		return cw.n, err
	}
	for _, name := range b.names() {
		if err := writeEntry(zw, path.Join(AssetDir, name), b.Files[name]); err != nil {
			return cw.n, err
		}
	}
	if len(b.Preview) > 0 {
		if err := writeEntry(zw, PreviewPath, b.Preview); err != nil {
			return cw.n, err
		}
	}
	if err := zw.Close(); err != nil {
		return cw.n, fmt.Errorf("bundle: close archive: %w", err)
	}
	return cw.n, nil
}

// WriteFile writes the archive to filename.
func (b *Bundle) WriteFile(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("bundle: create %s: %w", filename, err)
	}
	if _, err := b.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// names returns Order followed by any file not listed in it.
func (b *Bundle) names() []string {
	seen := make(map[string]bool, len(b.Files))
	var out []string
	for _, n := range b.Order {
		if _, ok := b.Files[n]; ok && !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	for n := range b.Files {
		if !seen[n] {
			out = append(out, n)
		}
	}
	return out
}

func writeEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("bundle: create entry %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("bundle: write entry %s: %w", name, err)
	}
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// Read loads a bundle archive and checks that every relative asset
// reference in its document is present.
func Read(r io.ReaderAt, size int64) (*Bundle, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("bundle: open archive: %w", err)
	}

	b := &Bundle{Files: make(map[string][]byte)}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		switch {
		case f.Name == DocumentPath:
			data, err := readEntry(f)
			if err != nil {
				return nil, err
			}
			doc, err := interchange.ReadDocument(bytes.NewReader(data))
			if err != nil {
				return nil, fmt.Errorf("bundle: %s: %w", DocumentPath, err)
			}
			b.Document = doc
		case f.Name == PreviewPath:
			if b.Preview, err = readEntry(f); err != nil {
				return nil, err
			}
		case strings.HasPrefix(f.Name, AssetDir+"/"):
			data, err := readEntry(f)
			if err != nil {
				return nil, err
			}
			name := strings.TrimPrefix(f.Name, AssetDir+"/")
			b.Files[name] = data
			b.Order = append(b.Order, name)
		}
	}
	if b.Document == nil {
		return nil, fmt.Errorf("bundle: %w: missing %s", interchange.ErrMalformedDocument, DocumentPath)
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// ReadFile opens and reads a bundle archive from disk.
func ReadFile(filename string) (*Bundle, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("bundle: read %s: %w", filename, err)
	}
	return Read(bytes.NewReader(data), int64(len(data)))
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("bundle: open entry %s: %w", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("bundle: read entry %s: %w", f.Name, err)
	}
	return data, nil
}

// Validate checks that every relative asset reference resolves to a file.
func (b *Bundle) Validate() error {
	var missing []string
	var walk func(n *interchange.Node)
	walk = func(n *interchange.Node) {
		if n == nil {
			return
		}
		if n.Asset != nil && !asset.IsAbsolute(*n.Asset) {
			key, ok := interchange.ResolveRef(*n.Asset, AssetDir)
			if ok {
				_, ok = b.Files[strings.TrimPrefix(key, AssetDir+"/")]
			}
			if !ok {
				missing = append(missing, *n.Asset)
			}
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(b.Document.Root())
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingAsset, strings.Join(missing, ", "))
	}
	return nil
}

// Fetch serves asset bytes from the bundle, so a Bundle can back an
// asset.Loader during reconstruction. Both "name" and "models/name" work.
func (b *Bundle) Fetch(ctx context.Context, uri string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &asset.LoadError{URI: uri, Err: err}
	}
	name := strings.TrimPrefix(uri, AssetDir+"/")
	data, ok := b.Files[name]
	if !ok {
		return nil, &asset.LoadError{URI: uri, Status: 404, Err: fs.ErrNotExist}
	}
	return data, nil
}
