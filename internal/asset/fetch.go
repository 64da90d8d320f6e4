package asset

import (
	"context"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/c2h5oh/datasize"
)

// Fetcher returns the raw bytes behind an asset URI.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, uri string) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context, uri string) ([]byte, error) {
	return f(ctx, uri)
}

// IsRemote reports whether uri is an http(s) URL.
func IsRemote(uri string) bool {
	u := strings.ToLower(uri)
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}

// IsAbsolute reports whether uri must be passed through untouched rather
// than resolved against a bundle or asset root.
func IsAbsolute(uri string) bool {
	return IsRemote(uri) || strings.HasPrefix(strings.ToLower(uri), "file://")
}

// FileFetcher reads assets from the local filesystem. Relative paths are
// resolved against Root.
type FileFetcher struct {
	Root    string
	MaxSize datasize.ByteSize // 0 means unlimited
}

func (f *FileFetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, loadError(uri, 0, err)
	}
	path, err := f.path(uri)
	if err != nil {
		return nil, loadError(uri, 0, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, loadError(uri, 0, err)
	}
	if f.MaxSize > 0 && uint64(info.Size()) > f.MaxSize.Bytes() {
		return nil, loadError(uri, 0, fmt.Errorf("%w: %s > %s", ErrTooLarge, datasize.ByteSize(info.Size()).HR(), f.MaxSize.HR()))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, loadError(uri, 0, err)
	}
	return data, nil
}

func (f *FileFetcher) path(uri string) (string, error) {
	if strings.HasPrefix(strings.ToLower(uri), "file://") {
		u, err := url.Parse(uri)
		if err != nil {
			return "", err
		}
		return filepath.FromSlash(u.Path), nil
	}
	p := filepath.FromSlash(uri)
	if filepath.IsAbs(p) || f.Root == "" {
		return p, nil
	}
	return filepath.Join(f.Root, p), nil
}

// MapFetcher serves assets from memory. Safe for concurrent reads.
type MapFetcher map[string][]byte

func (m MapFetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, loadError(uri, 0, err)
	}
	data, ok := m[uri]
	if !ok {
		return nil, &LoadError{URI: uri, Status: 404, Err: fs.ErrNotExist}
	}
	return data, nil
}

// Router dispatches http(s) URIs to Remote and everything else to Local.
type Router struct {
	Local  Fetcher
	Remote Fetcher
}

func (r *Router) Fetch(ctx context.Context, uri string) ([]byte, error) {
	f := r.Local
	if IsRemote(uri) {
		f = r.Remote
	}
	if f == nil {
		return nil, &LoadError{URI: uri, Err: ErrNoFetcher}
	}
	return f.Fetch(ctx, uri)
}

// CountingFetcher wraps a Fetcher and records how often each URI was fetched.
type CountingFetcher struct {
	Fetcher Fetcher

	mu     sync.Mutex
	counts map[string]int
}

func (c *CountingFetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	c.mu.Lock()
	if c.counts == nil {
		c.counts = make(map[string]int)
	}
	c.counts[uri]++
	c.mu.Unlock()
	return c.Fetcher.Fetch(ctx, uri)
}

// Count returns the number of fetches issued for uri.
func (c *CountingFetcher) Count(uri string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[uri]
}

// Total returns the number of fetches issued overall.
func (c *CountingFetcher) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.counts {
		n += v
	}
	return n
}
