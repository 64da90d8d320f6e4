package asset

import "context"

// Loader turns an asset URI into a parsed Model.
type Loader interface {
	Load(ctx context.Context, uri string) (*Model, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, uri string) (*Model, error)

func (f LoaderFunc) Load(ctx context.Context, uri string) (*Model, error) {
	return f(ctx, uri)
}

// FetchLoader fetches bytes with a Fetcher and parses them.
type FetchLoader struct {
	Fetcher Fetcher
}

// NewLoader returns a Loader backed by f.
func NewLoader(f Fetcher) *FetchLoader {
	return &FetchLoader{Fetcher: f}
}

// Load returns a *LoadError naming uri on any failure.
func (l *FetchLoader) Load(ctx context.Context, uri string) (*Model, error) {
	data, err := l.Fetcher.Fetch(ctx, uri)
	if err != nil {
		return nil, loadError(uri, 0, err)
	}
	m, err := Parse(uri, data)
	if err != nil {
		return nil, &LoadError{URI: uri, Err: err}
	}
	return m, nil
}
