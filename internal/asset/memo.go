package asset

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Memo wraps a Fetcher and keeps every successful fetch in memory, so a
// tool that stages a scene and then packs it downloads each asset once.
// Failed fetches are not remembered.
type Memo struct {
	fetcher Fetcher
	group   singleflight.Group

	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemo returns a memoizing wrapper around f.
func NewMemo(f Fetcher) *Memo {
	return &Memo{fetcher: f, data: make(map[string][]byte)}
}

func (m *Memo) Fetch(ctx context.Context, uri string) ([]byte, error) {
	m.mu.RLock()
	data, ok := m.data[uri]
	m.mu.RUnlock()
	if ok {
		return data, nil
	}

	v, err, _ := m.group.Do(uri, func() (any, error) {
		m.mu.RLock()
		data, ok := m.data[uri]
		m.mu.RUnlock()
		if ok {
			return data, nil
		}
		data, err := m.fetcher.Fetch(ctx, uri)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.data[uri] = data
		m.mu.Unlock()
		return data, nil
	})
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			return nil, err
		}
		return nil, loadError(uri, 0, err)
	}
	return v.([]byte), nil
}

// Len returns the number of cached assets.
func (m *Memo) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
