package assetcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vpc-scene/internal/asset"
)

func TestResolveSharesInFlightLoad(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	loader := asset.LoaderFunc(func(ctx context.Context, uri string) (*asset.Model, error) {
		calls.Add(1)
		<-release
		return &asset.Model{Source: uri}, nil
	})
	c := New(loader)

	const n = 16
	var (
		wg      sync.WaitGroup
		started sync.WaitGroup
		results = make([]*asset.Model, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		started.Add(1)
		go func(i int) {
			defer wg.Done()
			started.Done()
			m, err := c.Resolve(context.Background(), "models/chair.glb")
			assert.NoError(t, err)
			results[i] = m
		}(i)
	}
	started.Wait()
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, c.Loads())
	for _, m := range results {
		assert.Same(t, results[0], m)
	}

	// Settled keys are served without another load.
	m, err := c.Resolve(context.Background(), "models/chair.glb")
	require.NoError(t, err)
	assert.Same(t, results[0], m)
	assert.Equal(t, int32(1), calls.Load())
}

func TestResolveDistinctKeys(t *testing.T) {
	var calls atomic.Int32
	c := New(asset.LoaderFunc(func(ctx context.Context, uri string) (*asset.Model, error) {
		calls.Add(1)
		return &asset.Model{Source: uri}, nil
	}))
	a, err := c.Resolve(context.Background(), "a.glb")
	require.NoError(t, err)
	b, err := c.Resolve(context.Background(), "b.glb")
	require.NoError(t, err)
	assert.NotSame(t, a, b)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 2, c.Len())
}

func TestResolveCachesFailure(t *testing.T) {
	var calls atomic.Int32
	boom := &asset.LoadError{URI: "bad.glb", Status: 500, Err: errors.New("boom")}
	c := New(asset.LoaderFunc(func(ctx context.Context, uri string) (*asset.Model, error) {
		calls.Add(1)
		return nil, boom
	}))
	for i := 0; i < 3; i++ {
		_, err := c.Resolve(context.Background(), "bad.glb")
		var le *asset.LoadError
		require.True(t, errors.As(err, &le))
		assert.Equal(t, 500, le.Status)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestResolveDoesNotCacheCancellation(t *testing.T) {
	var calls atomic.Int32
	c := New(asset.LoaderFunc(func(ctx context.Context, uri string) (*asset.Model, error) {
		calls.Add(1)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return &asset.Model{Source: uri}, nil
	}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Resolve(ctx, "a.glb")
	assert.ErrorIs(t, err, context.Canceled)

	m, err := c.Resolve(context.Background(), "a.glb")
	require.NoError(t, err)
	assert.Equal(t, "a.glb", m.Source)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSeparateCachesDoNotShare(t *testing.T) {
	var calls atomic.Int32
	loader := asset.LoaderFunc(func(ctx context.Context, uri string) (*asset.Model, error) {
		calls.Add(1)
		return &asset.Model{Source: uri}, nil
	})
	_, err := New(loader).Resolve(context.Background(), "a.glb")
	require.NoError(t, err)
	_, err = New(loader).Resolve(context.Background(), "a.glb")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}
