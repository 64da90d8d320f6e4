package asset_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vpc-scene/internal/asset"
)

func TestMemoFetchesOnce(t *testing.T) {
	counting := &asset.CountingFetcher{Fetcher: asset.MapFetcher{"a.glb": []byte("A")}}
	memo := asset.NewMemo(counting)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			data, err := memo.Fetch(context.Background(), "a.glb")
			assert.NoError(t, err)
			assert.Equal(t, []byte("A"), data)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, counting.Count("a.glb"))
	assert.Equal(t, 1, memo.Len())
}

func TestMemoDoesNotRememberFailures(t *testing.T) {
	calls := 0
	memo := asset.NewMemo(asset.FetcherFunc(func(ctx context.Context, uri string) ([]byte, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("flaky")
		}
		return []byte("ok"), nil
	}))

	_, err := memo.Fetch(context.Background(), "x.glb")
	var le *asset.LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, "x.glb", le.URI)

	data, err := memo.Fetch(context.Background(), "x.glb")
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), data)
	assert.Equal(t, 2, calls)
}
