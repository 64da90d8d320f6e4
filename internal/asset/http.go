package asset

import (
	"context"
	"fmt"
	"time"

	"github.com/c2h5oh/datasize"
	"resty.dev/v3"
)

// HTTPFetcher downloads remote assets.
type HTTPFetcher struct {
	client *resty.Client
}

// NewHTTPFetcher returns a fetcher with the given request timeout and
// response size limit. Zero values disable the respective limit.
func NewHTTPFetcher(timeout time.Duration, maxSize datasize.ByteSize) *HTTPFetcher {
	c := resty.New().SetHeader("Accept", ContentTypeGLB+", "+ContentTypeGLTF+", */*")
	if timeout > 0 {
		c.SetTimeout(timeout)
	}
	if maxSize > 0 {
		c.SetResponseBodyLimit(int64(maxSize.Bytes()))
	}
	return &HTTPFetcher{client: c}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	res, err := f.client.R().SetContext(ctx).Get(uri)
	if err != nil {
		status := 0
		if res != nil {
			status = res.StatusCode()
		}
		return nil, loadError(uri, status, err)
	}
	if res.IsError() || res.StatusCode() >= 300 {
		return nil, &LoadError{URI: uri, Status: res.StatusCode(), Err: fmt.Errorf("%w: %s", ErrStatus, res.Status())}
	}
	return res.Bytes(), nil
}

// Close releases idle connections.
func (f *HTTPFetcher) Close() error {
	return f.client.Close()
}
