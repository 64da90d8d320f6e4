package asset

import (
	"errors"
	"fmt"
)

var (
	// ErrTooLarge is wrapped when an asset exceeds the configured size limit.
	ErrTooLarge = errors.New("asset: exceeds size limit")
	// ErrUnsupported is wrapped when the bytes are not a glTF or GLB asset.
	ErrUnsupported = errors.New("asset: unsupported content")
	// ErrStatus is wrapped when a remote server answers with an error status.
	ErrStatus = errors.New("asset: bad status")
	// ErrNoFetcher is wrapped when no fetcher handles the URI scheme.
	ErrNoFetcher = errors.New("asset: no fetcher for scheme")
)

// LoadError identifies the asset that failed to load.
type LoadError struct {
	URI    string
	Status int // HTTP status when known
	Err    error
}

func (e *LoadError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("asset: load %s: status %d: %v", e.URI, e.Status, e.Err)
	}
	return fmt.Sprintf("asset: load %s: %v", e.URI, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

func loadError(uri string, status int, err error) error {
	var le *LoadError
	if errors.As(err, &le) && le.URI == uri {
		return err
	}
	return &LoadError{URI: uri, Status: status, Err: err}
}
