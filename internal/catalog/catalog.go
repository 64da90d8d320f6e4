// Package catalog reads product catalogs and indexes them by id.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"vpc-scene/internal/ctxlog"
	"vpc-scene/internal/pattern"
	"vpc-scene/internal/units"
)

// ErrMalformed is returned when the catalog cannot be interpreted.
var ErrMalformed = errors.New("catalog: malformed catalog")

// DefaultWallMountedTypes is used when Options.WallMountedTypes is nil.
var DefaultWallMountedTypes = pattern.MustCompile("*wall*")

// MountClass says how a product is anchored in the room.
type MountClass int

const (
	FreeStanding MountClass = iota
	WallMounted
)

func (m MountClass) String() string {
	if m == WallMounted {
		return "wall-mounted"
	}
	return "free-standing"
}

// Offset is the template's local model transform in authoring units:
// millimeters, per-axis degrees and scale multipliers.
type Offset struct {
	P units.Axes `json:"p"`
	R units.Axes `json:"r"`
	S units.Axes `json:"s"`
}

// Size is the physical product size in millimeters.
type Size struct {
	Width  *float64 `json:"width,omitempty"`
	Height *float64 `json:"height,omitempty"`
	Depth  *float64 `json:"depth,omitempty"`
}

// Product is one catalog entry. Read-only after Parse.
type Product struct {
	ID           string
	AssetURI     string
	Offset       Offset
	Size         Size
	TemplateType string
	Mount        MountClass
	// Assembly is set for products assembled from parts with no model of their own.
	Assembly bool
}

// HeightMM returns the physical height, or nil when unknown.
func (p *Product) HeightMM() *float64 {
	return p.Size.Height
}

// HasAsset reports whether the product has a mesh to show.
func (p *Product) HasAsset() bool {
	return p.AssetURI != ""
}

// Catalog indexes products by id.
type Catalog struct {
	products map[string]*Product
}

// Options controls derived product fields.
type Options struct {
	WallMountedTypes *pattern.Matcher
}

type rawProduct struct {
	ID       string       `json:"id"`
	ModelURI string       `json:"modelURI"`
	Template *rawTemplate `json:"template"`
}

type rawTemplate struct {
	Type           string            `json:"type"`
	ModelTransform *Offset           `json:"modelTransform"`
	Size           *Size             `json:"size"`
	Parts          []json.RawMessage `json:"parts"`
}

// New builds a catalog from already-constructed products. Later duplicates win.
func New(products ...*Product) *Catalog {
	c := &Catalog{products: make(map[string]*Product, len(products))}
	for _, p := range products {
		c.add(p)
	}
	return c
}

func (c *Catalog) add(p *Product) {
	c.products[p.ID] = p
}

// Get looks a product up by id.
func (c *Catalog) Get(id string) (*Product, bool) {
	if c == nil {
		return nil, false
	}
	p, ok := c.products[id]
	return p, ok
}

// Len returns the number of distinct products.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.products)
}

// Parse decodes a catalog document.
func Parse(ctx context.Context, data []byte, opts Options) (*Catalog, error) {
	var raw struct {
		Products *[]json.RawMessage `json:"products"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if raw.Products == nil {
		return nil, fmt.Errorf("%w: missing products", ErrMalformed)
	}

	wall := opts.WallMountedTypes
	if wall == nil {
		wall = DefaultWallMountedTypes
	}
	log := ctxlog.FromContext(ctx)

	c := New()
	for i, msg := range *raw.Products {
		var rp rawProduct
		if err := json.Unmarshal(msg, &rp); err != nil {
			return nil, fmt.Errorf("%w: product %d: %v", ErrMalformed, i, err)
		}
		if rp.ID == "" {
			log.Warn("catalog product without id, skipping", "index", i)
			continue
		}
		c.add(convert(rp, wall))
	}
	return c, nil
}

// ParseFile reads and parses a catalog file.
func ParseFile(ctx context.Context, path string, opts Options) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	c, err := Parse(ctx, data, opts)
	if err != nil {
		return nil, fmt.Errorf("catalog: parse %s: %w", path, err)
	}
	return c, nil
}

func convert(rp rawProduct, wall *pattern.Matcher) *Product {
	p := &Product{ID: rp.ID, AssetURI: rp.ModelURI}
	if t := rp.Template; t != nil {
		p.TemplateType = t.Type
		if t.ModelTransform != nil {
			p.Offset = *t.ModelTransform
		}
		if t.Size != nil {
			p.Size = *t.Size
		}
		p.Assembly = len(t.Parts) > 0 || rp.ModelURI == ""
	}
	if wall.Match(p.TemplateType) {
		p.Mount = WallMounted
	}
	return p
}
