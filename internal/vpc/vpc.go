// Package vpc reads room-planner configuration documents into placement
// entities expressed in the canonical frame.
package vpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"vpc-scene/internal/ctxlog"
	"vpc-scene/internal/mathutil"
	"vpc-scene/internal/pattern"
	"vpc-scene/internal/units"
)

// NoValue marks a missing id, catalog reference or parent.
const NoValue = "noValue"

// ErrMalformed is returned when the configuration cannot be interpreted.
var ErrMalformed = errors.New("vpc: malformed configuration")

// ErrDuplicateID is wrapped by the warning emitted for a repeated entity id.
var ErrDuplicateID = errors.New("vpc: duplicate entity id")

// ObstacleRef is the reference carried by room obstacle boxes.
const ObstacleRef = "kvadrat-obstacle"

// DefaultFloorConnectors is used when Options.FloorConnectors is nil.
var DefaultFloorConnectors = pattern.MustCompile("*floor*")

// Entity is one placed object. World is already in canonical units and
// handedness; it is never modified after Parse returns.
type Entity struct {
	ID            string
	CatalogRef    string
	ParentID      string
	World         mathutil.Transform
	ConnectorTags []string
	FloorAttached bool

	// Room shell components. PersistentID is the id surfaces use to name
	// their corners.
	PersistentID   string
	SurfaceCorners []string
	Surface        bool
	// Corner is set when a surface lists this entity as one of its corners.
	Corner bool
	// Opening is the size of a parametric door or window (depth unset).
	Opening *Extent
	// Obstacle is the size of an obstacle box.
	Obstacle *Extent
	// ColorCode is the "#rrggbb" shell material color, when given.
	ColorCode string
}

// Extent is a box size in millimeters.
type Extent struct {
	Width, Height, Depth float64
}

// HasRef reports whether the entity points at a catalog product.
func (e Entity) HasRef() bool {
	return e.CatalogRef != NoValue
}

// Shell reports whether the entity is part of the room shell rather than a
// placed product.
func (e Entity) Shell() bool {
	return e.Surface || e.Corner || e.Opening != nil || e.Obstacle != nil
}

// Options controls derived fields.
type Options struct {
	FloorConnectors *pattern.Matcher
}

type document struct {
	Configuration *struct {
		Content *struct {
			Entities []json.RawMessage `json:"entities"`
		} `json:"content"`
	} `json:"configuration"`
}

type rawEntity struct {
	ID     string         `json:"id"`
	Ref    string         `json:"ref"`
	Parent string         `json:"parent"`
	C      *rawComponents `json:"c"`
}

type rawComponents struct {
	WorldTransform *struct {
		P units.Axes       `json:"p"`
		R units.QuatFields `json:"r"`
	} `json:"WorldTransformComponent"`
	Connections *struct {
		Connections []json.RawMessage `json:"connections"`
	} `json:"Connections"`

	KVID *struct {
		ID string `json:"id"`
	} `json:"kv-id"`
	KVSurface *struct {
		CornerPersistentIDs []string `json:"cornerPersistentIds"`
	} `json:"kv-surface"`
	KVParametric *struct {
		Size *struct {
			X *float64 `json:"X"`
			Y *float64 `json:"Y"`
		} `json:"size"`
	} `json:"kv-parametric-object"`
	KVMaterial *struct {
		ColorCode string `json:"colorCode"`
	} `json:"kv-material"`
	// Params is only interpreted for obstacles; products use it freely.
	Params json.RawMessage `json:"params"`
}

type rawObstacleParams struct {
	Size *struct {
		Width  *float64 `json:"width"`
		Height *float64 `json:"height"`
		Depth  *float64 `json:"depth"`
	} `json:"size"`
}

type rawConnection struct {
	GuestID        string `json:"guestId"`
	HostID         string `json:"hostId"`
	GuestConnector string `json:"guestConnector"`
	HostConnector  string `json:"hostConnector"`
}

// Parse decodes a configuration document. Entities keep document order.
// Non-fatal problems are logged and returned as warnings.
func Parse(ctx context.Context, data []byte, opts Options) ([]Entity, []error, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if doc.Configuration == nil || doc.Configuration.Content == nil || doc.Configuration.Content.Entities == nil {
		return nil, nil, fmt.Errorf("%w: missing configuration.content.entities", ErrMalformed)
	}

	floor := opts.FloorConnectors
	if floor == nil {
		floor = DefaultFloorConnectors
	}
	log := ctxlog.FromContext(ctx)

	var (
		entities []Entity
		warnings []error
		index    = make(map[string]int)
	)
	for i, raw := range doc.Configuration.Content.Entities {
		var re rawEntity
		if err := json.Unmarshal(raw, &re); err != nil {
			return nil, nil, fmt.Errorf("%w: entity %d: %v", ErrMalformed, i, err)
		}
		e, err := convert(re, floor)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: entity %d: %v", ErrMalformed, i, err)
		}

		if e.ID != NoValue {
			if at, ok := index[e.ID]; ok {
				warn := fmt.Errorf("%w: %s", ErrDuplicateID, e.ID)
				log.Warn("duplicate entity id, keeping the later record", "entity", e.ID)
				warnings = append(warnings, warn)
				entities[at] = e
				continue
			}
			index[e.ID] = len(entities)
		}
		entities = append(entities, e)
	}
	markCorners(entities)
	return entities, warnings, nil
}

func markCorners(entities []Entity) {
	corners := make(map[string]bool)
	for _, e := range entities {
		for _, id := range e.SurfaceCorners {
			corners[id] = true
		}
	}
	if len(corners) == 0 {
		return
	}
	for i := range entities {
		if id := entities[i].PersistentID; id != "" && corners[id] {
			entities[i].Corner = true
		}
	}
}

// ParseFile reads and parses a configuration file.
func ParseFile(ctx context.Context, path string, opts Options) ([]Entity, []error, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("vpc: read %s: %w", path, err)
	}
	ents, warns, err := Parse(ctx, data, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("vpc: parse %s: %w", path, err)
	}
	return ents, warns, nil
}

func convert(re rawEntity, floor *pattern.Matcher) (Entity, error) {
	e := Entity{
		ID:         orNoValue(re.ID),
		CatalogRef: orNoValue(re.Ref),
		ParentID:   orNoValue(re.Parent),
		World:      mathutil.IdentityTransform(),
	}
	if re.C == nil {
		return e, nil
	}
	if wt := re.C.WorldTransform; wt != nil {
		e.World.Position = units.Position(wt.P)
		e.World.Rotation = units.Rotation(wt.R)
	}
	if re.C.Connections != nil {
		for _, raw := range re.C.Connections.Connections {
			tags, err := connectorTags(raw)
			if err != nil {
				return e, err
			}
			e.ConnectorTags = append(e.ConnectorTags, tags...)
		}
	}
	e.FloorAttached = floor.MatchAny(e.ConnectorTags)
	return e, shellComponents(&e, re)
}

func shellComponents(e *Entity, re rawEntity) error {
	c := re.C
	if c.KVID != nil {
		e.PersistentID = c.KVID.ID
	}
	if c.KVSurface != nil {
		e.Surface = true
		e.SurfaceCorners = c.KVSurface.CornerPersistentIDs
	}
	if c.KVParametric != nil && c.KVParametric.Size != nil {
		e.Opening = &Extent{Width: deref(c.KVParametric.Size.X), Height: deref(c.KVParametric.Size.Y)}
	}
	if c.KVMaterial != nil {
		e.ColorCode = c.KVMaterial.ColorCode
	}
	if re.Ref == ObstacleRef && len(c.Params) > 0 {
		var p rawObstacleParams
		if err := json.Unmarshal(c.Params, &p); err != nil {
			return fmt.Errorf("obstacle params: %v", err)
		}
		if p.Size != nil {
			e.Obstacle = &Extent{Width: deref(p.Size.Width), Height: deref(p.Size.Height), Depth: deref(p.Size.Depth)}
		}
	}
	return nil
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// connectorTags accepts either a bare connector name or a connection object.
func connectorTags(raw json.RawMessage) ([]string, error) {
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		if isValue(name) {
			return []string{name}, nil
		}
		return nil, nil
	}
	var c rawConnection
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("connection: %v", err)
	}
	var tags []string
	for _, s := range []string{c.GuestConnector, c.HostConnector} {
		if isValue(s) {
			tags = append(tags, s)
		}
	}
	return tags, nil
}

func isValue(s string) bool {
	return strings.TrimSpace(s) != "" && s != NoValue
}

func orNoValue(s string) string {
	if s == "" {
		return NoValue
	}
	return s
}
