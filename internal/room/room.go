// Package room extracts the room shell from a configuration: wall and
// floor surfaces spanned by corner entities, door and window openings, and
// obstacle boxes. Everything is expressed in the canonical frame, the same
// one placements use.
package room

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"vpc-scene/internal/ctxlog"
	"vpc-scene/internal/mathutil"
	"vpc-scene/internal/scene"
	"vpc-scene/internal/units"
	"vpc-scene/internal/vpc"
)

// DefaultName labels the group node holding the shell.
const DefaultName = "Room"

// OpeningDepth is the thickness given to door and window boxes, in meters.
const OpeningDepth = 0.22

// Shell colors, as 0xRRGGBB.
const (
	DefaultSurfaceColor = 0xbbbbbb
	OpeningColor        = 0xe5e5ff
	ObstacleColor       = 0xe5e5ff
)

// Metadata keys set on shell nodes.
const (
	MetaKind    = "kind"
	MetaCorners = "corners"
	MetaSize    = "size"
	MetaColor   = "color"
)

// Kind classifies a shell element.
type Kind int

const (
	Surface Kind = iota
	Opening
	Obstacle
)

func (k Kind) String() string {
	switch k {
	case Opening:
		return "opening"
	case Obstacle:
		return "obstacle"
	default:
		return "surface"
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Polygon is a surface outline through its corners, in listed order.
type Polygon struct {
	ID       string
	EntityID string
	Corners  []mathutil.Vec3
	Color    uint32
}

func (p Polygon) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID       string          `json:"id"`
		EntityID string          `json:"entityId"`
		Corners  []mathutil.Vec3 `json:"corners"`
		Color    string          `json:"color"`
	}{p.ID, p.EntityID, p.Corners, hex(p.Color)})
}

// Element is an opening or obstacle box centered on its transform.
type Element struct {
	EntityID  string
	Ref       string
	Kind      Kind
	Transform mathutil.Transform
	// Size is the box extent along local X, Y and Z, in meters.
	Size  mathutil.Vec3
	Color uint32
}

func (e Element) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		EntityID   string     `json:"entityId"`
		Ref        string     `json:"ref"`
		Kind       Kind       `json:"kind"`
		Position   [3]float64 `json:"position"`
		Quaternion [4]float64 `json:"quaternion"`
		Size       [3]float64 `json:"size"`
		Color      string     `json:"color"`
	}{e.EntityID, e.Ref, e.Kind, e.Transform.Position, e.Transform.Rotation, e.Size, hex(e.Color)})
}

// Shell is the room geometry of one configuration.
type Shell struct {
	Surfaces []Polygon `json:"surfaces"`
	Elements []Element `json:"elements"`
}

// Empty reports whether the configuration described no room shell.
func (s *Shell) Empty() bool {
	return s == nil || len(s.Surfaces)+len(s.Elements) == 0
}

// MissingCornerError reports a surface corner that names no entity.
type MissingCornerError struct {
	Surface string
	Corner  string
}

func (e *MissingCornerError) Error() string {
	return fmt.Sprintf("room: surface %s: corner %s not found", e.Surface, e.Corner)
}

// Build collects the shell from entities in configuration order. Surfaces
// with unknown corners or fewer than three corners are skipped and
// reported as warnings.
func Build(ctx context.Context, entities []vpc.Entity) (*Shell, []error) {
	log := ctxlog.FromContext(ctx)

	byPersistent := make(map[string]vpc.Entity)
	for _, e := range entities {
		if e.PersistentID != "" {
			byPersistent[e.PersistentID] = e
		}
	}

	s := &Shell{}
	var warnings []error
	for _, e := range entities {
		switch {
		case e.Surface:
			p, err := polygon(e, byPersistent)
			if err != nil {
				log.Warn("skipping room surface", "entity", e.ID, "err", err)
				warnings = append(warnings, err)
				continue
			}
			s.Surfaces = append(s.Surfaces, p)
		case e.Opening != nil:
			s.Elements = append(s.Elements, Element{
				EntityID:  e.ID,
				Ref:       e.CatalogRef,
				Kind:      Opening,
				Transform: e.World,
				Size:      mathutil.Vec3{units.MMToM(e.Opening.Width), units.MMToM(e.Opening.Height), OpeningDepth},
				Color:     colorOr(e.ColorCode, OpeningColor),
			})
		case e.Obstacle != nil:
			// Obstacles are authored depth-first: depth runs along X, width along Z.
			s.Elements = append(s.Elements, Element{
				EntityID:  e.ID,
				Ref:       e.CatalogRef,
				Kind:      Obstacle,
				Transform: e.World,
				Size:      mathutil.Vec3{units.MMToM(e.Obstacle.Depth), units.MMToM(e.Obstacle.Height), units.MMToM(e.Obstacle.Width)},
				Color:     colorOr(e.ColorCode, ObstacleColor),
			})
		}
	}
	log.Debug("room shell", "surfaces", len(s.Surfaces), "elements", len(s.Elements), "warnings", len(warnings))
	return s, warnings
}

func polygon(e vpc.Entity, byPersistent map[string]vpc.Entity) (Polygon, error) {
	id := e.PersistentID
	if id == "" {
		id = e.ID
	}
	p := Polygon{ID: id, EntityID: e.ID, Color: colorOr(e.ColorCode, DefaultSurfaceColor)}
	for _, c := range e.SurfaceCorners {
		corner, ok := byPersistent[c]
		if !ok {
			return p, &MissingCornerError{Surface: id, Corner: c}
		}
		p.Corners = append(p.Corners, corner.World.Position)
	}
	if len(p.Corners) < 3 {
		return p, fmt.Errorf("room: surface %s: %d corners, need at least 3", id, len(p.Corners))
	}
	return p, nil
}

// ParseColor reads "#rrggbb".
func ParseColor(code string) (uint32, bool) {
	h := strings.TrimPrefix(strings.TrimSpace(code), "#")
	if len(h) != 6 {
		return 0, false
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}

func colorOr(code string, fallback uint32) uint32 {
	if v, ok := ParseColor(code); ok {
		return v
	}
	return fallback
}

// Node returns the shell as a scene group named name (DefaultName when
// empty). Surfaces carry their outline in metadata; openings and
// obstacles are positioned nodes carrying their box size.
func (s *Shell) Node(name string) *scene.Node {
	if name == "" {
		name = DefaultName
	}
	g := scene.New(name)
	for _, p := range s.Surfaces {
		n := scene.New(p.ID)
		n.SetMeta(scene.MetaEntityID, p.EntityID)
		n.SetMeta(MetaKind, Surface.String())
		n.SetMeta(MetaCorners, encode(p.Corners))
		n.SetMeta(MetaColor, hex(p.Color))
		g.Add(n)
	}
	for _, e := range s.Elements {
		n := scene.New(e.EntityID)
		n.Transform = e.Transform
		n.SetMeta(scene.MetaEntityID, e.EntityID)
		n.SetMeta(scene.MetaCatalogRef, e.Ref)
		n.SetMeta(MetaKind, e.Kind.String())
		n.SetMeta(MetaSize, encode(e.Size))
		n.SetMeta(MetaColor, hex(e.Color))
		g.Add(n)
	}
	return g
}

func encode(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func hex(c uint32) string {
	return fmt.Sprintf("#%06x", c)
}
