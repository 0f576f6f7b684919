// Package fog derives a fog-of-war visibility mask by replaying an ordered log
// of add/subtract shapes, and reveals rooms by flood filling the space bounded
// by wall segments.
package fog

import (
	"fmt"
	"math"
	"slices"

	"github.com/cory-johannsen/battlemap/internal/battlemap/geom"
)

// ShapeType selects how a shape's Data is interpreted.
type ShapeType string

// Shape types.
const (
	// Brush data is a flattened polyline stroked at Width.
	Brush ShapeType = "brush"
	// Rect data is [x, y, w, h].
	Rect ShapeType = "rect"
	// Ellipse data is the bounding box [x, y, w, h].
	Ellipse ShapeType = "ellipse"
	// Poly data is a flattened closed polygon.
	Poly ShapeType = "poly"
	// GridCell data is the flattened outline of one grid cell.
	GridCell ShapeType = "grid-cell"
)

// Operation is the effect a shape has on the mask.
type Operation string

// Operations.
const (
	// Add hides the covered area.
	Add Operation = "add"
	// Subtract reveals the covered area.
	Subtract Operation = "subtract"
)

// Shape is one committed visibility operation. Shapes are append-only; the
// mask is the in-order replay of every shape over an all-hidden base.
type Shape struct {
	ID        string    `json:"id" yaml:"id"`
	Type      ShapeType `json:"type" yaml:"type"`
	Data      []float64 `json:"data" yaml:"data"`
	Operation Operation `json:"operation" yaml:"operation"`
	Width     float64   `json:"width,omitempty" yaml:"width,omitempty"`
}

// RecordID satisfies replica.Record.
func (s Shape) RecordID() string { return s.ID }

// Points returns Data as points. A trailing odd value is ignored.
func (s Shape) Points() []geom.Point {
	pts := make([]geom.Point, 0, len(s.Data)/2)
	for i := 0; i+1 < len(s.Data); i += 2 {
		pts = append(pts, geom.Pt(s.Data[i], s.Data[i+1]))
	}
	return pts
}

// Box returns the [x, y, w, h] box of a rect or ellipse shape, normalised so
// that w and h are non-negative.
func (s Shape) Box() geom.Rect {
	if len(s.Data) < 4 {
		return geom.Rect{}
	}
	return geom.RectFromPoints(geom.Pt(s.Data[0], s.Data[1]), geom.Pt(s.Data[0]+s.Data[2], s.Data[1]+s.Data[3]))
}

// Validate reports why s cannot be replayed, or nil.
func (s Shape) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("fog shape has empty id")
	}
	if s.Operation != Add && s.Operation != Subtract {
		return fmt.Errorf("fog shape %s: unknown operation %q", s.ID, s.Operation)
	}
	for _, v := range s.Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("fog shape %s: non-finite coordinate", s.ID)
		}
	}
	switch s.Type {
	case Brush:
		if len(s.Data) < 2 || s.Width <= 0 {
			return fmt.Errorf("fog shape %s: brush needs a point and positive width", s.ID)
		}
	case Rect, Ellipse:
		if len(s.Data) != 4 {
			return fmt.Errorf("fog shape %s: %s needs [x,y,w,h]", s.ID, s.Type)
		}
	case Poly, GridCell:
		if len(s.Data) < 6 {
			return fmt.Errorf("fog shape %s: %s needs at least three points", s.ID, s.Type)
		}
	default:
		return fmt.Errorf("fog shape %s: unknown type %q", s.ID, s.Type)
	}
	return nil
}

// Degenerate reports whether s covers no area worth committing.
func (s Shape) Degenerate() bool {
	switch s.Type {
	case Rect, Ellipse:
		b := s.Box()
		return b.Width() < 1 || b.Height() < 1
	case Poly, GridCell:
		return geom.PolygonArea(s.Points()) < 1
	}
	return false
}

// Inverse returns a copy of s with a fresh ID and the opposite operation.
func (s Shape) Inverse() Shape {
	s.ID = geom.NewID()
	s.Data = slices.Clone(s.Data)
	if s.Operation == Add {
		s.Operation = Subtract
	} else {
		s.Operation = Add
	}
	return s
}

// Room groups the shapes revealed by successive flood fills so they can be
// hidden or shown together.
type Room struct {
	ID       string   `json:"id" yaml:"id"`
	Name     string   `json:"name,omitempty" yaml:"name,omitempty"`
	ShapeIDs []string `json:"shapeIds" yaml:"shape_ids"`
	Hidden   bool     `json:"hidden" yaml:"hidden"`
}

// RecordID satisfies replica.Record.
func (r Room) RecordID() string { return r.ID }

// Store is the persistence the fog engine writes through. Implementations
// must apply CommitFog atomically.
type Store interface {
	// FogShapes returns the shape log in order.
	FogShapes() []Shape
	// Rooms returns every room.
	Rooms() []Room
	// CommitFog appends shapes and, when room is non-nil, inserts or replaces
	// it, all in one transaction. It reports whether anything was written.
	CommitFog(shapes []Shape, room *Room) bool
}
