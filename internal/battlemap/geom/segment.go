// Package geom is the stateless geometry kernel for battlemap walls: curve
// evaluation, distance queries, subdivision, shape generation, and snapping.
package geom

import (
	"math"

	"github.com/google/uuid"
)

// CurveType selects how a WallSegment is interpolated between its endpoints.
type CurveType string

// Supported curve types.
const (
	Linear    CurveType = "linear"
	Quadratic CurveType = "quadratic"
	Cubic     CurveType = "cubic"
)

// Valid reports whether c is a known curve type.
func (c CurveType) Valid() bool {
	switch c {
	case Linear, Quadratic, Cubic:
		return true
	}
	return false
}

// Point is a 2D position in map units.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point { return Point{X: x, Y: y} }

// Add returns p+q.
func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

// Sub returns p-q.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Scale returns p*k.
func (p Point) Scale(k float64) Point { return Point{X: p.X * k, Y: p.Y * k} }

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 { return math.Hypot(q.X-p.X, q.Y-p.Y) }

// Near reports whether p and q are within tol of each other.
func (p Point) Near(q Point, tol float64) bool { return p.Dist(q) <= tol }

// Finite reports whether both coordinates are neither NaN nor infinite.
func (p Point) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// Lerp interpolates between p and q at t.
func Lerp(p, q Point, t float64) Point {
	return Point{X: p.X + (q.X-p.X)*t, Y: p.Y + (q.Y-p.Y)*t}
}

// WallSegment is one edge of a wall polyline.
type WallSegment struct {
	ID             string    `json:"id" yaml:"id"`
	X1             float64   `json:"x1" yaml:"x1"`
	Y1             float64   `json:"y1" yaml:"y1"`
	X2             float64   `json:"x2" yaml:"x2"`
	Y2             float64   `json:"y2" yaml:"y2"`
	CurveType      CurveType `json:"curveType" yaml:"curve_type"`
	CP1            *Point    `json:"cp1,omitempty" yaml:"cp1,omitempty"`
	CP2            *Point    `json:"cp2,omitempty" yaml:"cp2,omitempty"`
	IsDoor         bool      `json:"isDoor" yaml:"is_door"`
	AllowsMovement bool      `json:"allowsMovement" yaml:"allows_movement"`
	AllowsVision   bool      `json:"allowsVision" yaml:"allows_vision"`
	AllowsSound    bool      `json:"allowsSound" yaml:"allows_sound"`
}

// NewID mints a unique record identifier.
func NewID() string { return uuid.NewString() }

// NewLine returns a linear wall segment from a to b with a fresh ID and
// plain-wall permissions.
func NewLine(a, b Point) WallSegment {
	return WallSegment{ID: NewID(), X1: a.X, Y1: a.Y, X2: b.X, Y2: b.Y, CurveType: Linear}
}

// NewCubic returns a cubic wall segment with a fresh ID.
func NewCubic(a, c1, c2, b Point) WallSegment {
	return WallSegment{
		ID: NewID(), X1: a.X, Y1: a.Y, X2: b.X, Y2: b.Y,
		CurveType: Cubic, CP1: &c1, CP2: &c2,
	}
}

// Start returns the segment's first endpoint.
func (s WallSegment) Start() Point { return Point{X: s.X1, Y: s.Y1} }

// End returns the segment's second endpoint.
func (s WallSegment) End() Point { return Point{X: s.X2, Y: s.Y2} }

// Kind returns the effective curve type; an empty value is treated as linear.
func (s WallSegment) Kind() CurveType {
	if s.CurveType == "" {
		return Linear
	}
	return s.CurveType
}

// Controls returns the resolved control points used for evaluation.
//
// Postcondition: for Cubic a missing CP1 resolves to Start and a missing CP2 to
// End; for Quadratic a missing CP1 resolves to the chord midpoint. Linear
// returns the endpoints.
func (s WallSegment) Controls() (Point, Point) {
	switch s.Kind() {
	case Cubic:
		c1, c2 := s.Start(), s.End()
		if s.CP1 != nil {
			c1 = *s.CP1
		}
		if s.CP2 != nil {
			c2 = *s.CP2
		}
		return c1, c2
	case Quadratic:
		c := Lerp(s.Start(), s.End(), 0.5)
		if s.CP1 != nil {
			c = *s.CP1
		}
		return c, c
	default:
		return s.Start(), s.End()
	}
}

// PointAt evaluates the segment at parameter t in [0,1].
func (s WallSegment) PointAt(t float64) Point {
	switch s.Kind() {
	case Cubic:
		c1, c2 := s.Controls()
		return CubicPoint(t, s.Start(), c1, c2, s.End())
	case Quadratic:
		c, _ := s.Controls()
		return QuadraticPoint(t, s.Start(), c, s.End())
	default:
		return Lerp(s.Start(), s.End(), t)
	}
}

// Finite reports whether every endpoint and control point of s is finite.
func (s WallSegment) Finite() bool {
	if !s.Start().Finite() || !s.End().Finite() {
		return false
	}
	return (s.CP1 == nil || s.CP1.Finite()) && (s.CP2 == nil || s.CP2.Finite())
}

// WithEndpoints returns a copy of s with new endpoints.
func (s WallSegment) WithEndpoints(a, b Point) WallSegment {
	s.X1, s.Y1, s.X2, s.Y2 = a.X, a.Y, b.X, b.Y
	return s
}

// Normalized returns a copy whose control points agree with its curve type:
// linear segments drop both, quadratic segments drop CP2. Pointers are copied
// so the result shares no memory with s.
func (s WallSegment) Normalized() WallSegment {
	s.CurveType = s.Kind()
	switch s.CurveType {
	case Linear:
		s.CP1, s.CP2 = nil, nil
	case Quadratic:
		s.CP1, s.CP2 = clonePoint(s.CP1), nil
	case Cubic:
		s.CP1, s.CP2 = clonePoint(s.CP1), clonePoint(s.CP2)
	}
	return s
}

// Translate returns a copy of s moved by d, control points included.
func (s WallSegment) Translate(d Point) WallSegment {
	s = s.Normalized()
	s.X1 += d.X
	s.Y1 += d.Y
	s.X2 += d.X
	s.Y2 += d.Y
	if s.CP1 != nil {
		p := s.CP1.Add(d)
		s.CP1 = &p
	}
	if s.CP2 != nil {
		p := s.CP2.Add(d)
		s.CP2 = &p
	}
	return s
}

// SetPermissions copies door and permission flags from src onto s.
func (s WallSegment) SetPermissions(src WallSegment) WallSegment {
	s.IsDoor = src.IsDoor
	s.AllowsMovement = src.AllowsMovement
	s.AllowsVision = src.AllowsVision
	s.AllowsSound = src.AllowsSound
	return s
}

// AsDoor returns a copy flagged as a closed door: passable, but blocking
// vision and sound.
func (s WallSegment) AsDoor() WallSegment {
	s.IsDoor = true
	s.AllowsMovement = true
	s.AllowsVision = false
	s.AllowsSound = false
	return s
}

// AsWall returns a copy flagged as a plain wall blocking everything.
func (s WallSegment) AsWall() WallSegment {
	s.IsDoor = false
	s.AllowsMovement = false
	s.AllowsVision = false
	s.AllowsSound = false
	return s
}

// WithDoorOpen returns a copy of a door segment with its open state set.
// Non-door segments are returned unchanged.
func (s WallSegment) WithDoorOpen(open bool) WallSegment {
	if !s.IsDoor {
		return s
	}
	s.AllowsMovement = true
	s.AllowsVision = open
	s.AllowsSound = open
	return s
}

// DoorOpen reports whether s is a door whose vision is unobstructed.
func (s WallSegment) DoorOpen() bool { return s.IsDoor && s.AllowsVision }

func clonePoint(p *Point) *Point {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// Wall is an ordered list of segments sharing one layer.
type Wall struct {
	ID       string        `json:"id" yaml:"id"`
	Layer    string        `json:"layer" yaml:"layer"`
	Segments []WallSegment `json:"segments" yaml:"segments"`
}

// RecordID satisfies replica.Record.
func (w Wall) RecordID() string { return w.ID }

// SegmentIndex returns the index of the segment with the given ID, or -1.
func (w Wall) SegmentIndex(id string) int {
	for i, s := range w.Segments {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of w.
func (w Wall) Clone() Wall {
	out := w
	out.Segments = make([]WallSegment, len(w.Segments))
	for i, s := range w.Segments {
		s.CP1 = clonePoint(s.CP1)
		s.CP2 = clonePoint(s.CP2)
		out.Segments[i] = s
	}
	return out
}
