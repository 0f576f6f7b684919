// Package walls turns pointer and keyboard events into committed wall
// records: polygon, rectangle and ellipse drawing, door placement and
// autocompleted doors.
package walls

import "github.com/cory-johannsen/battlemap/internal/battlemap/geom"

// SessionKind is the state of the drawing state machine.
type SessionKind int

// Session kinds.
const (
	Idle SessionKind = iota
	DrawingPolygon
	DrawingRect
	DrawingEllipse
)

// String returns the kind's name.
func (k SessionKind) String() string {
	switch k {
	case DrawingPolygon:
		return "polygon"
	case DrawingRect:
		return "rect"
	case DrawingEllipse:
		return "ellipse"
	default:
		return "idle"
	}
}

// Node is one polygon vertex with optional bezier handles.
type Node struct {
	P   geom.Point
	In  *geom.Point
	Out *geom.Point
}

// HasHandles reports whether either handle is set.
func (n Node) HasHandles() bool { return n.In != nil || n.Out != nil }

// DrawingSession is the transient state of a shape being drawn. It is never
// persisted; only the commit at the end of a session is written.
type DrawingSession struct {
	Kind  SessionKind
	Nodes []Node
	// Anchor is the pointer-down point of a rect or ellipse.
	Anchor geom.Point
	// Preview is the latest snapped pointer position.
	Preview geom.Point
	// dragOrigin is set while the button is held after a polygon click.
	dragOrigin *geom.Point
}

// Active reports whether a shape is being drawn.
func (s *DrawingSession) Active() bool { return s.Kind != Idle }

func (s *DrawingSession) reset() { *s = DrawingSession{} }

// polygonSegments converts nodes into segments: an edge is cubic when its
// start has an out handle or its end has an in handle, and linear otherwise.
// Zero-length straight edges are dropped.
func polygonSegments(nodes []Node) []geom.WallSegment {
	var segs []geom.WallSegment
	for i := 0; i+1 < len(nodes); i++ {
		a, b := nodes[i], nodes[i+1]
		if a.Out != nil || b.In != nil {
			c1, c2 := a.P, b.P
			if a.Out != nil {
				c1 = *a.Out
			}
			if b.In != nil {
				c2 = *b.In
			}
			if a.P == b.P && c1 == a.P && c2 == b.P {
				continue
			}
			segs = append(segs, geom.NewCubic(a.P, c1, c2, b.P))
			continue
		}
		if a.P.Dist(b.P) < minPiece {
			continue
		}
		segs = append(segs, geom.NewLine(a.P, b.P))
	}
	return segs
}

// PreviewSegments returns the segments a renderer should draw for the session,
// including the rubber-band edge to the pointer.
func (s *DrawingSession) PreviewSegments(ellipseSegments int) []geom.WallSegment {
	switch s.Kind {
	case DrawingPolygon:
		nodes := append(append([]Node(nil), s.Nodes...), Node{P: s.Preview})
		return polygonSegments(nodes)
	case DrawingRect:
		r := geom.RectFromPoints(s.Anchor, s.Preview)
		return geom.GenerateRectSegments(r.Min.X, r.Min.Y, r.Width(), r.Height())
	case DrawingEllipse:
		r := geom.RectFromPoints(s.Anchor, s.Preview)
		return geom.GenerateEllipseSegments(
			(r.Min.X+r.Max.X)/2, (r.Min.Y+r.Max.Y)/2, r.Width()/2, r.Height()/2, ellipseSegments)
	}
	return nil
}
