package walls

import (
	"math"

	"go.uber.org/zap"

	"github.com/cory-johannsen/battlemap/internal/battlemap/geom"
	"github.com/cory-johannsen/battlemap/internal/battlemap/layer"
	"github.com/cory-johannsen/battlemap/internal/battlemap/mapdoc"
)

// Options tunes wall authoring. Distances are in map units.
type Options struct {
	DoorHitThreshold      float64
	MinDoorWidth          float64
	EndpointSnapThreshold float64
	MinShapeSize          float64
	EllipseSegments       int
	DragThreshold         float64
	DoubleClickTolerance  float64
	AutoDoorMinLength     float64
	AutoDoorMaxLength     float64
	AutoDoorTolerance     float64
}

// DefaultOptions returns the stock authoring tolerances.
func DefaultOptions() Options {
	return Options{
		DoorHitThreshold:      20,
		MinDoorWidth:          50,
		EndpointSnapThreshold: 15,
		MinShapeSize:          5,
		EllipseSegments:       geom.DefaultEllipseSegments,
		DragThreshold:         3,
		DoubleClickTolerance:  2,
		AutoDoorMinLength:     10,
		AutoDoorMaxLength:     150,
		AutoDoorTolerance:     2,
	}
}

// Author is the wall authoring state machine for one map.
type Author struct {
	opts     Options
	m        *mapdoc.Map
	layers   layer.Registry
	defaults mapdoc.Settings
	logger   *zap.Logger

	// Session is the shape currently being drawn.
	Session DrawingSession
}

// NewAuthor returns an Author writing to m.
//
// Precondition: m must be non-nil. layers may be nil, in which case every
// layer is editable.
// Postcondition: the returned Author is idle.
func NewAuthor(m *mapdoc.Map, layers layer.Registry, opts Options, defaults mapdoc.Settings, logger *zap.Logger) *Author {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Author{opts: opts, m: m, layers: layers, defaults: defaults, logger: logger}
}

// Options returns the authoring options.
func (a *Author) Options() Options { return a.opts }

// Snap resolves p against endpoints and the map grid.
func (a *Author) Snap(p geom.Point, mods geom.Modifiers) geom.Point {
	s := a.m.Settings(a.defaults)
	sn := geom.Snapper{
		EndpointThreshold: a.opts.EndpointSnapThreshold,
		Grid:              s.Grid,
		GridEnabled:       s.GridEnabled,
	}
	return sn.Snap(p, a.m.Walls(), mods)
}

func (a *Author) activeLayer() string {
	return a.m.Settings(a.defaults).ActiveLayer
}

func (a *Author) editable() bool {
	if err := layer.CanEdit(a.layers, a.activeLayer()); err != nil {
		a.logger.Debug("wall edit refused", zap.String("layer", a.activeLayer()), zap.Error(err))
		return false
	}
	return true
}

// Cancel abandons the current session without committing.
func (a *Author) Cancel() { a.Session.reset() }

// commitWall stores segs as one new wall on the active layer.
func (a *Author) commitWall(segs []geom.WallSegment) (geom.Wall, bool) {
	if len(segs) == 0 {
		a.logger.Debug("discarding empty wall")
		return geom.Wall{}, false
	}
	if !a.editable() {
		return geom.Wall{}, false
	}
	w, ok := a.m.AddWall(geom.Wall{Layer: a.activeLayer(), Segments: segs})
	if ok {
		a.logger.Debug("wall committed", zap.String("wall", w.ID), zap.Int("segments", len(w.Segments)))
	}
	return w, ok
}

// PolygonDown handles a pointer press in polygon mode: the first press opens
// a session, later presses append a node.
func (a *Author) PolygonDown(p geom.Point, mods geom.Modifiers) {
	q := a.Snap(p, mods)
	if a.Session.Kind != DrawingPolygon {
		a.Session.reset()
		a.Session.Kind = DrawingPolygon
	}
	a.Session.Nodes = append(a.Session.Nodes, Node{P: q})
	a.Session.Preview = q
	a.Session.dragOrigin = &q
}

// PolygonMove updates the preview and, while the button is held past the
// drag threshold, sets mirrored handles on the node just placed.
func (a *Author) PolygonMove(p geom.Point, mods geom.Modifiers) {
	if a.Session.Kind != DrawingPolygon {
		return
	}
	a.Session.Preview = a.Snap(p, mods)
	o := a.Session.dragOrigin
	if o == nil || len(a.Session.Nodes) == 0 {
		return
	}
	d := p.Sub(*o)
	if math.Hypot(d.X, d.Y) <= a.opts.DragThreshold {
		return
	}
	out, in := o.Add(d), o.Sub(d)
	last := &a.Session.Nodes[len(a.Session.Nodes)-1]
	last.Out, last.In = &out, &in
}

// PolygonUp ends a press. A short straight stroke lying on an existing wall
// segment becomes a door in that segment instead of a new wall.
//
// Postcondition: returns true when an autocompleted door was written; the
// session is then idle.
func (a *Author) PolygonUp(p geom.Point, mods geom.Modifiers) bool {
	if a.Session.Kind != DrawingPolygon {
		return false
	}
	a.Session.dragOrigin = nil
	if a.autocompleteDoor() {
		a.Session.reset()
		return true
	}
	return false
}

// PolygonDoubleClick commits the polygon, dropping the duplicate node placed
// by the second press of the double click.
func (a *Author) PolygonDoubleClick() (geom.Wall, bool) {
	if a.Session.Kind != DrawingPolygon {
		return geom.Wall{}, false
	}
	n := a.Session.Nodes
	if k := len(n); k >= 2 && n[k-1].P.Near(n[k-2].P, a.opts.DoubleClickTolerance) && !n[k-1].HasHandles() {
		a.Session.Nodes = n[:k-1]
	}
	return a.CommitPolygon()
}

// CommitPolygon writes the accumulated nodes as one wall and ends the
// session. Fewer than two nodes, or no non-degenerate edge, commits nothing.
func (a *Author) CommitPolygon() (geom.Wall, bool) {
	if a.Session.Kind != DrawingPolygon {
		return geom.Wall{}, false
	}
	nodes := a.Session.Nodes
	a.Session.reset()
	if len(nodes) < 2 {
		a.logger.Debug("discarding polygon", zap.Int("nodes", len(nodes)))
		return geom.Wall{}, false
	}
	return a.commitWall(polygonSegments(nodes))
}

// autocompleteDoor inserts a door when the session is a single straight
// stroke of door-like length whose endpoints both lie on one existing linear
// segment.
func (a *Author) autocompleteDoor() bool {
	nodes := a.Session.Nodes
	if len(nodes) != 2 || nodes[0].HasHandles() || nodes[1].HasHandles() {
		return false
	}
	p, q := nodes[0].P, nodes[1].P
	l := p.Dist(q)
	if l < a.opts.AutoDoorMinLength || l > a.opts.AutoDoorMaxLength {
		return false
	}
	for _, w := range a.m.Walls() {
		for _, s := range w.Segments {
			if s.Kind() != geom.Linear || s.IsDoor {
				continue
			}
			hp, hq := geom.DistanceToSegment(p, s), geom.DistanceToSegment(q, s)
			if hp.Dist > a.opts.AutoDoorTolerance || hq.Dist > a.opts.AutoDoorTolerance {
				continue
			}
			if !a.editable() {
				return false
			}
			total := geom.Length(s)
			pieces := DoorOverSpan(s, hp.T*total, hq.T*total)
			if !a.m.SpliceSegment(s.ID, pieces...) {
				return false
			}
			a.logger.Debug("door autocompleted", zap.String("wall", w.ID), zap.String("segment", s.ID))
			return true
		}
	}
	return false
}

// ShapeDown starts a rect or ellipse at p.
func (a *Author) ShapeDown(kind SessionKind, p geom.Point, mods geom.Modifiers) {
	if kind != DrawingRect && kind != DrawingEllipse {
		return
	}
	a.Session.reset()
	a.Session.Kind = kind
	a.Session.Anchor = a.Snap(p, mods)
	a.Session.Preview = a.Session.Anchor
}

// ShapeMove updates the rubber-band corner.
func (a *Author) ShapeMove(p geom.Point, mods geom.Modifiers) {
	if a.Session.Kind == DrawingRect || a.Session.Kind == DrawingEllipse {
		a.Session.Preview = a.Snap(p, mods)
	}
}

// ShapeUp commits the rect or ellipse spanned from the anchor to p. Boxes
// narrower or shorter than the minimum shape size are discarded.
func (a *Author) ShapeUp(p geom.Point, mods geom.Modifiers) (geom.Wall, bool) {
	kind := a.Session.Kind
	if kind != DrawingRect && kind != DrawingEllipse {
		return geom.Wall{}, false
	}
	r := geom.RectFromPoints(a.Session.Anchor, a.Snap(p, mods))
	a.Session.reset()
	if r.Width() < a.opts.MinShapeSize || r.Height() < a.opts.MinShapeSize {
		a.logger.Debug("discarding small shape", zap.Stringer("kind", kind),
			zap.Float64("w", r.Width()), zap.Float64("h", r.Height()))
		return geom.Wall{}, false
	}
	if kind == DrawingRect {
		return a.commitWall(geom.GenerateRectSegments(r.Min.X, r.Min.Y, r.Width(), r.Height()))
	}
	return a.commitWall(geom.GenerateEllipseSegments(
		(r.Min.X+r.Max.X)/2, (r.Min.Y+r.Max.Y)/2, r.Width()/2, r.Height()/2, a.opts.EllipseSegments))
}

// DoorClick places or toggles a door at p. Doors, and walls too short to
// hold a door with margin, toggle in place; longer walls are split into
// wall, door and wall centred on the click.
//
// Only walls on editable layers are hit-tested, so a locked wall lying
// nearer to p never shadows an editable one.
//
// Postcondition: returns false when no editable segment was hit or the door
// would not fit.
func (a *Author) DoorClick(p geom.Point) bool {
	walls := layer.EditableWalls(a.layers, a.m.Walls())
	ref, hit, ok := geom.HitTest(p, walls, a.opts.DoorHitThreshold)
	if !ok {
		a.logger.Debug("no editable segment under door click", zap.Float64("x", p.X), zap.Float64("y", p.Y))
		return false
	}
	seg, _ := ref.Lookup(walls)
	if seg.IsDoor || geom.Length(seg) < 1.5*a.opts.MinDoorWidth {
		return a.m.ReplaceSegment(ToggleDoor(seg))
	}
	pieces, ok := SplitForDoor(seg, hit.T, a.opts.MinDoorWidth)
	if !ok {
		a.logger.Debug("door too close to segment end", zap.String("segment", seg.ID))
		return false
	}
	return a.m.SpliceSegment(seg.ID, pieces...)
}

// SetDoorOpen opens or closes the door segment segID.
func (a *Author) SetDoorOpen(segID string, open bool) bool {
	w, i, ok := a.m.FindSegment(segID)
	if !ok || !w.Segments[i].IsDoor {
		return false
	}
	return a.m.ReplaceSegment(w.Segments[i].WithDoorOpen(open))
}

// Key handles Enter and Escape, both of which commit a polygon in progress.
// Escape abandons a rect or ellipse.
func (a *Author) Key(key string) (geom.Wall, bool) {
	switch key {
	case "Enter", "Escape":
		if a.Session.Kind == DrawingPolygon {
			return a.CommitPolygon()
		}
		if key == "Escape" {
			a.Cancel()
		}
	}
	return geom.Wall{}, false
}
