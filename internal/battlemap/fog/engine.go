package fog

import (
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/cory-johannsen/battlemap/internal/battlemap/geom"
)

// Options configures an Engine.
type Options struct {
	// Bounds is the map rectangle the mask covers.
	Bounds geom.Rect
	// Resolution is the mask and flood-fill cell size.
	Resolution float64
	// MaxCells caps the mask and flood-fill grids.
	MaxCells int
	// Diagonal enables 8-connected flood fill.
	Diagonal bool
	// BrushWidth is the stroke width used when none is given.
	BrushWidth float64
}

// DefaultOptions returns options for a 4000×4000 map.
func DefaultOptions() Options {
	return Options{
		Bounds:     geom.Rect{Max: geom.Pt(4000, 4000)},
		Resolution: 10,
		MaxCells:   250000,
		BrushWidth: 40,
	}
}

// Engine authors fog shapes and rooms for one map. It is not safe for
// concurrent use.
type Engine struct {
	store      Store
	opts       Options
	logger     *zap.Logger
	activeRoom string
}

// NewEngine returns an Engine writing to store.
//
// Precondition: store must be non-nil; opts.Resolution > 0.
func NewEngine(store Store, opts Options, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{store: store, opts: opts, logger: logger}
}

// Options returns the engine options.
func (e *Engine) Options() Options { return e.opts }

// Mask replays the stored log into a fresh mask.
//
// Postcondition: the mask has at most Options.MaxCells cells when MaxCells
// is positive; the resolution is coarsened to fit.
func (e *Engine) Mask() *Mask {
	res := effectiveResolution(e.opts.Bounds, e.opts.Resolution, e.opts.MaxCells)
	return Replay(e.opts.Bounds, res, e.store.FogShapes())
}

func (e *Engine) commit(s Shape) (Shape, bool) {
	s.ID = geom.NewID()
	if err := s.Validate(); err != nil || s.Degenerate() {
		e.logger.Debug("discarding fog shape", zap.String("type", string(s.Type)), zap.Error(err))
		return Shape{}, false
	}
	if !e.store.CommitFog([]Shape{s}, nil) {
		return Shape{}, false
	}
	return s, true
}

func flatten(pts []geom.Point) []float64 {
	out := make([]float64, 0, len(pts)*2)
	for _, p := range pts {
		out = append(out, p.X, p.Y)
	}
	return out
}

// AddBrush commits a stroke through pts. A width <= 0 uses the default brush
// width.
func (e *Engine) AddBrush(pts []geom.Point, width float64, op Operation) (Shape, bool) {
	if width <= 0 {
		width = e.opts.BrushWidth
	}
	return e.commit(Shape{Type: Brush, Data: flatten(pts), Operation: op, Width: width})
}

// AddRect commits the box r.
func (e *Engine) AddRect(r geom.Rect, op Operation) (Shape, bool) {
	return e.commit(Shape{Type: Rect, Data: []float64{r.Min.X, r.Min.Y, r.Width(), r.Height()}, Operation: op})
}

// AddEllipse commits the ellipse inscribed in r.
func (e *Engine) AddEllipse(r geom.Rect, op Operation) (Shape, bool) {
	return e.commit(Shape{Type: Ellipse, Data: []float64{r.Min.X, r.Min.Y, r.Width(), r.Height()}, Operation: op})
}

// AddPoly commits the closed polygon pts.
func (e *Engine) AddPoly(pts []geom.Point, op Operation) (Shape, bool) {
	return e.commit(Shape{Type: Poly, Data: flatten(pts), Operation: op})
}

// AddGridCell commits the grid cell containing p.
func (e *Engine) AddGridCell(g geom.GridSpec, p geom.Point, op Operation) (Shape, bool) {
	col, row := geom.CellAt(g, p)
	pts := geom.CellShape(g, col, row)
	if len(pts) == 0 {
		return Shape{}, false
	}
	return e.commit(Shape{Type: GridCell, Data: flatten(pts), Operation: op})
}

// ActiveRoom returns the ID of the room receiving reveals, or "".
func (e *Engine) ActiveRoom() string { return e.activeRoom }

// EndRoom closes the active room; the next reveal starts a new one.
func (e *Engine) EndRoom() { e.activeRoom = "" }

// RevealRoom flood fills from click, bounded by walls, and commits the
// region as a subtract polygon. The shape joins the active room, or a new
// room that becomes active.
//
// Postcondition: returns false when the fill found no region.
func (e *Engine) RevealRoom(click geom.Point, walls []geom.Wall) (Shape, Room, bool) {
	res, ok := FloodFill(click, walls, FloodOptions{
		Bounds:     e.opts.Bounds,
		Resolution: e.opts.Resolution,
		MaxCells:   e.opts.MaxCells,
		Diagonal:   e.opts.Diagonal,
	})
	if !ok || len(res.Polygon) < 3 {
		e.logger.Debug("flood fill found no region", zap.Float64("x", click.X), zap.Float64("y", click.Y))
		return Shape{}, Room{}, false
	}
	shape := Shape{ID: geom.NewID(), Type: Poly, Data: flatten(res.Polygon), Operation: Subtract}

	room, found := e.findRoom(e.activeRoom)
	if !found {
		rooms := e.store.Rooms()
		room = Room{ID: geom.NewID(), Name: fmt.Sprintf("Room %d", len(rooms)+1)}
	}
	room.ShapeIDs = append(slices.Clone(room.ShapeIDs), shape.ID)
	room.Hidden = false
	if !e.store.CommitFog([]Shape{shape}, &room) {
		return Shape{}, Room{}, false
	}
	e.activeRoom = room.ID
	e.logger.Debug("room revealed",
		zap.String("room", room.ID),
		zap.Int("cells", res.Cells),
		zap.Float64("resolution", res.Resolution),
	)
	return shape, room, true
}

func (e *Engine) findRoom(id string) (Room, bool) {
	if id == "" {
		return Room{}, false
	}
	for _, r := range e.store.Rooms() {
		if r.ID == id {
			return r, true
		}
	}
	return Room{}, false
}

// HideRoom re-hides a room by appending add copies of its shapes.
func (e *Engine) HideRoom(id string) bool { return e.setRoomHidden(id, true) }

// ShowRoom reveals a hidden room again by appending subtract copies of its
// shapes.
func (e *Engine) ShowRoom(id string) bool { return e.setRoomHidden(id, false) }

func (e *Engine) setRoomHidden(id string, hidden bool) bool {
	room, ok := e.findRoom(id)
	if !ok || room.Hidden == hidden {
		return false
	}
	op := Subtract
	if hidden {
		op = Add
	}
	byID := make(map[string]Shape)
	for _, s := range e.store.FogShapes() {
		byID[s.ID] = s
	}
	var copies []Shape
	for _, sid := range room.ShapeIDs {
		s, ok := byID[sid]
		if !ok {
			continue
		}
		c := s.Inverse()
		c.Operation = op
		copies = append(copies, c)
	}
	room.Hidden = hidden
	return e.store.CommitFog(copies, &room)
}

// RenameRoom sets a room's display name.
func (e *Engine) RenameRoom(id, name string) bool {
	room, ok := e.findRoom(id)
	if !ok {
		return false
	}
	room.Name = name
	return e.store.CommitFog(nil, &room)
}
