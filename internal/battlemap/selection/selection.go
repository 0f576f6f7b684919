// Package selection hit-tests committed walls and edits the selected
// segments: handle drags, group moves, marquee selection, merge, delete,
// curve conversion and door toggling.
package selection

import (
	"slices"

	"go.uber.org/zap"

	"github.com/cory-johannsen/battlemap/internal/battlemap/geom"
	"github.com/cory-johannsen/battlemap/internal/battlemap/layer"
	"github.com/cory-johannsen/battlemap/internal/battlemap/mapdoc"
)

// Options tunes selection. Distances are in map units except HandleRadius,
// which is in screen pixels and divided by the zoom factor.
type Options struct {
	HitThreshold   float64
	HandleRadius   float64
	MergeTolerance float64
}

// DefaultOptions returns the stock selection tolerances.
func DefaultOptions() Options {
	return Options{HitThreshold: 20, HandleRadius: 10, MergeTolerance: 0.1}
}

// Modifiers is the modifier state of a selection pointer event.
type Modifiers struct {
	geom.Modifiers
	// Additive extends the current selection instead of replacing it.
	Additive bool
}

// SnapFunc adjusts a pointer position, typically via walls.Author.Snap.
type SnapFunc func(geom.Point, geom.Modifiers) geom.Point

type dragKind int

const (
	dragNone dragKind = iota
	dragHandle
	dragMove
	dragBox
)

// Engine holds the selection and any drag in progress for one map.
type Engine struct {
	opts   Options
	m      *mapdoc.Map
	layers layer.Registry
	snap   SnapFunc
	logger *zap.Logger

	// Zoom scales the handle radius; values <= 0 are treated as 1.
	Zoom float64

	selected []string

	drag     dragKind
	origin   geom.Point
	handle   HandleKind
	snapshot map[string]geom.WallSegment
	preview  map[string]geom.WallSegment
	box      geom.Rect
	additive bool
}

// New returns an Engine over m.
//
// Precondition: m must be non-nil; layers and snap may be nil.
func New(m *mapdoc.Map, layers layer.Registry, snap SnapFunc, opts Options, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if snap == nil {
		snap = func(p geom.Point, _ geom.Modifiers) geom.Point { return p }
	}
	return &Engine{opts: opts, m: m, layers: layers, snap: snap, logger: logger, Zoom: 1}
}

// Selected returns the selected segment IDs in selection order.
func (e *Engine) Selected() []string { return slices.Clone(e.selected) }

// IsSelected reports whether segID is selected.
func (e *Engine) IsSelected(segID string) bool { return slices.Contains(e.selected, segID) }

// Select replaces the selection with ids.
func (e *Engine) Select(ids ...string) { e.selected = slices.Compact(slices.Clone(ids)) }

// Clear empties the selection.
func (e *Engine) Clear() { e.selected = nil }

func (e *Engine) add(ids ...string) {
	for _, id := range ids {
		if !e.IsSelected(id) {
			e.selected = append(e.selected, id)
		}
	}
}

// Prune drops selected IDs that no longer exist, for example after a remote
// delete.
func (e *Engine) Prune() {
	live := make(map[string]bool)
	for _, w := range e.m.Walls() {
		for _, s := range w.Segments {
			live[s.ID] = true
		}
	}
	e.selected = slices.DeleteFunc(e.selected, func(id string) bool { return !live[id] })
}

// editableWalls returns the walls on layers that may be edited.
func (e *Engine) editableWalls() []geom.Wall {
	return layer.EditableWalls(e.layers, e.m.Walls())
}

// HitTest returns the editable segment nearest p within the hit threshold.
func (e *Engine) HitTest(p geom.Point) (geom.SegmentRef, bool) {
	ref, _, ok := geom.HitTest(p, e.editableWalls(), e.opts.HitThreshold)
	return ref, ok
}

// selectedSegments resolves the selection to live segments, in selection
// order, skipping IDs that no longer exist.
func (e *Engine) selectedSegments() []geom.WallSegment {
	byID := make(map[string]geom.WallSegment)
	for _, w := range e.editableWalls() {
		for _, s := range w.Segments {
			byID[s.ID] = s
		}
	}
	var out []geom.WallSegment
	for _, id := range e.selected {
		if s, ok := byID[id]; ok {
			out = append(out, s)
		}
	}
	return out
}

// SelectWall selects every segment of the wall hit at p.
func (e *Engine) SelectWall(p geom.Point, mods Modifiers) bool {
	ref, ok := e.HitTest(p)
	if !ok {
		return false
	}
	w, ok := e.m.Wall(ref.WallID)
	if !ok {
		return false
	}
	if !mods.Additive {
		e.Clear()
	}
	for _, s := range w.Segments {
		e.add(s.ID)
	}
	return true
}

// BoxSelect selects every segment whose bounds, control points included,
// overlap r. Additive extends the selection instead of replacing it.
func (e *Engine) BoxSelect(r geom.Rect, additive bool) int {
	if !additive {
		e.Clear()
	}
	n := 0
	for _, w := range e.editableWalls() {
		for _, s := range w.Segments {
			if geom.Bounds(s).Overlaps(r) {
				e.add(s.ID)
				n++
			}
		}
	}
	return n
}
