package selection

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/battlemap/internal/battlemap/geom"
)

// PointerDown starts a drag. Over a handle of the single selected segment it
// starts a handle drag; over a segment it selects it (if needed) and starts a
// group move; over empty space it starts a marquee.
func (e *Engine) PointerDown(p geom.Point, mods Modifiers) {
	e.endDrag()
	e.origin = p
	e.additive = mods.Additive

	if h, ok := e.HandleAt(p); ok {
		segs := e.selectedSegments()
		e.drag = dragHandle
		e.handle = h.Kind
		e.snapshot = map[string]geom.WallSegment{segs[0].ID: segs[0]}
		return
	}
	if ref, ok := e.HitTest(p); ok {
		if !e.IsSelected(ref.SegmentID) {
			if !mods.Additive {
				e.Clear()
			}
			e.add(ref.SegmentID)
		}
		e.drag = dragMove
		e.snapshot = make(map[string]geom.WallSegment)
		for _, s := range e.selectedSegments() {
			e.snapshot[s.ID] = s
		}
		return
	}
	e.drag = dragBox
	e.box = geom.RectFromPoints(p, p)
}

// PointerMove updates the drag preview. Nothing is written until
// PointerUp.
func (e *Engine) PointerMove(p geom.Point, mods Modifiers) {
	switch e.drag {
	case dragHandle:
		q := e.snap(p, mods.Modifiers)
		e.preview = make(map[string]geom.WallSegment, 1)
		for id, s := range e.snapshot {
			e.preview[id] = withHandle(s, e.handle, q)
		}
	case dragMove:
		// Deltas are cumulative from the drag origin and applied to the
		// snapshot, never to the live records.
		d := p.Sub(e.origin)
		e.preview = make(map[string]geom.WallSegment, len(e.snapshot))
		for id, s := range e.snapshot {
			e.preview[id] = s.Translate(d)
		}
	case dragBox:
		e.box = geom.RectFromPoints(e.origin, p)
	}
}

// Preview returns the segments as they would be committed by the current
// drag, keyed by ID.
func (e *Engine) Preview() map[string]geom.WallSegment { return e.preview }

// Marquee returns the marquee rectangle while a box selection is in progress.
func (e *Engine) Marquee() (geom.Rect, bool) { return e.box, e.drag == dragBox }

// PointerUp ends the drag, committing a handle drag or group move in one
// transaction, or applying a marquee selection.
//
// Postcondition: returns the number of segments written or newly selected.
func (e *Engine) PointerUp(p geom.Point, mods Modifiers) int {
	defer e.endDrag()
	switch e.drag {
	case dragHandle, dragMove:
		e.PointerMove(p, mods)
		if p == e.origin {
			return 0
		}
		n := e.m.ReplaceSegments(e.preview)
		e.logger.Debug("segments moved", zap.Int("count", n))
		return n
	case dragBox:
		e.box = geom.RectFromPoints(e.origin, p)
		if e.box.Width() == 0 && e.box.Height() == 0 {
			if !e.additive {
				e.Clear()
			}
			return 0
		}
		return e.BoxSelect(e.box, e.additive)
	}
	return 0
}

// CancelDrag abandons the drag in progress without writing.
func (e *Engine) CancelDrag() { e.endDrag() }

func (e *Engine) endDrag() {
	e.drag = dragNone
	e.snapshot = nil
	e.preview = nil
	e.box = geom.Rect{}
}
