package selection

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/battlemap/internal/battlemap/geom"
	"github.com/cory-johannsen/battlemap/internal/battlemap/layer"
)

// Merge joins exactly two selected segments of the same wall that are
// adjacent in index order and meet end to start within the merge tolerance.
// The result is linear and takes its flags from the first segment.
func (e *Engine) Merge() bool {
	if len(e.selected) != 2 {
		return false
	}
	w, i, ok := e.m.FindSegment(e.selected[0])
	if !ok || layer.CanEdit(e.layers, w.Layer) != nil {
		return false
	}
	j := w.SegmentIndex(e.selected[1])
	if j < 0 {
		return false
	}
	if j < i {
		i, j = j, i
	}
	if j != i+1 {
		return false
	}
	a, b := w.Segments[i], w.Segments[j]
	if !a.End().Near(b.Start(), e.opts.MergeTolerance) {
		return false
	}
	merged := geom.NewLine(a.Start(), b.End()).SetPermissions(a)
	if !e.m.MergeSegments(a.ID, b.ID, merged) {
		return false
	}
	e.Select(merged.ID)
	e.logger.Debug("segments merged", zap.String("wall", w.ID), zap.String("segment", merged.ID))
	return true
}

// Delete removes the selected segments, and any wall left empty, then clears
// the selection.
func (e *Engine) Delete() int {
	segs := e.selectedSegments()
	ids := make([]string, len(segs))
	for i, s := range segs {
		ids[i] = s.ID
	}
	n := e.m.DeleteSegments(ids)
	e.Clear()
	return n
}

// ToCubic promotes selected linear segments to cubic curves with control
// points at one and two thirds of the chord.
func (e *Engine) ToCubic() int {
	return e.rewrite(func(s geom.WallSegment) (geom.WallSegment, bool) {
		if s.Kind() != geom.Linear {
			return s, false
		}
		c1 := geom.Lerp(s.Start(), s.End(), 1.0/3)
		c2 := geom.Lerp(s.Start(), s.End(), 2.0/3)
		s.CurveType = geom.Cubic
		s.CP1, s.CP2 = &c1, &c2
		return s, true
	})
}

// ToLinear flattens selected curves to straight segments.
func (e *Engine) ToLinear() int {
	return e.rewrite(func(s geom.WallSegment) (geom.WallSegment, bool) {
		if s.Kind() == geom.Linear {
			return s, false
		}
		s.CurveType = geom.Linear
		s.CP1, s.CP2 = nil, nil
		return s, true
	})
}

// ToggleDoor flips every selected segment between wall and closed door.
func (e *Engine) ToggleDoor() int {
	return e.rewrite(func(s geom.WallSegment) (geom.WallSegment, bool) {
		if s.IsDoor {
			return s.AsWall(), true
		}
		return s.AsDoor(), true
	})
}

// SetDoorOpen opens or closes every selected door.
func (e *Engine) SetDoorOpen(open bool) int {
	return e.rewrite(func(s geom.WallSegment) (geom.WallSegment, bool) {
		if !s.IsDoor || s.DoorOpen() == open {
			return s, false
		}
		return s.WithDoorOpen(open), true
	})
}

// rewrite replaces each selected segment for which fn reports a change, in
// one transaction.
func (e *Engine) rewrite(fn func(geom.WallSegment) (geom.WallSegment, bool)) int {
	changes := make(map[string]geom.WallSegment)
	for _, s := range e.selectedSegments() {
		if next, ok := fn(s.Normalized()); ok {
			changes[s.ID] = next
		}
	}
	return e.m.ReplaceSegments(changes)
}
