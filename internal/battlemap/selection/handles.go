package selection

import (
	"github.com/cory-johannsen/battlemap/internal/battlemap/geom"
)

// HandleKind names a draggable point of a segment.
type HandleKind int

// Handle kinds.
const (
	HandleStart HandleKind = iota
	HandleEnd
	HandleCP1
	HandleCP2
)

// Handle is a draggable point of the single selected segment.
type Handle struct {
	Kind HandleKind
	P    geom.Point
}

// Handles returns the draggable points of the selection, which exist only
// when exactly one segment is selected.
func (e *Engine) Handles() []Handle {
	segs := e.selectedSegments()
	if len(e.selected) != 1 || len(segs) != 1 {
		return nil
	}
	return segmentHandles(segs[0])
}

func segmentHandles(s geom.WallSegment) []Handle {
	hs := []Handle{{HandleStart, s.Start()}, {HandleEnd, s.End()}}
	switch s.Kind() {
	case geom.Cubic:
		c1, c2 := s.Controls()
		hs = append(hs, Handle{HandleCP1, c1}, Handle{HandleCP2, c2})
	case geom.Quadratic:
		c, _ := s.Controls()
		hs = append(hs, Handle{HandleCP1, c})
	}
	return hs
}

// HandleAt returns the handle under p, if any. Control points are checked
// before endpoints so a control point dragged onto an endpoint stays
// reachable.
func (e *Engine) HandleAt(p geom.Point) (Handle, bool) {
	hs := e.Handles()
	zoom := e.Zoom
	if zoom <= 0 {
		zoom = 1
	}
	r := e.opts.HandleRadius / zoom
	for i := len(hs) - 1; i >= 0; i-- {
		if hs[i].P.Near(p, r) {
			return hs[i], true
		}
	}
	return Handle{}, false
}

// withHandle returns s with the point named by k moved to p.
func withHandle(s geom.WallSegment, k HandleKind, p geom.Point) geom.WallSegment {
	s = s.Normalized()
	switch s.Kind() {
	case geom.Cubic:
		c1, c2 := s.Controls()
		s.CP1, s.CP2 = &c1, &c2
	case geom.Quadratic:
		c, _ := s.Controls()
		s.CP1 = &c
	}
	switch k {
	case HandleStart:
		s.X1, s.Y1 = p.X, p.Y
	case HandleEnd:
		s.X2, s.Y2 = p.X, p.Y
	case HandleCP1:
		if s.Kind() != geom.Linear {
			s.CP1 = &p
		}
	case HandleCP2:
		if s.Kind() == geom.Cubic {
			s.CP2 = &p
		}
	}
	return s
}
