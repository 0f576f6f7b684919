package geom

import "math"

// SegmentRef identifies a segment by wall and segment ID, with its indexes at
// the time it was found.
type SegmentRef struct {
	WallID       string
	SegmentID    string
	WallIndex    int
	SegmentIndex int
}

// HitTest returns the segment nearest to p among walls whose distance is
// below threshold. Ties go to the segment scanned first.
//
// Postcondition: ok is false when no segment lies within threshold.
func HitTest(p Point, walls []Wall, threshold float64) (ref SegmentRef, hit Hit, ok bool) {
	best := math.Inf(1)
	for wi, w := range walls {
		for si, s := range w.Segments {
			h := DistanceToSegment(p, s)
			if h.Dist < threshold && h.Dist < best {
				best = h.Dist
				ref = SegmentRef{WallID: w.ID, SegmentID: s.ID, WallIndex: wi, SegmentIndex: si}
				hit = h
				ok = true
			}
		}
	}
	return ref, hit, ok
}

// Lookup resolves ref against walls by ID.
func (r SegmentRef) Lookup(walls []Wall) (WallSegment, bool) {
	for _, w := range walls {
		if w.ID != r.WallID {
			continue
		}
		if i := w.SegmentIndex(r.SegmentID); i >= 0 {
			return w.Segments[i], true
		}
	}
	return WallSegment{}, false
}
