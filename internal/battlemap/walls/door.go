package walls

import (
	"math"

	"github.com/cory-johannsen/battlemap/internal/battlemap/geom"
)

// minPiece is the arc length below which a split remainder is dropped.
const minPiece = 1e-6

// SplitForDoor splits seg into wall, door and wall pieces with a door of arc
// length width centred on the point at parameter t.
//
// Postcondition: ok is false when the door would not fit, i.e. the centre
// lies within width/2 of either end. Pieces of zero length are omitted; the
// result is ordered from seg's start to its end and the middle piece is a
// closed door.
func SplitForDoor(seg geom.WallSegment, t, width float64) (pieces []geom.WallSegment, ok bool) {
	total := geom.Length(seg)
	at := geom.LengthAtParam(seg, t)
	half := width / 2
	if width <= 0 || at < half || at > total-half {
		return nil, false
	}
	return spanDoor(seg, at-half, at+half), true
}

// DoorOverSpan splits seg so that the arc-length span [from, to] becomes a
// closed door.
func DoorOverSpan(seg geom.WallSegment, from, to float64) []geom.WallSegment {
	if from > to {
		from, to = to, from
	}
	total := geom.Length(seg)
	return spanDoor(seg, math.Max(0, from), math.Min(total, to))
}

func spanDoor(seg geom.WallSegment, from, to float64) []geom.WallSegment {
	var out []geom.WallSegment
	rest := seg
	if from > minPiece {
		a, b := geom.SplitSegment(rest, geom.ParamAtLength(rest, from))
		out = append(out, a)
		rest = b
	}
	doorLen := to - from
	door := rest
	var tail *geom.WallSegment
	if geom.Length(rest)-doorLen > minPiece {
		d, c := geom.SplitSegment(rest, geom.ParamAtLength(rest, doorLen))
		door = d
		tail = &c
	}
	if door.ID == seg.ID {
		door.ID = geom.NewID()
	}
	out = append(out, door.AsDoor())
	if tail != nil {
		out = append(out, *tail)
	}
	return out
}

// ToggleDoor flips seg between a plain wall and a closed door, keeping its
// geometry and ID.
func ToggleDoor(seg geom.WallSegment) geom.WallSegment {
	if seg.IsDoor {
		return seg.AsWall()
	}
	return seg.AsDoor()
}
