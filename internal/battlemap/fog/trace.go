package fog

import (
	"math"

	"github.com/cory-johannsen/battlemap/internal/battlemap/geom"
)

type vertex struct{ x, y int }

type dir struct{ dx, dy int }

func (d dir) right() dir { return dir{-d.dy, d.dx} }

func (d dir) left() dir { return dir{d.dy, -d.dx} }

func (v vertex) step(d dir) vertex { return vertex{v.x + d.dx, v.y + d.dy} }

// traceBoundary returns the outer boundary of the filled cells in grid
// coordinates. Boundary edges are directed with the filled cell on their
// right (y down), chained into closed loops, and the loop enclosing the
// largest area is returned with collinear vertices removed.
func traceBoundary(filled []bool, cols, rows int) []geom.Point {
	at := func(c, r int) bool {
		return c >= 0 && r >= 0 && c < cols && r < rows && filled[r*cols+c]
	}
	out := make(map[vertex][]dir)
	add := func(v vertex, d dir) { out[v] = append(out[v], d) }
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if !filled[r*cols+c] {
				continue
			}
			if !at(c, r-1) {
				add(vertex{c, r}, dir{1, 0})
			}
			if !at(c+1, r) {
				add(vertex{c + 1, r}, dir{0, 1})
			}
			if !at(c, r+1) {
				add(vertex{c + 1, r + 1}, dir{-1, 0})
			}
			if !at(c-1, r) {
				add(vertex{c, r + 1}, dir{0, -1})
			}
		}
	}

	var best []geom.Point
	bestArea := -1.0
	for len(out) > 0 {
		loop := walkLoop(out)
		if a := math.Abs(geom.SignedArea(loop)); a > bestArea {
			best, bestArea = loop, a
		}
	}
	return best
}

// take removes and returns an outgoing edge of v, preferring a right turn,
// then straight on, then a left turn relative to the incoming direction in.
func take(out map[vertex][]dir, v vertex, in dir) (dir, bool) {
	ds := out[v]
	if len(ds) == 0 {
		return dir{}, false
	}
	pick := 0
	for _, want := range []dir{in.right(), in, in.left()} {
		found := false
		for i, d := range ds {
			if d == want {
				pick, found = i, true
				break
			}
		}
		if found {
			break
		}
	}
	d := ds[pick]
	ds = append(ds[:pick], ds[pick+1:]...)
	if len(ds) == 0 {
		delete(out, v)
	} else {
		out[v] = ds
	}
	return d, true
}

// walkLoop consumes one closed loop of edges, starting from the top-left
// remaining vertex, and returns its corner vertices.
func walkLoop(out map[vertex][]dir) []geom.Point {
	first := true
	var start vertex
	for v := range out {
		if first || v.y < start.y || (v.y == start.y && v.x < start.x) {
			start, first = v, false
		}
	}
	d := out[start][0]
	take(out, start, d.left())

	pts := []geom.Point{geom.Pt(float64(start.x), float64(start.y))}
	prev := d
	v := start.step(d)
	for v != start {
		next, ok := take(out, v, prev)
		if !ok {
			break
		}
		if next != prev {
			pts = append(pts, geom.Pt(float64(v.x), float64(v.y)))
		}
		prev = next
		v = v.step(next)
	}
	// The start vertex is a corner only if the closing edge turns into the
	// first edge.
	if prev == d && len(pts) > 1 {
		pts = pts[1:]
	}
	return pts
}
