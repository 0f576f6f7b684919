package geom

import "math"

// DefaultEllipseSegments is the segment count used when a caller passes n < 3.
const DefaultEllipseSegments = 16

// GenerateEllipseSegments approximates the ellipse centred on (cx,cy) with
// radii rx, ry by n linear segments sampled at uniform angles.
//
// Postcondition: returns exactly n segments forming a closed loop; the last
// segment ends where the first begins.
func GenerateEllipseSegments(cx, cy, rx, ry float64, n int) []WallSegment {
	if n < 3 {
		n = DefaultEllipseSegments
	}
	pts := make([]Point, n)
	for i := range n {
		a := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = Point{X: cx + rx*math.Cos(a), Y: cy + ry*math.Sin(a)}
	}
	segs := make([]WallSegment, n)
	for i := range n {
		segs[i] = NewLine(pts[i], pts[(i+1)%n])
	}
	return segs
}

// GenerateRectSegments returns the four edges of the axis-aligned rectangle
// at (x,y) with size w×h, clockwise from the top-left corner.
func GenerateRectSegments(x, y, w, h float64) []WallSegment {
	tl := Point{X: x, Y: y}
	tr := Point{X: x + w, Y: y}
	br := Point{X: x + w, Y: y + h}
	bl := Point{X: x, Y: y + h}
	return []WallSegment{
		NewLine(tl, tr),
		NewLine(tr, br),
		NewLine(br, bl),
		NewLine(bl, tl),
	}
}

// Rect is an axis-aligned bounding box.
type Rect struct {
	Min, Max Point
}

// RectFromPoints returns the smallest Rect containing a and b.
func RectFromPoints(a, b Point) Rect {
	return Rect{
		Min: Point{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y)},
		Max: Point{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y)},
	}
}

// Width returns the horizontal extent.
func (r Rect) Width() float64 { return r.Max.X - r.Min.X }

// Height returns the vertical extent.
func (r Rect) Height() float64 { return r.Max.Y - r.Min.Y }

// Extend grows r to contain p.
func (r Rect) Extend(p Point) Rect {
	r.Min.X = math.Min(r.Min.X, p.X)
	r.Min.Y = math.Min(r.Min.Y, p.Y)
	r.Max.X = math.Max(r.Max.X, p.X)
	r.Max.Y = math.Max(r.Max.Y, p.Y)
	return r
}

// Overlaps reports whether r and o intersect, touching edges included.
func (r Rect) Overlaps(o Rect) bool {
	return r.Min.X <= o.Max.X && o.Min.X <= r.Max.X &&
		r.Min.Y <= o.Max.Y && o.Min.Y <= r.Max.Y
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}

// Grow returns r expanded by d on every side.
func (r Rect) Grow(d float64) Rect {
	return Rect{Min: Point{X: r.Min.X - d, Y: r.Min.Y - d}, Max: Point{X: r.Max.X + d, Y: r.Max.Y + d}}
}

// ClipSegment clips the line from a to b to r (Liang-Barsky).
//
// Postcondition: ok is false when the line misses r or an endpoint is not
// finite; otherwise the returned points lie on the line, inside r.
func ClipSegment(a, b Point, r Rect) (Point, Point, bool) {
	if !a.Finite() || !b.Finite() {
		return Point{}, Point{}, false
	}
	d := b.Sub(a)
	t0, t1 := 0.0, 1.0
	for _, e := range [4][2]float64{
		{-d.X, a.X - r.Min.X},
		{d.X, r.Max.X - a.X},
		{-d.Y, a.Y - r.Min.Y},
		{d.Y, r.Max.Y - a.Y},
	} {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return Point{}, Point{}, false
			}
			continue
		}
		t := q / p
		if p < 0 {
			t0 = math.Max(t0, t)
		} else {
			t1 = math.Min(t1, t)
		}
		if t0 > t1 {
			return Point{}, Point{}, false
		}
	}
	return a.Add(d.Scale(t0)), a.Add(d.Scale(t1)), true
}

// Bounds returns the bounding box of seg's endpoints and control points. The
// control polygon always contains a Bézier curve, so this is conservative.
func Bounds(seg WallSegment) Rect {
	r := RectFromPoints(seg.Start(), seg.End())
	if seg.Kind() != Linear {
		c1, c2 := seg.Controls()
		r = r.Extend(c1).Extend(c2)
	}
	return r
}

// FindNearbyEndpoint scans every segment endpoint of walls in order and
// returns the first one within threshold of p. Iteration order decides ties:
// the first match wins, not the closest.
//
// Postcondition: returns (point, true) on a match, or (Point{}, false).
func FindNearbyEndpoint(p Point, walls []Wall, threshold float64) (Point, bool) {
	for _, w := range walls {
		for _, s := range w.Segments {
			if a := s.Start(); p.Dist(a) <= threshold {
				return a, true
			}
			if b := s.End(); p.Dist(b) <= threshold {
				return b, true
			}
		}
	}
	return Point{}, false
}

// PolygonArea returns the absolute area enclosed by the closed polygon pts.
func PolygonArea(pts []Point) float64 {
	return math.Abs(SignedArea(pts))
}

// SignedArea returns the shoelace area of pts; the sign follows winding.
func SignedArea(pts []Point) float64 {
	var s float64
	for i := range pts {
		j := (i + 1) % len(pts)
		s += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return s / 2
}

// PointInPolygon tests p against the closed polygon using ray casting.
func PointInPolygon(p Point, poly []Point) bool {
	inside := false
	j := len(poly) - 1
	for i := range poly {
		xi, yi := poly[i].X, poly[i].Y
		xj, yj := poly[j].X, poly[j].Y
		if (yi > p.Y) != (yj > p.Y) && p.X < (xj-xi)*(p.Y-yi)/(yj-yi)+xi {
			inside = !inside
		}
		j = i
	}
	return inside
}
