package geom

import "math"

// CurveSamples is the fixed sampling resolution used for curved-segment
// distance queries and flattening.
const CurveSamples = 20

// CubicPoint evaluates a cubic Bézier curve at t using the Bernstein basis.
func CubicPoint(t float64, p0, p1, p2, p3 Point) Point {
	u := 1 - t
	b0 := u * u * u
	b1 := 3 * u * u * t
	b2 := 3 * u * t * t
	b3 := t * t * t
	return Point{
		X: b0*p0.X + b1*p1.X + b2*p2.X + b3*p3.X,
		Y: b0*p0.Y + b1*p1.Y + b2*p2.Y + b3*p3.Y,
	}
}

// QuadraticPoint evaluates a quadratic Bézier curve at t.
func QuadraticPoint(t float64, p0, p1, p2 Point) Point {
	u := 1 - t
	b0 := u * u
	b1 := 2 * u * t
	b2 := t * t
	return Point{
		X: b0*p0.X + b1*p1.X + b2*p2.X,
		Y: b0*p0.Y + b1*p1.Y + b2*p2.Y,
	}
}

// Hit is the result of a point-to-segment distance query.
type Hit struct {
	// Dist is the distance from the query point to Point.
	Dist float64
	// T is the curve parameter of Point.
	T float64
	// Point is the closest point found on the segment.
	Point Point
}

// DistanceToSegment measures how far p lies from seg.
//
// Linear segments use the exact projection clamped to [0,1]. Curved segments
// are sampled at CurveSamples+1 evenly spaced parameters and the closest
// sample is returned; this is an approximation sized for interactive
// hit-testing, not a true nearest-point solve.
func DistanceToSegment(p Point, seg WallSegment) Hit {
	if seg.Kind() == Linear {
		return distanceToLine(p, seg.Start(), seg.End())
	}
	best := Hit{Dist: math.Inf(1)}
	for i := 0; i <= CurveSamples; i++ {
		t := float64(i) / CurveSamples
		q := seg.PointAt(t)
		if d := p.Dist(q); d < best.Dist {
			best = Hit{Dist: d, T: t, Point: q}
		}
	}
	return best
}

func distanceToLine(p, a, b Point) Hit {
	dx, dy := b.X-a.X, b.Y-a.Y
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return Hit{Dist: p.Dist(a), T: 0, Point: a}
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lenSq
	t = math.Max(0, math.Min(1, t))
	q := Point{X: a.X + t*dx, Y: a.Y + t*dy}
	return Hit{Dist: p.Dist(q), T: t, Point: q}
}

// SplitSegment subdivides seg at t into two segments meeting at seg.PointAt(t).
//
// Curved segments are split with De Casteljau subdivision so each half traces
// exactly the original curve. Both halves inherit the door and permission
// flags and receive freshly minted IDs.
//
// Precondition: t should lie in (0,1); values outside are clamped.
func SplitSegment(seg WallSegment, t float64) (WallSegment, WallSegment) {
	t = math.Max(0, math.Min(1, t))
	p0, p3 := seg.Start(), seg.End()
	a := seg.Normalized()
	b := seg.Normalized()
	a.ID, b.ID = NewID(), NewID()

	switch seg.Kind() {
	case Cubic:
		c1, c2 := seg.Controls()
		p01 := Lerp(p0, c1, t)
		p12 := Lerp(c1, c2, t)
		p23 := Lerp(c2, p3, t)
		p012 := Lerp(p01, p12, t)
		p123 := Lerp(p12, p23, t)
		mid := Lerp(p012, p123, t)
		a = a.WithEndpoints(p0, mid)
		a.CP1, a.CP2 = &p01, &p012
		b = b.WithEndpoints(mid, p3)
		b.CP1, b.CP2 = &p123, &p23
	case Quadratic:
		c, _ := seg.Controls()
		p01 := Lerp(p0, c, t)
		p12 := Lerp(c, p3, t)
		mid := Lerp(p01, p12, t)
		a = a.WithEndpoints(p0, mid)
		a.CP1 = &p01
		b = b.WithEndpoints(mid, p3)
		b.CP1 = &p12
	default:
		mid := Lerp(p0, p3, t)
		a = a.WithEndpoints(p0, mid)
		b = b.WithEndpoints(mid, p3)
	}
	return a, b
}

// Flatten approximates seg by n+1 points from Start to End. Linear segments
// always return their two endpoints.
func Flatten(seg WallSegment, n int) []Point {
	if seg.Kind() == Linear {
		return []Point{seg.Start(), seg.End()}
	}
	if n < 1 {
		n = CurveSamples
	}
	pts := make([]Point, n+1)
	for i := 0; i <= n; i++ {
		pts[i] = seg.PointAt(float64(i) / float64(n))
	}
	return pts
}

// Length returns the arc length of seg, exact for linear segments and
// approximated by flattening for curves.
func Length(seg WallSegment) float64 {
	pts := Flatten(seg, CurveSamples*2)
	var l float64
	for i := 1; i < len(pts); i++ {
		l += pts[i-1].Dist(pts[i])
	}
	return l
}

// ParamAtLength returns the parameter t at which the arc length from the start
// of seg reaches dist, clamped to [0,1].
func ParamAtLength(seg WallSegment, dist float64) float64 {
	if seg.Kind() == Linear {
		l := Length(seg)
		if l == 0 {
			return 0
		}
		return math.Max(0, math.Min(1, dist/l))
	}
	n := CurveSamples * 2
	prev := seg.Start()
	var acc float64
	for i := 1; i <= n; i++ {
		t := float64(i) / float64(n)
		q := seg.PointAt(t)
		step := prev.Dist(q)
		if acc+step >= dist {
			if step == 0 {
				return t
			}
			frac := (dist - acc) / step
			return float64(i-1)/float64(n) + frac/float64(n)
		}
		acc += step
		prev = q
	}
	return 1
}

// LengthAtParam returns the arc length from the start of seg to parameter t.
func LengthAtParam(seg WallSegment, t float64) float64 {
	if seg.Kind() == Linear {
		return Length(seg) * math.Max(0, math.Min(1, t))
	}
	a, _ := SplitSegment(seg, t)
	return Length(a)
}
