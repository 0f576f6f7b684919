package fog

import (
	"math"
	"slices"

	"github.com/cory-johannsen/battlemap/internal/battlemap/geom"
)

func (m *Mask) fillRect(r geom.Rect, hidden bool) {
	c0, r0, c1, r1, ok := m.cellRange(r)
	if !ok {
		return
	}
	for row := r0; row <= r1; row++ {
		for col := c0; col <= c1; col++ {
			p := m.center(col, row)
			if p.X >= r.Min.X && p.X < r.Max.X && p.Y >= r.Min.Y && p.Y < r.Max.Y {
				m.set(col, row, hidden)
			}
		}
	}
}

func (m *Mask) fillEllipse(r geom.Rect, hidden bool) {
	rx, ry := r.Width()/2, r.Height()/2
	if rx <= 0 || ry <= 0 {
		return
	}
	cx, cy := r.Min.X+rx, r.Min.Y+ry
	c0, r0, c1, r1, ok := m.cellRange(r)
	if !ok {
		return
	}
	for row := r0; row <= r1; row++ {
		for col := c0; col <= c1; col++ {
			p := m.center(col, row)
			dx, dy := (p.X-cx)/rx, (p.Y-cy)/ry
			if dx*dx+dy*dy <= 1 {
				m.set(col, row, hidden)
			}
		}
	}
}

// fillPolygon fills the closed polygon pts with the even-odd rule, one
// scanline per cell row through the cell centres.
func (m *Mask) fillPolygon(pts []geom.Point, hidden bool) {
	if len(pts) < 3 {
		return
	}
	bb := geom.Rect{Min: pts[0], Max: pts[0]}
	for _, p := range pts[1:] {
		bb = bb.Extend(p)
	}
	_, r0, _, r1, ok := m.cellRange(bb)
	if !ok {
		return
	}
	xs := make([]float64, 0, 8)
	for row := r0; row <= r1; row++ {
		y := m.bounds.Min.Y + (float64(row)+0.5)*m.res
		xs = xs[:0]
		for i := range pts {
			a, b := pts[i], pts[(i+1)%len(pts)]
			if a.Y > b.Y {
				a, b = b, a
			}
			// Half-open in y so shared vertices are counted once.
			if y < a.Y || y >= b.Y {
				continue
			}
			xs = append(xs, a.X+(y-a.Y)*(b.X-a.X)/(b.Y-a.Y))
		}
		slices.Sort(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			m.fillSpan(xs[i], xs[i+1], row, hidden)
		}
	}
}

// fillSpan sets cells in row whose centre x lies in [x0, x1).
func (m *Mask) fillSpan(x0, x1 float64, row int, hidden bool) {
	c0 := max(0, int(math.Ceil((x0-m.bounds.Min.X)/m.res-0.5)))
	c1 := min(m.cols-1, int(math.Ceil((x1-m.bounds.Min.X)/m.res-0.5))-1)
	for col := c0; col <= c1; col++ {
		m.set(col, row, hidden)
	}
}

// strokePolyline paints every cell whose centre is within width/2 of the
// polyline, which gives round caps and joins.
func (m *Mask) strokePolyline(pts []geom.Point, width float64, hidden bool) {
	half := width / 2
	if len(pts) == 1 {
		pts = []geom.Point{pts[0], pts[0]}
	}
	for i := 0; i+1 < len(pts); i++ {
		a, b := pts[i], pts[i+1]
		seg := geom.WallSegment{X1: a.X, Y1: a.Y, X2: b.X, Y2: b.Y}
		bb := geom.RectFromPoints(a, b)
		bb = geom.Rect{Min: bb.Min.Sub(geom.Pt(half, half)), Max: bb.Max.Add(geom.Pt(half, half))}
		c0, r0, c1, r1, ok := m.cellRange(bb)
		if !ok {
			continue
		}
		for row := r0; row <= r1; row++ {
			for col := c0; col <= c1; col++ {
				if geom.DistanceToSegment(m.center(col, row), seg).Dist <= half {
					m.set(col, row, hidden)
				}
			}
		}
	}
}
