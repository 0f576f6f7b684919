package fog

import (
	"math"

	"github.com/cory-johannsen/battlemap/internal/battlemap/geom"
)

// FloodOptions bounds a flood fill.
type FloodOptions struct {
	// Bounds is the map rectangle; the fill never leaves it.
	Bounds geom.Rect
	// Resolution is the requested cell size.
	Resolution float64
	// MaxCells caps the grid; the resolution is coarsened until the grid
	// fits. Zero means no cap.
	MaxCells int
	// Diagonal enables 8-connected filling.
	Diagonal bool
}

// FloodResult is the region reached by a flood fill.
type FloodResult struct {
	// Polygon is the traced outer boundary in map coordinates, without
	// collinear vertices.
	Polygon []geom.Point
	// Cells is the number of filled cells.
	Cells int
	// Resolution is the cell size actually used.
	Resolution float64
}

// Area returns the polygon's area.
func (r FloodResult) Area() float64 { return geom.PolygonArea(r.Polygon) }

type cell struct{ c, r int }

type floodGrid struct {
	origin  geom.Point
	res     float64
	cols    int
	rows    int
	blocked []bool
}

// effectiveResolution raises res until the grid over bounds has at most
// maxCells cells.
func effectiveResolution(bounds geom.Rect, res float64, maxCells int) float64 {
	if maxCells <= 0 {
		return res
	}
	for {
		cols := math.Ceil(bounds.Width() / res)
		rows := math.Ceil(bounds.Height() / res)
		if cols*rows <= float64(maxCells) {
			return res
		}
		res *= math.Max(1.01, math.Sqrt(cols*rows/float64(maxCells)))
	}
}

func newFloodGrid(bounds geom.Rect, res float64) *floodGrid {
	cols := max(1, int(math.Ceil(bounds.Width()/res)))
	rows := max(1, int(math.Ceil(bounds.Height()/res)))
	return &floodGrid{origin: bounds.Min, res: res, cols: cols, rows: rows, blocked: make([]bool, cols*rows)}
}

func (g *floodGrid) in(c, r int) bool { return c >= 0 && r >= 0 && c < g.cols && r < g.rows }

func (g *floodGrid) block(c, r int) {
	if g.in(c, r) {
		g.blocked[r*g.cols+c] = true
	}
}

// rasterizeSegment marks every cell the segment from a to b passes through,
// including both neighbours when it crosses a cell corner exactly, so the
// blocked cells form an edge-connected barrier.
func (g *floodGrid) rasterizeSegment(a, b geom.Point) {
	sx, sy := (a.X-g.origin.X)/g.res, (a.Y-g.origin.Y)/g.res
	tx, ty := (b.X-g.origin.X)/g.res, (b.Y-g.origin.Y)/g.res
	c, r := int(math.Floor(sx)), int(math.Floor(sy))
	ec, er := int(math.Floor(tx)), int(math.Floor(ty))
	dx, dy := tx-sx, ty-sy

	stepX, stepY := 0, 0
	tMaxX, tMaxY := math.Inf(1), math.Inf(1)
	tDeltaX, tDeltaY := math.Inf(1), math.Inf(1)
	if dx > 0 {
		stepX, tDeltaX, tMaxX = 1, 1/dx, (float64(c+1)-sx)/dx
	} else if dx < 0 {
		stepX, tDeltaX, tMaxX = -1, -1/dx, (sx-float64(c))/-dx
	}
	if dy > 0 {
		stepY, tDeltaY, tMaxY = 1, 1/dy, (float64(r+1)-sy)/dy
	} else if dy < 0 {
		stepY, tDeltaY, tMaxY = -1, -1/dy, (sy-float64(r))/-dy
	}

	g.block(c, r)
	for n := abs(ec-c) + abs(er-r) + 2; n > 0 && (c != ec || r != er); n-- {
		switch {
		case tMaxX < tMaxY:
			c += stepX
			tMaxX += tDeltaX
		case tMaxY < tMaxX:
			r += stepY
			tMaxY += tDeltaY
		default:
			g.block(c+stepX, r)
			g.block(c, r+stepY)
			c += stepX
			r += stepY
			tMaxX += tDeltaX
			tMaxY += tDeltaY
		}
		if tMaxX > 1 && tMaxY > 1 && (c != ec || r != er) {
			// Rounding left the walk short of the end cell.
			g.block(c, r)
			c, r = ec, er
		}
		g.block(c, r)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// FloodFill finds the region reachable from click without crossing any wall
// segment and traces its outer boundary. Every segment blocks, whatever its
// door or permission flags.
//
// Precondition: opts.Resolution > 0 and opts.Bounds is non-empty.
// Postcondition: ok is false when click lies outside the bounds or on a wall.
func FloodFill(click geom.Point, walls []geom.Wall, opts FloodOptions) (FloodResult, bool) {
	if opts.Resolution <= 0 || opts.Bounds.Width() <= 0 || opts.Bounds.Height() <= 0 {
		return FloodResult{}, false
	}
	if !opts.Bounds.Contains(click) {
		return FloodResult{}, false
	}
	res := effectiveResolution(opts.Bounds, opts.Resolution, opts.MaxCells)
	g := newFloodGrid(opts.Bounds, res)
	// Pieces are clipped one cell beyond the map so the walk never leaves
	// the grid's neighbourhood.
	clip := opts.Bounds.Grow(res)
	for _, w := range walls {
		for _, s := range w.Segments {
			pts := geom.Flatten(s, geom.CurveSamples)
			for i := 1; i < len(pts); i++ {
				if a, b, ok := geom.ClipSegment(pts[i-1], pts[i], clip); ok {
					g.rasterizeSegment(a, b)
				}
			}
		}
	}

	start := cell{int(math.Floor((click.X - g.origin.X) / res)), int(math.Floor((click.Y - g.origin.Y) / res))}
	start.c = min(start.c, g.cols-1)
	start.r = min(start.r, g.rows-1)
	if g.blocked[start.r*g.cols+start.c] {
		return FloodResult{}, false
	}

	filled := make([]bool, len(g.blocked))
	filled[start.r*g.cols+start.c] = true
	queue := []cell{start}
	n := 0
	dirs := []cell{{0, -1}, {1, 0}, {0, 1}, {-1, 0}}
	if opts.Diagonal {
		dirs = append(dirs, cell{1, -1}, cell{1, 1}, cell{-1, 1}, cell{-1, -1})
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		n++
		for _, d := range dirs {
			nc, nr := cur.c+d.c, cur.r+d.r
			if !g.in(nc, nr) {
				continue
			}
			i := nr*g.cols + nc
			if filled[i] || g.blocked[i] {
				continue
			}
			filled[i] = true
			queue = append(queue, cell{nc, nr})
		}
	}

	poly := traceBoundary(filled, g.cols, g.rows)
	for i, p := range poly {
		poly[i] = geom.Pt(
			math.Min(opts.Bounds.Max.X, g.origin.X+p.X*res),
			math.Min(opts.Bounds.Max.Y, g.origin.Y+p.Y*res),
		)
	}
	return FloodResult{Polygon: poly, Cells: n, Resolution: res}, true
}
