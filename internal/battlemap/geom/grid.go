package geom

import "math"

// GridType names the map grid geometry.
type GridType string

// Grid types understood by GridSnap and CellShape.
const (
	GridNone      GridType = "none"
	GridSquare    GridType = "square"
	GridHexPointy GridType = "hex-pointy"
	GridHexFlat   GridType = "hex-flat"
)

// GridSpec describes the grid a map is drawn on.
type GridSpec struct {
	Type     GridType `json:"type" yaml:"type" mapstructure:"type"`
	CellSize float64  `json:"cellSize" yaml:"cell_size" mapstructure:"cell_size"`
	OffsetX  float64  `json:"offsetX" yaml:"offset_x" mapstructure:"offset_x"`
	OffsetY  float64  `json:"offsetY" yaml:"offset_y" mapstructure:"offset_y"`
}

func (g GridSpec) usable() bool {
	return g.Type != "" && g.Type != GridNone && g.CellSize > 0
}

// GridSnap snaps p to the grid. Square grids snap to the nearest line
// intersection; hex grids snap to the nearest cell centre or vertex. A
// disabled grid returns p unchanged.
func GridSnap(p Point, g GridSpec) Point {
	if !g.usable() {
		return p
	}
	switch g.Type {
	case GridSquare:
		return Point{
			X: math.Round((p.X-g.OffsetX)/g.CellSize)*g.CellSize + g.OffsetX,
			Y: math.Round((p.Y-g.OffsetY)/g.CellSize)*g.CellSize + g.OffsetY,
		}
	case GridHexPointy, GridHexFlat:
		col, row := CellAt(g, p)
		best := cellCenter(g, col, row)
		bestD := p.Dist(best)
		for _, v := range CellShape(g, col, row) {
			if d := p.Dist(v); d < bestD {
				best, bestD = v, d
			}
		}
		return best
	}
	return p
}

// CellAt returns the grid cell containing p. Hex grids use axial coordinates
// (q, r).
func CellAt(g GridSpec, p Point) (int, int) {
	if !g.usable() {
		return 0, 0
	}
	x, y := p.X-g.OffsetX, p.Y-g.OffsetY
	size := g.CellSize
	switch g.Type {
	case GridHexPointy:
		q := (math.Sqrt(3)/3*x - y/3) / size
		r := (2.0 / 3 * y) / size
		return hexRound(q, r)
	case GridHexFlat:
		q := (2.0 / 3 * x) / size
		r := (-x/3 + math.Sqrt(3)/3*y) / size
		return hexRound(q, r)
	default:
		return int(math.Floor(x / size)), int(math.Floor(y / size))
	}
}

// CellShape returns the outline of the cell (col,row) as a closed polygon
// without a repeated first point.
func CellShape(g GridSpec, col, row int) []Point {
	if !g.usable() {
		return nil
	}
	size := g.CellSize
	switch g.Type {
	case GridHexPointy, GridHexFlat:
		c := cellCenter(g, col, row)
		start := 30.0
		if g.Type == GridHexFlat {
			start = 0
		}
		pts := make([]Point, 6)
		for i := range 6 {
			a := (start + 60*float64(i)) * math.Pi / 180
			pts[i] = Point{X: c.X + size*math.Cos(a), Y: c.Y + size*math.Sin(a)}
		}
		return pts
	default:
		x := float64(col)*size + g.OffsetX
		y := float64(row)*size + g.OffsetY
		return []Point{{X: x, Y: y}, {X: x + size, Y: y}, {X: x + size, Y: y + size}, {X: x, Y: y + size}}
	}
}

func cellCenter(g GridSpec, col, row int) Point {
	size := g.CellSize
	q, r := float64(col), float64(row)
	switch g.Type {
	case GridHexPointy:
		return Point{X: size*(math.Sqrt(3)*q+math.Sqrt(3)/2*r) + g.OffsetX, Y: size*(1.5*r) + g.OffsetY}
	case GridHexFlat:
		return Point{X: size*(1.5*q) + g.OffsetX, Y: size*(math.Sqrt(3)/2*q+math.Sqrt(3)*r) + g.OffsetY}
	default:
		return Point{X: (q+0.5)*size + g.OffsetX, Y: (r+0.5)*size + g.OffsetY}
	}
}

// hexRound rounds fractional axial coordinates to the containing hex.
func hexRound(q, r float64) (int, int) {
	s := -q - r
	rq, rr, rs := math.Round(q), math.Round(r), math.Round(s)
	dq, dr, ds := math.Abs(rq-q), math.Abs(rr-r), math.Abs(rs-s)
	if dq > dr && dq > ds {
		rq = -rr - rs
	} else if dr > ds {
		rr = -rq - rs
	}
	return int(rq), int(rr)
}
