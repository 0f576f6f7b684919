package fog

import (
	"image"
	"math"

	"github.com/cory-johannsen/battlemap/internal/battlemap/geom"
)

// Mask is a grid of hidden/revealed cells covering a map. A cell is tested
// at its centre.
type Mask struct {
	bounds geom.Rect
	res    float64
	cols   int
	rows   int
	hidden []bool
}

// NewMask returns an all-hidden mask over bounds with square cells of size
// res.
//
// Precondition: res > 0 and bounds has positive width and height.
func NewMask(bounds geom.Rect, res float64) *Mask {
	cols := max(1, int(math.Ceil(bounds.Width()/res)))
	rows := max(1, int(math.Ceil(bounds.Height()/res)))
	m := &Mask{bounds: bounds, res: res, cols: cols, rows: rows, hidden: make([]bool, cols*rows)}
	for i := range m.hidden {
		m.hidden[i] = true
	}
	return m
}

// Replay builds the mask for shapes applied in order over an all-hidden
// base. Invalid shapes are skipped.
func Replay(bounds geom.Rect, res float64, shapes []Shape) *Mask {
	m := NewMask(bounds, res)
	for _, s := range shapes {
		m.Apply(s)
	}
	return m
}

// Size returns the grid dimensions in cells.
func (m *Mask) Size() (cols, rows int) { return m.cols, m.rows }

// Resolution returns the cell size.
func (m *Mask) Resolution() float64 { return m.res }

// Bounds returns the covered map rectangle.
func (m *Mask) Bounds() geom.Rect { return m.bounds }

// Hidden reports whether cell (col,row) is hidden. Cells outside the grid
// are hidden.
func (m *Mask) Hidden(col, row int) bool {
	if col < 0 || row < 0 || col >= m.cols || row >= m.rows {
		return true
	}
	return m.hidden[row*m.cols+col]
}

// HiddenAt reports whether the cell containing p is hidden.
func (m *Mask) HiddenAt(p geom.Point) bool {
	c, r := m.cellOf(p)
	return m.Hidden(c, r)
}

// HiddenCount returns the number of hidden cells.
func (m *Mask) HiddenCount() int {
	n := 0
	for _, h := range m.hidden {
		if h {
			n++
		}
	}
	return n
}

// Equal reports whether m and o have the same geometry and cell states.
func (m *Mask) Equal(o *Mask) bool {
	if m.cols != o.cols || m.rows != o.rows || m.res != o.res || m.bounds != o.bounds {
		return false
	}
	for i := range m.hidden {
		if m.hidden[i] != o.hidden[i] {
			return false
		}
	}
	return true
}

func (m *Mask) cellOf(p geom.Point) (int, int) {
	return int(math.Floor((p.X - m.bounds.Min.X) / m.res)), int(math.Floor((p.Y - m.bounds.Min.Y) / m.res))
}

func (m *Mask) center(col, row int) geom.Point {
	return geom.Pt(m.bounds.Min.X+(float64(col)+0.5)*m.res, m.bounds.Min.Y+(float64(row)+0.5)*m.res)
}

func (m *Mask) set(col, row int, hidden bool) {
	if col < 0 || row < 0 || col >= m.cols || row >= m.rows {
		return
	}
	m.hidden[row*m.cols+col] = hidden
}

// cellRange returns the inclusive column/row range whose centres may lie in
// r, clamped to the grid. ok is false when the range is empty.
func (m *Mask) cellRange(r geom.Rect) (c0, r0, c1, r1 int, ok bool) {
	c0 = max(0, int(math.Floor((r.Min.X-m.bounds.Min.X)/m.res-0.5)))
	r0 = max(0, int(math.Floor((r.Min.Y-m.bounds.Min.Y)/m.res-0.5)))
	c1 = min(m.cols-1, int(math.Ceil((r.Max.X-m.bounds.Min.X)/m.res-0.5)))
	r1 = min(m.rows-1, int(math.Ceil((r.Max.Y-m.bounds.Min.Y)/m.res-0.5)))
	return c0, r0, c1, r1, c0 <= c1 && r0 <= r1
}

// Apply paints s onto the mask: Add hides, Subtract reveals.
//
// Postcondition: returns false, leaving the mask unchanged, when s is
// invalid.
func (m *Mask) Apply(s Shape) bool {
	if s.Validate() != nil {
		return false
	}
	hidden := s.Operation == Add
	switch s.Type {
	case Rect:
		m.fillRect(s.Box(), hidden)
	case Ellipse:
		m.fillEllipse(s.Box(), hidden)
	case Poly, GridCell:
		m.fillPolygon(s.Points(), hidden)
	case Brush:
		m.strokePolyline(s.Points(), s.Width, hidden)
	}
	return true
}

// Alpha returns one byte per cell, row-major: hidden cells carry opacity
// scaled to 0..255 and revealed cells 0. Opacity is clamped to [0,1].
func (m *Mask) Alpha(opacity float64) []uint8 {
	a := uint8(math.Round(math.Max(0, math.Min(1, opacity)) * 255))
	out := make([]uint8, len(m.hidden))
	for i, h := range m.hidden {
		if h {
			out[i] = a
		}
	}
	return out
}

// Image renders the mask one pixel per cell.
func (m *Mask) Image(opacity float64) *image.Alpha {
	img := image.NewAlpha(image.Rect(0, 0, m.cols, m.rows))
	copy(img.Pix, m.Alpha(opacity))
	return img
}
